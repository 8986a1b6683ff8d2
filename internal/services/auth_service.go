package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"database/sql"
	"encoding/hex"
	"errors"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"market-chat/config"
	"market-chat/internal/domain/user"
	"market-chat/internal/repository"
	market_errors "market-chat/pkg/errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type AuthService struct {
	userRepo   repository.UserRepository
	jwtSecret  []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewAuthService(userRepo repository.UserRepository, cfg *config.Config) *AuthService {
	return &AuthService{
		userRepo:   userRepo,
		jwtSecret:  []byte(cfg.JWTSecret),
		accessTTL:  time.Duration(cfg.JWTExpiryMin) * time.Minute,
		refreshTTL: time.Duration(cfg.RefreshExpiry) * 24 * time.Hour,
		now:        time.Now,
	}
}

type RegisterInput struct {
	Name     string
	Email    string
	Phone    string
	Password string
}

type LoginInput struct {
	Identity string
	Password string
}

type RefreshInput struct {
	SessionID    string
	RefreshToken string
}

type AuthResponse struct {
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token,omitempty"`
	ExpiresIn    int64    `json:"expires_in"`
	SessionID    string   `json:"session_id"`
	User         UserInfo `json:"user"`
}

type UserInfo struct {
	ID        uint   `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Phone     string `json:"phone,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

type AccessClaims struct {
	UserID    string `json:"sub"`
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// UserIDValue parses the numeric subject.
func (c AccessClaims) UserIDValue() (uint, error) {
	id, err := strconv.ParseUint(c.UserID, 10, 64)
	if err != nil || id == 0 {
		return 0, market_errors.ErrUnauthorized
	}
	return uint(id), nil
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (AuthResponse, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Phone = strings.TrimSpace(in.Phone)

	if err := validateRegister(in); err != nil {
		return AuthResponse{}, err
	}

	if err := s.ensureIdentityAvailable(ctx, in); err != nil {
		return AuthResponse{}, err
	}

	hash, err := hashPassword(in.Password)
	if err != nil {
		return AuthResponse{}, err
	}

	newUser := &user.User{
		Name:         in.Name,
		Email:        in.Email,
		Phone:        toNullString(in.Phone),
		PasswordHash: hash,
	}
	if err := s.userRepo.Create(ctx, newUser); err != nil {
		return AuthResponse{}, err
	}

	return s.startSession(ctx, *newUser)
}

func (s *AuthService) Login(ctx context.Context, in LoginInput) (AuthResponse, error) {
	if err := validateLogin(in); err != nil {
		return AuthResponse{}, err
	}

	u, err := s.getUserByIdentity(ctx, strings.TrimSpace(in.Identity))
	if err != nil {
		if errors.Is(err, market_errors.ErrNotFound) {
			return AuthResponse{}, market_errors.ErrUnauthorized
		}
		return AuthResponse{}, err
	}

	if err := comparePassword(u.PasswordHash, in.Password); err != nil {
		return AuthResponse{}, market_errors.ErrUnauthorized
	}

	return s.startSession(ctx, u)
}

func (s *AuthService) Refresh(ctx context.Context, in RefreshInput) (AuthResponse, error) {
	if in.SessionID == "" || in.RefreshToken == "" {
		return AuthResponse{}, market_errors.ErrInvalidInput
	}

	sessionID, err := uuid.Parse(in.SessionID)
	if err != nil {
		return AuthResponse{}, market_errors.ErrInvalidInput
	}

	session, err := s.userRepo.GetSessionByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, market_errors.ErrNotFound) {
			return AuthResponse{}, market_errors.ErrUnauthorized
		}
		return AuthResponse{}, err
	}

	if session.IsRevoked || s.now().After(session.ExpiresAt) {
		return AuthResponse{}, market_errors.ErrUnauthorized
	}

	if !s.compareRefreshToken(session.RefreshTokenHash, in.RefreshToken) {
		_ = s.userRepo.RevokeSession(ctx, session.ID)
		return AuthResponse{}, market_errors.ErrUnauthorized
	}

	newRefresh, err := generateToken(32)
	if err != nil {
		return AuthResponse{}, err
	}

	session.RefreshTokenHash = s.hashRefreshToken(newRefresh)
	session.ExpiresAt = s.now().Add(s.refreshTTL)

	if err := s.userRepo.UpdateSession(ctx, session); err != nil {
		return AuthResponse{}, err
	}

	accessToken, expiresIn, err := s.newAccessToken(session.UserID, session.ID)
	if err != nil {
		return AuthResponse{}, err
	}

	u, err := s.userRepo.GetUserByID(ctx, session.UserID)
	if err != nil {
		return AuthResponse{}, err
	}

	return AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: newRefresh,
		ExpiresIn:    expiresIn,
		SessionID:    session.ID.String(),
		User:         ToUserInfo(u),
	}, nil
}

func (s *AuthService) Logout(ctx context.Context, sessionID uuid.UUID) error {
	if sessionID == uuid.Nil {
		return market_errors.ErrInvalidInput
	}
	return s.userRepo.RevokeSession(ctx, sessionID)
}

func (s *AuthService) ParseAccessToken(tokenString string) (AccessClaims, error) {
	if tokenString == "" {
		return AccessClaims{}, market_errors.ErrUnauthorized
	}

	parsed, err := jwt.ParseWithClaims(tokenString, &AccessClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, market_errors.ErrUnauthorized
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return AccessClaims{}, market_errors.ErrUnauthorized
	}

	claims, ok := parsed.Claims.(*AccessClaims)
	if !ok || !parsed.Valid {
		return AccessClaims{}, market_errors.ErrUnauthorized
	}

	return *claims, nil
}

// ValidateSession checks that the session belongs to userID and is still live.
func (s *AuthService) ValidateSession(ctx context.Context, sessionID uuid.UUID, userID uint) (user.UserSession, error) {
	session, err := s.userRepo.GetSessionByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, market_errors.ErrNotFound) {
			return user.UserSession{}, market_errors.ErrUnauthorized
		}
		return user.UserSession{}, err
	}
	if session.UserID != userID || session.IsRevoked || s.now().After(session.ExpiresAt) {
		return user.UserSession{}, market_errors.ErrUnauthorized
	}
	return session, nil
}

// Authenticate resolves a bearer token into the user and session it belongs to.
func (s *AuthService) Authenticate(ctx context.Context, token string) (uint, uuid.UUID, error) {
	claims, err := s.ParseAccessToken(token)
	if err != nil {
		return 0, uuid.Nil, err
	}
	userID, err := claims.UserIDValue()
	if err != nil {
		return 0, uuid.Nil, err
	}
	sessionID, err := uuid.Parse(claims.SessionID)
	if err != nil {
		return 0, uuid.Nil, market_errors.ErrUnauthorized
	}
	if _, err := s.ValidateSession(ctx, sessionID, userID); err != nil {
		return 0, uuid.Nil, err
	}
	return userID, sessionID, nil
}

// CleanExpiredSessions deletes revoked and expired sessions.
func (s *AuthService) CleanExpiredSessions(ctx context.Context) (int64, error) {
	return s.userRepo.CleanExpiredSessions(ctx, s.now())
}

func (s *AuthService) startSession(ctx context.Context, u user.User) (AuthResponse, error) {
	refreshToken, err := generateToken(32)
	if err != nil {
		return AuthResponse{}, err
	}

	createdAt := s.now()
	session := &user.UserSession{
		ID:               uuid.New(),
		UserID:           u.ID,
		RefreshTokenHash: s.hashRefreshToken(refreshToken),
		ExpiresAt:        createdAt.Add(s.refreshTTL),
		CreatedAt:        createdAt,
	}
	if err := s.userRepo.CreateSession(ctx, session); err != nil {
		return AuthResponse{}, err
	}

	accessToken, expiresIn, err := s.newAccessToken(u.ID, session.ID)
	if err != nil {
		return AuthResponse{}, err
	}

	return AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    expiresIn,
		SessionID:    session.ID.String(),
		User:         ToUserInfo(u),
	}, nil
}

func (s *AuthService) ensureIdentityAvailable(ctx context.Context, in RegisterInput) error {
	if _, err := s.userRepo.GetUserByEmail(ctx, in.Email); err == nil {
		return market_errors.ErrAlreadyExists
	} else if !errors.Is(err, market_errors.ErrNotFound) {
		return err
	}

	if in.Phone != "" {
		if _, err := s.userRepo.GetUserByPhone(ctx, in.Phone); err == nil {
			return market_errors.ErrAlreadyExists
		} else if !errors.Is(err, market_errors.ErrNotFound) {
			return err
		}
	}

	return nil
}

func (s *AuthService) getUserByIdentity(ctx context.Context, identity string) (user.User, error) {
	if identity == "" {
		return user.User{}, market_errors.ErrInvalidInput
	}

	if strings.Contains(identity, "@") {
		return s.userRepo.GetUserByEmail(ctx, strings.ToLower(identity))
	}
	return s.userRepo.GetUserByPhone(ctx, identity)
}

func (s *AuthService) newAccessToken(userID uint, sessionID uuid.UUID) (string, int64, error) {
	now := s.now()
	expiresAt := now.Add(s.accessTTL)
	subject := strconv.FormatUint(uint64(userID), 10)

	claims := AccessClaims{
		UserID:    subject,
		SessionID: sessionID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", 0, err
	}

	return signed, int64(s.accessTTL.Seconds()), nil
}

func (s *AuthService) hashRefreshToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func (s *AuthService) compareRefreshToken(hash, token string) bool {
	computed := s.hashRefreshToken(token)
	return subtle.ConstantTimeCompare([]byte(hash), []byte(computed)) == 1
}

func validateRegister(in RegisterInput) error {
	if in.Password == "" || in.Name == "" || in.Email == "" {
		return market_errors.ErrInvalidInput
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return market_errors.ErrInvalidInput
	}
	if len(in.Password) < 8 {
		return market_errors.ErrInvalidInput
	}
	return nil
}

func validateLogin(in LoginInput) error {
	if in.Identity == "" || in.Password == "" {
		return market_errors.ErrInvalidInput
	}
	return nil
}

func hashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

func comparePassword(hash, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}

func generateToken(length int) (string, error) {
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func toNullString(value string) sql.NullString {
	if value == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: value, Valid: true}
}

func ToUserInfo(u user.User) UserInfo {
	info := UserInfo{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		AvatarURL: u.AvatarURL,
	}
	if u.Phone.Valid {
		info.Phone = u.Phone.String
	}
	return info
}
