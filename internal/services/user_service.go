package services

import (
	"context"
	"net/url"
	"strings"
	"unicode/utf8"

	"market-chat/internal/domain/user"
	"market-chat/internal/repository"
	market_errors "market-chat/pkg/errors"
)

type UserService struct {
	repo repository.UserRepository
}

func NewUserService(repo repository.UserRepository) *UserService {
	return &UserService{repo: repo}
}

type ProfileInput struct {
	Name      *string
	AvatarURL *string
}

func (s *UserService) Me(ctx context.Context, userID uint) (user.User, error) {
	if userID == 0 {
		return user.User{}, market_errors.ErrUnauthorized
	}
	return s.repo.GetUserByID(ctx, userID)
}

func (s *UserService) UpdateProfile(ctx context.Context, userID uint, in ProfileInput) (user.User, error) {
	u, err := s.Me(ctx, userID)
	if err != nil {
		return user.User{}, err
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" || utf8.RuneCountInString(name) > 80 {
			return user.User{}, market_errors.ErrInvalidInput
		}
		u.Name = name
	}
	if in.AvatarURL != nil {
		avatar := strings.TrimSpace(*in.AvatarURL)
		if avatar != "" {
			parsed, err := url.ParseRequestURI(avatar)
			if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
				return user.User{}, market_errors.ErrInvalidInput
			}
		}
		u.AvatarURL = avatar
	}

	if err := s.repo.UpdateUser(ctx, u); err != nil {
		return user.User{}, err
	}
	return s.repo.GetUserByID(ctx, userID)
}
