package services

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"strings"
	"time"
	"unicode/utf8"

	"market-chat/internal/domain/service"
	"market-chat/internal/repository"
	market_errors "market-chat/pkg/errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MaxImageBytes caps a presigned service image upload.
const MaxImageBytes = 10 << 20

// MarketplaceService manages service requests posted to the marketplace.
type MarketplaceService struct {
	repo     repository.ServiceRepository
	roomRepo repository.RoomRepository
	cache    ServiceCache
	notifier RoomNotifier
	storage  ImageStorage
	now      func() time.Time
}

type ServiceInput struct {
	Title       string
	Description string
	Method      string
	ServiceDate time.Time
}

type ImageUpload struct {
	UploadURL string            `json:"upload_url"`
	ObjectKey string            `json:"object_key"`
	FileURL   string            `json:"file_url,omitempty"`
	Headers   map[string]string `json:"headers"`
}

// NewMarketplaceService wires the optional collaborators; cache, notifier and
// storage may all be nil.
func NewMarketplaceService(repo repository.ServiceRepository, roomRepo repository.RoomRepository, cache ServiceCache, notifier RoomNotifier, storage ImageStorage) *MarketplaceService {
	return &MarketplaceService{
		repo:     repo,
		roomRepo: roomRepo,
		cache:    cache,
		notifier: notifier,
		storage:  storage,
		now:      time.Now,
	}
}

func (s *MarketplaceService) List(ctx context.Context, page, limit int) ([]service.Service, int64, error) {
	return s.repo.List(ctx, page, limit)
}

func (s *MarketplaceService) Create(ctx context.Context, actorID uint, in ServiceInput) (service.Service, error) {
	if actorID == 0 {
		return service.Service{}, market_errors.ErrUnauthorized
	}
	in, err := normalizeServiceInput(in)
	if err != nil {
		return service.Service{}, err
	}

	created := &service.Service{
		UserID:      actorID,
		Title:       in.Title,
		Description: in.Description,
		Method:      service.Method(in.Method),
		ServiceDate: in.ServiceDate,
		Status:      service.StatusOpen,
	}
	if err := s.repo.Create(ctx, created); err != nil {
		return service.Service{}, err
	}
	return s.repo.GetByID(ctx, created.ID)
}

// Get reads through the cache when one is configured.
func (s *MarketplaceService) Get(ctx context.Context, id uint) (service.Service, error) {
	if id == 0 {
		return service.Service{}, market_errors.ErrInvalidInput
	}
	if s.cache != nil {
		cached, err := s.cache.GetService(ctx, id)
		if err != nil {
			zap.L().Warn("service cache read failed", zap.Uint("service_id", id), zap.Error(err))
		} else if cached != nil {
			return *cached, nil
		}
	}

	found, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return service.Service{}, err
	}
	if s.cache != nil {
		if err := s.cache.SetService(ctx, found); err != nil {
			zap.L().Warn("service cache write failed", zap.Uint("service_id", id), zap.Error(err))
		}
	}
	return found, nil
}

func (s *MarketplaceService) Update(ctx context.Context, actorID, id uint, in ServiceInput) (service.Service, error) {
	existing, err := s.ownedService(ctx, actorID, id)
	if err != nil {
		return service.Service{}, err
	}
	in, err = normalizeServiceInput(in)
	if err != nil {
		return service.Service{}, err
	}

	existing.Title = in.Title
	existing.Description = in.Description
	existing.Method = service.Method(in.Method)
	existing.ServiceDate = in.ServiceDate
	if err := s.repo.Update(ctx, existing); err != nil {
		return service.Service{}, err
	}
	s.invalidate(ctx, id)
	return s.repo.GetByID(ctx, id)
}

// Delete removes a service with its rooms and chats. Sockets still joined to
// those rooms are told the room closed.
func (s *MarketplaceService) Delete(ctx context.Context, actorID, id uint) error {
	if _, err := s.ownedService(ctx, actorID, id); err != nil {
		return err
	}
	rooms, err := s.roomRepo.GetServiceRooms(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, id)

	if s.notifier != nil {
		for _, rm := range rooms {
			s.notifier.NotifyRoomClosed(ctx, rm.ID)
		}
	}
	return nil
}

// Complete marks the service done. The owner and any provider holding a room
// on the service may complete it.
func (s *MarketplaceService) Complete(ctx context.Context, actorID, id uint) (service.Service, error) {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return service.Service{}, err
	}
	if existing.Status == service.StatusCompleted {
		return service.Service{}, market_errors.ErrServiceClosed
	}

	rooms, err := s.roomRepo.GetServiceRooms(ctx, id)
	if err != nil {
		return service.Service{}, err
	}
	if !existing.IsOwner(actorID) && !hasProvider(rooms, actorID) {
		return service.Service{}, market_errors.ErrForbidden
	}

	now := s.now()
	existing.Status = service.StatusCompleted
	existing.CompletedAt = &now
	if err := s.repo.Update(ctx, existing); err != nil {
		return service.Service{}, err
	}
	s.invalidate(ctx, id)

	if s.notifier != nil {
		for _, rm := range rooms {
			s.notifier.NotifyServiceCompleted(ctx, rm.ID, id)
		}
	}
	return existing, nil
}

// PresignImage issues an upload URL for the service image and records its key.
func (s *MarketplaceService) PresignImage(ctx context.Context, actorID, id uint, contentType string, size int64) (ImageUpload, error) {
	if s.storage == nil {
		return ImageUpload{}, market_errors.ErrStorageMissing
	}
	existing, err := s.ownedService(ctx, actorID, id)
	if err != nil {
		return ImageUpload{}, err
	}
	if !strings.HasPrefix(contentType, "image/") || size <= 0 {
		return ImageUpload{}, market_errors.ErrInvalidInput
	}
	if size > MaxImageBytes {
		return ImageUpload{}, market_errors.ErrTooLarge
	}

	key := imageObjectKey(id, contentType)
	url, headers, err := s.storage.PresignPut(ctx, key, contentType, size)
	if err != nil {
		return ImageUpload{}, fmt.Errorf("presign image: %w", err)
	}

	existing.ImageKey = key
	if err := s.repo.Update(ctx, existing); err != nil {
		return ImageUpload{}, err
	}
	s.invalidate(ctx, id)

	return ImageUpload{
		UploadURL: url,
		ObjectKey: key,
		FileURL:   s.storage.FileURL(key),
		Headers:   headers,
	}, nil
}

// ImageURL resolves the public URL of a stored image key.
func (s *MarketplaceService) ImageURL(key string) string {
	if s.storage == nil || key == "" {
		return ""
	}
	return s.storage.FileURL(key)
}

func (s *MarketplaceService) ownedService(ctx context.Context, actorID, id uint) (service.Service, error) {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return service.Service{}, err
	}
	if !existing.IsOwner(actorID) {
		return service.Service{}, market_errors.ErrNotOwner
	}
	return existing, nil
}

func (s *MarketplaceService) invalidate(ctx context.Context, id uint) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateService(ctx, id); err != nil {
		zap.L().Warn("service cache invalidate failed", zap.Uint("service_id", id), zap.Error(err))
	}
}

func normalizeServiceInput(in ServiceInput) (ServiceInput, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Method = strings.ToUpper(strings.TrimSpace(in.Method))

	if in.Title == "" || utf8.RuneCountInString(in.Title) > 120 {
		return in, fmt.Errorf("%w: title must be 1-120 characters", market_errors.ErrInvalidInput)
	}
	if !service.Method(in.Method).Valid() {
		return in, fmt.Errorf("%w: method must be REMOTE or VISIT", market_errors.ErrInvalidInput)
	}
	if in.ServiceDate.IsZero() {
		return in, fmt.Errorf("%w: service_date is required", market_errors.ErrInvalidInput)
	}
	return in, nil
}

func imageObjectKey(serviceID uint, contentType string) string {
	ext := ""
	if exts, err := mime.ExtensionsByType(contentType); err == nil && len(exts) > 0 {
		ext = exts[0]
	}
	return fmt.Sprintf("services/%d/%s%s", serviceID, uuid.NewString(), ext)
}

func isNotFound(err error) bool {
	return errors.Is(err, market_errors.ErrNotFound)
}
