package repository

import (
	"context"
	"math"

	"market-chat/internal/domain/chat"
	"market-chat/internal/domain/room"
	"market-chat/internal/domain/service"
	market_errors "market-chat/pkg/errors"

	"gorm.io/gorm"
)

type PostgresServiceRepository struct {
	db *gorm.DB
}

func NewServiceRepository(db *gorm.DB) ServiceRepository {
	return &PostgresServiceRepository{db: db}
}

func (r *PostgresServiceRepository) Create(ctx context.Context, s *service.Service) error {
	return translateError(r.db.WithContext(ctx).Create(s).Error)
}

func (r *PostgresServiceRepository) GetByID(ctx context.Context, id uint) (service.Service, error) {
	var s service.Service
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("id = ?", id).
		First(&s).Error
	if err != nil {
		return service.Service{}, translateError(err)
	}
	return s, nil
}

func (r *PostgresServiceRepository) List(ctx context.Context, page, limit int) ([]service.Service, int64, error) {
	page, limit = normalizePage(page, limit)

	var services []service.Service
	var total int64

	q := r.db.WithContext(ctx).Model(&service.Service{})
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if page-1 > math.MaxInt/limit {
		return []service.Service{}, total, nil
	}

	err := q.Preload("User").
		Order("created_at DESC").
		Order("id DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&services).Error
	if err != nil {
		return nil, 0, err
	}
	return services, total, nil
}

func (r *PostgresServiceRepository) Update(ctx context.Context, s service.Service) error {
	res := r.db.WithContext(ctx).Model(&service.Service{}).
		Where("id = ?", s.ID).
		Updates(map[string]interface{}{
			"title":        s.Title,
			"description":  s.Description,
			"method":       s.Method,
			"service_date": s.ServiceDate,
			"status":       s.Status,
			"image_key":    s.ImageKey,
			"completed_at": s.CompletedAt,
		})
	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return market_errors.ErrNotFound
	}
	return nil
}

// Delete removes the service together with its rooms and their chats.
func (r *PostgresServiceRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		roomIDs := tx.Model(&room.Room{}).Select("id").Where("service_id = ?", id)
		if err := tx.Where("room_id IN (?)", roomIDs).Delete(&chat.Chat{}).Error; err != nil {
			return err
		}
		if err := tx.Where("service_id = ?", id).Delete(&room.Room{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&service.Service{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return market_errors.ErrNotFound
		}
		return nil
	})
}
