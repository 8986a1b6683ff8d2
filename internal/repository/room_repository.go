package repository

import (
	"context"

	"market-chat/internal/domain/chat"
	"market-chat/internal/domain/room"
	market_errors "market-chat/pkg/errors"

	"gorm.io/gorm"
)

type PostgresRoomRepository struct {
	db *gorm.DB
}

func NewRoomRepository(db *gorm.DB) RoomRepository {
	return &PostgresRoomRepository{db: db}
}

func (r *PostgresRoomRepository) Create(ctx context.Context, rm *room.Room) error {
	return translateError(r.db.WithContext(ctx).Create(rm).Error)
}

func (r *PostgresRoomRepository) GetByID(ctx context.Context, id uint) (room.Room, error) {
	var rm room.Room
	err := r.db.WithContext(ctx).
		Preload("Service").
		Preload("Requester").
		Preload("Provider").
		Where("id = ?", id).
		First(&rm).Error
	if err != nil {
		return room.Room{}, translateError(err)
	}
	return rm, nil
}

func (r *PostgresRoomRepository) GetByServiceAndProvider(ctx context.Context, serviceID, providerID uint) (room.Room, error) {
	var rm room.Room
	err := r.db.WithContext(ctx).
		Where("service_id = ? AND provider_id = ?", serviceID, providerID).
		First(&rm).Error
	if err != nil {
		return room.Room{}, translateError(err)
	}
	return rm, nil
}

func (r *PostgresRoomRepository) GetUserRooms(ctx context.Context, userID uint) ([]room.Room, error) {
	var rooms []room.Room
	err := r.db.WithContext(ctx).
		Preload("Service").
		Preload("Requester").
		Preload("Provider").
		Where("requester_id = ? OR provider_id = ?", userID, userID).
		Order("updated_at DESC").
		Find(&rooms).Error
	if err != nil {
		return nil, err
	}
	return rooms, nil
}

func (r *PostgresRoomRepository) GetServiceRooms(ctx context.Context, serviceID uint) ([]room.Room, error) {
	var rooms []room.Room
	err := r.db.WithContext(ctx).
		Where("service_id = ?", serviceID).
		Find(&rooms).Error
	if err != nil {
		return nil, err
	}
	return rooms, nil
}

func (r *PostgresRoomRepository) UpdateStatus(ctx context.Context, id uint, status string) error {
	res := r.db.WithContext(ctx).Model(&room.Room{}).
		Where("id = ?", id).
		Update("status", status)
	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return market_errors.ErrNotFound
	}
	return nil
}

// Delete removes the room and every chat in it atomically.
func (r *PostgresRoomRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("room_id = ?", id).Delete(&chat.Chat{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&room.Room{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return market_errors.ErrNotFound
		}
		return nil
	})
}
