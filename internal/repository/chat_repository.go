package repository

import (
	"context"

	"market-chat/internal/domain/chat"

	"gorm.io/gorm"
)

type PostgresChatRepository struct {
	db *gorm.DB
}

func NewChatRepository(db *gorm.DB) ChatRepository {
	return &PostgresChatRepository{db: db}
}

func (r *PostgresChatRepository) Create(ctx context.Context, c *chat.Chat) error {
	if err := r.db.WithContext(ctx).Create(c).Error; err != nil {
		return translateError(err)
	}
	return nil
}

func (r *PostgresChatRepository) GetRoomChats(ctx context.Context, roomID uint, offset, limit int) ([]chat.Chat, error) {
	if offset < 0 {
		offset = 0
	}
	var chats []chat.Chat
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("room_id = ?", roomID).
		Order("created_at DESC").
		Order("id DESC").
		Offset(offset).
		Limit(limit).
		Find(&chats).Error
	if err != nil {
		return nil, err
	}
	return chats, nil
}

func (r *PostgresChatRepository) GetLatestChat(ctx context.Context, roomID uint) (chat.Chat, error) {
	var c chat.Chat
	err := r.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("created_at DESC").
		Order("id DESC").
		First(&c).Error
	if err != nil {
		return chat.Chat{}, translateError(err)
	}
	return c, nil
}
