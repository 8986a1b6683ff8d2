package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"market-chat/internal/domain/chat"
	"market-chat/internal/domain/room"
	"market-chat/internal/domain/service"
	"market-chat/internal/domain/user"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// SeedConfig holds configuration for seeding the database
type SeedConfig struct {
	Password      string
	UserCount     int
	ServicesEach  int
	ChatsPerRoom  int
	EmailTemplate string
}

// DefaultSeedConfig returns default seed configuration
func DefaultSeedConfig() *SeedConfig {
	return &SeedConfig{
		Password:      "Password@123",
		UserCount:     4,
		ServicesEach:  2,
		ChatsPerRoom:  30,
		EmailTemplate: "user%d@market.chat",
	}
}

// SeedResult holds the result of the seeding operation
type SeedResult struct {
	Users    []*user.User
	Services []*service.Service
	Rooms    []*room.Room
	Chats    int
}

// SeedDevelopment fills an empty database with users, services, rooms and
// enough chats to exercise history paging.
func SeedDevelopment(ctx context.Context, db *gorm.DB, cfg *SeedConfig) (*SeedResult, error) {
	if cfg == nil {
		cfg = DefaultSeedConfig()
	}
	if cfg.UserCount < 2 {
		return nil, fmt.Errorf("need at least 2 users, got %d", cfg.UserCount)
	}

	result := &SeedResult{}
	log.Println("Starting database seeding...")

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		users, err := seedUsers(tx, cfg)
		if err != nil {
			return fmt.Errorf("failed to seed users: %w", err)
		}
		result.Users = users

		services, err := seedServices(tx, users, cfg.ServicesEach)
		if err != nil {
			return fmt.Errorf("failed to seed services: %w", err)
		}
		result.Services = services

		rooms, err := seedRooms(tx, services, users)
		if err != nil {
			return fmt.Errorf("failed to seed rooms: %w", err)
		}
		result.Rooms = rooms

		count, err := seedChats(tx, rooms, cfg.ChatsPerRoom)
		if err != nil {
			return fmt.Errorf("failed to seed chats: %w", err)
		}
		result.Chats = count
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Println("Database seeding completed successfully!")
	return result, nil
}

func seedUsers(tx *gorm.DB, cfg *SeedConfig) ([]*user.User, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(cfg.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	users := make([]*user.User, 0, cfg.UserCount)
	for i := 1; i <= cfg.UserCount; i++ {
		email := fmt.Sprintf(cfg.EmailTemplate, i)

		var existing user.User
		err := tx.Where("email = ?", email).First(&existing).Error
		if err == nil {
			log.Printf("User %s already exists, skipping creation", email)
			users = append(users, &existing)
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}

		u := &user.User{
			Name:         fmt.Sprintf("Test User %d", i),
			Email:        email,
			Phone:        sql.NullString{String: fmt.Sprintf("010-0000-%04d", i), Valid: true},
			PasswordHash: string(hashedPassword),
		}
		if err := tx.Create(u).Error; err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, nil
}

func seedServices(tx *gorm.DB, users []*user.User, each int) ([]*service.Service, error) {
	var services []*service.Service
	methods := []service.Method{service.MethodRemote, service.MethodVisit}
	for i, u := range users {
		for j := 0; j < each; j++ {
			s := &service.Service{
				UserID:      u.ID,
				Title:       fmt.Sprintf("%s request #%d", u.Name, j+1),
				Description: "Seeded marketplace request",
				Method:      methods[(i+j)%len(methods)],
				ServiceDate: time.Now().AddDate(0, 0, 7+j),
				Status:      service.StatusOpen,
			}
			if err := tx.Create(s).Error; err != nil {
				return nil, err
			}
			services = append(services, s)
		}
	}
	return services, nil
}

// seedRooms opens one room per service with the next user as provider.
func seedRooms(tx *gorm.DB, services []*service.Service, users []*user.User) ([]*room.Room, error) {
	var rooms []*room.Room
	for i, s := range services {
		provider := users[(i+1)%len(users)]
		if provider.ID == s.UserID {
			provider = users[(i+2)%len(users)]
		}
		rm := &room.Room{
			ServiceID:   s.ID,
			RequesterID: s.UserID,
			ProviderID:  provider.ID,
			Status:      room.StatusPending,
		}
		if err := tx.Where(room.Room{ServiceID: s.ID, ProviderID: provider.ID}).FirstOrCreate(rm).Error; err != nil {
			return nil, err
		}
		rooms = append(rooms, rm)
	}
	return rooms, nil
}

func seedChats(tx *gorm.DB, rooms []*room.Room, perRoom int) (int, error) {
	total := 0
	start := time.Now().Add(-time.Duration(perRoom) * time.Minute)
	for _, rm := range rooms {
		batch := make([]chat.Chat, 0, perRoom)
		for i := 0; i < perRoom; i++ {
			author := rm.RequesterID
			if i%2 == 1 {
				author = rm.ProviderID
			}
			batch = append(batch, chat.Chat{
				RoomID:    rm.ID,
				UserID:    author,
				Chat:      fmt.Sprintf("message %d", i+1),
				CreatedAt: start.Add(time.Duration(i) * time.Minute),
			})
		}
		if len(batch) == 0 {
			continue
		}
		if err := tx.CreateInBatches(batch, 100).Error; err != nil {
			return total, err
		}
		total += len(batch)
	}
	return total, nil
}
