package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"market-chat/config"
	"market-chat/internal/repository"
	"market-chat/pkg/database"
)

const usage = `
Market Chat - Database CLI Tool

Usage:
  migrate [command] [flags]

Commands:
  up          Run raw SQL migrations (if any) and the GORM schema
  status      Show database connection status and table counts
  seed-dev    Seed with development/test data
  truncate    Truncate all tables (DANGEROUS)

Flags:
  -migrations string   Path to raw SQL migrations directory (default "migrations")
  -users int           Number of users for seed-dev (default 4)
  -chats int           Chats per room for seed-dev (default 30)

Examples:
  go run cmd/migrate/main.go up
  go run cmd/migrate/main.go seed-dev -chats 120
`

func main() {
	migrationsDir := flag.String("migrations", "migrations", "Path to raw SQL migrations directory")
	users := flag.Int("users", 4, "Number of users for seed-dev")
	chats := flag.Int("chats", 30, "Chats per room for seed-dev")

	flag.Usage = func() {
		fmt.Print(usage)
	}
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(1)
	}

	command := flag.Arg(0)

	cfg := config.LoadConfig()
	database.Connect(cfg)
	defer database.Close()

	switch command {
	case "up":
		runMigrationsUp(*migrationsDir)
	case "status":
		showStatus()
	case "seed-dev":
		runSeedDevelopment(*users, *chats)
	case "truncate":
		runTruncate()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		flag.Usage()
		os.Exit(1)
	}
}

func runMigrationsUp(migrationsDir string) {
	log.Println("Running migrations UP...")

	if _, err := os.Stat(migrationsDir); err == nil {
		if err := database.ApplyRawMigrations(migrationsDir); err != nil {
			log.Fatalf("Raw migration failed: %v", err)
		}
	} else {
		log.Printf("No %s directory, skipping raw SQL", migrationsDir)
	}

	if err := repository.InitSchema(database.DB); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	log.Println("Migrations completed successfully!")
}

func showStatus() {
	log.Println("Checking database status...")

	if err := database.HealthCheck(context.Background()); err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}
	log.Println("Database connection: OK")

	tables := []string{"users", "user_sessions", "user_blocks", "services", "rooms", "chats"}
	for _, table := range tables {
		if !database.DB.Migrator().HasTable(table) {
			log.Printf("Table %-15s does not exist", table)
			continue
		}
		var count int64
		database.DB.Table(table).Count(&count)
		log.Printf("Table %-15s exists (%d rows)", table, count)
	}
}

func runSeedDevelopment(users, chats int) {
	log.Println("Seeding database (development mode)...")

	seedCfg := database.DefaultSeedConfig()
	seedCfg.UserCount = users
	seedCfg.ChatsPerRoom = chats

	result, err := database.SeedDevelopment(context.Background(), database.DB, seedCfg)
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.Println("Seed Summary:")
	log.Printf("   - Users: %d (password %s)", len(result.Users), seedCfg.Password)
	log.Printf("   - Services: %d", len(result.Services))
	log.Printf("   - Rooms: %d", len(result.Rooms))
	log.Printf("   - Chats: %d", result.Chats)
	log.Println("Development seeding completed!")
}

func runTruncate() {
	log.Println("WARNING: This will TRUNCATE all tables!")

	if err := database.DB.Exec("TRUNCATE TABLE chats, rooms, services, user_blocks, user_sessions, users RESTART IDENTITY CASCADE").Error; err != nil {
		log.Fatalf("Truncate failed: %v", err)
	}

	log.Println("All tables truncated!")
}
