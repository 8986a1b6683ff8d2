package repository

import (
	"fmt"

	"market-chat/internal/domain/chat"
	"market-chat/internal/domain/room"
	"market-chat/internal/domain/service"
	"market-chat/internal/domain/user"

	"gorm.io/gorm"
)

// Models lists every table in dependency order.
func Models() []interface{} {
	return []interface{}{
		&user.User{},
		&user.UserSession{},
		&user.UserBlock{},
		&service.Service{},
		&room.Room{},
		&chat.Chat{},
	}
}

// InitSchema runs the gorm auto-migration and installs the constraints and
// triggers gorm tags cannot express.
func InitSchema(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto-migration failed: %w", err)
	}

	constraints := []string{
		`DO $$ BEGIN
			ALTER TABLE services ADD CONSTRAINT chk_services_method CHECK (method IN ('REMOTE', 'VISIT'));
		EXCEPTION
			WHEN duplicate_object THEN null;
		END $$;`,
		`DO $$ BEGIN
			ALTER TABLE services ADD CONSTRAINT chk_services_status CHECK (status IN ('OPEN', 'COMPLETED'));
		EXCEPTION
			WHEN duplicate_object THEN null;
		END $$;`,
		`DO $$ BEGIN
			ALTER TABLE rooms ADD CONSTRAINT chk_rooms_distinct_members CHECK (requester_id <> provider_id);
		EXCEPTION
			WHEN duplicate_object THEN null;
		END $$;`,
		`DO $$ BEGIN
			ALTER TABLE rooms ADD CONSTRAINT chk_rooms_status CHECK (status IN ('PENDING', 'ACCEPTED'));
		EXCEPTION
			WHEN duplicate_object THEN null;
		END $$;`,
		`DO $$ BEGIN
			ALTER TABLE user_blocks ADD CONSTRAINT chk_user_blocks_distinct CHECK (blocker_id <> blocked_id);
		EXCEPTION
			WHEN duplicate_object THEN null;
		END $$;`,
	}
	for _, stmt := range constraints {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("failed to create constraint: %w", err)
		}
	}

	// Rooms sort by last activity, so a new chat bumps its room.
	fnTouchRoom := `
	CREATE OR REPLACE FUNCTION fn_touch_room_on_chat()
	RETURNS trigger LANGUAGE plpgsql AS $$
	BEGIN
		UPDATE rooms SET updated_at = NEW.created_at WHERE id = NEW.room_id;
		RETURN NEW;
	END;
	$$;`
	if err := db.Exec(fnTouchRoom).Error; err != nil {
		return fmt.Errorf("failed to create function fn_touch_room_on_chat: %w", err)
	}

	triggerSQL := `
	DROP TRIGGER IF EXISTS tr_chats_touch_room ON chats;
	CREATE TRIGGER tr_chats_touch_room
	AFTER INSERT ON chats
	FOR EACH ROW
	EXECUTE PROCEDURE fn_touch_room_on_chat();`
	if err := db.Exec(triggerSQL).Error; err != nil {
		return fmt.Errorf("failed to create trigger tr_chats_touch_room: %w", err)
	}

	return nil
}
