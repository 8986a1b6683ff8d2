package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"market-chat/internal/domain/user"
	market_errors "market-chat/pkg/errors"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	return db, mock
}

func TestTranslateError(t *testing.T) {
	assert.NoError(t, translateError(nil))
	assert.ErrorIs(t, translateError(gorm.ErrRecordNotFound), market_errors.ErrNotFound)
	assert.ErrorIs(t, translateError(gorm.ErrDuplicatedKey), market_errors.ErrAlreadyExists)
	assert.ErrorIs(t, translateError(&pgconn.PgError{Code: "23505"}), market_errors.ErrAlreadyExists)
	assert.ErrorIs(t, translateError(&pgconn.PgError{Code: "23503"}), market_errors.ErrNotFound)

	other := errors.New("boom")
	assert.Equal(t, other, translateError(other))
}

func TestNormalizePage(t *testing.T) {
	page, limit := normalizePage(0, 0)
	assert.Equal(t, 1, page)
	assert.Equal(t, 20, limit)

	page, limit = normalizePage(3, 500)
	assert.Equal(t, 3, page)
	assert.Equal(t, 100, limit)
}

func TestGetUserByIDNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users" WHERE id = $1`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email"}))

	_, err := repo.GetUserByID(context.Background(), 42)
	assert.ErrorIs(t, err, market_errors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetUserByEmail(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	rows := sqlmock.NewRows([]string{"id", "name", "email", "password_hash"}).
		AddRow(7, "Mina", "mina@example.com", "hash")
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users" WHERE email = $1`)).
		WillReturnRows(rows)

	u, err := repo.GetUserByEmail(context.Background(), "mina@example.com")
	require.NoError(t, err)
	assert.Equal(t, uint(7), u.ID)
	assert.Equal(t, "Mina", u.Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUserDuplicate(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "users"`)).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	err := repo.Create(context.Background(), &user.User{Name: "Mina", Email: "mina@example.com", PasswordHash: "x"})
	assert.ErrorIs(t, err, market_errors.ErrAlreadyExists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetRoomChatsNewestFirstWithAuthors(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewChatRepository(db)

	now := time.Now()
	chatRows := sqlmock.NewRows([]string{"id", "room_id", "user_id", "chat", "created_at"}).
		AddRow(2, 5, 9, "second", now).
		AddRow(1, 5, 9, "first", now.Add(-time.Minute))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "chats" WHERE room_id = $1 ORDER BY created_at DESC,id DESC`)).
		WillReturnRows(chatRows)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users" WHERE "users"."id" = $1`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(9, "Jun"))

	chats, err := repo.GetRoomChats(context.Background(), 5, 0, 50)
	require.NoError(t, err)
	require.Len(t, chats, 2)
	assert.Equal(t, "second", chats[0].Chat)
	assert.Equal(t, "Jun", chats[1].User.Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetLatestChatEmptyRoom(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewChatRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "chats" WHERE room_id = $1`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.GetLatestChat(context.Background(), 3)
	assert.ErrorIs(t, err, market_errors.ErrNotFound)
}

func TestGetServiceRooms(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRoomRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "rooms" WHERE service_id = $1`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "service_id", "requester_id", "provider_id"}).
			AddRow(1, 4, 10, 11).
			AddRow(2, 4, 10, 12))

	rooms, err := repo.GetServiceRooms(context.Background(), 4)
	require.NoError(t, err)
	require.Len(t, rooms, 2)
	assert.Equal(t, uint(12), rooms[1].ProviderID)
}

func TestDeleteRoomRemovesChatsInTransaction(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRoomRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "chats" WHERE room_id = $1`)).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "rooms" WHERE id = $1`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Delete(context.Background(), 7))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteRoomMissingRollsBack(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRoomRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "chats" WHERE room_id = $1`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "rooms" WHERE id = $1`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.Delete(context.Background(), 7)
	assert.ErrorIs(t, err, market_errors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteServiceCascadesInTransaction(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewServiceRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "chats" WHERE room_id IN (SELECT "id" FROM "rooms" WHERE service_id = $1)`)).
		WillReturnResult(sqlmock.NewResult(0, 4))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "rooms" WHERE service_id = $1`)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "services" WHERE id = $1`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Delete(context.Background(), 4))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteServiceMissingRollsBack(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewServiceRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "chats"`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "rooms"`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "services" WHERE id = $1`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.Delete(context.Background(), 4)
	assert.ErrorIs(t, err, market_errors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteRoomChatFailureRollsBack(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRoomRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "chats" WHERE room_id = $1`)).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	err := repo.Delete(context.Background(), 7)
	assert.EqualError(t, err, "connection reset")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateRoomStatus(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRoomRepository(db)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "rooms" SET "status"=$1`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.UpdateStatus(context.Background(), 3, "ACCEPTED"))

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "rooms" SET "status"=$1`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.UpdateStatus(context.Background(), 4, "ACCEPTED"), market_errors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIsBlockedChecksBothDirections(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "user_blocks" WHERE (blocker_id = $1 AND blocked_id = $2) OR (blocker_id = $3 AND blocked_id = $4)`)).
		WithArgs(1, 2, 2, 1).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	blocked, err := repo.IsBlocked(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.True(t, blocked)
	assert.NoError(t, mock.ExpectationsWereMet())
}
