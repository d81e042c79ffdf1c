package testutil

import (
	"fmt"
	"path/filepath"
	"testing"

	"friendlink/backend/internal/database"
	"friendlink/backend/internal/models"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SetupTestDB opens a SQLite database in a temp dir and runs migrations.
// The pool is limited to one connection so concurrent transactions serialize
// instead of failing with "database is locked".
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "friends.db")
	db, err := database.Open(database.DriverSQLite, path+"?_foreign_keys=on", logger.Silent)
	require.NoError(t, err, "SetupTestDB: Open")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db), "SetupTestDB: Migrate")
	return db
}

// CreateUser inserts a user with a unique nickname derived from name.
func CreateUser(t *testing.T, db *gorm.DB, name string) models.User {
	t.Helper()
	u := models.User{
		Nickname:     name,
		Email:        fmt.Sprintf("%s@example.com", name),
		PasswordHash: "x",
		AvatarURL:    fmt.Sprintf("https://cdn.example.com/%s.png", name),
	}
	require.NoError(t, db.Create(&u).Error)
	return u
}

// Logger returns a development zap logger that is flushed on cleanup.
func Logger(t *testing.T) *zap.Logger {
	t.Helper()
	l, err := zap.NewDevelopment()
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Sync() })
	return l
}
