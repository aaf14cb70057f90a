package database

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/qviuqh/calendar-api/internal/config"
)

func sqliteConfig(t *testing.T) *config.Config {
	cfg := &config.Config{}
	cfg.Database.Type = "sqlite"
	cfg.Database.Path = filepath.Join(t.TempDir(), "data", "test.db")
	return cfg
}

func TestInitSQLite(t *testing.T) {
	db, err := Init(sqliteConfig(t))
	assert.NoError(t, err)
	defer db.Close()

	assert.NoError(t, db.Ping())

	// Migrations ran; the core tables answer queries
	for _, table := range []string{"users", "calendars", "events", "refresh_tokens"} {
		var count int
		err := db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&count)
		assert.NoError(t, err, "table %s should exist", table)
		assert.Equal(t, 0, count)
	}
}

func TestInitRejectsUnknownType(t *testing.T) {
	cfg := &config.Config{}
	cfg.Database.Type = "oracle"

	_, err := Init(cfg)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database type")
}

func TestMigrationsAreIdempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "migrate_test.db")
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	assert.NoError(t, err)
	defer db.Close()

	assert.NoError(t, RunMigrations(db, "sqlite"))
	assert.NoError(t, RunMigrations(db, "sqlite"))

	var applied int
	err = db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&applied)
	assert.NoError(t, err)
	assert.Equal(t, len(GetMigrations("sqlite")), applied)
}

func TestMigrationVersionsAreOrdered(t *testing.T) {
	for _, dbType := range []string{"sqlite", "postgres"} {
		migrations := GetMigrations(dbType)
		assert.NotEmpty(t, migrations)
		for i, m := range migrations {
			assert.Equal(t, i+1, m.Version, "%s migration %q out of order", dbType, m.Description)
			assert.NotEmpty(t, m.SQL)
		}
	}
}

func TestForeignKeysEnforced(t *testing.T) {
	db, err := Init(sqliteConfig(t))
	assert.NoError(t, err)
	defer db.Close()

	// Calendar insert referencing a missing user must be rejected
	_, err = db.Exec(
		"INSERT INTO calendars (id, user_id, name, timezone, created_at) VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)",
		"cal-1", "no-such-user", "Work", "UTC",
	)
	assert.Error(t, err)
}
