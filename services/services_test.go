package services

import (
	"fmt"
	"testing"

	"game-duel-system/models"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func testDB(t *testing.T) *gorm.DB {
	return testDBCfg(t, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
}

func testDBCfg(t *testing.T, cfg *gorm.Config) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), cfg)
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}

	// SQLite allows one writer; a single pooled connection keeps concurrent
	// test requests serialized instead of erroring with a busy database.
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(1)
	}

	if err := db.AutoMigrate(
		&models.Player{},
		&models.Game{},
		&models.GameSession{},
		&models.RankingEntry{},
	); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

func makePlayer(t *testing.T, db *gorm.DB, nickname string) *models.Player {
	t.Helper()
	player := &models.Player{
		ID:       uuid.NewString(),
		Token:    uuid.NewString(),
		Nickname: nickname,
	}
	if err := db.Create(player).Error; err != nil {
		t.Fatalf("create player: %v", err)
	}
	return player
}

func makeGame(t *testing.T, db *gorm.DB) *models.Game {
	t.Helper()
	game := &models.Game{
		ID:     uuid.NewString(),
		Slug:   "rock-paper-scissors",
		Name:   "Rock Paper Scissors",
		Active: true,
	}
	if err := db.Create(game).Error; err != nil {
		t.Fatalf("create game: %v", err)
	}
	return game
}

func disabledNotifier() *RelayNotifier {
	return NewRelayNotifier("", "")
}

func reload(t *testing.T, db *gorm.DB, id string) *models.GameSession {
	t.Helper()
	var session models.GameSession
	if err := db.First(&session, "id = ?", id).Error; err != nil {
		t.Fatalf("reload session %s: %v", id, err)
	}
	return &session
}
