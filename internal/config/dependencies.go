package config

import (
	"context"
	"database/sql"

	"github.com/go-playground/validator/v10"
	"github.com/go-redis/redis/v8"

	"primetrade/internal/websocket"
)

var (
	// Global dependencies shared across the application, populated from
	// main (and from TestMain in the test suite).
	DB          *sql.DB
	SecretKey   []byte
	Validate    = validator.New()
	Ctx         = context.Background()
	RedisClient *redis.Client

	// EventHub broadcasts task lifecycle events to websocket clients.
	// Nil when the feed is not wired (tests).
	EventHub *websocket.Hub
)
