package storage

import (
	"context"
	"time"

	"go.uber.org/zap"

	"Mazraaty/pkg/logger"
	"Mazraaty/storage/database"
	"Mazraaty/storage/mq"
	"Mazraaty/storage/redis"
)

// Close shuts storage down in MQ -> Redis -> Database order: stop taking new
// work first, flush caches, and only then let go of the database so every
// in-flight write can land.
func Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	logger.Logger.Info("Closing storage connections...")

	if err := mq.Close(ctx); err != nil {
		logger.Logger.Error("Failed to close message queue", zap.Error(err))
	} else {
		logger.Logger.Info("Message queue closed successfully")
	}

	if err := redis.Close(ctx); err != nil {
		logger.Logger.Error("Failed to close Redis connection", zap.Error(err))
	} else {
		logger.Logger.Info("Redis connection closed successfully")
	}

	if err := database.Close(ctx); err != nil {
		logger.Logger.Error("Failed to close database connection", zap.Error(err))
	} else {
		logger.Logger.Info("Database connection closed successfully")
	}

	logger.Logger.Info("All storage connections closed")
}
