package middleware

import (
	"go.uber.org/zap"

	"Mazraaty/pkg/logger"
)

// Init wires the middlewares that need process-level state.
func Init() error {
	if err := initAuthMiddleware(); err != nil {
		logger.Logger.Error("Failed to initialize auth middleware", zap.Error(err))
		return err
	}

	logger.Logger.Info("All middlewares initialized successfully")
	return nil
}
