package sms

import (
	"sync"

	"go.uber.org/zap"

	"Mazraaty/config"
	"Mazraaty/pkg/logger"
	"Mazraaty/pkg/provider"
)

var (
	adapter provider.Adapter
	once    sync.Once
)

// Init picks the SMS backend. Without a sign name there is nothing the real
// provider could send, so development environments fall back to the mock.
func Init() provider.Adapter {
	once.Do(func() {
		cfg := config.Cfg

		if cfg.SMSProvider != "aliyun" || cfg.SMSSignName == "" {
			logger.Logger.Warn("SMS adapter running in mock mode")
			adapter = NewMockAdapter()
			return
		}

		aliyun, err := NewAliyunAdapter()
		if err != nil {
			logger.Logger.Error("Failed to init Aliyun SMS client, falling back to mock",
				zap.Error(err),
			)
			adapter = NewMockAdapter()
			return
		}
		adapter = aliyun
	})

	return adapter
}
