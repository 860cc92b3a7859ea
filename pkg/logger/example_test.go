package logger_test

import (
	"errors"

	"github.com/wonny/rsqm/pkg/config"
	"github.com/wonny/rsqm/pkg/logger"
)

// Example_basic demonstrates basic logger usage
func Example_basic() {
	cfg := &config.Config{
		Env:       "development",
		LogLevel:  "info",
		LogFormat: "console",
	}

	// Create logger (SSOT)
	log := logger.New(cfg)

	log.Info("scan started")
	log.Warnf("retry attempt %d of %d", 2, 3)
}

// Example_withFields demonstrates structured logging with fields
func Example_withFields() {
	log := logger.New(&config.Config{Env: "production", LogLevel: "info", LogFormat: "json"})

	log.WithFields(map[string]interface{}{
		"scope":   "100",
		"symbols": 100,
	}).Info("universe resolved")

	log.WithError(errors.New("timeout")).
		WithField("symbol", "TCS.NS").
		Warn("fetch failed, retrying")
}
