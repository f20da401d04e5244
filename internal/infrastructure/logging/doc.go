// Package logging wraps log/slog for the simulator daemon.
//
// Every component logs through a *Logger handed down from main, usually
// narrowed with a component tag:
//
//	logger := logging.New(cfg.Logging, version)
//	engineLog := logger.With("component", "engine")
//	engineLog.Info("state changed", "from", "idle", "to", "espresso")
//
// Records are JSON by default (text for local development) and always carry
// the service name and build version. The config section:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// Keep payload dumps at debug level: shot samples arrive several times a
// second and will swamp an info-level log.
package logging
