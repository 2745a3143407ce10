// Package logging provides structured logging for usbwatch-core.
//
// It wraps Go's standard log/slog package so every component logs
// through the same handler with the same default fields.
//
// # Configuration
//
// Logging is configured via the LoggingConfig in config.yaml:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// # Usage
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	logger.Info("starting service", "port", 8080)
//	logger.Error("backend enumeration failed", "error", err)
//
// Components that accept a narrower Logger interface (the hotplug and
// backend packages) can take the result of With directly:
//
//	hp := hotplug.New(hpCfg)
//	hp.SetLogger(logger.With("component", "hotplug"))
//
// Never log secrets, tokens, or broker credentials.
package logging
