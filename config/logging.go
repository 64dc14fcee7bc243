package config

import (
	"io"
	"os"

	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// SetupLogging applies level, format and the optional rotating file sink to
// the global logrus logger.
func SetupLogging(cfg LogConfig) {
	log.SetLevel(cfg.Level)

	switch cfg.Format {
	case LogFormatJSON:
		log.SetFormatter(&log.JSONFormatter{})
	default:
		log.SetFormatter(&log.TextFormatter{})
	}

	log.SetOutput(logOutput(cfg))
	if cfg.FilePath != "" {
		log.WithField("path", cfg.FilePath).Debug("writing logs to file")
	}
}

func logOutput(cfg LogConfig) io.Writer {
	if cfg.FilePath == "" {
		return os.Stderr
	}
	return io.MultiWriter(os.Stderr, &lumberjack.Logger{
		Filename:   cfg.FilePath,
		MaxSize:    cfg.FileMaxSizeMB,
		MaxBackups: cfg.FileMaxBackups,
		MaxAge:     cfg.FileMaxAgeDays,
		Compress:   true,
	})
}
