// internal/infra/logger/logger.go
package logger

import (
	"io"
	"os"
	"strings"

	"medication_reminder_bot/internal/infra/config"

	"github.com/sirupsen/logrus"
)

// New builds the application logger from configuration.
// Production and staging log JSON; every other environment logs coloured text.
func New(cfg *config.AppConfig) *logrus.Logger {
	return newWithOutput(cfg.LogLevel, cfg.Environment, os.Stdout)
}

func newWithOutput(levelName, environment string, out io.Writer) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(out)

	level, err := logrus.ParseLevel(strings.ToLower(levelName))
	if err != nil {
		log.Warnf("Invalid log level '%s', defaulting to 'info'. Error: %v", levelName, err)
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	env := strings.ToLower(environment)
	if env == "production" || env == "staging" {
		log.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00", // ISO8601
		})
	} else {
		log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
			ForceColors:     true,
		})
	}

	log.Debugf("Logger initialized: level=%s environment=%s", log.GetLevel(), environment)
	return log
}

// Component returns an entry tagged with the component name.
func Component(log *logrus.Logger, name string) *logrus.Entry {
	return log.WithField("component", name)
}
