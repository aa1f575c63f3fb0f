// Package logging configures the shared logger for EnvReset
package logging

import (
	"github.com/sirupsen/logrus"
)

// SetupLogging configures the logger every component writes through and
// returns it. Debug switches the level so per-item trace lines show up.
func SetupLogging(debug bool) *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	if debug {
		logger.SetLevel(logrus.DebugLevel)
	} else {
		logger.SetLevel(logrus.InfoLevel)
	}

	return logger
}
