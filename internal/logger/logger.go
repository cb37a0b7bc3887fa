// Package logger configures the process-wide logrus logger used
// throughout this module, following the teacher repo's convention of a
// single package-level logrus instance configured once at startup and
// used via its package-level functions everywhere else.
package logger

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
)

// InitLogger sets the global logrus level and formatter. level is one of
// the config.LogLevel* strings.
func InitLogger(level string) error {
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	logrus.SetLevel(parsed)
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	logrus.SetOutput(os.Stdout)
	return nil
}
