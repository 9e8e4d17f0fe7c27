// internal/logging/logging.go - Logging setup from configuration
package logging

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
)

// Setup configures the global logger from the logging configuration
// values. The library itself never calls this; only the CLI does.
func Setup(level, format string) error {
	parsed, err := log.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	log.SetLevel(parsed)

	switch format {
	case "json":
		log.SetFormatter(&log.JSONFormatter{})
	case "text", "":
		log.SetFormatter(&log.TextFormatter{})
	default:
		return fmt.Errorf("invalid log format %q: must be text or json", format)
	}

	log.SetOutput(os.Stderr)
	return nil
}
