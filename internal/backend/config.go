package backend

import (
	"fmt"

	"brownies/internal/config"
	"brownies/internal/core"
)

// Config holds what the factory needs to build a backend.
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets specific
	GoogleSpreadsheetID string

	// Registry delete policy (sqlite and memory backends)
	ReferenceDeletePolicy core.DeletePolicy
}

// FromAppConfig converts the application config to backend config.
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}

	return Config{
		Type:                  backendType,
		SQLiteDBPath:          appConfig.SQLiteDBPath,
		AMQPURL:               appConfig.AMQPURL,
		AMQPExchange:          appConfig.AMQPExchange,
		AMQPQueue:             appConfig.AMQPQueue,
		GoogleSpreadsheetID:   appConfig.GoogleSpreadsheetID,
		ReferenceDeletePolicy: appConfig.ReferenceDeletePolicy,
	}, nil
}

// Validate validates the backend configuration.
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	switch c.Type {
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite backend")
		}
		// AMQP is optional
	case SheetsBackend:
		if c.GoogleSpreadsheetID == "" {
			return fmt.Errorf("Google Spreadsheet ID is required for sheets backend")
		}
	case MemoryBackend:
	}

	if c.ReferenceDeletePolicy != "" {
		if err := c.ReferenceDeletePolicy.Validate(); err != nil {
			return fmt.Errorf("delete policy: %w", err)
		}
	}

	return nil
}
