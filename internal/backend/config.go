package backend

import (
	"fmt"

	"moneytracker/internal/config"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	cfg := Config{
		Workspace:   WorkspaceType(appConfig.WorkspaceBackend),
		Suggestions: SuggestionsType(appConfig.SuggestionsBackend),

		NotionToken:       appConfig.NotionToken,
		NotionAPIURL:      appConfig.NotionAPIURL,
		NotionVersion:     appConfig.NotionVersion,
		SubmitTimeout:     appConfig.SubmitTimeout,
		SubmitMaxAttempts: appConfig.SubmitMaxAttempts,
		SubmitBackoff:     appConfig.SubmitBackoff,

		SQLiteDBPath: appConfig.SQLiteDBPath,

		AMQPURL:      appConfig.AMQPURL,
		AMQPExchange: appConfig.AMQPExchange,
		AMQPQueue:    appConfig.AMQPQueue,
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate validates the backend configuration. A missing Notion token is
// not an error: every kind then reports a configuration error instead.
func (c Config) Validate() error {
	if !c.Workspace.IsValid() {
		return fmt.Errorf("invalid workspace backend: %s", c.Workspace)
	}
	if !c.Suggestions.IsValid() {
		return fmt.Errorf("invalid suggestions backend: %s", c.Suggestions)
	}
	if c.Suggestions == SQLiteSuggestions && c.SQLiteDBPath == "" {
		return fmt.Errorf("SQLite database path is required for sqlite suggestions")
	}
	return nil
}
