package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"moneytracker/internal/core"
)

type Config struct {
	// HTTP Server
	Port       string
	SessionTTL time.Duration
	// TrustedProxies are CIDRs whose forwarding headers are believed, on
	// top of loopback and private networks.
	TrustedProxies []string

	// Logging
	LogLevel  string
	LogFormat string

	// Workspace
	WorkspaceBackend  string
	NotionToken       string
	NotionAPIURL      string
	NotionVersion     string
	Collections       map[core.RecordKind]string
	PropertyOverrides string

	// Submission
	SubmitTimeout     time.Duration
	SubmitMaxAttempts int
	SubmitBackoff     time.Duration

	// Suggestions
	SuggestionsBackend string
	SQLiteDBPath       string

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

// collectionEnv maps each kind to the variable holding its collection id.
var collectionEnv = map[core.RecordKind]string{
	core.DailyExpense:       "NOTION_DAILY_EXPENSES_DB_ID",
	core.MonthlyOverview:    "NOTION_MONTHLY_DB_ID",
	core.InvestmentEntry:    "NOTION_INVESTMENT_DB_ID",
	core.GenericTransaction: "NOTION_DAILY_DB_ID",
}

func Load() *Config {
	cfg := &Config{
		Port:       getEnv("PORT", "8081"),
		SessionTTL: getEnvDuration("SESSION_TTL", 30*time.Minute),

		TrustedProxies: getEnvList("TRUSTED_PROXIES"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),

		WorkspaceBackend:  getEnv("WORKSPACE_BACKEND", "notion"),
		NotionToken:       getEnv("NOTION_TOKEN", ""),
		NotionAPIURL:      getEnv("NOTION_API_URL", "https://api.notion.com"),
		NotionVersion:     getEnv("NOTION_VERSION", "2022-06-28"),
		Collections:       make(map[core.RecordKind]string, len(collectionEnv)),
		PropertyOverrides: getEnv("NOTION_PROPERTY_OVERRIDES", ""),

		SubmitTimeout:     getEnvDuration("SUBMIT_TIMEOUT", 10*time.Second),
		SubmitMaxAttempts: getEnvInt("SUBMIT_MAX_ATTEMPTS", 3),
		SubmitBackoff:     getEnvDuration("SUBMIT_BACKOFF", 500*time.Millisecond),

		SuggestionsBackend: getEnv("SUGGESTIONS_BACKEND", "memory"),
		SQLiteDBPath:       getEnv("SQLITE_DB_PATH", "./data/moneytracker.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "moneytracker"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "record_events"),
	}

	for kind, key := range collectionEnv {
		cfg.Collections[kind] = strings.TrimSpace(getEnv(key, ""))
	}
	// Older deployments configured a single database for daily expenses.
	if cfg.Collections[core.DailyExpense] == "" {
		cfg.Collections[core.DailyExpense] = strings.TrimSpace(getEnv("NOTION_DATABASE_ID", ""))
	}

	return cfg
}

// Validate validates the configuration and returns an error if invalid.
// Missing collection ids are not errors here: they only disable the affected
// kind, see KindStatus.
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if !oneOf(c.LogLevel, "debug", "info", "warn", "error") {
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of [debug info warn error]", c.LogLevel))
	}
	if !oneOf(c.LogFormat, "text", "json") {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be one of [text json]", c.LogFormat))
	}

	// Validate workspace backend
	switch c.WorkspaceBackend {
	case "notion":
		if parsedURL, err := url.Parse(c.NotionAPIURL); err != nil || parsedURL.Host == "" {
			errors = append(errors, fmt.Sprintf("invalid Notion API URL '%s'", c.NotionAPIURL))
		} else if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
			errors = append(errors, fmt.Sprintf("invalid Notion API URL scheme '%s': must be 'http' or 'https'", parsedURL.Scheme))
		}
		if c.NotionVersion == "" {
			errors = append(errors, "Notion version cannot be empty when using notion backend")
		}
	case "memory":
	default:
		errors = append(errors, fmt.Sprintf("invalid workspace backend '%s': must be one of [notion memory]", c.WorkspaceBackend))
	}

	if _, err := c.Schemas(); err != nil {
		errors = append(errors, err.Error())
	}

	// Validate submission policy
	if c.SubmitTimeout < 100*time.Millisecond {
		errors = append(errors, fmt.Sprintf("invalid submit timeout %v: must be at least 100ms", c.SubmitTimeout))
	} else if c.SubmitTimeout > 2*time.Minute {
		errors = append(errors, fmt.Sprintf("invalid submit timeout %v: must be at most 2 minutes", c.SubmitTimeout))
	}
	if c.SubmitMaxAttempts < 1 {
		errors = append(errors, fmt.Sprintf("invalid submit max attempts %d: must be at least 1", c.SubmitMaxAttempts))
	} else if c.SubmitMaxAttempts > 5 {
		errors = append(errors, fmt.Sprintf("invalid submit max attempts %d: must be at most 5", c.SubmitMaxAttempts))
	}
	if c.SubmitBackoff < 0 {
		errors = append(errors, fmt.Sprintf("invalid submit backoff %v: must not be negative", c.SubmitBackoff))
	}

	for _, cidr := range c.TrustedProxies {
		if _, _, err := net.ParseCIDR(cidr); err != nil {
			errors = append(errors, fmt.Sprintf("invalid trusted proxy '%s': must be a CIDR", cidr))
		}
	}

	if c.SessionTTL < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid session TTL %v: must be at least 1 minute", c.SessionTTL))
	}

	// Validate suggestions backend
	switch c.SuggestionsBackend {
	case "memory":
	case "sqlite":
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite suggestions backend")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	default:
		errors = append(errors, fmt.Sprintf("invalid suggestions backend '%s': must be one of [memory sqlite]", c.SuggestionsBackend))
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// KindStatus reports what a kind is missing before it can submit records.
// It returns nil when the kind is ready.
func (c *Config) KindStatus(kind core.RecordKind) *core.ConfigurationError {
	var missing []string
	if c.WorkspaceBackend != "memory" && c.NotionToken == "" {
		missing = append(missing, "NOTION_TOKEN")
	}
	if c.Collections[kind] == "" {
		key := collectionEnv[kind]
		if key == "" {
			key = "collection id"
		}
		missing = append(missing, key)
	}
	if len(missing) == 0 {
		return nil
	}
	return &core.ConfigurationError{Kind: kind, Missing: missing}
}

// CollectionID returns the collection id configured for a kind.
func (c *Config) CollectionID(kind core.RecordKind) string {
	return c.Collections[kind]
}

// Schemas returns the schema of every kind with property overrides applied.
func (c *Config) Schemas() (map[core.RecordKind]core.Schema, error) {
	schemas := make(map[core.RecordKind]core.Schema, len(core.Kinds()))
	for _, kind := range core.Kinds() {
		s, err := core.DefaultSchema(kind)
		if err != nil {
			return nil, err
		}
		schemas[kind] = s
	}

	overrides, err := ParsePropertyOverrides(c.PropertyOverrides)
	if err != nil {
		return nil, err
	}
	for _, o := range overrides {
		s, err := schemas[o.Kind].WithProperty(o.Field, o.Property)
		if err != nil {
			return nil, fmt.Errorf("invalid property override %s.%s: %w", o.Kind, o.Field, err)
		}
		schemas[o.Kind] = s
	}
	return schemas, nil
}

// PropertyOverride renames the external property of one field.
type PropertyOverride struct {
	Kind     core.RecordKind
	Field    string
	Property string
}

// ParsePropertyOverrides parses "kind.field=Property;kind.field=Property".
// Empty entries are ignored.
func ParsePropertyOverrides(s string) ([]PropertyOverride, error) {
	var out []PropertyOverride
	for _, entry := range strings.Split(s, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		key, property, ok := strings.Cut(entry, "=")
		if !ok {
			return nil, fmt.Errorf("invalid property override '%s': expected kind.field=Property", entry)
		}
		kindName, field, ok := strings.Cut(strings.TrimSpace(key), ".")
		if !ok || field == "" {
			return nil, fmt.Errorf("invalid property override '%s': expected kind.field=Property", entry)
		}
		kind, err := core.ParseKind(kindName)
		if err != nil {
			return nil, fmt.Errorf("invalid property override '%s': %w", entry, err)
		}
		property = strings.TrimSpace(property)
		if property == "" {
			return nil, fmt.Errorf("invalid property override '%s': property name cannot be empty", entry)
		}
		out = append(out, PropertyOverride{Kind: kind, Field: strings.TrimSpace(field), Property: property})
	}
	return out, nil
}

func oneOf(v string, options ...string) bool {
	for _, o := range options {
		if v == o {
			return true
		}
	}
	return false
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvList splits a comma-separated variable, dropping empty items.
func getEnvList(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
