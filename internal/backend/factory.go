package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"moneytracker/internal/amqp"
	"moneytracker/internal/core"
	applog "moneytracker/internal/log"
	"moneytracker/internal/storage"
	"moneytracker/internal/workspace"
	"moneytracker/internal/workspace/memory"
	"moneytracker/internal/workspace/notion"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger.With(applog.FieldComponent, applog.ComponentBackend),
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		result  BackendResult
		closers []func() error
	)

	creator, err := f.createWorkspace(config)
	if err != nil {
		return nil, err
	}
	result.Backend.Creator = creator

	switch config.Suggestions {
	case SQLiteSuggestions:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite suggestions: %w", err)
		}
		result.Backend.Suggestions = repo
		closers = append(closers, repo.Close)
		f.logger.Info("Initialized SQLite suggestions", "db_path", config.SQLiteDBPath)
	default:
		result.Backend.Suggestions = memory.NewSuggestions()
		f.logger.Info("Initialized memory suggestions")
	}

	// Record events are optional
	if config.AMQPURL != "" {
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without record events", "error", err)
		} else {
			result.Backend.Publisher = client
			closers = append(closers, client.Close)
			f.logger.Info("Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}

	result.Cleanup = func() error {
		var errs []error
		for _, c := range closers {
			if err := c(); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}

	return &result, nil
}

func (f *DefaultFactory) createWorkspace(config Config) (workspace.RecordCreator, error) {
	switch config.Workspace {
	case MemoryWorkspace:
		f.logger.Info("Initialized memory workspace")
		return memory.NewWorkspace(), nil
	case NotionWorkspace:
		if config.NotionToken == "" {
			f.logger.Warn("NOTION_TOKEN is not set, every record kind is disabled")
			return unconfigured{}, nil
		}
		client, err := notion.New(notion.Config{
			BaseURL:     config.NotionAPIURL,
			Token:       config.NotionToken,
			Version:     config.NotionVersion,
			Timeout:     config.SubmitTimeout,
			MaxAttempts: config.SubmitMaxAttempts,
			Backoff:     config.SubmitBackoff,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Notion client: %w", err)
		}
		f.logger.Info("Initialized Notion workspace",
			"api_url", config.NotionAPIURL,
			"version", config.NotionVersion,
			"max_attempts", config.SubmitMaxAttempts)
		return client, nil
	default:
		return nil, fmt.Errorf("unsupported workspace backend: %s", config.Workspace)
	}
}

// unconfigured stands in for the Notion client when no token is set. Pages
// check the kind status first, so it is only reached through misuse.
type unconfigured struct{}

func (unconfigured) CreateRecord(context.Context, string, workspace.Properties) core.SubmissionResult {
	return core.SubmissionResult{Detail: "workspace is not configured: missing NOTION_TOKEN"}
}
