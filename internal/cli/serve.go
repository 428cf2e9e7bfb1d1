package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"moneytracker/internal/backend"
	"moneytracker/internal/config"
	"moneytracker/internal/core"
	apphttp "moneytracker/internal/http"
	applog "moneytracker/internal/log"
	"moneytracker/internal/services"
)

// shutdownTimeout leaves room for a submission that is still retrying.
const shutdownTimeout = 45 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the web front end",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	LoadEnvFile()
	cfg, err := LoadAndValidateConfig()
	if err != nil {
		return err
	}
	logger := SetupLogger(cfg).WithComponent(applog.ComponentApp)

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return fmt.Errorf("backend configuration: %w", err)
	}
	res, err := backend.NewFactory(logger.Logger).CreateBackend(cmd.Context(), bcfg)
	if err != nil {
		return fmt.Errorf("failed to initialize backend: %w", err)
	}
	defer func() {
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", applog.FieldError, err)
		}
	}()

	forms, err := BuildForms(cfg, res.Backend)
	if err != nil {
		return err
	}
	for _, f := range forms {
		if f.ConfigErr != nil {
			logger.Warn("Record kind disabled", applog.FieldKind, string(f.Schema.Kind), applog.FieldError, f.ConfigErr)
		}
	}

	httpCfg := apphttp.DefaultConfig()
	httpCfg.Addr = ":" + cfg.Port
	httpCfg.SessionTTL = cfg.SessionTTL
	httpCfg.TrustedProxies = cfg.TrustedProxies
	srv, err := apphttp.NewServer(httpCfg, forms, logger)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	ctx, stop := SignalContext(cmd.Context())
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting moneytracker server",
			"port", cfg.Port,
			"workspace", cfg.WorkspaceBackend,
			"suggestions", cfg.SuggestionsBackend)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			_ = srv.Shutdown(context.Background())
			return fmt.Errorf("server error on port %s: %w", cfg.Port, err)
		}
	case <-ctx.Done():
		logger.Info("Shutdown signal received", applog.FieldOperation, applog.OpShutdown)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
	}

	logger.Info("Server stopped gracefully")
	return nil
}

// BuildForms pairs every kind with a submitter, or with its configuration
// error when the kind cannot submit yet.
func BuildForms(cfg *config.Config, b backend.Backend) ([]apphttp.Form, error) {
	schemas, err := cfg.Schemas()
	if err != nil {
		return nil, err
	}

	forms := make([]apphttp.Form, 0, len(schemas))
	for _, kind := range core.Kinds() {
		schema := schemas[kind]
		if cerr := cfg.KindStatus(kind); cerr != nil {
			forms = append(forms, apphttp.Form{Schema: schema, ConfigErr: cerr})
			continue
		}
		forms = append(forms, apphttp.Form{
			Schema:    schema,
			Submitter: services.NewRecordSubmitter(schema, cfg.CollectionID(kind), b.Creator, b.Suggestions, b.Publisher),
		})
	}
	return forms, nil
}
