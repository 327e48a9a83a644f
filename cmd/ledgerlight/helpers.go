package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/viper"

	"github.com/ledgerlight/ledgerlight/internal/common"
	appconfig "github.com/ledgerlight/ledgerlight/internal/config"
	"github.com/ledgerlight/ledgerlight/internal/engine"
	"github.com/ledgerlight/ledgerlight/internal/llm"
	"github.com/ledgerlight/ledgerlight/internal/storage"
)

// loadConfig resolves and validates the full application configuration.
func loadConfig() (*appconfig.Config, error) {
	cfg := appconfig.Load(viper.GetViper())
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// initStorage opens the SQLite database and runs migrations.
func initStorage(ctx context.Context, cfg *appconfig.Config) (storage.Storage, error) {
	store, err := storage.NewSQLiteStorage(cfg.DatabasePath)
	if err != nil {
		return nil, common.NewUserError(
			fmt.Sprintf("could not open the expense database at %s", cfg.DatabasePath), err)
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, common.NewUserError("the expense database schema could not be updated", err)
	}
	return store, nil
}

// initEngine builds the full classification stack. The caller owns both
// returned Close handles.
func initEngine(cfg *appconfig.Config, store storage.Storage) (*engine.Engine, *llm.Classifier, error) {
	classifier, err := llm.NewClassifier(cfg.LLM(), slog.Default())
	if err != nil {
		return nil, nil, err
	}

	eng, err := engine.New(engine.Config{
		Classifier:      classifier,
		Storage:         store,
		Thresholds:      cfg.Thresholds(),
		Retry:           cfg.Retry(),
		SessionTTL:      cfg.SessionTTL,
		SessionSweep:    cfg.SessionSweep,
		DefaultCurrency: cfg.Currency(),
		Logger:          slog.Default(),
	})
	if err != nil {
		_ = classifier.Close()
		return nil, nil, err
	}
	return eng, classifier, nil
}
