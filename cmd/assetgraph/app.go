package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"assetgraph/internal/config"
	"assetgraph/internal/logging"
	"assetgraph/internal/repository/sqlite"
	"assetgraph/internal/service"
	"assetgraph/internal/validator"
)

// app wires the services a command runs against
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	repo    *sqlite.Repository
	events  *service.EventBus
	meta    *service.MetadataService
	objects *service.ObjectService
}

func openApp(ctx context.Context, opts *rootOptions) (*app, error) {
	cfg, _, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	if opts.dbPath != "" {
		cfg.Database.Path = opts.dbPath
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, err
	}

	repo, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		return nil, err
	}
	logger.Debug("database opened", zap.String("path", cfg.Database.Path))

	events := service.NewEventBus()
	meta, err := service.NewMetadataService(ctx, repo, events, logger, service.Options{
		ScanConcurrency: cfg.Validation.ScanConcurrency,
		MaxScanRetries:  cfg.Validation.MaxScanRetries,
	})
	if err != nil {
		repo.Close()
		return nil, err
	}

	validators := validator.NewRegistry()
	if err := validator.RegisterBuiltins(validators); err != nil {
		repo.Close()
		return nil, fmt.Errorf("failed to register validators: %w", err)
	}

	return &app{
		cfg:     cfg,
		logger:  logger,
		repo:    repo,
		events:  events,
		meta:    meta,
		objects: service.NewObjectService(meta, validators, events, logger),
	}, nil
}

func (a *app) Close() {
	_ = a.logger.Sync()
	if err := a.repo.Close(); err != nil {
		a.logger.Warn("failed to close database", zap.Error(err))
	}
}

// withApp opens the services, runs fn and closes them again
func withApp(ctx context.Context, opts *rootOptions, fn func(a *app) error) error {
	a, err := openApp(ctx, opts)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}
