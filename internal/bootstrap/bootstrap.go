// Package bootstrap provides dependency initialization for the AdReel API.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/adreel/adreel-api/internal/config"
	"github.com/adreel/adreel-api/internal/orchestrator"
	"github.com/adreel/adreel-api/internal/provider"
	"github.com/adreel/adreel-api/internal/registry"
	"github.com/adreel/adreel-api/internal/runway"
	"github.com/adreel/adreel-api/internal/storage"
	"github.com/adreel/adreel-api/internal/veo"
)

// Dependencies holds all initialized dependencies for the HTTP server.
type Dependencies struct {
	Orchestrator *orchestrator.Orchestrator
	Provider     provider.Provider
	Registry     *registry.Registry
}

// NewDependencies creates and initializes all dependencies for the
// application. The registry sweep starts immediately and stops when the
// given context ends.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	reg := registry.New(
		registry.WithTTL(cfg.RegistryTTL()),
		registry.WithStallTimeout(cfg.StallTimeout()),
		registry.WithSweepInterval(cfg.SweepInterval()),
		registry.WithLogger(logger),
	)
	reg.Start(ctx)

	prov, err := initProvider(cfg, reg, logger)
	if err != nil {
		reg.Stop()
		return nil, err
	}

	store, err := initStore(cfg, logger)
	if err != nil {
		reg.Stop()
		return nil, err
	}

	orch := orchestrator.New(prov, reg, logger,
		orchestrator.WithPollInterval(cfg.PollInterval()),
		orchestrator.WithMaxPolls(cfg.MaxPolls),
		orchestrator.WithStore(store),
	)

	return &Dependencies{
		Orchestrator: orch,
		Provider:     prov,
		Registry:     reg,
	}, nil
}

// initProvider selects the generation backend from configuration.
// Credentials live only inside the constructed provider instance.
func initProvider(cfg *config.Config, reg *registry.Registry, logger *slog.Logger) (provider.Provider, error) {
	switch cfg.Provider {
	case config.ProviderRunway:
		client, err := runway.NewClient(runway.WithAPIKey(cfg.RunwayAPIKey))
		if err != nil {
			return nil, fmt.Errorf("create runway client: %w", err)
		}
		logger.Info("runway provider configured")
		return provider.NewRunwayAdapter(client, reg), nil

	case config.ProviderVeo:
		client, err := veo.NewClient(veo.WithAPIKey(cfg.VeoAPIKey))
		if err != nil {
			return nil, fmt.Errorf("create veo client: %w", err)
		}
		var opts []provider.VeoOption
		if cfg.VeoModel != "" {
			opts = append(opts, provider.WithVeoModel(cfg.VeoModel))
		}
		logger.Info("veo provider configured",
			slog.String("model", cfg.VeoModel),
		)
		return provider.NewVeoAdapter(client, reg, opts...), nil

	default:
		logger.Info("mock provider configured")
		return provider.NewMock(reg), nil
	}
}

// initStore creates the storage backend based on configuration.
func initStore(cfg *config.Config, logger *slog.Logger) (storage.Store, error) {
	if cfg.S3Enabled() {
		s3Store, err := storage.NewS3Store(storage.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
		})
		if err != nil {
			return nil, fmt.Errorf("create S3 store: %w", err)
		}
		logger.Info("S3 storage configured",
			slog.String("bucket", cfg.S3Bucket),
			slog.String("region", cfg.S3Region),
		)
		return s3Store, nil
	}

	localStore, err := storage.NewLocalStore(cfg.StorageDir)
	if err != nil {
		return nil, fmt.Errorf("create local store: %w", err)
	}
	logger.Info("local storage configured",
		slog.String("dir", localStore.Dir()),
	)
	return localStore, nil
}
