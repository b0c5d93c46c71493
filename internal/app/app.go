package app

import (
	"context"
	"fmt"
	"net/http"

	"batchattest/internal/config"
	"batchattest/internal/domain"
	"batchattest/internal/infra/anchor"
	"batchattest/internal/infra/anchor/httpstore"
	"batchattest/internal/infra/anchor/memstore"
	"batchattest/internal/infra/anchor/redisstore"
	"batchattest/internal/infra/codec"
	"batchattest/internal/infra/db"
	"batchattest/internal/infra/policyopa"
	"batchattest/internal/usecase"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Components is the wired object graph shared by the binaries.
type Components struct {
	Anchor            *anchor.Service
	Policy            domain.AdmissionPolicy
	SealBatch         *usecase.SealBatch
	AnchorAttestation *usecase.AnchorAttestation
	VerifyRecord      *usecase.VerifyRecord

	closers []func() error
}

func Build(ctx context.Context, cfg config.Config, logger *zap.Logger) (*Components, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Components{}

	store, err := db.NewStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	c.closers = append(c.closers, store.Close)

	backend, err := c.backend(cfg, store)
	if err != nil {
		_ = c.Close()
		return nil, err
	}

	opts := []anchor.Option{
		anchor.WithTimeout(cfg.AnchorTimeout()),
		anchor.WithLogger(logger.Named("anchor")),
	}
	if store.DB != nil {
		opts = append(opts, anchor.WithAttempts(db.NewAnchorAttemptRepository(store.DB)))
	}
	svc, err := anchor.NewService(backend, opts...)
	if err != nil {
		_ = c.Close()
		return nil, err
	}
	c.Anchor = svc

	if cfg.PolicyEnabled {
		var engine *policyopa.Engine
		if cfg.PolicyBundlePath != "" {
			engine, err = policyopa.NewEngineFromBundlePath(ctx, cfg.PolicyBundlePath, "custom")
		} else {
			engine, err = policyopa.NewDefaultEngine(ctx)
		}
		if err != nil {
			_ = c.Close()
			return nil, fmt.Errorf("load admission policy: %w", err)
		}
		c.Policy = engine
		logger.Info("admission policy loaded",
			zap.String("bundle_id", engine.BundleID()),
			zap.String("bundle_hash", engine.BundleHash()))
	}

	c.SealBatch = &usecase.SealBatch{
		Policy:  c.Policy,
		Limits:  domain.AdmissionLimits{MaxRecords: cfg.PolicyMaxRecords},
		Workers: cfg.BuildWorkers,
		Logger:  logger.Named("seal"),
	}
	c.AnchorAttestation = &usecase.AnchorAttestation{Anchor: svc, Logger: logger.Named("anchor")}
	c.VerifyRecord = &usecase.VerifyRecord{Anchor: svc, Logger: logger.Named("verify")}

	logger.Info("components ready",
		zap.String("anchor_backend", svc.Backend()),
		zap.Duration("anchor_timeout", cfg.AnchorTimeout()),
		zap.Bool("policy_enabled", cfg.PolicyEnabled))
	return c, nil
}

func (c *Components) backend(cfg config.Config, store *db.Store) (anchor.Backend, error) {
	format, err := codec.ParseFormat(cfg.AnchorWireFormat)
	if err != nil {
		return nil, err
	}
	switch cfg.AnchorBackend {
	case "", config.BackendMemory:
		return memstore.New(), nil
	case config.BackendRedis:
		rs, err := redisstore.New(redisstore.Options{
			Addr:      cfg.RedisAddr,
			Password:  cfg.RedisPassword,
			DB:        cfg.RedisDB,
			KeyPrefix: cfg.RedisKeyPrefix,
			Format:    format,
		})
		if err != nil {
			return nil, err
		}
		c.closers = append(c.closers, rs.Close)
		return rs, nil
	case config.BackendPostgres:
		if store.DB == nil {
			return nil, fmt.Errorf("anchor backend %q requires POSTGRES_DSN", cfg.AnchorBackend)
		}
		return db.NewAttestationRepository(store.DB), nil
	case config.BackendHTTP:
		return httpstore.NewClient(cfg.AnchorGatewayURL, format, &http.Client{Timeout: cfg.AnchorTimeout()})
	default:
		return nil, fmt.Errorf("unknown anchor backend %q", cfg.AnchorBackend)
	}
}

func (c *Components) Close() error {
	if c == nil {
		return nil
	}
	var err error
	for i := len(c.closers) - 1; i >= 0; i-- {
		err = multierr.Append(err, c.closers[i]())
	}
	c.closers = nil
	return err
}
