package usecase

import (
	"context"
	"time"

	"github.com/kpango/glg"
	"github.com/pkg/errors"
	"github.com/soteria-id/stsd/config"
	"github.com/soteria-id/stsd/handler"
	"github.com/soteria-id/stsd/router"
	"github.com/soteria-id/stsd/service"
)

// STSDaemon represents the security token service daemon behavior.
type STSDaemon interface {
	Start(ctx context.Context) chan []error
}

type stsd struct {
	cfg        config.Config
	dispatcher service.Dispatcher
	server     service.Server
}

// New returns an STS daemon wired from the given configuration and the host
// supplied per-tenant collaborator factory, or any error occurred.
func New(cfg config.Config, factory service.InstanceFactory) (STSDaemon, error) {
	if factory == nil {
		return nil, errors.New("instance factory is required")
	}

	opts := make([]service.DispatcherOption, 0, 4)
	if cfg.STS.ClockTolerance != "" {
		dur, err := time.ParseDuration(cfg.STS.ClockTolerance)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid clock tolerance %s", cfg.STS.ClockTolerance)
		}
		opts = append(opts, service.WithClockTolerance(dur))
	}
	if cfg.STS.InstanceExpiry != "" {
		dur, err := time.ParseDuration(cfg.STS.InstanceExpiry)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid instance expiry %s", cfg.STS.InstanceExpiry)
		}
		opts = append(opts, service.WithInstanceExpiry(dur))
	}
	if cfg.STS.SessionCacheSize > 0 {
		opts = append(opts, service.WithSessionCacheSize(cfg.STS.SessionCacheSize))
	}
	if cfg.STS.MaxChallengeRounds > 0 {
		opts = append(opts, service.WithMaxChallengeRounds(cfg.STS.MaxChallengeRounds))
	}

	dispatcher := service.NewInstrumentedDispatcher(service.NewDispatcher(factory, opts...))
	glg.Info("sts dispatcher created")

	h := handler.New(dispatcher)
	serveMux := router.New(cfg.Server, h)
	srv := service.NewServer(
		service.WithServerConfig(cfg.Server),
		service.WithServerHandler(serveMux),
	)

	return &stsd{
		cfg:        cfg,
		dispatcher: dispatcher,
		server:     srv,
	}, nil
}

// Start returns an error slice channel carrying the errors returned by the STS server.
func (s *stsd) Start(ctx context.Context) chan []error {
	return s.server.ListenAndServe(ctx)
}
