package service

import (
	"context"
	"time"

	"github.com/kpango/gache"
	"github.com/kpango/glg"
	"github.com/pkg/errors"
)

const (
	// defaultInstanceExpiry is the TTL of a cached per-tenant STS instance.
	defaultInstanceExpiry = 30 * time.Minute

	// defaultClockTolerance absorbs clock drift between client and server.
	defaultClockTolerance = 10 * time.Second
)

// Dispatcher routes a request carrying a tenant name to the cached STS
// instance of that tenant.
type Dispatcher interface {
	Issue(ctx context.Context, tenant string, req *TokenRequest) (*Response, error)
	Renew(ctx context.Context, tenant string, req *TokenRequest) (*Response, error)
	Validate(ctx context.Context, tenant string, req *TokenRequest) (*ValidateResult, error)
	Challenge(ctx context.Context, tenant string, req *TokenRequest) (*Response, error)
}

// DispatcherOption represents the functional option implementation for dispatcher.
type DispatcherOption func(*dispatcher)

// WithInstanceExpiry sets the TTL of cached tenant instances.
func WithInstanceExpiry(d time.Duration) DispatcherOption {
	return func(t *dispatcher) {
		if d > 0 {
			t.expiry = d
		}
	}
}

// WithSessionCacheSize sets the negotiation session cache capacity of new instances.
func WithSessionCacheSize(n int) DispatcherOption {
	return func(t *dispatcher) {
		t.sessionSize = n
	}
}

// WithMaxChallengeRounds sets the challenge round budget of new instances.
func WithMaxChallengeRounds(n int) DispatcherOption {
	return func(t *dispatcher) {
		t.maxRounds = n
	}
}

// WithClockTolerance sets the clock tolerance used for tenants whose factory
// supplies no policy accessor of its own.
func WithClockTolerance(d time.Duration) DispatcherOption {
	return func(t *dispatcher) {
		if d > 0 {
			t.tolerance = d
		}
	}
}

type dispatcher struct {
	factory     InstanceFactory
	instances   gache.Gache
	expiry      time.Duration
	tolerance   time.Duration
	sessionSize int
	maxRounds   int
}

// NewDispatcher returns a Dispatcher that lazily builds and TTL caches one STS
// instance per tenant from the given factory.
func NewDispatcher(factory InstanceFactory, opts ...DispatcherOption) Dispatcher {
	d := &dispatcher{
		factory:   factory,
		instances: gache.New(),
		expiry:    defaultInstanceExpiry,
		tolerance: defaultClockTolerance,
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// instance returns the cached STS instance of the tenant, building a fresh one
// on miss or expiry. Concurrent rebuilds during the replacement window are
// tolerated, each produces an equivalent instance and the last write wins.
func (d *dispatcher) instance(ctx context.Context, tenant string) (STS, error) {
	if v, ok := d.instances.Get(tenant); ok {
		return v.(STS), nil
	}

	collab, err := d.factory.New(ctx, tenant)
	if err != nil {
		return nil, errors.Wrapf(err, "tenant %q", tenant)
	}
	if collab.Config == nil {
		collab.Config = StaticTenantConfig(d.tolerance)
	}
	inst, err := NewSTS(collab, d.sessionSize, d.maxRounds)
	if err != nil {
		return nil, errors.Wrapf(err, "tenant %q", tenant)
	}

	d.instances.SetWithExpire(tenant, inst, d.expiry)
	glg.Infof("built sts instance for tenant %s, expiry %s", tenant, d.expiry)
	return inst, nil
}

func (d *dispatcher) Issue(ctx context.Context, tenant string, req *TokenRequest) (*Response, error) {
	inst, err := d.instance(ctx, tenant)
	if err != nil {
		return nil, err
	}
	return inst.Issue(ctx, req)
}

func (d *dispatcher) Renew(ctx context.Context, tenant string, req *TokenRequest) (*Response, error) {
	inst, err := d.instance(ctx, tenant)
	if err != nil {
		return nil, err
	}
	return inst.Renew(ctx, req)
}

func (d *dispatcher) Validate(ctx context.Context, tenant string, req *TokenRequest) (*ValidateResult, error) {
	inst, err := d.instance(ctx, tenant)
	if err != nil {
		return nil, err
	}
	return inst.Validate(ctx, req)
}

func (d *dispatcher) Challenge(ctx context.Context, tenant string, req *TokenRequest) (*Response, error) {
	inst, err := d.instance(ctx, tenant)
	if err != nil {
		return nil, err
	}
	return inst.Challenge(ctx, req)
}
