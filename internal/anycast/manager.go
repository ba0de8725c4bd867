// Package anycast continuously advertises or withdraws a resolver's VIP over
// BGP based on the health of the resolver it guards.
package anycast

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/mpolden/stubdns/internal/metrics"
	"github.com/mpolden/stubdns/internal/routing"
)

// HealthChecker reports whether the local resolver is fit to serve traffic.
// A resolver that can't resolve through its upstream or root hints should
// report unhealthy so its VIP announcement is withdrawn.
type HealthChecker interface {
	Healthy(ctx context.Context) bool
}

// Manager binds a VIP to a local interface and announces it via BGP while the
// resolver is healthy, withdrawing the announcement when it isn't. The VIP
// stays bound to the interface after a withdrawal.
type Manager struct {
	health     HealthChecker
	routing    routing.RoutingEngine
	vipManager routing.VIPManager
	vip        string
	iface      string
	interval   time.Duration
	logger     *slog.Logger

	isAnnounced atomic.Bool
	vipBound    atomic.Bool
}

// NewManager initializes a Manager. A zero interval defaults to 10s.
func NewManager(health HealthChecker, re routing.RoutingEngine, vm routing.VIPManager, vip, iface string, interval time.Duration, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &Manager{
		health:     health,
		routing:    re,
		vipManager: vm,
		vip:        vip,
		iface:      iface,
		interval:   interval,
		logger:     logger,
	}
}

// Start runs the health-check loop until ctx is canceled, withdrawing the
// route on shutdown.
func (m *Manager) Start(ctx context.Context) {
	m.logger.Info("starting anycast manager", "vip", m.vip, "iface", m.iface)

	m.TriggerCheck(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("shutting down anycast manager, withdrawing route")
			if err := m.routing.Withdraw(context.Background(), m.vip); err != nil {
				m.logger.Error("failed to withdraw BGP on shutdown", "error", err, "vip", m.vip)
			}
			return
		case <-ticker.C:
			m.TriggerCheck(ctx)
		}
	}
}

// TriggerCheck runs an immediate health check and updates announcement state.
func (m *Manager) TriggerCheck(ctx context.Context) {
	healthy := m.health.Healthy(ctx)

	announced := m.isAnnounced.Load()
	if healthy && !announced {
		m.announce(ctx)
	} else if !healthy && announced {
		m.withdraw(ctx)
	}
}

func (m *Manager) announce(ctx context.Context) {
	m.logger.Info("node healthy, initiating anycast announcement")

	if !m.vipBound.Load() {
		if err := m.vipManager.Bind(ctx, m.vip, m.iface); err != nil {
			m.logger.Error("failed to bind VIP", "error", err)
			return
		}
		m.vipBound.Store(true)
	}

	if err := m.routing.Announce(ctx, m.vip); err != nil {
		m.logger.Error("failed to announce BGP", "error", err)
		return
	}

	m.isAnnounced.Store(true)
	metrics.BGPAnnounced.Set(1)
}

func (m *Manager) withdraw(ctx context.Context) {
	m.logger.Warn("node unhealthy, withdrawing anycast announcement")

	if err := m.routing.Withdraw(ctx, m.vip); err != nil {
		m.logger.Error("failed to withdraw BGP", "error", err)
		return
	}

	m.isAnnounced.Store(false)
	metrics.BGPAnnounced.Set(0)
	// VIP stays bound to the interface for local connectivity checks.
}
