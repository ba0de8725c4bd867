package anycast

import (
	"context"
	"testing"
	"time"

	"github.com/mpolden/stubdns/internal/routing"
)

type mockHealthChecker struct {
	healthy bool
}

func (m *mockHealthChecker) Healthy(_ context.Context) bool { return m.healthy }

func TestManagerLifecycle(t *testing.T) {
	health := &mockHealthChecker{healthy: true}
	re := &routing.MockRoutingEngine{}
	vm := &routing.MockVIPManager{}

	mgr := NewManager(health, re, vm, "1.1.1.1", "lo", 0, nil)
	ctx := context.Background()

	mgr.TriggerCheck(ctx)
	if !re.Announced {
		t.Error("expected BGP announcement when healthy")
	}
	if !vm.Bound {
		t.Error("expected VIP to be bound when healthy")
	}

	health.healthy = false
	mgr.TriggerCheck(ctx)
	if re.Announced {
		t.Error("expected BGP withdrawal when unhealthy")
	}
	if !vm.Bound {
		t.Error("expected VIP to stay bound even when unhealthy")
	}

	health.healthy = true
	mgr.TriggerCheck(ctx)
	if !re.Announced {
		t.Error("expected BGP re-announcement when healthy again")
	}
}

func TestManagerAnnounceErrors(t *testing.T) {
	health := &mockHealthChecker{healthy: true}
	re := &routing.MockRoutingEngine{}
	vm := &routing.MockVIPManager{}
	mgr := NewManager(health, re, vm, "1.1.1.1", "lo", 0, nil)
	ctx := context.Background()

	vm.FailBind = true
	mgr.announce(ctx)
	if mgr.isAnnounced.Load() {
		t.Error("isAnnounced should be false if bind fails")
	}

	vm.FailBind = false
	re.FailAnnounce = true
	mgr.announce(ctx)
	if mgr.isAnnounced.Load() {
		t.Error("isAnnounced should be false if routing announce fails")
	}

	// Withdrawing when nothing is announced leaves isAnnounced false.
	mgr.withdraw(ctx)
	if mgr.isAnnounced.Load() {
		t.Error("expected isAnnounced to remain false")
	}
}

func TestManagerTriggerCheckIdempotent(t *testing.T) {
	health := &mockHealthChecker{healthy: true}
	re := &routing.MockRoutingEngine{}
	vm := &routing.MockVIPManager{}
	mgr := NewManager(health, re, vm, "1.1.1.1", "lo", 0, nil)
	ctx := context.Background()

	mgr.isAnnounced.Store(true)
	mgr.TriggerCheck(ctx) // already announced and healthy, should stay put
	if !mgr.isAnnounced.Load() {
		t.Error("expected to stay announced")
	}
}

func TestManagerStartRespectsContext(t *testing.T) {
	health := &mockHealthChecker{healthy: true}
	re := &routing.MockRoutingEngine{}
	vm := &routing.MockVIPManager{}
	mgr := NewManager(health, re, vm, "1.1.1.1", "lo", 20*time.Millisecond, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	mgr.Start(ctx)
	if re.Announced {
		t.Error("expected route withdrawn after shutdown")
	}
}
