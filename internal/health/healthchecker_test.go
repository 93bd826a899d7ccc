package health

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type fakeChecker struct {
	name string
	up   atomic.Bool
}

func (f *fakeChecker) Name() string                         { return f.name }
func (f *fakeChecker) IsHealthy() bool                      { return f.up.Load() }
func (f *fakeChecker) Start(context.Context, time.Duration) {}

type fakePinger struct{ fail atomic.Bool }

func (p *fakePinger) HealthPing(context.Context) error {
	if p.fail.Load() {
		return errors.New("down")
	}
	return nil
}

func TestServiceHealthChecker_Transitions(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a := &fakeChecker{name: "a"}
	b := &fakeChecker{name: "b"}
	a.up.Store(true)
	b.up.Store(true)

	svc := NewServiceHealthChecker(zerolog.Nop(), a, b)
	go svc.Start(ctx, 10*time.Millisecond)

	waitTrue(t, func() bool { return svc.IsHealthy() })

	b.up.Store(false)
	waitTrue(t, func() bool { return !svc.IsHealthy() })
	if down := svc.Unhealthy(); len(down) != 1 || down[0] != "b" {
		t.Fatalf("unexpected down list %v", down)
	}

	b.up.Store(true)
	waitTrue(t, func() bool { return svc.IsHealthy() })
}

func TestPingChecker(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := &fakePinger{}
	c := NewPingChecker("ai", p, zerolog.Nop(), 50*time.Millisecond)
	go c.Start(ctx, 10*time.Millisecond)

	waitTrue(t, c.IsHealthy)
	p.fail.Store(true)
	waitTrue(t, func() bool { return !c.IsHealthy() })
}

func waitTrue(t *testing.T, pred func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if pred() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met before timeout")
}
