package postgres

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/thekoushikdurgas/diary/internal/events"
	"github.com/thekoushikdurgas/diary/internal/model"
	"github.com/thekoushikdurgas/diary/internal/store"
	"github.com/thekoushikdurgas/diary/internal/store/storetest"
)

var (
	containerOnce sync.Once
	containerDSN  string
	containerErr  error
)

// testDSN returns DIARY_POSTGRES_DSN, or starts a throwaway postgres
// container when DIARY_TESTCONTAINERS=1. Otherwise the test is skipped.
func testDSN(t *testing.T) string {
	t.Helper()
	if dsn := os.Getenv("DIARY_POSTGRES_DSN"); dsn != "" {
		return dsn
	}
	if os.Getenv("DIARY_TESTCONTAINERS") != "1" {
		t.Skip("DIARY_POSTGRES_DSN not set and DIARY_TESTCONTAINERS!=1; skipping postgres store integration test")
	}
	containerOnce.Do(func() {
		containerDSN, containerErr = startPostgres(context.Background())
	})
	if containerErr != nil {
		t.Fatalf("postgres container: %v", containerErr)
	}
	return containerDSN
}

func startPostgres(ctx context.Context) (string, error) {
	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "diary",
			"POSTGRES_PASSWORD": "diary",
			"POSTGRES_DB":       "diary",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return "", fmt.Errorf("failed to start container: %w", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to get container host: %w", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		return "", fmt.Errorf("failed to get container port: %w", err)
	}
	return fmt.Sprintf("postgres://diary:diary@%s:%s/diary?sslmode=disable", host, port.Port()), nil
}

func makePGStore(t *testing.T) store.Store {
	t.Helper()
	s, err := New(context.Background(), testDSN(t), zerolog.Nop())
	if err != nil {
		t.Fatalf("postgres open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestPostgresStore_Compliance(t *testing.T) {
	storetest.Run(t, makePGStore)
}

func TestPostgresListener_ForwardsTriggerNotifications(t *testing.T) {
	dsn := testDSN(t)
	s := makePGStore(t)

	broker := events.NewBroker()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go NewListener(dsn, broker, zerolog.Nop()).Run(ctx)

	userID := fmt.Sprintf("listener-%d", time.Now().UnixNano())
	ch, unsubscribe := broker.Subscribe(userID)
	defer unsubscribe()

	// The listener attaches asynchronously; keep writing until a change shows up.
	deadline := time.After(10 * time.Second)
	for {
		if _, err := s.Items().Create(context.Background(), userID, model.NewTextDraft("ping")); err != nil {
			t.Fatalf("create: %v", err)
		}
		select {
		case c := <-ch:
			if c.UserID != userID || c.Op != events.OpInsert {
				t.Fatalf("unexpected change %+v", c)
			}
			return
		case <-time.After(200 * time.Millisecond):
		case <-deadline:
			t.Fatal("no notification received")
		}
	}
}
