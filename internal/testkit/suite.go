package testkit

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
)

// Suite manages the lifecycle of test infrastructure (Redis and Mailpit containers).
type Suite struct {
	mu      sync.Mutex
	cfg     Config
	redis   *RedisModule
	mailpit *MailpitModule
	ready   bool
}

var (
	globalSuite *Suite
	globalOnce  sync.Once
)

// Global returns the singleton Suite instance.
func Global() *Suite {
	globalOnce.Do(func() {
		globalSuite = &Suite{cfg: LoadConfig()}
	})
	return globalSuite
}

// Setup starts all required containers (or uses external overrides).
// Returns an error if called twice without Shutdown in between.
func (s *Suite) Setup(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ready {
		return fmt.Errorf("suite already set up; call Shutdown first")
	}

	rdb, err := StartRedis(ctx, &s.cfg)
	if err != nil {
		return fmt.Errorf("setup redis: %w", err)
	}
	s.redis = rdb

	mp, err := StartMailpit(ctx, &s.cfg)
	if err != nil {
		// Clean up Redis if Mailpit fails.
		if !s.cfg.KeepContainers {
			_ = rdb.Terminate(ctx)
		}
		return fmt.Errorf("setup mailpit: %w", err)
	}
	s.mailpit = mp
	s.ready = true

	return nil
}

// Shutdown terminates all containers unless KEEP_CONTAINERS is set.
func (s *Suite) Shutdown(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.ready {
		return
	}

	if s.cfg.KeepContainers {
		fmt.Println("KEEP_CONTAINERS=true, skipping container cleanup")
		if s.redis != nil {
			fmt.Println("  Redis Addr:", s.redis.Addr())
		}
		if s.mailpit != nil {
			fmt.Println("  Mailpit API:", s.mailpit.APIURL())
		}
		s.ready = false
		return
	}

	if s.mailpit != nil {
		if err := s.mailpit.Terminate(ctx); err != nil {
			fmt.Println("warning: failed to terminate mailpit container:", err)
		}
	}
	if s.redis != nil {
		if err := s.redis.Terminate(ctx); err != nil {
			fmt.Println("warning: failed to terminate redis container:", err)
		}
	}
	s.ready = false
}

// Redis returns the running Redis module, or nil before Setup.
func (s *Suite) Redis() *RedisModule {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.redis
}

// Mailpit returns the running Mailpit module, or nil before Setup.
func (s *Suite) Mailpit() *MailpitModule {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mailpit
}

// Run sets up the suite, calls optional afterSetup callbacks (e.g. for
// connecting clients), executes tests, then shuts down. Intended for use in TestMain.
func (s *Suite) Run(m *testing.M, afterSetup ...func() error) {
	ctx := context.Background()

	if err := s.Setup(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "integration test setup failed: %v\n", err)
		os.Exit(1)
	}

	for _, fn := range afterSetup {
		if err := fn(); err != nil {
			fmt.Fprintf(os.Stderr, "afterSetup callback failed: %v\n", err)
			s.Shutdown(ctx)
			os.Exit(1)
		}
	}

	code := m.Run()

	s.Shutdown(ctx)
	os.Exit(code)
}

// Run is a package-level convenience that delegates to Global().Run.
// For a custom Suite instance, call the method directly: suite.Run(m, ...).
func Run(m *testing.M, afterSetup ...func() error) {
	Global().Run(m, afterSetup...)
}
