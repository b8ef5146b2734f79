package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/kailas-cloud/searchsync/internal/domain"
)

// Factory builds an engine for a driver.
type Factory func(ctx context.Context) (Engine, error)

// Manager resolves driver names to engines. Engines are built on first use
// and wrapped with instrumentation.
type Manager struct {
	mu            sync.Mutex
	factories     map[string]Factory
	engines       map[string]Engine
	defaultDriver string
	logger        *zap.Logger
}

// NewManager creates a manager whose default driver is defaultDriver.
func NewManager(defaultDriver string, logger *zap.Logger) *Manager {
	return &Manager{
		factories:     make(map[string]Factory),
		engines:       make(map[string]Engine),
		defaultDriver: defaultDriver,
		logger:        logger,
	}
}

// Extend registers or replaces a driver. A cached engine for name is dropped.
func (m *Manager) Extend(name string, f Factory) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.factories[name] = f
	delete(m.engines, name)
}

// DefaultDriver returns the configured default driver name.
func (m *Manager) DefaultDriver() string { return m.defaultDriver }

// Drivers returns the registered driver names, sorted.
func (m *Manager) Drivers() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.factories))
	for n := range m.factories {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// Engine returns the engine for name, or the default driver when name is empty.
func (m *Manager) Engine(ctx context.Context, name string) (Engine, error) {
	if name == "" {
		name = m.defaultDriver
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.engines[name]; ok {
		return e, nil
	}
	f, ok := m.factories[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownDriver, name)
	}
	e, err := f(ctx)
	if err != nil {
		return nil, fmt.Errorf("build %s engine: %w", name, err)
	}
	e = NewInstrumented(e, name, m.logger)
	m.engines[name] = e
	m.logger.Info("Search engine ready", zap.String("driver", name))
	return e, nil
}

// Default returns the default driver's engine.
func (m *Manager) Default(ctx context.Context) (Engine, error) {
	return m.Engine(ctx, "")
}

// Close closes every built engine whose backend holds resources.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	for name, e := range m.engines {
		if in, ok := e.(*Instrumented); ok {
			e = in.Unwrap()
		}
		if c, ok := e.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close %s engine: %w", name, err))
			}
		}
		delete(m.engines, name)
	}
	return errors.Join(errs...)
}
