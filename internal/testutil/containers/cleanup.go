//go:build integration

package containers

import (
	"fmt"
	"sync"
	"testing"
)

// CleanupManager manages cleanup of test resources. Resources are cleaned up
// in LIFO order (last added, first cleaned).
type CleanupManager struct {
	mu       sync.Mutex
	cleanups []cleanupFunc
}

type cleanupFunc struct {
	name string
	fn   func() error
}

// NewCleanupManager creates an empty CleanupManager.
func NewCleanupManager() *CleanupManager {
	return &CleanupManager{}
}

// Add registers a cleanup function to be executed later.
func (cm *CleanupManager) Add(name string, fn func() error) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.cleanups = append(cm.cleanups, cleanupFunc{name: name, fn: fn})
}

// Cleanup executes all registered cleanup functions in LIFO order. It keeps
// going when individual cleanups fail and returns all errors. The functions
// run without the lock held so a cleanup may call Add without deadlocking.
func (cm *CleanupManager) Cleanup() []error {
	cm.mu.Lock()
	cleanups := cm.cleanups
	cm.cleanups = nil
	cm.mu.Unlock()

	var errs []error
	for i := len(cleanups) - 1; i >= 0; i-- {
		if err := cleanups[i].fn(); err != nil {
			errs = append(errs, fmt.Errorf("%s cleanup failed: %w", cleanups[i].name, err))
		}
	}
	return errs
}

// RegisterTestCleanup hooks Cleanup into t.Cleanup so resources are released
// even when a test panics.
func (cm *CleanupManager) RegisterTestCleanup(t *testing.T) {
	t.Helper()
	t.Cleanup(func() {
		for _, err := range cm.Cleanup() {
			t.Errorf("Cleanup error: %v", err)
		}
	})
}
