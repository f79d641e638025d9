// ABOUTME: Test utilities for creating isolated charm clients
// ABOUTME: Uses temporary directories with a local BadgerDB for test isolation

package charm

import (
	"path/filepath"
	"testing"
)

// NewTestClient creates a local client in a temporary directory.
// The returned cleanup function should be deferred; the directory itself is removed by t.TempDir.
func NewTestClient(t *testing.T) (*Client, func()) {
	t.Helper()

	dataDir := filepath.Join(t.TempDir(), AppName)
	c, err := NewLocalClient(dataDir)
	if err != nil {
		t.Fatalf("Failed to open local kv: %v", err)
	}

	cleanup := func() {
		if err := c.Close(); err != nil {
			t.Logf("Warning: failed to close test database: %v", err)
		}
	}

	return c, cleanup
}
