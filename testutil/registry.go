package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/skosovsky/toolbox"
)

// NewTestRegistry returns a Registry with long timeout and panic recovery enabled,
// suitable for tests. Registration failures fail tb; the registry is shut down on cleanup.
func NewTestRegistry(tb testing.TB, tools ...toolbox.Tool) *toolbox.Registry {
	tb.Helper()
	reg := toolbox.NewRegistry(
		toolbox.WithDefaultTimeout(30*time.Second),
		toolbox.WithRecoverPanics(true),
	)
	for _, t := range tools {
		if err := reg.Register(t); err != nil {
			tb.Fatalf("register %q: %v", t.Name(), err)
		}
	}
	tb.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = reg.Shutdown(ctx)
	})
	return reg
}
