package pipeline

import (
	"testing"

	"go.uber.org/goleak"
)

// TestMain verifies that starting and stopping a Pipeline (engines, writer,
// forward/stats loop) leaves no goroutine running behind, the way the
// teacher's own packages with long-lived background goroutines do.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
