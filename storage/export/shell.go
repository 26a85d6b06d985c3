package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	gocmd "github.com/go-cmd/cmd"

	"github.com/luxfi/mempulse/eventlog"
)

// ShellSink pipes each batch, newline-delimited JSON, into stdin of an
// external command — an escape hatch for operators who want to hand batches
// to an arbitrary downstream loader (a ClickHouse client binary, a
// message-queue publisher script) without this module depending on their
// client library directly. Grounded on backfill.rs's external-process
// handoff to a ClickHouse loader, generalized to any command instead of one
// hardcoded to ClickHouse.
type ShellSink struct {
	command string
	args    []string
}

// NewShellSink returns a ShellSink that invokes command with args once per
// batch, writing the batch as newline-delimited JSON to its stdin.
func NewShellSink(command string, args ...string) *ShellSink {
	return &ShellSink{command: command, args: args}
}

func (s *ShellSink) Write(ctx context.Context, batch []eventlog.Envelope) error {
	c := gocmd.NewCmdOptions(gocmd.Options{Buffered: true}, s.command, s.args...)

	var payload []byte
	for _, env := range batch {
		line, err := json.Marshal(env)
		if err != nil {
			return fmt.Errorf("marshal envelope for shell sink: %w", err)
		}
		payload = append(payload, line...)
		payload = append(payload, '\n')
	}
	c.Stdin = bytes.NewReader(payload)

	statusChan := c.Start()
	select {
	case status := <-statusChan:
		if status.Error != nil {
			return fmt.Errorf("shell sink command %q failed: %w", s.command, status.Error)
		}
		if status.Exit != 0 {
			return fmt.Errorf("shell sink command %q exited %d: %s", s.command, status.Exit, joinLines(status.Stderr))
		}
		return nil
	case <-ctx.Done():
		_ = c.Stop()
		return ctx.Err()
	}
}

func (s *ShellSink) Close() error { return nil }

func joinLines(lines []string) string {
	out := ""
	for i, l := range lines {
		if i > 0 {
			out += "; "
		}
		out += l
	}
	return out
}
