package storage

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/luxfi/mempulse/eventlog"
)

// segmentFileName formats the segment filename grammar:
// "<base>.seg.<20-digit-zero-padded-id>".
func segmentFileName(base string, id uint64) string {
	return fmt.Sprintf("%s.seg.%020d", base, id)
}

// WAL is a segmented, append-only write-ahead log of event envelopes,
// grounded on original_source/crates/storage/src/wal.rs. Each line is one
// JSON-encoded eventlog.Envelope; segments roll over once the active
// segment reaches maxSegmentBytes.
type WAL struct {
	basePath       string
	maxSegmentBytes int64

	activeID    uint64
	activeFile  *os.File
	activeBytes int64
}

// OpenWAL opens (creating if necessary) the WAL rooted at basePath. If a
// legacy single-file WAL exists at basePath (no ".seg." suffix), it is left
// in place and picked up by Recover, but all new appends go to segment
// files.
func OpenWAL(basePath string, maxSegmentBytes int64) (*WAL, error) {
	if maxSegmentBytes <= 0 {
		maxSegmentBytes = 64 << 20
	}
	if err := os.MkdirAll(filepath.Dir(basePath), 0o755); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("create wal directory: %w", err)
	}

	w := &WAL{basePath: basePath, maxSegmentBytes: maxSegmentBytes}
	nextID, err := nextSegmentID(basePath)
	if err != nil {
		return nil, err
	}
	w.activeID = nextID
	if err := w.openActiveSegment(); err != nil {
		return nil, err
	}
	return w, nil
}

func nextSegmentID(basePath string) (uint64, error) {
	dir := filepath.Dir(basePath)
	base := filepath.Base(basePath)
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("list wal directory: %w", err)
	}
	var maxID uint64
	found := false
	prefix := base + ".seg."
	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		idStr := strings.TrimPrefix(name, prefix)
		id, err := strconv.ParseUint(idStr, 10, 64)
		if err != nil {
			continue
		}
		if !found || id > maxID {
			maxID = id
			found = true
		}
	}
	if !found {
		return 0, nil
	}
	return maxID + 1, nil
}

func (w *WAL) openActiveSegment() error {
	path := segmentFileName(w.basePath, w.activeID)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open wal segment %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("stat wal segment %s: %w", path, err)
	}
	w.activeFile = f
	w.activeBytes = info.Size()
	return nil
}

// Append writes env as one JSON line to the active segment, rolling over to
// a new segment first if the active one would exceed maxSegmentBytes.
func (w *WAL) Append(env eventlog.Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope for wal: %w", err)
	}
	data = append(data, '\n')

	if w.activeBytes > 0 && w.activeBytes+int64(len(data)) > w.maxSegmentBytes {
		if err := w.rollSegment(); err != nil {
			return err
		}
	}

	n, err := w.activeFile.Write(data)
	if err != nil {
		return fmt.Errorf("write wal record: %w", err)
	}
	w.activeBytes += int64(n)
	return nil
}

// Sync flushes the active segment to stable storage.
func (w *WAL) Sync() error {
	return w.activeFile.Sync()
}

func (w *WAL) rollSegment() error {
	if err := w.activeFile.Close(); err != nil {
		return fmt.Errorf("close wal segment: %w", err)
	}
	w.activeID++
	return w.openActiveSegment()
}

// Close flushes and closes the active segment.
func (w *WAL) Close() error {
	if err := w.activeFile.Sync(); err != nil {
		return err
	}
	return w.activeFile.Close()
}

// Recover reads every segment file (and, if present, a legacy single-file
// WAL at basePath with no segment suffix) and returns the envelopes sorted
// by seq_id, the way original_source's recover_events does.
func Recover(basePath string) ([]eventlog.Envelope, error) {
	dir := filepath.Dir(basePath)
	base := filepath.Base(basePath)

	var paths []string
	if _, err := os.Stat(basePath); err == nil {
		paths = append(paths, basePath)
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("stat legacy wal file: %w", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return sortedEnvelopes(nil, paths)
		}
		return nil, fmt.Errorf("list wal directory: %w", err)
	}

	prefix := base + ".seg."
	var segPaths []string
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), prefix) {
			segPaths = append(segPaths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(segPaths)
	paths = append(paths, segPaths...)

	return sortedEnvelopes(nil, paths)
}

func sortedEnvelopes(acc []eventlog.Envelope, paths []string) ([]eventlog.Envelope, error) {
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open wal file %s: %w", path, err)
		}
		scanner := bufio.NewScanner(f)
		scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
		for scanner.Scan() {
			line := scanner.Bytes()
			if len(line) == 0 {
				continue
			}
			var env eventlog.Envelope
			if err := json.Unmarshal(line, &env); err != nil {
				f.Close()
				return nil, fmt.Errorf("decode wal record in %s: %w", path, err)
			}
			acc = append(acc, env)
		}
		scanErr := scanner.Err()
		f.Close()
		if scanErr != nil {
			return nil, fmt.Errorf("scan wal file %s: %w", path, scanErr)
		}
	}
	eventlog.SortDeterministic(acc)
	return dedupBySeqID(acc), nil
}

// dedupBySeqID drops every envelope whose seq_id has already been kept,
// per spec.md §4.4's "duplicate seq_ids in the WAL are suppressed on
// replay" — a segment can be re-read after a partial rollover, or a record
// can be written twice across a crash just before a fsync, so recovery
// must not double-apply it. envs must already be sorted by SortDeterministic
// so duplicates for the same seq_id are adjacent; the first one encountered
// (lowest source_id/primary_hash under the deterministic ordering) wins.
func dedupBySeqID(envs []eventlog.Envelope) []eventlog.Envelope {
	out := envs[:0]
	var lastSeqID uint64
	seenAny := false
	for _, env := range envs {
		if seenAny && env.SeqID == lastSeqID {
			continue
		}
		out = append(out, env)
		lastSeqID = env.SeqID
		seenAny = true
	}
	return out
}
