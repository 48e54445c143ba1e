// Package inject provides a durable queue of payloads awaiting delivery.
//
// When a worker is busy or its session is not ready, callers queue the
// payload instead of dropping it; a later flush delivers everything in
// order. Queues live at ~/.bullhorn/queue/<worker>.jsonl, one JSON entry
// per line, guarded by an advisory file lock so concurrent bullhorn
// invocations appending to the same worker's queue do not interleave
// partial lines.
package inject

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/steveyegge/bullhorn/internal/payload"
)

// Entry is one queued payload.
type Entry struct {
	Payload  payload.Payload `json:"payload"`
	QueuedAt int64           `json:"queued_at"`
}

// Queue is the pending-payload queue for one worker.
type Queue struct {
	worker   string
	queueDir string
}

// NewQueue returns the queue for a worker, rooted at dir (normally
// ~/.bullhorn/queue).
func NewQueue(dir, worker string) *Queue {
	return &Queue{worker: worker, queueDir: dir}
}

func (q *Queue) queueFile() string {
	return filepath.Join(q.queueDir, q.worker+".jsonl")
}

// lock acquires the advisory lock for this queue file, returning an unlock
// function.
func (q *Queue) lock() (func(), error) {
	fl := flock.New(q.queueFile() + ".lock")
	if err := fl.Lock(); err != nil {
		return nil, fmt.Errorf("locking queue for %s: %w", q.worker, err)
	}
	return func() { _ = fl.Unlock() }, nil
}

// Enqueue appends a payload to the queue.
func (q *Queue) Enqueue(p payload.Payload) error {
	if err := os.MkdirAll(q.queueDir, 0o755); err != nil {
		return fmt.Errorf("creating queue directory: %w", err)
	}

	data, err := json.Marshal(Entry{Payload: p, QueuedAt: time.Now().UnixMilli()})
	if err != nil {
		return fmt.Errorf("marshaling queue entry: %w", err)
	}

	unlock, err := q.lock()
	if err != nil {
		return err
	}
	defer unlock()

	f, err := os.OpenFile(q.queueFile(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening queue file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("writing to queue: %w", err)
	}
	return nil
}

// Drain returns all queued entries, oldest first, and empties the queue.
func (q *Queue) Drain() ([]Entry, error) {
	unlock, err := q.lock()
	if err != nil {
		return nil, err
	}
	defer unlock()

	entries, err := q.readEntries()
	if err != nil {
		return nil, err
	}

	if err := os.Remove(q.queueFile()); err != nil && !os.IsNotExist(err) {
		return entries, fmt.Errorf("removing queue file: %w", err)
	}
	return entries, nil
}

// Peek returns all queued entries without removing them.
func (q *Queue) Peek() ([]Entry, error) {
	unlock, err := q.lock()
	if err != nil {
		return nil, err
	}
	defer unlock()
	return q.readEntries()
}

// Count returns the number of queued entries.
func (q *Queue) Count() (int, error) {
	entries, err := q.Peek()
	if err != nil {
		return 0, err
	}
	return len(entries), nil
}

// Clear drops all queued entries.
func (q *Queue) Clear() error {
	unlock, err := q.lock()
	if err != nil {
		return err
	}
	defer unlock()

	if err := os.Remove(q.queueFile()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing queue file: %w", err)
	}
	return nil
}

// readEntries parses the queue file. Corrupt lines (from a crash mid-append)
// are skipped rather than poisoning the whole queue.
func (q *Queue) readEntries() ([]Entry, error) {
	data, err := os.ReadFile(q.queueFile())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading queue file: %w", err)
	}

	var entries []Entry
	for _, line := range splitLines(data) {
		if len(line) == 0 {
			continue
		}
		var entry Entry
		if err := json.Unmarshal(line, &entry); err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// splitLines splits data into lines, handling both \n and \r\n.
func splitLines(data []byte) [][]byte {
	var lines [][]byte
	start := 0
	for i := 0; i < len(data); i++ {
		if data[i] == '\n' {
			end := i
			if end > start && data[end-1] == '\r' {
				end--
			}
			lines = append(lines, data[start:end])
			start = i + 1
		}
	}
	if start < len(data) {
		lines = append(lines, data[start:])
	}
	return lines
}
