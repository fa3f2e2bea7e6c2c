package persistence

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"

	"github.com/tatianab/selma/internal/models"
)

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return uuid.NewString()
}

// LogEntry is one line of the event log.
type LogEntry struct {
	Run   string       `json:"run"`
	Event models.Event `json:"event"`
}

// EventLog appends events as zstd-compressed JSON lines, one file per run.
// The file is created on the first write.
type EventLog struct {
	path  string
	runID string

	mu  sync.Mutex
	f   *os.File
	enc *zstd.Encoder
	w   *bufio.Writer
}

func NewEventLog(dir, runID string) *EventLog {
	return &EventLog{
		path:  filepath.Join(dir, fmt.Sprintf("events-%s.jsonl.zst", runID)),
		runID: runID,
	}
}

// Path is the file the log writes to.
func (l *EventLog) Path() string { return l.path }

func (l *EventLog) WriteEvent(ev models.Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.w == nil {
		if err := l.openLocked(); err != nil {
			return err
		}
	}
	b, err := json.Marshal(LogEntry{Run: l.runID, Event: ev})
	if err != nil {
		return err
	}
	if _, err := l.w.Write(b); err != nil {
		return err
	}
	if err := l.w.WriteByte('\n'); err != nil {
		return err
	}
	return l.w.Flush()
}

func (l *EventLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var err error
	if l.w != nil {
		_ = l.w.Flush()
	}
	if l.enc != nil {
		err = l.enc.Close()
		l.enc = nil
	}
	if l.f != nil {
		_ = l.f.Close()
		l.f = nil
	}
	l.w = nil
	return err
}

func (l *EventLog) openLocked() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	l.f = f
	l.enc = enc
	l.w = bufio.NewWriterSize(enc, 64*1024)
	return nil
}

// ReadEventLog decodes every entry of a log file.
func ReadEventLog(path string) ([]LogEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	var entries []LogEntry
	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		var e LogEntry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			return nil, fmt.Errorf("entry %d: %w", len(entries), err)
		}
		entries = append(entries, e)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}
