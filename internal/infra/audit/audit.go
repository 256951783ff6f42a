// Package audit writes the analysis audit trail as JSON lines.
package audit

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"semanticheck/internal/domain"
	"semanticheck/internal/infra/middleware"
	"semanticheck/internal/infra/tracer"
)

const maxLineBytes = 1 << 20

// RetentionPolicy controls how long audit entries are kept.
type RetentionPolicy struct {
	MaxAge  time.Duration // 0 = no limit
	MaxSize int64         // bytes; 0 = no limit
}

// FileLogger implements domain.AuditLogger by appending JSONL to a file.
type FileLogger struct {
	mu        sync.Mutex
	file      *os.File
	path      string
	retention *RetentionPolicy
}

// NewFileLogger opens path for appending, creating it with 0600 permissions.
func NewFileLogger(path string) (*FileLogger, error) {
	f, err := openAppend(path)
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	return &FileLogger{file: f, path: path}, nil
}

func openAppend(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
}

// SetRetention configures the policy applied by EnforceRetention.
func (a *FileLogger) SetRetention(policy RetentionPolicy) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.retention = &policy
}

// Log writes event as a single JSON line. The request ID from ctx is filled
// in when the event has none, and the event is mirrored onto the active span.
func (a *FileLogger) Log(ctx context.Context, event domain.AuditEvent) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if event.RequestID == "" {
		event.RequestID = middleware.RequestIDFromContext(ctx)
	}

	data, err := json.Marshal(event)
	if err != nil {
		return domain.NewDomainError("audit.Log", domain.ErrAuditWrite, err.Error())
	}

	a.mu.Lock()
	_, err = a.file.Write(append(data, '\n'))
	a.mu.Unlock()
	if err != nil {
		return domain.NewDomainError("audit.Log", domain.ErrAuditWrite, err.Error())
	}

	span := trace.SpanFromContext(ctx)
	if span.IsRecording() {
		attrs := make([]attribute.KeyValue, 0, len(event.Detail)+1)
		attrs = append(attrs, tracer.StringAttr("audit.outcome", event.Outcome))
		for k, v := range event.Detail {
			attrs = append(attrs, tracer.StringAttr("audit."+k, v))
		}
		span.AddEvent("audit."+string(event.Operation), trace.WithAttributes(attrs...))
	}
	return nil
}

// Close closes the underlying file.
func (a *FileLogger) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.file.Close()
}

// EnforceRetention rewrites the log keeping only entries newer than MaxAge
// and, oldest first, drops entries until the file fits in MaxSize.
func (a *FileLogger) EnforceRetention(_ context.Context) (removed int, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	policy := a.retention
	if policy == nil || (policy.MaxAge == 0 && policy.MaxSize == 0) {
		return 0, nil
	}

	if policy.MaxAge == 0 {
		info, err := os.Stat(a.path)
		if err != nil {
			return 0, fmt.Errorf("stat audit log: %w", err)
		}
		if info.Size() <= policy.MaxSize {
			return 0, nil
		}
	}

	var cutoff time.Time
	if policy.MaxAge > 0 {
		cutoff = time.Now().Add(-policy.MaxAge)
	}

	if err := a.file.Close(); err != nil {
		return 0, fmt.Errorf("close for retention: %w", err)
	}
	// The handle is reopened on every exit path.
	defer func() {
		f, openErr := openAppend(a.path)
		if openErr != nil && err == nil {
			err = fmt.Errorf("reopen after retention: %w", openErr)
		}
		a.file = f
	}()

	kept, keptSize, removed, err := readKept(a.path, cutoff)
	if err != nil {
		return 0, err
	}

	if policy.MaxSize > 0 {
		for len(kept) > 0 && keptSize > policy.MaxSize {
			keptSize -= int64(len(kept[0])) + 1
			kept = kept[1:]
			removed++
		}
	}

	if err := rewrite(a.path, kept); err != nil {
		return 0, err
	}
	return removed, nil
}

func readKept(path string, cutoff time.Time) (kept [][]byte, size int64, removed int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("open for reading: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		if !cutoff.IsZero() {
			var entry struct {
				Timestamp time.Time `json:"timestamp"`
			}
			if json.Unmarshal(line, &entry) == nil && entry.Timestamp.Before(cutoff) {
				removed++
				continue
			}
		}
		kept = append(kept, append([]byte(nil), line...))
		size += int64(len(line)) + 1
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, 0, fmt.Errorf("scan audit log: %w", err)
	}
	return kept, size, removed, nil
}

func rewrite(path string, lines [][]byte) error {
	tmpPath := path + ".tmp"
	tmp, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	w := bufio.NewWriter(tmp)
	for _, line := range lines {
		w.Write(line)
		w.WriteByte('\n')
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
