package alert

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"pairwatch/internal/signal"
)

var errRecorderClosed = errors.New("recorder closed")

// JSONLRecorder appends alerts as JSON lines for later analysis.
type JSONLRecorder struct {
	mu   sync.Mutex
	file *os.File
	enc  *json.Encoder
}

// NewJSONLRecorder creates/opens the target file and returns a recorder.
func NewJSONLRecorder(path string) (*JSONLRecorder, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	return &JSONLRecorder{
		file: file,
		enc:  json.NewEncoder(file),
	}, nil
}

// Publish writes a single alert to the underlying JSONL file.
func (r *JSONLRecorder) Publish(_ context.Context, a signal.Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.file == nil {
		return errRecorderClosed
	}
	if err := r.enc.Encode(a); err != nil {
		return fmt.Errorf("record alert: %w", err)
	}
	return nil
}

// Close flushes and closes the file handle.
func (r *JSONLRecorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}
