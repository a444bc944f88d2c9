// Package journal appends an audit trail of submitted transactions. The
// console only ever writes to it; nothing in the process reads entries back.
package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const (
	StatusSubmitted = "submitted"
	StatusConfirmed = "confirmed"
	StatusFailed    = "failed"
)

// Entry records one step of a mutating action.
type Entry struct {
	SessionID string    `json:"sessionId"`
	Action    string    `json:"action"`
	TokenID   string    `json:"tokenId,omitempty"`
	TxHash    string    `json:"txHash,omitempty"`
	Status    string    `json:"status"`
	Error     string    `json:"error,omitempty"`
	At        time.Time `json:"at"`
	Signature string    `json:"signature,omitempty"`
}

// Sink abstracts journal persistence.
type Sink interface {
	Append(ctx context.Context, entry Entry) error
}

// Nop discards entries.
type Nop struct{}

func (Nop) Append(context.Context, Entry) error { return nil }

// MemorySink is mostly for testing.
type MemorySink struct {
	mu      sync.Mutex
	entries []Entry
}

func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (m *MemorySink) Append(_ context.Context, entry Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
	return nil
}

func (m *MemorySink) Entries() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Entry(nil), m.entries...)
}

// FileSink appends entries to a file as JSON lines.
type FileSink struct {
	path string
	mu   sync.Mutex
}

func NewFileSink(path string) (*FileSink, error) {
	if path == "" {
		return nil, fmt.Errorf("journal path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return &FileSink{path: path}, nil
}

func (f *FileSink) Append(_ context.Context, entry Entry) error {
	blob, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	file, err := os.OpenFile(f.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	if _, err := file.Write(append(blob, '\n')); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// Signed wraps sink so every entry carries an HMAC signature. A nil signer
// returns sink unchanged.
func Signed(sink Sink, signer *Signer) Sink {
	if signer == nil || signer.Secret == "" {
		return sink
	}
	return &signedSink{next: sink, signer: signer}
}

type signedSink struct {
	next   Sink
	signer *Signer
}

func (s *signedSink) Append(ctx context.Context, entry Entry) error {
	sig, err := s.signer.Sign(entry)
	if err != nil {
		return err
	}
	entry.Signature = sig
	return s.next.Append(ctx, entry)
}
