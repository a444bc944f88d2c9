package journal

import (
	"bufio"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

var (
	ErrMissingSignature = errors.New("missing entry signature")
	ErrInvalidSignature = errors.New("invalid entry signature")
)

// Signer computes HMAC-SHA256 signatures over the entry timestamp and its
// JSON encoding without the signature field.
type Signer struct {
	Secret string
}

func (s *Signer) Sign(entry Entry) (string, error) {
	entry.Signature = ""
	body, err := json.Marshal(entry)
	if err != nil {
		return "", err
	}
	return computeSignature(s.Secret, entry.At.UTC().Format(time.RFC3339Nano), body), nil
}

// Verify checks the signature an entry was written with.
func (s *Signer) Verify(entry Entry) error {
	if entry.Signature == "" {
		return ErrMissingSignature
	}
	expected, err := s.Sign(entry)
	if err != nil {
		return err
	}
	if !hmac.Equal([]byte(expected), []byte(entry.Signature)) {
		return ErrInvalidSignature
	}
	return nil
}

// LineError is a journal line that could not be decoded or verified.
type LineError struct {
	Line int
	Err  error
}

func (e *LineError) Error() string { return fmt.Sprintf("line %d: %v", e.Line, e.Err) }

func (e *LineError) Unwrap() error { return e.Err }

// VerifyLines checks every JSON line read from r, as written by FileSink.
// Blank lines are skipped. It returns the number of verified entries and the
// lines that failed; the error is only set when r itself fails.
func VerifyLines(r io.Reader, signer *Signer) (int, []*LineError, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var (
		verified int
		failures []*LineError
		line     int
	)
	for scanner.Scan() {
		line++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}
		var entry Entry
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			failures = append(failures, &LineError{Line: line, Err: fmt.Errorf("decode: %w", err)})
			continue
		}
		if err := signer.Verify(entry); err != nil {
			failures = append(failures, &LineError{Line: line, Err: err})
			continue
		}
		verified++
	}
	if err := scanner.Err(); err != nil {
		return verified, failures, fmt.Errorf("read journal: %w", err)
	}
	return verified, failures, nil
}

func computeSignature(secret, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write(body)
	return strings.ToLower(hex.EncodeToString(mac.Sum(nil)))
}
