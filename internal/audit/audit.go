package audit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Entry represents an audit log entry.
type Entry struct {
	ID            string
	Actor         string
	Role          string
	Department    string
	Action        string
	Resource      string
	Metadata      json.RawMessage
	PayloadDigest string
	IP            string
	UserAgent     string
	CreatedAt     time.Time
}

// Logger writes audit entries.
type Logger interface {
	Log(ctx context.Context, entry Entry) error
}

// NewID generates a random audit id.
func NewID() string {
	return "audit-" + uuid.NewString()
}

// DigestJSON computes a SHA256 hex digest for metadata payloads.
func DigestJSON(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func complete(entry Entry) Entry {
	if entry.ID == "" {
		entry.ID = NewID()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	if entry.PayloadDigest == "" {
		entry.PayloadDigest = DigestJSON(entry.Metadata)
	}
	return entry
}

// LogrusLogger writes audit entries as structured log lines. It is used when
// no database is configured.
type LogrusLogger struct {
	logger logrus.FieldLogger
}

// NewLogrusLogger constructs a log-backed audit logger.
func NewLogrusLogger(logger logrus.FieldLogger) *LogrusLogger {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &LogrusLogger{logger: logger}
}

// Log writes an audit entry.
func (l *LogrusLogger) Log(ctx context.Context, entry Entry) error {
	_ = ctx
	entry = complete(entry)
	l.logger.WithFields(logrus.Fields{
		"audit_id":       entry.ID,
		"actor":          entry.Actor,
		"role":           entry.Role,
		"department":     entry.Department,
		"action":         entry.Action,
		"resource":       entry.Resource,
		"payload_digest": entry.PayloadDigest,
		"ip":             entry.IP,
	}).Info("audit")
	return nil
}
