package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestDigestJSON(t *testing.T) {
	if DigestJSON(nil) != "" {
		t.Fatalf("expected empty digest for empty payload")
	}
	a := DigestJSON([]byte(`{"format":"xlsx"}`))
	b := DigestJSON([]byte(`{"format":"xlsx"}`))
	if a == "" || a != b {
		t.Fatalf("expected stable digest, got %q %q", a, b)
	}
}

func TestLogrusLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&buf)
	logger.SetFormatter(&logrus.JSONFormatter{})

	err := NewLogrusLogger(logger).Log(context.Background(), Entry{
		Actor:    "user-1",
		Role:     "analyst",
		Action:   "grid.dashboard.export",
		Resource: "xlsx",
		Metadata: json.RawMessage(`{"format":"xlsx"}`),
	})
	if err != nil {
		t.Fatalf("log: %v", err)
	}
	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if line["action"] != "grid.dashboard.export" || line["actor"] != "user-1" {
		t.Fatalf("unexpected entry %v", line)
	}
	id, _ := line["audit_id"].(string)
	if !strings.HasPrefix(id, "audit-") {
		t.Fatalf("expected generated id, got %q", id)
	}
	if line["payload_digest"] == "" {
		t.Fatalf("expected payload digest")
	}
}

func TestNewRepository_NilDB(t *testing.T) {
	if NewRepository(nil) != nil {
		t.Fatalf("expected nil repository")
	}
	var repo *Repository
	if err := repo.Log(context.Background(), Entry{}); err == nil {
		t.Fatalf("expected error for nil repository")
	}
}
