package logging

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/studyhub/pkg/studyhub/config"
	log "github.com/sirupsen/logrus"
)

func resetLogger(t *testing.T) {
	t.Cleanup(func() {
		log.SetOutput(os.Stderr)
		log.SetLevel(log.InfoLevel)
		log.SetFormatter(&log.TextFormatter{})
	})
}

func TestSetupLevelAndFormat(t *testing.T) {
	resetLogger(t)

	closer, err := Setup(config.LogConfig{Level: "debug", Format: "json"})
	if err != nil {
		t.Fatalf("Setup failed: %v", err)
	}
	defer closer.Close()

	if log.GetLevel() != log.DebugLevel {
		t.Errorf("Expected debug level, got %s", log.GetLevel())
	}
	if _, ok := log.StandardLogger().Formatter.(*log.JSONFormatter); !ok {
		t.Errorf("Expected JSON formatter, got %T", log.StandardLogger().Formatter)
	}
}

func TestSetupRejectsBadInput(t *testing.T) {
	resetLogger(t)

	if _, err := Setup(config.LogConfig{Level: "loud"}); err == nil {
		t.Error("Expected error for unknown level")
	}
	if _, err := Setup(config.LogConfig{Format: "xml"}); err == nil {
		t.Error("Expected error for unknown format")
	}
}

func TestSetupWritesToFile(t *testing.T) {
	resetLogger(t)
	path := filepath.Join(t.TempDir(), "studyhub.log")

	closer, err := Setup(config.LogConfig{Level: "info", Format: "text", File: path, MaxSizeMB: 1})
	if err != nil {
		t.Fatalf("Setup failed: %v", err)
	}
	log.Info("written to file")
	if err := closer.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Log file not created: %v", err)
	}
	if !strings.Contains(string(data), "written to file") {
		t.Errorf("Log file missing entry: %s", data)
	}
}

func TestRequestLogger(t *testing.T) {
	resetLogger(t)
	var buf bytes.Buffer
	log.SetOutput(&buf)
	log.SetFormatter(&log.JSONFormatter{})

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestLogger())
	r.GET("/ping", func(c *gin.Context) {
		id, _ := c.Get(ContextKeyRequestID)
		c.String(http.StatusOK, id.(string))
	})

	req, _ := http.NewRequest("GET", "/ping", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	generated := resp.Header().Get(RequestIDHeader)
	if generated == "" || generated != resp.Body.String() {
		t.Errorf("Expected generated request id echoed, header=%q body=%q", generated, resp.Body.String())
	}

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Expected one JSON log line, got %q", buf.String())
	}
	if entry["request_id"] != generated || entry["path"] != "/ping" || entry["status"] != float64(200) {
		t.Errorf("Unexpected log entry %v", entry)
	}

	req, _ = http.NewRequest("GET", "/ping", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	if got := resp.Header().Get(RequestIDHeader); got != "abc-123" {
		t.Errorf("Expected inbound request id kept, got %q", got)
	}
}
