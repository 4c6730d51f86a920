package logger_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/edgard/goalbot/internal/logger"
)

func TestNew_LevelFiltering(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		level     string
		wantDebug bool
		wantInfo  bool
	}{
		{name: "debug", level: "debug", wantDebug: true, wantInfo: true},
		{name: "info", level: "info", wantDebug: false, wantInfo: true},
		{name: "error", level: "error", wantDebug: false, wantInfo: false},
		{name: "unknown falls back to info", level: "chatty", wantDebug: false, wantInfo: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var buf bytes.Buffer
			log := logger.New(&buf, tt.level, false)

			log.Debug("debug line")
			log.Info("info line")

			out := buf.String()
			if got := strings.Contains(out, "debug line"); got != tt.wantDebug {
				t.Errorf("debug logged = %v, want %v", got, tt.wantDebug)
			}
			if got := strings.Contains(out, "info line"); got != tt.wantInfo {
				t.Errorf("info logged = %v, want %v", got, tt.wantInfo)
			}
		})
	}
}

func TestMiddleware_LogsStatus(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logger.New(&buf, "info", true)

	h := logger.Middleware(log)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/bot/verify", nil))

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	if entry["path"] != "/bot/verify" {
		t.Errorf("path = %v, want /bot/verify", entry["path"])
	}
	if entry["status"] != float64(http.StatusNotFound) {
		t.Errorf("status = %v, want 404", entry["status"])
	}
}

func TestTruncateString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in     string
		maxLen int
		want   string
	}{
		{in: "short", maxLen: 10, want: "short"},
		{in: "exactly10!", maxLen: 10, want: "exactly10!"},
		{in: "this is too long", maxLen: 10, want: "this is..."},
		{in: "abc", maxLen: 2, want: "..."},
		{in: "Купить молоко", maxLen: 13, want: "Купить молоко"},
		{in: "Купить молоко", maxLen: 9, want: "Купить..."},
	}
	for _, tt := range tests {
		got := logger.TruncateString(tt.in, tt.maxLen)
		if got != tt.want {
			t.Errorf("TruncateString(%q, %d) = %q, want %q", tt.in, tt.maxLen, got, tt.want)
		}
		if !utf8.ValidString(got) {
			t.Errorf("TruncateString(%q, %d) = %q is not valid UTF-8", tt.in, tt.maxLen, got)
		}
	}
}
