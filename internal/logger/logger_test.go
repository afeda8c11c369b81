package logger

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
)

func TestNew(t *testing.T) {
	tests := []struct {
		level string
		want  zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"WARN", zerolog.WarnLevel},
		{"bogus", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			l := New(tt.level, false)
			if l.GetLevel() != tt.want {
				t.Errorf("Expected level %v, got %v", tt.want, l.GetLevel())
			}
		})
	}
}

func TestMiddleware(t *testing.T) {
	var buf bytes.Buffer
	l := zerolog.New(&buf)

	var sawLogger bool
	h := Middleware(l)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := hlog.IDFromRequest(r); ok {
			sawLogger = true
		}
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/posts?page=2", nil))

	if !sawLogger {
		t.Error("Expected request id in context")
	}
	if rec.Header().Get("X-Request-Id") == "" {
		t.Error("Expected X-Request-Id response header")
	}
	out := buf.String()
	if !strings.Contains(out, `"status":418`) {
		t.Errorf("Expected access log with status, got %s", out)
	}
	if !strings.Contains(out, `"url":"/posts?page=2"`) {
		t.Errorf("Expected access log with url, got %s", out)
	}
}
