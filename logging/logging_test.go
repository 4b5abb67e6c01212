package logging

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/giygas/drugdb/config"
	"github.com/go-chi/chi/v5/middleware"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"ERROR", slog.LevelError},
		{"invalid", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := parseLogLevel(tt.input); got != tt.expected {
				t.Errorf("parseLogLevel(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestGetConsoleLogLevel(t *testing.T) {
	tests := []struct {
		name        string
		env         config.Environment
		logLevelStr string
		verbose     bool
		expected    slog.Level
	}{
		{"dev defaults to info", config.EnvDevelopment, "", false, slog.LevelInfo},
		{"test quiet defaults to error", config.EnvTest, "", false, slog.LevelError},
		{"test verbose defaults to info", config.EnvTest, "", true, slog.LevelInfo},
		{"prod defaults to warn", config.EnvProduction, "", false, slog.LevelWarn},
		{"staging defaults to warn", config.EnvStaging, "", false, slog.LevelWarn},
		{"prod with debug override", config.EnvProduction, "debug", false, slog.LevelDebug},
		{"dev with error override", config.EnvDevelopment, "error", false, slog.LevelError},
		{"test with debug override ignored", config.EnvTest, "debug", false, slog.LevelError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GetConsoleLogLevel(tt.env, tt.logLevelStr, tt.verbose)
			if got != tt.expected {
				t.Errorf("GetConsoleLogLevel(%v, %q, %v) = %v, want %v", tt.env, tt.logLevelStr, tt.verbose, got, tt.expected)
			}
		})
	}
}

func TestGetWeekKey(t *testing.T) {
	testTime := time.Date(2025, 10, 7, 12, 0, 0, 0, time.UTC)
	if got := getWeekKey(testTime); got != "2025-W41" {
		t.Errorf("Expected week key 2025-W41, got %s", got)
	}
}

func TestRotatingLoggerWritesWeeklyFile(t *testing.T) {
	tempDir := t.TempDir()
	rl := NewRotatingLogger(tempDir, 1)

	if _, err := rl.Write([]byte("first line\n")); err != nil {
		t.Fatalf("Failed to write to log: %v", err)
	}
	if err := rl.Close(); err != nil {
		t.Fatalf("Failed to close logger: %v", err)
	}

	expected := filepath.Join(tempDir, logFilePrefix+getWeekKey(time.Now())+".log")
	content, err := os.ReadFile(expected)
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}
	if !strings.Contains(string(content), "first line") {
		t.Errorf("Log file does not contain message: %s", content)
	}
}

func TestRotatingLoggerSizeRotation(t *testing.T) {
	tempDir := t.TempDir()
	rl := NewRotatingLoggerWithSizeLimit(tempDir, 1, 64)
	defer rl.Close()

	line := []byte(strings.Repeat("x", 40) + "\n")
	for i := 0; i < 3; i++ {
		if _, err := rl.Write(line); err != nil {
			t.Fatalf("write %d failed: %v", i, err)
		}
	}

	week := getWeekKey(time.Now())
	for _, name := range []string{
		logFilePrefix + week + ".log",
		fmt.Sprintf("%s%s_01.log", logFilePrefix, week),
		fmt.Sprintf("%s%s_02.log", logFilePrefix, week),
	} {
		if _, err := os.Stat(filepath.Join(tempDir, name)); err != nil {
			t.Errorf("Expected %s to exist: %v", name, err)
		}
	}
}

func TestCleanupOldLogs(t *testing.T) {
	tempDir := t.TempDir()
	rl := NewRotatingLogger(tempDir, 1)
	defer rl.Close()

	oldFile := filepath.Join(tempDir, logFilePrefix+"2020-W01.log")
	otherFile := filepath.Join(tempDir, "notes.txt")
	for _, f := range []string{oldFile, otherFile} {
		if err := os.WriteFile(f, []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
		old := time.Now().Add(-30 * 24 * time.Hour)
		if err := os.Chtimes(f, old, old); err != nil {
			t.Fatal(err)
		}
	}

	if err := rl.cleanupOldLogs(); err != nil {
		t.Fatalf("cleanup failed: %v", err)
	}

	if _, err := os.Stat(oldFile); !os.IsNotExist(err) {
		t.Error("Expected old log file to be removed")
	}
	if _, err := os.Stat(otherFile); err != nil {
		t.Error("Non-log files must be kept")
	}
}

func TestInitLoggerConsoleOnly(t *testing.T) {
	InitLogger("")
	defer Close()

	if DefaultLoggingService == nil || DefaultLoggingService.Logger == nil {
		t.Fatal("Expected logger to be initialized")
	}
	if DefaultLoggingService.rotating != nil {
		t.Error("Expected no rotating file for empty log dir")
	}
	Info("console only", "ok", true)
}

func TestInitConsoleLogger(t *testing.T) {
	var buf bytes.Buffer
	InitConsoleLogger(&buf, "warn")
	defer InitLogger("")

	Info("hidden")
	Warn("shown", "drug_id", 7)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("Expected info records to be filtered out")
	}
	if !strings.Contains(out, "shown") || !strings.Contains(out, "drug_id=7") {
		t.Errorf("Expected the warning in output, got %q", out)
	}
}

func TestLoggingMiddleware(t *testing.T) {
	var logOutput strings.Builder
	logger := slog.New(slog.NewTextHandler(&logOutput, &slog.HandlerOptions{Level: slog.LevelInfo}))

	handler := LoggingMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte("ok"))
	}))

	t.Run("health is not logged", func(t *testing.T) {
		logOutput.Reset()
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
		if logOutput.Len() != 0 {
			t.Errorf("expected no logs for /health, got: %s", logOutput.String())
		}
	})

	t.Run("api request is logged", func(t *testing.T) {
		logOutput.Reset()
		req := httptest.NewRequest(http.MethodPost, "/drugs?q=asp", nil)
		req = req.WithContext(context.WithValue(req.Context(), middleware.RequestIDKey, "req-42"))
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		logs := logOutput.String()
		for _, want := range []string{"request_id=req-42", "path=/drugs", "q=asp", "status_code=201", "bytes_written=2"} {
			if !strings.Contains(logs, want) {
				t.Errorf("expected log to contain %q, got: %s", want, logs)
			}
		}
	})
}
