package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		config      Config
		wantErr     bool
		errorString string
	}{
		{
			name: "valid minimal config",
			config: Config{
				APIBaseURL:  "https://apini.ppiinn.net",
				HTTPTimeout: 30 * time.Second,
				StateDBPath: "./state.db",
			},
			wantErr: false,
		},
		{
			name: "empty base URL",
			config: Config{
				APIBaseURL:  "",
				HTTPTimeout: 30 * time.Second,
				StateDBPath: "./state.db",
			},
			wantErr:     true,
			errorString: "API base URL cannot be empty",
		},
		{
			name: "bad base URL scheme",
			config: Config{
				APIBaseURL:  "ftp://example.com",
				HTTPTimeout: 30 * time.Second,
				StateDBPath: "./state.db",
			},
			wantErr:     true,
			errorString: "invalid API base URL scheme 'ftp'",
		},
		{
			name: "timeout too small",
			config: Config{
				APIBaseURL:  "https://apini.ppiinn.net",
				HTTPTimeout: 100 * time.Millisecond,
				StateDBPath: "./state.db",
			},
			wantErr:     true,
			errorString: "must be at least 1 second",
		},
		{
			name: "empty state db path",
			config: Config{
				APIBaseURL:  "https://apini.ppiinn.net",
				HTTPTimeout: 30 * time.Second,
				StateDBPath: "",
			},
			wantErr:     true,
			errorString: "state database path cannot be empty",
		},
		{
			name: "spreadsheet id without credentials",
			config: Config{
				APIBaseURL:          "https://apini.ppiinn.net",
				HTTPTimeout:         30 * time.Second,
				StateDBPath:         "./state.db",
				GoogleSpreadsheetID: "sheet-id",
			},
			wantErr:     true,
			errorString: "GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE",
		},
		{
			name: "spreadsheet id with inline credentials",
			config: Config{
				APIBaseURL:               "https://apini.ppiinn.net",
				HTTPTimeout:              30 * time.Second,
				StateDBPath:              "./state.db",
				GoogleSpreadsheetID:      "sheet-id",
				GoogleReportSheetName:    "Report",
				GoogleServiceAccountJSON: `{"type":"service_account"}`,
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				if err == nil {
					t.Fatal("Validate() expected error, got nil")
				}
				if tt.errorString != "" && !strings.Contains(err.Error(), tt.errorString) {
					t.Errorf("Validate() error = %q, want substring %q", err.Error(), tt.errorString)
				}
				return
			}
			if err != nil {
				t.Fatalf("Validate() unexpected error: %v", err)
			}
		})
	}
}

func TestConfig_Validate_CreatesStateDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "state")
	cfg := Config{
		APIBaseURL:  "https://apini.ppiinn.net",
		HTTPTimeout: 30 * time.Second,
		StateDBPath: filepath.Join(dir, "state.db"),
	}

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() unexpected error: %v", err)
	}
	if _, err := os.Stat(dir); err != nil {
		t.Errorf("state directory was not created: %v", err)
	}
}

func TestLoad_Defaults(t *testing.T) {
	os.Unsetenv("SPENDBOOK_API_BASE_URL")
	os.Unsetenv("SPENDBOOK_HTTP_TIMEOUT")
	os.Unsetenv("LOG_LEVEL")

	cfg := Load()

	if cfg.APIBaseURL != "https://apini.ppiinn.net" {
		t.Errorf("APIBaseURL = %q, want default", cfg.APIBaseURL)
	}
	if cfg.HTTPTimeout != 30*time.Second {
		t.Errorf("HTTPTimeout = %v, want 30s", cfg.HTTPTimeout)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel = %v, want info", cfg.LogLevel)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SPENDBOOK_API_BASE_URL", "http://localhost:8081")
	t.Setenv("SPENDBOOK_HTTP_TIMEOUT", "5s")
	t.Setenv("LOG_LEVEL", "debug")

	cfg := Load()

	if cfg.APIBaseURL != "http://localhost:8081" {
		t.Errorf("APIBaseURL = %q, want env override", cfg.APIBaseURL)
	}
	if cfg.HTTPTimeout != 5*time.Second {
		t.Errorf("HTTPTimeout = %v, want 5s", cfg.HTTPTimeout)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("LogLevel = %v, want debug", cfg.LogLevel)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"ERROR", slog.LevelError},
		{"garbage", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
