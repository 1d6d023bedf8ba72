package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/goodtune/daygauge/internal/config"
	"github.com/goodtune/daygauge/internal/identity"
	"github.com/goodtune/daygauge/internal/web"
	"github.com/goodtune/daygauge/internal/window"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

func TestPrintStatus(t *testing.T) {
	color.NoColor = true

	start := time.Date(2024, 1, 1, 6, 0, 0, 0, time.UTC)
	m := window.Compute(start, start.Add(4*time.Hour), window.Length)

	var buf bytes.Buffer
	printStatus(&buf, "alice", web.NewReadout(m, time.UTC))
	out := buf.String()

	for _, want := range []string{
		"Owner:      alice",
		"Started:    06:00 AM, Jan 01",
		"Ends:       10:00 PM, Jan 01",
		"Day Spent:  25.000%",
		"4 hrs, 0 min, 0 secs (240 minutes)",
		"Day Left:   75.000%",
		"48.0 quarter hours, 72.0 ten-minute blocks",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("status missing %q:\n%s", want, out)
		}
	}
}

func TestPrintNoRecord(t *testing.T) {
	color.NoColor = true

	var buf bytes.Buffer
	printNoRecord(&buf, "bob")

	if !strings.Contains(buf.String(), "No start time yet") {
		t.Errorf("unexpected output: %q", buf.String())
	}
}

func TestResolveOwner(t *testing.T) {
	auth, err := identity.NewAuthority("test-secret", time.Hour, 16, clockwork.NewRealClock())
	if err != nil {
		t.Fatalf("NewAuthority failed: %v", err)
	}
	token, err := auth.Issue("alice")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	tests := []struct {
		name    string
		flag    string
		env     string
		want    string
		wantErr bool
	}{
		{"none", "", "", "", false},
		{"flag", token, "", "alice", false},
		{"env", "", token, "alice", false},
		{"flag wins", token, "garbage", "alice", false},
		{"invalid", "garbage", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokenFlag = tt.flag
			t.Cleanup(func() { tokenFlag = "" })
			t.Setenv(tokenEnv, tt.env)

			got, err := resolveOwner(auth)
			if (err != nil) != tt.wantErr {
				t.Fatalf("resolveOwner error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("owner = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSetupLogger(t *testing.T) {
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.DebugLevel) })

	var buf bytes.Buffer
	logger := setupLogger(config.LoggingConfig{Level: "warn", Format: "json"}, &buf)

	logger.Info().Msg("hidden")
	logger.Warn().Msg("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info line written at warn level: %s", out)
	}
	if !strings.Contains(out, `"message":"shown"`) {
		t.Errorf("warn line missing: %s", out)
	}
}
