package config

import (
	"strings"
	"testing"
	"time"

	"github.com/OniNezuko/osufeed"
)

func intPtr(v int) *int { return &v }

func TestOptions_EmptyConfig(t *testing.T) {
	opts := Options(&Config{})
	if len(opts) != 0 {
		t.Fatalf("len(Options()) = %d, want 0 for an empty config", len(opts))
	}

	// no options means pure Manager defaults
	m, err := osufeed.New(opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if m.UpdateInterval() != 500*time.Millisecond {
		t.Errorf("UpdateInterval() = %v, want the 500ms default", m.UpdateInterval())
	}
}

func TestOptions_FullConfig(t *testing.T) {
	cfg := &Config{
		Executable:        "/opt/tosu/tosu",
		Args:              []string{"--quiet"},
		AutoStart:         true,
		AutoRestart:       true,
		Host:              "192.168.1.10",
		Port:              24051,
		FeedPath:          "/websocket/v2",
		UpdateInterval:    Duration(250 * time.Millisecond),
		ReconnectInterval: Duration(2 * time.Second),
		MaxReconnects:     intPtr(5),
	}

	opts := Options(cfg)
	if len(opts) != 9 {
		t.Fatalf("len(Options()) = %d, want 9", len(opts))
	}

	m, err := osufeed.New(opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if m.UpdateInterval() != 250*time.Millisecond {
		t.Errorf("UpdateInterval() = %v, want 250ms", m.UpdateInterval())
	}
}

func TestOptions_MaxReconnectsZero(t *testing.T) {
	// An explicit zero must reach the Manager; it means "never retry".
	opts := Options(&Config{MaxReconnects: intPtr(0)})
	if len(opts) != 1 {
		t.Fatalf("len(Options()) = %d, want 1", len(opts))
	}

	if _, err := osufeed.New(opts...); err != nil {
		t.Fatalf("New() error = %v", err)
	}
}

func TestOptions_InvalidValuesSurfaceAtNew(t *testing.T) {
	// A Config built in code skips Parse validation; the option layer
	// still catches bad values.
	opts := Options(&Config{Port: 99999})
	_, err := osufeed.New(opts...)
	if err == nil {
		t.Fatal("New() expected error for out of range port, got nil")
	}
	if !strings.Contains(err.Error(), "port must be between") {
		t.Errorf("error = %q, want a port range error", err.Error())
	}
}
