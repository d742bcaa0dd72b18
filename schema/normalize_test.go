package schema

import "testing"

func TestValidateThreadID(t *testing.T) {
	cases := []struct {
		name  string
		id    ThreadID
		valid bool
	}{
		{"simple", "app", true},
		{"with-dots", "app.main", true},
		{"with-underscore", "app_main", true},
		{"with-dash", "app-main", true},
		{"with-digits", "worker2", true},
		{"empty", "", false},
		{"uppercase", "App", false},
		{"space", "app main", false},
		{"leading-space", " app", false},
		{"symbol", "app@", false},
	}

	for _, tc := range cases {
		err := ValidateThreadID(tc.id)
		if tc.valid && err != nil {
			t.Fatalf("case %q expected valid, got error: %v", tc.name, err)
		}
		if !tc.valid && err == nil {
			t.Fatalf("case %q expected error, got nil", tc.name)
		}
	}
}

func TestNormalizeRect(t *testing.T) {
	got, err := NormalizeRect(R(50, 40, 10, 20))
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if got != R(10, 20, 50, 40) {
		t.Fatalf("expected canonical rect, got %v", got)
	}
	if _, err := NormalizeRect(R(10, 10, 10, 40)); err != ErrInvalidRect {
		t.Fatalf("expected ErrInvalidRect for zero-width rect, got %v", err)
	}
}

func TestNormalizeCoreConfigDefaults(t *testing.T) {
	cfg, err := NormalizeCoreConfig(CoreConfig{})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if cfg.Screen != R(0, 0, DefaultScreenWidth, DefaultScreenHeight) {
		t.Fatalf("unexpected screen %v", cfg.Screen)
	}
	if cfg.ChannelDepth != DefaultChannelDepth || cfg.MaxDrawingDepth != DefaultMaxDrawingDepth {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if _, err := NormalizeCoreConfig(CoreConfig{MisroutedPerSecond: 100, MisroutedPerMinute: 10}); err == nil {
		t.Fatalf("expected error for non-monotonic misrouted limits")
	}
}
