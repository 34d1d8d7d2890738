package pipeline

import (
	"context"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/forPelevin/quicktrim/internal/logger"
	"github.com/forPelevin/quicktrim/internal/ports/adapters/elevenlabs"
)

func TestBuildRunOutDir(t *testing.T) {
	now := time.Date(2026, 2, 12, 10, 30, 45, 1234, time.UTC)
	got := buildRunOutDir("out", "/tmp/My Cool.Video.mp4", now)
	base := filepath.Base(got)
	if filepath.Dir(got) != "out" {
		t.Fatalf("unexpected parent dir: %s", got)
	}
	if !strings.HasPrefix(base, "my-cool-video-20260212-103045Z-") {
		t.Fatalf("unexpected run dir format: %s", base)
	}
	if len(base) != len("my-cool-video-20260212-103045Z-")+6 {
		t.Fatalf("unexpected run dir suffix length: %s", base)
	}
}

func TestNormalizePathSegment(t *testing.T) {
	tests := map[string]string{
		"  My Cool.Video  ": "my-cool-video",
		"___":               "",
		"abc123":            "abc123",
		"Name (v2)!":        "name-v2",
	}
	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			if got := normalizePathSegment(in); got != want {
				t.Fatalf("normalizePathSegment(%q) = %q, want %q", in, got, want)
			}
		})
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "elevenlabs ok", cfg: Config{Provider: ProviderElevenLabs, ElevenLabs: elevenlabs.Config{APIKey: "k"}}},
		{name: "elevenlabs missing key", cfg: Config{Provider: ProviderElevenLabs}, wantErr: true},
		{
			name: "elevenlabs bad base url",
			cfg: Config{Provider: ProviderElevenLabs, ElevenLabs: elevenlabs.Config{
				APIKey:  "k",
				BaseURL: "http://api.elevenlabs.io",
			}},
			wantErr: true,
		},
		{name: "whisper ok", cfg: Config{Provider: ProviderWhisperCPP, WhisperBin: "w", WhisperModel: "m"}},
		{name: "whisper missing model", cfg: Config{Provider: ProviderWhisperCPP, WhisperBin: "w"}, wantErr: true},
		{name: "gcp ok", cfg: Config{Provider: ProviderGCP}},
		{name: "unknown provider", cfg: Config{Provider: "openai"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr && err == nil {
				t.Fatalf("expected error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestTranscribe_MissingInput(t *testing.T) {
	cfg := Config{Provider: ProviderWhisperCPP, WhisperBin: "w", WhisperModel: "m"}
	if _, err := Transcribe(context.Background(), cfg, filepath.Join(t.TempDir(), "nope.mp4")); err == nil {
		t.Fatalf("expected error for missing input")
	}
}

func TestProgressLogger_LogsEveryTenPercent(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	report := progressLogger(logger.FromZap(zap.New(core)).With("kind", "export"))
	for _, p := range []int{0, 3, 9, 10, 15, 42, 99, 100} {
		report(p)
	}

	var got []int
	for _, e := range logs.FilterMessage("render progress").All() {
		fields := e.ContextMap()
		if fields["kind"] != "export" {
			t.Fatalf("missing kind field: %v", fields)
		}
		got = append(got, int(fields["percent"].(int64)))
	}
	want := []int{0, 10, 42, 99, 100}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("logged percents = %v, want %v", got, want)
	}
}
