package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/forPelevin/quicktrim/internal/domain/trim"
	"github.com/forPelevin/quicktrim/internal/logger"
	"github.com/forPelevin/quicktrim/internal/ports"
	"github.com/forPelevin/quicktrim/internal/ports/adapters/elevenlabs"
	"github.com/forPelevin/quicktrim/internal/ports/adapters/ffmpeg"
	"github.com/forPelevin/quicktrim/internal/ports/adapters/gcpspeech"
	"github.com/forPelevin/quicktrim/internal/ports/adapters/whispercpp"
	"github.com/forPelevin/quicktrim/internal/session"
	"github.com/forPelevin/quicktrim/internal/usecase"
)

const (
	ProviderElevenLabs = "elevenlabs"
	ProviderWhisperCPP = "whispercpp"
	ProviderGCP        = "gcp"
)

type Config struct {
	OutDir string
	// Log may be nil.
	Log *logger.Logger

	// CacheDir is the base directory for local artifacts (audio, raw provider
	// responses). If empty, defaults to ".cache".
	CacheDir string

	FFmpegPath  string
	FFprobePath string

	Provider string

	ElevenLabs elevenlabs.Config

	WhisperBin   string
	WhisperModel string

	GCPLanguage string
}

// Validate checks the transcription provider settings.
func (c Config) Validate() error {
	switch c.Provider {
	case ProviderElevenLabs:
		return c.ElevenLabs.Validate()
	case ProviderWhisperCPP:
		if c.WhisperBin == "" {
			return errors.New("whisper binary path is required")
		}
		if c.WhisperModel == "" {
			return errors.New("whisper model path is required")
		}
		return nil
	case ProviderGCP:
		return nil
	default:
		return fmt.Errorf("unknown provider %q (want %s, %s or %s)", c.Provider, ProviderElevenLabs, ProviderWhisperCPP, ProviderGCP)
	}
}

func (c Config) log() *logger.Logger { return logger.OrNop(c.Log) }

func (c Config) media() *ffmpeg.Adapter {
	return ffmpeg.New(c.FFmpegPath, c.FFprobePath)
}

// newTranscriber returns the configured provider and a release func.
func (c Config) newTranscriber(ctx context.Context) (ports.Transcriber, func(), error) {
	switch c.Provider {
	case ProviderElevenLabs:
		return elevenlabs.New(c.ElevenLabs, c.log()), func() {}, nil
	case ProviderWhisperCPP:
		return whispercpp.New(c.WhisperBin, c.WhisperModel), func() {}, nil
	case ProviderGCP:
		a, err := gcpspeech.New(ctx, c.GCPLanguage)
		if err != nil {
			return nil, nil, err
		}
		return a, func() { _ = a.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown provider %q", c.Provider)
	}
}

// Transcribe extracts and transcribes input and writes a fresh session into a
// new run directory under OutDir. It returns the session file path.
func Transcribe(ctx context.Context, cfg Config, input string) (string, error) {
	log := cfg.log()
	if input == "" {
		return "", errors.New("input is empty")
	}
	if _, err := os.Stat(input); err != nil {
		return "", fmt.Errorf("stat input: %w", err)
	}

	asr, release, err := cfg.newTranscriber(ctx)
	if err != nil {
		return "", err
	}
	defer release()
	uc := usecase.New(usecase.Deps{Media: cfg.media(), ASR: asr, Log: log})

	baseCache := cfg.CacheDir
	if baseCache == "" {
		baseCache = ".cache"
	}
	cacheDir := filepath.Join(baseCache, "runs", hash(input))
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return "", err
	}

	outDir := cfg.OutDir
	if outDir == "" {
		outDir = "out"
	}
	runOutDir := buildRunOutDir(outDir, input, time.Now().UTC())
	if err := os.MkdirAll(runOutDir, 0o755); err != nil {
		return "", err
	}
	log.Info("transcribing", "cache", cacheDir, "run_dir", runOutDir)
	res, err := uc.Transcribe(ctx, usecase.TranscribeInput{Source: input, CacheDir: cacheDir})
	if err != nil {
		return "", err
	}

	s := session.New(input, res.Media, cfg.Provider, res.Transcript)
	path := filepath.Join(runOutDir, session.FileName)
	if err := session.Save(path, s); err != nil {
		return "", err
	}
	log.Info("session written",
		"session_id", s.ID.String(),
		"segments", len(s.Transcript.Segments),
		"duration", res.Media.Duration.Round(time.Millisecond),
		"path", path,
	)
	return path, nil
}

// Plan loads a session and resolves its current removals.
func Plan(sessionPath string) (trim.Plan, error) {
	s, err := session.Load(sessionPath)
	if err != nil {
		return trim.Plan{}, err
	}
	return usecase.New(usecase.Deps{}).Plan(s.Transcript, s.Media(), s.Source)
}

type ExportOptions struct {
	// Output defaults to trimmed.mp4 (preview.mp4 for previews) next to the session.
	Output    string
	Preview   bool
	Subtitles bool
}

// Export renders the session's kept clips and writes plan.json next to the
// session file.
func Export(ctx context.Context, cfg Config, sessionPath string, opts ExportOptions) (usecase.RenderResult, error) {
	s, err := session.Load(sessionPath)
	if err != nil {
		return usecase.RenderResult{}, err
	}
	dir := filepath.Dir(session.Path(sessionPath))

	out := opts.Output
	if out == "" {
		name := "trimmed.mp4"
		if opts.Preview {
			name = "preview.mp4"
		}
		out = filepath.Join(dir, name)
	}

	kind := "export"
	if opts.Preview {
		kind = "preview"
	}
	log := cfg.log().With("kind", kind, "session_id", s.ID.String())
	uc := usecase.New(usecase.Deps{Media: cfg.media(), Log: log})
	log.Info("rendering", "output", out)
	res, err := uc.Render(ctx, usecase.RenderInput{
		Source:     s.Source,
		Transcript: s.Transcript,
		Media:      s.Media(),
		Output:     out,
		Preview:    opts.Preview,
		Subtitles:  opts.Subtitles,
		WorkDir:    dir,
		OnProgress: progressLogger(log),
	})
	if err != nil {
		return usecase.RenderResult{}, err
	}

	b, err := json.MarshalIndent(res.Plan, "", "  ")
	if err != nil {
		return usecase.RenderResult{}, fmt.Errorf("marshal plan: %w", err)
	}
	planPath := filepath.Join(dir, "plan.json")
	if err := os.WriteFile(planPath, b, 0o644); err != nil {
		return usecase.RenderResult{}, err
	}
	log.Info("render written",
		"clips", len(res.Plan.Clips),
		"duration", res.Duration.Round(time.Millisecond),
		"output", res.Output,
		"plan", planPath,
	)
	return res, nil
}

// progressLogger logs every tenth percent.
func progressLogger(log *logger.Logger) func(int) {
	last := -1
	return func(p int) {
		if p/10 == last {
			return
		}
		last = p / 10
		log.Info("render progress", "percent", p)
	}
}

func buildRunOutDir(outRoot, input string, now time.Time) string {
	name := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	name = normalizePathSegment(name)
	if name == "" {
		name = "input"
	}
	ts := now.UTC().Format("20060102-150405Z")
	runSeed := fmt.Sprintf("%s|%d", input, now.UTC().UnixNano())
	suffix := hash(runSeed)[:6]
	return filepath.Join(outRoot, fmt.Sprintf("%s-%s-%s", name, ts, suffix))
}

func normalizePathSegment(s string) string {
	var b strings.Builder
	prevDash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			b.WriteRune(r)
			prevDash = false
		default:
			if !prevDash {
				b.WriteByte('-')
				prevDash = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}

func hash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:12]
}

// ensure adapters implement ports
var _ ports.MediaTool = (*ffmpeg.Adapter)(nil)
var _ ports.Transcriber = (*whispercpp.Adapter)(nil)
var _ ports.Transcriber = (*elevenlabs.Adapter)(nil)
var _ ports.Transcriber = (*gcpspeech.Adapter)(nil)
