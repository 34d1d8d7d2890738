package usecase

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/forPelevin/quicktrim/internal/domain/subtitles"
	"github.com/forPelevin/quicktrim/internal/domain/trim"
	"github.com/forPelevin/quicktrim/internal/logger"
	"github.com/forPelevin/quicktrim/internal/ports"
	"github.com/forPelevin/quicktrim/internal/types"
)

// ErrNothingToKeep is returned when every moment of the source is cut.
var ErrNothingToKeep = errors.New("nothing left to keep: every part of the source is removed")

type Deps struct {
	Media ports.MediaTool
	ASR   ports.Transcriber
	// Log may be nil.
	Log *logger.Logger
}

type Usecase struct{ d Deps }

func New(d Deps) Usecase {
	d.Log = logger.OrNop(d.Log)
	return Usecase{d: d}
}

type TranscribeInput struct {
	Source   string
	CacheDir string
}

type TranscribeResult struct {
	Transcript types.Transcript
	Media      types.MediaInfo
}

// Transcribe probes the source while its audio track is extracted and
// transcribed.
func (u Usecase) Transcribe(ctx context.Context, in TranscribeInput) (TranscribeResult, error) {
	if err := os.MkdirAll(in.CacheDir, 0o755); err != nil {
		return TranscribeResult{}, err
	}
	wav := filepath.Join(in.CacheDir, "audio.wav")

	var res TranscribeResult
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		info, err := u.d.Media.Probe(gctx, in.Source)
		if err != nil {
			return err
		}
		res.Media = info
		return nil
	})
	g.Go(func() error {
		if err := u.d.Media.ExtractAudio(gctx, in.Source, wav); err != nil {
			return err
		}
		tr, err := u.d.ASR.Transcribe(gctx, wav, in.CacheDir)
		if err != nil {
			return fmt.Errorf("transcribe: %w", err)
		}
		res.Transcript = tr
		return nil
	})
	if err := g.Wait(); err != nil {
		return TranscribeResult{}, err
	}
	return res, nil
}

// Plan resolves the transcript's removals against the source duration.
func (u Usecase) Plan(tr types.Transcript, media types.MediaInfo, source string) (trim.Plan, error) {
	return trim.Build(tr, media.Duration.Seconds(), source)
}

type RenderInput struct {
	Source     string
	Transcript types.Transcript
	Media      types.MediaInfo
	Output     string
	Preview    bool
	// Subtitles burns karaoke captions of the kept words into the output.
	Subtitles  bool
	WorkDir    string
	OnProgress func(percent int)
}

type RenderResult struct {
	Plan      trim.Plan
	Output    string
	Subtitles string
	// Duration is the length of the rendered output.
	Duration time.Duration
}

func (u Usecase) Render(ctx context.Context, in RenderInput) (RenderResult, error) {
	plan, err := u.Plan(in.Transcript, in.Media, in.Source)
	if err != nil {
		return RenderResult{}, err
	}
	if len(plan.Clips) == 0 {
		return RenderResult{}, ErrNothingToKeep
	}
	if err := os.MkdirAll(filepath.Dir(in.Output), 0o755); err != nil {
		return RenderResult{}, err
	}

	tl := trim.NewTimeline(plan.Clips)
	res := RenderResult{Plan: plan, Output: in.Output, Duration: tl.Duration()}
	switch {
	case !in.Subtitles:
	case !in.Media.HasVideo:
		u.d.Log.Warn("captions skipped: source has no video", "source", in.Source)
	default:
		if res.Subtitles, err = u.writeCaptions(in, tl); err != nil {
			return RenderResult{}, err
		}
	}

	req := ports.RenderRequest{
		Source:   in.Source,
		Clips:    plan.Clips,
		Output:   in.Output,
		HasVideo: in.Media.HasVideo,
		HasAudio: in.Media.HasAudio,
		BurnASS:  res.Subtitles,
		Preview:  in.Preview,
	}
	if err := u.d.Media.RenderSequence(ctx, req, in.OnProgress); err != nil {
		return RenderResult{}, err
	}
	return res, nil
}

// writeCaptions writes captions.ass into the work dir and returns its path,
// or "" when no kept word survives the cut.
func (u Usecase) writeCaptions(in RenderInput, tl trim.Timeline) (string, error) {
	ass, err := subtitles.RenderKaraokeASS(in.Transcript, tl)
	if errors.Is(err, subtitles.ErrNoWords) {
		u.d.Log.Warn("captions skipped: no kept words", "output", in.Output)
		return "", nil
	}
	if err != nil {
		return "", err
	}
	dir := in.WorkDir
	if dir == "" {
		dir = filepath.Dir(in.Output)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	p := filepath.Join(dir, "captions.ass")
	if err := writeFile(p, []byte(ass)); err != nil {
		return "", err
	}
	return p, nil
}

func writeFile(path string, b []byte) error {
	return os.WriteFile(path, b, 0o644)
}
