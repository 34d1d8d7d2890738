//go:build integration

package itest

import (
	"context"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/forPelevin/quicktrim/internal/domain/edit"
	"github.com/forPelevin/quicktrim/internal/logger"
	"github.com/forPelevin/quicktrim/internal/pipeline"
	"github.com/forPelevin/quicktrim/internal/ports/adapters/elevenlabs"
	"github.com/forPelevin/quicktrim/internal/ports/adapters/ffmpeg"
	"github.com/forPelevin/quicktrim/internal/session"
	"github.com/forPelevin/quicktrim/internal/types"
)

// makeFixture builds a 10s clip with a test tone.
func makeFixture(t *testing.T, dir string) string {
	t.Helper()
	in := filepath.Join(dir, "input.mp4")
	ff := exec.Command("ffmpeg",
		"-y",
		"-f", "lavfi",
		"-i", "color=c=black:s=640x360:d=10",
		"-f", "lavfi",
		"-i", "sine=frequency=440:duration=10",
		"-shortest",
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		"-c:a", "aac",
		in,
	)
	if b, err := ff.CombinedOutput(); err != nil {
		t.Fatalf("ffmpeg fixture failed: %v\n%s", err, string(b))
	}
	return in
}

func TestE2E_ExportTrimsRemovedRanges(t *testing.T) {
	tmp := t.TempDir()
	in := makeFixture(t, tmp)

	tr := types.Transcript{Segments: []types.Segment{
		{Text: "one two", Words: []types.Word{
			{Start: 0.5, End: 1.5, Text: "one", Type: "word"},
			{Start: 2.0, End: 4.0, Text: "two", Type: "word"},
		}},
		{Text: "three four", Words: []types.Word{
			{Start: 6.0, End: 7.0, Text: "three", Type: "word"},
			{Start: 7.0, End: 8.0, Text: "four", Type: "word"},
		}},
	}}
	s := session.New(in, types.MediaInfo{Duration: 10 * time.Second, HasVideo: true, HasAudio: true}, "fixture", tr)
	s = s.WithState(edit.ReduceAll(s.State(),
		edit.ToggleWord{Word: tr.Segments[0].Words[1]},
		edit.RemoveSegment{Segment: tr.Segments[1]},
	))
	dir := filepath.Join(tmp, "run")
	path := filepath.Join(dir, session.FileName)
	if err := session.Save(path, s); err != nil {
		t.Fatalf("save session: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	for _, preview := range []bool{false, true} {
		res, err := pipeline.Export(ctx, pipeline.Config{
			FFmpegPath:  "ffmpeg",
			FFprobePath: "ffprobe",
			Log:         logger.FromZap(zaptest.NewLogger(t)),
		}, path, pipeline.ExportOptions{Preview: preview, Subtitles: true})
		if err != nil {
			t.Fatalf("export (preview=%v): %v", preview, err)
		}
		info, err := ffmpeg.New("ffmpeg", "ffprobe").Probe(ctx, res.Output)
		if err != nil {
			t.Fatalf("probe output: %v", err)
		}
		// 10s minus [2,4] and [6,8].
		if got := info.Duration.Seconds(); math.Abs(got-6.0) > 0.25 {
			t.Fatalf("output duration = %.3fs, want ~6s", got)
		}
		if !info.HasAudio {
			t.Fatalf("output lost its audio track")
		}
		if res.Subtitles == "" {
			t.Fatalf("expected subtitles to be burned")
		}
	}
	if _, err := os.Stat(filepath.Join(dir, "plan.json")); err != nil {
		t.Fatalf("missing plan: %v", err)
	}
}

func TestE2E_TranscribeElevenLabs(t *testing.T) {
	if os.Getenv("ELEVENLABS_API_KEY") == "" {
		t.Skip("ELEVENLABS_API_KEY is required for the transcription itest")
	}

	tmp := t.TempDir()
	wav := filepath.Join(tmp, "speech.wav")
	text := "Um, so here is the key idea. Step one: do this. Step two: measure results."
	if b, err := exec.Command("espeak-ng", "-w", wav, text).CombinedOutput(); err != nil {
		t.Fatalf("espeak-ng failed: %v\n%s", err, string(b))
	}
	in := filepath.Join(tmp, "input.mp4")
	ff := exec.Command("ffmpeg",
		"-y",
		"-f", "lavfi",
		"-i", "color=c=black:s=640x360:d=15",
		"-i", wav,
		"-shortest",
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		"-c:a", "aac",
		in,
	)
	if b, err := ff.CombinedOutput(); err != nil {
		t.Fatalf("ffmpeg fixture failed: %v\n%s", err, string(b))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Minute)
	defer cancel()

	cfg := pipeline.Config{
		OutDir:      filepath.Join(tmp, "out"),
		CacheDir:    filepath.Join(tmp, "cache"),
		FFmpegPath:  "ffmpeg",
		FFprobePath: "ffprobe",
		Provider:    pipeline.ProviderElevenLabs,
		ElevenLabs:  elevenlabs.Config{APIKey: os.Getenv("ELEVENLABS_API_KEY")},
		Log:         logger.FromZap(zaptest.NewLogger(t)),
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("config: %v", err)
	}
	path, err := pipeline.Transcribe(ctx, cfg, in)
	if err != nil {
		t.Fatalf("transcribe failed: %v", err)
	}
	if _, err := pipeline.Edit(cfg, path, pipeline.EditOps{AddFillers: []string{"um"}}); err != nil {
		t.Fatalf("edit: %v", err)
	}
	out, err := pipeline.Show(path, edit.ViewParagraph)
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	if !strings.Contains(strings.ToLower(out), "idea") {
		t.Fatalf("unexpected transcript:\n%s", out)
	}
}
