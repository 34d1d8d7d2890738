package ffmpeg

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/forPelevin/quicktrim/internal/ports"
	"github.com/forPelevin/quicktrim/internal/types"
)

type Adapter struct {
	ffmpeg  string
	ffprobe string
}

func New(ffmpegPath, ffprobePath string) *Adapter {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &Adapter{ffmpeg: ffmpegPath, ffprobe: ffprobePath}
}

func (a *Adapter) ExtractAudio(ctx context.Context, inVideo, outWav string) error {
	cmd := exec.CommandContext(ctx, a.ffmpeg,
		"-y",
		"-i", inVideo,
		"-vn",
		"-ac", "1",
		"-ar", "16000",
		"-f", "wav",
		outWav,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg extract audio: %w\n%s", err, string(b))
	}
	return nil
}

func (a *Adapter) Probe(ctx context.Context, inVideo string) (types.MediaInfo, error) {
	cmd := exec.CommandContext(ctx, a.ffprobe,
		"-v", "error",
		"-show_entries", "format=duration:stream=codec_type",
		"-of", "json",
		inVideo,
	)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return types.MediaInfo{}, fmt.Errorf("ffprobe: %w\n%s", err, stderr.String())
	}
	return parseProbe(stdout.Bytes())
}

func parseProbe(b []byte) (types.MediaInfo, error) {
	var raw struct {
		Streams []struct {
			CodecType string `json:"codec_type"`
		} `json:"streams"`
		Format struct {
			Duration string `json:"duration"`
		} `json:"format"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return types.MediaInfo{}, fmt.Errorf("parse ffprobe output: %w", err)
	}
	s := strings.TrimSpace(raw.Format.Duration)
	sec, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return types.MediaInfo{}, fmt.Errorf("parse duration %q: %w", s, err)
	}
	info := types.MediaInfo{Duration: time.Duration(sec * float64(time.Second))}
	for _, st := range raw.Streams {
		switch st.CodecType {
		case "audio":
			info.HasAudio = true
		case "video":
			info.HasVideo = true
		}
	}
	return info, nil
}

// RenderSequence cuts req.Clips out of req.Source and concatenates them into
// req.Output in a single ffmpeg pass.
func (a *Adapter) RenderSequence(ctx context.Context, req ports.RenderRequest, onProgress func(int)) error {
	if len(req.Clips) == 0 {
		return errors.New("ffmpeg render: empty clip sequence")
	}
	if !req.HasVideo && !req.HasAudio {
		return errors.New("ffmpeg render: source has neither video nor audio")
	}
	if onProgress == nil {
		onProgress = func(int) {}
	}

	cmd := exec.CommandContext(ctx, a.ffmpeg, renderArgs(req)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("ffmpeg render: %w", err)
	}

	total := totalDuration(req.Clips)
	onProgress(0)
	readErr := readProgress(stdout, total, onProgress)
	if readErr != nil {
		_, _ = io.Copy(io.Discard, stdout)
	}
	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("ffmpeg render: %w\n%s", err, stderr.String())
	}
	if readErr != nil {
		return fmt.Errorf("ffmpeg progress: %w", readErr)
	}
	return nil
}

func renderArgs(req ports.RenderRequest) []string {
	graph, vOut, aOut := buildFilterGraph(req)
	args := []string{
		"-y",
		"-nostats",
		"-loglevel", "error",
		"-progress", "pipe:1",
		"-i", req.Source,
		"-filter_complex", graph,
	}
	crf, preset, abr := "18", "veryfast", "192k"
	if req.Preview {
		crf, preset, abr = "30", "ultrafast", "96k"
	}
	if vOut != "" {
		args = append(args, "-map", vOut, "-c:v", "libx264", "-preset", preset, "-crf", crf)
	}
	if aOut != "" {
		args = append(args, "-map", aOut, "-c:a", "aac", "-b:a", abr)
	}
	args = append(args, "-movflags", "+faststart", req.Output)
	return args
}

// buildFilterGraph trims every clip out of input 0, resets its timestamps
// and concatenates the pieces. It returns the graph and its output labels;
// a label is empty when the source lacks that stream.
func buildFilterGraph(req ports.RenderRequest) (graph, vOut, aOut string) {
	var b strings.Builder
	for i, c := range req.Clips {
		st, en := fmtSeconds(c.Start()), fmtSeconds(c.End())
		if req.HasVideo {
			fmt.Fprintf(&b, "[0:v]trim=start=%s:end=%s,setpts=PTS-STARTPTS[v%d];", st, en, i)
		}
		if req.HasAudio {
			fmt.Fprintf(&b, "[0:a]atrim=start=%s:end=%s,asetpts=PTS-STARTPTS[a%d];", st, en, i)
		}
	}
	for i := range req.Clips {
		if req.HasVideo {
			fmt.Fprintf(&b, "[v%d]", i)
		}
		if req.HasAudio {
			fmt.Fprintf(&b, "[a%d]", i)
		}
	}
	fmt.Fprintf(&b, "concat=n=%d:v=%d:a=%d", len(req.Clips), flag(req.HasVideo), flag(req.HasAudio))
	if req.HasVideo {
		b.WriteString("[cv]")
		vOut = "[cv]"
	}
	if req.HasAudio {
		b.WriteString("[outa]")
		aOut = "[outa]"
	}

	var post []string
	if req.HasVideo && req.BurnASS != "" {
		post = append(post, "subtitles="+escapeFilterPath(req.BurnASS))
	}
	if req.HasVideo && req.Preview {
		post = append(post, "scale=-2:480")
	}
	if len(post) > 0 {
		fmt.Fprintf(&b, ";[cv]%s[outv]", strings.Join(post, ","))
		vOut = "[outv]"
	}
	return b.String(), vOut, aOut
}

func flag(b bool) int {
	if b {
		return 1
	}
	return 0
}

func totalDuration(clips []types.ClipDescriptor) time.Duration {
	var d time.Duration
	for _, c := range clips {
		d += c.Duration()
	}
	return d
}

func fmtSeconds(d time.Duration) string {
	sec := float64(d) / float64(time.Second)
	return strconv.FormatFloat(sec, 'f', 3, 64)
}

func escapeFilterPath(p string) string {
	p = strings.ReplaceAll(p, "\\", "\\\\")
	p = strings.ReplaceAll(p, ":", "\\:")
	for _, c := range []string{"'", "[", "]", ",", ";"} {
		p = strings.ReplaceAll(p, c, "\\"+c)
	}
	return p
}
