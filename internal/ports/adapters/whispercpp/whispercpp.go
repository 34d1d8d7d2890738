package whispercpp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/forPelevin/quicktrim/internal/types"
)

type Adapter struct {
	bin   string
	model string
}

func New(binPath, modelPath string) *Adapter {
	return &Adapter{bin: binPath, model: modelPath}
}

func (a *Adapter) Transcribe(ctx context.Context, wavPath, cacheDir string) (types.Transcript, error) {
	outPrefix := filepath.Join(cacheDir, "whisper")
	args := []string{
		"-m", a.model,
		"-f", wavPath,
		"-ojf",
		"-of", outPrefix,
	}
	cmd := exec.CommandContext(ctx, a.bin, args...)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return types.Transcript{}, fmt.Errorf("whisper.cpp failed: %w\n%s", err, string(b))
	}

	jb, err := os.ReadFile(outPrefix + ".json")
	if err != nil {
		return types.Transcript{}, err
	}
	return parseOutput(jb)
}

type output struct {
	Result struct {
		Language string `json:"language"`
	} `json:"result"`
	Transcription []struct {
		Text    string  `json:"text"`
		Offsets offsets `json:"offsets"`
		Tokens  []struct {
			Text    string  `json:"text"`
			Offsets offsets `json:"offsets"`
			P       float64 `json:"p"`
		} `json:"tokens"`
	} `json:"transcription"`
}

// offsets are milliseconds.
type offsets struct {
	From int64 `json:"from"`
	To   int64 `json:"to"`
}

// parseOutput turns whisper.cpp full JSON into a transcript. Sub-word tokens
// are glued back into words: a token with a leading space starts a new word.
func parseOutput(b []byte) (types.Transcript, error) {
	var raw output
	if err := json.Unmarshal(b, &raw); err != nil {
		return types.Transcript{}, fmt.Errorf("parse whisper.cpp json: %w", err)
	}

	tr := types.Transcript{Language: raw.Result.Language}
	for _, seg := range raw.Transcription {
		var words []types.Word
		for _, tok := range seg.Tokens {
			if strings.HasPrefix(tok.Text, "[_") {
				continue
			}
			text := strings.TrimSpace(tok.Text)
			if text == "" {
				continue
			}
			start, end := float64(tok.Offsets.From)/1000, float64(tok.Offsets.To)/1000
			if len(words) == 0 || strings.HasPrefix(tok.Text, " ") {
				words = append(words, types.Word{Start: start, End: end, Text: text, Type: "word"})
				continue
			}
			last := &words[len(words)-1]
			last.Text += text
			if end > last.End {
				last.End = end
			}
		}
		text := strings.TrimSpace(seg.Text)
		if text == "" && len(words) == 0 {
			continue
		}
		if len(words) == 0 {
			words = []types.Word{{
				Start: float64(seg.Offsets.From) / 1000,
				End:   float64(seg.Offsets.To) / 1000,
				Text:  text,
				Type:  "word",
			}}
		}
		tr.Segments = append(tr.Segments, types.Segment{Text: text, Words: words})
	}
	return tr, nil
}
