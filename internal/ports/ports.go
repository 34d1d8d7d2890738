package ports

import (
	"context"

	"github.com/forPelevin/quicktrim/internal/types"
)

type MediaTool interface {
	ExtractAudio(ctx context.Context, inVideo, outWav string) error
	Probe(ctx context.Context, inVideo string) (types.MediaInfo, error)
	RenderSequence(ctx context.Context, req RenderRequest, onProgress func(percent int)) error
}

type Transcriber interface {
	Transcribe(ctx context.Context, wavPath, cacheDir string) (types.Transcript, error)
}

// RenderRequest describes a trimmed render: the clips are concatenated in
// order from a single source.
type RenderRequest struct {
	Source   string
	Clips    []types.ClipDescriptor
	Output   string
	HasVideo bool
	HasAudio bool
	// BurnASS, when set, is a subtitle file burned onto the concatenated video.
	BurnASS string
	Preview bool
}
