package gcpspeech

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	speech "cloud.google.com/go/speech/apiv1"
	speechpb "cloud.google.com/go/speech/apiv1/speechpb"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/durationpb"

	"github.com/forPelevin/quicktrim/internal/types"
)

const (
	defaultLanguage = "en-US"
	// Words are grouped into segments no longer than this.
	segmentWindowSec = 4.0
	maxRetries       = 4
)

type recognizer interface {
	LongRunningRecognize(ctx context.Context, req *speechpb.LongRunningRecognizeRequest) (*speechpb.LongRunningRecognizeResponse, error)
}

type clientRecognizer struct {
	c *speech.Client
}

func (r clientRecognizer) LongRunningRecognize(ctx context.Context, req *speechpb.LongRunningRecognizeRequest) (*speechpb.LongRunningRecognizeResponse, error) {
	op, err := r.c.LongRunningRecognize(ctx, req)
	if err != nil {
		return nil, err
	}
	return op.Wait(ctx)
}

type Adapter struct {
	language string
	rec      recognizer
	closeFn  func() error
	sleep    func(context.Context, time.Duration) error
}

// New dials Cloud Speech with credentials from GOOGLE_APPLICATION_CREDENTIALS_JSON
// or GOOGLE_APPLICATION_CREDENTIALS, falling back to application defaults.
func New(ctx context.Context, language string) (*Adapter, error) {
	c, err := speech.NewClient(ctx, ClientOptionsFromEnv()...)
	if err != nil {
		return nil, fmt.Errorf("speech client: %w", err)
	}
	a := newWithRecognizer(language, clientRecognizer{c: c})
	a.closeFn = c.Close
	return a, nil
}

func newWithRecognizer(language string, rec recognizer) *Adapter {
	if strings.TrimSpace(language) == "" {
		language = defaultLanguage
	}
	return &Adapter{language: language, rec: rec, closeFn: func() error { return nil }, sleep: sleepCtx}
}

func (a *Adapter) Close() error { return a.closeFn() }

func ClientOptionsFromEnv() []option.ClientOption {
	creds := strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS_JSON"))
	if creds == "" {
		creds = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	if creds == "" {
		return nil
	}
	if strings.HasPrefix(creds, "{") {
		return []option.ClientOption{option.WithCredentialsJSON([]byte(creds))}
	}
	return []option.ClientOption{option.WithCredentialsFile(creds)}
}

// Transcribe sends the 16 kHz mono wav inline. Inline audio is limited by the
// API to about a minute; longer sources need a GCS upload.
func (a *Adapter) Transcribe(ctx context.Context, wavPath, _ string) (types.Transcript, error) {
	audio, err := os.ReadFile(wavPath)
	if err != nil {
		return types.Transcript{}, err
	}
	if len(audio) == 0 {
		return types.Transcript{Language: a.language}, nil
	}

	req := &speechpb.LongRunningRecognizeRequest{
		Config: a.recognitionConfig(),
		Audio:  &speechpb.RecognitionAudio{AudioSource: &speechpb.RecognitionAudio_Content{Content: audio}},
	}
	resp, err := a.retryLR(ctx, func() (*speechpb.LongRunningRecognizeResponse, error) {
		return a.rec.LongRunningRecognize(ctx, req)
	})
	if err != nil {
		return types.Transcript{}, fmt.Errorf("speech longrunningrecognize: %w", err)
	}
	return types.Transcript{Language: a.language, Segments: groupWords(collectWords(resp), segmentWindowSec)}, nil
}

func (a *Adapter) recognitionConfig() *speechpb.RecognitionConfig {
	return &speechpb.RecognitionConfig{
		LanguageCode:               a.language,
		Encoding:                   speechpb.RecognitionConfig_LINEAR16,
		SampleRateHertz:            16000,
		AudioChannelCount:          1,
		EnableAutomaticPunctuation: true,
		EnableWordTimeOffsets:      true,
		DiarizationConfig: &speechpb.SpeakerDiarizationConfig{
			EnableSpeakerDiarization: true,
		},
	}
}

// collectWords flattens the top alternative of every result. With
// diarization on, the last result repeats all words with speaker tags, so it
// wins when present.
func collectWords(resp *speechpb.LongRunningRecognizeResponse) []types.Word {
	if resp == nil {
		return nil
	}
	var words, tagged []types.Word
	for _, r := range resp.Results {
		if r == nil || len(r.Alternatives) == 0 || r.Alternatives[0] == nil {
			continue
		}
		var cur []types.Word
		hasTags := false
		for _, ww := range r.Alternatives[0].Words {
			if ww == nil || strings.TrimSpace(ww.Word) == "" {
				continue
			}
			w := types.Word{
				Start: durToSec(ww.StartTime),
				End:   durToSec(ww.EndTime),
				Text:  strings.TrimSpace(ww.Word),
				Type:  "word",
			}
			if ww.SpeakerTag > 0 {
				w.SpeakerID = fmt.Sprintf("speaker_%d", ww.SpeakerTag)
				hasTags = true
			}
			cur = append(cur, w)
		}
		if hasTags {
			tagged = cur
		} else {
			words = append(words, cur...)
		}
	}
	if len(tagged) > 0 {
		return tagged
	}
	return words
}

// groupWords starts a new segment on speaker change or once the segment
// would span more than windowSec.
func groupWords(words []types.Word, windowSec float64) []types.Segment {
	var (
		segs []types.Segment
		cur  []types.Word
	)
	flush := func() {
		if len(cur) == 0 {
			return
		}
		texts := make([]string, 0, len(cur))
		for _, w := range cur {
			texts = append(texts, w.Text)
		}
		segs = append(segs, types.Segment{Text: strings.Join(texts, " "), Words: cur})
		cur = nil
	}
	for _, w := range words {
		if len(cur) > 0 && (w.SpeakerID != cur[0].SpeakerID || w.End-cur[0].Start > windowSec) {
			flush()
		}
		cur = append(cur, w)
	}
	flush()
	return segs
}

func durToSec(d *durationpb.Duration) float64 {
	if d == nil {
		return 0
	}
	return float64(d.Seconds) + float64(d.Nanos)/1e9
}

func (a *Adapter) retryLR(ctx context.Context, fn func() (*speechpb.LongRunningRecognizeResponse, error)) (*speechpb.LongRunningRecognizeResponse, error) {
	backoff := 750 * time.Millisecond
	var last error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		resp, err := fn()
		if err == nil {
			return resp, nil
		}
		last = err

		code := status.Code(err)
		if code != codes.Unavailable && code != codes.ResourceExhausted && code != codes.DeadlineExceeded {
			return nil, err
		}
		if attempt == maxRetries {
			break
		}
		if err := a.sleep(ctx, backoff); err != nil {
			return nil, err
		}
		backoff *= 2
		if backoff > 10*time.Second {
			backoff = 10 * time.Second
		}
	}
	return nil, last
}

// sleepCtx waits for d or until ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
