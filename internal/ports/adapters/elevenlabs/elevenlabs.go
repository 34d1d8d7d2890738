package elevenlabs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/forPelevin/quicktrim/internal/logger"
	"github.com/forPelevin/quicktrim/internal/types"
)

const (
	requestTimeout = 10 * time.Minute

	// Segmentation requested from the API. Chosen so a segment is roughly one
	// subtitle line.
	maxSegmentDurationSec = 4.0
	maxSegmentChars       = 50
)

// ErrNoSegmentedFormat is returned when the response lacks the requested
// segmented_json additional format.
var ErrNoSegmentedFormat = errors.New("elevenlabs: segmented json format not found")

type Adapter struct {
	cfg    Config
	log    *logger.Logger
	client *http.Client
}

// New does not validate cfg; callers run Config.Validate first.
func New(cfg Config, log *logger.Logger) *Adapter {
	return &Adapter{
		cfg:    cfg.withDefaults(),
		log:    logger.OrNop(log),
		client: &http.Client{Timeout: requestTimeout + time.Minute},
	}
}

// Transcribe uploads the audio file to the speech-to-text endpoint. cacheDir
// receives the raw response for inspection.
func (a *Adapter) Transcribe(ctx context.Context, wavPath, cacheDir string) (types.Transcript, error) {
	body, contentType, err := a.buildForm(wavPath)
	if err != nil {
		return types.Transcript{}, err
	}

	reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	endpoint, err := url.JoinPath(a.cfg.BaseURL, "v1", "speech-to-text")
	if err != nil {
		return types.Transcript{}, fmt.Errorf("elevenlabs endpoint: %w", err)
	}
	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, endpoint, body)
	if err != nil {
		return types.Transcript{}, err
	}
	req.Header.Set("xi-api-key", a.cfg.APIKey)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		if errors.Is(reqCtx.Err(), context.DeadlineExceeded) {
			return types.Transcript{}, fmt.Errorf("elevenlabs timeout after %s (model=%s)", requestTimeout, a.cfg.Model)
		}
		return types.Transcript{}, err
	}
	defer resp.Body.Close()

	rb, err := io.ReadAll(resp.Body)
	if err != nil {
		return types.Transcript{}, fmt.Errorf("elevenlabs read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return types.Transcript{}, fmt.Errorf("elevenlabs status %d: %s", resp.StatusCode, truncate(redactSecrets(string(rb), a.cfg.APIKey), 400))
	}
	if cacheDir != "" {
		p := filepath.Join(cacheDir, "elevenlabs.json")
		if err := os.WriteFile(p, rb, 0o644); err != nil {
			a.log.Warn("cache elevenlabs response", "path", p, "error", err)
		}
	}
	return parseResponse(rb)
}

func (a *Adapter) buildForm(wavPath string) (io.Reader, string, error) {
	f, err := os.Open(wavPath)
	if err != nil {
		return nil, "", err
	}
	defer f.Close()

	formats, err := json.Marshal([]map[string]any{{
		"format":                 "segmented_json",
		"max_segment_duration_s": maxSegmentDurationSec,
		"max_segment_chars":      maxSegmentChars,
	}})
	if err != nil {
		return nil, "", err
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", filepath.Base(wavPath))
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(fw, f); err != nil {
		return nil, "", fmt.Errorf("read audio: %w", err)
	}
	fields := [][2]string{
		{"model_id", a.cfg.Model},
		{"timestamps_granularity", "word"},
		{"diarize", "true"},
		{"additional_formats", string(formats)},
	}
	for _, kv := range fields {
		if err := mw.WriteField(kv[0], kv[1]); err != nil {
			return nil, "", err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return &body, mw.FormDataContentType(), nil
}

type speechToTextResponse struct {
	LanguageCode        string  `json:"language_code"`
	LanguageProbability float64 `json:"language_probability"`
	AdditionalFormats   []struct {
		RequestedFormat string `json:"requested_format"`
		Content         string `json:"content"`
	} `json:"additional_formats"`
}

// parseResponse decodes the segmented_json content embedded as a string in
// the first additional format.
func parseResponse(b []byte) (types.Transcript, error) {
	var raw speechToTextResponse
	if err := json.Unmarshal(b, &raw); err != nil {
		return types.Transcript{}, fmt.Errorf("decode elevenlabs response: %w", err)
	}
	if len(raw.AdditionalFormats) == 0 || strings.TrimSpace(raw.AdditionalFormats[0].Content) == "" {
		return types.Transcript{}, ErrNoSegmentedFormat
	}

	var seg struct {
		Segments []types.Segment `json:"segments"`
	}
	if err := json.Unmarshal([]byte(raw.AdditionalFormats[0].Content), &seg); err != nil {
		return types.Transcript{}, fmt.Errorf("decode segmented json: %w", err)
	}
	for i := range seg.Segments {
		seg.Segments[i].Removed = false
		for j := range seg.Segments[i].Words {
			seg.Segments[i].Words[j].Removed = false
		}
	}
	return types.Transcript{
		Language:            raw.LanguageCode,
		LanguageProbability: raw.LanguageProbability,
		Segments:            seg.Segments,
	}, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

var (
	xiKeyHeaderRE = regexp.MustCompile(`(?i)(xi-api-key\s*[:=]\s*)([^\n\r,;]+)`)
	apiKeyFieldRE = regexp.MustCompile(`(?i)(api[_-]?key\s*[:=]\s*)([^\n\r,;]+)`)
)

func redactSecrets(s, apiKey string) string {
	if s == "" {
		return s
	}
	out := s
	if apiKey != "" {
		out = strings.ReplaceAll(out, apiKey, "[REDACTED]")
	}
	out = xiKeyHeaderRE.ReplaceAllString(out, "${1}[REDACTED]")
	out = apiKeyFieldRE.ReplaceAllString(out, "${1}[REDACTED]")
	return out
}
