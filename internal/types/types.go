package types

import "time"

type Transcript struct {
	Language            string    `json:"language,omitempty" yaml:"language,omitempty"`
	LanguageProbability float64   `json:"language_probability,omitempty" yaml:"language_probability,omitempty"`
	Segments            []Segment `json:"segments" yaml:"segments"`
}

type Segment struct {
	Text    string `json:"text" yaml:"text"`
	Words   []Word `json:"words" yaml:"words"`
	Removed bool   `json:"removed,omitempty" yaml:"removed,omitempty"`
}

// Equal reports content equality. Segments are addressed by value, so two
// segments with the same text, words and flag are the same segment.
func (s Segment) Equal(o Segment) bool {
	if s.Text != o.Text || s.Removed != o.Removed || len(s.Words) != len(o.Words) {
		return false
	}
	for i := range s.Words {
		if s.Words[i] != o.Words[i] {
			return false
		}
	}
	return true
}

type Word struct {
	Start     float64 `json:"start" yaml:"start"`
	End       float64 `json:"end" yaml:"end"`
	Text      string  `json:"text" yaml:"text"`
	Type      string  `json:"type,omitempty" yaml:"type,omitempty"`
	SpeakerID string  `json:"speaker_id,omitempty" yaml:"speaker_id,omitempty"`
	LogProb   float64 `json:"logprob,omitempty" yaml:"logprob,omitempty"`
	Removed   bool    `json:"removed,omitempty" yaml:"removed,omitempty"`
}

// RemovedRange is a span of source time, in seconds, to cut.
type RemovedRange struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// KeepInterval is a span of source time, in seconds, retained in the output.
type KeepInterval struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// ClipDescriptor references [SourceStart, SourceEnd) milliseconds of Source.
type ClipDescriptor struct {
	Source      string `json:"source"`
	SourceStart int64  `json:"source_start_ms"`
	SourceEnd   int64  `json:"source_end_ms"`
}

func (c ClipDescriptor) Start() time.Duration {
	return time.Duration(c.SourceStart) * time.Millisecond
}

func (c ClipDescriptor) End() time.Duration {
	return time.Duration(c.SourceEnd) * time.Millisecond
}

func (c ClipDescriptor) Duration() time.Duration { return c.End() - c.Start() }

type MediaInfo struct {
	Duration time.Duration
	HasAudio bool
	HasVideo bool
}
