// Package session persists an edit session: the transcript with its removal
// flags plus the filler-word set, as a YAML file next to the run artifacts.
package session

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/forPelevin/quicktrim/internal/domain/edit"
	"github.com/forPelevin/quicktrim/internal/types"
)

const FileName = "session.yaml"

var ErrNotFound = errors.New("session not found")

type Session struct {
	ID          uuid.UUID        `yaml:"id"`
	Source      string           `yaml:"source"`
	DurationSec float64          `yaml:"duration_sec"`
	HasVideo    bool             `yaml:"has_video"`
	HasAudio    bool             `yaml:"has_audio"`
	Provider    string           `yaml:"provider"`
	Language    string           `yaml:"language,omitempty"`
	CreatedAt   time.Time        `yaml:"created_at"`
	FillerWords []string         `yaml:"filler_words,omitempty"`
	Transcript  types.Transcript `yaml:"transcript"`
}

func New(source string, info types.MediaInfo, provider string, tr types.Transcript) Session {
	return Session{
		ID:          uuid.New(),
		Source:      source,
		DurationSec: info.Duration.Seconds(),
		HasVideo:    info.HasVideo,
		HasAudio:    info.HasAudio,
		Provider:    provider,
		Language:    tr.Language,
		CreatedAt:   time.Now().UTC(),
		Transcript:  tr,
	}
}

// Media reports the probed source facts stored with the session.
func (s Session) Media() types.MediaInfo {
	return types.MediaInfo{
		Duration: time.Duration(s.DurationSec * float64(time.Second)),
		HasVideo: s.HasVideo,
		HasAudio: s.HasAudio,
	}
}

// State returns the editable part of the session.
func (s Session) State() edit.State {
	return edit.State{Transcript: s.Transcript, FillerWords: s.FillerWords}
}

// WithState returns a copy of s carrying st.
func (s Session) WithState(st edit.State) Session {
	s.Transcript = st.Transcript
	s.FillerWords = st.FillerWords
	return s
}

// Path resolves a session argument: a directory means its session.yaml.
func Path(p string) string {
	if fi, err := os.Stat(p); err == nil && fi.IsDir() {
		return filepath.Join(p, FileName)
	}
	return p
}

func Load(p string) (Session, error) {
	p = Path(p)
	b, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Session{}, fmt.Errorf("%w: %s", ErrNotFound, p)
		}
		return Session{}, err
	}
	var s Session
	if err := yaml.Unmarshal(b, &s); err != nil {
		return Session{}, fmt.Errorf("parse session %s: %w", p, err)
	}
	if s.ID == uuid.Nil {
		return Session{}, fmt.Errorf("parse session %s: missing id", p)
	}
	return s, nil
}

// Save writes the session atomically through a temp file in the same dir.
func Save(p string, s Session) error {
	p = Path(p)
	b, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(p), ".session-*.yaml")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), p)
}
