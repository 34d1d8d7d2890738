package pipeline

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/forPelevin/quicktrim/internal/domain/edit"
	"github.com/forPelevin/quicktrim/internal/session"
)

// WordRef addresses word Word of segment Segment, as printed by the segment view.
type WordRef struct {
	Segment int
	Word    int
}

// ParseWordRef parses "S:W".
func ParseWordRef(s string) (WordRef, error) {
	a, b, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return WordRef{}, fmt.Errorf("invalid word reference %q (want SEGMENT:WORD)", s)
	}
	seg, err := strconv.Atoi(a)
	if err != nil {
		return WordRef{}, fmt.Errorf("invalid word reference %q: %w", s, err)
	}
	w, err := strconv.Atoi(b)
	if err != nil {
		return WordRef{}, fmt.Errorf("invalid word reference %q: %w", s, err)
	}
	return WordRef{Segment: seg, Word: w}, nil
}

// EditOps are applied in this order: segments, then words, then filler words.
type EditOps struct {
	RemoveSegments  []int
	RestoreSegments []int
	ToggleWords     []WordRef
	RestoreWords    []WordRef
	AddFillers      []string
	RemoveFillers   []string
}

func (o EditOps) empty() bool {
	return len(o.RemoveSegments)+len(o.RestoreSegments)+len(o.ToggleWords)+
		len(o.RestoreWords)+len(o.AddFillers)+len(o.RemoveFillers) == 0
}

// Edit applies ops to the session at sessionPath and saves it.
func Edit(cfg Config, sessionPath string, ops EditOps) (session.Session, error) {
	s, err := session.Load(sessionPath)
	if err != nil {
		return session.Session{}, err
	}
	if ops.empty() {
		return s, nil
	}

	// Actions match segments and words by value, so each index is resolved
	// against the state the previous action produced.
	st := s.State()
	apply := func(a edit.Action, err error) error {
		if err != nil {
			return err
		}
		st = edit.Reduce(st, a)
		return nil
	}
	for _, i := range ops.RemoveSegments {
		if err := apply(segmentAction(st, i, true)); err != nil {
			return session.Session{}, err
		}
	}
	for _, i := range ops.RestoreSegments {
		if err := apply(segmentAction(st, i, false)); err != nil {
			return session.Session{}, err
		}
	}
	for _, r := range ops.ToggleWords {
		if err := apply(wordAction(st, r, true)); err != nil {
			return session.Session{}, err
		}
	}
	for _, r := range ops.RestoreWords {
		if err := apply(wordAction(st, r, false)); err != nil {
			return session.Session{}, err
		}
	}
	fillers := make([]edit.Action, 0, len(ops.AddFillers)+len(ops.RemoveFillers))
	for _, f := range ops.AddFillers {
		fillers = append(fillers, edit.AddFillerWord{Text: f})
	}
	for _, f := range ops.RemoveFillers {
		fillers = append(fillers, edit.RemoveFillerWord{Text: f})
	}
	st = edit.ReduceAll(st, fillers...)

	s = s.WithState(st)
	if err := session.Save(sessionPath, s); err != nil {
		return session.Session{}, err
	}
	cfg.log().Info("session saved", "session_id", s.ID.String(), "path", session.Path(sessionPath), "fillers", len(s.FillerWords))
	return s, nil
}

func segmentAction(st edit.State, i int, remove bool) (edit.Action, error) {
	segs := st.Transcript.Segments
	if i < 0 || i >= len(segs) {
		return nil, fmt.Errorf("segment %d out of range (0..%d)", i, len(segs)-1)
	}
	if remove {
		// A removed segment spans its words; without words it has no span.
		if len(segs[i].Words) == 0 {
			return nil, fmt.Errorf("segment %d has no words and cannot be removed", i)
		}
		return edit.RemoveSegment{Segment: segs[i]}, nil
	}
	return edit.RestoreSegment{Segment: segs[i]}, nil
}

func wordAction(st edit.State, r WordRef, toggle bool) (edit.Action, error) {
	segs := st.Transcript.Segments
	if r.Segment < 0 || r.Segment >= len(segs) {
		return nil, fmt.Errorf("segment %d out of range (0..%d)", r.Segment, len(segs)-1)
	}
	words := segs[r.Segment].Words
	if r.Word < 0 || r.Word >= len(words) {
		return nil, fmt.Errorf("word %d:%d out of range (segment has %d words)", r.Segment, r.Word, len(words))
	}
	if toggle {
		return edit.ToggleWord{Word: words[r.Word]}, nil
	}
	return edit.RestoreWord{Word: words[r.Word]}, nil
}

// Show renders the session transcript in the given view mode.
func Show(sessionPath string, mode edit.ViewMode) (string, error) {
	s, err := session.Load(sessionPath)
	if err != nil {
		return "", err
	}
	return edit.Render(s.Transcript, mode), nil
}
