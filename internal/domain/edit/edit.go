// Package edit holds the transcript editing state and its transitions.
//
// State is a value. Reduce never mutates its input; every transition returns a
// fresh copy, and the trim plan is recomputed from the result.
package edit

import (
	"regexp"
	"sort"
	"strings"

	"github.com/forPelevin/quicktrim/internal/types"
)

type State struct {
	Transcript  types.Transcript
	FillerWords []string
}

type Action interface{ apply(*State) }

// ToggleWord flips the removal flag of every word equal to Word.
type ToggleWord struct{ Word types.Word }

// RestoreWord clears the removal flag of every word equal to Word.
type RestoreWord struct{ Word types.Word }

// RemoveSegment marks every segment equal to Segment removed.
type RemoveSegment struct{ Segment types.Segment }

// RestoreSegment clears the removal flag of every segment equal to Segment.
type RestoreSegment struct{ Segment types.Segment }

// AddFillerWord registers Text and removes every word matching it.
type AddFillerWord struct{ Text string }

// RemoveFillerWord unregisters Text and restores every word matching it.
type RemoveFillerWord struct{ Text string }

func Reduce(s State, a Action) State {
	next := s.clone()
	a.apply(&next)
	return next
}

// ReduceAll applies actions in order.
func ReduceAll(s State, actions ...Action) State {
	for _, a := range actions {
		s = Reduce(s, a)
	}
	return s
}

func (a ToggleWord) apply(s *State) {
	s.eachWord(func(w *types.Word) {
		if *w == a.Word {
			w.Removed = !w.Removed
		}
	})
}

func (a RestoreWord) apply(s *State) {
	s.eachWord(func(w *types.Word) {
		if *w == a.Word {
			w.Removed = false
		}
	})
}

func (a RemoveSegment) apply(s *State) { s.setSegment(a.Segment, true) }

func (a RestoreSegment) apply(s *State) { s.setSegment(a.Segment, false) }

func (a AddFillerWord) apply(s *State) {
	if strings.TrimSpace(a.Text) == "" {
		return
	}
	if !containsString(s.FillerWords, a.Text) {
		s.FillerWords = append(s.FillerWords, a.Text)
		sort.Strings(s.FillerWords)
	}
	s.eachWord(func(w *types.Word) {
		if MatchesFiller(w.Text, a.Text) {
			w.Removed = true
		}
	})
}

func (a RemoveFillerWord) apply(s *State) {
	out := s.FillerWords[:0]
	for _, f := range s.FillerWords {
		if f != a.Text {
			out = append(out, f)
		}
	}
	s.FillerWords = out
	s.eachWord(func(w *types.Word) {
		if MatchesFiller(w.Text, a.Text) {
			w.Removed = false
		}
	})
}

// EffectiveRemoved reports whether a word is cut, either on its own or
// through its segment.
func EffectiveRemoved(seg types.Segment, w types.Word) bool {
	return w.Removed || seg.Removed
}

var (
	reLeadingCommas  = regexp.MustCompile(`^,+`)
	reTrailingCommas = regexp.MustCompile(`,+$`)
	reCommaRuns      = regexp.MustCompile(`,{2,}`)
)

// MatchesFiller compares a transcript word against a filler word, ignoring
// case, surrounding whitespace and surrounding commas.
func MatchesFiller(word, filler string) bool {
	return normalizeFiller(word) == normalizeFiller(filler)
}

func normalizeFiller(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = reTrailingCommas.ReplaceAllString(s, "")
	s = reLeadingCommas.ReplaceAllString(s, "")
	return reCommaRuns.ReplaceAllString(s, ",")
}

func (s State) clone() State {
	out := State{
		Transcript: types.Transcript{
			Language:            s.Transcript.Language,
			LanguageProbability: s.Transcript.LanguageProbability,
			Segments:            make([]types.Segment, len(s.Transcript.Segments)),
		},
		FillerWords: append([]string(nil), s.FillerWords...),
	}
	for i, seg := range s.Transcript.Segments {
		seg.Words = append([]types.Word(nil), seg.Words...)
		out.Transcript.Segments[i] = seg
	}
	return out
}

func (s *State) eachWord(fn func(*types.Word)) {
	for i := range s.Transcript.Segments {
		words := s.Transcript.Segments[i].Words
		for j := range words {
			fn(&words[j])
		}
	}
}

func (s *State) setSegment(target types.Segment, removed bool) {
	for i := range s.Transcript.Segments {
		if s.Transcript.Segments[i].Equal(target) {
			s.Transcript.Segments[i].Removed = removed
		}
	}
}

func containsString(xs []string, x string) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}
