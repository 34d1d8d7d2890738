package edit

import (
	"reflect"
	"strings"
	"testing"

	"github.com/forPelevin/quicktrim/internal/types"
)

func testState() State {
	return State{Transcript: types.Transcript{Segments: []types.Segment{
		{Text: "um, so we start", Words: []types.Word{
			{Start: 0.0, End: 0.4, Text: "um,", Type: "word"},
			{Start: 0.4, End: 0.5, Text: " ", Type: "spacing"},
			{Start: 0.5, End: 0.8, Text: "so", Type: "word"},
			{Start: 0.9, End: 1.2, Text: "we", Type: "word"},
			{Start: 1.2, End: 1.7, Text: "start", Type: "word"},
		}},
		{Text: "Um okay", Words: []types.Word{
			{Start: 2.0, End: 2.3, Text: "Um", Type: "word"},
			{Start: 2.4, End: 2.9, Text: "okay", Type: "word"},
		}},
	}}}
}

func TestReduce_DoesNotMutateInput(t *testing.T) {
	s := testState()
	before := testState()
	_ = Reduce(s, ToggleWord{Word: s.Transcript.Segments[0].Words[2]})
	_ = Reduce(s, RemoveSegment{Segment: s.Transcript.Segments[1]})
	_ = Reduce(s, AddFillerWord{Text: "um"})
	if !reflect.DeepEqual(s, before) {
		t.Fatalf("input state was mutated")
	}
}

func TestToggleWord(t *testing.T) {
	s := testState()
	target := s.Transcript.Segments[0].Words[2]

	s = Reduce(s, ToggleWord{Word: target})
	if !s.Transcript.Segments[0].Words[2].Removed {
		t.Fatalf("expected word removed after first toggle")
	}

	// the stored word now differs from target by its flag, so address it again
	s = Reduce(s, ToggleWord{Word: s.Transcript.Segments[0].Words[2]})
	if s.Transcript.Segments[0].Words[2].Removed {
		t.Fatalf("expected word restored after second toggle")
	}
}

func TestRestoreWord(t *testing.T) {
	s := testState()
	s = Reduce(s, ToggleWord{Word: s.Transcript.Segments[1].Words[1]})
	s = Reduce(s, RestoreWord{Word: s.Transcript.Segments[1].Words[1]})
	if s.Transcript.Segments[1].Words[1].Removed {
		t.Fatalf("expected word restored")
	}
}

func TestSegmentToggle_PreservesWordFlags(t *testing.T) {
	s := testState()
	s = Reduce(s, ToggleWord{Word: s.Transcript.Segments[0].Words[3]})

	s = Reduce(s, RemoveSegment{Segment: s.Transcript.Segments[0]})
	seg := s.Transcript.Segments[0]
	if !seg.Removed {
		t.Fatalf("expected segment removed")
	}
	for _, w := range seg.Words {
		if !EffectiveRemoved(seg, w) {
			t.Fatalf("word %q should be effectively removed", w.Text)
		}
	}

	s = Reduce(s, RestoreSegment{Segment: s.Transcript.Segments[0]})
	seg = s.Transcript.Segments[0]
	if seg.Removed {
		t.Fatalf("expected segment restored")
	}
	if !seg.Words[3].Removed {
		t.Fatalf("per-word flag lost across segment round trip")
	}
	if seg.Words[2].Removed {
		t.Fatalf("unexpected removal of %q", seg.Words[2].Text)
	}
}

func TestFillerWords(t *testing.T) {
	s := testState()
	s = Reduce(s, AddFillerWord{Text: "um"})
	if !reflect.DeepEqual(s.FillerWords, []string{"um"}) {
		t.Fatalf("filler words = %v", s.FillerWords)
	}
	if !s.Transcript.Segments[0].Words[0].Removed || !s.Transcript.Segments[1].Words[0].Removed {
		t.Fatalf("expected both um occurrences removed")
	}
	if s.Transcript.Segments[0].Words[2].Removed {
		t.Fatalf("non-matching word removed")
	}

	s = Reduce(s, AddFillerWord{Text: "um"})
	if len(s.FillerWords) != 1 {
		t.Fatalf("duplicate filler registered: %v", s.FillerWords)
	}

	s = Reduce(s, RemoveFillerWord{Text: "um"})
	if len(s.FillerWords) != 0 {
		t.Fatalf("filler words = %v", s.FillerWords)
	}
	if s.Transcript.Segments[0].Words[0].Removed || s.Transcript.Segments[1].Words[0].Removed {
		t.Fatalf("expected um occurrences restored")
	}
}

func TestAddFillerWord_IgnoresBlank(t *testing.T) {
	s := Reduce(testState(), AddFillerWord{Text: "  "})
	if len(s.FillerWords) != 0 {
		t.Fatalf("blank filler registered")
	}
	for _, seg := range s.Transcript.Segments {
		for _, w := range seg.Words {
			if w.Removed {
				t.Fatalf("blank filler removed %q", w.Text)
			}
		}
	}
}

func TestMatchesFiller(t *testing.T) {
	tests := []struct {
		word, filler string
		want         bool
	}{
		{"um", "um", true},
		{" Um, ", "um", true},
		{",,uh,,", "uh", true},
		{"like", "um", false},
		{"a,,b", "a,b", true},
		{"umm", "um", false},
	}
	for _, tt := range tests {
		if got := MatchesFiller(tt.word, tt.filler); got != tt.want {
			t.Fatalf("MatchesFiller(%q, %q) = %v, want %v", tt.word, tt.filler, got, tt.want)
		}
	}
}

func TestRender(t *testing.T) {
	s := testState()
	s = ReduceAll(s,
		RemoveSegment{Segment: s.Transcript.Segments[1]},
		AddFillerWord{Text: "um"},
	)

	got := Render(s.Transcript, ViewParagraph)
	want := "[-um,-] so we start [-Um-] [-okay-]\n"
	if got != want {
		t.Fatalf("paragraph view = %q, want %q", got, want)
	}

	seg := Render(s.Transcript, ViewSegment)
	lines := strings.Split(strings.TrimSpace(seg), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 segment rows, got %d:\n%s", len(lines), seg)
	}
	if !strings.HasPrefix(lines[1], "[x]") {
		t.Fatalf("expected removed marker on second row: %q", lines[1])
	}
	if !strings.Contains(lines[0], "so(2)") {
		t.Fatalf("expected word index in row: %q", lines[0])
	}
}

func TestParseViewMode(t *testing.T) {
	if m, err := ParseViewMode(""); err != nil || m != ViewParagraph {
		t.Fatalf("default mode = %q, %v", m, err)
	}
	if m, err := ParseViewMode("Segment"); err != nil || m != ViewSegment {
		t.Fatalf("segment mode = %q, %v", m, err)
	}
	if _, err := ParseViewMode("grid"); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
}
