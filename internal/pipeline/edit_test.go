package pipeline

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/forPelevin/quicktrim/internal/session"
	"github.com/forPelevin/quicktrim/internal/types"
)

func writeSession(t *testing.T) string {
	t.Helper()
	tr := types.Transcript{Segments: []types.Segment{
		{Text: "um, so we start", Words: []types.Word{
			{Start: 0, End: 0.4, Text: "um,", Type: "word"},
			{Start: 0.4, End: 0.45, Text: " ", Type: "spacing"},
			{Start: 0.45, End: 0.7, Text: "so", Type: "word"},
			{Start: 0.8, End: 1.0, Text: "start", Type: "word"},
		}},
		{Text: "Um okay", Words: []types.Word{
			{Start: 2.0, End: 2.3, Text: "Um", Type: "word"},
			{Start: 2.4, End: 3.0, Text: "okay", Type: "word"},
		}},
	}}
	dir := t.TempDir()
	s := session.New("/videos/in.mp4", types.MediaInfo{Duration: 4 * time.Second, HasAudio: true}, ProviderElevenLabs, tr)
	if err := session.Save(dir, s); err != nil {
		t.Fatalf("save session: %v", err)
	}
	return dir
}

func TestParseWordRef(t *testing.T) {
	tests := []struct {
		in      string
		want    WordRef
		wantErr bool
	}{
		{in: "0:2", want: WordRef{Segment: 0, Word: 2}},
		{in: " 12:3 ", want: WordRef{Segment: 12, Word: 3}},
		{in: "3", wantErr: true},
		{in: "a:1", wantErr: true},
		{in: "1:b", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseWordRef(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error")
				}
				return
			}
			if err != nil || got != tt.want {
				t.Fatalf("ParseWordRef(%q) = %+v, %v", tt.in, got, err)
			}
		})
	}
}

func TestEdit_AppliesAndPersists(t *testing.T) {
	dir := writeSession(t)

	_, err := Edit(Config{}, dir, EditOps{
		RemoveSegments: []int{1},
		ToggleWords:    []WordRef{{Segment: 0, Word: 2}},
		AddFillers:     []string{"um"},
	})
	if err != nil {
		t.Fatalf("edit: %v", err)
	}

	out, err := Show(dir, "paragraph")
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	if out != "[-um,-] [-so-] start [-Um-] [-okay-]\n" {
		t.Fatalf("unexpected paragraph view: %q", out)
	}

	plan, err := Plan(dir)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	want := []types.KeepInterval{{Start: 0.4, End: 0.45}, {Start: 0.7, End: 2.0}, {Start: 3.0, End: 4.0}}
	if len(plan.Keep) != len(want) {
		t.Fatalf("keep = %+v", plan.Keep)
	}
	for i := range want {
		if plan.Keep[i] != want[i] {
			t.Fatalf("keep[%d] = %+v, want %+v", i, plan.Keep[i], want[i])
		}
	}
}

func TestEdit_RemoveThenRestoreSegment(t *testing.T) {
	dir := writeSession(t)
	s, err := Edit(Config{}, dir, EditOps{RemoveSegments: []int{0}, RestoreSegments: []int{0}})
	if err != nil {
		t.Fatalf("edit: %v", err)
	}
	if s.Transcript.Segments[0].Removed {
		t.Fatalf("segment still removed")
	}
}

func TestEdit_OutOfRange(t *testing.T) {
	dir := writeSession(t)
	tests := []EditOps{
		{RemoveSegments: []int{2}},
		{RestoreSegments: []int{-1}},
		{ToggleWords: []WordRef{{Segment: 0, Word: 4}}},
		{RestoreWords: []WordRef{{Segment: 5, Word: 0}}},
	}
	for _, ops := range tests {
		if _, err := Edit(Config{}, dir, ops); err == nil || !strings.Contains(err.Error(), "out of range") {
			t.Fatalf("Edit(%+v) err = %v, want out of range", ops, err)
		}
	}
}

func TestEdit_RejectsRemovingWordlessSegment(t *testing.T) {
	tr := types.Transcript{Segments: []types.Segment{
		{Text: "hi", Words: []types.Word{{Start: 0, End: 0.5, Text: "hi", Type: "word"}}},
		{Text: ""},
	}}
	dir := t.TempDir()
	s := session.New("/videos/in.mp4", types.MediaInfo{Duration: 2 * time.Second, HasVideo: true, HasAudio: true}, ProviderElevenLabs, tr)
	if err := session.Save(dir, s); err != nil {
		t.Fatalf("save session: %v", err)
	}

	_, err := Edit(Config{}, dir, EditOps{RemoveSegments: []int{1}})
	if err == nil || !strings.Contains(err.Error(), "has no words") {
		t.Fatalf("Edit err = %v, want rejection", err)
	}
	// The session on disk is untouched and still plans.
	plan, err := Plan(dir)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if len(plan.Keep) != 1 || plan.Keep[0] != (types.KeepInterval{Start: 0, End: 2}) {
		t.Fatalf("keep = %+v", plan.Keep)
	}
	// Restoring it is harmless.
	if _, err := Edit(Config{}, dir, EditOps{RestoreSegments: []int{1}}); err != nil {
		t.Fatalf("restore: %v", err)
	}
}

func TestEdit_MissingSession(t *testing.T) {
	_, err := Edit(Config{}, filepath.Join(t.TempDir(), "none.yaml"), EditOps{AddFillers: []string{"um"}})
	if !errors.Is(err, session.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
