package edit

import (
	"fmt"
	"strings"

	"github.com/forPelevin/quicktrim/internal/types"
)

type ViewMode string

const (
	ViewParagraph ViewMode = "paragraph"
	ViewSegment   ViewMode = "segment"
)

func ParseViewMode(s string) (ViewMode, error) {
	switch ViewMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ViewParagraph:
		return ViewParagraph, nil
	case ViewSegment:
		return ViewSegment, nil
	default:
		return "", fmt.Errorf("unknown view mode %q (want paragraph or segment)", s)
	}
}

// Render prints the transcript with cut words wrapped as [-word-].
// Segment view numbers segments and words so they can be addressed as S:W.
func Render(tr types.Transcript, mode ViewMode) string {
	switch mode {
	case ViewSegment:
		var b strings.Builder
		for i, seg := range tr.Segments {
			mark := " "
			if seg.Removed {
				mark = "x"
			}
			start, end := segmentSpan(seg)
			fmt.Fprintf(&b, "[%s] %3d  %s-%s ", mark, i, hms(start), hms(end))
			for j, w := range seg.Words {
				if isSpacing(w) {
					continue
				}
				fmt.Fprintf(&b, " %s(%d)", renderWord(seg, w), j)
			}
			b.WriteByte('\n')
		}
		return b.String()
	default:
		var parts []string
		for _, seg := range tr.Segments {
			for _, w := range seg.Words {
				if isSpacing(w) {
					continue
				}
				parts = append(parts, renderWord(seg, w))
			}
		}
		return strings.Join(parts, " ") + "\n"
	}
}

func renderWord(seg types.Segment, w types.Word) string {
	if EffectiveRemoved(seg, w) {
		return "[-" + w.Text + "-]"
	}
	return w.Text
}

func isSpacing(w types.Word) bool {
	return w.Type == "spacing" || strings.TrimSpace(w.Text) == ""
}

func segmentSpan(seg types.Segment) (float64, float64) {
	if len(seg.Words) == 0 {
		return 0, 0
	}
	start, end := seg.Words[0].Start, seg.Words[0].End
	for _, w := range seg.Words[1:] {
		if w.Start < start {
			start = w.Start
		}
		if w.End > end {
			end = w.End
		}
	}
	return start, end
}

func hms(sec float64) string {
	total := int64(sec)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
