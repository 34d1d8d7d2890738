package trim

import (
	"sort"
	"time"

	"github.com/forPelevin/quicktrim/internal/types"
)

// Timeline maps source positions onto the output of a rendered clip sequence.
type Timeline struct {
	clips   []types.ClipDescriptor
	offsets []time.Duration
	total   time.Duration
}

func NewTimeline(clips []types.ClipDescriptor) Timeline {
	t := Timeline{
		clips:   clips,
		offsets: make([]time.Duration, len(clips)),
	}
	for i, c := range clips {
		t.offsets[i] = t.total
		t.total += c.Duration()
	}
	return t
}

// Duration is the length of the rendered output.
func (t Timeline) Duration() time.Duration { return t.total }

// Clamp maps the span [start, end) onto the output, trimming it to the clip
// that contains start. It reports false when start is cut.
func (t Timeline) Clamp(start, end time.Duration) (time.Duration, time.Duration, bool) {
	i := sort.Search(len(t.clips), func(i int) bool { return t.clips[i].End() > start })
	if i == len(t.clips) || start < t.clips[i].Start() {
		return 0, 0, false
	}
	c := t.clips[i]
	if end > c.End() {
		end = c.End()
	}
	if end <= start {
		return 0, 0, false
	}
	base := t.offsets[i] - c.Start()
	return base + start, base + end, true
}
