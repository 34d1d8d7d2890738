package trim

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/forPelevin/quicktrim/internal/types"
)

var (
	// ErrEmptySegment is returned when a removed segment has no words, so its
	// time span is undefined.
	ErrEmptySegment = errors.New("removed segment has no words")

	// ErrDegenerateInterval is returned for a keep interval that ends before it starts.
	ErrDegenerateInterval = errors.New("keep interval ends before it starts")
)

// Plan is the full result of resolving a transcript's removals.
type Plan struct {
	Removed []types.RemovedRange   `json:"removed"`
	Keep    []types.KeepInterval   `json:"keep"`
	Clips   []types.ClipDescriptor `json:"clips"`
}

// Build runs the removal builder, the resolver and the clip builder in order.
func Build(tr types.Transcript, totalDuration float64, source string) (Plan, error) {
	removed, err := BuildRemovedRanges(tr)
	if err != nil {
		return Plan{}, err
	}
	keep := ResolveKeepIntervals(removed, totalDuration)
	clips, err := BuildClipSequence(keep, source)
	if err != nil {
		return Plan{}, err
	}
	return Plan{Removed: removed, Keep: keep, Clips: clips}, nil
}

// BuildRemovedRanges collects the time ranges marked for removal. A removed
// segment contributes one range spanning all of its words, regardless of the
// individual word flags. Otherwise each removed word contributes its own range.
// Identical ranges are reported once, in first-seen order.
func BuildRemovedRanges(tr types.Transcript) ([]types.RemovedRange, error) {
	seen := make(map[types.RemovedRange]struct{})
	var out []types.RemovedRange
	add := func(r types.RemovedRange) {
		if _, ok := seen[r]; ok {
			return
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}

	for i, s := range tr.Segments {
		if s.Removed {
			if len(s.Words) == 0 {
				return nil, fmt.Errorf("segment %d: %w", i, ErrEmptySegment)
			}
			r := types.RemovedRange{Start: s.Words[0].Start, End: s.Words[0].End}
			for _, w := range s.Words[1:] {
				r.Start = math.Min(r.Start, w.Start)
				r.End = math.Max(r.End, w.End)
			}
			add(r)
			continue
		}
		for _, w := range s.Words {
			if w.Removed {
				add(types.RemovedRange{Start: w.Start, End: w.End})
			}
		}
	}
	return out, nil
}

// ResolveKeepIntervals complements removed against [0, totalDuration].
// Overlapping and nested removals are merged. The result is sorted and
// disjoint; it is empty when the removals cover the whole media.
func ResolveKeepIntervals(removed []types.RemovedRange, totalDuration float64) []types.KeepInterval {
	if totalDuration <= 0 {
		return nil
	}

	sorted := make([]types.RemovedRange, len(removed))
	copy(sorted, removed)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Start == sorted[j].Start {
			return sorted[i].End < sorted[j].End
		}
		return sorted[i].Start < sorted[j].Start
	})

	var out []types.KeepInterval
	lastEnd := 0.0
	for _, r := range sorted {
		if lastEnd >= totalDuration {
			break
		}
		start := math.Min(r.Start, totalDuration)
		if lastEnd < start {
			out = append(out, types.KeepInterval{Start: lastEnd, End: start})
		}
		lastEnd = math.Max(lastEnd, r.End)
	}
	if lastEnd < totalDuration {
		out = append(out, types.KeepInterval{Start: lastEnd, End: totalDuration})
	}
	return out
}

// BuildClipSequence converts keep intervals into millisecond clips of source,
// preserving order. Intervals that round to zero length are dropped.
func BuildClipSequence(keep []types.KeepInterval, source string) ([]types.ClipDescriptor, error) {
	out := make([]types.ClipDescriptor, 0, len(keep))
	for i, k := range keep {
		if k.End < k.Start {
			return nil, fmt.Errorf("interval %d (%.3f, %.3f): %w", i, k.Start, k.End, ErrDegenerateInterval)
		}
		c := types.ClipDescriptor{
			Source:      source,
			SourceStart: ToMillis(k.Start),
			SourceEnd:   ToMillis(k.End),
		}
		if c.SourceEnd <= c.SourceStart {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

// ToMillis rounds seconds to the nearest millisecond, halves rounding up.
func ToMillis(sec float64) int64 {
	return int64(math.Floor(sec*1000 + 0.5))
}
