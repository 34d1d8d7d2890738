// Package subtitles renders burn-in captions for a trimmed render.
package subtitles

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/forPelevin/quicktrim/internal/domain/edit"
	"github.com/forPelevin/quicktrim/internal/domain/trim"
	"github.com/forPelevin/quicktrim/internal/types"
)

// ErrNoWords is returned when no kept word survives onto the output timeline.
var ErrNoWords = errors.New("no kept words to caption")

const (
	cueMaxChars = 42
	cueMaxWords = 8
	// A silence longer than this on the output starts a new cue.
	cueMaxGap = 700 * time.Millisecond
)

// RenderKaraokeASS renders the kept words of tr as karaoke captions, timed on
// the output of the trimmed sequence described by tl.
func RenderKaraokeASS(tr types.Transcript, tl trim.Timeline) (string, error) {
	words := keptWords(tr, tl)
	if len(words) == 0 {
		return "", ErrNoWords
	}

	var b strings.Builder
	b.WriteString(assHeader)
	for _, c := range splitCues(words) {
		fmt.Fprintf(&b, "Dialogue: 0,%s,%s,Caption,,0,0,0,,%s\n", assTime(c.start()), assTime(c.end()), c.karaoke())
	}
	return b.String(), nil
}

type timedWord struct {
	start, end time.Duration
	text       string
}

type cue []timedWord

func (c cue) start() time.Duration { return c[0].start }
func (c cue) end() time.Duration   { return c[len(c)-1].end }

// karaoke tags every word with the centiseconds until the next word starts,
// so the highlight stays in step through short pauses.
func (c cue) karaoke() string {
	parts := make([]string, len(c))
	for i, w := range c {
		until := w.end
		if i+1 < len(c) {
			until = c[i+1].start
		}
		cs := int((until - w.start) / (10 * time.Millisecond))
		if cs < 1 {
			cs = 1
		}
		parts[i] = fmt.Sprintf("{\\k%d}%s", cs, w.text)
	}
	return strings.Join(parts, " ")
}

func keptWords(tr types.Transcript, tl trim.Timeline) []timedWord {
	var out []timedWord
	for _, seg := range tr.Segments {
		for _, w := range seg.Words {
			switch {
			case edit.EffectiveRemoved(seg, w), w.Type == "spacing", w.Type == "audio_event":
				continue
			}
			text := escapeASS(w.Text)
			if text == "" {
				continue
			}
			st, en, ok := tl.Clamp(seconds(w.Start), seconds(w.End))
			if !ok {
				continue
			}
			out = append(out, timedWord{start: st, end: en, text: text})
		}
	}
	return out
}

func splitCues(words []timedWord) []cue {
	var (
		out   []cue
		cur   cue
		chars int
	)
	for _, w := range words {
		n := len([]rune(w.text))
		if len(cur) > 0 {
			gap := w.start - cur.end()
			if len(cur) == cueMaxWords || chars+1+n > cueMaxChars || gap > cueMaxGap {
				out = append(out, cur)
				cur, chars = nil, 0
			}
		}
		if len(cur) > 0 {
			chars++
		}
		cur = append(cur, w)
		chars += n
	}
	if len(cur) > 0 {
		out = append(out, cur)
	}
	return out
}

const assHeader = `[Script Info]
ScriptType: v4.00+
PlayResX: 1280
PlayResY: 720
WrapStyle: 2
ScaledBorderAndShadow: yes

[V4+ Styles]
Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, OutlineColour, BackColour, Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, Alignment, MarginL, MarginR, MarginV, Encoding
Style: Caption,Arial,44,&H0000E5FF,&H00FFFFFF,&H00101010,&H80000000,-1,0,0,0,100,100,0,0,1,3,0,2,60,60,48,1

[Events]
Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text
`

// assTime formats d as H:MM:SS.cc.
func assTime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	cs := int64(d / (10 * time.Millisecond))
	return fmt.Sprintf("%d:%02d:%02d.%02d", cs/360000, cs/6000%60, cs/100%60, cs%100)
}

func escapeASS(s string) string {
	s = strings.NewReplacer(`\`, `\\`, "{", "(", "}", ")", "\n", " ").Replace(s)
	return strings.TrimSpace(s)
}

func seconds(sec float64) time.Duration { return time.Duration(sec * float64(time.Second)) }
