package ffmpeg

import (
	"bufio"
	"io"
	"strconv"
	"strings"
	"time"
)

// readProgress consumes ffmpeg's -progress key=value stream and reports
// integer percentages of total. Equal consecutive values are reported once.
func readProgress(r io.Reader, total time.Duration, onProgress func(int)) error {
	last := -1
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		key, val, ok := strings.Cut(strings.TrimSpace(sc.Text()), "=")
		if !ok {
			continue
		}
		var pos time.Duration
		switch key {
		// out_time_ms is microseconds too, despite its name.
		case "out_time_us", "out_time_ms":
			us, err := strconv.ParseInt(val, 10, 64)
			if err != nil {
				continue
			}
			pos = time.Duration(us) * time.Microsecond
		case "progress":
			if val == "end" && last < 100 {
				last = 100
				onProgress(last)
			}
			continue
		default:
			continue
		}
		p := percent(pos, total)
		if p != last {
			last = p
			onProgress(p)
		}
	}
	return sc.Err()
}

func percent(pos, total time.Duration) int {
	if total <= 0 {
		return 0
	}
	p := int(pos * 100 / total)
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
