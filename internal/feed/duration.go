package feed

import (
	"regexp"
	"strconv"
	"strings"
)

var durationKeys = []string{"itunes:duration", "duration", "itunes:duration_seconds", "length", "time"}

const (
	maxDurationSeconds = 86400
	// 128 kbps expressed in bytes per second.
	estimateBytesPerSecond = 16000
)

var humanDurationRe = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(hours|hour|hrs|hr|h|minutes|minute|mins|min|m|seconds|second|secs|sec|s)`)

func deriveDuration(it *rawItem) int {
	for _, key := range durationKeys {
		for _, el := range it.all(key) {
			if d, ok := parseDuration(el.value()); ok && d > 0 && d < maxDurationSeconds {
				return d
			}
		}
	}

	length := it.attr("enclosure", "length")
	if length == "" {
		for _, el := range it.all("link") {
			if strings.EqualFold(el.attrs["rel"], "enclosure") && el.attrs["length"] != "" {
				length = el.attrs["length"]
				break
			}
		}
	}
	if bytes, err := strconv.ParseInt(strings.TrimSpace(length), 10, 64); err == nil {
		if d := bytes / estimateBytesPerSecond; d > 0 && d < maxDurationSeconds {
			return int(d)
		}
	}
	return 0
}

// parseDuration understands clock forms (H:M:S, M:S), plain seconds,
// millisecond counts and phrases such as "1h 30m" or "45 min".
func parseDuration(raw string) (int, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, false
	}

	if strings.Contains(s, ":") {
		return parseClock(s)
	}

	if isDigits(s) {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, false
		}
		// Six or more digits are millisecond counts. Read as seconds, every
		// such value exceeds the 86400 second ceiling and would be dropped.
		if len(s) >= 6 {
			n /= 1000
		}
		return int(n), true
	}

	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int(f), true
	}

	matches := humanDurationRe.FindAllStringSubmatch(s, -1)
	if len(matches) == 0 {
		return 0, false
	}
	total := 0.0
	for _, m := range matches {
		v, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return 0, false
		}
		switch strings.ToLower(m[2])[0] {
		case 'h':
			total += v * 3600
		case 'm':
			total += v * 60
		default:
			total += v
		}
	}
	return int(total), true
}

func parseClock(s string) (int, bool) {
	parts := strings.Split(s, ":")
	if len(parts) > 3 {
		parts = parts[:3]
	}
	values := make([]float64, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil || v < 0 {
			return 0, false
		}
		values[i] = v
	}
	switch len(values) {
	case 2:
		return int(values[0]*60 + values[1]), true
	case 3:
		return int(values[0]*3600 + values[1]*60 + values[2]), true
	}
	return 0, false
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
