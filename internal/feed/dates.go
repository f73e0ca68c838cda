package feed

import (
	"regexp"
	"strings"
	"time"
)

var dateKeys = []string{"pubdate", "published", "dc:date", "updated", "lastbuilddate", "date"}

var minPubDate = time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC)

const maxFutureSkew = 365 * 24 * time.Hour

// zoneOffsets covers the US abbreviations Go cannot resolve on its own.
var zoneOffsets = map[string]string{
	"UT": "+0000", "UTC": "+0000", "GMT": "+0000", "Z": "+0000",
	"EST": "-0500", "EDT": "-0400",
	"CST": "-0600", "CDT": "-0500",
	"MST": "-0700", "MDT": "-0600",
	"PST": "-0800", "PDT": "-0700",
}

var (
	trailingZoneRe = regexp.MustCompile(`\s([A-Z]{1,4})$`)
	weekdayRe      = regexp.MustCompile(`^[A-Za-z]+,\s*`)
)

var rfc2822Layouts = []string{
	"2 Jan 2006 15:04:05 -0700",
	"2 Jan 2006 15:04:05 MST",
	"2 Jan 2006 15:04 -0700",
	"2 Jan 2006 15:04 MST",
	"2 Jan 06 15:04:05 -0700",
	"2 Jan 06 15:04 -0700",
	"2 January 2006 15:04:05 -0700",
	"2 Jan 2006 15:04:05",
}

var customLayouts = []string{
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05 -0700",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
	"2006/01/02 15:04:05",
	"2006/01/02",
	"01/02/2006 15:04:05",
	"01/02/2006",
	"02.01.2006",
	"Monday, January 2, 2006",
	"January 2, 2006",
	"Jan 2, 2006",
	"2 January 2006",
	"2 Jan 2006",
	"Jan 2 2006 15:04:05",
	"20060102",
}

// derivePubDate returns the first parseable date within the accepted
// window, or now when no candidate qualifies.
func derivePubDate(it *rawItem, now time.Time) time.Time {
	latest := now.Add(maxFutureSkew)
	for _, key := range dateKeys {
		for _, el := range it.all(key) {
			t, ok := parseDate(el.value())
			if !ok {
				continue
			}
			if t.Before(minPubDate) || t.After(latest) {
				continue
			}
			return t.UTC()
		}
	}
	return now
}

// parseDate tries RFC 2822, then RFC 3339, then the custom layouts.
func parseDate(raw string) (time.Time, bool) {
	s := strings.Join(strings.Fields(raw), " ")
	if s == "" {
		return time.Time{}, false
	}

	rfc := weekdayRe.ReplaceAllString(s, "")
	if m := trailingZoneRe.FindStringSubmatch(rfc); m != nil {
		if offset, ok := zoneOffsets[m[1]]; ok {
			rfc = rfc[:len(rfc)-len(m[1])] + offset
		}
	}
	for _, layout := range rfc2822Layouts {
		if t, err := time.Parse(layout, rfc); err == nil {
			return t, true
		}
	}

	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}

	for _, layout := range customLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
