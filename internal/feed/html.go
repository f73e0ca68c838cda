package feed

import (
	"html"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/unicode/norm"
)

var (
	blockBoundaryRe = regexp.MustCompile(`(?i)<br\s*/?>|</p>|</div>|</li>|</h[1-6]>`)
	bareURLRe       = regexp.MustCompile(`https?://[^\s"'<>]+`)
)

// cleanText decodes entities, strips markup, collapses whitespace and
// truncates to limit runes.
func cleanText(raw string, limit int) string {
	s := html.UnescapeString(raw)
	if strings.ContainsAny(s, "<>") {
		s = stripTags(s)
	}
	s = strings.Join(strings.Fields(s), " ")
	s = norm.NFC.String(s)
	return truncateRunes(s, limit)
}

func stripTags(s string) string {
	s = blockBoundaryRe.ReplaceAllString(s, " $0")
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return s
	}
	doc.Find("script, style").Remove()
	return doc.Text()
}

func truncateRunes(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return strings.TrimSpace(string(runes[:limit]))
}

// extractAudioURL finds the first audio-like URL in an HTML fragment, first
// among href/src/url attributes, then among bare http(s) tokens.
func extractAudioURL(fragment string) string {
	if fragment == "" {
		return ""
	}
	if !strings.Contains(fragment, "<") {
		fragment = html.UnescapeString(fragment)
	}

	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment)); err == nil {
		found := ""
		doc.Find("[href], [src], [url]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
			for _, attr := range []string{"href", "src", "url"} {
				if v, ok := sel.Attr(attr); ok && isAudioLike(v) {
					found = strings.TrimSpace(v)
					return false
				}
			}
			return true
		})
		if found != "" {
			return found
		}
	}

	for _, m := range bareURLRe.FindAllString(fragment, -1) {
		m = strings.TrimRight(m, ".,;:)]}'\"")
		if isAudioLike(m) {
			return m
		}
	}
	return ""
}
