package feed

import (
	"encoding/xml"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode"

	xpp "github.com/mmcdole/goxpp"
	"github.com/vrsandeep/podcatch/internal/models"
	"golang.org/x/net/html/charset"
)

// ParseError means the document could not be tokenized at all.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string { return fmt.Sprintf("parse feed: %v", e.Err) }

func (e *ParseError) Unwrap() error { return e.Err }

// knownNamespaces maps namespace URIs to the prefix used for field lookup.
// An empty prefix folds the namespace into plain element names.
var knownNamespaces = map[string]string{
	"http://www.itunes.com/dtds/podcast-1.0.dtd":      "itunes",
	"https://www.itunes.com/dtds/podcast-1.0.dtd":     "itunes",
	"http://purl.org/rss/1.0/modules/content/":        "content",
	"http://search.yahoo.com/mrss/":                   "media",
	"http://search.yahoo.com/mrss":                    "media",
	"http://www.rssboard.org/media-rss":               "media",
	"http://purl.org/dc/elements/1.1/":                "dc",
	"https://podcastindex.org/namespace/1.0":          "podcast",
	"http://www.google.com/schemas/play-podcasts/1.0": "googleplay",
	"http://www.w3.org/2005/atom":                     "",
	"http://purl.org/rss/1.0/":                        "",
	"http://www.w3.org/1999/02/22-rdf-syntax-ns#":     "rdf",
}

// Parser turns raw feed documents into episode drafts.
type Parser struct {
	now func() time.Time
}

// NewParser returns a Parser using the wall clock.
func NewParser() *Parser {
	return &Parser{now: time.Now}
}

// Parse extracts every episode of the document, in document order. Items
// whose title is empty after cleaning are dropped. Tokenizer errors after
// at least one item are tolerated and the items read so far are returned.
func (p *Parser) Parse(xmlText string, subscriptionID int64, fallbackArtwork string) ([]models.EpisodeDraft, error) {
	items, err := scanItems(xmlText)
	if err != nil {
		if len(items) == 0 {
			return nil, &ParseError{Err: err}
		}
		log.Printf("feed: subscription %d: document truncated after %d items: %v", subscriptionID, len(items), err)
	}

	now := p.now().UTC()
	drafts := make([]models.EpisodeDraft, 0, len(items))
	for _, it := range items {
		draft, ok := buildDraft(it, fallbackArtwork, now)
		if !ok {
			continue
		}
		draft.SubscriptionID = subscriptionID
		drafts = append(drafts, draft)
	}
	return drafts, nil
}

// element is one descendant tag of an item: its concatenated text content
// (including nested tags) and its attributes keyed by lowercased local name.
type element struct {
	text  strings.Builder
	attrs map[string]string
}

func (e *element) value() string { return strings.TrimSpace(e.text.String()) }

// rawItem holds every descendant of one <item> or <entry>, grouped by
// lowercased "prefix:local" name in document order.
type rawItem struct {
	elements map[string][]*element
}

func newRawItem() *rawItem {
	return &rawItem{elements: make(map[string][]*element)}
}

func (r *rawItem) all(key string) []*element { return r.elements[key] }

// text returns the first non-empty text for key.
func (r *rawItem) text(key string) string {
	for _, el := range r.elements[key] {
		if v := el.value(); v != "" {
			return v
		}
	}
	return ""
}

// attr returns the first non-empty attribute value for key.
func (r *rawItem) attr(key, name string) string {
	for _, el := range r.elements[key] {
		if v := strings.TrimSpace(el.attrs[name]); v != "" {
			return v
		}
	}
	return ""
}

// scanItems streams the document and collects items. It is deliberately
// lenient: unknown tags, undeclared prefixes and HTML entities are accepted.
func scanItems(doc string) ([]*rawItem, error) {
	doc = strings.TrimPrefix(doc, "\ufeff")
	doc = strings.TrimLeftFunc(doc, unicode.IsSpace)

	p := xpp.NewXMLPullParser(strings.NewReader(doc), false, charset.NewReaderLabel)
	prefixes := make(map[string]string)

	var items []*rawItem
	var current *rawItem
	var open []*element

	for {
		event, err := p.Next()
		if err != nil {
			return items, err
		}

		switch event {
		case xpp.EndDocument:
			return items, nil

		case xpp.StartTag:
			for _, a := range p.Attrs {
				if a.Name.Space == "xmlns" {
					prefixes[a.Value] = strings.ToLower(a.Name.Local)
				}
			}
			key := qualifiedName(p.Space, p.Name, prefixes)
			if current == nil {
				if key == "item" || key == "entry" {
					current = newRawItem()
					open = open[:0]
				}
				continue
			}
			if isBlockBoundary(p.Name) {
				writeAll(open, " ")
			}
			el := &element{attrs: attrMap(p.Attrs)}
			current.elements[key] = append(current.elements[key], el)
			open = append(open, el)

		case xpp.Text:
			if current == nil {
				continue
			}
			writeAll(open, p.Text)

		case xpp.EndTag:
			if current == nil {
				continue
			}
			if len(open) == 0 {
				items = append(items, current)
				current = nil
				continue
			}
			open = open[:len(open)-1]
			if isBlockBoundary(p.Name) {
				writeAll(open, " ")
			}
		}
	}
}

// writeAll appends s to the text of every open element.
func writeAll(open []*element, s string) {
	for _, el := range open {
		el.text.WriteString(s)
	}
}

// isBlockBoundary reports whether unescaped HTML markup inside an item
// separates words, matching blockBoundaryRe for escaped markup.
func isBlockBoundary(name string) bool {
	switch strings.ToLower(name) {
	case "br", "p", "div", "li", "h1", "h2", "h3", "h4", "h5", "h6":
		return true
	}
	return false
}

func qualifiedName(space, local string, prefixes map[string]string) string {
	local = strings.ToLower(local)
	if space == "" {
		return local
	}
	if prefix, ok := knownNamespaces[strings.ToLower(space)]; ok {
		if prefix == "" {
			return local
		}
		return prefix + ":" + local
	}
	if prefix, ok := prefixes[space]; ok {
		if prefix == "" {
			return local
		}
		return prefix + ":" + local
	}
	// An undeclared prefix is reported verbatim in place of a URI.
	if !strings.ContainsAny(space, ":/") {
		return strings.ToLower(space) + ":" + local
	}
	return local
}

func attrMap(attrs []xml.Attr) map[string]string {
	if len(attrs) == 0 {
		return nil
	}
	m := make(map[string]string, len(attrs))
	for _, a := range attrs {
		if a.Name.Space == "xmlns" || a.Name.Local == "xmlns" {
			continue
		}
		name := strings.ToLower(a.Name.Local)
		if _, seen := m[name]; !seen {
			m[name] = a.Value
		}
	}
	return m
}
