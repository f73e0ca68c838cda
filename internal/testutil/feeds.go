package testutil

import (
	"fmt"
	"html"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

// FeedItem describes one <item> of a generated RSS document.
type FeedItem struct {
	Title        string
	Description  string
	EnclosureURL string
	PubDate      time.Time
	Duration     string
}

// RSS renders a minimal podcast RSS document.
func RSS(title string, items ...FeedItem) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	b.WriteString(`<rss version="2.0" xmlns:itunes="http://www.itunes.com/dtds/podcast-1.0.dtd"><channel>`)
	fmt.Fprintf(&b, "<title>%s</title>", html.EscapeString(title))
	b.WriteString(`<itunes:image href="https://example.com/show.jpg"/>`)
	for _, it := range items {
		b.WriteString("<item>")
		fmt.Fprintf(&b, "<title>%s</title>", html.EscapeString(it.Title))
		if it.Description != "" {
			fmt.Fprintf(&b, "<description>%s</description>", html.EscapeString(it.Description))
		}
		if it.EnclosureURL != "" {
			fmt.Fprintf(&b, `<enclosure url="%s" length="1000" type="audio/mpeg"/>`, html.EscapeString(it.EnclosureURL))
		}
		pub := it.PubDate
		if pub.IsZero() {
			pub = time.Now().Add(-24 * time.Hour)
		}
		fmt.Fprintf(&b, "<pubDate>%s</pubDate>", pub.UTC().Format(time.RFC1123Z))
		if it.Duration != "" {
			fmt.Fprintf(&b, "<itunes:duration>%s</itunes:duration>", it.Duration)
		}
		b.WriteString("</item>")
	}
	b.WriteString("</channel></rss>")
	return b.String()
}

// FeedServer serves fixed bodies by request path. Unknown paths get a 404.
type FeedServer struct {
	*httptest.Server

	mu     sync.Mutex
	bodies map[string]string
	hits   map[string]int
}

// NewFeedServer starts a FeedServer that is closed when the test ends.
func NewFeedServer(t *testing.T) *FeedServer {
	t.Helper()
	fs := &FeedServer{bodies: make(map[string]string), hits: make(map[string]int)}
	fs.Server = httptest.NewServer(http.HandlerFunc(fs.serve))
	t.Cleanup(fs.Close)
	return fs
}

// Set serves body at path and returns the absolute URL.
func (fs *FeedServer) Set(path, body string) string {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.bodies[path] = body
	return fs.URL + path
}

// Hits reports how many requests path received.
func (fs *FeedServer) Hits(path string) int {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.hits[path]
}

func (fs *FeedServer) serve(w http.ResponseWriter, r *http.Request) {
	fs.mu.Lock()
	body, ok := fs.bodies[r.URL.Path]
	fs.hits[r.URL.Path]++
	fs.mu.Unlock()
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/rss+xml; charset=utf-8")
	w.Write([]byte(body))
}
