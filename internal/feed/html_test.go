package feed

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanText(t *testing.T) {
	assert.Equal(t, "Tom & Jerry", cleanText("Tom &amp; Jerry", 0))
	assert.Equal(t, "Line one Line two", cleanText("<p>Line one</p><p>Line\n\n two</p>", 0))
	assert.Equal(t, "visible", cleanText("<script>alert(1)</script>visible", 0))
	assert.Equal(t, "5 < 10", cleanText("5 &lt; 10", 0))
	assert.Equal(t, "abc", cleanText("abcdef", 3))
	// Decomposed e + combining acute is normalized to the single code point.
	assert.Equal(t, "caf\u00e9", cleanText("cafe\u0301", 0))
}

func TestExtractAudioURL(t *testing.T) {
	assert.Equal(t, "https://x.example.com/a.mp3",
		extractAudioURL(`<p>Get it <a href="https://x.example.com/a.mp3">here</a></p>`))
	assert.Equal(t, "https://x.example.com/b.m4a",
		extractAudioURL(`<audio src="https://x.example.com/b.m4a"></audio>`))
	assert.Equal(t, "https://feeds.feedburner.com/~r/show/1",
		extractAudioURL(`see https://feeds.feedburner.com/~r/show/1, thanks`))
	assert.Equal(t, "", extractAudioURL(`<a href="https://example.com/about">about</a>`))
}

func TestIsAudioLike(t *testing.T) {
	assert.True(t, isAudioLike("https://cdn.example.com/ep.MP3?x=1"))
	assert.True(t, isAudioLike("https://anchor.fm/s/123/ep"))
	assert.True(t, isAudioLike("https://example.com/podcast/1"))
	assert.False(t, isAudioLike("https://example.com/blog/post"))
	assert.False(t, isAudioLike(""))
}

func TestNormalizeURL(t *testing.T) {
	assert.Equal(t, "https://cdn.example.com/a", normalizeURL(" //cdn.example.com/a "))
	assert.Equal(t, "https://cdn.example.com/a", normalizeURL("cdn.example.com/a"))
	assert.Equal(t, "/a/b.mp3", normalizeURL("/a/b.mp3"))
	assert.Equal(t, "http://x.example.com", normalizeURL("http://x.example.com"))
	assert.Equal(t, "", normalizeURL("   "))
}
