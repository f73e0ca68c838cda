package feed

import (
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/vrsandeep/podcatch/internal/models"
)

const (
	maxTitleLength       = 200
	maxDescriptionLength = 5000
	noDescription        = "No description available"
)

var descriptionKeys = []string{
	"content:encoded", "content", "summary", "description", "itunes:summary", "subtitle", "itunes:subtitle",
}

// Namespace-specific fields some hosts use for the media file.
var audioFieldKeys = []string{
	"podcast:alternateenclosure", "itunes:audio", "audio", "media:player", "googleplay:audio",
}

var inlineMediaKeys = []string{"a", "audio", "source", "embed"}

var audioExtensions = map[string]bool{
	".mp3": true, ".m4a": true, ".wav": true, ".ogg": true, ".aac": true, ".flac": true, ".opus": true,
}

var audioHosts = []string{
	"feedburner", "anchor.fm", "buzzsprout", "libsyn", "soundcloud", "podbean", "spreaker", "megaphone",
	"simplecast", "art19", "podtrac", "blubrry", "omny", "acast", "transistor", "captivate", "audioboom",
	"redcircle", "castos", "pinecast",
}

var audioTokens = []string{"audio", "podcast", "media"}

var imageExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true, ".bmp": true, ".svg": true, ".avif": true,
}

var imageTokens = []string{"image", "img", "artwork", "cover", "thumb", "logo", "photo", "picture"}

func buildDraft(it *rawItem, fallbackArtwork string, now time.Time) (models.EpisodeDraft, bool) {
	title := cleanText(it.text("title"), maxTitleLength)
	if title == "" {
		return models.EpisodeDraft{}, false
	}
	return models.EpisodeDraft{
		Title:       title,
		Description: deriveDescription(it),
		AudioURL:    deriveAudioURL(it),
		ArtworkURL:  deriveArtwork(it, fallbackArtwork),
		PubDate:     derivePubDate(it, now),
		Duration:    deriveDuration(it),
	}, true
}

func deriveDescription(it *rawItem) string {
	for _, key := range descriptionKeys {
		if v := cleanText(it.text(key), maxDescriptionLength); v != "" {
			return v
		}
	}
	return noDescription
}

func deriveAudioURL(it *rawItem) string {
	if u := it.attr("enclosure", "url"); u != "" {
		return normalizeURL(u)
	}
	for _, el := range it.all("link") {
		if strings.EqualFold(el.attrs["rel"], "enclosure") {
			if u := strings.TrimSpace(el.attrs["href"]); u != "" {
				return normalizeURL(u)
			}
		}
	}

	for _, el := range it.all("media:content") {
		u := normalizeURL(el.attrs["url"])
		if u == "" {
			continue
		}
		medium := strings.ToLower(el.attrs["medium"])
		mime := strings.ToLower(el.attrs["type"])
		if medium == "audio" || strings.HasPrefix(mime, "audio/") || isAudioLike(u) {
			return u
		}
	}

	for _, key := range audioFieldKeys {
		for _, el := range it.all(key) {
			for _, candidate := range []string{el.attrs["url"], el.attrs["href"], el.value()} {
				if u := normalizeURL(candidate); u != "" && isAudioLike(u) {
					return u
				}
			}
		}
	}

	if u := normalizeURL(it.text("guid")); u != "" && isAudioLike(u) {
		return u
	}

	for _, key := range descriptionKeys {
		for _, el := range it.all(key) {
			if u := extractAudioURL(el.value()); u != "" {
				return normalizeURL(u)
			}
		}
	}

	// Unescaped HTML inside a description is tokenized as child elements.
	for _, key := range inlineMediaKeys {
		for _, el := range it.all(key) {
			for _, attr := range []string{"href", "src", "url"} {
				if u := normalizeURL(el.attrs[attr]); u != "" && isAudioLike(u) {
					return u
				}
			}
		}
	}

	// The item link is the last resort whether or not it looks like audio.
	return normalizeURL(itemLink(it))
}

// itemLink returns the RSS <link> text or the Atom alternate link href.
func itemLink(it *rawItem) string {
	if v := it.text("link"); v != "" {
		return v
	}
	for _, el := range it.all("link") {
		rel := strings.ToLower(el.attrs["rel"])
		if rel == "" || rel == "alternate" {
			if href := strings.TrimSpace(el.attrs["href"]); href != "" {
				return href
			}
		}
	}
	return ""
}

func deriveArtwork(it *rawItem, fallback string) string {
	var candidates []string
	for _, el := range it.all("itunes:image") {
		candidates = append(candidates, el.attrs["href"], el.attrs["url"], el.value())
	}
	for _, el := range it.all("image") {
		candidates = append(candidates, el.attrs["href"], el.attrs["url"], el.value())
	}
	for _, el := range it.all("media:thumbnail") {
		candidates = append(candidates, el.attrs["url"])
	}
	for _, el := range it.all("media:content") {
		medium := strings.ToLower(el.attrs["medium"])
		mime := strings.ToLower(el.attrs["type"])
		if medium == "image" || strings.HasPrefix(mime, "image/") {
			candidates = append(candidates, el.attrs["url"])
		}
	}
	for _, el := range it.all("thumbnail") {
		candidates = append(candidates, el.attrs["url"], el.value())
	}
	for _, el := range it.all("logo") {
		candidates = append(candidates, el.value())
	}

	for _, c := range candidates {
		if u := normalizeURL(c); u != "" && isImageLike(u) {
			return u
		}
	}
	return fallback
}

// normalizeURL trims a candidate URL and adds a scheme where one is
// obviously missing. Root-relative paths are returned unchanged since no
// base URL is known here.
func normalizeURL(raw string) string {
	u := strings.TrimSpace(raw)
	switch {
	case u == "":
		return ""
	case strings.HasPrefix(u, "//"):
		return "https:" + u
	case strings.HasPrefix(u, "/"):
		return u
	case strings.Contains(u, "://"):
		return u
	case looksLikeHost(u):
		return "https://" + u
	}
	return u
}

func looksLikeHost(s string) bool {
	host, _, _ := strings.Cut(s, "/")
	return strings.Contains(host, ".") && !strings.ContainsAny(host, " \t")
}

func lowerPathExt(raw string) string {
	if u, err := url.Parse(raw); err == nil && u.Path != "" {
		return strings.ToLower(path.Ext(u.Path))
	}
	return strings.ToLower(path.Ext(raw))
}

func isAudioLike(raw string) bool {
	l := strings.ToLower(strings.TrimSpace(raw))
	if l == "" {
		return false
	}
	if audioExtensions[lowerPathExt(l)] {
		return true
	}
	for _, h := range audioHosts {
		if strings.Contains(l, h) {
			return true
		}
	}
	for _, t := range audioTokens {
		if strings.Contains(l, t) {
			return true
		}
	}
	return false
}

func isImageLike(raw string) bool {
	l := strings.ToLower(strings.TrimSpace(raw))
	if l == "" {
		return false
	}
	if imageExtensions[lowerPathExt(l)] {
		return true
	}
	for _, t := range imageTokens {
		if strings.Contains(l, t) {
			return true
		}
	}
	return false
}
