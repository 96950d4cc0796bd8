package text

import (
	"bytes"
	"fmt"
	"io"
	"net/url"
	"regexp"

	"github.com/go-shiori/go-readability"
)

var (
	// (?s) allows dot to match newlines
	// (?i) makes it case-insensitive
	reRT = regexp.MustCompile(`(?si)<rt\b[^>]*>.*?</rt>`)
	reRP = regexp.MustCompile(`(?si)<rp\b[^>]*>.*?</rp>`)
)

// SanitizeRuby removes ruby text (<rt>...</rt>) and ruby parentheses (<rp>...</rp>)
// from HTML content, so furigana does not end up glued to the words it
// annotates ("漢字かんじ").
// Operating on bytes is safe for Shift_JIS too: the tag characters are ASCII
// and '<' is never a Shift_JIS trailing byte.
func SanitizeRuby(content []byte) []byte {
	cleaned := reRT.ReplaceAll(content, []byte{})
	cleaned = reRP.ReplaceAll(cleaned, []byte{})
	return cleaned
}

// Article is the readable part of an HTML document.
type Article struct {
	Title string
	Text  string
}

// ExtractArticle reads a local HTML document and returns its main text.
// u is only used to resolve relative links and may be nil.
func ExtractArticle(r io.Reader, u *url.URL) (Article, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return Article{}, fmt.Errorf("read html: %w", err)
	}
	if u == nil {
		u = &url.URL{Scheme: "file", Path: "/"}
	}
	article, err := readability.FromReader(bytes.NewReader(SanitizeRuby(content)), u)
	if err != nil {
		return Article{}, fmt.Errorf("extract article: %w", err)
	}
	return Article{Title: article.Title, Text: article.TextContent}, nil
}
