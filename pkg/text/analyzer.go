// Package text turns raw documents into the word sequences the dictionary
// learns from.
package text

import (
	"strings"
	"unicode"

	"github.com/ikawaha/kagome-dict/ipa"
	"github.com/ikawaha/kagome/v2/tokenizer"
	"github.com/japaniel/userdict/pkg/db"
)

// Token represents a single analyzed unit of text.
type Token struct {
	Surface       string   // The text as it appears (e.g. "行っ")
	BaseForm      string   // The dictionary form (e.g. "行く")
	Reading       string   // The pronunciation (katakana, e.g. "イッ")
	PartsOfSpeech []string // Kagome POS labels; empty outside Japanese
	// PrimaryPOS stores the first (primary) part of speech if available.
	PrimaryPOS string
}

// Sentence represents a sentence containing tokens.
type Sentence struct {
	Text   string
	Tokens []Token
}

// Parts of speech that carry no vocabulary of their own.
var skipPOS = map[string]bool{
	"記号":   true,
	"補助記号": true,
	"助詞":   true,
	"助動詞":  true,
	"フィラー": true,
}

// Words returns the learnable words of the sentence in order: base forms,
// without punctuation, particles or auxiliaries.
func (s Sentence) Words() []string {
	words := make([]string, 0, len(s.Tokens))
	for _, tok := range s.Tokens {
		if skipPOS[tok.PrimaryPOS] {
			continue
		}
		w := tok.BaseForm
		if w == "" {
			w = tok.Surface
		}
		words = append(words, w)
	}
	return words
}

// Analyzer segments text. Japanese locales go through kagome; every other
// locale is split into Unicode word runs. Safe for concurrent use.
type Analyzer struct {
	t *tokenizer.Tokenizer
}

// NewAnalyzer creates a new tokenizer instance.
func NewAnalyzer() (*Analyzer, error) {
	t, err := tokenizer.New(ipa.Dict(), tokenizer.OmitBosEos())
	if err != nil {
		return nil, err
	}
	return &Analyzer{t: t}, nil
}

// IsJapanese reports whether locale names Japanese ("ja", "ja_JP", "ja-JP").
func IsJapanese(locale db.Locale) bool {
	l := strings.ToLower(string(locale))
	return l == "ja" || strings.HasPrefix(l, "ja_") || strings.HasPrefix(l, "ja-")
}

// Analyze breaks text into tokens.
func (a *Analyzer) Analyze(text string, locale db.Locale) ([]Token, error) {
	if IsJapanese(locale) {
		return a.analyzeJapanese(text), nil
	}
	return splitWords(text), nil
}

func (a *Analyzer) analyzeJapanese(text string) []Token {
	tokens := a.t.Tokenize(text)
	var result []Token

	for _, token := range tokens {
		if token.Class == tokenizer.DUMMY {
			continue
		}
		if strings.TrimSpace(token.Surface) == "" {
			continue
		}

		// IPA features: POS, three sub-POS, conjugation type and form,
		// base form, reading, pronunciation.
		features := token.Features()

		base := token.Surface
		if len(features) > 6 && features[6] != "*" {
			base = features[6]
		}
		reading := ""
		if len(features) > 7 && features[7] != "*" {
			reading = features[7]
		}
		primaryPOS := ""
		if len(features) > 0 {
			primaryPOS = features[0]
		}

		result = append(result, Token{
			Surface:       token.Surface,
			BaseForm:      base,
			Reading:       reading,
			PartsOfSpeech: features,
			PrimaryPOS:    primaryPOS,
		})
	}
	return result
}

// splitWords returns runs of letters and digits. An apostrophe or hyphen
// between two letters stays inside the word ("don't", "well-known").
func splitWords(text string) []Token {
	runes := []rune(text)
	var result []Token
	start := -1
	flush := func(end int) {
		if start >= 0 {
			w := string(runes[start:end])
			result = append(result, Token{Surface: w, BaseForm: w})
			start = -1
		}
	}
	for i, r := range runes {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.Is(unicode.Mn, r):
			if start < 0 {
				start = i
			}
		case isJoiner(r) && start >= 0 && i+1 < len(runes) && unicode.IsLetter(runes[i+1]):
		default:
			flush(i)
		}
	}
	flush(len(runes))
	return result
}

func isJoiner(r rune) bool {
	return r == '\'' || r == '’' || r == '-'
}

// AnalyzeDocument splits the text into sentences and tokenizes each sentence.
func (a *Analyzer) AnalyzeDocument(text string, locale db.Locale) ([]Sentence, error) {
	var result []Sentence
	for _, s := range SplitSentences(text) {
		if strings.TrimSpace(s) == "" {
			continue
		}
		tokens, err := a.Analyze(s, locale)
		if err != nil {
			return nil, err
		}
		result = append(result, Sentence{Text: s, Tokens: tokens})
	}
	return result, nil
}

// SplitSentences cuts text after each sentence delimiter and newline. The
// delimiter stays with its sentence.
func SplitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	for _, r := range text {
		current.WriteRune(r)
		switch r {
		case '。', '！', '？', '.', '!', '?', '\n':
			sentences = append(sentences, current.String())
			current.Reset()
		}
	}
	if current.Len() > 0 {
		sentences = append(sentences, current.String())
	}
	return sentences
}
