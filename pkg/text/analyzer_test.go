package text

import (
	"reflect"
	"testing"

	"github.com/japaniel/userdict/pkg/db"
)

func newAnalyzer(t *testing.T) *Analyzer {
	t.Helper()
	a, err := NewAnalyzer()
	if err != nil {
		t.Fatalf("Failed to create analyzer: %v", err)
	}
	return a
}

func TestAnalyzeJapaneseBaseForms(t *testing.T) {
	a := newAnalyzer(t)

	tokens, err := a.Analyze("昨日学校に行った。", "ja")
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if len(tokens) == 0 {
		t.Fatal("No tokens found")
	}

	found := false
	for _, tok := range tokens {
		if tok.Surface == "行っ" {
			found = true
			if tok.BaseForm != "行く" {
				t.Errorf("expected base form 行く, got %q", tok.BaseForm)
			}
			if tok.PrimaryPOS != "動詞" {
				t.Errorf("expected 動詞, got %q", tok.PrimaryPOS)
			}
		}
	}
	if !found {
		t.Errorf("expected token 行っ in %+v", tokens)
	}

	words := Sentence{Tokens: tokens}.Words()
	want := []string{"昨日", "学校", "行く"}
	if !reflect.DeepEqual(words, want) {
		t.Errorf("got %v, want %v", words, want)
	}
}

func TestAnalyzeLatinWords(t *testing.T) {
	a := newAnalyzer(t)

	tokens, err := a.Analyze("Don't stop -- it's a well-known trick, 42 times!", "en_US")
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	words := Sentence{Tokens: tokens}.Words()
	want := []string{"Don't", "stop", "it's", "a", "well-known", "trick", "42", "times"}
	if !reflect.DeepEqual(words, want) {
		t.Errorf("got %v, want %v", words, want)
	}
}

func TestIsJapanese(t *testing.T) {
	for locale, want := range map[string]bool{
		"ja": true, "ja_JP": true, "JA-jp": true,
		"en": false, "jav": false, "": false,
	} {
		if got := IsJapanese(db.Locale(locale)); got != want {
			t.Errorf("IsJapanese(%q) = %v, want %v", locale, got, want)
		}
	}
}

func TestSplitSentences(t *testing.T) {
	got := SplitSentences("猫です。犬ですか？Yes! No.\nend")
	want := []string{"猫です。", "犬ですか？", "Yes!", " No.", "\n", "end"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestAnalyzeDocumentSkipsBlankSentences(t *testing.T) {
	a := newAnalyzer(t)

	sentences, err := a.AnalyzeDocument("The cat sat.\n\nThe dog ran!", "en")
	if err != nil {
		t.Fatalf("AnalyzeDocument failed: %v", err)
	}
	if len(sentences) != 2 {
		t.Fatalf("expected 2 sentences, got %d: %+v", len(sentences), sentences)
	}
	if got := sentences[1].Words(); !reflect.DeepEqual(got, []string{"The", "dog", "ran"}) {
		t.Errorf("unexpected words %v", got)
	}
}

func TestAnalyzeDocumentJapanese(t *testing.T) {
	a := newAnalyzer(t)

	sentences, err := a.AnalyzeDocument("私は猫が好きです。猫も私が好きです！", "ja")
	if err != nil {
		t.Fatalf("AnalyzeDocument failed: %v", err)
	}
	if len(sentences) != 2 {
		t.Fatalf("expected 2 sentences, got %d", len(sentences))
	}
	for _, s := range sentences {
		if len(s.Tokens) == 0 {
			t.Errorf("Sentence has no tokens: %q", s.Text)
		}
		for _, w := range s.Words() {
			if w == "は" || w == "が" || w == "。" {
				t.Errorf("particle or punctuation %q kept in %q", w, s.Text)
			}
		}
	}
}
