package speller

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/tchap/go-patricia/v2/patricia"
)

// JMdictEntry matches the structure of jmdict-simplified entries.
type JMdictEntry struct {
	Id    string          `json:"id"`
	Kanji []JMdictElement `json:"kanji"`
	Kana  []JMdictElement `json:"kana"`
}

// JMdictElement is one written form of an entry.
type JMdictElement struct {
	Text   string `json:"text"`
	Common bool   `json:"common"`
}

// LoadJMdictSimplified reads a JSON file holding either {"words": [...]} or a
// bare array of entries.
func LoadJMdictSimplified(path string) ([]JMdictEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var wrapper struct {
		Words []JMdictEntry `json:"words"`
	}
	dec := json.NewDecoder(f)
	if err := dec.Decode(&wrapper); err == nil && len(wrapper.Words) > 0 {
		return wrapper.Words, nil
	}

	// Reset and try as array [...]
	if _, err := f.Seek(0, 0); err != nil {
		return nil, err
	}
	var entries []JMdictEntry
	dec = json.NewDecoder(f)
	if err := dec.Decode(&entries); err != nil {
		return nil, fmt.Errorf("failed to parse dictionary as object or array: %w", err)
	}
	return entries, nil
}

// JMdict suggests Japanese written forms (kanji and kana) that start with
// the typed text. Katakana input also matches hiragana readings.
type JMdict struct {
	trie  *patricia.Trie
	limit int
}

// NewJMdict indexes the written forms of entries.
func NewJMdict(entries []JMdictEntry, limit int) *JMdict {
	if limit <= 0 {
		limit = defaultLimit
	}
	trie := patricia.NewTrie()
	add := func(el JMdictElement) {
		if el.Text == "" {
			return
		}
		key := patricia.Prefix(el.Text)
		if common, ok := trie.Get(key).(bool); ok && common {
			return
		}
		trie.Set(key, el.Common)
	}
	for _, e := range entries {
		for _, k := range e.Kanji {
			add(k)
		}
		for _, k := range e.Kana {
			add(k)
		}
	}
	return &JMdict{trie: trie, limit: limit}
}

// LoadJMdictFile loads and indexes a jmdict-simplified file.
func LoadJMdictFile(path string, limit int) (*JMdict, error) {
	entries, err := LoadJMdictSimplified(path)
	if err != nil {
		return nil, fmt.Errorf("load jmdict %s: %w", path, err)
	}
	return NewJMdict(entries, limit), nil
}

// Suggest returns forms starting with word, common forms first.
func (j *JMdict) Suggest(ctx context.Context, word string) ([]string, error) {
	if word == "" {
		return []string{}, nil
	}
	type form struct {
		text   string
		common bool
	}
	seen := make(map[string]bool)
	var found []form
	visit := func(p patricia.Prefix, item patricia.Item) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		text := string(p)
		if seen[text] {
			return nil
		}
		seen[text] = true
		common, _ := item.(bool)
		found = append(found, form{text: text, common: common})
		return nil
	}

	queries := []string{word}
	if h := ToHiragana(word); h != word {
		queries = append(queries, h)
	}
	for _, q := range queries {
		if err := j.trie.VisitSubtree(patricia.Prefix(q), visit); err != nil {
			return nil, err
		}
	}

	sort.Slice(found, func(a, b int) bool {
		if found[a].common != found[b].common {
			return found[a].common
		}
		if len(found[a].text) != len(found[b].text) {
			return len(found[a].text) < len(found[b].text)
		}
		return found[a].text < found[b].text
	})
	if len(found) > j.limit {
		found = found[:j.limit]
	}
	out := make([]string, len(found))
	for i, f := range found {
		out[i] = f.text
	}
	return out, nil
}

// ToHiragana converts Katakana to Hiragana.
func ToHiragana(s string) string {
	runes := []rune(s)
	for i, r := range runes {
		if r >= 0x30A1 && r <= 0x30F6 {
			runes[i] = r - 0x60
		}
	}
	return string(runes)
}
