package dictionary

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/japaniel/userdict/pkg/db"
	"github.com/tchap/go-patricia/v2/patricia"
)

// Match selects how a query is compared against learned words.
type Match int

const (
	// MatchPrefix keeps words that start with the query.
	MatchPrefix Match = iota
	// MatchSubstring keeps words that contain the query anywhere.
	MatchSubstring
)

// ParseMatch maps a config value to a Match. Unknown values report false.
func ParseMatch(s string) (Match, bool) {
	switch strings.ToLower(s) {
	case "", "prefix":
		return MatchPrefix, true
	case "substring":
		return MatchSubstring, true
	}
	return MatchPrefix, false
}

type candidate struct {
	word string
	freq int
}

// learnedIndex holds one trie of learned words per locale, keyed by the
// normalized text with the context count as item.
type learnedIndex struct {
	mu    sync.RWMutex
	tries map[db.Locale]*patricia.Trie
}

func newLearnedIndex() *learnedIndex {
	return &learnedIndex{tries: make(map[db.Locale]*patricia.Trie)}
}

func (ix *learnedIndex) loaded(locale db.Locale) bool {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	_, ok := ix.tries[locale]
	return ok
}

// load replaces the trie for locale with the given frequencies.
func (ix *learnedIndex) load(locale db.Locale, freqs []db.WordFrequency) {
	trie := patricia.NewTrie()
	for _, wf := range freqs {
		trie.Set(patricia.Prefix(wf.Text), wf.Count)
	}
	ix.mu.Lock()
	ix.tries[locale] = trie
	ix.mu.Unlock()
}

// put records a learned word. Locales that were never loaded are left alone;
// they are read in full from the store on first use.
func (ix *learnedIndex) put(locale db.Locale, text string, freq int) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if trie, ok := ix.tries[locale]; ok {
		trie.Set(patricia.Prefix(text), freq)
	}
}

func (ix *learnedIndex) remove(locale db.Locale, text string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if trie, ok := ix.tries[locale]; ok {
		trie.Delete(patricia.Prefix(text))
	}
}

func (ix *learnedIndex) drop() {
	ix.mu.Lock()
	ix.tries = make(map[db.Locale]*patricia.Trie)
	ix.mu.Unlock()
}

// search returns learned words matching query, most used first and then
// alphabetically. The visit stops early when ctx is cancelled.
func (ix *learnedIndex) search(ctx context.Context, locale db.Locale, query string, match Match, limit int) ([]string, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	trie, ok := ix.tries[locale]
	if !ok {
		return nil, nil
	}

	var found []candidate
	collect := func(p patricia.Prefix, item patricia.Item) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		word := string(p)
		if match == MatchSubstring && !strings.Contains(word, query) {
			return nil
		}
		freq, _ := item.(int)
		found = append(found, candidate{word: word, freq: freq})
		return nil
	}

	var err error
	if match == MatchPrefix {
		err = trie.VisitSubtree(patricia.Prefix(query), collect)
	} else {
		err = trie.Visit(collect)
	}
	if err != nil {
		return nil, err
	}

	sort.Slice(found, func(i, j int) bool {
		if found[i].freq != found[j].freq {
			return found[i].freq > found[j].freq
		}
		return found[i].word < found[j].word
	})
	if limit > 0 && len(found) > limit {
		found = found[:limit]
	}
	out := make([]string, len(found))
	for i, c := range found {
		out[i] = c.word
	}
	return out, nil
}
