package speller

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"github.com/japaniel/userdict/pkg/db"
	"github.com/tchap/go-patricia/v2/patricia"
)

const (
	// minCorrectionLen is the shortest input that gets corrections.
	minCorrectionLen = 3
	maxEditDistance  = 2
	defaultLimit     = 10
)

type scored struct {
	word string
	freq int
	dist int
}

// WordList is a frequency word list speller: prefix completions first, edit
// distance corrections when nothing completes the input.
type WordList struct {
	trie  *patricia.Trie
	words int
	limit int
}

// NewWordList creates an empty word list returning at most limit entries.
func NewWordList(limit int) *WordList {
	if limit <= 0 {
		limit = defaultLimit
	}
	return &WordList{trie: patricia.NewTrie(), limit: limit}
}

// LoadWordListFile reads a word list from path.
func LoadWordListFile(path string, limit int) (*WordList, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	wl := NewWordList(limit)
	if err := wl.Load(f); err != nil {
		return nil, fmt.Errorf("load word list %s: %w", path, err)
	}
	return wl, nil
}

// Load reads "word [frequency]" lines. Blank lines and lines starting with
// '#' are skipped; a missing frequency counts as 1.
func (wl *WordList) Load(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		freq := 1
		if len(fields) > 1 {
			n, err := strconv.Atoi(fields[1])
			if err != nil {
				return fmt.Errorf("line %d: invalid frequency %q", line, fields[1])
			}
			freq = n
		}
		wl.Add(fields[0], freq)
	}
	return scanner.Err()
}

// Add inserts word with its frequency, keeping the higher value on repeats.
func (wl *WordList) Add(word string, freq int) {
	key := patricia.Prefix(db.Normalize(word))
	if len(key) == 0 {
		return
	}
	if old, ok := wl.trie.Get(key).(int); ok {
		if old >= freq {
			return
		}
	} else {
		wl.words++
	}
	wl.trie.Set(key, freq)
}

// Len returns the number of distinct words.
func (wl *WordList) Len() int { return wl.words }

// Suggest returns completions of word by frequency, or corrections ranked by
// edit distance and then frequency when no word starts with it.
func (wl *WordList) Suggest(ctx context.Context, word string) ([]string, error) {
	lower := db.Normalize(word)
	if lower == "" {
		return []string{}, nil
	}

	var found []scored
	err := wl.trie.VisitSubtree(patricia.Prefix(lower), func(p patricia.Prefix, item patricia.Item) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		found = append(found, scored{word: string(p), freq: item.(int)})
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(found) == 0 && utf8.RuneCountInString(lower) >= minCorrectionLen {
		found, err = wl.corrections(ctx, lower)
		if err != nil {
			return nil, err
		}
	}

	sort.Slice(found, func(i, j int) bool {
		if found[i].dist != found[j].dist {
			return found[i].dist < found[j].dist
		}
		if found[i].freq != found[j].freq {
			return found[i].freq > found[j].freq
		}
		return found[i].word < found[j].word
	})
	if len(found) > wl.limit {
		found = found[:wl.limit]
	}
	out := make([]string, len(found))
	for i, s := range found {
		out[i] = s.word
	}
	return out, nil
}

func (wl *WordList) corrections(ctx context.Context, lower string) ([]scored, error) {
	n := utf8.RuneCountInString(lower)
	var found []scored
	err := wl.trie.Visit(func(p patricia.Prefix, item patricia.Item) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		w := string(p)
		if d := utf8.RuneCountInString(w) - n; d > maxEditDistance || d < -maxEditDistance {
			return nil
		}
		if dist := levenshtein.ComputeDistance(lower, w); dist <= maxEditDistance {
			found = append(found, scored{word: w, freq: item.(int), dist: dist})
		}
		return nil
	})
	return found, err
}
