package dictionary

import (
	"errors"
	"fmt"

	"github.com/japaniel/userdict/pkg/db"
)

var (
	// ErrInvalidWindow reports a window with a two-away token but no
	// adjacent token on the same side.
	ErrInvalidWindow = errors.New("invalid context window")
	// ErrEmptyWord reports a window without a target word.
	ErrEmptyWord = errors.New("context window has no word")
)

// ContextWindow is a word with up to two tokens on each side. Empty strings
// mean the token is absent.
type ContextWindow struct {
	SecondBefore string
	FirstBefore  string
	Word         string
	FirstAfter   string
	SecondAfter  string
}

// Validate checks that a two-away token never appears without the adjacent
// one and that the word is present. A word of only spaces counts as absent.
func (w ContextWindow) Validate() error {
	if db.Normalize(w.Word) == "" {
		return ErrEmptyWord
	}
	if w.SecondBefore != "" && w.FirstBefore == "" {
		return fmt.Errorf("%w: second before %q without first before", ErrInvalidWindow, w.SecondBefore)
	}
	if w.SecondAfter != "" && w.FirstAfter == "" {
		return fmt.Errorf("%w: second after %q without first after", ErrInvalidWindow, w.SecondAfter)
	}
	return nil
}

func (w ContextWindow) record() db.Context {
	return db.Context{
		SecondBefore: w.SecondBefore,
		FirstBefore:  w.FirstBefore,
		Word:         w.Word,
		FirstAfter:   w.FirstAfter,
		SecondAfter:  w.SecondAfter,
	}
}

func windowFromRecord(c db.Context) ContextWindow {
	return ContextWindow{
		SecondBefore: c.SecondBefore,
		FirstBefore:  c.FirstBefore,
		Word:         c.Word,
		FirstAfter:   c.FirstAfter,
		SecondAfter:  c.SecondAfter,
	}
}

// Windows builds one window per token, taking neighbours from the same slice.
// Empty tokens are skipped as targets but still break the neighbourhood.
func Windows(tokens []string) []ContextWindow {
	at := func(i int) string {
		if i < 0 || i >= len(tokens) {
			return ""
		}
		return tokens[i]
	}
	var out []ContextWindow
	for i, tok := range tokens {
		if tok == "" {
			continue
		}
		w := ContextWindow{
			FirstBefore: at(i - 1),
			Word:        tok,
			FirstAfter:  at(i + 1),
		}
		if w.FirstBefore != "" {
			w.SecondBefore = at(i - 2)
		}
		if w.FirstAfter != "" {
			w.SecondAfter = at(i + 2)
		}
		out = append(out, w)
	}
	return out
}
