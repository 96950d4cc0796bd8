// Package dictionary learns the words a user types and answers learned-word
// queries on top of the word and context store.
//
// A word seen once is a candidate. Seeing it again promotes it to a user
// word. Words added explicitly are manually added whatever their prior state.
// Only the Service writes states; the store accepts any value.
package dictionary

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"unicode"

	"github.com/charmbracelet/log"
	"github.com/japaniel/userdict/internal/logger"
	"github.com/japaniel/userdict/pkg/db"
)

// FatalHandler is invoked with unrecoverable failures: storage errors and
// malformed context windows. The default logs and exits.
type FatalHandler func(err error)

// Service owns the word and context store. All store access goes through its
// mutex, so a single connection is never used by overlapping calls.
type Service struct {
	mu    sync.Mutex
	conn  *sql.DB
	index *learnedIndex

	log   *log.Logger
	fatal FatalHandler
	match Match
	limit int
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger used by the service.
func WithLogger(l *log.Logger) Option {
	return func(s *Service) { s.log = l }
}

// WithFatalHandler replaces the default exit-on-failure behaviour.
func WithFatalHandler(h FatalHandler) Option {
	return func(s *Service) { s.fatal = h }
}

// WithMatch sets the rule Suggest uses to compare queries with learned words.
func WithMatch(m Match) Option {
	return func(s *Service) { s.match = m }
}

// WithLimit caps the number of Suggest results. Zero means no cap.
func WithLimit(n int) Option {
	return func(s *Service) { s.limit = n }
}

// NewService creates a Service over an initialized connection.
func NewService(conn *sql.DB, opts ...Option) *Service {
	s := &Service{
		conn:  conn,
		index: newLearnedIndex(),
		match: MatchPrefix,
		limit: 5,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logger.New("dictionary")
	}
	if s.fatal == nil {
		s.fatal = func(err error) { s.log.Fatal("unrecoverable dictionary failure", "err", err) }
	}
	return s
}

func (s *Service) fail(op string, err error) error {
	err = fmt.Errorf("%s: %w", op, err)
	s.fatal(err)
	return err
}

// RecordUsage stores an observed usage of window.Word. A new word becomes a
// candidate, a candidate seen again becomes a user word, and every other
// state keeps its value while still gaining the context.
func (s *Service) RecordUsage(ctx context.Context, window ContextWindow, locale db.Locale) error {
	if err := window.Validate(); err != nil {
		return s.fail("record usage", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var learned *db.WordFrequency
	// Once started the write runs to completion, so the caller's ctx is not
	// passed to the transaction.
	err := db.WithTx(context.WithoutCancel(ctx), s.conn, func(tx *sql.Tx) error {
		w, err := db.FindWord(tx, window.Word, locale)
		if err != nil {
			return err
		}
		if w == nil {
			id, err := db.InsertWord(tx, window.Word, locale, db.StateCandidate)
			if err != nil {
				return err
			}
			_, err = db.InsertContext(tx, window.record(), id)
			return err
		}

		if w.State == db.StateCandidate {
			if err := db.UpdateWordState(tx, w.ID, db.StateUserWord); err != nil {
				return err
			}
			w.State = db.StateUserWord
			s.log.Debug("promoted candidate", "word", w.Text, "locale", locale)
		}
		if _, err := db.InsertContext(tx, window.record(), w.ID); err != nil {
			return err
		}
		if w.State.Learned() {
			n, err := db.CountContexts(tx, w.ID)
			if err != nil {
				return err
			}
			learned = &db.WordFrequency{Text: w.Text, Count: n}
		}
		return nil
	})
	if err != nil {
		return s.fail("record usage", err)
	}
	if learned != nil {
		s.index.put(locale, learned.Text, learned.Count)
	}
	return nil
}

// AddWordManually marks text as manually added, inserting it with a
// word-only context when it does not exist yet. Calling it again is a no-op.
func (s *Service) AddWordManually(ctx context.Context, text string, locale db.Locale) error {
	if db.Normalize(text) == "" {
		return s.fail("add word", ErrEmptyWord)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var freq db.WordFrequency
	err := db.WithTx(context.WithoutCancel(ctx), s.conn, func(tx *sql.Tx) error {
		w, err := db.FindWord(tx, text, locale)
		if err != nil {
			return err
		}
		var id int64
		if w == nil {
			id, err = db.InsertWord(tx, text, locale, db.StateManuallyAdded)
			if err != nil {
				return err
			}
			if _, err := db.InsertContext(tx, ContextWindow{Word: text}.record(), id); err != nil {
				return err
			}
		} else {
			id = w.ID
			if w.State != db.StateManuallyAdded {
				if err := db.UpdateWordState(tx, id, db.StateManuallyAdded); err != nil {
					return err
				}
			}
		}
		n, err := db.CountContexts(tx, id)
		if err != nil {
			return err
		}
		freq = db.WordFrequency{Text: db.Normalize(text), Count: n}
		return nil
	})
	if err != nil {
		return s.fail("add word", err)
	}
	s.index.put(locale, freq.Text, freq.Count)
	return nil
}

// RemoveWord deletes text and its whole context history from locale.
func (s *Service) RemoveWord(ctx context.Context, text string, locale db.Locale) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := db.DeleteWord(s.conn, text, locale)
	if err != nil {
		return s.fail("remove word", err)
	}
	s.index.remove(locale, db.Normalize(text))
	s.log.Debug("removed word", "word", text, "locale", locale, "rows", n)
	return nil
}

// LearnedWords lists user and manually added words of locale alphabetically.
func (s *Service) LearnedWords(ctx context.Context, locale db.Locale) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	words, err := db.ListLearnedWords(s.conn, locale)
	if err != nil {
		return nil, s.fail("learned words", err)
	}
	return words, nil
}

// Contexts returns every recorded window of text, oldest first.
func (s *Service) Contexts(ctx context.Context, text string, locale db.Locale) ([]ContextWindow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := db.ListContexts(s.conn, text, locale)
	if err != nil {
		return nil, s.fail("contexts", err)
	}
	out := make([]ContextWindow, len(records))
	for i, r := range records {
		out[i] = windowFromRecord(r)
	}
	return out, nil
}

// Lookup returns the stored record for text, or nil when it is unknown.
func (s *Service) Lookup(ctx context.Context, text string, locale db.Locale) (*db.Word, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, err := db.FindWord(s.conn, text, locale)
	if err != nil {
		return nil, s.fail("lookup", err)
	}
	return w, nil
}

// Suggest returns learned words matching query, most used first. Candidates
// and blacklisted words are never returned. Results follow the
// capitalization of the query.
func (s *Service) Suggest(ctx context.Context, query string, locale db.Locale) ([]string, error) {
	normalized := db.Normalize(query)
	if normalized == "" {
		return []string{}, nil
	}
	if err := s.ensureIndex(locale); err != nil {
		return nil, err
	}
	words, err := s.index.search(ctx, locale, normalized, s.match, s.limit)
	if err != nil {
		return nil, err
	}
	for i, w := range words {
		words[i] = applyCapitalization(w, query)
	}
	return words, nil
}

func (s *Service) ensureIndex(locale db.Locale) error {
	if s.index.loaded(locale) {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.index.loaded(locale) {
		return nil
	}
	freqs, err := db.LearnedWordFrequencies(s.conn, locale)
	if err != nil {
		return s.fail("load suggestion index", err)
	}
	s.index.load(locale, freqs)
	s.log.Debug("loaded suggestion index", "locale", locale, "words", len(freqs))
	return nil
}

// Dump returns every stored word and context row. Diagnostics only.
func (s *Service) Dump(ctx context.Context) ([]db.Word, []db.Context, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	words, err := db.DumpWords(s.conn)
	if err != nil {
		return nil, nil, s.fail("dump words", err)
	}
	contexts, err := db.DumpContexts(s.conn)
	if err != nil {
		return nil, nil, s.fail("dump contexts", err)
	}
	return words, contexts, nil
}

// Reset drops all stored words and contexts. Test fixtures only.
func (s *Service) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := db.Reset(s.conn); err != nil {
		return s.fail("reset", err)
	}
	s.index.drop()
	return nil
}

// applyCapitalization upper-cases the runes of word at the positions where
// the typed pattern has an upper-case rune.
func applyCapitalization(word, pattern string) string {
	upper := make([]bool, 0, len(pattern))
	hasUpper := false
	for _, r := range pattern {
		u := unicode.IsUpper(r)
		upper = append(upper, u)
		hasUpper = hasUpper || u
	}
	if !hasUpper {
		return word
	}
	runes := []rune(word)
	for i := 0; i < len(runes) && i < len(upper); i++ {
		if upper[i] {
			runes[i] = unicode.ToUpper(runes[i])
		}
	}
	return string(runes)
}
