package suggest

import (
	"context"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/japaniel/userdict/internal/logger"
	"github.com/japaniel/userdict/pkg/db"
	"github.com/japaniel/userdict/pkg/dictionary"
	"github.com/japaniel/userdict/pkg/speller"
	"golang.org/x/sync/errgroup"
)

// Dictionary is the learned-word source. *dictionary.Service satisfies it.
type Dictionary interface {
	Suggest(ctx context.Context, query string, locale db.Locale) ([]string, error)
}

// SpellerSource resolves the speller of a locale at the time of each query.
// *speller.Registry satisfies it.
type SpellerSource interface {
	Lookup(locale db.Locale) (speller.Speller, bool)
}

// ContextualSpeller is implemented by spellers that rank using the words
// around the one being typed. The merger prefers it when available.
type ContextualSpeller interface {
	SuggestContext(ctx context.Context, window dictionary.ContextWindow) ([]string, error)
}

// Executor runs fn in the context where results must be delivered.
type Executor func(fn func())

type request struct {
	gen     uint64
	ctx     context.Context
	word    string
	window  dictionary.ContextWindow
	locale  db.Locale
	deliver func([]string)
}

// Merger computes merged suggestions on one background worker. Only the
// most recent request can be delivered; older ones are cancelled and their
// results discarded.
type Merger struct {
	dict       Dictionary
	spellers   SpellerSource
	exec       Executor
	spellerCap int
	log        *log.Logger

	mu      sync.Mutex
	idle    *sync.Cond
	gen     uint64
	cancel  context.CancelFunc
	pending *request
	busy    bool
	closed  bool

	root     context.Context
	stop     context.CancelFunc
	wake     chan struct{}
	finished chan struct{}
}

// MergerOption configures a Merger.
type MergerOption func(*Merger)

// WithExecutor sets where deliver callbacks run. By default they run on the
// worker goroutine.
func WithExecutor(exec Executor) MergerOption {
	return func(m *Merger) { m.exec = exec }
}

// WithSpellerLimit sets how many raw speller entries are merged.
func WithSpellerLimit(n int) MergerOption {
	return func(m *Merger) { m.spellerCap = n }
}

// WithLogger sets the merger logger.
func WithLogger(l *log.Logger) MergerOption {
	return func(m *Merger) { m.log = l }
}

// NewMerger starts the suggestion worker. dict and spellers may be nil.
func NewMerger(dict Dictionary, spellers SpellerSource, opts ...MergerOption) *Merger {
	root, stop := context.WithCancel(context.Background())
	m := &Merger{
		dict:       dict,
		spellers:   spellers,
		spellerCap: DefaultSpellerLimit,
		root:       root,
		stop:       stop,
		wake:       make(chan struct{}, 1),
		finished:   make(chan struct{}),
	}
	m.idle = sync.NewCond(&m.mu)
	for _, opt := range opts {
		opt(m)
	}
	if m.exec == nil {
		m.exec = func(fn func()) { fn() }
	}
	if m.log == nil {
		m.log = logger.New("suggest")
	}
	go m.loop()
	return m
}

// Request schedules a suggestion computation for word and returns at once.
// Any earlier request that has not been delivered yet is cancelled.
func (m *Merger) Request(word string, window dictionary.ContextWindow, locale db.Locale, deliver func([]string)) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.gen++
	if m.cancel != nil {
		m.cancel()
	}
	ctx, cancel := context.WithCancel(m.root)
	m.cancel = cancel
	if m.pending != nil {
		m.log.Debug("suggestion superseded before start", "word", m.pending.word)
	}
	m.pending = &request{
		gen:     m.gen,
		ctx:     ctx,
		word:    word,
		window:  window,
		locale:  locale,
		deliver: deliver,
	}
	m.mu.Unlock()

	select {
	case m.wake <- struct{}{}:
	default:
	}
}

// Close cancels outstanding work and stops the worker. Requests made after
// Close are ignored.
func (m *Merger) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		<-m.finished
		return
	}
	m.closed = true
	if m.cancel != nil {
		m.cancel()
	}
	m.pending = nil
	m.idle.Broadcast()
	m.mu.Unlock()

	m.stop()
	<-m.finished
}

// Wait blocks until the latest request has been handed to the executor or
// dropped.
func (m *Merger) Wait() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for !m.closed && (m.pending != nil || m.busy) {
		m.idle.Wait()
	}
}

func (m *Merger) loop() {
	defer close(m.finished)
	for {
		select {
		case <-m.root.Done():
			return
		case <-m.wake:
		}
		m.mu.Lock()
		r := m.pending
		m.pending = nil
		m.busy = r != nil
		m.mu.Unlock()
		if r != nil {
			m.run(r)
		}
		m.mu.Lock()
		m.busy = false
		m.idle.Broadcast()
		m.mu.Unlock()
	}
}

func (m *Merger) current(gen uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.closed && m.gen == gen
}

func (m *Merger) run(r *request) {
	if r.ctx.Err() != nil {
		return
	}

	var results []string
	if r.word == "" {
		results = []string{}
	} else {
		dict, spell := m.fetch(r)
		results = Merge(r.word, dict, spell, m.spellerCap)
	}

	if r.ctx.Err() != nil {
		m.log.Debug("suggestion cancelled", "word", r.word)
		return
	}
	m.exec(func() {
		if r.ctx.Err() != nil || !m.current(r.gen) {
			m.log.Debug("dropping stale suggestion", "word", r.word)
			return
		}
		r.deliver(results)
	})
}

// fetch queries the dictionary and the speller concurrently. Failures of
// either source only remove that source's contribution.
func (m *Merger) fetch(r *request) (dict, spell []string) {
	var g errgroup.Group
	if m.dict != nil {
		g.Go(func() error {
			words, err := m.dict.Suggest(r.ctx, r.word, r.locale)
			if err != nil {
				if r.ctx.Err() == nil {
					m.log.Warn("dictionary suggestions failed", "word", r.word, "err", err)
				}
				return nil
			}
			dict = words
			return nil
		})
	}
	if m.spellers != nil {
		if sp, ok := m.spellers.Lookup(r.locale); ok {
			g.Go(func() error {
				words, err := m.callSpeller(r, sp)
				if err != nil {
					if r.ctx.Err() == nil {
						m.log.Warn("speller failed", "locale", r.locale, "word", r.word, "err", err)
					}
					return nil
				}
				spell = words
				return nil
			})
		}
	}
	// Source failures are logged above and never fail the group.
	g.Wait()
	return dict, spell
}

func (m *Merger) callSpeller(r *request, sp speller.Speller) (words []string, err error) {
	defer func() {
		if p := recover(); p != nil {
			words, err = nil, fmt.Errorf("speller panic: %v", p)
		}
	}()
	if cs, ok := sp.(ContextualSpeller); ok {
		w := r.window
		w.Word = r.word
		return cs.SuggestContext(r.ctx, w)
	}
	return sp.Suggest(r.ctx, r.word)
}
