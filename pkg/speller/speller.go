// Package speller provides the external speller capability consumed by the
// suggestion merger: a ranked completion source per locale that may be
// missing, arrive late, or fail.
package speller

import (
	"context"
	"errors"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/japaniel/userdict/pkg/db"
)

// ErrNotLoaded is returned by spellers whose data is not available yet.
var ErrNotLoaded = errors.New("speller not loaded")

// Speller returns completions and corrections for word, best first.
type Speller interface {
	Suggest(ctx context.Context, word string) ([]string, error)
}

// Func adapts a plain function to Speller.
type Func func(ctx context.Context, word string) ([]string, error)

// Suggest calls f.
func (f Func) Suggest(ctx context.Context, word string) ([]string, error) { return f(ctx, word) }

// Registry binds spellers to locales. A locale without a binding is a
// normal state, not an error.
type Registry struct {
	mu       sync.RWMutex
	spellers map[db.Locale]Speller
	wg       sync.WaitGroup
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{spellers: make(map[db.Locale]Speller)}
}

// Bind installs sp for locale, replacing any previous binding.
func (r *Registry) Bind(locale db.Locale, sp Speller) {
	r.mu.Lock()
	r.spellers[locale] = sp
	r.mu.Unlock()
}

// Unbind removes the speller of locale.
func (r *Registry) Unbind(locale db.Locale) {
	r.mu.Lock()
	delete(r.spellers, locale)
	r.mu.Unlock()
}

// Lookup returns the speller bound to locale, if any.
func (r *Registry) Lookup(locale db.Locale) (Speller, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sp, ok := r.spellers[locale]
	return sp, ok && sp != nil
}

// LoadAsync runs load in the background and binds the result to locale when
// it succeeds. Failures are logged and leave the locale unbound.
func (r *Registry) LoadAsync(locale db.Locale, load func() (Speller, error), logger *log.Logger) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		sp, err := load()
		if err != nil {
			if logger != nil {
				logger.Warn("speller unavailable", "locale", locale, "err", err)
			}
			return
		}
		r.Bind(locale, sp)
		if logger != nil {
			logger.Info("speller loaded", "locale", locale)
		}
	}()
}

// Wait blocks until every LoadAsync call has finished.
func (r *Registry) Wait() {
	r.wg.Wait()
}
