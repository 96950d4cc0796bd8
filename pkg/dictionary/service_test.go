package dictionary

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/japaniel/userdict/internal/logger"
	"github.com/japaniel/userdict/pkg/db"
)

type fatalRecorder struct {
	errs []error
}

func (f *fatalRecorder) handle(err error) { f.errs = append(f.errs, err) }

func setupService(t *testing.T, opts ...Option) (*Service, *fatalRecorder) {
	t.Helper()
	conn, err := db.Open(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	rec := &fatalRecorder{}
	opts = append([]Option{WithLogger(logger.Discard()), WithFatalHandler(rec.handle)}, opts...)
	return NewService(conn, opts...), rec
}

func mustState(t *testing.T, s *Service, text string, locale db.Locale) db.State {
	t.Helper()
	w, err := s.Lookup(context.Background(), text, locale)
	if err != nil {
		t.Fatalf("lookup %s: %v", text, err)
	}
	if w == nil {
		t.Fatalf("expected %s to exist", text)
	}
	return w.State
}

func TestRecordUsageCreatesCandidate(t *testing.T) {
	s, rec := setupService(t)
	ctx := context.Background()

	if err := s.RecordUsage(ctx, ContextWindow{FirstBefore: "say", Word: "Hello", FirstAfter: "world"}, "en"); err != nil {
		t.Fatalf("record: %v", err)
	}
	if got := mustState(t, s, "hello", "en"); got != db.StateCandidate {
		t.Fatalf("expected candidate, got %s", got)
	}
	words, _ := s.LearnedWords(ctx, "en")
	if len(words) != 0 {
		t.Fatalf("candidates must not be listed, got %v", words)
	}
	if len(rec.errs) != 0 {
		t.Fatalf("unexpected fatal errors: %v", rec.errs)
	}
}

func TestRecordUsagePromotesOnSecondObservation(t *testing.T) {
	s, _ := setupService(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := s.RecordUsage(ctx, ContextWindow{Word: "gopher"}, "en"); err != nil {
			t.Fatalf("record %d: %v", i, err)
		}
	}
	if got := mustState(t, s, "gopher", "en"); got != db.StateUserWord {
		t.Fatalf("expected user word, got %s", got)
	}
	words, _ := s.LearnedWords(ctx, "en")
	if !reflect.DeepEqual(words, []string{"gopher"}) {
		t.Fatalf("expected [gopher], got %v", words)
	}

	// A third usage keeps the state and adds a context.
	if err := s.RecordUsage(ctx, ContextWindow{FirstBefore: "the", Word: "gopher"}, "en"); err != nil {
		t.Fatalf("record: %v", err)
	}
	if got := mustState(t, s, "gopher", "en"); got != db.StateUserWord {
		t.Fatalf("expected user word, got %s", got)
	}
	ctxs, _ := s.Contexts(ctx, "gopher", "en")
	if len(ctxs) != 3 {
		t.Fatalf("expected 3 contexts, got %d", len(ctxs))
	}
}

func TestRecordUsageLocalesArePartitions(t *testing.T) {
	s, _ := setupService(t)
	ctx := context.Background()
	_ = s.RecordUsage(ctx, ContextWindow{Word: "taco"}, "en")
	_ = s.RecordUsage(ctx, ContextWindow{Word: "taco"}, "es")
	if got := mustState(t, s, "taco", "en"); got != db.StateCandidate {
		t.Fatalf("en: expected candidate, got %s", got)
	}
	if got := mustState(t, s, "taco", "es"); got != db.StateCandidate {
		t.Fatalf("es: expected candidate, got %s", got)
	}
}

func TestRecordUsageBlacklistedKeepsState(t *testing.T) {
	s, _ := setupService(t)
	ctx := context.Background()
	id, err := db.InsertWord(s.conn, "spam", "en", db.StateBlacklisted)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := s.RecordUsage(ctx, ContextWindow{Word: "spam"}, "en"); err != nil {
		t.Fatalf("record: %v", err)
	}
	if got := mustState(t, s, "spam", "en"); got != db.StateBlacklisted {
		t.Fatalf("expected blacklisted, got %s", got)
	}
	n, _ := db.CountContexts(s.conn, id)
	if n != 1 {
		t.Fatalf("expected context to be recorded, got %d", n)
	}
	out, _ := s.Suggest(ctx, "sp", "en")
	if len(out) != 0 {
		t.Fatalf("blacklisted words must not be suggested, got %v", out)
	}
}

func TestRecordUsageInvalidWindowIsFatal(t *testing.T) {
	s, rec := setupService(t)
	ctx := context.Background()

	err := s.RecordUsage(ctx, ContextWindow{SecondBefore: "a", Word: "b"}, "en")
	if !errors.Is(err, ErrInvalidWindow) {
		t.Fatalf("expected ErrInvalidWindow, got %v", err)
	}
	err = s.RecordUsage(ctx, ContextWindow{Word: "b", SecondAfter: "c"}, "en")
	if !errors.Is(err, ErrInvalidWindow) {
		t.Fatalf("expected ErrInvalidWindow, got %v", err)
	}
	if len(rec.errs) != 2 {
		t.Fatalf("expected 2 fatal reports, got %d", len(rec.errs))
	}
	if w, _ := s.Lookup(ctx, "b", "en"); w != nil {
		t.Fatalf("invalid windows must not be stored, got %+v", w)
	}

	// both present and both absent are fine
	if err := s.RecordUsage(ctx, ContextWindow{SecondBefore: "a", FirstBefore: "big", Word: "b", FirstAfter: "c", SecondAfter: "d"}, "en"); err != nil {
		t.Fatalf("full window: %v", err)
	}
	if err := s.RecordUsage(ctx, ContextWindow{Word: "b"}, "en"); err != nil {
		t.Fatalf("bare window: %v", err)
	}
	if len(rec.errs) != 2 {
		t.Fatalf("valid windows must not be fatal, got %v", rec.errs)
	}
}

func TestRecordUsageEmptyWordIsFatal(t *testing.T) {
	s, rec := setupService(t)
	err := s.RecordUsage(context.Background(), ContextWindow{FirstBefore: "x"}, "en")
	if !errors.Is(err, ErrEmptyWord) {
		t.Fatalf("expected ErrEmptyWord, got %v", err)
	}
	if len(rec.errs) != 1 {
		t.Fatalf("expected fatal report, got %v", rec.errs)
	}
}

func TestRecordUsageBlankWordIsFatal(t *testing.T) {
	s, rec := setupService(t)
	err := s.RecordUsage(context.Background(), ContextWindow{FirstBefore: "x", Word: "   "}, "en")
	if !errors.Is(err, ErrEmptyWord) {
		t.Fatalf("expected ErrEmptyWord, got %v", err)
	}
	if len(rec.errs) != 1 {
		t.Fatalf("expected one fatal report, got %v", rec.errs)
	}
	if err := (ContextWindow{Word: " \t"}).Validate(); !errors.Is(err, ErrEmptyWord) {
		t.Fatalf("blank word should fail validation, got %v", err)
	}
}

func TestStorageFailureIsFatal(t *testing.T) {
	s, rec := setupService(t)
	s.conn.Close()
	if err := s.RecordUsage(context.Background(), ContextWindow{Word: "late"}, "en"); err == nil {
		t.Fatal("expected error on closed database")
	}
	if len(rec.errs) != 1 {
		t.Fatalf("expected fatal report, got %v", rec.errs)
	}
}

func TestAddWordManually(t *testing.T) {
	s, _ := setupService(t)
	ctx := context.Background()

	if err := s.AddWordManually(ctx, "Kubernetes", "en"); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := s.AddWordManually(ctx, "kubernetes", "en"); err != nil {
		t.Fatalf("add again: %v", err)
	}
	if got := mustState(t, s, "kubernetes", "en"); got != db.StateManuallyAdded {
		t.Fatalf("expected manually added, got %s", got)
	}
	rows, _ := db.DumpWords(s.conn)
	if len(rows) != 1 {
		t.Fatalf("expected exactly one word row, got %+v", rows)
	}
	ctxs, _ := s.Contexts(ctx, "kubernetes", "en")
	if len(ctxs) != 1 || ctxs[0].Word != "Kubernetes" || ctxs[0].FirstBefore != "" {
		t.Fatalf("expected one word-only context, got %+v", ctxs)
	}
	words, _ := s.LearnedWords(ctx, "en")
	if !reflect.DeepEqual(words, []string{"kubernetes"}) {
		t.Fatalf("expected [kubernetes], got %v", words)
	}
}

func TestAddWordManuallyOverridesState(t *testing.T) {
	s, _ := setupService(t)
	ctx := context.Background()

	_ = s.RecordUsage(ctx, ContextWindow{Word: "draft"}, "en")
	if _, err := db.InsertWord(s.conn, "nope", "en", db.StateBlacklisted); err != nil {
		t.Fatal(err)
	}
	for _, w := range []string{"draft", "nope"} {
		if err := s.AddWordManually(ctx, w, "en"); err != nil {
			t.Fatalf("add %s: %v", w, err)
		}
		if got := mustState(t, s, w, "en"); got != db.StateManuallyAdded {
			t.Fatalf("%s: expected manually added, got %s", w, got)
		}
	}
	// existing words keep their history and gain no extra context
	ctxs, _ := s.Contexts(ctx, "draft", "en")
	if len(ctxs) != 1 {
		t.Fatalf("expected 1 context for draft, got %d", len(ctxs))
	}
}

func TestRemoveWordDropsContexts(t *testing.T) {
	s, _ := setupService(t)
	ctx := context.Background()

	_ = s.RecordUsage(ctx, ContextWindow{Word: "ephemeral"}, "en")
	_ = s.RecordUsage(ctx, ContextWindow{FirstBefore: "so", Word: "ephemeral"}, "en")
	before, _ := s.Contexts(ctx, "ephemeral", "en")
	if len(before) != 2 {
		t.Fatalf("expected 2 contexts, got %d", len(before))
	}
	if got, _ := s.Suggest(ctx, "eph", "en"); len(got) != 1 {
		t.Fatalf("expected suggestion before removal, got %v", got)
	}

	if err := s.RemoveWord(ctx, "Ephemeral", "en"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	after, _ := s.Contexts(ctx, "ephemeral", "en")
	if len(after) != 0 {
		t.Fatalf("expected no contexts after removal, got %d", len(after))
	}
	if got, _ := s.Suggest(ctx, "eph", "en"); len(got) != 0 {
		t.Fatalf("expected no suggestion after removal, got %v", got)
	}
	if err := s.RemoveWord(ctx, "ephemeral", "en"); err != nil {
		t.Fatalf("removing a missing word must succeed: %v", err)
	}
}

func TestSuggestRanksByUsage(t *testing.T) {
	s, _ := setupService(t)
	ctx := context.Background()

	record := func(word string, times int) {
		for i := 0; i < times; i++ {
			if err := s.RecordUsage(ctx, ContextWindow{Word: word}, "en"); err != nil {
				t.Fatalf("record %s: %v", word, err)
			}
		}
	}
	record("help", 2)
	record("hello", 2)
	record("helmet", 4)
	record("helium", 1) // candidate only
	record("world", 3)

	got, err := s.Suggest(ctx, "hel", "en")
	if err != nil {
		t.Fatalf("suggest: %v", err)
	}
	want := []string{"helmet", "hello", "help"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}

	// The index follows later mutations.
	if err := s.AddWordManually(ctx, "helix", "en"); err != nil {
		t.Fatal(err)
	}
	record("help", 3)
	got, _ = s.Suggest(ctx, "hel", "en")
	want = []string{"help", "helmet", "hello", "helix"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}

	got, _ = s.Suggest(ctx, "Hel", "en")
	if len(got) == 0 || got[0] != "Help" {
		t.Fatalf("expected capitalized results, got %v", got)
	}
}

func TestSuggestLimitAndSubstring(t *testing.T) {
	s, _ := setupService(t, WithMatch(MatchSubstring), WithLimit(2))
	ctx := context.Background()
	for _, w := range []string{"unhelpful", "helper", "shell", "yellow"} {
		if err := s.AddWordManually(ctx, w, "en"); err != nil {
			t.Fatal(err)
		}
	}
	got, err := s.Suggest(ctx, "hel", "en")
	if err != nil {
		t.Fatalf("suggest: %v", err)
	}
	want := []string{"helper", "shell"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestSuggestCancelled(t *testing.T) {
	s, _ := setupService(t)
	_ = s.AddWordManually(context.Background(), "alpha", "en")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.Suggest(ctx, "a", "en"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestResetClearsIndex(t *testing.T) {
	s, _ := setupService(t)
	ctx := context.Background()
	_ = s.AddWordManually(ctx, "gone", "en")
	if got, _ := s.Suggest(ctx, "go", "en"); len(got) != 1 {
		t.Fatalf("expected suggestion, got %v", got)
	}
	if err := s.Reset(ctx); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if got, _ := s.Suggest(ctx, "go", "en"); len(got) != 0 {
		t.Fatalf("expected nothing after reset, got %v", got)
	}
}

func TestWindows(t *testing.T) {
	got := Windows([]string{"the", "quick", "brown", "fox"})
	want := []ContextWindow{
		{Word: "the", FirstAfter: "quick", SecondAfter: "brown"},
		{FirstBefore: "the", Word: "quick", FirstAfter: "brown", SecondAfter: "fox"},
		{SecondBefore: "the", FirstBefore: "quick", Word: "brown", FirstAfter: "fox"},
		{SecondBefore: "quick", FirstBefore: "brown", Word: "fox"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
	for _, w := range got {
		if err := w.Validate(); err != nil {
			t.Fatalf("window %+v invalid: %v", w, err)
		}
	}

	single := Windows([]string{"solo"})
	if len(single) != 1 || single[0] != (ContextWindow{Word: "solo"}) {
		t.Fatalf("unexpected single window %+v", single)
	}
	if len(Windows(nil)) != 0 {
		t.Fatal("expected no windows for no tokens")
	}
}

func TestDump(t *testing.T) {
	s, _ := setupService(t)
	ctx := context.Background()

	if err := s.RecordUsage(ctx, ContextWindow{FirstBefore: "a", Word: "cat"}, "en"); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := s.AddWordManually(ctx, "dog", "en"); err != nil {
		t.Fatalf("add: %v", err)
	}

	words, contexts, err := s.Dump(ctx)
	if err != nil {
		t.Fatalf("dump: %v", err)
	}
	if len(words) != 2 || len(contexts) != 2 {
		t.Fatalf("expected 2 words and 2 contexts, got %d and %d", len(words), len(contexts))
	}
	if words[1].State != db.StateManuallyAdded || contexts[1].Word != "dog" {
		t.Fatalf("unexpected rows %+v %+v", words, contexts)
	}
}
