package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/japaniel/userdict/internal/logger"
	"github.com/japaniel/userdict/pkg/db"
	"github.com/japaniel/userdict/pkg/dictionary"
	"github.com/japaniel/userdict/pkg/suggest"
	"github.com/vmihailenco/msgpack/v5"
)

// Dictionary is the part of the Dictionary Service the server calls.
type Dictionary interface {
	suggest.Dictionary
	RecordUsage(ctx context.Context, window dictionary.ContextWindow, locale db.Locale) error
	AddWordManually(ctx context.Context, text string, locale db.Locale) error
	RemoveWord(ctx context.Context, text string, locale db.Locale) error
	LearnedWords(ctx context.Context, locale db.Locale) ([]string, error)
	Contexts(ctx context.Context, text string, locale db.Locale) ([]dictionary.ContextWindow, error)
}

// Options configures a Server.
type Options struct {
	// Locale is used for requests without "loc".
	Locale       db.Locale
	SpellerLimit int
	Logger       *log.Logger
}

// Server answers msgpack requests. Every response is written by a single
// output goroutine, which is also where suggestions are delivered.
type Server struct {
	dict     Dictionary
	spellers suggest.SpellerSource
	opts     Options
	log      *log.Logger
}

// New creates a server over dict and the given spellers, which may be nil.
func New(dict Dictionary, spellers suggest.SpellerSource, opts Options) *Server {
	if opts.Locale == "" {
		opts.Locale = "en"
	}
	if opts.SpellerLimit <= 0 {
		opts.SpellerLimit = suggest.DefaultSpellerLimit
	}
	l := opts.Logger
	if l == nil {
		l = logger.New("server")
	}
	return &Server{dict: dict, spellers: spellers, opts: opts, log: l}
}

// session is the state of one Serve call.
type session struct {
	*Server
	enc    *msgpack.Encoder
	out    chan func()
	merger *suggest.Merger

	errMu    sync.Mutex
	writeErr error
}

// Serve reads requests from r until EOF and writes responses to w. The
// latest pending suggestion is still answered after EOF.
func (s *Server) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	ss := &session{
		Server: s,
		enc:    msgpack.NewEncoder(w),
		out:    make(chan func(), 64),
	}
	ss.merger = suggest.NewMerger(s.dict, s.spellers,
		suggest.WithExecutor(ss.post),
		suggest.WithSpellerLimit(s.opts.SpellerLimit),
		suggest.WithLogger(s.log))

	var outWG sync.WaitGroup
	outWG.Add(1)
	go func() {
		defer outWG.Done()
		for fn := range ss.out {
			fn()
		}
	}()

	s.log.Info("serving msgpack requests", "locale", s.opts.Locale)
	readErr := ss.readLoop(ctx, msgpack.NewDecoder(r))

	// Deliveries already queued on the output loop run before the barrier,
	// so the last suggestion is written before the merger stops.
	ss.merger.Wait()
	flushed := make(chan struct{})
	ss.post(func() { close(flushed) })
	<-flushed
	ss.merger.Close()
	close(ss.out)
	outWG.Wait()

	if readErr != nil {
		return readErr
	}
	ss.errMu.Lock()
	defer ss.errMu.Unlock()
	return ss.writeErr
}

func (ss *session) readLoop(ctx context.Context, dec *msgpack.Decoder) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		var req Request
		if err := dec.Decode(&req); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			// The stream cannot be resynchronised after a bad message.
			return fmt.Errorf("decode request: %w", err)
		}
		if req.ID == "" {
			req.ID = uuid.NewString()
		}
		if req.Locale == "" {
			req.Locale = string(ss.opts.Locale)
		}
		ss.handle(ctx, req)
	}
}

// post runs fn on the output goroutine.
func (ss *session) post(fn func()) { ss.out <- fn }

func (ss *session) respond(resp Response) {
	ss.post(func() { ss.write(resp) })
}

func (ss *session) write(resp Response) {
	if err := ss.enc.Encode(&resp); err != nil {
		ss.log.Error("failed to write response", "id", resp.ID, "err", err)
		ss.errMu.Lock()
		if ss.writeErr == nil {
			ss.writeErr = err
		}
		ss.errMu.Unlock()
	}
}

func (ss *session) fail(id string, err error) {
	ss.log.Warn("request failed", "id", id, "err", err)
	ss.respond(Response{ID: id, Status: StatusError, Error: err.Error()})
}

func (ss *session) handle(ctx context.Context, req Request) {
	locale := db.Locale(req.Locale)
	ss.log.Debug("request", "id", req.ID, "op", req.Op, "word", req.Word)

	switch req.Op {
	case OpSuggest:
		window, err := windowOf(req)
		// An empty word is a valid query with an empty answer.
		if err != nil && !errors.Is(err, dictionary.ErrEmptyWord) {
			ss.fail(req.ID, err)
			return
		}
		start := time.Now()
		id := req.ID
		ss.merger.Request(req.Word, window, locale, func(words []string) {
			ss.write(Response{
				ID:          id,
				Status:      StatusOK,
				Suggestions: words,
				TimeTaken:   time.Since(start).Microseconds(),
			})
		})

	case OpRecord:
		window, err := windowOf(req)
		if err != nil {
			ss.fail(req.ID, err)
			return
		}
		if err := ss.dict.RecordUsage(ctx, window, locale); err != nil {
			ss.fail(req.ID, err)
			return
		}
		ss.respond(Response{ID: req.ID, Status: StatusOK})

	case OpAdd, OpRemove:
		if db.Normalize(req.Word) == "" {
			ss.fail(req.ID, dictionary.ErrEmptyWord)
			return
		}
		var err error
		if req.Op == OpAdd {
			err = ss.dict.AddWordManually(ctx, req.Word, locale)
		} else {
			err = ss.dict.RemoveWord(ctx, req.Word, locale)
		}
		if err != nil {
			ss.fail(req.ID, err)
			return
		}
		ss.respond(Response{ID: req.ID, Status: StatusOK})

	case OpList:
		words, err := ss.dict.LearnedWords(ctx, locale)
		if err != nil {
			ss.fail(req.ID, err)
			return
		}
		ss.respond(Response{ID: req.ID, Status: StatusOK, Words: words})

	case OpContexts:
		windows, err := ss.dict.Contexts(ctx, req.Word, locale)
		if err != nil {
			ss.fail(req.ID, err)
			return
		}
		msgs := make([]ContextMessage, len(windows))
		for i, w := range windows {
			msgs[i] = messageOf(w)
		}
		ss.respond(Response{ID: req.ID, Status: StatusOK, Contexts: msgs})

	case OpHealth:
		ss.respond(Response{ID: req.ID, Status: StatusOK})

	default:
		ss.fail(req.ID, fmt.Errorf("unknown op %q", req.Op))
	}
}

// windowOf builds and validates the context window of a request. Client
// mistakes are reported back instead of reaching the service, where an
// invalid window is fatal.
func windowOf(req Request) (dictionary.ContextWindow, error) {
	if len(req.Before) > 2 || len(req.After) > 2 {
		return dictionary.ContextWindow{}, fmt.Errorf("%w: at most two tokens per side", dictionary.ErrInvalidWindow)
	}
	at := func(s []string, i int) string {
		if i < len(s) {
			return s[i]
		}
		return ""
	}
	w := dictionary.ContextWindow{
		FirstBefore:  at(req.Before, 0),
		SecondBefore: at(req.Before, 1),
		Word:         req.Word,
		FirstAfter:   at(req.After, 0),
		SecondAfter:  at(req.After, 1),
	}
	return w, w.Validate()
}

func messageOf(w dictionary.ContextWindow) ContextMessage {
	side := func(first, second string) []string {
		switch {
		case first == "":
			return nil
		case second == "":
			return []string{first}
		}
		return []string{first, second}
	}
	return ContextMessage{
		Before: side(w.FirstBefore, w.SecondBefore),
		Word:   w.Word,
		After:  side(w.FirstAfter, w.SecondAfter),
	}
}
