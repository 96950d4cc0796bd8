// Package ingest learns vocabulary in bulk from whole documents.
package ingest

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/japaniel/userdict/pkg/db"
	"github.com/japaniel/userdict/pkg/dictionary"
	"github.com/japaniel/userdict/pkg/text"
)

// WorkerPoolInterface abstracts the worker pool so tests can inject failing implementations.
type WorkerPoolInterface interface {
	Start(ctx context.Context)
	Submit(Job) error
	// SubmitCtx attempts to enqueue a job but returns promptly if ctx is canceled.
	SubmitCtx(ctx context.Context, job Job) error
	Close()
}

// Recorder stores one observed usage. *dictionary.Service satisfies it.
type Recorder interface {
	RecordUsage(ctx context.Context, window dictionary.ContextWindow, locale db.Locale) error
}

// Learner feeds documents into a Recorder, one usage per word occurrence.
type Learner struct {
	Recorder Recorder
	Analyzer *text.Analyzer
	// Logger is used for informational messages. nil means no logging.
	Logger *log.Logger
	// OnProgress is called every ReportEvery sentences and once at the end.
	OnProgress  func(current, total int)
	ReportEvery int

	// Concurrency settings
	Workers int

	// PoolFactory allows tests to inject custom worker pool implementations.
	PoolFactory func(workers, queue int) WorkerPoolInterface
}

// NewLearner creates a Learner with default settings.
func NewLearner(rec Recorder, analyzer *text.Analyzer) *Learner {
	return &Learner{
		Recorder:    rec,
		Analyzer:    analyzer,
		ReportEvery: 50,
		Workers:     4,
	}
}

// analyzedSentence is the tokenized form of one sentence.
type analyzedSentence struct {
	index int
	words []string
	err   error
}

// Learn tokenizes document concurrently and records every word with its
// neighbours, in document order. Cancellation is honoured between
// sentences; a usage that has started recording always completes. It
// returns the number of usages recorded.
func (l *Learner) Learn(ctx context.Context, locale db.Locale, document string) (int, error) {
	var sentences []string
	for _, s := range text.SplitSentences(document) {
		if strings.TrimSpace(s) != "" {
			sentences = append(sentences, s)
		}
	}
	total := len(sentences)
	if total == 0 {
		return 0, nil
	}

	workers := l.Workers
	if workers <= 0 {
		workers = 1
	}
	var wp WorkerPoolInterface
	if l.PoolFactory != nil {
		wp = l.PoolFactory(workers, workers*2)
	} else {
		wp = NewWorkerPool(workers, workers*2)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	wp.Start(ctx)

	resultCh := make(chan analyzedSentence, workers*2)
	submitErr := make(chan error, 1)
	producerDone := make(chan struct{})

	go func() {
		defer close(producerDone)
		defer close(resultCh)
		defer wp.Close()

		for i, s := range sentences {
			idx, sentence := i, s
			job := func(ctx context.Context) error {
				tokens, err := l.Analyzer.Analyze(sentence, locale)
				res := analyzedSentence{index: idx, err: err}
				if err == nil {
					res.words = text.Sentence{Text: sentence, Tokens: tokens}.Words()
				}
				select {
				case resultCh <- res:
				case <-ctx.Done():
				}
				return err
			}
			if err := wp.SubmitCtx(ctx, job); err != nil {
				if ctx.Err() == nil {
					submitErr <- err
				}
				return
			}
		}
	}()

	// Stop the producer and workers on every return path.
	defer func() {
		cancel()
		<-producerDone
	}()

	buffer := make(map[int]analyzedSentence)
	nextIdx := 0
	recorded := 0

	for res := range resultCh {
		if res.err != nil {
			return recorded, fmt.Errorf("analyze sentence %d: %w", res.index, res.err)
		}
		buffer[res.index] = res

		// Record contiguous finished sentences.
		for {
			item, ok := buffer[nextIdx]
			if !ok {
				break
			}
			delete(buffer, nextIdx)

			if err := ctx.Err(); err != nil {
				return recorded, err
			}
			for _, w := range dictionary.Windows(item.words) {
				if err := l.Recorder.RecordUsage(ctx, w, locale); err != nil {
					return recorded, fmt.Errorf("record %q: %w", w.Word, err)
				}
				recorded++
			}
			nextIdx++

			if l.OnProgress != nil && l.ReportEvery > 0 && nextIdx%l.ReportEvery == 0 && nextIdx < total {
				l.OnProgress(nextIdx, total)
			}
		}
	}

	if nextIdx < total {
		select {
		case err := <-submitErr:
			return recorded, fmt.Errorf("submit sentence: %w", err)
		default:
		}
		if err := ctx.Err(); err != nil {
			return recorded, err
		}
		return recorded, fmt.Errorf("learn: %d of %d sentences processed", nextIdx, total)
	}

	if l.OnProgress != nil {
		l.OnProgress(total, total)
	}
	if l.Logger != nil {
		l.Logger.Info("learned document", "locale", locale, "sentences", total, "usages", recorded)
	}
	return recorded, nil
}
