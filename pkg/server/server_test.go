package server

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/japaniel/userdict/internal/logger"
	"github.com/japaniel/userdict/pkg/db"
	"github.com/japaniel/userdict/pkg/dictionary"
	"github.com/japaniel/userdict/pkg/speller"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

type harness struct {
	svc    *dictionary.Service
	reg    *speller.Registry
	fatals []error
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	conn, err := db.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	h := &harness{reg: speller.NewRegistry()}
	h.svc = dictionary.NewService(conn,
		dictionary.WithLogger(logger.Discard()),
		dictionary.WithFatalHandler(func(err error) { h.fatals = append(h.fatals, err) }))
	return h
}

// run serves reqs and returns the responses keyed by id, plus their order.
func (h *harness) run(t *testing.T, reqs ...Request) (map[string]Response, []string) {
	t.Helper()
	var in bytes.Buffer
	enc := msgpack.NewEncoder(&in)
	for _, r := range reqs {
		require.NoError(t, enc.Encode(&r))
	}

	var out bytes.Buffer
	srv := New(h.svc, h.reg, Options{Locale: "en", Logger: logger.Discard()})
	require.NoError(t, srv.Serve(context.Background(), &in, &out))

	byID := make(map[string]Response)
	var order []string
	dec := msgpack.NewDecoder(&out)
	for {
		var resp Response
		err := dec.Decode(&resp)
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		byID[resp.ID] = resp
		order = append(order, resp.ID)
	}
	return byID, order
}

func TestRecordAndList(t *testing.T) {
	h := newHarness(t)
	resp, order := h.run(t,
		Request{ID: "r1", Op: OpRecord, Word: "gopher", Before: []string{"the"}},
		Request{ID: "r2", Op: OpRecord, Word: "gopher", After: []string{"runs", "fast"}},
		Request{ID: "l1", Op: OpList},
	)

	assert.Equal(t, []string{"r1", "r2", "l1"}, order)
	assert.Equal(t, StatusOK, resp["r1"].Status)
	assert.Equal(t, []string{"gopher"}, resp["l1"].Words)
	assert.Empty(t, h.fatals)
}

func TestContexts(t *testing.T) {
	h := newHarness(t)
	resp, _ := h.run(t,
		Request{ID: "r1", Op: OpRecord, Word: "cat", Before: []string{"black", "a"}, After: []string{"sat"}},
		Request{ID: "c1", Op: OpContexts, Word: "cat"},
	)

	require.Equal(t, StatusOK, resp["c1"].Status)
	assert.Equal(t, []ContextMessage{
		{Before: []string{"black", "a"}, Word: "cat", After: []string{"sat"}},
	}, resp["c1"].Contexts)
}

func TestSuggestMergesDictionaryAndSpeller(t *testing.T) {
	h := newHarness(t)
	h.reg.Bind("en", speller.Func(func(ctx context.Context, word string) ([]string, error) {
		return []string{"hello", "helmet", "help", "helix"}, nil
	}))

	resp, _ := h.run(t,
		Request{ID: "a1", Op: OpAdd, Word: "hello"},
		Request{ID: "a2", Op: OpAdd, Word: "help"},
		Request{ID: "s1", Op: OpSuggest, Word: "hel", Before: []string{"say"}},
	)

	require.Contains(t, resp, "s1")
	assert.Equal(t, StatusOK, resp["s1"].Status)
	assert.Equal(t, []string{"hel", "hello", "help", "helmet"}, resp["s1"].Suggestions)
}

func TestSuggestEmptyWord(t *testing.T) {
	h := newHarness(t)
	resp, _ := h.run(t, Request{ID: "s1", Op: OpSuggest})

	require.Contains(t, resp, "s1")
	assert.Equal(t, StatusOK, resp["s1"].Status)
	assert.Empty(t, resp["s1"].Suggestions)
}

func TestSupersededSuggestionIsNotSent(t *testing.T) {
	h := newHarness(t)
	h.reg.Bind("en", speller.Func(func(ctx context.Context, word string) ([]string, error) {
		if word == "slow" {
			<-ctx.Done()
			return []string{"slowly"}, nil
		}
		return nil, nil
	}))

	resp, order := h.run(t,
		Request{ID: "s1", Op: OpSuggest, Word: "slow"},
		Request{ID: "s2", Op: OpSuggest, Word: "fast"},
	)

	assert.Equal(t, []string{"s2"}, order)
	assert.Equal(t, []string{"fast"}, resp["s2"].Suggestions)
}

func TestInvalidWindowIsRejected(t *testing.T) {
	h := newHarness(t)
	resp, _ := h.run(t,
		Request{ID: "r1", Op: OpRecord, Word: "cat", Before: []string{"", "a"}},
		Request{ID: "r2", Op: OpRecord, Word: "cat", After: []string{"a", "b", "c"}},
		Request{ID: "r3", Op: OpRecord},
		Request{ID: "s1", Op: OpSuggest, Word: "ca", After: []string{"", "x"}},
	)

	for _, id := range []string{"r1", "r2", "r3", "s1"} {
		assert.Equal(t, StatusError, resp[id].Status, id)
		assert.NotEmpty(t, resp[id].Error, id)
	}
	assert.Empty(t, h.fatals, "client mistakes must not reach the service")

	w, err := h.svc.Lookup(context.Background(), "cat", "en")
	require.NoError(t, err)
	assert.Nil(t, w)
}

func TestAddRemove(t *testing.T) {
	h := newHarness(t)
	resp, _ := h.run(t,
		Request{ID: "a1", Op: OpAdd, Word: "Gopher", Locale: "de"},
		Request{ID: "l1", Op: OpList, Locale: "de"},
		Request{ID: "d1", Op: OpRemove, Word: "gopher", Locale: "de"},
		Request{ID: "l2", Op: OpList, Locale: "de"},
		Request{ID: "a2", Op: OpAdd},
	)

	assert.Equal(t, []string{"gopher"}, resp["l1"].Words)
	assert.Empty(t, resp["l2"].Words)
	assert.Equal(t, StatusError, resp["a2"].Status)
}

func TestMissingIDAndUnknownOp(t *testing.T) {
	h := newHarness(t)
	resp, order := h.run(t,
		Request{Op: OpHealth},
		Request{ID: "x1", Op: "explode"},
	)

	require.Len(t, order, 2)
	_, err := uuid.Parse(order[0])
	assert.NoError(t, err, "generated id should be a uuid")
	assert.Equal(t, StatusOK, resp[order[0]].Status)
	assert.Equal(t, StatusError, resp["x1"].Status)
	assert.Contains(t, resp["x1"].Error, "explode")
}

func TestMalformedInput(t *testing.T) {
	h := newHarness(t)
	srv := New(h.svc, nil, Options{Logger: logger.Discard()})
	err := srv.Serve(context.Background(), bytes.NewReader([]byte{0xc1}), io.Discard)
	assert.Error(t, err)
}

func TestLastSuggestionWrittenAfterInputEnds(t *testing.T) {
	h := newHarness(t)
	h.reg.Bind("en", speller.Func(func(ctx context.Context, word string) ([]string, error) {
		time.Sleep(20 * time.Millisecond)
		return []string{word + "s"}, nil
	}))

	resp, order := h.run(t,
		Request{ID: "a1", Op: OpAdd, Word: "cake"},
		Request{ID: "s1", Op: OpSuggest, Word: "ca"},
	)

	require.Equal(t, []string{"a1", "s1"}, order)
	assert.Equal(t, []string{"ca", "cake", "cas"}, resp["s1"].Suggestions)
}

func TestBlankWordRecordIsRejected(t *testing.T) {
	h := newHarness(t)
	resp, _ := h.run(t,
		Request{ID: "r1", Op: OpRecord, Word: "   "},
		Request{ID: "r2", Op: OpRecord, Word: "\t", Before: []string{"a"}},
	)

	for _, id := range []string{"r1", "r2"} {
		assert.Equal(t, StatusError, resp[id].Status, id)
		assert.Contains(t, resp[id].Error, dictionary.ErrEmptyWord.Error(), id)
	}
	assert.Empty(t, h.fatals)
}
