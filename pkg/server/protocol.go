/*
Package server exposes the user dictionary over msgpack IPC on stdin/stdout.

Clients write a stream of msgpack maps and read a stream of responses. Every
request carries an id, which the matching response echoes; a request without
one is given a random id.

A suggestion request names the word being typed and up to two neighbours on
each side:

	{"id": "s1", "op": "suggest", "loc": "en", "w": "hel", "b": ["say"]}

and is answered asynchronously with the merged list, echo entry first:

	{"id": "s1", "status": "ok", "s": ["hel", "hello", "help"], "t": 310}

A newer suggest request supersedes an older one; superseded requests get no
response at all.

Mutations are answered in order as soon as they are stored:

	{"id": "r1", "op": "record", "loc": "en", "w": "hello", "b": ["say"], "a": ["world"]}
	{"id": "m1", "op": "add", "w": "gopher"}
	{"id": "d1", "op": "remove", "w": "gopher"}

The "list", "contexts" and "health" ops return learned words, the recorded
windows of a word and a liveness answer respectively.
*/
package server

// Operations understood by the server.
const (
	OpSuggest  = "suggest"
	OpRecord   = "record"
	OpAdd      = "add"
	OpRemove   = "remove"
	OpList     = "list"
	OpContexts = "contexts"
	OpHealth   = "health"
)

// Response statuses.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Request is one client message. Before holds [firstBefore, secondBefore]
// and After holds [firstAfter, secondAfter]; either may be shorter.
type Request struct {
	ID     string   `msgpack:"id"`
	Op     string   `msgpack:"op"`
	Locale string   `msgpack:"loc,omitempty"`
	Word   string   `msgpack:"w,omitempty"`
	Before []string `msgpack:"b,omitempty"`
	After  []string `msgpack:"a,omitempty"`
}

// ContextMessage is one recorded window in a contexts response.
type ContextMessage struct {
	Before []string `msgpack:"b,omitempty"`
	Word   string   `msgpack:"w"`
	After  []string `msgpack:"a,omitempty"`
}

// Response answers one request. Suggestions is omitted when empty.
type Response struct {
	ID          string           `msgpack:"id"`
	Status      string           `msgpack:"status"`
	Error       string           `msgpack:"e,omitempty"`
	Suggestions []string         `msgpack:"s,omitempty"`
	Words       []string         `msgpack:"words,omitempty"`
	Contexts    []ContextMessage `msgpack:"ctx,omitempty"`
	// TimeTaken is the suggestion latency in microseconds.
	TimeTaken int64 `msgpack:"t,omitempty"`
}
