package db

// Locale is an opaque partition key for words. No linguistic logic is
// attached to it at this layer.
type Locale string

// State is the lifecycle state of a word. Values are persisted verbatim, so
// states written by newer versions round-trip unchanged.
type State string

const (
	StateCandidate     State = "candidate"
	StateUserWord      State = "user_word"
	StateManuallyAdded State = "manually_added"
	// StateBlacklisted is reserved: no flow writes it yet.
	StateBlacklisted State = "blacklisted"
)

// Learned reports whether words in this state are listed and suggested.
func (s State) Learned() bool {
	return s == StateUserWord || s == StateManuallyAdded
}

// Word is a learned or candidate word. Text is stored lower-cased.
type Word struct {
	ID     int64
	Text   string
	Locale Locale
	State  State
}

// Context is one recorded usage window of a word. Empty strings mean the
// token was absent; they are stored as NULL.
type Context struct {
	ID           int64
	WordID       int64
	SecondBefore string
	FirstBefore  string
	Word         string
	FirstAfter   string
	SecondAfter  string
}

// WordFrequency pairs a learned word with its number of recorded contexts.
type WordFrequency struct {
	Text  string
	Count int
}
