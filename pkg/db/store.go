package db

import (
	"database/sql"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DBExecutor is an interface that allows methods to accept either *sql.DB or *sql.Tx
type DBExecutor interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	Query(query string, args ...interface{}) (*sql.Rows, error)
	QueryRow(query string, args ...interface{}) *sql.Row
}

// Normalize case-folds text the way it is stored and looked up.
func Normalize(text string) string {
	// A Caser is stateful, so one is built per call.
	return cases.Lower(language.Und).String(strings.TrimSpace(text))
}

// FindWord returns the word matching text within locale, or nil if absent.
// When several rows match, the oldest wins.
func FindWord(db DBExecutor, text string, locale Locale) (*Word, error) {
	var w Word
	var state string
	err := db.QueryRow(
		`SELECT id, text, locale, state FROM words WHERE text = ? AND locale = ? ORDER BY id LIMIT 1`,
		Normalize(text), string(locale),
	).Scan(&w.ID, &w.Text, &w.Locale, &state)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find word: %w", err)
	}
	w.State = State(state)
	return &w, nil
}

// InsertWord stores a new word with the given state and returns its id.
func InsertWord(db DBExecutor, text string, locale Locale, state State) (int64, error) {
	normalized := Normalize(text)
	if normalized == "" {
		return 0, fmt.Errorf("word must be non-empty")
	}
	res, err := db.Exec(`INSERT INTO words (text, locale, state) VALUES (?, ?, ?)`,
		normalized, string(locale), string(state))
	if err != nil {
		return 0, fmt.Errorf("insert word: %w", err)
	}
	return res.LastInsertId()
}

// UpdateWordState overwrites the state of a word. Transition validity is
// the caller's concern.
func UpdateWordState(db DBExecutor, id int64, state State) error {
	if id <= 0 {
		return fmt.Errorf("word id must be positive")
	}
	if _, err := db.Exec(`UPDATE words SET state = ? WHERE id = ?`, string(state), id); err != nil {
		return fmt.Errorf("update word state: %w", err)
	}
	return nil
}

// InsertContext stores one usage window owned by wordID.
func InsertContext(db DBExecutor, c Context, wordID int64) (int64, error) {
	if wordID <= 0 {
		return 0, fmt.Errorf("word id must be positive")
	}
	res, err := db.Exec(
		`INSERT INTO contexts (word_id, second_before, first_before, word, first_after, second_after)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		wordID, nullableString(c.SecondBefore), nullableString(c.FirstBefore), c.Word,
		nullableString(c.FirstAfter), nullableString(c.SecondAfter),
	)
	if err != nil {
		return 0, fmt.Errorf("insert context: %w", err)
	}
	return res.LastInsertId()
}

// DeleteWord removes every word matching text within locale. Owned contexts
// go with them through the foreign key cascade. No match is not an error.
func DeleteWord(db DBExecutor, text string, locale Locale) (int64, error) {
	res, err := db.Exec(`DELETE FROM words WHERE text = ? AND locale = ?`, Normalize(text), string(locale))
	if err != nil {
		return 0, fmt.Errorf("delete word: %w", err)
	}
	return res.RowsAffected()
}

// ListLearnedWords returns the text of all user and manually added words in
// locale, ordered case-insensitively.
func ListLearnedWords(db DBExecutor, locale Locale) ([]string, error) {
	rows, err := db.Query(
		`SELECT text FROM words WHERE locale = ? AND state IN (?, ?) ORDER BY text COLLATE NOCASE, id`,
		string(locale), string(StateUserWord), string(StateManuallyAdded),
	)
	if err != nil {
		return nil, fmt.Errorf("list learned words: %w", err)
	}
	defer rows.Close()
	out := []string{}
	for rows.Next() {
		var text string
		if err := rows.Scan(&text); err != nil {
			return nil, err
		}
		out = append(out, text)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListContexts returns the contexts owned by words matching text within
// locale, oldest first.
func ListContexts(db DBExecutor, text string, locale Locale) ([]Context, error) {
	rows, err := db.Query(
		`SELECT c.id, c.word_id, c.second_before, c.first_before, c.word, c.first_after, c.second_after
		 FROM contexts c JOIN words w ON w.id = c.word_id
		 WHERE w.text = ? AND w.locale = ?
		 ORDER BY c.id`,
		Normalize(text), string(locale),
	)
	if err != nil {
		return nil, fmt.Errorf("list contexts: %w", err)
	}
	return scanContexts(rows)
}

// CountContexts returns how many contexts a word owns.
func CountContexts(db DBExecutor, wordID int64) (int, error) {
	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM contexts WHERE word_id = ?`, wordID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count contexts: %w", err)
	}
	return n, nil
}

// LearnedWordFrequencies returns every learned word in locale with its
// context count.
func LearnedWordFrequencies(db DBExecutor, locale Locale) ([]WordFrequency, error) {
	rows, err := db.Query(
		`SELECT w.text, COUNT(c.id) FROM words w LEFT JOIN contexts c ON c.word_id = w.id
		 WHERE w.locale = ? AND w.state IN (?, ?)
		 GROUP BY w.id ORDER BY w.id`,
		string(locale), string(StateUserWord), string(StateManuallyAdded),
	)
	if err != nil {
		return nil, fmt.Errorf("learned word frequencies: %w", err)
	}
	defer rows.Close()
	var out []WordFrequency
	for rows.Next() {
		var wf WordFrequency
		if err := rows.Scan(&wf.Text, &wf.Count); err != nil {
			return nil, err
		}
		out = append(out, wf)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// DumpWords returns every stored word row. Test fixtures and debugging only.
func DumpWords(db DBExecutor) ([]Word, error) {
	rows, err := db.Query(`SELECT id, text, locale, state FROM words ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("dump words: %w", err)
	}
	defer rows.Close()
	var out []Word
	for rows.Next() {
		var w Word
		var state string
		if err := rows.Scan(&w.ID, &w.Text, &w.Locale, &state); err != nil {
			return nil, err
		}
		w.State = State(state)
		out = append(out, w)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// DumpContexts returns every stored context row. Test fixtures and debugging only.
func DumpContexts(db DBExecutor) ([]Context, error) {
	rows, err := db.Query(
		`SELECT id, word_id, second_before, first_before, word, first_after, second_after
		 FROM contexts ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("dump contexts: %w", err)
	}
	return scanContexts(rows)
}

func scanContexts(rows *sql.Rows) ([]Context, error) {
	defer rows.Close()
	var out []Context
	for rows.Next() {
		var c Context
		var sb, fb, fa, sa sql.NullString
		if err := rows.Scan(&c.ID, &c.WordID, &sb, &fb, &c.Word, &fa, &sa); err != nil {
			return nil, err
		}
		c.SecondBefore = sb.String
		c.FirstBefore = fb.String
		c.FirstAfter = fa.String
		c.SecondAfter = sa.String
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// nullableString returns nil for "" (meaning no token) else the value.
func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
