// Package suggest merges learned-word suggestions with speller output and
// runs the single-flight suggestion worker.
package suggest

import "github.com/japaniel/userdict/pkg/db"

// DefaultSpellerLimit is how many raw speller entries a merge considers.
const DefaultSpellerLimit = 3

// Merge builds the list shown to the user: the current word itself, then
// dictionary matches in their order, then the first spellerCap speller
// entries. Entries equal to an earlier one, ignoring case, are dropped, so
// the first occurrence keeps its case and the echo keeps the typed form.
// An empty current word yields an empty list.
func Merge(current string, dict, spell []string, spellerCap int) []string {
	if current == "" {
		return []string{}
	}
	if spellerCap >= 0 && len(spell) > spellerCap {
		spell = spell[:spellerCap]
	}

	out := make([]string, 0, 1+len(dict)+len(spell))
	seen := make(map[string]struct{}, cap(out))
	add := func(s string) {
		if s == "" {
			return
		}
		key := db.Normalize(s)
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		out = append(out, s)
	}

	add(current)
	for _, s := range dict {
		add(s)
	}
	for _, s := range spell {
		add(s)
	}
	return out
}
