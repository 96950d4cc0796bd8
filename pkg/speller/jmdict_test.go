package speller

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJMdictPrefixCommonFirst(t *testing.T) {
	jm, err := LoadJMdictFile("testdata/jmdict.json", 0)
	require.NoError(t, err)

	got, err := jm.Suggest(context.Background(), "ねこ")
	require.NoError(t, err)
	assert.Equal(t, []string{"ねこ", "ねこぜ", "ねこじた"}, got)

	got, err = jm.Suggest(context.Background(), "猫")
	require.NoError(t, err)
	assert.Equal(t, []string{"猫", "猫舌"}, got)
}

func TestJMdictKatakanaQuery(t *testing.T) {
	jm, err := LoadJMdictFile("testdata/jmdict.json", 0)
	require.NoError(t, err)

	got, err := jm.Suggest(context.Background(), "イヌ")
	require.NoError(t, err)
	assert.Equal(t, []string{"いぬ"}, got)
}

func TestJMdictBareArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "array.json")
	data := `[{"id":"1","kanji":[],"kana":[{"text":"すし","common":true}]}]`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	entries, err := LoadJMdictSimplified(path)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "すし", entries[0].Kana[0].Text)
}

func TestJMdictInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o644))
	_, err := LoadJMdictFile(path, 0)
	assert.Error(t, err)
}

func TestJMdictLimit(t *testing.T) {
	entries := []JMdictEntry{
		{Kana: []JMdictElement{{Text: "かa"}, {Text: "かb"}, {Text: "かc"}}},
	}
	got, err := NewJMdict(entries, 2).Suggest(context.Background(), "か")
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestToHiragana(t *testing.T) {
	assert.Equal(t, "ねこ", ToHiragana("ネコ"))
	assert.Equal(t, "abc", ToHiragana("abc"))
}
