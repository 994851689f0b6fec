package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	data := []byte(`id=zygisk_demo
name=Demo Module # not a comment
version=v1.2.0
versionCode=120
author=someone
description=Does things; with = signs
updateJson=https://example.invalid/update.json
`)

	m, err := Parse(data)
	require.NoError(t, err)

	assert.Equal(t, "zygisk_demo", m.ID)
	assert.Equal(t, "Demo Module # not a comment", m.Name)
	assert.Equal(t, "v1.2.0", m.Version)
	assert.Equal(t, int64(120), m.VersionCode)
	assert.Equal(t, "someone", m.Author)
	assert.Equal(t, "Does things; with = signs", m.Description)
	assert.Equal(t, "https://example.invalid/update.json", m.UpdateJSON)
}

func TestParseMissingName(t *testing.T) {
	tests := map[string]string{
		"absent": "id=demo\nversion=1\n",
		"blank":  "id=demo\nname=   \n",
		"empty":  "",
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(data))
			assert.ErrorIs(t, err, ErrMissingName)
		})
	}
}

func TestParseAcceptsAnyDisplayName(t *testing.T) {
	for _, name := range []string{"Zygisk / LSPosed", "..", "a\\b"} {
		m, err := Parse([]byte("id=zl\nname=" + name + "\n"))
		require.NoError(t, err, name)
		assert.Equal(t, name, m.Name)
	}
}

func TestParseTakesValuesLiterally(t *testing.T) {
	data := []byte("id=q\n" +
		"name=\"Quoted\"\n" +
		"version=\"\"\"triple\n" +
		"author=`tick\n" +
		"description=ends with backslash \\\n" +
		"updateJson=a;b#c\n")

	m, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, `"Quoted"`, m.Name)
	assert.Equal(t, `"""triple`, m.Version)
	assert.Equal(t, "`tick", m.Author)
	assert.Equal(t, `ends with backslash \`, m.Description)
	assert.Equal(t, "a;b#c", m.UpdateJSON)
}

func TestParseIgnoresNonPropertyLines(t *testing.T) {
	data := []byte("# comment\n[section]\nid=demo\njunk line\nname=After Section\r\n")

	m, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, "demo", m.ID)
	assert.Equal(t, "After Section", m.Name)
}

func TestParseBadVersionCode(t *testing.T) {
	m, err := Parse([]byte("name=x\nversionCode=abc\n"))
	require.NoError(t, err)
	assert.Zero(t, m.VersionCode)
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte("name=OnDisk\n"), 0o644))

	m, err := LoadDir(dir)
	require.NoError(t, err)
	assert.Equal(t, "OnDisk", m.Name)
}

func TestLoadDirMissingFile(t *testing.T) {
	_, err := LoadDir(t.TempDir())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrMissingName)
}
