// Package manifest reads module.prop, the key=value descriptor at the root
// of every module package.
package manifest

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/ini.v1"
)

// FileName is the descriptor's name inside a package.
const FileName = "module.prop"

// ErrMissingName is returned when the name key is absent or blank.
var ErrMissingName = errors.New("manifest: missing name")

// Manifest holds the recognised module.prop keys.
type Manifest struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Version     string `json:"version"`
	VersionCode int64  `json:"versionCode"`
	Author      string `json:"author"`
	Description string `json:"description"`
	UpdateJSON  string `json:"updateJson,omitempty"`
}

var loadOptions = ini.LoadOptions{
	KeyValueDelimiters:  "=",
	IgnoreContinuation:  true,
	IgnoreInlineComment: true,
}

// LoadDir reads FileName from dir.
func LoadDir(dir string) (*Manifest, error) {
	return Load(filepath.Join(dir, FileName))
}

// Load reads the descriptor at path.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", FileName, err)
	}
	return Parse(data)
}

// Parse reads a descriptor from memory. Every "key=value" line is taken
// literally: quotes, backslashes and '#' inside values are kept, and lines
// without '=' (section headers included) are ignored.
func Parse(data []byte) (*Manifest, error) {
	f, err := ini.LoadSources(loadOptions, literal(data))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", FileName, err)
	}
	return fromFile(f)
}

// literal rewrites module.prop into ini text whose values are all
// backtick-quoted, the ini form for raw values. Comment lines and keys that
// ini would interpret are dropped.
func literal(data []byte) []byte {
	var b bytes.Buffer
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.HasPrefix(strings.TrimSpace(line), "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" || strings.ContainsAny(key, "`\"'[];") {
			continue
		}
		fmt.Fprintf(&b, "%s = `%s`\n", key, strings.TrimSpace(value))
	}
	return b.Bytes()
}

func fromFile(f *ini.File) (*Manifest, error) {
	sec := f.Section(ini.DefaultSection)
	m := &Manifest{
		ID:          strings.TrimSpace(sec.Key("id").String()),
		Name:        strings.TrimSpace(sec.Key("name").String()),
		Version:     strings.TrimSpace(sec.Key("version").String()),
		VersionCode: sec.Key("versionCode").MustInt64(0),
		Author:      strings.TrimSpace(sec.Key("author").String()),
		Description: strings.TrimSpace(sec.Key("description").String()),
		UpdateJSON:  strings.TrimSpace(sec.Key("updateJson").String()),
	}
	if err := m.Validate(); err != nil {
		return m, err
	}
	return m, nil
}

// Validate checks the mandatory keys. The name is a display string and may
// contain any character.
func (m *Manifest) Validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return ErrMissingName
	}
	return nil
}
