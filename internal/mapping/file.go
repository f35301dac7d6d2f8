package mapping

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
)

var prettyOptions = &pretty.Options{Indent: "    "}

// ErrMalformed marks a mapping file that exists but cannot be decoded.
var ErrMalformed = errors.New("malformed mapping")

// Decode parses a JSON object of trigger→path strings, preserving document order.
//
// Blank input decodes to an empty table.
func Decode(data []byte) (*Table, error) {
	table := NewTable()
	if len(bytes.TrimSpace(data)) == 0 {
		return table, nil
	}
	if !gjson.ValidBytes(data) {
		return nil, errors.New("invalid JSON")
	}

	doc := gjson.ParseBytes(data)
	if !doc.IsObject() {
		return nil, fmt.Errorf("expected JSON object, got %s", doc.Type)
	}

	var decodeErr error
	doc.ForEach(func(key, value gjson.Result) bool {
		if value.Type != gjson.String {
			decodeErr = fmt.Errorf("value for %q must be a string", key.String())
			return false
		}
		table.Set(key.String(), value.String())
		return true
	})
	if decodeErr != nil {
		return nil, decodeErr
	}
	return table, nil
}

// Encode renders the table as an indented JSON object in insertion order.
func Encode(t *Table) ([]byte, error) {
	var compact bytes.Buffer
	compact.WriteByte('{')

	var encodeErr error
	first := true
	t.Each(func(trigger, path string) {
		if encodeErr != nil {
			return
		}
		if !first {
			compact.WriteByte(',')
		}
		first = false
		if err := writeString(&compact, trigger); err != nil {
			encodeErr = err
			return
		}
		compact.WriteByte(':')
		encodeErr = writeString(&compact, path)
	})
	if encodeErr != nil {
		return nil, encodeErr
	}
	compact.WriteByte('}')

	return pretty.PrettyOptions(compact.Bytes(), prettyOptions), nil
}

func writeString(buf *bytes.Buffer, s string) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("encode %q: %w", s, err)
	}
	buf.Write(bytes.TrimRight(tmp.Bytes(), "\n"))
	return nil
}

// Load reads the mapping file at path. A missing file yields an empty table.
func Load(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return NewTable(), nil
		}
		return nil, fmt.Errorf("read mapping %q: %w", path, err)
	}

	table, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("decode mapping %q: %w: %w", path, ErrMalformed, err)
	}
	return table, nil
}

// LoadResolved reads the mapping at path and anchors relative entries to root.
func LoadResolved(path, root string) (*Table, error) {
	table, err := Load(path)
	if err != nil {
		return nil, err
	}
	return Resolve(table, root), nil
}

// Resolve returns a copy of t with every path made absolute against root.
func Resolve(t *Table, root string) *Table {
	resolved := NewTable()
	t.Each(func(trigger, path string) {
		resolved.Set(trigger, ResolvePath(path, root))
	})
	return resolved
}

// ResolvePath anchors one stored entry to root; absolute entries are only cleaned.
func ResolvePath(path, root string) string {
	if path != "" && !filepath.IsAbs(path) {
		path = filepath.Join(root, filepath.FromSlash(path))
	}
	return filepath.Clean(path)
}

// Save writes t to path unless the file already holds byte-identical content.
// It reports whether the file was written.
func Save(path string, t *Table) (bool, error) {
	content, err := Encode(t)
	if err != nil {
		return false, err
	}

	existing, err := os.ReadFile(path)
	if err == nil && bytes.Equal(existing, content) {
		return false, nil
	}
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("read mapping %q: %w", path, err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, fmt.Errorf("ensure mapping dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".mapping-*.json")
	if err != nil {
		return false, fmt.Errorf("create temp mapping: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() { _ = os.Remove(tmpPath) }()

	if _, err := tmp.Write(content); err != nil {
		_ = tmp.Close()
		return false, fmt.Errorf("write mapping: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return false, fmt.Errorf("close mapping: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		return false, fmt.Errorf("chmod mapping: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return false, fmt.Errorf("replace mapping %q: %w", path, err)
	}
	return true, nil
}
