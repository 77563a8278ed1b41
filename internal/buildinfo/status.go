package buildinfo

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// ErrMalformedLine is returned for a status line without a key/value separator
var ErrMalformedLine = errors.New("malformed status line")

// Status is an ordered set of build variables
// (STABLE_GIT_REVISION, BUILD_TIMESTAMP, ...) as emitted by a workspace
// status command. Keys keep the position of their first occurrence.
type Status struct {
	keys   []string
	values map[string]string
}

// NewStatus returns an empty status
func NewStatus() *Status {
	return &Status{values: map[string]string{}}
}

// Set assigns value to key; an existing key keeps its position
func (s *Status) Set(key, value string) {
	if _, ok := s.values[key]; !ok {
		s.keys = append(s.keys, key)
	}
	s.values[key] = value
}

// Get returns the value of key
func (s *Status) Get(key string) (string, bool) {
	v, ok := s.values[key]
	return v, ok
}

// Keys returns the keys in order
func (s *Status) Keys() []string {
	return append([]string(nil), s.keys...)
}

func (s *Status) Len() int {
	return len(s.keys)
}

// Vars returns the variables as a map for template rendering
func (s *Status) Vars() map[string]string {
	vars := make(map[string]string, len(s.values))
	for k, v := range s.values {
		vars[k] = v
	}
	return vars
}

// ParseStatus reads "KEY VALUE" lines
//
// The key ends at the first space; the value is the rest of the line, so it
// may contain spaces of its own. Blank lines are skipped. Any other line
// without a space is an error naming its line number.
func ParseStatus(r io.Reader) (*Status, error) {
	status := NewStatus()
	reader := bufio.NewReader(r)

	for lineNo := 1; ; lineNo++ {
		line, err := reader.ReadString('\n')
		if err != nil && err != io.EOF {
			return nil, fmt.Errorf("failed to read status: %w", err)
		}

		trimmed := strings.TrimSuffix(strings.TrimSuffix(line, "\n"), "\r")
		if strings.TrimSpace(trimmed) != "" {
			key, value, found := strings.Cut(trimmed, " ")
			if !found || key == "" {
				return nil, fmt.Errorf("line %d: %w: %q", lineNo, ErrMalformedLine, trimmed)
			}
			status.Set(key, value)
		}

		if err == io.EOF {
			return status, nil
		}
	}
}

// LoadStatus reads a status in either form: a JSON object or "KEY VALUE" lines
// Non-string JSON values are kept as their JSON text.
func LoadStatus(r io.Reader) (*Status, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read status: %w", err)
	}

	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '{' {
		return decodeStatusJSON(trimmed)
	}
	return ParseStatus(bytes.NewReader(data))
}

func decodeStatusJSON(data []byte) (*Status, error) {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()

	if _, err := decoder.Token(); err != nil {
		return nil, fmt.Errorf("failed to decode status JSON: %w", err)
	}

	status := NewStatus()
	for decoder.More() {
		token, err := decoder.Token()
		if err != nil {
			return nil, fmt.Errorf("failed to decode status JSON: %w", err)
		}
		key, ok := token.(string)
		if !ok {
			return nil, fmt.Errorf("failed to decode status JSON: unexpected key %v", token)
		}

		var raw json.RawMessage
		if err := decoder.Decode(&raw); err != nil {
			return nil, fmt.Errorf("failed to decode status JSON value for %s: %w", key, err)
		}

		var value string
		if err := json.Unmarshal(raw, &value); err != nil {
			value = string(raw)
		}
		status.Set(key, value)
	}

	if _, err := decoder.Token(); err != nil {
		return nil, fmt.Errorf("failed to decode status JSON: %w", err)
	}
	return status, nil
}

// MarshalJSON writes the keys in order as {"FOO": "bar", "BAZ": "qux"}
// Non-ASCII characters are written as \u escapes so the output is plain ASCII.
// Call it directly; json.Marshal compacts the separators away.
func (s *Status) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range s.keys {
		if i > 0 {
			buf.WriteString(", ")
		}
		writeASCIIString(&buf, key)
		buf.WriteString(": ")
		writeASCIIString(&buf, s.values[key])
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeASCIIString(buf *bytes.Buffer, s string) {
	buf.WriteByte('"')
	for _, r := range s {
		switch {
		case r == '"':
			buf.WriteString(`\"`)
		case r == '\\':
			buf.WriteString(`\\`)
		case r == '\n':
			buf.WriteString(`\n`)
		case r == '\r':
			buf.WriteString(`\r`)
		case r == '\t':
			buf.WriteString(`\t`)
		case r == '\b':
			buf.WriteString(`\b`)
		case r == '\f':
			buf.WriteString(`\f`)
		case r < 0x20:
			fmt.Fprintf(buf, `\u%04x`, r)
		case r < utf8.RuneSelf:
			buf.WriteRune(r)
		case r > 0xffff:
			// UTF-16 surrogate pair
			r -= 0x10000
			fmt.Fprintf(buf, `\u%04x\u%04x`, 0xd800+(r>>10), 0xdc00+(r&0x3ff))
		default:
			fmt.Fprintf(buf, `\u%04x`, r)
		}
	}
	buf.WriteByte('"')
}
