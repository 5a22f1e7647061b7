package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// RowData is the per-row column map. Lookups ignore key case; iteration
// follows insertion order and keeps the casing the key was first written with.
type RowData struct {
	keys   []string
	values map[string]Value
}

func NewRowData() RowData {
	return RowData{values: map[string]Value{}}
}

func normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

func (d RowData) Get(key string) (Value, bool) {
	if d.values == nil {
		return Null(), false
	}
	v, ok := d.values[normalizeKey(key)]
	return v, ok
}

func (d *RowData) Set(key string, value Value) {
	if d.values == nil {
		d.values = map[string]Value{}
	}
	norm := normalizeKey(key)
	if _, exists := d.values[norm]; !exists {
		d.keys = append(d.keys, strings.TrimSpace(key))
	}
	d.values[norm] = value
}

func (d *RowData) Delete(key string) {
	norm := normalizeKey(key)
	if _, exists := d.values[norm]; !exists {
		return
	}
	delete(d.values, norm)
	for i, k := range d.keys {
		if normalizeKey(k) == norm {
			d.keys = append(d.keys[:i], d.keys[i+1:]...)
			break
		}
	}
}

func (d RowData) Keys() []string {
	out := make([]string, len(d.keys))
	copy(out, d.keys)
	return out
}

func (d RowData) Len() int { return len(d.keys) }

func (d RowData) Clone() RowData {
	out := RowData{
		keys:   make([]string, len(d.keys)),
		values: make(map[string]Value, len(d.values)),
	}
	copy(out.keys, d.keys)
	for k, v := range d.values {
		out.values[k] = v
	}
	return out
}

func (d RowData) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range d.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		v, err := d.values[normalizeKey(key)].MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (d *RowData) UnmarshalJSON(data []byte) error {
	parsed, err := decodeRowData(data)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ParseRowData decodes a stored payload. Corrupt payloads come back as an
// empty row together with the decode error so callers can log it.
func ParseRowData(raw []byte) (RowData, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("{}")) || bytes.Equal(trimmed, []byte("null")) {
		return NewRowData(), nil
	}
	data, err := decodeRowData(trimmed)
	if err != nil {
		return NewRowData(), err
	}
	return data, nil
}

func decodeRowData(raw []byte) (RowData, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return RowData{}, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return RowData{}, errors.New("row data must be a JSON object")
	}

	out := NewRowData()
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return RowData{}, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return RowData{}, fmt.Errorf("unexpected key token %v", keyTok)
		}
		var cell json.RawMessage
		if err := dec.Decode(&cell); err != nil {
			return RowData{}, err
		}
		value, err := decodeValue(cell)
		if err != nil {
			return RowData{}, fmt.Errorf("column %q: %w", key, err)
		}
		out.Set(key, value)
	}
	if _, err := dec.Token(); err != nil {
		return RowData{}, err
	}
	return out, nil
}

func decodeValue(raw json.RawMessage) (Value, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') {
		var buf bytes.Buffer
		if err := json.Compact(&buf, trimmed); err != nil {
			return Null(), err
		}
		return RawJSON(buf.String()), nil
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return Null(), err
	}
	return valueFromToken(tok)
}
