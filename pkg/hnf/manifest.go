package hnf

import (
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/goccy/go-json"
)

// TensorEntry is one manifest record. Only Name and Block drive validation;
// the remaining fields are carried for display when they decode cleanly.
type TensorEntry struct {
	Name   string  `json:"name"`
	Block  string  `json:"block"`
	DType  string  `json:"dtype,omitempty"`
	Shape  []int64 `json:"shape,omitempty"`
	Offset *uint64 `json:"offset,omitempty"`
	Size   *uint64 `json:"size,omitempty"`
}

// Manifest is the parsed tensor manifest. Tensors keep their stored order and
// duplicates are kept.
type Manifest struct {
	Tensors []TensorEntry `json:"tensors"`
}

// ReadManifest reads size bytes at offset and parses them as a manifest.
func ReadManifest(r io.ReadSeeker, offset, size uint64) (*Manifest, error) {
	data, err := readRange(r, offset, size)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrManifestUnreadable, err)
	}
	return ParseManifest(data)
}

// ParseManifest decodes a UTF-8 JSON manifest. A missing "tensors" key yields
// an empty manifest; a "tensors" value that is not an array of objects is
// malformed.
func ParseManifest(data []byte) (*Manifest, error) {
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("%w: not valid UTF-8", ErrManifestMalformed)
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("%w: invalid JSON", ErrManifestMalformed)
	}
	if !isJSONKind(data, '{') {
		return nil, fmt.Errorf("%w: top level is not an object", ErrManifestMalformed)
	}
	var root map[string]json.RawMessage
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrManifestMalformed, err)
	}

	m := &Manifest{Tensors: []TensorEntry{}}
	rawTensors, ok := root["tensors"]
	if !ok {
		return m, nil
	}
	if !isJSONKind(rawTensors, '[') {
		return nil, fmt.Errorf("%w: \"tensors\" is not an array", ErrManifestMalformed)
	}
	var items []json.RawMessage
	if err := json.Unmarshal(rawTensors, &items); err != nil {
		return nil, fmt.Errorf("%w: \"tensors\": %v", ErrManifestMalformed, err)
	}
	m.Tensors = make([]TensorEntry, 0, len(items))
	for i, item := range items {
		te, err := decodeTensorEntry(item)
		if err != nil {
			return nil, fmt.Errorf("%w: tensors[%d]: %v", ErrManifestMalformed, i, err)
		}
		m.Tensors = append(m.Tensors, te)
	}
	return m, nil
}

func decodeTensorEntry(raw json.RawMessage) (TensorEntry, error) {
	if !isJSONKind(raw, '{') {
		return TensorEntry{}, errors.New("entry is not an object")
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return TensorEntry{}, err
	}
	var te TensorEntry
	var err error
	if te.Name, err = stringField(fields, "name"); err != nil {
		return TensorEntry{}, err
	}
	if te.Block, err = stringField(fields, "block"); err != nil {
		return TensorEntry{}, err
	}

	// Display-only fields are best effort.
	if v, ok := fields["dtype"]; ok {
		_ = json.Unmarshal(v, &te.DType)
	}
	if v, ok := fields["shape"]; ok {
		var shape []int64
		if json.Unmarshal(v, &shape) == nil {
			te.Shape = shape
		}
	}
	if v, ok := fields["offset"]; ok {
		var off uint64
		if json.Unmarshal(v, &off) == nil {
			te.Offset = &off
		}
	}
	if v, ok := fields["size"]; ok {
		var sz uint64
		if json.Unmarshal(v, &sz) == nil {
			te.Size = &sz
		}
	}
	return te, nil
}

// stringField returns fields[key] as a string. An absent or null key is "".
func stringField(fields map[string]json.RawMessage, key string) (string, error) {
	v, ok := fields[key]
	if !ok {
		return "", nil
	}
	var s *string
	if err := json.Unmarshal(v, &s); err != nil {
		return "", fmt.Errorf("%q is not a string", key)
	}
	if s == nil {
		return "", nil
	}
	return *s, nil
}
