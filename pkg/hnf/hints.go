package hnf

import (
	"fmt"
	"io"
	"math"
	"unicode/utf8"

	"github.com/goccy/go-json"
)

// HintsLayout records where the text-modality hyperparameters were found.
type HintsLayout string

const (
	// LayoutNested means text_enabled was true and the fields live under "text".
	LayoutNested HintsLayout = "nested"
	// LayoutLegacy means the fields live at the root of the hints object.
	LayoutLegacy HintsLayout = "legacy"
)

// RopeScaling holds optional rotary-position scaling parameters.
type RopeScaling struct {
	Type        string    `json:"type,omitempty"`
	Factor      *float64  `json:"factor,omitempty"`
	LongFactor  []float64 `json:"long_factor,omitempty"`
	ShortFactor []float64 `json:"short_factor,omitempty"`
}

// ModelConfig is the normalised hyperparameter view of one modality. Numeric
// fields are nil when absent or not numeric.
type ModelConfig struct {
	Arch                string       `json:"arch,omitempty"`
	NumHiddenLayers     *int64       `json:"num_hidden_layers,omitempty"`
	HiddenSize          *int64       `json:"hidden_size,omitempty"`
	VocabSize           *int64       `json:"vocab_size,omitempty"`
	AttentionType       string       `json:"attention_type,omitempty"`
	QKVLayout           string       `json:"qkv_layout,omitempty"`
	MLPType             string       `json:"mlp_type,omitempty"`
	PartialRotaryFactor *float64     `json:"partial_rotary_factor,omitempty"`
	RopeScaling         *RopeScaling `json:"rope_scaling,omitempty"`
}

// Empty reports whether no field was populated.
func (c *ModelConfig) Empty() bool {
	return c == nil || (c.Arch == "" && c.NumHiddenLayers == nil && c.HiddenSize == nil &&
		c.VocabSize == nil && c.AttentionType == "" && c.QKVLayout == "" && c.MLPType == "" &&
		c.PartialRotaryFactor == nil && c.RopeScaling == nil)
}

// VisionConfig is the vision-encoder summary.
type VisionConfig struct {
	Arch      string `json:"arch,omitempty"`
	ImageSize *int64 `json:"image_size,omitempty"`
	PatchSize *int64 `json:"patch_size,omitempty"`
}

// ExecutionHints is the parsed exec_hints payload. Text is always set and is
// resolved from either layout; the other modalities are set only when their
// enable flag is true.
type ExecutionHints struct {
	TextEnabled   bool        `json:"text_enabled"`
	VisionEnabled bool        `json:"vision_enabled"`
	CortexEnabled bool        `json:"cortex_enabled"`
	CodeEnabled   bool        `json:"code_enabled"`
	TextLayout    HintsLayout `json:"text_layout"`

	Text   *ModelConfig  `json:"text"`
	Vision *VisionConfig `json:"vision,omitempty"`
	Cortex *ModelConfig  `json:"cortex,omitempty"`
	Code   *ModelConfig  `json:"code,omitempty"`

	// Keys lists the top-level keys present, for presence reporting.
	Keys []string `json:"-"`
}

// ReadExecutionHints reads the exec_hints block. An empty block yields no
// hints and no error.
func ReadExecutionHints(r io.ReadSeeker, desc BlockDescriptor) (*ExecutionHints, error) {
	if !desc.Active() {
		return nil, nil
	}
	data, err := readRange(r, desc.Offset, desc.Size)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrHintsUnreadable, err)
	}
	return ParseExecutionHints(data)
}

// ParseExecutionHints decodes a UTF-8 JSON hints object and normalises the
// text modality: the nested "text" object is used when text_enabled is true
// and "text" is an object, otherwise the root-level fields are used.
func ParseExecutionHints(data []byte) (*ExecutionHints, error) {
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("%w: not valid UTF-8", ErrHintsMalformed)
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("%w: invalid JSON", ErrHintsMalformed)
	}
	if !isJSONKind(data, '{') {
		return nil, fmt.Errorf("%w: top level is not an object", ErrHintsMalformed)
	}
	var root map[string]json.RawMessage
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrHintsMalformed, err)
	}

	h := &ExecutionHints{
		TextEnabled:   boolField(root, "text_enabled"),
		VisionEnabled: boolField(root, "vision_enabled"),
		CortexEnabled: boolField(root, "cortex_enabled"),
		CodeEnabled:   boolField(root, "code_enabled"),
		Keys:          sortedKeys(root),
	}

	if text, ok := objectField(root, "text"); ok && h.TextEnabled {
		h.Text = decodeModelConfig(text)
		h.TextLayout = LayoutNested
	} else {
		h.Text = decodeModelConfig(root)
		h.TextLayout = LayoutLegacy
	}

	if h.VisionEnabled {
		vc, _ := objectField(root, "vision_config")
		h.Vision = &VisionConfig{
			Arch:      strField(vc, "arch"),
			ImageSize: intField(vc, "image_size"),
			PatchSize: intField(vc, "patch_size"),
		}
	}
	if h.CortexEnabled {
		cc, _ := objectField(root, "cortex")
		h.Cortex = decodeModelConfig(cc)
	}
	if h.CodeEnabled {
		cc, _ := objectField(root, "code")
		h.Code = decodeModelConfig(cc)
	}
	return h, nil
}

func decodeModelConfig(fields map[string]json.RawMessage) *ModelConfig {
	c := &ModelConfig{
		Arch:                strField(fields, "arch"),
		NumHiddenLayers:     intField(fields, "num_hidden_layers"),
		HiddenSize:          intField(fields, "hidden_size"),
		VocabSize:           intField(fields, "vocab_size"),
		AttentionType:       strField(fields, "attention_type"),
		QKVLayout:           strField(fields, "qkv_layout"),
		MLPType:             strField(fields, "mlp_type"),
		PartialRotaryFactor: floatField(fields, "partial_rotary_factor"),
	}
	if rs, ok := objectField(fields, "rope_scaling"); ok {
		c.RopeScaling = &RopeScaling{
			Type:        strField(rs, "type"),
			Factor:      floatField(rs, "factor"),
			LongFactor:  floatsField(rs, "long_factor"),
			ShortFactor: floatsField(rs, "short_factor"),
		}
	}
	return c
}

// The field helpers below are lenient: a missing or mistyped value reads as
// absent. A nil map reads as empty.

func objectField(fields map[string]json.RawMessage, key string) (map[string]json.RawMessage, bool) {
	v, ok := fields[key]
	if !ok || !isJSONKind(v, '{') {
		return nil, false
	}
	var out map[string]json.RawMessage
	if err := json.Unmarshal(v, &out); err != nil {
		return nil, false
	}
	return out, true
}

func boolField(fields map[string]json.RawMessage, key string) bool {
	var b bool
	if v, ok := fields[key]; ok {
		_ = json.Unmarshal(v, &b)
	}
	return b
}

func strField(fields map[string]json.RawMessage, key string) string {
	var s string
	if v, ok := fields[key]; ok {
		if json.Unmarshal(v, &s) != nil {
			return ""
		}
	}
	return s
}

func floatField(fields map[string]json.RawMessage, key string) *float64 {
	v, ok := fields[key]
	if !ok {
		return nil
	}
	var f *float64
	if json.Unmarshal(v, &f) != nil {
		return nil
	}
	return f
}

func intField(fields map[string]json.RawMessage, key string) *int64 {
	f := floatField(fields, key)
	if f == nil || *f != math.Trunc(*f) || math.Abs(*f) > 1<<53 {
		return nil
	}
	n := int64(*f)
	return &n
}

func floatsField(fields map[string]json.RawMessage, key string) []float64 {
	v, ok := fields[key]
	if !ok {
		return nil
	}
	var out []float64
	if json.Unmarshal(v, &out) != nil {
		return nil
	}
	return out
}

