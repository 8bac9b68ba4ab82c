package hnf

import (
	"errors"
	"testing"
)

func TestParseExecutionHintsLayouts(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		input  string
		layout HintsLayout
	}{
		{
			name:   "nested",
			input:  `{"text_enabled": true, "text": {"arch": "llama", "num_hidden_layers": 32}}`,
			layout: LayoutNested,
		},
		{
			name:   "legacy",
			input:  `{"arch": "llama", "num_hidden_layers": 32}`,
			layout: LayoutLegacy,
		},
		{
			name:   "text object but disabled",
			input:  `{"text_enabled": false, "text": {"arch": "mistral"}, "arch": "llama", "num_hidden_layers": 32}`,
			layout: LayoutLegacy,
		},
		{
			name:   "enabled but text not an object",
			input:  `{"text_enabled": true, "text": "llama", "arch": "llama", "num_hidden_layers": 32}`,
			layout: LayoutLegacy,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			h, err := ParseExecutionHints([]byte(tc.input))
			if err != nil {
				t.Fatalf("parse hints: %v", err)
			}
			if h.TextLayout != tc.layout {
				t.Fatalf("layout mismatch: got %s want %s", h.TextLayout, tc.layout)
			}
			if h.Text.Arch != "llama" {
				t.Fatalf("arch mismatch: got %q", h.Text.Arch)
			}
			if h.Text.NumHiddenLayers == nil || *h.Text.NumHiddenLayers != 32 {
				t.Fatalf("num_hidden_layers mismatch: %v", h.Text.NumHiddenLayers)
			}
		})
	}
}

func TestParseExecutionHintsModalities(t *testing.T) {
	t.Parallel()

	h, err := ParseExecutionHints([]byte(`{
		"text_enabled": true,
		"text": {
			"arch": "phi3",
			"hidden_size": 3072,
			"vocab_size": 32064.5,
			"partial_rotary_factor": 0.5,
			"rope_scaling": {"type": "longrope", "factor": 4.0, "long_factor": [1.0, 1.5]}
		},
		"vision_enabled": true,
		"vision_config": {"arch": "siglip", "image_size": 384, "patch_size": "14"},
		"cortex_enabled": false,
		"cortex": {"arch": "ignored"},
		"code_enabled": true
	}`))
	if err != nil {
		t.Fatalf("parse hints: %v", err)
	}

	if h.Text.VocabSize != nil {
		t.Fatalf("non-integral vocab_size should be absent, got %d", *h.Text.VocabSize)
	}
	if h.Text.PartialRotaryFactor == nil || *h.Text.PartialRotaryFactor != 0.5 {
		t.Fatalf("partial_rotary_factor mismatch: %v", h.Text.PartialRotaryFactor)
	}
	rs := h.Text.RopeScaling
	if rs == nil || rs.Type != "longrope" || rs.Factor == nil || *rs.Factor != 4 || len(rs.LongFactor) != 2 {
		t.Fatalf("rope scaling mismatch: %+v", rs)
	}

	if h.Vision == nil || h.Vision.Arch != "siglip" {
		t.Fatalf("vision mismatch: %+v", h.Vision)
	}
	if h.Vision.ImageSize == nil || *h.Vision.ImageSize != 384 {
		t.Fatalf("image_size mismatch: %v", h.Vision.ImageSize)
	}
	if h.Vision.PatchSize != nil {
		t.Fatalf("string patch_size should be absent")
	}

	if h.Cortex != nil {
		t.Fatalf("cortex should be unset when disabled")
	}
	if h.Code == nil || !h.Code.Empty() {
		t.Fatalf("code should be set and empty: %+v", h.Code)
	}
	if len(h.Keys) != 7 || h.Keys[0] != "code_enabled" {
		t.Fatalf("keys mismatch: %v", h.Keys)
	}
}

func TestParseExecutionHintsMalformed(t *testing.T) {
	t.Parallel()

	for _, input := range []string{`not json`, `[1,2]`, `"text"`, "{\"arch\": \"\xfe\"}"} {
		_, err := ParseExecutionHints([]byte(input))
		if !errors.Is(err, ErrHintsMalformed) {
			t.Fatalf("input %q: expected ErrHintsMalformed, got %v", input, err)
		}
	}
}

func TestReadExecutionHintsEmptyBlock(t *testing.T) {
	t.Parallel()

	h, err := ReadExecutionHints(nil, BlockDescriptor{Name: "exec_hints"})
	if err != nil || h != nil {
		t.Fatalf("expected no hints and no error, got %+v %v", h, err)
	}
}
