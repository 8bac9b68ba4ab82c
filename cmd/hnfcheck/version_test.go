package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/goccy/go-json"

	"github.com/samcharles93/hnfcheck/internal/version"
)

func TestWriteVersion(t *testing.T) {
	t.Parallel()

	info := version.Info{Version: "v1.2.0", Commit: "abc123", GoVersion: "go1.26.0"}

	var text bytes.Buffer
	if err := writeVersion(&text, info, false); err != nil {
		t.Fatalf("write text: %v", err)
	}
	want := "hnfcheck v1.2.0\ncommit   abc123\ngo       go1.26.0\n"
	if text.String() != want {
		t.Fatalf("text mismatch:\n got %q\nwant %q", text.String(), want)
	}
	if strings.Contains(text.String(), "built") {
		t.Fatalf("empty build time should be skipped")
	}

	var raw bytes.Buffer
	if err := writeVersion(&raw, info, true); err != nil {
		t.Fatalf("write json: %v", err)
	}
	var back version.Info
	if err := json.Unmarshal(raw.Bytes(), &back); err != nil {
		t.Fatalf("decode json: %v", err)
	}
	if back != info {
		t.Fatalf("json mismatch: got %+v want %+v", back, info)
	}
}
