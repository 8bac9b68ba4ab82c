package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/klauspost/compress/zstd"

	"github.com/samcharles93/hnfcheck/pkg/hnf"
	"github.com/samcharles93/hnfcheck/pkg/hnf/hnftest"
)

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestRunValidateExitCodes(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	good := hnftest.New().Write(t, "good.hnf")

	warn := hnftest.New()
	warn.Manifest = []byte(`{"tensors":[{"name":"embed","block":"text_model"}]}`)
	warned := writeFile(t, dir, "warn.hnf", warn.Bytes())

	bad := hnftest.New().Bytes()
	copy(bad, "GGUF")
	failed := writeFile(t, dir, "bad.hnf", bad)

	truncated := writeFile(t, dir, "short.hnf", bad[:10])

	tests := []struct {
		name   string
		paths  []string
		code   int
		banner string
	}{
		{"passed", []string{good}, exitOK, bannerPassed},
		{"warnings", []string{warned}, exitOK, bannerWarnings},
		{"failed", []string{good, failed}, exitFailed, bannerFailed},
		{"fatal wins", []string{failed, truncated, good}, exitFatal, "FATAL"},
		{"missing file", []string{filepath.Join(dir, "absent.hnf")}, exitFatal, "FATAL"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			var out bytes.Buffer
			code, err := runValidate(context.Background(), &out, tc.paths, validateParams{format: "text", jobs: 2})
			if err != nil {
				t.Fatalf("run validate: %v", err)
			}
			if code != tc.code {
				t.Fatalf("exit code: got %d want %d\n%s", code, tc.code, out.String())
			}
			if !strings.Contains(out.String(), tc.banner) {
				t.Fatalf("expected %q in output:\n%s", tc.banner, out.String())
			}
		})
	}
}

func TestRunValidateTextSections(t *testing.T) {
	t.Parallel()

	path := hnftest.New().Write(t, "model.hnf")
	var out bytes.Buffer
	code, err := runValidate(context.Background(), &out, []string{path}, validateParams{
		opts:   hnf.Options{VerifyChecksums: true},
		format: "text",
		digest: true,
	})
	if err != nil || code != exitOK {
		t.Fatalf("run validate: code=%d err=%v", code, err)
	}

	text := out.String()
	last := -1
	for _, section := range []string{"HEADER", "BLOCK TABLE", "EXECUTION HINTS", "MANIFEST", "PREFIX CHECK", "CHECKSUMS", bannerPassed} {
		idx := strings.Index(text, section)
		if idx < 0 || idx < last {
			t.Fatalf("section %q missing or out of order:\n%s", section, text)
		}
		last = idx
	}
	for _, want := range []string{"arch=llama layers=32 hidden=4096", "Digest:", "sha256:", "2 of 16 slots active", "text_model   text."} {
		if !strings.Contains(text, want) {
			t.Fatalf("expected %q in output:\n%s", want, text)
		}
	}
}

func TestRunValidateJSONOrder(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	var paths []string
	for i := range 6 {
		f := hnftest.New()
		if i%2 == 1 {
			f.Manifest = []byte(`not json`)
		}
		paths = append(paths, writeFile(t, dir, "m"+string(rune('a'+i))+".hnf", f.Bytes()))
	}

	var out bytes.Buffer
	code, err := runValidate(context.Background(), &out, paths, validateParams{format: "json", jobs: 3})
	if err != nil {
		t.Fatalf("run validate: %v", err)
	}
	if code != exitFailed {
		t.Fatalf("exit code: got %d want %d", code, exitFailed)
	}

	var results []struct {
		File   string      `json:"file"`
		OK     bool        `json:"ok"`
		Report *hnf.Report `json:"report"`
	}
	if err := json.Unmarshal(out.Bytes(), &results); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out.String())
	}
	if len(results) != len(paths) {
		t.Fatalf("result count: got %d", len(results))
	}
	for i, r := range results {
		if r.File != paths[i] {
			t.Fatalf("result %d out of order: %s", i, r.File)
		}
		if r.OK != (i%2 == 0) {
			t.Fatalf("result %d ok=%v", i, r.OK)
		}
	}
}

func TestRunValidateCompressed(t *testing.T) {
	t.Parallel()

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		t.Fatalf("new zstd writer: %v", err)
	}
	packed := enc.EncodeAll(hnftest.New().Bytes(), nil)
	_ = enc.Close()
	path := writeFile(t, t.TempDir(), "model.hnf.zst", packed)

	var out bytes.Buffer
	code, err := runValidate(context.Background(), &out, []string{path}, validateParams{format: "text"})
	if err != nil || code != exitOK {
		t.Fatalf("run validate: code=%d err=%v\n%s", code, err, out.String())
	}
	if !strings.Contains(out.String(), "(zstd)") {
		t.Fatalf("expected zstd marker:\n%s", out.String())
	}

	code, err = runValidate(context.Background(), &out, []string{path}, validateParams{format: "text", maxBytes: 64})
	if err != nil || code != exitFatal {
		t.Fatalf("expected fatal for oversize artifact: code=%d err=%v", code, err)
	}
}

func TestRunValidateUnknownFormat(t *testing.T) {
	t.Parallel()

	_, err := runValidate(context.Background(), &bytes.Buffer{}, []string{"x"}, validateParams{format: "yaml"})
	if err == nil {
		t.Fatalf("expected error for unknown format")
	}
}

func TestInspectTextHasNoBanner(t *testing.T) {
	t.Parallel()

	path := hnftest.New().Write(t, "model.hnf")
	res := checkFile(context.Background(), path, validateParams{})
	var out bytes.Buffer
	renderText(&out, res, false)
	if strings.Contains(out.String(), "VALIDATION") || strings.Contains(out.String(), "FINDINGS") {
		t.Fatalf("inspect output should have no banner:\n%s", out.String())
	}
	if !strings.Contains(out.String(), `"HNFv9\x00\x00\x00"`) {
		t.Fatalf("expected quoted magic:\n%s", out.String())
	}
}

func TestFormatBytes(t *testing.T) {
	t.Parallel()

	cases := map[uint64]string{
		0:        "0 B",
		1023:     "1023 B",
		1536:     "1.50 KiB",
		20 << 20: "20.00 MiB",
		3 << 30:  "3.00 GiB",
	}
	for in, want := range cases {
		if got := formatBytes(in); got != want {
			t.Fatalf("formatBytes(%d) = %q, want %q", in, got, want)
		}
	}
}
