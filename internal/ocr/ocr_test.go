package ocr

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type runCall struct {
	name  string
	args  []string
	stdin []byte
}

// stubRunner records invocations and delegates the outcome to fn.
type stubRunner struct {
	mu    sync.Mutex
	calls []runCall
	fn    func(name string, args []string, stdin []byte) ([]byte, []byte, error)
}

func (s *stubRunner) Run(_ context.Context, name string, stdin io.Reader, args ...string) ([]byte, []byte, error) {
	var in []byte
	if stdin != nil {
		in, _ = io.ReadAll(stdin)
	}
	s.mu.Lock()
	s.calls = append(s.calls, runCall{name: name, args: append([]string(nil), args...), stdin: in})
	s.mu.Unlock()
	if s.fn == nil {
		return nil, nil, nil
	}
	return s.fn(name, args, in)
}

func (s *stubRunner) lastCall(t *testing.T) runCall {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.calls) == 0 {
		t.Fatal("runner was not called")
	}
	return s.calls[len(s.calls)-1]
}

func testImage(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: 200, G: 30, B: 30, A: 255})
		}
	}
	return img
}

func writePNG(t *testing.T, path string, img image.Image) {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write png: %v", err)
	}
}

func hasArgs(args []string, want ...string) bool {
	for i := 0; i+len(want) <= len(args); i++ {
		match := true
		for j := range want {
			if args[i+j] != want[j] {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

func newDoc(t *testing.T, kind, ext string) *SourceDocument {
	t.Helper()
	path := filepath.Join(t.TempDir(), "doc."+ext)
	return NewSourceDocument(path, "doc."+ext, kind, ext, 0, "", nil)
}
