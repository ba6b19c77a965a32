package yunet

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func TestNewInvalidPath(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ModelPath = "/nonexistent/path/model.onnx"

	if _, err := New(cfg); err == nil {
		t.Error("expected error for invalid model path")
	}
}

func newTestDetector(t *testing.T) *Detector {
	t.Helper()
	modelPath := findModelPath()
	if modelPath == "" {
		t.Skip("YuNet model not found, skipping test")
	}
	cfg := DefaultConfig()
	cfg.ModelPath = modelPath

	d, err := New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return d
}

func TestDetectInvalidImage(t *testing.T) {
	d := newTestDetector(t)

	if _, err := d.Detect([]byte{}); err == nil {
		t.Error("expected error for empty image")
	}
	if _, err := d.Detect([]byte("not a jpeg")); err == nil {
		t.Error("expected error for invalid JPEG")
	}
}

func TestDetectSolidImage(t *testing.T) {
	d := newTestDetector(t)

	faces, err := d.Detect(solidJPEG(320, 240, color.RGBA{0, 0, 255, 255}))
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if len(faces) > 0 {
		t.Errorf("expected no faces in solid color image, got %d", len(faces))
	}
}

func TestDetectConcurrent(t *testing.T) {
	d := newTestDetector(t)
	frame := solidJPEG(320, 240, color.RGBA{100, 100, 100, 255})

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := d.Detect(frame); err != nil {
				t.Errorf("concurrent detection failed: %v", err)
			}
		}()
	}
	wg.Wait()
}

// findModelPath walks up from the test directory looking for models/.
func findModelPath() string {
	if p := os.Getenv("YUNET_MODEL"); p != "" {
		return p
	}
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}
	for dir := cwd; dir != "/"; dir = filepath.Dir(dir) {
		modelPath := filepath.Join(dir, "models", "face_detection_yunet.onnx")
		if _, err := os.Stat(modelPath); err == nil {
			return modelPath
		}
	}
	return ""
}

func solidJPEG(width, height int, c color.Color) []byte {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}

	var buf bytes.Buffer
	jpeg.Encode(&buf, img, nil)
	return buf.Bytes()
}
