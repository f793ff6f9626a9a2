package processing

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
)

// createTestImage creates a test image with a specific color
func createTestImage(width, height int, c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestToPixelBuffer(t *testing.T) {
	p := NewProcessor()

	img := image.NewNRGBA(image.Rect(0, 0, 3, 2))
	img.SetNRGBA(2, 1, color.NRGBA{R: 10, G: 20, B: 30, A: 40})

	buf := p.ToPixelBuffer(img)
	if err := buf.Validate(); err != nil {
		t.Fatalf("Invalid buffer: %v", err)
	}
	if buf.Width != 3 || buf.Height != 2 {
		t.Fatalf("Expected 3x2 buffer, got %dx%d", buf.Width, buf.Height)
	}

	r, g, b, a := buf.RGBA(2, 1)
	if r != 10 || g != 20 || b != 30 || a != 40 {
		t.Errorf("Expected non-premultiplied (10,20,30,40), got (%d,%d,%d,%d)", r, g, b, a)
	}
	if _, _, _, a := buf.RGBA(0, 0); a != 0 {
		t.Errorf("Expected transparent pixel, got alpha %d", a)
	}
}

func TestToPixelBufferSubImage(t *testing.T) {
	p := NewProcessor()

	src := image.NewRGBA(image.Rect(0, 0, 10, 10))
	src.Set(5, 5, color.RGBA{R: 255, A: 255})
	sub := src.SubImage(image.Rect(4, 4, 8, 8))

	buf := p.ToPixelBuffer(sub)
	if buf.Width != 4 || buf.Height != 4 {
		t.Fatalf("Expected 4x4 buffer, got %dx%d", buf.Width, buf.Height)
	}
	if r, _, _, a := buf.RGBA(1, 1); r != 255 || a != 255 {
		t.Errorf("Expected red pixel at (1,1), got r=%d a=%d", r, a)
	}
}

func TestToPixelBufferGray(t *testing.T) {
	p := NewProcessor()

	img := image.NewGray(image.Rect(0, 0, 2, 2))
	img.SetGray(1, 0, color.Gray{Y: 200})

	buf := p.ToPixelBuffer(img)
	r, g, b, a := buf.RGBA(1, 0)
	if r != 200 || g != 200 || b != 200 || a != 255 {
		t.Errorf("Expected opaque gray 200, got (%d,%d,%d,%d)", r, g, b, a)
	}
}

func TestFitImage(t *testing.T) {
	p := NewProcessor()
	img := createTestImage(400, 200, color.White)

	if got := p.FitImage(img, 0); got != img {
		t.Error("Expected maxDim 0 to return the image unchanged")
	}
	if got := p.FitImage(img, 500); got != img {
		t.Error("Expected small image to be returned unchanged")
	}

	fitted := p.FitImage(img, 100)
	if fitted.Bounds().Dx() != 100 || fitted.Bounds().Dy() != 50 {
		t.Errorf("Expected 100x50, got %dx%d", fitted.Bounds().Dx(), fitted.Bounds().Dy())
	}
}

func TestPrepareImageForModel(t *testing.T) {
	p := NewProcessor()
	img := createTestImage(64, 32, color.Black)

	encoded, err := p.PrepareImageForModel(img, "png", 16, 0)
	if err != nil {
		t.Fatalf("PrepareImageForModel failed: %v", err)
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		t.Fatalf("Expected valid base64: %v", err)
	}
	decoded, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Expected PNG data: %v", err)
	}
	if decoded.Bounds().Dx() != 16 || decoded.Bounds().Dy() != 8 {
		t.Errorf("Expected 16x8, got %v", decoded.Bounds())
	}

	if _, err := p.PrepareImageForModel(img, "jpg", 0, 90); err != nil {
		t.Errorf("JPEG encoding failed: %v", err)
	}
}

func TestSaveAndLoadImage(t *testing.T) {
	p := NewProcessor()
	dir := t.TempDir()
	img := createTestImage(12, 7, color.RGBA{R: 0, G: 128, B: 255, A: 255})

	for _, format := range []string{"png", "jpg"} {
		path := filepath.Join(dir, "out."+format)
		if err := p.SaveImage(img, path, format, 90, false); err != nil {
			t.Fatalf("SaveImage(%s) failed: %v", format, err)
		}

		loaded, err := p.LoadImageSmart(path)
		if err != nil {
			t.Fatalf("LoadImageSmart(%s) failed: %v", format, err)
		}
		if loaded.Bounds().Dx() != 12 || loaded.Bounds().Dy() != 7 {
			t.Errorf("%s: expected 12x7, got %v", format, loaded.Bounds())
		}
	}

	if _, err := p.LoadImage(filepath.Join(dir, "missing.png")); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestLoadImageFromURL(t *testing.T) {
	var pngData bytes.Buffer
	if err := png.Encode(&pngData, createTestImage(5, 4, color.Black)); err != nil {
		t.Fatal(err)
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/image.png":
			w.Header().Set("Content-Type", "image/png")
			w.Write(pngData.Bytes())
		case "/page":
			w.Header().Set("Content-Type", "text/html")
			w.Write([]byte("<html></html>"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	p := NewProcessor()
	img, err := p.LoadImageSmart(server.URL + "/image.png")
	if err != nil {
		t.Fatalf("LoadImageFromURL failed: %v", err)
	}
	if img.Bounds().Dx() != 5 || img.Bounds().Dy() != 4 {
		t.Errorf("Expected 5x4, got %v", img.Bounds())
	}

	if _, err := p.LoadImageFromURL(server.URL + "/page"); err == nil {
		t.Error("Expected error for non-image content type")
	}
	if _, err := p.LoadImageFromURL(server.URL + "/missing"); err == nil {
		t.Error("Expected error for 404")
	}
	if _, err := p.LoadImageFromURL("ftp://example.com/image.png"); err == nil {
		t.Error("Expected error for unsupported scheme")
	}
}
