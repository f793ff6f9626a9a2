package binarize

import (
	"context"
	"errors"
	"testing"

	"github.com/menta2k/image-tracer/pkg/schedule"
	"github.com/menta2k/image-tracer/pkg/types"
)

// createTestBuffer creates a buffer filled with one colour
func createTestBuffer(width, height int, r, g, b, a uint8) *types.PixelBuffer {
	buf := types.NewPixelBuffer(width, height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			buf.SetRGBA(x, y, r, g, b, a)
		}
	}
	return buf
}

func TestBinarizeBlackOnWhite(t *testing.T) {
	buf := createTestBuffer(4, 1, 255, 255, 255, 255)
	buf.SetRGBA(0, 0, 0, 0, 0, 255)       // black
	buf.SetRGBA(1, 0, 127, 127, 128, 255) // sum 382, average 127.3
	buf.SetRGBA(2, 0, 128, 128, 128, 255) // exactly on the threshold

	grid, err := Binarize(context.Background(), buf, 128, true, Options{})
	if err != nil {
		t.Fatalf("Binarize failed: %v", err)
	}

	expected := []bool{true, true, false, false}
	for x, want := range expected {
		if got := grid.At(x, 0); got != want {
			t.Errorf("pixel %d: expected %v, got %v", x, want, got)
		}
	}
}

func TestBinarizeWhiteOnBlack(t *testing.T) {
	buf := createTestBuffer(3, 1, 0, 0, 0, 255)
	buf.SetRGBA(1, 0, 128, 128, 128, 255)
	buf.SetRGBA(2, 0, 127, 127, 128, 255)

	grid, err := Binarize(context.Background(), buf, 128, false, Options{})
	if err != nil {
		t.Fatalf("Binarize failed: %v", err)
	}

	expected := []bool{false, true, false}
	for x, want := range expected {
		if got := grid.At(x, 0); got != want {
			t.Errorf("pixel %d: expected %v, got %v", x, want, got)
		}
	}
}

func TestBinarizeTransparency(t *testing.T) {
	// dark but transparent pixels
	buf := createTestBuffer(2, 2, 0, 0, 0, 127)

	grid, err := Binarize(context.Background(), buf, 128, true, Options{})
	if err != nil {
		t.Fatalf("Binarize failed: %v", err)
	}
	if grid.Count() != 0 {
		t.Errorf("Expected transparent pixels to be background with blackOnWhite, got %d foreground", grid.Count())
	}

	grid, err = Binarize(context.Background(), buf, 128, false, Options{})
	if err != nil {
		t.Fatalf("Binarize failed: %v", err)
	}
	if grid.Count() != 4 {
		t.Errorf("Expected transparent pixels to be foreground without blackOnWhite, got %d foreground", grid.Count())
	}

	// alpha exactly at the cutoff counts as opaque
	buf = createTestBuffer(1, 1, 0, 0, 0, AlphaCutoff)
	grid, _ = Binarize(context.Background(), buf, 128, true, Options{})
	if !grid.At(0, 0) {
		t.Error("Expected opaque black pixel to be foreground")
	}
}

func TestBinarizeInvalidBuffer(t *testing.T) {
	buf := &types.PixelBuffer{Width: 3, Height: 3, Pix: make([]byte, 10)}

	_, err := Binarize(context.Background(), buf, 128, true, Options{})
	if !errors.Is(err, types.ErrInvalidBuffer) {
		t.Errorf("Expected ErrInvalidBuffer, got %v", err)
	}
}

func TestBinarizeYields(t *testing.T) {
	buf := createTestBuffer(2, 25, 0, 0, 0, 255)

	yields := 0
	opts := Options{
		BatchRows: 10,
		Yield: schedule.YieldFunc(func(ctx context.Context) error {
			yields++
			return nil
		}),
	}
	if _, err := Binarize(context.Background(), buf, 128, true, opts); err != nil {
		t.Fatalf("Binarize failed: %v", err)
	}

	// rows 10 and 20
	if yields != 2 {
		t.Errorf("Expected 2 yields, got %d", yields)
	}
}

func TestBinarizeCancelled(t *testing.T) {
	buf := createTestBuffer(2, 200, 0, 0, 0, 255)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Binarize(ctx, buf, 128, true, Options{})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}

	// small images never reach a yield point
	small := createTestBuffer(2, 2, 0, 0, 0, 255)
	if _, err := Binarize(ctx, small, 128, true, Options{}); err != nil {
		t.Errorf("Expected small image to complete, got %v", err)
	}
}

func TestBinarizeIsProjection(t *testing.T) {
	buf := types.NewPixelBuffer(8, 8)
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			v := uint8((x*37 + y*91) % 256)
			buf.SetRGBA(x, y, v, 255-v, v/2, 255)
		}
	}

	first, err := Binarize(context.Background(), buf, 100, true, Options{})
	if err != nil {
		t.Fatalf("Binarize failed: %v", err)
	}

	// re-render the grid as black/white and binarize again
	again := types.NewPixelBuffer(8, 8)
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			v := uint8(255)
			if first.At(x, y) {
				v = 0
			}
			again.SetRGBA(x, y, v, v, v, 255)
		}
	}
	second, err := Binarize(context.Background(), again, 100, true, Options{})
	if err != nil {
		t.Fatalf("Binarize failed: %v", err)
	}

	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			if first.At(x, y) != second.At(x, y) {
				t.Errorf("pixel (%d,%d) changed on second pass", x, y)
			}
		}
	}
}

func TestGridImage(t *testing.T) {
	grid := NewGrid(3, 2)
	grid.Set(1, 1, true)
	grid.Set(5, 5, true) // ignored

	img := grid.Image()
	if img.Bounds().Dx() != 3 || img.Bounds().Dy() != 2 {
		t.Fatalf("Expected 3x2 image, got %v", img.Bounds())
	}
	if img.GrayAt(1, 1).Y != 0 {
		t.Errorf("Expected foreground to be black, got %d", img.GrayAt(1, 1).Y)
	}
	if img.GrayAt(0, 0).Y != 255 {
		t.Errorf("Expected background to be white, got %d", img.GrayAt(0, 0).Y)
	}
	if grid.At(-1, 0) {
		t.Error("Expected out of range cells to be background")
	}
}

func BenchmarkBinarize(b *testing.B) {
	buf := createTestBuffer(1920, 1080, 100, 100, 100, 255)
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Binarize(ctx, buf, 128, true, Options{})
	}
}
