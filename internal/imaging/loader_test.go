package imaging

import (
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

// createTestImage creates a simple test image file and returns its path.
func createTestImage(t *testing.T, width, height int, c color.Color) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}

	path := filepath.Join(t.TempDir(), "test-image.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create file: %v", err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		t.Fatalf("failed to encode image: %v", err)
	}

	return path
}

func TestNewStore(t *testing.T) {
	s := NewStore(0)
	if s == nil {
		t.Fatal("NewStore returned nil")
	}
	if s.limit != DefaultStoreLimit {
		t.Errorf("limit: got %d, want %d", s.limit, DefaultStoreLimit)
	}
	if s.Len() != 0 {
		t.Errorf("new store should be empty, got %d", s.Len())
	}
}

func TestStore_PutGet(t *testing.T) {
	s := NewStore(4)
	img := createInMemoryImage(10, 20, color.White)

	id := s.Put(img, "frame:1")
	if id == "" {
		t.Fatal("Put returned empty id")
	}

	got, err := s.Get(id)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != img {
		t.Error("Get should return the stored image")
	}

	if _, err := s.Get("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_EvictsOldest(t *testing.T) {
	s := NewStore(2)
	first := s.Put(createInMemoryImage(1, 1, color.White), "a")
	second := s.Put(createInMemoryImage(1, 1, color.White), "b")
	third := s.Put(createInMemoryImage(1, 1, color.White), "c")

	if s.Len() != 2 {
		t.Errorf("Len: got %d, want 2", s.Len())
	}
	if _, err := s.Get(first); !errors.Is(err, ErrNotFound) {
		t.Error("oldest image should have been evicted")
	}
	for _, id := range []string{second, third} {
		if _, err := s.Get(id); err != nil {
			t.Errorf("Get(%s) failed: %v", id, err)
		}
	}
}

func TestStore_Load(t *testing.T) {
	path := createTestImage(t, 30, 40, color.RGBA{255, 0, 0, 255})
	s := NewStore(4)

	id, img, err := s.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if img.Bounds().Dx() != 30 || img.Bounds().Dy() != 40 {
		t.Errorf("dimensions: got %v", img.Bounds())
	}

	// Second load comes from memory even after the file is gone.
	os.Remove(path)
	id2, img2, err := s.Load(path)
	if err != nil {
		t.Fatalf("cached Load failed: %v", err)
	}
	if id2 != id || img2 != img {
		t.Error("second Load should return the stored image")
	}

	s.Evict(id)
	if _, _, err := s.Load(path); err == nil {
		t.Error("Load after Evict should read the (deleted) file again")
	}
}

func TestStore_LoadErrors(t *testing.T) {
	s := NewStore(4)

	if _, _, err := s.Load("/nonexistent/path/image.png"); err == nil {
		t.Error("expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.png")
	os.WriteFile(path, []byte("not an image"), 0644)
	if _, _, err := s.Load(path); err == nil {
		t.Error("expected error for invalid image")
	}
}

func TestStore_Clear(t *testing.T) {
	s := NewStore(4)
	id := s.Put(createInMemoryImage(1, 1, color.White), "a")
	s.Clear()

	if s.Len() != 0 {
		t.Errorf("Len after Clear: got %d", s.Len())
	}
	if _, err := s.Get(id); !errors.Is(err, ErrNotFound) {
		t.Error("image should be gone after Clear")
	}
}

func TestStore_Info(t *testing.T) {
	s := NewStore(4)
	id := s.Put(image.NewNRGBA(image.Rect(0, 0, 8, 6)), "frame:7")

	info, err := s.Info(id)
	if err != nil {
		t.Fatalf("Info failed: %v", err)
	}
	if info.ID != id || info.Width != 8 || info.Height != 6 {
		t.Errorf("info: got %+v", info)
	}
	if !info.HasAlpha || info.ColorDepth != "8-bit" {
		t.Errorf("NRGBA should report 8-bit with alpha, got %+v", info)
	}
	if info.Source != "frame:7" {
		t.Errorf("Source: got %q", info.Source)
	}

	gray := s.Put(image.NewGray16(image.Rect(0, 0, 1, 1)), "g")
	info, _ = s.Info(gray)
	if info.HasAlpha || info.ColorDepth != "16-bit" {
		t.Errorf("Gray16 should report 16-bit without alpha, got %+v", info)
	}

	if _, err := s.Info("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_Concurrent(t *testing.T) {
	s := NewStore(8)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := s.Put(createInMemoryImage(2, 2, color.Black), "c")
			s.Get(id)
			s.Info(id)
		}()
	}
	wg.Wait()

	if s.Len() > 8 {
		t.Errorf("store grew past its limit: %d", s.Len())
	}
}
