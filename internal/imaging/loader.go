package imaging

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "golang.org/x/image/bmp"  // Register BMP format decoder
	_ "golang.org/x/image/webp" // Register WebP format decoder
)

// DefaultStoreLimit is the number of bitmaps a Store keeps before evicting
// the oldest.
const DefaultStoreLimit = 32

// ErrNotFound is returned for unknown image IDs.
var ErrNotFound = errors.New("image not found")

type entry struct {
	img     image.Image
	source  string
	created time.Time
}

// Store keeps converted bitmaps and loaded files in memory under opaque
// IDs, so tools can refer to an image across calls.
//
// Store is safe for concurrent use by multiple goroutines. Once the limit
// is reached, adding an image evicts the oldest one.
type Store struct {
	mu     sync.RWMutex
	images map[string]*entry
	order  []string
	paths  map[string]string
	limit  int
}

// NewStore creates an empty store holding at most limit images. A limit
// of zero or less selects DefaultStoreLimit.
func NewStore(limit int) *Store {
	if limit <= 0 {
		limit = DefaultStoreLimit
	}
	return &Store{
		images: make(map[string]*entry),
		paths:  make(map[string]string),
		limit:  limit,
	}
}

// Put stores img and returns its new ID. Source is a free-form label such
// as "frame:12" or a file path.
func (s *Store) Put(img image.Image, source string) string {
	id := uuid.NewString()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.images[id] = &entry{img: img, source: source, created: time.Now()}
	s.order = append(s.order, id)
	for len(s.order) > s.limit {
		s.removeLocked(s.order[0])
	}
	return id
}

// Get returns the image stored under id.
func (s *Store) Get(id string) (image.Image, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.images[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return e.img, nil
}

// Load decodes the image file at path and stores it. Loading the same
// path again returns the stored copy without disk I/O. Supported formats
// are PNG, JPEG, GIF, BMP and WebP.
func (s *Store) Load(path string) (string, image.Image, error) {
	s.mu.RLock()
	if id, ok := s.paths[path]; ok {
		if e, ok := s.images[id]; ok {
			s.mu.RUnlock()
			return id, e.img, nil
		}
	}
	s.mu.RUnlock()

	f, err := os.Open(path)
	if err != nil {
		return "", nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return "", nil, fmt.Errorf("failed to decode image: %w", err)
	}

	id := s.Put(img, path)

	s.mu.Lock()
	s.paths[path] = id
	s.mu.Unlock()

	return id, img, nil
}

// Evict removes a specific image by its ID. Unknown IDs are ignored.
func (s *Store) Evict(id string) {
	s.mu.Lock()
	s.removeLocked(id)
	s.mu.Unlock()
}

// Clear removes all images from the store.
func (s *Store) Clear() {
	s.mu.Lock()
	s.images = make(map[string]*entry)
	s.paths = make(map[string]string)
	s.order = nil
	s.mu.Unlock()
}

// Len returns the number of stored images.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.images)
}

func (s *Store) removeLocked(id string) {
	e, ok := s.images[id]
	if !ok {
		return
	}
	delete(s.images, id)
	if s.paths[e.source] == id {
		delete(s.paths, e.source)
	}
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// ImageInfo contains metadata about a stored image.
type ImageInfo struct {
	ID string `json:"id"`

	// Width is the image width in pixels.
	Width int `json:"width"`

	// Height is the image height in pixels.
	Height int `json:"height"`

	// ColorDepth indicates the bit depth per channel: "8-bit" or "16-bit".
	ColorDepth string `json:"color_depth"`

	// HasAlpha indicates whether the image has an alpha (transparency) channel.
	HasAlpha bool `json:"has_alpha"`

	// Source is the label given when the image was stored.
	Source string `json:"source"`

	CreatedAt time.Time `json:"created_at"`
}

// Info returns metadata about the image stored under id.
func (s *Store) Info(id string) (*ImageInfo, error) {
	s.mu.RLock()
	e, ok := s.images[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	bounds := e.img.Bounds()

	// Check for alpha channel
	hasAlpha := false
	colorDepth := "8-bit"
	switch e.img.(type) {
	case *image.RGBA, *image.NRGBA:
		hasAlpha = true
	case *image.RGBA64, *image.NRGBA64:
		hasAlpha = true
		colorDepth = "16-bit"
	case *image.Gray16:
		colorDepth = "16-bit"
	}

	return &ImageInfo{
		ID:         id,
		Width:      bounds.Dx(),
		Height:     bounds.Dy(),
		ColorDepth: colorDepth,
		HasAlpha:   hasAlpha,
		Source:     e.source,
		CreatedAt:  e.created,
	}, nil
}
