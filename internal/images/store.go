package images

import (
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// MaxUploadedImages is the number of general photos a product may carry.
const MaxUploadedImages = 8

// UploadedImage is a photo selected by the merchant.
type UploadedImage struct {
	ID  string
	URL string // Reference resolvable by a Resolver (tg://, file://, http(s)://)
}

// GeneratedImage is an avatar try-on result derived from an UploadedImage.
type GeneratedImage struct {
	ID           string
	OriginalID   string
	URL          string // Empty while IsGenerating
	IsGenerating bool
	Fallback     bool // URL is the fallback image, not a remote result
}

// Resolved returns true when the image has a usable url.
func (g GeneratedImage) Resolved() bool {
	return !g.IsGenerating && g.URL != ""
}

// Store holds the images of one product form.
//
// The bot mutates a store only from the owning session worker; the mutex
// makes accessors safe for the occasional reader on another goroutine.
type Store struct {
	mu        sync.Mutex
	uploaded  []UploadedImage
	generated []GeneratedImage
	newID     func() string
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{newID: newLocalID}
}

func newLocalID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// AddUploaded appends images for the given references. References beyond the
// cap are dropped. Returns the images that were actually added.
func (s *Store) AddUploaded(refs ...string) []UploadedImage {
	s.mu.Lock()
	defer s.mu.Unlock()

	var added []UploadedImage
	for _, ref := range refs {
		if len(s.uploaded) >= MaxUploadedImages {
			break
		}
		img := UploadedImage{ID: s.newID(), URL: ref}
		s.uploaded = append(s.uploaded, img)
		added = append(added, img)
	}
	return added
}

// RemoveUploaded removes an uploaded image. Generated images derived from it
// are left untouched.
func (s *Store) RemoveUploaded(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, img := range s.uploaded {
		if img.ID == id {
			s.uploaded = append(s.uploaded[:i:i], s.uploaded[i+1:]...)
			return true
		}
	}
	return false
}

// BeginGeneration records a pending generated image for an uploaded image.
// Returns false if originalID is not a live uploaded image.
func (s *Store) BeginGeneration(originalID string) (GeneratedImage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.hasUploaded(originalID) {
		return GeneratedImage{}, false
	}
	img := GeneratedImage{
		ID:           s.newID(),
		OriginalID:   originalID,
		IsGenerating: true,
	}
	s.generated = append(s.generated, img)
	return img, true
}

// ResolveGeneration completes a pending generated image. Returns false when
// the image was removed while the generation was in flight or was already
// resolved; the result is then discarded.
func (s *Store) ResolveGeneration(id, url string, fallback bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.generated {
		if s.generated[i].ID != id {
			continue
		}
		if !s.generated[i].IsGenerating {
			return false
		}
		s.generated[i].IsGenerating = false
		s.generated[i].URL = url
		s.generated[i].Fallback = fallback
		return true
	}
	return false
}

// RemoveGenerated removes a generated image, pending or resolved.
func (s *Store) RemoveGenerated(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, img := range s.generated {
		if img.ID == id {
			s.generated = append(s.generated[:i:i], s.generated[i+1:]...)
			return true
		}
	}
	return false
}

// Uploaded returns a copy of the uploaded images in selection order.
func (s *Store) Uploaded() []UploadedImage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]UploadedImage(nil), s.uploaded...)
}

// Generated returns a copy of all generated images in creation order.
func (s *Store) Generated() []GeneratedImage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]GeneratedImage(nil), s.generated...)
}

// ResolvedGenerated returns generated images that have a url, in creation order.
func (s *Store) ResolvedGenerated() []GeneratedImage {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []GeneratedImage
	for _, img := range s.generated {
		if img.Resolved() {
			out = append(out, img)
		}
	}
	return out
}

// PendingCount returns the number of generations still in flight.
func (s *Store) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, img := range s.generated {
		if img.IsGenerating {
			n++
		}
	}
	return n
}

// UploadedByID looks up a live uploaded image.
func (s *Store) UploadedByID(id string) (UploadedImage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, img := range s.uploaded {
		if img.ID == id {
			return img, true
		}
	}
	return UploadedImage{}, false
}

// Remaining returns how many more images can be uploaded.
func (s *Store) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return MaxUploadedImages - len(s.uploaded)
}

// Remove drops the given uploaded and generated images and keeps everything
// else, including images added after the ids were taken.
func (s *Store) Remove(uploadedIDs, generatedIDs []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.uploaded = slices.DeleteFunc(s.uploaded, func(img UploadedImage) bool {
		return slices.Contains(uploadedIDs, img.ID)
	})
	s.generated = slices.DeleteFunc(s.generated, func(img GeneratedImage) bool {
		return slices.Contains(generatedIDs, img.ID)
	})
}

// Reset clears all images.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uploaded = nil
	s.generated = nil
}

func (s *Store) hasUploaded(id string) bool {
	for _, img := range s.uploaded {
		if img.ID == id {
			return true
		}
	}
	return false
}
