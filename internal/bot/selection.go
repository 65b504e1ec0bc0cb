package bot

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/raine/telegram-tryon-bot/internal/images"
)

var errEmptySelection = errors.New("no images selected")

// selectionError is a selected number that cannot be used.
type selectionError struct {
	label   string
	pending bool
}

func (e *selectionError) Error() string {
	if e.pending {
		return fmt.Sprintf("image %s is still being generated", e.label)
	}
	return fmt.Sprintf("no image %s", e.label)
}

type selectedImage struct {
	label string // As shown by /photos: "2" or "g1"
	ref   string
}

// selectImages picks images by the numbers /photos shows them with:
// uploaded photos are 1, 2, ... and generated images g1, g2, .... "all"
// selects every photo and every finished try-on. Order is kept and
// duplicates are dropped.
func selectImages(store *images.Store, arg string) ([]selectedImage, error) {
	uploaded := store.Uploaded()
	generated := store.Generated()

	if strings.EqualFold(strings.TrimSpace(arg), "all") {
		var out []selectedImage
		for i, img := range uploaded {
			out = append(out, selectedImage{label: strconv.Itoa(i + 1), ref: img.URL})
		}
		for i, img := range generated {
			if img.Resolved() {
				out = append(out, selectedImage{label: fmt.Sprintf("g%d", i+1), ref: img.URL})
			}
		}
		if len(out) == 0 {
			return nil, errEmptySelection
		}
		return out, nil
	}

	var out []selectedImage
	seen := make(map[string]bool)
	for _, token := range strings.Split(arg, ",") {
		// Anything that is not a number is taken as a missing selection,
		// e.g. "/video slow pan"
		label := strings.ToLower(strings.TrimSpace(token))
		if label == "" || seen[label] {
			continue
		}

		if rest, ok := strings.CutPrefix(label, "g"); ok {
			n, err := strconv.Atoi(rest)
			if err != nil {
				return nil, errEmptySelection
			}
			if n < 1 || n > len(generated) {
				return nil, &selectionError{label: label}
			}
			img := generated[n-1]
			if !img.Resolved() {
				return nil, &selectionError{label: label, pending: true}
			}
			out = append(out, selectedImage{label: label, ref: img.URL})
		} else {
			n, err := strconv.Atoi(label)
			if err != nil {
				return nil, errEmptySelection
			}
			if n < 1 || n > len(uploaded) {
				return nil, &selectionError{label: label}
			}
			out = append(out, selectedImage{label: label, ref: uploaded[n-1].URL})
		}
		seen[label] = true
	}
	if len(out) == 0 {
		return nil, errEmptySelection
	}
	return out, nil
}

func uploadedIDs(imgs []images.UploadedImage) []string {
	ids := make([]string, len(imgs))
	for i, img := range imgs {
		ids[i] = img.ID
	}
	return ids
}

func generatedIDs(imgs []images.GeneratedImage) []string {
	ids := make([]string, len(imgs))
	for i, img := range imgs {
		ids[i] = img.ID
	}
	return ids
}
