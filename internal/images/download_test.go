package images

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImageDownloader_DownloadFromURL_Success(t *testing.T) {
	imageData := []byte{0x89, 0x50, 0x4E, 0x47} // PNG magic bytes
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.WriteHeader(http.StatusOK)
		w.Write(imageData)
	}))
	defer ts.Close()

	blob, err := NewImageDownloader().DownloadFromURL(context.Background(), ts.URL)
	require.NoError(t, err)
	assert.Equal(t, imageData, blob.Data)
	assert.Equal(t, "image/png", blob.ContentType)
}

func TestImageDownloader_DownloadFromURL_HTTPError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	_, err := NewImageDownloader().DownloadFromURL(context.Background(), ts.URL)
	assert.ErrorContains(t, err, "status 404")
}

func TestImageDownloader_DownloadFromURL_InvalidContentType(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html></html>"))
	}))
	defer ts.Close()

	_, err := NewImageDownloader().DownloadFromURL(context.Background(), ts.URL)
	assert.ErrorContains(t, err, "invalid content type")
}

func TestImageDownloader_DownloadFromURL_TooLarge(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write(make([]byte, 200))
	}))
	defer ts.Close()

	_, err := NewImageDownloader().WithMaxSize(100).DownloadFromURL(context.Background(), ts.URL)
	assert.ErrorContains(t, err, "image too large")
}

func TestImageDownloader_DownloadFromURL_ContextCanceled(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write([]byte("x"))
	}))
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewImageDownloader().DownloadFromURL(ctx, ts.URL)
	assert.Error(t, err)
}

func TestExtensionFor(t *testing.T) {
	tests := map[string]string{
		"image/png":                 "png",
		"image/jpeg":                "jpeg",
		"image/webp; charset=utf8":  "webp",
		"image/svg+xml":             "svg",
		"":                          "jpg",
		"garbage":                   "jpg",
		"image/":                    "jpg",
		"application/octet-stream":  "jpg",
		"text/plain; charset=utf-8": "jpg",
		"IMAGE/PNG":                 "png",
	}
	for in, want := range tests {
		assert.Equal(t, want, ExtensionFor(in), in)
	}
}

func TestRefResolver_Telegram(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/foo.jpeg" {
			t.Errorf("invalid request to test server: %s %s", r.Method, r.URL.Path)
		}
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write([]byte("123"))
	}))
	defer ts.Close()

	r := NewRefResolver(nil, func(fileID string) (string, error) {
		return fmt.Sprintf("%s/%s.jpeg", ts.URL, fileID), nil
	})

	blob, err := r.Fetch(context.Background(), TelegramRef("foo"))
	require.NoError(t, err)
	assert.Equal(t, []byte("123"), blob.Data)

	_, err = r.PublicURL(context.Background(), TelegramRef("foo"))
	assert.ErrorIs(t, err, ErrNotPublic)
}

func TestRefResolver_TelegramURLError(t *testing.T) {
	r := NewRefResolver(nil, func(fileID string) (string, error) {
		return "", fmt.Errorf("boom")
	})
	_, err := r.Fetch(context.Background(), TelegramRef("x"))
	assert.ErrorContains(t, err, "failed to get file URL")

	_, err = NewRefResolver(nil, nil).Fetch(context.Background(), TelegramRef("x"))
	assert.Error(t, err)
}

func TestRefResolver_LocalFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "shirt.png")
	require.NoError(t, os.WriteFile(path, []byte{0x89, 0x50, 0x4E, 0x47}, 0o600))

	r := NewRefResolver(nil, nil)
	for _, ref := range []string{path, "file://" + path} {
		blob, err := r.Fetch(context.Background(), ref)
		require.NoError(t, err, ref)
		assert.Equal(t, "image/png", blob.ContentType)
		assert.Len(t, blob.Data, 4)
	}

	_, err := r.PublicURL(context.Background(), path)
	assert.True(t, errors.Is(err, ErrNotPublic))

	// Unknown extension and non-image content still upload as jpg
	odd := filepath.Join(dir, "shirt.dat")
	require.NoError(t, os.WriteFile(odd, []byte("plain text"), 0o600))
	blob, err := r.Fetch(context.Background(), odd)
	require.NoError(t, err)
	assert.Equal(t, "jpg", ExtensionFor(blob.ContentType))

	_, err = r.Fetch(context.Background(), filepath.Join(dir, "missing.jpg"))
	assert.Error(t, err)
}

func TestRefResolver_HTTPPassthrough(t *testing.T) {
	r := NewRefResolver(nil, nil)
	url, err := r.PublicURL(context.Background(), "https://example.com/a.jpg")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/a.jpg", url)
}
