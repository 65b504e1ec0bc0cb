package images

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const (
	telegramScheme = "tg://"
	fileScheme     = "file://"
)

// ErrNotPublic is returned by PublicURL for references that cannot be handed
// to a remote service.
var ErrNotPublic = errors.New("image reference has no public url")

// Resolver dereferences an image reference to its bytes.
type Resolver interface {
	Fetch(ctx context.Context, ref string) (*Blob, error)
}

// TelegramRef builds a reference for a photo stored on Telegram servers.
func TelegramRef(fileID string) string {
	return telegramScheme + fileID
}

// RefResolver resolves tg://, file:// (or bare paths) and http(s):// references.
type RefResolver struct {
	downloader       *ImageDownloader
	getFileDirectURL func(fileID string) (string, error)
	maxSize          int64

	publisher Publisher
	mu        sync.Mutex
	published map[string]publishedURL
}

type publishedURL struct {
	url     string
	expires time.Time
}

// Published urls are reused for half of the presign expiry.
const publishedReuse = DefaultPublishExpiry / 2

// NewRefResolver creates a resolver. getFileDirectURL may be nil when
// Telegram references are not expected (e.g. from the CLI).
func NewRefResolver(downloader *ImageDownloader, getFileDirectURL func(fileID string) (string, error)) *RefResolver {
	if downloader == nil {
		downloader = NewImageDownloader()
	}
	return &RefResolver{
		downloader:       downloader,
		getFileDirectURL: getFileDirectURL,
		maxSize:          downloader.maxSize,
		published:        make(map[string]publishedURL),
	}
}

// WithPublisher lets PublicURL re-host Telegram and local references.
func (r *RefResolver) WithPublisher(p Publisher) *RefResolver {
	r.publisher = p
	return r
}

// Fetch returns the bytes and content type of ref.
func (r *RefResolver) Fetch(ctx context.Context, ref string) (*Blob, error) {
	switch {
	case strings.HasPrefix(ref, telegramScheme):
		url, err := r.telegramURL(strings.TrimPrefix(ref, telegramScheme))
		if err != nil {
			return nil, err
		}
		return r.downloader.DownloadFromURL(ctx, url)
	case isHTTP(ref):
		return r.downloader.DownloadFromURL(ctx, ref)
	default:
		return r.readLocal(ctx, strings.TrimPrefix(ref, fileScheme))
	}
}

// PublicURL returns a url a remote service can fetch ref from. http(s)
// references are already public. Telegram and local references are
// re-hosted through the publisher; the Telegram file url embeds the bot
// token and is never handed out.
func (r *RefResolver) PublicURL(ctx context.Context, ref string) (string, error) {
	if isHTTP(ref) {
		return ref, nil
	}
	if r.publisher == nil {
		return "", fmt.Errorf("%w: %s", ErrNotPublic, ref)
	}

	r.mu.Lock()
	cached, ok := r.published[ref]
	r.mu.Unlock()
	if ok && time.Now().Before(cached.expires) {
		return cached.url, nil
	}

	blob, err := r.Fetch(ctx, ref)
	if err != nil {
		return "", err
	}
	url, err := r.publisher.Publish(ctx, blob)
	if err != nil {
		return "", err
	}

	r.mu.Lock()
	r.published[ref] = publishedURL{url: url, expires: time.Now().Add(publishedReuse)}
	r.mu.Unlock()
	return url, nil
}

func (r *RefResolver) telegramURL(fileID string) (string, error) {
	if r.getFileDirectURL == nil {
		return "", fmt.Errorf("telegram reference %q cannot be resolved here", fileID)
	}
	url, err := r.getFileDirectURL(fileID)
	if err != nil {
		return "", fmt.Errorf("failed to get file URL: %w", err)
	}
	return url, nil
}

func (r *RefResolver) readLocal(ctx context.Context, path string) (*Blob, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	if info.Size() > r.maxSize {
		return nil, fmt.Errorf("image too large: %d bytes exceeds limit of %d bytes", info.Size(), r.maxSize)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}

	contentType := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	return &Blob{Data: data, ContentType: contentType}, nil
}

func isHTTP(ref string) bool {
	return strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://")
}
