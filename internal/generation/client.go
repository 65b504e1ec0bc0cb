package generation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/raine/telegram-tryon-bot/internal/images"
)

const (
	DefaultAvatarAPIURL = "https://gfgkarecode.pythonanywhere.com/pe_count"
	// FallbackImageURL stands in for a try-on result the remote call could not produce.
	FallbackImageURL = "https://images.pexels.com/photos/35537/child-children-girl-happy.jpg?w=200&h=200&fit=crop"
	DefaultTimeout   = 60 * time.Second
)

var (
	ErrNoImagesSelected = errors.New("select at least one image")
	ErrEmptyPrompt      = errors.New("enter a prompt")
	ErrNoVideoURL       = errors.New("video service returned no videoUrl")
	ErrVideoDisabled    = errors.New("video generation is not configured")
)

// AvatarResult is the outcome of an avatar try-on call: either Resolved or
// Fallback.
type AvatarResult interface {
	ImageURL() string
	isAvatarResult()
}

// Resolved carries the url returned by the generation service.
type Resolved struct {
	URL string
}

func (r Resolved) ImageURL() string { return r.URL }
func (Resolved) isAvatarResult()    {}

// Fallback is used when the generation call failed. URL is always
// FallbackImageURL.
type Fallback struct {
	URL    string
	Reason string
}

func (f Fallback) ImageURL() string { return f.URL }
func (Fallback) isAvatarResult()    {}

// IsFallback reports whether res is the masked failure variant.
func IsFallback(res AvatarResult) bool {
	_, ok := res.(Fallback)
	return ok
}

type avatarResponse struct {
	URL string `json:"url"`
}

type videoRequest struct {
	Images []string `json:"images"`
	Prompt string   `json:"prompt"`
}

type videoResponse struct {
	VideoURL string `json:"videoUrl"`
}

type ClientOpts struct {
	AvatarURL string
	VideoURL  string
	Timeout   time.Duration
}

// Client talks to the avatar try-on and video generation services.
type Client struct {
	httpClient *resty.Client
	avatarURL  string
	videoURL   string
}

func NewClient(opts ClientOpts) *Client {
	c := Client{avatarURL: DefaultAvatarAPIURL, videoURL: opts.VideoURL}
	if opts.AvatarURL != "" {
		c.avatarURL = opts.AvatarURL
	}
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	c.httpClient = resty.New().
		SetDebug(false).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")

	return &c
}

// GenerateForAvatar asks the service to dress avatar in the garment shown at
// sourceURL. The call is a single GET without a body. Any failure is masked
// as a Fallback result; no error is ever returned.
func (c *Client) GenerateForAvatar(ctx context.Context, avatar images.AvatarOption, sourceURL string) AvatarResult {
	result := &avatarResponse{}
	res, err := c.httpClient.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"avatarId":    avatar.ID,
			"avatarImage": avatar.Image,
			"section":     string(avatar.Section),
			"imageUrl":    sourceURL,
		}).
		SetResult(result).
		ForceContentType("application/json").
		Get(c.avatarURL)

	switch {
	case err != nil:
		return fallback(fmt.Sprintf("request failed: %v", err))
	case res.IsError():
		return fallback(fmt.Sprintf("status %d", res.StatusCode()))
	case result.URL == "":
		return fallback("response has no url")
	}
	return Resolved{URL: result.URL}
}

func fallback(reason string) Fallback {
	return Fallback{URL: FallbackImageURL, Reason: reason}
}

// ValidateVideoRequest checks a video request without touching the network.
func ValidateVideoRequest(imageURLs []string, prompt string) error {
	if len(imageURLs) == 0 {
		return ErrNoImagesSelected
	}
	if strings.TrimSpace(prompt) == "" {
		return ErrEmptyPrompt
	}
	return nil
}

// GenerateVideo creates a promotional video from the given images. Invalid
// input is rejected before any request is made.
func (c *Client) GenerateVideo(ctx context.Context, imageURLs []string, prompt string) (string, error) {
	if err := ValidateVideoRequest(imageURLs, prompt); err != nil {
		return "", err
	}
	if c.videoURL == "" {
		return "", ErrVideoDisabled
	}

	result := &videoResponse{}
	_, err := handleError(c.httpClient.R().
		SetContext(ctx).
		SetBody(videoRequest{Images: imageURLs, Prompt: strings.TrimSpace(prompt)}).
		SetResult(result).
		ForceContentType("application/json").
		Post(c.videoURL))
	if err != nil {
		return "", fmt.Errorf("failed to generate video: %w", err)
	}
	if result.VideoURL == "" {
		return "", ErrNoVideoURL
	}
	return result.VideoURL, nil
}

// VideoEnabled reports whether a video endpoint is configured.
func (c *Client) VideoEnabled() bool {
	return c.videoURL != ""
}

// handleError turns >399 responses into errors; resty leaves them nil.
func handleError(res *resty.Response, err error) (*resty.Response, error) {
	if err != nil {
		return res, err
	}
	if res.IsError() {
		return res, fmt.Errorf("request failed: %s %s (status: %d)", res.Request.Method, res.Request.URL, res.StatusCode())
	}
	return res, nil
}
