package catalog

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	DefaultCodeGeneratorURL = "http://pcu-external-api.qa2-sg.cld/pcu-external-api/api/generators/generateProductCode"
	DefaultSellerAPIBaseURL = "https://seller-qa2-gcp.gdn-app.com/backend/product-external"
	UploadImagePath         = "/api/images/upload"
	CreateProductPath       = "/api/products/create"
	DefaultTimeout          = 60 * time.Second
	sessionCookieName       = "SESSION"
	defaultImageContentType = "image/jpeg"
)

// ErrNoSession is returned when a request is attempted without a seller session.
var ErrNoSession = errors.New("seller session cookie is not set")

// ProductCodeResponse is returned by the code generator.
type ProductCodeResponse struct {
	Success bool   `json:"success"`
	Value   string `json:"value"`
}

// UploadImageRequest is one multipart image upload.
type UploadImageRequest struct {
	FileName    string // {productCode}/image_{n}.{ext}
	ProductCode string
	Data        []byte
	ContentType string
	Active      bool
}

// UploadImageResponse is returned by the image upload endpoint. Both fields
// are optional.
type UploadImageResponse struct {
	Path     string `json:"path"`
	FileName string `json:"fileName"`
}

type ClientOpts struct {
	CodeGeneratorURL string
	BaseURL          string
	Session          string
	Timeout          time.Duration
}

// Client talks to the seller catalog APIs on behalf of one seller session.
type Client struct {
	httpClient       *resty.Client
	codeGeneratorURL string
	baseURL          string
	session          string
}

func NewClient(opts ClientOpts) *Client {
	c := Client{
		codeGeneratorURL: DefaultCodeGeneratorURL,
		baseURL:          DefaultSellerAPIBaseURL,
		session:          opts.Session,
	}
	if opts.CodeGeneratorURL != "" {
		c.codeGeneratorURL = opts.CodeGeneratorURL
	}
	if opts.BaseURL != "" {
		c.baseURL = opts.BaseURL
	}
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	c.httpClient = resty.New().
		SetDebug(false).
		SetBaseURL(c.baseURL).
		SetTimeout(timeout).
		SetHeaders(
			map[string]string{
				"Accept":     "application/json",
				"User-Agent": "telegram-tryon-bot",
			},
		)

	return &c
}

func (c *Client) req(ctx context.Context, result any) (*resty.Request, error) {
	if c.session == "" {
		return nil, ErrNoSession
	}
	request := c.httpClient.
		NewRequest().
		SetContext(ctx).
		SetHeader("Cookie", sessionCookieName+"="+c.session)

	if result != nil {
		request.SetResult(result)
	}

	return request, nil
}

// GenerateProductCode asks for a fresh product code. The response is
// returned as-is; callers decide what an unsuccessful code means.
func (c *Client) GenerateProductCode(ctx context.Context) (*ProductCodeResponse, error) {
	result := &ProductCodeResponse{}
	r, err := c.req(ctx, result)
	if err != nil {
		return nil, err
	}

	_, err = handleError(r.
		SetHeader("Content-Type", "application/json").
		ForceContentType("application/json").
		Post(c.codeGeneratorURL))
	if err != nil {
		return nil, fmt.Errorf("failed to generate product code: %w", err)
	}
	return result, nil
}

// UploadImage uploads one product image as multipart form data.
func (c *Client) UploadImage(ctx context.Context, upload UploadImageRequest) (*UploadImageResponse, error) {
	result := &UploadImageResponse{}
	r, err := c.req(ctx, result)
	if err != nil {
		return nil, err
	}

	contentType := upload.ContentType
	if contentType == "" {
		contentType = defaultImageContentType
	}

	_, err = handleError(r.
		SetMultipartFormData(map[string]string{
			"imageFileName": upload.FileName,
			"productCode":   upload.ProductCode,
			"active":        strconv.FormatBool(upload.Active),
		}).
		SetMultipartField("image", upload.FileName, contentType, bytes.NewReader(upload.Data)).
		Post(UploadImagePath))
	if err != nil {
		return nil, fmt.Errorf("failed to upload image %s: %w", upload.FileName, err)
	}
	return result, nil
}

// CreateProduct submits the assembled product document.
func (c *Client) CreateProduct(ctx context.Context, payload map[string]any) error {
	r, err := c.req(ctx, nil)
	if err != nil {
		return err
	}

	_, err = handleError(r.
		SetBody(payload).
		Post(CreateProductPath))
	if err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}
	return nil
}

// handleError is a generic error handler for non-2xx responses. Without this,
// failing responses would have nil error.
func handleError(res *resty.Response, err error) (*resty.Response, error) {
	if err != nil {
		return res, err
	}
	if !res.IsSuccess() {
		return res, fmt.Errorf("request failed: %s %s (status: %d)", res.Request.Method, res.Request.URL, res.StatusCode())
	}

	return res, nil
}
