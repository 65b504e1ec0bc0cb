package submission

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/raine/telegram-tryon-bot/internal/catalog"
	"github.com/raine/telegram-tryon-bot/internal/images"
	"github.com/raine/telegram-tryon-bot/internal/product"
)

// Stage names the step of a submission.
type Stage string

const (
	StageValidate Stage = "validate"
	StageCode     Stage = "code"
	StageUpload   Stage = "upload"
	StageAssemble Stage = "assemble"
	StageCreate   Stage = "create"
	StageDone     Stage = "done"
)

var (
	ErrCodeGeneration = errors.New("code generation failed")
	ErrNoImages       = errors.New("at least one image is required")
)

// StageError is returned when a stage fails. Later stages never ran.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// FailedStage returns the stage err failed at, or "" when err is not a
// StageError.
func FailedStage(err error) Stage {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return ""
}

// UploadResult is one uploaded image.
type UploadResult struct {
	LocationPath string
	Sequence     int
}

// Request is what the merchant submits.
type Request struct {
	Name  string
	Brand string
	// Image references in submission order, see CombinedImages.
	Images []string
}

// Result describes a completed submission.
type Result struct {
	ProductCode string
	Uploads     []UploadResult
	Payload     map[string]any
}

// Attempt is recorded for every submission that reached the network, whether
// it succeeded or not. Uploaded paths of failed attempts are orphans on the
// seller side since nothing is rolled back.
type Attempt struct {
	ProductCode   string
	Stage         Stage
	UploadedPaths []string
	Err           error
}

// Ledger records submission attempts.
type Ledger interface {
	RecordAttempt(ctx context.Context, attempt Attempt) error
}

// CombinedImages returns the references to submit: all uploaded images in
// order, then every generated image with a resolved url in order. Pending
// generations are left out.
func CombinedImages(store *images.Store) []string {
	var refs []string
	for _, img := range store.Uploaded() {
		refs = append(refs, img.URL)
	}
	for _, img := range store.ResolvedGenerated() {
		refs = append(refs, img.URL)
	}
	return refs
}

// Coordinator runs the submission pipeline: product code, image uploads,
// payload assembly and product creation. Any failure aborts the remaining
// stages.
type Coordinator struct {
	catalog  catalog.CatalogService
	resolver images.Resolver
	template *product.Template
	ledger   Ledger
}

func NewCoordinator(svc catalog.CatalogService, resolver images.Resolver, tmpl *product.Template) *Coordinator {
	if tmpl == nil {
		tmpl = product.DefaultTemplate()
	}
	return &Coordinator{catalog: svc, resolver: resolver, template: tmpl}
}

// WithLedger sets where attempts are recorded.
func (c *Coordinator) WithLedger(l Ledger) *Coordinator {
	c.ledger = l
	return c
}

// Submit runs the pipeline. Returned errors other than validation errors are
// *StageError.
func (c *Coordinator) Submit(ctx context.Context, req Request) (*Result, error) {
	fields := product.Fields{Name: req.Name, Brand: req.Brand}
	if err := fields.Validate(); err != nil {
		return nil, &StageError{Stage: StageValidate, Err: err}
	}
	if len(req.Images) == 0 {
		return nil, &StageError{Stage: StageValidate, Err: ErrNoImages}
	}

	attempt := Attempt{Stage: StageCode}
	defer func() { c.record(ctx, attempt) }()

	fail := func(stage Stage, err error) (*Result, error) {
		attempt.Stage = stage
		attempt.Err = err
		log.Error().Err(err).Str("stage", string(stage)).Str("productCode", attempt.ProductCode).Msg("submission failed")
		return nil, &StageError{Stage: stage, Err: err}
	}

	code, err := c.acquireCode(ctx)
	if err != nil {
		return fail(StageCode, err)
	}
	attempt.ProductCode = code
	fields.ProductCode = code
	log.Info().Str("productCode", code).Int("images", len(req.Images)).Msg("got product code, uploading images")

	uploads, err := c.uploadImages(ctx, code, req.Images)
	for _, u := range uploads {
		if u.LocationPath != "" {
			attempt.UploadedPaths = append(attempt.UploadedPaths, u.LocationPath)
		}
	}
	if err != nil {
		return fail(StageUpload, err)
	}

	imgs := make([]product.Image, len(uploads))
	for i, u := range uploads {
		imgs[i] = product.Image{Sequence: u.Sequence, LocationPath: u.LocationPath}
	}
	payload, err := product.Assemble(c.template, fields, imgs)
	if err != nil {
		return fail(StageAssemble, err)
	}

	if err := c.catalog.CreateProduct(ctx, payload); err != nil {
		return fail(StageCreate, err)
	}

	attempt.Stage = StageDone
	log.Info().Str("productCode", code).Int("images", len(uploads)).Msg("product created")
	return &Result{ProductCode: code, Uploads: uploads, Payload: payload}, nil
}

func (c *Coordinator) acquireCode(ctx context.Context) (string, error) {
	res, err := c.catalog.GenerateProductCode(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrCodeGeneration, err)
	}
	if res == nil || !res.Success || res.Value == "" {
		return "", ErrCodeGeneration
	}
	return res.Value, nil
}

// uploadImages uploads all images concurrently. Results are indexed by
// position so completion order does not matter. On failure the returned
// slice still holds the uploads that did succeed.
func (c *Coordinator) uploadImages(ctx context.Context, code string, refs []string) ([]UploadResult, error) {
	results := make([]UploadResult, len(refs))
	g, ctx := errgroup.WithContext(ctx)
	for i := range refs {
		i := i
		g.Go(func() error {
			blob, err := c.resolver.Fetch(ctx, refs[i])
			if err != nil {
				log.Error().Err(err).Int("sequence", i).Msg("failed to fetch image")
				return fmt.Errorf("image %d: %w", i+1, err)
			}

			fileName := FileName(code, i, blob.ContentType)
			res, err := c.catalog.UploadImage(ctx, catalog.UploadImageRequest{
				FileName:    fileName,
				ProductCode: code,
				Data:        blob.Data,
				ContentType: blob.ContentType,
				Active:      false,
			})
			if err != nil {
				log.Error().Err(err).Str("fileName", fileName).Msg("failed to upload image")
				return fmt.Errorf("image %d: %w", i+1, err)
			}

			results[i] = UploadResult{
				LocationPath: storagePath(code, fileName, res),
				Sequence:     i,
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

// FileName returns the upload file name of the image at 0-based position i.
func FileName(code string, i int, contentType string) string {
	return fmt.Sprintf("%s/image_%d.%s", code, i+1, images.ExtensionFor(contentType))
}

// storagePath prefers the path returned by the server and otherwise derives
// one from the product code and file name.
func storagePath(code, fileName string, res *catalog.UploadImageResponse) string {
	if res != nil && res.Path != "" {
		return res.Path
	}
	if res == nil || res.FileName == "" {
		return fileName
	}
	if strings.HasPrefix(res.FileName, code+"/") {
		return res.FileName
	}
	return code + "/" + path.Base(res.FileName)
}

func (c *Coordinator) record(ctx context.Context, attempt Attempt) {
	if c.ledger == nil {
		return
	}
	if err := c.ledger.RecordAttempt(context.WithoutCancel(ctx), attempt); err != nil {
		log.Error().Err(err).Str("productCode", attempt.ProductCode).Msg("failed to record submission attempt")
	}
}
