package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"github.com/raine/telegram-tryon-bot/internal/generation"
	"github.com/raine/telegram-tryon-bot/internal/images"
	"github.com/raine/telegram-tryon-bot/internal/llm"
	"github.com/raine/telegram-tryon-bot/internal/product"
	"github.com/raine/telegram-tryon-bot/internal/storage"
	"github.com/raine/telegram-tryon-bot/internal/submission"
)

const (
	historyLimit  = 10
	avatarsPerRow = 3
)

// ProductHandler handles the product form: photos, avatar try-ons, the
// listing assistant, video generation and submission.
type ProductHandler struct {
	tg         BotAPI
	store      storage.Store
	generator  Generator
	catalogFor CatalogFactory
	resolver   ImageResolver
	analyzer   llm.Analyzer
	template   *product.Template
}

// NewProductHandler creates a product handler. services must be complete.
func NewProductHandler(tg BotAPI, store storage.Store, services Services) *ProductHandler {
	return &ProductHandler{
		tg:         tg,
		store:      store,
		generator:  services.Generator,
		catalogFor: services.Catalog,
		resolver:   services.Resolver,
		analyzer:   services.Analyzer,
		template:   services.Template,
	}
}

// --- Fields ---

func (h *ProductHandler) HandleNameCommand(session *UserSession, name string) {
	if name == "" {
		session.reply(MsgNameUsage)
		return
	}
	session.form.Name = name
	session.reply(MsgNameSet, escapeMarkdown(name))
}

func (h *ProductHandler) HandleBrandCommand(session *UserSession, brand string) {
	if brand == "" {
		session.reply(MsgBrandUsage)
		return
	}
	session.form.Brand = brand
	session.reply(MsgBrandSet, escapeMarkdown(brand))
}

// --- Photos ---

// HandlePhoto adds the largest size of a photo to the form. When /avatar is
// waiting for an image, the photo becomes that avatar's image instead.
func (h *ProductHandler) HandlePhoto(ctx context.Context, session *UserSession, message *tgbotapi.Message) {
	largest := message.Photo[len(message.Photo)-1]
	ref := images.TelegramRef(largest.FileID)

	if avatarID := session.pendingAvatarImage; avatarID != "" {
		session.pendingAvatarImage = ""
		if !session.avatars.SetCustomImage(avatarID, ref) {
			session.reply(MsgAvatarNotFound, escapeMarkdown(avatarID))
			return
		}
		avatar, _ := session.avatars.Get(avatarID)
		session.reply(MsgAvatarImageSet, escapeMarkdown(avatar.Label))
		return
	}

	added := session.form.Images.AddUploaded(ref)
	if len(added) == 0 {
		session.reply(MsgPhotoLimitReached, images.MaxUploadedImages)
		return
	}

	n := len(session.form.Images.Uploaded())
	session.replyWithKeyboard(
		tgbotapi.NewInlineKeyboardMarkup(uploadedImageRow(n, added[0].ID)),
		MsgPhotoAdded, n, pluralize("photo", "photos", session.form.Images.Remaining()),
	)
}

// HandlePhotosCommand shows the form with buttons for every image.
func (h *ProductHandler) HandlePhotosCommand(session *UserSession) {
	store := session.form.Images
	uploaded := store.Uploaded()
	generated := store.Generated()
	pending := store.PendingCount()

	summary := formatReplyText(MsgFormSummary,
		orNotSet(session.form.Name),
		orNotSet(session.form.Brand),
		len(uploaded), images.MaxUploadedImages,
		len(generated)-pending, pending,
	)
	if len(uploaded) == 0 && len(generated) == 0 {
		session.reply("%s\n\n%s", summary, MsgNoPhotos)
		return
	}

	var rows [][]tgbotapi.InlineKeyboardButton
	for i, img := range uploaded {
		rows = append(rows, uploadedImageRow(i+1, img.ID))
	}
	for i, img := range generated {
		rows = append(rows, generatedImageRow(i+1, img.ID))
	}
	session.replyWithKeyboard(tgbotapi.NewInlineKeyboardMarkup(rows...), "%s", summary)
}

func (h *ProductHandler) HandleRemovePhoto(session *UserSession, imageID string) {
	if !session.form.Images.RemoveUploaded(imageID) {
		session.reply(MsgPhotoNotFound)
		return
	}
	session.reply(MsgPhotoRemoved)
}

// HandleRemoveGenerated removes a generated image. A try-on still in
// progress is dropped and its result discarded when it arrives.
func (h *ProductHandler) HandleRemoveGenerated(session *UserSession, generatedID string) {
	if !session.form.Images.RemoveGenerated(generatedID) {
		session.reply(MsgPhotoNotFound)
		return
	}
	session.reply(MsgGeneratedRemoved)
}

func uploadedImageRow(n int, id string) []tgbotapi.InlineKeyboardButton {
	return tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf(BtnRemove, n), "img:remove:"+id),
		tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf(BtnTryOn, n), "img:tryon:"+id),
	)
}

func generatedImageRow(n int, id string) []tgbotapi.InlineKeyboardButton {
	return tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf(BtnRemoveGenerated, n), "gen:remove:"+id),
	)
}

// --- Avatars ---

// HandleAvatarsCommand lists avatars grouped by section, or the avatars of
// one section with /avatars upper.
func (h *ProductHandler) HandleAvatarsCommand(session *UserSession, args []string) {
	sections := images.Sections
	if len(args) > 0 {
		section, ok := images.ParseSection(strings.ToLower(args[0]))
		if len(args) > 1 || !ok {
			session.reply(MsgAvatarsUsage)
			return
		}
		sections = []images.Section{section}
	}

	var sb strings.Builder
	sb.WriteString(MsgAvatarsHeader)
	for _, section := range sections {
		avatars := session.avatars.BySection(section)
		if len(avatars) == 0 {
			continue
		}
		sb.WriteString(fmt.Sprintf(MsgAvatarsSection, section))
		for _, avatar := range avatars {
			sb.WriteString(fmt.Sprintf("• `%s` %s", avatar.ID, escapeMarkdown(avatar.Label)))
			if session.avatars.HasCustomImage(avatar.ID) {
				sb.WriteString(" 📷")
			}
			sb.WriteString("\n")
		}
	}
	session.reply("%s", sb.String())
}

// HandleAvatarCommand makes the next photo the image of an avatar.
func (h *ProductHandler) HandleAvatarCommand(session *UserSession, args []string) {
	if len(args) != 1 {
		session.reply(MsgAvatarUsage)
		return
	}
	avatar, ok := session.avatars.Get(args[0])
	if !ok {
		session.reply(MsgAvatarNotFound, escapeMarkdown(args[0]))
		return
	}
	session.pendingAvatarImage = avatar.ID
	session.reply(MsgAvatarSendPhoto, escapeMarkdown(avatar.Label))
}

// HandleTryOnCallback shows the avatar picker for an uploaded image.
func (h *ProductHandler) HandleTryOnCallback(session *UserSession, imageID string) {
	if _, ok := session.form.Images.UploadedByID(imageID); !ok {
		session.reply(MsgPhotoNotFound)
		return
	}

	// One row per section, split when a section has many avatars
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, section := range images.Sections {
		var row []tgbotapi.InlineKeyboardButton
		for _, avatar := range session.avatars.BySection(section) {
			if len(row) == avatarsPerRow {
				rows = append(rows, row)
				row = nil
			}
			row = append(row, tgbotapi.NewInlineKeyboardButtonData(avatar.Label, "avatar:"+imageID+":"+avatar.ID))
		}
		if len(row) > 0 {
			rows = append(rows, row)
		}
	}
	session.replyWithKeyboard(tgbotapi.NewInlineKeyboardMarkup(rows...), MsgChooseAvatar)
}

// HandleAvatarSelected starts a try-on in the background. The pending image
// is added right away; the result comes back as a generation_complete
// message so only the worker touches the form.
func (h *ProductHandler) HandleAvatarSelected(ctx context.Context, session *UserSession, imageID, avatarID string) {
	img, ok := session.form.Images.UploadedByID(imageID)
	if !ok {
		session.reply(MsgPhotoNotFound)
		return
	}
	avatar, ok := session.avatars.Get(avatarID)
	if !ok {
		session.reply(MsgAvatarNotFound, escapeMarkdown(avatarID))
		return
	}

	sourceURL, err := h.resolver.PublicURL(ctx, img.URL)
	if err != nil {
		log.Error().Err(err).Str("imageId", img.ID).Msg("no public url for try-on source")
		session.reply(MsgGenerationUnavailable)
		return
	}
	avatarURL, err := h.resolver.PublicURL(ctx, avatar.Image)
	if err != nil {
		log.Error().Err(err).Str("avatar", avatar.ID).Msg("no public url for avatar image")
		session.reply(MsgAvatarImageUnavailable, escapeMarkdown(avatar.Label))
		return
	}
	avatar.Image = avatarURL

	gen, ok := session.form.Images.BeginGeneration(imageID)
	if !ok {
		session.reply(MsgPhotoNotFound)
		return
	}
	session.reply(MsgGenerationStarted, escapeMarkdown(avatar.Label))
	LogAPI(session.userId, "try-on %s with avatar %s", gen.ID, avatar.ID)

	go func() {
		res := h.generator.GenerateForAvatar(ctx, avatar, sourceURL)
		session.Send(SessionMessage{
			Type: msgGenerationComplete,
			Ctx:  ctx,
			Generation: &GenerationResult{
				GeneratedID: gen.ID,
				AvatarLabel: avatar.Label,
				Result:      res,
			},
		})
	}()
}

// HandleGenerationComplete stores a try-on result unless the pending image
// was removed in the meantime.
func (h *ProductHandler) HandleGenerationComplete(session *UserSession, res *GenerationResult) {
	fallback := generation.IsFallback(res.Result)
	if !session.form.Images.ResolveGeneration(res.GeneratedID, res.Result.ImageURL(), fallback) {
		log.Info().Str("id", res.GeneratedID).Msg("discarding try-on result for removed image")
		return
	}

	markup := tgbotapi.NewInlineKeyboardMarkup(generatedImageRow(generatedIndex(session.form.Images, res.GeneratedID), res.GeneratedID))
	label := escapeMarkdown(res.AvatarLabel)

	if fb, ok := res.Result.(generation.Fallback); ok {
		log.Warn().Str("reason", fb.Reason).Str("id", res.GeneratedID).Msg("try-on fell back to placeholder")
		LogAPI(session.userId, "try-on %s failed: %s", res.GeneratedID, fb.Reason)
		session.replyWithKeyboard(markup, MsgGenerationFallback, label)
		return
	}

	photo := tgbotapi.NewPhoto(session.userId, tgbotapi.FileURL(res.Result.ImageURL()))
	photo.Caption = formatReplyText(MsgGenerationReady, label)
	photo.ParseMode = tgbotapi.ModeMarkdown
	photo.ReplyMarkup = markup
	if _, err := h.tg.Send(photo); err != nil {
		log.Warn().Err(err).Msg("failed to send try-on photo")
		session.replyWithKeyboard(markup, MsgGenerationReady, label)
	}
}

func generatedIndex(store *images.Store, id string) int {
	for i, img := range store.Generated() {
		if img.ID == id {
			return i + 1
		}
	}
	return 0
}

// --- Listing assistant ---

// HandleSuggestCommand fills empty name and brand fields from the first photo.
func (h *ProductHandler) HandleSuggestCommand(ctx context.Context, session *UserSession) {
	if h.analyzer == nil {
		session.reply(MsgSuggestUnavailable)
		return
	}
	uploaded := session.form.Images.Uploaded()
	if len(uploaded) == 0 {
		session.reply(MsgSuggestNeedsPhoto)
		return
	}

	typingCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go session.startTypingLoop(typingCtx)

	blob, err := h.resolver.Fetch(ctx, uploaded[0].URL)
	if err != nil {
		session.replyWithError(err)
		return
	}
	res, err := h.analyzer.SuggestProduct(ctx, blob.Data, blob.ContentType)
	if err != nil {
		log.Error().Err(err).Msg("product suggestion failed")
		session.reply(MsgSuggestFailed, escapeMarkdown(err.Error()))
		return
	}
	if res == nil || res.Suggestion == nil {
		session.reply(MsgSuggestFailed, "empty response")
		return
	}

	s := res.Suggestion
	if session.form.Name == "" {
		session.form.Name = s.Name
	}
	if session.form.Brand == "" && s.Brand != "" {
		session.form.Brand = s.Brand
	}
	session.reply(MsgSuggestion, orNotSet(s.Name), orNotSet(s.Brand), escapeMarkdown(s.Description))
}

// --- Video ---

// HandleVideoCommand generates a video from the selected images, e.g.
// "/video 1,3,g1 slow pan" or "/video all". Numbers are the ones /photos
// shows. Without a prompt, one is suggested from the name and brand when
// possible.
func (h *ProductHandler) HandleVideoCommand(ctx context.Context, session *UserSession, args string) {
	if !h.generator.VideoEnabled() {
		session.reply(MsgVideoDisabled)
		return
	}
	store := session.form.Images
	if len(store.Uploaded()) == 0 && len(store.ResolvedGenerated()) == 0 {
		session.reply(MsgVideoNoImages)
		return
	}

	selectionArg, prompt, _ := strings.Cut(args, " ")
	prompt = strings.TrimSpace(prompt)
	selected, err := selectImages(store, selectionArg)
	if err != nil {
		var selErr *selectionError
		switch {
		case errors.As(err, &selErr) && selErr.pending:
			session.reply(MsgVideoImagePending, escapeMarkdown(selErr.label))
		case errors.As(err, &selErr):
			session.reply(MsgVideoUnknownImage, escapeMarkdown(selErr.label))
		default:
			session.reply(MsgVideoUsage)
		}
		return
	}

	urls := make([]string, 0, len(selected))
	for _, img := range selected {
		u, err := h.resolver.PublicURL(ctx, img.ref)
		if err != nil {
			log.Error().Err(err).Str("image", img.label).Msg("no public url for video image")
			session.reply(MsgVideoImageUnavailable, escapeMarkdown(img.label))
			return
		}
		urls = append(urls, u)
	}

	if strings.TrimSpace(prompt) == "" && h.analyzer != nil && session.form.Name != "" {
		suggested, err := h.analyzer.SuggestVideoPrompt(ctx, session.form.Name, session.form.Brand)
		if err != nil {
			log.Warn().Err(err).Msg("video prompt suggestion failed")
		} else {
			prompt = suggested
			session.reply(MsgVideoPromptUsed, escapeMarkdown(prompt))
		}
	}

	if err := generation.ValidateVideoRequest(urls, prompt); err != nil {
		if errors.Is(err, generation.ErrEmptyPrompt) {
			session.reply(MsgVideoNoPrompt)
		} else {
			session.reply(MsgVideoNoImages)
		}
		return
	}

	session.reply(MsgVideoStarted, pluralize("image", "images", len(urls)))
	LogAPI(session.userId, "video from %d images", len(urls))

	go func() {
		videoURL, err := h.generator.GenerateVideo(ctx, urls, prompt)
		session.Send(SessionMessage{
			Type:  msgVideoComplete,
			Ctx:   ctx,
			Video: &VideoResult{URL: videoURL, Err: err},
		})
	}()
}

func (h *ProductHandler) HandleVideoComplete(session *UserSession, res *VideoResult) {
	if res.Err != nil {
		log.Error().Err(res.Err).Int64("userId", session.userId).Msg("video generation failed")
		session.reply(MsgVideoFailed, escapeMarkdown(res.Err.Error()))
		return
	}
	session.reply(MsgVideoReady, escapeMarkdown(res.URL))
}

// --- Submission ---

// HandleSubmitCommand validates the form and runs the submission in the
// background. Pending try-ons are not waited for.
func (h *ProductHandler) HandleSubmitCommand(ctx context.Context, session *UserSession) {
	if session.IsSubmitting() {
		session.reply(MsgSubmitInProgress)
		return
	}
	cookie := session.getSellerSession()
	if cookie == "" {
		session.reply(MsgSessionRequired)
		return
	}

	fields := product.Fields{Name: session.form.Name, Brand: session.form.Brand}
	if err := fields.Validate(); err != nil {
		session.reply(MsgSubmitInvalid, err)
		return
	}
	uploaded := session.form.Images.Uploaded()
	generated := session.form.Images.ResolvedGenerated()
	refs := submission.CombinedImages(session.form.Images)
	if len(refs) == 0 {
		session.reply(MsgSubmitInvalid, submission.ErrNoImages)
		return
	}

	coordinator := submission.NewCoordinator(h.catalogFor(cookie), h.resolver, h.template)
	if h.store != nil {
		coordinator.WithLedger(&submissionLedger{
			store:       h.store,
			telegramID:  session.userId,
			productName: fields.Name,
		})
	}
	req := submission.Request{Name: fields.Name, Brand: fields.Brand, Images: refs}

	session.setSubmitting(true)
	session.reply(MsgSubmitStarted, escapeMarkdown(fields.Name), pluralize("image", "images", len(refs)))
	if pending := session.form.Images.PendingCount(); pending > 0 {
		session.reply(MsgSubmitPendingNote, pluralize("try-on", "try-ons", pending))
	}

	go func() {
		res, err := coordinator.Submit(ctx, req)
		session.Send(SessionMessage{
			Type: msgSubmissionComplete,
			Ctx:  ctx,
			Submission: &SubmissionOutcome{
				ProductName:  fields.Name,
				Brand:        fields.Brand,
				UploadedIDs:  uploadedIDs(uploaded),
				GeneratedIDs: generatedIDs(generated),
				Result:       res,
				Err:          err,
			},
		})
	}()
}

// HandleSubmissionComplete reports the outcome. On success the submitted
// images are removed from the form; photos and try-ons added while the
// submission ran stay. A failed submission leaves the form as is for a retry.
func (h *ProductHandler) HandleSubmissionComplete(session *UserSession, out *SubmissionOutcome) {
	session.setSubmitting(false)

	if out.Err != nil {
		stage := submission.FailedStage(out.Err)
		if stage == "" {
			stage = submission.StageValidate
		}
		cause := out.Err
		var se *submission.StageError
		if errors.As(out.Err, &se) {
			cause = se.Err
		}
		session.reply(MsgSubmitFailed, stage, escapeMarkdown(cause.Error()))
		return
	}

	session.reply(MsgSubmitSucceeded, out.Result.ProductCode, pluralize("image", "images", len(out.Result.Uploads)))
	session.clearSubmitted(out)
}

// HandleHistoryCommand lists the latest submission attempts.
func (h *ProductHandler) HandleHistoryCommand(session *UserSession) {
	records, err := h.store.ListSubmissions(session.userId, historyLimit)
	if err != nil {
		session.replyWithError(err)
		return
	}
	if len(records) == 0 {
		session.reply(MsgHistoryEmpty)
		return
	}

	var sb strings.Builder
	sb.WriteString(MsgHistoryHeader)
	for _, rec := range records {
		code := rec.ProductCode
		if code == "" {
			code = "-"
		}
		icon := "✅"
		if rec.Status != storage.SubmissionSucceeded {
			icon = "❌"
		}
		sb.WriteString(fmt.Sprintf("%s *%s* `%s` %s\n", icon, escapeMarkdown(rec.ProductName), code, rec.CreatedAt.Format("2006-01-02 15:04")))
		if rec.Status == storage.SubmissionFailed {
			sb.WriteString(fmt.Sprintf("  failed at %s: %s\n", rec.Stage, escapeMarkdown(rec.Error)))
			if len(rec.UploadedPaths) > 0 {
				sb.WriteString(fmt.Sprintf(MsgHistoryOrphanPaths, pluralize("image", "images", len(rec.UploadedPaths))))
				sb.WriteString("\n")
			}
		}
	}
	session.reply("%s", sb.String())
}
