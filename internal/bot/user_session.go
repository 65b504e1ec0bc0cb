package bot

import (
	"context"
	"fmt"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"github.com/raine/telegram-tryon-bot/internal/generation"
	"github.com/raine/telegram-tryon-bot/internal/images"
	"github.com/raine/telegram-tryon-bot/internal/submission"
)

// Session message types.
const (
	msgCallback           = "callback"
	msgPhoto              = "photo"
	msgText               = "text"
	msgGenerationComplete = "generation_complete"
	msgSubmissionComplete = "submission_complete"
	msgVideoComplete      = "video_complete"
)

// SessionMessage represents a message to be processed by the session worker.
type SessionMessage struct {
	Type string
	Ctx  context.Context
	Done chan struct{} // Closed when processing is complete (for synchronous dispatch)
	Text string

	// Only one is set, depending on Type
	Message       *tgbotapi.Message
	CallbackQuery *tgbotapi.CallbackQuery
	Generation    *GenerationResult
	Submission    *SubmissionOutcome
	Video         *VideoResult
}

// GenerationResult is posted back to the worker when an avatar try-on finishes.
type GenerationResult struct {
	GeneratedID string
	AvatarLabel string
	Result      generation.AvatarResult
}

// SubmissionOutcome is posted back to the worker when a submission finishes.
type SubmissionOutcome struct {
	ProductName  string
	Brand        string
	UploadedIDs  []string // Images that went into the submission
	GeneratedIDs []string
	Result       *submission.Result
	Err          error
}

// VideoResult is posted back to the worker when video generation finishes.
type VideoResult struct {
	URL string
	Err error
}

// MessageSender abstracts the ability to send Telegram messages.
type MessageSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// ProductForm is the product being put together by the merchant.
type ProductForm struct {
	Name   string
	Brand  string
	Images *images.Store
}

// MessageHandler processes session messages on the worker goroutine.
type MessageHandler interface {
	HandleSessionMessage(ctx context.Context, session *UserSession, msg SessionMessage)
}

// UserSession represents a user's session with the bot.
//
// Each session has a dedicated worker goroutine that processes messages
// sequentially. Handlers run on the worker and access the form without
// locks. Background work (try-on generation, submission, video) never
// touches the form; it posts its result back to the inbox instead.
type UserSession struct {
	userId int64
	sender MessageSender
	mu     sync.Mutex // Guards sellerSession and submitting for external callers

	inbox   chan SessionMessage
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	handler MessageHandler

	sellerSession string
	form          ProductForm
	avatars       *images.AvatarCatalog

	// Avatar id whose custom image is taken from the next photo
	pendingAvatarImage string
	submitting         bool
}

func newUserSession(userId int64, sender MessageSender) *UserSession {
	ctx, cancel := context.WithCancel(context.Background())
	return &UserSession{
		userId:  userId,
		sender:  sender,
		inbox:   make(chan SessionMessage, 10),
		ctx:     ctx,
		cancel:  cancel,
		form:    ProductForm{Images: images.NewStore()},
		avatars: images.NewAvatarCatalog(),
	}
}

// --- Thread-safe accessors ---

// IsLoggedIn returns true if the user has a seller session cookie.
func (s *UserSession) IsLoggedIn() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sellerSession != ""
}

// IsSubmitting returns true while a submission is running in the background.
func (s *UserSession) IsSubmitting() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.submitting
}

func (s *UserSession) setSellerSession(cookie string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sellerSession = cookie
}

func (s *UserSession) getSellerSession() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sellerSession
}

func (s *UserSession) setSubmitting(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submitting = v
}

// reset clears the product form. Custom avatar images are kept.
func (s *UserSession) reset() {
	log.Info().Int64("userId", s.userId).Msg("reset product form")
	s.form.Name = ""
	s.form.Brand = ""
	s.form.Images.Reset()
	s.pendingAvatarImage = ""
}

// clearSubmitted removes what a successful submission took from the form.
// Name and brand are kept when they were edited during the submission.
func (s *UserSession) clearSubmitted(out *SubmissionOutcome) {
	log.Info().Int64("userId", s.userId).
		Int("uploaded", len(out.UploadedIDs)).
		Int("generated", len(out.GeneratedIDs)).
		Msg("clear submitted product from form")
	if s.form.Name == out.ProductName {
		s.form.Name = ""
	}
	if s.form.Brand == out.Brand {
		s.form.Brand = ""
	}
	s.form.Images.Remove(out.UploadedIDs, out.GeneratedIDs)
}

func (s *UserSession) replyWithError(err error) tgbotapi.Message {
	log.Error().Stack().Err(err).Int64("userId", s.userId).Send()
	return s.reply(MsgUnexpectedErr, escapeMarkdown(err.Error()))
}

// sendTypingAction shows the "typing" indicator. It expires after ~5 seconds.
func (s *UserSession) sendTypingAction() {
	action := tgbotapi.NewChatAction(s.userId, tgbotapi.ChatTyping)
	// sendChatAction returns a boolean, not a Message
	if _, err := s.sender.Request(action); err != nil {
		log.Debug().Err(err).Int64("userId", s.userId).Msg("failed to send typing action")
	}
}

// startTypingLoop sends a typing action every 4 seconds until ctx is done.
func (s *UserSession) startTypingLoop(ctx context.Context) {
	s.sendTypingAction()

	ticker := time.NewTicker(4 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sendTypingAction()
		}
	}
}

func (s *UserSession) replyWithMessage(msg tgbotapi.MessageConfig) tgbotapi.Message {
	msg.ChatID = s.userId
	sent, err := s.sender.Send(msg)
	if err != nil {
		log.Error().Stack().
			Interface("msg", msg).
			Err(fmt.Errorf("failed to send reply message: %w", err)).Send()
	} else {
		LogBot(s.userId, "%s", msg.Text)
	}
	return sent
}

func (s *UserSession) reply(text string, a ...any) tgbotapi.Message {
	return s.replyWithMessage(tgbotapi.MessageConfig{
		Text:      formatReplyText(text, a...),
		ParseMode: tgbotapi.ModeMarkdown,
	})
}

// replyWithKeyboard sends a markdown reply with an inline keyboard.
func (s *UserSession) replyWithKeyboard(markup tgbotapi.InlineKeyboardMarkup, text string, a ...any) tgbotapi.Message {
	msg := tgbotapi.NewMessage(s.userId, formatReplyText(text, a...))
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.ReplyMarkup = markup
	return s.replyWithMessage(msg)
}

// --- Worker methods ---

// StartWorker starts the message processing goroutine. Set the handler first.
func (s *UserSession) StartWorker() {
	s.wg.Add(1)
	go s.runWorker()
}

// SetHandler sets the message handler for this session.
func (s *UserSession) SetHandler(handler MessageHandler) {
	s.handler = handler
}

func (s *UserSession) runWorker() {
	defer s.wg.Done()

	for {
		select {
		case <-s.ctx.Done():
			// Release synchronous senders still waiting on queued messages
			for {
				select {
				case msg := <-s.inbox:
					if msg.Done != nil {
						close(msg.Done)
					}
				default:
					return
				}
			}
		case msg := <-s.inbox:
			s.processMessage(msg)
		}
	}
}

func (s *UserSession) processMessage(msg SessionMessage) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Int64("userId", s.userId).
				Str("type", msg.Type).
				Interface("panic", r).
				Msg("recovered from panic in session worker")
		}
		if msg.Done != nil {
			close(msg.Done)
		}
	}()

	if s.handler == nil {
		log.Error().Int64("userId", s.userId).Msg("session handler not set")
		return
	}

	ctx := msg.Ctx
	if ctx == nil {
		ctx = s.ctx
	}
	s.handler.HandleSessionMessage(ctx, s, msg)
}

// Send queues a message for the worker without waiting for it.
func (s *UserSession) Send(msg SessionMessage) {
	// A stopped worker never drains the inbox
	if s.ctx.Err() != nil {
		if msg.Done != nil {
			close(msg.Done)
		}
		return
	}
	select {
	case s.inbox <- msg:
	case <-s.ctx.Done():
		if msg.Done != nil {
			close(msg.Done)
		}
	}
}

// SendSync queues a message and waits until the worker has processed it.
func (s *UserSession) SendSync(msg SessionMessage) {
	msg.Done = make(chan struct{})
	s.Send(msg)
	<-msg.Done
}

// Stop stops the worker and waits for it to finish.
func (s *UserSession) Stop() {
	s.cancel()
	s.wg.Wait()
}
