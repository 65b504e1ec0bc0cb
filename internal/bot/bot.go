package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"github.com/raine/telegram-tryon-bot/internal/catalog"
	"github.com/raine/telegram-tryon-bot/internal/generation"
	"github.com/raine/telegram-tryon-bot/internal/images"
	"github.com/raine/telegram-tryon-bot/internal/llm"
	"github.com/raine/telegram-tryon-bot/internal/product"
	"github.com/raine/telegram-tryon-bot/internal/storage"
)

// Set at build time.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

// BotAPI defines the interface for Telegram bot API operations.
type BotAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
}

// Generator is the part of the generation client the bot uses.
type Generator interface {
	GenerateForAvatar(ctx context.Context, avatar images.AvatarOption, sourceURL string) generation.AvatarResult
	GenerateVideo(ctx context.Context, imageURLs []string, prompt string) (string, error)
	VideoEnabled() bool
}

// ImageResolver fetches image references and exposes them to remote services.
type ImageResolver interface {
	images.Resolver
	PublicURL(ctx context.Context, ref string) (string, error)
}

// CatalogFactory builds a catalog client for a seller session cookie.
type CatalogFactory func(session string) catalog.CatalogService

// Services are the collaborators of the bot. Zero fields get defaults in
// NewBot, except Analyzer which disables /suggest when nil.
type Services struct {
	Generator Generator
	Catalog   CatalogFactory
	Resolver  ImageResolver
	Analyzer  llm.Analyzer
	Template  *product.Template
}

// Bot is the main Telegram bot handler.
type Bot struct {
	tg      BotAPI
	state   BotState
	store   storage.Store
	adminID int64

	products *ProductHandler
}

// NewBot creates a new Bot instance.
func NewBot(tg BotAPI, store storage.Store, adminID int64, services Services) *Bot {
	if services.Resolver == nil {
		services.Resolver = images.NewRefResolver(images.NewImageDownloader(), tg.GetFileDirectURL)
	}
	if services.Generator == nil {
		services.Generator = generation.NewClient(generation.ClientOpts{})
	}
	if services.Catalog == nil {
		services.Catalog = func(session string) catalog.CatalogService {
			return catalog.NewClient(catalog.ClientOpts{Session: session})
		}
	}
	if services.Template == nil {
		services.Template = product.DefaultTemplate()
	}

	bot := &Bot{
		tg:      tg,
		store:   store,
		adminID: adminID,
	}
	bot.state = bot.NewBotState()
	bot.products = NewProductHandler(tg, store, services)
	return bot
}

// Shutdown stops all session workers.
func (b *Bot) Shutdown() {
	b.state.Shutdown()
}

// HandleUpdate dispatches an update to the user's session worker.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	b.dispatchUpdate(ctx, update, false)
}

// handleUpdateSync waits for the worker to process the update. Used in tests.
func (b *Bot) handleUpdateSync(ctx context.Context, update tgbotapi.Update) {
	b.dispatchUpdate(ctx, update, true)
}

func (b *Bot) dispatchUpdate(ctx context.Context, update tgbotapi.Update, sync bool) {
	var userId int64
	switch {
	case update.CallbackQuery != nil && update.CallbackQuery.From != nil:
		userId = update.CallbackQuery.From.ID
	case update.Message != nil && update.Message.From != nil:
		userId = update.Message.From.ID
	default:
		return
	}

	// Must run before getUserSession so random user ids never allocate a session
	if userId != b.adminID {
		allowed, err := b.store.IsUserAllowed(userId)
		if err != nil {
			log.Error().Err(err).Int64("userId", userId).Msg("whitelist check failed")
			return
		}
		if !allowed {
			return
		}
	}

	session := b.state.getUserSession(userId)
	send := session.Send
	if sync {
		send = session.SendSync
	}

	if update.CallbackQuery != nil {
		send(SessionMessage{Type: msgCallback, Ctx: ctx, CallbackQuery: update.CallbackQuery})
		return
	}

	log.Info().Int64("userId", userId).Str("text", update.Message.Text).Msg("got message")
	if len(update.Message.Photo) > 0 {
		send(SessionMessage{Type: msgPhoto, Ctx: ctx, Message: update.Message})
	} else {
		send(SessionMessage{Type: msgText, Ctx: ctx, Message: update.Message})
	}
}

// HandleSessionMessage implements MessageHandler. It runs on the session
// worker, so session state is accessed without locking.
func (b *Bot) HandleSessionMessage(ctx context.Context, session *UserSession, msg SessionMessage) {
	switch msg.Type {
	case msgCallback:
		b.handleCallbackQuery(ctx, session, msg.CallbackQuery)
	case msgPhoto:
		LogUser(session.userId, "photo %s", msg.Message.Caption)
		b.products.HandlePhoto(ctx, session, msg.Message)
	case msgText:
		LogUser(session.userId, "%s", redactSession(msg.Message.Text))
		b.handleCommand(ctx, session, msg.Message)
	case msgGenerationComplete:
		b.products.HandleGenerationComplete(session, msg.Generation)
	case msgSubmissionComplete:
		b.products.HandleSubmissionComplete(session, msg.Submission)
	case msgVideoComplete:
		b.products.HandleVideoComplete(session, msg.Video)
	default:
		log.Warn().Str("type", msg.Type).Msg("unknown session message type")
	}
}

func (b *Bot) handleCommand(ctx context.Context, session *UserSession, message *tgbotapi.Message) {
	command, args := parseCommand(message.Text)
	switch command {
	case "/start":
		session.reply(MsgStartPrompt)
	case "/session":
		b.handleSessionCommand(session, message, args)
	case "/logout":
		b.handleLogoutCommand(session)
	case "/name":
		b.products.HandleNameCommand(session, commandArgs(message.Text))
	case "/brand":
		b.products.HandleBrandCommand(session, commandArgs(message.Text))
	case "/photos":
		b.products.HandlePhotosCommand(session)
	case "/avatars":
		b.products.HandleAvatarsCommand(session, args)
	case "/avatar":
		b.products.HandleAvatarCommand(session, args)
	case "/suggest":
		b.products.HandleSuggestCommand(ctx, session)
	case "/video":
		b.products.HandleVideoCommand(ctx, session, commandArgs(message.Text))
	case "/submit":
		b.products.HandleSubmitCommand(ctx, session)
	case "/history":
		b.products.HandleHistoryCommand(session)
	case "/reset":
		session.reset()
		session.reply(MsgFormReset)
	case "/admin":
		b.handleAdminCommand(session, args)
	case "/version":
		session.reply(MsgVersionInfo, Version, BuildTime)
	default:
		session.reply(MsgStartPrompt)
	}
}

func (b *Bot) handleCallbackQuery(ctx context.Context, session *UserSession, query *tgbotapi.CallbackQuery) {
	// Remove the loading state of the button
	if _, err := b.tg.Request(tgbotapi.NewCallback(query.ID, "")); err != nil {
		log.Debug().Err(err).Msg("failed to answer callback")
	}
	LogUser(session.userId, "callback %s", query.Data)

	parts := strings.Split(query.Data, ":")
	switch {
	case len(parts) == 3 && parts[0] == "img" && parts[1] == "remove":
		b.products.HandleRemovePhoto(session, parts[2])
	case len(parts) == 3 && parts[0] == "img" && parts[1] == "tryon":
		b.products.HandleTryOnCallback(session, parts[2])
	case len(parts) == 3 && parts[0] == "avatar":
		b.products.HandleAvatarSelected(ctx, session, parts[1], parts[2])
	case len(parts) == 3 && parts[0] == "gen" && parts[1] == "remove":
		b.products.HandleRemoveGenerated(session, parts[2])
	default:
		log.Warn().Str("data", query.Data).Msg("unknown callback data")
	}
}

// --- Seller session commands ---

func (b *Bot) handleSessionCommand(session *UserSession, message *tgbotapi.Message, args []string) {
	if len(args) != 1 {
		session.reply(MsgSessionUsage)
		return
	}
	cookie := strings.TrimPrefix(args[0], "SESSION=")

	if err := b.store.SaveSellerSession(&storage.SellerSession{
		TelegramID: session.userId,
		Cookie:     cookie,
	}); err != nil {
		session.replyWithError(err)
		return
	}
	session.setSellerSession(cookie)

	// The cookie should not linger in the chat history
	if message.Chat != nil {
		if _, err := b.tg.Request(tgbotapi.NewDeleteMessage(message.Chat.ID, message.MessageID)); err != nil {
			log.Warn().Err(err).Msg("failed to delete session message")
		}
	}
	log.Info().Int64("userId", session.userId).Msg("seller session saved")
	session.reply(MsgSessionSaved)
}

func (b *Bot) handleLogoutCommand(session *UserSession) {
	if err := b.store.DeleteSellerSession(session.userId); err != nil {
		session.replyWithError(err)
		return
	}
	session.setSellerSession("")
	session.reply(MsgSessionLoggedOut)
}

// redactSession keeps session cookies out of the activity log.
func redactSession(text string) string {
	if command, _ := parseCommand(text); command == "/session" {
		return "/session [redacted]"
	}
	return text
}

// --- Admin commands ---

// handleAdminCommand handles /admin. The whitelist already let the user
// through; only the admin may run it.
func (b *Bot) handleAdminCommand(session *UserSession, args []string) {
	if session.userId != b.adminID {
		return
	}

	if len(args) < 2 || args[0] != "users" {
		session.reply(MsgAdminUsage)
		return
	}
	b.handleAdminUsersCommand(session, args[1], args[2:])
}

func (b *Bot) handleAdminUsersCommand(session *UserSession, action string, args []string) {
	switch action {
	case "add":
		if len(args) < 1 {
			session.reply(MsgAdminUserAddUsage)
			return
		}
		userID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			session.reply(MsgAdminUserInvalidID)
			return
		}
		if err := b.store.AddAllowedUser(userID, session.userId); err != nil {
			session.replyWithError(err)
			return
		}
		session.reply(MsgAdminUserAdded, userID)

	case "remove":
		if len(args) < 1 {
			session.reply(MsgAdminUserRemoveUsage)
			return
		}
		userID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			session.reply(MsgAdminUserInvalidID)
			return
		}
		if err := b.store.RemoveAllowedUser(userID); err != nil {
			session.replyWithError(err)
			return
		}
		session.reply(MsgAdminUserRemoved, userID)

	case "list":
		users, err := b.store.GetAllowedUsers()
		if err != nil {
			session.replyWithError(err)
			return
		}
		if len(users) == 0 {
			session.reply(MsgAdminNoUsers)
			return
		}
		var sb strings.Builder
		sb.WriteString(MsgAdminAllowedUsers)
		for _, u := range users {
			sb.WriteString(fmt.Sprintf("• `%d` (added %s)\n", u.TelegramID, u.AddedAt.Format("2006-01-02")))
		}
		session.reply("%s", sb.String())

	default:
		session.reply(MsgAdminUsage)
	}
}
