package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/raine/telegram-tryon-bot/config"
	"github.com/raine/telegram-tryon-bot/internal/bot"
	"github.com/raine/telegram-tryon-bot/internal/catalog"
	"github.com/raine/telegram-tryon-bot/internal/generation"
	"github.com/raine/telegram-tryon-bot/internal/images"
	"github.com/raine/telegram-tryon-bot/internal/llm"
	"github.com/raine/telegram-tryon-bot/internal/product"
	"github.com/raine/telegram-tryon-bot/internal/storage"
)

const logFileName = "telegram-tryon-bot.log"

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	config.LoadEnvFile()

	if missing := config.CheckRequired(); len(missing) > 0 {
		if config.IsInteractiveTerminal() {
			if !config.RunSetupWizard() {
				config.WaitOnWindows()
				os.Exit(1)
			}
		} else {
			config.FatalWithWait("missing required config: %s", strings.Join(missing, ", "))
		}
	}

	// JOURNAL_STREAM is set by systemd. journald keeps the logs there and the
	// working directory may be read-only.
	if _, underSystemd := os.LookupEnv("JOURNAL_STREAM"); underSystemd {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	} else {
		logFile, err := os.OpenFile(logFileName, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
		if err != nil {
			config.FatalWithWait("failed to open log file: %v", err)
		}
		defer logFile.Close()

		consoleWriter := zerolog.ConsoleWriter{Out: os.Stderr}
		fileWriter := zerolog.ConsoleWriter{Out: logFile, NoColor: true}
		log.Logger = log.Output(io.MultiWriter(consoleWriter, fileWriter))
		log.Info().Str("logFile", logFileName).Msg("logging to file")
	}

	cfg, err := config.Load()
	if err != nil {
		config.FatalWithWait("%v", err)
	}

	tg, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		config.FatalWithWait("failed to initialize telegram bot: %v", err)
	}
	tg.Debug = false
	log.Info().Str("username", tg.Self.UserName).Msg("authorized on account")

	bot.RegisterCommands(tg)

	encryptionKey, err := storage.DeriveKey(cfg.TokenKey)
	if err != nil {
		config.FatalWithWait("failed to derive encryption key: %v", err)
	}
	store, err := storage.NewSQLiteStore(cfg.DBPath, encryptionKey)
	if err != nil {
		config.FatalWithWait("failed to initialize store: %v", err)
	}
	defer store.Close()
	log.Info().Str("dbPath", cfg.DBPath).Msg("store initialized")

	if err := bot.InitActivityLog(cfg.ActivityLogDir); err != nil {
		log.Warn().Err(err).Msg("failed to initialize activity log")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	services, err := buildServices(ctx, cfg, tg, store)
	if err != nil {
		config.FatalWithWait("%v", err)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return runBot(ctx, tg, store, cfg.AdminID, services)
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		log.Error().Err(err).Msg("shutdown with error")
	} else {
		log.Info().Msg("shutdown complete")
	}
}

func buildServices(ctx context.Context, cfg *config.Config, tg *tgbotapi.BotAPI, store *storage.SQLiteStore) (bot.Services, error) {
	resolver := images.NewRefResolver(
		images.NewImageDownloader().WithTimeout(cfg.HTTPTimeout),
		tg.GetFileDirectURL,
	)
	if cfg.MediaBucket != "" {
		publisher, err := images.NewS3Publisher(ctx, images.S3PublisherOpts{
			Endpoint:  cfg.MediaEndpoint,
			Region:    cfg.MediaRegion,
			Bucket:    cfg.MediaBucket,
			AccessKey: cfg.MediaAccessKey,
			SecretKey: cfg.MediaSecretKey,
		})
		if err != nil {
			return bot.Services{}, err
		}
		resolver.WithPublisher(publisher)
		log.Info().Str("bucket", cfg.MediaBucket).Msg("telegram photos are published through the media bucket")
	} else {
		log.Warn().Msg("MEDIA_S3_BUCKET not set, try-on and video work only with http(s) images")
	}

	services := bot.Services{
		Resolver: resolver,
		Generator: generation.NewClient(generation.ClientOpts{
			AvatarURL: cfg.AvatarAPIURL,
			VideoURL:  cfg.VideoAPIURL,
			Timeout:   cfg.HTTPTimeout,
		}),
		Catalog: func(session string) catalog.CatalogService {
			return catalog.NewClient(catalog.ClientOpts{
				CodeGeneratorURL: cfg.CodeGeneratorURL,
				BaseURL:          cfg.SellerAPIBaseURL,
				Session:          session,
				Timeout:          cfg.HTTPTimeout,
			})
		},
	}

	if cfg.TemplatePath != "" {
		tmpl, err := product.LoadTemplate(cfg.TemplatePath)
		if err != nil {
			return services, err
		}
		services.Template = tmpl
		log.Info().Str("path", cfg.TemplatePath).Msg("loaded product template")
	}

	if cfg.GeminiAPIKey != "" {
		gemini, err := llm.NewGeminiAnalyzer(ctx, cfg.GeminiAPIKey)
		if err != nil {
			return services, err
		}
		services.Analyzer = llm.NewCachedAnalyzer(gemini, store)
		log.Info().Msg("gemini analyzer initialized with cache")
	} else {
		log.Info().Msg("GEMINI_API_KEY not set, /suggest disabled")
	}

	if cfg.VideoAPIURL == "" {
		log.Info().Msg("VIDEO_API_URL not set, /video disabled")
	}
	return services, nil
}

func runBot(ctx context.Context, tg *tgbotapi.BotAPI, store storage.Store, adminID int64, services bot.Services) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := tg.GetUpdatesChan(updateConfig)

	b := bot.NewBot(tg, store, adminID, services)
	defer b.Shutdown()

	var wg sync.WaitGroup

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("stopping bot update loop")
			tg.StopReceivingUpdates()
			log.Info().Msg("waiting for active handlers to finish")
			wg.Wait()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				log.Warn().Msg("updates channel closed")
				wg.Wait()
				return nil
			}
			wg.Add(1)
			go func(u tgbotapi.Update) {
				defer wg.Done()
				b.HandleUpdate(ctx, u)
			}(update)
		}
	}
}
