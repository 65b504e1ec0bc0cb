package config

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
)

// Base urls of the services the wizard validates against.
var (
	telegramAPIURL = "https://api.telegram.org"
	geminiAPIURL   = "https://generativelanguage.googleapis.com"
)

var validationClient = resty.New().SetTimeout(10 * time.Second)

// RunSetupWizard asks for the required configuration, writes it to the env
// file and sets it in the current process. Returns false when the user
// aborted or the file could not be written.
func RunSetupWizard() bool {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("99")).
		MarginBottom(1)

	fmt.Println()
	fmt.Println(titleStyle.Render("👕 Telegram Try-On Bot - First-time Setup"))
	fmt.Println()

	var botToken, adminID, geminiKey string

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Telegram Bot Token").
				Description("Message @BotFather on Telegram → /newbot → copy token").
				Value(&botToken).
				Validate(func(s string) error {
					if s == "" {
						return errors.New("token is required")
					}
					return validateTelegramToken(s)
				}),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Your Telegram User ID").
				Description("Message @userinfobot to get your ID: https://t.me/userinfobot").
				Value(&adminID).
				Validate(validateAdminID),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Gemini API Key (optional)").
				Description("Enables /suggest. Get one at https://aistudio.google.com/apikey").
				Value(&geminiKey).
				Validate(func(s string) error {
					if s == "" {
						return nil
					}
					return validateGeminiKey(s)
				}),
		),
	).WithTheme(huh.ThemeBase16())

	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			fmt.Println("\nSetup cancelled.")
			return false
		}
		fmt.Printf("\nError: %v\n", err)
		return false
	}

	values := map[string]string{
		"BOT_TOKEN":         botToken,
		"ADMIN_TELEGRAM_ID": adminID,
		"TRYON_TOKEN_KEY":   generateTokenKey(),
		"GEMINI_API_KEY":    geminiKey,
	}

	path, err := EnvFilePath()
	if err == nil {
		err = WriteEnvFile(path, values)
	}
	if err != nil {
		fmt.Printf("\nError saving configuration: %v\n", err)
		WaitOnWindows()
		return false
	}

	for k, v := range values {
		if v != "" {
			os.Setenv(k, v)
		}
	}

	successStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("42")).
		Bold(true)
	pathStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("245"))

	fmt.Println()
	fmt.Println(successStyle.Render("✓ Configuration saved"))
	fmt.Println(pathStyle.Render("  " + path))
	fmt.Println()
	fmt.Println("Starting bot...")
	fmt.Println()
	return true
}

func generateTokenKey() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("tryon-%d", time.Now().UnixNano())
	}
	return base64.URLEncoding.EncodeToString(b)
}

func validateAdminID(s string) error {
	if s == "" {
		return errors.New("user ID is required")
	}
	if _, err := strconv.ParseInt(s, 10, 64); err != nil {
		return errors.New("must be a number")
	}
	return nil
}

// validateTelegramToken calls getMe with the token.
func validateTelegramToken(token string) error {
	var result struct {
		OK          bool   `json:"ok"`
		Description string `json:"description,omitempty"`
	}
	_, err := validationClient.R().
		SetResult(&result).
		SetError(&result).
		Get(fmt.Sprintf("%s/bot%s/getMe", telegramAPIURL, token))
	if err != nil {
		return errors.New("connection failed - check your internet")
	}
	if !result.OK {
		if result.Description != "" {
			return errors.New(result.Description)
		}
		return errors.New("token rejected by Telegram")
	}
	return nil
}

// validateGeminiKey lists models with the key, which is cheap and needs a
// valid key.
func validateGeminiKey(key string) error {
	var apiErr struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	res, err := validationClient.R().
		SetQueryParam("key", key).
		SetError(&apiErr).
		Get(geminiAPIURL + "/v1beta/models")
	if err != nil {
		return errors.New("connection failed - check your internet")
	}

	switch code := res.StatusCode(); {
	case code == 400 || code == 401 || code == 403:
		if apiErr.Error.Message != "" {
			return errors.New(apiErr.Error.Message)
		}
		return fmt.Errorf("API key rejected (HTTP %d)", code)
	case code != 200:
		return fmt.Errorf("unexpected response (HTTP %d)", code)
	}
	return nil
}

// WaitOnWindows pauses so users can read errors before the console closes.
func WaitOnWindows() {
	if runtime.GOOS == "windows" {
		fmt.Println()
		fmt.Println("Press Enter to exit...")
		fmt.Scanln()
	}
}

// FatalWithWait logs an error and exits, pausing on Windows first.
func FatalWithWait(format string, args ...any) {
	log.Error().Msg(fmt.Sprintf(format, args...))
	WaitOnWindows()
	os.Exit(1)
}
