package bot

import (
	"fmt"
	"strings"

	"github.com/lithammer/dedent"
)

func formatReplyText(text string, a ...any) string {
	return fmt.Sprintf(strings.TrimSpace(dedent.Dedent(text)), a...)
}

// parseCommand splits "/cmd@botname a b" into "/cmd" and its arguments.
func parseCommand(s string) (string, []string) {
	parts := strings.Fields(s)
	if len(parts) == 0 {
		return "", nil
	}
	command, _, _ := strings.Cut(parts[0], "@")
	return command, parts[1:]
}

// commandArgs returns everything after the command word, spacing intact.
func commandArgs(s string) string {
	_, rest, _ := strings.Cut(strings.TrimSpace(s), " ")
	return strings.TrimSpace(rest)
}

// escapeMarkdown escapes special characters for Telegram Markdown V1
func escapeMarkdown(text string) string {
	r := strings.NewReplacer("*", "\\*", "_", "\\_", "`", "\\`", "[", "\\[")
	return r.Replace(text)
}

func pluralize(singular, plural string, count int) string {
	if count == 1 {
		return fmt.Sprintf("%d %s", count, singular)
	}
	return fmt.Sprintf("%d %s", count, plural)
}

func orNotSet(s string) string {
	if strings.TrimSpace(s) == "" {
		return MsgNotSet
	}
	return escapeMarkdown(s)
}
