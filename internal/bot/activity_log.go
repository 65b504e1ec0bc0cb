package bot

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Per-user activity logs, one file per Telegram user. Disabled until
// InitActivityLog is called.
var (
	activityLogMu  sync.Mutex
	activityLogDir string
)

// InitActivityLog enables activity logging into dir.
func InitActivityLog(dir string) error {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	activityLogMu.Lock()
	activityLogDir = dir
	activityLogMu.Unlock()
	return nil
}

func activityLogPath(dir string, userID int64) string {
	return filepath.Join(dir, fmt.Sprintf("activity_%d.log", userID))
}

func appendLog(userID int64, prefix, msg string) {
	activityLogMu.Lock()
	defer activityLogMu.Unlock()
	if activityLogDir == "" {
		return
	}

	f, err := os.OpenFile(activityLogPath(activityLogDir, userID), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		log.Error().Err(err).Int64("userID", userID).Msg("failed to write activity log")
		return
	}
	defer f.Close()

	fmt.Fprintf(f, "[%s] %s %s\n", time.Now().Format("2006-01-02 15:04:05"), prefix, msg)
}

// LogUser logs a user message or button press.
func LogUser(userID int64, format string, args ...any) {
	appendLog(userID, "USER", fmt.Sprintf(format, args...))
}

// LogBot logs a bot reply.
func LogBot(userID int64, format string, args ...any) {
	appendLog(userID, "BOT ", fmt.Sprintf(format, args...))
}

// LogAPI logs calls to the remote services.
func LogAPI(userID int64, format string, args ...any) {
	appendLog(userID, "API ", fmt.Sprintf(format, args...))
}
