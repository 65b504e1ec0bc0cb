package bot

import (
	"context"

	"github.com/raine/telegram-tryon-bot/internal/storage"
	"github.com/raine/telegram-tryon-bot/internal/submission"
)

// submissionLedger records submission attempts of one user in the store.
type submissionLedger struct {
	store       storage.Store
	telegramID  int64
	productName string
}

func (l *submissionLedger) RecordAttempt(ctx context.Context, attempt submission.Attempt) error {
	rec := &storage.SubmissionRecord{
		TelegramID:    l.telegramID,
		ProductName:   l.productName,
		ProductCode:   attempt.ProductCode,
		Status:        storage.SubmissionSucceeded,
		Stage:         string(attempt.Stage),
		UploadedPaths: attempt.UploadedPaths,
	}
	if attempt.Err != nil {
		rec.Status = storage.SubmissionFailed
		rec.Error = attempt.Err.Error()
	}
	LogAPI(l.telegramID, "submission %s at %s stage, code %q, %d uploaded", rec.Status, rec.Stage, rec.ProductCode, len(rec.UploadedPaths))
	return l.store.SaveSubmission(rec)
}
