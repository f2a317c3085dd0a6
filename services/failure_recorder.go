package services

import (
	"context"

	"marketplace-order-service/models"
	"marketplace-order-service/repository"

	"go.uber.org/zap"
)

// FailureRecorder persists unrecoverable events for manual follow-up. If its
// own persistence attempt fails it still leaves a log trace, so no failure is
// ever silently lost.
type FailureRecorder struct {
	repo   repository.FailedEventRepository
	logger *zap.Logger
}

func NewFailureRecorder(repo repository.FailedEventRepository, logger *zap.Logger) *FailureRecorder {
	return &FailureRecorder{repo: repo, logger: logger}
}

func (f *FailureRecorder) Record(ctx context.Context, externalTransactionID, errMsg string, rawPayload []byte) error {
	f.logger.Error("Recording failed payment event",
		zap.String("external_transaction_id", externalTransactionID),
		zap.String("reason", errMsg),
	)

	failed := &models.FailedEvent{
		ExternalTransactionID: externalTransactionID,
		ErrorMessage:          errMsg,
		RawPayload:            string(rawPayload),
	}
	if err := f.repo.Create(ctx, failed); err != nil {
		f.logger.Error("Failed to persist failed event, recovery row lost",
			zap.String("external_transaction_id", externalTransactionID),
			zap.String("original_error", errMsg),
			zap.Error(err),
		)
		return err
	}
	return nil
}
