package mysql

import (
	"context"
	"encoding/json"
	"time"

	"MiCiudadSV/internal/model"

	"gorm.io/gorm"
)

type OutboxRepository struct {
	DB *gorm.DB
}

// insertOutbox must run on the transaction that performs the change.
func insertOutbox(tx *gorm.DB, event string, communityID, userID uint64, extra map[string]any) error {
	body := map[string]any{
		"event":        event,
		"event_time":   time.Now().UTC().Format(time.RFC3339Nano),
		"community_id": communityID,
		"user_id":      userID,
	}
	for k, v := range extra {
		body[k] = v
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	return tx.Create(&model.CommunityOutbox{
		EventType:   event,
		CommunityID: communityID,
		UserID:      userID,
		Payload:     string(payload),
		Status:      model.OutboxPending,
	}).Error
}

// List returns pending rows and failed rows that still have retries left, oldest first.
func (r *OutboxRepository) List(ctx context.Context, batchSize, maxRetries int) ([]model.CommunityOutbox, error) {
	var list []model.CommunityOutbox
	if err := r.DB.WithContext(ctx).
		Where("estado IN ? AND reintentos < ?", []int8{model.OutboxPending, model.OutboxFailed}, maxRetries).
		Order("id ASC").
		Limit(batchSize).
		Find(&list).Error; err != nil {
		return nil, Classify(err)
	}
	return list, nil
}

func (r *OutboxRepository) MarkFailed(ctx context.Context, id uint64) error {
	return Classify(r.DB.WithContext(ctx).Model(&model.CommunityOutbox{}).Where("id = ?", id).
		Updates(map[string]any{"estado": model.OutboxFailed, "reintentos": gorm.Expr("reintentos + 1")}).Error)
}

func (r *OutboxRepository) MarkSent(ctx context.Context, id uint64) error {
	return Classify(r.DB.WithContext(ctx).Model(&model.CommunityOutbox{}).Where("id = ?", id).
		Update("estado", model.OutboxSent).Error)
}

// PurgeSent deletes delivered rows older than the cutoff.
func (r *OutboxRepository) PurgeSent(ctx context.Context, before time.Time) (int64, error) {
	res := r.DB.WithContext(ctx).
		Where("estado = ? AND actualizado_en < ?", model.OutboxSent, before).
		Delete(&model.CommunityOutbox{})
	return res.RowsAffected, Classify(res.Error)
}
