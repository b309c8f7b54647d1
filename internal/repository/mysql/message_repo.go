package mysql

import (
	"context"

	"MiCiudadSV/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type MessageRepository struct {
	DB *gorm.DB
}

const messageColumns = `k.id, k.comunidad_id AS community_id, k.usuario_id AS user_id,
	k.contenido AS body, k.creado_en AS created_at,
	COALESCE(u.nombre, '') AS author_name, u.foto_perfil AS author_photo`

func messages(tx *gorm.DB) *gorm.DB {
	return tx.Table("comentarios AS k").
		Select(messageColumns).
		Joins("LEFT JOIN usuarios u ON u.id = k.usuario_id")
}

// Create checks the sender's membership with guard and inserts the message
// plus its outbox event in one transaction. The community and membership rows
// are share-locked, in that order, so a concurrent leave cannot commit in between.
func (r *MessageRepository) Create(ctx context.Context, msg *model.Message, guard Guard) (*model.MessageView, error) {
	var view model.MessageView
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		l, err := lookup(tx, msg.UserID, msg.CommunityID, &clause.Locking{Strength: "SHARE"})
		if err != nil {
			return err
		}
		if guard != nil {
			if err := guard(l); err != nil {
				return err
			}
		}

		if err := tx.Create(msg).Error; err != nil {
			return err
		}
		if err := insertOutbox(tx, model.EventMessageCreated, msg.CommunityID, msg.UserID,
			map[string]any{"message_id": msg.ID}); err != nil {
			return err
		}
		return messages(tx).Where("k.id = ?", msg.ID).Take(&view).Error
	})
	if err != nil {
		return nil, Classify(err)
	}
	return &view, nil
}

// List returns messages ascending by (creado_en, id), strictly after page.AfterID.
func (r *MessageRepository) List(ctx context.Context, communityID uint64, page model.Page) ([]model.MessageView, error) {
	q := messages(r.DB.WithContext(ctx)).Where("k.comunidad_id = ?", communityID)
	if page.AfterID > 0 {
		q = q.Where("k.id > ?", page.AfterID)
	}
	q = q.Order("k.creado_en ASC, k.id ASC")
	if page.Limit > 0 {
		q = q.Limit(page.Limit)
	}
	list := make([]model.MessageView, 0)
	if err := q.Scan(&list).Error; err != nil {
		return nil, Classify(err)
	}
	return list, nil
}
