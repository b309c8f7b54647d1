package mysql

import (
	"context"
	"errors"

	"MiCiudadSV/internal/model"
	"MiCiudadSV/internal/pkg"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Guard inspects a membership lookup inside a transaction; a non-nil error aborts it.
type Guard func(model.MembershipLookup) error

type MembershipRepository struct {
	DB *gorm.DB
}

// lookup locks the community row before the membership row so that every
// locking caller acquires them in the same order.
func lookup(tx *gorm.DB, userID, communityID uint64, lock *clause.Locking) (model.MembershipLookup, error) {
	var c model.Community
	q := tx.Select("id", "creador_id").Where("id = ?", communityID)
	if lock != nil {
		q = q.Clauses(*lock)
	}
	if err := q.Take(&c).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.MembershipLookup{}, pkg.NotFound("community not found")
		}
		return model.MembershipLookup{}, err
	}

	out := model.MembershipLookup{CommunityID: c.ID, CreatorID: c.CreatorID, UserID: userID}

	var m model.Membership
	mq := tx.Select("id", "rol").Where("usuario_id = ? AND comunidad_id = ?", userID, communityID)
	if lock != nil {
		mq = mq.Clauses(*lock)
	}
	err := mq.Take(&m).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
	case err != nil:
		return out, err
	default:
		out.StoredRole = m.Role
	}
	return out, nil
}

// Lookup reads the community's creator and the user's stored role without locking.
func (r *MembershipRepository) Lookup(ctx context.Context, userID, communityID uint64) (model.MembershipLookup, error) {
	out, err := lookup(r.DB.WithContext(ctx), userID, communityID, nil)
	return out, Classify(err)
}

// Toggle deletes the membership if present, otherwise inserts it as a plain member.
// The community row is locked FOR UPDATE so toggles on one community serialize;
// uk_membresia_usuario_comunidad still turns any duplicate insert into a Conflict.
func (r *MembershipRepository) Toggle(ctx context.Context, userID, communityID uint64, guard Guard) (model.ToggleAction, error) {
	var action model.ToggleAction
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		l, err := lookup(tx, userID, communityID, &clause.Locking{Strength: "UPDATE"})
		if err != nil {
			return err
		}
		if guard != nil {
			if err := guard(l); err != nil {
				return err
			}
		}

		if l.StoredRole != "" {
			if err := tx.Where("usuario_id = ? AND comunidad_id = ?", userID, communityID).
				Delete(&model.Membership{}).Error; err != nil {
				return err
			}
			action = model.ToggleLeft
			return insertOutbox(tx, model.EventMemberLeft, communityID, userID, nil)
		}

		if err := tx.Create(&model.Membership{
			UserID:      userID,
			CommunityID: communityID,
			Role:        model.RoleMember,
		}).Error; err != nil {
			return err
		}
		action = model.ToggleJoined
		return insertOutbox(tx, model.EventMemberJoined, communityID, userID, nil)
	})
	if err != nil {
		return "", Classify(err)
	}
	return action, nil
}
