package mysql

import (
	"context"
	"errors"

	"MiCiudadSV/internal/model"
	"MiCiudadSV/internal/pkg"

	"gorm.io/gorm"
)

type CommunityRepository struct {
	DB *gorm.DB
}

const summaryColumns = `c.id, c.nombre AS name, c.slug, c.descripcion AS description,
	c.creador_id AS creator_id, COALESCE(u.nombre, '') AS creator_name,
	(SELECT COUNT(*) FROM membresias m WHERE m.comunidad_id = c.id) AS member_count,
	(SELECT COUNT(*) FROM comentarios k WHERE k.comunidad_id = c.id) AS message_count,
	c.creado_en AS created_at`

func (r *CommunityRepository) summaries(ctx context.Context) *gorm.DB {
	return r.DB.WithContext(ctx).
		Table("comunidades AS c").
		Joins("LEFT JOIN usuarios u ON u.id = c.creador_id")
}

// Create inserts the community and its creator membership in one transaction.
func (r *CommunityRepository) Create(ctx context.Context, c *model.Community) error {
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(c).Error; err != nil {
			return err
		}
		return tx.Create(&model.Membership{
			UserID:      c.CreatorID,
			CommunityID: c.ID,
			Role:        model.RoleCreator,
		}).Error
	})
	return Classify(err)
}

func (r *CommunityRepository) Exists(ctx context.Context, id uint64) (bool, error) {
	var n int64
	if err := r.DB.WithContext(ctx).Model(&model.Community{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return false, Classify(err)
	}
	return n > 0, nil
}

// FindByName matches case-insensitively.
func (r *CommunityRepository) FindByName(ctx context.Context, name string) (*model.Community, error) {
	var c model.Community
	err := r.DB.WithContext(ctx).Where("LOWER(nombre) = LOWER(?)", name).Take(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, Classify(err)
	}
	return &c, nil
}

func (r *CommunityRepository) SlugTaken(ctx context.Context, slug string) (bool, error) {
	var n int64
	if err := r.DB.WithContext(ctx).Model(&model.Community{}).Where("slug = ?", slug).Count(&n).Error; err != nil {
		return false, Classify(err)
	}
	return n > 0, nil
}

// ListSummaries orders by creation time, newest first unless ascending.
func (r *CommunityRepository) ListSummaries(ctx context.Context, ascending bool) ([]model.CommunitySummary, error) {
	order := "c.creado_en DESC, c.id DESC"
	if ascending {
		order = "c.creado_en ASC, c.id ASC"
	}
	list := make([]model.CommunitySummary, 0)
	if err := r.summaries(ctx).Select(summaryColumns).Order(order).Scan(&list).Error; err != nil {
		return nil, Classify(err)
	}
	return list, nil
}

// ListSummariesForUser returns the communities the user created or belongs to.
func (r *CommunityRepository) ListSummariesForUser(ctx context.Context, userID uint64) ([]model.UserCommunity, error) {
	list := make([]model.UserCommunity, 0)
	err := r.summaries(ctx).
		Select(summaryColumns+", COALESCE(mu.rol, '') AS stored_role").
		Joins("LEFT JOIN membresias mu ON mu.comunidad_id = c.id AND mu.usuario_id = ?", userID).
		Where("mu.id IS NOT NULL OR c.creador_id = ?", userID).
		Order("c.creado_en DESC, c.id DESC").
		Scan(&list).Error
	if err != nil {
		return nil, Classify(err)
	}
	return list, nil
}

func (r *CommunityRepository) GetSummary(ctx context.Context, id uint64) (*model.CommunitySummary, error) {
	var s model.CommunitySummary
	res := r.summaries(ctx).Select(summaryColumns).Where("c.id = ?", id).Limit(1).Scan(&s)
	if res.Error != nil {
		return nil, Classify(res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, pkg.NotFound("community not found")
	}
	return &s, nil
}

// ListMembers puts the creator first, then everyone else by join time.
func (r *CommunityRepository) ListMembers(ctx context.Context, communityID uint64) ([]model.Member, error) {
	list := make([]model.Member, 0)
	err := r.DB.WithContext(ctx).
		Table("membresias AS m").
		Select(`m.usuario_id AS user_id, u.nombre AS name, u.foto_perfil AS photo,
			CASE WHEN m.usuario_id = c.creador_id THEN 'creator' ELSE m.rol END AS role,
			m.unido_en AS joined_at`).
		Joins("JOIN usuarios u ON u.id = m.usuario_id").
		Joins("JOIN comunidades c ON c.id = m.comunidad_id").
		Where("m.comunidad_id = ?", communityID).
		Order("CASE WHEN m.usuario_id = c.creador_id OR m.rol = 'creator' THEN 0 ELSE 1 END, m.unido_en ASC, m.id ASC").
		Scan(&list).Error
	if err != nil {
		return nil, Classify(err)
	}
	return list, nil
}
