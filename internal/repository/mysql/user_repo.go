package mysql

import (
	"context"
	"errors"

	"MiCiudadSV/internal/model"
	"MiCiudadSV/internal/pkg"

	"gorm.io/gorm"
)

type UserRepository struct {
	DB *gorm.DB
}

func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	return Classify(r.DB.WithContext(ctx).Create(user).Error)
}

func (r *UserRepository) FindByID(ctx context.Context, id uint64) (*model.User, error) {
	var user model.User
	err := r.DB.WithContext(ctx).First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkg.NotFound("user not found")
	}
	if err != nil {
		return nil, Classify(err)
	}
	return &user, nil
}

// FindByEmail returns nil, nil when no user has that address.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	err := r.DB.WithContext(ctx).Where("email = ?", email).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, Classify(err)
	}
	return &user, nil
}

func (r *UserRepository) UpdatePhoto(ctx context.Context, id uint64, photo string) error {
	return Classify(r.DB.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).
		Update("foto_perfil", photo).Error)
}

func (r *UserRepository) MarkEmailVerified(ctx context.Context, id uint64) error {
	return Classify(r.DB.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).
		Update("email_verificado", true).Error)
}
