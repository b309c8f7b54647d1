package model

import "time"

type User struct {
	ID            uint64    `gorm:"primaryKey" json:"id"`
	Name          string    `gorm:"column:nombre;size:100;not null" json:"name"`
	Email         string    `gorm:"uniqueIndex;size:128;not null" json:"email"`
	Password      string    `gorm:"size:255;not null" json:"-"`
	Photo         *string   `gorm:"column:foto_perfil;size:255" json:"-"`
	EmailVerified bool      `gorm:"column:email_verificado;not null;default:false" json:"emailVerified"`
	CreatedAt     time.Time `gorm:"column:creado_en" json:"createdAt"`
	UpdatedAt     time.Time `gorm:"column:actualizado_en" json:"-"`
}

func (User) TableName() string { return "usuarios" }

// Profile is the public view of a user.
type Profile struct {
	ID            uint64    `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	PhotoURL      *string   `json:"photoUrl"`
	EmailVerified bool      `json:"emailVerified"`
	CreatedAt     time.Time `json:"createdAt"`
}
