package model

import "time"

// Message rows are append-only.
type Message struct {
	ID          uint64    `gorm:"primaryKey"`
	CommunityID uint64    `gorm:"column:comunidad_id;not null;index:idx_comentario_comunidad_tiempo,priority:1"`
	UserID      uint64    `gorm:"column:usuario_id;not null;index"`
	Body        string    `gorm:"column:contenido;type:text;not null"`
	CreatedAt   time.Time `gorm:"column:creado_en;precision:3;index:idx_comentario_comunidad_tiempo,priority:2"`
}

func (Message) TableName() string { return "comentarios" }

type Author struct {
	Name     string  `json:"name"`
	PhotoURL *string `json:"photoUrl"`
}

// MessageView is a message joined with its author.
type MessageView struct {
	ID          uint64    `json:"id"`
	CommunityID uint64    `json:"communityId"`
	UserID      uint64    `json:"userId"`
	Body        string    `json:"body"`
	CreatedAt   time.Time `json:"createdAt"`
	AuthorName  string    `json:"-"`
	AuthorPhoto *string   `json:"-"`
	Author      Author    `gorm:"-" json:"author"`
}

// Page selects messages strictly after AfterID. Limit <= 0 means no limit.
type Page struct {
	AfterID uint64
	Limit   int
}
