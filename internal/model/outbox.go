package model

import "time"

const (
	EventMemberJoined   = "member.joined"
	EventMemberLeft     = "member.left"
	EventMessageCreated = "message.created"
)

const (
	OutboxPending int8 = 0
	OutboxSent    int8 = 1
	OutboxFailed  int8 = 2
)

// CommunityOutbox is written in the same transaction as the change it describes.
type CommunityOutbox struct {
	ID          uint64    `gorm:"primaryKey"`
	EventType   string    `gorm:"column:tipo_evento;size:32;not null"`
	CommunityID uint64    `gorm:"column:comunidad_id;not null"`
	UserID      uint64    `gorm:"column:usuario_id;not null"`
	Payload     string    `gorm:"type:json;not null"`
	Status      int8      `gorm:"column:estado;not null;default:0;index"`
	Retry       int       `gorm:"column:reintentos;not null;default:0"`
	CreatedAt   time.Time `gorm:"column:creado_en"`
	UpdatedAt   time.Time `gorm:"column:actualizado_en"`
}

func (CommunityOutbox) TableName() string { return "comunidad_outbox" }
