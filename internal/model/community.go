package model

import "time"

// Role is a user's relationship to a community.
type Role string

const (
	RoleNotJoined Role = "notJoined"
	RoleMember    Role = "member"
	RoleAdmin     Role = "admin"
	RoleCreator   Role = "creator"
)

// ToggleAction is the outcome of a membership toggle.
type ToggleAction string

const (
	ToggleJoined ToggleAction = "joined"
	ToggleLeft   ToggleAction = "left"
)

type Community struct {
	ID          uint64    `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"column:nombre;uniqueIndex;size:64;not null" json:"name"`
	Slug        string    `gorm:"uniqueIndex;size:80;not null" json:"slug"`
	Description string    `gorm:"column:descripcion;type:text" json:"description"`
	CreatorID   uint64    `gorm:"column:creador_id;not null;index" json:"creatorId"`
	CreatedAt   time.Time `gorm:"column:creado_en" json:"createdAt"`
}

func (Community) TableName() string { return "comunidades" }

// Membership: at most one row per (usuario_id, comunidad_id), see uk_membresia_usuario_comunidad.
type Membership struct {
	ID          uint64    `gorm:"primaryKey"`
	UserID      uint64    `gorm:"column:usuario_id;not null;uniqueIndex:uk_membresia_usuario_comunidad,priority:1"`
	CommunityID uint64    `gorm:"column:comunidad_id;not null;index;uniqueIndex:uk_membresia_usuario_comunidad,priority:2"`
	Role        Role      `gorm:"column:rol;size:16;not null;default:member"`
	JoinedAt    time.Time `gorm:"column:unido_en;autoCreateTime"`
}

func (Membership) TableName() string { return "membresias" }

// MembershipLookup is the raw material for role resolution.
// StoredRole is empty when no membership row exists.
type MembershipLookup struct {
	CommunityID uint64
	CreatorID   uint64
	UserID      uint64
	StoredRole  Role
}

// CommunitySummary is a community row with its aggregate counts.
type CommunitySummary struct {
	ID           uint64    `json:"id"`
	Name         string    `json:"name"`
	Slug         string    `json:"slug"`
	Description  string    `json:"description"`
	CreatorID    uint64    `json:"creatorId"`
	CreatorName  string    `json:"creatorName"`
	MemberCount  int64     `json:"memberCount"`
	MessageCount int64     `json:"messageCount"`
	CreatedAt    time.Time `json:"createdAt"`
}

// UserCommunity is a CommunitySummary seen from one user.
type UserCommunity struct {
	CommunitySummary
	StoredRole Role `json:"-"`

	Role      Role `gorm:"-" json:"role"`
	IsJoined  bool `gorm:"-" json:"isJoined"`
	IsCreator bool `gorm:"-" json:"isCreator"`
	IsAdmin   bool `gorm:"-" json:"isAdmin"`
}

// Member is a membership joined with the member's display data.
type Member struct {
	UserID   uint64    `json:"userId"`
	Name     string    `json:"name"`
	Photo    *string   `json:"-"`
	PhotoURL *string   `gorm:"-" json:"photoUrl"`
	Role     Role      `json:"role"`
	JoinedAt time.Time `json:"joinedAt"`
}
