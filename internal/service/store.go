package service

import (
	"context"
	"time"

	"MiCiudadSV/internal/model"
	"MiCiudadSV/internal/repository/mysql"
)

type CommunityStore interface {
	Create(ctx context.Context, c *model.Community) error
	Exists(ctx context.Context, id uint64) (bool, error)
	FindByName(ctx context.Context, name string) (*model.Community, error)
	SlugTaken(ctx context.Context, slug string) (bool, error)
	ListSummaries(ctx context.Context, ascending bool) ([]model.CommunitySummary, error)
	ListSummariesForUser(ctx context.Context, userID uint64) ([]model.UserCommunity, error)
	GetSummary(ctx context.Context, id uint64) (*model.CommunitySummary, error)
	ListMembers(ctx context.Context, communityID uint64) ([]model.Member, error)
}

type MembershipStore interface {
	Lookup(ctx context.Context, userID, communityID uint64) (model.MembershipLookup, error)
	Toggle(ctx context.Context, userID, communityID uint64, guard mysql.Guard) (model.ToggleAction, error)
}

type MessageStore interface {
	Create(ctx context.Context, msg *model.Message, guard mysql.Guard) (*model.MessageView, error)
	List(ctx context.Context, communityID uint64, page model.Page) ([]model.MessageView, error)
}

type OutboxStore interface {
	List(ctx context.Context, batchSize, maxRetries int) ([]model.CommunityOutbox, error)
	MarkFailed(ctx context.Context, id uint64) error
	MarkSent(ctx context.Context, id uint64) error
	PurgeSent(ctx context.Context, before time.Time) (int64, error)
}

type UserStore interface {
	Create(ctx context.Context, user *model.User) error
	FindByID(ctx context.Context, id uint64) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	UpdatePhoto(ctx context.Context, id uint64, photo string) error
	MarkEmailVerified(ctx context.Context, id uint64) error
}

// DirectoryCache is optional; services skip it when nil.
type DirectoryCache interface {
	Get(ctx context.Context, ascending bool) ([]model.CommunitySummary, bool, error)
	Set(ctx context.Context, ascending bool, list []model.CommunitySummary) error
	Invalidate(ctx context.Context) error
}

// TokenStore holds the current session of each user. Delete revokes both tokens.
type TokenStore interface {
	Save(ctx context.Context, userID uint64, token string) error
	Get(ctx context.Context, userID uint64) (string, error)
	SaveRefresh(ctx context.Context, userID uint64, token string) error
	GetRefresh(ctx context.Context, userID uint64) (string, error)
	Delete(ctx context.Context, userID uint64) error
}

type CodeStore interface {
	TTL() time.Duration
	Reserve(ctx context.Context, email string) (bool, error)
	Save(ctx context.Context, email, code string) error
	Consume(ctx context.Context, email, code string) (found, ok bool, err error)
}

type Mailer interface {
	Send(to, subject, htmlBody string) error
}

// Broadcaster fans a new message out to live subscribers of its community.
type Broadcaster interface {
	Publish(communityID uint64, msg model.MessageView)
}

// StreamEvictor closes the live connections a user holds on a community stream.
type StreamEvictor interface {
	Evict(communityID, userID uint64)
}
