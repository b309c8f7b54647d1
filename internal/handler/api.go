package handler

import (
	"context"
	"io"

	"MiCiudadSV/internal/model"
	"MiCiudadSV/internal/pkg"
)

type CommunityService interface {
	ListAll(ctx context.Context, order string) ([]model.CommunitySummary, error)
	ListForUser(ctx context.Context, userID uint64) ([]model.UserCommunity, error)
	Create(ctx context.Context, userID uint64, name, description string) (*model.Community, error)
	GetDetails(ctx context.Context, communityID uint64) (*model.CommunitySummary, error)
	ListMembers(ctx context.Context, communityID uint64) ([]model.Member, error)
}

type MembershipService interface {
	GetRole(ctx context.Context, userID, communityID uint64) (model.Role, error)
	Toggle(ctx context.Context, userID, communityID uint64) (model.ToggleAction, error)
}

type MessageService interface {
	ListMessages(ctx context.Context, communityID uint64, page model.Page) ([]model.MessageView, error)
	Send(ctx context.Context, userID, communityID uint64, body string) (*model.MessageView, error)
}

type UserService interface {
	Register(ctx context.Context, name, email, password string) (*model.Profile, error)
	Login(ctx context.Context, email, password string) (*pkg.Pair, *model.Profile, error)
	Refresh(ctx context.Context, refreshToken string) (*pkg.Pair, error)
	Logout(ctx context.Context, userID uint64) error
	Profile(ctx context.Context, userID uint64) (*model.Profile, error)
	SendVerificationCode(ctx context.Context, userID uint64) error
	VerifyEmail(ctx context.Context, userID uint64, code string) (*model.Profile, error)
	UpdatePhoto(ctx context.Context, userID uint64, src io.Reader, size int64) (*model.Profile, error)
}
