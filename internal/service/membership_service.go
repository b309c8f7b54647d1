package service

import (
	"context"

	"MiCiudadSV/internal/model"
	"MiCiudadSV/internal/pkg"

	"github.com/sirupsen/logrus"
)

type MembershipService struct {
	repo    MembershipStore
	cache   DirectoryCache
	streams StreamEvictor
	log     *logrus.Entry
}

// NewMembershipService builds the service; cache and streams may be nil.
func NewMembershipService(repo MembershipStore, cache DirectoryCache, streams StreamEvictor) *MembershipService {
	return &MembershipService{
		repo:    repo,
		cache:   cache,
		streams: streams,
		log:     logrus.WithField("component", "membership"),
	}
}

// ResolveRole derives a role from a lookup; being the creator outranks any stored role.
func ResolveRole(l model.MembershipLookup) model.Role {
	if (l.UserID != 0 && l.UserID == l.CreatorID) || l.StoredRole == model.RoleCreator {
		return model.RoleCreator
	}
	switch l.StoredRole {
	case model.RoleAdmin:
		return model.RoleAdmin
	case model.RoleMember:
		return model.RoleMember
	}
	return model.RoleNotJoined
}

func IsAdmin(r model.Role) bool {
	return r == model.RoleAdmin || r == model.RoleCreator
}

func (s *MembershipService) GetRole(ctx context.Context, userID, communityID uint64) (model.Role, error) {
	l, err := s.repo.Lookup(ctx, userID, communityID)
	if err != nil {
		return "", err
	}
	return ResolveRole(l), nil
}

// Toggle joins the user when they hold no membership and removes it otherwise.
func (s *MembershipService) Toggle(ctx context.Context, userID, communityID uint64) (model.ToggleAction, error) {
	if userID == 0 {
		return "", pkg.Unauthorized("authentication required")
	}

	action, err := s.repo.Toggle(ctx, userID, communityID, func(l model.MembershipLookup) error {
		if ResolveRole(l) == model.RoleCreator {
			return pkg.Forbidden("the creator cannot leave their own community")
		}
		return nil
	})
	if pkg.IsKind(err, pkg.KindConflict) {
		// a concurrent request inserted the same membership first
		s.log.WithFields(logrus.Fields{"user_id": userID, "community_id": communityID}).
			Debug("duplicate join resolved as joined")
		action, err = model.ToggleJoined, nil
	}
	if err != nil {
		return "", err
	}

	if action == model.ToggleLeft && s.streams != nil {
		s.streams.Evict(communityID, userID)
	}
	invalidateDirectory(ctx, s.cache, s.log)
	s.log.WithFields(logrus.Fields{
		"user_id":      userID,
		"community_id": communityID,
		"action":       action,
	}).Info("membership toggled")
	return action, nil
}

func invalidateDirectory(ctx context.Context, cache DirectoryCache, log *logrus.Entry) {
	if cache == nil {
		return
	}
	if err := cache.Invalidate(ctx); err != nil {
		log.WithError(err).Warn("directory cache invalidation failed")
	}
}
