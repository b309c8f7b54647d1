package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"MiCiudadSV/internal/model"
	"MiCiudadSV/internal/pkg"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/sirupsen/logrus"
)

const (
	MaxNameLength        = 64
	MaxDescriptionLength = 1000

	maxSlugLength   = 64
	slugSuffixTries = 5
	createAttempts  = 3
)

type CommunityService struct {
	repo         CommunityStore
	cache        DirectoryCache
	photoBaseURL string
	log          *logrus.Entry
}

func NewCommunityService(repo CommunityStore, cache DirectoryCache, photoBaseURL string) *CommunityService {
	return &CommunityService{
		repo:         repo,
		cache:        cache,
		photoBaseURL: photoBaseURL,
		log:          logrus.WithField("component", "directory"),
	}
}

// ListAll returns every community, newest first unless order is "asc".
func (s *CommunityService) ListAll(ctx context.Context, order string) ([]model.CommunitySummary, error) {
	ascending := strings.EqualFold(strings.TrimSpace(order), "asc")

	if s.cache != nil {
		list, ok, err := s.cache.Get(ctx, ascending)
		switch {
		case err != nil:
			s.log.WithError(err).Warn("directory cache read failed")
		case ok:
			return list, nil
		}
	}

	list, err := s.repo.ListSummaries(ctx, ascending)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, ascending, list); err != nil {
			s.log.WithError(err).Warn("directory cache write failed")
		}
	}
	return list, nil
}

// ListForUser returns the communities where userID holds a role, with the role flags filled in.
func (s *CommunityService) ListForUser(ctx context.Context, userID uint64) ([]model.UserCommunity, error) {
	if userID == 0 {
		return nil, pkg.Unauthorized("authentication required")
	}
	rows, err := s.repo.ListSummariesForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := make([]model.UserCommunity, 0, len(rows))
	for _, c := range rows {
		role := ResolveRole(model.MembershipLookup{
			CommunityID: c.ID,
			CreatorID:   c.CreatorID,
			UserID:      userID,
			StoredRole:  c.StoredRole,
		})
		if role == model.RoleNotJoined {
			continue
		}
		c.Role = role
		c.IsJoined = true
		c.IsCreator = role == model.RoleCreator
		c.IsAdmin = IsAdmin(role)
		out = append(out, c)
	}
	return out, nil
}

// Create validates the input and stores the community together with the creator's membership.
func (s *CommunityService) Create(ctx context.Context, userID uint64, name, description string) (*model.Community, error) {
	if userID == 0 {
		return nil, pkg.Unauthorized("authentication required")
	}
	name = strings.TrimSpace(name)
	description = strings.TrimSpace(description)

	switch {
	case name == "":
		return nil, pkg.InvalidInput("community name is required")
	case utf8.RuneCountInString(name) > MaxNameLength:
		return nil, pkg.InvalidInput(fmt.Sprintf("community name must be at most %d characters", MaxNameLength))
	case utf8.RuneCountInString(description) > MaxDescriptionLength:
		return nil, pkg.InvalidInput(fmt.Sprintf("description must be at most %d characters", MaxDescriptionLength))
	}

	existing, err := s.repo.FindByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, pkg.Conflict("a community with that name already exists", nil)
	}

	var c *model.Community
	for attempt := 1; ; attempt++ {
		sl, err := s.uniqueSlug(ctx, name)
		if err != nil {
			return nil, err
		}
		c = &model.Community{
			Name:        name,
			Slug:        sl,
			Description: description,
			CreatorID:   userID,
		}
		err = s.repo.Create(ctx, c)
		if err == nil {
			break
		}
		if !pkg.IsKind(err, pkg.KindConflict) {
			return nil, err
		}

		// either unique key may have lost a race; only the name is the caller's problem
		existing, ferr := s.repo.FindByName(ctx, name)
		if ferr != nil {
			return nil, ferr
		}
		if existing != nil {
			return nil, pkg.Conflict("a community with that name already exists", err)
		}
		if attempt == createAttempts {
			return nil, pkg.Wrap(pkg.KindUnavailable, "could not reserve a slug for the community, try again", err)
		}
		s.log.WithFields(logrus.Fields{"slug": sl, "attempt": attempt}).Debug("slug taken concurrently, retrying")
	}

	invalidateDirectory(ctx, s.cache, s.log)
	s.log.WithFields(logrus.Fields{
		"community_id": c.ID,
		"creator_id":   userID,
		"slug":         c.Slug,
	}).Info("community created")
	return c, nil
}

func (s *CommunityService) uniqueSlug(ctx context.Context, name string) (string, error) {
	base := slug.Make(name)
	if len(base) > maxSlugLength {
		base = strings.Trim(base[:maxSlugLength], "-")
	}
	if base == "" {
		base = "comunidad"
	}

	candidate := base
	for i := 2; i <= slugSuffixTries+1; i++ {
		taken, err := s.repo.SlugTaken(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
	return base + "-" + strings.SplitN(uuid.NewString(), "-", 2)[0], nil
}

func (s *CommunityService) GetDetails(ctx context.Context, communityID uint64) (*model.CommunitySummary, error) {
	return s.repo.GetSummary(ctx, communityID)
}

// ListMembers lists the creator first, then members by join time.
func (s *CommunityService) ListMembers(ctx context.Context, communityID uint64) ([]model.Member, error) {
	ok, err := s.repo.Exists(ctx, communityID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, pkg.NotFound("community not found")
	}

	members, err := s.repo.ListMembers(ctx, communityID)
	if err != nil {
		return nil, err
	}
	for i := range members {
		members[i].PhotoURL = pkg.ResolvePhotoURL(s.photoBaseURL, members[i].Photo)
	}
	return members, nil
}
