package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"MiCiudadSV/internal/model"
	"MiCiudadSV/internal/pkg"

	"github.com/sirupsen/logrus"
)

const (
	MaxMessageLength = 2000
	MaxPageSize      = 500
)

type MessageService struct {
	repo         MessageStore
	communities  CommunityStore
	cache        DirectoryCache
	broadcaster  Broadcaster
	photoBaseURL string
	log          *logrus.Entry
}

func NewMessageService(repo MessageStore, communities CommunityStore, cache DirectoryCache, broadcaster Broadcaster, photoBaseURL string) *MessageService {
	return &MessageService{
		repo:         repo,
		communities:  communities,
		cache:        cache,
		broadcaster:  broadcaster,
		photoBaseURL: photoBaseURL,
		log:          logrus.WithField("component", "messaging"),
	}
}

// ListMessages returns messages in chronological order. A page limit of zero or less
// returns everything after page.AfterID; larger limits are capped at MaxPageSize.
func (s *MessageService) ListMessages(ctx context.Context, communityID uint64, page model.Page) ([]model.MessageView, error) {
	ok, err := s.communities.Exists(ctx, communityID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, pkg.NotFound("community not found")
	}

	if page.Limit > MaxPageSize {
		page.Limit = MaxPageSize
	}
	list, err := s.repo.List(ctx, communityID, page)
	if err != nil {
		return nil, err
	}
	for i := range list {
		s.attachAuthor(&list[i])
	}
	return list, nil
}

// Send appends a message. The membership check and the insert share one transaction.
func (s *MessageService) Send(ctx context.Context, userID, communityID uint64, body string) (*model.MessageView, error) {
	if userID == 0 {
		return nil, pkg.Unauthorized("authentication required")
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, pkg.InvalidInput("message body is required")
	}
	if utf8.RuneCountInString(body) > MaxMessageLength {
		return nil, pkg.InvalidInput(fmt.Sprintf("message must be at most %d characters", MaxMessageLength))
	}

	view, err := s.repo.Create(ctx, &model.Message{
		CommunityID: communityID,
		UserID:      userID,
		Body:        body,
	}, func(l model.MembershipLookup) error {
		if ResolveRole(l) == model.RoleNotJoined {
			return pkg.Forbidden("you must join the community before posting")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.attachAuthor(view)

	if s.broadcaster != nil {
		s.broadcaster.Publish(communityID, *view)
	}
	invalidateDirectory(ctx, s.cache, s.log)

	s.log.WithFields(logrus.Fields{
		"user_id":      userID,
		"community_id": communityID,
		"message_id":   view.ID,
	}).Debug("message sent")
	return view, nil
}

func (s *MessageService) attachAuthor(v *model.MessageView) {
	v.Author = model.Author{
		Name:     v.AuthorName,
		PhotoURL: pkg.ResolvePhotoURL(s.photoBaseURL, v.AuthorPhoto),
	}
}
