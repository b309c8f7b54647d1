package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"MiCiudadSV/internal/model"
	"MiCiudadSV/internal/pkg"
	"MiCiudadSV/internal/repository/mysql"
)

type memKey struct{ userID, communityID uint64 }

// memDB mimics the MySQL tables closely enough for service tests, including
// the unique membership key and the guard running inside the "transaction".
type memDB struct {
	mu          sync.Mutex
	seq         uint64
	base        time.Time
	users       map[uint64]*model.User
	communities map[uint64]*model.Community
	memberships map[memKey]*model.Membership
	messages    []model.Message
	outbox      []model.CommunityOutbox
}

func newMemDB() *memDB {
	return &memDB{
		base:        time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		users:       make(map[uint64]*model.User),
		communities: make(map[uint64]*model.Community),
		memberships: make(map[memKey]*model.Membership),
	}
}

// next returns a fresh id and a strictly increasing timestamp. Callers hold mu.
func (db *memDB) next() (uint64, time.Time) {
	db.seq++
	return db.seq, db.base.Add(time.Duration(db.seq) * time.Millisecond)
}

func (db *memDB) addUser(name string, photo *string) uint64 {
	db.mu.Lock()
	defer db.mu.Unlock()
	id, now := db.next()
	db.users[id] = &model.User{ID: id, Name: name, Email: strings.ToLower(name) + "@example.com", Photo: photo, CreatedAt: now}
	return id
}

func (db *memDB) membershipCount(communityID uint64) int {
	db.mu.Lock()
	defer db.mu.Unlock()
	n := 0
	for k := range db.memberships {
		if k.communityID == communityID {
			n++
		}
	}
	return n
}

func (db *memDB) messageCount(communityID uint64) int {
	db.mu.Lock()
	defer db.mu.Unlock()
	n := 0
	for _, m := range db.messages {
		if m.CommunityID == communityID {
			n++
		}
	}
	return n
}

func (db *memDB) lookup(userID, communityID uint64) (model.MembershipLookup, error) {
	c, ok := db.communities[communityID]
	if !ok {
		return model.MembershipLookup{}, pkg.NotFound("community not found")
	}
	l := model.MembershipLookup{CommunityID: c.ID, CreatorID: c.CreatorID, UserID: userID}
	if m, ok := db.memberships[memKey{userID, communityID}]; ok {
		l.StoredRole = m.Role
	}
	return l, nil
}

func (db *memDB) summary(c *model.Community) model.CommunitySummary {
	s := model.CommunitySummary{
		ID:          c.ID,
		Name:        c.Name,
		Slug:        c.Slug,
		Description: c.Description,
		CreatorID:   c.CreatorID,
		CreatedAt:   c.CreatedAt,
	}
	if u, ok := db.users[c.CreatorID]; ok {
		s.CreatorName = u.Name
	}
	for k := range db.memberships {
		if k.communityID == c.ID {
			s.MemberCount++
		}
	}
	for _, m := range db.messages {
		if m.CommunityID == c.ID {
			s.MessageCount++
		}
	}
	return s
}

type fakeCommunities struct{ db *memDB }

func (f fakeCommunities) Create(_ context.Context, c *model.Community) error {
	db := f.db
	db.mu.Lock()
	defer db.mu.Unlock()
	for _, existing := range db.communities {
		if strings.EqualFold(existing.Name, c.Name) || existing.Slug == c.Slug {
			return pkg.Conflict("duplicate entry", nil)
		}
	}
	id, now := db.next()
	c.ID, c.CreatedAt = id, now
	cp := *c
	db.communities[id] = &cp
	mid, _ := db.next()
	db.memberships[memKey{c.CreatorID, id}] = &model.Membership{ID: mid, UserID: c.CreatorID, CommunityID: id, Role: model.RoleCreator, JoinedAt: now}
	return nil
}

func (f fakeCommunities) Exists(_ context.Context, id uint64) (bool, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	_, ok := f.db.communities[id]
	return ok, nil
}

func (f fakeCommunities) FindByName(_ context.Context, name string) (*model.Community, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	for _, c := range f.db.communities {
		if strings.EqualFold(c.Name, name) {
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

func (f fakeCommunities) SlugTaken(_ context.Context, slug string) (bool, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	for _, c := range f.db.communities {
		if c.Slug == slug {
			return true, nil
		}
	}
	return false, nil
}

func (f fakeCommunities) ListSummaries(_ context.Context, ascending bool) ([]model.CommunitySummary, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	out := make([]model.CommunitySummary, 0, len(f.db.communities))
	for _, c := range f.db.communities {
		out = append(out, f.db.summary(c))
	}
	sort.Slice(out, func(i, j int) bool {
		if ascending {
			return out[i].ID < out[j].ID
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (f fakeCommunities) ListSummariesForUser(_ context.Context, userID uint64) ([]model.UserCommunity, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	out := make([]model.UserCommunity, 0)
	for _, c := range f.db.communities {
		m, joined := f.db.memberships[memKey{userID, c.ID}]
		if !joined && c.CreatorID != userID {
			continue
		}
		uc := model.UserCommunity{CommunitySummary: f.db.summary(c)}
		if joined {
			uc.StoredRole = m.Role
		}
		out = append(out, uc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (f fakeCommunities) GetSummary(_ context.Context, id uint64) (*model.CommunitySummary, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	c, ok := f.db.communities[id]
	if !ok {
		return nil, pkg.NotFound("community not found")
	}
	s := f.db.summary(c)
	return &s, nil
}

func (f fakeCommunities) ListMembers(_ context.Context, communityID uint64) ([]model.Member, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	c := f.db.communities[communityID]
	out := make([]model.Member, 0)
	for k, m := range f.db.memberships {
		if k.communityID != communityID {
			continue
		}
		u := f.db.users[k.userID]
		role := m.Role
		if c != nil && k.userID == c.CreatorID {
			role = model.RoleCreator
		}
		member := model.Member{UserID: k.userID, Role: role, JoinedAt: m.JoinedAt}
		if u != nil {
			member.Name, member.Photo = u.Name, u.Photo
		}
		out = append(out, member)
	}
	sort.Slice(out, func(i, j int) bool {
		ci, cj := out[i].Role == model.RoleCreator, out[j].Role == model.RoleCreator
		if ci != cj {
			return ci
		}
		return out[i].JoinedAt.Before(out[j].JoinedAt)
	})
	return out, nil
}

type fakeMemberships struct{ db *memDB }

func (f fakeMemberships) Lookup(_ context.Context, userID, communityID uint64) (model.MembershipLookup, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	return f.db.lookup(userID, communityID)
}

func (f fakeMemberships) Toggle(_ context.Context, userID, communityID uint64, guard mysql.Guard) (model.ToggleAction, error) {
	db := f.db
	db.mu.Lock()
	defer db.mu.Unlock()
	l, err := db.lookup(userID, communityID)
	if err != nil {
		return "", err
	}
	if guard != nil {
		if err := guard(l); err != nil {
			return "", err
		}
	}
	key := memKey{userID, communityID}
	if _, ok := db.memberships[key]; ok {
		delete(db.memberships, key)
		db.outbox = append(db.outbox, model.CommunityOutbox{EventType: model.EventMemberLeft, CommunityID: communityID, UserID: userID})
		return model.ToggleLeft, nil
	}
	id, now := db.next()
	db.memberships[key] = &model.Membership{ID: id, UserID: userID, CommunityID: communityID, Role: model.RoleMember, JoinedAt: now}
	db.outbox = append(db.outbox, model.CommunityOutbox{EventType: model.EventMemberJoined, CommunityID: communityID, UserID: userID})
	return model.ToggleJoined, nil
}

type fakeMessages struct{ db *memDB }

func (f fakeMessages) Create(_ context.Context, msg *model.Message, guard mysql.Guard) (*model.MessageView, error) {
	db := f.db
	db.mu.Lock()
	defer db.mu.Unlock()
	l, err := db.lookup(msg.UserID, msg.CommunityID)
	if err != nil {
		return nil, err
	}
	if guard != nil {
		if err := guard(l); err != nil {
			return nil, err
		}
	}
	msg.ID, msg.CreatedAt = db.next()
	db.messages = append(db.messages, *msg)
	db.outbox = append(db.outbox, model.CommunityOutbox{EventType: model.EventMessageCreated, CommunityID: msg.CommunityID, UserID: msg.UserID})
	v := db.view(*msg)
	return &v, nil
}

func (db *memDB) view(m model.Message) model.MessageView {
	v := model.MessageView{ID: m.ID, CommunityID: m.CommunityID, UserID: m.UserID, Body: m.Body, CreatedAt: m.CreatedAt}
	if u, ok := db.users[m.UserID]; ok {
		v.AuthorName, v.AuthorPhoto = u.Name, u.Photo
	}
	return v
}

func (f fakeMessages) List(_ context.Context, communityID uint64, page model.Page) ([]model.MessageView, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	out := make([]model.MessageView, 0)
	for _, m := range f.db.messages {
		if m.CommunityID == communityID && m.ID > page.AfterID {
			out = append(out, f.db.view(m))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if page.Limit > 0 && len(out) > page.Limit {
		out = out[:page.Limit]
	}
	return out, nil
}

// fakeCache counts invalidations and serves whatever was Set.
type fakeCache struct {
	mu          sync.Mutex
	lists       map[bool][]model.CommunitySummary
	gets        int
	invalidated int
}

func newFakeCache() *fakeCache {
	return &fakeCache{lists: make(map[bool][]model.CommunitySummary)}
}

func (c *fakeCache) Get(_ context.Context, ascending bool) ([]model.CommunitySummary, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	list, ok := c.lists[ascending]
	return list, ok, nil
}

func (c *fakeCache) Set(_ context.Context, ascending bool, list []model.CommunitySummary) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lists[ascending] = list
	return nil
}

func (c *fakeCache) Invalidate(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lists = make(map[bool][]model.CommunitySummary)
	c.invalidated++
	return nil
}

type recordingBroadcaster struct {
	mu   sync.Mutex
	sent []model.MessageView
}

func (b *recordingBroadcaster) Publish(_ uint64, msg model.MessageView) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sent = append(b.sent, msg)
}

type recordingEvictor struct {
	mu      sync.Mutex
	evicted [][2]uint64
}

func (r *recordingEvictor) Evict(communityID, userID uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.evicted = append(r.evicted, [2]uint64{communityID, userID})
}

type fixture struct {
	db          *memDB
	cache       *fakeCache
	broadcaster *recordingBroadcaster
	evictor     *recordingEvictor
	communities *CommunityService
	memberships *MembershipService
	messages    *MessageService
}

const testPhotoBase = "https://cdn.miciudadsv.test"

func newFixture() *fixture {
	db := newMemDB()
	cache := newFakeCache()
	b := &recordingBroadcaster{}
	ev := &recordingEvictor{}
	return &fixture{
		db:          db,
		cache:       cache,
		broadcaster: b,
		evictor:     ev,
		communities: NewCommunityService(fakeCommunities{db}, cache, testPhotoBase),
		memberships: NewMembershipService(fakeMemberships{db}, cache, ev),
		messages:    NewMessageService(fakeMessages{db}, fakeCommunities{db}, cache, b, testPhotoBase),
	}
}
