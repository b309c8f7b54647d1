package service

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"MiCiudadSV/internal/config"
	"MiCiudadSV/internal/model"
	"MiCiudadSV/internal/pkg"
	"MiCiudadSV/internal/repository/redis"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUsers struct {
	mu   sync.Mutex
	seq  uint64
	byID map[uint64]*model.User
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byID: make(map[uint64]*model.User)}
}

func (f *fakeUsers) Create(_ context.Context, u *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.byID {
		if existing.Email == u.Email {
			return pkg.Conflict("duplicate entry", nil)
		}
	}
	f.seq++
	u.ID, u.CreatedAt = f.seq, time.Now()
	cp := *u
	f.byID[u.ID] = &cp
	return nil
}

func (f *fakeUsers) FindByID(_ context.Context, id uint64) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return nil, pkg.NotFound("user not found")
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) FindByEmail(_ context.Context, email string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeUsers) UpdatePhoto(_ context.Context, id uint64, photo string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return pkg.NotFound("user not found")
	}
	u.Photo = &photo
	return nil
}

func (f *fakeUsers) MarkEmailVerified(_ context.Context, id uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.byID[id]; ok {
		u.EmailVerified = true
	}
	return nil
}

type fakeTokens struct {
	mu      sync.Mutex
	tokens  map[uint64]string
	refresh map[uint64]string
}

func (f *fakeTokens) Save(_ context.Context, userID uint64, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens[userID] = token
	return nil
}

func (f *fakeTokens) Get(_ context.Context, userID uint64) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tok, ok := f.tokens[userID]
	if !ok {
		return "", redis.ErrTokenNotFound
	}
	return tok, nil
}

func (f *fakeTokens) SaveRefresh(_ context.Context, userID uint64, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refresh[userID] = token
	return nil
}

func (f *fakeTokens) GetRefresh(_ context.Context, userID uint64) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tok, ok := f.refresh[userID]
	if !ok {
		return "", redis.ErrTokenNotFound
	}
	return tok, nil
}

func (f *fakeTokens) Delete(_ context.Context, userID uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.tokens, userID)
	delete(f.refresh, userID)
	return nil
}

type fakeCodes struct {
	reserved map[string]bool
	codes    map[string]string
}

func (f *fakeCodes) TTL() time.Duration { return 10 * time.Minute }

func (f *fakeCodes) Reserve(_ context.Context, email string) (bool, error) {
	if f.reserved[email] {
		return false, nil
	}
	f.reserved[email] = true
	return true, nil
}

func (f *fakeCodes) Save(_ context.Context, email, code string) error {
	f.codes[email] = code
	return nil
}

func (f *fakeCodes) Consume(_ context.Context, email, code string) (bool, bool, error) {
	stored, ok := f.codes[email]
	if !ok {
		return false, false, nil
	}
	if stored != code {
		return true, false, nil
	}
	delete(f.codes, email)
	return true, true, nil
}

type sentMail struct{ to, subject, body string }

type fakeMailer struct{ sent []sentMail }

func (m *fakeMailer) Send(to, subject, body string) error {
	m.sent = append(m.sent, sentMail{to, subject, body})
	return nil
}

type userFixture struct {
	users  *fakeUsers
	tokens *fakeTokens
	codes  *fakeCodes
	mailer *fakeMailer
	svc    *UserService
}

func newUserFixture(t *testing.T) *userFixture {
	t.Helper()
	f := &userFixture{
		users:  newFakeUsers(),
		tokens: &fakeTokens{tokens: make(map[uint64]string), refresh: make(map[uint64]string)},
		codes:  &fakeCodes{reserved: make(map[string]bool), codes: make(map[string]string)},
		mailer: &fakeMailer{},
	}
	issuer := pkg.NewTokenIssuer("access-secret", "refresh-secret", time.Minute, time.Hour)
	f.svc = NewUserService(f.users, f.tokens, issuer, NewEmailService(f.codes, f.mailer), config.PhotoConfig{
		BaseURL:   testPhotoBase,
		UploadDir: t.TempDir(),
		MaxBytes:  1 << 20,
	})
	return f
}

func TestRegisterValidation(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()

	cases := []struct{ name, email, password string }{
		{"", "ana@example.com", "secreto123"},
		{"Ana", "not-an-email", "secreto123"},
		{"Ana", "Ana <ana@example.com>", "secreto123"},
		{"Ana", "ana@example.com", "corta"},
	}
	for _, tc := range cases {
		_, err := f.svc.Register(ctx, tc.name, tc.email, tc.password)
		assert.Equal(t, pkg.KindInvalidInput, pkg.KindOf(err), "%+v", tc)
	}

	p, err := f.svc.Register(ctx, " Ana ", " ANA@Example.com ", "secreto123")
	require.NoError(t, err)
	assert.Equal(t, "Ana", p.Name)
	assert.Equal(t, "ana@example.com", p.Email)
	assert.Nil(t, p.PhotoURL)
	assert.False(t, p.EmailVerified)

	stored, err := f.users.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.NotEqual(t, "secreto123", stored.Password)

	_, err = f.svc.Register(ctx, "Otra", "ana@example.com", "secreto123")
	assert.Equal(t, pkg.KindConflict, pkg.KindOf(err))
}

func TestLoginAuthenticateLogout(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()
	p, err := f.svc.Register(ctx, "Ana", "ana@example.com", "secreto123")
	require.NoError(t, err)

	_, _, err = f.svc.Login(ctx, "ana@example.com", "equivocada")
	assert.Equal(t, pkg.KindUnauthorized, pkg.KindOf(err))
	_, _, err = f.svc.Login(ctx, "nadie@example.com", "secreto123")
	assert.Equal(t, pkg.KindUnauthorized, pkg.KindOf(err))

	pair, profile, err := f.svc.Login(ctx, "ANA@example.com", "secreto123")
	require.NoError(t, err)
	assert.Equal(t, p.ID, profile.ID)

	id, err := f.svc.Authenticate(ctx, pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, p.ID, id)

	_, err = f.svc.Authenticate(ctx, pair.RefreshToken)
	assert.Equal(t, pkg.KindUnauthorized, pkg.KindOf(err))
	_, err = f.svc.Authenticate(ctx, "garbage")
	assert.Equal(t, pkg.KindUnauthorized, pkg.KindOf(err))

	require.NoError(t, f.svc.Logout(ctx, p.ID))
	_, err = f.svc.Authenticate(ctx, pair.AccessToken)
	assert.Equal(t, pkg.KindUnauthorized, pkg.KindOf(err))
}

func TestRefreshReplacesSession(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()
	p, err := f.svc.Register(ctx, "Ana", "ana@example.com", "secreto123")
	require.NoError(t, err)
	pair, _, err := f.svc.Login(ctx, "ana@example.com", "secreto123")
	require.NoError(t, err)

	_, err = f.svc.Refresh(ctx, pair.AccessToken)
	assert.Equal(t, pkg.KindUnauthorized, pkg.KindOf(err))

	// the refreshed access token becomes the current session
	f.tokens.tokens[p.ID] = "older"
	fresh, err := f.svc.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	id, err := f.svc.Authenticate(ctx, fresh.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, p.ID, id)
}

func TestLogoutRevokesRefreshToken(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()
	p, err := f.svc.Register(ctx, "Ana", "ana@example.com", "secreto123")
	require.NoError(t, err)
	pair, _, err := f.svc.Login(ctx, "ana@example.com", "secreto123")
	require.NoError(t, err)

	require.NoError(t, f.svc.Logout(ctx, p.ID))

	_, err = f.svc.Refresh(ctx, pair.RefreshToken)
	require.Error(t, err)
	assert.Equal(t, pkg.KindUnauthorized, pkg.KindOf(err))
	_, err = f.svc.Authenticate(ctx, pair.AccessToken)
	assert.Equal(t, pkg.KindUnauthorized, pkg.KindOf(err))
}

func TestRefreshTokenIsSingleUse(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()
	_, err := f.svc.Register(ctx, "Ana", "ana@example.com", "secreto123")
	require.NoError(t, err)
	pair, _, err := f.svc.Login(ctx, "ana@example.com", "secreto123")
	require.NoError(t, err)

	next, err := f.svc.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, pair.RefreshToken, next.RefreshToken)

	_, err = f.svc.Refresh(ctx, pair.RefreshToken)
	assert.Equal(t, pkg.KindUnauthorized, pkg.KindOf(err))

	// a newer login also retires the previous refresh token
	_, _, err = f.svc.Login(ctx, "ana@example.com", "secreto123")
	require.NoError(t, err)
	_, err = f.svc.Refresh(ctx, next.RefreshToken)
	assert.Equal(t, pkg.KindUnauthorized, pkg.KindOf(err))
}

func TestRefreshWithoutTokenStoreChecksSignatureOnly(t *testing.T) {
	issuer := pkg.NewTokenIssuer("a", "r", time.Minute, time.Hour)
	svc := NewUserService(newFakeUsers(), nil, issuer, NewEmailService(nil, nil), config.PhotoConfig{})
	pair, err := issuer.GeneratePair(9)
	require.NoError(t, err)

	next, err := svc.Refresh(context.Background(), pair.RefreshToken)
	require.NoError(t, err)
	claims, err := issuer.ParseAccess(next.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, uint64(9), claims.UserID)
}

func TestAuthenticateWithoutTokenStore(t *testing.T) {
	issuer := pkg.NewTokenIssuer("a", "r", time.Minute, time.Hour)
	svc := NewUserService(newFakeUsers(), nil, issuer, NewEmailService(nil, nil), config.PhotoConfig{})
	pair, err := issuer.GeneratePair(9)
	require.NoError(t, err)

	id, err := svc.Authenticate(context.Background(), pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, uint64(9), id)
	assert.NoError(t, svc.Logout(context.Background(), 9))
}

func TestEmailVerificationFlow(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()
	p, err := f.svc.Register(ctx, "Ana", "ana@example.com", "secreto123")
	require.NoError(t, err)

	require.NoError(t, f.svc.SendVerificationCode(ctx, p.ID))
	require.Len(t, f.mailer.sent, 1)
	code := f.codes.codes["ana@example.com"]
	require.Len(t, code, 6)
	assert.Contains(t, f.mailer.sent[0].body, code)

	err = f.svc.SendVerificationCode(ctx, p.ID)
	assert.Equal(t, pkg.KindRateLimited, pkg.KindOf(err))

	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}
	_, err = f.svc.VerifyEmail(ctx, p.ID, wrong)
	assert.Equal(t, pkg.KindInvalidInput, pkg.KindOf(err))

	verified, err := f.svc.VerifyEmail(ctx, p.ID, code)
	require.NoError(t, err)
	assert.True(t, verified.EmailVerified)

	f.codes.reserved = make(map[string]bool)
	err = f.svc.SendVerificationCode(ctx, p.ID)
	assert.Equal(t, pkg.KindConflict, pkg.KindOf(err))
}

func TestEmailVerificationUnavailable(t *testing.T) {
	users := newFakeUsers()
	svc := NewUserService(users, nil, pkg.NewTokenIssuer("a", "r", time.Minute, time.Hour), NewEmailService(nil, nil), config.PhotoConfig{})
	p, err := svc.Register(context.Background(), "Ana", "ana@example.com", "secreto123")
	require.NoError(t, err)

	err = svc.SendVerificationCode(context.Background(), p.ID)
	assert.Equal(t, pkg.KindUnavailable, pkg.KindOf(err))
}

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

func TestUpdatePhoto(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()
	p, err := f.svc.Register(ctx, "Ana", "ana@example.com", "secreto123")
	require.NoError(t, err)

	_, err = f.svc.UpdatePhoto(ctx, p.ID, strings.NewReader("just text"), 9)
	assert.Equal(t, pkg.KindInvalidInput, pkg.KindOf(err))
	_, err = f.svc.UpdatePhoto(ctx, p.ID, bytes.NewReader(pngHeader), 2<<20)
	assert.Equal(t, pkg.KindInvalidInput, pkg.KindOf(err))

	first, err := f.svc.UpdatePhoto(ctx, p.ID, bytes.NewReader(pngHeader), int64(len(pngHeader)))
	require.NoError(t, err)
	require.NotNil(t, first.PhotoURL)
	assert.True(t, strings.HasPrefix(*first.PhotoURL, testPhotoBase+"/uploads/profiles/"))
	assert.True(t, strings.HasSuffix(*first.PhotoURL, ".png"))

	firstFile := filepath.Join(f.svc.photos.UploadDir, "profiles", filepath.Base(*first.PhotoURL))
	data, err := os.ReadFile(firstFile)
	require.NoError(t, err)
	assert.Equal(t, pngHeader, data)

	second, err := f.svc.UpdatePhoto(ctx, p.ID, bytes.NewReader(pngHeader), int64(len(pngHeader)))
	require.NoError(t, err)
	assert.NotEqual(t, *first.PhotoURL, *second.PhotoURL)
	_, err = os.Stat(firstFile)
	assert.True(t, os.IsNotExist(err))
}
