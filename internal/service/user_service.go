package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/mail"
	"os"
	"path"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"MiCiudadSV/internal/config"
	"MiCiudadSV/internal/model"
	"MiCiudadSV/internal/pkg"
	"MiCiudadSV/internal/repository/redis"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

const (
	MinPasswordLength = 8
	maxUserNameLength = 100

	// UploadURLPrefix is where the router serves PhotoConfig.UploadDir.
	UploadURLPrefix = "uploads"
	profilePhotoDir = "profiles"
)

var photoTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

type UserService struct {
	repo   UserStore
	tokens TokenStore
	issuer *pkg.TokenIssuer
	email  *EmailService
	photos config.PhotoConfig
	log    *logrus.Entry
}

// NewUserService accepts a nil token store; access tokens are then only checked by signature.
func NewUserService(repo UserStore, tokens TokenStore, issuer *pkg.TokenIssuer, email *EmailService, photos config.PhotoConfig) *UserService {
	return &UserService{
		repo:   repo,
		tokens: tokens,
		issuer: issuer,
		email:  email,
		photos: photos,
		log:    logrus.WithField("component", "users"),
	}
}

func (s *UserService) profile(u *model.User) *model.Profile {
	return &model.Profile{
		ID:            u.ID,
		Name:          u.Name,
		Email:         u.Email,
		PhotoURL:      pkg.ResolvePhotoURL(s.photos.BaseURL, u.Photo),
		EmailVerified: u.EmailVerified,
		CreatedAt:     u.CreatedAt,
	}
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", pkg.InvalidInput("invalid email address")
	}
	return email, nil
}

func (s *UserService) Register(ctx context.Context, name, email, password string) (*model.Profile, error) {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > maxUserNameLength {
		return nil, pkg.InvalidInput("name is required and must be at most 100 characters")
	}
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if len(password) < MinPasswordLength {
		return nil, pkg.InvalidInput("password must be at least 8 characters")
	}

	existing, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, pkg.Conflict("email already registered", nil)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, pkg.Internal(err)
	}
	user := &model.User{Name: name, Email: email, Password: string(hash)}
	if err := s.repo.Create(ctx, user); err != nil {
		if pkg.IsKind(err, pkg.KindConflict) {
			return nil, pkg.Conflict("email already registered", err)
		}
		return nil, err
	}

	s.log.WithField("user_id", user.ID).Info("user registered")
	return s.profile(user), nil
}

func (s *UserService) Login(ctx context.Context, email, password string) (*pkg.Pair, *model.Profile, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, nil, err
	}
	if user == nil || bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		return nil, nil, pkg.Unauthorized("invalid email or password")
	}

	pair, err := s.issuePair(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}
	return pair, s.profile(user), nil
}

func (s *UserService) issuePair(ctx context.Context, userID uint64) (*pkg.Pair, error) {
	pair, err := s.issuer.GeneratePair(userID)
	if err != nil {
		return nil, pkg.Internal(err)
	}
	if s.tokens != nil {
		if err := s.tokens.Save(ctx, userID, pair.AccessToken); err != nil {
			return nil, pkg.Unavailable(err)
		}
		if err := s.tokens.SaveRefresh(ctx, userID, pair.RefreshToken); err != nil {
			return nil, pkg.Unavailable(err)
		}
	}
	return pair, nil
}

// Refresh rotates the session. With a token store only the most recently
// issued refresh token is accepted, so logout and reuse both fail.
func (s *UserService) Refresh(ctx context.Context, refreshToken string) (*pkg.Pair, error) {
	claims, err := s.issuer.ParseRefresh(refreshToken)
	if err != nil {
		if errors.Is(err, pkg.ErrRefreshExpired) {
			return nil, pkg.Unauthorized("refresh token expired")
		}
		return nil, pkg.Unauthorized("invalid refresh token")
	}
	if s.tokens != nil {
		stored, err := s.tokens.GetRefresh(ctx, claims.UserID)
		switch {
		case errors.Is(err, redis.ErrTokenNotFound):
			return nil, pkg.Unauthorized("session ended, log in again")
		case err != nil:
			return nil, pkg.Unavailable(err)
		case stored != refreshToken:
			s.log.WithField("user_id", claims.UserID).Warn("stale refresh token presented")
			return nil, pkg.Unauthorized("refresh token no longer valid")
		}
	}
	return s.issuePair(ctx, claims.UserID)
}

func (s *UserService) Logout(ctx context.Context, userID uint64) error {
	if s.tokens == nil {
		return nil
	}
	if err := s.tokens.Delete(ctx, userID); err != nil {
		return pkg.Unavailable(err)
	}
	return nil
}

// Authenticate validates an access token and, with a token store, that it is the user's current one.
func (s *UserService) Authenticate(ctx context.Context, token string) (uint64, error) {
	claims, err := s.issuer.ParseAccess(token)
	if err != nil {
		if errors.Is(err, pkg.ErrTokenExpired) {
			return 0, pkg.Unauthorized("token expired")
		}
		return 0, pkg.Unauthorized("invalid token")
	}
	if s.tokens == nil {
		return claims.UserID, nil
	}

	stored, err := s.tokens.Get(ctx, claims.UserID)
	switch {
	case errors.Is(err, redis.ErrTokenNotFound):
		return 0, pkg.Unauthorized("session ended, log in again")
	case err != nil:
		return 0, pkg.Unavailable(err)
	case stored != token:
		return 0, pkg.Unauthorized("session replaced by a newer login")
	}
	return claims.UserID, nil
}

func (s *UserService) Profile(ctx context.Context, userID uint64) (*model.Profile, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.profile(user), nil
}

func (s *UserService) SendVerificationCode(ctx context.Context, userID uint64) error {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	return s.email.SendVerification(ctx, user)
}

func (s *UserService) VerifyEmail(ctx context.Context, userID uint64, code string) (*model.Profile, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, pkg.InvalidInput("code is required")
	}
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.EmailVerified {
		return s.profile(user), nil
	}
	if err := s.email.Verify(ctx, user.Email, code); err != nil {
		return nil, err
	}
	if err := s.repo.MarkEmailVerified(ctx, userID); err != nil {
		return nil, err
	}
	user.EmailVerified = true
	return s.profile(user), nil
}

// UpdatePhoto stores an uploaded JPEG, PNG or WebP image as the user's profile photo.
func (s *UserService) UpdatePhoto(ctx context.Context, userID uint64, src io.Reader, size int64) (*model.Profile, error) {
	if size <= 0 {
		return nil, pkg.InvalidInput("photo is empty")
	}
	if s.photos.MaxBytes > 0 && size > s.photos.MaxBytes {
		return nil, pkg.InvalidInput("photo is too large")
	}

	head := make([]byte, 512)
	n, err := io.ReadFull(src, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, pkg.InvalidInput("could not read photo")
	}
	head = head[:n]
	ext, ok := photoTypes[http.DetectContentType(head)]
	if !ok {
		return nil, pkg.InvalidInput("photo must be a JPEG, PNG or WebP image")
	}

	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	name := uuid.NewString() + ext
	dir := filepath.Join(s.photos.UploadDir, profilePhotoDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, pkg.Internal(err)
	}
	dst := filepath.Join(dir, name)
	f, err := os.Create(dst)
	if err != nil {
		return nil, pkg.Internal(err)
	}
	_, err = io.Copy(f, io.MultiReader(bytes.NewReader(head), src))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(dst)
		return nil, pkg.Internal(err)
	}

	ref := path.Join(UploadURLPrefix, profilePhotoDir, name)
	if err := s.repo.UpdatePhoto(ctx, userID, ref); err != nil {
		_ = os.Remove(dst)
		return nil, err
	}
	s.removeOldPhoto(user.Photo)

	user.Photo = &ref
	s.log.WithField("user_id", userID).Info("profile photo updated")
	return s.profile(user), nil
}

func (s *UserService) removeOldPhoto(old *string) {
	if old == nil {
		return
	}
	prefix := UploadURLPrefix + "/" + profilePhotoDir + "/"
	if !strings.HasPrefix(*old, prefix) {
		return
	}
	p := filepath.Join(s.photos.UploadDir, profilePhotoDir, filepath.Base(*old))
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		s.log.WithError(err).Warn("old photo not removed")
	}
}
