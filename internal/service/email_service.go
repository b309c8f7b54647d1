package service

import (
	"context"
	"errors"

	"MiCiudadSV/internal/model"
	"MiCiudadSV/internal/pkg"

	"github.com/sirupsen/logrus"
)

const verificationCodeDigits = 6

type EmailService struct {
	codes  CodeStore
	mailer Mailer
	log    *logrus.Entry
}

// NewEmailService accepts nil codes or mailer; verification then reports ServiceUnavailable.
func NewEmailService(codes CodeStore, mailer Mailer) *EmailService {
	return &EmailService{codes: codes, mailer: mailer, log: logrus.WithField("component", "email")}
}

func (s *EmailService) enabled() bool {
	return s.codes != nil && s.mailer != nil
}

// SendVerification mails a fresh code; at most one per address per minute.
func (s *EmailService) SendVerification(ctx context.Context, user *model.User) error {
	if !s.enabled() {
		return pkg.Unavailable(errors.New("email verification is not configured"))
	}
	if user.EmailVerified {
		return pkg.Conflict("email already verified", nil)
	}

	ok, err := s.codes.Reserve(ctx, user.Email)
	if err != nil {
		return pkg.Unavailable(err)
	}
	if !ok {
		return pkg.RateLimited("a code was sent recently, try again in a minute")
	}

	code, err := pkg.RandDigits(verificationCodeDigits)
	if err != nil {
		return pkg.Internal(err)
	}
	if err := s.codes.Save(ctx, user.Email, code); err != nil {
		return pkg.Unavailable(err)
	}

	html := pkg.VerificationHTML(user.Name, code, s.codes.TTL())
	if err := s.mailer.Send(user.Email, "Código de verificación MiCiudadSV", html); err != nil {
		s.log.WithError(err).WithField("user_id", user.ID).Error("verification email failed")
		return pkg.Unavailable(err)
	}
	return nil
}

// Verify consumes the code; a code can be used once.
func (s *EmailService) Verify(ctx context.Context, email, code string) error {
	if !s.enabled() {
		return pkg.Unavailable(errors.New("email verification is not configured"))
	}
	found, ok, err := s.codes.Consume(ctx, email, code)
	if err != nil {
		return pkg.Unavailable(err)
	}
	if !found {
		return pkg.InvalidInput("verification code expired or was never requested")
	}
	if !ok {
		return pkg.InvalidInput("invalid verification code")
	}
	return nil
}
