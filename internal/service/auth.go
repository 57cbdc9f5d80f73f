package service

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"golang.org/x/crypto/bcrypt"

	"github.com/totegamma/where/internal/domain"
)

var tracer = otel.Tracer("auth")

const defaultTokenTTL = 30 * 24 * time.Hour

type AuthService struct {
	config domain.AuthConfig
	now    func() time.Time
}

func NewAuthService(config domain.AuthConfig) *AuthService {
	if config.TokenTTL <= 0 {
		config.TokenTTL = defaultTokenTTL
	}
	return &AuthService{config: config, now: time.Now}
}

type AuthResult struct {
	UserID   string
	Username string
}

type claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

func (s *AuthService) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func (s *AuthService) CheckPassword(hash, password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

func (s *AuthService) IssueToken(user domain.User) (string, error) {
	if s.config.Secret == "" {
		return "", fmt.Errorf("jwt secret not configured")
	}
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.config.TokenTTL)),
		},
	})
	return token.SignedString([]byte(s.config.Secret))
}

func (s *AuthService) AuthJwt(ctx context.Context, token string) (*AuthResult, error) {
	ctx, span := tracer.Start(ctx, "Auth.Service.AuthJwt")
	defer span.End()

	var c claims
	parsed, err := jwt.ParseWithClaims(token, &c, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(s.config.Secret), nil
	},
		jwt.WithIssuer(s.config.Issuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !parsed.Valid {
		span.RecordError(errors.Wrap(err, "jwt validation failed"))
		return nil, domain.ErrUnauthorized
	}

	if c.Subject == "" {
		span.RecordError(fmt.Errorf("missing subject"))
		return nil, domain.ErrUnauthorized
	}

	return &AuthResult{UserID: c.Subject, Username: c.Username}, nil
}
