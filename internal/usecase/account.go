package usecase

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	pkgerrors "github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/totegamma/where/internal/domain"
)

const minPasswordLength = 6

// SignupInput is an email sign-up request.
type SignupInput struct {
	Username     string `json:"username"`
	Password     string `json:"password"`
	ReferralCode string `json:"referralCode,omitempty"`
}

// Session is a signed-in user and their bearer token.
type Session struct {
	User  domain.User `json:"user"`
	Token string      `json:"token"`
}

type AccountUsecase struct {
	repo UserRepository
	auth Authenticator
	log  *zap.Logger
}

func NewAccountUsecase(repo UserRepository, auth Authenticator, log *zap.Logger) *AccountUsecase {
	if log == nil {
		log = zap.NewNop()
	}
	return &AccountUsecase{repo: repo, auth: auth, log: log}
}

// Signup creates an email account. A valid referral code records a referral
// for the code's owner.
func (uc *AccountUsecase) Signup(ctx context.Context, input SignupInput) (Session, error) {
	ctx, span := tracer.Start(ctx, "Account.Usecase.Signup")
	defer span.End()

	username := strings.TrimSpace(input.Username)
	if username == "" {
		return Session{}, domain.ValidationError{Field: "username", Reason: "must not be empty"}
	}
	if len(input.Password) < minPasswordLength {
		return Session{}, domain.ValidationError{Field: "password", Reason: "must be at least 6 characters"}
	}

	var referrerID *string
	if code := strings.TrimSpace(input.ReferralCode); code != "" {
		referrer, err := uc.repo.GetByReferralCode(ctx, code)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return Session{}, domain.ValidationError{Field: "referralCode", Reason: "unknown code"}
			}
			return Session{}, pkgerrors.Wrap(err, "lookup referral code")
		}
		referrerID = &referrer.ID
	}

	hash, err := uc.auth.HashPassword(input.Password)
	if err != nil {
		return Session{}, pkgerrors.Wrap(err, "hash password")
	}

	user := newUser(username, domain.AuthProviderEmail)
	err = uc.repo.Create(ctx, user, &domain.Credentials{UserID: user.ID, PasswordHash: hash}, referrerID)
	if err != nil {
		span.RecordError(err)
		return Session{}, err
	}

	uc.log.Info("user signed up", zap.String("id", user.ID), zap.Bool("referred", referrerID != nil))
	return uc.session(user)
}

func (uc *AccountUsecase) Login(ctx context.Context, username, password string) (Session, error) {
	ctx, span := tracer.Start(ctx, "Account.Usecase.Login")
	defer span.End()

	user, creds, err := uc.repo.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return Session{}, domain.ErrUnauthorized
		}
		return Session{}, pkgerrors.Wrap(err, "lookup user")
	}
	if creds.PasswordHash == "" || !uc.auth.CheckPassword(creds.PasswordHash, password) {
		return Session{}, domain.ErrUnauthorized
	}
	return uc.session(user)
}

// Guest creates an anonymous account without credentials.
func (uc *AccountUsecase) Guest(ctx context.Context) (Session, error) {
	ctx, span := tracer.Start(ctx, "Account.Usecase.Guest")
	defer span.End()

	user := newUser("", domain.AuthProviderGuest)
	user.Username = "guest-" + user.ID[:8]
	if err := uc.repo.Create(ctx, user, nil, nil); err != nil {
		span.RecordError(err)
		return Session{}, err
	}
	return uc.session(user)
}

func (uc *AccountUsecase) Get(ctx context.Context, id string) (domain.User, error) {
	return uc.repo.Get(ctx, id)
}

func (uc *AccountUsecase) session(user domain.User) (Session, error) {
	token, err := uc.auth.IssueToken(user)
	if err != nil {
		return Session{}, pkgerrors.Wrap(err, "issue token")
	}
	return Session{User: user, Token: token}, nil
}

func newUser(username string, provider domain.AuthProvider) domain.User {
	id := uuid.NewString()
	return domain.User{
		ID:           id,
		Username:     username,
		AuthProvider: provider,
		ReferralCode: strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8]),
	}
}
