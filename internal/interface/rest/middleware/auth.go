package middleware

import (
	"context"
	"fmt"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/totegamma/where/internal/domain"
	"github.com/totegamma/where/internal/service"
)

var tracer = otel.Tracer("auth")

type AuthMiddleware struct {
	auth *service.AuthService
}

func NewAuthMiddleware(auth *service.AuthService) *AuthMiddleware {
	return &AuthMiddleware{auth: auth}
}

// IdentifyIdentity puts the requester of a valid bearer token into the request
// context. Requests without one pass through anonymously.
func (s *AuthMiddleware) IdentifyIdentity(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, span := tracer.Start(c.Request().Context(), "Auth.Middleware.IdentifyIdentity")
		defer span.End()

		authHeader := c.Request().Header.Get("authorization")
		if authHeader != "" {
			authType, token, ok := strings.Cut(authHeader, " ")
			switch {
			case !ok:
				span.RecordError(fmt.Errorf("invalid authentication header"))
			case authType != "Bearer":
				span.RecordError(fmt.Errorf("only Bearer is acceptable"))
			default:
				result, err := s.auth.AuthJwt(ctx, token)
				if err != nil {
					span.RecordError(errors.Wrap(err, "AuthMiddleware.IdentifyIdentity: s.auth.AuthJwt failed"))
					break
				}
				ctx = context.WithValue(ctx, domain.RequesterIdCtxKey, result.UserID)
				ctx = context.WithValue(ctx, domain.RequesterUsernameCtxKey, result.Username)
				span.SetAttributes(attribute.String("RequesterId", result.UserID))
			}
		}

		c.SetRequest(c.Request().WithContext(ctx))
		return next(c)
	}
}
