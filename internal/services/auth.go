package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/yungbote/clearpath-backend/internal/platform/apierr"
	"github.com/yungbote/clearpath-backend/internal/platform/ctxutil"
	"github.com/yungbote/clearpath-backend/internal/platform/logger"
)

// JWTClaims are issued by the identity provider. Subject is the user uuid.
type JWTClaims struct {
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

type AuthService interface {
	// SetContextFromToken verifies the token, enrolls the user on first sight
	// and attaches RequestData to the returned context.
	SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error)
	IssueToken(userID uuid.UUID, email, name string, ttl time.Duration) (string, error)
}

type authService struct {
	log          *logger.Logger
	users        UserService
	jwtSecretKey []byte
}

func NewAuthService(log *logger.Logger, users UserService, jwtSecretKey string) AuthService {
	return &authService{
		log:          log.With("service", "AuthService"),
		users:        users,
		jwtSecretKey: []byte(jwtSecretKey),
	}
}

func (as *authService) IssueToken(userID uuid.UUID, email, name string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := JWTClaims{
		Email: email,
		Name:  name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(as.jwtSecretKey)
}

func (as *authService) SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return ctx, fmt.Errorf("missing token: %w", apierr.ErrUnauthorized)
	}
	if len(as.jwtSecretKey) == 0 {
		return ctx, errors.New("jwt secret not configured")
	}
	claims := &JWTClaims{}
	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return as.jwtSecretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil || !parsed.Valid {
		return ctx, fmt.Errorf("invalid or expired token: %w", apierr.ErrUnauthorized)
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil || userID == uuid.Nil {
		return ctx, fmt.Errorf("invalid subject in token: %w", apierr.ErrUnauthorized)
	}

	ctx = ctxutil.WithRequestData(ctx, &ctxutil.RequestData{UserID: userID})
	if _, err := as.users.EnsureUser(ctx, claims.Email, claims.Name); err != nil {
		as.log.Error("enroll user from token failed", "user_id", userID, "error", err)
		return ctx, err
	}
	return ctx, nil
}
