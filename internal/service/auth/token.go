package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Temutjin2k/room-compass/internal/domain/models"
	wrap "github.com/Temutjin2k/room-compass/pkg/logger/wrapper"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const sessionTokenType = "session"

// TokenService signs and validates session tokens carrying a caller Identity.
type TokenService struct {
	secret string
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenService(secret string, ttl time.Duration) *TokenService {
	return &TokenService{
		secret: secret,
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue signs a token for id.
func (s *TokenService) Issue(ctx context.Context, id models.Identity) (string, error) {
	ctx = wrap.WithAction(ctx, "issue_token")
	if id.UserID == uuid.Nil {
		return "", wrap.Error(ctx, errors.New("empty identity"))
	}

	issuedAt := s.now().UTC()
	claims := jwt.MapClaims{
		"typ":     sessionTokenType,
		"jti":     uuid.NewString(),
		"user_id": id.UserID.String(),
		"iat":     issuedAt.Unix(),
		"exp":     issuedAt.Add(s.ttl).Unix(),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.secret))
	if err != nil {
		return "", wrap.Error(ctx, fmt.Errorf("%w: %v", ErrTokenGenerateFail, err))
	}
	return token, nil
}

// Validate parses token and returns the identity it carries.
func (s *TokenService) Validate(ctx context.Context, token string) (models.Identity, error) {
	ctx = wrap.WithAction(ctx, "validate_token")

	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrInvalidToken
		}
		return []byte(s.secret), nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return models.Identity{}, wrap.Error(ctx, ErrExpToken)
		}
		return models.Identity{}, wrap.Error(ctx, ErrInvalidToken)
	}
	if !parsed.Valid {
		return models.Identity{}, wrap.Error(ctx, ErrInvalidToken)
	}

	mc, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return models.Identity{}, wrap.Error(ctx, ErrInvalidToken)
	}

	if typ, _ := mc["typ"].(string); typ != sessionTokenType {
		return models.Identity{}, wrap.Error(ctx, ErrInvalidToken)
	}

	userIDStr, _ := mc["user_id"].(string)
	userID, err := uuid.Parse(userIDStr)
	if err != nil || userID == uuid.Nil {
		return models.Identity{}, wrap.Error(ctx, fmt.Errorf("%w: invalid 'user_id' in token claims", ErrInvalidToken))
	}

	return models.Identity{UserID: userID}, nil
}
