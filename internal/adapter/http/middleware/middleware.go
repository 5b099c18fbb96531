package middleware

import (
	"context"

	"github.com/Temutjin2k/room-compass/internal/domain/models"
	"github.com/Temutjin2k/room-compass/pkg/logger"
)

type (
	TokenValidator interface {
		Validate(ctx context.Context, token string) (models.Identity, error)
	}

	Middleware struct {
		tokens TokenValidator
		log    logger.Logger
	}
)

func NewMiddleware(tokens TokenValidator, log logger.Logger) *Middleware {
	return &Middleware{
		tokens: tokens,
		log:    log,
	}
}
