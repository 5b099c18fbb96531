package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Temutjin2k/room-compass/internal/domain/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

func TestIssueAndValidate(t *testing.T) {
	s := NewTokenService("secret", time.Hour)
	id := models.Identity{UserID: uuid.New()}

	token, err := s.Issue(context.Background(), id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := s.Validate(context.Background(), token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != id {
		t.Fatalf("identity mismatch: got %v want %v", got, id)
	}
}

func TestValidateRejectsForeignSecret(t *testing.T) {
	token, _ := NewTokenService("secret", time.Hour).Issue(context.Background(), models.Identity{UserID: uuid.New()})

	_, err := NewTokenService("other", time.Hour).Validate(context.Background(), token)
	if !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestValidateExpired(t *testing.T) {
	s := NewTokenService("secret", time.Minute)
	s.now = func() time.Time { return time.Now().Add(-time.Hour) }
	token, err := s.Issue(context.Background(), models.Identity{UserID: uuid.New()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	s.now = time.Now
	if _, err := s.Validate(context.Background(), token); !errors.Is(err, ErrExpToken) {
		t.Fatalf("expected ErrExpToken, got %v", err)
	}
}

func TestValidateWrongType(t *testing.T) {
	claims := jwt.MapClaims{
		"typ":     "refresh",
		"user_id": uuid.NewString(),
		"exp":     time.Now().Add(time.Hour).Unix(),
	}
	token, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))

	if _, err := NewTokenService("secret", time.Hour).Validate(context.Background(), token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestIssueEmptyIdentity(t *testing.T) {
	if _, err := NewTokenService("secret", time.Hour).Issue(context.Background(), models.Identity{}); err == nil {
		t.Fatalf("expected error for empty identity")
	}
}
