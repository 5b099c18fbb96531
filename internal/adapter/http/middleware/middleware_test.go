package middleware

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Temutjin2k/room-compass/internal/domain/models"
	"github.com/Temutjin2k/room-compass/pkg/logger"
	wrap "github.com/Temutjin2k/room-compass/pkg/logger/wrapper"
	"github.com/google/uuid"
)

type staticTokens map[string]uuid.UUID

func (s staticTokens) Validate(_ context.Context, token string) (models.Identity, error) {
	id, ok := s[token]
	if !ok {
		return models.Identity{}, errors.New("token is not valid")
	}
	return models.Identity{UserID: id}, nil
}

func newTestMiddleware(tokens staticTokens) *Middleware {
	return NewMiddleware(tokens, logger.New(io.Discard, "test", logger.LevelError))
}

func TestAuth(t *testing.T) {
	user := uuid.New()
	m := newTestMiddleware(staticTokens{"good": user})

	var seen *models.Identity
	h := m.Auth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = nil
		if id, ok := models.IdentityFromContext(r.Context()); ok {
			seen = &id
		}
		w.WriteHeader(http.StatusOK)
	}))

	cases := []struct {
		name   string
		header string
		query  string
		status int
		anon   bool
	}{
		{name: "anonymous", status: http.StatusOK, anon: true},
		{name: "bearer", header: "Bearer good", status: http.StatusOK},
		{name: "lowercase scheme", header: "bearer good", status: http.StatusOK},
		{name: "query token", query: "?token=good", status: http.StatusOK},
		{name: "bad token", header: "Bearer nope", status: http.StatusUnauthorized},
		{name: "bad query token", query: "?token=nope", status: http.StatusUnauthorized},
		{name: "malformed header", header: "Token good", status: http.StatusUnauthorized},
		{name: "empty bearer", header: "Bearer ", status: http.StatusUnauthorized},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			seen = nil
			req := httptest.NewRequest(http.MethodGet, "/x"+c.query, nil)
			if c.header != "" {
				req.Header.Set("Authorization", c.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != c.status {
				t.Fatalf("expected %d, got %d", c.status, rec.Code)
			}
			if c.status != http.StatusOK {
				return
			}
			if c.anon && seen != nil {
				t.Fatalf("anonymous request got identity %v", seen)
			}
			if !c.anon && (seen == nil || seen.UserID != user) {
				t.Fatalf("identity not set, got %v", seen)
			}
		})
	}
}

func TestRequireIdentity(t *testing.T) {
	m := newTestMiddleware(nil)
	h := m.RequireIdentity(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if rec.Header().Get("WWW-Authenticate") == "" {
		t.Fatalf("401 must carry a challenge")
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(models.WithIdentity(req.Context(), models.Identity{UserID: uuid.New()}))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
}

func TestRequestID(t *testing.T) {
	m := newTestMiddleware(nil)

	var inCtx string
	h := m.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		inCtx = wrap.GetRequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if inCtx != "abc" || rec.Header().Get(RequestIDHeader) != "abc" {
		t.Fatalf("request id not reused: ctx %q header %q", inCtx, rec.Header().Get(RequestIDHeader))
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if _, err := uuid.Parse(inCtx); err != nil {
		t.Fatalf("expected a generated uuid, got %q", inCtx)
	}
	if rec.Header().Get(RequestIDHeader) != inCtx {
		t.Fatalf("generated id not echoed")
	}
}

func TestRecover(t *testing.T) {
	m := newTestMiddleware(nil)
	h := m.Recover(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if rec.Header().Get("Connection") != "close" {
		t.Fatalf("connection must be closed after a panic")
	}
}
