package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"net/http"
	"strconv"
	"strings"

	"github.com/Temutjin2k/room-compass/internal/domain/models"
	t "github.com/Temutjin2k/room-compass/internal/domain/types"
	"github.com/Temutjin2k/room-compass/internal/service/auth"
	"github.com/Temutjin2k/room-compass/internal/service/live"
)

type envelope map[string]any

func writeJSON(w http.ResponseWriter, status int, data envelope, headers http.Header) error {
	js, err := json.MarshalIndent(data, "", "\t")
	if err != nil {
		return errors.New("failed to encode json")
	}

	js = append(js, '\n')

	maps.Copy(w.Header(), headers)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(js)

	return nil
}

func readJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	// Use http.MaxBytesReader() to limit the size of the request body to 1MB.
	maxBytes := 1_048_576
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxBytes))

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	// Decode the request body to the destination.
	if err := dec.Decode(dst); err != nil {
		var syntaxError *json.SyntaxError
		var unmarshalTypeError *json.UnmarshalTypeError
		var invalidUnmarshalError *json.InvalidUnmarshalError
		var maxBytesError *http.MaxBytesError

		switch {
		case errors.As(err, &syntaxError):
			return fmt.Errorf("body contains badly-formed JSON (at character %d)", syntaxError.Offset)
		case errors.Is(err, io.ErrUnexpectedEOF):
			return errors.New("body contains badly-formed JSON")
		case errors.As(err, &unmarshalTypeError):
			if unmarshalTypeError.Field != "" {
				return fmt.Errorf("body contains incorrect JSON type for field %q", unmarshalTypeError.Field)
			}
			return fmt.Errorf("body contains incorrect JSON type (at character %d)", unmarshalTypeError.Offset)
		case errors.Is(err, io.EOF):
			return errors.New("body must not be empty")
		// see https://github.com/golang/go/issues/29035 for a typed unknown field error
		case strings.HasPrefix(err.Error(), "json: unknown field "):
			fieldName := strings.TrimPrefix(err.Error(), "json: unknown field ")
			return fmt.Errorf("body contains unknown key %s", fieldName)
		case errors.As(err, &maxBytesError):
			return fmt.Errorf("body must not be larger than %d bytes", maxBytesError.Limit)
		case errors.As(err, &invalidUnmarshalError):
			return fmt.Errorf("invalid unmarshal error: %w", err)
		default:
			return err
		}
	}

	// A second value in the body is an error.
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errors.New("body must only contain a single JSON value")
	}

	return nil
}

func GetCode(err error) int {
	switch {
	case IsOneOf(err, t.ErrInvalidCoordinates, t.ErrInvalidRole, live.ErrInvalidPayload, live.ErrUnknownMessage):
		return http.StatusBadRequest
	case IsOneOf(err, auth.ErrInvalidToken, auth.ErrExpToken):
		return http.StatusUnauthorized
	case IsOneOf(err, t.ErrNotHost, t.ErrRoomLocked):
		return http.StatusForbidden
	case IsOneOf(err, t.ErrUserNotFound, t.ErrRoomNotFound, t.ErrNotFound):
		return http.StatusNotFound
	case IsOneOf(err, t.ErrNotInRoom, t.ErrRoomCodeTaken):
		return http.StatusConflict
	case IsOneOf(err, t.ErrIconTooLarge):
		return http.StatusRequestEntityTooLarge
	case IsOneOf(err, t.ErrIconStorageOff, t.ErrRoomCodeExhausted):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func IsOneOf(err error, targets ...error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// requireIdentity returns the caller identity or answers 401.
func requireIdentity(w http.ResponseWriter, r *http.Request) (models.Identity, bool) {
	id, ok := models.IdentityFromContext(r.Context())
	if !ok {
		errorResponse(w, http.StatusUnauthorized, "authorization required")
		return models.Identity{}, false
	}
	return id, true
}

// roomPass parses the {pass} path value.
func roomPass(r *http.Request) (int, error) {
	pass, err := strconv.Atoi(r.PathValue("pass"))
	if err != nil || pass < 1000 || pass > 9999 {
		return 0, errors.New("room code must be a 4 digit number")
	}
	return pass, nil
}
