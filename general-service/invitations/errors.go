package invitations

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

var (
	ErrUnauthenticated  = errors.New("unauthenticated")
	ErrForbidden        = errors.New("not allowed to invite to this project")
	ErrIdentityMismatch = errors.New("invitation was issued to a different email")
	ErrNotFound         = errors.New("not found")
	ErrAlreadyAccepted  = errors.New("invitation already accepted")
	ErrAlreadyMember    = errors.New("user is already a member of the project")
	ErrExpired          = errors.New("invitation expired")
	ErrInvalidRole      = errors.New("invalid role")
)

// StatusCode maps engine errors onto HTTP statuses.
func StatusCode(err error) int {
	switch {
	case err == nil:
		return fiber.StatusOK
	case errors.Is(err, ErrUnauthenticated):
		return fiber.StatusUnauthorized
	case errors.Is(err, ErrForbidden), errors.Is(err, ErrIdentityMismatch):
		return fiber.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, ErrAlreadyAccepted), errors.Is(err, ErrAlreadyMember):
		return fiber.StatusConflict
	case errors.Is(err, ErrExpired):
		return fiber.StatusGone
	case errors.Is(err, ErrInvalidRole):
		return fiber.StatusBadRequest
	default:
		return fiber.StatusInternalServerError
	}
}
