package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"budget/internal/allocation"
	"budget/internal/domain"
)

// statusFor maps a service error to an HTTP status and a message safe to show.
func statusFor(err error) (int, string) {
	var be *domain.BudgetExceededError
	switch {
	case errors.As(err, &be):
		return http.StatusConflict, fmt.Sprintf("That would exceed your %s budget. You have %s left to allocate.",
			allocation.FormatGBP(be.Budget), allocation.FormatGBP(max(be.Remaining, 0)))
	case errors.Is(err, domain.ErrInvalidAmount):
		return http.StatusUnprocessableEntity, "Amounts must be whole, non-negative numbers of pounds."
	case errors.Is(err, domain.ErrInvalidEmail):
		return http.StatusBadRequest, "Please enter a valid email address."
	case errors.Is(err, domain.ErrNotAllowed):
		return http.StatusForbidden, "This email address is not on the list of invited participants."
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests, "Too many sign-in links were requested for this address. Please wait before trying again."
	case errors.Is(err, domain.ErrInvalidToken):
		return http.StatusBadRequest, "This sign-in link is not valid. Please request a new one."
	case errors.Is(err, domain.ErrTokenExpired):
		return http.StatusUnauthorized, "This sign-in link has expired. Please request a new one."
	case errors.Is(err, domain.ErrTokenAlreadyUsed):
		return http.StatusConflict, "This sign-in link has already been used. Please request a new one."
	case errors.Is(err, domain.ErrUnknownProject), errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "That project does not exist."
	default:
		return http.StatusInternalServerError, "Something went wrong while saving your changes. Please try again."
	}
}
