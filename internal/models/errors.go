package models

import "errors"

var (
	ErrInvalidID            = errors.New("invalid id")
	ErrEventNotFound        = errors.New("event not found")
	ErrEventFull            = errors.New("event is full")
	ErrAlreadyBooked        = errors.New("already booked")
	ErrBookingNotFound      = errors.New("booking not found")
	ErrOrganizationNotFound = errors.New("organization not found")
	ErrNotMember            = errors.New("not a member of this organization")
	ErrProfileNotFound      = errors.New("profile not found")
	ErrNoChanges            = errors.New("no fields to update")
	ErrInvalidEvent         = errors.New("invalid event")
	ErrInvalidProfile       = errors.New("invalid profile")
	ErrInvalidCredentials   = errors.New("invalid email or password")
	ErrSessionExpired       = errors.New("session expired or revoked")
)
