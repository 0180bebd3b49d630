package models

import "errors"

// Domain errors shared by repositories, services and handlers.
var (
	ErrUserNotFound         = errors.New("user not found")
	ErrUserExists           = errors.New("user already exists")
	ErrInvalidCredentials   = errors.New("invalid email or password")
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrCaseNotFound         = errors.New("case not found")
	ErrItemNotFound         = errors.New("item not found")
	ErrNotOwner             = errors.New("item does not belong to user")
	ErrNotTradable          = errors.New("item is not tradable")
	ErrSelfGift             = errors.New("cannot gift an item to yourself")
	ErrRegistrationNotFound = errors.New("no pending registration for email")
	ErrCodeExpired          = errors.New("verification code expired")
	ErrCodeInvalid          = errors.New("invalid verification code")
	ErrTooManyAttempts      = errors.New("too many verification attempts")
	ErrForbidden            = errors.New("forbidden")
	ErrUnknownCounter       = errors.New("unknown counter")
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrSessionRevoked       = errors.New("session revoked")
)
