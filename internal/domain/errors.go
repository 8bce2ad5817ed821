package domain

import "errors"

var (
	ErrInvalidConstruction = errors.New("invalid account construction")
	ErrInvalidAmount       = errors.New("amount must be positive")
	ErrInsufficientFunds   = errors.New("insufficient funds")
)
