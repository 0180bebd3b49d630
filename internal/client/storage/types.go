package storage

import "github.com/atinyakov/HorosCase/internal/models"

// AuthResponse is returned by verify-code and login.
type AuthResponse struct {
	Token string         `json:"token"`
	User  models.Profile `json:"user"`
}

// OpenResult is the outcome of opening a case.
type OpenResult struct {
	Item         models.InventoryItem `json:"item"`
	BalanceCents int64                `json:"balanceCents"`
}

// SellResult is the outcome of selling an item.
type SellResult struct {
	ItemID       string `json:"itemId"`
	CreditCents  int64  `json:"creditCents"`
	BalanceCents int64  `json:"balanceCents"`
}

// APIError is a non-2xx response from the server.
type APIError struct {
	Status  int
	Message string
	Fields  map[string]string
}

func (e *APIError) Error() string {
	if len(e.Fields) > 0 {
		return e.Message + formatFields(e.Fields)
	}
	return e.Message
}
