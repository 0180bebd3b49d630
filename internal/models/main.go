// Package models defines the core data structures for users, cases,
// inventory items and the balance ledger.
package models

import (
	"fmt"
	"strings"
	"time"
)

// Role is the server-side authorization role of a user.
type Role string

const (
	// RolePlayer is the default role granted on registration.
	RolePlayer Role = "player"
	// RoleAdmin grants access to the /api/admin endpoints.
	RoleAdmin Role = "admin"
)

// User represents an application user with credentials and a balance.
type User struct {
	// ID is the unique identifier for the user.
	ID string
	// Email is the login e-mail, unique per user.
	Email string
	// Username is the public display name, unique per user.
	Username string
	// PasswordHash is the bcrypt hash of the user's password.
	PasswordHash []byte
	// BalanceCents is the spendable balance in minor units.
	BalanceCents int64
	// Role is checked on every privileged request.
	Role Role
	// CreatedAt is the registration time.
	CreatedAt time.Time
}

// Profile is the public view of a user returned by the API.
type Profile struct {
	Email        string `json:"email"`
	Username     string `json:"username"`
	BalanceCents int64  `json:"balanceCents"`
	Role         Role   `json:"role"`
}

// Profile returns the public view of u.
func (u User) Profile() Profile {
	return Profile{
		Email:        u.Email,
		Username:     u.Username,
		BalanceCents: u.BalanceCents,
		Role:         u.Role,
	}
}

// IsAdmin reports whether the user holds the admin role.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// PendingRegistration is a registration waiting for its e-mail code.
type PendingRegistration struct {
	Email        string
	Username     string
	PasswordHash []byte
	// CodeHash is the hex SHA-256 of the six-digit code.
	CodeHash  string
	Attempts  int
	ExpiresAt time.Time
}

// RewardTier is a named outcome of a case draw.
type RewardTier struct {
	// Name is the rarity, e.g. common, rare, epic, legendary.
	Name string `json:"name" yaml:"name" validate:"required"`
	// Weight is the percentage chance of this tier. Weights of a case sum to 100.
	Weight float64 `json:"weight" yaml:"weight" validate:"gt=0,lte=100"`
	// Value is the item's worth in minor units.
	Value int64 `json:"value" yaml:"value" validate:"gte=0"`
	// Item is the display name of the awarded item.
	Item string `json:"item,omitempty" yaml:"item"`
}

// Case is a purchasable box with a price and a reward-tier table.
type Case struct {
	ID          string       `json:"id" yaml:"id" validate:"required,max=64"`
	Name        string       `json:"name" yaml:"name" validate:"required"`
	Game        string       `json:"game" yaml:"game" validate:"required"`
	Price       int64        `json:"price" yaml:"price" validate:"gt=0"`
	Color       string       `json:"color,omitempty" yaml:"color" validate:"omitempty,hexcolor"`
	Icon        string       `json:"icon,omitempty" yaml:"icon"`
	Description string       `json:"description,omitempty" yaml:"description"`
	RewardTiers []RewardTier `json:"rewardTiers" yaml:"reward_tiers" validate:"required,dive"`
}

// Tradable tiers. Common items are kept but cannot be gifted.
var tradableTiers = map[string]bool{
	"rare":      true,
	"epic":      true,
	"legendary": true,
}

// IsTradableTier reports whether items of the tier may be gifted.
func IsTradableTier(tier string) bool {
	return tradableTiers[strings.ToLower(tier)]
}

// RareTiers lists the tiers matched by the "rare" inventory filter.
var RareTiers = []string{"rare", "epic", "legendary"}

// InventoryItem is an item owned by a user.
type InventoryItem struct {
	ID         string    `json:"id"`
	OwnerID    string    `json:"-"`
	CaseID     string    `json:"caseId"`
	ItemName   string    `json:"name"`
	Tier       string    `json:"tier"`
	Game       string    `json:"game"`
	ValueCents int64     `json:"valueCents"`
	Tradable   bool      `json:"tradable"`
	AcquiredAt time.Time `json:"acquiredAt"`
}

// LedgerKind identifies the kind of balance or ownership change.
type LedgerKind string

const (
	LedgerSignup  LedgerKind = "signup"
	LedgerDeposit LedgerKind = "deposit"
	LedgerOpen    LedgerKind = "open"
	LedgerSell    LedgerKind = "sell"
	LedgerGiftOut LedgerKind = "gift_out"
	LedgerGiftIn  LedgerKind = "gift_in"
)

// LedgerEntry is an immutable record of a balance or ownership change.
type LedgerEntry struct {
	ID     string     `json:"id"`
	UserID string     `json:"-"`
	Kind   LedgerKind `json:"kind"`
	// AmountCents is signed: negative for debits.
	AmountCents  int64     `json:"amountCents"`
	ItemID       string    `json:"itemId,omitempty"`
	ItemName     string    `json:"itemName,omitempty"`
	CaseID       string    `json:"caseId,omitempty"`
	Tier         string    `json:"tier,omitempty"`
	Counterparty string    `json:"counterparty,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Counter names kept in the counters table.
const (
	CounterCasesOpened = "cases_opened"
	CounterTraders     = "traders"
	CounterItemsSold   = "items_sold"
)

// Counters lists every resettable counter.
var Counters = []string{CounterCasesOpened, CounterTraders, CounterItemsSold}

// IsCounter reports whether name is a known counter.
func IsCounter(name string) bool {
	for _, c := range Counters {
		if c == name {
			return true
		}
	}
	return false
}

// Stats is the admin dashboard summary.
type Stats struct {
	CasesOpened int64     `json:"casesOpened"`
	Traders     int64     `json:"traders"`
	ItemsSold   int64     `json:"itemsSold"`
	Users       int64     `json:"users"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// TierFairness compares observed and expected draws of one tier.
type TierFairness struct {
	Name     string  `json:"name"`
	Weight   float64 `json:"weight"`
	Expected float64 `json:"expected"`
	Observed int64   `json:"observed"`
}

// FairnessReport is a chi-square goodness-of-fit of a case's draw history.
type FairnessReport struct {
	CaseID           string         `json:"caseId"`
	Draws            int64          `json:"draws"`
	Tiers            []TierFairness `json:"tiers"`
	ChiSquare        float64        `json:"chiSquare"`
	DegreesOfFreedom int            `json:"degreesOfFreedom"`
	PValue           float64        `json:"pValue"`
}

// InventoryFilter selects a subset of a user's inventory.
type InventoryFilter string

const (
	FilterAll      InventoryFilter = "all"
	FilterCSGO     InventoryFilter = "csgo"
	FilterDota2    InventoryFilter = "dota2"
	FilterRust     InventoryFilter = "rust"
	FilterRare     InventoryFilter = "rare"
	FilterTradable InventoryFilter = "tradable"
)

var filterGames = map[InventoryFilter]string{
	FilterCSGO:  "CS:GO",
	FilterDota2: "Dota 2",
	FilterRust:  "Rust",
}

// ParseInventoryFilter validates a filter name. The empty string means all.
func ParseInventoryFilter(s string) (InventoryFilter, error) {
	f := InventoryFilter(strings.ToLower(strings.TrimSpace(s)))
	switch f {
	case "":
		return FilterAll, nil
	case FilterAll, FilterCSGO, FilterDota2, FilterRust, FilterRare, FilterTradable:
		return f, nil
	}
	return "", fmt.Errorf("unknown inventory filter %q", s)
}

// Game returns the game a filter selects, or "" for non-game filters.
func (f InventoryFilter) Game() string {
	return filterGames[f]
}

// Match reports whether item passes the filter.
func (f InventoryFilter) Match(item InventoryItem) bool {
	switch f {
	case FilterRare:
		for _, t := range RareTiers {
			if strings.EqualFold(item.Tier, t) {
				return true
			}
		}
		return false
	case FilterTradable:
		return item.Tradable
	case FilterCSGO, FilterDota2, FilterRust:
		return item.Game == f.Game()
	}
	return true
}
