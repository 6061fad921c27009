package models

import "time"

type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// User is a wallet-keyed account record, created lazily on first login.
// The role is assigned once at creation and never mutated afterwards.
type User struct {
	WalletAddress string    `json:"wallet_address"`
	Role          Role      `json:"role"`
	CreatedAt     time.Time `json:"created_at"`
}
