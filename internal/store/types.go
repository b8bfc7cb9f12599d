package store

import (
	"time"

	"communities.ooo/internal/identity"
	"communities.ooo/internal/ids"
)

// Status is the moderation state of a post or reply.
type Status string

const (
	StatusVisible Status = "visible"
	StatusHidden  Status = "hidden"
)

// RoleKind names a privilege.
type RoleKind string

const RoleAdmin RoleKind = "admin"

// Profile is the community-facing record of one verified identity.
type Profile struct {
	ID              uint64
	Name            string
	Description     string
	Authentication  identity.Authentication
	ActivePrincipal identity.Principal
	CreatedAt       time.Time
	LastSeenAt      time.Time
}

type Post struct {
	ID          uint64    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	Status      Status    `json:"status"`
}

type Reply struct {
	ID        uint64    `json:"id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
	Status    Status    `json:"status"`
}

// Role is a privilege granted to the profile linked to it. Admin roles are
// bound to the ledger token that confers them.
type Role struct {
	ID        uint64      `json:"id"`
	Kind      RoleKind    `json:"kind"`
	TokenID   ids.TokenID `json:"token_id"`
	GrantedAt time.Time   `json:"granted_at"`
}

// Like records one profile liking one post or reply.
type Like struct {
	ID        uint64    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

// Token is a non-fungible ledger token. It always has exactly one holder.
type Token struct {
	ID          ids.TokenID      `json:"id"`
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	Logo        string           `json:"logo,omitempty"`
	Holder      identity.Account `json:"holder"`
	MintedAt    time.Time        `json:"minted_at"`
	RoleID      uint64           `json:"role_id"`
}

type likeKey struct {
	Profile uint64
	Target  uint64
}
