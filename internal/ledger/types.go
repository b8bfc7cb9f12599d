package ledger

import (
	"fmt"
	"time"

	"communities.ooo/internal/apperr"
	"communities.ooo/internal/identity"
	"communities.ooo/internal/ids"
)

// Kind is the type of a logged transaction.
type Kind string

const (
	KindMint     Kind = "mint"
	KindTransfer Kind = "transfer"
	KindBurn     Kind = "burn"
)

// Op returns the block operation name of a transaction kind.
func (k Kind) Op() string {
	switch k {
	case KindMint:
		return "7mint"
	case KindTransfer:
		return "7xfer"
	case KindBurn:
		return "7burn"
	}
	return ""
}

// Transaction is one entry of the append-only log. IDs start at 1 and grow by
// one per entry.
type Transaction struct {
	ID        uint64           `json:"id"`
	Timestamp time.Time        `json:"timestamp"`
	Kind      Kind             `json:"kind"`
	Op        string           `json:"op"`
	TokenID   ids.TokenID      `json:"token_id"`
	From      identity.Account `json:"from"`
	To        identity.Account `json:"to"`
	Memo      []byte           `json:"memo,omitempty"`
	Meta      string           `json:"meta,omitempty"`
}

// MintArg describes one token to create.
type MintArg struct {
	To          identity.Account
	TokenID     *ids.TokenID
	Name        string
	Description string
	Logo        string
	Memo        []byte
}

// TransferArg moves a token from the caller's account to To.
type TransferArg struct {
	FromSubaccount *identity.Subaccount
	To             identity.Account
	TokenID        ids.TokenID
	Memo           []byte
	CreatedAt      *time.Time
}

// BurnArg destroys a token held by the caller's account.
type BurnArg struct {
	FromSubaccount *identity.Subaccount
	TokenID        ids.TokenID
	Memo           []byte
}

// TokenInfo is the public metadata of a live token.
type TokenInfo struct {
	ID          ids.TokenID      `json:"id"`
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	Logo        string           `json:"logo,omitempty"`
	Holder      identity.Account `json:"holder"`
	MintedAt    time.Time        `json:"minted_at"`
}

// Result is the outcome of one batch slot: a transaction id or an error.
type Result struct {
	ID  uint64
	Err error
}

func (r Result) OK() bool { return r.Err == nil }

// Caller is who submits a batch. Privileged is true when the caller passed
// the ledger administration check.
type Caller struct {
	Principal  identity.Principal
	Privileged bool
}

var (
	ErrNonExistingTokenID = fmt.Errorf("%w: token id does not exist", apperr.ErrNotFound)
	ErrInvalidRecipient   = fmt.Errorf("%w: recipient equals sender", apperr.ErrInvalid)
	ErrNotHolder          = fmt.Errorf("%w: caller does not hold the token", apperr.ErrUnauthorized)
	ErrTooOld             = fmt.Errorf("%w: created_at_time too old", apperr.ErrInvalid)
	ErrCreatedInFuture    = fmt.Errorf("%w: created_at_time in the future", apperr.ErrInvalid)
	ErrMemoTooLong        = fmt.Errorf("%w: memo exceeds max length", apperr.ErrInvalid)
	ErrAlreadyHeld        = fmt.Errorf("%w: recipient already holds a token", apperr.ErrAlreadyExists)
	ErrTokenIDExists      = fmt.Errorf("%w: token id already exists", apperr.ErrAlreadyExists)
	ErrAnonymousCaller    = fmt.Errorf("%w: anonymous caller", apperr.ErrUnauthorized)
	ErrUnprivileged       = fmt.Errorf("%w: caller may not administer the ledger", apperr.ErrUnauthorized)
	ErrEmptyBatch         = fmt.Errorf("%w: no arguments provided", apperr.ErrInvalid)
	ErrBatchTooLarge      = fmt.Errorf("%w: too many arguments", apperr.ErrInvalid)
	ErrTakeTooLarge       = fmt.Errorf("%w: take exceeds maximum", apperr.ErrInvalid)
)

// CreatedInFutureError carries the ledger time a future-dated request was
// compared against.
type CreatedInFutureError struct {
	LedgerTime time.Time
}

func (e *CreatedInFutureError) Error() string {
	return fmt.Sprintf("created_at_time in the future (ledger time %s)", e.LedgerTime.Format(time.RFC3339Nano))
}

func (e *CreatedInFutureError) Unwrap() error { return ErrCreatedInFuture }
