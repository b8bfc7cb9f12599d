// Package ledger implements the non-fungible token ledger of a community:
// mint, transfer and burn with their batch forms, duplicate detection over a
// sliding window, and the append-only transaction log.
//
// Tokens live in the entity store. Holding a token grants its holder's
// profile an admin role, which follows the token on transfer and is revoked
// on burn.
package ledger

import (
	"time"

	"communities.ooo/internal/identity"
	"communities.ooo/internal/store"
)

// Config carries the collection metadata and the ledger limits.
type Config struct {
	Principal            identity.Principal
	Symbol               string
	Name                 string
	Description          string
	Logo                 string
	TxWindow             time.Duration
	PermittedDrift       time.Duration
	MaxMemoSize          int
	MaxUpdateBatchSize   int
	MaxQueryBatchSize    int
	DefaultTake          int
	MaxTake              int
	SingleTokenPerHolder bool
}

func DefaultConfig() Config {
	return Config{
		Principal:            "communities",
		Symbol:               "COMM",
		Name:                 "Community Admin",
		TxWindow:             24 * time.Hour,
		PermittedDrift:       2 * time.Minute,
		MaxMemoSize:          32,
		MaxUpdateBatchSize:   32,
		MaxQueryBatchSize:    32,
		DefaultTake:          32,
		MaxTake:              32,
		SingleTokenPerHolder: true,
	}
}

// Ledger is not safe for concurrent use; callers serialize access together
// with the store it writes to.
type Ledger struct {
	cfg Config
	st  *store.Store
	log []Transaction
}

// New returns a ledger over st with an empty log.
func New(st *store.Store, cfg Config) *Ledger {
	return &Ledger{cfg: cfg, st: st}
}

// Restore returns a ledger over st continuing log.
func Restore(st *store.Store, cfg Config, log []Transaction) *Ledger {
	return &Ledger{cfg: cfg, st: st, log: append([]Transaction(nil), log...)}
}

func (l *Ledger) Config() Config { return l.cfg }

// BurnAccount receives burned tokens.
func (l *Ledger) BurnAccount() identity.Account {
	return identity.NewAccount(l.cfg.Principal, &identity.BurnSubaccount)
}

// Log returns a copy of the transaction log.
func (l *Ledger) Log() []Transaction {
	return append([]Transaction(nil), l.log...)
}

func (l *Ledger) append(tx Transaction) uint64 {
	tx.ID = uint64(len(l.log)) + 1
	tx.Op = tx.Kind.Op()
	l.log = append(l.log, tx)
	return tx.ID
}

// findDuplicate scans the log from the newest entry while entries are inside
// the dedup window and returns the id of a transfer identical to tx.
func (l *Ledger) findDuplicate(tx Transaction, since time.Time) (uint64, bool) {
	for i := len(l.log) - 1; i >= 0; i-- {
		e := l.log[i]
		if e.Timestamp.Before(since) {
			break
		}
		if e.Kind == KindTransfer && e.TokenID == tx.TokenID && e.From == tx.From &&
			e.To == tx.To && string(e.Memo) == string(tx.Memo) && e.Timestamp.Equal(tx.Timestamp) {
			return e.ID, true
		}
	}
	return 0, false
}
