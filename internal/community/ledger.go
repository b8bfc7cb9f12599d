package community

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"communities.ooo/internal/apperr"
	"communities.ooo/internal/identity"
	"communities.ooo/internal/ids"
	"communities.ooo/internal/ledger"
	"communities.ooo/internal/obs"
	"communities.ooo/internal/store"
	"communities.ooo/internal/stream"
)

// isController asks the external controller list about principal. It runs
// without the service lock and may block.
func (s *Service) isController(ctx context.Context, principal identity.Principal) (bool, error) {
	if principal.IsAnonymous() {
		return false, nil
	}
	return s.controllers.IsController(ctx, principal)
}

// Mint creates tokens. Controllers and admins may mint.
func (s *Service) Mint(ctx context.Context, principal identity.Principal, args []ledger.MintArg) ([]ledger.Result, error) {
	return s.runBatch(ctx, principal, ledger.KindMint, func(now time.Time, caller ledger.Caller) []ledger.Result {
		return s.led.MintBatch(now, caller, args)
	})
}

// Transfer moves tokens out of the caller's accounts.
func (s *Service) Transfer(ctx context.Context, principal identity.Principal, args []ledger.TransferArg) ([]ledger.Result, error) {
	return s.runBatch(ctx, principal, ledger.KindTransfer, func(now time.Time, caller ledger.Caller) []ledger.Result {
		return s.led.TransferBatch(now, caller, args)
	})
}

// Burn destroys tokens held by the caller's accounts.
func (s *Service) Burn(ctx context.Context, principal identity.Principal, args []ledger.BurnArg) ([]ledger.Result, error) {
	return s.runBatch(ctx, principal, ledger.KindBurn, func(now time.Time, caller ledger.Caller) []ledger.Result {
		return s.led.BurnBatch(now, caller, args)
	})
}

// runBatch executes a ledger batch in two phases. The controller check runs
// first with no lock held. The batch itself then runs under the write lock,
// where the ledger re-checks every state-dependent condition against the
// state current at that point; nothing observed before the suspension is
// reused except the controller answer.
func (s *Service) runBatch(ctx context.Context, principal identity.Principal, kind ledger.Kind, run func(time.Time, ledger.Caller) []ledger.Result) ([]ledger.Result, error) {
	ctrl, err := s.isController(ctx, principal)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		results   []ledger.Result
		committed []ledger.Transaction
	)
	counts, _ := s.write(func() error {
		caller := ledger.Caller{
			Principal:  principal,
			Privileged: ctrl || s.isAdmin(principal),
		}
		results = run(s.clock(), caller)
		for _, r := range results {
			if r.OK() {
				tx, ok := s.led.Transaction(r.ID)
				if !ok {
					panic("community: committed transaction missing from log")
				}
				committed = append(committed, tx)
			}
		}
		return nil
	})

	s.afterCommit(ctx, kind, results, committed, counts)
	return results, nil
}

// afterCommit syncs the controller list, publishes events and records
// metrics. Controller sync failures are logged and never rolled back.
func (s *Service) afterCommit(ctx context.Context, kind ledger.Kind, results []ledger.Result, committed []ledger.Transaction, counts store.Counts) {
	var batchErr *apperr.BatchError
	if len(results) > 0 && errors.As(results[0].Err, &batchErr) {
		obs.ObserveBatchRejected(string(kind))
		s.log.WithFields(logrus.Fields{"kind": kind, "reason": batchErr.Reason.Error()}).Warn("ledger batch rejected")
		return
	}
	for _, r := range results {
		obs.ObserveLedgerItem(string(kind), outcome(r.Err))
	}
	for _, tx := range committed {
		if err := s.syncControllers(ctx, tx); err != nil {
			s.log.WithError(err).WithFields(logrus.Fields{"tx": tx.ID, "kind": tx.Kind}).Error("controller sync failed")
		}
		s.publish(eventType(tx.Kind), tx)
		s.record(ctx, "ledger."+string(tx.Kind), map[string]any{
			"tx":       tx.ID,
			"token_id": tx.TokenID.String(),
			"from":     tx.From.String(),
			"to":       tx.To.String(),
		})
	}
	if len(committed) > 0 {
		s.publishCounts(counts)
	}
}

func (s *Service) syncControllers(ctx context.Context, tx ledger.Transaction) error {
	switch tx.Kind {
	case ledger.KindMint:
		return s.controllers.Add(ctx, tx.To.Owner)
	case ledger.KindTransfer:
		return s.controllers.Replace(ctx, tx.From.Owner, tx.To.Owner)
	case ledger.KindBurn:
		return s.controllers.Remove(ctx, tx.From.Owner)
	}
	return nil
}

func eventType(k ledger.Kind) string {
	switch k {
	case ledger.KindMint:
		return stream.TokenMinted
	case ledger.KindTransfer:
		return stream.TokenMoved
	}
	return stream.TokenBurned
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return apperr.Code(err)
}

// Metadata describes the token collection.
func (s *Service) Metadata() ledger.Metadata {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.led.Metadata()
}

func (s *Service) OwnerOf(tokenIDs []ids.TokenID) ([]*identity.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.led.OwnerOf(tokenIDs)
}

func (s *Service) BalanceOf(accounts []identity.Account) ([]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.led.BalanceOf(accounts)
}

func (s *Service) TokenMetadata(tokenIDs []ids.TokenID) ([]*ledger.TokenInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.led.TokenMetadata(tokenIDs)
}

// Tokens pages through live token ids in ascending order.
func (s *Service) Tokens(cursor *ids.TokenID, limit int) ([]ids.TokenID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.led.Tokens(cursor, limit)
}

func (s *Service) TokensOf(account identity.Account, cursor *ids.TokenID, limit int) ([]ids.TokenID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.led.TokensOf(account, cursor, limit)
}

// Transactions lists log entries with ids above after. last is the id of the
// last entry returned, after itself when the page is empty.
func (s *Service) Transactions(after uint64, limit int) ([]ledger.Transaction, uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.led.Transactions(after, limit)
}
