package ledger

import (
	"fmt"
	"time"

	"communities.ooo/internal/apperr"
	"communities.ooo/internal/identity"
	"communities.ooo/internal/ids"
	"communities.ooo/internal/store"
)

// checkBatch applies the conditions that reject a batch as a whole.
func (l *Ledger) checkBatch(n int, caller Caller) error {
	switch {
	case n == 0:
		return &apperr.BatchError{Reason: ErrEmptyBatch}
	case n > l.cfg.MaxUpdateBatchSize:
		return &apperr.BatchError{Reason: ErrBatchTooLarge}
	case caller.Principal.IsAnonymous():
		return &apperr.BatchError{Reason: ErrAnonymousCaller}
	case !caller.Privileged:
		return &apperr.BatchError{Reason: ErrUnprivileged}
	}
	return nil
}

func rejectAll(n int, err error) []Result {
	if n == 0 {
		n = 1
	}
	out := make([]Result, n)
	for i := range out {
		out[i].Err = err
	}
	return out
}

func (l *Ledger) checkMemo(memo []byte) error {
	if len(memo) > l.cfg.MaxMemoSize {
		return ErrMemoTooLong
	}
	return nil
}

// holdsToken reports whether the profile behind principal already holds a
// token-bound role, or the account itself holds a token.
func (l *Ledger) holdsToken(to identity.Account) bool {
	if l.st.BalanceOf(to) > 0 {
		return true
	}
	p, err := l.st.ProfileByPrincipal(to.Owner)
	if err != nil {
		return false
	}
	for _, r := range l.st.RolesOf(p.ID) {
		if r.Kind == store.RoleAdmin {
			return true
		}
	}
	return false
}

// MintBatch mints every arg in order. Batch-level failures reject every slot
// without touching state; per-item failures only fail their own slot.
func (l *Ledger) MintBatch(now time.Time, caller Caller, args []MintArg) []Result {
	if err := l.checkBatch(len(args), caller); err != nil {
		return rejectAll(len(args), err)
	}
	out := make([]Result, len(args))
	for i, arg := range args {
		id, err := l.mint(now, caller, arg)
		out[i] = Result{ID: id, Err: err}
	}
	return out
}

func (l *Ledger) mint(now time.Time, caller Caller, arg MintArg) (uint64, error) {
	if err := l.checkMemo(arg.Memo); err != nil {
		return 0, err
	}
	if arg.To.Owner.IsAnonymous() {
		return 0, ErrInvalidRecipient
	}
	if l.cfg.SingleTokenPerHolder && l.holdsToken(arg.To) {
		return 0, ErrAlreadyHeld
	}
	var tokenID ids.TokenID
	if arg.TokenID != nil {
		if l.st.TokenIDTaken(*arg.TokenID) {
			return 0, ErrTokenIDExists
		}
		tokenID = *arg.TokenID
	} else {
		// explicit ids may have claimed values the generator has not reached yet
		tokenID = l.st.NextTokenID()
		for l.st.TokenIDTaken(tokenID) {
			tokenID = l.st.NextTokenID()
		}
	}

	// every check has passed; nothing below may fail
	profile := l.st.EnsureProfile(arg.To.Owner, now)
	role, err := l.st.GrantRole(profile.ID, store.RoleAdmin, tokenID, now)
	if err != nil {
		panic(fmt.Sprintf("ledger: grant role to fresh profile: %v", err))
	}
	name := arg.Name
	if name == "" {
		name = fmt.Sprintf("%s #%s", l.cfg.Symbol, tokenID)
	}
	tok := store.Token{
		ID:          tokenID,
		Name:        name,
		Description: arg.Description,
		Logo:        arg.Logo,
		Holder:      arg.To,
		MintedAt:    now,
		RoleID:      role.ID,
	}
	if err := l.st.PutToken(tok); err != nil {
		panic(fmt.Sprintf("ledger: put checked token: %v", err))
	}
	return l.append(Transaction{
		Timestamp: now,
		Kind:      KindMint,
		TokenID:   tokenID,
		From:      identity.NewAccount(caller.Principal, nil),
		To:        arg.To,
		Memo:      arg.Memo,
		Meta:      name,
	}), nil
}

// TransferBatch transfers every arg in order from the caller's accounts.
func (l *Ledger) TransferBatch(now time.Time, caller Caller, args []TransferArg) []Result {
	if err := l.checkBatch(len(args), caller); err != nil {
		return rejectAll(len(args), err)
	}
	out := make([]Result, len(args))
	for i, arg := range args {
		id, err := l.transfer(now, caller, arg)
		out[i] = Result{ID: id, Err: err}
	}
	return out
}

func (l *Ledger) checkTransfer(now time.Time, caller Caller, arg TransferArg) (Transaction, error) {
	from := identity.NewAccount(caller.Principal, arg.FromSubaccount)
	tx := Transaction{
		Timestamp: now,
		Kind:      KindTransfer,
		TokenID:   arg.TokenID,
		From:      from,
		To:        arg.To,
		Memo:      arg.Memo,
	}
	tok, err := l.st.Token(arg.TokenID)
	if err != nil {
		return tx, ErrNonExistingTokenID
	}
	if arg.To == from {
		return tx, ErrInvalidRecipient
	}
	if err := l.checkMemo(arg.Memo); err != nil {
		return tx, err
	}
	if arg.CreatedAt != nil {
		since := now.Add(-l.cfg.TxWindow - l.cfg.PermittedDrift)
		if arg.CreatedAt.Before(since) {
			return tx, ErrTooOld
		}
		if arg.CreatedAt.After(now.Add(l.cfg.PermittedDrift)) {
			return tx, &CreatedInFutureError{LedgerTime: now}
		}
		tx.Timestamp = *arg.CreatedAt
		if id, dup := l.findDuplicate(tx, since); dup {
			return tx, &apperr.DuplicateError{Of: id}
		}
	}
	if tok.Holder != from {
		return tx, ErrNotHolder
	}
	if arg.To.Owner.IsAnonymous() {
		return tx, ErrInvalidRecipient
	}
	if l.cfg.SingleTokenPerHolder && l.holdsToken(arg.To) {
		return tx, ErrAlreadyHeld
	}
	return tx, nil
}

func (l *Ledger) transfer(now time.Time, caller Caller, arg TransferArg) (uint64, error) {
	tx, err := l.checkTransfer(now, caller, arg)
	if err != nil {
		return 0, err
	}
	tok, _ := l.st.Token(arg.TokenID)
	if err := l.st.SetHolder(arg.TokenID, arg.To); err != nil {
		panic(fmt.Sprintf("ledger: move checked token: %v", err))
	}
	recipient := l.st.EnsureProfile(arg.To.Owner, now)
	if err := l.st.MoveRole(tok.RoleID, recipient.ID); err != nil {
		panic(fmt.Sprintf("ledger: move role of token %s: %v", tok.ID, err))
	}
	return l.append(tx), nil
}

// BurnBatch burns every arg in order.
func (l *Ledger) BurnBatch(now time.Time, caller Caller, args []BurnArg) []Result {
	if err := l.checkBatch(len(args), caller); err != nil {
		return rejectAll(len(args), err)
	}
	out := make([]Result, len(args))
	for i, arg := range args {
		id, err := l.burn(now, caller, arg)
		out[i] = Result{ID: id, Err: err}
	}
	return out
}

func (l *Ledger) burn(now time.Time, caller Caller, arg BurnArg) (uint64, error) {
	if err := l.checkMemo(arg.Memo); err != nil {
		return 0, err
	}
	tok, err := l.st.Token(arg.TokenID)
	if err != nil {
		return 0, ErrNonExistingTokenID
	}
	from := identity.NewAccount(caller.Principal, arg.FromSubaccount)
	if tok.Holder != from {
		return 0, ErrNotHolder
	}
	if _, err := l.st.BurnToken(arg.TokenID, now); err != nil {
		panic(fmt.Sprintf("ledger: burn checked token: %v", err))
	}
	if err := l.st.RevokeRole(tok.RoleID); err != nil {
		panic(fmt.Sprintf("ledger: revoke role of token %s: %v", tok.ID, err))
	}
	return l.append(Transaction{
		Timestamp: now,
		Kind:      KindBurn,
		TokenID:   arg.TokenID,
		From:      from,
		To:        l.BurnAccount(),
		Memo:      arg.Memo,
	}), nil
}
