package ledger

import (
	"communities.ooo/internal/identity"
	"communities.ooo/internal/ids"
)

// Metadata describes the collection.
type Metadata struct {
	Symbol                string   `json:"symbol"`
	Name                  string   `json:"name"`
	Description           string   `json:"description,omitempty"`
	Logo                  string   `json:"logo,omitempty"`
	TotalSupply           int      `json:"total_supply"`
	MaxMemoSize           int      `json:"max_memo_size"`
	MaxUpdateBatchSize    int      `json:"max_update_batch_size"`
	MaxQueryBatchSize     int      `json:"max_query_batch_size"`
	DefaultTakeValue      int      `json:"default_take_value"`
	MaxTakeValue          int      `json:"max_take_value"`
	TxWindowSeconds       int64    `json:"tx_window"`
	PermittedDriftSeconds int64    `json:"permitted_drift"`
	SupportedStandards    []string `json:"supported_standards"`
}

func (l *Ledger) Metadata() Metadata {
	return Metadata{
		Symbol:                l.cfg.Symbol,
		Name:                  l.cfg.Name,
		Description:           l.cfg.Description,
		Logo:                  l.cfg.Logo,
		TotalSupply:           l.st.TokenCount(),
		MaxMemoSize:           l.cfg.MaxMemoSize,
		MaxUpdateBatchSize:    l.cfg.MaxUpdateBatchSize,
		MaxQueryBatchSize:     l.cfg.MaxQueryBatchSize,
		DefaultTakeValue:      l.cfg.DefaultTake,
		MaxTakeValue:          l.cfg.MaxTake,
		TxWindowSeconds:       int64(l.cfg.TxWindow.Seconds()),
		PermittedDriftSeconds: int64(l.cfg.PermittedDrift.Seconds()),
		SupportedStandards:    []string{"ICRC-7", "ICRC-3"},
	}
}

func (l *Ledger) TotalSupply() int { return l.st.TokenCount() }

func (l *Ledger) checkQueryBatch(n int) error {
	if n > l.cfg.MaxQueryBatchSize {
		return ErrBatchTooLarge
	}
	return nil
}

// take resolves a requested page size: zero means the default, anything above
// the maximum is an error.
func (l *Ledger) take(limit int) (int, error) {
	switch {
	case limit <= 0:
		return l.cfg.DefaultTake, nil
	case limit > l.cfg.MaxTake:
		return 0, ErrTakeTooLarge
	}
	return limit, nil
}

// OwnerOf returns the holder of each token, nil for unknown or burned ones.
func (l *Ledger) OwnerOf(tokenIDs []ids.TokenID) ([]*identity.Account, error) {
	if err := l.checkQueryBatch(len(tokenIDs)); err != nil {
		return nil, err
	}
	out := make([]*identity.Account, len(tokenIDs))
	for i, id := range tokenIDs {
		if t, err := l.st.Token(id); err == nil {
			h := t.Holder
			out[i] = &h
		}
	}
	return out, nil
}

// BalanceOf returns the number of tokens each account holds.
func (l *Ledger) BalanceOf(accounts []identity.Account) ([]int, error) {
	if err := l.checkQueryBatch(len(accounts)); err != nil {
		return nil, err
	}
	out := make([]int, len(accounts))
	for i, a := range accounts {
		out[i] = l.st.BalanceOf(a)
	}
	return out, nil
}

// TokenMetadata returns the metadata of each token, nil for unknown ones.
func (l *Ledger) TokenMetadata(tokenIDs []ids.TokenID) ([]*TokenInfo, error) {
	if err := l.checkQueryBatch(len(tokenIDs)); err != nil {
		return nil, err
	}
	out := make([]*TokenInfo, len(tokenIDs))
	for i, id := range tokenIDs {
		t, err := l.st.Token(id)
		if err != nil {
			continue
		}
		out[i] = &TokenInfo{
			ID:          t.ID,
			Name:        t.Name,
			Description: t.Description,
			Logo:        t.Logo,
			Holder:      t.Holder,
			MintedAt:    t.MintedAt,
		}
	}
	return out, nil
}

// Tokens pages through live token ids in ascending order, starting after
// cursor. An unknown cursor yields an empty page.
func (l *Ledger) Tokens(cursor *ids.TokenID, limit int) ([]ids.TokenID, error) {
	n, err := l.take(limit)
	if err != nil {
		return nil, err
	}
	return l.st.TokenPage(cursor, n), nil
}

// TokensOf pages through the tokens held by account.
func (l *Ledger) TokensOf(account identity.Account, cursor *ids.TokenID, limit int) ([]ids.TokenID, error) {
	n, err := l.take(limit)
	if err != nil {
		return nil, err
	}
	page, _ := l.st.TokensOfPage(account, cursor, n)
	return page, nil
}

// Transactions returns up to limit log entries with ids greater than after,
// plus the id of the last entry returned (after itself when none).
func (l *Ledger) Transactions(after uint64, limit int) ([]Transaction, uint64, error) {
	n, err := l.take(limit)
	if err != nil {
		return nil, 0, err
	}
	out := []Transaction{}
	last := after
	for i := after; i < uint64(len(l.log)) && len(out) < n; i++ {
		out = append(out, l.log[i])
		last = l.log[i].ID
	}
	return out, last, nil
}

// Transaction returns the log entry with id.
func (l *Ledger) Transaction(id uint64) (Transaction, bool) {
	if id == 0 || id > uint64(len(l.log)) {
		return Transaction{}, false
	}
	return l.log[id-1], true
}

// Len is the number of logged transactions.
func (l *Ledger) Len() int { return len(l.log) }
