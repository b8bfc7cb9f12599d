package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"communities.ooo/internal/apperr"
	"communities.ooo/internal/auth"
	"communities.ooo/internal/identity"
	"communities.ooo/internal/ids"
	"communities.ooo/internal/ledger"
)

type accountJSON struct {
	Owner      identity.Principal   `json:"owner" validate:"required,max=128"`
	Subaccount *identity.Subaccount `json:"subaccount,omitempty"`
}

func (a accountJSON) account() identity.Account {
	return identity.NewAccount(a.Owner, a.Subaccount)
}

type mintItem struct {
	To          accountJSON  `json:"to"`
	TokenID     *ids.TokenID `json:"token_id,omitempty"`
	Name        string       `json:"name" validate:"max=200"`
	Description string       `json:"description" validate:"max=1000"`
	Logo        string       `json:"logo" validate:"omitempty,max=2048"`
	Memo        []byte       `json:"memo,omitempty"`
}

type transferItem struct {
	FromSubaccount *identity.Subaccount `json:"from_subaccount,omitempty"`
	To             accountJSON          `json:"to"`
	TokenID        ids.TokenID          `json:"token_id"`
	Memo           []byte               `json:"memo,omitempty"`
	CreatedAt      *time.Time           `json:"created_at_time,omitempty"`
}

type burnItem struct {
	FromSubaccount *identity.Subaccount `json:"from_subaccount,omitempty"`
	TokenID        ids.TokenID          `json:"token_id"`
	Memo           []byte               `json:"memo,omitempty"`
}

type batchRequest[T any] struct {
	Items []T `json:"items" validate:"dive"`
}

// resultJSON is one slot of a batch response: a transaction id or an error.
type resultJSON struct {
	TxID        *uint64 `json:"tx_id,omitempty"`
	Error       string  `json:"error,omitempty"`
	Code        string  `json:"code,omitempty"`
	DuplicateOf *uint64 `json:"duplicate_of,omitempty"`
}

type batchResponse struct {
	Results []resultJSON `json:"results"`
}

func encodeResults(results []ledger.Result) batchResponse {
	out := batchResponse{Results: make([]resultJSON, len(results))}
	for i, r := range results {
		if r.OK() {
			id := r.ID
			out.Results[i] = resultJSON{TxID: &id}
			continue
		}
		res := resultJSON{Error: r.Err.Error(), Code: apperr.Code(r.Err)}
		var dup *apperr.DuplicateError
		if errors.As(r.Err, &dup) {
			of := dup.Of
			res.DuplicateOf = &of
		}
		out.Results[i] = res
	}
	return out
}

// Batches answer 200 with one result per item; item and batch-level
// failures are reported in the slots.
func (a *API) mint(w http.ResponseWriter, r *http.Request) {
	var req batchRequest[mintItem]
	if err := a.decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	args := make([]ledger.MintArg, len(req.Items))
	for i, it := range req.Items {
		args[i] = ledger.MintArg{
			To:          it.To.account(),
			TokenID:     it.TokenID,
			Name:        it.Name,
			Description: it.Description,
			Logo:        it.Logo,
			Memo:        it.Memo,
		}
	}
	results, err := a.svc.Mint(r.Context(), auth.PrincipalFromContext(r.Context()), args)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, encodeResults(results))
}

func (a *API) transfer(w http.ResponseWriter, r *http.Request) {
	var req batchRequest[transferItem]
	if err := a.decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	args := make([]ledger.TransferArg, len(req.Items))
	for i, it := range req.Items {
		args[i] = ledger.TransferArg{
			FromSubaccount: it.FromSubaccount,
			To:             it.To.account(),
			TokenID:        it.TokenID,
			Memo:           it.Memo,
			CreatedAt:      it.CreatedAt,
		}
	}
	results, err := a.svc.Transfer(r.Context(), auth.PrincipalFromContext(r.Context()), args)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, encodeResults(results))
}

func (a *API) burn(w http.ResponseWriter, r *http.Request) {
	var req batchRequest[burnItem]
	if err := a.decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	args := make([]ledger.BurnArg, len(req.Items))
	for i, it := range req.Items {
		args[i] = ledger.BurnArg{
			FromSubaccount: it.FromSubaccount,
			TokenID:        it.TokenID,
			Memo:           it.Memo,
		}
	}
	results, err := a.svc.Burn(r.Context(), auth.PrincipalFromContext(r.Context()), args)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, encodeResults(results))
}

func (a *API) ledgerMetadata(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.svc.Metadata())
}

func tokenCursor(r *http.Request) (*ids.TokenID, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("cursor"))
	if raw == "" {
		return nil, nil
	}
	id, err := ids.ParseTokenID(raw)
	if err != nil {
		return nil, errors.New("cursor must be a token id")
	}
	return &id, nil
}

type tokenPage struct {
	Items      []ids.TokenID `json:"items"`
	NextCursor *ids.TokenID  `json:"next_cursor,omitempty"`
}

func newTokenPage(items []ids.TokenID) tokenPage {
	p := tokenPage{Items: items}
	if len(items) > 0 {
		last := items[len(items)-1]
		p.NextCursor = &last
	}
	return p
}

func (a *API) listTokens(w http.ResponseWriter, r *http.Request) {
	cursor, err := tokenCursor(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	items, err := a.svc.Tokens(cursor, limit)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newTokenPage(items))
}

func (a *API) getToken(w http.ResponseWriter, r *http.Request) {
	id, err := ids.ParseTokenID(r.PathValue("id"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "id must be a token id")
		return
	}
	infos, err := a.svc.TokenMetadata([]ids.TokenID{id})
	if err != nil {
		handleError(w, r, err)
		return
	}
	if infos[0] == nil {
		handleError(w, r, ledger.ErrNonExistingTokenID)
		return
	}
	writeJSON(w, http.StatusOK, infos[0])
}

// accountTokens lists the tokens of {owner} with an optional ?subaccount=
// in hex.
func (a *API) accountTokens(w http.ResponseWriter, r *http.Request) {
	owner := identity.Principal(strings.TrimSpace(r.PathValue("owner")))
	if owner.IsAnonymous() {
		writeError(w, r, http.StatusBadRequest, "owner is required")
		return
	}
	var sub *identity.Subaccount
	if raw := strings.TrimSpace(r.URL.Query().Get("subaccount")); raw != "" {
		var s identity.Subaccount
		if err := s.UnmarshalText([]byte(raw)); err != nil {
			writeError(w, r, http.StatusBadRequest, "subaccount must be hex")
			return
		}
		sub = &s
	}
	cursor, err := tokenCursor(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	account := identity.NewAccount(owner, sub)
	items, err := a.svc.TokensOf(account, cursor, limit)
	if err != nil {
		handleError(w, r, err)
		return
	}
	balances, err := a.svc.BalanceOf([]identity.Account{account})
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"account": account,
		"balance": balances[0],
		"tokens":  newTokenPage(items),
	})
}

type listTransactionsResponse struct {
	Items     []ledger.Transaction `json:"items"`
	NextAfter uint64               `json:"next_after"`
	AsOf      time.Time            `json:"as_of"`
}

func (a *API) listTransactions(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	var after uint64
	if raw := strings.TrimSpace(r.URL.Query().Get("after")); raw != "" {
		v, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "after must be a non-negative integer")
			return
		}
		after = v
	}
	items, next, err := a.svc.Transactions(after, limit)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listTransactionsResponse{
		Items:     items,
		NextAfter: next,
		AsOf:      time.Now().UTC(),
	})
}
