package ledger

import (
	"errors"
	"testing"
	"time"

	"communities.ooo/internal/apperr"
	"communities.ooo/internal/identity"
	"communities.ooo/internal/ids"
	"communities.ooo/internal/store"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

var (
	admin = Caller{Principal: "admin", Privileged: true}
	alice = identity.NewAccount("alice", nil)
	bob   = identity.NewAccount("bob", nil)
)

func newLedger(t *testing.T) (*Ledger, *store.Store) {
	t.Helper()
	st := store.New(ids.NewGenerator([]byte("ledger-test")))
	return New(st, DefaultConfig()), st
}

func tid(v uint64) *ids.TokenID {
	id := ids.TokenIDFrom64(v)
	return &id
}

func mustMint(t *testing.T, l *Ledger, to identity.Account, id uint64) uint64 {
	t.Helper()
	res := l.MintBatch(now, admin, []MintArg{{To: to, TokenID: tid(id)}})
	if len(res) != 1 || res[0].Err != nil {
		t.Fatalf("mint %d: %+v", id, res)
	}
	return res[0].ID
}

func TestMintSingleHolder(t *testing.T) {
	l, st := newLedger(t)
	res := l.MintBatch(now, admin, []MintArg{{To: alice, TokenID: tid(7)}})
	if res[0].Err != nil || res[0].ID != 1 {
		t.Fatalf("mint result %+v", res[0])
	}
	owners, err := l.OwnerOf([]ids.TokenID{ids.TokenIDFrom64(7)})
	if err != nil || owners[0] == nil || *owners[0] != alice {
		t.Fatalf("owner_of = %v, %v", owners, err)
	}
	tokens, _ := l.TokensOf(alice, nil, 0)
	if len(tokens) != 1 || tokens[0] != ids.TokenIDFrom64(7) {
		t.Fatalf("tokens_of(alice) = %v", tokens)
	}
	tx, ok := l.Transaction(res[0].ID)
	if !ok || tx.Kind != KindMint || tx.Op != "7mint" || tx.To != alice {
		t.Fatalf("log entry = %+v", tx)
	}
	p, err := st.ProfileByPrincipal("alice")
	if err != nil || len(st.RolesOf(p.ID)) != 1 {
		t.Fatalf("recipient not granted the admin role: %v", err)
	}
	st.CheckTokens()
}

func TestMintPerItemErrors(t *testing.T) {
	l, _ := newLedger(t)
	mustMint(t, l, alice, 1)
	res := l.MintBatch(now, admin, []MintArg{
		{To: alice},
		{To: bob, TokenID: tid(1)},
		{To: bob, Memo: make([]byte, 33)},
		{To: bob},
	})
	if !errors.Is(res[0].Err, ErrAlreadyHeld) {
		t.Fatalf("slot 0: %v", res[0].Err)
	}
	if !errors.Is(res[1].Err, ErrTokenIDExists) {
		t.Fatalf("slot 1: %v", res[1].Err)
	}
	if !errors.Is(res[2].Err, ErrMemoTooLong) || !errors.Is(res[2].Err, apperr.ErrInvalid) {
		t.Fatalf("slot 2: %v", res[2].Err)
	}
	if res[3].Err != nil || res[3].ID != 2 {
		t.Fatalf("slot 3 should succeed after earlier failures: %+v", res[3])
	}
	if l.TotalSupply() != 2 {
		t.Fatalf("supply = %d", l.TotalSupply())
	}
}

func TestBatchRejection(t *testing.T) {
	l, _ := newLedger(t)
	anon := Caller{Principal: identity.Anonymous, Privileged: true}
	res := l.MintBatch(now, anon, []MintArg{{To: alice}, {To: bob}, {To: identity.NewAccount("carol", nil)}})
	if len(res) != 3 {
		t.Fatalf("expected 3 results, got %d", len(res))
	}
	for i, r := range res {
		if !errors.Is(r.Err, apperr.ErrBatchRejected) {
			t.Fatalf("slot %d not rejected: %v", i, r.Err)
		}
	}
	if l.TotalSupply() != 0 || l.Len() != 0 {
		t.Fatalf("rejected batch mutated state")
	}

	res = l.MintBatch(now, Caller{Principal: "eve"}, []MintArg{{To: alice}})
	if !errors.Is(res[0].Err, ErrUnprivileged) {
		t.Fatalf("unprivileged caller: %v", res[0].Err)
	}
	res = l.TransferBatch(now, admin, nil)
	if len(res) != 1 || !errors.Is(res[0].Err, ErrEmptyBatch) {
		t.Fatalf("empty batch: %+v", res)
	}
	big := make([]BurnArg, DefaultConfig().MaxUpdateBatchSize+1)
	res = l.BurnBatch(now, admin, big)
	if len(res) != len(big) || !errors.Is(res[len(big)-1].Err, ErrBatchTooLarge) {
		t.Fatalf("oversized batch not rejected")
	}
}

func TestTransferMovesOwnershipAndRole(t *testing.T) {
	l, st := newLedger(t)
	mustMint(t, l, alice, 7)
	caller := Caller{Principal: "alice", Privileged: true}
	res := l.TransferBatch(now, caller, []TransferArg{{To: bob, TokenID: ids.TokenIDFrom64(7)}})
	if res[0].Err != nil {
		t.Fatalf("transfer: %v", res[0].Err)
	}
	owners, _ := l.OwnerOf([]ids.TokenID{ids.TokenIDFrom64(7)})
	if *owners[0] != bob {
		t.Fatalf("owner = %v", owners[0])
	}
	if got, _ := l.TokensOf(alice, nil, 0); len(got) != 0 {
		t.Fatalf("alice still lists %v", got)
	}
	a, _ := st.ProfileByPrincipal("alice")
	b, _ := st.ProfileByPrincipal("bob")
	if len(st.RolesOf(a.ID)) != 0 || len(st.RolesOf(b.ID)) != 1 {
		t.Fatalf("admin role did not follow the token")
	}
	tx, _ := l.Transaction(res[0].ID)
	if tx.Op != "7xfer" || tx.From != alice || tx.To != bob {
		t.Fatalf("log entry = %+v", tx)
	}
	st.CheckTokens()
}

func TestTransferChecks(t *testing.T) {
	l, _ := newLedger(t)
	mustMint(t, l, alice, 7)
	mustMint(t, l, identity.NewAccount("dave", nil), 8)
	caller := Caller{Principal: "alice", Privileged: true}
	old := now.Add(-25 * time.Hour)
	future := now.Add(3 * time.Minute)

	res := l.TransferBatch(now, caller, []TransferArg{
		{To: bob, TokenID: ids.TokenIDFrom64(99)},
		{To: alice, TokenID: ids.TokenIDFrom64(7)},
		{To: bob, TokenID: ids.TokenIDFrom64(8)},
		{To: bob, TokenID: ids.TokenIDFrom64(7), CreatedAt: &old},
		{To: bob, TokenID: ids.TokenIDFrom64(7), CreatedAt: &future},
		{To: identity.NewAccount("dave", nil), TokenID: ids.TokenIDFrom64(7)},
	})
	want := []error{ErrNonExistingTokenID, ErrInvalidRecipient, ErrNotHolder, ErrTooOld, ErrCreatedInFuture, ErrAlreadyHeld}
	for i, w := range want {
		if !errors.Is(res[i].Err, w) {
			t.Fatalf("slot %d: got %v, want %v", i, res[i].Err, w)
		}
	}
	var fut *CreatedInFutureError
	if !errors.As(res[4].Err, &fut) || !fut.LedgerTime.Equal(now) {
		t.Fatalf("future error lacks ledger time: %v", res[4].Err)
	}
	if l.Len() != 2 {
		t.Fatalf("failed transfers were logged: %d entries", l.Len())
	}
}

func TestDuplicateTransfer(t *testing.T) {
	l, _ := newLedger(t)
	mustMint(t, l, alice, 7)
	caller := Caller{Principal: "alice", Privileged: true}
	at := now.Add(-time.Second)
	arg := TransferArg{To: bob, TokenID: ids.TokenIDFrom64(7), Memo: []byte("m"), CreatedAt: &at}

	first := l.TransferBatch(now, caller, []TransferArg{arg})
	if first[0].Err != nil {
		t.Fatalf("first transfer: %v", first[0].Err)
	}
	logLen := l.Len()
	second := l.TransferBatch(now.Add(time.Minute), caller, []TransferArg{arg})
	var dup *apperr.DuplicateError
	if !errors.As(second[0].Err, &dup) || dup.Of != first[0].ID {
		t.Fatalf("expected Duplicate(%d), got %v", first[0].ID, second[0].Err)
	}
	if l.Len() != logLen {
		t.Fatalf("duplicate appended to the log")
	}
	owners, _ := l.OwnerOf([]ids.TokenID{ids.TokenIDFrom64(7)})
	if *owners[0] != bob {
		t.Fatalf("duplicate changed ownership")
	}

	other := arg
	other.Memo = []byte("other")
	res := l.TransferBatch(now, caller, []TransferArg{other})
	if !errors.Is(res[0].Err, ErrNotHolder) {
		t.Fatalf("different memo is not a duplicate: %v", res[0].Err)
	}
}

func TestDuplicateScanStopsAtWindow(t *testing.T) {
	l, _ := newLedger(t)
	mustMint(t, l, alice, 7)
	at := now.Add(-time.Hour)
	tx := Transaction{Kind: KindTransfer, TokenID: ids.TokenIDFrom64(7), From: alice, To: bob, Timestamp: at}
	l.append(tx)
	if _, dup := l.findDuplicate(tx, now.Add(-24*time.Hour)); !dup {
		t.Fatalf("entry inside the window not found")
	}
	if _, dup := l.findDuplicate(tx, now.Add(-time.Minute)); dup {
		t.Fatalf("scan went past the window")
	}
}

func TestBurnIsTerminal(t *testing.T) {
	l, st := newLedger(t)
	mustMint(t, l, alice, 7)
	caller := Caller{Principal: "alice", Privileged: true}
	res := l.BurnBatch(now, caller, []BurnArg{{TokenID: ids.TokenIDFrom64(7)}})
	if res[0].Err != nil {
		t.Fatalf("burn: %v", res[0].Err)
	}
	tx, _ := l.Transaction(res[0].ID)
	if tx.Op != "7burn" || tx.To != l.BurnAccount() {
		t.Fatalf("burn entry = %+v", tx)
	}
	owners, _ := l.OwnerOf([]ids.TokenID{ids.TokenIDFrom64(7)})
	if owners[0] != nil {
		t.Fatalf("burned token still owned by %v", owners[0])
	}
	res = l.TransferBatch(now, caller, []TransferArg{{To: bob, TokenID: ids.TokenIDFrom64(7)}})
	if !errors.Is(res[0].Err, ErrNonExistingTokenID) {
		t.Fatalf("transfer of burned token: %v", res[0].Err)
	}
	res = l.MintBatch(now, admin, []MintArg{{To: bob, TokenID: tid(7)}})
	if !errors.Is(res[0].Err, ErrTokenIDExists) {
		t.Fatalf("re-mint of burned id: %v", res[0].Err)
	}
	a, _ := st.ProfileByPrincipal("alice")
	if len(st.RolesOf(a.ID)) != 0 {
		t.Fatalf("role survived the burn")
	}
	res = l.BurnBatch(now, Caller{Principal: "bob", Privileged: true}, []BurnArg{{TokenID: ids.TokenIDFrom64(7)}})
	if !errors.Is(res[0].Err, ErrNonExistingTokenID) {
		t.Fatalf("second burn: %v", res[0].Err)
	}
}

func TestBurnRequiresHolder(t *testing.T) {
	l, _ := newLedger(t)
	mustMint(t, l, alice, 7)
	res := l.BurnBatch(now, admin, []BurnArg{{TokenID: ids.TokenIDFrom64(7)}})
	if !errors.Is(res[0].Err, ErrNotHolder) {
		t.Fatalf("burn by non-holder: %v", res[0].Err)
	}
	if l.TotalSupply() != 1 {
		t.Fatalf("token burned by non-holder")
	}
}

func TestQueries(t *testing.T) {
	l, _ := newLedger(t)
	for i := uint64(1); i <= 4; i++ {
		mustMint(t, l, identity.NewAccount(identity.Principal(string(rune('a'+i))), nil), i)
	}
	c := ids.TokenIDFrom64(2)
	page, err := l.Tokens(&c, 1)
	if err != nil || len(page) != 1 || page[0] != ids.TokenIDFrom64(3) {
		t.Fatalf("tokens page = %v, %v", page, err)
	}
	if _, err := l.Tokens(nil, 33); !errors.Is(err, ErrTakeTooLarge) {
		t.Fatalf("oversized take: %v", err)
	}
	unknown := ids.TokenIDFrom64(50)
	if page, _ := l.Tokens(&unknown, 5); len(page) != 0 {
		t.Fatalf("unknown cursor = %v", page)
	}
	txs, last, err := l.Transactions(1, 2)
	if err != nil || len(txs) != 2 || txs[0].ID != 2 || last != 3 {
		t.Fatalf("transactions = %v last=%d err=%v", txs, last, err)
	}
	if _, err := l.OwnerOf(make([]ids.TokenID, 33)); !errors.Is(err, ErrBatchTooLarge) {
		t.Fatalf("oversized query batch: %v", err)
	}
	meta, _ := l.TokenMetadata([]ids.TokenID{ids.TokenIDFrom64(1), unknown})
	if meta[0] == nil || meta[1] != nil || meta[0].Name == "" {
		t.Fatalf("metadata = %+v", meta)
	}
	bal, _ := l.BalanceOf([]identity.Account{identity.NewAccount("b", nil), alice})
	if bal[0] != 1 || bal[1] != 0 {
		t.Fatalf("balances = %v", bal)
	}
	if md := l.Metadata(); md.TotalSupply != 4 || md.MaxMemoSize != 32 {
		t.Fatalf("metadata = %+v", md)
	}
}

func TestMultiTokenPolicy(t *testing.T) {
	st := store.New(ids.NewGenerator(nil))
	cfg := DefaultConfig()
	cfg.SingleTokenPerHolder = false
	l := New(st, cfg)
	res := l.MintBatch(now, admin, []MintArg{{To: alice}, {To: alice}})
	if res[0].Err != nil || res[1].Err != nil {
		t.Fatalf("multi mint: %+v", res)
	}
	if bal, _ := l.BalanceOf([]identity.Account{alice}); bal[0] != 2 {
		t.Fatalf("balance = %v", bal)
	}
}

func TestMintSkipsIDsClaimedExplicitly(t *testing.T) {
	st := store.New(ids.NewGenerator([]byte("ledger-test")))
	cfg := DefaultConfig()
	cfg.SingleTokenPerHolder = false
	l := New(st, cfg)

	// A generator with the same seed yields the ids the store will draw.
	// Each explicit mint draws one counter value for its role, so claiming
	// the values 51..100 keeps the claims ahead of the store's counter.
	twin := ids.NewGenerator([]byte("ledger-test"))
	for i := 0; i < 50; i++ {
		twin.NextToken()
	}
	claimed := map[ids.TokenID]bool{}
	for i := 0; i < 50; i++ {
		id := twin.NextToken()
		claimed[id] = true
		res := l.MintBatch(now, admin, []MintArg{{To: alice, TokenID: &id}})
		if res[0].Err != nil {
			t.Fatalf("explicit mint %d: %v", i, res[0].Err)
		}
	}

	res := l.MintBatch(now, admin, []MintArg{{To: bob}})
	if res[0].Err != nil {
		t.Fatalf("generated mint: %v", res[0].Err)
	}
	tx, _ := l.Transaction(res[0].ID)
	if claimed[tx.TokenID] {
		t.Fatalf("generated id %s reuses an explicit id", tx.TokenID)
	}
	p, err := st.ProfileByPrincipal("bob")
	if err != nil || len(st.RolesOf(p.ID)) != 1 {
		t.Fatalf("bob profile/roles: %v", err)
	}
	if tokens, _ := l.TokensOf(bob, nil, 0); len(tokens) != 1 {
		t.Fatalf("tokens_of(bob) = %v", tokens)
	}
	st.CheckTokens()

	carol := identity.NewAccount("carol", nil)
	taken := tx.TokenID
	res = l.MintBatch(now, admin, []MintArg{{To: carol, TokenID: &taken}})
	if !errors.Is(res[0].Err, ErrTokenIDExists) {
		t.Fatalf("reused id: %v", res[0].Err)
	}
	if _, err := st.ProfileByPrincipal("carol"); err == nil {
		t.Fatal("failed mint created a recipient profile")
	}
}
