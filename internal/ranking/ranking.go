// Package ranking keeps per-scope "most liked" orderings up to date as likes
// come and go. It is a cache: the like relations in the store stay
// authoritative and the index can be rebuilt from them at any time.
package ranking

import "github.com/google/btree"

// CommunityScope ranks items across the whole community.
const CommunityScope uint64 = 0

// DefaultK is how many entries Top returns when asked for none.
const DefaultK = 10

// Entry is one ranked item.
type Entry struct {
	Item  uint64 `json:"id"`
	Count uint64 `json:"likes"`
}

func less(a, b Entry) bool {
	if a.Count != b.Count {
		return a.Count > b.Count
	}
	return a.Item < b.Item
}

type scope struct {
	set    *btree.BTreeG[Entry]
	counts map[uint64]uint64
}

// Index holds one ordered set per scope. Sets are never truncated, so hiding
// or filtering items at query time cannot leave Top short.
//
// Index is not safe for concurrent use.
type Index struct {
	scopes map[uint64]*scope
}

func New() *Index {
	return &Index{scopes: make(map[uint64]*scope)}
}

// Refresh records that item in scope now has count likes. The stale entry is
// removed first; a zero count leaves the item out of the set.
func (ix *Index) Refresh(scopeID, item, count uint64) {
	sc, ok := ix.scopes[scopeID]
	if !ok {
		if count == 0 {
			return
		}
		sc = &scope{set: btree.NewG[Entry](16, less), counts: make(map[uint64]uint64)}
		ix.scopes[scopeID] = sc
	}
	if old, ok := sc.counts[item]; ok {
		sc.set.Delete(Entry{Item: item, Count: old})
		delete(sc.counts, item)
	}
	if count > 0 {
		sc.set.ReplaceOrInsert(Entry{Item: item, Count: count})
		sc.counts[item] = count
	}
	if sc.set.Len() == 0 {
		delete(ix.scopes, scopeID)
	}
}

// Top returns up to k entries of scope in rank order. Entries for which keep
// returns false are skipped and do not count toward k.
func (ix *Index) Top(scopeID uint64, k int, keep func(item uint64) bool) []Entry {
	if k <= 0 {
		k = DefaultK
	}
	out := []Entry{}
	sc, ok := ix.scopes[scopeID]
	if !ok {
		return out
	}
	sc.set.Ascend(func(e Entry) bool {
		if keep == nil || keep(e.Item) {
			out = append(out, e)
		}
		return len(out) < k
	})
	return out
}

// Count returns the recorded count of item in scope.
func (ix *Index) Count(scopeID, item uint64) uint64 {
	if sc, ok := ix.scopes[scopeID]; ok {
		return sc.counts[item]
	}
	return 0
}

// Len is the number of ranked items in scope.
func (ix *Index) Len(scopeID uint64) int {
	if sc, ok := ix.scopes[scopeID]; ok {
		return sc.set.Len()
	}
	return 0
}

// Reset drops every scope.
func (ix *Index) Reset() {
	ix.scopes = make(map[uint64]*scope)
}
