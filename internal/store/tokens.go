package store

import (
	"fmt"
	"time"

	"communities.ooo/internal/identity"
	"communities.ooo/internal/ids"
)

// PutToken stores a newly minted token. Ids of live or burned tokens are never
// reused.
func (s *Store) PutToken(t Token) error {
	if s.TokenIDTaken(t.ID) {
		return ErrTokenExists
	}
	tok := t
	s.tokens[t.ID] = &tok
	s.tokenIDs.ReplaceOrInsert(t.ID)
	s.holderTokens.Insert(t.Holder, t.ID)
	return nil
}

// TokenIDTaken reports whether id belongs to a live or burned token.
func (s *Store) TokenIDTaken(id ids.TokenID) bool {
	if _, ok := s.tokens[id]; ok {
		return true
	}
	_, ok := s.burned[id]
	return ok
}

func (s *Store) Token(id ids.TokenID) (Token, error) {
	t, ok := s.tokens[id]
	if !ok {
		return Token{}, ErrTokenNotFound
	}
	return *t, nil
}

func (s *Store) IsBurned(id ids.TokenID) bool {
	_, ok := s.burned[id]
	return ok
}

// SetHolder moves a live token to a new holder.
func (s *Store) SetHolder(id ids.TokenID, to identity.Account) error {
	t, ok := s.tokens[id]
	if !ok {
		return ErrTokenNotFound
	}
	if !s.holderTokens.Remove(t.Holder, id) {
		panic(fmt.Sprintf("store: token %s missing from holder index", id))
	}
	t.Holder = to
	s.holderTokens.Insert(to, id)
	return nil
}

// BurnToken removes a live token for good.
func (s *Store) BurnToken(id ids.TokenID, now time.Time) (Token, error) {
	t, ok := s.tokens[id]
	if !ok {
		return Token{}, ErrTokenNotFound
	}
	if !s.holderTokens.Remove(t.Holder, id) {
		panic(fmt.Sprintf("store: token %s missing from holder index", id))
	}
	delete(s.tokens, id)
	s.tokenIDs.Delete(id)
	s.burned[id] = *t
	return *t, nil
}

// TokensOf lists the live tokens held by account, ascending.
func (s *Store) TokensOf(account identity.Account) []ids.TokenID {
	return s.holderTokens.Forward(account)
}

// TokensOfPage lists up to limit tokens of account after cursor. ok is false
// when the cursor is not one of the account's tokens.
func (s *Store) TokensOfPage(account identity.Account, cursor *ids.TokenID, limit int) (out []ids.TokenID, ok bool) {
	out = []ids.TokenID{}
	if limit <= 0 {
		return out, true
	}
	ok = s.holderTokens.ForwardFrom(account, cursor, func(id ids.TokenID) bool {
		out = append(out, id)
		return len(out) < limit
	})
	if !ok {
		return []ids.TokenID{}, false
	}
	return out, true
}

// TokenPage lists up to limit live token ids after cursor, ascending.
func (s *Store) TokenPage(cursor *ids.TokenID, limit int) []ids.TokenID {
	out := []ids.TokenID{}
	if limit <= 0 {
		return out
	}
	if cursor == nil {
		s.tokenIDs.Ascend(func(id ids.TokenID) bool {
			out = append(out, id)
			return len(out) < limit
		})
		return out
	}
	if !s.tokenIDs.Has(*cursor) {
		return out
	}
	c := *cursor
	s.tokenIDs.AscendGreaterOrEqual(c, func(id ids.TokenID) bool {
		if id == c {
			return true
		}
		out = append(out, id)
		return len(out) < limit
	})
	return out
}

func (s *Store) BalanceOf(account identity.Account) int {
	return s.holderTokens.CountForward(account)
}

func (s *Store) TokenCount() int { return len(s.tokens) }

// CheckTokens panics unless every live token has exactly one holder entry
// matching its Holder field.
func (s *Store) CheckTokens() {
	s.holderTokens.Check()
	if s.holderTokens.Len() != len(s.tokens) {
		panic(fmt.Sprintf("store: %d tokens but %d holder edges", len(s.tokens), s.holderTokens.Len()))
	}
	for id, t := range s.tokens {
		holders := s.holderTokens.Backward(id)
		if len(holders) != 1 || holders[0] != t.Holder {
			panic(fmt.Sprintf("store: token %s has holders %v, want %v", id, holders, t.Holder))
		}
	}
}
