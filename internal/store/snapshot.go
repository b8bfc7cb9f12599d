package store

import (
	"fmt"
	"time"

	"communities.ooo/internal/identity"
	"communities.ooo/internal/ids"
	"communities.ooo/internal/relation"
)

// Snapshot is the serializable form of a Store. Lookup indexes are not part
// of it; Restore rebuilds them from the tables and relations.
type Snapshot struct {
	IDs        ids.State                                      `json:"ids"`
	Profiles   []ProfileRecord                                `json:"profiles"`
	Posts      []Post                                         `json:"posts"`
	Replies    []Reply                                        `json:"replies"`
	Roles      []Role                                         `json:"roles"`
	PostLikes  []Like                                         `json:"post_likes"`
	ReplyLikes []Like                                         `json:"reply_likes"`
	Tokens     []Token                                        `json:"tokens"`
	Burned     []Token                                        `json:"burned"`
	Relations  map[string][]relation.Edge[uint64, uint64]     `json:"relations"`
	Holders    []relation.Edge[identity.Account, ids.TokenID] `json:"holders"`
}

// ProfileRecord is a Profile with its authentication in wire form.
type ProfileRecord struct {
	ID              uint64             `json:"id"`
	Name            string             `json:"name"`
	Description     string             `json:"description"`
	Authentication  identity.Wire      `json:"authentication"`
	ActivePrincipal identity.Principal `json:"active_principal,omitempty"`
	CreatedAt       time.Time          `json:"created_at"`
	LastSeenAt      time.Time          `json:"last_seen_at"`
}

func (s *Store) relations() map[string]*relation.Relation[uint64, uint64] {
	return map[string]*relation.Relation[uint64, uint64]{
		"profile_posts":       s.profilePosts,
		"profile_replies":     s.profileReplies,
		"post_replies":        s.postReplies,
		"profile_roles":       s.profileRoles,
		"post_likes":          s.postLikeEdges,
		"profile_post_likes":  s.profilePostLikes,
		"reply_likes":         s.replyLikeEdges,
		"profile_reply_likes": s.profileReplyLikes,
	}
}

func (s *Store) Snapshot() Snapshot {
	snap := Snapshot{
		IDs:       s.gen.State(),
		Relations: make(map[string][]relation.Edge[uint64, uint64]),
		Holders:   s.holderTokens.Edges(),
	}
	for _, id := range sortedKeys(s.profiles) {
		p := s.profiles[id]
		snap.Profiles = append(snap.Profiles, ProfileRecord{
			ID:              p.ID,
			Name:            p.Name,
			Description:     p.Description,
			Authentication:  identity.Encode(p.Authentication),
			ActivePrincipal: p.ActivePrincipal,
			CreatedAt:       p.CreatedAt,
			LastSeenAt:      p.LastSeenAt,
		})
	}
	for _, id := range s.postOrder {
		snap.Posts = append(snap.Posts, *s.posts[id])
	}
	for _, id := range sortedKeys(s.replies) {
		snap.Replies = append(snap.Replies, *s.replies[id])
	}
	for _, id := range sortedKeys(s.roles) {
		snap.Roles = append(snap.Roles, *s.roles[id])
	}
	for _, id := range sortedKeys(s.postLikes) {
		snap.PostLikes = append(snap.PostLikes, *s.postLikes[id])
	}
	for _, id := range sortedKeys(s.replyLikes) {
		snap.ReplyLikes = append(snap.ReplyLikes, *s.replyLikes[id])
	}
	s.tokenIDs.Ascend(func(id ids.TokenID) bool {
		snap.Tokens = append(snap.Tokens, *s.tokens[id])
		return true
	})
	for _, t := range s.burned {
		snap.Burned = append(snap.Burned, t)
	}
	for name, r := range s.relations() {
		snap.Relations[name] = r.Edges()
	}
	return snap
}

// Restore rebuilds a Store from a snapshot, including its id generator and
// lookup indexes.
func Restore(snap Snapshot) (*Store, error) {
	s := New(ids.Restore(snap.IDs))
	for _, rec := range snap.Profiles {
		auth, err := rec.Authentication.Decode()
		if err != nil {
			return nil, fmt.Errorf("profile %d: %w", rec.ID, err)
		}
		if _, dup := s.byAuth[auth]; dup {
			return nil, fmt.Errorf("profile %d: authentication bound twice", rec.ID)
		}
		s.profiles[rec.ID] = &Profile{
			ID:              rec.ID,
			Name:            rec.Name,
			Description:     rec.Description,
			Authentication:  auth,
			ActivePrincipal: rec.ActivePrincipal,
			CreatedAt:       rec.CreatedAt,
			LastSeenAt:      rec.LastSeenAt,
		}
		s.byAuth[auth] = rec.ID
		if rec.ActivePrincipal != "" {
			s.byPrincipal[rec.ActivePrincipal] = rec.ID
		}
	}
	for i := range snap.Posts {
		p := snap.Posts[i]
		s.posts[p.ID] = &p
		s.postOrder = append(s.postOrder, p.ID)
	}
	for i := range snap.Replies {
		r := snap.Replies[i]
		s.replies[r.ID] = &r
	}
	for i := range snap.Roles {
		r := snap.Roles[i]
		s.roles[r.ID] = &r
	}
	for i := range snap.PostLikes {
		l := snap.PostLikes[i]
		s.postLikes[l.ID] = &l
	}
	for i := range snap.ReplyLikes {
		l := snap.ReplyLikes[i]
		s.replyLikes[l.ID] = &l
	}
	for i := range snap.Tokens {
		t := snap.Tokens[i]
		s.tokens[t.ID] = &t
		s.tokenIDs.ReplaceOrInsert(t.ID)
	}
	for _, t := range snap.Burned {
		s.burned[t.ID] = t
	}
	for name, r := range s.relations() {
		for _, e := range snap.Relations[name] {
			r.Insert(e.X, e.Y)
		}
	}
	for _, e := range snap.Holders {
		s.holderTokens.Insert(e.X, e.Y)
	}
	if err := s.rebuildLikeIndex(); err != nil {
		return nil, err
	}
	s.CheckTokens()
	return s, nil
}

func (s *Store) rebuildLikeIndex() error {
	for _, postID := range s.postLikeEdges.ForwardKeys() {
		for _, likeID := range s.postLikeEdges.Forward(postID) {
			owner := s.profilePostLikes.Backward(likeID)
			if len(owner) != 1 {
				return fmt.Errorf("post like %d has %d owners", likeID, len(owner))
			}
			s.likedPost[likeKey{Profile: owner[0], Target: postID}] = likeID
		}
	}
	for _, replyID := range s.replyLikeEdges.ForwardKeys() {
		for _, likeID := range s.replyLikeEdges.Forward(replyID) {
			owner := s.profileReplyLikes.Backward(likeID)
			if len(owner) != 1 {
				return fmt.Errorf("reply like %d has %d owners", likeID, len(owner))
			}
			s.likedReply[likeKey{Profile: owner[0], Target: replyID}] = likeID
		}
	}
	return nil
}
