// Package store is the in-memory entity store of the community: profiles,
// posts, replies, likes, roles and tokens, the relations between them and the
// lookup indexes over them.
//
// A Store is not safe for concurrent use. The caller owns serialization.
package store

import (
	"fmt"

	"github.com/google/btree"

	"communities.ooo/internal/apperr"
	"communities.ooo/internal/identity"
	"communities.ooo/internal/ids"
	"communities.ooo/internal/relation"
)

var (
	ErrProfileNotFound = fmt.Errorf("%w: profile", apperr.ErrNotFound)
	ErrPostNotFound    = fmt.Errorf("%w: post", apperr.ErrNotFound)
	ErrReplyNotFound   = fmt.Errorf("%w: reply", apperr.ErrNotFound)
	ErrRoleNotFound    = fmt.Errorf("%w: role", apperr.ErrNotFound)
	ErrTokenNotFound   = fmt.Errorf("%w: token", apperr.ErrNotFound)
	ErrNotLiked        = fmt.Errorf("%w: like", apperr.ErrNotFound)
	ErrAlreadyLiked    = fmt.Errorf("%w: already liked", apperr.ErrAlreadyExists)
	ErrTokenExists     = fmt.Errorf("%w: token id", apperr.ErrAlreadyExists)
	ErrHidden          = fmt.Errorf("%w: target is hidden", apperr.ErrInvalid)
	ErrInvalidText     = fmt.Errorf("%w: text", apperr.ErrInvalid)
)

const (
	MaxNameRunes        = 64
	MaxDescriptionRunes = 280
	MaxTitleRunes       = 200
	MaxBodyRunes        = 10000
	MaxReplyRunes       = 2000
)

type Store struct {
	gen *ids.Generator

	profiles   map[uint64]*Profile
	posts      map[uint64]*Post
	postOrder  []uint64
	replies    map[uint64]*Reply
	roles      map[uint64]*Role
	postLikes  map[uint64]*Like
	replyLikes map[uint64]*Like
	tokens     map[ids.TokenID]*Token
	tokenIDs   *btree.BTreeG[ids.TokenID]
	burned     map[ids.TokenID]Token

	profilePosts      *relation.Relation[uint64, uint64]
	profileReplies    *relation.Relation[uint64, uint64]
	postReplies       *relation.Relation[uint64, uint64]
	profileRoles      *relation.Relation[uint64, uint64]
	postLikeEdges     *relation.Relation[uint64, uint64]
	profilePostLikes  *relation.Relation[uint64, uint64]
	replyLikeEdges    *relation.Relation[uint64, uint64]
	profileReplyLikes *relation.Relation[uint64, uint64]
	holderTokens      *relation.Relation[identity.Account, ids.TokenID]

	byAuth      map[identity.Authentication]uint64
	byPrincipal map[identity.Principal]uint64
	likedPost   map[likeKey]uint64
	likedReply  map[likeKey]uint64
}

// New returns an empty store whose ids are drawn from gen.
func New(gen *ids.Generator) *Store {
	return &Store{
		gen:               gen,
		profiles:          make(map[uint64]*Profile),
		posts:             make(map[uint64]*Post),
		replies:           make(map[uint64]*Reply),
		roles:             make(map[uint64]*Role),
		postLikes:         make(map[uint64]*Like),
		replyLikes:        make(map[uint64]*Like),
		tokens:            make(map[ids.TokenID]*Token),
		tokenIDs:          btree.NewG[ids.TokenID](8, ids.TokenID.Less),
		burned:            make(map[ids.TokenID]Token),
		profilePosts:      relation.New[uint64, uint64](),
		profileReplies:    relation.New[uint64, uint64](),
		postReplies:       relation.New[uint64, uint64](),
		profileRoles:      relation.New[uint64, uint64](),
		postLikeEdges:     relation.New[uint64, uint64](),
		profilePostLikes:  relation.New[uint64, uint64](),
		replyLikeEdges:    relation.New[uint64, uint64](),
		profileReplyLikes: relation.New[uint64, uint64](),
		holderTokens:      relation.NewFunc[identity.Account, ids.TokenID](identity.Account.Less, ids.TokenID.Less),
		byAuth:            make(map[identity.Authentication]uint64),
		byPrincipal:       make(map[identity.Principal]uint64),
		likedPost:         make(map[likeKey]uint64),
		likedReply:        make(map[likeKey]uint64),
	}
}

// NextID draws a fresh surrogate id.
func (s *Store) NextID() uint64 { return s.gen.Next() }

// NextTokenID draws a fresh token id.
func (s *Store) NextTokenID() ids.TokenID { return s.gen.NextToken() }

// Counts reports table sizes.
type Counts struct {
	Profiles int `json:"profiles"`
	Posts    int `json:"posts"`
	Replies  int `json:"replies"`
	Likes    int `json:"likes"`
	Tokens   int `json:"tokens"`
}

func (s *Store) Counts() Counts {
	return Counts{
		Profiles: len(s.profiles),
		Posts:    len(s.posts),
		Replies:  len(s.replies),
		Likes:    len(s.postLikes) + len(s.replyLikes),
		Tokens:   len(s.tokens),
	}
}
