package community

import (
	"time"

	"communities.ooo/internal/identity"
	"communities.ooo/internal/store"
)

// Ids are encoded as strings in JSON; they do not fit a float64.

type ProfileView struct {
	ID              uint64             `json:"id,string"`
	Name            string             `json:"name"`
	Description     string             `json:"description"`
	Authentication  identity.Wire      `json:"authentication"`
	ActivePrincipal identity.Principal `json:"active_principal,omitempty"`
	CreatedAt       time.Time          `json:"created_at"`
	LastSeenAt      time.Time          `json:"last_seen_at"`
	Roles           []store.RoleKind   `json:"roles"`
}

// AuthorView is the short form of a profile attached to content.
type AuthorView struct {
	ID             uint64        `json:"id,string"`
	Name           string        `json:"name"`
	Authentication identity.Wire `json:"authentication"`
}

type LikeView struct {
	ID        uint64     `json:"id,string"`
	Author    AuthorView `json:"author"`
	CreatedAt time.Time  `json:"created_at"`
}

type PostSummary struct {
	ID            uint64       `json:"id,string"`
	Title         string       `json:"title"`
	Description   string       `json:"description"`
	Status        store.Status `json:"status"`
	CreatedAt     time.Time    `json:"created_at"`
	Author        AuthorView   `json:"author"`
	Likes         uint64       `json:"likes"`
	RepliesCount  int          `json:"replies_count"`
	LastActivity  time.Time    `json:"last_activity"`
	LikedByCaller bool         `json:"liked_by_caller"`
}

type ReplyView struct {
	ID            uint64       `json:"id,string"`
	PostID        uint64       `json:"post_id,string"`
	Text          string       `json:"text"`
	Status        store.Status `json:"status"`
	CreatedAt     time.Time    `json:"created_at"`
	Author        AuthorView   `json:"author"`
	Likes         uint64       `json:"likes"`
	LikedBy       []LikeView   `json:"liked_by"`
	LikedByCaller bool         `json:"liked_by_caller"`
}

// PostView is a post with its replies and likes.
type PostView struct {
	PostSummary
	LikedBy []LikeView  `json:"liked_by"`
	Replies []ReplyView `json:"replies"`
}

// RankedPost is one entry of a most-liked list.
type RankedPost struct {
	Rank int         `json:"rank"`
	Post PostSummary `json:"post"`
}

type RankedReply struct {
	Rank  int       `json:"rank"`
	Reply ReplyView `json:"reply"`
}

// LikeResult is the state of a target after a like or unlike.
type LikeResult struct {
	TargetID uint64 `json:"target_id,string"`
	Likes    uint64 `json:"likes"`
	Liked    bool   `json:"liked"`
}

func (s *Service) profileView(p store.Profile) ProfileView {
	roles := []store.RoleKind{}
	seen := map[store.RoleKind]bool{}
	for _, r := range s.st.RolesOf(p.ID) {
		if !seen[r.Kind] {
			seen[r.Kind] = true
			roles = append(roles, r.Kind)
		}
	}
	return ProfileView{
		ID:              p.ID,
		Name:            p.Name,
		Description:     p.Description,
		Authentication:  identity.Encode(p.Authentication),
		ActivePrincipal: p.ActivePrincipal,
		CreatedAt:       p.CreatedAt,
		LastSeenAt:      p.LastSeenAt,
		Roles:           roles,
	}
}

func (s *Service) authorView(profileID uint64) AuthorView {
	p, err := s.st.Profile(profileID)
	if err != nil {
		panic("community: content linked to unknown profile")
	}
	return AuthorView{ID: p.ID, Name: p.Name, Authentication: identity.Encode(p.Authentication)}
}

func (s *Service) likeViews(likes []store.LikeView) []LikeView {
	out := make([]LikeView, 0, len(likes))
	for _, l := range likes {
		out = append(out, LikeView{ID: l.Like.ID, Author: s.authorView(l.Profile), CreatedAt: l.Like.CreatedAt})
	}
	return out
}

// postSummary builds the summary of post as seen by viewer (0 for none).
func (s *Service) postSummary(p store.Post, viewer uint64) PostSummary {
	author, err := s.st.PostAuthor(p.ID)
	if err != nil {
		panic("community: post without author")
	}
	return PostSummary{
		ID:            p.ID,
		Title:         p.Title,
		Description:   p.Description,
		Status:        p.Status,
		CreatedAt:     p.CreatedAt,
		Author:        s.authorView(author),
		Likes:         s.st.PostLikeCount(p.ID),
		RepliesCount:  s.st.RepliesCount(p.ID),
		LastActivity:  s.st.LastActivity(p.ID),
		LikedByCaller: viewer != 0 && s.st.HasLikedPost(viewer, p.ID),
	}
}

func (s *Service) replyView(r store.Reply, viewer uint64) ReplyView {
	author, err := s.st.ReplyAuthor(r.ID)
	if err != nil {
		panic("community: reply without author")
	}
	postID, err := s.st.ReplyPost(r.ID)
	if err != nil {
		panic("community: reply without post")
	}
	return ReplyView{
		ID:            r.ID,
		PostID:        postID,
		Text:          r.Text,
		Status:        r.Status,
		CreatedAt:     r.CreatedAt,
		Author:        s.authorView(author),
		Likes:         s.st.ReplyLikeCount(r.ID),
		LikedBy:       s.likeViews(s.st.ReplyLikes(r.ID)),
		LikedByCaller: viewer != 0 && s.st.HasLikedReply(viewer, r.ID),
	}
}
