package community

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"communities.ooo/internal/apperr"
	"communities.ooo/internal/identity"
	"communities.ooo/internal/obs"
	"communities.ooo/internal/ranking"
	"communities.ooo/internal/store"
	"communities.ooo/internal/stream"
)

// CreatePost publishes a post authored by the caller.
func (s *Service) CreatePost(principal identity.Principal, title, description string) (PostSummary, error) {
	var view PostSummary
	counts, err := s.write(func() error {
		author, err := s.caller(principal)
		if err != nil {
			return err
		}
		p, err := s.st.CreatePost(author.ID, title, description, s.clock())
		if err != nil {
			return err
		}
		view = s.postSummary(p, author.ID)
		return nil
	})
	if err != nil {
		return PostSummary{}, err
	}
	s.publishCounts(counts)
	s.publish(stream.PostCreated, view)
	return view, nil
}

// CreateReply answers a visible post.
func (s *Service) CreateReply(principal identity.Principal, postID uint64, text string) (ReplyView, error) {
	var view ReplyView
	counts, err := s.write(func() error {
		author, err := s.caller(principal)
		if err != nil {
			return err
		}
		r, err := s.st.CreateReply(author.ID, postID, text, s.clock())
		if err != nil {
			return err
		}
		view = s.replyView(r, author.ID)
		return nil
	})
	if err != nil {
		return ReplyView{}, err
	}
	s.publishCounts(counts)
	s.publish(stream.ReplyCreated, view)
	return view, nil
}

// Post returns a post with its replies. Hidden posts and replies are only
// shown to admins.
func (s *Service) Post(principal identity.Principal, id uint64) (PostView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, err := s.st.Post(id)
	if err != nil {
		return PostView{}, err
	}
	admin := s.isAdmin(principal)
	if p.Status == store.StatusHidden && !admin {
		return PostView{}, store.ErrPostNotFound
	}
	viewer := s.viewer(principal)
	view := PostView{
		PostSummary: s.postSummary(p, viewer),
		LikedBy:     s.likeViews(s.st.PostLikes(id)),
		Replies:     []ReplyView{},
	}
	for _, r := range s.st.RepliesOf(id) {
		if r.Status == store.StatusHidden && !admin {
			continue
		}
		view.Replies = append(view.Replies, s.replyView(r, viewer))
	}
	return view, nil
}

// Posts pages through posts newest first, starting after cursor.
func (s *Service) Posts(principal identity.Principal, cursor *uint64, limit int) ([]PostSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, err := s.take(limit)
	if err != nil {
		return nil, err
	}
	keep := s.visiblePost(principal)
	viewer := s.viewer(principal)
	out := []PostSummary{}
	for _, p := range s.st.PostsPage(cursor, n, keep) {
		out = append(out, s.postSummary(p, viewer))
	}
	return out, nil
}

// ProfilePosts lists the posts authored by profileID in id order.
func (s *Service) ProfilePosts(principal identity.Principal, profileID uint64) ([]PostSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, err := s.st.Profile(profileID); err != nil {
		return nil, err
	}
	keep := s.visiblePost(principal)
	viewer := s.viewer(principal)
	out := []PostSummary{}
	for _, id := range s.st.PostsBy(profileID) {
		p, err := s.st.Post(id)
		if err != nil {
			panic("community: post relation points at missing post")
		}
		if keep(p) {
			out = append(out, s.postSummary(p, viewer))
		}
	}
	return out, nil
}

func (s *Service) visiblePost(principal identity.Principal) func(store.Post) bool {
	if s.isAdmin(principal) {
		return func(store.Post) bool { return true }
	}
	return func(p store.Post) bool { return p.Status == store.StatusVisible }
}

// LikePost records the caller's like and refreshes the author's and the
// community rankings.
func (s *Service) LikePost(principal identity.Principal, postID uint64) (LikeResult, error) {
	return s.like("post", stream.PostLiked, func() (LikeResult, error) {
		p, err := s.caller(principal)
		if err != nil {
			return LikeResult{}, err
		}
		if _, err := s.st.LikePost(p.ID, postID, s.clock()); err != nil {
			return LikeResult{}, err
		}
		return LikeResult{TargetID: postID, Likes: s.refreshPost(postID), Liked: true}, nil
	})
}

func (s *Service) UnlikePost(principal identity.Principal, postID uint64) (LikeResult, error) {
	return s.like("post", stream.PostUnliked, func() (LikeResult, error) {
		p, err := s.caller(principal)
		if err != nil {
			return LikeResult{}, err
		}
		if _, err := s.st.Post(postID); err != nil {
			return LikeResult{}, err
		}
		if err := s.st.UnlikePost(p.ID, postID); err != nil {
			return LikeResult{}, err
		}
		return LikeResult{TargetID: postID, Likes: s.refreshPost(postID)}, nil
	})
}

func (s *Service) LikeReply(principal identity.Principal, replyID uint64) (LikeResult, error) {
	return s.like("reply", stream.ReplyLiked, func() (LikeResult, error) {
		p, err := s.caller(principal)
		if err != nil {
			return LikeResult{}, err
		}
		if _, err := s.st.LikeReply(p.ID, replyID, s.clock()); err != nil {
			return LikeResult{}, err
		}
		return LikeResult{TargetID: replyID, Likes: s.refreshReply(replyID), Liked: true}, nil
	})
}

func (s *Service) UnlikeReply(principal identity.Principal, replyID uint64) (LikeResult, error) {
	return s.like("reply", stream.ReplyUnliked, func() (LikeResult, error) {
		p, err := s.caller(principal)
		if err != nil {
			return LikeResult{}, err
		}
		if _, err := s.st.Reply(replyID); err != nil {
			return LikeResult{}, err
		}
		if err := s.st.UnlikeReply(p.ID, replyID); err != nil {
			return LikeResult{}, err
		}
		return LikeResult{TargetID: replyID, Likes: s.refreshReply(replyID)}, nil
	})
}

// like runs a like or unlike step under the lock, then records and
// publishes it. target is "post" or "reply".
func (s *Service) like(target, event string, step func() (LikeResult, error)) (LikeResult, error) {
	var res LikeResult
	counts, err := s.write(func() error {
		var err error
		res, err = step()
		return err
	})
	if err != nil {
		return LikeResult{}, err
	}
	action := "unlike"
	if res.Liked {
		action = "like"
	}
	obs.ObserveLike(target, action)
	s.publishCounts(counts)
	s.publish(event, res)
	return res, nil
}

func (s *Service) refreshPost(postID uint64) uint64 {
	author, err := s.st.PostAuthor(postID)
	if err != nil {
		panic("community: post without author")
	}
	n := s.st.PostLikeCount(postID)
	s.postRank.Refresh(author, postID, n)
	s.postRank.Refresh(ranking.CommunityScope, postID, n)
	return n
}

func (s *Service) refreshReply(replyID uint64) uint64 {
	author, err := s.st.ReplyAuthor(replyID)
	if err != nil {
		panic("community: reply without author")
	}
	n := s.st.ReplyLikeCount(replyID)
	s.replyRank.Refresh(author, replyID, n)
	s.replyRank.Refresh(ranking.CommunityScope, replyID, n)
	return n
}

// rebuildRanks repopulates both indexes from the like relations.
func (s *Service) rebuildRanks() {
	s.postRank.Reset()
	s.replyRank.Reset()
	for _, id := range s.st.LikedPosts() {
		s.refreshPost(id)
	}
	for _, id := range s.st.LikedReplies() {
		s.refreshReply(id)
	}
}

// StatusChange is published when a moderator hides or shows content.
type StatusChange struct {
	Target string       `json:"target"`
	ID     uint64       `json:"id,string"`
	Status store.Status `json:"status"`
}

// SetPostStatus hides or shows a post. The caller must hold an admin role.
func (s *Service) SetPostStatus(ctx context.Context, principal identity.Principal, postID uint64, status store.Status) (PostSummary, error) {
	if err := checkStatus(status); err != nil {
		return PostSummary{}, err
	}
	var view PostSummary
	_, err := s.write(func() error {
		if err := s.pol.Require(principal, store.RoleAdmin); err != nil {
			return err
		}
		p, err := s.st.SetPostStatus(postID, status)
		if err != nil {
			return err
		}
		view = s.postSummary(p, s.viewer(principal))
		return nil
	})
	if err != nil {
		return PostSummary{}, err
	}
	s.moderated(ctx, "post", postID, status)
	return view, nil
}

func (s *Service) SetReplyStatus(ctx context.Context, principal identity.Principal, replyID uint64, status store.Status) (ReplyView, error) {
	if err := checkStatus(status); err != nil {
		return ReplyView{}, err
	}
	var view ReplyView
	_, err := s.write(func() error {
		if err := s.pol.Require(principal, store.RoleAdmin); err != nil {
			return err
		}
		r, err := s.st.SetReplyStatus(replyID, status)
		if err != nil {
			return err
		}
		view = s.replyView(r, s.viewer(principal))
		return nil
	})
	if err != nil {
		return ReplyView{}, err
	}
	s.moderated(ctx, "reply", replyID, status)
	return view, nil
}

var ErrUnknownStatus = fmt.Errorf("%w: unknown status", apperr.ErrInvalid)

func checkStatus(st store.Status) error {
	if st != store.StatusVisible && st != store.StatusHidden {
		return ErrUnknownStatus
	}
	return nil
}

func (s *Service) moderated(ctx context.Context, target string, id uint64, status store.Status) {
	s.publish(stream.StatusChanged, StatusChange{Target: target, ID: id, Status: status})
	s.log.WithFields(logrus.Fields{"target": target, "id": id, "status": status}).Info("moderation")
	s.record(ctx, "moderation."+target, map[string]any{
		"id":     id,
		"status": string(status),
	})
}

// TopPosts returns the most liked posts of scope, which is an author profile
// id or ranking.CommunityScope. Hidden posts are skipped for non-admins.
func (s *Service) TopPosts(principal identity.Principal, scope uint64, k int) ([]RankedPost, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if scope != ranking.CommunityScope {
		if _, err := s.st.Profile(scope); err != nil {
			return nil, err
		}
	}
	if k <= 0 {
		k = s.topK
	}
	admin := s.isAdmin(principal)
	viewer := s.viewer(principal)
	keep := func(id uint64) bool {
		p, err := s.st.Post(id)
		return err == nil && (admin || p.Status == store.StatusVisible)
	}
	out := []RankedPost{}
	for i, e := range s.postRank.Top(scope, k, keep) {
		p, _ := s.st.Post(e.Item)
		out = append(out, RankedPost{Rank: i + 1, Post: s.postSummary(p, viewer)})
	}
	return out, nil
}

func (s *Service) TopReplies(principal identity.Principal, scope uint64, k int) ([]RankedReply, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if scope != ranking.CommunityScope {
		if _, err := s.st.Profile(scope); err != nil {
			return nil, err
		}
	}
	if k <= 0 {
		k = s.topK
	}
	admin := s.isAdmin(principal)
	viewer := s.viewer(principal)
	keep := func(id uint64) bool {
		r, err := s.st.Reply(id)
		return err == nil && (admin || r.Status == store.StatusVisible)
	}
	out := []RankedReply{}
	for i, e := range s.replyRank.Top(scope, k, keep) {
		r, _ := s.st.Reply(e.Item)
		out = append(out, RankedReply{Rank: i + 1, Reply: s.replyView(r, viewer)})
	}
	return out, nil
}
