package store

import "time"

// LikePost records profileID liking postID and returns the like id.
func (s *Store) LikePost(profileID, postID uint64, now time.Time) (Like, error) {
	if _, ok := s.profiles[profileID]; !ok {
		return Like{}, ErrProfileNotFound
	}
	p, ok := s.posts[postID]
	if !ok {
		return Like{}, ErrPostNotFound
	}
	if p.Status == StatusHidden {
		return Like{}, ErrHidden
	}
	k := likeKey{Profile: profileID, Target: postID}
	if _, liked := s.likedPost[k]; liked {
		return Like{}, ErrAlreadyLiked
	}
	l := &Like{ID: s.NextID(), CreatedAt: now}
	s.postLikes[l.ID] = l
	s.postLikeEdges.Insert(postID, l.ID)
	s.profilePostLikes.Insert(profileID, l.ID)
	s.likedPost[k] = l.ID
	return *l, nil
}

// UnlikePost removes the like of profileID on postID.
func (s *Store) UnlikePost(profileID, postID uint64) error {
	k := likeKey{Profile: profileID, Target: postID}
	id, ok := s.likedPost[k]
	if !ok {
		return ErrNotLiked
	}
	delete(s.likedPost, k)
	delete(s.postLikes, id)
	s.mustRemove(s.postLikeEdges.Remove(postID, id))
	s.mustRemove(s.profilePostLikes.Remove(profileID, id))
	return nil
}

func (s *Store) LikeReply(profileID, replyID uint64, now time.Time) (Like, error) {
	if _, ok := s.profiles[profileID]; !ok {
		return Like{}, ErrProfileNotFound
	}
	r, ok := s.replies[replyID]
	if !ok {
		return Like{}, ErrReplyNotFound
	}
	if r.Status == StatusHidden {
		return Like{}, ErrHidden
	}
	k := likeKey{Profile: profileID, Target: replyID}
	if _, liked := s.likedReply[k]; liked {
		return Like{}, ErrAlreadyLiked
	}
	l := &Like{ID: s.NextID(), CreatedAt: now}
	s.replyLikes[l.ID] = l
	s.replyLikeEdges.Insert(replyID, l.ID)
	s.profileReplyLikes.Insert(profileID, l.ID)
	s.likedReply[k] = l.ID
	return *l, nil
}

func (s *Store) UnlikeReply(profileID, replyID uint64) error {
	k := likeKey{Profile: profileID, Target: replyID}
	id, ok := s.likedReply[k]
	if !ok {
		return ErrNotLiked
	}
	delete(s.likedReply, k)
	delete(s.replyLikes, id)
	s.mustRemove(s.replyLikeEdges.Remove(replyID, id))
	s.mustRemove(s.profileReplyLikes.Remove(profileID, id))
	return nil
}

func (s *Store) HasLikedPost(profileID, postID uint64) bool {
	_, ok := s.likedPost[likeKey{Profile: profileID, Target: postID}]
	return ok
}

func (s *Store) HasLikedReply(profileID, replyID uint64) bool {
	_, ok := s.likedReply[likeKey{Profile: profileID, Target: replyID}]
	return ok
}

// PostLikeCount is the number of likes on postID, read from the relation.
func (s *Store) PostLikeCount(postID uint64) uint64 {
	return uint64(s.postLikeEdges.CountForward(postID))
}

func (s *Store) ReplyLikeCount(replyID uint64) uint64 {
	return uint64(s.replyLikeEdges.CountForward(replyID))
}

// LikeView pairs a like with the profile that gave it.
type LikeView struct {
	Like    Like
	Profile uint64
}

func (s *Store) PostLikes(postID uint64) []LikeView {
	return s.likeViews(s.postLikeEdges.Forward(postID), s.postLikes, s.profilePostLikes.Backward)
}

func (s *Store) ReplyLikes(replyID uint64) []LikeView {
	return s.likeViews(s.replyLikeEdges.Forward(replyID), s.replyLikes, s.profileReplyLikes.Backward)
}

func (s *Store) likeViews(likeIDs []uint64, table map[uint64]*Like, owner func(uint64) []uint64) []LikeView {
	out := make([]LikeView, 0, len(likeIDs))
	for _, id := range likeIDs {
		pid, err := single(owner(id), ErrNotLiked)
		if err != nil {
			panic("store: like without a profile")
		}
		out = append(out, LikeView{Like: *table[id], Profile: pid})
	}
	return out
}

// LikedPosts and LikedReplies list the items with at least one like.
func (s *Store) LikedPosts() []uint64   { return s.postLikeEdges.ForwardKeys() }
func (s *Store) LikedReplies() []uint64 { return s.replyLikeEdges.ForwardKeys() }

func (s *Store) mustRemove(removed bool) {
	if !removed {
		panic("store: like index and relations disagree")
	}
}
