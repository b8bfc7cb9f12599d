package store

import (
	"slices"
	"time"
)

// CreatePost stores a visible post authored by profileID.
func (s *Store) CreatePost(author uint64, title, description string, now time.Time) (Post, error) {
	if _, ok := s.profiles[author]; !ok {
		return Post{}, ErrProfileNotFound
	}
	title, err := cleanText(title, 1, MaxTitleRunes)
	if err != nil {
		return Post{}, err
	}
	description, err = cleanText(description, 0, MaxBodyRunes)
	if err != nil {
		return Post{}, err
	}
	p := &Post{ID: s.NextID(), Title: title, Description: description, CreatedAt: now, Status: StatusVisible}
	s.posts[p.ID] = p
	s.postOrder = append(s.postOrder, p.ID)
	s.profilePosts.Insert(author, p.ID)
	return *p, nil
}

// CreateReply stores a visible reply on postID. Replies to hidden posts are
// rejected.
func (s *Store) CreateReply(author, postID uint64, text string, now time.Time) (Reply, error) {
	if _, ok := s.profiles[author]; !ok {
		return Reply{}, ErrProfileNotFound
	}
	post, ok := s.posts[postID]
	if !ok {
		return Reply{}, ErrPostNotFound
	}
	if post.Status == StatusHidden {
		return Reply{}, ErrHidden
	}
	text, err := cleanText(text, 1, MaxReplyRunes)
	if err != nil {
		return Reply{}, err
	}
	r := &Reply{ID: s.NextID(), Text: text, CreatedAt: now, Status: StatusVisible}
	s.replies[r.ID] = r
	s.profileReplies.Insert(author, r.ID)
	s.postReplies.Insert(postID, r.ID)
	return *r, nil
}

func (s *Store) Post(id uint64) (Post, error) {
	p, ok := s.posts[id]
	if !ok {
		return Post{}, ErrPostNotFound
	}
	return *p, nil
}

func (s *Store) Reply(id uint64) (Reply, error) {
	r, ok := s.replies[id]
	if !ok {
		return Reply{}, ErrReplyNotFound
	}
	return *r, nil
}

// PostAuthor returns the profile id that wrote post id.
func (s *Store) PostAuthor(id uint64) (uint64, error) {
	return single(s.profilePosts.Backward(id), ErrPostNotFound)
}

func (s *Store) ReplyAuthor(id uint64) (uint64, error) {
	return single(s.profileReplies.Backward(id), ErrReplyNotFound)
}

// ReplyPost returns the post a reply belongs to.
func (s *Store) ReplyPost(id uint64) (uint64, error) {
	return single(s.postReplies.Backward(id), ErrReplyNotFound)
}

// RepliesOf lists the replies of a post ordered by creation.
func (s *Store) RepliesOf(postID uint64) []Reply {
	replyIDs := s.postReplies.Forward(postID)
	out := make([]Reply, 0, len(replyIDs))
	for _, id := range replyIDs {
		out = append(out, *s.replies[id])
	}
	slices.SortFunc(out, func(a, b Reply) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmpUint(a.ID, b.ID)
	})
	return out
}

func (s *Store) RepliesCount(postID uint64) int { return s.postReplies.CountForward(postID) }

// LastActivity is the time of the newest reply, or the post's creation time.
func (s *Store) LastActivity(postID uint64) time.Time {
	var last time.Time
	if p, ok := s.posts[postID]; ok {
		last = p.CreatedAt
	}
	for _, id := range s.postReplies.Forward(postID) {
		if t := s.replies[id].CreatedAt; t.After(last) {
			last = t
		}
	}
	return last
}

// PostsBy lists the post ids authored by profileID, ascending.
func (s *Store) PostsBy(profileID uint64) []uint64 { return s.profilePosts.Forward(profileID) }

func (s *Store) RepliesBy(profileID uint64) []uint64 { return s.profileReplies.Forward(profileID) }

// PostsPage walks posts newest first, starting after cursor. An unknown cursor
// yields an empty page. keep filters posts without counting toward limit.
func (s *Store) PostsPage(cursor *uint64, limit int, keep func(Post) bool) []Post {
	start := len(s.postOrder) - 1
	if cursor != nil {
		i := slices.Index(s.postOrder, *cursor)
		if i < 0 {
			return []Post{}
		}
		start = i - 1
	}
	out := []Post{}
	for i := start; i >= 0 && len(out) < limit; i-- {
		p := s.posts[s.postOrder[i]]
		if keep == nil || keep(*p) {
			out = append(out, *p)
		}
	}
	return out
}

func (s *Store) SetPostStatus(id uint64, st Status) (Post, error) {
	p, ok := s.posts[id]
	if !ok {
		return Post{}, ErrPostNotFound
	}
	p.Status = st
	return *p, nil
}

func (s *Store) SetReplyStatus(id uint64, st Status) (Reply, error) {
	r, ok := s.replies[id]
	if !ok {
		return Reply{}, ErrReplyNotFound
	}
	r.Status = st
	return *r, nil
}

func single(xs []uint64, missing error) (uint64, error) {
	switch len(xs) {
	case 0:
		return 0, missing
	case 1:
		return xs[0], nil
	}
	panic("store: entity linked to more than one owner")
}

func cmpUint(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
