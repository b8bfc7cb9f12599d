package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"communities.ooo/internal/auth"
	"communities.ooo/internal/community"
	"communities.ooo/internal/identity"
	"communities.ooo/internal/ranking"
	"communities.ooo/internal/store"
)

type updateProfileRequest struct {
	Name        string `json:"name" validate:"max=64"`
	Description string `json:"description" validate:"max=280"`
}

type createPostRequest struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"required,max=10000"`
}

type createReplyRequest struct {
	Text string `json:"text" validate:"required,max=2000"`
}

type pageResponse[T any] struct {
	Items      []T     `json:"items"`
	NextCursor *string `json:"next_cursor,omitempty"`
}

func (a *API) me(w http.ResponseWriter, r *http.Request) {
	p, err := a.svc.Me(auth.PrincipalFromContext(r.Context()))
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (a *API) updateProfile(w http.ResponseWriter, r *http.Request) {
	var req updateProfileRequest
	if err := a.decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	p, err := a.svc.UpdateProfile(r.Context(), auth.PrincipalFromContext(r.Context()), req.Name, req.Description)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (a *API) profile(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	p, err := a.svc.Profile(id)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// profileByAuthentication looks a profile up by ?kind=&address=.
func (a *API) profileByAuthentication(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	kind := identity.Kind(strings.TrimSpace(q.Get("kind")))
	addr := strings.TrimSpace(q.Get("address"))
	if kind == "" || addr == "" {
		writeError(w, r, http.StatusBadRequest, "kind and address are required")
		return
	}
	id, err := identity.New(kind, addr)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	p, err := a.svc.ProfileByAuthentication(id)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (a *API) profilePosts(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	posts, err := a.svc.ProfilePosts(auth.PrincipalFromContext(r.Context()), id)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": posts})
}

func (a *API) listPosts(w http.ResponseWriter, r *http.Request) {
	cursor, err := queryUint(r, "cursor")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	posts, err := a.svc.Posts(auth.PrincipalFromContext(r.Context()), cursor, limit)
	if err != nil {
		handleError(w, r, err)
		return
	}
	resp := pageResponse[community.PostSummary]{Items: posts}
	if len(posts) > 0 {
		next := strconv.FormatUint(posts[len(posts)-1].ID, 10)
		resp.NextCursor = &next
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) createPost(w http.ResponseWriter, r *http.Request) {
	var req createPostRequest
	if err := a.decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	p, err := a.svc.CreatePost(auth.PrincipalFromContext(r.Context()), req.Title, req.Description)
	if err != nil {
		handleError(w, r, err)
		return
	}
	w.Header().Set("Location", "/v1/posts/"+strconv.FormatUint(p.ID, 10))
	writeJSON(w, http.StatusCreated, p)
}

func (a *API) getPost(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	p, err := a.svc.Post(auth.PrincipalFromContext(r.Context()), id)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (a *API) createReply(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	var req createReplyRequest
	if err := a.decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	reply, err := a.svc.CreateReply(auth.PrincipalFromContext(r.Context()), id, req.Text)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, reply)
}

func (a *API) likePost(w http.ResponseWriter, r *http.Request) {
	a.like(w, r, a.svc.LikePost)
}

func (a *API) unlikePost(w http.ResponseWriter, r *http.Request) {
	a.like(w, r, a.svc.UnlikePost)
}

func (a *API) likeReply(w http.ResponseWriter, r *http.Request) {
	a.like(w, r, a.svc.LikeReply)
}

func (a *API) unlikeReply(w http.ResponseWriter, r *http.Request) {
	a.like(w, r, a.svc.UnlikeReply)
}

func (a *API) like(w http.ResponseWriter, r *http.Request, fn func(identity.Principal, uint64) (community.LikeResult, error)) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	res, err := fn(auth.PrincipalFromContext(r.Context()), id)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (a *API) moderatePost(hide bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		p, err := a.svc.SetPostStatus(r.Context(), auth.PrincipalFromContext(r.Context()), id, statusFor(hide))
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

func (a *API) moderateReply(hide bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		reply, err := a.svc.SetReplyStatus(r.Context(), auth.PrincipalFromContext(r.Context()), id, statusFor(hide))
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, reply)
	}
}

func statusFor(hide bool) store.Status {
	if hide {
		return store.StatusHidden
	}
	return store.StatusVisible
}

// rankingQuery reads ?scope= (a profile id, community wide when absent) and
// ?k=.
func rankingQuery(r *http.Request) (uint64, int, error) {
	scope, err := queryUint(r, "scope")
	if err != nil {
		return 0, 0, err
	}
	k, err := queryInt(r, "k")
	if err != nil {
		return 0, 0, err
	}
	if scope == nil {
		return ranking.CommunityScope, k, nil
	}
	return *scope, k, nil
}

func (a *API) topPosts(w http.ResponseWriter, r *http.Request) {
	scope, k, err := rankingQuery(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	top, err := a.svc.TopPosts(auth.PrincipalFromContext(r.Context()), scope, k)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": top})
}

func (a *API) topReplies(w http.ResponseWriter, r *http.Request) {
	scope, k, err := rankingQuery(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	top, err := a.svc.TopReplies(auth.PrincipalFromContext(r.Context()), scope, k)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": top})
}
