package httpapi

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"communities.ooo/internal/auth"
	"communities.ooo/internal/community"
	"communities.ooo/internal/identity"
	"communities.ooo/internal/stream"
)

type apiClient struct {
	baseURL string
	client  *http.Client
	t       *testing.T
}

func newTestAPI(t *testing.T) *apiClient {
	t.Helper()

	quiet := logrus.New()
	quiet.SetOutput(io.Discard)
	events := stream.New()
	svc := community.New(
		auth.NewStaticControllers("root"),
		community.WithLogger(quiet),
		community.WithEvents(events),
		community.WithIDSeed([]byte("httpapi-test")),
	)
	issuer, err := auth.NewIssuer("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("issuer: %v", err)
	}
	api := New(Deps{
		Service:  svc,
		Issuer:   issuer,
		Verifier: identity.Passthrough{},
		Events:   events,
		Version:  "test",
	}, WithRateLimit(1000, 1000))

	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)

	return &apiClient{baseURL: srv.URL, client: srv.Client(), t: t}
}

func (c *apiClient) do(method, path, token string, body any) *http.Response {
	c.t.Helper()
	var payload io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			c.t.Fatalf("marshal body: %v", err)
		}
		payload = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, c.baseURL+path, payload)
	if err != nil {
		c.t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		c.t.Fatalf("do request: %v", err)
	}
	return resp
}

// expect checks the status and decodes the body into dst when non-nil.
func (c *apiClient) expect(resp *http.Response, code int, dst any) {
	c.t.Helper()
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != code {
		c.t.Fatalf("%s %s: status %d, want %d: %s", resp.Request.Method, resp.Request.URL.Path, resp.StatusCode, code, raw)
	}
	if dst != nil {
		if err := json.Unmarshal(raw, dst); err != nil {
			c.t.Fatalf("decode %s: %v", raw, err)
		}
	}
}

func (c *apiClient) login(principal, kind, addr string) string {
	c.t.Helper()
	var out struct {
		Token string `json:"token"`
	}
	resp := c.do(http.MethodPost, "/v1/auth/login", "", map[string]any{
		"principal": principal,
		"proof":     map[string]any{"kind": kind, "address": addr},
	})
	code := resp.StatusCode
	if code != http.StatusCreated && code != http.StatusOK {
		c.expect(resp, http.StatusCreated, nil)
	}
	c.expect(resp, code, &out)
	if out.Token == "" {
		c.t.Fatal("login returned no token")
	}
	return out.Token
}

type batchResult struct {
	Results []struct {
		TxID        *uint64 `json:"tx_id"`
		Code        string  `json:"code"`
		DuplicateOf *uint64 `json:"duplicate_of"`
	} `json:"results"`
}

func TestHealthAndInfo(t *testing.T) {
	c := newTestAPI(t)
	var health map[string]any
	c.expect(c.do(http.MethodGet, "/healthz", "", nil), http.StatusOK, &health)
	if health["status"] != "ok" || health["version"] != "test" {
		t.Fatalf("healthz = %v", health)
	}
	c.expect(c.do(http.MethodGet, "/readyz", "", nil), http.StatusOK, nil)
	c.expect(c.do(http.MethodGet, "/v1/info", "", nil), http.StatusOK, nil)
	c.expect(c.do(http.MethodGet, "/nope", "", nil), http.StatusNotFound, nil)
}

func TestLoginValidation(t *testing.T) {
	c := newTestAPI(t)
	c.expect(c.do(http.MethodPost, "/v1/auth/login", "", map[string]any{
		"principal": "alice",
		"proof":     map[string]any{"kind": "btc", "address": "x"},
	}), http.StatusBadRequest, nil)
	c.expect(c.do(http.MethodPost, "/v1/auth/login", "", map[string]any{
		"principal": "alice",
		"proof":     map[string]any{"kind": "ic", "address": "mallory"},
	}), http.StatusUnauthorized, nil)
	c.expect(c.do(http.MethodPost, "/v1/auth/login", "", map[string]any{
		"principal": "alice",
		"extra":     true,
	}), http.StatusBadRequest, nil)
	c.expect(c.do(http.MethodGet, "/v1/profile", "not-a-jwt", nil), http.StatusUnauthorized, nil)
	c.expect(c.do(http.MethodGet, "/v1/profile", "", nil), http.StatusUnauthorized, nil)
}

func TestProfileFlow(t *testing.T) {
	c := newTestAPI(t)
	token := c.login("alice", "evm", "0xAA")

	var me community.ProfileView
	c.expect(c.do(http.MethodPatch, "/v1/profile", token, map[string]any{"name": "Alice", "description": "hi"}), http.StatusOK, &me)
	if me.Name != "Alice" || me.Authentication.Address != "0xaa" {
		t.Fatalf("profile = %+v", me)
	}
	var byAddr community.ProfileView
	c.expect(c.do(http.MethodGet, "/v1/profiles?kind=evm&address=0xaa", "", nil), http.StatusOK, &byAddr)
	if byAddr.ID != me.ID {
		t.Fatalf("lookup by address = %+v", byAddr)
	}
	c.expect(c.do(http.MethodPatch, "/v1/profile", token, map[string]any{"name": strings.Repeat("x", 65)}), http.StatusBadRequest, nil)
}

func TestPostsLikesAndModeration(t *testing.T) {
	c := newTestAPI(t)
	alice := c.login("alice", "evm", "0xaa")
	bob := c.login("bob", "svm", "BobAddress")
	root := c.login("root", "ic", "root")

	c.expect(c.do(http.MethodPost, "/v1/posts", "", map[string]any{"title": "t", "description": "d"}), http.StatusUnauthorized, nil)
	c.expect(c.do(http.MethodPost, "/v1/posts", alice, map[string]any{"title": ""}), http.StatusBadRequest, nil)

	var post community.PostSummary
	c.expect(c.do(http.MethodPost, "/v1/posts", alice, map[string]any{"title": "hello", "description": "world"}), http.StatusCreated, &post)
	path := "/v1/posts/" + itoa(post.ID)

	var reply community.ReplyView
	c.expect(c.do(http.MethodPost, path+"/replies", bob, map[string]any{"text": "welcome"}), http.StatusCreated, &reply)
	c.expect(c.do(http.MethodPost, "/v1/posts/999/replies", bob, map[string]any{"text": "x"}), http.StatusNotFound, nil)

	var liked community.LikeResult
	c.expect(c.do(http.MethodPost, path+"/like", bob, nil), http.StatusOK, &liked)
	if liked.Likes != 1 || !liked.Liked {
		t.Fatalf("like = %+v", liked)
	}
	c.expect(c.do(http.MethodPost, path+"/like", bob, nil), http.StatusConflict, nil)
	c.expect(c.do(http.MethodPost, "/v1/replies/"+itoa(reply.ID)+"/like", alice, nil), http.StatusOK, nil)

	var top struct {
		Items []community.RankedPost `json:"items"`
	}
	c.expect(c.do(http.MethodGet, "/v1/rankings/posts", "", nil), http.StatusOK, &top)
	if len(top.Items) != 1 || top.Items[0].Post.ID != post.ID {
		t.Fatalf("rankings = %+v", top)
	}
	var topReplies struct {
		Items []community.RankedReply `json:"items"`
	}
	c.expect(c.do(http.MethodGet, "/v1/rankings/replies?scope="+itoa(reply.Author.ID), "", nil), http.StatusOK, &topReplies)
	if len(topReplies.Items) != 1 {
		t.Fatalf("reply rankings = %+v", topReplies)
	}

	c.expect(c.do(http.MethodPost, path+"/hide", bob, nil), http.StatusForbidden, nil)

	var minted batchResult
	c.expect(c.do(http.MethodPost, "/v1/ledger/mint", root, map[string]any{
		"items": []any{map[string]any{"to": map[string]any{"owner": "bob"}, "name": "moderator"}},
	}), http.StatusOK, &minted)
	if len(minted.Results) != 1 || minted.Results[0].TxID == nil {
		t.Fatalf("mint = %+v", minted)
	}

	c.expect(c.do(http.MethodPost, path+"/hide", bob, nil), http.StatusOK, nil)
	c.expect(c.do(http.MethodGet, path, "", nil), http.StatusNotFound, nil)
	c.expect(c.do(http.MethodGet, path, bob, nil), http.StatusOK, nil)
	c.expect(c.do(http.MethodPost, path+"/like", alice, nil), http.StatusBadRequest, nil)

	var page struct {
		Items []community.PostSummary `json:"items"`
	}
	c.expect(c.do(http.MethodGet, "/v1/posts", "", nil), http.StatusOK, &page)
	if len(page.Items) != 0 {
		t.Fatalf("hidden post listed: %+v", page)
	}
	c.expect(c.do(http.MethodPost, path+"/show", bob, nil), http.StatusOK, nil)
	c.expect(c.do(http.MethodGet, "/v1/posts?limit=5", "", nil), http.StatusOK, &page)
	if len(page.Items) != 1 {
		t.Fatalf("shown post missing: %+v", page)
	}
	c.expect(c.do(http.MethodGet, "/v1/posts?limit=500", "", nil), http.StatusBadRequest, nil)
	c.expect(c.do(http.MethodDelete, path+"/like", bob, nil), http.StatusOK, nil)
}

func itoa(v uint64) string {
	b, _ := json.Marshal(v)
	return string(b)
}
