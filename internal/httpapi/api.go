// Package httpapi is the JSON-over-HTTP transport of the community service,
// plus the gRPC health endpoint. Handlers decode and validate input, call
// community.Service and map its error kinds to status codes.
package httpapi

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"communities.ooo/internal/auth"
	"communities.ooo/internal/community"
	"communities.ooo/internal/identity"
	"communities.ooo/internal/obs"
	"communities.ooo/internal/stream"
)

const serviceName = "communities-api"

// ReadyProbe reports readiness; with a database it pings it.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

type readinessChecker interface {
	Check(ctx context.Context) error
}

// Deps are the collaborators the API serves.
type Deps struct {
	Service  *community.Service
	Issuer   *auth.Issuer
	Verifier identity.Verifier
	Events   *stream.Stream
	Ready    readinessChecker
	Version  string
}

// API is the HTTP layer.
type API struct {
	mux      *http.ServeMux
	svc      *community.Service
	issuer   *auth.Issuer
	verifier identity.Verifier
	stream   *stream.Stream
	ready    readinessChecker
	version  string
	validate *validator.Validate

	corsOrigins  []string
	ratePerSec   float64
	rateBurst    int
	maxBodyBytes int64
}

type Option func(*API)

// WithCORSOrigins sets the origins allowed to call the API from a browser.
func WithCORSOrigins(origins []string) Option {
	return func(a *API) { a.corsOrigins = origins }
}

// WithRateLimit sets the per-client token bucket.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(a *API) {
		a.ratePerSec = perSecond
		a.rateBurst = burst
	}
}

func WithMaxBodyBytes(n int64) Option {
	return func(a *API) { a.maxBodyBytes = n }
}

func New(d Deps, opts ...Option) *API {
	a := &API{
		mux:          http.NewServeMux(),
		svc:          d.Service,
		issuer:       d.Issuer,
		verifier:     d.Verifier,
		stream:       d.Events,
		ready:        d.Ready,
		version:      d.Version,
		validate:     validator.New(validator.WithRequiredStructEnabled()),
		ratePerSec:   20,
		rateBurst:    40,
		maxBodyBytes: 1 << 20,
	}
	if a.ready == nil {
		a.ready = ReadyProbe{}
	}
	if a.verifier == nil {
		a.verifier = identity.Passthrough{}
	}
	for _, opt := range opts {
		opt(a)
	}
	a.routes()
	return a
}

func (a *API) routes() {
	a.mux.HandleFunc("GET /healthz", a.Healthz)
	a.mux.HandleFunc("GET /readyz", a.Ready)
	a.mux.HandleFunc("GET /v1/info", a.Info)
	a.mux.Handle("GET /metrics", obs.Handler())
	a.mux.HandleFunc("GET /v1/stream", a.Stream)

	a.mux.HandleFunc("POST /v1/auth/login", a.login)

	a.mux.HandleFunc("GET /v1/profile", a.me)
	a.mux.HandleFunc("PATCH /v1/profile", a.updateProfile)
	a.mux.HandleFunc("GET /v1/profiles", a.profileByAuthentication)
	a.mux.HandleFunc("GET /v1/profiles/{id}", a.profile)
	a.mux.HandleFunc("GET /v1/profiles/{id}/posts", a.profilePosts)

	a.mux.HandleFunc("GET /v1/posts", a.listPosts)
	a.mux.HandleFunc("POST /v1/posts", a.createPost)
	a.mux.HandleFunc("GET /v1/posts/{id}", a.getPost)
	a.mux.HandleFunc("POST /v1/posts/{id}/replies", a.createReply)
	a.mux.HandleFunc("POST /v1/posts/{id}/like", a.likePost)
	a.mux.HandleFunc("DELETE /v1/posts/{id}/like", a.unlikePost)
	a.mux.HandleFunc("POST /v1/posts/{id}/hide", a.moderatePost(true))
	a.mux.HandleFunc("POST /v1/posts/{id}/show", a.moderatePost(false))

	a.mux.HandleFunc("POST /v1/replies/{id}/like", a.likeReply)
	a.mux.HandleFunc("DELETE /v1/replies/{id}/like", a.unlikeReply)
	a.mux.HandleFunc("POST /v1/replies/{id}/hide", a.moderateReply(true))
	a.mux.HandleFunc("POST /v1/replies/{id}/show", a.moderateReply(false))

	a.mux.HandleFunc("GET /v1/rankings/posts", a.topPosts)
	a.mux.HandleFunc("GET /v1/rankings/replies", a.topReplies)

	a.mux.HandleFunc("POST /v1/ledger/mint", a.mint)
	a.mux.HandleFunc("POST /v1/ledger/transfer", a.transfer)
	a.mux.HandleFunc("POST /v1/ledger/burn", a.burn)
	a.mux.HandleFunc("GET /v1/ledger/metadata", a.ledgerMetadata)
	a.mux.HandleFunc("GET /v1/ledger/tokens", a.listTokens)
	a.mux.HandleFunc("GET /v1/ledger/tokens/{id}", a.getToken)
	a.mux.HandleFunc("GET /v1/ledger/accounts/{owner}/tokens", a.accountTokens)
	a.mux.HandleFunc("GET /v1/ledger/transactions", a.listTransactions)

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "resource not found")
	})
}

// Handler returns the mux wrapped in the middleware chain.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.mux
	h = a.withAuth(h)
	h = RateLimit(h, a.rateBurst, a.ratePerSec)
	h = MaxBodyBytes(h, a.maxBodyBytes)
	h = CORS(h, a.corsOrigins)
	h = SecurityHeaders(h)
	h = LoggingJSON(h)
	h = RequestID(h)
	return obs.Instrument(h)
}

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": serviceName,
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.ready.Check(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    serviceName,
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
		"stats":   a.svc.Stats(),
	})
}
