// Package community is the request-handling core: it resolves callers to
// profiles, checks privileges and applies every change to the store, the
// ledger and the rank indexes as one step.
//
// Service serializes all steps behind one lock. Calls to external
// collaborators (the controller list) happen outside the lock, so ledger
// batches run in two phases: authorization first, then validation and commit
// against the state current at commit time.
package community

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"communities.ooo/internal/apperr"
	"communities.ooo/internal/audit"
	"communities.ooo/internal/auth"
	"communities.ooo/internal/identity"
	"communities.ooo/internal/ids"
	"communities.ooo/internal/ledger"
	"communities.ooo/internal/obs"
	"communities.ooo/internal/ranking"
	"communities.ooo/internal/store"
	"communities.ooo/internal/stream"
)

var (
	ErrAnonymous      = fmt.Errorf("%w: anonymous caller", apperr.ErrUnauthorized)
	ErrNoProfile      = fmt.Errorf("%w: caller has no profile", apperr.ErrUnauthorized)
	ErrInvalidLimit   = fmt.Errorf("%w: limit out of range", apperr.ErrInvalid)
	errSnapshotFormat = errors.New("unsupported snapshot version")
)

// Service is safe for concurrent use.
type Service struct {
	mu        sync.RWMutex
	st        *store.Store
	led       *ledger.Ledger
	pol       *auth.Policy
	postRank  *ranking.Index
	replyRank *ranking.Index

	controllers auth.Controllers
	events      *stream.Stream
	log         *logrus.Logger
	now         func() time.Time
	ledgerCfg   ledger.Config
	topK        int
	seed        []byte
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(fn func() time.Time) Option {
	return func(s *Service) { s.now = fn }
}

func WithLogger(l *logrus.Logger) Option {
	return func(s *Service) { s.log = l }
}

// WithEvents publishes domain events to st.
func WithEvents(st *stream.Stream) Option {
	return func(s *Service) { s.events = st }
}

func WithLedgerConfig(cfg ledger.Config) Option {
	return func(s *Service) { s.ledgerCfg = cfg }
}

// WithTopK sets how many entries rank queries return by default.
func WithTopK(k int) Option {
	return func(s *Service) {
		if k > 0 {
			s.topK = k
		}
	}
}

// WithIDSeed keys the surrogate id mixer of a fresh store.
func WithIDSeed(seed []byte) Option {
	return func(s *Service) { s.seed = append([]byte(nil), seed...) }
}

// New returns a Service over an empty store.
func New(controllers auth.Controllers, opts ...Option) *Service {
	s := &Service{
		controllers: controllers,
		log:         obs.Logger(),
		now:         time.Now,
		ledgerCfg:   ledger.DefaultConfig(),
		topK:        ranking.DefaultK,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.install(store.New(ids.NewGenerator(s.seed)), nil)
	return s
}

// install swaps in a store and ledger log and rebuilds everything derived.
// Callers hold the write lock or own s exclusively.
func (s *Service) install(st *store.Store, log []ledger.Transaction) {
	s.st = st
	s.led = ledger.Restore(st, s.ledgerCfg, log)
	s.pol = auth.NewPolicy(st)
	s.postRank = ranking.New()
	s.replyRank = ranking.New()
	s.rebuildRanks()
	s.publishCounts(st.Counts())
}

// write runs fn under the write lock. The lock is released even when fn
// panics. On success it returns the table sizes as fn left them.
func (s *Service) write(fn func() error) (store.Counts, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := fn(); err != nil {
		return store.Counts{}, err
	}
	return s.st.Counts(), nil
}

func (s *Service) clock() time.Time { return s.now().UTC() }

// caller resolves principal to its profile.
func (s *Service) caller(principal identity.Principal) (store.Profile, error) {
	if principal.IsAnonymous() {
		return store.Profile{}, ErrAnonymous
	}
	p, err := s.st.ProfileByPrincipal(principal)
	if err != nil {
		return store.Profile{}, ErrNoProfile
	}
	return p, nil
}

func (s *Service) isAdmin(principal identity.Principal) bool {
	return s.pol.PrincipalHasRole(principal, store.RoleAdmin)
}

// take resolves a page size: zero means the default, above the maximum is an
// error.
func (s *Service) take(limit int) (int, error) {
	switch {
	case limit < 0:
		return 0, ErrInvalidLimit
	case limit == 0:
		return s.ledgerCfg.DefaultTake, nil
	case limit > s.ledgerCfg.MaxTake:
		return 0, ErrInvalidLimit
	}
	return limit, nil
}

func (s *Service) publish(typ string, data any) {
	if s.events == nil {
		return
	}
	s.events.Publish(stream.NewEvent(typ, data))
}

func (s *Service) publishCounts(c store.Counts) {
	obs.SetEntityCounts(map[string]int{
		"profiles": c.Profiles,
		"posts":    c.Posts,
		"replies":  c.Replies,
		"likes":    c.Likes,
		"tokens":   c.Tokens,
	})
}

// record writes an audit entry; a failure is logged and otherwise ignored.
func (s *Service) record(ctx context.Context, event string, fields map[string]any) {
	if err := audit.LogEvent(ctx, event, fields); err != nil {
		s.log.WithError(err).WithField("event", event).Error("audit write failed")
	}
}

// Stats reports table sizes and ledger length.
type Stats struct {
	store.Counts
	Transactions int `json:"transactions"`
}

func (s *Service) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Stats{Counts: s.st.Counts(), Transactions: s.led.Len()}
}
