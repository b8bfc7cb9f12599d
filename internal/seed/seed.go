// Package seed populates an empty service with a small demo community.
package seed

import (
	"context"
	"errors"
	"fmt"
	"math/rand"

	"github.com/sirupsen/logrus"

	"communities.ooo/internal/community"
	"communities.ooo/internal/identity"
	"communities.ooo/internal/ledger"
)

// Member is one demo participant.
type Member struct {
	Principal   identity.Principal
	Address     string
	Name        string
	Description string
}

// Thread is a post and the replies other members leave on it.
type Thread struct {
	Author  int
	Title   string
	Body    string
	Replies []string
}

type Scenario struct {
	Name    string
	Members []Member
	Threads []Thread
	// Admin is the member index that receives the minted admin token, or -1.
	Admin int
}

// Garden is the default demo scenario.
func Garden() Scenario {
	return Scenario{
		Name: "community-garden",
		Members: []Member{
			{Principal: "demo-alice", Address: "0xa11ce", Name: "alice", Description: "Keeps the seed library"},
			{Principal: "demo-bob", Address: "0xb0b", Name: "bob", Description: "Compost enthusiast"},
			{Principal: "demo-carol", Address: "0xca201", Name: "carol", Description: "Beekeeper"},
			{Principal: "demo-dave", Address: "0xda7e", Name: "dave"},
		},
		Threads: []Thread{
			{Author: 0, Title: "Spring planting schedule", Body: "Tomatoes go in after the last frost.", Replies: []string{
				"Can we reserve the south beds for peppers?",
				"I will bring seedlings on Saturday.",
			}},
			{Author: 1, Title: "Compost rota", Body: "Turning the pile every second week.", Replies: []string{
				"Count me in for May.",
			}},
			{Author: 2, Title: "Hive inspection notes", Body: "Both colonies are queenright and calm."},
		},
		Admin: 0,
	}
}

// Result summarizes what Apply created.
type Result struct {
	Profiles int
	Posts    int
	Replies  int
	Likes    int
	Minted   bool
}

// ErrNotEmpty is returned when the service already holds profiles.
var ErrNotEmpty = errors.New("seed: service is not empty")

// Apply creates the scenario through the service's public operations.
// Likes are chosen with a generator seeded by seed, so equal seeds give equal
// communities. minter must be a controller for the admin token to be minted;
// an empty minter skips minting.
func Apply(ctx context.Context, svc *community.Service, sc Scenario, minter identity.Principal, seed int64, log *logrus.Logger) (Result, error) {
	var res Result
	if svc.Stats().Profiles > 0 {
		return res, ErrNotEmpty
	}
	rnd := rand.New(rand.NewSource(seed))

	for _, m := range sc.Members {
		if _, _, err := svc.Login(ctx, identity.Evm{Addr: m.Address}, m.Principal); err != nil {
			return res, fmt.Errorf("login %s: %w", m.Principal, err)
		}
		if m.Name != "" || m.Description != "" {
			if _, err := svc.UpdateProfile(ctx, m.Principal, m.Name, m.Description); err != nil {
				return res, fmt.Errorf("profile %s: %w", m.Principal, err)
			}
		}
		res.Profiles++
	}

	for ti, th := range sc.Threads {
		if th.Author < 0 || th.Author >= len(sc.Members) {
			return res, fmt.Errorf("thread %d: author %d out of range", ti, th.Author)
		}
		author := sc.Members[th.Author].Principal
		post, err := svc.CreatePost(author, th.Title, th.Body)
		if err != nil {
			return res, fmt.Errorf("post %q: %w", th.Title, err)
		}
		res.Posts++

		for i, text := range th.Replies {
			// replies rotate through everyone except the author
			who := sc.Members[(th.Author+1+i)%len(sc.Members)].Principal
			if who == author && len(sc.Members) > 1 {
				who = sc.Members[(th.Author+2+i)%len(sc.Members)].Principal
			}
			reply, err := svc.CreateReply(who, post.ID, text)
			if err != nil {
				return res, fmt.Errorf("reply on %q: %w", th.Title, err)
			}
			res.Replies++
			n, err := likeSome(svc, sc.Members, who, rnd, func(p identity.Principal) error {
				_, err := svc.LikeReply(p, reply.ID)
				return err
			})
			if err != nil {
				return res, err
			}
			res.Likes += n
		}

		n, err := likeSome(svc, sc.Members, author, rnd, func(p identity.Principal) error {
			_, err := svc.LikePost(p, post.ID)
			return err
		})
		if err != nil {
			return res, err
		}
		res.Likes += n
	}

	if minter != "" && sc.Admin >= 0 && sc.Admin < len(sc.Members) {
		to := identity.NewAccount(sc.Members[sc.Admin].Principal, nil)
		results, err := svc.Mint(ctx, minter, []ledger.MintArg{{To: to, Name: sc.Name + " admin"}})
		if err != nil {
			return res, fmt.Errorf("mint: %w", err)
		}
		if len(results) != 1 {
			return res, fmt.Errorf("mint: %d results", len(results))
		}
		if results[0].Err != nil {
			return res, fmt.Errorf("mint: %w", results[0].Err)
		}
		res.Minted = true
	}

	if log != nil {
		log.WithFields(logrus.Fields{
			"scenario": sc.Name,
			"profiles": res.Profiles,
			"posts":    res.Posts,
			"replies":  res.Replies,
			"likes":    res.Likes,
			"minted":   res.Minted,
		}).Info("demo community seeded")
	}
	return res, nil
}

// likeSome has each member other than author like with probability 1/2.
func likeSome(svc *community.Service, members []Member, author identity.Principal, rnd *rand.Rand, like func(identity.Principal) error) (int, error) {
	n := 0
	for _, m := range members {
		if m.Principal == author || rnd.Intn(2) == 0 {
			continue
		}
		if err := like(m.Principal); err != nil {
			return n, fmt.Errorf("like by %s: %w", m.Principal, err)
		}
		n++
	}
	return n, nil
}
