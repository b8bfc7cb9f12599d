package seed

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/sirupsen/logrus"

	"communities.ooo/internal/auth"
	"communities.ooo/internal/community"
	"communities.ooo/internal/identity"
)

func newService() *community.Service {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return community.New(auth.NewStaticControllers("root"), community.WithLogger(l), community.WithIDSeed([]byte("seed-test")))
}

func TestApplyGarden(t *testing.T) {
	svc := newService()
	sc := Garden()
	res, err := Apply(context.Background(), svc, sc, "root", 42, nil)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if res.Profiles != len(sc.Members) || res.Posts != 3 || res.Replies != 3 || !res.Minted {
		t.Fatalf("result = %+v", res)
	}
	stats := svc.Stats()
	if stats.Profiles != 4 || stats.Posts != 3 || stats.Replies != 3 || stats.Tokens != 1 || stats.Likes != res.Likes {
		t.Fatalf("stats = %+v, result = %+v", stats, res)
	}
	me, err := svc.Me("demo-alice")
	if err != nil || me.Name != "alice" {
		t.Fatalf("me = %+v, %v", me, err)
	}
	if len(me.Roles) != 1 {
		t.Fatalf("alice roles = %v", me.Roles)
	}
}

func TestApplyIsDeterministic(t *testing.T) {
	a, err := Apply(context.Background(), newService(), Garden(), "", 7, nil)
	if err != nil {
		t.Fatalf("Apply a: %v", err)
	}
	b, err := Apply(context.Background(), newService(), Garden(), "", 7, nil)
	if err != nil {
		t.Fatalf("Apply b: %v", err)
	}
	if a != b || a.Minted {
		t.Fatalf("a = %+v, b = %+v", a, b)
	}
}

func TestApplyRefusesPopulatedService(t *testing.T) {
	svc := newService()
	if _, _, err := svc.Login(context.Background(), identity.Evm{Addr: "0x1"}, "someone"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if _, err := Apply(context.Background(), svc, Garden(), "root", 1, nil); !errors.Is(err, ErrNotEmpty) {
		t.Fatalf("err = %v", err)
	}
}

func TestApplyRejectsNonController(t *testing.T) {
	if _, err := Apply(context.Background(), newService(), Garden(), "stranger", 1, nil); err == nil {
		t.Fatal("expected mint failure for non-controller")
	}
}
