package redis

import (
	"context"
	"testing"
	"time"

	"autoescola-portal/internal/app"
	miniredis "github.com/alicebob/miniredis/v2"
)

func TestSessionStoreSetsAndClearsKeys(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	store := NewSessionStore(newClient(mr), time.Minute)
	session, err := app.NewSession(context.Background(), app.SessionConfig{Variant: app.FixedVariant()})
	if err != nil {
		t.Fatalf("new session: %v", err)
	}

	store.Put("u1", session)
	if got, _ := mr.Get("exam:session:u1"); got != session.ID() {
		t.Fatalf("expected liveness marker with session id, got %q", got)
	}
	if live, _ := store.Live(context.Background(), "u1"); !live {
		t.Fatalf("expected user live")
	}
	if _, ok := store.Get("u1"); !ok {
		t.Fatalf("expected local session")
	}

	store.Delete("u1")
	if mr.Exists("exam:session:u1") {
		t.Fatalf("expected redis key to be removed")
	}
}

func TestRevocationListUsesTTL(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	list := NewRevocationList(newClient(mr))
	ctx := context.Background()

	if err := list.Revoke(ctx, "t1", time.Minute); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if revoked, err := list.IsRevoked(ctx, "t1"); err != nil || !revoked {
		t.Fatalf("expected revoked, got %v %v", revoked, err)
	}
	if revoked, _ := list.IsRevoked(ctx, "t2"); revoked {
		t.Fatalf("unexpected revocation")
	}

	mr.FastForward(2 * time.Minute)
	if revoked, _ := list.IsRevoked(ctx, "t1"); revoked {
		t.Fatalf("expected revocation to expire")
	}
}
