// Package sessiontest holds the behaviour every session.Factory must satisfy.
package sessiontest

import (
	"context"
	"testing"

	"github.com/claude/coachwizard/internal/session"
)

// Run exercises f against the Store contract.
func Run(t *testing.T, f session.Factory) {
	t.Helper()

	t.Run("GetMissing", func(t *testing.T) {
		s := f.Scope("missing")
		v, ok, err := s.Get(context.Background(), session.KeyUserID)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if ok || v != "" {
			t.Errorf("Get = (%q, %v), want (\"\", false)", v, ok)
		}
	})

	t.Run("SetGet", func(t *testing.T) {
		ctx := context.Background()
		s := f.Scope("set-get")
		if err := s.Set(ctx, session.KeyUserID, "u1"); err != nil {
			t.Fatalf("Set: %v", err)
		}
		v, ok, err := s.Get(ctx, session.KeyUserID)
		if err != nil || !ok || v != "u1" {
			t.Errorf("Get = (%q, %v, %v), want (u1, true, nil)", v, ok, err)
		}
	})

	t.Run("Overwrite", func(t *testing.T) {
		ctx := context.Background()
		s := f.Scope("overwrite")
		for _, v := range []string{"running", "running", "tennis"} {
			if err := s.Set(ctx, session.KeySelectedSport, v); err != nil {
				t.Fatalf("Set(%q): %v", v, err)
			}
		}
		v, _, _ := s.Get(ctx, session.KeySelectedSport)
		if v != "tennis" {
			t.Errorf("Get = %q, want tennis (last write wins)", v)
		}
	})

	t.Run("ClearIdempotent", func(t *testing.T) {
		ctx := context.Background()
		s := f.Scope("clear")
		_ = s.Set(ctx, session.KeyUserID, "u1")
		_ = s.Set(ctx, session.KeyUserName, "Alex")
		for i := 0; i < 2; i++ {
			if err := s.Clear(ctx); err != nil {
				t.Fatalf("Clear #%d: %v", i+1, err)
			}
		}
		for _, k := range []string{session.KeyUserID, session.KeyUserName} {
			if _, ok, _ := s.Get(ctx, k); ok {
				t.Errorf("%s still present after Clear", k)
			}
		}
	})

	t.Run("Replace", func(t *testing.T) {
		ctx := context.Background()
		s := f.Scope("replace")
		_ = s.Set(ctx, session.KeyUserID, "old")
		_ = s.Set(ctx, session.KeySelectedSport, "running")
		err := s.Replace(ctx, map[string]string{
			session.KeyUserID:   "new",
			session.KeyUserName: "Alex",
		})
		if err != nil {
			t.Fatalf("Replace: %v", err)
		}
		want := map[string]string{session.KeyUserID: "new", session.KeyUserName: "Alex"}
		for k, w := range want {
			if v, ok, _ := s.Get(ctx, k); !ok || v != w {
				t.Errorf("%s = (%q, %v), want (%q, true)", k, v, ok, w)
			}
		}
		if _, ok, _ := s.Get(ctx, session.KeySelectedSport); ok {
			t.Error("stale key survived Replace")
		}
	})

	t.Run("NamespacesIsolated", func(t *testing.T) {
		ctx := context.Background()
		a, b := f.Scope("browser-a"), f.Scope("browser-b")
		_ = a.Set(ctx, session.KeyUserID, "ua")
		_ = b.Set(ctx, session.KeyUserID, "ub")
		if err := a.Clear(ctx); err != nil {
			t.Fatalf("Clear: %v", err)
		}
		v, ok, _ := b.Get(ctx, session.KeyUserID)
		if !ok || v != "ub" {
			t.Errorf("other namespace = (%q, %v), want (ub, true)", v, ok)
		}
	})

	t.Run("SharedAcrossScopes", func(t *testing.T) {
		ctx := context.Background()
		_ = f.Scope("shared").Set(ctx, session.KeyStage, "sport")
		v, ok, _ := f.Scope("shared").Get(ctx, session.KeyStage)
		if !ok || v != "sport" {
			t.Errorf("Get via new scope = (%q, %v), want (sport, true)", v, ok)
		}
	})
}
