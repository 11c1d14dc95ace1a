//go:build integration

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/prospect/internal/session"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	ctx := context.Background()
	s, err := New(ctx, dbURL)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}

	t.Cleanup(func() {
		s.Close()
	})
	return s
}

func TestIntegration_SaveLoadRoundTrip(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	sess := session.New("Interviewer: what slows you down?\nCustomer: exports take hours")
	run := sess.Run("chunking")
	_ = run.MarkRunning()
	run.MarkError("api error 500")
	_ = run.MarkRunning()
	run.MarkSuccess(json.RawMessage(`{"chunks":[{"index":0,"topic":"exports","text":"..."}]}`))
	_ = sess.SetDisplayed("chunking")

	if err := s.Save(ctx, sess); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	t.Cleanup(func() { _ = s.Delete(ctx, sess.ID) })

	got, err := s.Load(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if got.Transcript != sess.Transcript {
		t.Errorf("transcript mismatch: %q", got.Transcript)
	}
	if got.Displayed != "chunking" {
		t.Errorf("displayed mismatch: %q", got.Displayed)
	}
	r := got.Runs["chunking"]
	if r == nil {
		t.Fatal("chunking run missing after reload")
	}
	if r.Status != session.StatusSuccess || r.Retries != 1 {
		t.Errorf("run state mismatch: %s/%d", r.Status, r.Retries)
	}
	// JSONB normalises key order, so compare decoded values.
	var want, have any
	_ = json.Unmarshal(run.Result, &want)
	if err := json.Unmarshal(r.Result, &have); err != nil {
		t.Fatalf("result payload corrupt after reload: %v", err)
	}
	if fmt.Sprint(have) != fmt.Sprint(want) {
		t.Errorf("result payload mismatch after reload: %s", r.Result)
	}
}

func TestIntegration_SavePrunesResetRuns(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	sess := session.New("t")
	run := sess.Run("chunking")
	_ = run.MarkRunning()
	run.MarkSuccess(json.RawMessage(`{"chunks":[]}`))
	if err := s.Save(ctx, sess); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	t.Cleanup(func() { _ = s.Delete(ctx, sess.ID) })

	sess.Reset()
	if err := s.Save(ctx, sess); err != nil {
		t.Fatalf("Save after reset failed: %v", err)
	}

	got, err := s.Load(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(got.Runs) != 0 {
		t.Errorf("expected no runs after reset, got %d", len(got.Runs))
	}
}

func TestIntegration_DeleteMissing(t *testing.T) {
	s := setupTestStore(t)
	err := s.Delete(context.Background(), uuid.New())
	if !errors.Is(err, session.ErrNotFound) {
		t.Errorf("expected not-found, got %v", err)
	}
}
