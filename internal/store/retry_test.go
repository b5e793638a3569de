package store

import (
	"context"
	"errors"
	"testing"
)

func TestWithRetryRecoversFromContention(t *testing.T) {
	busy := errors.New("database is locked")
	attempts := 0
	err := WithRetry(context.Background(), func(err error) bool { return errors.Is(err, busy) }, func() error {
		attempts++
		if attempts < 3 {
			return busy
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if attempts != 3 {
		t.Fatalf("attempts=%d, want 3", attempts)
	}
}

func TestWithRetryGivesUpAfterThreeAttempts(t *testing.T) {
	busy := errors.New("database is locked")
	attempts := 0
	err := WithRetry(context.Background(), func(err error) bool { return true }, func() error {
		attempts++
		return busy
	})
	if !errors.Is(err, ErrStoreBusy) {
		t.Fatalf("expected ErrStoreBusy, got %v", err)
	}
	if attempts != 3 {
		t.Fatalf("attempts=%d, want 3", attempts)
	}
}

func TestWithRetryDoesNotRetryOtherErrors(t *testing.T) {
	fatal := errors.New("constraint violation")
	attempts := 0
	err := WithRetry(context.Background(), func(err error) bool { return false }, func() error {
		attempts++
		return fatal
	})
	if !errors.Is(err, fatal) {
		t.Fatalf("expected error, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("attempts=%d, want 1", attempts)
	}
}
