//go:build integration

package postgres

import (
	"context"
	"testing"
)

func TestBlockRepo_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}
	cleanup(t)

	ctx := context.Background()
	repo := NewBlockRepo(testPool)

	blocked, err := repo.IsBlocked(ctx, nil, 42)
	if err != nil {
		t.Fatal(err)
	}
	if blocked {
		t.Fatal("fresh user should not be blocked")
	}

	if err := repo.Block(ctx, nil, 42, "fraud"); err != nil {
		t.Fatal(err)
	}
	// Blocking again just updates the reason.
	if err := repo.Block(ctx, nil, 42, "chargeback"); err != nil {
		t.Fatal(err)
	}

	blocked, err = repo.IsBlocked(ctx, nil, 42)
	if err != nil {
		t.Fatal(err)
	}
	if !blocked {
		t.Fatal("user should be blocked")
	}

	removed, err := repo.Unblock(ctx, nil, 42)
	if err != nil {
		t.Fatal(err)
	}
	if !removed {
		t.Fatal("unblock should report the row was removed")
	}

	removed, err = repo.Unblock(ctx, nil, 42)
	if err != nil {
		t.Fatal(err)
	}
	if removed {
		t.Fatal("second unblock should report nothing to remove")
	}
}
