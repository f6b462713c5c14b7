//go:build integration

package postgres

import (
	"context"
	"testing"
)

func TestTrialRepo_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}
	cleanup(t)

	ctx := context.Background()
	repo := NewTrialRepo(testPool)

	used, err := repo.HasUsed(ctx, nil, 42)
	if err != nil {
		t.Fatal(err)
	}
	if used {
		t.Fatal("fresh user reported as having used the trial")
	}

	granted, err := repo.Add(ctx, nil, 42)
	if err != nil {
		t.Fatal(err)
	}
	if !granted {
		t.Fatal("first grant should succeed")
	}

	// The unique index makes the second grant a no-op.
	granted, err = repo.Add(ctx, nil, 42)
	if err != nil {
		t.Fatal(err)
	}
	if granted {
		t.Fatal("second grant must report false")
	}

	used, err = repo.HasUsed(ctx, nil, 42)
	if err != nil {
		t.Fatal(err)
	}
	if !used {
		t.Fatal("HasUsed should report true after a grant")
	}
}
