package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noemahq/noema/internal/domain"
)

func newTestChainService() (*ChainService, *mockChainStore) {
	chains := newMockChainStore()
	return NewChainService(chains, zap.NewNop()), chains
}

func TestAssignClaimCreatesChainWhenNothingMatches(t *testing.T) {
	svc, chains := newTestChainService()
	ctx := context.Background()

	claim := &domain.Claim{ID: uuid.New(), Statement: "started learning piano", Subject: "piano"}
	chain, err := svc.AssignClaim(ctx, claim)
	if err != nil {
		t.Fatalf("AssignClaim: %v", err)
	}
	if chain.State != domain.ChainActive {
		t.Errorf("new chain state = %s, want active", chain.State)
	}

	links, _ := chains.ListClaims(ctx, chain.ID)
	if len(links) != 1 || links[0].Position != 1 {
		t.Errorf("links = %+v, want one link at position 1", links)
	}
}

func TestAssignClaimJoinsMatchingChain(t *testing.T) {
	svc, chains := newTestChainService()
	ctx := context.Background()

	first := &domain.Claim{ID: uuid.New(), Statement: "started learning piano scales", Subject: "piano"}
	chain1, err := svc.AssignClaim(ctx, first)
	if err != nil {
		t.Fatalf("AssignClaim first: %v", err)
	}

	second := &domain.Claim{ID: uuid.New(), Statement: "piano practice again", Subject: "piano"}
	chain2, err := svc.AssignClaim(ctx, second)
	if err != nil {
		t.Fatalf("AssignClaim second: %v", err)
	}
	if chain2.ID != chain1.ID {
		t.Fatalf("second claim opened a new chain, want join of %s", chain1.ID)
	}

	links, _ := chains.ListClaims(ctx, chain1.ID)
	if len(links) != 2 || links[1].Position != 2 {
		t.Errorf("links = %+v, want positions 1,2", links)
	}
}

func TestAssignClaimBelowThresholdOpensNewChain(t *testing.T) {
	svc, _ := newTestChainService()
	ctx := context.Background()

	chain1, err := svc.AssignClaim(ctx, &domain.Claim{
		ID: uuid.New(), Statement: "started learning piano", Subject: "piano",
	})
	if err != nil {
		t.Fatal(err)
	}
	chain2, err := svc.AssignClaim(ctx, &domain.Claim{
		ID: uuid.New(), Statement: "deployed the billing microservice", Subject: "billing service",
	})
	if err != nil {
		t.Fatal(err)
	}
	if chain1.ID == chain2.ID {
		t.Error("unrelated claims landed on the same chain")
	}
}

func TestActiveChainCapForcesOldestDormant(t *testing.T) {
	svc, chains := newTestChainService()
	ctx := context.Background()

	// Eleven unrelated topics: the cap of ten forces exactly one dormant.
	topics := []string{
		"piano", "gardening", "kubernetes", "marathon", "taxes",
		"novel", "chess", "woodworking", "spanish", "photography", "astronomy",
	}
	for i, topic := range topics {
		claim := &domain.Claim{
			ID:        uuid.New(),
			Statement: fmt.Sprintf("thinking about %s lately", topic),
			Subject:   topic,
		}
		if _, err := svc.AssignClaim(ctx, claim); err != nil {
			t.Fatalf("AssignClaim %d: %v", i, err)
		}
		// mock sets LastExtended=now; ensure strict ordering
		time.Sleep(time.Millisecond)
	}

	active, _ := chains.ListByState(ctx, domain.ChainActive)
	dormant, _ := chains.ListByState(ctx, domain.ChainDormant)
	if len(active) != 10 {
		t.Errorf("active chains = %d, want 10", len(active))
	}
	if len(dormant) != 1 {
		t.Fatalf("dormant chains = %d, want 1", len(dormant))
	}
	if dormant[0].Topic != "piano" {
		t.Errorf("dormant chain topic = %q, want the oldest (piano)", dormant[0].Topic)
	}
}

func TestCheckDormancyIsIdempotent(t *testing.T) {
	svc, chains := newTestChainService()
	ctx := context.Background()

	old := &domain.ThoughtChain{Topic: "piano", State: domain.ChainActive}
	if err := chains.Create(ctx, old); err != nil {
		t.Fatal(err)
	}
	stale := time.Now().Add(-time.Hour)
	if err := chains.UpdateLastExtended(ctx, old.ID, stale); err != nil {
		t.Fatal(err)
	}
	fresh := &domain.ThoughtChain{Topic: "gardening", State: domain.ChainActive}
	if err := chains.Create(ctx, fresh); err != nil {
		t.Fatal(err)
	}

	swept, err := svc.CheckDormancy(ctx)
	if err != nil {
		t.Fatalf("CheckDormancy: %v", err)
	}
	if swept != 1 {
		t.Fatalf("first sweep = %d, want 1", swept)
	}

	swept, err = svc.CheckDormancy(ctx)
	if err != nil {
		t.Fatalf("second CheckDormancy: %v", err)
	}
	if swept != 0 {
		t.Errorf("second sweep = %d, want 0", swept)
	}
}

func TestAddClaimRevivesDormantChain(t *testing.T) {
	svc, chains := newTestChainService()
	ctx := context.Background()

	chain := &domain.ThoughtChain{Topic: "piano", State: domain.ChainDormant}
	if err := chains.Create(ctx, chain); err != nil {
		t.Fatal(err)
	}
	chains.set(&domain.ThoughtChain{
		ID: chain.ID, Topic: "piano", State: domain.ChainDormant,
		LastExtended: time.Now().Add(-time.Hour),
	})

	if err := svc.AddClaimToChain(ctx, chain.ID, uuid.New()); err != nil {
		t.Fatalf("AddClaimToChain: %v", err)
	}

	got, _ := chains.GetByID(ctx, chain.ID)
	if got.State != domain.ChainActive {
		t.Errorf("chain state = %s, want active after revival", got.State)
	}
}

func TestAddClaimToConcludedChainFails(t *testing.T) {
	svc, chains := newTestChainService()
	ctx := context.Background()

	chain := &domain.ThoughtChain{Topic: "piano", State: domain.ChainActive}
	if err := chains.Create(ctx, chain); err != nil {
		t.Fatal(err)
	}
	if err := chains.UpdateState(ctx, chain.ID, domain.ChainConcluded); err != nil {
		t.Fatal(err)
	}

	if err := svc.AddClaimToChain(ctx, chain.ID, uuid.New()); err == nil {
		t.Error("expected error adding claim to concluded chain")
	}
}

func TestBranchChainRequiresParent(t *testing.T) {
	svc, chains := newTestChainService()
	ctx := context.Background()

	if _, err := svc.BranchChain(ctx, uuid.New(), "piano theory"); err == nil {
		t.Fatal("expected error branching from missing parent")
	}

	parent := &domain.ThoughtChain{Topic: "piano", State: domain.ChainActive}
	if err := chains.Create(ctx, parent); err != nil {
		t.Fatal(err)
	}
	branch, err := svc.BranchChain(ctx, parent.ID, "piano theory")
	if err != nil {
		t.Fatalf("BranchChain: %v", err)
	}
	if branch.BranchesFrom == nil || *branch.BranchesFrom != parent.ID {
		t.Errorf("branch.BranchesFrom = %v, want %s", branch.BranchesFrom, parent.ID)
	}
}

func TestConcludeChainTransitions(t *testing.T) {
	tests := []struct {
		from    domain.ChainState
		wantErr bool
	}{
		{domain.ChainActive, false},
		{domain.ChainDormant, false},
		{domain.ChainConcluded, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.from), func(t *testing.T) {
			svc, chains := newTestChainService()
			ctx := context.Background()

			chain := &domain.ThoughtChain{Topic: "piano", State: domain.ChainActive}
			if err := chains.Create(ctx, chain); err != nil {
				t.Fatal(err)
			}
			if err := chains.UpdateState(ctx, chain.ID, tt.from); err != nil {
				t.Fatal(err)
			}

			err := svc.ConcludeChain(ctx, chain.ID)
			if (err != nil) != tt.wantErr {
				t.Errorf("ConcludeChain from %s: err = %v, wantErr %v", tt.from, err, tt.wantErr)
			}
		})
	}
}
