package service

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/noemahq/noema/internal/domain"
)

func newTestGoalService() (*GoalService, *mockGoalStore) {
	goals := newMockGoalStore()
	return NewGoalService(goals, zap.NewNop()), goals
}

func TestDeriveFromClaim(t *testing.T) {
	tests := []struct {
		name     string
		claim    domain.Claim
		vol      domain.VolitionalStance
		wantGoal bool
	}{
		{
			name:     "intention claim always derives",
			claim:    domain.Claim{Statement: "I want to learn piano", ClaimType: domain.ClaimIntention, Subject: "piano"},
			vol:      domain.VolitionalStance{Type: domain.VolitionalGoal, Strength: 0.8, Valence: 1},
			wantGoal: true,
		},
		{
			name:     "strong desire derives",
			claim:    domain.Claim{Statement: "really want to run a marathon", ClaimType: domain.ClaimPreference, Subject: "marathon"},
			vol:      domain.VolitionalStance{Type: domain.VolitionalDesire, Strength: 0.7, Valence: 1},
			wantGoal: true,
		},
		{
			name:     "weak desire does not derive",
			claim:    domain.Claim{Statement: "might try sushi sometime", ClaimType: domain.ClaimPreference, Subject: "sushi"},
			vol:      domain.VolitionalStance{Type: domain.VolitionalDesire, Strength: 0.2, Valence: 0.5},
			wantGoal: false,
		},
		{
			name:     "plain fact does not derive",
			claim:    domain.Claim{Statement: "the office is in Berlin", ClaimType: domain.ClaimFact, Subject: "office"},
			vol:      domain.VolitionalStance{Type: domain.VolitionalNone},
			wantGoal: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestGoalService()
			goal, err := svc.DeriveFromClaim(context.Background(), &tt.claim, tt.vol)
			if err != nil {
				t.Fatalf("DeriveFromClaim: %v", err)
			}
			if (goal != nil) != tt.wantGoal {
				t.Errorf("goal = %v, wantGoal %v", goal, tt.wantGoal)
			}
			if goal != nil {
				if goal.Status != domain.GoalActive {
					t.Errorf("new goal status = %s, want active", goal.Status)
				}
				if goal.ProgressValue != 0 {
					t.Errorf("new goal progress = %f, want 0", goal.ProgressValue)
				}
			}
		})
	}
}

func TestDeriveFromClaimMatchesExistingGoal(t *testing.T) {
	svc, goals := newTestGoalService()
	ctx := context.Background()

	first := &domain.Claim{
		Statement: "I want to learn piano this year",
		ClaimType: domain.ClaimIntention, Subject: "piano",
	}
	g1, err := svc.DeriveFromClaim(ctx, first, domain.VolitionalStance{Type: domain.VolitionalGoal, Strength: 0.9})
	if err != nil || g1 == nil {
		t.Fatalf("first derivation: goal=%v err=%v", g1, err)
	}

	second := &domain.Claim{
		Statement: "still determined to learn piano properly",
		ClaimType: domain.ClaimIntention, Subject: "piano",
	}
	g2, err := svc.DeriveFromClaim(ctx, second, domain.VolitionalStance{Type: domain.VolitionalGoal, Strength: 0.9})
	if err != nil {
		t.Fatalf("second derivation: %v", err)
	}
	if g2 == nil || g2.ID != g1.ID {
		t.Errorf("second claim created a new goal, want match of %s", g1.ID)
	}

	all, _ := goals.List(ctx, domain.Page{})
	if len(all) != 1 {
		t.Errorf("goal count = %d, want 1", len(all))
	}
}

func TestUpdateProgressClampsAndAutoAchieves(t *testing.T) {
	tests := []struct {
		name         string
		progress     float64
		wantProgress float64
		wantStatus   domain.GoalStatus
	}{
		{"negative clamps to zero", -10, 0, domain.GoalActive},
		{"midway stays active", 40, 40, domain.GoalActive},
		{"exactly 100 achieves", 100, 100, domain.GoalAchieved},
		{"over 100 clamps and achieves", 250, 100, domain.GoalAchieved},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, goals := newTestGoalService()
			ctx := context.Background()

			g := &domain.Goal{Statement: "learn piano", Status: domain.GoalActive}
			if err := goals.Create(ctx, g); err != nil {
				t.Fatal(err)
			}

			got, err := svc.UpdateProgress(ctx, g.ID, tt.progress)
			if err != nil {
				t.Fatalf("UpdateProgress: %v", err)
			}
			if got.ProgressValue != tt.wantProgress {
				t.Errorf("progress = %f, want %f", got.ProgressValue, tt.wantProgress)
			}
			if got.Status != tt.wantStatus {
				t.Errorf("status = %s, want %s", got.Status, tt.wantStatus)
			}
		})
	}
}

func TestBlockedGoalDoesNotAutoAchieve(t *testing.T) {
	svc, goals := newTestGoalService()
	ctx := context.Background()

	g := &domain.Goal{Statement: "learn piano", Status: domain.GoalActive}
	if err := goals.Create(ctx, g); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.AddBlocker(ctx, g.ID, "no piano at home", 0.8); err != nil {
		t.Fatalf("AddBlocker: %v", err)
	}

	got, err := svc.UpdateProgress(ctx, g.ID, 100)
	if err != nil {
		t.Fatalf("UpdateProgress: %v", err)
	}
	if got.Status != domain.GoalBlocked {
		t.Errorf("status = %s, want blocked (no auto-achieve while blocked)", got.Status)
	}
}

func TestResolveLastBlockerReactivates(t *testing.T) {
	svc, goals := newTestGoalService()
	ctx := context.Background()

	g := &domain.Goal{Statement: "learn piano", Status: domain.GoalActive}
	if err := goals.Create(ctx, g); err != nil {
		t.Fatal(err)
	}
	b1, err := svc.AddBlocker(ctx, g.ID, "no piano at home", 0.8)
	if err != nil {
		t.Fatal(err)
	}
	b2, err := svc.AddBlocker(ctx, g.ID, "no free evenings", 0.5)
	if err != nil {
		t.Fatal(err)
	}

	got, _ := goals.GetByID(ctx, g.ID)
	if got.Status != domain.GoalBlocked {
		t.Fatalf("status = %s, want blocked after first blocker", got.Status)
	}

	if err := svc.ResolveBlocker(ctx, g.ID, b1.ID); err != nil {
		t.Fatalf("ResolveBlocker: %v", err)
	}
	got, _ = goals.GetByID(ctx, g.ID)
	if got.Status != domain.GoalBlocked {
		t.Errorf("status = %s, want still blocked with one open blocker", got.Status)
	}

	if err := svc.ResolveBlocker(ctx, g.ID, b2.ID); err != nil {
		t.Fatalf("ResolveBlocker last: %v", err)
	}
	got, _ = goals.GetByID(ctx, g.ID)
	if got.Status != domain.GoalActive {
		t.Errorf("status = %s, want active after last blocker resolved", got.Status)
	}
}

func TestUpdateStatusRejectsInvalidTransitions(t *testing.T) {
	tests := []struct {
		from    domain.GoalStatus
		to      domain.GoalStatus
		wantErr bool
	}{
		{domain.GoalActive, domain.GoalAchieved, false},
		{domain.GoalActive, domain.GoalDeferred, false},
		{domain.GoalDeferred, domain.GoalActive, false},
		{domain.GoalAchieved, domain.GoalActive, true},
		{domain.GoalAbandoned, domain.GoalActive, true},
		{domain.GoalDeferred, domain.GoalAchieved, true},
		// blocked is only entered through AddBlocker
		{domain.GoalActive, domain.GoalBlocked, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"_to_"+string(tt.to), func(t *testing.T) {
			svc, goals := newTestGoalService()
			ctx := context.Background()

			g := &domain.Goal{Statement: "learn piano", Status: tt.from}
			if err := goals.Create(ctx, g); err != nil {
				t.Fatal(err)
			}

			err := svc.UpdateStatus(ctx, g.ID, tt.to)
			if (err != nil) != tt.wantErr {
				t.Errorf("UpdateStatus %s -> %s: err = %v, wantErr %v", tt.from, tt.to, err, tt.wantErr)
			}
		})
	}
}

func TestAddMilestone(t *testing.T) {
	svc, goals := newTestGoalService()
	ctx := context.Background()

	g := &domain.Goal{Statement: "learn piano", Status: domain.GoalActive}
	if err := goals.Create(ctx, g); err != nil {
		t.Fatal(err)
	}

	if _, err := svc.AddMilestone(ctx, g.ID, "finished scales book", true); err != nil {
		t.Fatalf("AddMilestone: %v", err)
	}
	ms, _ := goals.ListMilestones(ctx, g.ID)
	if len(ms) != 1 || !ms[0].Reached {
		t.Errorf("milestones = %+v, want one reached milestone", ms)
	}
}
