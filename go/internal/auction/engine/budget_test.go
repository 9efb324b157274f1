package engine

import (
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/clanhall/auctiond/go/internal/models"
)

func ledgerWithTeam(t *testing.T, startingPoints int) (*BudgetLedger, uuid.UUID) {
	t.Helper()
	teamID := uuid.New()
	l := NewBudgetLedger([]models.Team{{
		ID:             teamID,
		Name:           "Team A",
		StartingPoints: startingPoints,
	}})
	return l, teamID
}

func TestReserveChecksWithoutCommitting(t *testing.T) {
	l, teamID := ledgerWithTeam(t, 1000)

	if err := l.Reserve(teamID, 1000); err != nil {
		t.Fatalf("reserve at full budget: %v", err)
	}
	if err := l.Reserve(teamID, 1001); !errors.Is(err, ErrInsufficientBudget) {
		t.Fatalf("err = %v, want ErrInsufficientBudget", err)
	}
	if err := l.Reserve(uuid.New(), 100); !errors.Is(err, ErrUnknownTeam) {
		t.Fatalf("err = %v, want ErrUnknownTeam", err)
	}

	team, _ := l.Team(teamID)
	if team.CommittedPoints != 0 {
		t.Fatalf("reserve mutated committed points: %d", team.CommittedPoints)
	}
}

func TestApplyDebitIsIdempotentPerPlayer(t *testing.T) {
	l, teamID := ledgerWithTeam(t, 1000)
	playerID := uuid.New()

	if err := l.ApplyDebit(teamID, playerID, 400); err != nil {
		t.Fatalf("first debit: %v", err)
	}
	if err := l.ApplyDebit(teamID, playerID, 400); err != nil {
		t.Fatalf("repeated debit: %v", err)
	}

	team, _ := l.Team(teamID)
	if team.CommittedPoints != 400 {
		t.Fatalf("committed = %d, want 400 after repeat", team.CommittedPoints)
	}
	if team.RemainingPoints() != 600 {
		t.Fatalf("remaining = %d, want 600", team.RemainingPoints())
	}
}

func TestApplyDebitRejectsConflictingAmount(t *testing.T) {
	l, teamID := ledgerWithTeam(t, 1000)
	playerID := uuid.New()

	if err := l.ApplyDebit(teamID, playerID, 400); err != nil {
		t.Fatalf("first debit: %v", err)
	}
	if err := l.ApplyDebit(teamID, playerID, 500); !errors.Is(err, ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
}

func TestApplyDebitNeverOverdraws(t *testing.T) {
	l, teamID := ledgerWithTeam(t, 1000)

	if err := l.ApplyDebit(teamID, uuid.New(), 700); err != nil {
		t.Fatalf("first debit: %v", err)
	}
	if err := l.ApplyDebit(teamID, uuid.New(), 301); !errors.Is(err, ErrInsufficientBudget) {
		t.Fatalf("err = %v, want ErrInsufficientBudget", err)
	}

	team, _ := l.Team(teamID)
	if team.RemainingPoints() < 0 {
		t.Fatalf("remaining went negative: %d", team.RemainingPoints())
	}
	if team.CommittedPoints != 700 {
		t.Fatalf("committed = %d, want 700", team.CommittedPoints)
	}
}

func TestRestoreDebitReinstatesIdempotencyKeyOnly(t *testing.T) {
	teamID := uuid.New()
	playerID := uuid.New()
	l := NewBudgetLedger([]models.Team{{
		ID:              teamID,
		StartingPoints:  1000,
		CommittedPoints: 400,
	}})

	l.RestoreDebit(teamID, playerID, 400)

	// Re-applying the same historical debit must be a no-op.
	if err := l.ApplyDebit(teamID, playerID, 400); err != nil {
		t.Fatalf("replayed debit: %v", err)
	}
	team, _ := l.Team(teamID)
	if team.CommittedPoints != 400 {
		t.Fatalf("committed = %d, want 400", team.CommittedPoints)
	}
}

func TestCaptainAssignment(t *testing.T) {
	l, teamID := ledgerWithTeam(t, 1000)
	userID := uuid.New()

	if l.IsCaptain(teamID, userID) {
		t.Fatal("captain reported before assignment")
	}
	if err := l.SetCaptain(teamID, userID); err != nil {
		t.Fatalf("set captain: %v", err)
	}
	if !l.IsCaptain(teamID, userID) {
		t.Fatal("captain not reported after assignment")
	}
	if l.IsCaptain(teamID, uuid.New()) {
		t.Fatal("non-captain reported as captain")
	}
	if err := l.SetCaptain(uuid.New(), userID); !errors.Is(err, ErrUnknownTeam) {
		t.Fatalf("err = %v, want ErrUnknownTeam", err)
	}
}
