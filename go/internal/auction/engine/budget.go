package engine

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/clanhall/auctiond/go/internal/models"
)

// BudgetLedger tracks each team's remaining points and committed spend
// for one room. Debits are idempotent keyed by (team, player) so a
// retried resolution after a crash cannot double-charge.
type BudgetLedger struct {
	teams map[uuid.UUID]*teamAccount
}

type teamAccount struct {
	team   *models.Team
	debits map[uuid.UUID]int // playerID -> amount already charged
}

// NewBudgetLedger registers the room's teams.
func NewBudgetLedger(teams []models.Team) *BudgetLedger {
	l := &BudgetLedger{teams: make(map[uuid.UUID]*teamAccount, len(teams))}
	for i := range teams {
		t := teams[i]
		l.teams[t.ID] = &teamAccount{
			team:   &t,
			debits: make(map[uuid.UUID]int),
		}
	}
	return l
}

// Team returns the live team record.
func (l *BudgetLedger) Team(teamID uuid.UUID) (*models.Team, bool) {
	acct, ok := l.teams[teamID]
	if !ok {
		return nil, false
	}
	return acct.team, true
}

// Teams returns copies of all team records.
func (l *BudgetLedger) Teams() []models.Team {
	out := make([]models.Team, 0, len(l.teams))
	for _, acct := range l.teams {
		out = append(out, *acct.team)
	}
	return out
}

// RemainingPoints returns startingPoints - committedPoints.
func (l *BudgetLedger) RemainingPoints(teamID uuid.UUID) (int, error) {
	acct, ok := l.teams[teamID]
	if !ok {
		return 0, ErrUnknownTeam
	}
	return acct.team.RemainingPoints(), nil
}

// Reserve is a non-mutating check that the team could afford amount.
func (l *BudgetLedger) Reserve(teamID uuid.UUID, amount int) error {
	acct, ok := l.teams[teamID]
	if !ok {
		return ErrUnknownTeam
	}
	if amount < 0 {
		return fmt.Errorf("%w: negative amount", ErrValidation)
	}
	if acct.team.RemainingPoints()-amount < 0 {
		return ErrInsufficientBudget
	}
	return nil
}

// ApplyDebit commits a sale amount against the team. It executes
// exactly once per (team, player); repeats are no-ops.
func (l *BudgetLedger) ApplyDebit(teamID, playerID uuid.UUID, amount int) error {
	acct, ok := l.teams[teamID]
	if !ok {
		return ErrUnknownTeam
	}
	if prev, done := acct.debits[playerID]; done {
		if prev != amount {
			return fmt.Errorf("%w: conflicting debit for player %s", ErrValidation, playerID)
		}
		return nil
	}
	if acct.team.RemainingPoints()-amount < 0 {
		return ErrInsufficientBudget
	}
	acct.team.CommittedPoints += amount
	acct.debits[playerID] = amount
	return nil
}

// RestoreDebit records a historical debit when rebuilding from
// persisted state. CommittedPoints already reflects the charge; only
// the idempotency key is reinstated.
func (l *BudgetLedger) RestoreDebit(teamID, playerID uuid.UUID, amount int) {
	if acct, ok := l.teams[teamID]; ok {
		acct.debits[playerID] = amount
	}
}

// SetCaptain assigns the bidding captain for a team.
func (l *BudgetLedger) SetCaptain(teamID, userID uuid.UUID) error {
	acct, ok := l.teams[teamID]
	if !ok {
		return ErrUnknownTeam
	}
	acct.team.CaptainID = &userID
	return nil
}

// IsCaptain reports whether userID captains the team.
func (l *BudgetLedger) IsCaptain(teamID, userID uuid.UUID) bool {
	acct, ok := l.teams[teamID]
	if !ok || acct.team.CaptainID == nil {
		return false
	}
	return *acct.team.CaptainID == userID
}
