package engine

import (
	"github.com/google/uuid"

	"github.com/clanhall/auctiond/go/internal/models"
)

// Pool tracks undrafted players and their nomination order. It is only
// touched from inside the room actor, so it needs no locking of its own.
type Pool struct {
	order   []uuid.UUID
	all     []uuid.UUID
	players map[uuid.UUID]*models.Player
}

// NewPool builds a pool from the given players, preserving slice order
// as the nomination order.
func NewPool(players []models.Player) *Pool {
	p := &Pool{
		players: make(map[uuid.UUID]*models.Player, len(players)),
	}
	for i := range players {
		pl := players[i]
		p.players[pl.ID] = &pl
		p.all = append(p.all, pl.ID)
		if pl.Status == models.PlayerStatusPool {
			p.order = append(p.order, pl.ID)
		}
	}
	return p
}

// Get returns the player record regardless of pool membership.
func (p *Pool) Get(id uuid.UUID) (*models.Player, bool) {
	pl, ok := p.players[id]
	return pl, ok
}

// Contains reports whether the player is still undrafted.
func (p *Pool) Contains(id uuid.UUID) bool {
	pl, ok := p.players[id]
	return ok && pl.Status == models.PlayerStatusPool
}

// Take removes the player from the undrafted ordering and returns the
// record. The caller owns the status transition.
func (p *Pool) Take(id uuid.UUID) (*models.Player, bool) {
	if !p.Contains(id) {
		return nil, false
	}
	for i, pid := range p.order {
		if pid == id {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}
	return p.players[id], true
}

// PutBack reinstates a taken player at the front of the ordering.
func (p *Pool) PutBack(id uuid.UUID) {
	pl, ok := p.players[id]
	if !ok || pl.Status != models.PlayerStatusPool {
		return
	}
	p.order = append([]uuid.UUID{id}, p.order...)
}

// Remaining returns how many players are still undrafted.
func (p *Pool) Remaining() int {
	return len(p.order)
}

// Players returns every player record in insertion order, drafted or
// not.
func (p *Pool) Players() []models.Player {
	out := make([]models.Player, 0, len(p.all))
	for _, id := range p.all {
		out = append(out, *p.players[id])
	}
	return out
}

// NextUp returns the undrafted players in nomination order.
func (p *Pool) NextUp() []uuid.UUID {
	out := make([]uuid.UUID, len(p.order))
	copy(out, p.order)
	return out
}
