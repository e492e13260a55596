package engine

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"slices"
)

var ErrInvalidRoleCount = errors.New("mafia count must be at least 1")
var ErrPrimaryNotMinority = errors.New("mafia must remain a minority")

type Role string

const (
	RoleMafia    Role = "mafia"    // primary faction
	RoleDoctor   Role = "doctor"   // first reserved seat
	RolePolice   Role = "police"   // second reserved seat
	RoleVillager Role = "villager" // neutral
)

// ReservedSeats is the number of single-occupant roles dealt after the mafia.
const ReservedSeats = 2

// MinorityError reports a mafia count that would not leave the mafia in the minority.
type MinorityError struct {
	Count        int
	Participants int
	MaxAllowed   int
}

func (e *MinorityError) Error() string {
	return fmt.Sprintf("too many mafia (%d): maximum %d for %d players", e.Count, e.MaxAllowed, e.Participants)
}

func (e *MinorityError) Unwrap() error { return ErrPrimaryNotMinority }

// PrimaryCount is the mafia count used for n players: the override when set,
// otherwise roughly a third of the players outside the reserved seats.
func PrimaryCount(n, override int) int {
	if override > 0 {
		return override
	}
	return max(1, int(math.Round(float64(n-ReservedSeats)/3)))
}

// MaxPrimary is the largest mafia count that keeps villagers at least as numerous.
func MaxPrimary(n int) int {
	return max(0, (n-ReservedSeats)/2)
}

// Validate checks m against n players. It runs before a count is stored and
// again at start, since players may have joined in between.
// The bound is m <= n-m-2, i.e. m <= MaxPrimary(n); six players allow two.
func Validate(n, m int) error {
	if m < 1 {
		return ErrInvalidRoleCount
	}
	villagers := n - m - ReservedSeats
	maxAllowed := MaxPrimary(n)
	if m > villagers || m > maxAllowed {
		return &MinorityError{Count: m, Participants: n, MaxAllowed: maxAllowed}
	}
	return nil
}

// Assign deals roles to ids after a uniform shuffle. It does not validate the
// count; callers run Validate first. A nil rng uses the global source.
// The caller's slice is left untouched.
func Assign(ids []string, override int, rng *rand.Rand) map[string]Role {
	perm := slices.Clone(ids)
	swap := func(i, j int) { perm[i], perm[j] = perm[j], perm[i] }
	if rng != nil {
		rng.Shuffle(len(perm), swap)
	} else {
		rand.Shuffle(len(perm), swap)
	}
	return Deal(perm, PrimaryCount(len(ids), override))
}

// Deal assigns roles to an already permuted list in deal order.
func Deal(perm []string, m int) map[string]Role {
	order := DealOrder(len(perm), m)
	roles := make(map[string]Role, len(perm))
	for i, id := range perm {
		roles[id] = order[i]
	}
	return roles
}
