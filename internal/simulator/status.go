package simulator

import (
	"math/rand/v2"

	"github.com/tbourn/realty-dashboard/internal/domain"
)

// Transition odds. Sold is terminal.
const (
	pLock           = 0.30 // available -> locked
	pSell           = 0.25 // locked -> sold
	pReleaseCumProb = 0.60 // locked -> available when pSell <= x < 0.60
)

// NextStatus draws the next status for an apartment currently in cur.
// Apartments with an unknown status are put on the market as available.
func NextStatus(r *rand.Rand, cur domain.Status) domain.Status {
	switch cur {
	case domain.StatusSold:
		return domain.StatusSold
	case domain.StatusAvailable:
		if r.Float64() < pLock {
			return domain.StatusLocked
		}
		return domain.StatusAvailable
	case domain.StatusLocked:
		x := r.Float64()
		switch {
		case x < pSell:
			return domain.StatusSold
		case x < pReleaseCumProb:
			return domain.StatusAvailable
		}
		return domain.StatusLocked
	}
	return domain.StatusAvailable
}

// pickDistinct returns k distinct indexes in [0, n). k is clamped to n.
func pickDistinct(r *rand.Rand, n, k int) []int {
	if k > n {
		k = n
	}
	if k <= 0 {
		return nil
	}
	return r.Perm(n)[:k]
}
