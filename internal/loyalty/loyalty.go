package loyalty

import (
	"errors"
	"fmt"
)

var ErrInsufficientPoints = errors.New("insufficient points")

// Tier names, ordered. Thresholds are strict: spending exactly at a boundary
// stays in the lower tier.
const (
	TierMember   = "MEMBER"
	TierSilver   = "SILVER"
	TierGold     = "GOLD"
	TierPlatinum = "PLATINUM"
)

const (
	silverThresholdCents   = 500_000    // 5,000 THB
	goldThresholdCents     = 2_000_000  // 20,000 THB
	platinumThresholdCents = 10_000_000 // 100,000 THB

	earnDivisorCents = 2000 // 1 point per 20 THB net
)

// PointsEarned truncates: a 19.99 THB sale earns nothing.
func PointsEarned(netCents int64) int {
	if netCents <= 0 {
		return 0
	}
	return int(netCents / earnDivisorCents)
}

// Tier classifies lifetime spend, highest tier first.
func Tier(lifetimeSpendCents int64) string {
	switch {
	case lifetimeSpendCents > platinumThresholdCents:
		return TierPlatinum
	case lifetimeSpendCents > goldThresholdCents:
		return TierGold
	case lifetimeSpendCents > silverThresholdCents:
		return TierSilver
	default:
		return TierMember
	}
}

// Redeem prices a redemption without deducting: the caller applies the
// balance change only after the sale commits.
func Redeem(points int, balance int, pointValueCents int64) (int64, error) {
	if points < 0 {
		return 0, fmt.Errorf("%w: negative redemption", ErrInsufficientPoints)
	}
	if points > balance {
		return 0, fmt.Errorf("%w: want %d have %d", ErrInsufficientPoints, points, balance)
	}
	return int64(points) * pointValueCents, nil
}
