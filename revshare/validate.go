package revshare

import (
	"fmt"
	"math/bits"
)

// ValidateShares checks an owner/chain/treasury triple.
func ValidateShares(owner, chain, treasury uint16) error {
	if cfg := (ShareConfig{OwnerBps: owner, ChainBps: chain, TreasuryBps: treasury}); !cfg.Valid() {
		return fmt.Errorf("%w: %d+%d+%d", ErrInvalidShares, owner, chain, treasury)
	}
	return nil
}

// ValidateFeeShares checks the four deployment-fee pools.
func ValidateFeeShares(f FeeShares) error {
	if !f.Valid() {
		return fmt.Errorf("%w: fee pools %d+%d+%d+%d", ErrInvalidWeights,
			f.ContributorBps, f.TreasuryBps, f.CreditBps, f.CuratorBps)
	}
	return nil
}

// ValidateDecayFactor checks a decay factor in bps.
func ValidateDecayFactor(bps uint16) error {
	if bps > BpsDenominator {
		return fmt.Errorf("%w: %d > %d", ErrInvalidDecayFactor, bps, BpsDenominator)
	}
	return nil
}

// ValidateChainDepth checks a max chain depth.
func ValidateChainDepth(n int) error {
	if n < 1 || n > MaxChainDepthLimit {
		return fmt.Errorf("%w: %d not in 1..%d", ErrInvalidChainDepth, n, MaxChainDepthLimit)
	}
	return nil
}

// ValidateContributors checks a bundle's contributor list: 1..MaxContributors
// entries, non-zero addresses, weights summing to 10000.
func ValidateContributors(contributors []ContributorWeight) error {
	if len(contributors) == 0 || len(contributors) > MaxContributors {
		return fmt.Errorf("%w: %d contributors", ErrTooManyContributors, len(contributors))
	}
	var sum uint32
	for i, c := range contributors {
		if c.Contributor.IsZero() {
			return fmt.Errorf("%w: contributor %d", ErrZeroAddress, i)
		}
		sum += uint32(c.WeightBps)
	}
	if sum != BpsDenominator {
		return fmt.Errorf("%w: contributor weights sum to %d", ErrInvalidWeights, sum)
	}
	return nil
}

// ValidateConservation checks that parts sum to exactly total.
func ValidateConservation(total uint64, parts ...uint64) error {
	var sum uint64
	for _, p := range parts {
		var carry uint64
		sum, carry = bits.Add64(sum, p, 0)
		if carry != 0 {
			return fmt.Errorf("%w: parts overflow", ErrConservationViolation)
		}
	}
	if sum != total {
		return fmt.Errorf("%w: total=%d parts=%d", ErrConservationViolation, total, sum)
	}
	return nil
}
