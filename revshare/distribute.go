package revshare

import (
	"math/bits"

	"github.com/bitfsorg/libreceipt-go/account"
)

// mulDiv returns floor(a*b/d) using a 128-bit intermediate. The quotient
// fits in 64 bits whenever b <= d.
func mulDiv(a, b, d uint64) uint64 {
	hi, lo := bits.Mul64(a, b)
	q, _ := bits.Div64(hi, lo, d)
	return q
}

// bpsOf returns floor(amount*bps/10000).
func bpsOf(amount uint64, bps uint16) uint64 {
	return mulDiv(amount, uint64(bps), BpsDenominator)
}

// SplitRevenue applies the owner/chain/treasury waterfall. Owner and chain
// are floored; the treasury takes the remainder, so the parts always sum to
// amount.
func SplitRevenue(amount uint64, cfg ShareConfig) Split {
	owner := bpsOf(amount, cfg.OwnerBps)
	chain := bpsOf(amount, cfg.ChainBps)
	return Split{Owner: owner, Chain: chain, Treasury: amount - owner - chain}
}

// DecayWeights returns n generation weights in bps: weight_0 is 10000 and
// each further generation is the previous one times decayBps/10000.
func DecayWeights(n int, decayBps uint16) []uint64 {
	if n <= 0 {
		return nil
	}
	w := make([]uint64, n)
	w[0] = BpsDenominator
	for g := 1; g < n; g++ {
		w[g] = w[g-1] * uint64(decayBps) / BpsDenominator
	}
	return w
}

// SplitWeighted divides amount by weights: each share is
// floor(amount*w/total) and the flooring remainder goes to index 0. A zero
// total (every weight decayed to zero) gives everything to index 0.
func SplitWeighted(amount uint64, weights []uint64) []uint64 {
	if len(weights) == 0 {
		return nil
	}
	var total uint64
	for _, w := range weights {
		total += w
	}
	out := make([]uint64, len(weights))
	if total == 0 {
		out[0] = amount
		return out
	}
	var given uint64
	for i, w := range weights {
		out[i] = mulDiv(amount, w, total)
		given += out[i]
	}
	out[0] += amount - given
	return out
}

// SplitChain divides the chain pool across ancestors (nearest first) with
// geometric decay. Ancestors whose share floors to zero are kept in the
// result with a zero amount.
func SplitChain(chainAmount uint64, ancestors []account.Address, decayBps uint16) []Distribution {
	amounts := SplitWeighted(chainAmount, DecayWeights(len(ancestors), decayBps))
	out := make([]Distribution, len(ancestors))
	for i, a := range ancestors {
		out[i] = Distribution{Address: a, Amount: amounts[i]}
	}
	return out
}

// FeePools is a deployment fee divided by FeeShares.
type FeePools struct {
	Contributor uint64
	Treasury    uint64
	Credit      uint64
	Curator     uint64
}

// SplitFee divides fee into the four pools. The first three are floored and
// the curator pool, computed last, absorbs the remainder.
func SplitFee(fee uint64, shares FeeShares) FeePools {
	p := FeePools{
		Contributor: bpsOf(fee, shares.ContributorBps),
		Treasury:    bpsOf(fee, shares.TreasuryBps),
		Credit:      bpsOf(fee, shares.CreditBps),
	}
	p.Curator = fee - p.Contributor - p.Treasury - p.Credit
	return p
}

// SplitContributors divides pool across contributors by weight, remainder
// to the first contributor.
func SplitContributors(pool uint64, contributors []ContributorWeight) []Distribution {
	weights := make([]uint64, len(contributors))
	for i, c := range contributors {
		weights[i] = uint64(c.WeightBps)
	}
	amounts := SplitWeighted(pool, weights)
	out := make([]Distribution, len(contributors))
	for i, c := range contributors {
		out[i] = Distribution{Address: c.Contributor, Amount: amounts[i]}
	}
	return out
}
