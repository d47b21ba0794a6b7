// Package auction computes the Dutch-auction clearing rate for an
// order at a given time and decides whether a resolver bid clears it.
//
// All arithmetic is integer-only: rates are expressed as a 1e18-scaled
// taker-per-maker ratio and interpolation uses big.Int exclusively, to
// avoid the float-drift a naive big.Float implementation would
// introduce over long-running auctions.
package auction

import (
	"math/big"
	"time"

	"github.com/fusion-relay/relayer/internal/types"
)

// Scale is the fixed-point denominator rates are expressed in.
var Scale = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

// CurrentRate returns the order's clearing rate at t, in the same
// 1e18-scaled units as StartRate/EndRate/curve points.
//
//   - before AuctionStart: StartRate
//   - after AuctionEnd (or past the last curve point): EndRate
//   - otherwise: linear interpolation across the configured curve, or
//     directly between StartRate and EndRate if no curve is given
func CurrentRate(cfg *types.AuctionConfig, t time.Time) *big.Int {
	now := uint64(t.Unix())

	if now <= cfg.AuctionStart {
		return new(big.Int).Set(cfg.StartRate)
	}
	if now >= cfg.AuctionEnd {
		return new(big.Int).Set(cfg.EndRate)
	}

	elapsed := now - cfg.AuctionStart

	if len(cfg.Curve) == 0 {
		total := cfg.AuctionEnd - cfg.AuctionStart
		return interpolate(cfg.StartRate, cfg.EndRate, elapsed, total)
	}

	prevOffset := uint64(0)
	prevRate := cfg.StartRate
	for _, pt := range cfg.Curve {
		if elapsed <= pt.TimeOffset {
			return interpolate(prevRate, pt.Rate, elapsed-prevOffset, pt.TimeOffset-prevOffset)
		}
		prevOffset = pt.TimeOffset
		prevRate = pt.Rate
	}
	return interpolate(prevRate, cfg.EndRate, elapsed-prevOffset, (cfg.AuctionEnd-cfg.AuctionStart)-prevOffset)
}

// interpolate returns start + (end-start)*elapsed/total using exact
// integer arithmetic, rounding toward zero like every other amount
// computation in this repo.
func interpolate(start, end *big.Int, elapsed, total uint64) *big.Int {
	if total == 0 {
		return new(big.Int).Set(end)
	}
	diff := new(big.Int).Sub(end, start)
	diff.Mul(diff, new(big.Int).SetUint64(elapsed))
	diff.Quo(diff, new(big.Int).SetUint64(total))
	return diff.Add(diff, start)
}

// BidSelector decides which of a set of concurrent resolver bids, if
// any, clears the order's current rate. Spec §9 leaves bid selection
// pluggable; FirstAcceptableBid is the default policy.
type BidSelector interface {
	Select(cfg *types.AuctionConfig, now time.Time, bids []*types.ResolverBid) *types.ResolverBid
}

// FirstAcceptableBid accepts the earliest-timestamped bid whose rate
// is at least the current clearing rate.
type FirstAcceptableBid struct{}

func (FirstAcceptableBid) Select(cfg *types.AuctionConfig, now time.Time, bids []*types.ResolverBid) *types.ResolverBid {
	clearing := CurrentRate(cfg, now)

	var best *types.ResolverBid
	for _, b := range bids {
		if b.BidRate.Cmp(clearing) < 0 {
			continue
		}
		if best == nil || b.Timestamp.Before(best.Timestamp) {
			best = b
		}
	}
	return best
}

// BestRateBid accepts the single highest-rate bid that clears, useful
// when resolvers compete on price rather than speed.
type BestRateBid struct{}

func (BestRateBid) Select(cfg *types.AuctionConfig, now time.Time, bids []*types.ResolverBid) *types.ResolverBid {
	clearing := CurrentRate(cfg, now)

	var best *types.ResolverBid
	for _, b := range bids {
		if b.BidRate.Cmp(clearing) < 0 {
			continue
		}
		if best == nil || b.BidRate.Cmp(best.BidRate) > 0 {
			best = b
		}
	}
	return best
}
