package auction

import (
	"math/big"
	"testing"
	"time"

	"github.com/fusion-relay/relayer/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rate(n int64) *big.Int { return big.NewInt(n) }

func TestCurrentRate_BeforeStart(t *testing.T) {
	start := time.Unix(1000, 0)
	cfg := &types.AuctionConfig{
		AuctionStart: 1000,
		AuctionEnd:   2000,
		StartRate:    rate(100),
		EndRate:      rate(50),
	}
	got := CurrentRate(cfg, start.Add(-time.Minute))
	assert.Equal(t, rate(100), got)
}

func TestCurrentRate_AfterEnd(t *testing.T) {
	cfg := &types.AuctionConfig{
		AuctionStart: 1000,
		AuctionEnd:   2000,
		StartRate:    rate(100),
		EndRate:      rate(50),
	}
	got := CurrentRate(cfg, time.Unix(5000, 0))
	assert.Equal(t, rate(50), got)
}

func TestCurrentRate_LinearMidpoint(t *testing.T) {
	cfg := &types.AuctionConfig{
		AuctionStart: 1000,
		AuctionEnd:   2000,
		StartRate:    rate(100),
		EndRate:      rate(50),
	}
	got := CurrentRate(cfg, time.Unix(1500, 0))
	assert.Equal(t, rate(75), got)
}

func TestCurrentRate_PiecewiseCurve(t *testing.T) {
	cfg := &types.AuctionConfig{
		AuctionStart: 0,
		AuctionEnd:   100,
		StartRate:    rate(100),
		EndRate:      rate(10),
		Curve: []types.PriceCurvePoint{
			{TimeOffset: 50, Rate: rate(60)},
		},
	}
	require.Equal(t, rate(80), CurrentRate(cfg, time.Unix(25, 0)))
	require.Equal(t, rate(35), CurrentRate(cfg, time.Unix(75, 0)))
}

func TestFirstAcceptableBid(t *testing.T) {
	cfg := &types.AuctionConfig{
		AuctionStart: 0,
		AuctionEnd:   100,
		StartRate:    rate(100),
		EndRate:      rate(0),
	}
	now := time.Unix(50, 0)
	bids := []*types.ResolverBid{
		{ResolverID: "late-high", BidRate: rate(80), Timestamp: now.Add(2 * time.Second)},
		{ResolverID: "early-exact", BidRate: rate(50), Timestamp: now.Add(1 * time.Second)},
		{ResolverID: "too-low", BidRate: rate(10), Timestamp: now},
	}
	got := FirstAcceptableBid{}.Select(cfg, now, bids)
	require.NotNil(t, got)
	assert.Equal(t, "early-exact", got.ResolverID)
}

func TestBestRateBid(t *testing.T) {
	cfg := &types.AuctionConfig{
		AuctionStart: 0,
		AuctionEnd:   100,
		StartRate:    rate(100),
		EndRate:      rate(0),
	}
	now := time.Unix(50, 0)
	bids := []*types.ResolverBid{
		{ResolverID: "ok", BidRate: rate(55), Timestamp: now},
		{ResolverID: "best", BidRate: rate(90), Timestamp: now},
		{ResolverID: "too-low", BidRate: rate(10), Timestamp: now},
	}
	got := BestRateBid{}.Select(cfg, now, bids)
	require.NotNil(t, got)
	assert.Equal(t, "best", got.ResolverID)
}

func TestBestRateBid_NoneClears(t *testing.T) {
	cfg := &types.AuctionConfig{
		AuctionStart: 0,
		AuctionEnd:   100,
		StartRate:    rate(100),
		EndRate:      rate(50),
	}
	now := time.Unix(0, 0)
	bids := []*types.ResolverBid{{ResolverID: "low", BidRate: rate(10), Timestamp: now}}
	assert.Nil(t, BestRateBid{}.Select(cfg, now, bids))
}
