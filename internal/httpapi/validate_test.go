package httpapi

import (
	"math/big"
	"testing"

	"github.com/fusion-relay/relayer/internal/types"
)

func validOrderRequest() *types.OrderRequest {
	return &types.OrderRequest{
		Order: types.LimitOrder{
			Maker:        "0xmaker",
			MakerAsset:   "0xasset-a",
			TakerAsset:   "0xasset-b",
			MakingAmount: big.NewInt(1000),
			TakingAmount: big.NewInt(2000),
		},
		Signature:       "0xsig",
		MakerDstAddress: "0xdst",
		SecretHash:      "0xhash",
		Auction: types.AuctionConfig{
			AuctionStart: 1000,
			AuctionEnd:   2000,
			StartRate:    big.NewInt(100),
			EndRate:      big.NewInt(50),
		},
	}
}

func TestValidateOrderRequest_Valid(t *testing.T) {
	if err := validateOrderRequest(validOrderRequest()); err != nil {
		t.Fatalf("expected valid request to pass, got %v", err)
	}
}

func TestValidateOrderRequest_MissingMaker(t *testing.T) {
	req := validOrderRequest()
	req.Order.Maker = ""
	if err := validateOrderRequest(req); err == nil {
		t.Fatal("expected error for missing maker")
	}
}

func TestValidateOrderRequest_NonPositiveMakingAmount(t *testing.T) {
	req := validOrderRequest()
	req.Order.MakingAmount = big.NewInt(0)
	if err := validateOrderRequest(req); err == nil {
		t.Fatal("expected error for zero makingAmount")
	}
}

func TestValidateAuction_EndBeforeStart(t *testing.T) {
	a := &types.AuctionConfig{AuctionStart: 2000, AuctionEnd: 1000, StartRate: big.NewInt(100), EndRate: big.NewInt(50)}
	if err := validateAuction(a); err == nil {
		t.Fatal("expected error when auctionEnd <= auctionStart")
	}
}

func TestValidateAuction_StartRateBelowEndRate(t *testing.T) {
	a := &types.AuctionConfig{AuctionStart: 1000, AuctionEnd: 2000, StartRate: big.NewInt(50), EndRate: big.NewInt(100)}
	if err := validateAuction(a); err == nil {
		t.Fatal("expected error when startRate < endRate (not a Dutch auction)")
	}
}

func TestValidateAuction_CurveValid(t *testing.T) {
	a := &types.AuctionConfig{
		AuctionStart: 0,
		AuctionEnd:   100,
		StartRate:    big.NewInt(100),
		EndRate:      big.NewInt(10),
		Curve: []types.PriceCurvePoint{
			{TimeOffset: 25, Rate: big.NewInt(80)},
			{TimeOffset: 75, Rate: big.NewInt(30)},
		},
	}
	if err := validateAuction(a); err != nil {
		t.Fatalf("expected valid curve to pass, got %v", err)
	}
}

func TestValidateAuction_CurveFirstPointZeroOffsetRejected(t *testing.T) {
	// Regression: the first curve point's offset must be checked
	// against zero, not silently skipped.
	a := &types.AuctionConfig{
		AuctionStart: 1_700_000_000,
		AuctionEnd:   1_700_001_000,
		StartRate:    big.NewInt(100),
		EndRate:      big.NewInt(10),
		Curve: []types.PriceCurvePoint{
			{TimeOffset: 0, Rate: big.NewInt(80)},
		},
	}
	if err := validateAuction(a); err == nil {
		t.Fatal("expected error: first curve point offset of 0 is not strictly increasing from 0")
	}
}

func TestValidateAuction_CurveNonIncreasingOffsetsRejected(t *testing.T) {
	a := &types.AuctionConfig{
		AuctionStart: 0,
		AuctionEnd:   100,
		StartRate:    big.NewInt(100),
		EndRate:      big.NewInt(10),
		Curve: []types.PriceCurvePoint{
			{TimeOffset: 50, Rate: big.NewInt(60)},
			{TimeOffset: 40, Rate: big.NewInt(50)},
		},
	}
	if err := validateAuction(a); err == nil {
		t.Fatal("expected error for non-increasing time offsets")
	}
}

func TestValidateAuction_CurveIncreasingRateRejected(t *testing.T) {
	a := &types.AuctionConfig{
		AuctionStart: 0,
		AuctionEnd:   100,
		StartRate:    big.NewInt(100),
		EndRate:      big.NewInt(10),
		Curve: []types.PriceCurvePoint{
			{TimeOffset: 25, Rate: big.NewInt(50)},
			{TimeOffset: 50, Rate: big.NewInt(90)},
		},
	}
	if err := validateAuction(a); err == nil {
		t.Fatal("expected error: curve rates must be non-increasing")
	}
}
