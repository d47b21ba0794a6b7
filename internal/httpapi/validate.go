package httpapi

import (
	"github.com/fusion-relay/relayer/internal/relayerr"
	"github.com/fusion-relay/relayer/internal/types"
)

// validateOrderRequest rejects an order-intake payload before it ever
// reaches the coordinator: non-positive amounts, a degenerate auction
// window, or a rate curve that doesn't move funds anywhere are all
// cheaper to reject here than to unwind after a chain lock.
func validateOrderRequest(req *types.OrderRequest) error {
	if req.Order.Maker == "" {
		return &relayerr.ValidationError{Field: "order.maker", Reason: "required"}
	}
	if req.Order.MakerAsset == "" {
		return &relayerr.ValidationError{Field: "order.makerAsset", Reason: "required"}
	}
	if req.Order.TakerAsset == "" {
		return &relayerr.ValidationError{Field: "order.takerAsset", Reason: "required"}
	}
	if req.MakerDstAddress == "" {
		return &relayerr.ValidationError{Field: "makerDstAddress", Reason: "required"}
	}
	if req.Signature == "" {
		return &relayerr.ValidationError{Field: "signature", Reason: "required"}
	}

	if req.Order.MakingAmount == nil || req.Order.MakingAmount.Sign() <= 0 {
		return &relayerr.ValidationError{Field: "order.makingAmount", Reason: "must be positive"}
	}
	if req.Order.TakingAmount == nil || req.Order.TakingAmount.Sign() <= 0 {
		return &relayerr.ValidationError{Field: "order.takingAmount", Reason: "must be positive"}
	}

	if err := validateAuction(&req.Auction); err != nil {
		return err
	}
	return nil
}

func validateAuction(a *types.AuctionConfig) error {
	if a.AuctionEnd <= a.AuctionStart {
		return &relayerr.ValidationError{Field: "auction.auctionEnd", Reason: "must be after auctionStart"}
	}
	if a.StartRate == nil || a.StartRate.Sign() <= 0 {
		return &relayerr.ValidationError{Field: "auction.startRate", Reason: "must be positive"}
	}
	if a.EndRate == nil || a.EndRate.Sign() <= 0 {
		return &relayerr.ValidationError{Field: "auction.endRate", Reason: "must be positive"}
	}
	if a.StartRate.Cmp(a.EndRate) < 0 {
		return &relayerr.ValidationError{Field: "auction.startRate", Reason: "must be >= endRate for a Dutch auction"}
	}

	prevOffset := uint64(0)
	prevRate := a.StartRate
	for _, pt := range a.Curve {
		if pt.TimeOffset <= prevOffset {
			return &relayerr.ValidationError{Field: "auction.curve", Reason: "time offsets must be strictly increasing"}
		}
		if pt.Rate == nil || pt.Rate.Sign() <= 0 {
			return &relayerr.ValidationError{Field: "auction.curve", Reason: "rates must be positive"}
		}
		if pt.Rate.Cmp(prevRate) > 0 {
			return &relayerr.ValidationError{Field: "auction.curve", Reason: "rates must be non-increasing"}
		}
		prevOffset = pt.TimeOffset
		prevRate = pt.Rate
	}
	return nil
}
