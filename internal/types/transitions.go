package types

// allowedTransitions is the authoritative state-transition table. The
// order store's UpdateState consults it before its CAS update, and the
// coordinator's regular transitions all go through UpdateState, so
// there is exactly one place that defines which moves are legal.
var allowedTransitions = map[SwapState][]SwapState{
	StateNew:            {StateAuctionStarted, StateError},
	StateAuctionStarted: {StateEthLockPending, StateCancelledSrc, StateError},
	StateEthLockPending: {StateEthLocked, StateError},
	StateEthLocked:      {StateSuiLockPending, StateCancelledSrc, StateError},
	StateSuiLockPending: {StateSuiLocked, StateCancelledSrc, StateError},
	StateSuiLocked:      {StateReadyForSecret, StateCancelledDst, StateError},
	StateReadyForSecret: {StateSecretReceived, StateCancelledDst, StateError},
	StateSecretReceived: {StateExecuted, StateError},
	StateCancelledDst:   {StateCancelledSrc, StateError},
}

// CanTransition reports whether moving from one state to another is a
// legal move in the table above.
func CanTransition(from, to SwapState) bool {
	for _, candidate := range allowedTransitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}
