package coordinator

import (
	"github.com/tapswap/htlcswap/secret"
)

// RegisterSwap is the registerSwap admin operation (§6.4, §4.6 step 1).
func (c *Coordinator) RegisterSwap(req RegisterRequest) error {
	reply := make(chan error, 1)
	select {
	case c.inbox <- &registerMsg{req: req, reply: reply}:
	case <-c.quit:
		return ErrShuttingDown
	}

	select {
	case err := <-reply:
		return err
	case <-c.quit:
		return ErrShuttingDown
	}
}

// GetSwap is the getSwap(hashH) admin operation. Returns a copy so
// callers can't mutate actor-owned state.
func (c *Coordinator) GetSwap(hashH secret.Commitment) (PendingSwap, bool) {
	type result struct {
		swap PendingSwap
		ok   bool
	}
	out := make(chan result, 1)

	req := func() {
		swap, ok := c.swaps[hashH]
		if !ok {
			out <- result{}
			return
		}
		out <- result{swap: *swap, ok: true}
	}

	if !c.runSync(req) {
		return PendingSwap{}, false
	}
	r := <-out
	return r.swap, r.ok
}

// ListSwaps is the listSwaps admin operation.
func (c *Coordinator) ListSwaps() []PendingSwap {
	out := make(chan []PendingSwap, 1)

	req := func() {
		swaps := make([]PendingSwap, 0, len(c.swaps))
		for _, s := range c.swaps {
			swaps = append(swaps, *s)
		}
		out <- swaps
	}

	if !c.runSync(req) {
		return nil
	}
	return <-out
}

// Stats is the stats admin operation (§6.4).
func (c *Coordinator) Stats() Stats {
	out := make(chan Stats, 1)

	req := func() {
		var st Stats
		for _, s := range c.swaps {
			st.Total++
			switch s.Status {
			case StatusWaitingBTC:
				st.WaitingBTC++
			case StatusBTCLocked:
				st.BTCLocked++
			case StatusAssetLocked:
				st.AssetLocked++
			case StatusClaimed:
				st.Claimed++
			case StatusRefunded:
				st.Refunded++
			case StatusExpired:
				st.Expired++
			case StatusError:
				st.Errored++
			}
		}
		out <- st
	}

	if !c.runSync(req) {
		return Stats{}
	}
	return <-out
}

// ForceClaim is the forceClaim(tokenId, S) admin operation (§4.6
// "Forced operations"), keyed by hashH rather than tokenId since the
// actor indexes swaps by hashH and a tokenId can only have one swap
// open against it at a time anyway.
func (c *Coordinator) ForceClaim(hashH secret.Commitment, s secret.Secret) error {
	reply := make(chan error, 1)
	select {
	case c.inbox <- &forceClaimMsg{hashH: hashH, s: s, reply: reply}:
	case <-c.quit:
		return ErrShuttingDown
	}

	select {
	case err := <-reply:
		return err
	case <-c.quit:
		return ErrShuttingDown
	}
}

// ForceRefund is the forceRefund(tokenId) admin operation, keyed by
// hashH for the same reason ForceClaim is.
func (c *Coordinator) ForceRefund(hashH secret.Commitment) error {
	reply := make(chan error, 1)
	select {
	case c.inbox <- &forceRefundMsg{hashH: hashH, reply: reply}:
	case <-c.quit:
		return ErrShuttingDown
	}

	select {
	case err := <-reply:
		return err
	case <-c.quit:
		return ErrShuttingDown
	}
}

// runSyncMsg is a closure dispatched onto the actor loop for read-only
// admin queries that don't warrant their own message type.
type runSyncMsg struct {
	fn func()
}

// runSync schedules fn to run on the actor loop and blocks until it has
// been dispatched (fn itself signals completion via its own channel).
// Returns false if the coordinator is shutting down.
func (c *Coordinator) runSync(fn func()) bool {
	select {
	case c.inbox <- &runSyncMsg{fn: fn}:
		return true
	case <-c.quit:
		return false
	}
}
