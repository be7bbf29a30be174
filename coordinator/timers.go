package coordinator

import (
	"time"

	"github.com/tapswap/htlcswap/secret"
)

// scheduleDeadline arms the single timer a swap owns, firing
// deadline_reached at fireAt (§4.6 step 1, §5 "each swap owns one
// timer"). Only ever called from within the actor's run loop.
func (c *Coordinator) scheduleDeadline(hashH secret.Commitment, fireAt time.Time) {
	cancelCh := make(chan struct{})
	c.timerCancel[hashH] = cancelCh

	d := fireAt.Sub(c.cfg.Clock.Now())
	if d < 0 {
		d = 0
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		select {
		case <-c.cfg.Clock.TickAfter(d):
			select {
			case c.inbox <- deadlineMsg{hashH: hashH}:
			case <-c.quit:
			}
		case <-cancelCh:
		case <-c.quit:
		}
	}()
}

// cancelTimer disarms a swap's deadline timer once it reaches a
// terminal state (§5 "reaching a terminal state cancels the timer").
func (c *Coordinator) cancelTimer(hashH secret.Commitment) {
	if ch, ok := c.timerCancel[hashH]; ok {
		close(ch)
		delete(c.timerCancel, hashH)
	}
}
