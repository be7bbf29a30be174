package mempool

import (
	"context"
	"sync"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/lightningnetwork/lnd/chainntnfs"
)

// confirmationRequest is a pending confirmation-notification request,
// keyed by the txid being watched.
type confirmationRequest struct {
	txid     chainhash.Hash
	numConfs uint32

	confChan chan *chainntnfs.TxConfirmation
	errChan  chan error

	cancel context.CancelFunc
}

// confirmationNotifier tracks confirmation depth for funding
// transactions by polling the block-explorer API, surfacing results as
// the same chainntnfs.ConfirmationEvent/TxConfirmation shapes lnd's own
// chain-notifier backends use - so the rest of the coordinator never
// needs to know the notification source is a poller, not a full node.
type confirmationNotifier struct {
	client       *Client
	pollInterval time.Duration

	requests map[chainhash.Hash]*confirmationRequest
	mu       sync.Mutex

	quit chan struct{}
	wg   sync.WaitGroup
}

func newConfirmationNotifier(client *Client, pollInterval time.Duration) *confirmationNotifier {
	return &confirmationNotifier{
		client:       client,
		pollInterval: pollInterval,
		requests:     make(map[chainhash.Hash]*confirmationRequest),
		quit:         make(chan struct{}),
	}
}

func (n *confirmationNotifier) Start() {}

func (n *confirmationNotifier) Stop() {
	close(n.quit)
	n.wg.Wait()

	n.mu.Lock()
	for _, req := range n.requests {
		req.cancel()
	}
	n.requests = make(map[chainhash.Hash]*confirmationRequest)
	n.mu.Unlock()
}

// RegisterConfirmation starts polling for txid to reach numConfs
// confirmations, mirroring chainntnfs.ChainNotifier's
// RegisterConfirmationsNtfn shape.
func (n *confirmationNotifier) RegisterConfirmation(
	ctx context.Context, txid chainhash.Hash, numConfs uint32,
) (*chainntnfs.ConfirmationEvent, chan error) {

	confChan := make(chan *chainntnfs.TxConfirmation, 1)
	errChan := make(chan error, 1)

	reqCtx, cancel := context.WithCancel(ctx)
	req := &confirmationRequest{
		txid:     txid,
		numConfs: numConfs,
		confChan: confChan,
		errChan:  errChan,
		cancel:   cancel,
	}

	n.mu.Lock()
	n.requests[txid] = req
	n.mu.Unlock()

	n.wg.Add(1)
	go n.monitor(reqCtx, req)

	return &chainntnfs.ConfirmationEvent{Confirmed: confChan}, errChan
}

func (n *confirmationNotifier) monitor(ctx context.Context, req *confirmationRequest) {
	defer n.wg.Done()

	ticker := time.NewTicker(n.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-n.quit:
			return
		case <-ticker.C:
			tx, err := n.client.GetTransaction(ctx, req.txid.String())
			if err != nil || !tx.Status.Confirmed {
				continue
			}

			height, err := n.client.GetCurrentHeight(ctx)
			if err != nil {
				continue
			}

			confs := uint32(1)
			if height >= uint32(tx.Status.BlockHeight) {
				confs = height - uint32(tx.Status.BlockHeight) + 1
			}
			if confs < req.numConfs {
				continue
			}

			select {
			case req.confChan <- &chainntnfs.TxConfirmation{
				BlockHeight: uint32(tx.Status.BlockHeight),
			}:
			case <-ctx.Done():
			case <-n.quit:
			}

			n.mu.Lock()
			delete(n.requests, req.txid)
			n.mu.Unlock()
			return
		}
	}
}
