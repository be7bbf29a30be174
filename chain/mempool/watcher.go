package mempool

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btclog"
	"github.com/lightningnetwork/lnd/lnwallet/chainfee"
	"github.com/lightningnetwork/lnd/ticker"

	"github.com/tapswap/htlcswap/secret"
)

// log is the subsystem logger, installed via UseLogger like every other
// package in this module.
var log = btclog.Disabled

// UseLogger sets the package-level logger used by chain/mempool.
func UseLogger(l btclog.Logger) {
	log = l
}

// DustLimitSats is the threshold below which a funding amount is still
// accepted but flagged (§8 boundary behavior).
const DustLimitSats = 1000

// WatcherConfig configures the Bitcoin observer (C4).
type WatcherConfig struct {
	// Client is the block-explorer API client.
	Client *Client

	// PollInterval is how often to poll watched addresses/txids.
	// Default: 30 seconds.
	PollInterval time.Duration

	// MinConfirmations is N_conf, the number of confirmations required
	// before a swap moves from btc_locked to asset_locked.
	MinConfirmations uint32

	// CacheSize is the initial capacity of the transaction cache. It is
	// not a bound: the cache evicts once it holds more than 1000 entries.
	CacheSize int

	// CacheTTL is how long cached items are valid.
	CacheTTL time.Duration

	// WSURL, if set, is a mempool.space-style WebSocket endpoint
	// (BTC_WS_URL). The watcher dials it alongside the poll ticker and
	// treats each new-block notification as a cue to poll immediately
	// rather than wait for the next tick (§4.4: "a push channel ... may
	// deliver the same events faster; both sources feed the same
	// idempotent pipeline"). Empty means poll-only.
	WSURL string

	// TxidRetention is how long a processed txid is kept before eviction
	// (§4.4 idempotency), whatever the state of its swap.
	TxidRetention time.Duration

	// Backpressure, if set, reports the coordinator's current inbox
	// depth. Once it reaches BackpressureLimit the watcher skips the
	// reorg check and secret re-scan of already-funded swaps (the
	// non-essential work) for a tick, per §5's backpressure rule - it
	// keeps polling for brand new funding transactions either way, since
	// those aren't optional. Confirmation tracking runs in the
	// confirmation notifier's own goroutines and is not paused.
	Backpressure func() int

	// BackpressureLimit is the soft inbox-depth limit. Default: 1024.
	BackpressureLimit int
}

// DefaultWatcherConfig returns sensible defaults matching spec.md §6.5.
func DefaultWatcherConfig(client *Client) *WatcherConfig {
	return &WatcherConfig{
		Client:            client,
		PollInterval:      30 * time.Second,
		MinConfirmations:  1,
		CacheSize:         100,
		CacheTTL:          60 * time.Second,
		TxidRetention:     24 * time.Hour,
		BackpressureLimit: 1024,
	}
}

// FundingSeen is emitted once a candidate transaction pays the watched
// address at least the expected amount.
type FundingSeen struct {
	HashH      secret.Commitment
	BTCTxid    string
	ActualSats int64
	WantSats   int64
	DustWarn   bool
}

// FundingConfirmed is emitted once a previously-seen funding tx reaches
// MinConfirmations.
type FundingConfirmed struct {
	HashH   secret.Commitment
	BTCTxid string
}

// FundingReorged is emitted when a previously-seen funding transaction
// disappears from the best chain.
type FundingReorged struct {
	HashH   secret.Commitment
	BTCTxid string
}

// SecretRevealed is emitted once the observer finds the preimage in a
// spend of the funding transaction.
type SecretRevealed struct {
	HashH      secret.Commitment
	Secret     secret.Secret
	RevealTxid string
}

// watchTarget is one swap the observer is tracking.
type watchTarget struct {
	hashH    secret.Commitment
	address  string
	wantSats int64

	// btcTxid, once non-empty, is the observed funding transaction.
	btcTxid string
	// confirmed is set once MinConfirmations has been reached, so the
	// watcher doesn't re-emit FundingConfirmed on every tick.
	confirmed bool
	// assetLocked is set once the coordinator has told the observer the
	// asset leg has opened, gating the reorg-downgrade policy (§4.4).
	assetLocked bool
}

// Watcher is the Bitcoin observer (C4): it polls a block-explorer API for
// HTLC funding transactions and their revealing spends, publishing
// idempotent events to Events().
type Watcher struct {
	cfg *WatcherConfig

	cache *cache

	processed *processedSet
	confirmer *confirmationNotifier

	targets map[secret.Commitment]*watchTarget
	mu      sync.Mutex

	events chan interface{}

	tk   ticker.Ticker
	ws   *WSFeed
	quit chan struct{}
	wg   sync.WaitGroup
}

// NewWatcher constructs a Watcher. A nil cfg falls back to defaults
// built around a default mempool.space client.
func NewWatcher(cfg *WatcherConfig) *Watcher {
	if cfg == nil {
		cfg = DefaultWatcherConfig(NewClient(nil))
	}

	w := &Watcher{
		cfg:       cfg,
		cache:     newCache(cfg.CacheSize, cfg.CacheTTL),
		processed: newProcessedSet(cfg.TxidRetention),
		confirmer: newConfirmationNotifier(cfg.Client, cfg.PollInterval),
		targets:   make(map[secret.Commitment]*watchTarget),
		events:    make(chan interface{}, 256),
		tk:        ticker.New(cfg.PollInterval),
		quit:      make(chan struct{}),
	}
	if cfg.WSURL != "" {
		w.ws = NewWSFeed(cfg.WSURL)
	}
	return w
}

// Events returns the channel of FundingSeen/FundingConfirmed/
// FundingReorged/SecretRevealed messages the coordinator consumes.
func (w *Watcher) Events() <-chan interface{} {
	return w.events
}

// Start begins the poll loop, plus the WebSocket push feed if WSURL was
// configured. A failed WS dial is logged and otherwise ignored - the
// poller alone is already a complete source of truth, just slower.
func (w *Watcher) Start() error {
	w.tk.Resume()
	w.wg.Add(1)
	go w.pollLoop()

	if w.ws != nil {
		if err := w.ws.Connect(); err != nil {
			log.Warnf("mempool: ws feed connect failed, falling back to poll-only: %v", err)
		} else {
			w.wg.Add(1)
			go w.wsLoop()
		}
	}
	return nil
}

// Stop halts the poll loop, the ws feed, and releases the ticker.
func (w *Watcher) Stop() error {
	close(w.quit)
	w.tk.Stop()
	w.confirmer.Stop()
	if w.ws != nil {
		_ = w.ws.Close()
	}
	w.wg.Wait()
	return nil
}

// wsLoop triggers an out-of-cycle poll every time the push feed reports
// a new block, so confirmations and secret reveals are caught sooner
// than the poll ticker would on its own. The periodic poller remains
// the authority; this is purely a latency shortcut.
func (w *Watcher) wsLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.quit:
			return
		case _, ok := <-w.ws.NewBlocks():
			if !ok {
				return
			}
			w.pollOnce(context.Background())
		}
	}
}

// WatchAddress begins tracking a seller address for a swap's funding
// transaction (register, §4.6 step 1).
func (w *Watcher) WatchAddress(hashH secret.Commitment, address string, wantSats int64) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.targets[hashH] = &watchTarget{
		hashH:    hashH,
		address:  address,
		wantSats: wantSats,
	}
}

// NoteAssetLocked records that the asset leg has opened for hashH, which
// changes the reorg-downgrade policy (§4.4): a disappearing funding tx no
// longer reverts the swap to waiting_btc, it only raises an alert.
func (w *Watcher) NoteAssetLocked(hashH secret.Commitment) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.targets[hashH]; ok {
		t.assetLocked = true
	}
}

// Forget stops tracking a swap once it reaches a terminal state.
func (w *Watcher) Forget(hashH secret.Commitment) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.targets, hashH)
}

func (w *Watcher) pollLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.quit:
			return
		case <-w.tk.Ticks():
			w.pollOnce(context.Background())
			w.processed.evictExpired()
			w.cache.cleanup()
		}
	}
}

// pollOnce runs a single pass over every watched target. It is kept
// separate from pollLoop so wsLoop can also run an out-of-cycle pass
// without waiting on the ticker.
func (w *Watcher) pollOnce(ctx context.Context) {
	w.mu.Lock()
	snapshot := make([]*watchTarget, 0, len(w.targets))
	for _, t := range w.targets {
		snapshot = append(snapshot, t)
	}
	w.mu.Unlock()

	backpressured := w.cfg.Backpressure != nil && w.cfg.BackpressureLimit > 0 &&
		w.cfg.Backpressure() >= w.cfg.BackpressureLimit

	for _, t := range snapshot {
		if t.btcTxid == "" {
			w.pollFunding(ctx, t)
			continue
		}
		if backpressured {
			// Non-essential: a swap already past funding detection can
			// wait a tick for its confirmation/secret-rescan poll.
			continue
		}
		w.pollConfirmationAndSpend(ctx, t)
	}
}

func (w *Watcher) pollFunding(ctx context.Context, t *watchTarget) {
	txs, err := w.cfg.Client.GetAddressTxs(ctx, t.address)
	if err != nil {
		log.Warnf("mempool: address poll failed for %x: %v", t.hashH, err)
		return
	}

	for _, tx := range txs {
		if w.processed.contains(tx.TxID) {
			continue
		}

		var total int64
		for _, out := range tx.Vout {
			if out.ScriptPubKeyAddr == t.address {
				total += out.Value
			}
		}
		if total < t.wantSats {
			continue
		}

		w.processed.add(tx.TxID)

		w.mu.Lock()
		t.btcTxid = tx.TxID
		w.mu.Unlock()

		w.registerConfirmation(t)

		w.events <- FundingSeen{
			HashH:      t.hashH,
			BTCTxid:    tx.TxID,
			ActualSats: total,
			WantSats:   t.wantSats,
			DustWarn:   total < DustLimitSats,
		}
		return
	}
}

// registerConfirmation subscribes to confirmation depth for a newly
// observed funding tx and forwards the result onto the event channel.
func (w *Watcher) registerConfirmation(t *watchTarget) {
	txHash, err := chainhash.NewHashFromStr(t.btcTxid)
	if err != nil {
		log.Warnf("mempool: malformed txid %q: %v", t.btcTxid, err)
		return
	}

	confEvent, errChan := w.confirmer.RegisterConfirmation(
		context.Background(), *txHash, w.cfg.MinConfirmations,
	)

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		select {
		case <-confEvent.Confirmed:
			w.mu.Lock()
			t.confirmed = true
			w.mu.Unlock()
			w.events <- FundingConfirmed{HashH: t.hashH, BTCTxid: t.btcTxid}
		case <-errChan:
		case <-w.quit:
		}
	}()
}

func (w *Watcher) pollConfirmationAndSpend(ctx context.Context, t *watchTarget) {
	tx, err := w.fetchTx(ctx, t.btcTxid)
	if err != nil {
		// Disappeared from the explorer's view: reorg.
		w.handleReorg(t)
		return
	}

	// Check every output for a spend that reveals the secret - the
	// seller may claim as soon as the tx is in a block the coordinator
	// already accepted, independent of confirmation depth.
	for i, out := range tx.Vout {
		if out.ScriptPubKeyAddr != t.address {
			continue
		}
		spend, err := w.cfg.Client.GetOutspend(ctx, t.btcTxid, uint32(i))
		if err != nil || !spend.Spent {
			continue
		}

		spendTx, err := w.fetchTx(ctx, spend.TxID)
		if err != nil {
			continue
		}
		if s, ok := ExtractSecret(spendTx, t.hashH); ok {
			w.events <- SecretRevealed{
				HashH:      t.hashH,
				Secret:     s,
				RevealTxid: spend.TxID,
			}
		}
	}
}

func (w *Watcher) handleReorg(t *watchTarget) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t.assetLocked {
		// §4.4: once asset_locked, a disappearing funding tx is only
		// an alert - no automatic refund before T_asset.
		w.events <- FundingReorged{HashH: t.hashH, BTCTxid: t.btcTxid}
		return
	}

	// Asset leg never opened: safe to downgrade back to waiting_btc.
	t.btcTxid = ""
	w.events <- FundingReorged{HashH: t.hashH, BTCTxid: t.btcTxid}
}

func (w *Watcher) fetchTx(ctx context.Context, txid string) (*TransactionResponse, error) {
	if tx, ok := w.cache.getTx(txid); ok {
		return &tx, nil
	}

	tx, err := w.cfg.Client.GetTransaction(ctx, txid)
	if err != nil {
		return nil, err
	}
	w.cache.setTx(txid, *tx)
	return tx, nil
}

// CurrentHeight returns the best known chain height, cached briefly to
// spare the explorer API repeated lookups within one poll interval.
func (w *Watcher) CurrentHeight(ctx context.Context) (uint32, error) {
	if h, ok := w.cache.getHeight(); ok {
		return h, nil
	}
	h, err := w.cfg.Client.GetCurrentHeight(ctx)
	if err != nil {
		return 0, err
	}
	w.cache.setHeight(h)
	return h, nil
}

// EstimateFee estimates a fee rate for a given confirmation target. The
// explorer reports integer sat/vB rates; they are converted to sat/kw
// (1000 weight units are 250 vbytes), so no rounding is involved.
func (w *Watcher) EstimateFee(ctx context.Context, confTarget uint32) (chainfee.SatPerKWeight, error) {
	fees, err := w.cfg.Client.GetFeeEstimates(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get fee estimates: %w", err)
	}

	var feeRate int64
	switch {
	case confTarget <= 1:
		feeRate = fees.FastestFee
	case confTarget <= 3:
		feeRate = fees.HalfHourFee
	case confTarget <= 6:
		feeRate = fees.HourFee
	case confTarget <= 12:
		feeRate = fees.EconomyFee
	default:
		feeRate = fees.MinimumFee
	}

	return chainfee.SatPerKWeight(feeRate * 1000 / 4), nil
}

// RoundBTCToSats converts a BTC-denominated float (as returned by some
// explorer APIs) to satoshis, rounding rather than truncating so dust
// rounding never silently eats part of a payment (§4.4 amount
// semantics).
func RoundBTCToSats(btc float64) int64 {
	return int64(math.Round(btc * 1e8))
}
