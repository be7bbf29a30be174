// Package coordinator implements the swap coordinator (C6): a per-swap
// actor with one inbox, binding the Bitcoin observer (C4) and the
// asset-ledger actuator (C5) per spec §4.6. It is the single owner of
// PendingSwap state; nothing outside the actor's run loop ever mutates
// a swap directly (§5).
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/lightningnetwork/lnd/clock"
	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/tapswap/htlcswap/actuator"
	"github.com/tapswap/htlcswap/chain/mempool"
	"github.com/tapswap/htlcswap/escrow"
	"github.com/tapswap/htlcswap/secret"
)

// Actuator is the subset of actuator.Actuator the coordinator drives.
// An interface so tests can substitute a fake without a real escrow
// ledger underneath.
type Actuator interface {
	OpenEscrow(ctx context.Context, seller escrow.Address, tokenID escrow.TokenID,
		buyer escrow.Address, hashH secret.Commitment, expiryTimestamp int64,
		priceSats uint64) (*escrow.Escrow, []escrow.Event, error)
	Claim(ctx context.Context, buyer escrow.Address, tokenID escrow.TokenID,
		s secret.Secret) ([]escrow.Event, escrow.Address, error)
	Refund(ctx context.Context, caller escrow.Address, tokenID escrow.TokenID) ([]escrow.Event, error)
	IsInEscrow(tokenID escrow.TokenID) bool
}

// Observer is the subset of mempool.Watcher the coordinator drives.
type Observer interface {
	Events() <-chan interface{}
	WatchAddress(hashH secret.Commitment, address string, wantSats int64)
	NoteAssetLocked(hashH secret.Commitment)
	Forget(hashH secret.Commitment)
}

// EventSink forwards raw ledger events emitted by an actuator call to
// an external consumer, e.g. events.Normalizer (C7). Optional: a nil
// EventSink in Config means events are simply dropped once the
// actuator call that produced them resolves, as before this hook
// existed.
type EventSink interface {
	Ingest(txid string, events []escrow.Event)
}

// Store persists a flattened snapshot of a PendingSwap for restart
// recovery (§9's init sequence, §3.1). Optional: a nil Store in Config
// keeps the coordinator purely in-memory, which is sufficient for
// tests and for itest's short-lived processes. A thin adapter owned by
// whichever package wires this one to swapdb converts StoreRecord to
// swapdb.SwapRecord, so neither package imports the other.
type Store interface {
	Upsert(r StoreRecord) error
}

// StoreRecord mirrors swapdb.SwapRecord's shape using only types this
// package already depends on, so neither side needs to import the
// other to agree on the schema.
type StoreRecord struct {
	HashH           string
	TokenID         uint64
	PriceSats       uint64
	SellerBTCAddr   string
	SellerAssetAddr string
	BuyerAssetAddr  string
	DeadlineTAsset  int64
	BufferSeconds   int64
	Status          string
	BTCTxid         string
	RevealTxid      string
	SecretS         string
	LastError       string
	CreatedAt       int64
	UpdatedAt       int64
}

// Config configures the Coordinator.
type Config struct {
	Actuator Actuator
	Observer Observer
	Clock    clock.Clock

	// Store optionally persists swap snapshots for restart recovery.
	// Nil means in-memory only.
	Store Store

	// EventSink optionally receives the raw escrow.Event slices each
	// OpenEscrow/Claim/Refund call produces, for canonical
	// normalization (C7) downstream. Nil means events are discarded.
	EventSink EventSink

	// AutoClaim mirrors AUTO_CLAIM (§6.5): whether secret_observed
	// triggers an automatic claim or only records the secret for a
	// manual forceClaim.
	AutoClaim bool

	// MaxRetries is N_retry, the ExternalFailure retry budget. Default 5.
	MaxRetries int

	// RetryBaseDelay/RetryCapDelay bound the exponential backoff.
	// Defaults: 1s / 30s.
	RetryBaseDelay time.Duration
	RetryCapDelay  time.Duration

	// DefaultBufferSeconds is used when a RegisterRequest doesn't
	// specify BufferSeconds. Default: 2h (HTLC_TIMEOUT_BUFFER_HOURS).
	DefaultBufferSeconds int64

	// InboxSize bounds the coordinator's message channel. Default 1024,
	// matching the §5 backpressure soft limit.
	InboxSize int

	// RetentionSweepInterval controls how often terminal swaps past
	// their 24h retention are evicted. Default: 1h.
	RetentionSweepInterval time.Duration
}

func (c *Config) setDefaults() {
	if c.MaxRetries == 0 {
		c.MaxRetries = 5
	}
	if c.RetryBaseDelay == 0 {
		c.RetryBaseDelay = time.Second
	}
	if c.RetryCapDelay == 0 {
		c.RetryCapDelay = 30 * time.Second
	}
	if c.DefaultBufferSeconds == 0 {
		c.DefaultBufferSeconds = int64(2 * time.Hour / time.Second)
	}
	if c.InboxSize == 0 {
		c.InboxSize = 1024
	}
	if c.RetentionSweepInterval == 0 {
		c.RetentionSweepInterval = time.Hour
	}
	if c.Clock == nil {
		c.Clock = clock.NewDefaultClock()
	}
}

func (c *Config) validate() error {
	if c.Actuator == nil {
		return fmt.Errorf("coordinator: actuator is required")
	}
	if c.Observer == nil {
		return fmt.Errorf("coordinator: observer is required")
	}
	return nil
}

var (
	metricSwapsByStatus = prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "swapd",
		Name:      "swaps_by_status",
		Help:      "Number of pending swaps currently in each status.",
	}, []string{"status"})

	metricRegistered = prom.NewCounter(prom.CounterOpts{
		Namespace: "swapd",
		Name:      "swaps_registered_total",
		Help:      "Total swaps registered.",
	})
)

func init() {
	prom.MustRegister(metricSwapsByStatus, metricRegistered)
}

// Coordinator is the C6 swap actor.
type Coordinator struct {
	cfg *Config

	inbox chan interface{}

	swaps       map[secret.Commitment]*PendingSwap
	timerCancel map[secret.Commitment]chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
	quit   chan struct{}
	wg     sync.WaitGroup

	closeOnce sync.Once
}

// New constructs a Coordinator. Call Start to begin processing.
func New(cfg *Config) (*Coordinator, error) {
	cfg.setDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Coordinator{
		cfg:         cfg,
		inbox:       make(chan interface{}, cfg.InboxSize),
		swaps:       make(map[secret.Commitment]*PendingSwap),
		timerCancel: make(map[secret.Commitment]chan struct{}),
		ctx:         ctx,
		cancel:      cancel,
		quit:        make(chan struct{}),
	}, nil
}

// inboxLen reports the coordinator's current inbox depth, wired to the
// observer's backpressure hook (§5).
func (c *Coordinator) inboxLen() int {
	return len(c.inbox)
}

// InboxLen exposes inboxLen for wiring into mempool.WatcherConfig.Backpressure.
func (c *Coordinator) InboxLen() int {
	return c.inboxLen()
}

// Start begins the actor's run loop.
func (c *Coordinator) Start() error {
	c.wg.Add(1)
	go c.run()
	return nil
}

// Stop halts the actor, cancelling all timers and in-flight actuator
// retries, and waits for their goroutines (§9's init→run→shutdown
// lifecycle). Messages still queued in the inbox are not processed.
func (c *Coordinator) Stop() error {
	c.closeOnce.Do(func() {
		c.cancel()
		close(c.quit)
	})
	c.wg.Wait()
	return nil
}

func (c *Coordinator) run() {
	defer c.wg.Done()

	obsEvents := c.cfg.Observer.Events()
	sweep := time.NewTicker(c.cfg.RetentionSweepInterval)
	defer sweep.Stop()

	for {
		select {
		case <-c.quit:
			return

		case msg := <-c.inbox:
			c.handle(msg)

		case ev, ok := <-obsEvents:
			if !ok {
				obsEvents = nil
				continue
			}
			c.handleObserverEvent(ev)

		case <-sweep.C:
			c.sweepRetired()
		}
	}
}

func (c *Coordinator) handle(msg interface{}) {
	switch m := msg.(type) {
	case *registerMsg:
		m.reply <- c.doRegister(m.req)
	case *forceClaimMsg:
		m.reply <- c.doForceClaim(m.hashH, m.s)
	case *forceRefundMsg:
		m.reply <- c.doForceRefund(m.hashH)
	case deadlineMsg:
		c.onDeadline(m.hashH)
	case *openResultMsg:
		c.onOpenResult(m)
	case *claimResultMsg:
		c.onClaimResult(m)
	case *refundResultMsg:
		c.onRefundResult(m)
	case *runSyncMsg:
		m.fn()
	}
}

func (c *Coordinator) handleObserverEvent(ev interface{}) {
	switch e := ev.(type) {
	case mempool.FundingSeen:
		c.onFundingSeen(e)
	case mempool.FundingConfirmed:
		c.onFundingConfirmed(e)
	case mempool.FundingReorged:
		c.onFundingReorged(e)
	case mempool.SecretRevealed:
		c.onSecretRevealed(e)
	}
}

// --- register -------------------------------------------------------

type registerMsg struct {
	req   RegisterRequest
	reply chan error
}

func (c *Coordinator) doRegister(req RegisterRequest) error {
	if _, exists := c.swaps[req.HashH]; exists {
		return ErrDuplicateHash
	}

	buffer := req.BufferSeconds
	if buffer == 0 {
		buffer = c.cfg.DefaultBufferSeconds
	}

	now := c.cfg.Clock.Now()
	swap := &PendingSwap{
		HashH:           req.HashH,
		TokenID:         req.TokenID,
		PriceSats:       req.PriceSats,
		SellerBTCAddr:   req.SellerBTCAddr,
		SellerAssetAddr: req.SellerAssetAddr,
		BuyerAssetAddr:  req.BuyerAssetAddr,
		DeadlineTAsset:  req.DeadlineTAsset,
		BufferSeconds:   buffer,
		Status:          StatusWaitingBTC,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	c.swaps[req.HashH] = swap

	c.cfg.Observer.WatchAddress(req.HashH, req.SellerBTCAddr, int64(req.PriceSats))
	c.scheduleDeadline(req.HashH, time.Unix(req.DeadlineTAsset-buffer, 0))

	metricRegistered.Inc()
	c.publishMetrics()
	c.persist(swap)
	return nil
}

// --- btc_seen ---------------------------------------------------------

func (c *Coordinator) onFundingSeen(e mempool.FundingSeen) {
	swap, ok := c.swaps[e.HashH]
	if !ok || swap.Status != StatusWaitingBTC {
		return
	}

	swap.BTCTxid = e.BTCTxid
	swap.Status = StatusBTCLocked
	swap.UpdatedAt = c.cfg.Clock.Now()
	c.publishMetrics()
	c.persist(swap)
}

// --- btc_confirmed ------------------------------------------------------

func (c *Coordinator) onFundingConfirmed(e mempool.FundingConfirmed) {
	swap, ok := c.swaps[e.HashH]
	if !ok || swap.Status != StatusBTCLocked {
		return
	}

	adjusted := swap.DeadlineTAsset - swap.BufferSeconds
	if adjusted <= c.cfg.Clock.Now().Unix() {
		// §4.6 step 3: skip opening; the swap will expire via its timer.
		return
	}

	c.submitOpen(swap, adjusted)
}

type openResultMsg struct {
	hashH  secret.Commitment
	events []escrow.Event
	err    error
}

func (c *Coordinator) submitOpen(swap *PendingSwap, adjustedExpiry int64) {
	hashH := swap.HashH
	tokenID := swap.TokenID
	seller := swap.SellerAssetAddr
	buyer := swap.BuyerAssetAddr
	price := swap.PriceSats

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		var evts []escrow.Event
		err := c.retryLoop(c.ctx, "openEscrow", func(ctx context.Context) error {
			_, e, err := c.cfg.Actuator.OpenEscrow(ctx, seller, tokenID, buyer, hashH, adjustedExpiry, price)
			evts = e
			return err
		})

		select {
		case c.inbox <- &openResultMsg{hashH: hashH, events: evts, err: err}:
		case <-c.quit:
		}
	}()
}

func (c *Coordinator) onOpenResult(m *openResultMsg) {
	swap, ok := c.swaps[m.hashH]
	if !ok {
		return
	}

	if m.err != nil {
		c.parkOrRecord(swap, "openEscrow", m.err)
		return
	}

	swap.Status = StatusAssetLocked
	swap.UpdatedAt = c.cfg.Clock.Now()
	swap.LastError = nil
	c.cfg.Observer.NoteAssetLocked(m.hashH)
	c.publishMetrics()
	c.persist(swap)
	c.ingestEvents(swap.BTCTxid, m.events)

	// A secret observed while the open was still in flight was buffered;
	// act on it now that the asset leg is actually open.
	if swap.SecretS != nil && c.cfg.AutoClaim {
		c.submitClaim(swap, *swap.SecretS)
	}
}

// --- secret_observed ----------------------------------------------------

func (c *Coordinator) onSecretRevealed(e mempool.SecretRevealed) {
	swap, ok := c.swaps[e.HashH]
	if !ok {
		return
	}

	switch swap.Status {
	case StatusWaitingBTC:
		// §4.6 ordering guarantee: rejected, not acted on.
		return
	case StatusBTCLocked:
		// Open may still be in flight; buffer and act once asset_locked.
		s := e.Secret
		swap.SecretS = &s
		swap.RevealTxid = e.RevealTxid
		return
	case StatusAssetLocked:
		s := e.Secret
		swap.SecretS = &s
		swap.RevealTxid = e.RevealTxid
		if c.cfg.AutoClaim {
			c.submitClaim(swap, s)
		}
	default:
		// Claimed/refunded/expired/error: nothing to do.
	}
}

type claimResultMsg struct {
	hashH    secret.Commitment
	newOwner escrow.Address
	events   []escrow.Event
	err      error
}

func (c *Coordinator) submitClaim(swap *PendingSwap, s secret.Secret) {
	hashH := swap.HashH
	tokenID := swap.TokenID
	buyer := swap.BuyerAssetAddr

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		var newOwner escrow.Address
		var evts []escrow.Event
		err := c.retryLoop(c.ctx, "claim", func(ctx context.Context) error {
			e, owner, err := c.cfg.Actuator.Claim(ctx, buyer, tokenID, s)
			evts = e
			newOwner = owner
			return err
		})

		select {
		case c.inbox <- &claimResultMsg{hashH: hashH, newOwner: newOwner, events: evts, err: err}:
		case <-c.quit:
		}
	}()
}

func (c *Coordinator) onClaimResult(m *claimResultMsg) {
	swap, ok := c.swaps[m.hashH]
	if !ok {
		return
	}

	if m.err != nil {
		c.parkOrRecord(swap, "claim", m.err)
		return
	}

	swap.Status = StatusClaimed
	swap.UpdatedAt = c.cfg.Clock.Now()
	swap.LastError = nil
	c.retireSwap(swap)
	c.persist(swap)
	c.ingestEvents(swap.RevealTxid, m.events)
}

// --- deadline_reached -----------------------------------------------------

type deadlineMsg struct {
	hashH secret.Commitment
}

func (c *Coordinator) onDeadline(hashH secret.Commitment) {
	swap, ok := c.swaps[hashH]
	if !ok || swap.Status.Terminal() {
		return
	}

	switch swap.Status {
	case StatusWaitingBTC:
		swap.Status = StatusExpired
		swap.UpdatedAt = c.cfg.Clock.Now()
		c.cfg.Observer.Forget(hashH)
		c.retireSwap(swap)
		c.persist(swap)

	case StatusBTCLocked, StatusAssetLocked:
		if c.cfg.Actuator.IsInEscrow(swap.TokenID) {
			c.submitRefund(swap)
			return
		}
		// Buyer already claimed in a race with the deadline - not an error.
		swap.Status = StatusExpired
		swap.UpdatedAt = c.cfg.Clock.Now()
		c.retireSwap(swap)
		c.persist(swap)

	case StatusError:
		// Parked awaiting operator intervention; the deadline firing
		// again (it only fires once) doesn't change anything.
	}
}

type refundResultMsg struct {
	hashH  secret.Commitment
	events []escrow.Event
	err    error
}

func (c *Coordinator) submitRefund(swap *PendingSwap) {
	hashH := swap.HashH
	tokenID := swap.TokenID
	seller := swap.SellerAssetAddr

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		var evts []escrow.Event
		err := c.retryLoop(c.ctx, "refund", func(ctx context.Context) error {
			e, err := c.cfg.Actuator.Refund(ctx, seller, tokenID)
			evts = e
			return err
		})

		select {
		case c.inbox <- &refundResultMsg{hashH: hashH, events: evts, err: err}:
		case <-c.quit:
		}
	}()
}

func (c *Coordinator) onRefundResult(m *refundResultMsg) {
	swap, ok := c.swaps[m.hashH]
	if !ok {
		return
	}

	if m.err != nil {
		c.parkOrRecord(swap, "refund", m.err)
		return
	}

	swap.Status = StatusRefunded
	swap.UpdatedAt = c.cfg.Clock.Now()
	swap.LastError = nil
	c.retireSwap(swap)
	c.persist(swap)
	c.ingestEvents(swap.BTCTxid, m.events)
}

// --- force ops --------------------------------------------------------

type forceClaimMsg struct {
	hashH secret.Commitment
	s     secret.Secret
	reply chan error
}

func (c *Coordinator) doForceClaim(hashH secret.Commitment, s secret.Secret) error {
	swap, ok := c.swaps[hashH]
	if !ok {
		return ErrSwapNotFound
	}
	if swap.Status.Terminal() {
		return ErrNotTerminal
	}

	_, newOwner, err := c.cfg.Actuator.Claim(c.ctx, swap.BuyerAssetAddr, swap.TokenID, s)
	if err != nil {
		return &actuatorOpError{op: "forceClaim", cause: err}
	}

	swap.Status = StatusClaimed
	swap.SecretS = &s
	swap.UpdatedAt = c.cfg.Clock.Now()
	swap.LastError = nil
	_ = newOwner
	c.retireSwap(swap)
	c.persist(swap)
	return nil
}

type forceRefundMsg struct {
	hashH secret.Commitment
	reply chan error
}

func (c *Coordinator) doForceRefund(hashH secret.Commitment) error {
	swap, ok := c.swaps[hashH]
	if !ok {
		return ErrSwapNotFound
	}
	if swap.Status.Terminal() {
		return ErrNotTerminal
	}

	_, err := c.cfg.Actuator.Refund(c.ctx, swap.SellerAssetAddr, swap.TokenID)
	if err != nil {
		return &actuatorOpError{op: "forceRefund", cause: err}
	}

	swap.Status = StatusRefunded
	swap.UpdatedAt = c.cfg.Clock.Now()
	swap.LastError = nil
	c.retireSwap(swap)
	c.persist(swap)
	return nil
}

type actuatorOpError struct {
	op    string
	cause error
}

func (e *actuatorOpError) Error() string {
	return fmt.Sprintf("coordinator: %s failed: %v", e.op, e.cause)
}

func (e *actuatorOpError) Unwrap() error { return e.cause }

// --- reorg --------------------------------------------------------------

func (c *Coordinator) onFundingReorged(e mempool.FundingReorged) {
	swap, ok := c.swaps[e.HashH]
	if !ok {
		return
	}

	if e.BTCTxid == "" {
		// Watcher downgraded: asset leg never opened, safe to revert.
		swap.BTCTxid = ""
		swap.Status = StatusWaitingBTC
		swap.UpdatedAt = c.cfg.Clock.Now()
		return
	}

	// Asset leg already open: alert only, no automatic refund before
	// T_asset (§4.4, Open Question 2).
	swap.LastError = fmt.Errorf("coordinator: funding tx %s reorged out after asset leg opened", e.BTCTxid)
}

// --- retries & terminal-error classification -----------------------------

func (c *Coordinator) retryLoop(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt < c.cfg.MaxRetries; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if isTerminalError(lastErr) {
			return lastErr
		}

		delay := backoffDelay(attempt, c.cfg.RetryBaseDelay, c.cfg.RetryCapDelay)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return &PersistentExternalFailure{Op: op, Cause: lastErr, Tries: c.cfg.MaxRetries}
}

// isTerminalError reports whether err belongs to a class §7 says is
// never retried (Validation/Authorization/State/Cryptographic, surfaced
// by the ledger as a rejection reason) or is Internal (parse failure) -
// as opposed to ActuatorTimeout, which is ExternalFailure and always
// retried up to the budget.
func isTerminalError(err error) bool {
	var rejected *actuator.LedgerRejectedError
	if errors.As(err, &rejected) {
		return true
	}
	if errors.Is(err, actuator.ErrParseFailure) {
		return true
	}
	return false
}

// parkOrRecord classifies a retry-loop failure: Internal errors (parse
// failures) park the swap in StatusError for operator intervention;
// everything else just records LastError and leaves the swap where it
// was, relying on the deadline timer to eventually settle it (§4.6).
func (c *Coordinator) parkOrRecord(swap *PendingSwap, op string, err error) {
	swap.LastError = fmt.Errorf("%s: %w", op, err)
	swap.UpdatedAt = c.cfg.Clock.Now()

	if errors.Is(err, actuator.ErrParseFailure) {
		swap.Status = StatusError
		c.publishMetrics()
	}
	c.persist(swap)
}

// --- retirement -----------------------------------------------------------

func (c *Coordinator) retireSwap(swap *PendingSwap) {
	swap.retiredAt = c.cfg.Clock.Now()
	c.cancelTimer(swap.HashH)
	c.cfg.Observer.Forget(swap.HashH)
	c.publishMetrics()
}

func (c *Coordinator) sweepRetired() {
	now := c.cfg.Clock.Now()
	for hashH, swap := range c.swaps {
		if swap.Status.Terminal() && !swap.retiredAt.IsZero() &&
			now.Sub(swap.retiredAt) >= retentionAfterTerminal {
			delete(c.swaps, hashH)
		}
	}
	c.publishMetrics()
}

// persist fires an async snapshot write; storage is not load-bearing
// for correctness within a process's lifetime (the in-memory map is
// authoritative), only for recovering state across a restart, so a
// slow or failing write never blocks the actor loop.
func (c *Coordinator) persist(swap *PendingSwap) {
	if c.cfg.Store == nil {
		return
	}

	secretHex := ""
	if swap.SecretS != nil {
		secretHex = swap.SecretS.Hex()
	}
	lastErr := ""
	if swap.LastError != nil {
		lastErr = swap.LastError.Error()
	}

	rec := StoreRecord{
		HashH:           swap.HashH.Hex(),
		TokenID:         uint64(swap.TokenID),
		PriceSats:       swap.PriceSats,
		SellerBTCAddr:   swap.SellerBTCAddr,
		SellerAssetAddr: string(swap.SellerAssetAddr),
		BuyerAssetAddr:  string(swap.BuyerAssetAddr),
		DeadlineTAsset:  swap.DeadlineTAsset,
		BufferSeconds:   swap.BufferSeconds,
		Status:          string(swap.Status),
		BTCTxid:         swap.BTCTxid,
		RevealTxid:      swap.RevealTxid,
		SecretS:         secretHex,
		LastError:       lastErr,
		CreatedAt:       swap.CreatedAt.Unix(),
		UpdatedAt:       swap.UpdatedAt.Unix(),
	}

	store := c.cfg.Store
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		_ = store.Upsert(rec)
	}()
}

// ingestEvents forwards a batch of raw ledger events produced by one
// actuator call to the configured EventSink, if any. Called from the
// actor goroutine, so it must not block on the sink.
func (c *Coordinator) ingestEvents(txid string, events []escrow.Event) {
	if c.cfg.EventSink == nil || len(events) == 0 {
		return
	}
	c.cfg.EventSink.Ingest(txid, events)
}

func (c *Coordinator) publishMetrics() {
	counts := map[Status]int{}
	for _, s := range c.swaps {
		counts[s.Status]++
	}
	for _, st := range []Status{
		StatusWaitingBTC, StatusBTCLocked, StatusAssetLocked,
		StatusClaimed, StatusRefunded, StatusExpired, StatusError,
	} {
		metricSwapsByStatus.WithLabelValues(string(st)).Set(float64(counts[st]))
	}
}
