// Package revshare is the revenue distribution and claims engine. It splits
// incoming revenue between an agent, its receipt chain of ancestors and the
// treasury, splits deployment fees across a bundle's contributors, and keeps
// the pull-based claims ledger those splits credit.
//
// Every mutating Engine method that stays inside the store runs as one
// transaction: it applies completely or not at all, and its events reach the
// Publisher only after the commit. Calls that move funds through a
// collaborator (claims and token pulls) never hold a transaction open across
// the transfer. They commit their ledger effect on one side of it and undo
// it in a compensating transaction when the transfer is known to have
// failed.
//
// While a transfer is in flight the engine rejects every other mutating
// call with ErrReentrantCall instead of waiting for it.
package revshare

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bitfsorg/libreceipt-go/account"
	"github.com/bitfsorg/libreceipt-go/eventlog"
	"github.com/bitfsorg/libreceipt-go/lineage"
	"github.com/bitfsorg/libreceipt-go/metrics"
	"github.com/bitfsorg/libreceipt-go/payout"
	"github.com/bitfsorg/libreceipt-go/store"
)

// AgentDirectory reports whether an address is a registered, active agent.
type AgentDirectory interface {
	IsActiveAgent(ctx context.Context, agent account.Address) (bool, error)
}

// BundleSource returns a bundle's creator, status and contributor weights.
// A missing bundle is reported as (nil, nil).
type BundleSource interface {
	Bundle(ctx context.Context, bundleID uint64) (*Bundle, error)
}

// BundleMap is a fixed BundleSource keyed by bundle ID.
type BundleMap map[uint64]Bundle

// Bundle implements BundleSource.
func (m BundleMap) Bundle(_ context.Context, id uint64) (*Bundle, error) {
	b, ok := m[id]
	if !ok {
		return nil, nil
	}
	return &b, nil
}

// PaymentSource reports the native value an incoming transaction paid into
// the engine's custody. *payout.WalletReceipts satisfies it.
type PaymentSource interface {
	Received(ctx context.Context, txid string) (uint64, error)
}

// Engine is the distribution engine over a store.
type Engine struct {
	st        store.Store
	logger    *zap.Logger
	metrics   *metrics.Metrics
	publisher eventlog.Publisher
	agents    AgentDirectory
	bundles   BundleSource
	parents   lineage.ParentSource
	native    payout.Transferer
	token     payout.TokenTransferer
	custody   account.Address
	payments  PaymentSource
	now       func() time.Time
	callID    func() string

	// external is set while a transfer collaborator runs.
	external atomic.Bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithPublisher sets where committed events are delivered.
func WithPublisher(p eventlog.Publisher) Option {
	return func(e *Engine) { e.publisher = p }
}

// WithAgentDirectory enables the active-agent check on distributions.
func WithAgentDirectory(d AgentDirectory) Option {
	return func(e *Engine) { e.agents = d }
}

// WithBundleSource sets the contributor-weight collaborator used for
// deployment fees.
func WithBundleSource(b BundleSource) Option {
	return func(e *Engine) { e.bundles = b }
}

// WithParentSource replaces the store-backed spawn forest with an external
// parent lookup.
func WithParentSource(p lineage.ParentSource) Option {
	return func(e *Engine) { e.parents = p }
}

// WithNativeTransferer sets the native payout collaborator used by ClaimNative.
func WithNativeTransferer(t payout.Transferer) Option {
	return func(e *Engine) { e.native = t }
}

// WithTokenTransferer sets the token collaborator and the custody address
// token revenue is pulled into.
func WithTokenTransferer(t payout.TokenTransferer, custody account.Address) Option {
	return func(e *Engine) {
		e.token = t
		e.custody = custody
	}
}

// WithPaymentSource sets how incoming native payments are verified. Without
// one, native revenue and native deployment fees are rejected.
func WithPaymentSource(p PaymentSource) Option {
	return func(e *Engine) { e.payments = p }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithCallIDs overrides the call-ID generator.
func WithCallIDs(gen func() string) Option {
	return func(e *Engine) { e.callID = gen }
}

// New creates an Engine over st. The store must be initialized with Init
// before any other call succeeds.
func New(st store.Store, opts ...Option) *Engine {
	e := &Engine{
		st:     st,
		logger: zap.NewNop(),
		now:    time.Now,
		callID: func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = zap.NewNop()
	}
	return e
}

// Init writes the genesis parameters. It fails if the store is already
// initialized.
func (e *Engine) Init(ctx context.Context, p Params) error {
	return e.update(ctx, "init", func(c *call) error {
		if c.tx.Get(bucketParams, keyParams) != nil {
			return ErrAlreadyInitialized
		}
		if err := saveParams(c.tx, p); err != nil {
			return err
		}
		return c.emit(eventlog.KindParamsChanged, eventlog.ParamsChanged{Field: "init", Value: p.Admin.String()})
	})
}

// --- reentrancy guard ---

type guardKey struct{}

// enter marks ctx as being inside a guarded call. A context that already
// carries the mark is rejected, and so is any call made while a transfer is
// in flight, whatever context it carries.
func (e *Engine) enter(ctx context.Context) (context.Context, error) {
	if ctx.Value(guardKey{}) != nil || e.external.Load() {
		return ctx, ErrReentrantCall
	}
	return context.WithValue(ctx, guardKey{}, struct{}{}), nil
}

// enterExternal is enter for a call that transfers funds. The engine stays
// claimed until release is called.
func (e *Engine) enterExternal(ctx context.Context) (context.Context, func(), error) {
	if ctx.Value(guardKey{}) != nil {
		return ctx, nil, ErrReentrantCall
	}
	if !e.external.CompareAndSwap(false, true) {
		return ctx, nil, ErrReentrantCall
	}
	return context.WithValue(ctx, guardKey{}, struct{}{}), func() { e.external.Store(false) }, nil
}

// --- call plumbing ---

// call is the state of one mutating engine call. A call that transfers
// funds spans several store transactions under one ID.
type call struct {
	ctx    context.Context
	tx     store.Tx
	id     string
	at     time.Time
	params Params
	events []eventlog.Event
}

func (c *call) emit(kind eventlog.Kind, payload any) error {
	ev, err := eventlog.Emit(c.tx, c.id, c.at, kind, payload)
	if err != nil {
		return err
	}
	c.events = append(c.events, ev)
	return nil
}

func (e *Engine) newCall(ctx context.Context) *call {
	return &call{ctx: ctx, id: e.callID(), at: e.now()}
}

// update runs fn as one guarded write transaction and publishes its events
// after commit.
func (e *Engine) update(ctx context.Context, op string, fn func(c *call) error) error {
	inner, err := e.enter(ctx)
	if err != nil {
		e.metrics.Failed(op)
		return err
	}
	if err := e.commit(e.newCall(inner), op, fn); err != nil {
		e.metrics.Failed(op)
		return err
	}
	return nil
}

// commit runs fn in one write transaction for c and publishes the events it
// emitted once the transaction commits.
func (e *Engine) commit(c *call, op string, fn func(c *call) error) error {
	err := e.st.Update(func(tx store.Tx) error {
		c.tx = tx
		c.events = c.events[:0]
		return fn(c)
	})
	c.tx = nil
	if err != nil {
		e.logger.Debug("call rolled back",
			zap.String("op", op), zap.String("call_id", c.id), zap.Error(err))
		return err
	}
	e.publish(c.ctx, c.events)
	c.events = nil
	return nil
}

// loadLive loads params for a distribution or claim: the engine must be
// initialized and not paused.
func (c *call) loadLive() error {
	p, err := loadParams(c.tx)
	if err != nil {
		return err
	}
	if p.Paused {
		return ErrEnforcedPause
	}
	c.params = p
	return nil
}

func (e *Engine) publish(ctx context.Context, events []eventlog.Event) {
	if len(events) == 0 {
		return
	}
	for _, ev := range events {
		e.metrics.Published(string(ev.Kind))
	}
	if e.publisher == nil {
		return
	}
	if err := e.publisher.Publish(ctx, events); err != nil {
		e.logger.Warn("event delivery failed; outbox retains events",
			zap.Uint64("first_seq", events[0].Seq),
			zap.Int("count", len(events)),
			zap.Error(err))
	}
}

func (e *Engine) view(fn func(tx store.Tx) error) error {
	return e.st.View(fn)
}

// resolver returns the receipt-chain resolver for a call inside tx.
func (e *Engine) resolver(tx store.Tx) *lineage.Resolver {
	src := e.parents
	if src == nil {
		src = lineage.TxSource(tx)
	}
	return lineage.NewResolver(src, e.logger)
}

func transferErr(what string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrTransferFailed, what, err)
}
