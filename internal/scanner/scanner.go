package scanner

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"swing-signal-bot/internal/feed"
	"swing-signal-bot/internal/market"
	"swing-signal-bot/internal/notify"
	"swing-signal-bot/internal/signal"
)

// Scanner orchestrates the candle intake, per-symbol evaluation and signal
// delivery. Candle updates flow into the store on arrival; closed candles
// on the fast timeframe queue their symbol for evaluation through a fixed
// worker pool. Evaluations of the same symbol are serialized.
type Scanner struct {
	cfg       Config
	store     *market.Store
	stream    feed.Stream
	backfill  feed.Backfiller
	outcomes  feed.OutcomeSource
	evaluator *Evaluator
	tracker   *signal.Tracker
	notifier  *notify.Manager
	logger    zerolog.Logger

	evalChan chan string
	resub    chan struct{}
	stopChan chan struct{}
	wg       sync.WaitGroup

	mu         sync.RWMutex
	symbols    map[string]bool
	symbolLock map[string]*sync.Mutex
	lastByID   map[string]Decision
}

// NewScanner assembles the orchestrator.
func NewScanner(
	cfg Config,
	store *market.Store,
	stream feed.Stream,
	backfill feed.Backfiller,
	outcomes feed.OutcomeSource,
	evaluator *Evaluator,
	tracker *signal.Tracker,
	notifier *notify.Manager,
	logger zerolog.Logger,
) *Scanner {
	if cfg.Workers <= 0 {
		cfg.Workers = 5
	}
	symbols := make(map[string]bool, len(cfg.Symbols))
	locks := make(map[string]*sync.Mutex, len(cfg.Symbols))
	for _, s := range cfg.Symbols {
		symbols[s] = true
		locks[s] = &sync.Mutex{}
	}
	return &Scanner{
		cfg:        cfg,
		store:      store,
		stream:     stream,
		backfill:   backfill,
		outcomes:   outcomes,
		evaluator:  evaluator,
		tracker:    tracker,
		notifier:   notifier,
		logger:     logger.With().Str("component", "scanner").Logger(),
		evalChan:   make(chan string, 64),
		resub:      make(chan struct{}, 1),
		stopChan:   make(chan struct{}),
		symbols:    symbols,
		symbolLock: locks,
		lastByID:   make(map[string]Decision),
	}
}

// Run warms up the candle store, starts the evaluation workers and blocks
// on the live stream until ctx is cancelled.
func (sc *Scanner) Run(ctx context.Context) error {
	sc.warmup(ctx)

	for i := 0; i < sc.cfg.Workers; i++ {
		sc.wg.Add(1)
		go sc.worker(ctx)
	}

	if sc.outcomes != nil {
		sc.wg.Add(1)
		go sc.outcomeLoop(ctx)
	}

	err := sc.streamLoop(ctx)

	close(sc.stopChan)
	sc.wg.Wait()
	return err
}

// streamLoop subscribes to the live stream for the current universe. A
// universe change cancels the subscription and re-dials with the updated
// symbol list; only parent cancellation exits the loop.
func (sc *Scanner) streamLoop(ctx context.Context) error {
	timeframes := []string{sc.cfg.SlowTimeframe, sc.cfg.AnchorTimeframe, sc.cfg.FastTimeframe}

	for {
		subCtx, cancel := context.WithCancel(ctx)
		done := make(chan struct{})
		go func() {
			select {
			case <-sc.resub:
				cancel()
			case <-done:
			}
		}()

		err := sc.stream.Subscribe(subCtx, sc.symbolList(), timeframes, sc.onEvent)
		cancel()
		close(done)

		if ctx.Err() != nil {
			return err
		}
		if err != nil && subCtx.Err() == nil {
			return err
		}
		sc.logger.Info().Int("symbols", len(sc.symbolList())).Msg("resubscribing stream")
	}
}

// warmup backfills closed candles for every symbol and timeframe. A symbol
// whose backfill fails is dropped from the universe rather than evaluated
// on partial history.
func (sc *Scanner) warmup(ctx context.Context) {
	for _, symbol := range sc.symbolList() {
		if !sc.warmupSymbol(ctx, symbol) {
			sc.RemoveSymbol(symbol)
		}
	}
	sc.logger.Info().Int("symbols", len(sc.symbolList())).Msg("warmup complete")
}

func (sc *Scanner) warmupSymbol(ctx context.Context, symbol string) bool {
	for _, tf := range []string{sc.cfg.SlowTimeframe, sc.cfg.AnchorTimeframe, sc.cfg.FastTimeframe} {
		candles, err := sc.backfill.Backfill(ctx, symbol, tf, sc.cfg.WarmupCandles)
		if err != nil {
			sc.logger.Error().Err(err).
				Str("symbol", symbol).
				Str("timeframe", tf).
				Msg("warmup backfill failed")
			return false
		}
		for _, c := range candles {
			sc.store.Apply(c)
		}
	}
	return true
}

// onEvent ingests a candle update. Closed fast-timeframe candles queue an
// evaluation; every closed candle drives open-signal resolution.
func (sc *Scanner) onEvent(ev feed.Event) {
	c := ev.Candle
	if !sc.tracksSymbol(c.Symbol) {
		return
	}

	sc.store.Apply(c)

	if !c.Closed {
		return
	}

	sc.tracker.CheckPrice(context.Background(), c.Symbol, c.High, c.Low)

	if c.Timeframe != sc.cfg.FastTimeframe {
		return
	}

	select {
	case sc.evalChan <- c.Symbol:
	default:
		sc.logger.Warn().Str("symbol", c.Symbol).Msg("evaluation queue full, dropping")
	}
}

func (sc *Scanner) worker(ctx context.Context) {
	defer sc.wg.Done()

	for {
		select {
		case symbol := <-sc.evalChan:
			sc.evaluate(ctx, symbol)
		case <-ctx.Done():
			return
		case <-sc.stopChan:
			return
		}
	}
}

// evaluate runs the decision chain for one symbol under its lock and
// delivers any emitted signal.
func (sc *Scanner) evaluate(ctx context.Context, symbol string) {
	lock := sc.lockFor(symbol)
	if lock == nil {
		return
	}
	lock.Lock()
	defer lock.Unlock()

	dec, sig := sc.evaluator.Evaluate(ctx, symbol)

	sc.mu.Lock()
	sc.lastByID[symbol] = dec
	sc.mu.Unlock()

	if sig != nil {
		sc.notifier.SendSignal(ctx, *sig)
	}
}

// outcomeLoop feeds external trade outcomes into the tracker.
func (sc *Scanner) outcomeLoop(ctx context.Context) {
	defer sc.wg.Done()

	err := sc.outcomes.Outcomes(ctx, func(ev feed.OutcomeEvent) {
		if err := sc.tracker.Resolve(ctx, ev.SignalID, ev.Outcome); err != nil {
			sc.logger.Warn().Err(err).
				Str("signal_id", ev.SignalID).
				Str("outcome", string(ev.Outcome)).
				Msg("outcome ignored")
		}
	})
	if err != nil && ctx.Err() == nil {
		sc.logger.Error().Err(err).Msg("outcome source stopped")
	}
}

// AddSymbol admits a symbol into the scan universe.
func (sc *Scanner) AddSymbol(symbol string) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if !sc.symbols[symbol] {
		sc.symbols[symbol] = true
		sc.symbolLock[symbol] = &sync.Mutex{}
	}
}

// RemoveSymbol retires a symbol. In-flight evaluations finish; the candle
// history is dropped so a readmitted symbol warms up from scratch.
func (sc *Scanner) RemoveSymbol(symbol string) {
	sc.mu.Lock()
	lock := sc.symbolLock[symbol]
	delete(sc.symbols, symbol)
	delete(sc.symbolLock, symbol)
	sc.mu.Unlock()

	if lock != nil {
		// Wait out any evaluation running under this lock.
		lock.Lock()
		lock.Unlock()
	}
	sc.store.Drop(symbol)
}

// SetUniverse swaps the scan universe to the given symbol set. Retired
// symbols drain their in-flight evaluations and drop their history; new
// symbols are backfilled before admission so they never evaluate on partial
// data. Any change re-dials the stream subscription.
func (sc *Scanner) SetUniverse(ctx context.Context, symbols []string) {
	want := make(map[string]bool, len(symbols))
	for _, s := range symbols {
		want[s] = true
	}

	changed := false
	for _, s := range sc.symbolList() {
		if !want[s] {
			sc.RemoveSymbol(s)
			changed = true
		}
	}
	for s := range want {
		if sc.tracksSymbol(s) {
			continue
		}
		if !sc.warmupSymbol(ctx, s) {
			continue
		}
		sc.AddSymbol(s)
		changed = true
	}

	if changed {
		select {
		case sc.resub <- struct{}{}:
		default:
		}
		sc.logger.Info().Int("symbols", len(sc.symbolList())).Msg("universe updated")
	}
}

// LastDecision returns the most recent evaluation decision for a symbol.
func (sc *Scanner) LastDecision(symbol string) (Decision, bool) {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	dec, ok := sc.lastByID[symbol]
	return dec, ok
}

func (sc *Scanner) tracksSymbol(symbol string) bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.symbols[symbol]
}

func (sc *Scanner) lockFor(symbol string) *sync.Mutex {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.symbolLock[symbol]
}

func (sc *Scanner) symbolList() []string {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	out := make([]string, 0, len(sc.symbols))
	for s := range sc.symbols {
		out = append(out, s)
	}
	return out
}
