package ingest

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"alert-integrator/internal/alerts"
	"alert-integrator/internal/zabbix"
)

// ProblemSource is the upstream side of a cycle.
type ProblemSource interface {
	Problems(ctx context.Context) ([]zabbix.Problem, error)
	Configured() bool
}

// Reconciler is the storage side of a cycle.
type Reconciler interface {
	Reconcile(ctx context.Context, records []alerts.EventRecord) (alerts.ReconcileOutcome, error)
}

type Options struct {
	// Interval between timer-driven cycles. Default 20s.
	Interval time.Duration
	// StoreTimeout bounds the reconciliation write of one cycle. Default 30s.
	StoreTimeout time.Duration
	Logger       *slog.Logger
}

// CycleReport describes one fetch-normalize-upsert run.
type CycleReport struct {
	Trigger    string                  `json:"trigger"`
	StartedAt  time.Time               `json:"started_at"`
	FinishedAt time.Time               `json:"finished_at"`
	Fetched    int                     `json:"fetched"`
	Outcome    alerts.ReconcileOutcome `json:"outcome"`
	Error      string                  `json:"error,omitempty"`

	// Skipped is set when another cycle was in flight; nothing ran.
	Skipped bool `json:"skipped"`

	Err error `json:"-"`
}

// Status is a point-in-time view of the poller.
type Status struct {
	Enabled  bool          `json:"enabled"`
	Running  bool          `json:"running"`
	Interval time.Duration `json:"interval_ns"`
	Last     *CycleReport  `json:"last,omitempty"`
}

const (
	triggerTimer  = "timer"
	triggerManual = "manual"
)

// Poller drives ingestion cycles on a fixed interval.
//
// At most one cycle runs at a time in this process. The guard is a single
// atomic flag acquired at cycle start and released on every exit path; ticks
// and manual triggers that find it taken are dropped, never queued.
//
// The guard is process-local. Two processes polling the same upstream can both
// write; the upsert keyed by event id keeps that safe, not mutual exclusion.
type Poller struct {
	source     ProblemSource
	normalizer *Normalizer
	store      Reconciler
	log        *slog.Logger

	interval     time.Duration
	storeTimeout time.Duration

	running atomic.Bool

	mu     sync.Mutex
	last   *CycleReport
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewPoller(source ProblemSource, normalizer *Normalizer, store Reconciler, opts Options) *Poller {
	if opts.Interval <= 0 {
		opts.Interval = 20 * time.Second
	}
	if opts.StoreTimeout <= 0 {
		opts.StoreTimeout = 30 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Poller{
		source:       source,
		normalizer:   normalizer,
		store:        store,
		log:          opts.Logger.With("component", "ingest"),
		interval:     opts.Interval,
		storeTimeout: opts.StoreTimeout,
	}
}

// Enabled reports whether the upstream credential is configured.
func (p *Poller) Enabled() bool {
	return p.source != nil && p.source.Configured()
}

// Start runs one cycle immediately, then one per interval, until ctx is done
// or Stop is called. Without upstream credentials it logs once and returns
// zabbix.ErrMissingCredential without starting anything.
func (p *Poller) Start(ctx context.Context) error {
	if !p.Enabled() {
		p.log.Warn("ingestion disabled: zabbix api url or token not configured")
		return zabbix.ErrMissingCredential
	}

	p.mu.Lock()
	if p.cancel != nil {
		p.mu.Unlock()
		return errors.New("ingest: poller already started")
	}
	loopCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.mu.Unlock()

	p.log.Info("ingestion started", "interval", p.interval.String())

	p.wg.Add(1)
	go p.loop(loopCtx)
	return nil
}

// Stop cancels the loop and any in-flight cycle and waits for them to exit.
func (p *Poller) Stop() {
	p.mu.Lock()
	cancel := p.cancel
	p.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	p.wg.Wait()
	p.log.Info("ingestion stopped")
}

func (p *Poller) loop(ctx context.Context) {
	defer p.wg.Done()

	// Cold start: warm the backlog without waiting a full interval.
	p.spawn(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.spawn(ctx)
		}
	}
}

// spawn runs a timer cycle off the loop goroutine so the ticker keeps being
// drained; a tick that lands during a cycle hits the guard and is dropped.
func (p *Poller) spawn(ctx context.Context) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.tick(ctx)
	}()
}

func (p *Poller) tick(ctx context.Context) {
	if !p.running.CompareAndSwap(false, true) {
		p.log.Debug("cycle already in flight, tick dropped")
		return
	}
	defer p.running.Store(false)
	p.cycle(ctx, triggerTimer)
}

// Trigger runs one synchronous cycle on behalf of a caller.
//
// If a cycle is already in flight it returns at once with Skipped set and no
// error. A failing cycle is reported in CycleReport.Err, not returned.
// The only error is zabbix.ErrMissingCredential when ingestion is disabled.
func (p *Poller) Trigger(ctx context.Context) (CycleReport, error) {
	if !p.Enabled() {
		return CycleReport{}, zabbix.ErrMissingCredential
	}
	if !p.running.CompareAndSwap(false, true) {
		return CycleReport{Trigger: triggerManual, Skipped: true}, nil
	}
	defer p.running.Store(false)
	return p.cycle(ctx, triggerManual), nil
}

// Status returns the last completed cycle and whether one is running.
func (p *Poller) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	st := Status{
		Enabled:  p.Enabled(),
		Running:  p.running.Load(),
		Interval: p.interval,
	}
	if p.last != nil {
		last := *p.last
		st.Last = &last
	}
	return st
}

// cycle must only run while holding the guard. Failures end the cycle and are
// logged; whatever Reconcile committed stays committed.
func (p *Poller) cycle(ctx context.Context, trigger string) CycleReport {
	rep := CycleReport{Trigger: trigger, StartedAt: time.Now().UTC()}
	log := p.log.With("trigger", trigger)

	defer func() {
		rep.FinishedAt = time.Now().UTC()
		if rep.Err != nil {
			rep.Error = rep.Err.Error()
		}
		p.mu.Lock()
		last := rep
		p.last = &last
		p.mu.Unlock()
	}()

	problems, err := p.source.Problems(ctx)
	if err != nil {
		rep.Err = err
		log.Error("zabbix fetch failed", "kind", errorKind(err), "err", err)
		return rep
	}
	rep.Fetched = len(problems)
	if len(problems) == 0 {
		log.Info("no active problems upstream")
		return rep
	}

	records := p.normalizer.NormalizeAll(problems)

	storeCtx, cancel := context.WithTimeout(ctx, p.storeTimeout)
	defer cancel()
	out, err := p.store.Reconcile(storeCtx, records)
	if err != nil {
		rep.Err = err
		log.Error("reconciliation failed", "kind", errorKind(err), "err", err, "records", len(records))
		return rep
	}
	rep.Outcome = out

	attrs := []any{
		"fetched", rep.Fetched,
		"inserted", out.Inserted,
		"updated", out.Updated,
		"unchanged", out.Unchanged,
		"duration_ms", float64(time.Since(rep.StartedAt).Milliseconds()),
	}
	if out.Skipped > 0 {
		attrs = append(attrs, "skipped", out.Skipped)
		log.Warn("problems without event id skipped", attrs...)
		return rep
	}
	if out.Inserted+out.Updated == 0 {
		log.Debug("problems unchanged", attrs...)
		return rep
	}
	log.Info("problems reconciled", attrs...)
	return rep
}

func errorKind(err error) string {
	var apiErr *zabbix.APIError
	var tErr *zabbix.TransportError
	switch {
	case errors.Is(err, zabbix.ErrMissingCredential):
		return "missing_credential"
	case errors.As(err, &apiErr):
		return "upstream_error"
	case errors.As(err, &tErr), errors.Is(err, context.DeadlineExceeded):
		return "transport_error"
	case errors.Is(err, alerts.ErrStoreUnavailable):
		return "store_unavailable"
	default:
		return "unknown"
	}
}
