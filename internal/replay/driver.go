// Package replay implements the Replay Driver from spec §4.8: the
// single task that pulls points from a Loader, paces them against
// their source timestamps, runs them through the Track Store and Rule
// Engine, gates candidates through Cooldown, persists the outcome, and
// publishes to the Fan-out Bus. Grounded on the teacher's
// pipeline.DBWriter/AlertEvaluator Run(ctx) goroutine-with-select
// shape, collapsed into one sequential per-point loop because spec
// §5 requires strict per-point ordering rather than the teacher's
// fan-out-to-workers pipeline.
package replay

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/seawatch/trackwatch/internal/bus"
	"github.com/seawatch/trackwatch/internal/config"
	"github.com/seawatch/trackwatch/internal/cooldown"
	"github.com/seawatch/trackwatch/internal/domain"
	"github.com/seawatch/trackwatch/internal/errs"
	"github.com/seawatch/trackwatch/internal/loader"
	"github.com/seawatch/trackwatch/internal/logging"
	"github.com/seawatch/trackwatch/internal/metrics"
	"github.com/seawatch/trackwatch/internal/rules"
	"github.com/seawatch/trackwatch/internal/storage"
	"github.com/seawatch/trackwatch/internal/track"
)

// State is one of the four points in the driver's state machine.
type State string

const (
	StateIdle     State = "idle"
	StateStarting State = "starting"
	StateRunning  State = "running"
	StateStopping State = "stopping"
)

// Status is the snapshot returned by replay_status (spec §6).
type Status struct {
	Running        bool
	ProcessedCount int64
	LastTimestamp  time.Time
	StopRequested  bool
}

// Summary is the terminal report for one session: no observer needs
// per-point detail once the session ends, only the aggregate counts.
type Summary struct {
	Path              string
	Processed         int64
	AlertsAccepted    int64
	AlertsSuppressed  int64
	AlertsByRule      map[domain.RuleType]int64
	PersistenceErrors int64
	DetectionErrors   int64
	Started           time.Time
	Ended             time.Time
	TerminalError     error
}

// Driver runs at most one replay session at a time.
type Driver struct {
	cfg    *config.Config
	bus    *bus.Bus
	repo   *storage.Repository
	gate   *cooldown.Gate
	engine *rules.Engine

	mu            sync.Mutex
	state         State
	cancel        context.CancelFunc
	stopRequested bool
	lastTimestamp time.Time
	summary       Summary

	processed atomic.Int64
}

// New returns an idle Driver wired to its collaborators.
func New(cfg *config.Config, b *bus.Bus, repo *storage.Repository, gate *cooldown.Gate, engine *rules.Engine) *Driver {
	return &Driver{cfg: cfg, bus: b, repo: repo, gate: gate, engine: engine, state: StateIdle}
}

// Status returns the current session snapshot for replay_status.
func (d *Driver) Status() Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	return Status{
		Running:        d.state == StateRunning || d.state == StateStarting || d.state == StateStopping,
		ProcessedCount: d.processed.Load(),
		LastTimestamp:  d.lastTimestamp,
		StopRequested:  d.stopRequested,
	}
}

// LastSummary returns the most recently completed session's report.
func (d *Driver) LastSummary() Summary {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.summary
}

// Start transitions Idle→Starting, validates the source, and if
// successful hands off to Running on a background goroutine, per spec
// §4.8. A validation failure returns to Idle with no observable side
// effects.
func (d *Driver) Start(path string, speedup float64, useStreaming bool, batchSize int) error {
	d.mu.Lock()
	if d.state != StateIdle {
		d.mu.Unlock()
		return errs.StateError("start rejected: session already %s", d.state)
	}
	if speedup < 0.1 {
		d.mu.Unlock()
		return errs.ConfigError("speedup must be >= 0.1, got %v", speedup)
	}
	if batchSize < 1 || batchSize > 10000 {
		d.mu.Unlock()
		return errs.ConfigError("batch_size must be in [1, 10000], got %d", batchSize)
	}
	d.state = StateStarting
	d.mu.Unlock()

	l, err := loader.Open(path)
	if err != nil {
		d.mu.Lock()
		d.state = StateIdle
		d.mu.Unlock()
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	sessionID := logging.NewSessionID()
	ctx = logging.ContextWithSessionID(ctx, sessionID)

	d.mu.Lock()
	d.cancel = cancel
	d.stopRequested = false
	d.processed.Store(0)
	d.lastTimestamp = time.Time{}
	d.summary = Summary{Path: path, Started: time.Now(), AlertsByRule: make(map[domain.RuleType]int64)}
	d.state = StateRunning
	d.mu.Unlock()

	metrics.ReplaySessionsStarted.Inc()
	logging.Ctx(ctx).Info().Str("path", path).Float64("speedup", speedup).Msg("replay session starting")

	go d.run(ctx, l, sessionID, speedup, useStreaming, batchSize)
	return nil
}

// Stop requests a cooperative transition to Stopping. It is
// idempotent: calling it while Idle, or repeatedly while already
// stopping, has no additional effect.
func (d *Driver) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state == StateIdle {
		return
	}
	d.stopRequested = true
	d.state = StateStopping
	if d.cancel != nil {
		d.cancel()
	}
}

func (d *Driver) run(ctx context.Context, l *loader.Loader, sessionID string, speedup float64, useStreaming bool, batchSize int) {
	log := logging.Ctx(ctx)
	store := track.New(d.cfg.TrackWindowSize)
	summary := Summary{Path: d.summary.Path, Started: d.summary.Started, AlertsByRule: make(map[domain.RuleType]int64)}

	defer func() {
		l.Close()
		summary.Ended = time.Now()
		d.mu.Lock()
		d.summary = summary
		d.state = StateIdle
		d.cancel = nil
		d.mu.Unlock()

		metrics.ReplayDuration.Observe(summary.Ended.Sub(summary.Started).Seconds())
		log.Info().
			Int64("processed", summary.Processed).
			Int64("alerts_accepted", summary.AlertsAccepted).
			Int64("alerts_suppressed", summary.AlertsSuppressed).
			Int64("persistence_errors", summary.PersistenceErrors).
			Msg("replay session ended")

		d.publishSummary(sessionID, summary)
	}()

	var pacer pacer
	shouldStream := useStreaming || loader.ShouldStream(summary.Path, d.cfg.StreamingThresholdMB)

	if !shouldStream {
		points, err := l.LoadAll()
		if err != nil {
			d.publishTerminalError(sessionID, err)
			summary.TerminalError = err
			return
		}
		for i := range points {
			if d.checkStop(ctx) {
				return
			}
			d.processPoint(ctx, store, &pacer, points[i], speedup, &summary)
			d.maybeTick(sessionID, summary.Processed)
		}
		d.publishTick(sessionID, summary.Processed)
		return
	}

	chunkSize := d.cfg.ChunkSize
	if batchSize > 0 && batchSize < chunkSize {
		chunkSize = batchSize
	}
	chunks, errCh := l.StreamChunks(ctx, chunkSize)
	for chunk := range chunks {
		if d.checkStop(ctx) {
			return
		}
		for i := range chunk {
			if d.checkStop(ctx) {
				return
			}
			d.processPoint(ctx, store, &pacer, chunk[i], speedup, &summary)
			d.maybeTick(sessionID, summary.Processed)
		}
	}
	select {
	case err := <-errCh:
		if err != nil {
			d.publishTerminalError(sessionID, err)
			summary.TerminalError = err
			return
		}
	default:
	}
	d.publishTick(sessionID, summary.Processed)
}

func (d *Driver) checkStop(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	default:
	}
	d.mu.Lock()
	stopping := d.stopRequested
	d.mu.Unlock()
	return stopping
}

// pacer tracks the first point's (source timestamp, wall clock) pair
// so every later point's sleep is computed relative to that anchor,
// per spec §4.8.
type pacer struct {
	referenceSource time.Time
	referenceWall   time.Time
	set             bool
}

func (p *pacer) delay(pointTime time.Time, speedup float64) time.Duration {
	if !p.set {
		p.referenceSource = pointTime
		p.referenceWall = time.Now()
		p.set = true
		return 0
	}
	if speedup <= 0 {
		return 0
	}
	sourceElapsed := pointTime.Sub(p.referenceSource)
	pacedElapsed := time.Duration(float64(sourceElapsed) / speedup)
	wallElapsed := time.Since(p.referenceWall)
	return pacedElapsed - wallElapsed
}

// cancellableSleep waits for d, honoring ctx cancellation, via a
// one-shot rate.Limiter rather than a raw timer: limiter.Wait already
// composes correctly with context cancellation, so the pacer doesn't
// need its own select/timer bookkeeping.
func cancellableSleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	lim := rate.NewLimiter(rate.Every(d), 1)
	lim.Allow() // consume the initial burst token so Wait blocks for d, not 0
	return lim.Wait(ctx)
}

func (d *Driver) processPoint(ctx context.Context, store *track.Store, p *pacer, point domain.AisPoint, speedup float64, summary *Summary) {
	delay := p.delay(point.Timestamp, speedup)
	if err := cancellableSleep(ctx, delay); err != nil {
		return
	}

	// Push before reading Previous: the ring's second-to-last entry is
	// only the true predecessor of point once point itself is the last
	// entry, matching track.Store.Previous's documented contract.
	store.Push(point)
	prev, hasPrev := store.Previous(point.VesselID)
	candidates, failed := d.engine.Evaluate(prev, hasPrev, point)
	for _, rt := range failed {
		summary.DetectionErrors++
		metrics.DetectionFailures.WithLabelValues(string(rt)).Inc()
		logging.Ctx(ctx).Warn().Str("vessel", point.VesselID).Str("rule", string(rt)).Msg("rule evaluator panicked, skipping")
	}
	for _, c := range candidates {
		metrics.CandidatesByRule.WithLabelValues(string(c.Type)).Inc()
	}

	var accepted []domain.Candidate
	for _, c := range candidates {
		ok, err := d.gate.Allow(ctx, point.VesselID, c.Type, point.Timestamp)
		if err != nil {
			logging.Ctx(ctx).Warn().Err(err).Str("vessel", point.VesselID).Msg("cooldown check failed, suppressing candidate")
			continue
		}
		if !ok {
			summary.AlertsSuppressed++
			metrics.AlertsSuppressed.WithLabelValues(string(c.Type)).Inc()
			continue
		}
		accepted = append(accepted, c)
	}

	persistedAlerts, err := d.repo.PersistPoint(ctx, point, accepted)
	if err != nil {
		summary.PersistenceErrors++
		metrics.PersistenceFailures.Inc()
		logging.Ctx(ctx).Warn().Err(err).Str("vessel", point.VesselID).Msg("point persistence failed, continuing")
	} else {
		summary.AlertsAccepted += int64(len(persistedAlerts))
		for i := range persistedAlerts {
			metrics.AlertsAccepted.WithLabelValues(string(persistedAlerts[i].Type)).Inc()
			summary.AlertsByRule[persistedAlerts[i].Type]++
			d.publishAlert(logging.SessionIDFromContext(ctx), persistedAlerts[i])
		}
	}

	metrics.PointsProcessed.Inc()
	summary.Processed++
	d.processed.Add(1)
	d.mu.Lock()
	d.lastTimestamp = point.Timestamp
	d.mu.Unlock()
}

func (d *Driver) maybeTick(sessionID string, processed int64) {
	if processed%100 == 0 {
		d.publishTick(sessionID, processed)
	}
}

func (d *Driver) publishTick(sessionID string, processed int64) {
	d.bus.Publish(bus.Message{
		Kind:      bus.KindTick,
		SessionID: sessionID,
		Tick:      &bus.TickPayload{PointsProcessed: processed},
		EmittedAt: time.Now(),
	})
}

func (d *Driver) publishAlert(sessionID string, alert domain.Alert) {
	d.bus.Publish(bus.Message{Kind: bus.KindAlert, SessionID: sessionID, Alert: &alert, EmittedAt: time.Now()})
}

func (d *Driver) publishTerminalError(sessionID string, err error) {
	d.bus.Publish(bus.Message{Kind: bus.KindError, SessionID: sessionID, Err: err, EmittedAt: time.Now()})
}

// publishSummary emits the session's terminal counts as the final Bus
// message, per spec §4.8.
func (d *Driver) publishSummary(sessionID string, s Summary) {
	var terminalErr string
	if s.TerminalError != nil {
		terminalErr = s.TerminalError.Error()
	}
	d.bus.Publish(bus.Message{
		Kind:      bus.KindSummary,
		SessionID: sessionID,
		Summary: &bus.SummaryPayload{
			Path:              s.Path,
			Processed:         s.Processed,
			AlertsAccepted:    s.AlertsAccepted,
			AlertsSuppressed:  s.AlertsSuppressed,
			AlertsByRule:      s.AlertsByRule,
			PersistenceErrors: s.PersistenceErrors,
			DetectionErrors:   s.DetectionErrors,
			Started:           s.Started,
			Ended:             s.Ended,
			TerminalError:     terminalErr,
		},
		EmittedAt: time.Now(),
	})
}
