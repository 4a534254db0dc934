// Package companion implements the owning engine for all mutable
// companion state. The background monitor and the synchronous message
// path both funnel through the engine's single lock; nothing else holds a
// reference to the mutable internals.
package companion

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/solivara/vigil/api/schemas"
	"github.com/solivara/vigil/internal/alerts"
	"github.com/solivara/vigil/internal/config"
	"github.com/solivara/vigil/internal/layers"
	"github.com/solivara/vigil/internal/mission"
	"github.com/solivara/vigil/internal/monitor"
	"github.com/solivara/vigil/internal/stress"
)

// Version tag written into persisted operator records.
const Version = "2.1"

const emissionBuffer = 16

const archiveTimeout = 30 * time.Second

// Engine is the single owner of the shared mutable region: layer state,
// stress level, the interaction log, and the mission record. It
// implements schemas.Companion.
type Engine struct {
	cfg    config.Interface
	logger *zap.Logger

	mu           sync.Mutex
	rng          *rand.Rand
	now          func() time.Time
	registry     *layers.Registry
	interactions *stress.Log
	estimator    *stress.Estimator
	machine      *mission.Machine
	deduper      *alerts.Deduper

	operator *schemas.OperatorProfile
	memories map[string]string

	level           schemas.StressLevel
	lastInteraction time.Time

	snapshots schemas.SnapshotStore
	archive   schemas.MissionArchive

	mon            *monitor.Monitor
	checkinLimiter *rate.Limiter

	emissions chan schemas.Emission
	closeOnce sync.Once
}

// Option configures an Engine.
type Option func(*Engine)

// WithRand injects a seedable random source so tests can assert exact
// outcomes. Production uses a time-seeded source.
func WithRand(rng *rand.Rand) Option {
	return func(e *Engine) { e.rng = rng }
}

// WithClock injects the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithArchive attaches the optional Postgres mission archive.
func WithArchive(archive schemas.MissionArchive) Option {
	return func(e *Engine) { e.archive = archive }
}

// New assembles an engine. The snapshot store is required; a failed load
// from it is non-fatal and falls back to defaults.
func New(cfg config.Interface, logger *zap.Logger, snapshots schemas.SnapshotStore, opts ...Option) (*Engine, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	if snapshots == nil {
		return nil, fmt.Errorf("snapshot store cannot be nil")
	}

	e := &Engine{
		cfg:       cfg,
		logger:    logger.Named("companion"),
		now:       time.Now,
		snapshots: snapshots,
		level:     schemas.StressLow,
		emissions: make(chan schemas.Emission, emissionBuffer),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.rng == nil {
		e.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	e.registry = layers.NewRegistry(e.rng, e.logger)
	e.interactions = stress.NewLog()
	e.estimator = stress.NewEstimator(nil)
	e.machine = mission.NewMachine(e.logger)
	e.deduper = alerts.NewDeduper(e.logger)
	e.lastInteraction = e.now()

	tolerance := cfg.Operator().SilenceTolerance
	e.checkinLimiter = rate.NewLimiter(rate.Every(tolerance), 1)

	e.operator = e.loadOperator()
	e.memories = e.loadMemories()

	mon, err := monitor.New(cfg.Monitor(), e.logger, e.tick)
	if err != nil {
		return nil, fmt.Errorf("failed to build monitor: %w", err)
	}
	e.mon = mon

	return e, nil
}

// loadOperator reads the persisted profile, falling back to a default one
// when the snapshot is missing or unreadable.
func (e *Engine) loadOperator() *schemas.OperatorProfile {
	profile, err := e.snapshots.LoadOperator()
	if err != nil {
		e.logger.Warn("No usable operator snapshot; starting from defaults", zap.Error(err))
		op := e.cfg.Operator()
		return &schemas.OperatorProfile{
			Code:             op.Code,
			Name:             op.Name,
			Trust:            50,
			StressPatterns:   make(map[string]int),
			SilenceTolerance: int(op.SilenceTolerance.Seconds()),
			CheckinInterval:  int(op.CheckinInterval.Seconds()),
			FirstSeen:        e.now(),
			UpdatedAt:        e.now(),
			Version:          Version,
		}
	}
	if profile.StressPatterns == nil {
		profile.StressPatterns = make(map[string]int)
	}
	profile.Version = Version
	return profile
}

// loadMemories merges persisted special memories over the built-in
// defaults.
func (e *Engine) loadMemories() map[string]string {
	merged := make(map[string]string, len(defaultMemories))
	for k, v := range defaultMemories {
		merged[k] = v
	}
	loaded, err := e.snapshots.LoadMemories()
	if err != nil {
		e.logger.Debug("No usable memories snapshot; using built-ins", zap.Error(err))
		return merged
	}
	for k, v := range loaded {
		merged[k] = v
	}
	return merged
}

// Emissions exposes the stream of unsolicited companion output. The
// channel closes when the engine closes.
func (e *Engine) Emissions() <-chan schemas.Emission { return e.emissions }

// emit delivers an emission without ever blocking the lock holder. A full
// buffer drops the oldest-style behavior in favor of dropping the new
// emission; the front end falling behind is not a core failure.
func (e *Engine) emit(kind schemas.EmissionKind, text string) {
	em := schemas.Emission{Kind: kind, Text: text, At: e.now()}
	select {
	case e.emissions <- em:
	default:
		e.logger.Debug("emission dropped, buffer full", zap.String("kind", string(kind)))
	}
}

// Start opens a new mission and begins background monitoring. Fails with
// ErrAlreadyActive if a mission is open; the open mission is untouched.
func (e *Engine) Start(code, location string, objectives []string) (*schemas.Mission, error) {
	e.mu.Lock()
	m, err := e.machine.Start(code, location, objectives, e.now())
	if err != nil {
		e.mu.Unlock()
		return nil, err
	}
	e.level = schemas.StressLow
	e.lastInteraction = e.now()
	e.mu.Unlock()

	e.mon.Start(context.Background())
	return m, nil
}

// SubmitMessage processes one operator message: it records the
// interaction, scans for alerts, resolves at most one layer response, and
// re-evaluates stress.
func (e *Engine) SubmitMessage(text string) (string, bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	e.interactions.Append(stress.LogEntry{At: now, Text: text, Level: e.level})

	current := e.machine.Current()
	if current != nil {
		current.Interactions = append(current.Interactions, schemas.Interaction{At: now, Text: text})
	}

	// Alert pass. Duplicate rendered strings never re-emit.
	scan := e.deduper.Scan(text)
	for _, rendered := range scan.Alerts {
		if current != nil {
			current.Alerts++
		}
		e.emit(schemas.EmissionAlert, rendered)
	}
	e.adjustTrust(scan.TrustDelta)
	e.countStressPatterns(text)

	// Layer pass renders against the level at time of receipt.
	response, ok := e.registry.Resolve(text, e.level)

	// The interaction resets the silence clock before re-estimation.
	e.lastInteraction = now
	e.reestimate(now)

	e.operator.UpdatedAt = now
	return response, ok, nil
}

// RecordChallenge attaches a challenge note to the open mission.
func (e *Engine) RecordChallenge(text string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	current := e.machine.Current()
	if current == nil {
		return schemas.ErrNoActiveMission
	}
	current.Challenges = append(current.Challenges, text)
	return nil
}

// RecordAchievement attaches an achievement note to the open mission.
func (e *Engine) RecordAchievement(text string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	current := e.machine.Current()
	if current == nil {
		return schemas.ErrNoActiveMission
	}
	current.Achievements = append(current.Achievements, text)
	return nil
}

// SetState transitions the open mission's lifecycle state. Entering
// Critical forces the stress level to High.
func (e *Engine) SetState(name string) error {
	state, err := mission.ParseState(name)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.machine.Transition(state); err != nil {
		return err
	}
	if state == schemas.StateCritical {
		e.level = schemas.StressHigh
	}
	return nil
}

// Conclude stops the monitor, finalizes the mission, persists it, and
// clears the current-mission slot. Persistence failures are reported in
// logs but never roll back the in-memory conclusion.
func (e *Engine) Conclude() (*schemas.Debrief, error) {
	e.mu.Lock()
	if !e.machine.Open() {
		e.mu.Unlock()
		return nil, schemas.ErrNoActiveMission
	}
	e.mu.Unlock()

	// The monitor must be fully stopped before the record is detached so
	// no tick mutates a mission already being persisted.
	e.mon.Stop()

	e.mu.Lock()
	defer e.mu.Unlock()

	done, err := e.machine.Conclude(e.now())
	if err != nil {
		return nil, err
	}

	debrief := &schemas.Debrief{
		MissionID:     done.ID,
		Code:          done.Code,
		Duration:      done.EndedAt.Sub(done.StartedAt),
		AverageStress: stress.AverageCode(done.StressHistory),
		Checkins:      done.Checkins,
		Alerts:        done.Alerts,
		Challenges:    done.Challenges,
		Achievements:  done.Achievements,
	}

	if err := e.snapshots.SaveMission(done); err != nil {
		e.logger.Error("Failed to persist concluded mission", zap.Error(err))
	}
	if e.archive != nil {
		// Persistence gets its own deadline so shutdown cannot strand it.
		ctx, cancel := context.WithTimeout(context.Background(), archiveTimeout)
		defer cancel()
		if err := e.archive.ArchiveMission(ctx, done); err != nil {
			e.logger.Error("Failed to archive concluded mission", zap.Error(err))
		}
	}

	e.operator.Experience++
	e.operator.PastMissions = append(e.operator.PastMissions, done.ID)
	e.operator.UpdatedAt = e.now()
	if err := e.snapshots.SaveOperator(e.operator); err != nil {
		e.logger.Error("Failed to persist operator profile", zap.Error(err))
	}

	e.level = schemas.StressLow
	return debrief, nil
}

// Status returns a point-in-time snapshot of companion state.
func (e *Engine) Status() schemas.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	snap := schemas.Snapshot{
		MissionState: schemas.StatePreparation,
		Stress:       e.level,
		Activations:  e.registry.Activations(),
		Operator:     e.operator.Code,
		Trust:        e.operator.Trust,
	}
	if current := e.machine.Current(); current != nil {
		snap.MissionOpen = true
		snap.MissionCode = current.Code
		snap.MissionState = current.State
		snap.Checkins = current.Checkins
		snap.Alerts = current.Alerts
	}
	return snap
}

// AddMemory stores a special memory and persists the merged map. The
// in-memory state is kept even when the save fails.
func (e *Engine) AddMemory(text, key string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if key == "" {
		key = fmt.Sprintf("memory-%d", len(e.memories)+1)
	}
	e.memories[key] = text

	if err := e.snapshots.SaveMemories(e.memories); err != nil {
		return key, fmt.Errorf("memory stored but not persisted: %w", err)
	}
	return key, nil
}

// Close stops the monitor, flushes the profile, and closes the emission
// stream. Idempotent.
func (e *Engine) Close() {
	e.closeOnce.Do(func() {
		e.mon.Stop()

		e.mu.Lock()
		e.operator.UpdatedAt = e.now()
		if err := e.snapshots.SaveOperator(e.operator); err != nil {
			e.logger.Warn("Failed to persist operator profile on close", zap.Error(err))
		}
		e.mu.Unlock()

		close(e.emissions)
	})
}

// -- internal helpers, caller holds e.mu --

// reestimate re-runs the estimator and, while the mission is active,
// appends a stress-history sample.
func (e *Engine) reestimate(now time.Time) {
	state := schemas.StatePreparation
	current := e.machine.Current()
	if current != nil {
		state = current.State
	}

	e.level = e.estimator.Evaluate(now, e.lastInteraction, e.interactions, state)
	if current != nil && state == schemas.StateActive {
		current.StressHistory = append(current.StressHistory, schemas.StressSample{
			At:    now,
			Level: e.level.Code(),
		})
	}
}

// adjustTrust applies a clamped trust delta.
func (e *Engine) adjustTrust(delta int) {
	e.operator.Trust += delta
	if e.operator.Trust > 100 {
		e.operator.Trust = 100
	}
	if e.operator.Trust < 0 {
		e.operator.Trust = 0
	}
}

// countStressPatterns increments the per-keyword counters on the
// operator profile.
func (e *Engine) countStressPatterns(text string) {
	lowered := strings.ToLower(text)
	for _, kw := range e.estimator.Keywords() {
		if strings.Contains(lowered, kw) {
			e.operator.StressPatterns[kw]++
		}
	}
}

// pickMemory returns a uniformly chosen special memory. Keys are sorted
// so the draw is deterministic under a seeded source.
func (e *Engine) pickMemory() (string, bool) {
	if len(e.memories) == 0 {
		return "", false
	}
	keys := make([]string, 0, len(e.memories))
	for k := range e.memories {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return e.memories[keys[e.rng.Intn(len(keys))]], true
}
