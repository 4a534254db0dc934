// Package mission owns the active mission record and enforces lifecycle
// transitions.
package mission

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/solivara/vigil/api/schemas"
)

// ParseState maps a canonical state name to its MissionState. Unknown
// names fail with ErrInvalidStateName.
func ParseState(name string) (schemas.MissionState, error) {
	switch schemas.MissionState(name) {
	case schemas.StatePreparation, schemas.StateActive, schemas.StateCritical,
		schemas.StateRecovery, schemas.StateCompleted:
		return schemas.MissionState(name), nil
	default:
		return "", schemas.ErrInvalidStateName
	}
}

// Machine exclusively owns the current mission record. At most one
// mission is open at a time; the slot is empty between missions. Not safe
// for concurrent use; the owning engine serializes access.
type Machine struct {
	current *schemas.Mission
	logger  *zap.Logger
}

// NewMachine returns a machine with no open mission.
func NewMachine(logger *zap.Logger) *Machine {
	return &Machine{logger: logger.Named("mission")}
}

// Current returns the open mission record, or nil.
func (m *Machine) Current() *schemas.Mission { return m.current }

// Open reports whether a mission is currently open.
func (m *Machine) Open() bool { return m.current != nil }

// Start creates a new mission in state Active. Fails with
// ErrAlreadyActive if one is already open; the open mission is untouched.
func (m *Machine) Start(code, location string, objectives []string, now time.Time) (*schemas.Mission, error) {
	if m.current != nil {
		return nil, schemas.ErrAlreadyActive
	}
	m.current = &schemas.Mission{
		ID:         uuid.NewString(),
		Code:       code,
		State:      schemas.StateActive,
		StartedAt:  now,
		Location:   location,
		Objectives: append([]string(nil), objectives...),
	}
	m.logger.Info("mission started",
		zap.String("mission_id", m.current.ID),
		zap.String("code", code),
		zap.String("location", location))
	return m.current, nil
}

// Transition moves the open mission to a new lifecycle state. Any
// non-terminal state is reachable from any other; Completed is strictly
// terminal and only ever entered through Conclude.
func (m *Machine) Transition(state schemas.MissionState) error {
	if m.current == nil {
		return schemas.ErrNoActiveMission
	}
	if state == schemas.StateCompleted {
		// Completion carries side effects (end time, persistence); it
		// must go through Conclude.
		return schemas.ErrInvalidStateName
	}
	from := m.current.State
	m.current.State = state
	m.logger.Info("mission state changed",
		zap.String("mission_id", m.current.ID),
		zap.String("from", string(from)),
		zap.String("to", string(state)))
	return nil
}

// Conclude stamps the end time, marks the mission Completed, and detaches
// it from the machine. The returned record is final; the current-mission
// slot is empty afterwards.
func (m *Machine) Conclude(now time.Time) (*schemas.Mission, error) {
	if m.current == nil {
		return nil, schemas.ErrNoActiveMission
	}
	done := m.current
	ended := now
	done.EndedAt = &ended
	done.State = schemas.StateCompleted
	m.current = nil
	m.logger.Info("mission concluded",
		zap.String("mission_id", done.ID),
		zap.Duration("duration", ended.Sub(done.StartedAt)))
	return done, nil
}
