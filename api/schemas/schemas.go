package schemas

import "time"

// StressLevel is the discrete severity the estimator assigns to the
// operator's current state.
type StressLevel string

const (
	StressLow      StressLevel = "low"
	StressModerate StressLevel = "moderate"
	StressHigh     StressLevel = "high"
	StressCritical StressLevel = "critical"
)

// Code returns the numeric code used for stress aggregation and for the
// persisted stress-history tuples.
func (s StressLevel) Code() int {
	switch s {
	case StressModerate:
		return 2
	case StressHigh:
		return 3
	case StressCritical:
		return 4
	default:
		return 1
	}
}

// MissionState defines the lifecycle state of a mission.
type MissionState string

const (
	StatePreparation MissionState = "preparation"
	StateActive      MissionState = "active"
	StateCritical    MissionState = "critical"
	StateRecovery    MissionState = "recovery"
	StateCompleted   MissionState = "completed"
)

// Terminal reports whether no further transitions are allowed from the state.
func (m MissionState) Terminal() bool { return m == StateCompleted }

// StressSample is one recorded stress reading. The numeric level code is
// what gets persisted, per the snapshot schema.
type StressSample struct {
	At    time.Time `json:"at"`
	Level int       `json:"level"`
}

// Interaction is one (timestamp, text) record attached to a mission.
type Interaction struct {
	At   time.Time `json:"at"`
	Text string    `json:"text"`
}

// Mission is the full record of one bounded unit of operational work.
type Mission struct {
	ID            string         `json:"id"`
	Code          string         `json:"code"`
	State         MissionState   `json:"state"`
	StartedAt     time.Time      `json:"started_at"`
	EndedAt       *time.Time     `json:"ended_at,omitempty"`
	Location      string         `json:"location"`
	Objectives    []string       `json:"objectives"`
	Challenges    []string       `json:"challenges"`
	Achievements  []string       `json:"achievements"`
	StressHistory []StressSample `json:"stress_history"`
	Checkins      int            `json:"checkins"`
	Alerts        int            `json:"alerts"`
	Interactions  []Interaction  `json:"interactions"`
}

// OperatorProfile carries everything the companion knows about its
// operator across missions and process runs.
type OperatorProfile struct {
	Code             string         `json:"code"`
	Name             string         `json:"name"`
	Experience       int            `json:"experience"`
	Trust            int            `json:"trust"`
	PastMissions     []string       `json:"past_missions"`
	StressPatterns   map[string]int `json:"stress_patterns"`
	SilenceTolerance int            `json:"silence_tolerance_seconds"`
	CheckinInterval  int            `json:"checkin_interval_seconds"`
	FirstSeen        time.Time      `json:"first_seen"`
	UpdatedAt        time.Time      `json:"updated_at"`
	Version          string         `json:"companion_version"`
}

// Debrief is the end-of-mission summary returned by Conclude.
type Debrief struct {
	MissionID     string        `json:"mission_id"`
	Code          string        `json:"code"`
	Duration      time.Duration `json:"duration"`
	AverageStress float64       `json:"average_stress"`
	Checkins      int           `json:"checkins"`
	Alerts        int           `json:"alerts"`
	Challenges    []string      `json:"challenges"`
	Achievements  []string      `json:"achievements"`
}

// EmissionKind classifies an unsolicited message from the companion.
type EmissionKind string

const (
	EmissionCheckin EmissionKind = "CHECKIN"
	EmissionRemark  EmissionKind = "REMARK"
	EmissionAlert   EmissionKind = "ALERT"
)

// Emission is a message the companion produced on its own initiative,
// outside the synchronous request/response path.
type Emission struct {
	Kind EmissionKind `json:"kind"`
	Text string       `json:"text"`
	At   time.Time    `json:"at"`
}

// Snapshot is the point-in-time status view exposed to the front end.
type Snapshot struct {
	MissionOpen  bool           `json:"mission_open"`
	MissionCode  string         `json:"mission_code,omitempty"`
	MissionState MissionState   `json:"mission_state"`
	Stress       StressLevel    `json:"stress"`
	Activations  map[string]int `json:"activations"`
	Checkins     int            `json:"checkins"`
	Alerts       int            `json:"alerts"`
	Operator     string         `json:"operator"`
	Trust        int            `json:"trust"`
}
