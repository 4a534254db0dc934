package schemas

import "context"

// -- Store Interfaces --

// SnapshotStore defines the contract for the best-effort on-disk
// persistence layer. The core never touches the filesystem directly; it
// issues all reads and writes through this collaborator.
type SnapshotStore interface {
	// LoadOperator reads the operator history record. A missing or
	// unreadable record is reported as an error; callers fall back to a
	// default profile and continue.
	LoadOperator() (*OperatorProfile, error)
	// SaveOperator writes the operator history record.
	SaveOperator(profile *OperatorProfile) error
	// SaveMission writes a finalized mission record.
	SaveMission(mission *Mission) error
	// LoadMemories reads the special-memories map.
	LoadMemories() (map[string]string, error)
	// SaveMemories writes the special-memories map.
	SaveMemories(memories map[string]string) error
}

// MissionArchive defines an optional secondary sink for concluded
// missions, backed by a relational database.
type MissionArchive interface {
	// ArchiveMission stores a finalized mission record and its stress
	// history.
	ArchiveMission(ctx context.Context, mission *Mission) error
}

// -- Core Interface --

// Companion is the boundary the core exposes to the front end. The front
// end owns all keyboard I/O, command parsing, and display formatting.
type Companion interface {
	// Start opens a new mission. Fails with ErrAlreadyActive if one is open.
	Start(code, location string, objectives []string) (*Mission, error)
	// SubmitMessage processes one operator message and returns the rendered
	// response, if any. At most one response is produced per message.
	SubmitMessage(text string) (string, bool, error)
	// RecordChallenge attaches a challenge note to the open mission.
	RecordChallenge(text string) error
	// RecordAchievement attaches an achievement note to the open mission.
	RecordAchievement(text string) error
	// SetState transitions the open mission's lifecycle state.
	SetState(name string) error
	// Conclude finalizes the open mission and returns its debrief summary.
	Conclude() (*Debrief, error)
	// Status returns a point-in-time snapshot of companion state.
	Status() Snapshot
	// AddMemory stores a special memory under the given key. An empty key
	// gets a generated one. Returns the key used.
	AddMemory(text, key string) (string, error)
	// Emissions exposes the stream of unsolicited companion output.
	Emissions() <-chan Emission
	// Close stops the background monitor and releases resources.
	Close()
}
