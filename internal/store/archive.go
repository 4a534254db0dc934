package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/solivara/vigil/api/schemas"
)

// DBPool abstracts the pgxpool.Pool to allow for mocking in tests.
type DBPool interface {
	Ping(ctx context.Context) error
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Archive is the optional Postgres sink for concluded mission records.
type Archive struct {
	pool DBPool
	log  *zap.Logger
}

// NewArchive creates an archive instance and verifies the connection.
func NewArchive(ctx context.Context, pool DBPool, logger *zap.Logger) (*Archive, error) {
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &Archive{
		pool: pool,
		log:  logger.Named("archive"),
	}, nil
}

// ArchiveMission stores a finalized mission record and its stress history
// in one transaction.
func (a *Archive) ArchiveMission(ctx context.Context, mission *schemas.Mission) error {
	tx, err := a.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if rollbackErr := tx.Rollback(ctx); rollbackErr != nil && !errors.Is(rollbackErr, pgx.ErrTxClosed) {
			a.log.Error("Failed to rollback transaction", zap.Error(rollbackErr))
		}
	}()

	sqlMission := `
        INSERT INTO missions (id, code, state, started_at, ended_at, location, checkins, alerts)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        ON CONFLICT (id) DO UPDATE SET
            state = EXCLUDED.state,
            ended_at = EXCLUDED.ended_at,
            checkins = EXCLUDED.checkins,
            alerts = EXCLUDED.alerts;
    `
	if _, err := tx.Exec(ctx, sqlMission,
		mission.ID, mission.Code, string(mission.State),
		mission.StartedAt.UTC(), endedAtUTC(mission), mission.Location,
		mission.Checkins, mission.Alerts,
	); err != nil {
		return fmt.Errorf("failed to insert mission %s: %w", mission.ID, err)
	}

	if len(mission.StressHistory) > 0 {
		rows := make([][]interface{}, len(mission.StressHistory))
		for i, sample := range mission.StressHistory {
			rows[i] = []interface{}{mission.ID, sample.At.UTC(), sample.Level}
		}
		copyCount, err := tx.CopyFrom(
			ctx,
			pgx.Identifier{"stress_samples"},
			[]string{"mission_id", "sampled_at", "level"},
			pgx.CopyFromRows(rows),
		)
		if err != nil {
			return fmt.Errorf("failed to copy stress samples: %w", err)
		}
		if int(copyCount) != len(mission.StressHistory) {
			return fmt.Errorf("mismatch in copied sample count: expected %d, got %d",
				len(mission.StressHistory), copyCount)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	a.log.Info("mission archived", zap.String("mission_id", mission.ID))
	return nil
}

func endedAtUTC(mission *schemas.Mission) interface{} {
	if mission.EndedAt == nil {
		return nil
	}
	return mission.EndedAt.UTC()
}
