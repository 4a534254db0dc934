package store

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/solivara/vigil/api/schemas"
)

// flexibleSQLMatcher creates a regex that is insensitive to whitespace for more robust SQL mock testing.
func flexibleSQLMatcher(sql string) string {
	trimmed := strings.TrimSpace(sql)
	return regexp.MustCompile(`\s+`).ReplaceAllString(regexp.QuoteMeta(trimmed), `\s+`)
}

const sqlInsertMission = `
        INSERT INTO missions (id, code, state, started_at, ended_at, location, checkins, alerts)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        ON CONFLICT (id) DO UPDATE SET
            state = EXCLUDED.state,
            ended_at = EXCLUDED.ended_at,
            checkins = EXCLUDED.checkins,
            alerts = EXCLUDED.alerts;
    `

var stressSampleColumns = []string{"mission_id", "sampled_at", "level"}

func concludedMission() *schemas.Mission {
	started := time.Date(2026, 8, 30, 6, 0, 0, 0, time.UTC)
	ended := started.Add(4 * time.Hour)
	return &schemas.Mission{
		ID:        uuid.NewString(),
		Code:      "OP-ALPHA",
		State:     schemas.StateCompleted,
		StartedAt: started,
		EndedAt:   &ended,
		Location:  "sector 4",
		Checkins:  2,
		Alerts:    1,
		StressHistory: []schemas.StressSample{
			{At: started.Add(time.Hour), Level: 2},
			{At: started.Add(2 * time.Hour), Level: 3},
		},
	}
}

func TestNewArchive(t *testing.T) {
	t.Run("should return error if ping fails", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool(pgxmock.MonitorPingsOption(true))
		require.NoError(t, err)
		defer mockPool.Close()

		pingErr := errors.New("database unavailable")
		mockPool.ExpectPing().WillReturnError(pingErr)

		_, err = NewArchive(context.Background(), mockPool, zap.NewNop())
		require.Error(t, err)
		assert.ErrorIs(t, err, pingErr, "Error from ping should be propagated")
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestArchiveMission(t *testing.T) {
	ctx := context.Background()

	t.Run("should archive a mission and its stress history without rollback errors", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool(pgxmock.MonitorPingsOption(true))
		require.NoError(t, err)
		defer mockPool.Close()

		observedZapCore, observedLogs := observer.New(zapcore.ErrorLevel)
		observedLogger := zap.New(observedZapCore)

		mockPool.ExpectPing().WillReturnError(nil)
		archive, err := NewArchive(context.Background(), mockPool, observedLogger)
		require.NoError(t, err)

		mission := concludedMission()

		mockPool.ExpectBegin()
		mockPool.ExpectExec(flexibleSQLMatcher(sqlInsertMission)).
			WithArgs(
				mission.ID,
				mission.Code,
				string(mission.State),
				mission.StartedAt.UTC(),
				mission.EndedAt.UTC(),
				mission.Location,
				mission.Checkins,
				mission.Alerts,
			).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mockPool.ExpectCopyFrom(pgx.Identifier{"stress_samples"}, stressSampleColumns).
			WillReturnResult(int64(len(mission.StressHistory)))

		// Expect Commit AND the subsequent Rollback (which returns ErrTxClosed)
		mockPool.ExpectCommit()
		mockPool.ExpectRollback().WillReturnError(pgx.ErrTxClosed)

		require.NoError(t, archive.ArchiveMission(ctx, mission))
		assert.NoError(t, mockPool.ExpectationsWereMet())
		assert.Empty(t, observedLogs.All(), "Expected no errors logged on successful commit")
	})

	t.Run("should skip the sample copy when the history is empty", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool(pgxmock.MonitorPingsOption(true))
		require.NoError(t, err)
		defer mockPool.Close()

		mockPool.ExpectPing().WillReturnError(nil)
		archive, err := NewArchive(context.Background(), mockPool, zap.NewNop())
		require.NoError(t, err)

		mission := concludedMission()
		mission.StressHistory = nil

		mockPool.ExpectBegin()
		mockPool.ExpectExec(flexibleSQLMatcher(sqlInsertMission)).
			WithArgs(
				mission.ID,
				mission.Code,
				string(mission.State),
				mission.StartedAt.UTC(),
				mission.EndedAt.UTC(),
				mission.Location,
				mission.Checkins,
				mission.Alerts,
			).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mockPool.ExpectCommit()
		mockPool.ExpectRollback().WillReturnError(pgx.ErrTxClosed)

		require.NoError(t, archive.ArchiveMission(ctx, mission))
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("should convert timestamps to UTC before persisting", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool(pgxmock.MonitorPingsOption(true))
		require.NoError(t, err)
		defer mockPool.Close()

		mockPool.ExpectPing().WillReturnError(nil)
		archive, err := NewArchive(context.Background(), mockPool, zap.NewNop())
		require.NoError(t, err)

		loc, err := time.LoadLocation("America/New_York")
		require.NoError(t, err)

		mission := concludedMission()
		mission.StressHistory = nil
		mission.StartedAt = time.Date(2026, 8, 30, 10, 0, 0, 0, loc)
		ended := mission.StartedAt.Add(time.Hour)
		mission.EndedAt = &ended

		mockPool.ExpectBegin()
		mockPool.ExpectExec(flexibleSQLMatcher(sqlInsertMission)).
			WithArgs(
				mission.ID,
				mission.Code,
				string(mission.State),
				mission.StartedAt.UTC(),
				ended.UTC(),
				mission.Location,
				mission.Checkins,
				mission.Alerts,
			).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mockPool.ExpectCommit()
		mockPool.ExpectRollback().WillReturnError(pgx.ErrTxClosed)

		require.NoError(t, archive.ArchiveMission(ctx, mission))
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("should handle transaction begin failure", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool(pgxmock.MonitorPingsOption(true))
		require.NoError(t, err)
		defer mockPool.Close()

		mockPool.ExpectPing().WillReturnError(nil)
		archive, err := NewArchive(context.Background(), mockPool, zap.NewNop())
		require.NoError(t, err)

		beginErr := errors.New("cannot begin tx")
		mockPool.ExpectBegin().WillReturnError(beginErr)

		err = archive.ArchiveMission(ctx, concludedMission())
		require.Error(t, err)
		assert.ErrorIs(t, err, beginErr)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("should rollback if the mission insert fails", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool(pgxmock.MonitorPingsOption(true))
		require.NoError(t, err)
		defer mockPool.Close()

		mockPool.ExpectPing().WillReturnError(nil)
		archive, err := NewArchive(context.Background(), mockPool, zap.NewNop())
		require.NoError(t, err)

		mission := concludedMission()
		execErr := errors.New("relation does not exist")

		mockPool.ExpectBegin()
		mockPool.ExpectExec(flexibleSQLMatcher(sqlInsertMission)).
			WithArgs(
				mission.ID,
				mission.Code,
				string(mission.State),
				mission.StartedAt.UTC(),
				mission.EndedAt.UTC(),
				mission.Location,
				mission.Checkins,
				mission.Alerts,
			).
			WillReturnError(execErr)
		mockPool.ExpectRollback()

		err = archive.ArchiveMission(ctx, mission)
		require.Error(t, err)
		assert.ErrorIs(t, err, execErr)
		assert.Contains(t, err.Error(), "failed to insert mission")
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("should rollback if the sample copy fails", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool(pgxmock.MonitorPingsOption(true))
		require.NoError(t, err)
		defer mockPool.Close()

		mockPool.ExpectPing().WillReturnError(nil)
		archive, err := NewArchive(context.Background(), mockPool, zap.NewNop())
		require.NoError(t, err)

		mission := concludedMission()
		copyErr := errors.New("copy from failed")

		mockPool.ExpectBegin()
		mockPool.ExpectExec(flexibleSQLMatcher(sqlInsertMission)).
			WithArgs(
				mission.ID,
				mission.Code,
				string(mission.State),
				mission.StartedAt.UTC(),
				mission.EndedAt.UTC(),
				mission.Location,
				mission.Checkins,
				mission.Alerts,
			).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mockPool.ExpectCopyFrom(pgx.Identifier{"stress_samples"}, stressSampleColumns).
			WillReturnError(copyErr)
		mockPool.ExpectRollback()

		err = archive.ArchiveMission(ctx, mission)
		require.Error(t, err)
		assert.ErrorIs(t, err, copyErr)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}
