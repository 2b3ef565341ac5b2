// File: internal/auditlog/postgres_test.go
package auditlog

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// flexibleSQLMatcher creates a regex that is insensitive to whitespace for
// more robust SQL mock testing.
func flexibleSQLMatcher(sql string) string {
	trimmed := strings.TrimSpace(sql)
	return regexp.MustCompile(`\s+`).ReplaceAllString(regexp.QuoteMeta(trimmed), `\s+`)
}

func TestNewPostgresSink(t *testing.T) {
	t.Run("should return error if ping fails", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool(pgxmock.MonitorPingsOption(true))
		require.NoError(t, err)
		defer mockPool.Close()

		pingErr := errors.New("database unavailable")
		mockPool.ExpectPing().WillReturnError(pingErr)

		_, err = NewPostgresSink(context.Background(), mockPool, zap.NewNop())
		require.Error(t, err)
		assert.ErrorIs(t, err, pingErr)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("should return error if table creation fails", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool(pgxmock.MonitorPingsOption(true))
		require.NoError(t, err)
		defer mockPool.Close()

		ddlErr := errors.New("permission denied")
		mockPool.ExpectPing().WillReturnError(nil)
		mockPool.ExpectExec(flexibleSQLMatcher(createTableSQL)).WillReturnError(ddlErr)

		_, err = NewPostgresSink(context.Background(), mockPool, zap.NewNop())
		require.Error(t, err)
		assert.ErrorIs(t, err, ddlErr)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("should ensure the reports table", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool(pgxmock.MonitorPingsOption(true))
		require.NoError(t, err)
		defer mockPool.Close()

		mockPool.ExpectPing().WillReturnError(nil)
		mockPool.ExpectExec(flexibleSQLMatcher(createTableSQL)).
			WillReturnResult(pgxmock.NewResult("CREATE", 0))

		sink, err := NewPostgresSink(context.Background(), mockPool, zap.NewNop())
		require.NoError(t, err)
		require.NotNil(t, sink)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func newMockedSink(t *testing.T) (*PostgresSink, pgxmock.PgxPoolIface) {
	t.Helper()
	mockPool, err := pgxmock.NewPool(pgxmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(mockPool.Close)

	mockPool.ExpectPing().WillReturnError(nil)
	mockPool.ExpectExec(flexibleSQLMatcher(createTableSQL)).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	sink, err := NewPostgresSink(context.Background(), mockPool, zap.NewNop())
	require.NoError(t, err)
	return sink, mockPool
}

func TestPostgresSink_Append(t *testing.T) {
	t.Run("should insert one row per report", func(t *testing.T) {
		sink, mockPool := newMockedSink(t)
		report := sampleReport("r1")
		report.CommuniquePostID = "at://did:plc:bot/app.bsky.feed.post/k1"

		mockPool.ExpectExec(flexibleSQLMatcher(insertReportSQL)).
			WithArgs(
				report.ReportID, report.SweepID, report.Timestamp.UTC(),
				report.Target, report.TargetID,
				report.OffenseCount, report.PromisesMade, report.PromisesKept,
				report.FulfillmentRate, report.Verdict, string(report.Action),
				report.CommuniquePostID, string(report.Status),
			).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		require.NoError(t, sink.Append(context.Background(), report))
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("should store empty communique ID as NULL", func(t *testing.T) {
		sink, mockPool := newMockedSink(t)
		report := sampleReport("r2")
		report.CommuniquePostID = ""

		mockPool.ExpectExec(flexibleSQLMatcher(insertReportSQL)).
			WithArgs(
				report.ReportID, report.SweepID, report.Timestamp.UTC(),
				report.Target, report.TargetID,
				report.OffenseCount, report.PromisesMade, report.PromisesKept,
				report.FulfillmentRate, report.Verdict, string(report.Action),
				nil, string(report.Status),
			).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		require.NoError(t, sink.Append(context.Background(), report))
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("should convert timestamps to UTC before inserting", func(t *testing.T) {
		sink, mockPool := newMockedSink(t)

		loc, err := time.LoadLocation("America/New_York")
		require.NoError(t, err)
		report := sampleReport("r3")
		report.Timestamp = time.Date(2026, 8, 30, 8, 0, 0, 0, loc)

		mockPool.ExpectExec(flexibleSQLMatcher(insertReportSQL)).
			WithArgs(
				report.ReportID, report.SweepID, report.Timestamp.UTC(),
				report.Target, report.TargetID,
				report.OffenseCount, report.PromisesMade, report.PromisesKept,
				report.FulfillmentRate, report.Verdict, string(report.Action),
				nil, string(report.Status),
			).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		require.NoError(t, sink.Append(context.Background(), report))
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("should surface insert failures", func(t *testing.T) {
		sink, mockPool := newMockedSink(t)
		insertErr := errors.New("unique violation")

		mockPool.ExpectExec(flexibleSQLMatcher(insertReportSQL)).
			WillReturnError(insertErr)

		err := sink.Append(context.Background(), sampleReport("r4"))
		require.Error(t, err)
		assert.ErrorIs(t, err, insertErr)
	})
}

func TestPostgresSink_CloseIsNoOp(t *testing.T) {
	sink, _ := newMockedSink(t)
	assert.NoError(t, sink.Close())
}
