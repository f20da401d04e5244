// Package history persists completed shot records to SQLite.
//
// Each operation the machine runs (espresso, steam, hot water, flush)
// produces one row when it ends, keyed by a UUID. High-rate telemetry
// samples are not stored here; those go to the time-series database
// when enabled. The local table provides a durable audit trail of what
// the machine did even when InfluxDB is unavailable.
//
// # Usage
//
//	repo := history.NewSQLiteRepository(db.DB)
//	err := repo.Record(ctx, history.Shot{
//	    ID:        uuid.New().String(),
//	    State:     "espresso",
//	    StartedAt: started,
//	    EndedAt:   ended,
//	    EndReason: history.EndReasonFinished,
//	    Frames:    5,
//	})
//
// # Thread Safety
//
// The repository is safe for concurrent use; SQLite serialises writes
// through the single-writer connection pool configured by the database
// package.
package history
