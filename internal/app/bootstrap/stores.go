package bootstrap

import (
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"

	"github.com/wolfman30/frontdesk/internal/appointments"
	"github.com/wolfman30/frontdesk/internal/audit"
	"github.com/wolfman30/frontdesk/internal/receptionists"
	"github.com/wolfman30/frontdesk/pkg/logging"
)

// Stores bundles the persistence layer. Audit is nil without a database.
type Stores struct {
	Appointments  appointments.Store
	Receptionists receptionists.Repository
	Audit         *audit.Store

	closers []func() error
}

// Close releases the database/sql handles. The pgx pool is owned by the caller.
func (s *Stores) Close() error {
	var first error
	for _, c := range s.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// EventRecorder returns the audit store as a recorder, or nil.
func (s *Stores) EventRecorder() appointments.EventRecorder {
	if s.Audit == nil {
		return nil
	}
	return s.Audit
}

// BuildStores wires Postgres-backed stores when pool is set and in-memory ones otherwise.
// The audit log opens its own lib/pq connection because it binds pq.Array parameters.
func BuildStores(pool *pgxpool.Pool, databaseURL string, logger *logging.Logger) (*Stores, error) {
	if logger == nil {
		logger = logging.Default()
	}
	if pool == nil {
		logger.Warn("DATABASE_URL not set; using in-memory stores")
		return &Stores{
			Appointments:  appointments.NewMemoryStore(),
			Receptionists: receptionists.NewMemoryRepository(),
		}, nil
	}

	sqlDB := stdlib.OpenDBFromPool(pool)
	auditDB, err := sql.Open("postgres", databaseURL)
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("bootstrap: open audit db: %w", err)
	}
	return &Stores{
		Appointments:  appointments.NewPostgresStore(pool),
		Receptionists: receptionists.NewSQLRepository(sqlDB),
		Audit:         audit.NewStore(auditDB),
		closers:       []func() error{auditDB.Close, sqlDB.Close},
	}, nil
}
