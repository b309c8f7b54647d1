package migrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"MiCiudadSV/migrations"

	"github.com/pressly/goose/v3"
	"github.com/sirupsen/logrus"
)

const runTimeout = time.Minute

// Runner applies the embedded goose migrations.
type Runner struct {
	db  *sql.DB
	log *logrus.Entry
}

func New(db *sql.DB) (Runner, error) {
	if db == nil {
		return Runner{}, errors.New("nil database provided")
	}
	goose.SetBaseFS(migrations.FS)
	goose.SetLogger(logrus.StandardLogger())
	if err := goose.SetDialect("mysql"); err != nil {
		return Runner{}, fmt.Errorf("configure goose: %w", err)
	}
	return Runner{db: db, log: logrus.WithField("component", "migrate")}, nil
}

// Up applies pending migrations.
func (r Runner) Up(ctx context.Context) error {
	runCtx, cancel := context.WithTimeout(ctx, runTimeout)
	defer cancel()

	r.log.Info("applying migrations")
	if err := goose.UpContext(runCtx, r.db, "."); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	r.log.Info("migrations applied")
	return nil
}

// Down rolls back the latest migration, or down to targetVersion when it is positive.
func (r Runner) Down(ctx context.Context, targetVersion int64) error {
	runCtx, cancel := context.WithTimeout(ctx, runTimeout)
	defer cancel()

	if targetVersion > 0 {
		r.log.WithField("target", targetVersion).Info("rolling back migrations")
		if err := goose.DownToContext(runCtx, r.db, ".", targetVersion); err != nil {
			return fmt.Errorf("rollback to version %d: %w", targetVersion, err)
		}
		return nil
	}
	r.log.Info("rolling back latest migration")
	if err := goose.DownContext(runCtx, r.db, "."); err != nil {
		return fmt.Errorf("rollback latest migration: %w", err)
	}
	return nil
}

func (r Runner) Status(ctx context.Context) error {
	if err := goose.StatusContext(ctx, r.db, "."); err != nil {
		return fmt.Errorf("migration status: %w", err)
	}
	return nil
}
