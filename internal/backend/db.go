// Package backend is a small stand-in for the workout API, backed by SQLite.
// It serves the same three endpoints the client uses so the frontend, the MCP
// server and the tests can run without the real service.
package backend

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	"github.com/meltforce/treinos/internal/models"
	"github.com/meltforce/treinos/internal/store"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// DB wraps the SQLite handle and provides repository methods.
type DB struct {
	db  *sql.DB
	now func() time.Time
}

// Open applies pending migrations to the database file at path and opens it.
func Open(path string) (*DB, error) {
	if err := RunMigrations(path); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening fixture db: %w", err)
	}
	// SQLite allows one writer; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging fixture db: %w", err)
	}
	return &DB{db: db, now: time.Now}, nil
}

// Close closes the database.
func (d *DB) Close() error {
	return d.db.Close()
}

// RunMigrations applies all pending embedded migrations to the database at path.
func RunMigrations(path string) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("loading migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, "sqlite://"+path)
	if err != nil {
		return fmt.Errorf("creating migrator: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}

// ListWorkouts returns every workout in insertion order.
func (d *DB) ListWorkouts(ctx context.Context) ([]models.Workout, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT id, user_id, workout_name, treinos, created_at FROM workouts ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("querying workouts: %w", err)
	}
	defer rows.Close()

	workouts := []models.Workout{}
	for rows.Next() {
		var (
			w                  models.Workout
			treinos, createdAt string
		)
		if err := rows.Scan(&w.ID, &w.UserID, &w.WorkoutName, &treinos, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning workout: %w", err)
		}
		w.Treinos, w.GroupOrder, err = models.DecodeGroups([]byte(treinos))
		if err != nil {
			return nil, fmt.Errorf("workout %s: %w", w.ID, err)
		}
		if w.CreatedAt, err = models.ParseCreatedAt(createdAt); err != nil {
			return nil, fmt.Errorf("workout %s: %w", w.ID, err)
		}
		workouts = append(workouts, w)
	}
	return workouts, rows.Err()
}

// InsertWorkout stores w, assigning an id and creation time when unset.
func (d *DB) InsertWorkout(ctx context.Context, w *models.Workout) error {
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	if w.CreatedAt.IsZero() {
		w.CreatedAt = d.now().UTC()
	}
	treinos, err := w.Treinos.MarshalOrdered(w.GroupOrder)
	if err != nil {
		return fmt.Errorf("encoding treinos: %w", err)
	}

	_, err = d.db.ExecContext(ctx,
		`INSERT INTO workouts (id, user_id, workout_name, treinos, created_at) VALUES (?, ?, ?, ?, ?)`,
		w.ID, w.UserID, w.WorkoutName, string(treinos), w.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("inserting workout: %w", err)
	}
	return nil
}

// UpdateTreinos replaces the treinos of workout id. It returns
// store.ErrNotFound when no such workout exists.
func (d *DB) UpdateTreinos(ctx context.Context, id string, treinos models.Groups, order []string) error {
	data, err := treinos.MarshalOrdered(order)
	if err != nil {
		return fmt.Errorf("encoding treinos: %w", err)
	}

	res, err := d.db.ExecContext(ctx, `UPDATE workouts SET treinos = ? WHERE id = ?`, string(data), id)
	if err != nil {
		return fmt.Errorf("updating workout %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating workout %s: %w", id, err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
