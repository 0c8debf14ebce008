package scheduler

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	contractx "github.com/happyorsaad/dental-assistant-bot/agent/contract"
	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/pgdriver"
	_ "modernc.org/sqlite"
)

// AppointmentSlot is one bookable time. Label is the text users type to
// book it, matched case-insensitively.
type AppointmentSlot struct {
	bun.BaseModel `bun:"table:appointment_slots"`

	ID       int64      `bun:"id,pk,autoincrement"`
	Label    string     `bun:"label,notnull,unique"`
	StartsAt time.Time  `bun:"starts_at,notnull"`
	BookedAt *time.Time `bun:"booked_at"`
}

// Store is a scheduler backed by the clinic's own appointment table.
type Store struct {
	db  *bun.DB
	now func() time.Time
}

func NewStore(db *bun.DB) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("%w: scheduler database is required", contractx.ErrConfiguration)
	}
	return &Store{db: db, now: time.Now}, nil
}

func NewPostgresDB(dsn string) *bun.DB {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return bun.NewDB(sqldb, pgdialect.New())
}

func NewSQLiteDB(dsn string) (*bun.DB, error) {
	sqldb, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open sqlite: %v", contractx.ErrConfiguration, err)
	}
	// one connection keeps in-memory databases shared
	sqldb.SetMaxOpenConns(1)
	return bun.NewDB(sqldb, sqlitedialect.New()), nil
}

func (s *Store) CreateSchema(ctx context.Context) error {
	_, err := s.db.NewCreateTable().
		Model((*AppointmentSlot)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("%w: create appointment_slots: %v", contractx.ErrSchedulerService, err)
	}
	return nil
}

// AddSlots inserts open slots, mostly for seeding.
func (s *Store) AddSlots(ctx context.Context, slots ...AppointmentSlot) error {
	if len(slots) == 0 {
		return nil
	}
	if _, err := s.db.NewInsert().Model(&slots).Exec(ctx); err != nil {
		return fmt.Errorf("%w: insert slots: %v", contractx.ErrSchedulerService, err)
	}
	return nil
}

func (s *Store) GetAvailability(ctx context.Context) (string, error) {
	var slots []AppointmentSlot
	err := s.db.NewSelect().
		Model(&slots).
		Where("booked_at IS NULL").
		Order("starts_at ASC").
		Scan(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: select open slots: %v", contractx.ErrSchedulerService, err)
	}

	labels := make([]string, 0, len(slots))
	for _, slot := range slots {
		labels = append(labels, slot.Label)
	}
	return renderAvailability(labels), nil
}

// BookSlot claims the open slot whose label matches. The update is
// conditional on booked_at, so two concurrent bookings cannot both win.
func (s *Store) BookSlot(ctx context.Context, slot string) (string, error) {
	label := strings.TrimSpace(slot)
	now := s.now().UTC()

	res, err := s.db.NewUpdate().
		Model((*AppointmentSlot)(nil)).
		Set("booked_at = ?", now).
		Where("lower(label) = lower(?)", label).
		Where("booked_at IS NULL").
		Exec(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: book slot: %v", contractx.ErrSchedulerService, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return "", fmt.Errorf("%w: book slot rows: %v", contractx.ErrSchedulerService, err)
	}
	if n == 0 {
		log.Info().Str("slot", label).Msg("slot not open")
		return renderRejected(label), nil
	}
	return renderBooked(label), nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
