package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/taylorsterlingwrites/threshold-compass/internal"
)

// Schema creates every table the Postgres backend reads and writes.
const Schema = `
CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	token TEXT UNIQUE,
	name TEXT NOT NULL DEFAULT '',
	email TEXT NOT NULL DEFAULT '',
	sensitivity JSONB NOT NULL,
	primary_substance TEXT NOT NULL,
	north_star JSONB NOT NULL,
	guidance_level TEXT NOT NULL DEFAULT '',
	menstrual_tracking BOOLEAN NOT NULL DEFAULT FALSE,
	cycle_day INTEGER,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS batches (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	name TEXT NOT NULL,
	substance TEXT NOT NULL,
	is_active BOOLEAN NOT NULL DEFAULT TRUE,
	doses_logged INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS dose_logs (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	batch_id TEXT NOT NULL,
	amount DOUBLE PRECISION NOT NULL,
	timestamp TIMESTAMPTZ NOT NULL,
	food_state TEXT NOT NULL,
	intention TEXT NOT NULL DEFAULT '',
	effective_dose DOUBLE PRECISION NOT NULL,
	carryover JSONB,
	sleep_hours DOUBLE PRECISION,
	sleep_quality INTEGER,
	stress_level INTEGER,
	caffeine_mg DOUBLE PRECISION,
	caffeine_timing TEXT,
	environment TEXT,
	cannabis BOOLEAN,
	cycle_day INTEGER,
	exercise TEXT,
	notes TEXT,
	tags TEXT[] NOT NULL DEFAULT '{}',
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS dose_logs_user_ts ON dose_logs (user_id, timestamp DESC);
CREATE TABLE IF NOT EXISTS check_ins (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	dose_id TEXT,
	timestamp TIMESTAMPTZ NOT NULL,
	phase TEXT NOT NULL,
	load TEXT NOT NULL DEFAULT '',
	noise TEXT NOT NULL DEFAULT '',
	schedule TEXT NOT NULL DEFAULT '',
	energy INTEGER NOT NULL,
	clarity INTEGER NOT NULL,
	stability INTEGER NOT NULL,
	body_map TEXT[] NOT NULL DEFAULT '{}',
	notes TEXT,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS check_ins_user_ts ON check_ins (user_id, timestamp DESC);
`

type PostgresStorage struct {
	pool   *pgxpool.Pool
	logger internal.Logger
}

func NewPostgresStorage(ctx context.Context, dsn string, logger internal.Logger) (*PostgresStorage, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		logger.Errorf("failed to connect to postgres: %v", err)
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		logger.Errorf("failed to ping postgres: %v", err)
		return nil, err
	}
	return &PostgresStorage{pool: pool, logger: logger}, nil
}

// Migrate applies Schema. Every statement is idempotent.
func (p *PostgresStorage) Migrate(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("storage: migrate: %w", err)
	}
	return nil
}

func (p *PostgresStorage) Close() error {
	p.pool.Close()
	return nil
}

// --- DoseRepository ---
const doseColumns = `id, user_id, batch_id, amount, timestamp, food_state, intention, effective_dose, carryover,
	sleep_hours, sleep_quality, stress_level, caffeine_mg, caffeine_timing, environment, cannabis, cycle_day,
	exercise, notes, tags, created_at`

func (p *PostgresStorage) SaveDose(ctx context.Context, d *internal.DoseLog) error {
	var timing *string
	if d.CaffeineTiming != nil {
		t := string(*d.CaffeineTiming)
		timing = &t
	}
	tags := d.Tags
	if tags == nil {
		tags = []string{}
	}
	_, err := p.pool.Exec(ctx, `INSERT INTO dose_logs (`+doseColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
		ON CONFLICT (id) DO UPDATE SET amount = EXCLUDED.amount, effective_dose = EXCLUDED.effective_dose,
			carryover = EXCLUDED.carryover, notes = EXCLUDED.notes, tags = EXCLUDED.tags`,
		d.ID, d.UserID, d.BatchID, d.Amount, d.Timestamp, string(d.FoodState), d.Intention, d.EffectiveDose, d.Carryover,
		d.SleepHours, d.SleepQuality, d.StressLevel, d.CaffeineMg, timing, d.Environment, d.Cannabis, d.CycleDay,
		d.Exercise, d.Notes, tags, d.CreatedAt)
	if err != nil {
		p.logger.Errorf("failed to insert dose log: %v", err)
		return fmt.Errorf("storage: save dose: %w", err)
	}
	return nil
}

func (p *PostgresStorage) ListDoses(ctx context.Context, userID string) ([]internal.DoseLog, error) {
	return p.ListDosesSince(ctx, userID, time.Time{})
}

func (p *PostgresStorage) ListDosesSince(ctx context.Context, userID string, since time.Time) ([]internal.DoseLog, error) {
	rows, err := p.pool.Query(ctx, `SELECT `+doseColumns+` FROM dose_logs
		WHERE user_id = $1 AND timestamp >= $2 ORDER BY timestamp DESC, id DESC`, userID, since)
	if err != nil {
		p.logger.Errorf("failed to query dose logs: %v", err)
		return nil, fmt.Errorf("storage: list doses: %w", err)
	}
	defer rows.Close()

	doses := []internal.DoseLog{}
	for rows.Next() {
		var (
			d      internal.DoseLog
			food   string
			timing *string
		)
		err := rows.Scan(&d.ID, &d.UserID, &d.BatchID, &d.Amount, &d.Timestamp, &food, &d.Intention, &d.EffectiveDose, &d.Carryover,
			&d.SleepHours, &d.SleepQuality, &d.StressLevel, &d.CaffeineMg, &timing, &d.Environment, &d.Cannabis, &d.CycleDay,
			&d.Exercise, &d.Notes, &d.Tags, &d.CreatedAt)
		if err != nil {
			p.logger.Errorf("failed to scan dose log: %v", err)
			return nil, fmt.Errorf("storage: scan dose: %w", err)
		}
		d.FoodState = internal.FoodState(food)
		if timing != nil {
			t := internal.CaffeineTiming(*timing)
			d.CaffeineTiming = &t
		}
		doses = append(doses, d)
	}
	return doses, rows.Err()
}

// --- CheckInRepository ---
func (p *PostgresStorage) SaveCheckIn(ctx context.Context, c *internal.CheckIn) error {
	bodyMap := c.BodyMap
	if bodyMap == nil {
		bodyMap = []string{}
	}
	_, err := p.pool.Exec(ctx, `INSERT INTO check_ins (id, user_id, dose_id, timestamp, phase, load, noise, schedule,
			energy, clarity, stability, body_map, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (id) DO NOTHING`,
		c.ID, c.UserID, c.DoseID, c.Timestamp, string(c.Phase),
		string(c.Conditions.Load), string(c.Conditions.Noise), string(c.Conditions.Schedule),
		c.Signals.Energy, c.Signals.Clarity, c.Signals.Stability, bodyMap, c.Notes, c.CreatedAt)
	if err != nil {
		p.logger.Errorf("failed to insert check-in: %v", err)
		return fmt.Errorf("storage: save check-in: %w", err)
	}
	return nil
}

func (p *PostgresStorage) ListCheckIns(ctx context.Context, userID string) ([]internal.CheckIn, error) {
	rows, err := p.pool.Query(ctx, `SELECT id, user_id, dose_id, timestamp, phase, load, noise, schedule,
			energy, clarity, stability, body_map, notes, created_at
		FROM check_ins WHERE user_id = $1 ORDER BY timestamp DESC, id DESC`, userID)
	if err != nil {
		p.logger.Errorf("failed to query check-ins: %v", err)
		return nil, fmt.Errorf("storage: list check-ins: %w", err)
	}
	defer rows.Close()

	checkIns := []internal.CheckIn{}
	for rows.Next() {
		var (
			c                     internal.CheckIn
			phase                 string
			load, noise, schedule string
		)
		err := rows.Scan(&c.ID, &c.UserID, &c.DoseID, &c.Timestamp, &phase, &load, &noise, &schedule,
			&c.Signals.Energy, &c.Signals.Clarity, &c.Signals.Stability, &c.BodyMap, &c.Notes, &c.CreatedAt)
		if err != nil {
			p.logger.Errorf("failed to scan check-in: %v", err)
			return nil, fmt.Errorf("storage: scan check-in: %w", err)
		}
		c.Phase = internal.Phase(phase)
		c.Conditions = internal.Conditions{
			Load:     internal.ConditionLevel(load),
			Noise:    internal.ConditionLevel(noise),
			Schedule: internal.ConditionLevel(schedule),
		}
		checkIns = append(checkIns, c)
	}
	return checkIns, rows.Err()
}

// --- BatchRepository ---
func (p *PostgresStorage) SaveBatch(ctx context.Context, b *internal.Batch) error {
	_, err := p.pool.Exec(ctx, `INSERT INTO batches (id, user_id, name, substance, is_active, doses_logged, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, is_active = EXCLUDED.is_active`,
		b.ID, b.UserID, b.Name, string(b.Substance), b.IsActive, b.DosesLogged, b.CreatedAt)
	if err != nil {
		p.logger.Errorf("failed to insert batch: %v", err)
		return fmt.Errorf("storage: save batch: %w", err)
	}
	return nil
}

func scanBatch(row pgx.Row) (*internal.Batch, error) {
	var (
		b         internal.Batch
		substance string
	)
	if err := row.Scan(&b.ID, &b.UserID, &b.Name, &substance, &b.IsActive, &b.DosesLogged, &b.CreatedAt); err != nil {
		return nil, err
	}
	b.Substance = internal.Substance(substance)
	return &b, nil
}

func (p *PostgresStorage) GetBatch(ctx context.Context, userID, id string) (*internal.Batch, error) {
	row := p.pool.QueryRow(ctx, `SELECT id, user_id, name, substance, is_active, doses_logged, created_at
		FROM batches WHERE id = $1 AND user_id = $2`, id, userID)
	b, err := scanBatch(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		p.logger.Errorf("failed to get batch: %v", err)
		return nil, fmt.Errorf("storage: get batch: %w", err)
	}
	return b, nil
}

func (p *PostgresStorage) ListBatches(ctx context.Context, userID string) ([]internal.Batch, error) {
	rows, err := p.pool.Query(ctx, `SELECT id, user_id, name, substance, is_active, doses_logged, created_at
		FROM batches WHERE user_id = $1 ORDER BY created_at DESC, id`, userID)
	if err != nil {
		p.logger.Errorf("failed to query batches: %v", err)
		return nil, fmt.Errorf("storage: list batches: %w", err)
	}
	defer rows.Close()

	batches := []internal.Batch{}
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			p.logger.Errorf("failed to scan batch: %v", err)
			return nil, fmt.Errorf("storage: scan batch: %w", err)
		}
		batches = append(batches, *b)
	}
	return batches, rows.Err()
}

func (p *PostgresStorage) IncrementBatchDoses(ctx context.Context, userID, id string) error {
	tag, err := p.pool.Exec(ctx, `UPDATE batches SET doses_logged = doses_logged + 1 WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		p.logger.Errorf("failed to increment batch doses: %v", err)
		return fmt.Errorf("storage: increment batch: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- UserRepository ---
const userColumns = `id, COALESCE(token, ''), name, email, sensitivity, primary_substance, north_star,
	guidance_level, menstrual_tracking, cycle_day, created_at`

func (p *PostgresStorage) SaveUser(ctx context.Context, u *internal.User) error {
	var token *string
	if u.Token != "" {
		token = &u.Token
	}
	_, err := p.pool.Exec(ctx, `INSERT INTO users (id, token, name, email, sensitivity, primary_substance, north_star,
			guidance_level, menstrual_tracking, cycle_day, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET token = EXCLUDED.token, name = EXCLUDED.name, email = EXCLUDED.email,
			sensitivity = EXCLUDED.sensitivity, primary_substance = EXCLUDED.primary_substance,
			north_star = EXCLUDED.north_star, guidance_level = EXCLUDED.guidance_level,
			menstrual_tracking = EXCLUDED.menstrual_tracking, cycle_day = EXCLUDED.cycle_day`,
		u.ID, token, u.Name, u.Email, u.Sensitivity, string(u.PrimarySubstance), u.NorthStar,
		u.GuidanceLevel, u.MenstrualTracking, u.CycleDay, u.CreatedAt)
	if err != nil {
		p.logger.Errorf("failed to upsert user: %v", err)
		return fmt.Errorf("storage: save user: %w", err)
	}
	return nil
}

func (p *PostgresStorage) scanUser(row pgx.Row) (*internal.User, error) {
	var (
		u         internal.User
		substance string
	)
	err := row.Scan(&u.ID, &u.Token, &u.Name, &u.Email, &u.Sensitivity, &substance, &u.NorthStar,
		&u.GuidanceLevel, &u.MenstrualTracking, &u.CycleDay, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		p.logger.Errorf("failed to scan user: %v", err)
		return nil, fmt.Errorf("storage: scan user: %w", err)
	}
	u.PrimarySubstance = internal.Substance(substance)
	return &u, nil
}

func (p *PostgresStorage) GetUser(ctx context.Context, id string) (*internal.User, error) {
	return p.scanUser(p.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (p *PostgresStorage) GetUserByToken(ctx context.Context, token string) (*internal.User, error) {
	if token == "" {
		return nil, ErrNotFound
	}
	return p.scanUser(p.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE token = $1`, token))
}

// --- Compile-time assertions ---
var _ DoseRepository = (*PostgresStorage)(nil)
var _ CheckInRepository = (*PostgresStorage)(nil)
var _ BatchRepository = (*PostgresStorage)(nil)
var _ UserRepository = (*PostgresStorage)(nil)
