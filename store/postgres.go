package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/seatsniper/engine/model"
)

// Postgres is the authoritative Store implementation. Every table is
// created idempotently by Init; additive schema changes must land as
// further "ALTER TABLE ... ADD COLUMN IF NOT EXISTS" statements appended
// to the same migration list, never by editing an existing CREATE TABLE.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres connects to dsn and returns a Postgres store. It does not
// run migrations; call Init for that.
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

func (p *Postgres) Close() { p.pool.Close() }

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS subscriptions (
		user_id TEXT NOT NULL,
		channel TEXT NOT NULL,
		cities TEXT[] NOT NULL DEFAULT '{}',
		min_score INT NOT NULL DEFAULT 70,
		min_quantity INT NOT NULL DEFAULT 1,
		max_price_per_ticket DOUBLE PRECISION NOT NULL DEFAULT 0,
		keywords TEXT[] NOT NULL DEFAULT '{}',
		categories TEXT[] NOT NULL DEFAULT '{}',
		active BOOLEAN NOT NULL DEFAULT TRUE,
		paused BOOLEAN NOT NULL DEFAULT FALSE,
		user_tier TEXT NOT NULL DEFAULT 'free',
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (user_id, channel)
	)`,
	`CREATE TABLE IF NOT EXISTS price_history (
		id BIGSERIAL PRIMARY KEY,
		event_id TEXT NOT NULL,
		section TEXT NOT NULL,
		avg_price DOUBLE PRECISION NOT NULL,
		low_price DOUBLE PRECISION NOT NULL,
		high_price DOUBLE PRECISION NOT NULL,
		listing_count INT NOT NULL,
		recorded_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_price_history_event_section_time
		ON price_history (event_id, section, recorded_at DESC)`,
	`CREATE TABLE IF NOT EXISTS alert_history (
		id BIGSERIAL PRIMARY KEY,
		alert_id TEXT NOT NULL UNIQUE,
		event_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		sent_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		top_score INT NOT NULL,
		channel TEXT NOT NULL,
		success BOOLEAN NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_alert_history_event_user_time
		ON alert_history (event_id, user_id, sent_at DESC)`,
	`CREATE TABLE IF NOT EXISTS event_groups (
		group_id TEXT PRIMARY KEY,
		canonical_name TEXT NOT NULL,
		venue_name TEXT NOT NULL,
		event_date TIMESTAMPTZ NOT NULL,
		confidence INT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS event_group_members (
		group_id TEXT NOT NULL REFERENCES event_groups(group_id) ON DELETE CASCADE,
		platform TEXT NOT NULL,
		platform_event_id TEXT NOT NULL,
		UNIQUE (group_id, platform),
		UNIQUE (platform, platform_event_id)
	)`,
	`CREATE TABLE IF NOT EXISTS watchlist (
		user_id TEXT NOT NULL,
		platform TEXT NOT NULL,
		platform_event_id TEXT NOT NULL,
		event_name TEXT NOT NULL,
		last_seen_price DOUBLE PRECISION NOT NULL DEFAULT 0,
		added_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (user_id, platform, platform_event_id)
	)`,
}

// Init runs every migration in order. Each statement is idempotent, so
// calling Init on every boot is safe.
func (p *Postgres) Init(ctx context.Context) error {
	for _, stmt := range migrations {
		if _, err := p.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("running migration: %w", err)
		}
	}
	return nil
}

func (p *Postgres) UpsertSubscription(ctx context.Context, sub model.Subscription) error {
	categories := make([]string, len(sub.Categories))
	for i, c := range sub.Categories {
		categories[i] = string(c)
	}
	_, err := p.pool.Exec(ctx, `
		INSERT INTO subscriptions (user_id, channel, cities, min_score, min_quantity,
			max_price_per_ticket, keywords, categories, active, paused, user_tier, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11, now())
		ON CONFLICT (user_id, channel) DO UPDATE SET
			cities = EXCLUDED.cities,
			min_score = EXCLUDED.min_score,
			min_quantity = EXCLUDED.min_quantity,
			max_price_per_ticket = EXCLUDED.max_price_per_ticket,
			keywords = EXCLUDED.keywords,
			categories = EXCLUDED.categories,
			active = EXCLUDED.active,
			paused = EXCLUDED.paused,
			user_tier = EXCLUDED.user_tier,
			updated_at = now()`,
		sub.UserID, string(sub.Channel), sub.Cities, sub.MinScore, sub.MinQuantity,
		sub.MaxPricePerTicket, sub.Keywords, categories, sub.Active, sub.Paused, string(sub.UserTier))
	if err != nil {
		return fmt.Errorf("upserting subscription: %w", err)
	}
	return nil
}

func (p *Postgres) DeactivateSubscription(ctx context.Context, userID string, channel model.Channel) error {
	tag, err := p.pool.Exec(ctx,
		`UPDATE subscriptions SET active = FALSE, updated_at = now() WHERE user_id = $1 AND channel = $2`,
		userID, string(channel))
	if err != nil {
		return fmt.Errorf("deactivating subscription: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) ListActiveSubscriptions(ctx context.Context) ([]model.Subscription, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT user_id, channel, cities, min_score, min_quantity, max_price_per_ticket,
			keywords, categories, active, paused, user_tier
		FROM subscriptions WHERE active = TRUE`)
	if err != nil {
		return nil, fmt.Errorf("listing active subscriptions: %w", err)
	}
	defer rows.Close()

	var out []model.Subscription
	for rows.Next() {
		var sub model.Subscription
		var channel, userTier string
		var categories []string
		if err := rows.Scan(&sub.UserID, &channel, &sub.Cities, &sub.MinScore, &sub.MinQuantity,
			&sub.MaxPricePerTicket, &sub.Keywords, &categories, &sub.Active, &sub.Paused, &userTier); err != nil {
			return nil, fmt.Errorf("scanning subscription row: %w", err)
		}
		sub.Channel = model.Channel(channel)
		sub.UserTier = model.UserTier(userTier)
		for _, c := range categories {
			sub.Categories = append(sub.Categories, model.Category(c))
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}

func (p *Postgres) RecordPriceSnapshot(ctx context.Context, snap model.HistoricalPrice) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO price_history (event_id, section, avg_price, low_price, high_price, listing_count, recorded_at)
		VALUES ($1,$2,$3,$4,$5,$6, to_timestamp($7))`,
		snap.EventID, snap.Section, snap.AveragePrice, snap.LowestPrice, snap.HighestPrice,
		snap.ListingCount, snap.RecordedAt)
	if err != nil {
		return fmt.Errorf("recording price snapshot: %w", err)
	}
	return nil
}

func (p *Postgres) HistoricalPrices(ctx context.Context, eventID, section string, limit int) ([]model.HistoricalPrice, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := p.pool.Query(ctx, `
		SELECT event_id, section, avg_price, low_price, high_price, listing_count, extract(epoch from recorded_at)
		FROM price_history
		WHERE event_id = $1 AND ($2 = '' OR section = $2)
		ORDER BY recorded_at DESC
		LIMIT $3`, eventID, section, limit)
	if err != nil {
		return nil, fmt.Errorf("querying historical prices: %w", err)
	}
	defer rows.Close()

	var out []model.HistoricalPrice
	for rows.Next() {
		var h model.HistoricalPrice
		var recordedAt float64
		if err := rows.Scan(&h.EventID, &h.Section, &h.AveragePrice, &h.LowestPrice, &h.HighestPrice,
			&h.ListingCount, &recordedAt); err != nil {
			return nil, fmt.Errorf("scanning historical price row: %w", err)
		}
		h.RecordedAt = int64(recordedAt)
		out = append(out, h)
	}
	return out, rows.Err()
}

// RecordAlert is idempotent on AlertID: a retried delivery that reuses the
// same alert ID is a no-op rather than a duplicate ledger entry.
func (p *Postgres) RecordAlert(ctx context.Context, a model.AlertRecord) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO alert_history (alert_id, event_id, user_id, sent_at, top_score, channel, success)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (alert_id) DO NOTHING`,
		a.AlertID, a.EventID, a.UserID, a.SentAt, a.TopScore, string(a.Channel), a.Success)
	if err != nil {
		return fmt.Errorf("recording alert: %w", err)
	}
	return nil
}

func (p *Postgres) LastSuccessfulAlert(ctx context.Context, eventID, userID string) (model.AlertRecord, error) {
	var a model.AlertRecord
	var channel string
	err := p.pool.QueryRow(ctx, `
		SELECT alert_id, event_id, user_id, sent_at, top_score, channel, success
		FROM alert_history
		WHERE event_id = $1 AND user_id = $2 AND success = TRUE
		ORDER BY sent_at DESC LIMIT 1`, eventID, userID).
		Scan(&a.AlertID, &a.EventID, &a.UserID, &a.SentAt, &a.TopScore, &channel, &a.Success)
	if err == pgx.ErrNoRows {
		return model.AlertRecord{}, ErrNotFound
	}
	if err != nil {
		return model.AlertRecord{}, fmt.Errorf("querying last alert: %w", err)
	}
	a.Channel = model.Channel(channel)
	return a, nil
}

func (p *Postgres) UpsertEventGroup(ctx context.Context, g model.EventMatch) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning event group upsert: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO event_groups (group_id, canonical_name, venue_name, event_date, confidence)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (group_id) DO UPDATE SET confidence = EXCLUDED.confidence`,
		g.GroupID, g.CanonicalName, g.VenueName, g.EventDate, g.Confidence)
	if err != nil {
		return fmt.Errorf("upserting event group: %w", err)
	}

	for platform, ev := range g.Events {
		_, err = tx.Exec(ctx, `
			INSERT INTO event_group_members (group_id, platform, platform_event_id)
			VALUES ($1,$2,$3)
			ON CONFLICT (platform, platform_event_id) DO UPDATE SET group_id = EXCLUDED.group_id`,
			g.GroupID, platform, ev.PlatformID)
		if err != nil {
			return fmt.Errorf("upserting event group member: %w", err)
		}
	}
	return tx.Commit(ctx)
}

func (p *Postgres) AddWatchlistEntry(ctx context.Context, e WatchlistEntry) error {
	if e.AddedAt.IsZero() {
		e.AddedAt = time.Now().UTC()
	}
	_, err := p.pool.Exec(ctx, `
		INSERT INTO watchlist (user_id, platform, platform_event_id, event_name, last_seen_price, added_at)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (user_id, platform, platform_event_id) DO UPDATE SET
			last_seen_price = EXCLUDED.last_seen_price`,
		e.UserID, e.Platform, e.PlatformEventID, e.EventName, e.LastSeenPrice, e.AddedAt)
	if err != nil {
		return fmt.Errorf("adding watchlist entry: %w", err)
	}
	return nil
}

func (p *Postgres) RemoveWatchlistEntry(ctx context.Context, userID, platform, platformEventID string) error {
	tag, err := p.pool.Exec(ctx,
		`DELETE FROM watchlist WHERE user_id = $1 AND platform = $2 AND platform_event_id = $3`,
		userID, platform, platformEventID)
	if err != nil {
		return fmt.Errorf("removing watchlist entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) ListWatchlist(ctx context.Context, userID string) ([]WatchlistEntry, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT user_id, platform, platform_event_id, event_name, last_seen_price, added_at
		FROM watchlist WHERE user_id = $1 ORDER BY added_at ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing watchlist: %w", err)
	}
	defer rows.Close()

	var out []WatchlistEntry
	for rows.Next() {
		var e WatchlistEntry
		if err := rows.Scan(&e.UserID, &e.Platform, &e.PlatformEventID, &e.EventName, &e.LastSeenPrice, &e.AddedAt); err != nil {
			return nil, fmt.Errorf("scanning watchlist row: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
