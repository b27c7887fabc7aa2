package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mselser95/auction-engine/pkg/types"
)

//go:embed schema.sql
var schemaSQL string

// PostgresStore implements Store using PostgreSQL. All conditional
// transitions are single UPDATE statements guarded by the expected prior
// state, so atomicity comes from the database rather than process-local
// locks.
type PostgresStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// PostgresConfig holds PostgreSQL configuration.
type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	SSLMode  string
	Logger   *zap.Logger
}

// NewPostgresStore connects to PostgreSQL and ensures the schema exists.
func NewPostgresStore(cfg *PostgresConfig) (*PostgresStore, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	err = db.Ping()
	if err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	_, err = db.Exec(schemaSQL)
	if err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	cfg.Logger.Info("postgres-store-connected",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Database))

	return &PostgresStore{
		db:     db,
		logger: cfg.Logger,
	}, nil
}

// NewPostgresStoreWithDB wraps an existing connection (used by tests).
func NewPostgresStoreWithDB(db *sql.DB, logger *zap.Logger) *PostgresStore {
	return &PostgresStore{db: db, logger: logger}
}

const listingColumns = `id, title, start_price, reserve_price, auction_start_at,
	decay_duration_ms, status, auction_state_version, created_at`

// CreateListing inserts a listing.
func (p *PostgresStore) CreateListing(ctx context.Context, l *types.Listing) error {
	query := `
		INSERT INTO listings (
			id, title, start_price, reserve_price, auction_start_at,
			decay_duration_ms, status, auction_state_version, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := p.db.ExecContext(ctx, query,
		l.ID,
		l.Title,
		l.StartPrice.String(),
		l.ReservePrice.String(),
		l.AuctionStartAt,
		l.DecayDuration.Milliseconds(),
		string(l.Status),
		l.AuctionStateVersion,
		l.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert listing: %w", err)
	}

	return nil
}

// GetListing fetches a listing by ID.
func (p *PostgresStore) GetListing(ctx context.Context, id string) (*types.Listing, error) {
	row := p.db.QueryRowContext(ctx,
		`SELECT `+listingColumns+` FROM listings WHERE id = $1`, id)

	return scanListing(row)
}

// MarkListingSold transitions ACTIVE -> SOLD idempotently.
func (p *PostgresStore) MarkListingSold(ctx context.Context, id string) error {
	res, err := p.db.ExecContext(ctx,
		`UPDATE listings SET status = 'SOLD' WHERE id = $1 AND status IN ('ACTIVE', 'SOLD')`, id)
	if err != nil {
		return fmt.Errorf("mark listing sold: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark listing sold: rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("mark listing sold %s: %w", id, ErrConflict)
	}

	return nil
}

// MarkListingEnded transitions ACTIVE -> ENDED. Zero rows means another
// caller already moved the listing out of ACTIVE, which is fine.
func (p *PostgresStore) MarkListingEnded(ctx context.Context, id string) error {
	_, err := p.db.ExecContext(ctx,
		`UPDATE listings SET status = 'ENDED' WHERE id = $1 AND status = 'ACTIVE'`, id)
	if err != nil {
		return fmt.Errorf("mark listing ended: %w", err)
	}

	return nil
}

// ResetListingAuction rewinds the auction clock and bumps the state version.
func (p *PostgresStore) ResetListingAuction(ctx context.Context, id string, startAt time.Time) (*types.Listing, error) {
	row := p.db.QueryRowContext(ctx, `
		UPDATE listings
		SET auction_start_at = $2,
			status = 'ACTIVE',
			auction_state_version = auction_state_version + 1
		WHERE id = $1
		RETURNING `+listingColumns,
		id, startAt)

	return scanListing(row)
}

// InsertNonce persists a freshly issued price nonce.
func (p *PostgresStore) InsertNonce(ctx context.Context, n *types.PriceNonce) error {
	query := `
		INSERT INTO price_nonces (
			id, token, listing_id, quoted_price, auction_state_version,
			quoted_at, expires_at, consumed
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := p.db.ExecContext(ctx, query,
		n.ID,
		n.Token,
		n.ListingID,
		n.QuotedPrice.String(),
		n.AuctionStateVersion,
		n.QuotedAt,
		n.ExpiresAt,
		n.Consumed,
	)
	if err != nil {
		return fmt.Errorf("insert nonce: %w", err)
	}

	return nil
}

// GetNonceByToken reads a nonce without consuming it.
func (p *PostgresStore) GetNonceByToken(ctx context.Context, token string) (*types.PriceNonce, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT id, token, listing_id, quoted_price, auction_state_version,
			quoted_at, expires_at, consumed
		FROM price_nonces WHERE token = $1`,
		token)

	return scanNonce(row)
}

// ConsumeNonce is the atomic check-and-flip over (consumed, expires_at).
func (p *PostgresStore) ConsumeNonce(ctx context.Context, token string, now time.Time) (*types.PriceNonce, error) {
	row := p.db.QueryRowContext(ctx, `
		UPDATE price_nonces
		SET consumed = TRUE
		WHERE token = $1 AND consumed = FALSE AND expires_at >= $2
		RETURNING id, token, listing_id, quoted_price, auction_state_version,
			quoted_at, expires_at, consumed`,
		token, now)

	n, err := scanNonce(row)
	if err != nil {
		return nil, err
	}

	return n, nil
}

// DeleteExpiredNonces removes unconsumed nonces past their TTL.
func (p *PostgresStore) DeleteExpiredNonces(ctx context.Context, now time.Time) (int64, error) {
	res, err := p.db.ExecContext(ctx,
		`DELETE FROM price_nonces WHERE consumed = FALSE AND expires_at < $1`, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired nonces: %w", err)
	}

	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete expired nonces: rows affected: %w", err)
	}

	return deleted, nil
}

// InsertIntent persists a freshly validated buy intent.
func (p *PostgresStore) InsertIntent(ctx context.Context, i *types.BuyIntent) error {
	query := `
		INSERT INTO buy_intents (
			id, listing_id, wallet_address, client_price, quote_hash,
			status, claimed_by, failure_reason, created_at, expires_at
		) VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), NULLIF($8, ''), $9, $10)
	`

	_, err := p.db.ExecContext(ctx, query,
		i.ID,
		i.ListingID,
		i.WalletAddress,
		i.ClientPrice.String(),
		i.QuoteHash,
		string(i.Status),
		i.ClaimedBy,
		i.FailureReason,
		i.CreatedAt,
		i.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("insert intent: %w", err)
	}

	return nil
}

const intentColumns = `id, listing_id, wallet_address, client_price, quote_hash,
	status, COALESCE(claimed_by, ''), COALESCE(failure_reason, ''), created_at, expires_at`

// GetIntent fetches an intent by ID.
func (p *PostgresStore) GetIntent(ctx context.Context, id string) (*types.BuyIntent, error) {
	row := p.db.QueryRowContext(ctx,
		`SELECT `+intentColumns+` FROM buy_intents WHERE id = $1`, id)

	return scanIntent(row)
}

// ClaimNextIntent claims the oldest eligible QUEUED intent.
// FOR UPDATE SKIP LOCKED keeps concurrent claimants from blocking on or
// double-claiming the same row.
func (p *PostgresStore) ClaimNextIntent(ctx context.Context, workerID string, now time.Time) (*types.BuyIntent, error) {
	row := p.db.QueryRowContext(ctx, `
		UPDATE buy_intents
		SET status = 'SUBMITTED', claimed_by = $1
		WHERE id = (
			SELECT bi.id
			FROM buy_intents bi
			JOIN listings l ON l.id = bi.listing_id
			WHERE bi.status = 'QUEUED'
				AND bi.expires_at > $2
				AND l.status = 'ACTIVE'
			ORDER BY bi.created_at
			FOR UPDATE OF bi SKIP LOCKED
			LIMIT 1
		)
		RETURNING `+intentColumns,
		workerID, now)

	i, err := scanIntent(row)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrNoClaimableIntent
	}
	if err != nil {
		return nil, err
	}

	return i, nil
}

// FinalizeIntent transitions SUBMITTED -> CONFIRMED/FAILED.
func (p *PostgresStore) FinalizeIntent(ctx context.Context, id string, status types.IntentStatus, reason string) error {
	if !status.Terminal() {
		return fmt.Errorf("finalize intent %s to non-terminal status %s: %w", id, status, ErrConflict)
	}

	res, err := p.db.ExecContext(ctx, `
		UPDATE buy_intents
		SET status = $2, failure_reason = NULLIF($3, '')
		WHERE id = $1 AND status = 'SUBMITTED'`,
		id, string(status), reason)
	if err != nil {
		return fmt.Errorf("finalize intent: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finalize intent: rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("finalize intent %s: %w", id, ErrConflict)
	}

	return nil
}

// ExpireQueuedIntents sweeps expired QUEUED intents into FAILED.
func (p *PostgresStore) ExpireQueuedIntents(ctx context.Context, now time.Time) ([]*types.BuyIntent, error) {
	rows, err := p.db.QueryContext(ctx, `
		UPDATE buy_intents
		SET status = 'FAILED', failure_reason = 'expired before claim'
		WHERE status = 'QUEUED' AND expires_at <= $1
		RETURNING `+intentColumns,
		now)
	if err != nil {
		return nil, fmt.Errorf("expire queued intents: %w", err)
	}
	defer rows.Close()

	var expired []*types.BuyIntent
	for rows.Next() {
		i, err := scanIntent(rows)
		if err != nil {
			return nil, err
		}
		expired = append(expired, i)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("expire queued intents: %w", err)
	}

	return expired, nil
}

// CountStuckSubmitted counts SUBMITTED intents older than the cutoff.
func (p *PostgresStore) CountStuckSubmitted(ctx context.Context, cutoff time.Time) (int64, error) {
	var count int64
	err := p.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM buy_intents WHERE status = 'SUBMITTED' AND created_at < $1`,
		cutoff).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count stuck submitted: %w", err)
	}

	return count, nil
}

// InsertSettlementRecord appends a settlement receipt. The UNIQUE constraint
// on intent_id enforces at most one record per intent.
func (p *PostgresStore) InsertSettlementRecord(ctx context.Context, r *types.SettlementRecord) error {
	query := `
		INSERT INTO settlement_records (
			id, intent_id, listing_id, tx_hash, final_price,
			currency, status, failure_reason, created_at
		) VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7, NULLIF($8, ''), $9)
	`

	_, err := p.db.ExecContext(ctx, query,
		r.ID,
		r.IntentID,
		r.ListingID,
		r.TxHash,
		r.FinalPrice.String(),
		r.Currency,
		string(r.Status),
		r.FailureReason,
		r.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert settlement record: %w", err)
	}

	return nil
}

// GetSettlementRecordByIntent fetches the receipt for an intent.
func (p *PostgresStore) GetSettlementRecordByIntent(ctx context.Context, intentID string) (*types.SettlementRecord, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT id, intent_id, listing_id, COALESCE(tx_hash, ''), final_price,
			currency, status, COALESCE(failure_reason, ''), created_at
		FROM settlement_records WHERE intent_id = $1`,
		intentID)

	var (
		r          types.SettlementRecord
		finalPrice string
		status     string
	)
	err := row.Scan(&r.ID, &r.IntentID, &r.ListingID, &r.TxHash, &finalPrice,
		&r.Currency, &status, &r.FailureReason, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan settlement record: %w", err)
	}

	r.FinalPrice, err = decimal.NewFromString(finalPrice)
	if err != nil {
		return nil, fmt.Errorf("parse final price: %w", err)
	}
	r.Status = types.SettlementStatus(status)

	return &r, nil
}

// Ping reports database reachability.
func (p *PostgresStore) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

// Close closes the database connection.
func (p *PostgresStore) Close() error {
	p.logger.Info("closing-postgres-store")
	return p.db.Close()
}

// scanner abstracts *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanListing(row scanner) (*types.Listing, error) {
	var (
		l          types.Listing
		start      string
		reserve    string
		durationMs int64
		status     string
	)

	err := row.Scan(&l.ID, &l.Title, &start, &reserve, &l.AuctionStartAt,
		&durationMs, &status, &l.AuctionStateVersion, &l.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan listing: %w", err)
	}

	l.StartPrice, err = decimal.NewFromString(start)
	if err != nil {
		return nil, fmt.Errorf("parse start price: %w", err)
	}
	l.ReservePrice, err = decimal.NewFromString(reserve)
	if err != nil {
		return nil, fmt.Errorf("parse reserve price: %w", err)
	}
	l.DecayDuration = time.Duration(durationMs) * time.Millisecond
	l.Status = types.ListingStatus(status)

	return &l, nil
}

func scanNonce(row scanner) (*types.PriceNonce, error) {
	var (
		n      types.PriceNonce
		quoted string
	)

	err := row.Scan(&n.ID, &n.Token, &n.ListingID, &quoted, &n.AuctionStateVersion,
		&n.QuotedAt, &n.ExpiresAt, &n.Consumed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan nonce: %w", err)
	}

	n.QuotedPrice, err = decimal.NewFromString(quoted)
	if err != nil {
		return nil, fmt.Errorf("parse quoted price: %w", err)
	}

	return &n, nil
}

func scanIntent(row scanner) (*types.BuyIntent, error) {
	var (
		i      types.BuyIntent
		price  string
		status string
	)

	err := row.Scan(&i.ID, &i.ListingID, &i.WalletAddress, &price, &i.QuoteHash,
		&status, &i.ClaimedBy, &i.FailureReason, &i.CreatedAt, &i.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan intent: %w", err)
	}

	i.ClientPrice, err = decimal.NewFromString(price)
	if err != nil {
		return nil, fmt.Errorf("parse client price: %w", err)
	}
	i.Status = types.IntentStatus(status)

	return &i, nil
}
