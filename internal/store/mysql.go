// Package store persists seats and purchase records in MySQL.  The catalog in
// memory stays authoritative at runtime; mutators write through here so state
// survives a restart.  Holds reloaded at boot are re-validated against the
// wall clock by the caller — an expired hold must never come back as active.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"github.com/iliyamo/concert-seat-selection/internal/model"
)

// Open connects to MySQL and verifies the connection.
func Open(user, pass, host, port, name string) (*sql.DB, error) {
	auth := user
	if pass != "" {
		auth = fmt.Sprintf("%s:%s", user, pass)
	}
	// parseTime=true -> DATETIME -> time.Time | loc=UTC keeps times consistent
	dsn := fmt.Sprintf("%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true&loc=UTC",
		auth, host, port, name)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return db, nil
}

// SeatStore provides data access to the seats and purchases tables.
type SeatStore struct {
	db *sql.DB
}

// NewSeatStore returns a SeatStore bound to the provided database.
func NewSeatStore(db *sql.DB) *SeatStore { return &SeatStore{db: db} }

// EnsureSchema creates the backing tables when they do not exist yet.
func (s *SeatStore) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS seats (
			seat_id         VARCHAR(64) PRIMARY KEY,
			floor           INT NOT NULL,
			excel_row       INT NOT NULL,
			excel_col       INT NOT NULL,
			layout_row      INT NULL,
			layout_col      INT NULL,
			zone            VARCHAR(64) NOT NULL,
			tier            VARCHAR(32) NULL,
			price           INT NOT NULL DEFAULT 0,
			status          VARCHAR(16) NOT NULL,
			hold_client_id  VARCHAR(128) NULL,
			hold_expires_at DATETIME(3) NULL,
			updated_at      DATETIME(3) NOT NULL,
			INDEX idx_seats_floor (floor)
		)`,
		`CREATE TABLE IF NOT EXISTS purchases (
			request_id VARCHAR(128) PRIMARY KEY,
			client_id  VARCHAR(128) NOT NULL,
			confirmed  TEXT NOT NULL,
			skipped    TEXT NOT NULL,
			created_at DATETIME(3) NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS purchase_items (
			id         BIGINT AUTO_INCREMENT PRIMARY KEY,
			request_id VARCHAR(128) NOT NULL,
			seat_id    VARCHAR(64) NOT NULL,
			price      INT NOT NULL,
			INDEX idx_purchase_items_request (request_id)
		)`,
	}
	for _, q := range stmts {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// SaveSeat upserts one seat including its hold columns.  Called from inside
// the seat's exclusive section, so writes for one seat never race.
func (s *SeatStore) SaveSeat(ctx context.Context, seat model.Seat) error {
	var holdClient sql.NullString
	var holdExpires sql.NullTime
	if seat.Hold != nil {
		holdClient = sql.NullString{String: seat.Hold.ClientID, Valid: true}
		holdExpires = sql.NullTime{Time: seat.Hold.ExpiresAt.UTC(), Valid: true}
	}
	var tier sql.NullString
	if seat.Tier != nil {
		tier = sql.NullString{String: *seat.Tier, Valid: true}
	}
	const q = `INSERT INTO seats
		(seat_id, floor, excel_row, excel_col, layout_row, layout_col, zone, tier, price, status, hold_client_id, hold_expires_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
		tier = VALUES(tier), price = VALUES(price), status = VALUES(status),
		hold_client_id = VALUES(hold_client_id), hold_expires_at = VALUES(hold_expires_at),
		updated_at = VALUES(updated_at)`
	_, err := s.db.ExecContext(ctx, q,
		seat.SeatID, seat.Floor, seat.ExcelRow, seat.ExcelCol,
		intPtrOrNull(seat.LayoutRow), intPtrOrNull(seat.LayoutCol),
		seat.Zone, tier, seat.Price, string(seat.Status),
		holdClient, holdExpires, seat.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("save seat %s: %w", seat.SeatID, err)
	}
	return nil
}

// LoadSeats returns every persisted seat as stored, holds included.  The
// caller decides what to do with holds whose expiry has already passed.
func (s *SeatStore) LoadSeats(ctx context.Context) ([]model.Seat, error) {
	const q = `SELECT seat_id, floor, excel_row, excel_col, layout_row, layout_col,
		zone, tier, price, status, hold_client_id, hold_expires_at, updated_at FROM seats`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("load seats: %w", err)
	}
	defer rows.Close()
	var seats []model.Seat
	for rows.Next() {
		var seat model.Seat
		var layoutRow, layoutCol sql.NullInt64
		var tier, holdClient sql.NullString
		var holdExpires sql.NullTime
		var status string
		if err := rows.Scan(&seat.SeatID, &seat.Floor, &seat.ExcelRow, &seat.ExcelCol,
			&layoutRow, &layoutCol, &seat.Zone, &tier, &seat.Price, &status,
			&holdClient, &holdExpires, &seat.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan seat: %w", err)
		}
		seat.Status = model.SeatStatus(status)
		if layoutRow.Valid {
			v := int(layoutRow.Int64)
			seat.LayoutRow = &v
		}
		if layoutCol.Valid {
			v := int(layoutCol.Int64)
			seat.LayoutCol = &v
		}
		if tier.Valid {
			v := tier.String
			seat.Tier = &v
		}
		if holdClient.Valid && holdExpires.Valid {
			seat.Hold = &model.HoldInfo{ClientID: holdClient.String, ExpiresAt: holdExpires.Time}
		}
		seats = append(seats, seat)
	}
	return seats, rows.Err()
}

// SavePurchase records a confirmation outcome and its priced items in one
// transaction.  A duplicate request id leaves the original row untouched,
// preserving the first outcome for replays.
func (s *SeatStore) SavePurchase(ctx context.Context, rec model.ConfirmationRecord, prices map[string]int) error {
	confirmed, err := json.Marshal(rec.Confirmed)
	if err != nil {
		return err
	}
	skipped, err := json.Marshal(rec.Skipped)
	if err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save purchase: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	res, err := tx.ExecContext(ctx,
		`INSERT IGNORE INTO purchases (request_id, client_id, confirmed, skipped, created_at) VALUES (?, ?, ?, ?, ?)`,
		rec.RequestID, rec.ClientID, string(confirmed), string(skipped), rec.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("save purchase %s: %w", rec.RequestID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		committed = true
		return tx.Commit() // replayed request id, keep the first outcome
	}
	for _, seatID := range rec.Confirmed {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO purchase_items (request_id, seat_id, price) VALUES (?, ?, ?)`,
			rec.RequestID, seatID, prices[seatID]); err != nil {
			return fmt.Errorf("save purchase item %s: %w", seatID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save purchase %s: %w", rec.RequestID, err)
	}
	committed = true
	return nil
}

// LoadPurchasesSince returns confirmation records created at or after the
// cutoff, used to reseed the idempotency window after a restart.
func (s *SeatStore) LoadPurchasesSince(ctx context.Context, cutoff time.Time) ([]model.ConfirmationRecord, error) {
	const q = `SELECT request_id, client_id, confirmed, skipped, created_at FROM purchases WHERE created_at >= ?`
	rows, err := s.db.QueryContext(ctx, q, cutoff.UTC())
	if err != nil {
		return nil, fmt.Errorf("load purchases: %w", err)
	}
	defer rows.Close()
	var records []model.ConfirmationRecord
	for rows.Next() {
		var rec model.ConfirmationRecord
		var confirmed, skipped string
		if err := rows.Scan(&rec.RequestID, &rec.ClientID, &confirmed, &skipped, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan purchase: %w", err)
		}
		if err := json.Unmarshal([]byte(confirmed), &rec.Confirmed); err != nil {
			return nil, fmt.Errorf("decode purchase %s: %w", rec.RequestID, err)
		}
		if err := json.Unmarshal([]byte(skipped), &rec.Skipped); err != nil {
			return nil, fmt.Errorf("decode purchase %s: %w", rec.RequestID, err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func intPtrOrNull(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}
