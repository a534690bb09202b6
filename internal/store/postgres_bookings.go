package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"menu-catalog-service/internal/domain"
)

const bookingColumns = `id, item_id, user_id, booking_date, start_time, end_time, quantity, status, created_at, updated_at`

// --- BookingStorer Implementation ---

func (s *PostgresStore) FindOverlapping(ctx context.Context, itemID int64, date time.Time, startTime, endTime string, excludeCancelled bool) ([]domain.Booking, error) {
	return findOverlapping(ctx, s.db, itemID, date, startTime, endTime, excludeCancelled)
}

func (s *PostgresStore) InsertBooking(ctx context.Context, booking *domain.Booking) (*domain.Booking, error) {
	return insertBooking(ctx, s.db, booking)
}

func (s *PostgresStore) GetBookingByID(ctx context.Context, id int64) (*domain.Booking, error) {
	return getBookingByID(ctx, s.db, id)
}

func (s *PostgresStore) UpdateBookingStatus(ctx context.Context, id int64, from, to domain.BookingStatus) (*domain.Booking, error) {
	return updateBookingStatus(ctx, s.db, id, from, to)
}

func (s *PostgresStore) ListBookings(ctx context.Context, params ListBookingsParams) ([]domain.Booking, int, error) {
	return listBookings(ctx, s.db, params)
}

// InTx runs fn inside a serializable transaction so a conflict-count read
// followed by an insert is indivisible with respect to concurrent callers.
// Serialization aborts (40001) and deadlocks (40P01) are reported as
// ErrTxConflict; everything else propagates unchanged.
func (s *PostgresStore) InTx(ctx context.Context, fn func(BookingStorer) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("store: InTx failed to begin transaction: %w", err)
	}

	if err := fn(&txBookingStore{tx: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return fmt.Errorf("store: InTx rollback failed: %v (original error: %w)", rbErr, err)
		}
		if isSerializationFailure(err) {
			return fmt.Errorf("%w: %v", ErrTxConflict, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		if isSerializationFailure(err) {
			return fmt.Errorf("%w: %v", ErrTxConflict, err)
		}
		return fmt.Errorf("store: InTx failed to commit transaction: %w", err)
	}
	return nil
}

func isSerializationFailure(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "40001" || pqErr.Code == "40P01"
	}
	return false
}

// txBookingStore is a BookingStorer bound to an open transaction.
type txBookingStore struct {
	tx *sql.Tx
}

func (t *txBookingStore) FindOverlapping(ctx context.Context, itemID int64, date time.Time, startTime, endTime string, excludeCancelled bool) ([]domain.Booking, error) {
	return findOverlapping(ctx, t.tx, itemID, date, startTime, endTime, excludeCancelled)
}

func (t *txBookingStore) InsertBooking(ctx context.Context, booking *domain.Booking) (*domain.Booking, error) {
	return insertBooking(ctx, t.tx, booking)
}

func (t *txBookingStore) GetBookingByID(ctx context.Context, id int64) (*domain.Booking, error) {
	return getBookingByID(ctx, t.tx, id)
}

func (t *txBookingStore) UpdateBookingStatus(ctx context.Context, id int64, from, to domain.BookingStatus) (*domain.Booking, error) {
	return updateBookingStatus(ctx, t.tx, id, from, to)
}

func (t *txBookingStore) ListBookings(ctx context.Context, params ListBookingsParams) ([]domain.Booking, int, error) {
	return listBookings(ctx, t.tx, params)
}

// InTx on an already-open transaction just runs fn; the surrounding
// transaction stays the unit of work.
func (t *txBookingStore) InTx(ctx context.Context, fn func(BookingStorer) error) error {
	return fn(t)
}

// bookingDate normalizes a timestamp to its date-only value for the DATE
// column, without mutating or re-deriving bounds from an already-shifted
// value.
func bookingDate(t time.Time) string {
	return t.Format("2006-01-02")
}

func findOverlapping(ctx context.Context, q querier, itemID int64, date time.Time, startTime, endTime string, excludeCancelled bool) ([]domain.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM menu.bookings
		WHERE item_id = $1 AND booking_date = $2 AND start_time < $3 AND end_time > $4`
	args := []interface{}{itemID, bookingDate(date), endTime, startTime}
	if excludeCancelled {
		query += ` AND status <> $5`
		args = append(args, domain.StatusCancelled)
	}
	query += `;`

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: FindOverlapping failed to query bookings: %w", err)
	}
	defer rows.Close()

	bookings := []domain.Booking{}
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("store: FindOverlapping failed to scan booking row: %w", err)
		}
		bookings = append(bookings, *b)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("store: FindOverlapping iteration error: %w", err)
	}
	return bookings, nil
}

func insertBooking(ctx context.Context, q querier, booking *domain.Booking) (*domain.Booking, error) {
	query := `
		INSERT INTO menu.bookings (item_id, user_id, booking_date, start_time, end_time, quantity, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + bookingColumns + `;
	`
	row := q.QueryRowContext(ctx, query,
		booking.ItemID, booking.UserID, bookingDate(booking.BookingDate),
		booking.StartTime, booking.EndTime, booking.Quantity, booking.Status,
	)
	created, err := scanBooking(row)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23503" { // FK violation on item_id
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("store: InsertBooking failed to scan row: %w", err)
	}
	return created, nil
}

func getBookingByID(ctx context.Context, q querier, id int64) (*domain.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM menu.bookings
		WHERE id = $1;
	`
	booking, err := scanBooking(q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, fmt.Errorf("store: GetBookingByID failed to scan row: %w", err)
	}
	return booking, nil
}

func updateBookingStatus(ctx context.Context, q querier, id int64, from, to domain.BookingStatus) (*domain.Booking, error) {
	query := `
		UPDATE menu.bookings
		SET status = $1, updated_at = CURRENT_TIMESTAMP
		WHERE id = $2 AND status = $3
		RETURNING ` + bookingColumns + `;
	`
	booking, err := scanBooking(q.QueryRowContext(ctx, query, to, id, from))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Missing booking or the status changed underneath us.
			return nil, ErrBookingNotFound
		}
		return nil, fmt.Errorf("store: UpdateBookingStatus failed to scan row: %w", err)
	}
	return booking, nil
}

func listBookings(ctx context.Context, q querier, params ListBookingsParams) ([]domain.Booking, int, error) {
	var queryArgs []interface{}
	var whereClauses []string
	argID := 1

	if params.UserID != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("user_id = $%d", argID))
		queryArgs = append(queryArgs, *params.UserID)
		argID++
	}
	if params.ItemID != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("item_id = $%d", argID))
		queryArgs = append(queryArgs, *params.ItemID)
		argID++
	}
	if params.Status != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("status = $%d", argID))
		queryArgs = append(queryArgs, *params.Status)
		argID++
	}

	whereCondition := ""
	if len(whereClauses) > 0 {
		whereCondition = " WHERE " + strings.Join(whereClauses, " AND ")
	}

	countQuery := "SELECT COUNT(*) FROM menu.bookings" + whereCondition
	var totalCount int
	if err := q.QueryRowContext(ctx, countQuery, queryArgs...).Scan(&totalCount); err != nil {
		return nil, 0, fmt.Errorf("store: ListBookings failed to count bookings: %w", err)
	}
	if totalCount == 0 {
		return []domain.Booking{}, 0, nil
	}

	dataQuery := fmt.Sprintf(`
		SELECT `+bookingColumns+`
		FROM menu.bookings%s ORDER BY booking_date DESC, start_time DESC LIMIT $%d OFFSET $%d`,
		whereCondition, argID, argID+1)
	finalQueryArgs := append(queryArgs, params.Limit, params.Offset)

	rows, err := q.QueryContext(ctx, dataQuery, finalQueryArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("store: ListBookings failed to query bookings: %w", err)
	}
	defer rows.Close()

	bookings := make([]domain.Booking, 0, params.Limit)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("store: ListBookings failed to scan booking row: %w", err)
		}
		bookings = append(bookings, *b)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("store: ListBookings iteration error: %w", err)
	}
	return bookings, totalCount, nil
}

func scanBooking(row rowScanner) (*domain.Booking, error) {
	var b domain.Booking
	err := row.Scan(
		&b.ID, &b.ItemID, &b.UserID, &b.BookingDate,
		&b.StartTime, &b.EndTime, &b.Quantity, &b.Status,
		&b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}
