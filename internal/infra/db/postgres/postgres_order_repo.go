package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4/pgxpool"

	"pizza-order-bot/internal/domain"
	"pizza-order-bot/internal/domain/model"
	"pizza-order-bot/internal/domain/ports/repository"
	"pizza-order-bot/internal/infra/security"
)

var _ repository.OrderRepository = (*orderRepo)(nil)

type orderRepo struct {
	pool *pgxpool.Pool
	enc  *security.EncryptionService
}

// NewOrderRepo archives orders in Postgres. With a non-nil enc the delivery
// coordinates are stored sealed in location_enc instead of plain columns.
func NewOrderRepo(pool *pgxpool.Pool, enc *security.EncryptionService) *orderRepo {
	return &orderRepo{pool: pool, enc: enc}
}

func (r *orderRepo) Save(ctx context.Context, o *model.Order) error {
	if o == nil || o.ID == "" || o.UserID == "" {
		return domain.ErrInvalidArgument
	}
	lines, err := json.Marshal(o.Lines)
	if err != nil {
		return fmt.Errorf("marshal lines: %w", err)
	}
	var (
		lon, lat *float64
		sealed   string
	)
	switch {
	case o.Location == nil:
	case r.enc != nil:
		raw, err := json.Marshal(o.Location)
		if err != nil {
			return fmt.Errorf("marshal location: %w", err)
		}
		if sealed, err = r.enc.Seal(raw, o.ID); err != nil {
			return fmt.Errorf("seal location: %w", err)
		}
	default:
		lon, lat = &o.Location.Lon, &o.Location.Lat
	}

	const q = `
INSERT INTO orders (
  id, user_id, pizzeria_id, delivery_type, lines, delivery_fee, total_minor, currency, longitude, latitude, location_enc, provider_charge_id, paid_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13
);`
	_, err = r.pool.Exec(ctx, q, o.ID, string(o.UserID), o.PizzeriaID, string(o.DeliveryType), lines,
		o.DeliveryFee, o.TotalMinor, o.Currency, lon, lat, sealed, o.ProviderChargeID, o.PaidAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("%w: insert order: %v", domain.ErrOperationFailed, err)
	}
	return nil
}

func (r *orderRepo) ListByUser(ctx context.Context, user model.UserID, limit int) ([]*model.Order, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	const q = `
SELECT id, user_id, pizzeria_id, delivery_type, lines, delivery_fee, total_minor, currency, longitude, latitude, location_enc, provider_charge_id, paid_at
FROM orders WHERE user_id=$1 ORDER BY paid_at DESC LIMIT $2;`
	rows, err := r.pool.Query(ctx, q, string(user), limit)
	if err != nil {
		return nil, fmt.Errorf("%w: list orders: %v", domain.ErrOperationFailed, err)
	}
	defer rows.Close()

	var out []*model.Order
	for rows.Next() {
		var (
			o            model.Order
			userID, kind string
			sealed       string
			lines        []byte
			lon, lat     *float64
		)
		if err := rows.Scan(&o.ID, &userID, &o.PizzeriaID, &kind, &lines, &o.DeliveryFee, &o.TotalMinor,
			&o.Currency, &lon, &lat, &sealed, &o.ProviderChargeID, &o.PaidAt); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		o.UserID = model.UserID(userID)
		o.DeliveryType = model.DeliveryType(kind)
		if err := json.Unmarshal(lines, &o.Lines); err != nil {
			return nil, fmt.Errorf("unmarshal lines of %s: %w", o.ID, err)
		}
		switch {
		case lon != nil && lat != nil:
			o.Location = &model.Point{Lon: *lon, Lat: *lat}
		case sealed != "" && r.enc != nil:
			loc, err := r.openLocation(sealed, o.ID)
			if err != nil {
				return nil, err
			}
			o.Location = loc
		}
		out = append(out, &o)
	}
	return out, rows.Err()
}

func (r *orderRepo) openLocation(sealed, orderID string) (*model.Point, error) {
	raw, err := r.enc.Open(sealed, orderID)
	if err != nil {
		return nil, fmt.Errorf("open location of %s: %w", orderID, err)
	}
	var p model.Point
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("unmarshal location of %s: %w", orderID, err)
	}
	return &p, nil
}
