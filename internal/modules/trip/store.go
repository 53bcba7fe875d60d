// README: Completed-ride history backed by PostgreSQL, with an in-memory variant.
package trip

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"ride/internal/modules/pricing"
	"ride/internal/types"
)

type HistoryStore interface {
	Append(ctx context.Context, r Record) error
	Rate(ctx context.Context, id types.ID, stars int) error
	List(ctx context.Context, limit int) ([]Record, error)
}

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) Append(ctx context.Context, r Record) error {
	_, err := s.db.Exec(ctx, `
        INSERT INTO trip_history (
            id, session_id, from_address, to_address,
            from_lat, from_lng, to_lat, to_lng,
            vehicle_class, add_ons, total_amount, currency,
            distance_meters, duration_seconds,
            driver_name, driver_plate, rating, completed_at
        ) VALUES (
            $1, $2, $3, $4,
            $5, $6, $7, $8,
            $9, $10, $11, $12,
            $13, $14,
            $15, $16, $17, $18
        )`,
		string(r.ID), string(r.SessionID), r.FromAddress, r.ToAddress,
		r.From.Lat, r.From.Lng, r.To.Lat, r.To.Lng,
		string(r.VehicleClass), joinAddOns(r.AddOns), r.Total.Amount, r.Total.Currency,
		r.DistanceMeters, r.DurationSeconds,
		r.DriverName, r.DriverPlate, r.Rating, r.CompletedAt,
	)
	return err
}

func (s *Store) Rate(ctx context.Context, id types.ID, stars int) error {
	tag, err := s.db.Exec(ctx, `UPDATE trip_history SET rating = $1 WHERE id = $2`, stars, string(id))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) List(ctx context.Context, limit int) ([]Record, error) {
	rows, err := s.db.Query(ctx, `
        SELECT id, session_id, from_address, to_address,
               from_lat, from_lng, to_lat, to_lng,
               vehicle_class, add_ons, total_amount, currency,
               distance_meters, duration_seconds,
               driver_name, driver_plate, rating, completed_at
        FROM trip_history
        ORDER BY completed_at DESC
        LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		var id, sessionID, class, addOns string
		err := rows.Scan(
			&id, &sessionID, &r.FromAddress, &r.ToAddress,
			&r.From.Lat, &r.From.Lng, &r.To.Lat, &r.To.Lng,
			&class, &addOns, &r.Total.Amount, &r.Total.Currency,
			&r.DistanceMeters, &r.DurationSeconds,
			&r.DriverName, &r.DriverPlate, &r.Rating, &r.CompletedAt,
		)
		if errors.Is(err, pgx.ErrNoRows) {
			break
		}
		if err != nil {
			return nil, err
		}
		r.ID = types.ID(id)
		r.SessionID = types.ID(sessionID)
		r.VehicleClass = pricing.VehicleClass(class)
		r.AddOns = splitAddOns(addOns)
		out = append(out, r)
	}
	return out, rows.Err()
}

func joinAddOns(addOns []pricing.AddOn) string {
	parts := make([]string, len(addOns))
	for i, a := range addOns {
		parts[i] = string(a)
	}
	return strings.Join(parts, ",")
}

func splitAddOns(s string) []pricing.AddOn {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]pricing.AddOn, len(parts))
	for i, p := range parts {
		out[i] = pricing.AddOn(p)
	}
	return out
}

// MemoryStore keeps history in process.
type MemoryStore struct {
	mu      sync.Mutex
	records []Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Append(_ context.Context, r Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, r)
	return nil
}

func (m *MemoryStore) Rate(_ context.Context, id types.ID, stars int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.records {
		if m.records[i].ID == id {
			m.records[i].Rating = stars
			return nil
		}
	}
	return ErrNotFound
}

func (m *MemoryStore) List(_ context.Context, limit int) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]Record(nil), m.records...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CompletedAt.After(out[j].CompletedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
