// README: Pricing rate overrides backed by PostgreSQL.
package pricing

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) LoadRates(ctx context.Context) (RateTable, bool, error) {
	table := RateTable{Rates: map[VehicleClass]Rate{}, AddOns: map[AddOn]int64{}}

	rows, err := s.db.Query(ctx, `
        SELECT vehicle_class, base_fare, per_km, currency
        FROM pricing_rates`)
	if err != nil {
		return RateTable{}, false, err
	}
	for rows.Next() {
		var r Rate
		var class, currency string
		if err := rows.Scan(&class, &r.BaseFare, &r.PerKm, &currency); err != nil {
			rows.Close()
			return RateTable{}, false, err
		}
		r.Class = VehicleClass(class)
		table.Rates[r.Class] = r
		table.Currency = currency
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return RateTable{}, false, err
	}

	rows, err = s.db.Query(ctx, `SELECT add_on, fee FROM pricing_add_ons`)
	if err != nil {
		return RateTable{}, false, err
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		var fee int64
		if err := rows.Scan(&name, &fee); err != nil {
			return RateTable{}, false, err
		}
		table.AddOns[AddOn(name)] = fee
	}
	if err := rows.Err(); err != nil {
		return RateTable{}, false, err
	}

	ok := len(table.Rates) > 0 || len(table.AddOns) > 0
	return table, ok, nil
}
