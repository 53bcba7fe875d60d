package pricing

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompute(t *testing.T) {
	table := DefaultRates()

	tests := []struct {
		name      string
		class     VehicleClass
		km        float64
		addOns    []AddOn
		wantTotal int64
	}{
		{"economy base only", ClassEconomy, 0, nil, 150},
		{"economy 2.5km", ClassEconomy, 2.5, nil, 150 + 63}, // 62.5 rounds half up
		{"comfort 10km + child seat", ClassComfort, 10, []AddOn{AddOnChildSeat}, 250 + 350 + 50},
		{"business 3.3km + both", ClassBusiness, 3.3, []AddOn{AddOnLuggage, AddOnChildSeat}, 400 + 165 + 80},
		{"duplicate add-on counted once", ClassEconomy, 1, []AddOn{AddOnLuggage, AddOnLuggage}, 150 + 25 + 30},
		{"economy 1.234km", ClassEconomy, 1.234, nil, 181}, // 180.85
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := Compute(table, tt.class, tt.km, 7, tt.addOns)
			require.NoError(t, err)
			assert.Equal(t, tt.wantTotal, q.Total)
			assertBreakdownSums(t, q)
			assert.Equal(t, "RUB", q.Currency)
			assert.Equal(t, 7, q.DurationMin)
		})
	}
}

func TestComputeFormulaProperty(t *testing.T) {
	table := DefaultRates()
	addOnSets := [][]AddOn{nil, {AddOnChildSeat}, {AddOnLuggage}, {AddOnChildSeat, AddOnLuggage}}

	for _, class := range Classes {
		for _, set := range addOnSets {
			for d := 0.0; d < 40; d += 0.37 {
				q, err := Compute(table, class, d, int(d*2), set)
				require.NoError(t, err)

				var fees int64
				for _, a := range set {
					fees += table.AddOns[a]
				}
				want := float64(table.Rates[class].BaseFare) + d*float64(table.Rates[class].PerKm) + float64(fees)
				assert.Equal(t, int64(math.Round(want)), q.Total)
				assertBreakdownSums(t, q)
			}
		}
	}
}

func TestComputeClassesAreMonotonic(t *testing.T) {
	table := DefaultRates()
	var prevBase, prevPerKm int64
	for _, c := range Classes {
		r := table.Rates[c]
		assert.Greater(t, r.BaseFare, prevBase)
		assert.Greater(t, r.PerKm, prevPerKm)
		prevBase, prevPerKm = r.BaseFare, r.PerKm
	}
}

func TestComputeRejectsBadInput(t *testing.T) {
	table := DefaultRates()
	cases := []struct {
		class  VehicleClass
		km     float64
		min    int
		addOns []AddOn
	}{
		{"limo", 1, 1, nil},
		{ClassEconomy, -1, 1, nil},
		{ClassEconomy, math.NaN(), 1, nil},
		{ClassEconomy, MaxDistanceKm + 1, 1, nil},
		{ClassEconomy, 1e30, 1, nil},
		{ClassEconomy, 1, -1, nil},
		{ClassEconomy, 1, 1, []AddOn{"jacuzzi"}},
	}
	for _, tc := range cases {
		_, err := Compute(table, tc.class, tc.km, tc.min, tc.addOns)
		assert.ErrorIs(t, err, ErrBadRequest)
	}
}

func TestComputeOverflowingRateIsRejected(t *testing.T) {
	table := DefaultRates()
	table.Rates[ClassEconomy] = Rate{BaseFare: 100, PerKm: math.MaxInt64 / 2}
	_, err := Compute(table, ClassEconomy, 10, 1, nil)
	assert.ErrorIs(t, err, ErrBadRequest)

	q, err := Compute(DefaultRates(), ClassEconomy, MaxDistanceKm, 1, nil)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, q.Total, q.Base)
}

func TestParse(t *testing.T) {
	c, err := ParseVehicleClass("comfort")
	require.NoError(t, err)
	assert.Equal(t, ClassComfort, c)
	_, err = ParseVehicleClass("Comfort")
	assert.ErrorIs(t, err, ErrBadRequest)

	a, err := ParseAddOn("luggage")
	require.NoError(t, err)
	assert.Equal(t, AddOnLuggage, a)
	_, err = ParseAddOn("pets")
	assert.ErrorIs(t, err, ErrBadRequest)
}

func TestEstimatorRecomputesUntilFixed(t *testing.T) {
	e := NewEstimator(DefaultRates())

	_, ok := e.Current()
	assert.False(t, ok, "no quote before a route is known")

	e.SetRoute(4, 10)
	q, ok := e.Current()
	require.True(t, ok)
	assert.EqualValues(t, 250, q.Total)

	require.NoError(t, e.SetVehicleClass(ClassBusiness))
	q, _ = e.Current()
	assert.EqualValues(t, 600, q.Total)

	require.NoError(t, e.SetAddOns([]AddOn{AddOnChildSeat}))
	fixed, ok := e.Fix()
	require.True(t, ok)
	assert.EqualValues(t, 650, fixed.Total)

	require.NoError(t, e.SetVehicleClass(ClassEconomy))
	require.NoError(t, e.SetAddOns(nil))
	e.SetRoute(100, 120)
	e.ClearRoute()
	q, ok = e.Current()
	require.True(t, ok)
	assert.Equal(t, fixed, q)

	e.Reset()
	_, ok = e.Current()
	assert.False(t, ok)
	assert.Equal(t, ClassEconomy, e.VehicleClass())
}

func TestEstimatorFixWithoutQuote(t *testing.T) {
	e := NewEstimator(DefaultRates())
	_, ok := e.Fix()
	assert.False(t, ok)

	// a failed Fix does not freeze later quotes
	e.SetRoute(1, 2)
	q, _ := e.Current()
	e.SetRoute(2, 4)
	next, _ := e.Current()
	assert.Greater(t, next.Total, q.Total)
}

func TestEstimatorUnfixUsesLatestInputs(t *testing.T) {
	e := NewEstimator(DefaultRates())
	e.SetRoute(1, 2)
	e.Fix()
	e.SetRoute(2, 4)

	q, _ := e.Current()
	assert.EqualValues(t, 175, q.Total)

	e.Unfix()
	q, _ = e.Current()
	assert.EqualValues(t, 200, q.Total)
}

func TestEstimatorRejectsUnknownInputs(t *testing.T) {
	e := NewEstimator(DefaultRates())
	assert.ErrorIs(t, e.SetVehicleClass("limo"), ErrBadRequest)
	assert.ErrorIs(t, e.SetAddOns([]AddOn{"pets"}), ErrBadRequest)
}

func TestEstimatorToggleAddOn(t *testing.T) {
	e := NewEstimator(DefaultRates())
	e.SetRoute(4, 10)
	require.NoError(t, e.ToggleAddOn(AddOnLuggage))
	q, _ := e.Current()
	assert.EqualValues(t, 280, q.Total)
	assert.Equal(t, []AddOn{AddOnLuggage}, e.AddOns())

	require.NoError(t, e.ToggleAddOn(AddOnLuggage))
	q, _ = e.Current()
	assert.EqualValues(t, 250, q.Total)
	assert.Empty(t, e.AddOns())

	assert.ErrorIs(t, e.ToggleAddOn("pets"), ErrBadRequest)
}

type fakeRateStore struct {
	table RateTable
	ok    bool
	err   error
}

func (f fakeRateStore) LoadRates(ctx context.Context) (RateTable, bool, error) {
	return f.table, f.ok, f.err
}

func TestServiceReloadMergesOverrides(t *testing.T) {
	store := fakeRateStore{ok: true, table: RateTable{
		Rates:  map[VehicleClass]Rate{ClassEconomy: {Class: ClassEconomy, BaseFare: 100, PerKm: 20}},
		AddOns: map[AddOn]int64{AddOnLuggage: 40},
	}}
	svc := NewService(store, nil)
	require.NoError(t, svc.Reload(context.Background()))

	q, err := svc.Quote(ClassEconomy, 1, 3, []AddOn{AddOnLuggage})
	require.NoError(t, err)
	assert.EqualValues(t, 160, q.Total)

	q, err = svc.Quote(ClassComfort, 0, 0, []AddOn{AddOnChildSeat})
	require.NoError(t, err)
	assert.EqualValues(t, 300, q.Total)
	assert.Equal(t, "RUB", q.Currency)
}

func TestServiceReloadError(t *testing.T) {
	svc := NewService(fakeRateStore{err: errors.New("db down")}, nil)
	assert.Error(t, svc.Reload(context.Background()))

	q, err := svc.Quote(ClassEconomy, 0, 0, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 150, q.Total)
}

func TestServiceRatesReturnsCopy(t *testing.T) {
	svc := NewService(nil, nil)
	r := svc.Rates()
	r.Rates[ClassEconomy] = Rate{BaseFare: 1}
	assert.EqualValues(t, 150, svc.Rates().Rates[ClassEconomy].BaseFare)
}

func assertBreakdownSums(t *testing.T, q Quote) {
	t.Helper()
	sum := q.Base + q.DistanceSurcharge
	for _, v := range q.AddOns {
		sum += v
	}
	assert.Equal(t, q.Total, sum)
}
