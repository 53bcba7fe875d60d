// README: Simulated driver pools per vehicle class and uniform random selection.
package trip

import (
	"math/rand/v2"

	"ride/internal/modules/pricing"
	"ride/internal/types"
)

// DriverPool lists candidate drivers per vehicle class.
type DriverPool map[pricing.VehicleClass][]Driver

func DefaultDriverPool() DriverPool {
	return DriverPool{
		pricing.ClassEconomy: {
			{ID: "drv-eco-1", Name: "Иван Петров", Vehicle: "Toyota Camry", Plate: "А123БВ 777", Rating: 4.8, ETAMinutes: 5},
			{ID: "drv-eco-2", Name: "Сергей Смирнов", Vehicle: "Kia Rio", Plate: "В456ГД 799", Rating: 4.7, ETAMinutes: 4},
			{ID: "drv-eco-3", Name: "Алексей Козлов", Vehicle: "Hyundai Solaris", Plate: "Е789ЖЗ 750", Rating: 4.9, ETAMinutes: 6},
		},
		pricing.ClassComfort: {
			{ID: "drv-cmf-1", Name: "Дмитрий Волков", Vehicle: "Skoda Octavia", Plate: "К234ЛМ 177", Rating: 4.9, ETAMinutes: 6},
			{ID: "drv-cmf-2", Name: "Андрей Морозов", Vehicle: "Volkswagen Passat", Plate: "Н567ОП 197", Rating: 4.8, ETAMinutes: 5},
		},
		pricing.ClassBusiness: {
			{ID: "drv-bus-1", Name: "Михаил Соколов", Vehicle: "Mercedes-Benz E-Class", Plate: "Р890СТ 777", Rating: 5.0, ETAMinutes: 7},
			{ID: "drv-bus-2", Name: "Николай Лебедев", Vehicle: "BMW 5 Series", Plate: "У321ФХ 799", Rating: 4.9, ETAMinutes: 8},
		},
	}
}

// Candidates returns the class pool, or every driver when the class has none.
func (p DriverPool) Candidates(class pricing.VehicleClass) []Driver {
	if ds := p[class]; len(ds) > 0 {
		return ds
	}
	var all []Driver
	for _, c := range pricing.Classes {
		all = append(all, p[c]...)
	}
	return all
}

// PickRandomDrivers returns up to n distinct drivers chosen uniformly without mutating pool.
func PickRandomDrivers(pool []Driver, n int) []Driver {
	if n <= 0 || len(pool) == 0 {
		return nil
	}
	idx := rand.Perm(len(pool))
	if n > len(idx) {
		n = len(idx)
	}
	out := make([]Driver, n)
	for i := 0; i < n; i++ {
		out[i] = pool[idx[i]]
	}
	return out
}

// nearbyPosition scatters a start point uniformly within spread degrees of p.
func nearbyPosition(p types.Point, spread float64) types.Point {
	return types.Point{
		Lat: p.Lat + (rand.Float64()*2-1)*spread,
		Lng: p.Lng + (rand.Float64()*2-1)*spread,
	}
}
