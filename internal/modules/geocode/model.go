// README: Known places, reverse street names and suggestion list used by the resolver.
package geocode

import "ride/internal/types"

type Kind string

const (
	KindCoordinate Kind = "coordinate"
	KindProvider   Kind = "provider"
	KindLandmark   Kind = "landmark"
	KindStreet     Kind = "street"
	KindDefault    Kind = "default"
)

// Result is a resolved address with a display form.
type Result struct {
	Point   types.Point `json:"point"`
	Address string      `json:"address"`
	Kind    Kind        `json:"kind"`
}

type landmark struct {
	key   string
	name  string
	point types.Point
}

// landmarks is ordered by priority; the first substring match wins.
var landmarks = []landmark{
	{"красная площадь", "Красная площадь", types.Point{Lat: 55.7539, Lng: 37.6208}},
	{"тверская", "Тверская улица", types.Point{Lat: 55.7558, Lng: 37.6173}},
	{"арбат", "Арбат", types.Point{Lat: 55.7520, Lng: 37.5914}},
	{"ленинский", "Ленинский проспект", types.Point{Lat: 55.7000, Lng: 37.5500}},
	{"кутузовский", "Кутузовский проспект", types.Point{Lat: 55.7400, Lng: 37.5300}},
	{"люберцы", "Люберцы", types.Point{Lat: 55.6783, Lng: 37.8933}},
	{"москва", "Москва", types.Point{Lat: 55.7558, Lng: 37.6173}},
	{"садовое", "Садовое кольцо", types.Point{Lat: 55.7500, Lng: 37.6000}},
	{"вднх", "ВДНХ", types.Point{Lat: 55.8300, Lng: 37.6300}},
	{"парк горького", "Парк Горького", types.Point{Lat: 55.7320, Lng: 37.6010}},
	{"сокольники", "Сокольники", types.Point{Lat: 55.7900, Lng: 37.6800}},
	{"измайловский", "Измайловский парк", types.Point{Lat: 55.7900, Lng: 37.7500}},
}

var defaultPoint = types.Point{Lat: 55.7558, Lng: 37.6173}

const defaultAddress = "Москва"

var reverseStreets = []string{
	"Ленина", "Мира", "Советская", "Центральная", "Победы",
	"Тверская", "Арбат", "Красная площадь", "Садовое кольцо",
	"Ленинский проспект", "Кутузовский проспект", "Проспект Мира",
}

var knownAddresses = []string{
	"Москва, Красная площадь, 1",
	"Москва, Тверская улица, 10",
	"Москва, Арбат, 25",
	"Москва, Ленинский проспект, 50",
	"Москва, Кутузовский проспект, 15",
	"Москва, Садовое кольцо, 100",
	"Москва, ВДНХ, проспект Мира, 119",
	"Москва, Парк Горького, Крымский Вал, 9",
	"Москва, Сокольники, Сокольнический Вал, 1",
	"Москва, Измайловский парк, аллея Большого Круга",
}
