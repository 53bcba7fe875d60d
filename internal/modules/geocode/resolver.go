// README: Offline address <-> coordinate heuristics; never fails.
package geocode

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"ride/internal/types"
)

var (
	coordPattern  = regexp.MustCompile(`(-?\d+\.\d+)[,\s]+(-?\d+\.\d+)`)
	streetPattern = regexp.MustCompile(`(?:^|[\s,])(?:ул\.?|улица|проспект|пр\.?|проезд|пер\.?|переулок)\s+([^,]+)`)
	housePattern  = regexp.MustCompile(`(?:^|[\s,])(?:дом|д\.?)\s*(\d+)`)
)

// Resolve maps free text to a coordinate.
func Resolve(text string) types.Point {
	return Lookup(text).Point
}

// Lookup resolves text and also returns a normalized display address.
func Lookup(text string) Result {
	if p, ok := parseCoordinates(text); ok {
		return Result{Point: p, Address: ResolveAddress(p), Kind: KindCoordinate}
	}

	lower := strings.ToLower(strings.TrimSpace(text))
	house := houseNumber(lower)

	for _, l := range landmarks {
		if strings.Contains(lower, l.key) {
			addr := l.name
			if house > 0 {
				addr = fmt.Sprintf("%s, д. %d", l.name, house)
			}
			return Result{Point: l.point, Address: addr, Kind: KindLandmark}
		}
	}

	if m := streetPattern.FindStringSubmatch(lower); m != nil {
		name := strings.TrimSpace(m[1])
		if loc := housePattern.FindStringIndex(name); loc != nil {
			name = strings.TrimSpace(name[:loc[0]])
		}
		if name != "" {
			p := streetPoint(name, house)
			addr := "ул. " + capitalize(name)
			if house > 0 {
				addr = fmt.Sprintf("%s, д. %d", addr, house)
			}
			return Result{Point: p, Address: addr, Kind: KindStreet}
		}
	}

	return Result{Point: defaultPoint, Address: defaultAddress, Kind: KindDefault}
}

// ResolveAddress is the reverse form of Resolve.
func ResolveAddress(p types.Point) string {
	if p.Validate() != nil {
		return fmt.Sprintf("%.6f, %.6f", p.Lat, p.Lng)
	}
	lat, lng := round4(p.Lat), round4(p.Lng)
	for _, l := range landmarks {
		if round4(l.point.Lat) == lat && round4(l.point.Lng) == lng {
			return l.name
		}
	}
	street := reverseStreets[int(math.Floor(math.Abs(p.Lat)*100))%len(reverseStreets)]
	house := int(math.Floor(math.Abs(p.Lng)*100))%200 + 1
	return fmt.Sprintf("ул. %s, д. %d", street, house)
}

func parseCoordinates(text string) (types.Point, bool) {
	m := coordPattern.FindStringSubmatch(text)
	if m == nil {
		return types.Point{}, false
	}
	lat, err1 := strconv.ParseFloat(m[1], 64)
	lng, err2 := strconv.ParseFloat(m[2], 64)
	if err1 != nil || err2 != nil {
		return types.Point{}, false
	}
	p := types.Point{Lat: lat, Lng: lng}
	if p.Validate() != nil {
		return types.Point{}, false
	}
	return p, true
}

func houseNumber(lower string) int {
	m := housePattern.FindStringSubmatch(lower)
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return n
}

// streetPoint places a street deterministically inside a 0.1 x 0.1 degree box.
func streetPoint(name string, house int) types.Point {
	h := int64(streetHash(name))
	if h < 0 {
		h = -h
	}
	p := types.Point{
		Lat: 55.7 + float64(h%100)/1000,
		Lng: 37.5 + float64((h/100)%100)/1000,
	}
	if house > 0 {
		p.Lat += float64(house%100) * 1e-5
	}
	return p
}

func streetHash(s string) int32 {
	var h int32
	for _, r := range s {
		h = h*31 + int32(r)
	}
	return h
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

func round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}
