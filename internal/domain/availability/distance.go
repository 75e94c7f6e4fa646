package availability

import "math"

// EarthRadiusMiles is the mean radius used for service-radius checks.
const EarthRadiusMiles = 3958.8

// DistanceMiles returns the great-circle distance between a and b in
// statute miles, rounded to two decimals.
func DistanceMiles(a, b GeoPoint) float64 {
	lat1 := radians(a.Lat)
	lat2 := radians(b.Lat)
	dLat := radians(b.Lat - a.Lat)
	dLon := radians(b.Lon - a.Lon)

	h := math.Pow(math.Sin(dLat/2), 2) + math.Cos(lat1)*math.Cos(lat2)*math.Pow(math.Sin(dLon/2), 2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return math.Round(EarthRadiusMiles*c*100) / 100
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }
