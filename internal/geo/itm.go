// Package geo converts WGS84 longitude/latitude into Israel Transverse
// Mercator (EPSG:2039) meters, the grid the map frontend works in.
package geo

import "math"

const degToRad = math.Pi / 180

// EPSG:2039 parameters (ITM on the GRS80 ellipsoid).
const (
	semiMajor       = 6378137.0
	semiMinor       = 6356752.31414
	centralMeridian = 35.20451694444444 * degToRad
	latOfOrigin     = 31.73439361111111 * degToRad
	scale           = 1.0000067
	falseEasting    = 219529.584
	falseNorthing   = 626907.39
)

var (
	flattening    = (semiMajor - semiMinor) / semiMajor
	eSquared      = 2*flattening - flattening*flattening
	ePrimeSquared = eSquared / (1 - eSquared)

	meridianArcAtOrigin = meridionalArc(latOfOrigin)
)

func meridionalArc(latRad float64) float64 {
	e2 := eSquared
	e4 := e2 * e2
	e6 := e4 * e2

	return semiMajor *
		((1-e2/4-3*e4/64-5*e6/256)*latRad -
			(3*e2/8+3*e4/32+45*e6/1024)*math.Sin(2*latRad) +
			(15*e4/256+45*e6/1024)*math.Sin(4*latRad) -
			(35*e6/3072)*math.Sin(6*latRad))
}

// WGS84ToITM projects a WGS84 coordinate onto the ITM grid. It returns
// ok=false when either input is NaN or infinite.
func WGS84ToITM(lon, lat float64) (x, y float64, ok bool) {
	if math.IsNaN(lon) || math.IsInf(lon, 0) || math.IsNaN(lat) || math.IsInf(lat, 0) {
		return 0, 0, false
	}

	latRad := lat * degToRad
	lonRad := lon * degToRad

	sinLat := math.Sin(latRad)
	cosLat := math.Cos(latRad)
	tanLat := math.Tan(latRad)

	n := semiMajor / math.Sqrt(1-eSquared*sinLat*sinLat)
	t := tanLat * tanLat
	c := ePrimeSquared * cosLat * cosLat
	a := (lonRad - centralMeridian) * cosLat

	m := meridionalArc(latRad)

	a2 := a * a
	a3 := a2 * a
	a4 := a3 * a
	a5 := a4 * a
	a6 := a5 * a

	easting := falseEasting +
		scale*n*(a+
			(1-t+c)*a3/6+
			(5-18*t+t*t+72*c-58*ePrimeSquared)*a5/120)

	northing := falseNorthing +
		scale*(m-meridianArcAtOrigin+
			n*tanLat*(a2/2+
				(5-t+9*c+4*c*c)*a4/24+
				(61-58*t+t*t+600*c-330*ePrimeSquared)*a6/720))

	return easting, northing, true
}
