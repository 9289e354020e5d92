package schema

import (
	"encoding/json"
	"fmt"
	"math"
)

const earthRadius = 6371000.0

// GeoPoint is a GeoJSON point. Coordinates are [longitude, latitude].
type GeoPoint struct {
	Type        string     `json:"type"`
	Coordinates [2]float64 `json:"coordinates"`
}

// NewGeoPoint builds a point from latitude and longitude.
func NewGeoPoint(lat, lon float64) GeoPoint {
	return GeoPoint{Type: "Point", Coordinates: [2]float64{lon, lat}}
}

func (p GeoPoint) Latitude() float64  { return p.Coordinates[1] }
func (p GeoPoint) Longitude() float64 { return p.Coordinates[0] }

// DistanceTo returns the equirectangular distance to o in metres.
func (p GeoPoint) DistanceTo(o GeoPoint) float64 {
	rad := math.Pi / 180.0
	x := (o.Longitude() - p.Longitude()) * rad * math.Cos((p.Latitude()+o.Latitude())/2*rad)
	y := (o.Latitude() - p.Latitude()) * rad
	return math.Sqrt(x*x+y*y) * earthRadius
}

func (p *GeoPoint) UnmarshalJSON(data []byte) error {
	type plain GeoPoint
	var v plain
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	if v.Type != "" && v.Type != "Point" {
		return fmt.Errorf("schema: geo point type %q is not Point", v.Type)
	}
	v.Type = "Point"
	*p = GeoPoint(v)
	return nil
}
