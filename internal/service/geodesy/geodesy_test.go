package geodesy

import (
	"math"
	"testing"

	"github.com/Temutjin2k/room-compass/internal/domain/models"
)

func pt(lat, lon float64) models.GeoPoint {
	return models.GeoPoint{Latitude: lat, Longitude: lon}
}

func TestDistance_Coincident(t *testing.T) {
	points := []models.GeoPoint{pt(0, 0), pt(35, 139), pt(-89.9, 179.9), pt(51.5, -0.12)}
	for _, p := range points {
		if d := Distance(p, p); d != 0 {
			t.Fatalf("distance(p,p) must be 0, got %v for %+v", d, p)
		}
	}
}

func TestDistance_Symmetric(t *testing.T) {
	pairs := [][2]models.GeoPoint{
		{pt(35, 139), pt(35.001, 139.001)},
		{pt(51.5, -0.12), pt(48.85, 2.35)},
		{pt(-33.86, 151.2), pt(40.7, -74)},
	}
	for _, p := range pairs {
		a, b := Distance(p[0], p[1]), Distance(p[1], p[0])
		if math.Abs(a-b) > 1e-6 {
			t.Fatalf("distance must be symmetric: %v vs %v", a, b)
		}
	}
}

func TestDistance_KnownVectors(t *testing.T) {
	tests := []struct {
		name   string
		p1, p2 models.GeoPoint
		want   float64
		tol    float64
	}{
		{"one degree on equator", pt(0, 0), pt(0, 1), 111319.49, 0.1},
		{"london paris", pt(51.5, -0.12), pt(48.85, 2.35), 343492.8, 1},
		{"short hop", pt(35, 139), pt(35.001, 139.001), 143.67, 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Distance(tt.p1, tt.p2)
			if math.Abs(got-tt.want) > tt.tol {
				t.Fatalf("got %v want %v±%v", got, tt.want, tt.tol)
			}
		})
	}
}

func TestDistance_Antipodal(t *testing.T) {
	d := Distance(pt(0, 0), pt(0, 180))
	if math.IsNaN(d) || math.IsInf(d, 0) || d <= 0 {
		t.Fatalf("antipodal distance must be finite and positive, got %v", d)
	}
	// half the meridian circumference is ~20003.9 km
	if d < 19_900_000 || d > 20_100_000 {
		t.Fatalf("unexpected antipodal distance: %v", d)
	}
}

func TestBearing_Range(t *testing.T) {
	for lat := -80.0; lat <= 80; lat += 20 {
		for lon := -170.0; lon <= 170; lon += 34 {
			b := Bearing(pt(lat, lon), pt(-lat/2, lon+17))
			if b < 0 || b >= 360 || math.IsNaN(b) {
				t.Fatalf("bearing out of range: %v", b)
			}
		}
	}
}

func TestBearing_Cardinal(t *testing.T) {
	tests := []struct {
		name string
		to   models.GeoPoint
		want float64
	}{
		{"north", pt(1, 0), 0},
		{"east", pt(0, 1), 90},
		{"south", pt(-1, 0), 180},
		{"west", pt(0, -1), 270},
	}
	for _, tt := range tests {
		if got := Bearing(pt(0, 0), tt.to); math.Abs(got-tt.want) > 1e-9 {
			t.Fatalf("%s: got %v want %v", tt.name, got, tt.want)
		}
	}
}

func TestBearing_CoincidentIsZero(t *testing.T) {
	if b := Bearing(pt(35, 139), pt(35, 139)); b != 0 {
		t.Fatalf("expected 0, got %v", b)
	}
}

func TestHeightDiff(t *testing.T) {
	if HeightDiff(nil, models.Alt(5)) != nil || HeightDiff(models.Alt(5), nil) != nil {
		t.Fatalf("missing altitude must propagate nil")
	}
	if h := HeightDiff(models.Alt(10), models.Alt(5)); h == nil || *h != 5 {
		t.Fatalf("unexpected height diff: %v", h)
	}
}

func TestPair_EndToEnd(t *testing.T) {
	self := &models.GeoPoint{Latitude: 35.0, Longitude: 139.0, Altitude: models.Alt(10)}
	peer := &models.GeoPoint{Latitude: 35.001, Longitude: 139.001, Altitude: models.Alt(5)}

	m := Pair(self, peer)
	if math.Abs(m.Distance-143.67) > 1 {
		t.Fatalf("distance: got %v", m.Distance)
	}
	if math.Abs(m.Bearing-39.32) > 2 {
		t.Fatalf("bearing: got %v", m.Bearing)
	}
	if !m.HeightKnown || m.Height != 5 {
		t.Fatalf("height: got %+v", m)
	}
}

func TestPair_UnknownPeer(t *testing.T) {
	self := &models.GeoPoint{Latitude: 35.0, Longitude: 139.0, Altitude: models.Alt(10)}
	m := Pair(self, nil)
	if m != (models.PairMetrics{}) {
		t.Fatalf("expected zero metrics, got %+v", m)
	}
}

func TestNormalize(t *testing.T) {
	tests := map[float64]float64{0: 0, 360: 0, -90: 270, 725: 5, -1e-15: 0, math.NaN(): 0}
	for in, want := range tests {
		if got := Normalize(in); math.Abs(got-want) > 1e-9 {
			t.Fatalf("Normalize(%v) = %v want %v", in, got, want)
		}
	}
}

func TestDirection(t *testing.T) {
	tests := map[float64]string{0: "N", 22: "N", 23: "NE", 90: "E", 180: "S", 270: "W", 337: "NW", 359: "N"}
	for deg, want := range tests {
		if got := Direction(deg); got != want {
			t.Fatalf("Direction(%v) = %s want %s", deg, got, want)
		}
	}
}

func TestFormatDistance(t *testing.T) {
	tests := map[float64]string{0: "0 m", 131.4: "131 m", 999.6: "1000 m", 1000: "1.000 km", 12345.678: "12.346 km"}
	for m, want := range tests {
		if got := FormatDistance(m); got != want {
			t.Fatalf("FormatDistance(%v) = %q want %q", m, got, want)
		}
	}
}

func BenchmarkDistance(b *testing.B) {
	p1, p2 := pt(35, 139), pt(35.001, 139.001)
	for b.Loop() {
		_ = Distance(p1, p2)
	}
}
