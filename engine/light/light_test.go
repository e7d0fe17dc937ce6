package light

import (
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-gi/common"
)

func near(a, b float32) bool {
	return math.Abs(float64(a-b)) < 1e-4
}

func TestNewSunDefaults(t *testing.T) {
	s := NewSun()
	if s.Direction() != [3]float32{0, -1, 0} || s.Strength() != [3]float32{1, 1, 1} {
		t.Errorf("direction %v strength %v", s.Direction(), s.Strength())
	}
	if s.Intensity() != DefaultSunIntensity || s.ShadowRadius() != DefaultShadowRadius || !s.CastsShadows() {
		t.Errorf("intensity %v radius %v shadows %v", s.Intensity(), s.ShadowRadius(), s.CastsShadows())
	}
}

func TestSunOptionsAndRevision(t *testing.T) {
	s := NewSun(
		WithDirection([3]float32{0, 0, -2}),
		WithStrength([3]float32{1, 0.9, 0.8}),
		WithIntensity(3),
		WithShadowRadius(-1),
		WithCastsShadows(false),
	)
	if s.Direction() != [3]float32{0, 0, -1} {
		t.Errorf("direction = %v, want normalized", s.Direction())
	}
	if s.ShadowRadius() != DefaultShadowRadius {
		t.Errorf("negative radius was applied: %v", s.ShadowRadius())
	}
	if s.CastsShadows() || s.Intensity() != 3 {
		t.Errorf("options not applied")
	}

	rev := s.Revision()
	s.SetStrength([3]float32{2, 2, 2})
	if s.Revision() != rev {
		t.Error("strength change moved the revision")
	}
	s.SetDirection([3]float32{1, -1, 0})
	if s.Revision() == rev {
		t.Error("direction change kept the revision")
	}
}

func TestFitShadowFrustum(t *testing.T) {
	dir := common.Normalize3([3]float32{0.5, -1, 0.3})
	m := FitShadowFrustum(dir, DefaultShadowRadius)

	want := common.Scale3(dir, -20)
	for i := range want {
		if !near(m.LightPosition[i], want[i]) {
			t.Fatalf("light position = %v, want %v", m.LightPosition, want)
		}
	}

	// The origin sits at the center of the box in x and y, 2*radius from the light.
	origin := common.TransformPoint(m.ViewProj[:], [3]float32{})
	if !near(origin[0], 0) || !near(origin[1], 0) || !near(origin[2], 1) {
		t.Errorf("origin in light clip space = %v, want (0, 0, 1)", origin)
	}

	// A point radius to the light's right lands on the right edge of the shadow map.
	var right [3]float32
	right[0], right[1], right[2] = m.View[0], m.View[4], m.View[8]
	edge := common.TransformPoint(m.Transform[:], common.Scale3(right, DefaultShadowRadius))
	if !near(edge[0], 1) || !near(edge[1], 0.5) {
		t.Errorf("right edge in texture space = %v, want (1, 0.5)", edge)
	}

	uv := common.TransformPoint(m.Transform[:], [3]float32{})
	if !near(uv[0], 0.5) || !near(uv[1], 0.5) {
		t.Errorf("origin in texture space = %v, want (0.5, 0.5)", uv)
	}
}

func TestFitShadowFrustumVerticalLight(t *testing.T) {
	m := FitShadowFrustum([3]float32{0, -1, 0}, 5)
	for i, v := range m.ViewProj {
		if math.IsNaN(float64(v)) {
			t.Fatalf("ViewProj[%d] is NaN", i)
		}
	}
	p := common.TransformPoint(m.ViewProj[:], [3]float32{0, 5, 0})
	// Halfway between the light at y=10 and the origin.
	if !near(p[2], (5-DefaultShadowNear)/(10-DefaultShadowNear)) {
		t.Errorf("depth of (0, 5, 0) = %v", p[2])
	}
	if !near(p[0], 0) || !near(p[1], 0) {
		t.Errorf("(0, 5, 0) projects off-center: %v", p)
	}
}
