package spectrum

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"testing"
)

func TestOctaveIndex(t *testing.T) {
	tests := []struct {
		wl   float32
		want int
	}{
		{0.0625, 0},
		{0.1, 0},
		{0.125, 1},
		{1, 4},
		{1.9, 4},
		{2048, 15},
		{4095, 15},
	}
	for _, tt := range tests {
		if got := OctaveIndex(tt.wl); got != tt.want {
			t.Errorf("OctaveIndex(%v) = %d, want %d", tt.wl, got, tt.want)
		}
	}
}

func TestSmallestWavelength(t *testing.T) {
	if got := SmallestWavelength(0); got != 0.0625 {
		t.Errorf("SmallestWavelength(0) = %v, want 0.0625", got)
	}
	for o := 0; o < NumOctaves-1; o++ {
		if SmallestWavelength(o+1) != 2*SmallestWavelength(o) {
			t.Errorf("octave %d is not twice octave %d", o+1, o)
		}
	}
}

func TestAmplitude_ZeroPowerIsZero(t *testing.T) {
	s := New("empty")
	for i := range s.PowerDisabled {
		s.PowerDisabled[i] = true
	}
	amp, power := s.Amplitude(3, 8)
	if amp != 0 || power != 0 {
		t.Errorf("Amplitude() = (%v, %v), want (0, 0)", amp, power)
	}
}

func TestAmplitude_ScalesWithMultiplier(t *testing.T) {
	s := PiersonMoskowitz(10)
	a1, _ := s.Amplitude(20, 8)
	s.Multiplier = 2
	a2, _ := s.Amplitude(20, 8)
	if a1 <= 0 {
		t.Fatalf("Amplitude() = %v, want > 0", a1)
	}
	if math.Abs(float64(a2-2*a1)) > 1e-5 {
		t.Errorf("Amplitude() with multiplier 2 = %v, want %v", a2, 2*a1)
	}
}

func TestAmplitude_MoreComponentsLessAmplitude(t *testing.T) {
	s := PiersonMoskowitz(10)
	a8, _ := s.Amplitude(20, 8)
	a32, _ := s.Amplitude(20, 32)
	// Energy per component scales with 1/cpo, amplitude with its square root.
	if math.Abs(float64(a8/a32)-2) > 1e-4 {
		t.Errorf("a(8)/a(32) = %v, want 2", a8/a32)
	}
}

func TestAmplitude_StaleTablesClampOctave(t *testing.T) {
	full := PiersonMoskowitz(10)
	stale := PiersonMoskowitz(10)
	stale.PowerLog = stale.PowerLog[:12]
	stale.PowerDisabled = stale.PowerDisabled[:12]

	if err := Check(stale); !errors.Is(err, ErrStaleTables) {
		t.Errorf("Check() = %v, want ErrStaleTables", err)
	}
	// Octaves the stale tables still cover keep their amplitude.
	for _, wl := range []float32{0.1, 0.7, 3, 12} {
		want, _ := full.Amplitude(wl, 8)
		got, _ := stale.Amplitude(wl, 8)
		if got == 0 || got != want {
			t.Errorf("Amplitude(%v) = %v, want %v", wl, got, want)
		}
	}
	// Octaves beyond the tables reuse the last entry.
	last, _ := stale.Amplitude(SmallestWavelength(11), 8)
	if got, _ := stale.Amplitude(SmallestWavelength(14), 8); got == 0 && last != 0 {
		t.Errorf("Amplitude() beyond the tables = 0, want the clamped octave's power")
	}

	empty := New("empty")
	empty.PowerLog = nil
	if amp, _ := empty.Amplitude(1, 8); amp != 0 {
		t.Errorf("Amplitude() with no power table = %v, want 0", amp)
	}
}

func TestCheck(t *testing.T) {
	if err := Check(Default()); err != nil {
		t.Errorf("Check(Default()) = %v, want nil", err)
	}

	s := Default()
	s.ChopPerOctave = s.ChopPerOctave[:14]
	if err := Check(s); !errors.Is(err, ErrStaleTables) {
		t.Errorf("Check(short chop) = %v, want ErrStaleTables", err)
	}

	if !s.Upgrade() {
		t.Error("Upgrade() = false, want true")
	}
	if err := Check(s); err != nil {
		t.Errorf("Check after Upgrade() = %v, want nil", err)
	}
	if s.Upgrade() {
		t.Error("second Upgrade() = true, want false")
	}
}

func TestPresets_PeakMovesWithWind(t *testing.T) {
	peak := func(s *OceanWaveSpectrum) int {
		best := 0
		for o := range NumOctaves {
			if !s.PowerDisabled[o] && s.PowerLog[o] > s.PowerLog[best] {
				best = o
			}
		}
		return best
	}
	calm := peak(PiersonMoskowitz(5))
	storm := peak(PiersonMoskowitz(20))
	if storm <= calm {
		t.Errorf("peak octave for 20 m/s = %d, want > %d (5 m/s)", storm, calm)
	}
}

func TestJONSWAP_PowerIsBounded(t *testing.T) {
	s := JONSWAP(15, 100)
	for o, p := range s.PowerLog {
		if p < MinPowerLog || p > MaxPowerLog {
			t.Errorf("PowerLog[%d] = %v, outside [%d, %d]", o, p, MinPowerLog, MaxPowerLog)
		}
	}
}

func TestLoadSave(t *testing.T) {
	src := JONSWAP(12, 50)
	src.ChopAmount = 1.2

	var buf bytes.Buffer
	if err := src.Save(&buf); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	got, err := Load(&buf)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.Name != "JONSWAP" || got.ChopAmount != 1.2 {
		t.Errorf("Load() = {%q, chop %v}, want {JONSWAP, chop 1.2}", got.Name, got.ChopAmount)
	}
	a1, _ := src.Amplitude(7, 8)
	a2, _ := got.Amplitude(7, 8)
	if a1 != a2 {
		t.Errorf("Amplitude after reload = %v, want %v", a2, a1)
	}
}

func TestLoad_PartialAsset(t *testing.T) {
	in := `{"name":"old","powerLog":[1,2,3],"chopScales":[1,1,1],"gravityScales":[1,1,1]}`
	s, err := Load(strings.NewReader(in))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if s.Variance != 90 || s.Multiplier != 1 {
		t.Errorf("defaults = {variance %v, multiplier %v}, want {90, 1}", s.Variance, s.Multiplier)
	}
	if len(s.PowerDisabled) != 3 {
		t.Errorf("len(PowerDisabled) = %d, want 3", len(s.PowerDisabled))
	}
	if err := Check(s); !errors.Is(err, ErrStaleTables) {
		t.Errorf("Check() = %v, want ErrStaleTables", err)
	}
}

func TestLoad_RejectsUnknownFields(t *testing.T) {
	if _, err := Load(strings.NewReader(`{"powerLogs":[]}`)); err == nil {
		t.Error("Load() with unknown field: want error")
	}
}
