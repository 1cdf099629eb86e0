package gerstner

import (
	"sync"
	"testing"

	"github.com/gogpu/gerstner/spectrum"
)

func TestStaticOcean_Defaults(t *testing.T) {
	o := NewStaticOcean()
	if o.Gravity() != spectrum.Gravity {
		t.Errorf("Gravity() = %v, want %v", o.Gravity(), spectrum.Gravity)
	}
	if o.MinTexelsPerWave() != DefaultMinTexelsPerWave {
		t.Errorf("MinTexelsPerWave() = %v, want %v", o.MinTexelsPerWave(), DefaultMinTexelsPerWave)
	}
	if o.CurrentTime() != 0 {
		t.Errorf("CurrentTime() = %v, want 0", o.CurrentTime())
	}
}

func TestStaticOcean_Clock(t *testing.T) {
	o := NewStaticOcean()
	o.SetTime(2)
	o.Advance(0.5)
	o.Advance(0.25)
	if got := o.CurrentTime(); got != 2.75 {
		t.Errorf("CurrentTime() = %v, want 2.75", got)
	}
	o.SetGravity(3.7)
	if got := o.Gravity(); got != 3.7 {
		t.Errorf("Gravity() = %v, want 3.7", got)
	}
}

func TestStaticOcean_MaxDisplacement(t *testing.T) {
	o := NewStaticOcean()
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			o.ReportMaxDisplacement(1, 2, 0.5)
		}()
	}
	wg.Wait()

	h, v, vl := o.MaxDisplacement()
	if h != 8 || v != 16 || vl != 4 {
		t.Errorf("MaxDisplacement() = %v, %v, %v, want 8, 16, 4", h, v, vl)
	}
	o.ResetMaxDisplacement()
	if h, v, vl := o.MaxDisplacement(); h != 0 || v != 0 || vl != 0 {
		t.Errorf("MaxDisplacement() after reset = %v, %v, %v, want zeros", h, v, vl)
	}
}

func TestShape_TimeMovesWaves(t *testing.T) {
	o := NewStaticOcean()
	s := mustNew(t, WithSpectrum(loudSpectrum()), WithOcean(o))
	if err := s.Regenerate(); err != nil {
		t.Fatalf("Regenerate() error = %v", err)
	}
	before := s.SampleDisplacement(3, 4)
	o.Advance(1.3)
	if after := s.SampleDisplacement(3, 4); after == before {
		t.Errorf("SampleDisplacement() unchanged after advancing time: %v", after)
	}
}
