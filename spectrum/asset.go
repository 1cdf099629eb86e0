package spectrum

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// Load decodes a JSON spectrum asset. Missing scalars take the values of
// New; missing disable flags default to enabled. Short tables are kept as
// they are so that Check can report them.
func Load(r io.Reader) (*OceanWaveSpectrum, error) {
	s := New("")
	s.PowerLog = nil
	s.PowerDisabled = nil
	s.ChopPerOctave = nil
	s.GravityPerOctave = nil

	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(s); err != nil {
		return nil, fmt.Errorf("spectrum: decode asset: %w", err)
	}
	if s.PowerDisabled == nil {
		s.PowerDisabled = make([]bool, len(s.PowerLog))
	}
	return s, nil
}

// LoadFile reads a JSON spectrum asset from path.
func LoadFile(path string) (*OceanWaveSpectrum, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("spectrum: %w", err)
	}
	defer f.Close()

	s, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Save writes s as indented JSON.
func (s *OceanWaveSpectrum) Save(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("spectrum: encode asset: %w", err)
	}
	return nil
}

// SaveFile writes s to path, replacing any existing file.
func (s *OceanWaveSpectrum) SaveFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("spectrum: %w", err)
	}
	if err := s.Save(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
