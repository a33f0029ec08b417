package reference

import (
	"context"
	"log/slog"

	"flight_spotter/internal/models"
)

// FileStore serves both datasets from memory. It is built once at startup and never
// mutated afterwards, so any number of request handlers may read it concurrently.
type FileStore struct {
	registrations map[string]*models.RegistrationRecord // keyed by NormalizeKey(mode S hex)
	airframes     map[string]*models.AirframeRecord     // keyed by exact code
}

// NewFileStore indexes already decoded records. Later duplicates of a key win.
func NewFileStore(regs []*models.RegistrationRecord, airframes []*models.AirframeRecord) *FileStore {
	s := &FileStore{
		registrations: make(map[string]*models.RegistrationRecord, len(regs)),
		airframes:     make(map[string]*models.AirframeRecord, len(airframes)),
	}
	for _, r := range regs {
		s.registrations[NormalizeKey(r.ModeSCodeHex)] = r
	}
	for _, a := range airframes {
		s.airframes[a.Code] = a
	}
	return s
}

// LoadFileStore reads both FAA files from src into memory
func LoadFileStore(src Source) (*FileStore, error) {
	regs, airframes, err := src.Read()
	if err != nil {
		return nil, err
	}

	s := NewFileStore(regs, airframes)
	slog.Info("Loaded reference datasets into memory",
		"registrations", len(s.registrations),
		"airframes", len(s.airframes),
	)
	return s, nil
}

func (s *FileStore) LookupRegistration(_ context.Context, code models.TransponderCode) (*models.RegistrationRecord, error) {
	if r, ok := s.registrations[NormalizeKey(string(code))]; ok {
		return r, nil
	}
	return nil, ErrNotFound
}

func (s *FileStore) LookupAirframe(_ context.Context, mfrModelCode string) (*models.AirframeRecord, error) {
	if a, ok := s.airframes[mfrModelCode]; ok {
		return a, nil
	}
	return nil, ErrNotFound
}

// Len returns the number of registrations and airframes held
func (s *FileStore) Len() (int, int) {
	return len(s.registrations), len(s.airframes)
}
