// Package reference answers "what registration and airframe data exists for this
// transponder code" over the FAA registration master and aircraft reference datasets.
//
// The two datasets are joined on the manufacturer/model code. The join is a lookup,
// not a foreign key: a registration without a matching airframe row is a valid,
// partial result. Storage is pluggable through Store; FileStore keeps the flat files
// in memory and the database package provides the relational variant.
package reference

import (
	"context"
	"errors"
	"fmt"

	"flight_spotter/internal/models"
)

var (
	// ErrNotFound is returned when no row matches the lookup key
	ErrNotFound = errors.New("reference record not found")
	// ErrStoreFault marks a failure of the backing store itself, as opposed to a miss
	ErrStoreFault = errors.New("reference store unavailable")
)

// Store is a backing representation of the two reference datasets.
// Implementations return ErrNotFound on a miss and any other error on a fault.
type Store interface {
	LookupRegistration(ctx context.Context, code models.TransponderCode) (*models.RegistrationRecord, error)
	LookupAirframe(ctx context.Context, mfrModelCode string) (*models.AirframeRecord, error)
}

// Reference is the result of the registration to airframe join. Airframe is nil when
// the registration's manufacturer/model code has no airframe row.
type Reference struct {
	Registration *models.RegistrationRecord
	Airframe     *models.AirframeRecord
}

// Index composes the two lookups of a Store
type Index struct {
	store Store
}

func NewIndex(store Store) *Index {
	return &Index{store: store}
}

// LookupRegistration returns the registration row for code
func (i *Index) LookupRegistration(ctx context.Context, code models.TransponderCode) (*models.RegistrationRecord, error) {
	reg, err := i.store.LookupRegistration(ctx, code)
	if err != nil {
		return nil, classify(err)
	}
	return reg, nil
}

// LookupAirframe returns the airframe row for an exact manufacturer/model code
func (i *Index) LookupAirframe(ctx context.Context, mfrModelCode string) (*models.AirframeRecord, error) {
	af, err := i.store.LookupAirframe(ctx, mfrModelCode)
	if err != nil {
		return nil, classify(err)
	}
	return af, nil
}

// Resolve looks up the registration for code and then its airframe.
// A registration miss is ErrNotFound; an airframe miss is a partial success.
func (i *Index) Resolve(ctx context.Context, code models.TransponderCode) (*Reference, error) {
	reg, err := i.LookupRegistration(ctx, code)
	if err != nil {
		return nil, err
	}

	// the second key depends on the first result, so this step is sequential
	af, err := i.LookupAirframe(ctx, reg.MfrModelCode)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	return &Reference{Registration: reg, Airframe: af}, nil
}

// classify leaves misses alone and marks everything else as a store fault
func classify(err error) error {
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrStoreFault) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrStoreFault, err)
}
