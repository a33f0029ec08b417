// Package resolver turns a transponder code into one ResolvedAircraft by combining
// the reference join, the live state feed and the photo lookup.
//
// Only three outcomes end a resolution unsuccessfully: ErrInvalidInput, ErrNotFound
// and a reference store fault (reference.ErrStoreFault). Live state and photo
// failures are absorbed into an empty state list and a blank photo.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sourcegraph/conc"

	"flight_spotter/internal/metrics"
	"flight_spotter/internal/models"
	"flight_spotter/internal/reference"
)

var (
	ErrInvalidInput = errors.New("invalid transponder code")
	ErrNotFound     = errors.New("aircraft not found")
)

const (
	DefaultLiveTimeout  = 8 * time.Second
	DefaultPhotoTimeout = 5 * time.Second

	// WarningLiveStateUnavailable is attached to a result whose live state was replaced by an empty list
	WarningLiveStateUnavailable = "live state unavailable"
)

// ReferenceIndex is the registration/airframe join
type ReferenceIndex interface {
	Resolve(ctx context.Context, code models.TransponderCode) (*reference.Reference, error)
}

type LiveStateFetcher interface {
	FetchByCode(ctx context.Context, code models.TransponderCode) ([]models.LiveState, error)
}

// PhotoFetcher never fails; a missing photo is a blank PhotoInfo
type PhotoFetcher interface {
	FetchPhoto(ctx context.Context, code models.TransponderCode) models.PhotoInfo
}

type Config struct {
	LiveTimeout  time.Duration
	PhotoTimeout time.Duration
}

// Resolver holds read-only collaborators and no per-request state
type Resolver struct {
	index        ReferenceIndex
	live         LiveStateFetcher
	photos       PhotoFetcher
	liveTimeout  time.Duration
	photoTimeout time.Duration
}

func New(index ReferenceIndex, live LiveStateFetcher, photos PhotoFetcher, cfg Config) *Resolver {
	if cfg.LiveTimeout <= 0 {
		cfg.LiveTimeout = DefaultLiveTimeout
	}
	if cfg.PhotoTimeout <= 0 {
		cfg.PhotoTimeout = DefaultPhotoTimeout
	}
	return &Resolver{
		index:        index,
		live:         live,
		photos:       photos,
		liveTimeout:  cfg.LiveTimeout,
		photoTimeout: cfg.PhotoTimeout,
	}
}

// Resolve validates raw, classifies it and runs the matching lookup path.
//
// Domestic codes are joined against the reference index first. A registration
// miss returns ErrNotFound before any live state or photo request is issued.
func (r *Resolver) Resolve(ctx context.Context, raw string) (*models.ResolvedAircraft, error) {
	code, err := models.ParseTransponderCode(raw)
	if err != nil {
		metrics.RecordResolution("unknown", metrics.OutcomeInvalid)
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	registry := code.Classify()
	result := &models.ResolvedAircraft{
		ICAO24:   code.Lower(),
		Registry: registry.String(),
	}

	if registry == models.Domestic {
		ref, err := r.index.Resolve(ctx, code)
		switch {
		case errors.Is(err, reference.ErrNotFound):
			metrics.RecordResolution(registry.String(), metrics.OutcomeNotFound)
			return nil, fmt.Errorf("%w: %s", ErrNotFound, code)
		case err != nil:
			metrics.RecordResolution(registry.String(), metrics.OutcomeStoreFault)
			return nil, fmt.Errorf("failed to resolve %s: %w", code, err)
		}
		result.SetRegistration(ref.Registration)
		result.SetAirframe(ref.Airframe)
	}

	r.enrich(ctx, code, result)

	metrics.RecordResolution(registry.String(), metrics.OutcomeResolved)
	return result, nil
}

// enrich runs the live state and photo lookups concurrently and merges them into result
func (r *Resolver) enrich(ctx context.Context, code models.TransponderCode, result *models.ResolvedAircraft) {
	var (
		states  []models.LiveState
		liveErr error
		photo   models.PhotoInfo
		wg      conc.WaitGroup
	)

	wg.Go(func() {
		states, liveErr = orDefault(ctx, r.liveTimeout, func(ctx context.Context) ([]models.LiveState, error) {
			return r.live.FetchByCode(ctx, code)
		}, []models.LiveState{})
	})
	wg.Go(func() {
		photo, _ = orDefault(ctx, r.photoTimeout, func(ctx context.Context) (models.PhotoInfo, error) {
			return r.photos.FetchPhoto(ctx, code), nil
		}, models.PhotoInfo{})
	})
	wg.Wait()

	if liveErr != nil {
		slog.Warn("Live state unavailable, returning empty state list", "icao24", result.ICAO24, "error", liveErr)
		metrics.RecordDegraded("live_state")
		result.Warnings = append(result.Warnings, WarningLiveStateUnavailable)
	}
	if states == nil {
		states = []models.LiveState{}
	}

	result.AircraftState = states
	result.PhotoInfo = photo
}

// orDefault calls fn with its own timeout derived from ctx. On error, or when the
// timeout fires first, it returns def together with the absorbed error.
// fn keeps running in the background if it ignores cancellation; its result is dropped.
func orDefault[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error), def T) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		val T
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		val, err := fn(ctx)
		done <- outcome{val, err}
	}()

	select {
	case out := <-done:
		if out.err != nil {
			return def, out.err
		}
		return out.val, nil
	case <-ctx.Done():
		return def, ctx.Err()
	}
}
