package resolver

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"flight_spotter/internal/models"
	"flight_spotter/internal/reference"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type mockIndex struct {
	ref   *reference.Reference
	err   error
	calls atomic.Int32
}

func (m *mockIndex) Resolve(ctx context.Context, code models.TransponderCode) (*reference.Reference, error) {
	m.calls.Add(1)
	return m.ref, m.err
}

type mockLive struct {
	states []models.LiveState
	err    error
	delay  time.Duration
	calls  atomic.Int32
}

func (m *mockLive) FetchByCode(ctx context.Context, code models.TransponderCode) ([]models.LiveState, error) {
	m.calls.Add(1)
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return m.states, m.err
}

type mockPhotos struct {
	photo models.PhotoInfo
	calls atomic.Int32
}

func (m *mockPhotos) FetchPhoto(ctx context.Context, code models.TransponderCode) models.PhotoInfo {
	m.calls.Add(1)
	return m.photo
}

func strPtr(s string) *string { return &s }

func cessnaReference() *reference.Reference {
	return &reference.Reference{
		Registration: &models.RegistrationRecord{
			ModeSCodeHex:   "A12345",
			TailNumber:     "N123AB",
			MfrModelCode:   "X1",
			YearMfr:        "1999",
			RegisteredName: "SMITH JOHN",
		},
		Airframe: &models.AirframeRecord{Code: "X1", Manufacturer: "Cessna", Model: "172"},
	}
}

func oneState() []models.LiveState {
	lat, lon := 37.6, -97.1
	return []models.LiveState{{
		ICAO24:        "a12345",
		Callsign:      strPtr("N123AB  "),
		OriginCountry: "United States",
		Latitude:      &lat,
		Longitude:     &lon,
	}}
}

var testPhoto = models.PhotoInfo{ThumbnailSrc: "https://t.plnspttrs.net/1_280.jpg", Photographer: "Jane Doe"}

func TestResolve_DomesticRoundTrip(t *testing.T) {
	index := &mockIndex{ref: cessnaReference()}
	live := &mockLive{states: oneState()}
	photos := &mockPhotos{photo: testPhoto}

	got, err := New(index, live, photos, Config{}).Resolve(context.Background(), "A12345")
	require.NoError(t, err)

	assert.Equal(t, "a12345", got.ICAO24)
	assert.Equal(t, "domestic", got.Registry)
	require.NotNil(t, got.TailNumber)
	assert.Equal(t, "N123AB", *got.TailNumber)
	assert.Equal(t, "X1", *got.MfrModelCode)
	assert.Equal(t, "1999", *got.YearMfr)
	assert.Equal(t, "SMITH JOHN", *got.RegName)
	require.NotNil(t, got.Manufacturer)
	assert.Equal(t, "Cessna", *got.Manufacturer)
	assert.Equal(t, "172", *got.Model)
	assert.Len(t, got.AircraftState, 1)
	assert.Equal(t, testPhoto.ThumbnailSrc, got.ThumbnailSrc)
	assert.Equal(t, testPhoto.Photographer, got.Photographer)
	assert.Empty(t, got.Warnings)
}

func TestResolve_ForeignNeverTouchesIndex(t *testing.T) {
	codes := []string{"3c6444", "4ca7b5", "c0ffee", "0", "F00000", "bbbbbb"}

	for _, code := range codes {
		t.Run(code, func(t *testing.T) {
			index := &mockIndex{err: reference.ErrNotFound}
			live := &mockLive{states: oneState()}
			photos := &mockPhotos{photo: testPhoto}

			got, err := New(index, live, photos, Config{}).Resolve(context.Background(), code)
			require.NoError(t, err)

			assert.Zero(t, index.calls.Load())
			assert.Equal(t, "foreign", got.Registry)
			assert.Nil(t, got.TailNumber)
			assert.Nil(t, got.MfrModelCode)
			assert.Nil(t, got.YearMfr)
			assert.Nil(t, got.RegName)
			assert.Nil(t, got.Manufacturer)
			assert.Nil(t, got.Model)
			assert.Len(t, got.AircraftState, 1)
			assert.Equal(t, testPhoto, got.PhotoInfo)
		})
	}
}

func TestResolve_NotFoundSkipsEnrichment(t *testing.T) {
	for _, code := range []string{"a99999", "A99999", "  adf7c7 "} {
		t.Run(code, func(t *testing.T) {
			index := &mockIndex{err: reference.ErrNotFound}
			live := &mockLive{states: oneState()}
			photos := &mockPhotos{photo: testPhoto}

			got, err := New(index, live, photos, Config{}).Resolve(context.Background(), code)
			require.ErrorIs(t, err, ErrNotFound)
			assert.Nil(t, got)

			// the miss is decided before any enrichment call is issued
			assert.Equal(t, int32(1), index.calls.Load())
			assert.Zero(t, live.calls.Load())
			assert.Zero(t, photos.calls.Load())
		})
	}
}

func TestResolve_PartialJoin(t *testing.T) {
	ref := cessnaReference()
	ref.Airframe = nil
	index := &mockIndex{ref: ref}

	got, err := New(index, &mockLive{}, &mockPhotos{}, Config{}).Resolve(context.Background(), "a12345")
	require.NoError(t, err)

	require.NotNil(t, got.TailNumber)
	assert.Equal(t, "N123AB", *got.TailNumber)
	assert.Equal(t, "X1", *got.MfrModelCode)
	assert.Equal(t, "1999", *got.YearMfr)
	assert.Equal(t, "SMITH JOHN", *got.RegName)
	assert.Nil(t, got.Manufacturer)
	assert.Nil(t, got.Model)
}

func TestResolve_StoreFault(t *testing.T) {
	index := &mockIndex{err: fmt.Errorf("%w: %w", reference.ErrStoreFault, errors.New("disk I/O error"))}
	live := &mockLive{}
	photos := &mockPhotos{}

	got, err := New(index, live, photos, Config{}).Resolve(context.Background(), "a12345")
	require.Error(t, err)
	assert.Nil(t, got)
	assert.ErrorIs(t, err, reference.ErrStoreFault)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Zero(t, live.calls.Load())
}

func TestResolve_InvalidInput(t *testing.T) {
	for _, raw := range []string{"", "   ", "xyz", "a123456", "a1-234"} {
		t.Run(fmt.Sprintf("%q", raw), func(t *testing.T) {
			index := &mockIndex{ref: cessnaReference()}
			live := &mockLive{}
			photos := &mockPhotos{}

			got, err := New(index, live, photos, Config{}).Resolve(context.Background(), raw)
			require.ErrorIs(t, err, ErrInvalidInput)
			assert.ErrorIs(t, err, models.ErrInvalidCode)
			assert.Nil(t, got)
			assert.Zero(t, index.calls.Load())
			assert.Zero(t, live.calls.Load())
			assert.Zero(t, photos.calls.Load())
		})
	}
}

func TestResolve_LiveStateFailureDegrades(t *testing.T) {
	index := &mockIndex{ref: cessnaReference()}
	live := &mockLive{err: errors.New("live state unavailable: unexpected status code 503")}
	photos := &mockPhotos{photo: testPhoto}

	got, err := New(index, live, photos, Config{}).Resolve(context.Background(), "a12345")
	require.NoError(t, err)

	assert.NotNil(t, got.AircraftState)
	assert.Empty(t, got.AircraftState)
	assert.Equal(t, []string{WarningLiveStateUnavailable}, got.Warnings)
	assert.Equal(t, "Cessna", *got.Manufacturer)
	assert.Equal(t, testPhoto, got.PhotoInfo)
}

func TestResolve_LiveStateTimeoutDegrades(t *testing.T) {
	index := &mockIndex{ref: cessnaReference()}
	live := &mockLive{states: oneState(), delay: time.Second}
	photos := &mockPhotos{photo: testPhoto}

	r := New(index, live, photos, Config{LiveTimeout: 20 * time.Millisecond})

	start := time.Now()
	got, err := r.Resolve(context.Background(), "a12345")
	require.NoError(t, err)

	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.Empty(t, got.AircraftState)
	assert.Contains(t, got.Warnings, WarningLiveStateUnavailable)
	assert.Equal(t, testPhoto, got.PhotoInfo)
}

func TestResolve_BlankPhoto(t *testing.T) {
	got, err := New(&mockIndex{ref: cessnaReference()}, &mockLive{states: oneState()}, &mockPhotos{}, Config{}).
		Resolve(context.Background(), "a12345")
	require.NoError(t, err)

	assert.Equal(t, "", got.ThumbnailSrc)
	assert.Equal(t, "", got.Photographer)
	assert.Len(t, got.AircraftState, 1)
}

func TestResolve_NoBroadcast(t *testing.T) {
	got, err := New(&mockIndex{}, &mockLive{states: nil}, &mockPhotos{}, Config{}).
		Resolve(context.Background(), "3c6444")
	require.NoError(t, err)

	assert.NotNil(t, got.AircraftState)
	assert.Empty(t, got.AircraftState)
	assert.Empty(t, got.Warnings)
}

func TestOrDefault(t *testing.T) {
	ctx := context.Background()

	v, err := orDefault(ctx, time.Second, func(context.Context) (int, error) { return 7, nil }, -1)
	require.NoError(t, err)
	assert.Equal(t, 7, v)

	boom := errors.New("boom")
	v, err = orDefault(ctx, time.Second, func(context.Context) (int, error) { return 7, boom }, -1)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, -1, v)

	v, err = orDefault(ctx, 10*time.Millisecond, func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 7, ctx.Err()
	}, -1)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, -1, v)
}
