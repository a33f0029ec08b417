package opensky

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testBaseURL = "https://opensky.test/api"
	statesURL   = testBaseURL + "/states/all"
)

const oneStateResponse = `{"time":1700000005,"states":[
	["a12345","UAL123  ","United States",1700000000,1700000001,-97.1,37.6,1000.5,false,120.3,90.0,0.0,null,1100.2,"1200",false,0]
]}`

func setupHTTPMock(t *testing.T) {
	t.Helper()
	httpmock.Activate()
	t.Cleanup(httpmock.DeactivateAndReset)
}

func newTestClient() *Client {
	return NewClient(Config{BaseURL: testBaseURL, Timeout: time.Second})
}

func TestFetchByCode(t *testing.T) {
	setupHTTPMock(t)
	httpmock.RegisterResponderWithQuery(http.MethodGet, statesURL, map[string]string{"icao24": "a12345"},
		httpmock.NewStringResponder(http.StatusOK, oneStateResponse))

	states, err := newTestClient().FetchByCode(context.Background(), "A12345")
	require.NoError(t, err)
	require.Len(t, states, 1)

	s := states[0]
	assert.Equal(t, "a12345", s.ICAO24)
	require.NotNil(t, s.Callsign)
	assert.Equal(t, "UAL123  ", *s.Callsign)
	assert.Equal(t, "United States", s.OriginCountry)
	require.NotNil(t, s.Latitude)
	assert.InDelta(t, 37.6, *s.Latitude, 0.0001)
	assert.Nil(t, s.Sensors)
	assert.Nil(t, s.Category)
	assert.Equal(t, 1, httpmock.GetTotalCallCount())
}

func TestFetchByCode_NoBroadcast(t *testing.T) {
	setupHTTPMock(t)
	httpmock.RegisterResponder(http.MethodGet, statesURL,
		httpmock.NewStringResponder(http.StatusOK, `{"time":1700000005,"states":null}`))

	states, err := newTestClient().FetchByCode(context.Background(), "abcdef")
	require.NoError(t, err)
	assert.NotNil(t, states)
	assert.Empty(t, states)
}

func TestFetchByCode_Failures(t *testing.T) {
	tests := []struct {
		name      string
		responder httpmock.Responder
	}{
		{"server error", httpmock.NewStringResponder(http.StatusInternalServerError, "boom")},
		{"rate limited", httpmock.NewStringResponder(http.StatusTooManyRequests, "")},
		{"malformed json", httpmock.NewStringResponder(http.StatusOK, `{"states":[`)},
		{"short tuple", httpmock.NewStringResponder(http.StatusOK, `{"states":[["a12345","UAL1"]]}`)},
		{"wrong field type", httpmock.NewStringResponder(http.StatusOK,
			`{"states":[["a12345",null,"US","x",1,null,null,null,false,null,null,null,null,null,null,false,0]]}`)},
		{"transport error", httpmock.NewErrorResponder(errors.New("connection refused"))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setupHTTPMock(t)
			httpmock.RegisterResponder(http.MethodGet, statesURL, tt.responder)

			states, err := newTestClient().FetchByCode(context.Background(), "a12345")
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrLiveStateUnavailable)
			assert.Nil(t, states)
		})
	}
}

func TestFetchByBoundingBox(t *testing.T) {
	setupHTTPMock(t)
	body := `{"time":1,"states":[
		["a12345","UAL123  ","United States",1,2,-97.1,37.6,1000.5,false,120.3,90.0,0.0,[1,2],1100.2,"1200",false,0,4],
		["3c6444","DLH9    ","Germany",null,2,null,null,null,true,null,null,null,null,null,null,false,0,1]
	]}`
	httpmock.RegisterResponderWithQuery(http.MethodGet, statesURL,
		map[string]string{"lamin": "37.5", "lomin": "-97.5", "lamax": "38", "lomax": "-97"},
		httpmock.NewStringResponder(http.StatusOK, body))

	box := NewBoundingBox(38, -97, 37.5, -97.5)
	states, err := newTestClient().FetchByBoundingBox(context.Background(), box)
	require.NoError(t, err)
	require.Len(t, states, 2)

	assert.Equal(t, "a12345", states[0].ICAO24)
	assert.Equal(t, []int{1, 2}, states[0].Sensors)
	require.NotNil(t, states[0].Category)
	assert.Equal(t, 4, *states[0].Category)

	assert.Equal(t, "3c6444", states[1].ICAO24)
	assert.True(t, states[1].OnGround)
	assert.Nil(t, states[1].TimePosition)
	assert.Nil(t, states[1].Latitude)
}

func TestNewBoundingBox(t *testing.T) {
	box := NewBoundingBox(40, -100, 30, -90)
	assert.Equal(t, BoundingBox{LatMin: 30, LonMin: -100, LatMax: 40, LonMax: -90}, box)
}

func TestBasicAuth(t *testing.T) {
	setupHTTPMock(t)
	httpmock.RegisterResponder(http.MethodGet, statesURL,
		func(req *http.Request) (*http.Response, error) {
			user, pass, ok := req.BasicAuth()
			if !ok || user != "spotter" || pass != "secret" {
				return httpmock.NewStringResponse(http.StatusUnauthorized, ""), nil
			}
			return httpmock.NewStringResponse(http.StatusOK, oneStateResponse), nil
		})

	anonymous := newTestClient()
	_, err := anonymous.FetchByCode(context.Background(), "a12345")
	assert.ErrorIs(t, err, ErrLiveStateUnavailable)

	authed := NewClient(Config{BaseURL: testBaseURL, Username: "spotter", Password: "secret", Timeout: time.Second})
	states, err := authed.FetchByCode(context.Background(), "a12345")
	require.NoError(t, err)
	assert.Len(t, states, 1)
}

func TestCircuitBreakerOpens(t *testing.T) {
	setupHTTPMock(t)
	httpmock.RegisterResponder(http.MethodGet, statesURL,
		httpmock.NewStringResponder(http.StatusServiceUnavailable, ""))

	client := newTestClient()
	for i := 0; i < 5; i++ {
		_, err := client.FetchByCode(context.Background(), "a12345")
		require.ErrorIs(t, err, ErrLiveStateUnavailable)
	}
	assert.Equal(t, gobreaker.StateOpen, client.cb.State())

	_, err := client.FetchByCode(context.Background(), "a12345")
	assert.ErrorIs(t, err, ErrLiveStateUnavailable)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 5, httpmock.GetTotalCallCount(), "open breaker must not reach the feed")
}

func TestCanceledContextDoesNotTrip(t *testing.T) {
	setupHTTPMock(t)
	httpmock.RegisterResponder(http.MethodGet, statesURL,
		httpmock.NewStringResponder(http.StatusOK, oneStateResponse))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := newTestClient()
	for i := 0; i < 6; i++ {
		_, _ = client.FetchByCode(ctx, "a12345")
	}
	assert.Equal(t, gobreaker.StateClosed, client.cb.State())
}
