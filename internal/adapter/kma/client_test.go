package kma

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/couchcryptid/sea-info-service/internal/adapter/upstream"
	"github.com/couchcryptid/sea-info-service/internal/domain"
	"github.com/couchcryptid/sea-info-service/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "test-key"

var (
	testCell = domain.GridCell{X: 98, Y: 76}
	testNow  = time.Date(2026, 10, 19, 14, 20, 0, 0, domain.KST)
)

func testClient(baseURL string) *Client {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f := upstream.NewFetcher(2*time.Second, 100, observability.NewMetricsForTesting(), logger)
	return NewClient(f, baseURL, testKey, logger)
}

func serve(t *testing.T, path, body string, check func(r *http.Request)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, path, r.URL.Path)
		assert.Equal(t, testKey, r.URL.Query().Get("serviceKey"))
		assert.Equal(t, "98", r.URL.Query().Get("nx"))
		assert.Equal(t, "76", r.URL.Query().Get("ny"))
		if check != nil {
			check(r)
		}
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

const forecastBody = `{"response":{"header":{"resultCode":"00","resultMsg":"NORMAL_SERVICE"},"body":{"items":{"item":[
 {"category":"TMP","fcstDate":"20261019","fcstTime":"1400","fcstValue":"21"},
 {"category":"TMP","fcstDate":"20261019","fcstTime":"1500","fcstValue":"23"},
 {"category":"SKY","fcstDate":"20261019","fcstTime":"1400","fcstValue":"3"},
 {"category":"PTY","fcstDate":"20261019","fcstTime":"1400","fcstValue":"0"},
 {"category":"WSD","fcstDate":"20261019","fcstTime":"1400","fcstValue":"-999"},
 {"category":"WSD","fcstDate":"20261019","fcstTime":"1500","fcstValue":"4.2"},
 {"category":"POP","fcstDate":"20261019","fcstTime":"1400","fcstValue":"20"}
]}}}}`

func TestClient_Forecast(t *testing.T) {
	srv := serve(t, "/getVilageFcst", forecastBody, func(r *http.Request) {
		assert.Equal(t, "20261019", r.URL.Query().Get("base_date"))
		assert.Equal(t, "1400", r.URL.Query().Get("base_time"))
		assert.Equal(t, "JSON", r.URL.Query().Get("dataType"))
	})

	snap, err := testClient(srv.URL).Forecast(context.Background(), testCell, testNow)

	require.NoError(t, err)
	require.NotNil(t, snap.AirTemp)
	assert.Equal(t, 21.0, *snap.AirTemp, "1400 slot is nearer to 14:20 than 1500")
	require.NotNil(t, snap.WindSpeed)
	assert.Equal(t, 4.2, *snap.WindSpeed, "sentinel slot is skipped")
	assert.Equal(t, domain.SkyMostlyCloudy, snap.Sky)
	assert.Equal(t, domain.PrecipNone, snap.PrecipType)
	assert.False(t, snap.Sampled)
}

func TestClient_Forecast_NearestSlotAcrossDays(t *testing.T) {
	body := `{"response":{"header":{"resultCode":"00"},"body":{"items":{"item":[
 {"category":"TMP","fcstDate":"20261019","fcstTime":"2300","fcstValue":"15"},
 {"category":"TMP","fcstDate":"20261020","fcstTime":"0000","fcstValue":"14"}
]}}}}`
	srv := serve(t, "/getVilageFcst", body, nil)
	now := time.Date(2026, 10, 19, 23, 50, 0, 0, domain.KST)

	snap, err := testClient(srv.URL).Forecast(context.Background(), testCell, now)

	require.NoError(t, err)
	assert.Equal(t, 14.0, *snap.AirTemp)
	assert.Nil(t, snap.WindSpeed)
}

func TestClient_Nowcast(t *testing.T) {
	body := `{"response":{"header":{"resultCode":"00"},"body":{"items":{"item":[
 {"category":"T1H","obsrValue":"18.4"},
 {"category":"PTY","obsrValue":"1"},
 {"category":"WSD","obsrValue":"-998.9"},
 {"category":"RN1","obsrValue":"0.5"}
]}}}}`
	srv := serve(t, "/getUltraSrtNcst", body, func(r *http.Request) {
		assert.Equal(t, "1400", r.URL.Query().Get("base_time"))
	})

	snap, err := testClient(srv.URL).Nowcast(context.Background(), testCell, testNow)

	require.NoError(t, err)
	assert.Equal(t, 18.4, *snap.AirTemp)
	assert.Equal(t, domain.PrecipRain, snap.PrecipType)
	assert.Nil(t, snap.WindSpeed, "sentinel wind is absent")
	assert.Empty(t, snap.Sky)
}

func TestClient_UltraForecast(t *testing.T) {
	body := `{"response":{"header":{"resultCode":"00"},"body":{"items":{"item":[
 {"category":"T1H","fcstDate":"20261019","fcstTime":"1500","fcstValue":"19"},
 {"category":"T1H","fcstDate":"20261019","fcstTime":"1600","fcstValue":"20"},
 {"category":"WSD","fcstDate":"20261019","fcstTime":"1500","fcstValue":"2.1"},
 {"category":"SKY","fcstDate":"20261019","fcstTime":"1500","fcstValue":"1"}
]}}}}`
	srv := serve(t, "/getUltraSrtFcst", body, func(r *http.Request) {
		assert.Equal(t, "1400", r.URL.Query().Get("base_time"))
	})

	snap, err := testClient(srv.URL).UltraForecast(context.Background(), testCell, testNow)

	require.NoError(t, err)
	assert.Equal(t, 19.0, *snap.AirTemp)
	assert.Equal(t, 2.1, *snap.WindSpeed)
	assert.Equal(t, domain.SkyClear, snap.Sky)
}

func TestClient_AllSentinelsIsEmpty(t *testing.T) {
	body := `{"response":{"header":{"resultCode":"00"},"body":{"items":{"item":[
 {"category":"T1H","obsrValue":"-999"},
 {"category":"WSD","obsrValue":"-999"}
]}}}}`
	srv := serve(t, "/getUltraSrtNcst", body, nil)

	_, err := testClient(srv.URL).Nowcast(context.Background(), testCell, testNow)

	require.ErrorIs(t, err, upstream.ErrEmptyPayload)
}

func TestClient_ResultCodeError(t *testing.T) {
	body := `{"response":{"header":{"resultCode":"03","resultMsg":"NO_DATA"}}}`
	srv := serve(t, "/getVilageFcst", body, nil)

	_, err := testClient(srv.URL).Forecast(context.Background(), testCell, testNow)

	require.ErrorIs(t, err, upstream.ErrResultCode)
	assert.Contains(t, err.Error(), "NO_DATA")
}

func TestClient_XMLResponse(t *testing.T) {
	body := `<response><header><resultCode>00</resultCode></header><body><items>
<item><category>T1H</category><obsrValue>17.0</obsrValue></item>
<item><category>WSD</category><obsrValue>5.5</obsrValue></item>
</items></body></response>`
	srv := serve(t, "/getUltraSrtNcst", body, nil)

	snap, err := testClient(srv.URL).Nowcast(context.Background(), testCell, testNow)

	require.NoError(t, err)
	assert.Equal(t, 17.0, *snap.AirTemp)
	assert.Equal(t, 5.5, *snap.WindSpeed)
}

func TestClient_RateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).UltraForecast(context.Background(), testCell, testNow)

	require.ErrorIs(t, err, upstream.ErrRateLimited)
}
