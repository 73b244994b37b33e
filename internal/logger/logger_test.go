package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func TestRequests_RoundTrip(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		cached    bool
		err       error
		wantLevel string
	}{
		{name: "ok", status: http.StatusOK, wantLevel: "debug"},
		{name: "cache hit", status: http.StatusOK, cached: true, wantLevel: "debug"},
		{name: "server error", status: http.StatusBadGateway, wantLevel: "warn"},
		{name: "transport error", err: errors.New("connection refused"), wantLevel: "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			log := zerolog.New(&buf).Level(zerolog.DebugLevel)

			rt := NewRequests(log, roundTripFunc(func(req *http.Request) (*http.Response, error) {
				if tt.err != nil {
					return nil, tt.err
				}
				rec := httptest.NewRecorder()
				if tt.cached {
					rec.Header().Set("X-From-Cache", "1")
				}
				rec.WriteHeader(tt.status)
				return rec.Result(), nil
			}))

			req := httptest.NewRequest(http.MethodGet, "http://api.example.com/Tenants", nil)
			req.Header.Set("X-Request-ID", "req-1")

			resp, err := rt.RoundTrip(req)
			if tt.err != nil {
				require.ErrorIs(t, err, tt.err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.status, resp.StatusCode)
			}

			var entry map[string]any
			require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
			assert.Equal(t, tt.wantLevel, entry["level"])
			assert.Equal(t, "GET", entry["method"])
			assert.Equal(t, "/Tenants", entry["path"])
			assert.Equal(t, "req-1", entry["request_id"])
			if tt.err == nil {
				assert.Equal(t, tt.cached, entry["cached"])
			}
		})
	}
}

func TestSetup_Levels(t *testing.T) {
	t.Run("default logs info as json", func(t *testing.T) {
		var buf bytes.Buffer
		log := newLogger(&buf, false)

		log.Debug().Msg("hidden")
		assert.Zero(t, buf.Len())

		log.Info().Str("tenant", "t1").Msg("tenant selected")

		var entry map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, "info", entry["level"])
		assert.Equal(t, "t1", entry["tenant"])
		assert.Contains(t, entry, "time")
	})

	t.Run("dev logs debug to the console", func(t *testing.T) {
		var buf bytes.Buffer
		log := newLogger(&buf, true)

		log.Debug().Msg("session reconciled")

		assert.Contains(t, buf.String(), "session reconciled")
		assert.Contains(t, buf.String(), "logger_test.go")
		assert.False(t, json.Valid(buf.Bytes()))
	})
}
