package logger

import (
	"io"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Setup returns the process logger. Info and above go to stderr as JSON; dev switches to
// debug level on a console writer with caller and stack details.
func Setup(dev bool) zerolog.Logger {
	return newLogger(os.Stderr, dev)
}

func newLogger(out io.Writer, dev bool) zerolog.Logger {
	if !dev {
		return zerolog.New(out).Level(zerolog.InfoLevel).With().Timestamp().Logger()
	}

	console := zerolog.ConsoleWriter{Out: out, TimeFormat: time.TimeOnly}

	return zerolog.New(console).Level(zerolog.DebugLevel).With().Timestamp().Caller().Stack().Logger()
}

var _ http.RoundTripper = (*Requests)(nil)

// Requests logs every outbound HTTP request with its outcome and duration.
type Requests struct {
	logger zerolog.Logger
	next   http.RoundTripper
}

func NewRequests(logger zerolog.Logger, next http.RoundTripper) *Requests {
	if next == nil {
		next = http.DefaultTransport
	}
	return &Requests{logger: logger, next: next}
}

func (r *Requests) RoundTrip(req *http.Request) (*http.Response, error) {
	started := time.Now()

	logger := r.logger.With().
		Str("method", req.Method).
		Str("path", req.URL.Path).
		Str("request_id", req.Header.Get("X-Request-ID")).
		Logger()

	resp, err := r.next.RoundTrip(req)
	if err != nil {
		logger.Error().
			Err(err).
			Dur("duration", time.Since(started)).
			Msg("http request")

		return resp, err
	}

	event := logger.Debug()
	if resp.StatusCode >= http.StatusInternalServerError {
		event = logger.Warn()
	}

	event.
		Int("status", resp.StatusCode).
		Bool("cached", resp.Header.Get("X-From-Cache") == "1").
		Dur("duration", time.Since(started)).
		Msg("http request")

	return resp, nil
}
