package session

import (
	"net/url"
	"sync"

	"github.com/rs/zerolog/log"
)

// URLNavigator is a Navigator over an in-memory location, seeded from a URL such as a deep link.
type URLNavigator struct {
	mu       sync.Mutex
	location *url.URL
	history  []string
}

// NewURLNavigator parses raw as the initial location. An empty raw starts at "/".
func NewURLNavigator(raw string) (*URLNavigator, error) {
	if raw == "" {
		raw = "/"
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	return &URLNavigator{location: u}, nil
}

// Location returns a copy of the current location.
func (n *URLNavigator) Location() *url.URL {
	n.mu.Lock()
	defer n.mu.Unlock()

	u := *n.location
	return &u
}

// Navigate replaces the path of the current location and drops its query.
func (n *URLNavigator) Navigate(path string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	u := *n.location
	u.Path = path
	u.RawQuery = ""
	n.location = &u
	n.history = append(n.history, path)

	log.Debug().Str("path", path).Msg("navigated")
}

// History lists the paths navigated to, oldest first.
func (n *URLNavigator) History() []string {
	n.mu.Lock()
	defer n.mu.Unlock()

	return append([]string(nil), n.history...)
}

// LogNotifier writes user notifications to the log.
type LogNotifier struct{}

func (LogNotifier) Error(msg string) {
	log.Error().Msg(msg)
}
