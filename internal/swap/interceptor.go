package swap

import (
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/krunkswap/krunkswap/internal/host"
)

// Decision is the verdict for one request. An empty RedirectURL means the
// request continues to the network untouched.
type Decision struct {
	Cancel      bool
	RedirectURL string
}

// Interceptor answers request hooks from a frozen Table.
type Interceptor struct {
	table *Table
	log   *logrus.Entry
}

func NewInterceptor(table *Table, log *logrus.Entry) *Interceptor {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Interceptor{table: table, log: log}
}

// NormalizeKey drops the http/https scheme name, the query string and the
// fragment, giving ://host/path.
func NormalizeKey(rawURL string) string {
	key := rawURL
	if i := strings.IndexAny(key, "?#"); i >= 0 {
		key = key[:i]
	}
	lower := strings.ToLower(key)
	switch {
	case strings.HasPrefix(lower, "https"):
		key = key[len("https"):]
	case strings.HasPrefix(lower, "http"):
		key = key[len("http"):]
	}
	return key
}

// Decide maps a request URL to its redirect. It performs no I/O.
func (i *Interceptor) Decide(rawURL string) Decision {
	key := NormalizeKey(rawURL)
	dest, ok := i.table.Match(key)
	if !ok {
		return Decision{}
	}
	dest = trimScript(dest)
	if NormalizeKey(dest) == key {
		// already at the destination, e.g. /js/game* seeing game.<token>.js
		return Decision{}
	}
	return Decision{RedirectURL: dest}
}

// Install registers the interceptor on session, scoped to the table patterns.
// It must run before the session issues its first navigation.
func (i *Interceptor) Install(session host.Session) error {
	patterns := i.table.Patterns()
	if len(patterns) == 0 {
		return nil
	}
	return session.OnBeforeRequest(host.Filter{URLs: patterns}, i.handle)
}

func (i *Interceptor) handle(d host.RequestDetails) host.RequestResponse {
	dec := i.Decide(d.URL)
	if dec.RedirectURL != "" {
		i.log.WithFields(logrus.Fields{"url": d.URL, "to": dec.RedirectURL}).Debug("redirecting")
	}
	return host.RequestResponse{Cancel: dec.Cancel, RedirectURL: dec.RedirectURL}
}

// trimScript drops a query or fragment trailing a script destination, e.g.
// game.js?build=old -> game.js. Destinations whose path does not end in .js
// are returned unchanged.
func trimScript(dest string) string {
	i := strings.IndexAny(dest, "?#")
	if i < 0 {
		return dest
	}
	if !strings.HasSuffix(strings.ToLower(dest[:i]), ".js") {
		return dest
	}
	return dest[:i]
}
