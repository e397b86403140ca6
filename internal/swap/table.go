// Package swap builds the resource swap table from a local directory tree and
// decides, per outgoing request, whether it is served from a local file or a
// version-qualified remote URL instead of the original resource.
package swap

import (
	"net/url"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spaolacci/murmur3"
)

// Entry is one redirect rule. Pattern has the form *://host/path* and
// Destination is either a file:// URI or an absolute remote URL.
type Entry struct {
	Pattern     string
	Destination string
}

// Key is the pattern with its wildcards removed, i.e. ://host/path.
func (e Entry) Key() string {
	return StripPattern(e.Pattern)
}

func StripPattern(pattern string) string {
	return strings.ReplaceAll(pattern, "*", "")
}

// Pattern returns the glob covering every scheme for host+path.
func Pattern(host, path string) string {
	return "*://" + host + path + "*"
}

// FileURI returns the percent-encoded file:// URI for an absolute path.
func FileURI(path string) string {
	p := filepath.ToSlash(path)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return (&url.URL{Scheme: "file", Path: p}).String()
}

// Table is the frozen, read-only redirect table. It is safe for concurrent
// use once returned by Builder.Build.
type Table struct {
	patterns []string
	lookup   map[string]string
	// prefixes are the lookup keys ordered longest first for wildcard hits.
	prefixes    []string
	fingerprint uint64
}

// Patterns returns the registered patterns in insertion order.
func (t *Table) Patterns() []string {
	return append([]string(nil), t.patterns...)
}

func (t *Table) Len() int { return len(t.lookup) }

// Destination returns the exact destination for a stripped key.
func (t *Table) Destination(key string) (string, bool) {
	d, ok := t.lookup[key]
	return d, ok
}

// Match resolves a normalized request key. An exact key wins; otherwise the
// longest key that prefixes it does, since every pattern ends in a wildcard.
func (t *Table) Match(key string) (string, bool) {
	if d, ok := t.lookup[key]; ok {
		return d, true
	}
	for _, p := range t.prefixes {
		if strings.HasPrefix(key, p) {
			return t.lookup[p], true
		}
	}
	return "", false
}

// Entries lists the table in pattern order.
func (t *Table) Entries() []Entry {
	out := make([]Entry, 0, len(t.patterns))
	for _, p := range t.patterns {
		out = append(out, Entry{Pattern: p, Destination: t.lookup[StripPattern(p)]})
	}
	return out
}

// Fingerprint hashes the table contents. Two tables built from the same
// directory listing share a fingerprint.
func (t *Table) Fingerprint() uint64 { return t.fingerprint }

// Builder accumulates entries for a Table. It is not safe for concurrent use.
type Builder struct {
	host     string
	skip     map[string]bool
	patterns []string
	seen     map[string]bool
	lookup   map[string]string
	log      *logrus.Entry
}

func NewBuilder(host string, log *logrus.Entry) *Builder {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Builder{
		host:   host,
		skip:   make(map[string]bool),
		seen:   make(map[string]bool),
		lookup: make(map[string]string),
		log:    log,
	}
}

// Reserve excludes a root-relative site path (e.g. /game.js) from AddFile;
// such files are owned by a declared script.
func (b *Builder) Reserve(relPath string) {
	b.skip[relPath] = true
}

// AddFile adds a generic rule for a file discovered under root.
func (b *Builder) AddFile(root, path string) error {
	rel, err := relativeURLPath(root, path)
	if err != nil {
		return err
	}
	if b.skip[rel] {
		return nil
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	b.Add(Entry{Pattern: Pattern(b.host, rel), Destination: FileURI(abs)})
	return nil
}

// Add inserts an entry. On a duplicate key the later entry wins.
func (b *Builder) Add(e Entry) {
	key := e.Key()
	if prev, ok := b.lookup[key]; ok && prev != e.Destination {
		b.log.WithFields(logrus.Fields{
			"key":      key,
			"previous": prev,
			"current":  e.Destination,
		}).Warn("duplicate swap key, later entry wins")
	}
	b.lookup[key] = e.Destination
	if !b.seen[e.Pattern] {
		b.seen[e.Pattern] = true
		b.patterns = append(b.patterns, e.Pattern)
	}
}

// Build freezes the accumulated entries. The builder must not be reused.
func (b *Builder) Build() *Table {
	t := &Table{
		patterns: b.patterns,
		lookup:   b.lookup,
		prefixes: make([]string, 0, len(b.lookup)),
	}
	for k := range b.lookup {
		t.prefixes = append(t.prefixes, k)
	}
	sort.Slice(t.prefixes, func(i, j int) bool {
		if len(t.prefixes[i]) != len(t.prefixes[j]) {
			return len(t.prefixes[i]) > len(t.prefixes[j])
		}
		return t.prefixes[i] < t.prefixes[j]
	})
	t.fingerprint = fingerprint(t.patterns, t.lookup)

	b.patterns, b.lookup, b.seen = nil, nil, nil
	return t
}

func fingerprint(patterns []string, lookup map[string]string) uint64 {
	h := murmur3.New64()
	for _, p := range patterns {
		_, _ = h.Write([]byte(p))
		_, _ = h.Write([]byte{0})
		_, _ = h.Write([]byte(lookup[StripPattern(p)]))
		_, _ = h.Write([]byte{'\n'})
	}
	return h.Sum64()
}
