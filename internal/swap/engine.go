package swap

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/krunkswap/krunkswap/internal/host"
)

type Options struct {
	Root    string
	Host    string
	Scripts []Script
	// Resolver may be nil, in which case versioned scripts only get local
	// overrides.
	Resolver VersionResolver
	Log      *logrus.Entry
}

// Result carries the built table and the contained failures that shaped it.
type Result struct {
	Table      *Table
	Token      string
	ScanErr    error
	ResolveErr error
}

// Load creates the swap root if needed, scans it and resolves the build token
// concurrently, then freezes the table. Failures never abort the load; they
// only remove entries.
func Load(ctx context.Context, opts Options) Result {
	log := opts.Log
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	scripts := opts.Scripts
	if scripts == nil {
		scripts = DefaultScripts()
	}

	root, err := filepath.Abs(opts.Root)
	if err != nil {
		root = opts.Root
	}

	var (
		files   []string
		scanErr error
		token   string
		resErr  error
	)

	g, gctx := errgroup.WithContext(ctx)
	if err := os.MkdirAll(root, 0o755); err != nil {
		scanErr = &ScanError{Root: root, Err: err}
	} else {
		g.Go(func() error {
			files, scanErr = Scan(root)
			return nil
		})
	}
	if opts.Resolver != nil && hasVersioned(scripts) {
		g.Go(func() error {
			token, resErr = opts.Resolver.Resolve(gctx)
			return nil
		})
	}
	_ = g.Wait()

	if scanErr != nil {
		log.WithError(scanErr).Warn("swap directory scan incomplete")
	}
	if resErr != nil {
		log.WithError(resErr).Warn("build version unresolved, versioned scripts not rewritten")
	}

	b := NewBuilder(opts.Host, log)
	for _, s := range scripts {
		b.Reserve("/" + filepath.ToSlash(s.File))
		local := filepath.Join(root, s.File)
		if fi, err := os.Stat(local); err == nil && fi.Mode().IsRegular() {
			b.Add(Entry{Pattern: s.Pattern(opts.Host), Destination: FileURI(local)})
			continue
		}
		if s.Versioned && token != "" {
			b.Add(Entry{Pattern: s.Pattern(opts.Host), Destination: s.RemoteURL(opts.Host, token)})
		}
	}
	for _, f := range files {
		if err := b.AddFile(root, f); err != nil {
			log.WithError(err).WithField("file", f).Warn("skipping swap file")
		}
	}
	table := b.Build()

	log.WithFields(logrus.Fields{
		"root":        root,
		"entries":     table.Len(),
		"build":       token,
		"fingerprint": fmt.Sprintf("%016x", table.Fingerprint()),
	}).Info("swap table ready")

	return Result{Table: table, Token: token, ScanErr: scanErr, ResolveErr: resErr}
}

func hasVersioned(scripts []Script) bool {
	for _, s := range scripts {
		if s.Versioned {
			return true
		}
	}
	return false
}

// Install wires the header rewriter and the interceptor into session. The
// table must be fully built; callers navigate only after Install returns.
func Install(session host.Session, table *Table, rw *HeaderRewriter, log *logrus.Entry) (*Interceptor, error) {
	if rw != nil {
		if err := rw.Install(session); err != nil {
			return nil, fmt.Errorf("install header rewriter: %w", err)
		}
	}
	ic := NewInterceptor(table, log)
	if err := ic.Install(session); err != nil {
		return nil, fmt.Errorf("install interceptor: %w", err)
	}
	return ic, nil
}
