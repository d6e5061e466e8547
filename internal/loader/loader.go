package loader

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/leapstack-labs/sqlshade/pkg/sqlshade"
	"golang.org/x/sync/errgroup"
)

// DefaultCacheSize is the number of parsed templates kept in memory.
const DefaultCacheSize = 128

// Errors reported by the loader.
var (
	ErrTemplateNotFound = errors.New("template not found")
	ErrDuplicateName    = errors.New("duplicate template name")
)

// Options configures a Loader.
type Options struct {
	Encoding    string         // source encoding; empty detects BOM or magic comment
	Strict      bool           // missing-data policy unless frontmatter overrides it
	Style       sqlshade.Style // bind marker style unless frontmatter overrides it
	CacheSize   int            // parsed templates kept; DefaultCacheSize when <= 0
	Concurrency int            // parallel parses in LoadAll; GOMAXPROCS when <= 0
	Debounce    time.Duration  // watch settle time; 100ms when <= 0
	Logger      *slog.Logger
}

// Entry is a parsed template file.
type Entry struct {
	Name        string
	Path        string
	ModTime     time.Time
	Frontmatter *Frontmatter
	Template    *sqlshade.Template

	hasFrontmatter bool
}

// Render binds data merged over the frontmatter params.
func (e *Entry) Render(data map[string]any) (*sqlshade.Query, error) {
	return e.RenderWith(data, e.Template.Strict(), e.Template.Style())
}

// RenderWith renders with an explicit missing-data policy and style.
func (e *Entry) RenderWith(data map[string]any, strict bool, style sqlshade.Style) (*sqlshade.Query, error) {
	merged := make(map[string]any, len(e.Frontmatter.Params)+len(data))
	maps.Copy(merged, e.Frontmatter.Params)
	maps.Copy(merged, data)

	q, err := e.Template.RenderWith(merged, strict, style)
	if err != nil {
		return nil, err
	}
	if e.hasFrontmatter {
		q.SQL = strings.TrimLeft(q.SQL, "\n")
	}
	return q, nil
}

// LoadError reports a template file that could not be read or parsed.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	// template and frontmatter errors already carry the file name
	msg := e.Err.Error()
	if strings.HasPrefix(msg, e.Path) {
		return msg
	}
	return fmt.Sprintf("%s: %s", e.Path, msg)
}

func (e *LoadError) Unwrap() error { return e.Err }

// LoadResult is the outcome of LoadAll. Entries and Errors are sorted by path.
// A file whose name is already taken by an earlier path is reported as an
// error wrapping ErrDuplicateName.
type LoadResult struct {
	Entries []*Entry
	Errors  []*LoadError
}

// Loader loads templates from a directory tree.
type Loader struct {
	dir    string
	opts   Options
	cache  *lru.Cache[string, *Entry]
	logger *slog.Logger

	mu    sync.RWMutex
	names map[string]string // template name -> path
}

// New creates a loader for dir.
func New(dir string, opts Options) (*Loader, error) {
	if opts.CacheSize <= 0 {
		opts.CacheSize = DefaultCacheSize
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = runtime.GOMAXPROCS(0)
	}
	if opts.Debounce <= 0 {
		opts.Debounce = 100 * time.Millisecond
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}

	l := &Loader{
		dir:    filepath.Clean(dir),
		opts:   opts,
		logger: opts.Logger,
		names:  make(map[string]string),
	}

	cache, err := lru.NewWithEvict(opts.CacheSize, func(path string, _ *Entry) {
		l.logger.Debug("template evicted", slog.String("path", path))
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create template cache: %w", err)
	}
	l.cache = cache
	return l, nil
}

// Dir returns the templates directory.
func (l *Loader) Dir() string { return l.dir }

// Len returns the number of cached templates.
func (l *Loader) Len() int { return l.cache.Len() }

// Files lists the *.sql files under the templates directory, skipping
// hidden directories.
func (l *Loader) Files() ([]string, error) {
	var files []string
	err := filepath.WalkDir(l.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != l.dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) == ".sql" {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", l.dir, err)
	}
	sort.Strings(files)
	return files, nil
}

// LoadAll parses every template in the directory in parallel. Per-file
// failures are collected in the result; the returned error is only set when
// the directory cannot be scanned or ctx is cancelled.
func (l *Loader) LoadAll(ctx context.Context) (*LoadResult, error) {
	start := time.Now()
	files, err := l.Files()
	if err != nil {
		return nil, err
	}

	entries := make([]*Entry, len(files))
	errs := make([]*LoadError, len(files))

	eg, egctx := errgroup.WithContext(ctx)
	eg.SetLimit(l.opts.Concurrency)
	for i, path := range files {
		eg.Go(func() error {
			if err := egctx.Err(); err != nil {
				return err
			}
			entry, err := l.Load(path)
			if err != nil {
				var loadErr *LoadError
				if !errors.As(err, &loadErr) {
					loadErr = &LoadError{Path: path, Err: err}
				}
				errs[i] = loadErr
				return nil
			}
			entries[i] = entry
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	// the first file in path order owns a name
	owners := make(map[string]string)
	for i, entry := range entries {
		if entry == nil {
			continue
		}
		if owner, ok := owners[entry.Name]; ok {
			l.cache.Remove(entry.Path)
			errs[i] = &LoadError{Path: entry.Path, Err: fmt.Errorf("%w %q, already used by %s", ErrDuplicateName, entry.Name, owner)}
			entries[i] = nil
			continue
		}
		owners[entry.Name] = entry.Path
	}
	l.mu.Lock()
	maps.Copy(l.names, owners)
	l.mu.Unlock()

	result := &LoadResult{}
	for i := range files {
		if entries[i] != nil {
			result.Entries = append(result.Entries, entries[i])
		}
		if errs[i] != nil {
			result.Errors = append(result.Errors, errs[i])
		}
	}

	l.logger.Debug("templates loaded",
		slog.String("dir", l.dir),
		slog.Int("total", len(files)),
		slog.Int("errors", len(result.Errors)),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()))
	return result, nil
}

// Load returns the template at path, parsing it unless a cached entry with
// the same modification time exists.
func (l *Loader) Load(path string) (*Entry, error) {
	path = filepath.Clean(path)
	info, err := os.Stat(path)
	if err != nil {
		l.Invalidate(path)
		return nil, &LoadError{Path: path, Err: err}
	}

	if entry, ok := l.cache.Get(path); ok && entry.ModTime.Equal(info.ModTime()) {
		l.logger.Debug("template cache hit", slog.String("path", path))
		return entry, nil
	}

	entry, err := l.parse(path, info.ModTime())
	if err != nil {
		l.Invalidate(path)
		return nil, err
	}

	l.cache.Add(path, entry)
	l.mu.Lock()
	if owner, ok := l.names[entry.Name]; !ok || owner == path || !l.cache.Contains(owner) {
		l.names[entry.Name] = path
	}
	l.mu.Unlock()
	return entry, nil
}

func (l *Loader) parse(path string, modTime time.Time) (*Entry, error) {
	src, err := os.ReadFile(path) //nolint:gosec // G304: path comes from the templates directory walk or the caller
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}

	text, err := sqlshade.Decode(src, l.opts.Encoding, path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}

	fm, err := ExtractFrontmatter(text)
	if err != nil {
		switch e := err.(type) {
		case *FrontmatterParseError:
			e.File = path
		case *UnknownFieldError:
			e.File = path
		}
		return nil, &LoadError{Path: path, Err: err}
	}
	fm.Frontmatter.ApplyDefaults(l.relName(path))

	opts := []sqlshade.Option{
		sqlshade.WithFilename(path),
		sqlshade.WithStrict(l.opts.Strict),
		sqlshade.WithStyle(l.opts.Style),
		sqlshade.WithLogger(l.logger),
	}
	opts = append(opts, fm.Frontmatter.Options()...)

	tmpl, err := sqlshade.New(fm.SQL, opts...)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}

	return &Entry{
		Name:           fm.Frontmatter.Name,
		Path:           path,
		ModTime:        modTime,
		Frontmatter:    fm.Frontmatter,
		Template:       tmpl,
		hasFrontmatter: fm.HasYAML,
	}, nil
}

// relName turns a path into a slash-separated name relative to the
// templates directory, e.g. "members/find.sql".
func (l *Loader) relName(path string) string {
	rel, err := filepath.Rel(l.dir, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return filepath.Base(path)
	}
	return filepath.ToSlash(rel)
}

// Get returns the template with the given frontmatter or file name. A name
// not seen yet is looked up as <dir>/<name>.sql.
func (l *Loader) Get(name string) (*Entry, error) {
	l.mu.RLock()
	path, ok := l.names[name]
	l.mu.RUnlock()

	if !ok {
		path = filepath.Join(l.dir, filepath.FromSlash(strings.TrimSuffix(name, ".sql")+".sql"))
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("%w: %s", ErrTemplateNotFound, name)
		}
	}
	return l.Load(path)
}

// Invalidate drops the cached entry for path.
func (l *Loader) Invalidate(path string) {
	path = filepath.Clean(path)
	if l.cache.Remove(path) {
		l.logger.Debug("template invalidated", slog.String("path", path))
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	for name, p := range l.names {
		if p == path {
			delete(l.names, name)
		}
	}
}
