package patterns

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

//go:embed corpus
var corpusFS embed.FS

// ErrNotFound is returned when a pattern name is not in the corpus.
var ErrNotFound = errors.New("pattern not found")

// Pattern is one document of the corpus.
type Pattern struct {
	Name     string `json:"name"`
	Filename string `json:"filename"`
	Category string `json:"category"`
}

// Library is a read-through index over a pattern corpus.
//
// Thread Safety: Library is safe for concurrent use. Content is cached per
// name for the lifetime of the Library; a name is read from the
// filesystem at most once.
type Library struct {
	fsys   fs.FS
	logger *zap.Logger

	indexOnce sync.Once
	index     []Pattern
	byName    map[string]Pattern
	indexErr  error

	cache sync.Map // name -> string
	group singleflight.Group
}

// Option configures a Library.
type Option func(*Library)

// WithLogger sets the logger used for cache misses and read failures.
func WithLogger(logger *zap.Logger) Option {
	return func(l *Library) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewLibrary creates a library over fsys.
func NewLibrary(fsys fs.FS, opts ...Option) *Library {
	l := &Library{fsys: fsys, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Default returns a library over the embedded corpus.
func Default(opts ...Option) *Library {
	sub, err := fs.Sub(corpusFS, "corpus")
	if err != nil {
		panic(fmt.Sprintf("embedded corpus: %v", err))
	}
	return NewLibrary(sub, opts...)
}

// OpenDir returns a library over a corpus directory on disk.
func OpenDir(dir string, opts ...Option) (*Library, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("patterns directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("patterns directory: not a directory: %s", dir)
	}
	return NewLibrary(os.DirFS(dir), opts...), nil
}

// ListAvailablePatterns returns every pattern sorted by name.
func (l *Library) ListAvailablePatterns() ([]Pattern, error) {
	if err := l.loadIndex(); err != nil {
		return nil, err
	}
	out := make([]Pattern, len(l.index))
	copy(out, l.index)
	return out, nil
}

// Lookup returns the pattern with the given name.
func (l *Library) Lookup(name string) (Pattern, error) {
	if err := l.loadIndex(); err != nil {
		return Pattern{}, err
	}
	p, ok := l.byName[name]
	if !ok {
		return Pattern{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return p, nil
}

func (l *Library) loadIndex() error {
	l.indexOnce.Do(func() {
		l.byName = make(map[string]Pattern)
		l.indexErr = fs.WalkDir(l.fsys, ".", func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || path.Ext(p) != ".md" {
				return nil
			}
			name := strings.TrimSuffix(path.Base(p), ".md")
			if _, dup := l.byName[name]; dup {
				l.logger.Warn("duplicate pattern name ignored",
					zap.String("name", name),
					zap.String("filename", p))
				return nil
			}
			category := path.Dir(p)
			if category == "." {
				category = "general"
			}
			pat := Pattern{Name: name, Filename: p, Category: category}
			l.byName[name] = pat
			l.index = append(l.index, pat)
			return nil
		})
		if l.indexErr != nil {
			l.indexErr = fmt.Errorf("indexing patterns: %w", l.indexErr)
		}
		sort.Slice(l.index, func(i, j int) bool { return l.index[i].Name < l.index[j].Name })
	})
	return l.indexErr
}

// GetPatternContent returns the markdown of the named pattern.
// The first call reads the file; later calls are served from cache.
func (l *Library) GetPatternContent(name string) (string, error) {
	if v, ok := l.cache.Load(name); ok {
		return v.(string), nil
	}

	v, err, _ := l.group.Do(name, func() (any, error) {
		if v, ok := l.cache.Load(name); ok {
			return v, nil
		}
		p, err := l.Lookup(name)
		if err != nil {
			return nil, err
		}
		data, err := fs.ReadFile(l.fsys, p.Filename)
		if err != nil {
			l.logger.Warn("pattern read failed",
				zap.String("name", name),
				zap.Error(err))
			return nil, fmt.Errorf("reading pattern %s: %w", name, err)
		}
		content := string(data)
		l.cache.Store(name, content)
		l.logger.Debug("pattern cached",
			zap.String("name", name),
			zap.Int("bytes", len(data)))
		return content, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// SearchPatterns returns patterns whose name or content contains keyword,
// case-insensitively.
func (l *Library) SearchPatterns(keyword string) ([]Pattern, error) {
	needle := strings.ToLower(strings.TrimSpace(keyword))
	if needle == "" {
		return []Pattern{}, nil
	}
	return l.filter(func(p Pattern, content string) bool {
		return strings.Contains(strings.ToLower(p.Name), needle) ||
			strings.Contains(strings.ToLower(content), needle)
	})
}

// GetPatternsForNodeType returns patterns that list nodeType under
// "Node Types" or mention it in their content.
func (l *Library) GetPatternsForNodeType(nodeType string) ([]Pattern, error) {
	if nodeType == "" {
		return []Pattern{}, nil
	}
	return l.filter(func(_ Pattern, content string) bool {
		meta := ParseMetadata(content)
		for _, nt := range meta.NodeTypes {
			if strings.EqualFold(nt, nodeType) {
				return true
			}
		}
		return strings.Contains(content, nodeType)
	})
}

// GetPatternsForError returns patterns that document the given code.
func (l *Library) GetPatternsForError(code string) ([]Pattern, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return []Pattern{}, nil
	}
	return l.filter(func(_ Pattern, content string) bool {
		meta := ParseMetadata(content)
		for _, c := range meta.ErrorCodes {
			if strings.EqualFold(c, code) {
				return true
			}
		}
		return strings.Contains(content, code)
	})
}

// GetPatternMetadata parses the headings of the named pattern.
func (l *Library) GetPatternMetadata(name string) (Metadata, error) {
	content, err := l.GetPatternContent(name)
	if err != nil {
		return Metadata{}, err
	}
	return ParseMetadata(content), nil
}

// ExtractCodeExamples returns every fenced code block of the named
// pattern in document order.
func (l *Library) ExtractCodeExamples(name string) ([]CodeExample, error) {
	content, err := l.GetPatternContent(name)
	if err != nil {
		return nil, err
	}
	return ParseCodeExamples(content), nil
}

func (l *Library) filter(match func(Pattern, string) bool) ([]Pattern, error) {
	all, err := l.ListAvailablePatterns()
	if err != nil {
		return nil, err
	}
	out := []Pattern{}
	for _, p := range all {
		content, err := l.GetPatternContent(p.Name)
		if err != nil {
			return nil, err
		}
		if match(p, content) {
			out = append(out, p)
		}
	}
	return out, nil
}
