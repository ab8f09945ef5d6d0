package registry

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/anirudhraja/protocodec/schema"
)

// ErrNotFound is returned by lookups for names that are not registered.
var ErrNotFound = errors.New("not found")

// Registry stores the schema of protobuf messages. We look descriptors up
// here when we need to parse or marshal a message. It is safe for concurrent
// use; loads are atomic, so a failed load registers nothing.
type Registry struct {
	mu          sync.RWMutex
	logger      zerolog.Logger
	importPaths []string

	files    map[string]*schema.File    // import path -> file
	messages map[string]*schema.Message // fully qualified name -> message
	enums    map[string]*schema.Enum    // fully qualified name -> enum
	services map[string]*schema.Service // fully qualified name -> service
}

// Option configures a Registry.
type Option func(*Registry)

// WithImportPaths adds directories searched for imported .proto files.
func WithImportPaths(dirs ...string) Option {
	return func(r *Registry) { r.importPaths = append(r.importPaths, dirs...) }
}

// WithLogger sets the logger for load diagnostics.
func WithLogger(l zerolog.Logger) Option {
	return func(r *Registry) { r.logger = l }
}

// NewRegistry returns a registry preloaded with the google.protobuf
// well-known types.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		logger:   zerolog.Nop(),
		files:    make(map[string]*schema.File),
		messages: make(map[string]*schema.Message),
		enums:    make(map[string]*schema.Enum),
		services: make(map[string]*schema.Service),
	}
	for _, opt := range opts {
		opt(r)
	}
	if err := r.loadWellKnown(); err != nil {
		panic(fmt.Sprintf("registry: well-known types: %v", err))
	}
	return r
}

// LoadSchema loads a .proto file, or every .proto file under a directory,
// together with the files they import. Imports are looked up relative to
// the directory (or the file's directory) and the configured import paths.
// Imports that cannot be found are skipped with a warning; option-only
// imports such as gogoproto do not define types the codec needs.
func (r *Registry) LoadSchema(protoPath string) error {
	info, err := os.Stat(protoPath)
	if err != nil {
		return fmt.Errorf("path does not exist: %w", err)
	}
	l := r.newLoader()
	if !info.IsDir() {
		if !strings.HasSuffix(protoPath, ".proto") {
			return fmt.Errorf("file %s is not a .proto file", protoPath)
		}
		l.roots = append([]string{filepath.Dir(protoPath)}, l.roots...)
		if err := l.loadPath(filepath.Base(protoPath), protoPath); err != nil {
			return err
		}
		return r.commit(l.files)
	}

	l.roots = append([]string{protoPath}, l.roots...)
	err = filepath.WalkDir(protoPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".proto") {
			return nil
		}
		rel, err := filepath.Rel(protoPath, path)
		if err != nil {
			return err
		}
		return l.loadPath(filepath.ToSlash(rel), path)
	})
	if err != nil {
		return fmt.Errorf("failed to walk directory: %w", err)
	}
	return r.commit(l.files)
}

// LoadSource parses one .proto source registered under the import path name.
// Its imports must already be registered or be found on the import paths.
func (r *Registry) LoadSource(name string, src []byte) error {
	l := r.newLoader()
	if l.seen[name] {
		return fmt.Errorf("file %s is already registered", name)
	}
	if err := l.load(name, bytes.NewReader(src)); err != nil {
		return err
	}
	return r.commit(l.files)
}

// Register adds descriptors built in code, for instance with the schema
// builders. Field types must already point at their descriptors.
func (r *Registry) Register(files ...*schema.File) error {
	return r.commit(files)
}

// loader collects the files of one load before they are committed.
type loader struct {
	r     *Registry
	roots []string
	seen  map[string]bool
	files []*schema.File
}

func (r *Registry) newLoader() *loader {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[string]bool, len(r.files))
	for name := range r.files {
		seen[name] = true
	}
	return &loader{r: r, roots: append([]string(nil), r.importPaths...), seen: seen}
}

func (l *loader) loadPath(name, path string) error {
	if l.seen[name] {
		return nil
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}
	return l.load(name, bytes.NewReader(content))
}

// load parses one file and, depth first, the files it imports. Imports are
// appended before the importing file.
func (l *loader) load(name string, src io.Reader) error {
	if l.seen[name] {
		return nil
	}
	l.seen[name] = true
	file, err := l.r.parseFile(name, src)
	if err != nil {
		return err
	}
	for _, imp := range file.Imports {
		if l.seen[imp.Path] {
			continue
		}
		path, ok := l.r.findImport(imp.Path, l.roots)
		if !ok {
			ev := l.r.logger.Warn()
			if optionImports[imp.Path] {
				ev = l.r.logger.Debug()
			}
			ev.Str("file", name).Str("import", imp.Path).Msg("import not found, skipping")
			continue
		}
		if err := l.loadPath(imp.Path, path); err != nil {
			return err
		}
	}
	l.files = append(l.files, file)
	l.r.logger.Debug().Str("file", name).Str("package", file.Package).Int("messages", len(file.Messages)).Msg("parsed proto file")
	return nil
}

// commit links and builds files against the registered symbols and publishes
// them. Nothing is published if any file fails.
func (r *Registry) commit(files []*schema.File) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	syms := &symbols{
		messages: make(map[string]*schema.Message, len(r.messages)),
		enums:    make(map[string]*schema.Enum, len(r.enums)),
	}
	for name, m := range r.messages {
		syms.messages[name] = m
	}
	for name, e := range r.enums {
		syms.enums[name] = e
	}
	for _, f := range files {
		if _, dup := r.files[f.Name]; dup {
			return fmt.Errorf("file %s is already registered", f.Name)
		}
		if err := syms.addFile(f); err != nil {
			return err
		}
	}
	for _, f := range files {
		if err := syms.linkFile(f); err != nil {
			return err
		}
	}
	for _, f := range files {
		if err := buildFile(f); err != nil {
			return err
		}
	}

	for _, f := range files {
		r.files[f.Name] = f
		for _, svc := range f.Services {
			r.services[svc.FullName] = svc
		}
	}
	r.messages, r.enums = syms.messages, syms.enums
	return nil
}

// GetMessage retrieves a message by fully qualified name, or by a name
// suffix such as "IndexerOrder" when exactly one message matches.
func (r *Registry) GetMessage(name string) (*schema.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if m, ok := lookup(r.messages, name); ok {
		return m, nil
	}
	return nil, fmt.Errorf("message %s: %w", name, ErrNotFound)
}

// GetEnum retrieves an enum definition by name.
func (r *Registry) GetEnum(name string) (*schema.Enum, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := lookup(r.enums, name); ok {
		return e, nil
	}
	return nil, fmt.Errorf("enum %s: %w", name, ErrNotFound)
}

// GetService retrieves a service definition by name.
func (r *Registry) GetService(name string) (*schema.Service, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if s, ok := lookup(r.services, name); ok {
		return s, nil
	}
	return nil, fmt.Errorf("service %s: %w", name, ErrNotFound)
}

// GetFile returns a registered file by import path.
func (r *Registry) GetFile(name string) (*schema.File, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if f, ok := r.files[name]; ok {
		return f, nil
	}
	return nil, fmt.Errorf("file %s: %w", name, ErrNotFound)
}

// MessageByTypeURL resolves the payload type of a google.protobuf.Any:
// everything after the last '/' is the full message name.
func (r *Registry) MessageByTypeURL(typeURL string) (*schema.Message, error) {
	name := typeURL[strings.LastIndexByte(typeURL, '/')+1:]
	r.mu.RLock()
	defer r.mu.RUnlock()
	if m, ok := r.messages[name]; ok {
		return m, nil
	}
	return nil, fmt.Errorf("type URL %s: %w", typeURL, ErrNotFound)
}

// lookup matches the full name first, then a unique dotted suffix.
func lookup[T any](table map[string]T, name string) (T, bool) {
	name = strings.TrimPrefix(name, ".")
	if v, ok := table[name]; ok {
		return v, true
	}
	var (
		found T
		hits  int
	)
	for fullName, v := range table {
		if strings.HasSuffix(fullName, "."+name) {
			found = v
			hits++
		}
	}
	return found, hits == 1
}

// ListMessages returns all registered message names, sorted.
func (r *Registry) ListMessages() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var names []string
	for name, m := range r.messages {
		if !m.MapEntry {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// ListEnums returns all registered enum names, sorted.
func (r *Registry) ListEnums() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.enums)
}

// ListServices returns all registered service names, sorted.
func (r *Registry) ListServices() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.services)
}

// ListFiles returns the import paths of all registered files, sorted.
func (r *Registry) ListFiles() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.files)
}

func sortedKeys[T any](table map[string]T) []string {
	names := make([]string, 0, len(table))
	for name := range table {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
