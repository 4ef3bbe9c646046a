package vision

import (
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/vcaesar/imgo"
)

// ErrUnknownTemplate is returned for keys missing from the store's index.
var ErrUnknownTemplate = errors.New("unknown template")

// TemplateStore maps template keys to image files and caches decoded
// images for the life of the process.
type TemplateStore struct {
	dir   string
	paths map[string]string

	mu    sync.Mutex
	cache map[string]image.Image
}

// NewTemplateStore indexes keys to file names relative to dir. Absolute
// file names are used as is.
func NewTemplateStore(dir string, files map[string]string) *TemplateStore {
	paths := make(map[string]string, len(files))
	for k, f := range files {
		if !filepath.IsAbs(f) {
			f = filepath.Join(dir, f)
		}
		paths[k] = f
	}
	return &TemplateStore{dir: dir, paths: paths, cache: make(map[string]image.Image)}
}

// Put registers an already decoded template.
func (s *TemplateStore) Put(key string, img image.Image) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.paths[key]; !ok {
		s.paths[key] = ""
	}
	s.cache[key] = img
}

// Has reports whether key is indexed.
func (s *TemplateStore) Has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.paths[key]
	return ok
}

// Keys returns the indexed keys in sorted order.
func (s *TemplateStore) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.paths))
	for k := range s.paths {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Path returns the file behind key.
func (s *TemplateStore) Path(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.paths[key]
	return p, ok
}

// Load returns the decoded template for key.
func (s *TemplateStore) Load(key string) (image.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if img, ok := s.cache[key]; ok {
		return img, nil
	}
	path, ok := s.paths[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTemplate, key)
	}
	img, err := imgo.Read(path)
	if err != nil {
		return nil, fmt.Errorf("load template %s from %s: %w", key, path, err)
	}
	s.cache[key] = img
	return img, nil
}

// Missing returns the indexed keys whose files do not exist on disk.
func (s *TemplateStore) Missing() []string {
	var out []string
	for _, k := range s.Keys() {
		p, _ := s.Path(k)
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); err != nil {
			out = append(out, k)
		}
	}
	return out
}
