package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/patrickmn/go-cache"
)

const KeyUser = "user"

// Prefs is the small key-value store the storefront keeps between runs.
// With an empty path nothing touches the disk.
type Prefs struct {
	cache *cache.Cache
	path  string
}

func Open(path string) (*Prefs, error) {
	p := &Prefs{
		cache: cache.New(cache.NoExpiration, 0),
		path:  path,
	}
	if path == "" {
		return p, nil
	}

	if err := p.cache.LoadFile(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return p, nil
		}
		return nil, fmt.Errorf("load prefs %s: %w", path, err)
	}
	return p, nil
}

func (p *Prefs) Get(key string) (string, bool) {
	v, ok := p.cache.Get(key)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func (p *Prefs) Set(key, value string) error {
	p.cache.Set(key, value, cache.NoExpiration)
	return p.save()
}

func (p *Prefs) Delete(key string) error {
	p.cache.Delete(key)
	return p.save()
}

func (p *Prefs) User() (string, bool) { return p.Get(KeyUser) }

func (p *Prefs) SetUser(name string) error { return p.Set(KeyUser, name) }

func (p *Prefs) Logout() error { return p.Delete(KeyUser) }

func (p *Prefs) save() error {
	if p.path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(p.path), 0o755); err != nil {
		return fmt.Errorf("create prefs dir: %w", err)
	}
	if err := p.cache.SaveFile(p.path); err != nil {
		return fmt.Errorf("save prefs %s: %w", p.path, err)
	}
	return nil
}
