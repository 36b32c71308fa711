package session

import (
	"encoding/json"
	"io/ioutil"
	"net/http"
	"os"
	"path/filepath"
	"sync"

	"github.com/gorilla/sessions"
	"github.com/pkg/errors"
)

type MemoryStorage struct {
	mu     sync.Mutex
	values map[string]string
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{values: make(map[string]string)}
}

func (m *MemoryStorage) Get(key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok
}

func (m *MemoryStorage) Put(values map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range values {
		m.values[k] = v
	}
	return nil
}

func (m *MemoryStorage) Remove(keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.values, k)
	}
	return nil
}

// FileStorage keeps the records in a single JSON document. Writes go to a
// temp file that is renamed over the original.
type FileStorage struct {
	mu      sync.Mutex
	path    string
	corrupt bool
}

func NewFileStorage(path string) *FileStorage {
	return &FileStorage{path: path}
}

func (f *FileStorage) load() (map[string]string, error) {
	values := make(map[string]string)
	buf, err := ioutil.ReadFile(f.path)
	if os.IsNotExist(err) {
		return values, nil
	}
	if err != nil {
		return values, errors.Wrapf(err, "unable to read %s", f.path)
	}
	if len(buf) == 0 {
		return values, nil
	}
	if err := json.Unmarshal(buf, &values); err != nil {
		return make(map[string]string), errors.Wrapf(err, "unable to parse %s", f.path)
	}
	return values, nil
}

func (f *FileStorage) Get(key string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	values, err := f.load()
	if err != nil {
		f.corrupt = true
		return "", false
	}
	v, ok := values[key]
	return v, ok
}

// Corrupted reports whether the last read found an unreadable document.
func (f *FileStorage) Corrupted() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.corrupt
}

func (f *FileStorage) Put(values map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	current, err := f.load()
	if err != nil {
		current = make(map[string]string)
	}
	for k, v := range values {
		current[k] = v
	}
	return f.write(current)
}

func (f *FileStorage) Remove(keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	current, err := f.load()
	if err != nil {
		current = make(map[string]string)
	}
	for _, k := range keys {
		delete(current, k)
	}
	if len(current) == 0 {
		f.corrupt = false
		if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
			return errors.Wrapf(err, "unable to remove %s", f.path)
		}
		return nil
	}
	return f.write(current)
}

func (f *FileStorage) write(values map[string]string) error {
	buf, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return errors.Wrap(err, "unable to encode session file")
	}
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return errors.Wrapf(err, "unable to create %s", dir)
	}
	tmp, err := ioutil.TempFile(dir, ".session-*")
	if err != nil {
		return errors.Wrap(err, "unable to create temp session file")
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(buf); err != nil {
		tmp.Close()
		return errors.Wrap(err, "unable to write temp session file")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "unable to close temp session file")
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return errors.Wrapf(err, "unable to replace %s", f.path)
	}
	f.corrupt = false
	return nil
}

// CookieStorage persists the records in a gorilla session. Every commit
// saves the cookie once, so it must run before the response body is written.
type CookieStorage struct {
	sess *sessions.Session
	r    *http.Request
	w    http.ResponseWriter
}

func NewCookieStorage(sess *sessions.Session, r *http.Request, w http.ResponseWriter) *CookieStorage {
	return &CookieStorage{sess: sess, r: r, w: w}
}

func (c *CookieStorage) Get(key string) (string, bool) {
	v, ok := c.sess.Values[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	if !ok {
		// present but not a string, let the store treat it as damaged
		return "", true
	}
	return s, true
}

func (c *CookieStorage) Put(values map[string]string) error {
	for k, v := range values {
		c.sess.Values[k] = v
	}
	return errors.Wrap(c.sess.Save(c.r, c.w), "unable to save session cookie")
}

func (c *CookieStorage) Remove(keys ...string) error {
	changed := false
	for _, k := range keys {
		if _, ok := c.sess.Values[k]; ok {
			delete(c.sess.Values, k)
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return errors.Wrap(c.sess.Save(c.r, c.w), "unable to save session cookie")
}
