package localstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"
)

var validKey = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// expiringDir holds entries written with a TTL. Their modification time is the expiry.
const expiringDir = "expiring"

// File stores each key as one file in a directory. Writes go through a temp file and a
// rename so a crash never leaves a half-written value behind.
type File struct {
	dir string
	mu  sync.Mutex
	now func() time.Time
}

func NewFile(dir string) (*File, error) {
	if err := os.MkdirAll(filepath.Join(dir, expiringDir), 0o755); err != nil {
		return nil, fmt.Errorf("create data dir %s: %w", dir, err)
	}
	return &File{dir: dir, now: time.Now}, nil
}

func (f *File) path(key string) (string, error) {
	if !validKey.MatchString(key) {
		return "", fmt.Errorf("invalid storage key %q", key)
	}
	return filepath.Join(f.dir, key+".json"), nil
}

func (f *File) expiringPath(key string) string {
	return filepath.Join(f.dir, expiringDir, key+".json")
}

func (f *File) Get(_ context.Context, key string) (string, bool, error) {
	p, err := f.path(key)
	if err != nil {
		return "", false, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	v, ok, err := readValue(p)
	if err != nil || ok {
		return v, ok, err
	}

	ep := f.expiringPath(key)
	info, err := os.Stat(ep)
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("read %s: %w", key, err)
	}
	if !f.now().Before(info.ModTime()) {
		_ = os.Remove(ep)
		return "", false, nil
	}
	return readValue(ep)
}

func readValue(p string) (string, bool, error) {
	b, err := os.ReadFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("read %s: %w", filepath.Base(p), err)
	}
	return string(b), true, nil
}

func (f *File) Set(_ context.Context, key, value string) error {
	p, err := f.path(key)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.write(key, p, value); err != nil {
		return err
	}
	_ = os.Remove(f.expiringPath(key))
	return nil
}

// SetWithTTL stores value until ttl elapses and removes every entry that has already expired.
func (f *File) SetWithTTL(_ context.Context, key, value string, ttl time.Duration) error {
	p, err := f.path(key)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	now := f.now()
	f.prune(now)

	ep := f.expiringPath(key)
	if err := f.write(key, ep, value); err != nil {
		return err
	}
	exp := now.Add(ttl)
	if err := os.Chtimes(ep, exp, exp); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	_ = os.Remove(p)
	return nil
}

func (f *File) prune(now time.Time) {
	entries, err := os.ReadDir(filepath.Join(f.dir, expiringDir))
	if err != nil {
		return
	}
	for _, e := range entries {
		info, err := e.Info()
		if err != nil || e.IsDir() {
			continue
		}
		if !now.Before(info.ModTime()) {
			_ = os.Remove(filepath.Join(f.dir, expiringDir, e.Name()))
		}
	}
}

func (f *File) write(key, p, value string) error {
	tmp, err := os.CreateTemp(f.dir, key+".*.tmp")
	if err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(value); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}
