// Package backup keeps a rotating set of database snapshots while the server
// runs.
package backup

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

const (
	DefaultInterval = 6 * time.Hour
	DefaultKeepLast = 24

	filePrefix = "sherlog-"
	fileSuffix = ".duckdb"
	// Lexical order of names in this layout is chronological.
	stampLayout = "20060102-150405.000"
)

// Snapshotter is the part of the store a Manager needs.
type Snapshotter interface {
	DBPath() string
	SnapshotTo(dstPath string) error
}

// Config controls periodic snapshots. An empty Dir disables them.
type Config struct {
	Dir      string
	Interval time.Duration
	KeepLast int
}

// Manager takes a snapshot at startup and then once per interval, keeping
// the newest KeepLast files in Dir.
type Manager struct {
	store Snapshotter
	cfg   Config
	now   func() time.Time

	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewManager returns nil, nil when snapshots are disabled.
func NewManager(store Snapshotter, cfg Config) (*Manager, error) {
	if strings.TrimSpace(cfg.Dir) == "" {
		return nil, nil
	}
	if store == nil {
		return nil, fmt.Errorf("backup: nil snapshotter")
	}
	if strings.TrimSpace(store.DBPath()) == "" {
		return nil, fmt.Errorf("backup: in-memory database cannot be snapshotted")
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.KeepLast <= 0 {
		cfg.KeepLast = DefaultKeepLast
	}
	if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
		return nil, fmt.Errorf("backup: create snapshot dir: %w", err)
	}

	m := &Manager{
		store: store,
		cfg:   cfg,
		now:   time.Now,
		done:  make(chan struct{}),
	}
	if _, err := m.RunOnce(); err != nil {
		log.Printf("backup: startup snapshot failed: %v", err)
	}

	m.wg.Add(1)
	go m.loop()
	return m, nil
}

func (m *Manager) loop() {
	defer m.wg.Done()
	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := m.RunOnce(); err != nil {
				log.Printf("backup: periodic snapshot failed: %v", err)
			}
		case <-m.done:
			return
		}
	}
}

// RunOnce writes one snapshot, prunes old ones and returns the new path.
func (m *Manager) RunOnce() (string, error) {
	name := filePrefix + m.now().UTC().Format(stampLayout) + fileSuffix
	path := filepath.Join(m.cfg.Dir, name)

	if err := m.store.SnapshotTo(path); err != nil {
		return "", fmt.Errorf("snapshot: %w", err)
	}
	log.Printf("backup: created snapshot %s", path)

	if err := prune(m.cfg.Dir, m.cfg.KeepLast); err != nil {
		return path, fmt.Errorf("prune snapshots: %w", err)
	}
	return path, nil
}

// Stop ends the loop. It may be called more than once.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		close(m.done)
		m.wg.Wait()
	})
}

// Snapshots lists the snapshot files in dir, newest first.
func Snapshots(dir string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, filePrefix+"*"+fileSuffix))
	if err != nil {
		return nil, err
	}
	sort.Sort(sort.Reverse(sort.StringSlice(matches)))
	return matches, nil
}

func prune(dir string, keepLast int) error {
	matches, err := Snapshots(dir)
	if err != nil {
		return err
	}
	if len(matches) <= keepLast {
		return nil
	}
	for _, old := range matches[keepLast:] {
		if err := os.Remove(old); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}
