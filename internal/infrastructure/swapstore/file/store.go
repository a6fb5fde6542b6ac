package file

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/mwswap/mwswapd/internal/core/domain"
	"github.com/mwswap/mwswapd/internal/core/ports"
	log "github.com/sirupsen/logrus"
	"github.com/thanhpk/randstr"
)

const (
	pubSuffix = ".pub.json"
	prvSuffix = ".prv.json"
)

type store struct {
	lock  sync.RWMutex
	dir   string
	index map[uint64]struct{}
}

// NewStore opens (or creates) the swap directory and indexes the public
// halves found there.
func NewStore(dir string) (ports.SwapSlateStore, error) {
	if len(dir) <= 0 {
		return nil, fmt.Errorf("swap directory must not be empty")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("creating swap directory: %w", err)
	}
	s := &store{dir: dir}
	if _, err := s.List(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *store) Dir() string {
	return s.dir
}

// Exists looks up the index first and falls back to the directory, so
// that public halves dropped in by the counterparty are found without a
// rescan.
func (s *store) Exists(id uint64) bool {
	s.lock.RLock()
	_, ok := s.index[id]
	s.lock.RUnlock()
	if ok {
		return true
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	if _, err := os.Stat(s.pubPath(id)); err != nil {
		return false
	}
	s.index[id] = struct{}{}
	return true
}

func (s *store) HasPrivate(id uint64) bool {
	s.lock.RLock()
	defer s.lock.RUnlock()

	_, err := os.Stat(s.prvPath(id))
	return err == nil
}

func (s *store) LoadPub(id uint64) ([]byte, error) {
	if !s.Exists(id) {
		return nil, domain.ErrSwapNotFound
	}

	s.lock.RLock()
	defer s.lock.RUnlock()

	return s.read(s.pubPath(id))
}

func (s *store) LoadPrv(id uint64) ([]byte, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	return s.read(s.prvPath(id))
}

func (s *store) SavePub(id uint64, data []byte) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if err := writeAtomic(s.pubPath(id), data); err != nil {
		return err
	}
	s.index[id] = struct{}{}
	return nil
}

func (s *store) SavePrv(id uint64, data []byte) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	return writeAtomic(s.prvPath(id), data)
}

// Delete removes both halves. It fails if none of them exists.
func (s *store) Delete(id uint64) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	var removed int
	for _, path := range []string{s.pubPath(id), s.prvPath(id)} {
		if err := os.Remove(path); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return err
		}
		removed++
	}
	delete(s.index, id)

	if removed == 0 {
		return domain.ErrSwapNotFound
	}
	return nil
}

// List rescans the directory and returns the ids of all public halves in
// ascending order. Files not following the naming scheme are ignored.
func (s *store) List() ([]uint64, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}

	index := make(map[uint64]struct{})
	ids := make([]uint64, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, pubSuffix) {
			continue
		}
		id, err := strconv.ParseUint(strings.TrimSuffix(name, pubSuffix), 10, 64)
		if err != nil {
			log.Debugf("swap store: skipping unexpected file %s", name)
			continue
		}
		index[id] = struct{}{}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	s.lock.Lock()
	s.index = index
	s.lock.Unlock()

	return ids, nil
}

func (s *store) read(path string) ([]byte, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrSwapNotFound
		}
		return nil, err
	}
	return buf, nil
}

func (s *store) pubPath(id uint64) string {
	return filepath.Join(s.dir, fmt.Sprintf("%d%s", id, pubSuffix))
}

func (s *store) prvPath(id uint64) string {
	return filepath.Join(s.dir, fmt.Sprintf("%d%s", id, prvSuffix))
}

func writeAtomic(path string, data []byte) error {
	tmp := fmt.Sprintf("%s.%s.tmp", path, randstr.Hex(8))
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}
