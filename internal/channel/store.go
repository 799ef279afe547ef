package channel

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	logx "hookrelay/pkg/logx"
)

var ErrNotFound = errors.New("channel not found")

// DefaultID is the id of the channel synthesized on first start.
const DefaultID = "default"

// Store holds the live channel map.
//
// Reads are lock-free: the map lives in an atomic.Value and is replaced
// wholesale (copy-on-write) by mutations. Mutations serialize on a mutex
// and persist the full snapshot BEFORE publishing the new map, so the
// durable view never trails the in-memory view by more than one call.
type Store struct {
	path string
	log  logx.Logger

	mu      sync.Mutex   // serializes Create/Delete (single writer)
	current atomic.Value // stores map[string]Channel
}

// NewStore creates a store persisting to <dataDir>/channels.json.
func NewStore(dataDir string, log logx.Logger) *Store {
	if log.IsZero() {
		log = logx.Nop()
	}
	s := &Store{path: filepath.Join(dataDir, "channels.json"), log: log}
	s.current.Store(map[string]Channel{})
	return s
}

// Path returns the snapshot file location.
func (s *Store) Path() string { return s.path }

// Load reads the snapshot, or synthesizes and persists a single default
// channel when no snapshot exists. defaultDestination may be empty.
func (s *Store) Load(defaultDestination string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		m := map[string]Channel{
			DefaultID: {
				ID:          DefaultID,
				Name:        "Default",
				Destination: strings.TrimSpace(defaultDestination),
				CreatedAt:   time.Now().UTC(),
			},
		}
		if err := s.persistLocked(m); err != nil {
			return fmt.Errorf("persist default channel: %w", err)
		}
		s.current.Store(m)
		s.log.Info("no channel snapshot; created default channel", logx.String("path", s.path))
		return nil
	}
	if err != nil {
		return err
	}

	var raw map[string]Channel
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("channel snapshot %s: %w", s.path, err)
	}
	m := make(map[string]Channel, len(raw))
	for id, c := range raw {
		c.ID = id
		m[id] = c
	}
	s.current.Store(m)
	s.log.Info("channels loaded", logx.Int("count", len(m)), logx.String("path", s.path))
	return nil
}

func (s *Store) snapshot() map[string]Channel {
	m, _ := s.current.Load().(map[string]Channel)
	return m
}

// Get looks up a channel by id. Lock-free.
func (s *Store) Get(id string) (Channel, bool) {
	c, ok := s.snapshot()[id]
	return c, ok
}

// Len returns the number of live channels.
func (s *Store) Len() int { return len(s.snapshot()) }

// List returns all live channels sorted by creation time, oldest first.
func (s *Store) List() []Channel {
	m := s.snapshot()
	out := make([]Channel, 0, len(m))
	for _, c := range m {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Create registers a new channel under a fresh random id and persists the
// snapshot before returning. destination and secret may be empty.
func (s *Store) Create(name, destination, secret string) (Channel, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Channel{}, errors.New("channel name is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	old := s.snapshot()

	// Random ids make collisions vanishingly rare, but a collision would
	// silently replace a live channel, so regenerate until free.
	var id string
	for {
		var err error
		id, err = newID()
		if err != nil {
			return Channel{}, fmt.Errorf("generate channel id: %w", err)
		}
		if _, taken := old[id]; !taken {
			break
		}
	}

	c := Channel{
		ID:          id,
		Name:        name,
		Destination: strings.TrimSpace(destination),
		Secret:      secret,
		CreatedAt:   time.Now().UTC(),
	}

	m := make(map[string]Channel, len(old)+1)
	for k, v := range old {
		m[k] = v
	}
	m[id] = c

	if err := s.persistLocked(m); err != nil {
		return Channel{}, err
	}
	s.current.Store(m)
	s.log.Info("channel created", logx.String("id", id), logx.String("name", name), logx.Bool("has_secret", c.HasSecret()))
	return c, nil
}

// Delete removes a channel and persists the snapshot before returning.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	old := s.snapshot()
	if _, ok := old[id]; !ok {
		return ErrNotFound
	}

	m := make(map[string]Channel, len(old)-1)
	for k, v := range old {
		if k != id {
			m[k] = v
		}
	}

	if err := s.persistLocked(m); err != nil {
		return err
	}
	s.current.Store(m)
	s.log.Info("channel deleted", logx.String("id", id))
	return nil
}

// persistLocked writes the full snapshot via temp-file+rename so a crash
// mid-write never leaves a truncated channels.json. Caller holds s.mu.
func (s *Store) persistLocked(m map[string]Channel) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

// newID returns an 8-byte URL-safe random token (11 chars, no padding).
func newID() (string, error) {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b[:]), nil
}
