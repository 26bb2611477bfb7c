package record

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/kv-thuringen/kvt-crawler/internal/clock"
	"github.com/kv-thuringen/kvt-crawler/internal/persist"
)

// CurrentVersion is the schema version written into new stores.
const CurrentVersion = 1

// DefaultKey is the durable key the collection is stored under.
const DefaultKey = "psychologen_sammlung_v1"

// Store is the whole collection. It is always read and written as one
// snapshot.
type Store struct {
	Version   int                `json:"version"`
	CreatedAt time.Time          `json:"createdAt"`
	UpdatedAt *time.Time         `json:"updatedAt"`
	Items     map[string]*Record `json:"items"`
}

func NewStore(now time.Time) *Store {
	return &Store{
		Version:   CurrentVersion,
		CreatedAt: now,
		Items:     map[string]*Record{},
	}
}

// Records returns the items ordered by id.
func (s *Store) Records() []*Record {
	ids := make([]string, 0, len(s.Items))
	for id := range s.Items {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	out := make([]*Record, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.Items[id])
	}
	return out
}

// Collection owns the durable store. Every mutation is a full
// read-modify-write of the snapshot; two callers doing this at the same time
// can lose one side's update.
type Collection struct {
	scope  persist.Scope
	key    string
	clock  clock.Clock
	logger *slog.Logger
}

func NewCollection(scope persist.Scope, key string, clk clock.Clock) *Collection {
	if key == "" {
		key = DefaultKey
	}
	return &Collection{
		scope:  scope,
		key:    key,
		clock:  clk,
		logger: slog.With(slog.String("component", "collection")),
	}
}

func (c *Collection) Key() string { return c.key }

// BackupKey is the key a corrupt payload read at t is preserved under.
func (c *Collection) BackupKey(t time.Time) string {
	return c.key + "_corrupt_backup_" + strconv.FormatInt(t.UnixMilli(), 10)
}

// Load reads the store. A missing payload yields a fresh store. A payload
// that cannot be decoded is copied to a backup key and a fresh store is
// returned; corruption never surfaces as an error. Only a failing storage
// backend does.
func (c *Collection) Load(ctx context.Context) (*Store, error) {
	raw, ok, err := c.scope.Get(ctx, c.key)
	if err != nil {
		return nil, fmt.Errorf("failed to read collection: %w", err)
	}
	now := c.clock.Now()
	if !ok {
		return NewStore(now), nil
	}
	s, err := decodeStore(raw)
	if err == nil {
		return s, nil
	}

	backupKey := c.BackupKey(now)
	c.logger.Warn(fmt.Sprintf("%v, preserving it under %s", err, backupKey))
	if err := c.scope.Set(ctx, backupKey, raw); err != nil {
		return nil, fmt.Errorf("failed to back up corrupt collection: %w", err)
	}
	return NewStore(now), nil
}

func decodeStore(raw []byte) (*Store, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreCorrupt, err)
	}
	if probe == nil {
		return nil, fmt.Errorf("%w: payload is not an object", ErrStoreCorrupt)
	}
	var s Store
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreCorrupt, err)
	}
	if s.Items == nil {
		s.Items = map[string]*Record{}
	}
	for id, r := range s.Items {
		if r == nil {
			return nil, fmt.Errorf("%w: item %s is null", ErrStoreCorrupt, id)
		}
	}
	if s.Version == 0 {
		s.Version = CurrentVersion
	}
	return &s, nil
}

// Save stamps updatedAt and writes the full snapshot.
func (c *Collection) Save(ctx context.Context, s *Store) error {
	now := c.clock.Now()
	s.UpdatedAt = &now
	b, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode collection: %w", err)
	}
	if err := c.scope.Set(ctx, c.key, b); err != nil {
		return fmt.Errorf("failed to write collection: %w", err)
	}
	return nil
}

// UpsertResult describes the outcome of UpsertFromExtraction.
type UpsertResult struct {
	Record *Record
	// Created is true if the record did not exist before.
	Created bool
	// Migrated is true if an existing record had missing schema fields
	// filled in.
	Migrated bool
	// Total is the number of records after the call.
	Total int
}

// UpsertFromExtraction inserts a record for raw unless one with the same id
// exists. An existing record keeps all its content; only schema fields it
// lacks are filled with their empty state.
func (c *Collection) UpsertFromExtraction(ctx context.Context, raw RawFields) (*UpsertResult, error) {
	name := Norm(raw.Name)
	if name == "" {
		return nil, ErrExtractionIncomplete
	}
	id := IDFromName(name)
	if id == "" {
		return nil, fmt.Errorf("%w: name %q yields an empty id", ErrExtractionIncomplete, name)
	}

	s, err := c.Load(ctx)
	if err != nil {
		return nil, err
	}

	if existing, ok := s.Items[id]; ok {
		res := &UpsertResult{Record: existing, Total: len(s.Items)}
		if existing.migrate() {
			res.Migrated = true
			if err := c.Save(ctx, s); err != nil {
				return nil, err
			}
		}
		return res, nil
	}

	r := newRecord(raw, c.clock.Now())
	s.Items[id] = r
	if err := c.Save(ctx, s); err != nil {
		return nil, err
	}
	return &UpsertResult{Record: r, Created: true, Total: len(s.Items)}, nil
}

// Get returns the record with id.
func (c *Collection) Get(ctx context.Context, id string) (*Record, error) {
	s, err := c.Load(ctx)
	if err != nil {
		return nil, err
	}
	r, ok := s.Items[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	r.migrate()
	return r, nil
}

// SetStatus overwrites the status of record id, nil clears it. Content
// fields are not touched.
func (c *Collection) SetStatus(ctx context.Context, id string, st *Status) (*Record, error) {
	s, err := c.Load(ctx)
	if err != nil {
		return nil, err
	}
	r, ok := s.Items[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	r.migrate()
	now := c.clock.Now()
	r.Status = st
	r.StatusUpdatedAt = &now
	if err := c.Save(ctx, s); err != nil {
		return nil, err
	}
	return r, nil
}

// Reset replaces the collection with an empty one.
func (c *Collection) Reset(ctx context.Context) error {
	return c.Save(ctx, NewStore(c.clock.Now()))
}

// CorruptBackups lists the keys holding preserved corrupt payloads, if the
// scope can enumerate its keys.
func (c *Collection) CorruptBackups(ctx context.Context) ([]string, error) {
	lister, ok := c.scope.(interface {
		Keys(ctx context.Context) ([]string, error)
	})
	if !ok {
		return nil, errors.New("storage scope cannot list keys")
	}
	keys, err := lister.Keys(ctx)
	if err != nil {
		return nil, err
	}
	prefix := c.key + "_corrupt_backup_"
	out := []string{}
	for _, k := range keys {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	return out, nil
}
