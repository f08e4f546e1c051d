package enumkey

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

var (
	// ErrRegistry is the root of every registry failure except database I/O,
	// which is always returned unmodified.
	ErrRegistry = errors.New("enumkey: registry")
	// ErrCategoryNotLoaded indicates a category key absent from the current snapshot.
	ErrCategoryNotLoaded = fmt.Errorf("%w: category not loaded", ErrRegistry)
	// ErrValueNotFound indicates a value key or id absent from the current snapshot.
	ErrValueNotFound = fmt.Errorf("%w: value not found", ErrRegistry)
	// ErrCategoryMismatch indicates a record filed under a different category
	// than the one requested.
	ErrCategoryMismatch = fmt.Errorf("%w: category mismatch", ErrRegistry)

	noOpLogger = zap.NewNop()
)

// Record is one cached enum value. Records are immutable once published;
// lookups hand them out by value.
type Record struct {
	ID         int64
	Key        string
	Desc       string
	CategoryID int64
}

// Item pairs a row id with its key, shaped for option widgets.
type Item struct {
	ID  int64
	Key string
}

// versionUnset marks a registry that has never loaded. The stored counter is
// never negative, so any real version forces the first load.
const versionUnset int64 = -1

// snapshot is one immutable generation of the cache. A reload builds it off
// to the side and publishes it with a single pointer swap, so readers never
// observe a partially filled index.
type snapshot struct {
	version     int64
	categoryIDs map[string]int64
	valuesByKey map[string]map[string]Record
	valuesByID  map[int64]Record
}

func emptySnapshot() *snapshot {
	return &snapshot{
		version:     versionUnset,
		categoryIDs: map[string]int64{},
		valuesByKey: map[string]map[string]Record{},
		valuesByID:  map[int64]Record{},
	}
}

// clone copies every index so the currently published snapshot is never
// written to.
func (s *snapshot) clone() *snapshot {
	next := &snapshot{
		version:     s.version,
		categoryIDs: make(map[string]int64, len(s.categoryIDs)),
		valuesByKey: make(map[string]map[string]Record, len(s.valuesByKey)),
		valuesByID:  make(map[int64]Record, len(s.valuesByID)),
	}
	for key, id := range s.categoryIDs {
		next.categoryIDs[key] = id
	}
	for category, values := range s.valuesByKey {
		copied := make(map[string]Record, len(values))
		for key, record := range values {
			copied[key] = record
		}
		next.valuesByKey[category] = copied
	}
	for id, record := range s.valuesByID {
		next.valuesByID[id] = record
	}
	return next
}

// RegistryConfig carries the registry dependencies.
type RegistryConfig struct {
	Logger *zap.Logger
}

// Registry is the process-wide cache over the enumkeys table. Reads resolve
// against an atomically published snapshot and never block; writers (reloads,
// registrations, Clear) serialize on the gate. The registry holds no database
// handle: callers pass a Source per operation.
type Registry struct {
	logger  *zap.Logger
	gate    sync.Mutex
	current atomic.Pointer[snapshot]
}

// NewRegistry builds an empty registry. The first EnsureCurrent or LoadAll
// call populates it.
func NewRegistry(cfg RegistryConfig) *Registry {
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	registry := &Registry{logger: logger}
	registry.current.Store(emptySnapshot())
	return registry
}

// Version reports the version counter of the published snapshot, or -1
// before the first load.
func (r *Registry) Version() int64 {
	return r.current.Load().version
}

// Clear discards the published snapshot, forcing the next EnsureCurrent to
// reload.
func (r *Registry) Clear() {
	r.gate.Lock()
	defer r.gate.Unlock()
	r.current.Store(emptySnapshot())
}

// EnsureCurrent reloads the cache only when the stored version counter has
// moved. The fresh path costs a single version query and takes no lock.
// Stale callers funnel through the gate; each re-reads the version after
// acquiring it, so one reload serves every waiter of the same generation.
func (r *Registry) EnsureCurrent(ctx context.Context, src Source) error {
	version, err := src.CurrentVersion(ctx)
	if err != nil {
		return err
	}
	if version == r.current.Load().version {
		return nil
	}

	r.gate.Lock()
	defer r.gate.Unlock()

	latest, err := src.CurrentVersion(ctx)
	if err != nil {
		return err
	}
	if latest == r.current.Load().version {
		return nil
	}
	return r.reloadLocked(ctx, src, latest)
}

// LoadAll unconditionally rebuilds the snapshot from the source.
func (r *Registry) LoadAll(ctx context.Context, src Source) error {
	r.gate.Lock()
	defer r.gate.Unlock()

	version, err := src.CurrentVersion(ctx)
	if err != nil {
		return err
	}
	return r.reloadLocked(ctx, src, version)
}

// LoadCategory rebuilds the snapshot and asserts the category came back.
func (r *Registry) LoadCategory(ctx context.Context, src Source, categoryKey string) error {
	return r.LoadCategories(ctx, src, categoryKey)
}

// LoadCategories rebuilds the snapshot and asserts every requested category
// came back.
func (r *Registry) LoadCategories(ctx context.Context, src Source, categoryKeys ...string) error {
	if err := r.LoadAll(ctx, src); err != nil {
		return err
	}
	snap := r.current.Load()
	var missing []string
	for _, key := range categoryKeys {
		if _, ok := snap.valuesByKey[key]; !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrCategoryNotLoaded, strings.Join(missing, ", "))
	}
	return nil
}

// reloadLocked rebuilds the snapshot at the given version. The caller holds
// the gate. A fetch failure publishes nothing, so the previous snapshot stays
// authoritative.
func (r *Registry) reloadLocked(ctx context.Context, src Source, version int64) error {
	rows, err := src.FetchAll(ctx)
	if err != nil {
		return err
	}

	next := emptySnapshot()
	next.version = version

	categoryKeysByID := make(map[int64]string, len(rows))
	for _, row := range rows {
		if !row.IsCategory {
			continue
		}
		categoryKeysByID[row.ID] = row.Key
		next.categoryIDs[row.Key] = row.ID
		next.valuesByKey[row.Key] = map[string]Record{}
	}

	values := 0
	for _, row := range rows {
		if row.CategoryID == nil {
			continue
		}
		categoryKey, ok := categoryKeysByID[*row.CategoryID]
		if !ok {
			// Orphaned row: category_id does not point at a category row.
			continue
		}
		record := Record{ID: row.ID, Key: row.Key, Desc: row.Desc, CategoryID: *row.CategoryID}
		next.valuesByKey[categoryKey][row.Key] = record
		next.valuesByID[row.ID] = record
		values++
	}

	r.current.Store(next)
	r.logger.Info("enum key registry loaded",
		zap.Int("categories", len(next.categoryIDs)),
		zap.Int("values", values),
		zap.Int64("version", version))
	return nil
}

// Get returns the record filed under categoryKey with the given value key.
func (r *Registry) Get(categoryKey, valueKey string) (Record, error) {
	values, ok := r.current.Load().valuesByKey[categoryKey]
	if !ok {
		return Record{}, fmt.Errorf("%w: %q", ErrCategoryNotLoaded, categoryKey)
	}
	record, ok := values[valueKey]
	if !ok {
		return Record{}, fmt.Errorf("%w: %q in category %q", ErrValueNotFound, valueKey, categoryKey)
	}
	return record, nil
}

// GetByID returns the record with the given row id. A non-empty categoryKey
// additionally asserts the record belongs to that category; an empty one
// looks the id up across all categories.
func (r *Registry) GetByID(categoryKey string, id int64) (Record, error) {
	snap := r.current.Load()
	if categoryKey == "" {
		record, ok := snap.valuesByID[id]
		if !ok {
			return Record{}, fmt.Errorf("%w: id %d", ErrValueNotFound, id)
		}
		return record, nil
	}
	categoryID, ok := snap.categoryIDs[categoryKey]
	if !ok {
		return Record{}, fmt.Errorf("%w: %q", ErrCategoryNotLoaded, categoryKey)
	}
	record, ok := snap.valuesByID[id]
	if !ok {
		return Record{}, fmt.Errorf("%w: id %d in category %q", ErrValueNotFound, id, categoryKey)
	}
	if record.CategoryID != categoryID {
		return Record{}, fmt.Errorf("%w: id %d belongs to category id %d, not %q",
			ErrCategoryMismatch, id, record.CategoryID, categoryKey)
	}
	return record, nil
}

// Keys returns the value keys of a category, sorted.
func (r *Registry) Keys(categoryKey string) ([]string, error) {
	values, ok := r.current.Load().valuesByKey[categoryKey]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrCategoryNotLoaded, categoryKey)
	}
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys, nil
}

// Items returns the (id, key) pairs of a category, sorted by key.
func (r *Registry) Items(categoryKey string) ([]Item, error) {
	values, ok := r.current.Load().valuesByKey[categoryKey]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrCategoryNotLoaded, categoryKey)
	}
	items := make([]Item, 0, len(values))
	for _, record := range values {
		items = append(items, Item{ID: record.ID, Key: record.Key})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Key < items[j].Key })
	return items, nil
}

// CategoryID reports the row id of a loaded category key.
func (r *Registry) CategoryID(categoryKey string) (int64, bool) {
	id, ok := r.current.Load().categoryIDs[categoryKey]
	return id, ok
}

func (r *Registry) requireCategoryID(categoryKey string) (int64, error) {
	id, ok := r.current.Load().categoryIDs[categoryKey]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrCategoryNotLoaded, categoryKey)
	}
	return id, nil
}

// EnsureCategoryID records the category key to id mapping, or reports a
// mismatch when a different id is already on file.
func (r *Registry) EnsureCategoryID(categoryKey string, categoryID int64) error {
	if existing, ok := r.current.Load().categoryIDs[categoryKey]; ok {
		if existing != categoryID {
			return fmt.Errorf("%w: category %q is id %d, not %d",
				ErrCategoryMismatch, categoryKey, existing, categoryID)
		}
		return nil
	}

	r.gate.Lock()
	defer r.gate.Unlock()

	snap := r.current.Load()
	if existing, ok := snap.categoryIDs[categoryKey]; ok {
		if existing != categoryID {
			return fmt.Errorf("%w: category %q is id %d, not %d",
				ErrCategoryMismatch, categoryKey, existing, categoryID)
		}
		return nil
	}
	next := snap.clone()
	next.categoryIDs[categoryKey] = categoryID
	if _, ok := next.valuesByKey[categoryKey]; !ok {
		next.valuesByKey[categoryKey] = map[string]Record{}
	}
	r.current.Store(next)
	return nil
}

// Register files a record under a category outside a reload. Proxy writes use
// it to warm the cache with freshly persisted rows; the next reload replaces
// anything registered this way.
func (r *Registry) Register(categoryKey string, record Record) error {
	r.gate.Lock()
	defer r.gate.Unlock()

	snap := r.current.Load()
	if existing, ok := snap.categoryIDs[categoryKey]; ok && existing != record.CategoryID {
		return fmt.Errorf("%w: category %q is id %d, not %d",
			ErrCategoryMismatch, categoryKey, existing, record.CategoryID)
	}
	next := snap.clone()
	next.categoryIDs[categoryKey] = record.CategoryID
	if _, ok := next.valuesByKey[categoryKey]; !ok {
		next.valuesByKey[categoryKey] = map[string]Record{}
	}
	next.valuesByKey[categoryKey][record.Key] = record
	next.valuesByID[record.ID] = record
	r.current.Store(next)
	return nil
}
