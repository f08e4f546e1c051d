package enumkey

import (
	"database/sql"
	"database/sql/driver"
	"fmt"
)

// Ref is an enum-typed foreign key column value. It stores the referenced row
// id plus the record memoized by the last resolve, so repeated reads of an
// unchanged key cost no registry lookup. The zero value is NULL. Scan and
// Value let GORM map a Ref straight onto the integer column; a scan that
// changes the id drops the memo.
type Ref struct {
	id     sql.NullInt64
	cached *Record
}

// NewRef builds a Ref pointing at the given row id.
func NewRef(id int64) Ref {
	return Ref{id: sql.NullInt64{Int64: id, Valid: true}}
}

// ID returns the raw foreign key value; ok is false when the key is NULL.
func (r Ref) ID() (int64, bool) {
	return r.id.Int64, r.id.Valid
}

// IsNull reports whether the foreign key is unset.
func (r Ref) IsNull() bool {
	return !r.id.Valid
}

// Scan implements sql.Scanner.
func (r *Ref) Scan(src any) error {
	var parsed sql.NullInt64
	if err := parsed.Scan(src); err != nil {
		return fmt.Errorf("%w: scan ref: %v", ErrRegistry, err)
	}
	if parsed != r.id {
		r.cached = nil
	}
	r.id = parsed
	return nil
}

// Value implements driver.Valuer.
func (r Ref) Value() (driver.Value, error) {
	if !r.id.Valid {
		return nil, nil
	}
	return r.id.Int64, nil
}

// GormDataType maps Ref onto a plain integer column.
func (Ref) GormDataType() string {
	return "bigint"
}

// Proxy binds a foreign key column to the enum category its values must
// belong to. Declare one per enum-typed column next to the owning model and
// route the column's reads and writes through it.
type Proxy struct {
	column   string
	category string
}

// NewProxy binds column (used in error text only) to an enum category key.
func NewProxy(column, category string) Proxy {
	return Proxy{column: column, category: category}
}

// Category returns the bound category key.
func (p Proxy) Category() string {
	return p.category
}

// Get resolves the stored foreign key through the registry. A NULL key yields
// a nil record and drops any stale memo.
func (p Proxy) Get(reg *Registry, ref *Ref) (*Record, error) {
	if ref.IsNull() {
		ref.cached = nil
		return nil, nil
	}
	id := ref.id.Int64
	if ref.cached != nil && ref.cached.ID == id {
		return ref.cached, nil
	}
	record, err := reg.GetByID(p.category, id)
	if err != nil {
		return nil, err
	}
	ref.cached = &record
	return ref.cached, nil
}

// Set validates value against the bound category and stores its row id in the
// column. Accepted shapes: nil (clears the key), a Record or *Record, a
// persisted *EnumKey row (which is also registered into the cache), a string
// value key, or an integer row id. On any validation failure the stored key
// is left unchanged.
func (p Proxy) Set(reg *Registry, ref *Ref, value any) error {
	if value == nil {
		ref.id = sql.NullInt64{}
		ref.cached = nil
		return nil
	}
	record, err := p.coerce(reg, value)
	if err != nil {
		return err
	}
	categoryID, err := reg.requireCategoryID(p.category)
	if err != nil {
		return err
	}
	if record.CategoryID != categoryID {
		return fmt.Errorf("%w: %s expects category %q (id %d), got record %q from category id %d",
			ErrCategoryMismatch, p.column, p.category, categoryID, record.Key, record.CategoryID)
	}
	ref.id = sql.NullInt64{Int64: record.ID, Valid: true}
	ref.cached = &record
	return nil
}

func (p Proxy) coerce(reg *Registry, value any) (Record, error) {
	switch v := value.(type) {
	case Record:
		return v, nil
	case *Record:
		if v == nil {
			return Record{}, fmt.Errorf("%w: nil record for %s", ErrValueNotFound, p.column)
		}
		return *v, nil
	case *EnumKey:
		return p.adopt(reg, v)
	case string:
		return reg.Get(p.category, v)
	case int:
		return reg.GetByID(p.category, int64(v))
	case int64:
		return reg.GetByID(p.category, v)
	default:
		return Record{}, fmt.Errorf("%w: cannot assign %T to %s", ErrRegistry, value, p.column)
	}
}

// adopt turns a persisted enumkeys row into a record and warms the cache with
// it. Best effort: the next reload replaces whatever is adopted here.
func (p Proxy) adopt(reg *Registry, row *EnumKey) (Record, error) {
	if row == nil {
		return Record{}, fmt.Errorf("%w: nil row for %s", ErrValueNotFound, p.column)
	}
	if row.CategoryID == nil {
		return Record{}, fmt.Errorf("%w: row %q carries no category", ErrCategoryMismatch, row.Key)
	}
	record := row.Record()
	if err := reg.Register(p.category, record); err != nil {
		return Record{}, err
	}
	return record, nil
}
