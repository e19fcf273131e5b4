// Package catalog implements the engine's in-memory schema/table/column
// catalog: mutex-per-object guarded maps, cloned-snapshot reads, and a
// closed registry of catalog errors.
package catalog

import (
	"fmt"
	"sync"

	errors "gopkg.in/src-d/go-errors.v1"

	"github.com/streamql/streamql/sql/types"
)

// ErrNotFound and ErrDuplicated are the catalog's two error kinds,
// grounded on the teacher's errors.NewKind pattern (auth/auth.go).
var (
	ErrNotFound   = errors.NewKind("%s not found: %s")
	ErrDuplicated = errors.NewKind("duplicated %s: %s")
)

// DefaultSchemaName is the catalog's one pre-created schema.
const DefaultSchemaName = "postgres"

type SchemaID uint32
type TableID uint32
type ColumnID uint32

type TableRefID struct {
	SchemaID SchemaID
	TableID  TableID
}

func (t TableRefID) String() string { return fmt.Sprintf("$%d", t.TableID) }

type ColumnRefID struct {
	SchemaID SchemaID
	TableID  TableID
	ColumnID ColumnID
}

func ColumnRefFromTable(t TableRefID, col ColumnID) ColumnRefID {
	return ColumnRefID{SchemaID: t.SchemaID, TableID: t.TableID, ColumnID: col}
}

// ColumnDesc describes a column's declared type and key-ness.
type ColumnDesc struct {
	DataType  types.DataType
	IsPrimary bool
}

func (d ColumnDesc) IsNullable() bool { return d.DataType.Nullable }

// Column is a catalog entry for one table column.
type Column struct {
	ID   ColumnID
	Name string
	Desc ColumnDesc
}

func (c Column) DataType() types.DataType { return c.Desc.DataType }
func (c Column) IsPrimary() bool          { return c.Desc.IsPrimary }
func (c Column) IsNullable() bool         { return c.Desc.IsNullable() }

// Table is a catalog entry for one table: its own mutex guards its
// columns and options independently of the schema/database locks, per
// the mutex-per-logical-object convention spec.md §5 calls for.
type Table struct {
	id   TableID
	mu   sync.Mutex
	name string

	columnIdxs    map[string]ColumnID
	columns       map[ColumnID]Column
	nextColumnID  ColumnID
	options       map[string]string
}

func newTable(id TableID, name string) *Table {
	return &Table{
		id:         id,
		name:       name,
		columnIdxs: make(map[string]ColumnID),
		columns:    make(map[ColumnID]Column),
		options:    make(map[string]string),
	}
}

func (t *Table) ID() TableID { return t.id }

func (t *Table) Name() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.name
}

// AddColumn registers a new column, rejecting a duplicate name.
func (t *Table) AddColumn(name string, desc ColumnDesc) (ColumnID, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.columnIdxs[name]; ok {
		return 0, ErrDuplicated.New("column", name)
	}
	id := t.nextColumnID
	t.nextColumnID++
	t.columnIdxs[name] = id
	t.columns[id] = Column{ID: id, Name: name, Desc: desc}
	return id, nil
}

// AddOptions merges key/value pairs into the table's WITH (...) options.
func (t *Table) AddOptions(options map[string]string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for k, v := range options {
		t.options[k] = v
	}
}

func (t *Table) ContainsColumn(name string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.columnIdxs[name]
	return ok
}

// AllColumns returns a cloned snapshot ordered by column id.
func (t *Table) AllColumns() []Column {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Column, 0, len(t.columns))
	for id := ColumnID(0); id < t.nextColumnID; id++ {
		if c, ok := t.columns[id]; ok {
			out = append(out, c)
		}
	}
	return out
}

func (t *Table) GetColumn(id ColumnID) (Column, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	c, ok := t.columns[id]
	return c, ok
}

func (t *Table) GetColumnByName(name string) (Column, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	id, ok := t.columnIdxs[name]
	if !ok {
		return Column{}, false
	}
	return t.columns[id], true
}

func (t *Table) GetOption(key string) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	v, ok := t.options[key]
	return v, ok
}

func (t *Table) GetOptions() map[string]string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]string, len(t.options))
	for k, v := range t.options {
		out[k] = v
	}
	return out
}

// Schema groups tables under one namespace; its own mutex is
// independent of Database's and of each Table's.
type Schema struct {
	id   SchemaID
	mu   sync.Mutex
	name string

	tableIdxs   map[string]TableID
	tables      map[TableID]*Table
	nextTableID TableID
}

func newSchema(id SchemaID, name string) *Schema {
	return &Schema{
		id:        id,
		name:      name,
		tableIdxs: make(map[string]TableID),
		tables:    make(map[TableID]*Table),
	}
}

func (s *Schema) ID() SchemaID { return s.id }
func (s *Schema) Name() string { return s.name }

// AddTable creates and registers a new table, rejecting a duplicate name.
func (s *Schema) AddTable(name string) (*Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tableIdxs[name]; ok {
		return nil, ErrDuplicated.New("table", name)
	}
	id := s.nextTableID
	s.nextTableID++
	tbl := newTable(id, name)
	s.tableIdxs[name] = id
	s.tables[id] = tbl
	return tbl, nil
}

func (s *Schema) GetTable(id TableID) (*Table, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[id]
	return t, ok
}

func (s *Schema) GetTableByName(name string) (*Table, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.tableIdxs[name]
	if !ok {
		return nil, false
	}
	return s.tables[id], true
}

func (s *Schema) DelTable(id TableID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.tables[id]; ok {
		delete(s.tableIdxs, t.name)
		delete(s.tables, id)
	}
}

// AllTables returns a cloned snapshot slice of the schema's tables.
func (s *Schema) AllTables() []*Table {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Table, 0, len(s.tables))
	for _, t := range s.tables {
		out = append(out, t)
	}
	return out
}

// Database is the top-level catalog: a mutex-guarded schema registry
// seeded with the default "postgres" schema, matching
// catalog/database.rs's DatabaseCatalog::new.
type Database struct {
	mu sync.Mutex

	schemaIdxs   map[string]SchemaID
	schemas      map[SchemaID]*Schema
	nextSchemaID SchemaID
}

func NewDatabase() *Database {
	db := &Database{
		schemaIdxs: make(map[string]SchemaID),
		schemas:    make(map[SchemaID]*Schema),
	}
	if _, err := db.AddSchema(DefaultSchemaName); err != nil {
		panic(err)
	}
	return db
}

func (db *Database) AddSchema(name string) (SchemaID, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if _, ok := db.schemaIdxs[name]; ok {
		return 0, ErrDuplicated.New("schema", name)
	}
	id := db.nextSchemaID
	db.nextSchemaID++
	db.schemaIdxs[name] = id
	db.schemas[id] = newSchema(id, name)
	return id, nil
}

func (db *Database) DropSchema(name string) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	id, ok := db.schemaIdxs[name]
	if !ok {
		return ErrNotFound.New("schema", name)
	}
	delete(db.schemaIdxs, name)
	delete(db.schemas, id)
	return nil
}

func (db *Database) GetSchema(id SchemaID) (*Schema, bool) {
	db.mu.Lock()
	defer db.mu.Unlock()
	s, ok := db.schemas[id]
	return s, ok
}

func (db *Database) GetSchemaByName(name string) (*Schema, bool) {
	db.mu.Lock()
	defer db.mu.Unlock()
	id, ok := db.schemaIdxs[name]
	if !ok {
		return nil, false
	}
	return db.schemas[id], true
}

// AllSchemas returns a cloned snapshot slice.
func (db *Database) AllSchemas() []*Schema {
	db.mu.Lock()
	defer db.mu.Unlock()
	out := make([]*Schema, 0, len(db.schemas))
	for _, s := range db.schemas {
		out = append(out, s)
	}
	return out
}

func (db *Database) GetTableIDByName(schemaName, tableName string) (TableRefID, bool) {
	schema, ok := db.GetSchemaByName(schemaName)
	if !ok {
		return TableRefID{}, false
	}
	table, ok := schema.GetTableByName(tableName)
	if !ok {
		return TableRefID{}, false
	}
	return TableRefID{SchemaID: schema.ID(), TableID: table.ID()}, true
}

func (db *Database) GetTable(ref TableRefID) (*Table, bool) {
	schema, ok := db.GetSchema(ref.SchemaID)
	if !ok {
		return nil, false
	}
	return schema.GetTable(ref.TableID)
}

func (db *Database) GetColumn(ref ColumnRefID) (Column, bool) {
	table, ok := db.GetTable(TableRefID{SchemaID: ref.SchemaID, TableID: ref.TableID})
	if !ok {
		return Column{}, false
	}
	return table.GetColumn(ref.ColumnID)
}

// DropTable removes a table from its schema. The caller (the binder,
// per DESIGN.md Open Question 4) is responsible for resolving
// existence and IF EXISTS before calling this — it is a precondition
// call, matching catalog.rs's drop_table signature exactly.
func (db *Database) DropTable(ref TableRefID) {
	schema, ok := db.GetSchema(ref.SchemaID)
	if !ok {
		return
	}
	schema.DelTable(ref.TableID)
}
