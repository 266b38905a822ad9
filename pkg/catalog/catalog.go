package catalog

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tobsdb/sqlanalyzer/pkg/types"
)

var (
	ErrDuplicateName = errors.New("duplicate name")
	ErrInvalidName   = errors.New("invalid name")
	ErrInvalidType   = errors.New("invalid column type")
)

// RootName is the name of the root namespace produced by Build.
const RootName = "catalog"

type SimpleColumn struct {
	Name string         `json:"name" yaml:"name"`
	Type types.TypeKind `json:"type" yaml:"type"`
}

type SimpleTable struct {
	Name    string          `json:"name" yaml:"name"`
	Columns []*SimpleColumn `json:"columns" yaml:"columns"`
}

type BuiltinFunctionOptions struct {
	LanguageOptions types.LanguageOptions `json:"languageOptions" yaml:"languageOptions"`
}

// SimpleCatalog is one namespace level. Children keep insertion order.
type SimpleCatalog struct {
	Name     string           `json:"name" yaml:"name"`
	Catalogs []*SimpleCatalog `json:"catalogs,omitempty" yaml:"catalogs,omitempty"`
	Tables   []*SimpleTable   `json:"tables,omitempty" yaml:"tables,omitempty"`
	// nil until AddBuiltinFunctions is called
	BuiltinFunctionOptions *BuiltinFunctionOptions `json:"builtinFunctionOptions,omitempty" yaml:"builtinFunctionOptions,omitempty"`
}

func NewSimpleCatalog(name string) *SimpleCatalog {
	return &SimpleCatalog{Name: name}
}

func checkName(kind, name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: %s name cannot be empty", ErrInvalidName, kind)
	}
	return nil
}

func (c *SimpleCatalog) hasChild(name string) bool {
	return c.FindCatalog(name) != nil || c.FindTableHere(name) != nil
}

func (c *SimpleCatalog) AddSimpleCatalog(name string) (*SimpleCatalog, error) {
	if err := checkName("catalog", name); err != nil {
		return nil, err
	}
	if c.hasChild(name) {
		return nil, fmt.Errorf("%w: %s already exists in %s", ErrDuplicateName, name, c.Name)
	}
	child := NewSimpleCatalog(name)
	c.Catalogs = append(c.Catalogs, child)
	return child, nil
}

func (c *SimpleCatalog) AddSimpleTable(name string) (*SimpleTable, error) {
	if err := checkName("table", name); err != nil {
		return nil, err
	}
	if c.hasChild(name) {
		return nil, fmt.Errorf("%w: %s already exists in %s", ErrDuplicateName, name, c.Name)
	}
	table := &SimpleTable{Name: name, Columns: []*SimpleColumn{}}
	c.Tables = append(c.Tables, table)
	return table, nil
}

func (t *SimpleTable) AddSimpleColumn(name string, kind types.TypeKind) error {
	if err := checkName("column", name); err != nil {
		return err
	}
	if !kind.IsValid() {
		return fmt.Errorf("%w: %s on column %s.%s", ErrInvalidType, kind, t.Name, name)
	}
	if t.FindColumn(name) != nil {
		return fmt.Errorf("%w: column %s already exists in %s", ErrDuplicateName, name, t.Name)
	}
	t.Columns = append(t.Columns, &SimpleColumn{Name: name, Type: kind})
	return nil
}

func (t *SimpleTable) FindColumn(name string) *SimpleColumn {
	for _, col := range t.Columns {
		if strings.EqualFold(col.Name, name) {
			return col
		}
	}
	return nil
}

// AddBuiltinFunctions makes the builtin function set available to statements
// analyzed against this catalog, under the given language options.
func (c *SimpleCatalog) AddBuiltinFunctions(opts BuiltinFunctionOptions) {
	c.BuiltinFunctionOptions = &opts
}

func (c *SimpleCatalog) FindCatalog(name string) *SimpleCatalog {
	for _, child := range c.Catalogs {
		if strings.EqualFold(child.Name, name) {
			return child
		}
	}
	return nil
}

func (c *SimpleCatalog) FindTableHere(name string) *SimpleTable {
	for _, table := range c.Tables {
		if strings.EqualFold(table.Name, name) {
			return table
		}
	}
	return nil
}

// FindTable resolves a path of namespace names ending in a table name,
// starting below c.
func (c *SimpleCatalog) FindTable(path []string) *SimpleTable {
	if len(path) == 0 {
		return nil
	}
	current := c
	for _, name := range path[:len(path)-1] {
		current = current.FindCatalog(name)
		if current == nil {
			return nil
		}
	}
	return current.FindTableHere(path[len(path)-1])
}

// Walk calls f for every table below c with the table's full path.
func (c *SimpleCatalog) Walk(f func(path TableName, table *SimpleTable)) {
	c.walk(nil, f)
}

func (c *SimpleCatalog) walk(prefix []string, f func(TableName, *SimpleTable)) {
	for _, table := range c.Tables {
		path := append(append([]string{}, prefix...), table.Name)
		f(TableName{Segments: path}, table)
	}
	for _, child := range c.Catalogs {
		child.walk(append(append([]string{}, prefix...), child.Name), f)
	}
}

func (c *SimpleCatalog) TableCount() int {
	count := 0
	c.Walk(func(TableName, *SimpleTable) { count++ })
	return count
}

// Validate reports the first violation of the sibling-uniqueness, naming,
// or column type rules found in c.
func (c *SimpleCatalog) Validate() error {
	if err := checkName("catalog", c.Name); err != nil {
		return err
	}
	seen := map[string]bool{}
	for _, child := range c.Catalogs {
		if child == nil {
			return fmt.Errorf("%w: null catalog in %s", ErrInvalidName, c.Name)
		}
		if err := checkName("catalog", child.Name); err != nil {
			return err
		}
		key := strings.ToLower(child.Name)
		if seen[key] {
			return fmt.Errorf("%w: %s already exists in %s", ErrDuplicateName, child.Name, c.Name)
		}
		seen[key] = true
	}
	for _, table := range c.Tables {
		if table == nil {
			return fmt.Errorf("%w: null table in %s", ErrInvalidName, c.Name)
		}
		if err := checkName("table", table.Name); err != nil {
			return err
		}
		key := strings.ToLower(table.Name)
		if seen[key] {
			return fmt.Errorf("%w: %s already exists in %s", ErrDuplicateName, table.Name, c.Name)
		}
		seen[key] = true
		if err := table.Validate(); err != nil {
			return err
		}
	}
	for _, child := range c.Catalogs {
		if err := child.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func (t *SimpleTable) Validate() error {
	seen := map[string]bool{}
	for _, col := range t.Columns {
		if col == nil {
			return fmt.Errorf("%w: null column in %s", ErrInvalidName, t.Name)
		}
		if err := checkName("column", col.Name); err != nil {
			return err
		}
		if !col.Type.IsValid() {
			return fmt.Errorf("%w: %s on column %s.%s", ErrInvalidType, col.Type, t.Name, col.Name)
		}
		key := strings.ToLower(col.Name)
		if seen[key] {
			return fmt.Errorf("%w: column %s already exists in %s", ErrDuplicateName, col.Name, t.Name)
		}
		seen[key] = true
	}
	return nil
}

// TableName is a table path as reported by table-name extraction.
type TableName struct {
	Segments []string `json:"tableNameSegment"`
}

func NewTableName(segments ...string) TableName {
	return TableName{Segments: segments}
}

func (n TableName) String() string { return strings.Join(n.Segments, ".") }
