package generate

import (
	"fmt"
	"strings"

	"github.com/tobsdb/sqlanalyzer/pkg/catalog"
)

type ParsedTable struct {
	Path    catalog.TableName
	Columns []catalog.ColumnSpec
}

func catalogDestructure(cat *catalog.SimpleCatalog) []ParsedTable {
	res := []ParsedTable{}
	cat.Walk(func(path catalog.TableName, table *catalog.SimpleTable) {
		columns := []catalog.ColumnSpec{}
		for _, col := range table.Columns {
			columns = append(columns, catalog.ColumnSpec{Name: col.Name, Type: col.Type.SQLName()})
		}
		res = append(res, ParsedTable{path, columns})
	})
	return res
}

func quoteIdent(s string) string {
	return "`" + strings.ReplaceAll(s, "`", "``") + "`"
}

// CatalogToDDL writes one CREATE TABLE per table, named by its quoted full path.
func CatalogToDDL(cat *catalog.SimpleCatalog) []byte {
	var b strings.Builder
	for i, table := range catalogDestructure(cat) {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "CREATE TABLE %s (\n", quoteIdent(table.Path.String()))
		for j, col := range table.Columns {
			sep := ","
			if j == len(table.Columns)-1 {
				sep = ""
			}
			fmt.Fprintf(&b, "\t%s %s%s\n", quoteIdent(col.Name), col.Type, sep)
		}
		b.WriteString(");\n")
	}
	return []byte(b.String())
}

// catalogToSpec flattens a catalog -> project -> dataset tree.
func catalogToSpec(cat *catalog.SimpleCatalog) (*catalog.SpecFile, error) {
	if len(cat.Tables) > 0 || len(cat.Catalogs) != 1 {
		return nil, fmt.Errorf("spec format needs exactly one project, found %d", len(cat.Catalogs))
	}
	project := cat.Catalogs[0]
	if len(project.Tables) > 0 || len(project.Catalogs) != 1 {
		return nil, fmt.Errorf("spec format needs exactly one dataset in %s", project.Name)
	}
	dataset := project.Catalogs[0]
	if len(dataset.Catalogs) > 0 {
		return nil, fmt.Errorf("spec format does not support catalogs nested in %s", dataset.Name)
	}

	spec := &catalog.SpecFile{Project: project.Name, Dataset: dataset.Name, Tables: []catalog.TableSpec{}}
	for _, table := range catalogDestructure(dataset) {
		spec.Tables = append(spec.Tables, catalog.TableSpec{
			Name:    table.Path.Segments[len(table.Path.Segments)-1],
			Columns: table.Columns,
		})
	}
	return spec, nil
}
