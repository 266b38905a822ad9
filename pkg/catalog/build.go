package catalog

import (
	"fmt"
	"os"

	"github.com/tobsdb/sqlanalyzer/pkg/types"
	"gopkg.in/yaml.v3"
)

type ColumnSpec struct {
	Name string `json:"name" yaml:"name"`
	Type string `json:"type" yaml:"type"`
}

type TableSpec struct {
	Name    string       `json:"name" yaml:"name"`
	Columns []ColumnSpec `json:"columns" yaml:"columns"`
}

// Build constructs catalog -> project -> dataset -> tables -> columns.
func Build(project_id, dataset_name string, specs []TableSpec) (*SimpleCatalog, error) {
	root := NewSimpleCatalog(RootName)
	project, err := root.AddSimpleCatalog(project_id)
	if err != nil {
		return nil, err
	}
	dataset, err := project.AddSimpleCatalog(dataset_name)
	if err != nil {
		return nil, err
	}

	for _, spec := range specs {
		table, err := dataset.AddSimpleTable(spec.Name)
		if err != nil {
			return nil, err
		}
		for _, col := range spec.Columns {
			kind, ok := types.ParseTypeKind(col.Type)
			if !ok {
				return nil, fmt.Errorf("%w: %q on column %s.%s", ErrInvalidType, col.Type, spec.Name, col.Name)
			}
			if err := table.AddSimpleColumn(col.Name, kind); err != nil {
				return nil, err
			}
		}
	}
	return root, nil
}

// SpecFile is the on-disk catalog definition.
//
//	project: sample-shop
//	dataset: default_dataset
//	tables:
//	  - name: users
//	    columns:
//	      - {name: id, type: INT64}
type SpecFile struct {
	Project string      `yaml:"project"`
	Dataset string      `yaml:"dataset"`
	Tables  []TableSpec `yaml:"tables"`
}

func ParseSpec(data []byte) (*SimpleCatalog, error) {
	var spec SpecFile
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("parsing catalog spec: %w", err)
	}
	return Build(spec.Project, spec.Dataset, spec.Tables)
}

func LoadSpecFile(path string) (*SimpleCatalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cat, err := ParseSpec(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cat, nil
}
