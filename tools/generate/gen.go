package generate

import (
	"encoding/json"
	"fmt"

	"github.com/tobsdb/sqlanalyzer/pkg/catalog"
	"gopkg.in/yaml.v3"
)

func Formats() []string { return []string{"json", "yaml", "spec", "ddl"} }

// CatalogToFormat renders cat as json or yaml (the full catalog tree), spec
// (the project/dataset file read by catalog.ParseSpec) or ddl.
func CatalogToFormat(cat *catalog.SimpleCatalog, format string) ([]byte, error) {
	switch format {
	case "json":
		return json.MarshalIndent(cat, "", "  ")
	case "yaml", "yml":
		return yaml.Marshal(cat)
	case "spec":
		spec, err := catalogToSpec(cat)
		if err != nil {
			return nil, err
		}
		return yaml.Marshal(spec)
	case "ddl", "sql":
		return CatalogToDDL(cat), nil
	default:
		return nil, fmt.Errorf("Unsupported Format: %s", format)
	}
}
