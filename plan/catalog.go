package plan

import (
	_ "embed"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

type catalogFile struct {
	Plans []Plan `yaml:"plans"`
}

// DefaultCatalog returns the seeded plan catalog embedded in the binary.
func DefaultCatalog() ([]Plan, error) {
	return ParseCatalog(defaultCatalog)
}

// ParseCatalog decodes a YAML plan catalog. Structural validation happens in
// NewRegistry; this only rejects unparseable input.
func ParseCatalog(raw []byte) ([]Plan, error) {
	var file catalogFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, errors.Join(ErrInvalidCatalog, err)
	}
	if len(file.Plans) == 0 {
		return nil, fmt.Errorf("%w: catalog contains no plans", ErrInvalidCatalog)
	}
	return file.Plans, nil
}
