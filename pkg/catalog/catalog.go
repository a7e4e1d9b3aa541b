// Package catalog loads endpoint descriptors from YAML.
// See docs/ARCHITECTURE.md § Endpoint Catalog.
package catalog

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/Masterminds/semver/v3"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/pantry/pkg/types"
)

// FormatConstraint is the range of catalog format versions this build reads.
const FormatConstraint = "^1"

// Catalog errors.
var (
	ErrUnsupportedVersion = errors.New("unsupported catalog version")
	ErrInvalidCatalog     = errors.New("invalid catalog")
)

// Starter is a small example catalog written by "pantry init".
//
//go:embed starter.yaml
var Starter []byte

// Catalog is a versioned list of endpoint descriptors.
type Catalog struct {
	Version   string           `yaml:"version"`
	Endpoints []types.Endpoint `yaml:"endpoints"`
}

// Load reads and parses the catalog file at path.
func Load(path string, logger *zap.Logger) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	c, err := Parse(data, logger)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Parse decodes a catalog, checks its format version, completes table
// descriptors and validates every endpoint. Unknown keys are rejected.
// Shapes marked nullable more than once are accepted and logged.
func Parse(data []byte, logger *zap.Logger) (*Catalog, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var c Catalog
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}
	if err := checkVersion(c.Version); err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(c.Endpoints))
	for i := range c.Endpoints {
		warnRedundantNullable(logger, c.Endpoints[i])
		e := c.Endpoints[i].Complete()
		if err := e.Validate(); err != nil {
			return nil, fmt.Errorf("%w: endpoint %d: %w", ErrInvalidCatalog, i, err)
		}
		if seen[e.Name] {
			return nil, fmt.Errorf("%w: duplicate endpoint %q", ErrInvalidCatalog, e.Name)
		}
		seen[e.Name] = true
		c.Endpoints[i] = e
	}
	return &c, nil
}

func checkVersion(v string) error {
	if v == "" {
		return fmt.Errorf("%w: missing version", ErrUnsupportedVersion)
	}
	version, err := semver.NewVersion(v)
	if err != nil {
		return fmt.Errorf("%w: %q: %v", ErrUnsupportedVersion, v, err)
	}
	constraint, err := semver.NewConstraint(FormatConstraint)
	if err != nil {
		return fmt.Errorf("parse constraint: %w", err)
	}
	if !constraint.Check(version) {
		return fmt.Errorf("%w: %s does not satisfy %s", ErrUnsupportedVersion, version, FormatConstraint)
	}
	return nil
}

// warnRedundantNullable logs every declared shape marked nullable more than
// once. Such shapes are treated as a nullable list that reads as empty.
func warnRedundantNullable(logger *zap.Logger, e types.Endpoint) {
	for name, s := range map[string]*types.Shape{"args": e.Args, "returns": e.Returns, "create": e.Create, "update": e.Update} {
		s.Walk(func(path string, sh *types.Shape) {
			if sh.Nullable.Redundant() {
				logger.Warn("shape is marked nullable more than once",
					zap.String("endpoint", e.Name),
					zap.String("shape", name),
					zap.String("path", path),
					zap.Int("depth", int(sh.Nullable)))
			}
		})
	}
}

// Redundant lists "endpoint.shape.path" for every shape marked nullable more
// than once, sorted.
func (c *Catalog) Redundant() []string {
	var out []string
	for _, e := range c.Endpoints {
		for _, part := range []struct {
			name  string
			shape *types.Shape
		}{{"args", e.Args}, {"returns", e.Returns}} {
			part.shape.Walk(func(path string, sh *types.Shape) {
				if sh.Nullable.Redundant() {
					out = append(out, e.Name+"."+part.name+"."+path)
				}
			})
		}
	}
	sort.Strings(out)
	return out
}

// Endpoint returns the named endpoint.
func (c *Catalog) Endpoint(name string) (types.Endpoint, bool) {
	for _, e := range c.Endpoints {
		if e.Name == name {
			return e, true
		}
	}
	return types.Endpoint{}, false
}
