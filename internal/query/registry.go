package query

import (
	"fmt"
	"sort"

	"HealthMetricsETL/internal/domain"
)

// Catalog keeps a mapping from query names to their definitions.
type Catalog struct {
	defs map[string]Definition
}

func newCatalog() *Catalog {
	return &Catalog{defs: map[string]Definition{}}
}

// register adds or replaces a query definition.
func (c *Catalog) register(def Definition) {
	if c.defs == nil {
		c.defs = map[string]Definition{}
	}
	c.defs[def.Name] = def
}

// Resolve returns a definition by name or a typed error if it is absent.
func (c *Catalog) Resolve(name string) (Definition, error) {
	if def, ok := c.defs[name]; ok {
		return def, nil
	}
	return Definition{}, &domain.QueryError{Kind: domain.QueryUnknownName, Name: name}
}

// Validate resolves a definition within a scope and checks that every
// required parameter is present and well-formed.
func (c *Catalog) Validate(scope Scope, name string, params domain.QueryParams) (Definition, error) {
	def, err := c.Resolve(name)
	if err != nil {
		return Definition{}, err
	}
	if def.Scope != scope {
		return Definition{}, &domain.QueryError{Kind: domain.QueryUnknownName, Name: name}
	}

	for _, param := range def.Required {
		switch param {
		case ParamCountry:
			if params.Country == "" {
				return Definition{}, &domain.QueryError{Kind: domain.QueryMissingParameter, Name: name, Param: "country"}
			}
		case ParamMetric:
			if params.Metric == "" {
				return Definition{}, &domain.QueryError{Kind: domain.QueryMissingParameter, Name: name, Param: "metric"}
			}
			if !caseMetrics[params.Metric] {
				return Definition{}, &domain.ValidationError{
					Kind: domain.ValidationMissingParameter,
					Msg:  fmt.Sprintf("metric must be one of cases, deaths, recovered; got %q", params.Metric),
				}
			}
		case ParamN:
			if params.N <= 0 {
				return Definition{}, &domain.QueryError{Kind: domain.QueryMissingParameter, Name: name, Param: "n"}
			}
		}
	}

	return def, nil
}

// Names lists the registered query names for a scope, sorted for stable help
// output.
func (c *Catalog) Names(scope Scope) []string {
	names := make([]string, 0, len(c.defs))
	for name, def := range c.defs {
		if def.Scope == scope {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// SQL renders the definition into a Postgres statement with bound arguments.
func (d Definition) SQL(params domain.QueryParams) (string, []any, error) {
	sqlText, args, err := d.Build(params).ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("build %s: %w", d.Name, err)
	}
	return sqlText, args, nil
}
