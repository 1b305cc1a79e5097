package model

import (
	"context"
	"regexp"
	"slices"
	"strings"
)

// Source supplies the entities to audit
type Source interface {
	Entities(ctx context.Context) ([]Entity, error)
}

// Static is an explicit list of entities
type Static []Entity

// Entities returns a copy of the list
func (s Static) Entities(_ context.Context) ([]Entity, error) {
	for _, e := range s {
		if err := e.Validate(); err != nil {
			return nil, err
		}
	}
	return slices.Clone(s), nil
}

var (
	matchFirstCap = regexp.MustCompile("(.)([A-Z][a-z]+)")
	matchAllCap   = regexp.MustCompile("([a-z0-9])([A-Z])")
)

// ToSnakeCase converts a string from CamelCase to snake_case.
func ToSnakeCase(str string) string {
	snake := matchFirstCap.ReplaceAllString(str, "${1}_${2}")
	snake = matchAllCap.ReplaceAllString(snake, "${1}_${2}")
	return strings.ToLower(snake)
}

// TableNameFor derives the conventional table name of an entity
func TableNameFor(entityName string) string {
	return ToSnakeCase(entityName) + "s" // Simple pluralization
}
