package model

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// FileSource reads entities from a YAML declaration file
type FileSource struct {
	Path string
}

// NewFileSource creates a source for the declaration file at path
func NewFileSource(path string) *FileSource {
	return &FileSource{Path: path}
}

// Entities reads and decodes the declaration file
func (s *FileSource) Entities(_ context.Context) ([]Entity, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read declaration file: %w", err)
	}

	entities, err := ParseDeclarations(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", s.Path, err)
	}
	return entities, nil
}

type declarationFile struct {
	Entities []entityDecl `yaml:"entities"`
}

type entityDecl struct {
	Name         string            `yaml:"name"`
	Table        string            `yaml:"table"`
	Validations  []validationDecl  `yaml:"validations"`
	Associations []associationDecl `yaml:"associations"`
}

type validationDecl struct {
	Presence      []string `yaml:"presence"`
	Uniqueness    []string `yaml:"uniqueness"`
	Scope         []string `yaml:"scope"`
	CaseSensitive *bool    `yaml:"case_sensitive"`
	Inclusion     []string `yaml:"inclusion"`
	In            []any    `yaml:"in"`
}

type associationDecl struct {
	BelongsTo  string `yaml:"belongs_to"`
	ForeignKey string `yaml:"foreign_key"`
	Optional   bool   `yaml:"optional"`
}

// ParseDeclarations decodes a YAML declaration document.
// Unknown keys are rejected.
func ParseDeclarations(data []byte) ([]Entity, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var file declarationFile
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}

	entities := make([]Entity, 0, len(file.Entities))
	for i, decl := range file.Entities {
		entity, err := decl.toEntity()
		if err != nil {
			return nil, fmt.Errorf("entities[%d]: %w", i, err)
		}
		if err := entity.Validate(); err != nil {
			return nil, fmt.Errorf("entities[%d]: %w", i, err)
		}
		entities = append(entities, entity)
	}
	return entities, nil
}

func (d entityDecl) toEntity() (Entity, error) {
	entity := Entity{Name: d.Name, Table: d.Table}
	if entity.Table == "" && entity.Name != "" {
		entity.Table = TableNameFor(entity.Name)
	}

	for i, v := range d.Validations {
		rule, err := v.toRule()
		if err != nil {
			return Entity{}, fmt.Errorf("validations[%d]: %w", i, err)
		}
		entity.Rules = append(entity.Rules, rule)
	}

	for _, a := range d.Associations {
		entity.Associations = append(entity.Associations, Association{
			Name:       a.BelongsTo,
			ForeignKey: a.ForeignKey,
			Optional:   a.Optional,
		})
	}
	return entity, nil
}

func (v validationDecl) toRule() (Rule, error) {
	kinds := 0
	for _, attrs := range [][]string{v.Presence, v.Uniqueness, v.Inclusion} {
		if len(attrs) > 0 {
			kinds++
		}
	}
	if kinds != 1 {
		return Rule{}, fmt.Errorf("exactly one of presence, uniqueness or inclusion must be set")
	}

	switch {
	case len(v.Presence) > 0:
		if v.hasUniquenessOptions() || len(v.In) > 0 {
			return Rule{}, fmt.Errorf("presence takes no options")
		}
		return Presence(v.Presence...), nil

	case len(v.Uniqueness) > 0:
		if len(v.In) > 0 {
			return Rule{}, fmt.Errorf("uniqueness does not take in")
		}
		rule := Uniqueness(v.Uniqueness...).WithScope(v.Scope...)
		if v.CaseSensitive != nil {
			rule.CaseSensitive = *v.CaseSensitive
		}
		return rule, nil

	default:
		if v.hasUniquenessOptions() {
			return Rule{}, fmt.Errorf("inclusion does not take scope or case_sensitive")
		}
		if len(v.In) == 0 {
			return Rule{}, fmt.Errorf("inclusion requires in")
		}
		values := make([]string, 0, len(v.In))
		for _, val := range v.In {
			values = append(values, fmt.Sprint(val))
		}
		return Inclusion(values, v.Inclusion...), nil
	}
}

func (v validationDecl) hasUniquenessOptions() bool {
	return len(v.Scope) > 0 || v.CaseSensitive != nil
}
