package model

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
)

// ReflectSource derives entities from Go struct values.
//
// Columns come from the `db` tag (snake_case of the field name when absent).
// Validations come from the `audit` tag, a ';'-separated directive list:
//
//	Email     string `db:"email" audit:"presence;unique;scope:account_id;caseInsensitive"`
//	Active    bool   `db:"active" audit:"in:true,false"`
//	AccountID int64  `db:"account_id" audit:"belongsTo"`
//	Account   *Account `db:"-" audit:"belongsTo;fk:account_id;optional"`
//
// Models that cannot be reflected are logged and skipped.
type ReflectSource struct {
	models []any
	logger *slog.Logger
}

// NewReflectSource creates a source over the given model values
func NewReflectSource(models ...any) *ReflectSource {
	return &ReflectSource{models: models, logger: slog.Default()}
}

// WithLogger sets the logger used to report skipped models
func (s *ReflectSource) WithLogger(logger *slog.Logger) *ReflectSource {
	s.logger = logger
	return s
}

// Entities reflects every model, skipping the ones that fail
func (s *ReflectSource) Entities(ctx context.Context) ([]Entity, error) {
	entities := make([]Entity, 0, len(s.models))
	for _, m := range s.models {
		entity, err := EntityOf(m)
		if err != nil {
			s.logger.WarnContext(ctx, "skipping model", "model", fmt.Sprintf("%T", m), "error", err)
			continue
		}
		entities = append(entities, entity)
	}
	return entities, nil
}

// EntityOf reflects a single struct value or pointer to struct
func EntityOf(m any) (Entity, error) {
	if m == nil {
		return Entity{}, errors.New("nil model")
	}
	t := reflect.TypeOf(m)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return Entity{}, fmt.Errorf("model %s is not a struct", t)
	}

	entity := Entity{Name: t.Name(), Table: tableNameFromType(t)}
	if err := collectFields(t, &entity); err != nil {
		return Entity{}, fmt.Errorf("model %s: %w", t.Name(), err)
	}
	if err := entity.Validate(); err != nil {
		return Entity{}, err
	}
	return entity, nil
}

func collectFields(t reflect.Type, entity *Entity) error {
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		dbTag := field.Tag.Get("db")
		auditTag := field.Tag.Get("audit")

		if field.Anonymous && field.Type.Kind() == reflect.Struct && auditTag == "" {
			if err := collectFields(field.Type, entity); err != nil {
				return err
			}
			continue
		}
		if !field.IsExported() || auditTag == "" {
			continue
		}

		column, _, _ := strings.Cut(dbTag, ",")
		if column == "" || column == "-" {
			column = ToSnakeCase(field.Name)
		}

		opts, err := parseAuditTag(auditTag)
		if err != nil {
			return fmt.Errorf("field %s: %w", field.Name, err)
		}
		opts.apply(entity, field, column, dbTag == "-")
	}
	return nil
}

// auditOpts is the parsed form of an `audit:"..."` tag
type auditOpts struct {
	presence        bool
	unique          bool
	scope           []string
	caseInsensitive bool
	values          []string
	belongsTo       bool
	foreignKey      string
	optional        bool
}

func parseAuditTag(tag string) (opts auditOpts, err error) {
	for _, part := range strings.Split(tag, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, value, hasValue := strings.Cut(part, ":")
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		switch key {
		case "presence":
			opts.presence = true
		case "unique":
			opts.unique = true
		case "caseInsensitive":
			opts.caseInsensitive = true
		case "belongsTo":
			opts.belongsTo = true
		case "optional":
			opts.optional = true
		case "scope":
			opts.scope = splitList(value)
		case "in":
			opts.values = splitList(value)
		case "fk", "foreignKey":
			opts.foreignKey = value
		default:
			err = fmt.Errorf("unknown key in audit tag: %s", key)
			return
		}

		if !hasValue && (key == "scope" || key == "in" || key == "fk" || key == "foreignKey") {
			err = fmt.Errorf("audit tag key %s requires a value", key)
			return
		}
	}

	if (len(opts.scope) > 0 || opts.caseInsensitive) && !opts.unique {
		err = errors.New("scope and caseInsensitive require unique")
		return
	}
	if (opts.foreignKey != "" || opts.optional) && !opts.belongsTo {
		err = errors.New("fk and optional require belongsTo")
		return
	}
	return
}

func (o auditOpts) apply(entity *Entity, field reflect.StructField, column string, virtual bool) {
	if o.presence {
		entity.Rules = append(entity.Rules, Presence(column))
	}
	if o.unique {
		rule := Uniqueness(column).WithScope(o.scope...)
		if o.caseInsensitive {
			rule = rule.CaseInsensitive()
		}
		entity.Rules = append(entity.Rules, rule)
	}
	if len(o.values) > 0 {
		entity.Rules = append(entity.Rules, Inclusion(o.values, column))
	}
	if o.belongsTo {
		name := strings.TrimSuffix(ToSnakeCase(field.Name), "_id")
		fk := o.foreignKey
		if fk == "" && !virtual && !isStructLike(field.Type) {
			fk = column
		}
		entity.Associations = append(entity.Associations, Association{
			Name:       name,
			ForeignKey: fk,
			Optional:   o.optional,
		})
	}
}

func isStructLike(t reflect.Type) bool {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Kind() == reflect.Struct
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// tableNameFromType prefers a TableName() method, otherwise the snake_case plural of the type name
func tableNameFromType(t reflect.Type) string {
	v := reflect.New(t)
	if namer, ok := v.Interface().(interface{ TableName() string }); ok {
		if name := namer.TableName(); name != "" {
			return name
		}
	}
	return TableNameFor(t.Name())
}
