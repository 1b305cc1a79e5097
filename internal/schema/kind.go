package schema

import (
	"fmt"
	"strings"
)

// Kind is the normalized category of a column type
type Kind string

const (
	KindBoolean Kind = "boolean"
	KindJSON    Kind = "json"
	KindString  Kind = "string"
	KindInteger Kind = "integer"
	KindFloat   Kind = "float"
	KindDecimal Kind = "decimal"
	KindTime    Kind = "time"
	KindDate    Kind = "date"
	KindUUID    Kind = "uuid"
	KindBinary  Kind = "binary"
	KindOther   Kind = "other"
)

var kinds = []Kind{
	KindBoolean, KindJSON, KindString, KindInteger, KindFloat,
	KindDecimal, KindTime, KindDate, KindUUID, KindBinary, KindOther,
}

// ParseKind converts a configured kind name into a Kind
func ParseKind(name string) (Kind, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, k := range kinds {
		if string(k) == name {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown column kind: %s", name)
}

// ClassifyType maps a database type name to a Kind.
// It accepts PostgreSQL, MySQL, SQLite and SQL Server spellings.
func ClassifyType(raw string) Kind {
	t := strings.ToLower(strings.TrimSpace(raw))

	// MySQL reports booleans as tinyint(1)
	if t == "tinyint(1)" {
		return KindBoolean
	}

	base := t
	if i := strings.IndexByte(base, '('); i >= 0 {
		base = strings.TrimSpace(base[:i])
	}
	base = strings.TrimSuffix(base, " unsigned")
	if strings.HasSuffix(base, "[]") {
		return KindOther
	}

	switch base {
	case "boolean", "bool", "bit":
		return KindBoolean
	case "json", "jsonb":
		return KindJSON
	case "character varying", "varchar", "character", "char", "bpchar", "text", "citext",
		"nvarchar", "nchar", "ntext", "tinytext", "mediumtext", "longtext", "clob", "enum":
		return KindString
	case "integer", "int", "int2", "int4", "int8", "smallint", "bigint", "tinyint", "mediumint",
		"serial", "bigserial", "smallserial":
		return KindInteger
	case "real", "float", "float4", "float8", "double", "double precision":
		return KindFloat
	case "numeric", "decimal", "money", "smallmoney":
		return KindDecimal
	case "timestamp", "timestamptz", "timestamp with time zone", "timestamp without time zone",
		"datetime", "datetime2", "smalldatetime", "datetimeoffset", "time", "timetz",
		"time with time zone", "time without time zone":
		return KindTime
	case "date":
		return KindDate
	case "uuid", "uniqueidentifier":
		return KindUUID
	case "bytea", "blob", "tinyblob", "mediumblob", "longblob", "binary", "varbinary", "image":
		return KindBinary
	case "point", "interval", "line", "polygon":
		return KindOther
	}

	// SQLite type affinity for declared types we do not know by name
	switch {
	case strings.Contains(base, "int"):
		return KindInteger
	case strings.Contains(base, "char"), strings.Contains(base, "text"):
		return KindString
	}

	return KindOther
}
