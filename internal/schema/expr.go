package schema

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
)

// ParseError reports an index key that could not be reduced to a column
type ParseError struct {
	Table      string
	Index      string
	Expression string
	Reason     string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("cannot normalize index %s on %s: %q: %s", e.Index, e.Table, e.Expression, e.Reason)
}

var (
	identPattern   = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_$]*$`)
	callPattern    = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_.]*)\s*\((.*)\)$`)
	castPattern    = regexp.MustCompile(`::\s*[A-Za-z_"][A-Za-z0-9_\s".]*(\(\s*\d+(\s*,\s*\d+)?\s*\))?(\[\])?`)
	collatePattern = regexp.MustCompile(`(?i)\s+collate\s+\S+$`)
	collateClause  = regexp.MustCompile(`(?is)^(.*\S)\s+collate\s+"?([^"\s]+)"?$`)
	spacePattern   = regexp.MustCompile(`\s+`)
)

// CaseInsensitiveCollations lists the key collations that compare without case
var CaseInsensitiveCollations = []string{"nocase"}

// ParseIndexPart normalizes one index key definition.
// Plain and quoted identifiers become column parts; a call to one of the
// caseFolding functions over a single column becomes a case-insensitive
// expression part, as does a column with a NOCASE collation. Anything else
// is a ParseError.
func ParseIndexPart(table, index, raw string, caseFolding []string) (IndexPart, error) {
	fail := func(reason string) (IndexPart, error) {
		return IndexPart{}, &ParseError{Table: table, Index: index, Expression: raw, Reason: reason}
	}

	s := strings.TrimSpace(raw)
	if s == "" {
		return fail("empty key")
	}
	s = stripOuterParens(s)

	folded := false
	if m := collateClause.FindStringSubmatch(s); m != nil {
		s = stripOuterParens(strings.TrimSpace(m[1]))
		folded = slices.Contains(CaseInsensitiveCollations, strings.ToLower(m[2]))
	}

	if name, ok := identifier(s); ok {
		if folded {
			return IndexPart{Column: name, Expression: strings.TrimSpace(raw), CaseInsensitive: true}, nil
		}
		return IndexPart{Column: name}, nil
	}

	m := callPattern.FindStringSubmatch(s)
	if m == nil {
		return fail("not a column or single function call")
	}

	fn := strings.ToLower(m[1])
	if i := strings.LastIndexByte(fn, '.'); i >= 0 {
		fn = fn[i+1:]
	}
	if !slices.Contains(caseFolding, fn) {
		return fail(fmt.Sprintf("unsupported function %s", fn))
	}

	arg := castPattern.ReplaceAllString(m[2], "")
	arg = collatePattern.ReplaceAllString(strings.TrimSpace(arg), "")
	arg = stripOuterParens(strings.TrimSpace(arg))
	name, ok := identifier(arg)
	if !ok {
		return fail(fmt.Sprintf("%s argument is not a single column", fn))
	}

	return IndexPart{
		Column:          name,
		Expression:      strings.TrimSpace(raw),
		Function:        fn,
		CaseInsensitive: true,
	}, nil
}

// ParseIndexParts normalizes every key of an index
func ParseIndexParts(table, index string, raws []string, caseFolding []string) ([]IndexPart, error) {
	parts := make([]IndexPart, 0, len(raws))
	for _, raw := range raws {
		p, err := ParseIndexPart(table, index, raw, caseFolding)
		if err != nil {
			return nil, err
		}
		parts = append(parts, p)
	}
	return parts, nil
}

// ExcludesNullColumn reports whether a partial index predicate only admits
// rows where column IS NULL, i.e. one of its top-level conjuncts is exactly
// that test. A top-level OR disqualifies the predicate.
func ExcludesNullColumn(predicate, column string) bool {
	p := strings.TrimSpace(predicate)
	if p == "" {
		return false
	}
	p = stripOuterParens(p)
	if len(splitTopLevel(p, "or")) > 1 {
		return false
	}

	want := strings.ToLower(column) + " is null"
	for _, conj := range splitTopLevel(p, "and") {
		c := normalizeCondition(conj)
		if c == want {
			return true
		}
		// qualified column: users.deleted_at is null
		if i := strings.LastIndexByte(c, '.'); i >= 0 && c[i+1:] == want {
			return true
		}
	}
	return false
}

func normalizeCondition(s string) string {
	s = stripOuterParens(strings.TrimSpace(s))
	s = strings.NewReplacer(`"`, "", "`", "", "[", "", "]", "").Replace(s)
	s = spacePattern.ReplaceAllString(s, " ")
	s = strings.ToLower(strings.TrimSpace(s))
	// (deleted_at) is null
	return strings.NewReplacer("(", "", ")", "").Replace(s)
}

// splitTopLevel splits s on a keyword that appears outside parentheses and quotes
func splitTopLevel(s, keyword string) []string {
	var parts []string
	depth := 0
	var quote byte
	start := 0

	for i := 0; i < len(s); i++ {
		ch := s[i]
		if quote != 0 {
			if ch == quote {
				quote = 0
			}
			continue
		}
		switch ch {
		case '\'', '"', '`':
			quote = ch
			continue
		case '(':
			depth++
			continue
		case ')':
			depth--
			continue
		}
		if depth != 0 || !hasPrefixFold(s[i:], keyword) {
			continue
		}
		end := i + len(keyword)
		if i == 0 || !isBoundary(s[i-1]) || end >= len(s) || !isBoundary(s[end]) {
			continue
		}
		parts = append(parts, s[start:i])
		start = end
		i = end - 1
	}
	return append(parts, s[start:])
}

// hasPrefixFold reports whether s begins with the ASCII keyword, ignoring case
func hasPrefixFold(s, keyword string) bool {
	return len(s) >= len(keyword) && strings.EqualFold(s[:len(keyword)], keyword)
}

func isBoundary(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '(' || ch == ')'
}

// stripOuterParens removes parentheses that enclose the whole expression
func stripOuterParens(s string) string {
	for len(s) >= 2 && s[0] == '(' && s[len(s)-1] == ')' && closingParen(s) == len(s)-1 {
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	return s
}

// closingParen returns the index of the parenthesis matching s[0]
func closingParen(s string) int {
	depth := 0
	var quote byte
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if quote != 0 {
			if ch == quote {
				quote = 0
			}
			continue
		}
		switch ch {
		case '\'', '"', '`':
			quote = ch
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func identifier(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if len(s) >= 2 {
		switch {
		case s[0] == '"' && s[len(s)-1] == '"',
			s[0] == '`' && s[len(s)-1] == '`',
			s[0] == '[' && s[len(s)-1] == ']':
			inner := s[1 : len(s)-1]
			if inner != "" && !strings.ContainsAny(inner, "\"`[]()") {
				return inner, true
			}
			return "", false
		}
	}
	if identPattern.MatchString(s) {
		return s, true
	}
	return "", false
}
