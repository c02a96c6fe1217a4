package sql

import (
	"strconv"
	"strings"

	"github.com/syssam/derive/criteria"
	"github.com/syssam/derive/dialect"
)

// flavor holds the syntax differences between relational dialects.
type flavor struct {
	name        string
	open, close byte
	placeholder func(int) string
	// boolInt renders boolean literals as 1 and 0.
	boolInt bool
	// ilike enables ILIKE for case-insensitive pattern matching.
	ilike bool
	// length is the name of the string length function.
	length string
	// substr renders LEFT and RIGHT with SUBSTR.
	substr bool
	concat func(args ...string) string
	limit  func(b *dialect.Builder, l criteria.Limit, ordered bool)
}

var flavors = map[string]*flavor{
	dialect.Postgres: {
		name:        dialect.Postgres,
		open:        '"',
		close:       '"',
		placeholder: dialect.Dollar,
		ilike:       true,
		length:      "LENGTH",
		concat:      pipes,
		limit:       limitOffset("ALL"),
	},
	dialect.MySQL: {
		name:        dialect.MySQL,
		open:        '`',
		close:       '`',
		placeholder: dialect.Question,
		length:      "CHAR_LENGTH",
		concat: func(args ...string) string {
			return "CONCAT(" + strings.Join(args, ", ") + ")"
		},
		limit: limitOffset("18446744073709551615"),
	},
	dialect.SQLite: {
		name:        dialect.SQLite,
		open:        '"',
		close:       '"',
		placeholder: dialect.Question,
		boolInt:     true,
		length:      "LENGTH",
		substr:      true,
		concat:      pipes,
		limit:       limitOffset("-1"),
	},
	dialect.SQLServer: {
		name:        dialect.SQLServer,
		open:        '[',
		close:       ']',
		placeholder: dialect.AtP,
		boolInt:     true,
		length:      "LEN",
		concat: func(args ...string) string {
			return strings.Join(args, " + ")
		},
		limit: offsetFetch(true),
	},
	dialect.Oracle: {
		name:        dialect.Oracle,
		open:        '"',
		close:       '"',
		placeholder: dialect.Colon,
		boolInt:     true,
		length:      "LENGTH",
		substr:      true,
		concat:      pipes,
		limit:       offsetFetch(false),
	},
}

func pipes(args ...string) string {
	return strings.Join(args, " || ")
}

// limitOffset renders LIMIT n OFFSET m. all is the LIMIT used when only an
// offset is given, for dialects that require one.
func limitOffset(all string) func(*dialect.Builder, criteria.Limit, bool) {
	return func(b *dialect.Builder, l criteria.Limit, _ bool) {
		switch {
		case l.Max > 0:
			b.WriteString(" LIMIT " + strconv.Itoa(l.Max))
		case l.Offset > 0 && all != "ALL":
			b.WriteString(" LIMIT " + all)
		}
		if l.Offset > 0 {
			b.WriteString(" OFFSET " + strconv.Itoa(l.Offset))
		}
	}
}

// offsetFetch renders OFFSET m ROWS FETCH NEXT n ROWS ONLY. needsOrder adds
// a neutral ORDER BY for dialects that only accept OFFSET after one.
func offsetFetch(needsOrder bool) func(*dialect.Builder, criteria.Limit, bool) {
	return func(b *dialect.Builder, l criteria.Limit, ordered bool) {
		if l.Max <= 0 && l.Offset <= 0 {
			return
		}
		if needsOrder && !ordered {
			b.WriteString(" ORDER BY (SELECT NULL)")
		}
		if needsOrder || l.Offset > 0 {
			b.WriteString(" OFFSET " + strconv.Itoa(l.Offset) + " ROWS")
		}
		if l.Max > 0 {
			if needsOrder || l.Offset > 0 {
				b.WriteString(" FETCH NEXT " + strconv.Itoa(l.Max) + " ROWS ONLY")
			} else {
				b.WriteString(" FETCH FIRST " + strconv.Itoa(l.Max) + " ROWS ONLY")
			}
		}
	}
}

// reserved holds words quoted even when the identifier is otherwise plain.
var reserved = map[string]bool{
	"all": true, "and": true, "as": true, "asc": true, "between": true, "by": true,
	"case": true, "check": true, "column": true, "create": true, "default": true,
	"delete": true, "desc": true, "distinct": true, "drop": true, "else": true,
	"end": true, "exists": true, "from": true, "grant": true, "group": true,
	"having": true, "in": true, "index": true, "insert": true, "into": true,
	"is": true, "join": true, "key": true, "like": true, "limit": true, "not": true,
	"null": true, "offset": true, "on": true, "or": true, "order": true,
	"primary": true, "references": true, "select": true, "set": true, "table": true,
	"then": true, "to": true, "union": true, "update": true, "user": true,
	"value": true, "values": true, "when": true, "where": true,
}

// plain reports if s can be written without quotes.
func plain(s string) bool {
	if s == "" || reserved[strings.ToLower(s)] {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '_' || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z'):
		case '0' <= c && c <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}
