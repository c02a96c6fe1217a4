package dialect

import (
	"fmt"
	"strconv"

	"github.com/syssam/derive"
	"github.com/syssam/derive/criteria"
	"github.com/syssam/derive/schema"
)

// Raw is a query written natively for the target dialect. Parameter markers
// are ?N (1-based), :name and plain ?, numbered left to right.
type Raw struct {
	Text   string
	Kind   criteria.Kind
	Entity *schema.Entity
	Params []criteria.ParamDecl
}

// WriteRaw copies the raw text into b, replacing parameter markers with the
// builder's placeholders. Quoted strings, quoted identifiers and :: casts are
// copied as is.
func WriteRaw(b *Builder, r Raw) error {
	var (
		src  = r.Text
		next int
	)
	for i := 0; i < len(src); {
		c := src[i]
		switch {
		case c == '\'' || c == '"' || c == '`':
			j := skipQuoted(src, i)
			b.WriteString(src[i:j])
			i = j
		case c == ':' && i+1 < len(src) && src[i+1] == ':':
			b.WriteString("::")
			i += 2
		case c == '?':
			j := i + 1
			for j < len(src) && isDigit(src[j]) {
				j++
			}
			idx := next
			if j > i+1 {
				n, _ := strconv.Atoi(src[i+1 : j])
				idx = n - 1
			} else {
				next++
			}
			p, err := positional(r, idx, src[i:j])
			if err != nil {
				return err
			}
			b.Arg(p)
			i = j
		case (c == ':' || (c == '@' && b.byKey != nil)) && i+1 < len(src) && isIdentStart(src[i+1]):
			j := i + 1
			for j < len(src) && isIdentPart(src[j]) {
				j++
			}
			p, err := named(r, src[i+1:j])
			if err != nil {
				return err
			}
			b.Arg(p)
			i = j
		default:
			_ = b.WriteByte(c)
			i++
		}
	}
	return nil
}

func positional(r Raw, idx int, token string) (*criteria.Param, error) {
	if idx < 0 {
		return nil, derive.NewParameterResolutionError(token, fmt.Errorf("parameters start at ?1"))
	}
	if len(r.Params) == 0 {
		return &criteria.Param{Index: idx}, nil
	}
	if idx >= len(r.Params) {
		return nil, derive.NewParameterResolutionError(token, fmt.Errorf("only %d parameters declared", len(r.Params)))
	}
	d := r.Params[idx]
	return &criteria.Param{Index: idx, Name: d.Name, Type: d.Type, Collection: d.Collection}, nil
}

func named(r Raw, name string) (*criteria.Param, error) {
	for i, d := range r.Params {
		if d.Name == name {
			return &criteria.Param{Index: i, Name: d.Name, Type: d.Type, Collection: d.Collection}, nil
		}
	}
	if len(r.Params) > 0 {
		return nil, derive.NewParameterResolutionError(":"+name, fmt.Errorf("parameter is not declared"))
	}
	return &criteria.Param{Index: -1, Name: name}, nil
}

// skipQuoted returns the index following the quoted run starting at i. A
// doubled quote character escapes itself.
func skipQuoted(s string, i int) int {
	q := s[i]
	for j := i + 1; j < len(s); j++ {
		if s[j] != q {
			continue
		}
		if j+1 < len(s) && s[j+1] == q {
			j++
			continue
		}
		return j + 1
	}
	return len(s)
}

func isDigit(c byte) bool { return '0' <= c && c <= '9' }

func isIdentStart(c byte) bool {
	return c == '_' || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

func isIdentPart(c byte) bool { return isIdentStart(c) || isDigit(c) }
