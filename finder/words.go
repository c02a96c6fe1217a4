package finder

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/syssam/derive/criteria"
)

// verbs maps method name prefixes to operation kinds.
var verbs = map[string]criteria.Kind{
	"find":      criteria.KindQuery,
	"get":       criteria.KindQuery,
	"query":     criteria.KindQuery,
	"search":    criteria.KindQuery,
	"read":      criteria.KindQuery,
	"retrieve":  criteria.KindQuery,
	"list":      criteria.KindQuery,
	"stream":    criteria.KindQuery,
	"count":     criteria.KindCount,
	"exists":    criteria.KindExists,
	"delete":    criteria.KindDelete,
	"remove":    criteria.KindDelete,
	"erase":     criteria.KindDelete,
	"eliminate": criteria.KindDelete,
	"update":    criteria.KindUpdate,
	"modify":    criteria.KindUpdate,
	"save":      criteria.KindInsert,
	"persist":   criteria.KindInsert,
	"store":     criteria.KindInsert,
	"insert":    criteria.KindInsert,
}

// verbPrefixes holds the keys of verbs, longest first.
var verbPrefixes = func() []string {
	keys := make([]string, 0, len(verbs))
	for k := range verbs {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	return keys
}()

// verb splits a method name into its operation kind and the remainder. The
// prefix must end at a word boundary.
func verb(method string) (criteria.Kind, string, bool) {
	for _, prefix := range verbPrefixes {
		if !strings.HasPrefix(method, prefix) {
			continue
		}
		rest := method[len(prefix):]
		if r, _ := utf8.DecodeRuneInString(rest); rest == "" || unicode.IsUpper(r) || unicode.IsDigit(r) || r == '_' {
			return verbs[prefix], rest, true
		}
	}
	return 0, "", false
}

// splitWords splits a camel case identifier into words. Underscores separate
// words and are dropped, digits stay with the preceding word and runs of
// capitals are kept together ("ISBNLike" is ISBN, Like).
func splitWords(s string) []string {
	var (
		words []string
		runes = []rune(s)
		start int
	)
	flush := func(end int) {
		if end > start {
			words = append(words, string(runes[start:end]))
		}
	}
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r == '_' {
			flush(i)
			start = i + 1
			continue
		}
		if i > start && unicode.IsUpper(r) {
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				flush(i)
				start = i
			}
		}
	}
	flush(len(runes))
	return words
}

// decapitalize lower-cases the first letter, unless the first two letters
// are both capitals ("ISBN" stays "ISBN").
func decapitalize(s string) string {
	runes := []rune(s)
	if len(runes) == 0 {
		return s
	}
	if len(runes) > 1 && unicode.IsUpper(runes[0]) && unicode.IsUpper(runes[1]) {
		return s
	}
	runes[0] = unicode.ToLower(runes[0])
	return string(runes)
}

// wordsAt reports if words[i:] starts with want.
func wordsAt(words []string, i int, want []string) bool {
	if i+len(want) > len(words) {
		return false
	}
	for j, w := range want {
		if words[i+j] != w {
			return false
		}
	}
	return true
}
