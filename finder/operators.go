package finder

import (
	"sort"
)

// op is the closed set of comparison suffixes a clause may end with.
type op uint8

const (
	opEq op = iota
	opNeq
	opGt
	opGte
	opLt
	opLte
	opLike
	opNotLike
	opIlike
	opContains
	opStarts
	opEnds
	opIn
	opNotIn
	opBetween
	opNotBetween
	opNull
	opNotNull
	opEmpty
	opNotEmpty
	opTrue
	opFalse
)

// arity returns the number of parameters the operator consumes.
func (o op) arity() int {
	switch o {
	case opBetween, opNotBetween:
		return 2
	case opNull, opNotNull, opEmpty, opNotEmpty, opTrue, opFalse:
		return 0
	default:
		return 1
	}
}

// textual reports if the operator only applies to string properties.
func (o op) textual() bool {
	switch o {
	case opLike, opNotLike, opIlike, opContains, opStarts, opEnds:
		return true
	default:
		return false
	}
}

var suffixes = map[string]op{
	"Equals":            opEq,
	"Equal":             opEq,
	"Is":                opEq,
	"IsEqual":           opEq,
	"NotEqual":          opNeq,
	"NotEquals":         opNeq,
	"Not":               opNeq,
	"IsNot":             opNeq,
	"GreaterThan":       opGt,
	"After":             opGt,
	"IsAfter":           opGt,
	"GreaterThanEqual":  opGte,
	"GreaterThanEquals": opGte,
	"LessThan":          opLt,
	"Before":            opLt,
	"IsBefore":          opLt,
	"LessThanEqual":     opLte,
	"LessThanEquals":    opLte,
	"Like":              opLike,
	"IsLike":            opLike,
	"NotLike":           opNotLike,
	"Ilike":             opIlike,
	"Contains":          opContains,
	"Containing":        opContains,
	"IsContaining":      opContains,
	"StartsWith":        opStarts,
	"StartingWith":      opStarts,
	"IsStartingWith":    opStarts,
	"EndsWith":          opEnds,
	"EndingWith":        opEnds,
	"IsEndingWith":      opEnds,
	"In":                opIn,
	"InList":            opIn,
	"IsIn":              opIn,
	"NotIn":             opNotIn,
	"NotInList":         opNotIn,
	"IsNotIn":           opNotIn,
	"Between":           opBetween,
	"InRange":           opBetween,
	"IsBetween":         opBetween,
	"NotBetween":        opNotBetween,
	"IsNull":            opNull,
	"Null":              opNull,
	"IsNotNull":         opNotNull,
	"NotNull":           opNotNull,
	"IsEmpty":           opEmpty,
	"Empty":             opEmpty,
	"IsNotEmpty":        opNotEmpty,
	"NotEmpty":          opNotEmpty,
	"True":              opTrue,
	"IsTrue":            opTrue,
	"False":             opFalse,
	"IsFalse":           opFalse,
}

type suffix struct {
	words []string
	op    op
}

// suffixTable holds the suffixes split into words, longest first, so the
// first match is the longest one ("NotEqual" before "Not").
var suffixTable = func() []suffix {
	table := make([]suffix, 0, len(suffixes))
	for s, o := range suffixes {
		table = append(table, suffix{words: splitWords(s), op: o})
	}
	sort.Slice(table, func(i, j int) bool {
		a, b := table[i].words, table[j].words
		if len(a) != len(b) {
			return len(a) > len(b)
		}
		return joinWords(a) < joinWords(b)
	})
	return table
}()

func joinWords(words []string) string {
	var s string
	for _, w := range words {
		s += w
	}
	return s
}
