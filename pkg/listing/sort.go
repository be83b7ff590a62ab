package listing

import (
	"cmp"
	"slices"
	"strings"
	"time"
)

type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// ParseDirection defaults to descending, newest first.
func ParseDirection(s string) Direction {
	if strings.EqualFold(strings.TrimSpace(s), string(Asc)) {
		return Asc
	}
	return Desc
}

func (d Direction) Toggle() Direction {
	if d == Asc {
		return Desc
	}
	return Asc
}

// Comparator is a three-way comparison.
type Comparator[T any] func(a, b T) int

func ByString[T any](field func(T) string) Comparator[T] {
	return func(a, b T) int {
		return strings.Compare(strings.ToLower(field(a)), strings.ToLower(field(b)))
	}
}

func ByTime[T any](field func(T) time.Time) Comparator[T] {
	return func(a, b T) int {
		return field(a).Compare(field(b))
	}
}

func ByNumber[T any, N cmp.Ordered](field func(T) N) Comparator[T] {
	return func(a, b T) int {
		return cmp.Compare(field(a), field(b))
	}
}

// Sort returns a sorted copy. The sort is stable, so sorting by the same
// key asc, desc and asc again yields the first asc order.
func Sort[T any](items []T, compare Comparator[T], dir Direction) []T {
	out := slices.Clone(items)
	if compare == nil {
		return out
	}
	slices.SortStableFunc(out, func(a, b T) int {
		if dir == Desc {
			return compare(b, a)
		}
		return compare(a, b)
	})
	return out
}
