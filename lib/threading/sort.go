package threading

import (
	"cmp"
	"slices"
)

// ByStartTime orders threads by StartTimeEstimate, oldest first. Threads
// without any known date come first.
func ByStartTime(a, b *Node) int {
	return a.StartTimeEstimate().Compare(b.StartTimeEstimate())
}

// ByKey builds a comparator ordering nodes by an arbitrary key, ascending.
func ByKey[K cmp.Ordered](key func(*Node) K) func(a, b *Node) int {
	return func(a, b *Node) int {
		return cmp.Compare(key(a), key(b))
	}
}

// Reverse inverts a comparator.
func Reverse(cmpFn func(a, b *Node) int) func(a, b *Node) int {
	return func(a, b *Node) int {
		return cmpFn(b, a)
	}
}

func sortRoots(roots []*Node, cmpFn func(a, b *Node) int) []*Node {
	if cmpFn == nil {
		cmpFn = ByStartTime
	}
	slices.SortStableFunc(roots, cmpFn)
	return roots
}
