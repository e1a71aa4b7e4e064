package ranking

import "iter"

// Rank labels an already sorted sequence with competition ranks: equal keys
// share a rank and the rank after a tie group of size k starting at r is r+k.
// It never sorts and keeps only the previous key and a counter.
func Rank[T any, K comparable](seq iter.Seq[T], key func(T) K) iter.Seq2[int, T] {
	return RankFunc(seq, func(prev, cur T) bool {
		return key(prev) == key(cur)
	})
}

// RankFunc is Rank for keys that are not comparable with ==.
func RankFunc[T any](seq iter.Seq[T], same func(prev, cur T) bool) iter.Seq2[int, T] {
	return func(yield func(int, T) bool) {
		var (
			prev  T
			rank  int
			seen  int
			first = true
		)
		for item := range seq {
			seen++
			if first || !same(prev, item) {
				rank = seen
			}
			first = false
			prev = item
			if !yield(rank, item) {
				return
			}
		}
	}
}
