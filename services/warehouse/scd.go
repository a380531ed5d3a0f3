package warehouse

// MergeResult is the outcome of reconciling a snapshot's rows against the
// currently-active rows of a dimension. N is the incoming row type, A the
// stored dimension row type.
type MergeResult[N, A any] struct {
	// Insert holds incoming rows whose natural key has no active dimension
	// row, in input order. They become fresh dimension rows effective on the
	// snapshot date.
	Insert []N

	// Expire holds active dimension rows whose natural key is absent from the
	// snapshot. Their expiration/retirement field is set to the snapshot date.
	Expire []A

	// Carried counts natural keys present on both sides. Matched rows are
	// left untouched: only presence or absence drives versioning, attribute
	// drift within a matched key does not open a new version.
	Carried int
}

// Reconcile performs the type-2 merge between the snapshot rows and the
// dimension's active set, joined on the natural key K. Duplicate natural keys
// within next are collapsed to their first occurrence. The caller must apply
// the result exactly once, inside the snapshot's transaction; the merge
// itself never touches storage.
func Reconcile[K comparable, N, A any](next []N, keyOf func(N) K, active map[K]A) MergeResult[N, A] {
	res := MergeResult[N, A]{}

	seen := make(map[K]struct{}, len(next))
	for _, row := range next {
		key := keyOf(row)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		if _, ok := active[key]; ok {
			res.Carried++
			continue
		}
		res.Insert = append(res.Insert, row)
	}

	for key, row := range active {
		if _, ok := seen[key]; ok {
			continue
		}
		res.Expire = append(res.Expire, row)
	}

	return res
}
