package feed

// window computes the preload indices [current-behind, current+ahead]
// clipped to [0, count), ordered current first and then ascending, so the
// visible item is always acquired before its neighbors.
func window(current, behind, ahead, count int) []int {
	if count == 0 || current < 0 || current >= count {
		return nil
	}
	lo := current - behind
	if lo < 0 {
		lo = 0
	}
	hi := current + ahead
	if hi > count-1 {
		hi = count - 1
	}
	out := make([]int, 0, hi-lo+1)
	out = append(out, current)
	for i := lo; i <= hi; i++ {
		if i != current {
			out = append(out, i)
		}
	}
	return out
}

// contains reports whether idx is inside the slice produced by window.
func contains(indices []int, idx int) bool {
	for _, i := range indices {
		if i == idx {
			return true
		}
	}
	return false
}
