package mutation

// Without returns a new slice holding the items for which drop is false, in
// their original order. The input is never modified.
func Without[T any](items []T, drop func(T) bool) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		if !drop(item) {
			out = append(out, item)
		}
	}
	return out
}

// Replace returns a copy of items with every match swapped for next.
func Replace[T any](items []T, match func(T) bool, next T) []T {
	out := make([]T, len(items))
	for i, item := range items {
		if match(item) {
			out[i] = next
			continue
		}
		out[i] = item
	}
	return out
}
