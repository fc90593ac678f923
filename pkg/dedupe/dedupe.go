// Package dedupe removes repeated items while keeping first-occurrence order.
package dedupe

// Strings returns items without duplicates, in the order each value first appears.
func Strings(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))

	for _, item := range items {
		if _, ok := seen[item]; ok {
			continue
		}

		seen[item] = struct{}{}
		out = append(out, item)
	}

	return out
}
