package align

// lcsTable aligns a and b with a suffix LCS table. It is the fallback for
// change regions whose edit distance is too large for the Myers trace
// budget. Memory is len(a)*len(b) int32 cells; callers bound it.
func lcsTable[T comparable](a, b []T) []Op {
	n, m := len(a), len(b)
	width := m + 1

	// table[i*width+j] is the LCS length of a[i:] and b[j:].
	table := make([]int32, (n+1)*width)

	for i := n - 1; i >= 0; i-- {
		for j := m - 1; j >= 0; j-- {
			switch {
			case a[i] == b[j]:
				table[i*width+j] = table[(i+1)*width+j+1] + 1
			case table[(i+1)*width+j] >= table[i*width+j+1]:
				table[i*width+j] = table[(i+1)*width+j]
			default:
				table[i*width+j] = table[i*width+j+1]
			}
		}
	}

	ops := make([]Op, 0, n+m)
	i, j := 0, 0

	for i < n && j < m {
		switch {
		case a[i] == b[j]:
			ops = append(ops, OpEqual)
			i++
			j++
		case table[(i+1)*width+j] >= table[i*width+j+1]:
			ops = append(ops, OpDelete)
			i++
		default:
			ops = append(ops, OpInsert)
			j++
		}
	}

	for ; i < n; i++ {
		ops = append(ops, OpDelete)
	}

	for ; j < m; j++ {
		ops = append(ops, OpInsert)
	}

	return ops
}
