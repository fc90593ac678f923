package align

// myers runs the greedy forward pass of Myers' algorithm over a and b and
// traces the shortest path back into one op per step. Both inputs must be
// non-empty. It returns false when the trace would hold more than maxCells
// V-array cells.
//
// Reference: Myers, E. (1986). "An O(ND) Difference Algorithm and Its Variations".
//
//nolint:gocognit // the forward pass and snapshotting belong together.
func myers[T comparable](a, b []T, maxCells int) ([]Op, bool) {
	n, m := len(a), len(b)
	limit := n + m
	offset := limit + 1

	// v[offset+k] is the furthest x reached on diagonal k.
	v := make([]int, 2*limit+3)

	// trace[d] holds v[-d..d] as it stood before step d.
	trace := make([][]int, 0, initialTraceCapacity)
	cells := 0

	for d := 0; d <= limit; d++ {
		cells += 2*d + 1
		if cells > maxCells {
			return nil, false
		}

		snapshot := make([]int, 2*d+1)
		copy(snapshot, v[offset-d:offset+d+1])
		trace = append(trace, snapshot)

		for k := -d; k <= d; k += 2 {
			var x int

			if k == -d || (k != d && v[offset+k-1] < v[offset+k+1]) {
				x = v[offset+k+1]
			} else {
				x = v[offset+k-1] + 1
			}

			y := x - k

			for x < n && y < m && a[x] == b[y] {
				x++
				y++
			}

			v[offset+k] = x

			if x >= n && y >= m {
				return backtrack(trace, n, m), true
			}
		}
	}

	// Unreachable: d = n+m always reaches the end point.
	return backtrack(trace, n, m), true
}

// backtrack walks the recorded trace from (n, m) to (0, 0), applying the
// same move choice as the forward pass, and returns the ops in forward order.
func backtrack(trace [][]int, n, m int) []Op {
	ops := make([]Op, 0, n+m)
	x, y := n, m

	for d := len(trace) - 1; d > 0; d-- {
		snapshot := trace[d]
		at := func(k int) int { return snapshot[k+d] }

		k := x - y

		var prevK int
		if k == -d || (k != d && at(k-1) < at(k+1)) {
			prevK = k + 1
		} else {
			prevK = k - 1
		}

		prevX := at(prevK)
		prevY := prevX - prevK

		for x > prevX && y > prevY {
			ops = append(ops, OpEqual)
			x--
			y--
		}

		if x == prevX {
			ops = append(ops, OpInsert)
		} else {
			ops = append(ops, OpDelete)
		}

		x, y = prevX, prevY
	}

	for x > 0 && y > 0 {
		ops = append(ops, OpEqual)
		x--
		y--
	}

	for i, j := 0, len(ops)-1; i < j; i, j = i+1, j-1 {
		ops[i], ops[j] = ops[j], ops[i]
	}

	return ops
}
