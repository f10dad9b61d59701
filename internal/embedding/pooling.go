package embedding

// meanPool averages the rows of a (seq x dims) hidden-state matrix whose attention mask is 1.
func meanPool(hidden []float32, mask []int64, dims int) []float32 {
	out := make([]float32, dims)
	var n float32
	for t, m := range mask {
		if m == 0 {
			continue
		}
		row := hidden[t*dims : (t+1)*dims]
		for i, v := range row {
			out[i] += v
		}
		n++
	}
	if n == 0 {
		return out
	}
	for i := range out {
		out[i] /= n
	}
	return out
}
