package cpu

import "github.com/warp-ml/warp/internal/tensor"

// broadcastStrides returns strides for iterating a tensor of shape `shape`
// as if it had the broadcast shape `out`: broadcast dimensions get stride 0.
func broadcastStrides(shape, out tensor.Shape) []int {
	strides := shape.ComputeStrides()
	result := make([]int, len(out))
	offset := len(out) - len(shape)
	for i := range out {
		if i < offset {
			result[i] = 0
			continue
		}
		if shape[i-offset] == 1 && out[i] != 1 {
			result[i] = 0
		} else {
			result[i] = strides[i-offset]
		}
	}
	return result
}

// binaryBroadcast applies fn over the broadcast iteration space.
func binaryBroadcast(result, a, b *tensor.RawTensor, out tensor.Shape, fn func(x, y float64) float64) {
	sa := broadcastStrides(a.Shape(), out)
	sb := broadcastStrides(b.Shape(), out)
	ad, bd, rd := a.Data(), b.Data(), result.Data()
	idx := make([]int, len(out))
	for i := range rd {
		oa, ob := 0, 0
		for d := range idx {
			oa += idx[d] * sa[d]
			ob += idx[d] * sb[d]
		}
		rd[i] = fn(ad[oa], bd[ob])
		for d := len(idx) - 1; d >= 0; d-- {
			idx[d]++
			if idx[d] < out[d] {
				break
			}
			idx[d] = 0
		}
	}
}

// spatialSize returns the product of the given dimensions.
func spatialSize(dims []int) int {
	n := 1
	for _, d := range dims {
		n *= d
	}
	return n
}
