package cpu

import (
	"fmt"

	"github.com/warp-ml/warp/internal/tensor"
)

// BatchMatMul performs batched matrix multiplication [N,M,K]@[N,K,P].
// The batch dimension of either operand may be 1, in which case the single
// matrix is used for every batch element.
func (cpu *CPUBackend) BatchMatMul(a, b *tensor.RawTensor) *tensor.RawTensor {
	as, bs := a.Shape(), b.Shape()
	if len(as) != 3 || len(bs) != 3 {
		panic(fmt.Sprintf("batchmatmul: expected 3D tensors, got %v and %v", as, bs))
	}
	if as[2] != bs[1] {
		panic(fmt.Sprintf("batchmatmul: inner dimensions mismatch: %v @ %v", as, bs))
	}
	n := as[0]
	if bs[0] > n {
		n = bs[0]
	}
	if (as[0] != n && as[0] != 1) || (bs[0] != n && bs[0] != 1) {
		panic(fmt.Sprintf("batchmatmul: batch dimensions mismatch: %v @ %v", as, bs))
	}
	m, k, p := as[1], as[2], bs[2]
	result := newRaw(tensor.Shape{n, m, p}, cpu.device)
	ad, bd, rd := a.Data(), b.Data(), result.Data()
	for batch := 0; batch < n; batch++ {
		ao := batch * m * k
		if as[0] == 1 {
			ao = 0
		}
		bo := batch * k * p
		if bs[0] == 1 {
			bo = 0
		}
		ro := batch * m * p
		for i := 0; i < m; i++ {
			for j := 0; j < p; j++ {
				total := 0.0
				for x := 0; x < k; x++ {
					total += ad[ao+i*k+x] * bd[bo+x*p+j]
				}
				rd[ro+i*p+j] = total
			}
		}
	}
	return result
}
