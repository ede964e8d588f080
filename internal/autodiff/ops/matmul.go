package ops

import (
	"github.com/warp-ml/warp/internal/tensor"
)

// BatchMatMulOp records a batched matrix product [N,M,K] @ [N,K,P].
type BatchMatMulOp struct {
	a, b, output *tensor.RawTensor
}

// NewBatchMatMulOp creates a batched matrix product record.
func NewBatchMatMulOp(a, b, output *tensor.RawTensor) *BatchMatMulOp {
	return &BatchMatMulOp{a: a, b: b, output: output}
}

func (op *BatchMatMulOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	// dA = dOut @ Bᵀ, dB = Aᵀ @ dOut. A broadcast batch dimension of 1
	// accumulates over the batch.
	gradA := backend.BatchMatMul(outputGrad, backend.Transpose(op.b, 0, 2, 1))
	gradB := backend.BatchMatMul(backend.Transpose(op.a, 0, 2, 1), outputGrad)
	if op.a.Shape()[0] == 1 && gradA.Shape()[0] > 1 {
		gradA = backend.SumDim(gradA, 0, true)
	}
	if op.b.Shape()[0] == 1 && gradB.Shape()[0] > 1 {
		gradB = backend.SumDim(gradB, 0, true)
	}
	return []*tensor.RawTensor{gradA, gradB}
}

func (op *BatchMatMulOp) Inputs() []*tensor.RawTensor { return []*tensor.RawTensor{op.a, op.b} }
func (op *BatchMatMulOp) Output() *tensor.RawTensor   { return op.output }
