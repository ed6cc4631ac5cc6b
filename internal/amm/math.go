package amm

import (
	"math/big"
	"math/bits"
)

// mulDiv returns floor(a*b/d) using a 128-bit product. It reports ErrOverflow
// when the quotient does not fit in 64 bits.
func mulDiv(a, b, d uint64) (uint64, error) {
	if d == 0 {
		return 0, ErrZeroLiquidity
	}
	hi, lo := bits.Mul64(a, b)
	if hi >= d {
		return 0, ErrOverflow
	}
	q, _ := bits.Div64(hi, lo, d)
	return q, nil
}

// mulDivCeil returns ceil(a*b/d).
func mulDivCeil(a, b, d uint64) (uint64, error) {
	if d == 0 {
		return 0, ErrZeroLiquidity
	}
	hi, lo := bits.Mul64(a, b)
	if hi >= d {
		return 0, ErrOverflow
	}
	q, r := bits.Div64(hi, lo, d)
	if r == 0 {
		return q, nil
	}
	if q == ^uint64(0) {
		return 0, ErrOverflow
	}
	return q + 1, nil
}

// sqrtProduct returns floor(sqrt(a*b)). The result always fits in 64 bits.
func sqrtProduct(a, b uint64) uint64 {
	product := new(big.Int).Mul(new(big.Int).SetUint64(a), new(big.Int).SetUint64(b))
	return product.Sqrt(product).Uint64()
}

// pow10 returns 10^n for n in [0, 19].
func pow10(n uint8) (uint64, error) {
	if n > 19 {
		return 0, ErrOverflow
	}
	v := uint64(1)
	for i := uint8(0); i < n; i++ {
		v *= 10
	}
	return v, nil
}

func checkedAdd(a, b uint64) (uint64, error) {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, ErrOverflow
	}
	return sum, nil
}
