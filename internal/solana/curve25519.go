package solana

import "math/big"

// isOnCurve reports whether a 32-byte compressed point encoding decodes
// to a valid point on the edwards25519 curve, the same off-curve check
// the ledger's address space relies on to distinguish a program-derived
// address (intentionally off-curve, so no private key can ever sign for
// it) from an ordinary wallet address. No ecosystem curve library ships
// this check in the retrieved corpus, so it is implemented directly
// against the published edwards25519 parameters using math/big.
func isOnCurve(encoded [32]byte) bool {
	var buf [32]byte
	copy(buf[:], encoded[:])
	buf[31] &= 0x7f // strip sign bit

	y := new(big.Int).SetBytes(reverse(buf[:]))
	if y.Cmp(curveP) >= 0 {
		return false
	}

	// x^2 = (y^2 - 1) / (d*y^2 + 1) mod p
	y2 := new(big.Int).Mul(y, y)
	y2.Mod(y2, curveP)

	num := new(big.Int).Sub(y2, big.NewInt(1))
	num.Mod(num, curveP)

	den := new(big.Int).Mul(curveD, y2)
	den.Add(den, big.NewInt(1))
	den.Mod(den, curveP)

	if den.Sign() == 0 {
		return false
	}

	denInv := new(big.Int).ModInverse(den, curveP)
	if denInv == nil {
		return false
	}

	x2 := new(big.Int).Mul(num, denInv)
	x2.Mod(x2, curveP)

	return hasSqrtModP(x2)
}

// reverse returns a big-endian copy of a little-endian byte slice.
func reverse(b []byte) []byte {
	out := make([]byte, len(b))
	for i, v := range b {
		out[len(b)-1-i] = v
	}
	return out
}

// hasSqrtModP reports whether a has a modular square root mod curveP,
// exploiting curveP ≡ 5 (mod 8) via the standard candidate-and-verify
// construction.
func hasSqrtModP(a *big.Int) bool {
	if a.Sign() == 0 {
		return true
	}

	exp := new(big.Int).Add(curveP, big.NewInt(3))
	exp.Div(exp, big.NewInt(8))

	candidate := new(big.Int).Exp(a, exp, curveP)
	sq := new(big.Int).Mul(candidate, candidate)
	sq.Mod(sq, curveP)
	if sq.Cmp(a) == 0 {
		return true
	}

	// a might require multiplication by sqrt(-1) mod p.
	sq2 := new(big.Int).Mul(candidate, curveSqrtMinus1)
	sq2.Mod(sq2, curveP)
	sq2.Mul(sq2, sq2)
	sq2.Mod(sq2, curveP)

	return sq2.Cmp(a) == 0
}

var (
	// curveP = 2^255 - 19.
	curveP = func() *big.Int {
		p := new(big.Int).Lsh(big.NewInt(1), 255)
		p.Sub(p, big.NewInt(19))
		return p
	}()

	// curveD = -121665/121666 mod p.
	curveD = func() *big.Int {
		num := big.NewInt(-121665)
		den := big.NewInt(121666)
		inv := new(big.Int).ModInverse(den, curveP)
		d := new(big.Int).Mul(num, inv)
		return d.Mod(d, curveP)
	}()

	// curveSqrtMinus1 = 2^((p-1)/4) mod p, a square root of -1 mod p.
	curveSqrtMinus1 = func() *big.Int {
		exp := new(big.Int).Sub(curveP, big.NewInt(1))
		exp.Div(exp, big.NewInt(4))
		return new(big.Int).Exp(big.NewInt(2), exp, curveP)
	}()
)
