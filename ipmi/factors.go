package ipmi

import (
	"fmt"
	"math"
)

// ReadingFactors are the sensor reading conversion factors (IPMI v2.0
// §36.3): an 8-bit raw reading x converts to engineering units as
//
//	value = (M*x + B*10^BExp) * 10^RExp
//
// M and B are 10-bit two's-complement fields, the exponents 4-bit.
type ReadingFactors struct {
	M      int16
	B      int16
	RExp   int8
	BExp   int8
	Signed bool // raw readings use the signed -128..127 domain
}

const (
	maxMantissa = 511
	minMantissa = -512
	maxExponent = 7
	minExponent = -8
)

// scaleToMantissa brings v into the 10-bit mantissa range, returning the
// scaled value and the decimal exponent applied. Scaling up stops early when
// v becomes integral; more digits would not add precision.
func scaleToMantissa(v float64) (float64, int, error) {
	exp := 0
	for math.Abs(v) > maxMantissa {
		if exp >= maxExponent {
			return 0, 0, fmt.Errorf("magnitude %g exceeds the mantissa/exponent limits", v)
		}
		v /= 10
		exp++
	}
	for exp > minExponent && v != math.Trunc(v) && math.Abs(v)*10 <= maxMantissa {
		v *= 10
		exp--
	}
	return v, exp, nil
}

// DeriveReadingFactors computes factors that map the engineering range
// [min, max] onto the 8-bit raw domain. The multiplier is scaled for maximum
// precision and rounded up so the full range always fits. The offset must be
// representable within half a quantization step; when it is not, the
// multiplier is coarsened a decade at a time until both fit or the exponent
// limit rejects the range.
func DeriveReadingFactors(min, max float64) (ReadingFactors, error) {
	var f ReadingFactors
	if math.IsInf(min, 0) || math.IsInf(max, 0) {
		return f, fmt.Errorf("range [%g, %g] is not finite", min, max)
	}
	if !(max > min) {
		return f, fmt.Errorf("range [%g, %g] is empty", min, max)
	}
	f.Signed = min < 0

	slope := (max - min) / 255.0
	m, rExp, err := scaleToMantissa(slope)
	if err != nil {
		return f, fmt.Errorf("range [%g, %g] too wide: %w", min, max, err)
	}

	for {
		mValue := int64(math.Ceil(m))
		if mValue == 0 { // subnormal span
			mValue = 1
		}

		// Anchor the offset so min maps to the bottom of the raw domain.
		bTarget := min / math.Pow(10, float64(rExp))
		if f.Signed {
			bTarget += 128 * float64(mValue)
		}

		if bValue, bExp, ok := quantizeOffset(bTarget, mValue); ok {
			f.M = int16(mValue)
			f.RExp = int8(rExp)
			f.B = int16(bValue)
			f.BExp = int8(bExp)
			return f, nil
		}

		if rExp >= maxExponent {
			return f, fmt.Errorf("offset of range [%g, %g] not representable", min, max)
		}
		m /= 10
		rExp++
	}
}

// quantizeOffset fits the offset into a 10-bit mantissa and 4-bit exponent,
// accepting the result only when the rounding error stays within half a raw
// step at the given multiplier.
func quantizeOffset(bTarget float64, mValue int64) (int64, int, bool) {
	b, bExp, err := scaleToMantissa(bTarget)
	if err != nil {
		return 0, 0, false
	}
	bValue := int64(math.Round(b))
	if bValue > maxMantissa || bValue < minMantissa {
		// rounding pushed past the mantissa limit
		if bExp >= maxExponent {
			return 0, 0, false
		}
		b /= 10
		bExp++
		bValue = int64(math.Round(b))
	}

	residual := math.Abs(float64(bValue)*math.Pow(10, float64(bExp)) - bTarget)
	if residual > float64(mValue)/2+math.Abs(bTarget)*1e-12 {
		return 0, 0, false
	}
	return bValue, bExp, true
}

// DecodeReading converts a raw 8-bit reading to engineering units.
func (f ReadingFactors) DecodeReading(raw byte) float64 {
	x := float64(raw)
	if f.Signed {
		x = float64(int8(raw))
	}
	return (float64(f.M)*x + float64(f.B)*math.Pow(10, float64(f.BExp))) *
		math.Pow(10, float64(f.RExp))
}

// EncodeReading converts an engineering value to the nearest raw reading,
// clamped to the raw domain.
func (f ReadingFactors) EncodeReading(value float64) byte {
	x := (value/math.Pow(10, float64(f.RExp)) -
		float64(f.B)*math.Pow(10, float64(f.BExp))) / float64(f.M)
	x = math.Round(x)
	if f.Signed {
		if x < -128 {
			x = -128
		} else if x > 127 {
			x = 127
		}
		return byte(int8(x))
	}
	if x < 0 {
		x = 0
	} else if x > 255 {
		x = 255
	}
	return byte(x)
}

// QuantizationStep is the engineering-unit width of one raw count.
func (f ReadingFactors) QuantizationStep() float64 {
	return float64(f.M) * math.Pow(10, float64(f.RExp))
}
