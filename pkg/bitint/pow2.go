/*
Package bitint provides power-of-2 helpers for buffer and FFT sizing.

All operations are O(1), allocation-free and real-time safe.
*/
package bitint

import "math/bits"

// NextPowerOfTwo returns the next power of 2 >= size.
// The (size-1) subtraction preserves exact powers of 2; without it
// they would be doubled.
//
// Examples:
//
//	Input  Output
//	4      4
//	5      8
//	0      1
//	-1     1
func NextPowerOfTwo(size int) int {
	if size <= 0 {
		return 1
	}

	// 64-bit platforms (where int is 64-bit)
	if ^uint(0)>>63 == 0 {
		return int(1 << (bits.Len64(uint64(size - 1))))
	}

	// 32-bit platforms
	return int(1 << (bits.Len32(uint32(size - 1))))
}

// IsPowerOfTwo checks if n is a power of 2 using bit manipulation.
// Powers of 2 have exactly one bit set, so (n & (n-1)) == 0 holds
// only for them (and zero, which the n > 0 guard excludes).
func IsPowerOfTwo(n int) bool {
	return n > 0 && (n&(n-1)) == 0
}
