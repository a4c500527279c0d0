// Package revocation maintains the issuer's credential status list and
// renders it as a StatusList2021 or BitstringStatusList credential.
package revocation

import (
	"fmt"
	"slices"
	"sync"
)

// BitString is a fixed size bit array. Bit i lives in byte i/8; MSB-first
// (the default) puts index 0 in the byte's highest bit, LSB-first in its
// lowest.
type BitString struct {
	mu       sync.RWMutex
	bits     []byte
	lsbFirst bool
}

// NewBitString allocates size bits, all clear. size must be a multiple of 8.
func NewBitString(size int, lsbFirst bool) *BitString {
	if size <= 0 || size%8 != 0 {
		panic("BitString size should be multiple of 8")
	}
	return &BitString{bits: make([]byte, size/8), lsbFirst: lsbFirst}
}

// BitStringFromBytes wraps an existing list, e.g. one decoded from an
// encodedList.
func BitStringFromBytes(b []byte, lsbFirst bool) *BitString {
	return &BitString{bits: slices.Clone(b), lsbFirst: lsbFirst}
}

// Len returns the capacity in bits.
func (b *BitString) Len() int {
	return len(b.bits) * 8
}

// Get reports whether bit i is set. i outside [0, Len) panics.
func (b *BitString) Get(i int) bool {
	b.check(i)
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.bits[i/8]&b.mask(i) != 0
}

// Set sets or clears bit i. i outside [0, Len) panics.
func (b *BitString) Set(i int, value bool) {
	b.check(i)
	b.mu.Lock()
	defer b.mu.Unlock()
	if value {
		b.bits[i/8] |= b.mask(i)
	} else {
		b.bits[i/8] &^= b.mask(i)
	}
}

// Bytes returns a copy of the underlying bytes.
func (b *BitString) Bytes() []byte {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return slices.Clone(b.bits)
}

func (b *BitString) mask(i int) byte {
	if b.lsbFirst {
		return 1 << (i % 8)
	}
	return 1 << (7 - i%8)
}

func (b *BitString) check(i int) {
	if i < 0 || i >= b.Len() {
		panic(fmt.Sprintf("Index out of range 0-%d", b.Len()))
	}
}
