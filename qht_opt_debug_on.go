//go:build qht_debug

package qht

const debugAssert = true
