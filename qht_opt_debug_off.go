//go:build !qht_debug

package qht

// debugAssert enables chain consistency checks after every mutation.
// Build with `-tags qht_debug` to turn it on.
const debugAssert = false
