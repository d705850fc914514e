// Package fuzztests houses Go fuzz harnesses for the input side of
// tracefold: the streaming trace reader and the correlation pass behind it.
// They guard against panics, hangs, and results that break the interval
// laws on arbitrary bytes.
package fuzztests
