// Package serialization reads and writes tensors in the SafeTensors format.
//
// The harness uses it to dump the operands and outputs of a failing case so
// the mismatch can be reproduced and inspected outside the tool.
//
// Format:
//
//	[8 bytes: header_size (uint64 LE)]
//	[header_size bytes: JSON header]
//	[tensor data: raw little-endian bytes]
package serialization
