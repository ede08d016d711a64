// Package od implements a CANopen/CoE-style object dictionary data model:
// named, permission-checked, typed values exposed to a device-management
// protocol through the Entry interface.
//
// Three object kinds exist. VariableObject wraps one native scalar, array, or
// string behind subindex 0. ArrayObject exposes a variable-length homogeneous
// array whose subindex 0 holds the element count. RecordObject maps a fixed
// heterogeneous layout onto a native aggregate through a descriptor table,
// including alignment gaps and intentionally-empty subindices.
//
// All payload movement goes through the stream package: a caller (typically
// an SDO server) locks the object's data, then drives Read, Write,
// CompleteRead, or CompleteWrite with its own stream over its own buffer.
// Protocol-visible rejections are returned as AbortCode values; stream and
// lifecycle faults are returned as errors.
//
// Native storage is always caller-owned. Objects hold a []byte with
// little-endian field layout and never free or reallocate it; SetData
// repoints it.
package od
