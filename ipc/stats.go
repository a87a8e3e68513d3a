// Freetribe IPC core
// https://github.com/bangcorrupt/freetribe
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package ipc

// Stats counts driver activity, updated inline by Driver's handlers.
// There is no metrics library in play here, just a plain struct of
// counters a caller can snapshot at will.
type Stats struct {
	Submitted             uint64
	Completed             uint64
	Failed                uint64
	QueueFullRejections   uint64
	BusOccupiedRejections uint64
	ErrorDrains           uint64
}
