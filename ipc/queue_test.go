// Freetribe IPC core
// https://github.com/bangcorrupt/freetribe
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package ipc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventQueuePushPopOrder(t *testing.T) {
	q := NewEventQueue(4)

	for i := 0; i < 3; i++ {
		ok := q.Push(Event{Kind: HostWriteComplete, Meta: Envelope{Count: uint16(i)}})
		require.True(t, ok)
	}

	assert.Equal(t, 3, q.Len())
	assert.Equal(t, 4, q.Cap())

	for i := 0; i < 3; i++ {
		e, ok := q.Pop()
		require.True(t, ok)
		assert.Equal(t, uint16(i), e.Meta.Count, "events must drain in push order")
	}

	_, ok := q.Pop()
	assert.False(t, ok, "Pop on an empty queue must report false, not block")
}

func TestEventQueueOverflowReportsFalse(t *testing.T) {
	q := NewEventQueue(2)

	require.True(t, q.Push(Event{}))
	require.True(t, q.Push(Event{}))

	assert.False(t, q.Push(Event{}), "Push past capacity must not block or panic")
	assert.Equal(t, 2, q.Len())
}
