package fifo

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerial_DeliversInOrder(t *testing.T) {
	var got []int
	s := NewSerial(func(v int) { got = append(got, v) })

	for i := 1; i <= 5; i++ {
		require.True(t, s.Push(i))
	}

	assert.Equal(t, []int{1, 2, 3, 4, 5}, got)
	assert.Equal(t, 0, s.Len())
}

func TestSerial_ReentrantPushIsDeferred(t *testing.T) {
	var got []string
	var s *Serial[string]
	s = NewSerial(func(v string) {
		got = append(got, "begin "+v)
		if v == "outer" {
			s.Push("inner")
		}
		got = append(got, "end "+v)
	})

	s.Push("outer")

	assert.Equal(t, []string{"begin outer", "end outer", "begin inner", "end inner"}, got)
}

func TestSerial_EnqueueThenDrain(t *testing.T) {
	var got []int
	s := NewSerial(func(v int) { got = append(got, v) })

	s.Enqueue(1)
	s.Enqueue(2)
	assert.Empty(t, got, "enqueue alone must not deliver")

	s.Drain()
	assert.Equal(t, []int{1, 2}, got)
}

func TestSerial_PushAfterClose(t *testing.T) {
	s := NewSerial(func(int) {})
	s.Close()
	assert.False(t, s.Push(1))
}

func TestSerial_PanicDoesNotWedge(t *testing.T) {
	var got []int
	s := NewSerial(func(v int) {
		if v == 1 {
			panic("boom")
		}
		got = append(got, v)
	})

	assert.Panics(t, func() { s.Push(1) })
	s.Push(2)

	assert.Equal(t, []int{2}, got)
}

func TestSerial_ConcurrentPushSingleWriter(t *testing.T) {
	var (
		mu       sync.Mutex
		inFlight int
		maxSeen  int
		count    int
	)
	s := NewSerial(func(int) {
		mu.Lock()
		inFlight++
		if inFlight > maxSeen {
			maxSeen = inFlight
		}
		mu.Unlock()

		mu.Lock()
		inFlight--
		count++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				s.Push(j)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 400, count)
	assert.Equal(t, 1, maxSeen, "deliver must never run concurrently")
}
