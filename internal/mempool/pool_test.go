package mempool

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSizeClass(t *testing.T) {
	tests := []struct {
		name     string
		input    int
		expected int
	}{
		{"small size gets minimum", 1, 1024},
		{"exactly 1024", 1024, 1024},
		{"just over 1024", 1025, 2048},
		{"large size", 10000, 10240},
		{"zero size", 0, 1024},
		{"negative size", -1, 1024},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, sizeClass(tt.input))
		})
	}
}

func TestGetInt32ReturnsZeroedBuffers(t *testing.T) {
	buf := GetInt32(2000)
	assert.Len(t, buf, 2000)
	for i := range buf {
		buf[i] = int32(i)
	}
	PutInt32(buf)

	again := GetInt32(1500)
	assert.Len(t, again, 1500)
	for _, v := range again {
		assert.Zero(t, v)
	}
	PutInt32(again)
}

func TestGetUint8ReturnsZeroedBuffers(t *testing.T) {
	buf := GetUint8(300)
	for i := range buf {
		buf[i] = 0xff
	}
	PutUint8(buf)

	again := GetUint8(300)
	for _, v := range again {
		assert.Zero(t, v)
	}
	PutUint8(again)
}

func TestPutNilIsSafe(t *testing.T) {
	assert.NotPanics(t, func() {
		PutInt32(nil)
		PutUint8(nil)
	})
}

func TestConcurrentAccess(t *testing.T) {
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				b := GetInt32(4096)
				b[0] = 1
				PutInt32(b)
			}
		}()
	}
	wg.Wait()
}
