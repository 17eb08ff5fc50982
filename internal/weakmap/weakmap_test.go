package weakmap

import (
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct{ name string }

func TestMap_SetGetDelete(t *testing.T) {
	m := New[item, int]()
	a, b := &item{"a"}, &item{"b"}
	m.Set(a, 1)
	m.Set(b, 2)
	m.Set(a, 3)

	v, ok := m.Get(a)
	require.True(t, ok)
	assert.Equal(t, 3, v)
	assert.Equal(t, 2, m.Len())

	m.Delete(b)
	assert.False(t, m.Has(b))
	assert.Equal(t, 1, m.Len())
	runtime.KeepAlive(a)
}

func TestMap_DropsCollectedKeys(t *testing.T) {
	m := New[item, int]()
	func() {
		m.Set(&item{"gone"}, 1)
	}()
	require.Eventually(t, func() bool {
		runtime.GC()
		return m.Len() == 0
	}, 2*time.Second, 10*time.Millisecond)
}
