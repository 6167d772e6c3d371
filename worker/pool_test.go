package worker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolEagerMin(t *testing.T) {
	p, err := NewPool(2, 4, newFake)
	require.NoError(t, err)
	defer p.Dispose()

	total, idle := p.Stats()
	assert.Equal(t, 2, total)
	assert.Equal(t, 2, idle)
}

func TestPoolAcquireRelease(t *testing.T) {
	p, err := NewPool(1, 2, newFake)
	require.NoError(t, err)
	defer p.Dispose()

	w1, err := p.Acquire(context.Background())
	require.NoError(t, err)
	// 超过空闲数时新建
	w2, err := p.Acquire(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, w1.ID, w2.ID)

	total, idle := p.Stats()
	assert.Equal(t, 2, total)
	assert.Equal(t, 0, idle)

	p.Release(w1)
	p.Release(w2)
	total, idle = p.Stats()
	assert.Equal(t, 2, total)
	assert.Equal(t, 2, idle)
}

func TestPoolBlocksAtMax(t *testing.T) {
	p, err := NewPool(0, 1, newFake)
	require.NoError(t, err)
	defer p.Dispose()

	w, err := p.Acquire(context.Background())
	require.NoError(t, err)

	// 池已满，第二次获取阻塞直到归还
	acquired := make(chan *Worker[*fakeResource])
	go func() {
		w2, err := p.Acquire(context.Background())
		require.NoError(t, err)
		acquired <- w2
	}()

	select {
	case <-acquired:
		t.Fatal("acquire should block while pool is saturated")
	case <-time.After(50 * time.Millisecond):
	}

	p.Release(w)
	select {
	case w2 := <-acquired:
		p.Release(w2)
	case <-time.After(time.Second):
		t.Fatal("acquire did not wake up after release")
	}
}

func TestPoolAcquireContextCancel(t *testing.T) {
	p, err := NewPool(0, 1, newFake)
	require.NoError(t, err)
	defer p.Dispose()

	w, err := p.Acquire(context.Background())
	require.NoError(t, err)
	defer p.Release(w)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = p.Acquire(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPoolShrinkToMin(t *testing.T) {
	p, err := NewPool(1, 4, newFake)
	require.NoError(t, err)
	defer p.Dispose()
	p.IdleTimeout = 30 * time.Millisecond

	var ws []*Worker[*fakeResource]
	for i := 0; i < 3; i++ {
		w, err := p.Acquire(context.Background())
		require.NoError(t, err)
		ws = append(ws, w)
	}
	for _, w := range ws {
		p.Release(w)
	}

	total, _ := p.Stats()
	assert.Equal(t, 3, total)

	// 静默超时后收缩回min
	assert.Eventually(t, func() bool {
		total, idle := p.Stats()
		return total == 1 && idle == 1
	}, time.Second, 10*time.Millisecond)
}

func TestPoolShrinkCancelledByAcquire(t *testing.T) {
	p, err := NewPool(0, 2, newFake)
	require.NoError(t, err)
	defer p.Dispose()
	p.IdleTimeout = 50 * time.Millisecond

	w, err := p.Acquire(context.Background())
	require.NoError(t, err)
	p.Release(w)

	// 收缩前再次取用，定时器被取消
	w, err = p.Acquire(context.Background())
	require.NoError(t, err)
	time.Sleep(80 * time.Millisecond)
	total, _ := p.Stats()
	assert.Equal(t, 1, total)
	p.Release(w)
}

func TestPoolDispose(t *testing.T) {
	p, err := NewPool(2, 4, newFake)
	require.NoError(t, err)

	w, err := p.Acquire(context.Background())
	require.NoError(t, err)

	p.Dispose()
	total, idle := p.Stats()
	assert.Equal(t, 1, total) // 只剩检出中的一个
	assert.Equal(t, 0, idle)

	// 销毁后归还即停止
	p.Release(w)
	total, _ = p.Stats()
	assert.Equal(t, 0, total)
}

func TestPoolInvariants(t *testing.T) {
	p, err := NewPool(1, 3, newFake)
	require.NoError(t, err)
	defer p.Dispose()

	for i := 0; i < 20; i++ {
		w, err := p.Acquire(context.Background())
		require.NoError(t, err)
		total, idle := p.Stats()
		assert.GreaterOrEqual(t, total, 1)
		assert.LessOrEqual(t, total, 3)
		assert.LessOrEqual(t, idle, total)
		p.Release(w)
	}
}
