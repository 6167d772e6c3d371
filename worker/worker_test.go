package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeResource 测试用资源，记录关闭状态
type fakeResource struct {
	closed atomic.Bool
}

func (r *fakeResource) Close() {
	r.closed.Store(true)
}

func newFake() (*fakeResource, error) {
	return &fakeResource{}, nil
}

func TestWorkerSubmit(t *testing.T) {
	w, err := New(newFake)
	require.NoError(t, err)
	defer func() {
		w.Stop()
		w.Join()
	}()

	ran := false
	fut := w.Submit(func(r *fakeResource) error {
		ran = true
		return nil
	})
	require.NoError(t, fut.Wait(context.Background()))
	assert.True(t, ran)
}

func TestWorkerJobError(t *testing.T) {
	w, err := New(newFake)
	require.NoError(t, err)
	defer func() {
		w.Stop()
		w.Join()
	}()

	boom := errors.New("boom")
	fut := w.Submit(func(r *fakeResource) error { return boom })
	assert.ErrorIs(t, fut.Wait(context.Background()), boom)
}

func TestWorkerPanicCaptured(t *testing.T) {
	w, err := New(newFake)
	require.NoError(t, err)
	defer func() {
		w.Stop()
		w.Join()
	}()

	fut := w.Submit(func(r *fakeResource) error {
		panic("render exploded")
	})
	err = fut.Wait(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "render exploded")

	// panic后工作器仍可继续服务
	fut = w.Submit(func(r *fakeResource) error { return nil })
	assert.NoError(t, fut.Wait(context.Background()))
}

func TestWorkerSequentialExecution(t *testing.T) {
	w, err := New(newFake)
	require.NoError(t, err)
	defer func() {
		w.Stop()
		w.Join()
	}()

	var inFlight int32
	var maxInFlight int32
	var futs []*Future
	for i := 0; i < 16; i++ {
		futs = append(futs, w.Submit(func(r *fakeResource) error {
			n := atomic.AddInt32(&inFlight, 1)
			if n > atomic.LoadInt32(&maxInFlight) {
				atomic.StoreInt32(&maxInFlight, n)
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inFlight, -1)
			return nil
		}))
	}
	for _, f := range futs {
		require.NoError(t, f.Wait(context.Background()))
	}
	// 同一工作器任务串行执行
	assert.Equal(t, int32(1), maxInFlight)
}

func TestWorkerStopClosesResource(t *testing.T) {
	var res *fakeResource
	w, err := New(func() (*fakeResource, error) {
		res = &fakeResource{}
		return res, nil
	})
	require.NoError(t, err)

	w.Stop()
	w.Join()
	assert.True(t, res.closed.Load())

	// 停止后提交立即失败
	fut := w.Submit(func(r *fakeResource) error { return nil })
	assert.Error(t, fut.Wait(context.Background()))
}

func TestFutureWaitCancellation(t *testing.T) {
	w, err := New(newFake)
	require.NoError(t, err)
	defer func() {
		w.Stop()
		w.Join()
	}()

	block := make(chan struct{})
	fut := w.Submit(func(r *fakeResource) error {
		<-block
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, fut.Wait(ctx), context.DeadlineExceeded)

	close(block)
	assert.NoError(t, fut.Wait(context.Background()))
}

func TestWorkerFactoryError(t *testing.T) {
	_, err := New(func() (*fakeResource, error) {
		return nil, errors.New("no gpu")
	})
	assert.Error(t, err)
}

func TestWorkerQueueUnbounded(t *testing.T) {
	w, err := New(newFake)
	require.NoError(t, err)

	// 堵住工作线程后大量提交，Submit与Stop都不得阻塞
	block := make(chan struct{})
	first := w.Submit(func(r *fakeResource) error {
		<-block
		return nil
	})

	var futs []*Future
	for i := 0; i < 200; i++ {
		futs = append(futs, w.Submit(func(r *fakeResource) error { return nil }))
	}

	stopDone := make(chan struct{})
	go func() {
		w.Stop()
		close(stopDone)
	}()
	select {
	case <-stopDone:
	case <-time.After(time.Second):
		t.Fatal("Stop blocked behind queued submissions")
	}

	close(block)
	w.Join()

	// Stop排空队列，已入队任务全部完成
	require.NoError(t, first.Wait(context.Background()))
	for _, f := range futs {
		assert.NoError(t, f.Wait(context.Background()))
	}
}

func TestWorkerConcurrentSubmit(t *testing.T) {
	w, err := New(newFake)
	require.NoError(t, err)
	defer func() {
		w.Stop()
		w.Join()
	}()

	var wg sync.WaitGroup
	var count int32
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fut := w.Submit(func(r *fakeResource) error {
				atomic.AddInt32(&count, 1)
				return nil
			})
			fut.Wait(context.Background())
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(32), count)
}
