// Package worker 将本地资源绑定到专属OS线程的工作器与弹性池
//
// 渲染引擎与MBTiles文件源要求所有调用发生在创建它们的线程上，
// 请求方只能通过任务队列提交闭包，由工作线程串行执行。
package worker

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/google/uuid"
)

// Resource 工作线程独占的本地资源，销毁时按构造逆序释放
type Resource interface {
	Close()
}

// Job 在工作线程上执行的任务，返回后不得再持有资源
type Job[R Resource] func(r R) error

// Future 任务完成凭证
type Future struct {
	done chan struct{}
	err  error
}

// Done 完成通知通道
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Wait 等待任务完成或ctx取消
// ctx取消不会中断已派发的任务，只是丢弃其结果
func (f *Future) Wait(ctx context.Context) error {
	select {
	case <-f.done:
		return f.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Err 任务结束后的错误，完成前调用返回nil
func (f *Future) Err() error {
	select {
	case <-f.done:
		return f.err
	default:
		return nil
	}
}

type task[R Resource] struct {
	job Job[R]
	fut *Future
}

// Worker 绑定单个OS线程的工作器，一次只执行一个任务
// 任务队列无界，Submit从不阻塞
type Worker[R Resource] struct {
	ID string

	mu      sync.Mutex
	cond    *sync.Cond
	queue   []task[R]
	stopped bool
	done    chan struct{}
}

// New 创建工作器，资源在专属线程上构造，构造失败时返回错误
func New[R Resource](factory func() (R, error)) (*Worker[R], error) {
	w := &Worker[R]{
		ID:   uuid.NewString()[:8],
		done: make(chan struct{}),
	}
	w.cond = sync.NewCond(&w.mu)

	ready := make(chan error, 1)
	go w.run(factory, ready)
	if err := <-ready; err != nil {
		return nil, err
	}
	return w, nil
}

// run 工作线程主循环，Stop后排空剩余任务再退出
func (w *Worker[R]) run(factory func() (R, error), ready chan<- error) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(w.done)

	res, err := factory()
	ready <- err
	if err != nil {
		return
	}
	defer res.Close()

	for {
		w.mu.Lock()
		for len(w.queue) == 0 && !w.stopped {
			w.cond.Wait()
		}
		if len(w.queue) == 0 {
			w.mu.Unlock()
			return
		}
		t := w.queue[0]
		w.queue = w.queue[1:]
		w.mu.Unlock()

		execute(res, t)
	}
}

// execute 执行单个任务，panic被捕获并通过Future返回
func execute[R Resource](res R, t task[R]) {
	defer func() {
		if r := recover(); r != nil {
			t.fut.err = fmt.Errorf("worker job panic: %v", r)
		}
		close(t.fut.done)
	}()
	t.fut.err = t.job(res)
}

// Submit 提交任务，工作器已停止时返回已失败的Future
func (w *Worker[R]) Submit(job Job[R]) *Future {
	fut := &Future{done: make(chan struct{})}

	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		fut.err = fmt.Errorf("worker %s is stopped", w.ID)
		close(fut.done)
		return fut
	}
	w.queue = append(w.queue, task[R]{job: job, fut: fut})
	w.cond.Signal()
	w.mu.Unlock()
	return fut
}

// Stop 停止接收新任务，排空队列后销毁资源
func (w *Worker[R]) Stop() {
	w.mu.Lock()
	if !w.stopped {
		w.stopped = true
		w.cond.Signal()
	}
	w.mu.Unlock()
}

// Join 阻塞直到工作线程退出
func (w *Worker[R]) Join() {
	<-w.done
}
