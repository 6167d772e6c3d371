package worker

import (
	"context"
	"sync"
	"time"
)

// DefaultIdleTimeout 池静默后收缩回min的等待时间
const DefaultIdleTimeout = 30 * time.Second

// Pool 弹性工作器池，维持min~max个工作器
// 静默30秒且全部空闲后收缩到min
type Pool[R Resource] struct {
	factory func() (R, error)

	// idle作为并发集合，取用时不持有mu
	idle chan *Worker[R]

	mu          sync.Mutex
	min         int
	max         int
	total       int
	disposed    bool
	shrinkTimer *time.Timer

	IdleTimeout time.Duration
}

// NewPool 创建池并并行预建min个工作器
func NewPool[R Resource](min, max int, factory func() (R, error)) (*Pool[R], error) {
	if max < 1 {
		max = 1
	}
	if min < 0 {
		min = 0
	}
	if min > max {
		min = max
	}

	p := &Pool[R]{
		factory:     factory,
		idle:        make(chan *Worker[R], max),
		min:         min,
		max:         max,
		IdleTimeout: DefaultIdleTimeout,
	}

	var wg sync.WaitGroup
	errs := make(chan error, min)
	for i := 0; i < min; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w, err := New(factory)
			if err != nil {
				errs <- err
				return
			}
			p.mu.Lock()
			p.total++
			p.mu.Unlock()
			p.idle <- w
		}()
	}
	wg.Wait()
	close(errs)
	if err := <-errs; err != nil {
		p.Dispose()
		return nil, err
	}
	return p, nil
}

// Acquire 取出一个工作器，池满时阻塞等待释放
func (p *Pool[R]) Acquire(ctx context.Context) (*Worker[R], error) {
	p.mu.Lock()
	p.cancelShrink()

	select {
	case w := <-p.idle:
		p.mu.Unlock()
		return w, nil
	default:
	}

	if p.total < p.max {
		p.total++
		p.mu.Unlock()
		w, err := New(p.factory)
		if err != nil {
			p.mu.Lock()
			p.total--
			p.mu.Unlock()
			return nil, err
		}
		return w, nil
	}
	p.mu.Unlock()

	select {
	case w := <-p.idle:
		return w, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Release 归还工作器；池已销毁时直接停止该工作器
func (p *Pool[R]) Release(w *Worker[R]) {
	p.mu.Lock()
	if p.disposed {
		p.total--
		p.mu.Unlock()
		w.Stop()
		return
	}
	p.idle <- w
	if len(p.idle) == p.total && p.total > p.min {
		p.scheduleShrink()
	}
	p.mu.Unlock()
}

// scheduleShrink 调度收缩，调用方持有mu
func (p *Pool[R]) scheduleShrink() {
	p.cancelShrink()
	p.shrinkTimer = time.AfterFunc(p.IdleTimeout, p.shrink)
}

// cancelShrink 取消待执行的收缩，调用方持有mu
func (p *Pool[R]) cancelShrink() {
	if p.shrinkTimer != nil {
		p.shrinkTimer.Stop()
		p.shrinkTimer = nil
	}
}

// shrink 销毁空闲工作器直到total==min
func (p *Pool[R]) shrink() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.disposed || len(p.idle) != p.total {
		return
	}
	for p.total > p.min {
		select {
		case w := <-p.idle:
			p.total--
			w.Stop()
		default:
			return
		}
	}
}

// Dispose 销毁池，空闲工作器立即停止，使用中的在归还时停止
func (p *Pool[R]) Dispose() {
	p.mu.Lock()
	if p.disposed {
		p.mu.Unlock()
		return
	}
	p.disposed = true
	p.cancelShrink()

	for {
		select {
		case w := <-p.idle:
			p.total--
			w.Stop()
		default:
			p.mu.Unlock()
			return
		}
	}
}

// Stats 当前(total, idle)，用于日志与测试
func (p *Pool[R]) Stats() (total, idle int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.total, len(p.idle)
}
