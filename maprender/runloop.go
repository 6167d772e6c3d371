// Package maprender 无头渲染引擎
//
// 每组(运行环、前端、地图)句柄由单个工作线程独占，
// 任务向运行环投递工作并驱动它，完成回调从内部停止循环。
package maprender

import (
	"sync"
)

// RunLoop 渲染线程的事件循环
type RunLoop struct {
	mu    sync.Mutex
	queue []func()
	wake  chan struct{}
	stop  bool
}

// NewRunLoop 创建空循环
func NewRunLoop() *RunLoop {
	return &RunLoop{wake: make(chan struct{}, 1)}
}

// Post 投递任务，可从任意goroutine调用
func (l *RunLoop) Post(fn func()) {
	l.mu.Lock()
	l.queue = append(l.queue, fn)
	l.mu.Unlock()
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Run 在调用线程上泵出任务，直到某个任务调用Stop
func (l *RunLoop) Run() {
	for {
		l.mu.Lock()
		if l.stop {
			l.stop = false
			l.mu.Unlock()
			return
		}
		var fn func()
		if len(l.queue) > 0 {
			fn = l.queue[0]
			l.queue = l.queue[1:]
		}
		l.mu.Unlock()

		if fn != nil {
			fn()
			continue
		}
		<-l.wake
	}
}

// Stop 从任务内部停止循环
func (l *RunLoop) Stop() {
	l.mu.Lock()
	l.stop = true
	l.mu.Unlock()
	select {
	case l.wake <- struct{}{}:
	default:
	}
}
