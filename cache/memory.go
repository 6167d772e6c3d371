// Package cache 渲染输出缓存：内存LRU加可选的SQLite持久层
package cache

import (
	"container/list"
	"sync"
)

// memoryItem 内存缓存项
type memoryItem struct {
	key   string
	entry *Entry
	size  int64
}

// Memory 按字节数封顶的LRU缓存
type Memory struct {
	mu       sync.RWMutex
	items    map[string]*list.Element
	order    *list.List
	size     int64
	maxBytes int64
}

// NewMemory 创建内存缓存，maxBytes<=0时禁用
func NewMemory(maxBytes int64) *Memory {
	return &Memory{
		items:    make(map[string]*list.Element),
		order:    list.New(),
		maxBytes: maxBytes,
	}
}

// Get 命中时将条目提到队首
func (m *Memory) Get(key string) (*Entry, bool) {
	if m.maxBytes <= 0 {
		return nil, false
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	el, ok := m.items[key]
	if !ok {
		return nil, false
	}
	m.order.MoveToFront(el)
	return el.Value.(*memoryItem).entry, true
}

// Set 写入并在超限时从队尾逐出
func (m *Memory) Set(key string, entry *Entry) {
	if m.maxBytes <= 0 {
		return
	}
	size := int64(len(entry.Data))
	if size > m.maxBytes {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if el, ok := m.items[key]; ok {
		old := el.Value.(*memoryItem)
		m.size += size - old.size
		old.entry = entry
		old.size = size
		m.order.MoveToFront(el)
	} else {
		m.items[key] = m.order.PushFront(&memoryItem{key: key, entry: entry, size: size})
		m.size += size
	}

	for m.size > m.maxBytes {
		m.evictOldest()
	}
}

// evictOldest 删除最久未使用的项，调用方持有mu
func (m *Memory) evictOldest() {
	el := m.order.Back()
	if el == nil {
		return
	}
	item := el.Value.(*memoryItem)
	m.order.Remove(el)
	delete(m.items, item.key)
	m.size -= item.size
}

// Clear 清空缓存
func (m *Memory) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = make(map[string]*list.Element)
	m.order = list.New()
	m.size = 0
}

// Size 当前占用字节数与条目数
func (m *Memory) Size() (bytes int64, count int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.size, len(m.items)
}
