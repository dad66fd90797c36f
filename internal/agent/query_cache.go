package agent

import (
	"container/list"
	"sync"
)

// QueryCache is a small LRU cache of successful query results, keyed by the
// raw natural-language query.
type QueryCache struct {
	cache   map[string]*list.Element
	order   *list.List
	mutex   sync.Mutex
	maxSize int
}

type cacheEntry struct {
	query  string
	result *QueryResult
}

func NewQueryCache(maxSize int) *QueryCache {
	return &QueryCache{
		cache:   make(map[string]*list.Element),
		order:   list.New(),
		maxSize: maxSize,
	}
}

func (qc *QueryCache) Get(query string) *QueryResult {
	qc.mutex.Lock()
	defer qc.mutex.Unlock()

	if elem, exists := qc.cache[query]; exists {
		qc.order.MoveToFront(elem)
		return elem.Value.(*cacheEntry).result
	}
	return nil
}

func (qc *QueryCache) Set(query string, result *QueryResult) {
	qc.mutex.Lock()
	defer qc.mutex.Unlock()

	if elem, exists := qc.cache[query]; exists {
		elem.Value.(*cacheEntry).result = result
		qc.order.MoveToFront(elem)
		return
	}

	if len(qc.cache) >= qc.maxSize {
		qc.evictLRU()
	}

	qc.cache[query] = qc.order.PushFront(&cacheEntry{query: query, result: result})
}

func (qc *QueryCache) Len() int {
	qc.mutex.Lock()
	defer qc.mutex.Unlock()
	return len(qc.cache)
}

func (qc *QueryCache) evictLRU() {
	if oldest := qc.order.Back(); oldest != nil {
		qc.order.Remove(oldest)
		delete(qc.cache, oldest.Value.(*cacheEntry).query)
	}
}
