package planner

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/corvid-graph/corvid/pkg/ast"
)

// PlanCache memoizes Plan by a caller-supplied cache key (pkg/engine uses
// the whitespace-normalized query text), avoiding re-lowering a query executed
// repeatedly with different parameter values. Grounded on the teacher's
// pkg/cache/query_cache.go concept, rebuilt on a real LRU library instead of
// its hand-rolled container/list implementation.
type PlanCache struct {
	lru *lru.Cache[string, []Operator]
}

// NewPlanCache builds a cache holding up to size plans. A size of 0 disables
// caching (Get always misses, Put is a no-op).
func NewPlanCache(size int) (*PlanCache, error) {
	if size <= 0 {
		return &PlanCache{}, nil
	}
	c, err := lru.New[string, []Operator](size)
	if err != nil {
		return nil, err
	}
	return &PlanCache{lru: c}, nil
}

func (c *PlanCache) Get(key string) ([]Operator, bool) {
	if c == nil || c.lru == nil {
		return nil, false
	}
	return c.lru.Get(key)
}

func (c *PlanCache) Put(key string, ops []Operator) {
	if c == nil || c.lru == nil {
		return
	}
	c.lru.Add(key, ops)
}

// PlanCached is Plan with memoization: on a cache hit it returns the stored
// operator list without re-lowering the AST.
func PlanCached(cache *PlanCache, key string, q *ast.Query) ([]Operator, error) {
	if ops, ok := cache.Get(key); ok {
		return ops, nil
	}
	ops, err := Plan(q)
	if err != nil {
		return nil, err
	}
	cache.Put(key, ops)
	return ops, nil
}
