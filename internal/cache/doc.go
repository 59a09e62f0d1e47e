// Package cache provides a small generic LRU cache.
//
//	c := cache.New[string, []uint32](32)
//	code, err := c.GetOrCreate("Advect", compile)
//
// Cache is safe for concurrent use and must not be copied after creation.
package cache
