package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Cache 进程内缓存，基于 patrickmn/go-cache
// 用于课程列表缓存与 Redis 不可用时的限流计数
type Cache struct {
	c *gocache.Cache
}

// New 创建缓存，defaultExpiration 为默认过期时间
func New(defaultExpiration, cleanupInterval time.Duration) *Cache {
	return &Cache{c: gocache.New(defaultExpiration, cleanupInterval)}
}

// Get 读取缓存
func (c *Cache) Get(key string) (interface{}, bool) {
	return c.c.Get(key)
}

// Set 写入缓存，ttl 为 0 时使用默认过期时间
func (c *Cache) Set(key string, value interface{}, ttl time.Duration) {
	if ttl == 0 {
		ttl = gocache.DefaultExpiration
	}
	c.c.Set(key, value, ttl)
}

// Delete 删除单个键
func (c *Cache) Delete(key string) {
	c.c.Delete(key)
}

// Flush 清空全部缓存
func (c *Cache) Flush() {
	c.c.Flush()
}

// Incr 在固定窗口内自增计数并返回当前值
// 键不存在时以 window 为过期时间初始化为 1
func (c *Cache) Incr(key string, window time.Duration) int {
	if err := c.c.Add(key, 1, window); err == nil {
		return 1
	}
	n, err := c.c.IncrementInt(key, 1)
	if err != nil {
		// 计数键在 Add 与 Increment 之间过期
		c.c.Set(key, 1, window)
		return 1
	}
	return n
}
