package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"lecture-sync/config"
	pkgredis "lecture-sync/pkg/redis"
)

// ErrBookingBusy 在 lock_wait 内未能取得讲师排课锁
var ErrBookingBusy = errors.New("该讲师正在排课，请稍后重试")

// BookingLocker 按讲师串行化「查询-校验-写入」流程
// 不同讲师互不阻塞；同一讲师的请求排队执行
type BookingLocker interface {
	Lock(ctx context.Context, instructorID string) (unlock func(), err error)
}

// ErrLockBackendUnavailable 配置为 redis 排课锁但 Redis 不可用
var ErrLockBackendUnavailable = errors.New("排课锁配置为 redis，但 Redis 不可用")

// NewBookingLocker 按配置创建排课锁
// redis 后端用于多实例共享数据库的部署，此时进程内锁不足以保证串行，Redis 不可用即返回错误
func NewBookingLocker(cfg *config.SchedulerConfig, rdb *pkgredis.Client, logger *zap.Logger) (BookingLocker, error) {
	local := newMemoryLocker(cfg.LockWait)
	if cfg.LockBackend != config.LockBackendRedis {
		return local, nil
	}
	if rdb == nil {
		return nil, ErrLockBackendUnavailable
	}
	return newRedisLocker(local, rdb, cfg.LockTTL, cfg.LockWait, logger), nil
}

func bookingLockKey(instructorID string) string {
	return "booking:instructor:" + instructorID
}

// ── 进程内锁 ──

type lockEntry struct {
	sem  chan struct{}
	refs int
}

// memoryLocker 引用计数的按键互斥锁，空闲条目及时回收
type memoryLocker struct {
	mu      sync.Mutex
	entries map[string]*lockEntry
	wait    time.Duration
}

func newMemoryLocker(wait time.Duration) *memoryLocker {
	return &memoryLocker{
		entries: make(map[string]*lockEntry),
		wait:    wait,
	}
}

func (l *memoryLocker) Lock(ctx context.Context, instructorID string) (func(), error) {
	key := bookingLockKey(instructorID)

	l.mu.Lock()
	e, ok := l.entries[key]
	if !ok {
		e = &lockEntry{sem: make(chan struct{}, 1)}
		l.entries[key] = e
	}
	e.refs++
	l.mu.Unlock()

	waitCtx := ctx
	if l.wait > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, l.wait)
		defer cancel()
	}

	select {
	case e.sem <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() {
				<-e.sem
				l.release(key, e)
			})
		}, nil
	case <-waitCtx.Done():
		l.release(key, e)
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, ErrBookingBusy
	}
}

func (l *memoryLocker) release(key string, e *lockEntry) {
	l.mu.Lock()
	e.refs--
	if e.refs == 0 {
		delete(l.entries, key)
	}
	l.mu.Unlock()
}

// ── Redis 分布式锁 ──

// lockClient 由 pkg/redis.Client 实现
type lockClient interface {
	TryLock(ctx context.Context, key, token string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key, token string) error
}

const redisLockPollInterval = 25 * time.Millisecond

// redisLocker 多实例部署时使用：先取本地锁减少 Redis 轮询，再以 SET NX PX 取全局锁
// 锁不续期，持锁期间的存储操作由 lectureService.criticalContext 限制在 ttl 之内
type redisLocker struct {
	local  *memoryLocker
	client lockClient
	ttl    time.Duration
	wait   time.Duration
	logger *zap.Logger
}

func newRedisLocker(local *memoryLocker, client lockClient, ttl, wait time.Duration, logger *zap.Logger) *redisLocker {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &redisLocker{local: local, client: client, ttl: ttl, wait: wait, logger: logger}
}

func (l *redisLocker) Lock(ctx context.Context, instructorID string) (func(), error) {
	unlockLocal, err := l.local.Lock(ctx, instructorID)
	if err != nil {
		return nil, err
	}

	key := bookingLockKey(instructorID)
	token := uuid.New().String()

	var deadline <-chan time.Time
	if l.wait > 0 {
		timer := time.NewTimer(l.wait)
		defer timer.Stop()
		deadline = timer.C
	}

	for {
		ok, err := l.client.TryLock(ctx, key, token, l.ttl)
		if err != nil {
			// 本地锁无法约束其他实例，Redis 故障时拒绝进入临界区
			unlockLocal()
			l.logger.Error("获取 Redis 排课锁失败",
				zap.String("instructor_id", instructorID), zap.Error(err))
			return nil, storageFailure("获取排课锁", err)
		}
		if ok {
			return func() {
				releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				if err := l.client.Unlock(releaseCtx, key, token); err != nil {
					l.logger.Warn("释放 Redis 排课锁失败",
						zap.String("instructor_id", instructorID), zap.Error(err))
				}
				unlockLocal()
			}, nil
		}

		select {
		case <-ctx.Done():
			unlockLocal()
			return nil, ctx.Err()
		case <-deadline:
			unlockLocal()
			return nil, ErrBookingBusy
		case <-time.After(redisLockPollInterval):
		}
	}
}
