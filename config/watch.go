package config

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ReloadFunc 收到新配置时的回调。回调方自行决定哪些参数可以热应用；
// 账户限额与时段窗口等硬参数只在重启时生效。
type ReloadFunc func(cfg AppConfig)

// Reloader 基于 fsnotify 监听配置文件变更并触发重载。
// 冷却时间内的连续写入只触发一次。
type Reloader struct {
	path     string
	cooldown time.Duration
	watcher  *fsnotify.Watcher

	mu         sync.Mutex
	lastReload time.Time

	onReload ReloadFunc
	started  bool
	done     chan struct{}
}

func NewReloader(path string, cooldown time.Duration, onReload ReloadFunc) (*Reloader, error) {
	if cooldown <= 0 {
		cooldown = 5 * time.Second
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	return &Reloader{
		path:     path,
		cooldown: cooldown,
		watcher:  watcher,
		onReload: onReload,
		done:     make(chan struct{}),
	}, nil
}

// Start 开始监听，直到 ctx 取消。
func (r *Reloader) Start(ctx context.Context) error {
	if err := r.watcher.Add(r.path); err != nil {
		return fmt.Errorf("watch %s: %w", r.path, err)
	}
	r.started = true
	go r.loop(ctx)
	return nil
}

// Close 停止监听并等待循环退出。
func (r *Reloader) Close() error {
	err := r.watcher.Close()
	if r.started {
		<-r.done
	}
	return err
}

// LastReload 最近一次成功重载的时间。
func (r *Reloader) LastReload() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastReload
}

func (r *Reloader) loop(ctx context.Context) {
	defer close(r.done)
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-r.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				r.handleChange()
			}
		case _, ok := <-r.watcher.Errors:
			if !ok {
				return
			}
			// 监听错误不致命，继续等待下一个事件
		}
	}
}

func (r *Reloader) handleChange() {
	r.mu.Lock()
	if time.Since(r.lastReload) < r.cooldown {
		r.mu.Unlock()
		return
	}
	r.lastReload = time.Now()
	r.mu.Unlock()

	cfg, err := LoadWithEnvOverrides(r.path)
	if err != nil {
		// 坏配置保持现状，等待下一次写入
		return
	}
	if r.onReload != nil {
		r.onReload(cfg)
	}
}
