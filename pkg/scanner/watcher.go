package scanner

import (
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher 监听曲库目录的文件变动，用延迟计时器合并密集事件后
// 触发一次重扫回调。同一目录的待定扫描会被新的事件重置。
type Watcher struct {
	watcher  *fsnotify.Watcher
	delay    time.Duration
	onChange func(root string)
	roots    map[string]bool

	pending      map[string]*time.Timer
	pendingMutex sync.Mutex // 保护 pending map

	logger *log.Logger
	done   chan struct{}
}

// NewWatcher 创建一个新的 Watcher，onChange 在事件安静 delay 后被调用
func NewWatcher(delay time.Duration, onChange func(root string), logger *log.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	return &Watcher{
		watcher:  fsw,
		delay:    delay,
		onChange: onChange,
		roots:    make(map[string]bool),
		pending:  make(map[string]*time.Timer),
		logger:   logger,
		done:     make(chan struct{}),
	}, nil
}

// Add 把一个曲库根目录加入监听
func (w *Watcher) Add(root string) error {
	if err := w.watcher.Add(root); err != nil {
		return fmt.Errorf("failed to add %s to watcher: %w", root, err)
	}
	w.roots[root] = true
	w.logger.Printf("  -> Watching library directory: %s", root)
	return nil
}

// Start 启动事件处理循环
func (w *Watcher) Start() {
	go func() {
		for {
			select {
			case event, ok := <-w.watcher.Events:
				if !ok {
					return
				}
				root := w.rootFor(event.Name)
				if root == "" {
					continue
				}
				if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
					w.triggerRescan(root)
				}
			case err, ok := <-w.watcher.Errors:
				if !ok {
					return
				}
				w.logger.Printf("Watcher error: %v", err)
			case <-w.done:
				return
			}
		}
	}()
}

// Close 停止监听并取消所有待定扫描
func (w *Watcher) Close() error {
	close(w.done)
	w.pendingMutex.Lock()
	for root, timer := range w.pending {
		timer.Stop()
		delete(w.pending, root)
	}
	w.pendingMutex.Unlock()
	return w.watcher.Close()
}

// triggerRescan 将一个根目录加入延迟扫描队列，已有待定任务时重置计时器
func (w *Watcher) triggerRescan(root string) {
	w.pendingMutex.Lock()
	defer w.pendingMutex.Unlock()

	if timer, ok := w.pending[root]; ok {
		timer.Stop()
	}
	w.pending[root] = time.AfterFunc(w.delay, func() {
		w.pendingMutex.Lock()
		delete(w.pending, root)
		w.pendingMutex.Unlock()
		w.onChange(root)
	})
	w.logger.Printf("Scheduled rescan for %s in %v", root, w.delay)
}

// rootFor 找到事件路径所属的被监听根目录。
// 前缀必须落在目录边界上，/music/ab 下的事件不属于根 /music/a。
func (w *Watcher) rootFor(path string) string {
	for root := range w.roots {
		if path == root || strings.HasPrefix(path, root+string(os.PathSeparator)) {
			return root
		}
	}
	return ""
}
