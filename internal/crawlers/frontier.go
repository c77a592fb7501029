package crawlers

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"github.com/MirrorCraft/sitemirror/internal/models"
)

// Frontier 爬取边界管理器
// 职责: 维护待访问URL队列和已访问集合,FIFO出队保证广度优先顺序,
// 并把遍历范围限制在种子URL的站点内
//
// 不变式:
//   - 每个URL最多标记一次visited,visited集合只增不减
//   - 已访问或已在队列中的URL不会重复入队
//   - visited集合大小不超过页面预算
//   - 入队时visited+queued不超过页面预算,通道缓冲永不写满
type Frontier struct {
	// 待处理URL队列
	pending chan models.URLItem

	// 已访问URL集合
	visited map[string]bool

	// 已入队但尚未出队的URL集合(防止队内重复)
	queued map[string]bool

	// 保护visited/queued的锁
	// 并发模式下"检查后标记"必须是临界区,不能依赖调度巧合
	mu sync.Mutex

	// 种子URL(遍历起点)
	seed *url.URL

	// 目标主机(同站范围判定)
	host string

	// 页面预算
	maxPages int

	// 队列是否已关闭
	closed bool
}

// NewFrontier 创建边界实例
func NewFrontier(seed *url.URL, maxPages int) *Frontier {
	if maxPages < 1 {
		maxPages = 1
	}
	return &Frontier{
		// 缓冲容量等于页面预算: 配合Offer的可用队列上限,发送永不阻塞
		pending:  make(chan models.URLItem, maxPages),
		visited:  make(map[string]bool),
		queued:   make(map[string]bool),
		seed:     seed,
		host:     seed.Host,
		maxPages: maxPages,
	}
}

// Seed 把种子URL放入队列
func (f *Frontier) Seed() error {
	return f.Offer(f.seed.String(), 0, "")
}

// Allowed 检查URL是否在遍历范围内(不入队)
// 静态模式用它做范围判定,范围规则与Offer完全一致
func (f *Frontier) Allowed(rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("URL格式无效: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("不支持的协议: %s", parsed.Scheme)
	}
	if parsed.Host != f.host {
		return fmt.Errorf("跨站链接已过滤: %s (目标主机: %s)", parsed.Host, f.host)
	}
	return nil
}

// Offer 尝试把URL加入待访问队列
// 拒绝条件: 队列已关闭、URL不可解析、非HTTP协议、跨站、已访问、
// 已在队列中、剩余预算已被队列占满
func (f *Frontier) Offer(rawURL string, depth int, sourceURL string) error {
	if err := f.Allowed(rawURL); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return fmt.Errorf("队列已关闭")
	}
	if f.visited[rawURL] {
		return fmt.Errorf("URL已访问: %s", rawURL)
	}
	if f.queued[rawURL] {
		return fmt.Errorf("URL已在队列中: %s", rawURL)
	}
	// 可用队列上限: 超出剩余预算的URL永远不会被访问,直接拒绝
	// 同时保证缓冲占用不超过容量
	if len(f.visited)+len(f.queued) >= f.maxPages {
		return fmt.Errorf("页面预算已被队列占满: %s", rawURL)
	}
	f.queued[rawURL] = true

	// 发送与closed检查在同一临界区内,不会与Close竞争
	f.pending <- models.URLItem{
		URL:       rawURL,
		Depth:     depth,
		SourceURL: sourceURL,
	}

	return nil
}

// Next 从队列中取出下一个待访问URL
// 阻塞等待,支持context取消;队列关闭后返回ok=false
func (f *Frontier) Next(ctx context.Context) (models.URLItem, bool) {
	select {
	case <-ctx.Done():
		return models.URLItem{}, false
	case item, ok := <-f.pending:
		if !ok {
			return models.URLItem{}, false
		}
		f.mu.Lock()
		delete(f.queued, item.URL)
		f.mu.Unlock()
		return item, true
	}
}

// MarkVisited 标记URL为已访问
// 返回是否为首次访问;预算已满时总是返回false
// 检查和标记在同一临界区内完成
func (f *Frontier) MarkVisited(rawURL string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.visited[rawURL] {
		return false
	}
	if len(f.visited) >= f.maxPages {
		return false
	}
	f.visited[rawURL] = true
	return true
}

// IsVisited 检查URL是否已访问
func (f *Frontier) IsVisited(rawURL string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.visited[rawURL]
}

// VisitedCount 返回已访问URL数量
func (f *Frontier) VisitedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.visited)
}

// BudgetReached 检查页面预算是否已用尽
func (f *Frontier) BudgetReached() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.visited) >= f.maxPages
}

// PendingCount 返回当前待处理URL数量
func (f *Frontier) PendingCount() int {
	return len(f.pending)
}

// Host 返回同站范围的目标主机
func (f *Frontier) Host() string {
	return f.host
}

// Close 关闭队列
// 关闭后Offer返回错误,Next在队列排空后返回ok=false
func (f *Frontier) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.closed {
		close(f.pending)
		f.closed = true
	}
}
