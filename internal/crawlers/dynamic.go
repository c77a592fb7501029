package crawlers

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MirrorCraft/sitemirror/internal/models"
	"github.com/MirrorCraft/sitemirror/internal/utils"
	"github.com/schollz/progressbar/v3"
)

// BrowserCrawler 浏览器镜像爬取器
// 固定大小的worker池从边界队列拉取URL,每个页面使用独立的浏览器会话:
// 导航 -> 等待资源落盘 -> 提取 -> 改写 -> 持久化 -> 发现新链接
type BrowserCrawler struct {
	config   models.CrawlConfig
	frontier *Frontier
	capture  *AssetCapture
	pages    *PageStore
	factory  SessionFactory

	resourceMonitor *ResourceMonitor

	// 已处理页面计数(节流用)
	processed int32

	// 活跃worker计数(空闲检测用)
	activeWorkers int32

	failedPages int32

	ctx    context.Context
	cancel context.CancelFunc
}

// NewBrowserCrawler 创建浏览器爬取器
func NewBrowserCrawler(config models.CrawlConfig, frontier *Frontier, capture *AssetCapture, pages *PageStore, factory SessionFactory) *BrowserCrawler {
	ctx, cancel := context.WithCancel(context.Background())

	return &BrowserCrawler{
		config:   config,
		frontier: frontier,
		capture:  capture,
		pages:    pages,
		factory:  factory,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Crawl 执行镜像遍历,直到页面预算用尽或队列排空
func (bc *BrowserCrawler) Crawl() error {
	startTime := time.Now()

	utils.Infof("🌐 浏览器镜像模式启动")
	utils.Infof("目标站点: %s", bc.frontier.Host())
	utils.Infof("页面预算: %d", bc.config.MaxPages)
	utils.Infof("等待时间: %d秒", bc.config.WaitTime)

	if err := bc.frontier.Seed(); err != nil {
		return fmt.Errorf("种子URL入队失败: %w", err)
	}

	// 资源监控: worker数量受可用内存和CPU约束
	resourceConfig := ResourceMonitorConfig{
		SafetyReserveMemory: int64(bc.config.SafetyReserveMemory) * 1024 * 1024, // MB转字节
		SafetyThreshold:     int64(bc.config.SafetyThreshold) * 1024 * 1024,
		CPULoadThreshold:    bc.config.CPULoadThreshold,
		MaxSessionsLimit:    bc.config.MaxSessionsLimit,
	}
	bc.resourceMonitor = NewResourceMonitor(resourceConfig)
	bc.resourceMonitor.StartMonitoring(1 * time.Second)
	defer bc.resourceMonitor.StopMonitoring()

	maxWorkers := bc.config.Concurrency
	if limit := bc.resourceMonitor.CalculateMaxSessions(); limit < maxWorkers {
		maxWorkers = limit
	}
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	utils.Debugf("worker数量=%d (配置并发=%d, 资源上限=%d)",
		maxWorkers, bc.config.Concurrency, bc.resourceMonitor.CalculateMaxSessions())

	bar := utils.NewProgressBar(bc.config.MaxPages, "镜像页面")

	// 监控goroutine: 预算用尽或所有worker空闲且队列为空时关闭队列
	monitorCtx, monitorCancel := context.WithCancel(bc.ctx)
	defer monitorCancel()

	go func() {
		ticker := time.NewTicker(500 * time.Millisecond)
		defer ticker.Stop()

		for {
			select {
			case <-monitorCtx.Done():
				return
			case <-ticker.C:
				// 预算用尽后worker只出队跳过,队列自然排空,
				// 统一走空闲条件关闭,避免与入队竞争
				activeCount := atomic.LoadInt32(&bc.activeWorkers)
				pendingCount := bc.frontier.PendingCount()
				if activeCount == 0 && pendingCount == 0 {
					utils.Debugf("检测到所有worker空闲且队列为空,关闭队列")
					bc.frontier.Close()
					return
				}
			}
		}
	}()

	var wg sync.WaitGroup
	atomic.StoreInt32(&bc.activeWorkers, int32(maxWorkers))

	for i := 0; i < maxWorkers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			bc.worker(workerID, bar)
		}(i)
	}

	wg.Wait()
	_ = bar.Finish()

	duration := time.Since(startTime)
	utils.Infof("✅ 浏览器镜像完成")
	utils.Infof("访问页面数: %d", bc.frontier.VisitedCount())
	utils.Infof("保存页面数: %d", bc.pages.SavedCount())
	utils.Infof("失败页面数: %d", bc.FailedPages())
	utils.Infof("总耗时: %.2f秒", duration.Seconds())

	return nil
}

// worker 从队列拉取URL并逐页处理
func (bc *BrowserCrawler) worker(workerID int, bar *progressbar.ProgressBar) {
	for {
		// worker进入空闲状态(等待URL)
		atomic.AddInt32(&bc.activeWorkers, -1)

		item, ok := bc.frontier.Next(bc.ctx)
		if !ok {
			// 队列已关闭或context取消
			return
		}

		// worker进入工作状态
		atomic.AddInt32(&bc.activeWorkers, 1)

		saved, err := bc.processPage(item)
		if err != nil {
			utils.Warnf("Worker %d 页面处理失败 [%s]: %v", workerID, item.URL, err)
		} else if saved {
			// 预算内跳过和重复的页面不推进进度条
			_ = bar.Add(1)
		}

		bc.maybePause()
	}
}

// maybePause 每处理K个页面后暂停一段时间,降低对目标站点的压力
func (bc *BrowserCrawler) maybePause() {
	if bc.config.PauseEvery <= 0 || bc.config.PauseSeconds <= 0 {
		return
	}

	n := atomic.AddInt32(&bc.processed, 1)
	if int(n)%bc.config.PauseEvery == 0 {
		utils.Infof("⏸️  已处理%d个页面,暂停%d秒", n, bc.config.PauseSeconds)
		time.Sleep(time.Duration(bc.config.PauseSeconds) * time.Second)
	}
}

// processPage 处理单个页面
// 返回页面是否实际落盘: 预算/重复跳过的页面返回false且无错误
// 单页失败只计数,不影响其他页面和整体遍历
func (bc *BrowserCrawler) processPage(item models.URLItem) (saved bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			saved = false
			err = fmt.Errorf("页面处理panic: %v", r)
			utils.Errorf("捕获panic: URL=%s, 深度=%d, 错误=%v", item.URL, item.Depth, r)
			atomic.AddInt32(&bc.failedPages, 1)
		}
	}()

	// 访问标记和预算检查在同一临界区内完成
	if !bc.frontier.MarkVisited(item.URL) {
		return false, nil
	}

	pageURL, err := url.Parse(item.URL)
	if err != nil {
		atomic.AddInt32(&bc.failedPages, 1)
		return false, fmt.Errorf("解析页面URL失败: %w", err)
	}

	utils.Debugf("访问页面: %s (深度: %d)", item.URL, item.Depth)

	session, err := bc.factory.NewSession()
	if err != nil {
		atomic.AddInt32(&bc.failedPages, 1)
		return false, fmt.Errorf("创建会话失败: %w", err)
	}
	defer func() {
		if closeErr := session.Close(); closeErr != nil {
			utils.Warnf("关闭会话失败 [%s]: %v", item.URL, closeErr)
		}
	}()

	navCtx, navCancel := context.WithTimeout(bc.ctx, time.Duration(bc.config.NavTimeout)*time.Second)
	defer navCancel()

	if err := session.Navigate(navCtx, item.URL); err != nil {
		atomic.AddInt32(&bc.failedPages, 1)
		return false, err
	}

	// 改写前等待本次导航观察到的资源全部落盘
	session.AwaitAssets()

	doc, err := session.ExtractDocument()
	if err != nil {
		atomic.AddInt32(&bc.failedPages, 1)
		return false, err
	}

	rewritten, err := RewriteDocument(doc.Markup, pageURL, bc.frontier.Host())
	if err != nil {
		atomic.AddInt32(&bc.failedPages, 1)
		return false, err
	}

	// 发现新链接并入队(预算由MarkVisited强制,入队不消耗预算)
	linkCount := bc.offerAnchors(doc.AnchorHrefs, pageURL, item.Depth+1)

	if _, err := bc.pages.SavePage(pageURL, rewritten, item.Depth, linkCount); err != nil {
		atomic.AddInt32(&bc.failedPages, 1)
		return false, err
	}

	return true, nil
}

// offerAnchors 把页面内发现的锚点解析为绝对URL后尝试入队
// 返回成功入队的同站链接数
func (bc *BrowserCrawler) offerAnchors(hrefs []string, pageURL *url.URL, depth int) int {
	count := 0
	for _, href := range hrefs {
		ref, err := url.Parse(href)
		if err != nil {
			utils.Debugf("锚点不可解析,跳过: %s", href)
			continue
		}
		resolved := pageURL.ResolveReference(ref)
		// 片段不参与页面身份
		resolved.Fragment = ""

		if err := bc.frontier.Offer(resolved.String(), depth, pageURL.String()); err != nil {
			utils.Debugf("链接未入队 [%s]: %v", resolved, err)
			continue
		}
		count++
	}
	return count
}

// FailedPages 返回处理失败的页面数
func (bc *BrowserCrawler) FailedPages() int {
	return int(atomic.LoadInt32(&bc.failedPages))
}

// Stop 取消遍历
func (bc *BrowserCrawler) Stop() {
	bc.cancel()
	bc.frontier.Close()
}
