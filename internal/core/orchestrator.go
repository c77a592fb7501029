package core

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/MirrorCraft/sitemirror/internal/crawlers"
	"github.com/MirrorCraft/sitemirror/internal/models"
	"github.com/MirrorCraft/sitemirror/internal/utils"
)

// Mirror 镜像任务协调器
// 执行流程:
//  1. 创建输出目录结构 (mirrors/<name>/, images/, css/)
//  2. 根据模式执行遍历 (browser/static)
//  3. 合并统计信息
//  4. 生成镜像清单
//  5. 打包归档 (可选,打包失败视为任务失败)
type Mirror struct {
	config  *Config
	seedURL *url.URL
	mode    models.MirrorMode

	// 镜像名称(输出目录名和归档名)
	name      string
	outputDir string

	runID string

	frontier *crawlers.Frontier
	capture  *crawlers.AssetCapture
	pages    *crawlers.PageStore

	browserCrawler *crawlers.BrowserCrawler
	staticCrawler  *crawlers.StaticCrawler

	stats models.MirrorStats
}

// NewMirror 创建镜像任务
// alias为空时使用种子URL的主机名作为镜像名称
func NewMirror(seedRawURL string, mode string, alias string, config *Config) (*Mirror, error) {
	if err := models.ValidateURL(seedRawURL); err != nil {
		return nil, fmt.Errorf("种子URL无效: %w", err)
	}
	if !models.ValidMode(mode) {
		return nil, fmt.Errorf("无效的镜像模式: %s (可选: browser, static)", mode)
	}
	if err := config.Crawl.Validate(); err != nil {
		return nil, fmt.Errorf("爬取配置无效: %w", err)
	}

	seedURL, err := url.Parse(seedRawURL)
	if err != nil {
		return nil, fmt.Errorf("解析种子URL失败: %w", err)
	}

	name := alias
	if name == "" {
		name = seedURL.Host
	}

	return &Mirror{
		config:    config,
		seedURL:   seedURL,
		mode:      models.MirrorMode(mode),
		name:      name,
		outputDir: filepath.Join(config.Output.BaseDir, name),
		runID:     models.NewID(),
	}, nil
}

// Run 执行镜像任务
func (m *Mirror) Run() error {
	startTime := time.Now()

	utils.Infof("🚀 开始镜像任务")
	utils.Infof("种子URL: %s", m.seedURL)
	utils.Infof("目标站点: %s", m.seedURL.Host)
	utils.Infof("镜像模式: %s", m.mode)
	utils.Infof("输出目录: %s", m.outputDir)

	if err := m.setupOutputDirectories(); err != nil {
		return fmt.Errorf("创建输出目录失败: %w", err)
	}

	m.frontier = crawlers.NewFrontier(m.seedURL, m.config.Crawl.MaxPages)
	m.capture = crawlers.NewAssetCapture(m.outputDir)
	m.pages = crawlers.NewPageStore(m.outputDir)

	switch m.mode {
	case models.ModeBrowser:
		if err := m.runBrowserMirror(); err != nil {
			return err
		}
	case models.ModeStatic:
		if err := m.runStaticMirror(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("无效的镜像模式: %s", m.mode)
	}

	m.mergeStats()
	m.stats.Duration = time.Since(startTime).Seconds()

	if err := m.writeManifest(); err != nil {
		utils.Warnf("生成镜像清单失败: %v", err)
	}

	// 打包失败视为任务失败: 归档是镜像任务的交付物
	if m.config.Output.Archive {
		archivePath := filepath.Join(m.config.Output.BaseDir, ArchiveName(m.outputDir))
		packager := NewPackager(m.outputDir)
		if err := packager.Compress(archivePath); err != nil {
			return fmt.Errorf("打包镜像失败: %w", err)
		}
	}

	utils.Infof("✅ 镜像任务完成")
	utils.Infof("访问页面数: %d", m.stats.VisitedPages)
	utils.Infof("保存页面数: %d", m.stats.SavedPages)
	utils.Infof("捕获图片数: %d", m.stats.Images)
	utils.Infof("捕获样式表数: %d", m.stats.Stylesheets)
	utils.Infof("总耗时: %.2f秒", m.stats.Duration)

	return nil
}

// Stop 中断镜像任务
// 已落盘的页面和资源保持原样,任务在当前页面处理完后结束
func (m *Mirror) Stop() {
	utils.Warnf("收到中断信号,正在停止镜像任务")
	if m.browserCrawler != nil {
		m.browserCrawler.Stop()
	}
	if m.frontier != nil {
		m.frontier.Close()
	}
}

// setupOutputDirectories 创建输出目录结构
func (m *Mirror) setupOutputDirectories() error {
	dirs := []string{
		m.outputDir,
		filepath.Join(m.outputDir, crawlers.ImagesDir),
		filepath.Join(m.outputDir, crawlers.CSSDir),
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("创建目录失败 [%s]: %w", dir, err)
		}
		utils.Debugf("创建目录: %s", dir)
	}

	utils.Infof("✅ 输出目录结构创建完成: %s", m.outputDir)
	return nil
}

// runBrowserMirror 执行浏览器模式镜像
func (m *Mirror) runBrowserMirror() error {
	factory, err := crawlers.NewRodSessionFactory(m.config.Crawl, m.capture)
	if err != nil {
		return fmt.Errorf("初始化浏览器失败: %w", err)
	}
	defer func() {
		if closeErr := factory.Close(); closeErr != nil {
			utils.Warnf("关闭浏览器失败: %v", closeErr)
		}
	}()

	m.browserCrawler = crawlers.NewBrowserCrawler(m.config.Crawl, m.frontier, m.capture, m.pages, factory)
	if err := m.browserCrawler.Crawl(); err != nil {
		return fmt.Errorf("浏览器镜像失败: %w", err)
	}
	return nil
}

// runStaticMirror 执行静态模式镜像
func (m *Mirror) runStaticMirror() error {
	m.staticCrawler = crawlers.NewStaticCrawler(m.config.Crawl, m.frontier, m.capture, m.pages)
	if err := m.staticCrawler.Crawl(); err != nil {
		return fmt.Errorf("静态镜像失败: %w", err)
	}
	return nil
}

// mergeStats 汇总各组件的统计信息
func (m *Mirror) mergeStats() {
	m.stats.VisitedPages = m.frontier.VisitedCount()
	m.stats.SavedPages = m.pages.SavedCount()
	m.stats.TotalSize = m.pages.TotalSize()
	m.stats.FailedAssets = m.capture.FailedCount()

	if m.browserCrawler != nil {
		m.stats.FailedPages = m.browserCrawler.FailedPages()
	}
	if m.staticCrawler != nil {
		m.stats.FailedPages = m.staticCrawler.FailedPages()
	}

	for _, record := range m.capture.Records() {
		switch record.Kind {
		case models.AssetImage:
			m.stats.Images++
		case models.AssetStylesheet:
			m.stats.Stylesheets++
		}
		m.stats.TotalSize += record.Size
	}
}

// writeManifest 生成镜像清单
func (m *Mirror) writeManifest() error {
	manifest := &utils.MirrorManifest{
		RunID:       m.runID,
		SeedURL:     m.seedURL.String(),
		Host:        m.seedURL.Host,
		Mode:        string(m.mode),
		GeneratedAt: time.Now(),
		Stats:       m.stats,
		Pages:       m.pages.Records(),
		Assets:      m.capture.Records(),
		Config:      m.config.Crawl,
	}

	reporter := utils.NewReporter(m.outputDir)
	return reporter.WriteManifest(manifest)
}

// GetStats 获取统计信息
func (m *Mirror) GetStats() models.MirrorStats {
	return m.stats
}

// OutputDir 获取镜像输出目录
func (m *Mirror) OutputDir() string {
	return m.outputDir
}
