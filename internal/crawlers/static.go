package crawlers

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/MirrorCraft/sitemirror/internal/models"
	"github.com/MirrorCraft/sitemirror/internal/utils"
	"github.com/andybalholm/brotli"
	"github.com/gocolly/colly/v2"
)

// StaticCrawler 静态镜像爬取器(使用Colly)
// 不渲染页面,直接抓取HTML并从标记语言中提取资源引用,
// 适用于不依赖脚本渲染的站点
type StaticCrawler struct {
	collector *colly.Collector
	client    *http.Client

	config   models.CrawlConfig
	frontier *Frontier
	capture  *AssetCapture
	pages    *PageStore

	processed   int32
	failedPages int32
}

// NewStaticCrawler 创建静态爬取器
func NewStaticCrawler(config models.CrawlConfig, frontier *Frontier, capture *AssetCapture, pages *PageStore) *StaticCrawler {
	// 跳过证书验证,允许访问自签名、过期或主机名不匹配的HTTPS站点
	httpClient := &http.Client{
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: true,
			},
		},
		Timeout: time.Duration(config.NavTimeout) * time.Second,
	}

	// 不使用colly.AllowedDomains: 精确匹配会产生Forbidden误报,
	// 范围判定统一走Frontier.Allowed
	c := colly.NewCollector(
		colly.Async(true),
	)
	c.SetClient(httpClient)
	c.SetRequestTimeout(time.Duration(config.NavTimeout) * time.Second)

	parallelism := config.Concurrency
	if parallelism < 1 {
		parallelism = 1
	}
	if err := c.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: parallelism,
	}); err != nil {
		utils.Warnf("设置并发限制失败: %v", err)
	}

	sc := &StaticCrawler{
		collector: c,
		client:    httpClient,
		config:    config,
		frontier:  frontier,
		capture:   capture,
		pages:     pages,
	}

	sc.setupCallbacks()
	return sc
}

// setupCallbacks 设置Colly回调
func (sc *StaticCrawler) setupCallbacks() {
	// 访问前: 范围检查和预算检查
	sc.collector.OnRequest(func(r *colly.Request) {
		if sc.frontier.BudgetReached() {
			r.Abort()
			return
		}
		if err := sc.frontier.Allowed(r.URL.String()); err != nil {
			utils.Debugf("拒绝请求 [%s]: %v", r.URL, err)
			r.Abort()
			return
		}
		utils.Debugf("访问: %s", r.URL)
	})

	sc.collector.OnResponse(func(r *colly.Response) {
		contentType := r.Headers.Get("Content-Type")
		if !strings.Contains(strings.ToLower(contentType), "text/html") {
			return
		}

		body := r.Body
		if encoding := r.Headers.Get("Content-Encoding"); encoding != "" {
			decompressed, err := decompressResponse(encoding, r.Body)
			if err != nil {
				utils.Warnf("解压响应失败 [%s] (编码=%s): %v", r.Request.URL, encoding, err)
			} else {
				body = decompressed
			}
		}

		if err := sc.processPage(r, string(body)); err != nil {
			utils.Warnf("页面处理失败 [%s]: %v", r.Request.URL, err)
			atomic.AddInt32(&sc.failedPages, 1)
		}
	})

	sc.collector.OnError(func(r *colly.Response, err error) {
		// 范围检查导致的Abort不算失败
		if strings.Contains(err.Error(), "abort") {
			return
		}
		utils.Errorf("爬取错误 [%s]: %v", r.Request.URL, err)
		atomic.AddInt32(&sc.failedPages, 1)
	})
}

// Crawl 开始静态镜像遍历
func (sc *StaticCrawler) Crawl() error {
	startTime := time.Now()

	utils.Infof("🔍 静态镜像模式启动")
	utils.Infof("目标站点: %s", sc.frontier.Host())
	utils.Infof("页面预算: %d", sc.config.MaxPages)

	if err := sc.collector.Visit(sc.frontier.seed.String()); err != nil {
		return fmt.Errorf("访问种子URL失败: %w", err)
	}

	sc.collector.Wait()

	duration := time.Since(startTime)
	utils.Infof("✅ 静态镜像完成")
	utils.Infof("访问页面数: %d", sc.frontier.VisitedCount())
	utils.Infof("保存页面数: %d", sc.pages.SavedCount())
	utils.Infof("失败页面数: %d", sc.FailedPages())
	utils.Infof("总耗时: %.2f秒", duration.Seconds())

	return nil
}

// processPage 处理单个HTML响应
// 资源抓取在页面改写前同步完成,保证改写时引用的文件已落盘
func (sc *StaticCrawler) processPage(r *colly.Response, markup string) error {
	rawURL := r.Request.URL.String()

	// 访问标记和预算检查在同一临界区内完成
	if !sc.frontier.MarkVisited(rawURL) {
		return nil
	}

	pageURL, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("解析页面URL失败: %w", err)
	}

	images, stylesheets, anchors, err := ExtractReferences(markup, pageURL)
	if err != nil {
		return err
	}

	// 同步抓取资源(单个资源失败只记录,不影响页面)
	for _, assetURL := range images {
		sc.fetchAsset(assetURL)
	}
	for _, assetURL := range stylesheets {
		sc.fetchAsset(assetURL)
	}

	rewritten, err := RewriteDocument(markup, pageURL, sc.frontier.Host())
	if err != nil {
		return err
	}

	// 发现新链接: 范围规则与浏览器模式一致
	linkCount := 0
	for _, link := range anchors {
		resolved, parseErr := url.Parse(link)
		if parseErr != nil {
			continue
		}
		resolved.Fragment = ""
		target := resolved.String()

		if scopeErr := sc.frontier.Allowed(target); scopeErr != nil {
			continue
		}
		if sc.frontier.IsVisited(target) {
			continue
		}
		linkCount++

		if visitErr := r.Request.Visit(target); visitErr != nil {
			if !strings.Contains(visitErr.Error(), "already visited") {
				utils.Debugf("访问链接失败 [%s]: %v", target, visitErr)
			}
		}
	}

	if _, err := sc.pages.SavePage(pageURL, rewritten, r.Request.Depth, linkCount); err != nil {
		return err
	}

	sc.maybePause()
	return nil
}

// fetchAsset 抓取并持久化单个资源
func (sc *StaticCrawler) fetchAsset(assetURL string) {
	resp, err := sc.client.Get(assetURL)
	if err != nil {
		utils.Warnf("抓取资源失败 [%s]: %v", assetURL, err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		utils.Debugf("资源响应异常 [%s]: HTTP %d", assetURL, resp.StatusCode)
		return
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		utils.Warnf("读取资源内容失败 [%s]: %v", assetURL, err)
		return
	}

	if encoding := resp.Header.Get("Content-Encoding"); encoding != "" {
		decompressed, decompressErr := decompressResponse(encoding, body)
		if decompressErr != nil {
			utils.Warnf("解压资源失败 [%s]: %v", assetURL, decompressErr)
		} else {
			body = decompressed
		}
	}

	sc.capture.Save(assetURL, resp.Header.Get("Content-Type"), body)
}

// maybePause 每处理K个页面后暂停一段时间,降低对目标站点的压力
func (sc *StaticCrawler) maybePause() {
	if sc.config.PauseEvery <= 0 || sc.config.PauseSeconds <= 0 {
		return
	}

	n := atomic.AddInt32(&sc.processed, 1)
	if int(n)%sc.config.PauseEvery == 0 {
		utils.Infof("⏸️  已处理%d个页面,暂停%d秒", n, sc.config.PauseSeconds)
		time.Sleep(time.Duration(sc.config.PauseSeconds) * time.Second)
	}
}

// FailedPages 返回处理失败的页面数
func (sc *StaticCrawler) FailedPages() int {
	return int(atomic.LoadInt32(&sc.failedPages))
}

// decompressResponse 根据Content-Encoding头部解压响应体
// 支持 gzip, deflate, br (Brotli) 三种压缩格式
func decompressResponse(contentEncoding string, body []byte) ([]byte, error) {
	encoding := strings.ToLower(strings.TrimSpace(contentEncoding))

	switch encoding {
	case "gzip":
		reader, err := gzip.NewReader(bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("gzip解压失败: %w", err)
		}
		defer reader.Close()

		decompressed, err := io.ReadAll(reader)
		if err != nil {
			return nil, fmt.Errorf("gzip读取失败: %w", err)
		}
		return decompressed, nil

	case "deflate":
		reader := flate.NewReader(bytes.NewReader(body))
		defer reader.Close()

		decompressed, err := io.ReadAll(reader)
		if err != nil {
			return nil, fmt.Errorf("deflate读取失败: %w", err)
		}
		return decompressed, nil

	case "br":
		reader := brotli.NewReader(bytes.NewReader(body))
		decompressed, err := io.ReadAll(reader)
		if err != nil {
			return nil, fmt.Errorf("brotli读取失败: %w", err)
		}
		return decompressed, nil

	case "":
		return body, nil

	default:
		// 未知编码,返回原始内容
		utils.Warnf("未知的Content-Encoding: %s", contentEncoding)
		return body, nil
	}
}
