package crawlers

import (
	"context"
	"encoding/base64"
	"fmt"
	"sync"
	"time"

	"github.com/MirrorCraft/sitemirror/internal/models"
	"github.com/MirrorCraft/sitemirror/internal/utils"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
)

// Document 从已加载页面提取的快照
// 引用列表取自原始属性值(未经浏览器解析为绝对URL)
type Document struct {
	Markup          string   // 渲染后的完整标记语言
	AnchorHrefs     []string // 所有a[href]的原始属性值
	ImageSrcs       []string // 所有img[src]的原始属性值
	StylesheetHrefs []string // 所有link[rel=stylesheet][href]的原始属性值
}

// Session 一次页面访问的能力接口
//
// 生命周期: Navigate -> AwaitAssets -> ExtractDocument -> Close
// Close在任何路径上都必须被调用,包括导航失败
type Session interface {
	// Navigate 导航到目标URL并等待页面加载完成
	Navigate(ctx context.Context, pageURL string) error

	// AwaitAssets 阻塞等待本次导航观察到的资源全部落盘
	// 页面改写和持久化必须发生在此调用返回之后
	AwaitAssets()

	// ExtractDocument 提取当前页面的标记语言和引用列表
	ExtractDocument() (*Document, error)

	// Close 释放会话占用的浏览器资源
	Close() error
}

// SessionFactory 会话工厂
// 浏览器实例的生命周期归工厂所有,会话按页面创建和销毁
type SessionFactory interface {
	NewSession() (Session, error)
	Close() error
}

// RodSessionFactory 基于Rod浏览器的会话工厂
type RodSessionFactory struct {
	browser *rod.Browser
	config  models.CrawlConfig
	capture *AssetCapture
}

// NewRodSessionFactory 启动浏览器并创建会话工厂
func NewRodSessionFactory(config models.CrawlConfig, capture *AssetCapture) (*RodSessionFactory, error) {
	l := launcher.New()

	if config.Headless {
		l = l.Headless(true)
	} else {
		l = l.Headless(false)
	}

	// 允许访问自签名、过期或主机名不匹配的HTTPS站点
	l = l.Set("ignore-certificate-errors")

	for _, flag := range config.BrowserFlags {
		l = l.Set(flags.Flag(flag))
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("启动浏览器失败: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("连接浏览器失败: %w", err)
	}

	utils.Debugf("浏览器已启动: %s", controlURL)

	return &RodSessionFactory{
		browser: browser,
		config:  config,
		capture: capture,
	}, nil
}

// NewSession 创建新的页面会话并安装网络拦截
func (f *RodSessionFactory) NewSession() (Session, error) {
	page, err := f.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("创建标签页失败: %w", err)
	}

	s := &rodSession{
		page:        page,
		config:      f.config,
		capture:     f.capture,
		outstanding: make(map[string]int),
		inflight:    make(map[proto.NetworkRequestID]string),
	}

	if err := s.setupIntercept(); err != nil {
		page.MustClose()
		return nil, fmt.Errorf("设置网络拦截失败: %w", err)
	}

	return s, nil
}

// Close 关闭浏览器
func (f *RodSessionFactory) Close() error {
	if f.browser != nil {
		if err := f.browser.Close(); err != nil {
			return fmt.Errorf("关闭浏览器失败: %w", err)
		}
		utils.Debugf("浏览器已关闭")
	}
	return nil
}

// rodSession 单个标签页上的会话实现
type rodSession struct {
	page    *rod.Page
	config  models.CrawlConfig
	capture *AssetCapture

	// 资源落盘屏障: 请求被拦截的同步时刻登记,
	// 响应处理完成、加载失败或发生重定向后清算
	pending     sync.WaitGroup
	mu          sync.Mutex
	outstanding map[string]int                    // 资源URL -> 未清算的请求数
	inflight    map[proto.NetworkRequestID]string // 请求ID -> URL(失败清算用)
}

// setupIntercept 安装请求过滤和响应监听
// 只放行文档、图片、样式表和字体请求,其余请求直接失败,
// 避免脚本和媒体拖慢导航
func (s *rodSession) setupIntercept() error {
	router := s.page.HijackRequests()

	err := router.Add("*", "", func(ctx *rod.Hijack) {
		switch ctx.Request.Type() {
		case proto.NetworkResourceTypeDocument,
			proto.NetworkResourceTypeFont:
			ctx.ContinueRequest(&proto.FetchContinueRequest{})
		case proto.NetworkResourceTypeImage,
			proto.NetworkResourceTypeStylesheet:
			// 拦截点与请求同步: 响应产生之前计数必定已经登记,
			// AwaitAssets据此保证改写发生在资源写入之后
			s.track(ctx.Request.URL().String())
			ctx.ContinueRequest(&proto.FetchContinueRequest{})
		default:
			ctx.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
		}
	})
	if err != nil {
		return err
	}

	// 监听请求生命周期: 响应完成时捕获并清算,
	// 加载失败和重定向也要清算,否则屏障会等待一个不会到来的响应
	go s.page.EachEvent(
		func(e *proto.NetworkRequestWillBeSent) {
			if e.RedirectResponse != nil {
				s.settle(e.RedirectResponse.URL)
			}
			s.mu.Lock()
			s.inflight[e.RequestID] = e.Request.URL
			s.mu.Unlock()
		},
		func(e *proto.NetworkLoadingFailed) {
			s.mu.Lock()
			failedURL := s.inflight[e.RequestID]
			delete(s.inflight, e.RequestID)
			s.mu.Unlock()
			if failedURL != "" {
				s.settle(failedURL)
			}
		},
		func(e *proto.NetworkResponseReceived) {
			s.mu.Lock()
			delete(s.inflight, e.RequestID)
			s.mu.Unlock()
			defer s.settle(e.Response.URL)

			if _, ok := Classify(e.Response.MIMEType); !ok {
				return
			}

			body, err := proto.NetworkGetResponseBody{RequestID: e.RequestID}.Call(s.page)
			if err != nil {
				utils.Warnf("获取响应体失败 [%s]: %v", e.Response.URL, err)
				return
			}

			var content []byte
			if body.Base64Encoded {
				content, err = base64.StdEncoding.DecodeString(body.Body)
				if err != nil {
					utils.Warnf("解码Base64失败 [%s]: %v", e.Response.URL, err)
					return
				}
			} else {
				content = []byte(body.Body)
			}

			s.capture.Save(e.Response.URL, e.Response.MIMEType, content)
		},
	)()

	go router.Run()

	return nil
}

// track 为被拦截的资源请求登记一个未清算计数
func (s *rodSession) track(resourceURL string) {
	s.mu.Lock()
	s.outstanding[resourceURL]++
	s.pending.Add(1)
	s.mu.Unlock()
}

// settle 清算一个资源请求
// 未登记的URL直接忽略,计数不会变为负数
func (s *rodSession) settle(resourceURL string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.outstanding[resourceURL] > 0 {
		s.outstanding[resourceURL]--
		s.pending.Done()
	}
}

// Navigate 导航并等待页面加载
func (s *rodSession) Navigate(ctx context.Context, pageURL string) error {
	page := s.page.Context(ctx)

	if err := page.Navigate(pageURL); err != nil {
		return fmt.Errorf("导航失败: %w", err)
	}

	if err := page.WaitLoad(); err != nil {
		return fmt.Errorf("等待页面加载失败: %w", err)
	}

	// 额外等待时间(等待动态内容和延迟加载的资源)
	if s.config.WaitTime > 0 {
		time.Sleep(time.Duration(s.config.WaitTime) * time.Second)
	}

	utils.Debugf("页面加载完成: %s", pageURL)
	return nil
}

// AwaitAssets 等待已拦截的资源请求全部清算
// 浏览器事件丢失时不能无限等待,超时后记录警告并继续
func (s *rodSession) AwaitAssets() {
	done := make(chan struct{})
	go func() {
		s.pending.Wait()
		close(done)
	}()

	timeout := time.Duration(s.config.NavTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	select {
	case <-done:
	case <-time.After(timeout):
		utils.Warnf("等待资源清算超时(%v),继续处理页面", timeout)
	}
}

// extractScript 返回页面标记语言和原始引用属性值
// 使用getAttribute而非属性访问器,避免浏览器把相对URL解析为绝对URL
const extractScript = `() => {
	const attrs = (selector, name) => Array.from(document.querySelectorAll(selector))
		.map(el => el.getAttribute(name))
		.filter(v => v);
	return {
		markup: document.documentElement.outerHTML,
		anchors: attrs("a[href]", "href"),
		images: attrs("img[src]", "src"),
		styles: attrs("link[rel~=stylesheet][href]", "href"),
	};
}`

// ExtractDocument 提取页面快照
func (s *rodSession) ExtractDocument() (*Document, error) {
	result, err := s.page.Eval(extractScript)
	if err != nil {
		return nil, fmt.Errorf("提取页面内容失败: %w", err)
	}

	doc := &Document{
		Markup: result.Value.Get("markup").Str(),
	}
	for _, v := range result.Value.Get("anchors").Arr() {
		doc.AnchorHrefs = append(doc.AnchorHrefs, v.Str())
	}
	for _, v := range result.Value.Get("images").Arr() {
		doc.ImageSrcs = append(doc.ImageSrcs, v.Str())
	}
	for _, v := range result.Value.Get("styles").Arr() {
		doc.StylesheetHrefs = append(doc.StylesheetHrefs, v.Str())
	}

	if doc.Markup == "" {
		return nil, fmt.Errorf("页面标记为空")
	}

	return doc, nil
}

// Close 关闭标签页
func (s *rodSession) Close() error {
	if err := s.page.Close(); err != nil {
		return fmt.Errorf("关闭标签页失败: %w", err)
	}
	return nil
}
