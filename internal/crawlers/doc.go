// Package crawlers 提供站点离线镜像的核心爬取功能
//
// # 概述
//
// crawlers包实现了同站广度优先遍历和页面本地化,支持浏览器(go-rod)和
// 静态(Colly)两种镜像模式。核心特性包括:页面预算控制、资源捕获、
// 结构化链接改写、节流暂停、实时资源监控。
//
// # 核心组件
//
// ## Frontier (爬取边界)
//
// 并发安全的遍历边界管理器: FIFO待访问队列 + 已访问集合。
// 范围规则把遍历限制在种子URL的主机内,visited集合大小受页面预算约束。
//
//	frontier := NewFrontier(seedURL, maxPages)
//	frontier.Seed()
//	item, ok := frontier.Next(ctx)
//	first := frontier.MarkVisited(item.URL)
//
// ## BrowserCrawler
//
// 基于go-rod的浏览器镜像爬取器。固定大小的worker池从边界队列拉取URL,
// 每个页面使用独立的浏览器会话,网络拦截捕获图片和样式表响应。
//
//	crawler := NewBrowserCrawler(config, frontier, capture, pages, factory)
//	err := crawler.Crawl()
//
// ## StaticCrawler
//
// 基于Colly框架的静态镜像爬取器,不渲染页面,直接从HTML提取资源引用
// 并用HTTP客户端抓取。适用于不依赖脚本渲染的站点。
//
//	crawler := NewStaticCrawler(config, frontier, capture, pages)
//	err := crawler.Crawl()
//
// ## AssetCapture (资源捕获器)
//
// 按Content-Type分类响应(image/* -> images/, text/css -> css/),
// 以确定性文件名持久化。同一sourceURL只写入一次。
//
// ## Session / SessionFactory
//
// 一次页面访问的能力接口。浏览器实例归工厂所有,会话按页面创建和销毁。
// AwaitAssets提供落盘屏障: 页面改写必须发生在已观察资源全部写入之后。
//
// ## ResourceMonitor (资源监控器)
//
// 周期性采样内存和CPU,为并发会话数提供上限,
// 避免在低配机器上同时打开过多标签页。
//
// # 并发安全
//
// 所有核心组件都是并发安全的:
//   - Frontier: channel + sync.Mutex
//   - AssetCapture / PageStore: sync.Mutex
//   - ResourceMonitor: sync.RWMutex
//
// # 错误处理
//
//   - 单页失败只计入失败统计,不中断整体遍历
//   - 单个资源写入失败只记录日志,不影响页面保存
//   - 页面处理panic被worker捕获并转换为失败计数
package crawlers
