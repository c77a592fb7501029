package models

import (
	"encoding/json"
	"time"
)

// AssetKind 资源类型
type AssetKind string

const (
	AssetImage      AssetKind = "image"      // 图片 (content-type: image/*)
	AssetStylesheet AssetKind = "stylesheet" // 样式表 (content-type: text/css)
)

// PageRecord 页面记录
// 每个成功导航的页面创建一次,只写入一次,运行期间不更新不删除
type PageRecord struct {
	ID            string    `json:"id"`             // 记录唯一ID
	URL           string    `json:"url"`            // 页面URL
	LocalFilename string    `json:"local_filename"` // 本地文件名 slug(url)+".html"
	Size          int64     `json:"size"`           // 改写后标记语言的大小(字节)
	Depth         int       `json:"depth"`          // 爬取深度
	LinkCount     int       `json:"link_count"`     // 页面发现的链接数
	SavedAt       time.Time `json:"saved_at"`       // 持久化时间
}

// AssetRecord 资源记录
// 每个符合条件的拦截响应创建一次,与引用它的页面是否成功无关
type AssetRecord struct {
	ID            string    `json:"id"`             // 记录唯一ID
	SourceURL     string    `json:"source_url"`     // 资源来源URL
	LocalFilename string    `json:"local_filename"` // 本地文件名(含子目录,如 images/logo.png)
	Kind          AssetKind `json:"kind"`           // 资源类型
	ContentType   string    `json:"content_type"`   // HTTP Content-Type
	Size          int64     `json:"size"`           // 文件大小(字节)
	SavedAt       time.Time `json:"saved_at"`       // 持久化时间
}

// MirrorStats 镜像任务统计
type MirrorStats struct {
	VisitedPages int     `json:"visited_pages"` // 已访问页面数
	SavedPages   int     `json:"saved_pages"`   // 成功持久化的页面数
	FailedPages  int     `json:"failed_pages"`  // 导航/处理失败的页面数
	Images       int     `json:"images"`        // 捕获的图片数
	Stylesheets  int     `json:"stylesheets"`   // 捕获的样式表数
	FailedAssets int     `json:"failed_assets"` // 写入失败的资源数
	TotalSize    int64   `json:"total_size"`    // 总大小(字节)
	Duration     float64 `json:"duration"`      // 总耗时(秒)
}

// ToJSON 序列化为JSON
func (p *PageRecord) ToJSON() ([]byte, error) {
	return json.MarshalIndent(p, "", "  ")
}

// ToJSON 序列化为JSON
func (a *AssetRecord) ToJSON() ([]byte, error) {
	return json.MarshalIndent(a, "", "  ")
}
