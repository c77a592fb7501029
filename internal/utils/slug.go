package utils

import (
	"net/url"
	"path"
	"strings"
)

// Slug 从URL的路径派生确定性的文件系统安全标识符
// 规则:
//   - 只使用路径,丢弃协议/主机/查询参数
//   - 根路径 -> "root"
//   - 去掉首尾斜杠后,所有[a-zA-Z0-9_-]之外的字符替换为下划线
//   - 替换后为空 -> "index"
//
// 已知限制: 路径归一化后相同的两个不同URL会静默碰撞(后写者覆盖),
// 不做额外的消歧处理
func Slug(u *url.URL) string {
	return slugPath(u.Path)
}

// SlugString 解析URL字符串后计算slug
// 调用方必须保证URL可解析,不可解析的URL不应到达这里
func SlugString(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return slugPath(rawURL)
	}
	return slugPath(u.Path)
}

func slugPath(p string) string {
	if p == "" || p == "/" {
		return "root"
	}

	trimmed := strings.Trim(p, "/")
	var b strings.Builder
	b.Grow(len(trimmed))
	for _, r := range trimmed {
		switch {
		case r >= 'a' && r <= 'z',
			r >= 'A' && r <= 'Z',
			r >= '0' && r <= '9',
			r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}

	s := b.String()
	if s == "" {
		return "index"
	}
	return s
}

// PageFileName 页面的本地文件名: slug(url)+".html"
func PageFileName(u *url.URL) string {
	return Slug(u) + ".html"
}

// ImageFileName 图片资源的本地文件名
// 先去掉路径扩展名再计算slug,然后补回原始扩展名,
// 使 .../logo.png 映射为 logo.png 而不是 logo_png.png
func ImageFileName(u *url.URL) string {
	ext := path.Ext(u.Path)
	base := strings.TrimSuffix(u.Path, ext)
	return slugPath(base) + ext
}

// CSSFileName 样式表资源的本地文件名,统一使用.css扩展名
func CSSFileName(u *url.URL) string {
	ext := path.Ext(u.Path)
	base := strings.TrimSuffix(u.Path, ext)
	return slugPath(base) + ".css"
}
