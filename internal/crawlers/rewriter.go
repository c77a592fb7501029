package crawlers

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/MirrorCraft/sitemirror/internal/utils"
	"golang.org/x/net/html"
)

// RewriteDocument 把页面标记语言中的引用改写为本地相对路径
// 对属性节点做结构化的解析-改写,避免字面子串替换带来的误伤:
//   - img[src]            -> ./images/<slug+ext>
//   - link[rel=stylesheet][href] -> ./css/<slug>.css
//   - a[href] 且解析后主机与siteHost一致 -> ./<slug>.html
//
// 跨站锚点保持原样;单个引用不可解析时跳过该引用,不中断整页
func RewriteDocument(markup string, pageURL *url.URL, siteHost string) (string, error) {
	doc, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return "", fmt.Errorf("解析页面标记失败: %w", err)
	}

	rewriteNode(doc, pageURL, siteHost)

	var buf bytes.Buffer
	if err := html.Render(&buf, doc); err != nil {
		return "", fmt.Errorf("渲染改写后的页面失败: %w", err)
	}

	return buf.String(), nil
}

// rewriteNode 递归遍历DOM并改写当前节点的引用属性
func rewriteNode(node *html.Node, pageURL *url.URL, siteHost string) {
	if node.Type == html.ElementNode {
		switch node.Data {
		case "img":
			rewriteAttr(node, "src", func(resolved *url.URL) (string, bool) {
				return "./" + ImagesDir + "/" + utils.ImageFileName(resolved), true
			}, pageURL)
		case "link":
			if hasRel(node, "stylesheet") {
				rewriteAttr(node, "href", func(resolved *url.URL) (string, bool) {
					return "./" + CSSDir + "/" + utils.CSSFileName(resolved), true
				}, pageURL)
			}
		case "a":
			rewriteAttr(node, "href", func(resolved *url.URL) (string, bool) {
				// 同站判定: 主机与种子一致才改写,跨站锚点保持原样
				if resolved.Host != siteHost {
					return "", false
				}
				return "./" + utils.PageFileName(resolved), true
			}, pageURL)
		}
	}

	for child := node.FirstChild; child != nil; child = child.NextSibling {
		rewriteNode(child, pageURL, siteHost)
	}
}

// rewriteAttr 解析并改写单个引用属性
// URL不可解析、非HTTP协议或replace拒绝时保持原值
func rewriteAttr(node *html.Node, key string, replace func(*url.URL) (string, bool), pageURL *url.URL) {
	for i, attr := range node.Attr {
		if attr.Key != key || attr.Val == "" {
			continue
		}

		ref, err := url.Parse(attr.Val)
		if err != nil {
			utils.Debugf("引用不可解析,跳过: %s", attr.Val)
			continue
		}

		resolved := pageURL.ResolveReference(ref)
		if resolved.Scheme != "http" && resolved.Scheme != "https" {
			continue
		}

		if local, ok := replace(resolved); ok {
			node.Attr[i].Val = local
		}
	}
}

// hasRel 检查link元素的rel属性是否包含指定值
func hasRel(node *html.Node, rel string) bool {
	for _, attr := range node.Attr {
		if attr.Key == "rel" {
			for _, v := range strings.Fields(attr.Val) {
				if strings.EqualFold(v, rel) {
					return true
				}
			}
		}
	}
	return false
}

// ExtractReferences 从标记语言中提取原始引用(静态模式使用)
// 返回解析后的绝对URL: 图片src、样式表href、锚点href
func ExtractReferences(markup string, pageURL *url.URL) (images []string, stylesheets []string, anchors []string, err error) {
	doc, parseErr := html.Parse(strings.NewReader(markup))
	if parseErr != nil {
		return nil, nil, nil, fmt.Errorf("解析页面标记失败: %w", parseErr)
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "img":
				if v := resolveAttr(n, "src", pageURL); v != "" {
					images = append(images, v)
				}
			case "link":
				if hasRel(n, "stylesheet") {
					if v := resolveAttr(n, "href", pageURL); v != "" {
						stylesheets = append(stylesheets, v)
					}
				}
			case "a":
				if v := resolveAttr(n, "href", pageURL); v != "" {
					anchors = append(anchors, v)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return images, stylesheets, anchors, nil
}

// resolveAttr 读取属性并解析为绝对HTTP URL,失败返回空串
func resolveAttr(node *html.Node, key string, base *url.URL) string {
	for _, attr := range node.Attr {
		if attr.Key != key || attr.Val == "" {
			continue
		}
		ref, err := url.Parse(attr.Val)
		if err != nil {
			continue
		}
		resolved := base.ResolveReference(ref)
		if resolved.Scheme != "http" && resolved.Scheme != "https" {
			continue
		}
		return resolved.String()
	}
	return ""
}
