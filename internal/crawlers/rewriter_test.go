package crawlers

import (
	"net/url"
	"strings"
	"testing"
)

func pageURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("解析URL失败: %v", err)
	}
	return u
}

func TestRewriteDocument_Images(t *testing.T) {
	markup := `<html><body>
<img src="https://cdn.example.com/logo.png">
<img src="/pics/banner.jpg">
</body></html>`

	out, err := RewriteDocument(markup, pageURL(t, "https://example.com/blog/"), "example.com")
	if err != nil {
		t.Fatalf("RewriteDocument() error = %v", err)
	}

	if !strings.Contains(out, `src="./images/logo.png"`) {
		t.Errorf("绝对图片URL未改写: %s", out)
	}
	if !strings.Contains(out, `src="./images/pics_banner.jpg"`) {
		t.Errorf("相对图片URL未按页面URL解析后改写: %s", out)
	}
}

func TestRewriteDocument_ImageIdempotent(t *testing.T) {
	// 同一图片URL出现两次,必须改写为完全相同的本地路径
	markup := `<html><body>
<img src="https://example.com/logo.png">
<p>text</p>
<img src="https://example.com/logo.png">
</body></html>`

	out, err := RewriteDocument(markup, pageURL(t, "https://example.com/"), "example.com")
	if err != nil {
		t.Fatalf("RewriteDocument() error = %v", err)
	}

	if got := strings.Count(out, `src="./images/logo.png"`); got != 2 {
		t.Errorf("两处图片引用应改写为相同本地路径,实际匹配%d处", got)
	}
	if strings.Contains(out, "https://example.com/logo.png") {
		t.Error("原始图片URL不应残留在属性中")
	}
}

func TestRewriteDocument_Stylesheets(t *testing.T) {
	markup := `<html><head>
<link rel="stylesheet" href="/assets/main.css">
<link rel="icon" href="/favicon.ico">
</head><body></body></html>`

	out, err := RewriteDocument(markup, pageURL(t, "https://example.com/blog/"), "example.com")
	if err != nil {
		t.Fatalf("RewriteDocument() error = %v", err)
	}

	if !strings.Contains(out, `href="./css/assets_main.css"`) {
		t.Errorf("样式表引用未改写: %s", out)
	}
	if !strings.Contains(out, `href="/favicon.ico"`) {
		t.Error("非stylesheet的link元素不应被改写")
	}
}

func TestRewriteDocument_Anchors(t *testing.T) {
	markup := `<html><body>
<a href="/blog/post-1">post 1</a>
<a href="https://example.com/blog/post-2">post 2</a>
<a href="https://ads.com/x">ad</a>
<a href="mailto:a@example.com">mail</a>
</body></html>`

	out, err := RewriteDocument(markup, pageURL(t, "https://example.com/blog/"), "example.com")
	if err != nil {
		t.Fatalf("RewriteDocument() error = %v", err)
	}

	if !strings.Contains(out, `href="./blog_post-1.html"`) {
		t.Errorf("相对同站锚点未改写: %s", out)
	}
	if !strings.Contains(out, `href="./blog_post-2.html"`) {
		t.Errorf("绝对同站锚点未改写: %s", out)
	}
	if !strings.Contains(out, `href="https://ads.com/x"`) {
		t.Error("跨站锚点必须保持原样")
	}
	if !strings.Contains(out, `href="mailto:a@example.com"`) {
		t.Error("非HTTP协议的引用必须保持原样")
	}
}

func TestRewriteDocument_TextNotCorrupted(t *testing.T) {
	// 结构化改写只触碰属性节点,正文中出现的URL文本不受影响
	markup := `<html><body>
<p>原文提到 https://example.com/blog/post-1 这个地址</p>
<a href="https://example.com/blog/post-1">link</a>
</body></html>`

	out, err := RewriteDocument(markup, pageURL(t, "https://example.com/blog/"), "example.com")
	if err != nil {
		t.Fatalf("RewriteDocument() error = %v", err)
	}

	if !strings.Contains(out, "原文提到 https://example.com/blog/post-1 这个地址") {
		t.Error("正文文本中的URL不应被改写")
	}
	if !strings.Contains(out, `href="./blog_post-1.html"`) {
		t.Error("属性中的同站锚点应被改写")
	}
}

func TestRewriteDocument_MalformedRefSkipped(t *testing.T) {
	markup := `<html><body>
<a href="http://%zz">broken</a>
<a href="/ok">ok</a>
</body></html>`

	out, err := RewriteDocument(markup, pageURL(t, "https://example.com/"), "example.com")
	if err != nil {
		t.Fatalf("单个引用不可解析不应中断整页: %v", err)
	}

	if !strings.Contains(out, `href="./ok.html"`) {
		t.Error("其余引用应正常改写")
	}
}

func TestExtractReferences(t *testing.T) {
	markup := `<html><head>
<link rel="stylesheet" href="/main.css">
</head><body>
<img src="/logo.png">
<a href="/blog/post-1">p1</a>
<a href="https://ads.com/x">ad</a>
<a href="javascript:void(0)">noop</a>
</body></html>`

	images, stylesheets, anchors, err := ExtractReferences(markup, pageURL(t, "https://example.com/blog/"))
	if err != nil {
		t.Fatalf("ExtractReferences() error = %v", err)
	}

	if len(images) != 1 || images[0] != "https://example.com/logo.png" {
		t.Errorf("images = %v", images)
	}
	if len(stylesheets) != 1 || stylesheets[0] != "https://example.com/main.css" {
		t.Errorf("stylesheets = %v", stylesheets)
	}
	// javascript:协议被丢弃,跨站锚点保留(由调用方的范围规则过滤)
	if len(anchors) != 2 {
		t.Errorf("anchors = %v, want 2个", anchors)
	}
}
