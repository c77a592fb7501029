package crawlers

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/MirrorCraft/sitemirror/internal/models"
	"github.com/MirrorCraft/sitemirror/internal/utils"
)

const (
	// ImagesDir 图片资源子目录
	ImagesDir = "images"
	// CSSDir 样式表资源子目录
	CSSDir = "css"
)

// AssetCapture 资源捕获器
// 职责: 对页面导航过程中观察到的每个响应进行分类,
// 把符合条件的响应体(图片/样式表)以确定性文件名持久化
//
// 资源记录与引用它的页面是否成功无关,写入一次后不再更新;
// 单个资源写入失败只记录日志,不影响其他资源和页面
type AssetCapture struct {
	outputDir string

	// sourceURL -> 已处理标记(去重,后写者不会产生第二次写入)
	seen map[string]bool

	// 成功持久化的资源记录
	records []*models.AssetRecord

	failedAssets int

	mu sync.Mutex
}

// NewAssetCapture 创建资源捕获器
func NewAssetCapture(outputDir string) *AssetCapture {
	return &AssetCapture{
		outputDir: outputDir,
		seen:      make(map[string]bool),
	}
}

// Classify 根据Content-Type前缀对响应分类
// image/* -> 图片, text/css -> 样式表, 其他 -> 忽略
func Classify(contentType string) (models.AssetKind, bool) {
	switch {
	case strings.HasPrefix(contentType, "image/"):
		return models.AssetImage, true
	case strings.HasPrefix(contentType, "text/css"):
		return models.AssetStylesheet, true
	}
	return "", false
}

// Save 持久化一个符合条件的响应体
// 不符合条件的Content-Type直接忽略;同一sourceURL只写入一次
func (ac *AssetCapture) Save(sourceURL string, contentType string, body []byte) {
	kind, ok := Classify(contentType)
	if !ok {
		return
	}

	parsed, err := url.Parse(sourceURL)
	if err != nil {
		utils.Debugf("资源URL不可解析,跳过: %s", sourceURL)
		return
	}

	ac.mu.Lock()
	if ac.seen[sourceURL] {
		ac.mu.Unlock()
		return
	}
	ac.seen[sourceURL] = true
	ac.mu.Unlock()

	localName, err := localAssetName(parsed, kind)
	if err != nil {
		utils.Warnf("生成资源文件名失败 [%s]: %v", sourceURL, err)
		return
	}

	fullPath := filepath.Join(ac.outputDir, filepath.FromSlash(localName))
	if err := os.WriteFile(fullPath, body, 0644); err != nil {
		utils.Warnf("写入资源失败 [%s]: %v", sourceURL, err)
		ac.mu.Lock()
		ac.failedAssets++
		ac.mu.Unlock()
		return
	}

	record := &models.AssetRecord{
		ID:            models.NewID(),
		SourceURL:     sourceURL,
		LocalFilename: localName,
		Kind:          kind,
		ContentType:   contentType,
		Size:          int64(len(body)),
		SavedAt:       time.Now(),
	}

	ac.mu.Lock()
	ac.records = append(ac.records, record)
	ac.mu.Unlock()

	utils.Infof("📥 资源已捕获: %s (%d bytes) - %s", localName, len(body), sourceURL)
}

// Records 返回已成功持久化的资源记录
func (ac *AssetCapture) Records() []*models.AssetRecord {
	ac.mu.Lock()
	defer ac.mu.Unlock()

	out := make([]*models.AssetRecord, len(ac.records))
	copy(out, ac.records)
	return out
}

// FailedCount 返回写入失败的资源数
func (ac *AssetCapture) FailedCount() int {
	ac.mu.Lock()
	defer ac.mu.Unlock()
	return ac.failedAssets
}

// localAssetName 计算资源的本地相对路径(含子目录)
func localAssetName(u *url.URL, kind models.AssetKind) (string, error) {
	switch kind {
	case models.AssetImage:
		return ImagesDir + "/" + utils.ImageFileName(u), nil
	case models.AssetStylesheet:
		return CSSDir + "/" + utils.CSSFileName(u), nil
	}
	return "", fmt.Errorf("未知资源类型: %s", kind)
}
