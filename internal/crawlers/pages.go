package crawlers

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/MirrorCraft/sitemirror/internal/models"
	"github.com/MirrorCraft/sitemirror/internal/utils"
)

// PageStore 页面持久化存储
// 把改写后的页面标记语言写入输出目录根,并维护页面记录
type PageStore struct {
	outputDir string

	records []*models.PageRecord
	mu      sync.Mutex
}

// NewPageStore 创建页面存储
func NewPageStore(outputDir string) *PageStore {
	return &PageStore{outputDir: outputDir}
}

// SavePage 持久化一个已改写的页面
func (ps *PageStore) SavePage(pageURL *url.URL, markup string, depth int, linkCount int) (*models.PageRecord, error) {
	filename := utils.PageFileName(pageURL)
	fullPath := filepath.Join(ps.outputDir, filename)

	if err := os.WriteFile(fullPath, []byte(markup), 0644); err != nil {
		return nil, fmt.Errorf("写入页面失败: %w", err)
	}

	record := &models.PageRecord{
		ID:            models.NewID(),
		URL:           pageURL.String(),
		LocalFilename: filename,
		Size:          int64(len(markup)),
		Depth:         depth,
		LinkCount:     linkCount,
		SavedAt:       time.Now(),
	}

	ps.mu.Lock()
	ps.records = append(ps.records, record)
	ps.mu.Unlock()

	utils.Infof("✅ 页面已保存: %s (%d bytes) - %s", filename, len(markup), pageURL)
	return record, nil
}

// Records 返回已保存的页面记录
func (ps *PageStore) Records() []*models.PageRecord {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	out := make([]*models.PageRecord, len(ps.records))
	copy(out, ps.records)
	return out
}

// SavedCount 返回已保存的页面数
func (ps *PageStore) SavedCount() int {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	return len(ps.records)
}

// TotalSize 返回已保存页面的总字节数
func (ps *PageStore) TotalSize() int64 {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	var total int64
	for _, r := range ps.records {
		total += r.Size
	}
	return total
}
