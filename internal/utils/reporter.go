package utils

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/MirrorCraft/sitemirror/internal/models"
	"github.com/schollz/progressbar/v3"
)

// MirrorManifest 镜像清单
// 描述一次镜像任务的全部产物,写入输出目录供离线核对
type MirrorManifest struct {
	RunID       string                `json:"run_id"`
	SeedURL     string                `json:"seed_url"`
	Host        string                `json:"host"`
	Mode        string                `json:"mode"`
	GeneratedAt time.Time             `json:"generated_at"`
	Stats       models.MirrorStats    `json:"stats"`
	Pages       []*models.PageRecord  `json:"pages"`
	Assets      []*models.AssetRecord `json:"assets"`
	Config      models.CrawlConfig    `json:"config"`
}

// Reporter 清单生成器
type Reporter struct {
	outputDir string
}

// NewReporter 创建清单生成器
func NewReporter(outputDir string) *Reporter {
	return &Reporter{outputDir: outputDir}
}

// WriteManifest 生成镜像清单
func (r *Reporter) WriteManifest(manifest *MirrorManifest) error {
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("序列化清单失败: %w", err)
	}

	manifestPath := filepath.Join(r.outputDir, "mirror_manifest.json")
	if err := os.WriteFile(manifestPath, data, 0644); err != nil {
		return fmt.Errorf("写入清单文件失败: %w", err)
	}

	Infof("✅ 镜像清单已生成: %s", manifestPath)
	return nil
}

// NewProgressBar 创建页面进度条
func NewProgressBar(max int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(max,
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}
