package main

import (
	"fmt"
	"net/url"

	"github.com/MirrorCraft/sitemirror/internal/core"
	"github.com/MirrorCraft/sitemirror/internal/models"
)

// ValidateFlags 验证命令行标志和合并后的配置
func ValidateFlags(seedURL string, mode string, config *core.Config) error {
	if err := models.ValidateURL(seedURL); err != nil {
		return fmt.Errorf("无效的种子URL: %w", err)
	}

	if !models.ValidMode(mode) {
		return fmt.Errorf("无效的镜像模式: %s (有效值: browser, static)", mode)
	}

	if err := config.Crawl.Validate(); err != nil {
		return err
	}

	return nil
}

// NormalizeURL 规范化URL
// 没有协议时默认使用https
func NormalizeURL(urlStr string) (string, error) {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return "", err
	}

	if parsed.Scheme == "" {
		urlStr = "https://" + urlStr
		parsed, err = url.Parse(urlStr)
		if err != nil {
			return "", err
		}
	}

	return parsed.String(), nil
}
