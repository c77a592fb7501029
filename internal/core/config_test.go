package core

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfig_Defaults(t *testing.T) {
	// 不存在的搜索路径,应该全部落到默认值
	config, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if config.Crawl.MaxPages != 25 {
		t.Errorf("默认页面预算 = %d, want 25", config.Crawl.MaxPages)
	}
	if config.Crawl.Concurrency != 2 {
		t.Errorf("默认并发数 = %d, want 2", config.Crawl.Concurrency)
	}
	if !config.Crawl.Headless {
		t.Error("默认应该启用无头模式")
	}
	if config.Output.BaseDir != "mirrors" {
		t.Errorf("默认输出目录 = %q, want mirrors", config.Output.BaseDir)
	}
	if !config.Output.Archive {
		t.Error("默认应该启用归档")
	}
	if config.Logging.Level != "info" {
		t.Errorf("默认日志级别 = %q, want info", config.Logging.Level)
	}
}

func TestLoadConfig_FromFile(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")

	content := `crawl:
  max_pages: 100
  concurrency: 4
  headless: false
output:
  base_dir: /tmp/snapshots
  archive: false
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("写入配置文件失败: %v", err)
	}

	config, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if config.Crawl.MaxPages != 100 {
		t.Errorf("页面预算 = %d, want 100", config.Crawl.MaxPages)
	}
	if config.Crawl.Concurrency != 4 {
		t.Errorf("并发数 = %d, want 4", config.Crawl.Concurrency)
	}
	if config.Crawl.Headless {
		t.Error("配置文件禁用了无头模式")
	}
	if config.Output.BaseDir != "/tmp/snapshots" {
		t.Errorf("输出目录 = %q", config.Output.BaseDir)
	}
	// 未覆盖的字段保持默认值
	if config.Crawl.NavTimeout != 30 {
		t.Errorf("导航超时 = %d, want 默认值30", config.Crawl.NavTimeout)
	}
}

func TestConfig_MergeCLIFlags(t *testing.T) {
	config, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	config.MergeCLIFlags(50, 8, 5, 60, 10, 3, []string{"no-sandbox"})

	if config.Crawl.MaxPages != 50 {
		t.Errorf("页面预算 = %d, want 50", config.Crawl.MaxPages)
	}
	if config.Crawl.Concurrency != 8 {
		t.Errorf("并发数 = %d, want 8", config.Crawl.Concurrency)
	}
	if config.Crawl.WaitTime != 5 {
		t.Errorf("等待时间 = %d, want 5", config.Crawl.WaitTime)
	}
	if config.Crawl.NavTimeout != 60 {
		t.Errorf("导航超时 = %d, want 60", config.Crawl.NavTimeout)
	}
	if len(config.Crawl.BrowserFlags) != 1 || config.Crawl.BrowserFlags[0] != "no-sandbox" {
		t.Errorf("浏览器参数 = %v", config.Crawl.BrowserFlags)
	}
}

func TestConfig_MergeCLIFlags_ZeroValuesKeepConfig(t *testing.T) {
	config, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	// 0值的maxPages/concurrency/navTimeout不应覆盖配置
	config.MergeCLIFlags(0, 0, -1, 0, -1, -1, nil)

	if config.Crawl.MaxPages != 25 {
		t.Errorf("页面预算被0值覆盖: %d", config.Crawl.MaxPages)
	}
	if config.Crawl.Concurrency != 2 {
		t.Errorf("并发数被0值覆盖: %d", config.Crawl.Concurrency)
	}
	if config.Crawl.WaitTime != 2 {
		t.Errorf("等待时间被负值覆盖: %d", config.Crawl.WaitTime)
	}
}

func TestConfig_MergeCLIFlags_KeepsHeadlessFromConfig(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")

	content := `crawl:
  headless: false
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("写入配置文件失败: %v", err)
	}

	config, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	// 标志未显式设置时合并不触碰无头模式配置
	config.MergeCLIFlags(0, 0, -1, 0, -1, -1, nil)

	if config.Crawl.Headless {
		t.Error("配置文件的headless=false被合并覆盖")
	}
}
