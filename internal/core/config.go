package core

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/MirrorCraft/sitemirror/internal/models"
	"github.com/spf13/viper"
)

// Config 应用程序配置
type Config struct {
	Crawl   models.CrawlConfig `mapstructure:"crawl"`
	Logging LoggingConfig      `mapstructure:"logging"`
	Output  OutputConfig       `mapstructure:"output"`
}

// LoggingConfig 日志配置
type LoggingConfig struct {
	Level    string         `mapstructure:"level"`
	LogDir   string         `mapstructure:"log_dir"`
	Rotation RotationConfig `mapstructure:"rotation"`
}

// RotationConfig 日志轮转配置
type RotationConfig struct {
	MaxSize    int  `mapstructure:"max_size"`
	MaxBackups int  `mapstructure:"max_backups"`
	MaxAge     int  `mapstructure:"max_age"`
	Compress   bool `mapstructure:"compress"`
}

// OutputConfig 输出配置
type OutputConfig struct {
	BaseDir string `mapstructure:"base_dir"` // 镜像输出根目录
	Archive bool   `mapstructure:"archive"`  // 完成后打包为zip
}

// LoadConfig 加载配置文件
// configPath为空时搜索默认位置,配置文件不存在则使用默认值
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")

		v.AddConfigPath("./configs")
		v.AddConfigPath(".")

		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".sitemirror"))
		}
	}

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
		// 配置文件不存在,使用默认值
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	return &config, nil
}

// setDefaults 设置默认配置值
func setDefaults(v *viper.Viper) {
	// 爬取配置默认值
	v.SetDefault("crawl.max_pages", 25)
	v.SetDefault("crawl.concurrency", 2)
	v.SetDefault("crawl.wait_time", 2)
	v.SetDefault("crawl.nav_timeout", 30)
	v.SetDefault("crawl.pause_every", 5)
	v.SetDefault("crawl.pause_seconds", 2)
	v.SetDefault("crawl.headless", true)

	// 资源监控默认值
	v.SetDefault("crawl.safety_reserve_memory", 1024)
	v.SetDefault("crawl.safety_threshold", 500)
	v.SetDefault("crawl.cpu_load_threshold", 80)
	v.SetDefault("crawl.max_sessions_limit", 16)

	// 日志配置默认值
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.log_dir", "logs")
	v.SetDefault("logging.rotation.max_size", 10)
	v.SetDefault("logging.rotation.max_backups", 3)
	v.SetDefault("logging.rotation.max_age", 28)
	v.SetDefault("logging.rotation.compress", true)

	// 输出配置默认值
	v.SetDefault("output.base_dir", "mirrors")
	v.SetDefault("output.archive", true)
}

// MergeCLIFlags 合并命令行参数到配置
// 命令行参数优先于配置文件
// Headless不在这里合并: 标志默认值为true,无条件覆盖会吞掉配置文件
// 里的false,由调用方在标志显式设置时覆盖
func (c *Config) MergeCLIFlags(maxPages, concurrency, waitTime, navTimeout, pauseEvery, pauseSeconds int, browserFlags []string) {
	if maxPages > 0 {
		c.Crawl.MaxPages = maxPages
	}
	if concurrency > 0 {
		c.Crawl.Concurrency = concurrency
	}
	if waitTime >= 0 {
		c.Crawl.WaitTime = waitTime
	}
	if navTimeout > 0 {
		c.Crawl.NavTimeout = navTimeout
	}
	if pauseEvery >= 0 {
		c.Crawl.PauseEvery = pauseEvery
	}
	if pauseSeconds >= 0 {
		c.Crawl.PauseSeconds = pauseSeconds
	}
	if len(browserFlags) > 0 {
		c.Crawl.BrowserFlags = browserFlags
	}
}
