package models

import (
	"fmt"
)

// MirrorMode 镜像模式
type MirrorMode string

const (
	ModeBrowser MirrorMode = "browser" // 浏览器模式(Rod)
	ModeStatic  MirrorMode = "static"  // 静态模式(Colly)
)

// CrawlConfig 爬取配置
// 整个任务运行期间不可变
type CrawlConfig struct {
	MaxPages     int      `json:"max_pages" mapstructure:"max_pages"`         // 页面预算,visited集合的上限 (默认:25)
	Concurrency  int      `json:"concurrency" mapstructure:"concurrency"`     // 并发worker数量 (默认:2, 1=顺序模式)
	WaitTime     int      `json:"wait_time" mapstructure:"wait_time"`         // 页面加载后额外等待时间(秒) (默认:2)
	NavTimeout   int      `json:"nav_timeout" mapstructure:"nav_timeout"`     // 单页导航超时时间(秒) (默认:30)
	PauseEvery   int      `json:"pause_every" mapstructure:"pause_every"`     // 每处理K个页面后暂停 (默认:5, 0=不暂停)
	PauseSeconds int      `json:"pause_seconds" mapstructure:"pause_seconds"` // 暂停时长(秒) (默认:2)
	Headless     bool     `json:"headless" mapstructure:"headless"`           // 无头模式 (默认:true)
	BrowserFlags []string `json:"browser_flags" mapstructure:"browser_flags"` // 透传给浏览器引擎的启动参数(不解释)

	// 资源监控配置
	SafetyReserveMemory int `json:"safety_reserve_memory" mapstructure:"safety_reserve_memory"` // 安全保留内存(MB)
	SafetyThreshold     int `json:"safety_threshold" mapstructure:"safety_threshold"`           // 安全阈值(MB)
	CPULoadThreshold    int `json:"cpu_load_threshold" mapstructure:"cpu_load_threshold"`       // CPU负载阈值(%)
	MaxSessionsLimit    int `json:"max_sessions_limit" mapstructure:"max_sessions_limit"`       // 绝对最大会话数
}

// Validate 验证配置
func (c *CrawlConfig) Validate() error {
	if c.MaxPages < 1 || c.MaxPages > 10000 {
		return fmt.Errorf("页面预算必须在1-10000之间")
	}
	if c.Concurrency < 1 || c.Concurrency > 32 {
		return fmt.Errorf("并发数必须在1-32之间")
	}
	if c.WaitTime < 0 || c.WaitTime > 60 {
		return fmt.Errorf("等待时间必须在0-60秒之间")
	}
	if c.NavTimeout < 1 || c.NavTimeout > 300 {
		return fmt.Errorf("导航超时必须在1-300秒之间")
	}
	if c.PauseEvery < 0 {
		return fmt.Errorf("暂停间隔不能为负数")
	}
	if c.PauseSeconds < 0 || c.PauseSeconds > 60 {
		return fmt.Errorf("暂停时长必须在0-60秒之间")
	}
	return nil
}

// ValidMode 检查镜像模式是否有效
func ValidMode(mode string) bool {
	switch MirrorMode(mode) {
	case ModeBrowser, ModeStatic:
		return true
	}
	return false
}
