package models

import (
	"testing"
)

func TestValidateURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"有效的HTTP URL", "http://example.com", false},
		{"有效的HTTPS URL", "https://example.com", false},
		{"带路径的URL", "https://example.com/blog/post-1", false},
		{"无效的协议", "ftp://example.com", true},
		{"无效的URL", "not a url", true},
		{"空URL", "", true},
		{"无协议", "example.com", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateURL(tt.url)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateURL() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCrawlConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  CrawlConfig
		wantErr bool
	}{
		{
			name: "有效配置",
			config: CrawlConfig{
				MaxPages:     25,
				Concurrency:  2,
				WaitTime:     2,
				NavTimeout:   30,
				PauseEvery:   5,
				PauseSeconds: 2,
			},
			wantErr: false,
		},
		{
			name: "顺序模式",
			config: CrawlConfig{
				MaxPages:    3,
				Concurrency: 1,
				NavTimeout:  30,
			},
			wantErr: false,
		},
		{
			name: "页面预算过小",
			config: CrawlConfig{
				MaxPages:    0,
				Concurrency: 2,
				NavTimeout:  30,
			},
			wantErr: true,
		},
		{
			name: "并发数过大",
			config: CrawlConfig{
				MaxPages:    25,
				Concurrency: 64,
				NavTimeout:  30,
			},
			wantErr: true,
		},
		{
			name: "导航超时为0",
			config: CrawlConfig{
				MaxPages:    25,
				Concurrency: 2,
				NavTimeout:  0,
			},
			wantErr: true,
		},
		{
			name: "暂停时长过大",
			config: CrawlConfig{
				MaxPages:     25,
				Concurrency:  2,
				NavTimeout:   30,
				PauseSeconds: 120,
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidMode(t *testing.T) {
	tests := []struct {
		mode string
		want bool
	}{
		{"browser", true},
		{"static", true},
		{"all", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			if got := ValidMode(tt.mode); got != tt.want {
				t.Errorf("ValidMode(%q) = %v, want %v", tt.mode, got, tt.want)
			}
		})
	}
}

func TestNewID(t *testing.T) {
	a := NewID()
	b := NewID()

	if a == "" || b == "" {
		t.Error("ID不应为空")
	}
	if a == b {
		t.Error("两次生成的ID不应相同")
	}
}
