package main

import (
	"testing"

	"github.com/MirrorCraft/sitemirror/internal/core"
)

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"完整URL保持原样", "https://example.com/blog/", "https://example.com/blog/", false},
		{"HTTP协议保持原样", "http://example.com", "http://example.com", false},
		{"无协议补全https", "example.com/page", "https://example.com/page", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeURL(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NormalizeURL(%q) error = %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("NormalizeURL(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestValidateFlags(t *testing.T) {
	config, err := core.LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	tests := []struct {
		name    string
		url     string
		mode    string
		wantErr bool
	}{
		{"有效的浏览器模式", "https://example.com", "browser", false},
		{"有效的静态模式", "https://example.com", "static", false},
		{"无效模式", "https://example.com", "dynamic", true},
		{"无主机URL", "https://", "browser", true},
		{"非HTTP协议", "ftp://example.com", "browser", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFlags(tt.url, tt.mode, config)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateFlags(%q, %q) error = %v, wantErr %v", tt.url, tt.mode, err, tt.wantErr)
			}
		})
	}
}

func TestValidateFlags_BadConfig(t *testing.T) {
	config, err := core.LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	config.Crawl.MaxPages = 0

	if err := ValidateFlags("https://example.com", "browser", config); err == nil {
		t.Error("页面预算为0时应该返回错误")
	}
}
