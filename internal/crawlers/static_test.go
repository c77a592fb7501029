package crawlers

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"testing"

	"github.com/andybalholm/brotli"
)

func TestDecompressResponse(t *testing.T) {
	original := []byte("<html><body>压缩测试内容</body></html>")

	// 准备各种压缩格式的数据
	var gzipBuf bytes.Buffer
	gw := gzip.NewWriter(&gzipBuf)
	if _, err := gw.Write(original); err != nil {
		t.Fatalf("gzip压缩失败: %v", err)
	}
	gw.Close()

	var flateBuf bytes.Buffer
	fw, err := flate.NewWriter(&flateBuf, flate.DefaultCompression)
	if err != nil {
		t.Fatalf("创建flate writer失败: %v", err)
	}
	if _, err := fw.Write(original); err != nil {
		t.Fatalf("deflate压缩失败: %v", err)
	}
	fw.Close()

	var brotliBuf bytes.Buffer
	bw := brotli.NewWriter(&brotliBuf)
	if _, err := bw.Write(original); err != nil {
		t.Fatalf("brotli压缩失败: %v", err)
	}
	bw.Close()

	tests := []struct {
		name     string
		encoding string
		body     []byte
		want     []byte
	}{
		{"GZIP解压", "gzip", gzipBuf.Bytes(), original},
		{"Deflate解压", "deflate", flateBuf.Bytes(), original},
		{"Brotli解压", "br", brotliBuf.Bytes(), original},
		{"无压缩原样返回", "", original, original},
		{"未知编码原样返回", "zstd", original, original},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decompressResponse(tt.encoding, tt.body)
			if err != nil {
				t.Fatalf("decompressResponse(%q) error = %v", tt.encoding, err)
			}
			if !bytes.Equal(got, tt.want) {
				t.Errorf("decompressResponse(%q) = %q, want %q", tt.encoding, got, tt.want)
			}
		})
	}
}

func TestDecompressResponse_CorruptGzip(t *testing.T) {
	if _, err := decompressResponse("gzip", []byte("不是gzip数据")); err == nil {
		t.Error("损坏的gzip数据应该返回错误")
	}
}
