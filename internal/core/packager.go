package core

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/MirrorCraft/sitemirror/internal/utils"
)

// Packager 镜像打包器
// 把完成的镜像目录压缩为单个zip归档,便于分发和离线保存
type Packager struct {
	sourceDir string
}

// NewPackager 创建打包器
func NewPackager(sourceDir string) *Packager {
	return &Packager{sourceDir: sourceDir}
}

// Compress 把镜像目录压缩到destPath
// 归档内路径相对于镜像目录,保持images/和css/子目录结构
func (p *Packager) Compress(destPath string) error {
	out, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("创建归档文件失败: %w", err)
	}
	defer out.Close()

	zw := zip.NewWriter(out)

	walkErr := filepath.Walk(p.sourceDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(p.sourceDir, path)
		if err != nil {
			return err
		}

		header, err := zip.FileInfoHeader(info)
		if err != nil {
			return err
		}
		header.Name = filepath.ToSlash(rel)
		header.Method = zip.Deflate

		writer, err := zw.CreateHeader(header)
		if err != nil {
			return err
		}

		file, err := os.Open(path)
		if err != nil {
			return err
		}
		defer file.Close()

		_, err = io.Copy(writer, file)
		return err
	})

	if walkErr != nil {
		zw.Close()
		return fmt.Errorf("打包镜像目录失败: %w", walkErr)
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("完成归档写入失败: %w", err)
	}

	info, err := os.Stat(destPath)
	if err != nil {
		return fmt.Errorf("检查归档文件失败: %w", err)
	}

	utils.Infof("📦 镜像已打包: %s (%d bytes)", destPath, info.Size())
	return nil
}

// ArchiveName 根据镜像目录名生成归档文件名
func ArchiveName(mirrorDir string) string {
	base := filepath.Base(strings.TrimRight(mirrorDir, string(os.PathSeparator)))
	return base + ".zip"
}
