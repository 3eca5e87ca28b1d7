package upload

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"time"
)

// BlobStore 按文件名寻址的内容存储。
//
// 数据库里的附件记录才是事实来源，内容存储只是它的派生物：
// Delete 必须幂等且允许失败，调用方都是尽力而为语义。
type BlobStore interface {
	Save(name string, r io.Reader) error
	Delete(name string) error
	URL(name string) string
}

// DiskStore 把上传内容平铺存放在本地目录，经 /uploads/<name> 静态回源。
type DiskStore struct {
	dir string
}

// NewDiskStore 创建本地磁盘存储，目录不存在时创建。
func NewDiskStore(dir string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &DiskStore{dir: dir}, nil
}

// Save 将内容写入 dir/name。
func (s *DiskStore) Save(name string, r io.Reader) error {
	path := filepath.Join(s.dir, filepath.Base(name))
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create blob: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		os.Remove(path)
		return fmt.Errorf("write blob: %w", err)
	}
	return nil
}

// Delete 删除 dir/name；文件不存在视为成功（幂等）。
func (s *DiskStore) Delete(name string) error {
	path := filepath.Join(s.dir, filepath.Base(name))
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete blob: %w", err)
	}
	return nil
}

// URL 返回对外可访问的静态路径。
func (s *DiskStore) URL(name string) string {
	return "/uploads/" + filepath.Base(name)
}

// Dir 返回落盘目录（注册静态路由用）。
func (s *DiskStore) Dir() string {
	return s.dir
}

var unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9_.-]`)

// GenerateFileName 生成抗冲突的存储文件名：毫秒时间戳 + 净化后的原始名。
func GenerateFileName(originalName string) string {
	safe := unsafeNameChars.ReplaceAllString(filepath.Base(originalName), "_")
	return fmt.Sprintf("%d-%s", time.Now().UnixMilli(), safe)
}
