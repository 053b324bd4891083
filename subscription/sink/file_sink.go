package sink

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"subfilter/internal/shared/logger"
)

// FileSink 把结果写入本地文件。
// 内容先写入同目录下的临时文件, 再原子地重命名为目标路径, 失败时不会留下半个文件。
type FileSink struct {
	filePath string
}

// NewFileSink 创建一个新的 FileSink 实例。
func NewFileSink(filePath string) *FileSink {
	return &FileSink{
		filePath: filePath,
	}
}

func (fs *FileSink) Name() string {
	return "file"
}

func (fs *FileSink) Persist(_ context.Context, content []byte) (string, error) {
	l := logger.WithComponent("Subscription/Sink")

	dir := filepath.Dir(fs.filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", &PersistError{Destination: fs.filePath, Err: err}
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(fs.filePath)+".*.tmp")
	if err != nil {
		return "", &PersistError{Destination: fs.filePath, Err: err}
	}
	tmpName := tmp.Name()
	cleanup := func(cause error) (string, error) {
		tmp.Close()
		os.Remove(tmpName)
		return "", &PersistError{Destination: fs.filePath, Err: cause}
	}

	if _, err := tmp.Write(content); err != nil {
		return cleanup(fmt.Errorf("write: %w", err))
	}
	if err := tmp.Sync(); err != nil {
		return cleanup(fmt.Errorf("sync: %w", err))
	}
	if err := tmp.Chmod(0644); err != nil {
		return cleanup(fmt.Errorf("chmod: %w", err))
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", &PersistError{Destination: fs.filePath, Err: fmt.Errorf("close: %w", err)}
	}
	if err := os.Rename(tmpName, fs.filePath); err != nil {
		os.Remove(tmpName)
		return "", &PersistError{Destination: fs.filePath, Err: fmt.Errorf("rename: %w", err)}
	}

	l.Info().Str("path", fs.filePath).Int("bytes", len(content)).Msg("Successfully saved document to file.")
	return fs.filePath, nil
}
