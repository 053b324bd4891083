package sink

import (
	"context"
	"fmt"
)

// Sink 接口定义了序列化结果的持久化行为。
type Sink interface {
	// Persist 写入完整的内容并返回结果所在的位置 (文件路径或公开链接)。
	Persist(ctx context.Context, content []byte) (string, error)

	// Name 返回目标的名称，用于日志记录。
	Name() string
}

// PersistError 表示本地写入失败或远程存储返回了非成功状态。
type PersistError struct {
	Destination string
	StatusCode  int    // 仅远程存储
	Body        string // 仅远程存储, 响应体
	Err         error
}

func (e *PersistError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("persist to %s failed: status code %d, response: %s", e.Destination, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("persist to %s failed: %v", e.Destination, e.Err)
}

func (e *PersistError) Unwrap() error { return e.Err }
