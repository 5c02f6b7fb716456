package service

import (
	"errors"
	"fmt"
)

// Kind 错误分类，决定 HTTP 层返回的状态码
type Kind int

const (
	KindUpstream Kind = iota + 1 // 文本或图像服务失败、超时或无输出
	KindParse                    // 模型输出中没有合法的故事对象
	KindStorage                  // 资源上传或记录读写失败
	KindNotFound                 // 故事或页面不存在
)

func (k Kind) String() string {
	switch k {
	case KindUpstream:
		return "upstream"
	case KindParse:
		return "parse"
	case KindStorage:
		return "storage"
	case KindNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// 与 errors.Is 搭配使用的哨兵
var (
	ErrUpstream = &Error{Kind: KindUpstream}
	ErrParse    = &Error{Kind: KindParse}
	ErrStorage  = &Error{Kind: KindStorage}
	ErrNotFound = &Error{Kind: KindNotFound}
)

// ErrPageNotFound 故事存在但没有请求的页码，包装在 KindNotFound 错误内
var ErrPageNotFound = errors.New("page not found")

// Error 流水线错误，Op 标明失败的步骤
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	case e.Err != nil:
		return e.Err.Error()
	case e.Op != "":
		return e.Op
	default:
		return e.Kind.String() + " error"
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is 同类即匹配，忽略 Op 与底层错误
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

func newError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf 取出错误分类，非流水线错误返回 0
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
