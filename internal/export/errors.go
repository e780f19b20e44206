// Package export turns a valuation result into shareable artifacts: a Markdown
// summary, an uploaded image link, or clipboard text.
package export

import "errors"

var (
	ErrNoResult             = errors.New("no valuation result to export")
	ErrUploadFailure        = errors.New("image upload failed")
	ErrCopyFailure          = errors.New("copy to clipboard failed")
	ErrClipboardUnsupported = errors.New("clipboard not supported in this environment")
)

// User-facing notices, matching the wording of the web page.
const (
	NoticeNoResult    = "请先完成计算再分享"
	NoticeCopied      = "Markdown 内容已复制到剪切板"
	NoticeCopyFailed  = "自动复制失败，请手动复制下方内容"
	NoticeUnsupported = "当前环境不支持自动复制，请手动复制下方内容"
)
