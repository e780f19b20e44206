package export

import (
	"errors"
	"fmt"

	"github.com/atotto/clipboard"
)

// Copier writes text to a clipboard.
type Copier interface {
	WriteAll(text string) error
}

// SystemClipboard is the host clipboard.
type SystemClipboard struct{}

// WriteAll implements Copier.
func (SystemClipboard) WriteAll(text string) error {
	if clipboard.Unsupported {
		return ErrClipboardUnsupported
	}
	return clipboard.WriteAll(text)
}

// Copy writes text through c. Failures wrap ErrCopyFailure; an unsupported
// clipboard also matches ErrClipboardUnsupported.
func Copy(c Copier, text string) error {
	if c == nil {
		return fmt.Errorf("%w: %w", ErrCopyFailure, ErrClipboardUnsupported)
	}
	if err := c.WriteAll(text); err != nil {
		if errors.Is(err, ErrClipboardUnsupported) {
			return fmt.Errorf("%w: %w", ErrCopyFailure, err)
		}
		return fmt.Errorf("%w: %v", ErrCopyFailure, err)
	}
	return nil
}

// CopyNotice maps the outcome of Copy to the message shown to the user.
func CopyNotice(err error) string {
	switch {
	case err == nil:
		return NoticeCopied
	case errors.Is(err, ErrClipboardUnsupported):
		return NoticeUnsupported
	default:
		return NoticeCopyFailed
	}
}
