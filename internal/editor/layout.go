package editor

import (
	"fmt"
	"strings"

	"github.com/ashureev/midori/internal/apperr"
)

// Layout selects which panes the editor shows.
type Layout string

const (
	LayoutCode    Layout = "code"
	LayoutPreview Layout = "preview"
	LayoutSplit   Layout = "split"
)

// ParseLayout accepts code, preview or split.
func ParseLayout(s string) (Layout, error) {
	switch l := Layout(strings.ToLower(strings.TrimSpace(s))); l {
	case LayoutCode, LayoutPreview, LayoutSplit:
		return l, nil
	default:
		return "", apperr.Validation(fmt.Sprintf("unknown layout %q", s))
	}
}

// ShowsCode reports whether the code pane is visible.
func (l Layout) ShowsCode() bool { return l == LayoutCode || l == LayoutSplit }

// ShowsPreview reports whether the preview pane is visible.
func (l Layout) ShowsPreview() bool { return l == LayoutPreview || l == LayoutSplit }
