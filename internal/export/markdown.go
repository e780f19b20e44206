package export

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/iwvelando/remaining-value/internal/valuation"
	"github.com/iwvelando/remaining-value/pkg/constants"
	"github.com/iwvelando/remaining-value/pkg/format"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

// Document is everything a summary shows.
type Document struct {
	DataDate    string
	Result      valuation.Result
	GeneratedAt time.Time
}

const fence = "```"

// Markdown renders doc as a fenced markdown block ready to paste into a forum
// post.
func Markdown(doc Document) string {
	var lines []string
	lines = append(lines, fence+"markdown")
	for _, section := range sections(doc) {
		lines = append(lines, section...)
	}
	lines = append(lines, fence)
	return strings.Join(lines, "\n")
}

// sections groups the summary lines; sections are separated by blank lines
// when the document is rendered to HTML.
func sections(doc Document) [][]string {
	r := doc.Result
	months, days := r.Breakdown()

	out := [][]string{{"# 剩余价值计算结果"}}
	if doc.DataDate != "" {
		out = append(out, []string{"> 汇率数据日期：" + doc.DataDate})
	}
	out = append(out, []string{
		"| 项目 | 数值 |",
		"| --- | --- |",
		fmt.Sprintf("| 续费金额（%s） | %s%s |", constants.ReferenceCurrency, format.CurrencySymbol, format.Fixed(r.PurchaseAmountRef)),
		fmt.Sprintf("| 剩余价值（%s） | %s%s |", constants.ReferenceCurrency, format.CurrencySymbol, format.Fixed(r.RemainingValueRef)),
		fmt.Sprintf("| 剩余天数 | %d 天 (%d 个月余 %d 天) |", r.RemainingDays, months, days),
		fmt.Sprintf("| 交易金额（%s） | %s%s |", constants.ReferenceCurrency, format.CurrencySymbol, format.Fixed(r.TradeAmountRef)),
		fmt.Sprintf("| 溢价金额（%s） | %s%s |", constants.ReferenceCurrency, format.CurrencySymbol, format.Fixed(r.PremiumRef)),
		fmt.Sprintf("| 溢价幅度 | %s |", format.Percent(r.PremiumPercent)),
		fmt.Sprintf("| 购买建议 | %s |", r.Recommendation.Label()),
	})
	out = append(out, []string{"生成于：" + doc.GeneratedAt.Format(constants.GeneratedAtLayout)})
	return out
}

var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#39;",
)

// EscapeHTML escapes text for inclusion in HTML.
func EscapeHTML(s string) string {
	return htmlEscaper.Replace(s)
}

// PreviewHTML shows the raw markdown inside a code block.
func PreviewHTML(markdown string) string {
	return `Markdown 分享内容：<pre><code class="language-markdown">` + EscapeHTML(markdown) + `</code></pre>`
}

func newMarkdown() goldmark.Markdown {
	return goldmark.New(goldmark.WithExtensions(extension.Table))
}

// RenderHTML renders the summary itself (not its source) to HTML. Raw HTML in
// interpolated values is dropped by the renderer.
func RenderHTML(doc Document) (string, error) {
	var blocks []string
	for _, section := range sections(doc) {
		blocks = append(blocks, strings.Join(section, "\n"))
	}
	source := []byte(strings.Join(blocks, "\n\n"))

	md := newMarkdown()
	root := md.Parser().Parse(text.NewReader(source))
	if !hasTable(root) {
		return "", fmt.Errorf("summary did not produce a table")
	}

	var buf bytes.Buffer
	if err := md.Renderer().Render(&buf, source, root); err != nil {
		return "", fmt.Errorf("failed to render summary: %w", err)
	}
	return buf.String(), nil
}

// ValidateMarkdown checks that markdown parses into a document containing the
// result table. A fenced summary is unwrapped first.
func ValidateMarkdown(markdown string) error {
	body := strings.TrimSpace(markdown)
	body = strings.TrimPrefix(body, fence+"markdown")
	body = strings.TrimSuffix(body, fence)

	root := newMarkdown().Parser().Parse(text.NewReader([]byte(body)))
	if !hasTable(root) {
		return fmt.Errorf("markdown has no table")
	}
	return nil
}

func hasTable(root ast.Node) bool {
	found := false
	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if entering && n.Kind() == extast.KindTable {
			found = true
			return ast.WalkStop, nil
		}
		return ast.WalkContinue, nil
	})
	return found
}
