// Package captions gom caption theo từ thành các trang phụ đề và chọn trang/từ đang hiển thị theo frame.
package captions

import (
	"strings"
	"unicode/utf8"

	"shorts_farm/internal/api/studio/models"
)

// Giá trị mặc định khi hiển thị phụ đề
const (
	DefaultCombineWithinMs = 1000
	DefaultMaxCharsPerLine = 42
	DefaultLinesPerPage    = 3
	WordFadeInFrames       = 15
)

// Options cấu hình gom trang và ngắt dòng
type Options struct {
	// Hai token liên tiếp cách nhau không quá CombineWithinMs thì chung một trang
	CombineWithinMs int64
	MaxCharsPerLine int
	LinesPerPage    int
}

// DefaultOptions cấu hình mặc định
func DefaultOptions() Options {
	return Options{
		CombineWithinMs: DefaultCombineWithinMs,
		MaxCharsPerLine: DefaultMaxCharsPerLine,
		LinesPerPage:    DefaultLinesPerPage,
	}
}

func (o Options) normalized() Options {
	if o.CombineWithinMs < 0 {
		o.CombineWithinMs = 0
	}
	if o.MaxCharsPerLine <= 0 {
		o.MaxCharsPerLine = DefaultMaxCharsPerLine
	}
	if o.LinesPerPage <= 0 {
		o.LinesPerPage = DefaultLinesPerPage
	}
	return o
}

// Token một từ/cụm từ trong trang
type Token struct {
	Text   string `json:"text"`
	FromMs int64  `json:"fromMs"`
	ToMs   int64  `json:"toMs"`
}

// Page một trang phụ đề, hiển thị trong [StartMs, StartMs+DurationMs)
type Page struct {
	Text       string  `json:"text"`
	StartMs    int64   `json:"startMs"`
	DurationMs int64   `json:"durationMs"`
	Tokens     []Token `json:"tokens"`
}

// EndMs thời điểm kết thúc (không bao gồm)
func (p Page) EndMs() int64 {
	return p.StartMs + p.DurationMs
}

// Line một dòng hiển thị của trang
type Line struct {
	Tokens []Token `json:"tokens"`
}

// Text nội dung dòng đã trim
func (l Line) Text() string {
	var b strings.Builder
	for _, t := range l.Tokens {
		b.WriteString(t.Text)
	}
	return strings.TrimSpace(b.String())
}

// CreatePages gom caption (đã sắp theo thời gian) thành các trang, chỉ tách trang khi khoảng nghỉ
// từ cuối trang hiện tại lớn hơn CombineWithinMs. Token không phải token đầu trang có khoảng trắng ở đầu.
// Trang kéo dài tới đầu trang kế tiếp; trang cuối kết thúc ở token cuối.
func CreatePages(caps []models.Caption, opts Options) []Page {
	opts = opts.normalized()
	pages := []Page{}

	var cur *Page
	var curEnd int64
	flush := func() {
		if cur == nil {
			return
		}
		cur.DurationMs = curEnd - cur.StartMs
		if cur.DurationMs < 0 {
			cur.DurationMs = 0
		}
		cur.Text = strings.TrimSpace(cur.Text)
		pages = append(pages, *cur)
		cur = nil
	}

	for _, c := range caps {
		text := strings.TrimSpace(c.Text)
		if text == "" {
			continue
		}
		if cur != nil && c.StartMs-curEnd > opts.CombineWithinMs {
			flush()
		}
		if cur == nil {
			cur = &Page{StartMs: c.StartMs, Tokens: []Token{}}
			curEnd = c.EndMs
			cur.Text = text
			cur.Tokens = append(cur.Tokens, Token{Text: text, FromMs: c.StartMs, ToMs: c.EndMs})
			continue
		}
		tokenText := " " + text
		cur.Text += tokenText
		cur.Tokens = append(cur.Tokens, Token{Text: tokenText, FromMs: c.StartMs, ToMs: c.EndMs})
		if c.EndMs > curEnd {
			curEnd = c.EndMs
		}
	}
	flush()
	for i := 0; i+1 < len(pages); i++ {
		pages[i].DurationMs = pages[i+1].StartMs - pages[i].StartMs
	}
	return pages
}

// WrapLines ngắt các token của trang thành dòng, mỗi dòng không quá maxChars ký tự
// (trừ khi một token đơn lẻ đã dài hơn maxChars).
func WrapLines(page Page, maxChars int) []Line {
	if maxChars <= 0 {
		maxChars = DefaultMaxCharsPerLine
	}
	lines := []Line{}
	current := Line{}
	for _, tok := range page.Tokens {
		candidate := Line{Tokens: append(append([]Token{}, current.Tokens...), tok)}
		if utf8.RuneCountInString(candidate.Text()) > maxChars && len(current.Tokens) > 0 {
			lines = append(lines, current)
			current = Line{Tokens: []Token{tok}}
			continue
		}
		current = candidate
	}
	if len(current.Tokens) > 0 {
		lines = append(lines, current)
	}
	return lines
}

// VisibleLines chỉ giữ tối đa linesPerPage dòng đầu, phần dư không hiển thị
func VisibleLines(lines []Line, linesPerPage int) []Line {
	if linesPerPage <= 0 {
		linesPerPage = DefaultLinesPerPage
	}
	if len(lines) <= linesPerPage {
		return lines
	}
	return lines[:linesPerPage]
}

// frameToMs thời điểm phát (ms, có phần lẻ) ứng với frame
func frameToMs(frame, fps int) float64 {
	if fps <= 0 {
		return 0
	}
	return float64(frame) * 1000 / float64(fps)
}

// ActivePage trang đang hiển thị tại frame; false nếu không có trang nào
func ActivePage(pages []Page, frame, fps int) (Page, int, bool) {
	if fps <= 0 {
		return Page{}, -1, false
	}
	t := frameToMs(frame, fps)
	for i, p := range pages {
		if t >= float64(p.StartMs) && t < float64(p.EndMs()) {
			return p, i, true
		}
	}
	return Page{}, -1, false
}

// IsTokenActive token đang được nói tại frame: [FromMs, ToMs)
func IsTokenActive(tok Token, frame, fps int) bool {
	if fps <= 0 {
		return false
	}
	t := frameToMs(frame, fps)
	return t >= float64(tok.FromMs) && t < float64(tok.ToMs)
}

// WordOpacity độ mờ khi từ xuất hiện (fade-in WordFadeInFrames frame kể từ đầu trang)
func WordOpacity(page Page, frame, fps int) float64 {
	if fps <= 0 {
		return 1
	}
	startFrame := float64(page.StartMs) * float64(fps) / 1000
	progress := (float64(frame) - startFrame) / WordFadeInFrames
	switch {
	case progress <= 0:
		return 0
	case progress >= 1:
		return 1
	}
	return progress
}

// DisplayToken token hiển thị kèm trạng thái highlight
type DisplayToken struct {
	Token
	Active bool `json:"active"`
}

// Display nội dung phụ đề cần vẽ tại một frame
type Display struct {
	PageIndex int              `json:"pageIndex"`
	Page      Page             `json:"page"`
	Lines     [][]DisplayToken `json:"lines"`
	Opacity   float64          `json:"opacity"`
}

// Paginator giữ danh sách trang đã tính sẵn cho một script
type Paginator struct {
	pages []Page
	fps   int
	opts  Options
}

// NewPaginator tính trang một lần cho toàn bộ caption
func NewPaginator(caps []models.Caption, fps int, opts Options) *Paginator {
	opts = opts.normalized()
	return &Paginator{pages: CreatePages(caps, opts), fps: fps, opts: opts}
}

// Pages danh sách trang
func (p *Paginator) Pages() []Page {
	return p.pages
}

// At nội dung phụ đề tại frame; nil nếu không có trang nào đang hiển thị
func (p *Paginator) At(frame int) *Display {
	page, idx, ok := ActivePage(p.pages, frame, p.fps)
	if !ok {
		return nil
	}
	lines := VisibleLines(WrapLines(page, p.opts.MaxCharsPerLine), p.opts.LinesPerPage)
	out := &Display{PageIndex: idx, Page: page, Opacity: WordOpacity(page, frame, p.fps)}
	for _, l := range lines {
		row := make([]DisplayToken, 0, len(l.Tokens))
		for _, tok := range l.Tokens {
			row = append(row, DisplayToken{Token: tok, Active: IsTokenActive(tok, frame, p.fps)})
		}
		out.Lines = append(out.Lines, row)
	}
	return out
}
