package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/mdwhitten/tabulate/internal/model"
	"github.com/mdwhitten/tabulate/internal/review"
	"github.com/mdwhitten/tabulate/internal/session"
)

// ErrInputCancelled is returned when input is canceled by context.
var ErrInputCancelled = errors.New("input canceled")

// Prompter implements the interactive terminal surface for a review
// session: it renders the working view and collects user decisions.
type Prompter struct {
	writer      io.Writer
	reader      *bufio.Reader
	readingLock sync.Mutex
}

// NewPrompter creates a prompter over the given reader and writer,
// defaulting to stdin/stdout.
func NewPrompter(reader io.Reader, writer io.Writer) *Prompter {
	if reader == nil {
		reader = os.Stdin
	}
	if writer == nil {
		writer = os.Stdout
	}
	return &Prompter{
		reader: bufio.NewReader(reader),
		writer: writer,
	}
}

// ReadLine reads one trimmed input line, respecting context cancellation.
// Reads block in a goroutine so a canceled context returns immediately even
// though the underlying read may complete later.
func (p *Prompter) ReadLine(ctx context.Context) (string, error) {
	type result struct {
		err   error
		value string
	}
	resultCh := make(chan result, 1)

	go func() {
		p.readingLock.Lock()
		defer p.readingLock.Unlock()
		value, err := p.reader.ReadString('\n')
		resultCh <- result{value: value, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ErrInputCancelled
	case res := <-resultCh:
		if res.err != nil {
			return "", res.err
		}
		return strings.TrimSpace(res.value), nil
	}
}

// Confirm asks a yes/no question, defaulting to no.
func (p *Prompter) Confirm(ctx context.Context, question string) (bool, error) {
	fmt.Fprint(p.writer, FormatPrompt(question+" [y/N]"))
	line, err := p.ReadLine(ctx)
	if err != nil {
		return false, err
	}
	switch strings.ToLower(line) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// ConfirmDuplicates shows the duplicate matches and asks whether to save
// anyway. It satisfies session.ConfirmDuplicatesFunc.
func (p *Prompter) ConfirmDuplicates(ctx context.Context, matches []model.DuplicateMatch) (bool, error) {
	var b strings.Builder
	for _, m := range matches {
		total := "—"
		if m.Total != nil {
			total = fmt.Sprintf("$%.2f", *m.Total)
		}
		fmt.Fprintf(&b, "#%d  %s  %s  %s  (%s)\n", m.ID, m.StoreName, m.ReceiptDate, total, m.Status)
	}
	fmt.Fprintln(p.writer, RenderBox(
		fmt.Sprintf("%s Possible duplicate receipts", WarningIcon),
		strings.TrimRight(b.String(), "\n")))
	return p.Confirm(ctx, "Save anyway?")
}

// ShowSession renders the full working view: header, live items, local
// additions, balance verdict, and the unsaved-changes marker.
func (p *Prompter) ShowSession(s *session.Session) {
	baseline := s.Baseline()

	header := fmt.Sprintf("Receipt #%d  %s", baseline.ID, headerValue(s.StoreName()))
	if s.ReceiptDate() != "" {
		header += "  " + s.ReceiptDate()
	}
	header += SubtleStyle.Render("  [" + string(baseline.Status) + "]")
	if s.Dirty() {
		header += "  " + WarningStyle.Render(DirtyIcon+" unsaved changes")
	}
	fmt.Fprintln(p.writer, TitleStyle.Render(header))

	for _, item := range s.State().Items {
		marker := "  "
		if item.CategorySource == model.SourceManual {
			marker = SuccessStyle.Render(SuccessIcon) + " "
		}
		fmt.Fprintf(p.writer, "  %s[%d] %-32s %-16s $%.2f x%.0f\n",
			marker, item.ID, item.DisplayName(), SubtleStyle.Render(item.Category), item.Price, item.Quantity)
	}
	for _, item := range s.Locals() {
		fmt.Fprintf(p.writer, "  %s [%d] %-32s %-16s $%.2f\n",
			WarningStyle.Render("+"), item.ID, item.Name, SubtleStyle.Render(item.Category), item.Price)
	}

	p.ShowBalance(s.Balance())
}

// ShowBalance renders the verdict line.
func (p *Prompter) ShowBalance(result review.Result) {
	switch result.Verdict {
	case review.VerdictBalanced:
		fmt.Fprintln(p.writer, FormatSuccess(result.Title+" — "+result.Detail))
	case review.VerdictWarning:
		fmt.Fprintln(p.writer, FormatWarning(result.Title+" — "+result.Detail))
		if result.NeedsAdjustment() {
			fmt.Fprintln(p.writer, SubtleStyle.Render(
				fmt.Sprintf("  (type 'adjust' to add a $%.2f adjustment item)", result.Difference)))
		}
	case review.VerdictFailed:
		fmt.Fprintln(p.writer, FormatError(result.Title+" — "+result.Detail))
	}
}

// ShowError prints a user-facing error line.
func (p *Prompter) ShowError(message string) {
	fmt.Fprintln(p.writer, FormatError(message))
}

// ShowMessage prints a plain informational line.
func (p *Prompter) ShowMessage(message string) {
	fmt.Fprintln(p.writer, message)
}

func headerValue(v string) string {
	if v == "" {
		return "Unknown Store"
	}
	return v
}
