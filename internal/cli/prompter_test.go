package cli

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/mdwhitten/tabulate/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadLine(t *testing.T) {
	p := NewPrompter(strings.NewReader("  hello world  \nsecond\n"), io.Discard)

	line, err := p.ReadLine(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "hello world", line)

	line, err = p.ReadLine(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "second", line)

	_, err = p.ReadLine(context.Background())
	assert.ErrorIs(t, err, io.EOF)
}

func TestReadLine_ContextCancel(t *testing.T) {
	// A reader that never produces input.
	blocked, _ := io.Pipe()
	p := NewPrompter(blocked, io.Discard)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := p.ReadLine(ctx)
	assert.ErrorIs(t, err, ErrInputCancelled)
}

func TestConfirm(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"Y\n", true},
		{"yes\n", true},
		{"n\n", false},
		{"no\n", false},
		{"\n", false},
		{"maybe\n", false},
	}

	for _, tt := range tests {
		t.Run(strings.TrimSpace(tt.input)+"_input", func(t *testing.T) {
			out := &bytes.Buffer{}
			p := NewPrompter(strings.NewReader(tt.input), out)

			got, err := p.Confirm(context.Background(), "Proceed?")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Contains(t, out.String(), "Proceed?")
		})
	}
}

func TestConfirmDuplicates(t *testing.T) {
	total := 25.48
	matches := []model.DuplicateMatch{
		{ID: 7, StoreName: "Costco", ReceiptDate: "2025-06-15", Total: &total, Status: model.StatusPending},
		{ID: 9, StoreName: "Costco", ReceiptDate: "2025-06-15", Status: model.StatusVerified},
	}

	out := &bytes.Buffer{}
	p := NewPrompter(strings.NewReader("y\n"), out)

	proceed, err := p.ConfirmDuplicates(context.Background(), matches)
	require.NoError(t, err)
	assert.True(t, proceed)

	rendered := out.String()
	assert.Contains(t, rendered, "Possible duplicate receipts")
	assert.Contains(t, rendered, "#7")
	assert.Contains(t, rendered, "$25.48")
	assert.Contains(t, rendered, "Save anyway?")
}
