package prompt

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
)

func interactive() bool { return true }

func TestTerminalConfirm(t *testing.T) {
	tests := []struct {
		input    string
		expected bool
		wantErr  bool
	}{
		{"y\n", true, false},
		{"Y\n", true, false},
		{"yes\n", true, false},
		{"  y  \n", true, false},
		{"n\n", false, false},
		{"\n", false, false},
		{"YES\n", false, false},
		{"y", true, false},
		{"", false, true},
	}

	for _, tt := range tests {
		t.Run(strings.TrimSpace(tt.input), func(t *testing.T) {
			var out bytes.Buffer
			p := &Terminal{In: strings.NewReader(tt.input), Out: &out, IsTerminal: interactive}

			got, err := p.Confirm(context.Background(), "Push?")
			if (err != nil) != tt.wantErr {
				t.Fatalf("Confirm() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.expected {
				t.Errorf("Confirm(%q) = %v, expected %v", tt.input, got, tt.expected)
			}
			if out.String() != "Push? " {
				t.Errorf("Unexpected prompt output %q", out.String())
			}
		})
	}
}

func TestTerminalReadsSuccessiveAnswers(t *testing.T) {
	p := &Terminal{In: strings.NewReader("y\nn\n"), Out: &bytes.Buffer{}, IsTerminal: interactive}

	first, err := p.Confirm(context.Background(), "first?")
	if err != nil || !first {
		t.Fatalf("Expected first answer yes, got %v, %v", first, err)
	}
	second, err := p.Confirm(context.Background(), "second?")
	if err != nil || second {
		t.Fatalf("Expected second answer no, got %v, %v", second, err)
	}
}

func TestTerminalCancelledReadAnswersNextQuestion(t *testing.T) {
	in, w := io.Pipe()
	defer func() { _ = w.Close() }()
	p := &Terminal{In: in, Out: &bytes.Buffer{}, IsTerminal: interactive}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := p.Confirm(ctx, "first?"); !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}

	go func() { _, _ = io.WriteString(w, "y\n") }()
	got, err := p.Confirm(context.Background(), "second?")
	if err != nil || !got {
		t.Fatalf("Expected second answer yes, got %v, %v", got, err)
	}
}

func TestTerminalNotInteractive(t *testing.T) {
	p := &Terminal{In: strings.NewReader("y\n"), Out: &bytes.Buffer{}, IsTerminal: func() bool { return false }}
	if _, err := p.Confirm(context.Background(), "Push?"); err != ErrNotInteractive {
		t.Errorf("Expected ErrNotInteractive, got %v", err)
	}
}

func TestStatic(t *testing.T) {
	yes, _ := Static(true).Confirm(context.Background(), "anything")
	no, _ := Static(false).Confirm(context.Background(), "anything")
	if !yes || no {
		t.Errorf("Static answers wrong: yes=%v no=%v", yes, no)
	}
}
