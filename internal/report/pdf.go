package report

import (
	"context"
	"fmt"
)

// PageOptions describes the printed page. Sizes are in inches.
type PageOptions struct {
	PaperWidth      float64
	PaperHeight     float64
	Margin          float64
	PrintBackground bool
}

// A4 with printed backgrounds and a 20px (CSS pixel, 1/96in) margin on every side.
var A4 = PageOptions{
	PaperWidth:      8.27,
	PaperHeight:     11.69,
	Margin:          20.0 / 96.0,
	PrintBackground: true,
}

// Session is one open document in a rendering engine.
type Session interface {
	SetContent(ctx context.Context, markup string) error
	PrintPDF(ctx context.Context, opts PageOptions) ([]byte, error)
	Close() error
}

// Engine opens rendering sessions. Every opened session must be closed.
type Engine interface {
	Open(ctx context.Context) (Session, error)
}

// RenderPDF renders entries into an A4 PDF. The session is closed on every
// return path, including a panic while setting content or printing.
func RenderPDF(ctx context.Context, engine Engine, entries []Entry) (pdf []byte, err error) {
	markup, err := Markup(entries)
	if err != nil {
		return nil, err
	}

	session, err := engine.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("open render session: %w", err)
	}
	defer func() {
		if cerr := session.Close(); cerr != nil && err == nil {
			pdf, err = nil, fmt.Errorf("close render session: %w", cerr)
		}
	}()

	if err := session.SetContent(ctx, markup); err != nil {
		return nil, fmt.Errorf("set report content: %w", err)
	}
	pdf, err = session.PrintPDF(ctx, A4)
	if err != nil {
		return nil, fmt.Errorf("print pdf: %w", err)
	}
	return pdf, nil
}
