package pdf

import (
	"context"
	"strings"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/orientation"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

type PDFProvider struct {
	issuer string
}

func New(issuer string) Provider {
	if strings.TrimSpace(issuer) == "" {
		issuer = "Academy"
	}
	return &PDFProvider{issuer: issuer}
}

var accent = &props.Color{Red: 128, Green: 0, Blue: 32}

func (p *PDFProvider) RenderCertificate(ctx context.Context, data CertificateData) ([]byte, error) {
	if strings.TrimSpace(data.StudentName) == "" || strings.TrimSpace(data.CourseTitle) == "" {
		return nil, ErrInvalidCertificate
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cfg := config.NewBuilder().
		WithOrientation(orientation.Horizontal).
		WithPageSize(pagesize.A4).
		WithLeftMargin(20).
		WithRightMargin(20).
		WithTopMargin(25).
		Build()

	m := maroto.New(cfg)

	m.AddRow(20,
		text.NewCol(12, p.issuer, props.Text{
			Size:  14,
			Style: fontstyle.Bold,
			Align: align.Center,
			Color: accent,
		}),
	)
	m.AddRow(25,
		text.NewCol(12, "Certificate of Completion", props.Text{
			Size:  30,
			Style: fontstyle.Bold,
			Align: align.Center,
		}),
	)
	m.AddRow(12,
		text.NewCol(12, "This certifies that", props.Text{Size: 12, Align: align.Center}),
	)
	m.AddRow(20,
		text.NewCol(12, data.StudentName, props.Text{
			Size:  24,
			Style: fontstyle.BoldItalic,
			Align: align.Center,
			Color: accent,
		}),
	)
	m.AddRow(12,
		text.NewCol(12, "has successfully completed the course", props.Text{Size: 12, Align: align.Center}),
	)
	m.AddRow(20,
		text.NewCol(12, data.CourseTitle, props.Text{
			Size:  18,
			Style: fontstyle.Bold,
			Align: align.Center,
		}),
	)

	m.AddRow(30,
		col.New(6).Add(
			text.New("Issued", props.Text{Size: 9, Style: fontstyle.Bold, Top: 10}),
			text.New(data.IssuedAt.UTC().Format("2 January 2006"), props.Text{Size: 10, Top: 15}),
		),
		col.New(6).Add(
			text.New("Certificate ID", props.Text{Size: 9, Style: fontstyle.Bold, Align: align.Right, Top: 10}),
			text.New(data.CertificateID, props.Text{Size: 10, Align: align.Right, Top: 15}),
		),
	)

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}
	return doc.GetBytes(), nil
}
