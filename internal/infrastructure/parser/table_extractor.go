package parser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"DirectoryHarvester/internal/domain"
	"DirectoryHarvester/internal/ports"
)

const (
	// TableSelector locates the directory table.
	TableSelector = "table.slds-table"
	// RowSelector locates the directory rows across every matching table.
	RowSelector = "table.slds-table tbody tr"

	minDataCells = 3
)

// ErrRowParse marks a row whose fields could not be read.
var ErrRowParse = errors.New("row parse error")

// blockTags separate words the way the rendered layout does.
var blockTags = map[string]bool{
	"address": true, "article": true, "br": true, "dd": true, "div": true, "dl": true,
	"dt": true, "footer": true, "h1": true, "h2": true, "h3": true, "h4": true,
	"h5": true, "h6": true, "header": true, "hr": true, "li": true, "ol": true,
	"p": true, "section": true, "ul": true,
}

// TableExtractor reads directory rows from the rendered table.
// Records and fingerprints are read through the same row parser, so a
// fingerprint always equals domain.Fingerprint of the records Extract returns.
type TableExtractor struct {
	waitTimeout time.Duration
	logger      *slog.Logger
}

var _ ports.RecordExtractor = (*TableExtractor)(nil)

// NewTableExtractor wires the table wait timeout; it defaults to 60s.
func NewTableExtractor(waitTimeout time.Duration, log *slog.Logger) *TableExtractor {
	if waitTimeout <= 0 {
		waitTimeout = 60 * time.Second
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &TableExtractor{waitTimeout: waitTimeout, logger: log}
}

// Extract returns the records of the current page. It never fails: a missing
// table or unreadable rows yield an empty slice and a log line.
func (x *TableExtractor) Extract(ctx context.Context, page ports.Page) []domain.Record {
	if _, err := page.WaitForSelector(ctx, TableSelector, x.waitTimeout); err != nil {
		if errors.Is(err, ports.ErrTimeout) {
			x.logger.Warn("timeout waiting for table to load", "selector", TableSelector, "timeout", x.waitTimeout)
		} else {
			x.logger.Error("wait for table", "error", err)
		}
		return nil
	}

	rows, err := page.QuerySelectorAll(ctx, RowSelector)
	if err != nil {
		x.logger.Error("query rows", "error", err)
		return nil
	}

	var records []domain.Record
	for i, row := range rows {
		record, ok, err := readRow(row)
		if err != nil {
			x.logger.Warn("error processing row", "row", i, "error", err)
			continue
		}
		if ok {
			records = append(records, record)
		}
	}
	return records
}

// ReadFingerprint returns the cleaned member name of the first qualifying row,
// reporting false when no such row is rendered.
func (x *TableExtractor) ReadFingerprint(ctx context.Context, page ports.Page) (string, bool) {
	rows, err := page.QuerySelectorAll(ctx, RowSelector)
	if err != nil {
		x.logger.Debug("read fingerprint", "error", err)
		return "", false
	}

	for _, row := range rows {
		record, ok, err := readRow(row)
		if err != nil || !ok {
			continue
		}
		return record.MemberName, record.MemberName != ""
	}
	return "", false
}

func readRow(row ports.Element) (domain.Record, bool, error) {
	markup, err := row.HTML()
	if err != nil {
		return domain.Record{}, false, fmt.Errorf("read row markup: %w", err)
	}
	return parseRow(markup)
}

// parseRow converts one <tr> into a record. Rows with fewer than three data
// cells are skipped; a row without a header cell is an ErrRowParse.
func parseRow(markup string) (domain.Record, bool, error) {
	// A bare <tr> outside a table is dropped by the HTML parser.
	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<table><tbody>" + markup + "</tbody></table>"))
	if err != nil {
		return domain.Record{}, false, fmt.Errorf("parse row: %w", err)
	}

	tr := doc.Find("tbody > tr").First()
	cells := tr.ChildrenFiltered("td")
	if cells.Length() < minDataCells {
		return domain.Record{}, false, nil
	}

	header := tr.ChildrenFiltered("th").First()
	if header.Length() == 0 {
		return domain.Record{}, false, fmt.Errorf("%w: missing header cell", ErrRowParse)
	}

	return domain.Record{
		MemberName:   domain.CleanMemberName(cellText(header)),
		Designations: cellText(cells.Eq(0)),
		Employer:     cellText(cells.Eq(1)),
		EmployerCity: cellText(cells.Eq(2)),
	}, true, nil
}

// cellText returns the visible text of a cell with whitespace collapsed.
// Block children are word boundaries; hidden elements are skipped.
func cellText(s *goquery.Selection) string {
	var b strings.Builder
	var walk func(*goquery.Selection)
	walk = func(sel *goquery.Selection) {
		sel.Contents().Each(func(_ int, c *goquery.Selection) {
			name := goquery.NodeName(c)
			switch {
			case name == "#text":
				b.WriteString(c.Text())
			case strings.HasPrefix(name, "#"), name == "script", name == "style", isHidden(c):
			case blockTags[name]:
				b.WriteByte(' ')
				walk(c)
				b.WriteByte(' ')
			default:
				walk(c)
			}
		})
	}
	walk(s)
	return strings.Join(strings.Fields(b.String()), " ")
}

func isHidden(s *goquery.Selection) bool {
	if _, ok := s.Attr("hidden"); ok {
		return true
	}
	style := strings.ReplaceAll(strings.ToLower(s.AttrOr("style", "")), " ", "")
	return strings.Contains(style, "display:none")
}
