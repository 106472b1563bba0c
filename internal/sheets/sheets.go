// Package sheets persists filtered records to a spreadsheet, one sheet
// per month. The sixth column holds the source URL; the duplicate
// check reads that column by position, so the column order is a
// contract shared with every past row already in the spreadsheet.
package sheets

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"

	"github.com/hsugimura/eizocrawl/internal/filter"
)

// Sink is the destination table contract the pipeline writes through.
type Sink interface {
	ExistingURLs(ctx context.Context) ([]string, error)
	Append(ctx context.Context, records []filter.Record) (int, error)
}

// headerRow is the fixed column order of every monthly sheet.
var headerRow = []interface{}{"取得日", "都道府県", "案件名", "概要", "締切", "掲載URL", "申込URL"}

// sourceURLColumn is the positional range the duplicate check reads.
const sourceURLColumn = "F2:F"

// GoogleSink appends records to a Google spreadsheet.
type GoogleSink struct {
	svc           *gsheets.Service
	spreadsheetID string
	sheetPrefix   string
	month         time.Time
	logger        *zap.Logger
}

// NewGoogleSink builds a sink writing to the month that contains
// today. credentialsFile may be empty, in which case application
// default credentials apply.
func NewGoogleSink(ctx context.Context, spreadsheetID, sheetPrefix, credentialsFile string, today time.Time, logger *zap.Logger) (*GoogleSink, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	svc, err := gsheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return &GoogleSink{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetPrefix:   sheetPrefix,
		month:         today,
		logger:        logger,
	}, nil
}

// sheetName returns the month-scoped sheet title, e.g. 映像案件_2026年08月.
func (s *GoogleSink) sheetName() string {
	return fmt.Sprintf("%s_%d年%02d月", s.sheetPrefix, s.month.Year(), int(s.month.Month()))
}

// ExistingURLs collects the source-URL column from every sheet carrying
// this sink's prefix, across all months.
func (s *GoogleSink) ExistingURLs(ctx context.Context) ([]string, error) {
	meta, err := s.svc.Spreadsheets.Get(s.spreadsheetID).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("spreadsheet metadata: %w", err)
	}

	var urls []string
	for _, sh := range meta.Sheets {
		title := sh.Properties.Title
		if !strings.HasPrefix(title, s.sheetPrefix) {
			continue
		}
		rng := fmt.Sprintf("'%s'!%s", title, sourceURLColumn)
		resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, rng).Context(ctx).Do()
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", rng, err)
		}
		for _, row := range resp.Values {
			if len(row) == 0 {
				continue
			}
			if u, ok := row[0].(string); ok && u != "" {
				urls = append(urls, u)
			}
		}
	}
	s.logger.Info("existing urls loaded", zap.Int("count", len(urls)))
	return urls, nil
}

// Append writes records to this month's sheet, creating it with a
// header row the first time a month sees a record.
func (s *GoogleSink) Append(ctx context.Context, records []filter.Record) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	if err := s.ensureSheet(ctx); err != nil {
		return 0, err
	}

	rows := make([][]interface{}, 0, len(records))
	for _, r := range records {
		rows = append(rows, []interface{}{
			r.CapturedAt, r.Prefecture, r.Title, r.Summary, r.Deadline, r.SourceURL, r.ApplicationURL,
		})
	}
	vr := &gsheets.ValueRange{Values: rows}
	rng := fmt.Sprintf("'%s'!A1", s.sheetName())
	_, err := s.svc.Spreadsheets.Values.Append(s.spreadsheetID, rng, vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("append to %s: %w", s.sheetName(), err)
	}
	return len(records), nil
}

func (s *GoogleSink) ensureSheet(ctx context.Context) error {
	meta, err := s.svc.Spreadsheets.Get(s.spreadsheetID).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("spreadsheet metadata: %w", err)
	}
	name := s.sheetName()
	for _, sh := range meta.Sheets {
		if sh.Properties.Title == name {
			return nil
		}
	}

	s.logger.Info("creating monthly sheet", zap.String("sheet", name))
	req := &gsheets.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheets.Request{{
			AddSheet: &gsheets.AddSheetRequest{
				Properties: &gsheets.SheetProperties{Title: name},
			},
		}},
	}
	if _, err := s.svc.Spreadsheets.BatchUpdate(s.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("add sheet %s: %w", name, err)
	}

	header := &gsheets.ValueRange{Values: [][]interface{}{headerRow}}
	_, err = s.svc.Spreadsheets.Values.Update(s.spreadsheetID, fmt.Sprintf("'%s'!A1", name), header).
		ValueInputOption("RAW").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("write header for %s: %w", name, err)
	}
	return nil
}
