package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"

	"github.com/tadeyemo32/outreach-batcher/batching"
)

var (
	sheetPathRe  = regexp.MustCompile(`/spreadsheets/d/([a-zA-Z0-9-_]+)`)
	sheetQueryRe = regexp.MustCompile(`id=([a-zA-Z0-9-_]+)`)

	ErrEmptySheet = errors.New("sheet has no data rows")
)

// SheetID extracts the spreadsheet id from a sharing or direct link.
func SheetID(sheetURL string) (string, error) {
	if m := sheetPathRe.FindStringSubmatch(sheetURL); m != nil {
		return m[1], nil
	}
	if m := sheetQueryRe.FindStringSubmatch(sheetURL); m != nil {
		return m[1], nil
	}
	return "", fmt.Errorf("could not extract sheet id from %q", sheetURL)
}

// SheetFetcher downloads a Google Sheet through its public CSV export.
type SheetFetcher struct {
	BaseURL string
	Client  *http.Client
	Limiter *HostLimiter
}

func (f *SheetFetcher) ExportURL(id string) string {
	return fmt.Sprintf("%s/spreadsheets/d/%s/export?format=csv", endpoint(f.BaseURL, "https://docs.google.com"), id)
}

func (f *SheetFetcher) Fetch(ctx context.Context, sheetURL string) (*batching.Table, error) {
	id, err := SheetID(sheetURL)
	if err != nil {
		return nil, err
	}
	u := f.ExportURL(id)
	if err := f.Limiter.WaitURL(ctx, u); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return nil, err
	}
	client := f.Client
	if client == nil {
		client = defaultHTTPClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch sheet: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch sheet: HTTP %d (is the sheet shared publicly?)", resp.StatusCode)
	}

	table, err := batching.ReadCSV(resp.Body)
	if err != nil {
		return nil, err
	}
	if table.Len() == 0 {
		return nil, ErrEmptySheet
	}
	return table, nil
}
