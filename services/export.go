package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/tadeyemo32/outreach-batcher/batching"
	"github.com/tadeyemo32/outreach-batcher/models"
)

// ExportedFile is where an annotated sheet ended up.
type ExportedFile struct {
	Name string
	Link string
}

type Exporter interface {
	Export(ctx context.Context, prefix string, t *batching.Table) (ExportedFile, error)
}

// ExportLedger records every export for later listing.
type ExportLedger interface {
	Record(ctx context.Context, run models.ExportRun) error
}

// ExportName is "{prefix}_{uuid}.csv".
func ExportName(prefix string) string {
	prefix = strings.Trim(strings.ReplaceAll(prefix, "/", "_"), "_ ")
	if prefix == "" {
		prefix = "report"
	}
	return fmt.Sprintf("%s_%s.csv", prefix, uuid.NewString())
}

func encodeCSV(t *batching.Table) ([]byte, error) {
	var buf bytes.Buffer
	if err := t.WriteCSV(&buf); err != nil {
		return nil, fmt.Errorf("encode csv: %w", err)
	}
	return buf.Bytes(), nil
}

// ─── Local directory ──────────────────────────────────────────────────────────

// LocalExporter writes into Dir, which the server exposes under /exports.
type LocalExporter struct {
	Dir           string
	PublicBaseURL string
}

func (e *LocalExporter) Export(ctx context.Context, prefix string, t *batching.Table) (ExportedFile, error) {
	raw, err := encodeCSV(t)
	if err != nil {
		return ExportedFile{}, err
	}
	if err := os.MkdirAll(e.Dir, 0o755); err != nil {
		return ExportedFile{}, fmt.Errorf("create export dir: %w", err)
	}
	name := ExportName(prefix)
	if err := os.WriteFile(filepath.Join(e.Dir, name), raw, 0o644); err != nil {
		return ExportedFile{}, fmt.Errorf("write export: %w", err)
	}
	link := strings.TrimRight(e.PublicBaseURL, "/") + "/exports/" + name
	log.Printf("[Export] Wrote %s (%d rows)", name, t.Len())
	return ExportedFile{Name: name, Link: link}, nil
}

// ─── Supabase storage ─────────────────────────────────────────────────────────

type SupabaseExporter struct {
	URL     string
	Key     string
	Bucket  string
	Client  *http.Client
	Limiter *HostLimiter
}

func (e *SupabaseExporter) Export(ctx context.Context, prefix string, t *batching.Table) (ExportedFile, error) {
	raw, err := encodeCSV(t)
	if err != nil {
		return ExportedFile{}, err
	}
	bucket := e.Bucket
	if bucket == "" {
		bucket = "exports"
	}
	base := strings.TrimRight(e.URL, "/")
	name := ExportName(prefix)
	path := bucket + "/" + name

	uploadURL := base + "/storage/v1/object/" + path
	if err := e.Limiter.WaitURL(ctx, uploadURL); err != nil {
		return ExportedFile{}, err
	}
	req, err := http.NewRequestWithContext(ctx, "POST", uploadURL, bytes.NewReader(raw))
	if err != nil {
		return ExportedFile{}, err
	}
	req.Header.Set("apikey", e.Key)
	req.Header.Set("Authorization", "Bearer "+e.Key)
	req.Header.Set("Content-Type", "text/csv")

	client := e.Client
	if client == nil {
		client = defaultHTTPClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return ExportedFile{}, fmt.Errorf("upload %s: %w", name, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 300))
		return ExportedFile{}, &APIError{Service: "Supabase", Status: resp.StatusCode, Body: string(body)}
	}

	log.Printf("[Export] Uploaded %s to bucket %s", name, bucket)
	return ExportedFile{Name: name, Link: base + "/storage/v1/object/public/" + path}, nil
}
