package ingest

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"

	"github.com/longregen/creditexplain/internal/domain/models"
)

// Loader reads regulatory source files into documents. File type is decided
// by extension; directories are walked for every supported type.
type Loader struct{}

func NewLoader() *Loader {
	return &Loader{}
}

// LoadPath loads a file or, for a directory, every supported file under it.
func (l *Loader) LoadPath(path string) ([]models.Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if !info.IsDir() {
		return l.LoadFile(path)
	}

	var docs []models.Document
	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !supportedExtension(filepath.Ext(p)) {
			return nil
		}
		loaded, err := l.LoadFile(p)
		if err != nil {
			return fmt.Errorf("load %s: %w", p, err)
		}
		docs = append(docs, loaded...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return docs, nil
}

// LoadFile loads one file, dispatching on its extension.
func (l *Loader) LoadFile(path string) ([]models.Document, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return l.loadPDF(path)
	case ".json":
		return l.loadJSON(path)
	case ".csv":
		return l.loadCSV(path)
	case ".html", ".htm":
		return l.loadHTML(path)
	default:
		return nil, fmt.Errorf("unsupported file format %q for %s", filepath.Ext(path), path)
	}
}

func supportedExtension(ext string) bool {
	switch strings.ToLower(ext) {
	case ".pdf", ".json", ".csv", ".html", ".htm":
		return true
	}
	return false
}

// loadPDF extracts one document per page so page numbers survive into
// citations.
func (l *Loader) loadPDF(path string) ([]models.Document, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf %s: %w", path, err)
	}
	defer f.Close()

	var docs []models.Document
	for pageNum := 1; pageNum <= reader.NumPage(); pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("extract page %d of %s: %w", pageNum, path, err)
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		docs = append(docs, models.Document{
			Text: text,
			Metadata: baseMetadata(path, "regulation", map[string]any{
				"page": pageNum,
			}),
		})
	}
	return docs, nil
}

// jsonRule is one entry of a JSON rules file. Fields beyond text become
// metadata; a present metadata object is merged in.
type jsonRule struct {
	ID            string         `json:"id"`
	DocID         string         `json:"doc_id"`
	Text          string         `json:"text"`
	Jurisdiction  string         `json:"jurisdiction"`
	EffectiveDate string         `json:"effective_date"`
	Authority     string         `json:"authority"`
	Section       string         `json:"section"`
	Clause        string         `json:"clause"`
	RegulationID  string         `json:"regulation_id"`
	Version       string         `json:"version"`
	Metadata      map[string]any `json:"metadata"`
}

func (l *Loader) loadJSON(path string) ([]models.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var rules []jsonRule
	if err := json.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("parse %s: expected a JSON array of rules: %w", path, err)
	}

	docs := make([]models.Document, 0, len(rules))
	for i, rule := range rules {
		if strings.TrimSpace(rule.Text) == "" {
			return nil, fmt.Errorf("parse %s: rule %d has no text", path, i)
		}
		md := baseMetadata(path, "rule", rule.Metadata)
		setIfPresent(md, "doc_id", firstNonEmpty(rule.DocID, rule.ID))
		setIfPresent(md, "jurisdiction", rule.Jurisdiction)
		setIfPresent(md, "effective_date", rule.EffectiveDate)
		setIfPresent(md, "authority", rule.Authority)
		setIfPresent(md, "section", rule.Section)
		setIfPresent(md, "clause", rule.Clause)
		setIfPresent(md, "regulation_id", rule.RegulationID)
		setIfPresent(md, "version", rule.Version)
		docs = append(docs, models.Document{Text: rule.Text, Metadata: md})
	}
	return docs, nil
}

// loadCSV reads reference data, one document per row. The text column is
// required; every other column lands in metadata under a csv_ prefix.
func (l *Loader) loadCSV(path string) ([]models.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("parse %s: empty file", path)
	}

	header := records[0]
	textCol := -1
	for i, col := range header {
		if strings.EqualFold(strings.TrimSpace(col), "text") {
			textCol = i
			break
		}
	}
	if textCol < 0 {
		return nil, fmt.Errorf("parse %s: missing required %q column", path, "text")
	}

	docs := make([]models.Document, 0, len(records)-1)
	for rowNum, row := range records[1:] {
		if textCol >= len(row) {
			continue
		}
		text := strings.TrimSpace(row[textCol])
		if text == "" {
			continue
		}
		md := baseMetadata(path, "reference_data", map[string]any{
			"data_source": "csv",
			"row":         rowNum + 1,
		})
		for i, col := range header {
			if i == textCol || i >= len(row) {
				continue
			}
			md["csv_"+strings.TrimSpace(col)] = row[i]
		}
		docs = append(docs, models.Document{Text: text, Metadata: md})
	}
	return docs, nil
}

func (l *Loader) loadHTML(path string) ([]models.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return ExtractHTML(string(data), path)
}

func baseMetadata(path, docType string, extra map[string]any) map[string]any {
	md := map[string]any{
		"source":         filepath.Base(path),
		"doc_type":       docType,
		"ingestion_date": time.Now().UTC().Format(time.RFC3339),
	}
	for k, v := range extra {
		md[k] = v
	}
	return md
}

func setIfPresent(md map[string]any, key, value string) {
	if value != "" {
		md[key] = value
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
