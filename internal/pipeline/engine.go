package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"pricelist/internal"
	"pricelist/internal/brand"
	"pricelist/internal/columns"
	"pricelist/internal/confidence"
	"pricelist/internal/currency"
	"pricelist/internal/logging"
	"pricelist/internal/util"
	"pricelist/internal/validation"
)

const (
	DefaultMaxFileSize = 50 << 20
	largeFileSize      = 10 << 20
	brandSampleSize    = 100
)

var supportedExtensions = []string{".xlsx", ".xls", ".csv"}

// Engine extracts pricelists. It holds no per-call state and is safe for
// concurrent use.
type Engine struct {
	logger      *slog.Logger
	mapper      *columns.Mapper
	maxFileSize int64
}

type Option func(*Engine)

// WithMaxFileSize overrides the ValidateFile size ceiling in bytes.
func WithMaxFileSize(n int64) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxFileSize = n
		}
	}
}

func NewEngine(logger *slog.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{logger: logger, mapper: columns.NewMapper(), maxFileSize: DefaultMaxFileSize}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract never panics and never returns a Go error: every failure is
// reported in the result's Errors.
func (e *Engine) Extract(content []byte, filename string, cfg internal.ExtractionConfig) (result internal.ExtractionResult) {
	start := time.Now()
	cfg = cfg.WithDefaults()
	log := logging.WithFields(e.logger, "file", filename, "supplier", cfg.SupplierID)

	sum := sha256.Sum256(content)
	result = internal.ExtractionResult{
		Rows:     []internal.NormalizedRow{},
		Errors:   []internal.ExtractionError{},
		Warnings: []internal.ExtractionWarning{},
		Metadata: internal.ExtractedMetadata{
			FileType:       internal.FileTypeUnknown,
			FileName:       filename,
			FileSize:       len(content),
			FileHash:       hex.EncodeToString(sum[:]),
			SupplierID:     cfg.SupplierID,
			HeaderRowIndex: -1,
			FieldMapping:   internal.FieldMapping{Columns: map[internal.Field]internal.ColumnMatch{}},
		},
	}

	defer func() {
		if r := recover(); r != nil {
			log.Error("extraction aborted", "panic", r)
			result.Errors = append(result.Errors, internal.ExtractionError{
				Type:    internal.ErrorTypeSystem,
				Message: fmt.Sprintf("Unexpected extraction failure: %v", r),
			})
		}
		result.Success = len(result.Errors) == 0
		result.Metadata.ProcessingTimeMs = time.Since(start).Milliseconds()
		log.Debug("extraction finished",
			"success", result.Success,
			"rows", len(result.Rows),
			"valid", result.Metadata.ValidRows,
			"confidence", result.Metadata.ExtractionConfidence,
			"ms", result.Metadata.ProcessingTimeMs,
		)
	}()

	if len(content) == 0 {
		result.Errors = append(result.Errors, fileError(internal.ErrorTypeFile, "File is empty"))
		return result
	}

	fileType, _ := DetectFileType(filename, content)
	result.Metadata.FileType = fileType

	var (
		table     internal.RawTable
		headerIdx int
		err       error
	)
	switch fileType {
	case internal.FileTypePDF:
		msg := "PDF extraction is not supported; convert the pricelist to Excel or CSV"
		if pages := pdfPageCount(content); pages > 0 {
			msg = fmt.Sprintf("PDF extraction is not supported (%d pages); convert the pricelist to Excel or CSV", pages)
		}
		result.Errors = append(result.Errors, fileError(internal.ErrorTypeFormat, msg))
		return result
	case internal.FileTypeCSV:
		var delim rune
		table, delim, headerIdx, err = readCSV(content, filename)
		result.Metadata.ParsingStrategy = "csv_delimited"
		if delim != 0 {
			result.Metadata.Delimiter = string(delim)
		}
	case internal.FileTypeExcel:
		var sheet, strategy string
		table, sheet, strategy, headerIdx, err = readWorkbook(content, filename)
		result.Metadata.SheetName = sheet
		result.Metadata.ParsingStrategy = strategy
	default:
		result.Errors = append(result.Errors, fileError(internal.ErrorTypeFile, "Unsupported file type"))
		return result
	}
	if err != nil {
		log.Warn("read failed", "type", fileType, "error", err)
		result.Errors = append(result.Errors, readFailure(err))
		return result
	}
	result.Metadata.HeaderRowIndex = headerIdx

	mapping := e.mapper.Map(table.Headers, cfg.ColumnMappings)
	result.Metadata.FieldMapping = mapping
	check := columns.ValidateMapping(mapping)
	for _, f := range check.MissingRequired {
		result.Errors = append(result.Errors, internal.ExtractionError{
			Type:    internal.ErrorTypeValidation,
			Message: fmt.Sprintf("Required field not mapped: %s", f),
			Field:   util.StringPtr(f.String()),
		})
	}
	result.Warnings = append(result.Warnings, mappingWarnings(mapping, check)...)

	brands := brand.NewDetector(cfg.SupplierPrefixes)
	fileBrand := brands.Detect(brand.Input{
		FileName:    filename,
		SheetName:   result.Metadata.SheetName,
		BrandValues: columnSample(table, mapping, internal.FieldBrand),
		NameValues:  columnSample(table, mapping, internal.FieldName),
	})
	result.Metadata.DetectedBrand = fileBrand

	normalizer := currency.NewNormalizer(cfg.DefaultCurrency)
	x := &rowExtractor{
		cfg:       cfg,
		mapping:   mapping,
		fileBrand: fileBrand.Brand,
		priceHint: priceHeaderCurrency(normalizer, mapping),
		currency:  normalizer,
		brands:    brands,
		validator: validation.NewEngine(cfg.StrictMode),
		logger:    log,
	}
	outcome := x.run(table)
	result.Rows = outcome.rows
	if result.Rows == nil {
		result.Rows = []internal.NormalizedRow{}
	}
	result.Warnings = append(result.Warnings, rowWarnings(result.Rows)...)
	dupWarnings, dups := duplicateSKUs(result.Rows)
	result.Warnings = append(result.Warnings, dupWarnings...)
	result.Metadata.DuplicateSKUs = dups
	if outcome.truncated {
		result.Warnings = append(result.Warnings, internal.ExtractionWarning{
			Type:     internal.WarningDataQuality,
			Message:  fmt.Sprintf("Stopped after %d rows (maxRows)", cfg.MaxRows),
			Severity: internal.SeverityMedium,
		})
	}

	valid := 0
	rowScores := make([]float64, 0, len(result.Rows))
	lowRows := 0
	for _, r := range result.Rows {
		if r.IsValid {
			valid++
		}
		if r.Confidence < cfg.MinConfidence {
			lowRows++
		}
		rowScores = append(rowScores, confidence.RowConfidence(r.RowFields))
	}
	result.Metadata.TotalRows = outcome.processed
	result.Metadata.ValidRows = valid
	result.Metadata.InvalidRows = outcome.processed - valid
	result.Metadata.DetectedCurrency = fileCurrency(outcome.currencies, cfg.DefaultCurrency)

	meta := confidence.MetadataConfidence(mapping, fileBrand, result.Rows)
	overall := confidence.Overall(rowScores, meta)
	result.Metadata.ExtractionConfidence = overall

	if lowRows > 0 {
		result.Warnings = append(result.Warnings, internal.ExtractionWarning{
			Type:     internal.WarningLowConfidence,
			Message:  fmt.Sprintf("%d of %d rows are below the %.2f confidence threshold", lowRows, len(result.Rows), cfg.MinConfidence),
			Severity: internal.SeverityMedium,
		})
	}
	if overall < cfg.MinConfidence {
		report := confidence.NewReport(overall)
		result.Warnings = append(result.Warnings, internal.ExtractionWarning{
			Type:     internal.WarningLowConfidence,
			Message:  fmt.Sprintf("Extraction confidence %.2f is %s: %s", overall, strings.ReplaceAll(string(report.Level), "_", " "), report.Recommendation),
			Severity: internal.SeverityHigh,
		})
	}
	return result
}

// ExtractFile reads path from disk and extracts it. Files above the engine's
// size ceiling are refused before being read.
func (e *Engine) ExtractFile(path string, cfg internal.ExtractionConfig) (internal.ExtractionResult, error) {
	info, err := os.Stat(path)
	if err != nil {
		return internal.ExtractionResult{}, err
	}
	if info.Size() > e.maxFileSize {
		return internal.ExtractionResult{}, fmt.Errorf("%s (%s): %w", path, humanize.IBytes(uint64(info.Size())), ErrFileTooLarge)
	}
	blob, err := os.ReadFile(path)
	if err != nil {
		return internal.ExtractionResult{}, err
	}
	return e.Extract(blob, filepath.Base(path), cfg), nil
}

// ValidateFile checks size and type without parsing.
func (e *Engine) ValidateFile(content []byte, filename string) internal.FileCheck {
	check := internal.FileCheck{Errors: []string{}, Warnings: []string{}}
	size := int64(len(content))

	if size > e.maxFileSize {
		check.Errors = append(check.Errors, fmt.Sprintf("File size %s exceeds the %s limit", humanize.IBytes(uint64(size)), humanize.IBytes(uint64(e.maxFileSize))))
	}
	if size == 0 {
		check.Errors = append(check.Errors, "File is empty")
	}

	fileType, inferred := DetectFileType(filename, content)
	switch fileType {
	case internal.FileTypePDF:
		check.Errors = append(check.Errors, "PDF files are not supported; convert the pricelist to Excel or CSV")
	case internal.FileTypeUnknown:
		if size > 0 {
			check.Errors = append(check.Errors, fmt.Sprintf("Unsupported file type: %s", filename))
		}
	default:
		if inferred {
			check.Warnings = append(check.Warnings, fmt.Sprintf("File type inferred from content as %s", fileType))
		}
	}
	if size > largeFileSize && size <= e.maxFileSize {
		check.Warnings = append(check.Warnings, fmt.Sprintf("Large file (%s) may take longer to process", humanize.IBytes(uint64(size))))
	}

	check.Valid = len(check.Errors) == 0
	return check
}

// IsSupported reports whether filename has an extractable extension.
func IsSupported(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, s := range supportedExtensions {
		if ext == s {
			return true
		}
	}
	return false
}

func SupportedExtensions() []string {
	return append([]string(nil), supportedExtensions...)
}

// ShouldProcessRow reports whether a row is valid and confident enough to ingest.
func ShouldProcessRow(row internal.NormalizedRow, cfg internal.ExtractionConfig) bool {
	cfg = cfg.WithDefaults()
	return row.IsValid && row.Confidence >= cfg.MinConfidence
}

func fileError(t internal.ErrorType, msg string) internal.ExtractionError {
	return internal.ExtractionError{Type: t, Message: msg}
}

func readFailure(err error) internal.ExtractionError {
	switch {
	case errors.Is(err, ErrEmptyFile):
		return fileError(internal.ErrorTypeFile, "File is empty")
	case errors.Is(err, ErrNoHeader):
		return fileError(internal.ErrorTypeFile, "Could not find a header row in the first 10 rows")
	case errors.Is(err, ErrNoSheets):
		return fileError(internal.ErrorTypeFile, "Workbook has no readable sheets")
	default:
		return fileError(internal.ErrorTypeSystem, fmt.Sprintf("Failed to read file: %v", err))
	}
}

func mappingWarnings(mapping internal.FieldMapping, check columns.Validation) []internal.ExtractionWarning {
	var out []internal.ExtractionWarning
	for _, f := range check.LowConfidence {
		c := mapping.Columns[f]
		out = append(out, internal.ExtractionWarning{
			Type:     internal.WarningMapping,
			Message:  fmt.Sprintf("Column %q mapped to %s with low confidence (%.2f)", c.Header, f, c.Confidence),
			Severity: internal.SeverityMedium,
			Field:    util.StringPtr(f.String()),
		})
	}
	for _, f := range []internal.Field{internal.FieldBrand, internal.FieldPackSize, internal.FieldBarcode, internal.FieldCategoryRaw, internal.FieldVATCode} {
		if _, ok := mapping.Columns[f]; !ok {
			out = append(out, internal.ExtractionWarning{
				Type:     internal.WarningMissingField,
				Message:  fmt.Sprintf("Optional field %s not found", f),
				Severity: internal.SeverityLow,
				Field:    util.StringPtr(f.String()),
			})
		}
	}
	if len(mapping.UnmappedHeaders) > 0 {
		out = append(out, internal.ExtractionWarning{
			Type:     internal.WarningMapping,
			Message:  fmt.Sprintf("Unmapped columns: %s", strings.Join(mapping.UnmappedHeaders, ", ")),
			Severity: internal.SeverityLow,
		})
	}
	return out
}

func columnSample(table internal.RawTable, mapping internal.FieldMapping, f internal.Field) []string {
	c, ok := mapping.Get(f)
	if !ok {
		return nil
	}
	var out []string
	for _, r := range table.Rows {
		if v := r.Value(c.Index); v != "" {
			out = append(out, v)
			if len(out) == brandSampleSize {
				break
			}
		}
	}
	return out
}

// priceHeaderCurrency reads an explicit currency from the price header,
// e.g. "Price (USD)".
func priceHeaderCurrency(n *currency.Normalizer, mapping internal.FieldMapping) string {
	c, ok := mapping.Get(internal.FieldPrice)
	if !ok {
		return ""
	}
	if info := n.DetectCurrency(c.Header, ""); info.Confidence >= 0.9 {
		return info.Currency
	}
	return ""
}
