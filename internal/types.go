package internal

import (
	"fmt"
	"strings"
)

// Field is one of the canonical attributes every extracted row is mapped into.
type Field int

const (
	FieldSupplierSKU Field = iota
	FieldName
	FieldBrand
	FieldPrice
	FieldUOM
	FieldPackSize
	FieldBarcode
	FieldCategoryRaw
	FieldVATCode
)

// Fields lists the canonical fields in mapping priority order.
var Fields = []Field{
	FieldSupplierSKU,
	FieldName,
	FieldBrand,
	FieldPrice,
	FieldUOM,
	FieldPackSize,
	FieldBarcode,
	FieldCategoryRaw,
	FieldVATCode,
}

// RequiredFields must be mapped for an extraction to succeed.
var RequiredFields = []Field{FieldSupplierSKU, FieldName, FieldPrice, FieldUOM}

func (f Field) String() string {
	switch f {
	case FieldSupplierSKU:
		return "supplier_sku"
	case FieldName:
		return "name"
	case FieldBrand:
		return "brand"
	case FieldPrice:
		return "price"
	case FieldUOM:
		return "uom"
	case FieldPackSize:
		return "pack_size"
	case FieldBarcode:
		return "barcode"
	case FieldCategoryRaw:
		return "category_raw"
	case FieldVATCode:
		return "vat_code"
	default:
		return fmt.Sprintf("field(%d)", int(f))
	}
}

func (f Field) Required() bool {
	for _, r := range RequiredFields {
		if r == f {
			return true
		}
	}
	return false
}

func (f Field) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

func (f *Field) UnmarshalText(text []byte) error {
	parsed, ok := ParseField(string(text))
	if !ok {
		return fmt.Errorf("unknown field: %s", string(text))
	}
	*f = parsed
	return nil
}

// ParseField resolves a snake_case field name.
func ParseField(name string) (Field, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, f := range Fields {
		if f.String() == name {
			return f, true
		}
	}
	return 0, false
}

type FileType string

const (
	FileTypeCSV     FileType = "csv"
	FileTypeExcel   FileType = "excel"
	FileTypePDF     FileType = "pdf"
	FileTypeUnknown FileType = "unknown"
)

// RawTable is the uniform tabular form produced by the format readers.
// Rows are positional: Cells[i] belongs to Headers[i].
type RawTable struct {
	SourceName string
	Headers    []string
	Rows       []RawRow
}

type RawRow struct {
	RowNum int
	Cells  []string
}

// Value returns the trimmed cell at column idx, or "" when the row is short.
func (r RawRow) Value(idx int) string {
	if idx < 0 || idx >= len(r.Cells) {
		return ""
	}
	return strings.TrimSpace(r.Cells[idx])
}

func (r RawRow) IsEmpty() bool {
	for _, c := range r.Cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

type ColumnMatch struct {
	Header     string  `json:"header"`
	Index      int     `json:"index"`
	Confidence float64 `json:"confidence"`
}

// FieldMapping assigns source columns to canonical fields. A column is
// claimed by at most one field.
type FieldMapping struct {
	Columns         map[Field]ColumnMatch `json:"columns"`
	UnmappedHeaders []string              `json:"unmappedHeaders"`
}

func (m FieldMapping) Get(f Field) (ColumnMatch, bool) {
	c, ok := m.Columns[f]
	return c, ok
}

func (m FieldMapping) Confidence(f Field) float64 {
	if c, ok := m.Columns[f]; ok {
		return c.Confidence
	}
	return 0
}

// RowFields are the mapped and normalized values of one source row.
type RowFields struct {
	SupplierSKU string  `json:"supplier_sku"`
	Name        string  `json:"name"`
	UOM         string  `json:"uom"`
	Price       float64 `json:"price"`
	Currency    string  `json:"currency"`

	Brand       *string `json:"brand,omitempty"`
	PackSize    *string `json:"pack_size,omitempty"`
	Barcode     *string `json:"barcode,omitempty"`
	CategoryRaw *string `json:"category_raw,omitempty"`
	VATCode     *string `json:"vat_code,omitempty"`
}

// NormalizedRow is created once per source row and never mutated afterwards.
type NormalizedRow struct {
	RowFields
	RowNum     int      `json:"rowNum"`
	Confidence float64  `json:"confidence"`
	Warnings   []string `json:"warnings"`
	IsValid    bool     `json:"is_valid"`
}

type CurrencyInfo struct {
	Currency   string  `json:"currency"`
	Symbol     string  `json:"symbol"`
	Confidence float64 `json:"confidence"`
}

type BrandSource string

const (
	BrandSourceFilename  BrandSource = "filename"
	BrandSourceSheetName BrandSource = "sheet_name"
	BrandSourceColumn    BrandSource = "column"
	BrandSourcePattern   BrandSource = "pattern"
)

type BrandDetectionResult struct {
	Brand      *string     `json:"brand,omitempty"`
	Confidence float64     `json:"confidence"`
	Source     BrandSource `json:"source,omitempty"`
}

type ExtractedMetadata struct {
	FileType             FileType             `json:"fileType"`
	FileName             string               `json:"fileName"`
	FileSize             int                  `json:"fileSize"`
	FileHash             string               `json:"fileHash"`
	SupplierID           string               `json:"supplierId,omitempty"`
	SheetName            string               `json:"sheetName,omitempty"`
	Delimiter            string               `json:"delimiter,omitempty"`
	ParsingStrategy      string               `json:"parsingStrategy,omitempty"`
	DetectedBrand        BrandDetectionResult `json:"detectedBrand"`
	DetectedCurrency     CurrencyInfo         `json:"detectedCurrency"`
	HeaderRowIndex       int                  `json:"headerRowIndex"`
	TotalRows            int                  `json:"totalRows"`
	ValidRows            int                  `json:"validRows"`
	InvalidRows          int                  `json:"invalidRows"`
	DuplicateSKUs        int                  `json:"duplicateSkus"`
	FieldMapping         FieldMapping         `json:"fieldMapping"`
	ExtractionConfidence float64              `json:"extractionConfidence"`
	ProcessingTimeMs     int64                `json:"processingTimeMs"`
}

type ErrorType string

const (
	ErrorTypeFile       ErrorType = "file"
	ErrorTypeFormat     ErrorType = "format"
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeSystem     ErrorType = "system"
)

type ExtractionError struct {
	Type    ErrorType `json:"type"`
	Message string    `json:"message"`
	RowNum  *int      `json:"rowNum,omitempty"`
	Field   *string   `json:"field,omitempty"`
}

type WarningType string

const (
	WarningMissingField  WarningType = "missing_field"
	WarningLowConfidence WarningType = "low_confidence"
	WarningDataQuality   WarningType = "data_quality"
	WarningMapping       WarningType = "mapping"
)

type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

type ExtractionWarning struct {
	Type     WarningType `json:"type"`
	Message  string      `json:"message"`
	Severity Severity    `json:"severity"`
	RowNum   *int        `json:"rowNum,omitempty"`
	Field    *string     `json:"field,omitempty"`
}

// ExtractionResult is successful iff Errors is empty.
type ExtractionResult struct {
	Success  bool                `json:"success"`
	Metadata ExtractedMetadata   `json:"metadata"`
	Rows     []NormalizedRow     `json:"rows"`
	Errors   []ExtractionError   `json:"errors"`
	Warnings []ExtractionWarning `json:"warnings"`
}

const DefaultCurrency = "ZAR"

const DefaultMinConfidence = 0.5

// ExtractionConfig tunes a single extraction. Zero values fall back to the
// defaults applied by WithDefaults.
type ExtractionConfig struct {
	SupplierID       string
	DefaultCurrency  string
	MinConfidence    float64
	SkipInvalidRows  bool
	MaxRows          int
	ColumnMappings   map[Field]string
	StrictMode       bool
	SupplierPrefixes []string
}

func (c ExtractionConfig) WithDefaults() ExtractionConfig {
	if strings.TrimSpace(c.DefaultCurrency) == "" {
		c.DefaultCurrency = DefaultCurrency
	}
	c.DefaultCurrency = strings.ToUpper(strings.TrimSpace(c.DefaultCurrency))
	if c.MinConfidence <= 0 {
		c.MinConfidence = DefaultMinConfidence
	}
	if c.MaxRows < 0 {
		c.MaxRows = 0
	}
	return c
}

// FileCheck is the outcome of a size/type pre-check without parsing.
type FileCheck struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

type MailMessage struct {
	Provider   string
	MessageID  string
	Subject    string
	From       string
	ReceivedAt string
	Raw        []byte
}

type EmailRow struct {
	ID         int
	Provider   string
	MessageID  string
	Subject    string
	Sender     string
	ReceivedAt string
	Hash       string
	Status     string
	RawRef     string
}

// RunSummary is a stored extraction run as listed by the ledger.
type RunSummary struct {
	ID          string
	EmailID     *int
	SourceName  string
	FileType    string
	Success     bool
	Confidence  float64
	TotalRows   int
	ValidRows   int
	InvalidRows int
	CreatedAt   string
}
