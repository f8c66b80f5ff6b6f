// Package report selects and aggregates the columns behind the three fixed
// analysis views: financial realization, physical progress and SP2D
// disbursements.
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

const (
	Financial    Kind = "financial"
	Physical     Kind = "physical"
	Disbursement Kind = "disbursement"
)

// HistogramBins is the bin count used for percentage distributions.
const HistogramBins = 20

var ErrUnknownKind = errors.New("unknown report kind")

type (
	Kind string

	// Fields names the sheet columns each view reads.
	Fields struct {
		Job                string
		RealizationAmount  string
		RealizationPercent string
		PhysicalPlanned    string
		PhysicalRealized   string
		PhysicalDeviation  string
		DisbursementDate   string
		DisbursementAmount string
	}

	// Float is a float64 that encodes NaN and infinities as JSON null.
	Float float64

	// Optional is a sub-view that is absent when its columns are missing.
	Optional[T any] struct {
		Present bool `json:"present"`
		Value   T    `json:"value,omitempty"`
	}

	CategoryValue struct {
		Category string `json:"category"`
		Value    Float  `json:"value"`
	}

	GroupedValue struct {
		Category string `json:"category"`
		Planned  Float  `json:"planned"`
		Realized Float  `json:"realized"`
	}

	Bin struct {
		Lower float64 `json:"lower"`
		Upper float64 `json:"upper"`
		Count int     `json:"count"`
	}

	Histogram struct {
		Bins   []Bin     `json:"bins"`
		Values []float64 `json:"values"`
	}

	DatedValue struct {
		Date  time.Time `json:"date"`
		Total float64   `json:"total"`
	}

	// DisbursementEntry is one sheet row; Date is nil when the cell does not
	// hold a recognisable date.
	DisbursementEntry struct {
		Date    *time.Time `json:"date"`
		RawDate string     `json:"raw_date"`
		Amount  Float      `json:"amount"`
	}

	FinancialView struct {
		RealizationByJob        Optional[[]CategoryValue] `json:"realization_by_job"`
		RealizationDistribution Optional[Histogram]       `json:"realization_distribution"`
	}

	PhysicalView struct {
		RealizationByJob  Optional[[]CategoryValue] `json:"realization_by_job"`
		PlannedVsRealized Optional[[]GroupedValue]  `json:"planned_vs_realized"`
	}

	DisbursementView struct {
		DailyTotals Optional[[]DatedValue]        `json:"daily_totals"`
		Entries     Optional[[]DisbursementEntry] `json:"entries"`
	}

	// Report holds the view for Kind; the other views are nil.
	Report struct {
		Kind         Kind              `json:"kind"`
		Financial    *FinancialView    `json:"financial,omitempty"`
		Physical     *PhysicalView     `json:"physical,omitempty"`
		Disbursement *DisbursementView `json:"disbursement,omitempty"`
	}
)

// Kinds lists the report kinds in menu order.
func Kinds() []Kind { return []Kind{Financial, Physical, Disbursement} }

// ParseKind accepts the English kind names and the Indonesian menu labels.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "financial", "keuangan":
		return Financial, nil
	case "physical", "fisik":
		return Physical, nil
	case "disbursement", "sp2d":
		return Disbursement, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
}

// Label is the menu label shown to users.
func (k Kind) Label() string {
	switch k {
	case Financial:
		return "Keuangan"
	case Physical:
		return "Fisik"
	case Disbursement:
		return "SP2D"
	default:
		return string(k)
	}
}

// DefaultFields returns the column names used by the procurement sheet.
func DefaultFields() Fields {
	return Fields{
		Job:                "NAMA PEKERJAAN",
		RealizationAmount:  "KEUANGAN REALISASI",
		RealizationPercent: "KEUANGAN %",
		PhysicalPlanned:    "FISIK RENCANA (%)",
		PhysicalRealized:   "FISIK REALISASI (%)",
		PhysicalDeviation:  "FISIK DEVIASI (%)",
		DisbursementDate:   "TGL SP2D",
		DisbursementAmount: "SP2D NILAI",
	}
}

// Numeric returns the columns that are normalized to numbers before any view
// is computed.
func (f Fields) Numeric() []string {
	return []string{
		f.RealizationAmount,
		f.RealizationPercent,
		f.PhysicalPlanned,
		f.PhysicalRealized,
		f.PhysicalDeviation,
		f.DisbursementAmount,
	}
}

func (f Float) MarshalJSON() ([]byte, error) {
	v := float64(f)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return []byte("null"), nil
	}
	return json.Marshal(v)
}

func (f Float) Valid() bool {
	v := float64(f)
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func present[T any](v T) Optional[T] { return Optional[T]{Present: true, Value: v} }

// rowLabel is the category used when a sheet has no job-name column.
func rowLabel(i int) string { return "Baris " + strconv.Itoa(i+1) }
