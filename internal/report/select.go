package report

import (
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"barjas/internal/core"
)

// Selector normalizes the numeric fields of a table and computes the view
// for a report kind.
type Selector struct {
	Fields     Fields
	Normalizer core.Normalizer
}

func NewSelector(fields Fields, n core.Normalizer) *Selector {
	return &Selector{Fields: fields, Normalizer: n}
}

// Select never fails on missing columns: each absent sub-view is reported as
// not present. The only error is an unknown kind.
func (s *Selector) Select(kind Kind, t *core.Table) (Report, error) {
	norm := s.Normalizer.NormalizeColumns(t, s.Fields.Numeric()...)
	switch kind {
	case Financial:
		v := s.financial(norm)
		return Report{Kind: kind, Financial: &v}, nil
	case Physical:
		v := s.physical(norm)
		return Report{Kind: kind, Physical: &v}, nil
	case Disbursement:
		v := s.disbursement(norm)
		return Report{Kind: kind, Disbursement: &v}, nil
	default:
		return Report{}, ErrUnknownKind
	}
}

func (s *Selector) financial(t *core.Table) FinancialView {
	var v FinancialView
	if amount, ok := t.Lookup(s.Fields.RealizationAmount); ok {
		v.RealizationByJob = present(s.byJob(t, amount))
	}
	if pct, ok := t.Lookup(s.Fields.RealizationPercent); ok {
		v.RealizationDistribution = present(histogram(column(t, pct), HistogramBins))
	}
	return v
}

func (s *Selector) physical(t *core.Table) PhysicalView {
	var v PhysicalView
	realized, hasRealized := t.Lookup(s.Fields.PhysicalRealized)
	if hasRealized {
		v.RealizationByJob = present(s.byJob(t, realized))
	}
	if planned, ok := t.Lookup(s.Fields.PhysicalPlanned); ok && hasRealized {
		jobs := s.jobs(t)
		out := make([]GroupedValue, len(t.Rows))
		for i, row := range t.Rows {
			out[i] = GroupedValue{Category: jobs[i], Planned: number(row[planned]), Realized: number(row[realized])}
		}
		v.PlannedVsRealized = present(out)
	}
	return v
}

func (s *Selector) disbursement(t *core.Table) DisbursementView {
	var v DisbursementView
	dateCol, hasDate := t.Lookup(s.Fields.DisbursementDate)
	amountCol, hasAmount := t.Lookup(s.Fields.DisbursementAmount)
	if !hasDate || !hasAmount {
		return v
	}

	entries := make([]DisbursementEntry, len(t.Rows))
	totals := map[time.Time]decimal.Decimal{}
	for i, row := range t.Rows {
		raw := row[dateCol].String()
		amount := number(row[amountCol])
		entries[i] = DisbursementEntry{RawDate: raw, Amount: amount}

		d, ok := core.ParseDate(raw)
		if !ok {
			continue
		}
		entries[i].Date = &d
		day := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
		sum := totals[day]
		if amount.Valid() {
			sum = sum.Add(decimal.NewFromFloat(float64(amount)))
		}
		totals[day] = sum
	}

	daily := make([]DatedValue, 0, len(totals))
	for d, sum := range totals {
		daily = append(daily, DatedValue{Date: d, Total: sum.InexactFloat64()})
	}
	sort.Slice(daily, func(i, j int) bool { return daily[i].Date.Before(daily[j].Date) })

	v.DailyTotals = present(daily)
	v.Entries = present(entries)
	return v
}

func (s *Selector) byJob(t *core.Table, c int) []CategoryValue {
	jobs := s.jobs(t)
	out := make([]CategoryValue, len(t.Rows))
	for i, row := range t.Rows {
		out[i] = CategoryValue{Category: jobs[i], Value: number(row[c])}
	}
	return out
}

func (s *Selector) jobs(t *core.Table) []string {
	out := make([]string, len(t.Rows))
	c, ok := t.Lookup(s.Fields.Job)
	for i, row := range t.Rows {
		if ok {
			out[i] = row[c].String()
		} else {
			out[i] = rowLabel(i)
		}
	}
	return out
}

func number(v core.Value) Float {
	if f, ok := v.Float(); ok {
		return Float(f)
	}
	return Float(math.NaN())
}

func column(t *core.Table, c int) []float64 {
	out := make([]float64, 0, len(t.Rows))
	for _, row := range t.Rows {
		if f := number(row[c]); f.Valid() {
			out = append(out, float64(f))
		}
	}
	return out
}

// histogram splits [min, max] into n equal-width bins. The last bin is
// closed so max is counted.
func histogram(values []float64, n int) Histogram {
	h := Histogram{Values: values}
	if len(values) == 0 || n <= 0 {
		return h
	}
	lo, hi := values[0], values[0]
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if lo == hi {
		h.Bins = []Bin{{Lower: lo, Upper: hi, Count: len(values)}}
		return h
	}
	width := (hi - lo) / float64(n)
	h.Bins = make([]Bin, n)
	for i := range h.Bins {
		h.Bins[i] = Bin{Lower: lo + float64(i)*width, Upper: lo + float64(i+1)*width}
	}
	h.Bins[n-1].Upper = hi
	for _, v := range values {
		i := int((v - lo) / width)
		if i >= n {
			i = n - 1
		}
		h.Bins[i].Count++
	}
	return h
}
