package report

// Figure is a plotly figure: traces plus layout, rendered client-side.
type Figure struct {
	ID     string           `json:"id"`
	Title  string           `json:"title"`
	Data   []map[string]any `json:"data"`
	Layout map[string]any   `json:"layout"`
}

// Figures builds the charts for every present sub-view of r.
func Figures(r Report) []Figure {
	var out []Figure
	switch {
	case r.Financial != nil:
		if v := r.Financial.RealizationByJob; v.Present {
			out = append(out, barFigure("financial-realization", "Realisasi Keuangan per Pekerjaan", v.Value, "KEUANGAN REALISASI"))
		}
		if v := r.Financial.RealizationDistribution; v.Present {
			out = append(out, Figure{
				ID:    "financial-distribution",
				Title: "Distribusi Persentase Realisasi Keuangan",
				Data: []map[string]any{{
					"type":   "histogram",
					"x":      v.Value.Values,
					"nbinsx": HistogramBins,
				}},
				Layout: layout("Distribusi Persentase Realisasi Keuangan", "KEUANGAN %", "count"),
			})
		}
	case r.Physical != nil:
		if v := r.Physical.RealizationByJob; v.Present {
			out = append(out, barFigure("physical-realization", "Realisasi Fisik per Pekerjaan", v.Value, "FISIK REALISASI (%)"))
		}
		if v := r.Physical.PlannedVsRealized; v.Present {
			jobs := make([]string, len(v.Value))
			planned := make([]Float, len(v.Value))
			realized := make([]Float, len(v.Value))
			for i, g := range v.Value {
				jobs[i], planned[i], realized[i] = g.Category, g.Planned, g.Realized
			}
			l := layout("Rencana vs Realisasi Fisik", "NAMA PEKERJAAN", "%")
			l["barmode"] = "group"
			out = append(out, Figure{
				ID:    "physical-planned-vs-realized",
				Title: "Rencana vs Realisasi Fisik",
				Data: []map[string]any{
					{"type": "bar", "name": "FISIK RENCANA (%)", "x": jobs, "y": planned},
					{"type": "bar", "name": "FISIK REALISASI (%)", "x": jobs, "y": realized},
				},
				Layout: l,
			})
		}
	case r.Disbursement != nil:
		if v := r.Disbursement.DailyTotals; v.Present {
			dates := make([]string, len(v.Value))
			totals := make([]float64, len(v.Value))
			for i, d := range v.Value {
				dates[i] = d.Date.Format("2006-01-02")
				totals[i] = d.Total
			}
			out = append(out, Figure{
				ID:    "disbursement-daily",
				Title: "Nilai SP2D per Tanggal",
				Data: []map[string]any{{
					"type": "scatter",
					"mode": "lines+markers",
					"x":    dates,
					"y":    totals,
				}},
				Layout: layout("Nilai SP2D per Tanggal", "TGL SP2D", "SP2D NILAI"),
			})
		}
	}
	return out
}

func barFigure(id, title string, values []CategoryValue, yTitle string) Figure {
	x := make([]string, len(values))
	y := make([]Float, len(values))
	for i, v := range values {
		x[i], y[i] = v.Category, v.Value
	}
	return Figure{
		ID:     id,
		Title:  title,
		Data:   []map[string]any{{"type": "bar", "x": x, "y": y}},
		Layout: layout(title, "NAMA PEKERJAAN", yTitle),
	}
}

func layout(title, xTitle, yTitle string) map[string]any {
	return map[string]any{
		"title": map[string]string{"text": title},
		"xaxis": map[string]any{"title": map[string]string{"text": xTitle}},
		"yaxis": map[string]any{"title": map[string]string{"text": yTitle}},
	}
}
