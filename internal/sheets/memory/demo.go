package memory

import "barjas/internal/core"

// AnalysisSheet is the demo worksheet carrying the PAGU marker row.
const AnalysisSheet = "Belanja Barang dan Jasa"

// Demo returns a store with four tracking sheets, each with a four-row
// header block, plus the analysis sheet.
func Demo() *Store {
	return New(map[string]core.RawSheet{
		"bun":         trackingSheet(bunRows),
		"nak":         trackingSheet(nakRows),
		"psp":         trackingSheet(pspRows),
		"tph":         trackingSheet(tphRows),
		AnalysisSheet: analysisSheet(),
	}, "bun", "nak", "psp", "tph", AnalysisSheet)
}

func trackingSheet(rows [][]string) core.RawSheet {
	raw := core.RawSheet{
		{"NO", "NAMA PEKERJAAN", "PAGU", "KONTRAK", "KONTRAK", "KONTRAK", "KEUANGAN", "KEUANGAN", "FISIK", "FISIK"},
		{"", "", "(Rp)", "NOMOR", "TGL", "NILAI (Rp)", "REALISASI", "%", "RENCANA (%)", "REALISASI (%)"},
		{},
		{},
	}
	return append(raw, rows...)
}

var (
	bunRows = [][]string{
		{"1", "Pengadaan ATK", "25,000,000", "001/BUN/2025", "2025-02-10", "24,500,000", "12,250,000", "50", "60", "55"},
		{"2", "Pemeliharaan Gedung Kantor", "150,000,000", "002/BUN/2025", "2025-03-03", "148,000,000", "74,000,000", "50", "50", "45"},
		{"3", "Jasa Kebersihan", "60,000,000", "003/BUN/2025", "2025-01-15", "60,000,000", "30,000,000", "50", "50", "50"},
	}
	nakRows = [][]string{
		{"1", "Belanja Bahan Pelatihan", "40,000,000", "001/NAK/2025", "2025-04-01", "39,000,000", "", "", "20", "10"},
		{"2", "Sewa Kendaraan Operasional", "90,000,000", "002/NAK/2025", "2025-02-20", "88,500,000", "44,250,000", "50", "50", "50"},
	}
	pspRows = [][]string{
		{"1", "Pengadaan Laptop", "120,000,000", "001/PSP/2025", "2025-05-12", "118,750,000", "118,750,000", "100", "100", "100"},
	}
	tphRows = [][]string{
		{"1", "Pengadaan Benih", "75,000,000", "001/TPH/2025", "2025-03-18", "74,000,000", "37,000,000", "50", "70", "65"},
		{"2", "Jasa Konsultan Perencanaan", "55,000,000", "002/TPH/2025", "2025-06-02", "54,000,000", "0", "0", "25", "0"},
	}
)

func analysisSheet() core.RawSheet {
	return core.RawSheet{
		{"REKAPITULASI BELANJA BARANG DAN JASA TA 2025"},
		{},
		{"NO", "NAMA PEKERJAAN", "PAGU", "KEUANGAN REALISASI", "KEUANGAN %", "FISIK RENCANA (%)", "FISIK REALISASI (%)", "FISIK DEVIASI (%)", "TGL SP2D", "SP2D NILAI"},
		{"1", "Pengadaan ATK", "25,000,000", "12,250,000", "49%", "60", "55", "-5", "2025-02-28", "12,250,000"},
		{"2", "Pemeliharaan Gedung Kantor", "150,000,000", "74,000,000", "49.33%", "50", "45", "-5", "2025-03-31", "74,000,000"},
		{"3", "Jasa Kebersihan", "60,000,000", "30,000,000", "50%", "50", "50", "0", "2025-02-28", "30,000,000"},
		{"4", "Sewa Kendaraan Operasional", "90,000,000", "44,250,000", "49.17%", "50", "50", "0", "31/03/2025", "44,250,000"},
		{"5", "Pengadaan Laptop", "120,000,000", "118,750,000", "98.96%", "100", "100", "0", "2025-05-30", "118,750,000"},
		{"6", "Pengadaan Benih", "75,000,000", "37,000,000", "49.33%", "70", "65", "-5", "", ""},
		{"7", "Jasa Konsultan Perencanaan", "55,000,000", "", "0%", "25", "0", "-25", "belum", ""},
	}
}
