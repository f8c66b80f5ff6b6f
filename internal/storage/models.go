package storage

type SaveLog struct {
	ID           int64
	SessionID    string
	Sheet        string
	RangeA1      string
	RowCount     int64
	ColCount     int64
	ClearedRange string
	Status       string
	Error        string
	CreatedAt    string
}
