package questdb

import (
	"time"

	"github.com/squadracorsepolito/cdd/internal"
)

type ColumnType int

const (
	ColumnTypeSymbol ColumnType = iota
	ColumnTypeInt
)

type Column struct {
	Name  string
	Type  ColumnType
	Value any
}

func NewIntColumn(name string, value int64) *Column {
	return &Column{Name: name, Type: ColumnTypeInt, Value: value}
}

func NewSymbolColumn(name string, value string) *Column {
	return &Column{Name: name, Type: ColumnTypeSymbol, Value: value}
}

type Row struct {
	Table     string
	Timestamp time.Time
	Columns   []*Column
}

func NewRow(table string, timestamp time.Time, columns ...*Column) *Row {
	return &Row{
		Table:     table,
		Timestamp: timestamp,
		Columns:   columns,
	}
}

// newStatsRow maps a stats snapshot of the named device to a row.
// Counters are cumulative since the device was created.
func newStatsRow(table, device string, snap internal.StatsSnapshot) *Row {
	return NewRow(table, snap.Timestamp,
		NewSymbolColumn("device", device),
		NewIntColumn("write_requests", int64(snap.WriteRequests)),
		NewIntColumn("bytes_written", int64(snap.BytesWritten)),
		NewIntColumn("bytes_dropped", int64(snap.BytesDropped)),
		NewIntColumn("read_requests", int64(snap.ReadRequests)),
		NewIntColumn("bytes_read", int64(snap.BytesRead)),
		NewIntColumn("buffered", int64(snap.Buffered)),
	)
}
