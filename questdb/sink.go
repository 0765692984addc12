package questdb

import (
	"context"

	qdb "github.com/questdb/go-questdb-client/v3"
	"github.com/squadracorsepolito/cdd/internal"
	"go.opentelemetry.io/otel/attribute"
)

var _ internal.StatsSink = (*Sink)(nil)

// Sink stores the device stats into QuestDB, one row per stats interval.
type Sink struct {
	tel *internal.Telemetry

	cfg    *Config
	device string

	sender qdb.LineSender
}

func NewSink(device string, cfg *Config) *Sink {
	return &Sink{
		tel: internal.NewTelemetry("questdb", device),

		cfg:    cfg,
		device: device,
	}
}

func (s *Sink) Init(ctx context.Context) error {
	sender, err := qdb.NewLineSender(ctx,
		qdb.WithHttp(),
		qdb.WithAddress(s.cfg.Address),
		qdb.WithRetryTimeout(s.cfg.RetryTimeout),
	)
	if err != nil {
		return err
	}
	s.sender = sender

	s.tel.LogInfo("initialized", "address", s.cfg.Address, "table", s.cfg.Table)

	return nil
}

func (s *Sink) Push(ctx context.Context, snap internal.StatsSnapshot) error {
	ctx, span := s.tel.NewTrace(ctx, "push QuestDB stats row")
	defer span.End()

	row := newStatsRow(s.cfg.Table, s.device, snap)

	if err := s.deliver(ctx, row); err != nil {
		span.RecordError(err)
		return err
	}

	span.SetAttributes(attribute.Int("columns", len(row.Columns)))

	return s.sender.Flush(ctx)
}

func (s *Sink) deliver(ctx context.Context, row *Row) error {
	query := s.sender.Table(row.Table)

	for _, col := range row.Columns {
		if col.Type == ColumnTypeSymbol {
			query.Symbol(col.Name, col.Value.(string))
		}
	}

	for _, col := range row.Columns {
		if col.Type == ColumnTypeInt {
			query.Int64Column(col.Name, col.Value.(int64))
		}
	}

	return query.At(ctx, row.Timestamp)
}

func (s *Sink) Close(ctx context.Context) error {
	if s.sender == nil {
		return nil
	}

	s.tel.LogInfo("closing")

	return s.sender.Close(ctx)
}
