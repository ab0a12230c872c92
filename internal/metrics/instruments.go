package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const meterName = "github.com/fd1az/swap-quoter"

// Instruments holds every counter and histogram the quoter records.
type Instruments struct {
	quotes           metric.Int64Counter
	quoteLatency     metric.Float64Histogram
	rfqResponses     metric.Int64Counter
	admissionRejects metric.Int64Counter
	balanceRefreshes metric.Int64Counter
	sessions         metric.Int64UpDownCounter
}

// NewInstruments registers the instruments on mp.
func NewInstruments(mp metric.MeterProvider) (*Instruments, error) {
	m := mp.Meter(meterName)
	var (
		in  Instruments
		err error
	)

	if in.quotes, err = m.Int64Counter("quoter_quotes_total",
		metric.WithDescription("Quote requests by outcome")); err != nil {
		return nil, err
	}
	if in.quoteLatency, err = m.Float64Histogram("quoter_quote_duration_seconds",
		metric.WithDescription("Time to compute a quote"), metric.WithUnit("s")); err != nil {
		return nil, err
	}
	if in.rfqResponses, err = m.Int64Counter("quoter_rfq_responses_total",
		metric.WithDescription("Market maker RFQ responses by outcome")); err != nil {
		return nil, err
	}
	if in.admissionRejects, err = m.Int64Counter("quoter_admission_rejections_total",
		metric.WithDescription("Requests rejected by admission control")); err != nil {
		return nil, err
	}
	if in.balanceRefreshes, err = m.Int64Counter("quoter_balance_refreshes_total",
		metric.WithDescription("Balance snapshot refreshes by outcome")); err != nil {
		return nil, err
	}
	if in.sessions, err = m.Int64UpDownCounter("quoter_market_maker_sessions",
		metric.WithDescription("Authenticated market maker sessions")); err != nil {
		return nil, err
	}
	return &in, nil
}

// NewNoopInstruments returns instruments that record nothing.
func NewNoopInstruments() *Instruments {
	in, _ := NewInstruments(noop.NewMeterProvider())
	return in
}

// Quote records one finished quote request.
func (in *Instruments) Quote(ctx context.Context, outcome string, d time.Duration) {
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	in.quotes.Add(ctx, 1, attrs)
	in.quoteLatency.Record(ctx, d.Seconds(), attrs)
}

// RFQResponse records one market maker response.
func (in *Instruments) RFQResponse(ctx context.Context, outcome string) {
	in.rfqResponses.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// AdmissionRejected records a rejected request.
func (in *Instruments) AdmissionRejected(ctx context.Context, reason string) {
	in.admissionRejects.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

// BalanceRefresh records a balance refresh cycle.
func (in *Instruments) BalanceRefresh(ctx context.Context, ok bool) {
	in.balanceRefreshes.Add(ctx, 1, metric.WithAttributes(attribute.Bool("success", ok)))
}

// SessionOpened and SessionClosed track the live session gauge.
func (in *Instruments) SessionOpened(ctx context.Context) { in.sessions.Add(ctx, 1) }

func (in *Instruments) SessionClosed(ctx context.Context) { in.sessions.Add(ctx, -1) }
