package otel

import (
	"context"
	"errors"
	"fmt"

	klingkit "github.com/MrEthical07/klingkit"
	"github.com/MrEthical07/klingkit/metrics/export/internaldefs"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// BucketBoundKey is the attribute carrying a latency bucket's upper bound.
const BucketBoundKey = attribute.Key("le")

var (
	ErrNilMeter  = errors.New("nil meter")
	ErrNilSource = errors.New("nil metrics source")
)

// Source is anything that can snapshot client metrics, normally a [*klingkit.Client].
type Source interface {
	MetricsSnapshot() klingkit.MetricsSnapshot
}

// latencyInstruments reports a client histogram as cumulative bucket gauges keyed by
// [BucketBoundKey], plus a total count.
type latencyInstruments struct {
	bucket metric.Int64ObservableGauge
	count  metric.Int64ObservableGauge
	bounds []metric.ObserveOption
}

// Exporter publishes client metrics through an OpenTelemetry meter.
type Exporter struct {
	source       Source
	registration metric.Registration
	counters     map[klingkit.MetricID]metric.Int64ObservableCounter
	latency      map[klingkit.MetricID]latencyInstruments
}

// NewExporter observes client on every collection cycle of meter.
func NewExporter(meter metric.Meter, client *klingkit.Client) (*Exporter, error) {
	if client == nil {
		return nil, ErrNilSource
	}
	return NewExporterFromSource(meter, client)
}

// NewExporterFromSource observes any snapshot source.
func NewExporterFromSource(meter metric.Meter, source Source) (*Exporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	x := &Exporter{
		source:   source,
		counters: make(map[klingkit.MetricID]metric.Int64ObservableCounter, len(internaldefs.CounterDefs)),
		latency:  make(map[klingkit.MetricID]latencyInstruments, len(internaldefs.HistogramDefs)),
	}
	var observables []metric.Observable

	for _, def := range internaldefs.CounterDefs {
		ins, err := meter.Int64ObservableCounter(def.Name,
			metric.WithDescription(def.Help),
			metric.WithUnit(def.Unit),
		)
		if err != nil {
			return nil, fmt.Errorf("counter %s: %w", def.Name, err)
		}
		x.counters[def.ID] = ins
		observables = append(observables, ins)
	}

	for _, def := range internaldefs.HistogramDefs {
		bucket, err := meter.Int64ObservableGauge(def.Name+"_bucket",
			metric.WithDescription(def.Help+" Cumulative count per upper bound."),
			metric.WithUnit("{request}"),
		)
		if err != nil {
			return nil, fmt.Errorf("histogram %s: %w", def.Name, err)
		}
		count, err := meter.Int64ObservableGauge(def.Name+"_count",
			metric.WithDescription(def.Help+" Total samples."),
			metric.WithUnit("{request}"),
		)
		if err != nil {
			return nil, fmt.Errorf("histogram %s: %w", def.Name, err)
		}

		li := latencyInstruments{bucket: bucket, count: count}
		for _, le := range internaldefs.HistogramBounds {
			li.bounds = append(li.bounds, metric.WithAttributeSet(attribute.NewSet(BucketBoundKey.String(le))))
		}
		x.latency[def.ID] = li
		observables = append(observables, bucket, count)
	}

	reg, err := meter.RegisterCallback(x.observe, observables...)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}
	x.registration = reg
	return x, nil
}

func (x *Exporter) observe(_ context.Context, o metric.Observer) error {
	snap := x.source.MetricsSnapshot()
	for id, ins := range x.counters {
		o.ObserveInt64(ins, int64(snap.Counters[id]))
	}
	for id, li := range x.latency {
		raw, ok := snap.Histograms[id]
		if !ok {
			continue
		}
		totals := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(raw))
		for i, total := range totals {
			o.ObserveInt64(li.bucket, int64(total), li.bounds[i])
		}
		o.ObserveInt64(li.count, int64(totals[len(totals)-1]))
	}
	return nil
}

// Close unregisters the collection callback.
func (x *Exporter) Close() error {
	if x == nil || x.registration == nil {
		return nil
	}
	return x.registration.Unregister()
}
