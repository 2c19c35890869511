package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"

	klingkit "github.com/MrEthical07/klingkit"
	otelexport "github.com/MrEthical07/klingkit/metrics/export/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// writeOTelMetrics runs one collection cycle of client's metrics through an OpenTelemetry
// manual reader and prints each data point as "name{le="bound"} value", sorted by name.
func writeOTelMetrics(ctx context.Context, w io.Writer, client *klingkit.Client) (err error) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() {
		err = errors.Join(err, provider.Shutdown(ctx))
	}()

	exp, err := otelexport.NewExporter(provider.Meter("klingdiag"), client)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, exp.Close())
	}()

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		return err
	}

	var lines []string
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				lines = appendPoints(lines, m.Name, data.DataPoints)
			case metricdata.Gauge[int64]:
				lines = appendPoints(lines, m.Name, data.DataPoints)
			}
		}
	}
	sort.Strings(lines)
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func appendPoints(lines []string, name string, points []metricdata.DataPoint[int64]) []string {
	for _, dp := range points {
		series := name
		if le, ok := dp.Attributes.Value(otelexport.BucketBoundKey); ok {
			series += fmt.Sprintf("{le=%q}", le.AsString())
		}
		lines = append(lines, fmt.Sprintf("%s %d", series, dp.Value))
	}
	return lines
}
