package internaldefs

import (
	klingkit "github.com/MrEthical07/klingkit"
)

// CounterDef binds a client counter to its exported name.
type CounterDef struct {
	ID   klingkit.MetricID
	Name string
	Help string
	// Unit is the UCUM unit reported to OpenTelemetry.
	Unit string
}

// HistogramDef binds a client histogram to its exported name.
type HistogramDef struct {
	ID   klingkit.MetricID
	Name string
	Help string
	Unit string
}

// CounterDefs lists every exported counter in rendering order.
var CounterDefs = []CounterDef{
	{ID: klingkit.MetricTokenIssued, Name: "klingkit_token_issued_total", Help: "Bearer tokens obtained for outbound requests.", Unit: "{token}"},
	{ID: klingkit.MetricTokenFailure, Name: "klingkit_token_failure_total", Help: "Token source failures.", Unit: "{token}"},
	{ID: klingkit.MetricRequestSuccess, Name: "klingkit_request_success_total", Help: "Requests whose response envelope reported success.", Unit: "{request}"},
	{ID: klingkit.MetricRemoteError, Name: "klingkit_remote_error_total", Help: "Well-formed responses reporting a remote failure.", Unit: "{request}"},
	{ID: klingkit.MetricTransportError, Name: "klingkit_transport_error_total", Help: "Requests that failed before a response body was read.", Unit: "{request}"},
	{ID: klingkit.MetricMalformedResponse, Name: "klingkit_malformed_response_total", Help: "Responses whose body was not the JSON envelope.", Unit: "{request}"},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: klingkit.MetricRequestLatency, Name: "klingkit_request_latency_seconds", Help: "Request latency histogram.", Unit: "s"},
}

// HistogramBounds are the upper bounds of the client latency buckets, in seconds.
var HistogramBounds = []string{
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"1",
	"2.5",
	"5",
	"+Inf",
}

// NormalizeBuckets copies raw into a fixed-size array, zero-filling missing buckets.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
