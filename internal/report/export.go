package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"gopkg.in/yaml.v3"
)

// Output formats understood by Write.
const (
	FormatTable      = "table"
	FormatJSON       = "json"
	FormatYAML       = "yaml"
	FormatPrometheus = "prom"
)

// Write renders summaries in format.
func Write(w io.Writer, format string, summaries []Summary) error {
	switch format {
	case FormatTable, "":
		return WriteTable(w, summaries)
	case FormatJSON:
		return WriteJSON(w, summaries)
	case FormatYAML:
		return WriteYAML(w, summaries)
	case FormatPrometheus:
		return WritePrometheus(w, "exectime", summaries)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

// WriteTable renders one row per label.
func WriteTable(w io.Writer, summaries []Summary) error {
	table := tablewriter.NewWriter(w)
	table.Header("Label", "Count", "Failures", "Mean (ms)", "Min (ms)", "Max (ms)", "Total (ms)")
	for _, s := range summaries {
		if err := table.Append(
			s.Label,
			strconv.FormatUint(s.Count, 10),
			strconv.FormatUint(s.Failures, 10),
			fmt.Sprintf("%.3f", s.MeanMS),
			fmt.Sprintf("%.3f", s.MinMS),
			fmt.Sprintf("%.3f", s.MaxMS),
			fmt.Sprintf("%.3f", s.TotalMS),
		); err != nil {
			return err
		}
	}
	return table.Render()
}

// WriteSamplesTable renders slow log entries.
func WriteSamplesTable(w io.Writer, samples []Sample) error {
	table := tablewriter.NewWriter(w)
	table.Header("Completed", "Label", "Reason", "Duration (ms)", "Error")
	for _, s := range samples {
		if err := table.Append(
			s.CompletedAt.Format("2006-01-02 15:04:05"),
			s.Label,
			s.Reason,
			fmt.Sprintf("%.3f", s.DurationMS),
			s.Error,
		); err != nil {
			return err
		}
	}
	return table.Render()
}

// WriteJSON writes v as indented JSON.
func WriteJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteYAML writes v as YAML.
func WriteYAML(w io.Writer, v interface{}) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

// WritePrometheus renders summaries in the Prometheus text exposition format,
// suitable for a node_exporter textfile collector.
func WritePrometheus(w io.Writer, namespace string, summaries []Summary) error {
	reg := prometheus.NewRegistry()

	total := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "operations_total",
		Help:      "Number of measured operations",
	}, []string{"label", "outcome"})
	seconds := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "operation_duration_seconds_total",
		Help:      "Total time spent in measured operations",
	}, []string{"label"})
	maxSeconds := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "operation_duration_seconds_max",
		Help:      "Longest measured duration",
	}, []string{"label"})
	reg.MustRegister(total, seconds, maxSeconds)

	for _, s := range summaries {
		total.WithLabelValues(s.Label, "success").Add(float64(s.Count - s.Failures))
		total.WithLabelValues(s.Label, "failure").Add(float64(s.Failures))
		seconds.WithLabelValues(s.Label).Add(s.TotalMS / 1000)
		maxSeconds.WithLabelValues(s.Label).Set(s.MaxMS / 1000)
	}

	families, err := reg.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("failed to encode %s: %w", mf.GetName(), err)
		}
	}
	return nil
}
