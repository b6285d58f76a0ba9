package core

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"imagingcore/pkg/domain"
)

type metricRecord struct {
	op      string
	success bool
}

type captureMetricsRecorder struct {
	records []metricRecord
}

func (c *captureMetricsRecorder) Observe(_ context.Context, op string, success bool, _ time.Duration) {
	c.records = append(c.records, metricRecord{op: op, success: success})
}

func (c *captureMetricsRecorder) has(op string, success bool) bool {
	for _, r := range c.records {
		if r.op == op && r.success == success {
			return true
		}
	}
	return false
}

type spanRecord struct {
	op  string
	err error
}

type captureTracer struct {
	started []string
	ended   []spanRecord
}

func (c *captureTracer) Start(ctx context.Context, op string) (context.Context, TraceSpan) {
	c.started = append(c.started, op)
	return ctx, &captureSpan{tracer: c, op: op}
}

func (c *captureTracer) has(op string, success bool) bool {
	for _, r := range c.ended {
		if r.op == op && (r.err == nil) == success {
			return true
		}
	}
	return false
}

type captureSpan struct {
	tracer *captureTracer
	op     string
}

func (s *captureSpan) End(err error) {
	s.tracer.ended = append(s.tracer.ended, spanRecord{op: s.op, err: err})
}

type captureAuditRecorder struct {
	entries []AuditEntry
}

func (c *captureAuditRecorder) Record(_ context.Context, entry AuditEntry) {
	c.entries = append(c.entries, entry)
}

func (c *captureAuditRecorder) has(op string, status AuditStatus, match func(AuditEntry) bool) bool {
	for _, e := range c.entries {
		if e.Operation != op || e.Status != status {
			continue
		}
		if match == nil || match(e) {
			return true
		}
	}
	return false
}

func TestServiceObservabilityHooks(t *testing.T) {
	ctx := context.Background()
	audit := &captureAuditRecorder{}
	metrics := &captureMetricsRecorder{}
	tracer := &captureTracer{}

	svc := NewInMemoryService(
		WithAuditRecorder(audit),
		WithMetricsRecorder(metrics),
		WithTracer(tracer),
	)

	user, err := svc.CreateUser(ctx, User{})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if !audit.has("create_user", AuditStatusSuccess, func(e AuditEntry) bool { return e.EntityID == user.ID }) {
		t.Fatalf("expected audit entry for create_user success")
	}
	if !metrics.has("create_user", true) {
		t.Fatalf("expected metrics entry for create_user")
	}
	if !tracer.has("create_user", true) {
		t.Fatalf("expected trace span for create_user")
	}

	if err := svc.DeleteRepository(ctx, "missing-repo"); err == nil {
		t.Fatalf("expected delete_repository error for missing id")
	}
	if !audit.has("delete_repository", AuditStatusError, nil) {
		t.Fatalf("expected audit error entry for delete_repository")
	}
	if !metrics.has("delete_repository", false) {
		t.Fatalf("expected metrics entry for failed delete_repository")
	}
	if !tracer.has("delete_repository", false) {
		t.Fatalf("expected trace span for failed delete_repository")
	}
}

func TestExpvarMetricsRecorderExports(t *testing.T) {
	recorder := NewExpvarMetricsRecorder("")
	if recorder.Name() == "" {
		t.Fatalf("expected generated name")
	}
	recorder.Observe(context.Background(), "create_repository", true, 20*time.Millisecond)
	recorder.Observe(context.Background(), "create_repository", false, 5*time.Millisecond)
	recorder.Observe(context.Background(), "", true, time.Millisecond)

	snapshot := recorder.Snapshot()
	if snapshot.DurationsMS["create_repository"] <= 0 {
		t.Fatalf("expected accumulated duration, got %+v", snapshot.DurationsMS)
	}
	if snapshot.Results["create_repository"]["success"] != 1 || snapshot.Results["create_repository"]["error"] != 1 {
		t.Fatalf("unexpected result counters %+v", snapshot.Results)
	}
}

func TestPrometheusMetricsRecorderExports(t *testing.T) {
	reg := prometheus.NewRegistry()
	recorder, err := NewPrometheusMetricsRecorder(reg)
	if err != nil {
		t.Fatalf("NewPrometheusMetricsRecorder: %v", err)
	}
	recorder.Observe(context.Background(), "create_fileset", true, 10*time.Millisecond)
	recorder.Observe(context.Background(), "create_fileset", false, 10*time.Millisecond)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	names := map[string]bool{}
	for _, fam := range families {
		names[fam.GetName()] = true
	}
	if !names["imagingcore_service_operation_duration_seconds"] {
		t.Fatalf("expected duration histogram registered, got %v", names)
	}
	if !names["imagingcore_service_operation_results_total"] {
		t.Fatalf("expected result counter registered, got %v", names)
	}

	// Double registration must surface an error.
	if _, err := NewPrometheusMetricsRecorder(reg); err == nil {
		t.Fatalf("expected duplicate registration error")
	}
}

func TestJSONTraceTracerExports(t *testing.T) {
	var buf bytes.Buffer
	tracer := NewJSONTracer(&buf)

	_, span := tracer.Start(context.Background(), "create_import")
	span.End(nil)
	_, span = tracer.Start(context.Background(), "create_import")
	span.End(domain.NotFoundError{Entity: domain.EntityRepository, ID: "x"})

	entries := tracer.Entries()
	if len(entries) != 2 {
		t.Fatalf("expected two spans, got %d", len(entries))
	}
	if entries[0].Status != "success" || entries[1].Status != "error" {
		t.Fatalf("unexpected statuses %+v", entries)
	}
	if !strings.Contains(buf.String(), `"operation":"create_import"`) {
		t.Fatalf("expected encoded span, got %s", buf.String())
	}
}

func TestSlogLoggerAndNoop(t *testing.T) {
	// Neither logger may panic with alternating key/value args.
	noopLogger{}.Debug("msg", "k", "v")
	noopLogger{}.Info("msg", "k", "v")
	noopLogger{}.Warn("msg", "k", "v")
	noopLogger{}.Error("msg", "k", "v")

	logger := NewSlogLogger(nil)
	logger.Debug("msg", "k", "v")
	logger.Info("msg", "k", "v")
	logger.Warn("msg", "k", "v")
	logger.Error("msg", "k", "v")
}
