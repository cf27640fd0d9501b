package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/nerrad567/fleetlock/internal/command"
)

func TestMetrics_ObserveCommand(t *testing.T) {
	m := New()
	now := time.Now()
	m.ObserveCommand(command.Result{
		Command:  command.Command{Code: command.Lock},
		Outcome:  command.Outcome{Kind: command.ConnectTimeout},
		Started:  now,
		Finished: now.Add(200 * time.Millisecond),
	})

	got := testutil.ToFloat64(m.CommandsTotal.WithLabelValues("lock", "connect_timeout"))
	if got != 1 {
		t.Errorf("commands_total{lock,connect_timeout} = %v, want 1", got)
	}
}

func TestMetrics_Counters(t *testing.T) {
	m := New()
	m.ObserveAnnouncement("malformed")
	m.ObserveAnnouncement("malformed")
	m.ObserveLockReleases(3)
	m.ObserveReconcile()

	if got := testutil.ToFloat64(m.AnnouncementsTotal.WithLabelValues("malformed")); got != 2 {
		t.Errorf("announcements_total{malformed} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.LockReleasesTotal); got != 3 {
		t.Errorf("lock_releases_total = %v, want 3", got)
	}
	if got := testutil.ToFloat64(m.ReconcileTicksTotal); got != 1 {
		t.Errorf("reconcile_ticks_total = %v, want 1", got)
	}
}

func TestMetrics_HandlerExposesGauge(t *testing.T) {
	m := New()
	m.RegisterGauge("dispatcher_queue_depth", "Commands waiting", func() float64 { return 7 })

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "fleetlock_dispatcher_queue_depth 7") {
		t.Errorf("exposition missing queue depth gauge:\n%s", body)
	}
}
