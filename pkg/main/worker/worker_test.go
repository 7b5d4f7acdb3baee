package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestDispatchCron(t *testing.T) {
	CreateCronWorker()
	StartCronWorker()
	defer StopCronWorker()

	tests := []struct {
		name      string
		jobName   string
		spec      string
		wantError bool
	}{
		{name: "descriptor", jobName: "session_cleanup", spec: "@every 10m"},
		{name: "six fields", jobName: "six", spec: "*/5 * * * * *"},
		{name: "five fields", jobName: "five", spec: "0 3 * * *"},
		{name: "duplicate name", jobName: "five", spec: "0 4 * * *", wantError: true},
		{name: "invalid spec", jobName: "bad", spec: "invalid", wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := DispatchCron(tt.jobName, tt.spec, func() {})
			if (err != nil) != tt.wantError {
				t.Errorf("DispatchCron() error = %v, wantError %v", err, tt.wantError)
			}
		})
	}

	if got := len(GetStats().ListSchedule); got != 3 {
		t.Errorf("GetStats() listed %d jobs, want 3", got)
	}
}

func TestCronJobRuns(t *testing.T) {
	CreateCronWorker()
	var runs atomic.Int32
	if err := DispatchCron("tick", "@every 1s", func() { runs.Add(1) }); err != nil {
		t.Fatal(err)
	}
	StartCronWorker()

	deadline := time.Now().Add(3 * time.Second)
	for runs.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(50 * time.Millisecond)
	}
	StopCronWorker()

	if runs.Load() == 0 {
		t.Fatal("cron job never ran")
	}
	if s := GetSchedules(); len(s) != 1 || s[0].LastRun.IsZero() {
		t.Errorf("schedule not updated: %+v", s)
	}
}

func TestDispatchCronWithoutWorker(t *testing.T) {
	cronWorker = nil
	if err := DispatchCron("x", "@every 1m", func() {}); !errors.Is(err, ErrPoolsStopped) {
		t.Errorf("DispatchCron() = %v, want ErrPoolsStopped", err)
	}
}

func TestSubmitBackground(t *testing.T) {
	InitWorkerPools(2, 1)

	done := make(chan struct{})
	err := SubmitBackground("push", func(ctx context.Context) error {
		if _, ok := ctx.Deadline(); !ok {
			t.Error("background job has no deadline")
		}
		close(done)
		return errors.New("ignored, only logged")
	})
	if err != nil {
		t.Fatal(err)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("background job did not run")
	}

	CloseWorkerPools()
	if err := SubmitBackground("late", func(context.Context) error { return nil }); !errors.Is(err, ErrPoolsStopped) {
		t.Errorf("SubmitBackground after close = %v, want ErrPoolsStopped", err)
	}
}

func TestInitWorkerPoolsMinimum(t *testing.T) {
	InitWorkerPools(0, -3)
	defer CloseWorkerPools()

	if got := BulkPool().MaxConcurrency(); got != 1 {
		t.Errorf("bulk pool concurrency = %d, want 1", got)
	}
	stats := GetStats()
	if stats.WorkerBulk.SubmittedTasks != 0 {
		t.Errorf("unexpected submitted tasks %d", stats.WorkerBulk.SubmittedTasks)
	}
}
