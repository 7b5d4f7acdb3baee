package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Kellerman81/go_admissions_admin/pkg/main/logger"
	"github.com/alitto/pond/v2"
	"github.com/robfig/cron/v3"
)

type StatsDetail struct {
	CompletedTasks  uint64 `json:"CompletedTasks"`
	DroppedTasks    uint64 `json:"DroppedTasks"`
	FailedTasks     uint64 `json:"FailedTasks"`
	RunningWorkers  uint64 `json:"RunningWorkers"`
	SubmittedTasks  uint64 `json:"SubmittedTasks"`
	SuccessfulTasks uint64 `json:"SuccessfulTasks"`
	WaitingTasks    uint64 `json:"WaitingTasks"`
}

// JobSchedule is a registered cron job.
type JobSchedule struct {
	Name      string    `json:"Name"`
	Spec      string    `json:"Spec"`
	LastRun   time.Time `json:"LastRun"`
	NextRun   time.Time `json:"NextRun"`
	IsRunning bool      `json:"IsRunning"`
	entryID   cron.EntryID
}

type Stats struct {
	WorkerBulk       StatsDetail   `json:"WorkerBulk"`
	WorkerBackground StatsDetail   `json:"WorkerBackground"`
	ListSchedule     []JobSchedule `json:"ListSchedule"`
}

const strMsg = "msg"

var (
	// workerPoolBulk runs the per-id requests of bulk deletes.
	workerPoolBulk pond.Pool

	// workerPoolBackground runs fire and forget jobs like push notifications.
	workerPoolBackground pond.Pool

	// cronWorker runs housekeeping jobs.
	cronWorker *cron.Cron

	schedules   = make(map[string]*JobSchedule)
	schedulesMu sync.Mutex

	ErrNotQueued     = errors.New("not queued")
	ErrPoolsStopped  = errors.New("worker pools are not running")
	ErrDuplicateName = errors.New("job name already registered")
)

type wrappedLogger struct{}

// Info drops the cron scheduler chatter.
func (*wrappedLogger) Info(_ string, _ ...any) {}

// Error logs cron errors, including recovered panics.
func (*wrappedLogger) Error(err error, msg string, keysAndValues ...any) {
	logger.Logtype(logger.StatusError, 0).
		Any("values", keysAndValues).
		Str(strMsg, msg).
		Err(err).
		Msg("cron error")
}

// InitWorkerPools creates the bulk pool with bulkworkers concurrent tasks
// and the background pool. Values below 1 become 1.
func InitWorkerPools(bulkworkers, backgroundworkers int) {
	if bulkworkers < 1 {
		bulkworkers = 1
	}
	if backgroundworkers < 1 {
		backgroundworkers = 1
	}
	workerPoolBulk = pond.NewPool(bulkworkers)
	workerPoolBackground = pond.NewPool(backgroundworkers)
}

// BulkPool returns the pool used for bulk deletes, nil before InitWorkerPools.
func BulkPool() pond.Pool {
	return workerPoolBulk
}

// CloseWorkerPools stops the pools and waits for running tasks.
func CloseWorkerPools() {
	for _, pool := range []pond.Pool{workerPoolBulk, workerPoolBackground} {
		if pool != nil {
			pool.StopAndWait()
		}
	}
}

// SubmitBackground queues fn on the background pool. Errors are logged.
func SubmitBackground(name string, fn func(context.Context) error) error {
	pool := workerPoolBackground
	if pool == nil || pool.Stopped() {
		return ErrPoolsStopped
	}
	task := pool.Submit(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if err := fn(ctx); err != nil {
			logger.Logtype(logger.StatusError, 0).
				Str("job", name).
				Err(err).
				Msg("background job failed")
		}
	})
	if task == nil {
		return ErrNotQueued
	}
	return nil
}

// GetWorkerStats extracts the metrics of one pool.
func GetWorkerStats(w pond.Pool) StatsDetail {
	if w == nil {
		return StatsDetail{}
	}
	return StatsDetail{
		CompletedTasks:  w.CompletedTasks(),
		FailedTasks:     w.FailedTasks(),
		DroppedTasks:    w.DroppedTasks(),
		RunningWorkers:  uint64(w.RunningWorkers()),
		SubmittedTasks:  w.SubmittedTasks(),
		SuccessfulTasks: w.SuccessfulTasks(),
		WaitingTasks:    w.WaitingTasks(),
	}
}

// GetStats returns pool metrics and the registered cron jobs.
func GetStats() Stats {
	return Stats{
		WorkerBulk:       GetWorkerStats(workerPoolBulk),
		WorkerBackground: GetWorkerStats(workerPoolBackground),
		ListSchedule:     GetSchedules(),
	}
}

// CreateCronWorker initializes the cron scheduler. Specs accept an optional
// seconds field and descriptors like "@every 10m".
func CreateCronWorker() {
	loggerworker := wrappedLogger{}
	cronWorker = cron.New(
		cron.WithLocation(logger.GetTimeZone()),
		cron.WithLogger(&loggerworker),
		cron.WithChain(cron.Recover(&loggerworker), cron.SkipIfStillRunning(&loggerworker)),
		cron.WithParser(cron.NewParser(
			cron.SecondOptional|cron.Minute|cron.Hour|cron.Dom|cron.Month|cron.Dow|cron.Descriptor,
		)),
	)
	schedulesMu.Lock()
	schedules = make(map[string]*JobSchedule)
	schedulesMu.Unlock()
}

func StartCronWorker() {
	if cronWorker != nil {
		cronWorker.Start()
	}
}

// StopCronWorker stops scheduling and waits for running jobs.
func StopCronWorker() {
	if cronWorker != nil {
		<-cronWorker.Stop().Done()
	}
}

// DispatchCron registers fn under name on the cron spec.
func DispatchCron(name, spec string, fn func()) error {
	if cronWorker == nil {
		return ErrPoolsStopped
	}
	schedulesMu.Lock()
	defer schedulesMu.Unlock()
	if _, ok := schedules[name]; ok {
		return ErrDuplicateName
	}

	js := &JobSchedule{Name: name, Spec: spec}
	id, err := cronWorker.AddFunc(spec, func() {
		setScheduleStarted(name)
		defer setScheduleEnded(name)
		fn()
	})
	if err != nil {
		return err
	}
	js.entryID = id
	js.NextRun = cronWorker.Entry(id).Next
	schedules[name] = js

	logger.Logtype(logger.StatusDebug, 0).
		Str("job", name).
		Str("spec", spec).
		Msg("cron job registered")
	return nil
}

// GetSchedules returns a copy of the registered cron jobs.
func GetSchedules() []JobSchedule {
	schedulesMu.Lock()
	defer schedulesMu.Unlock()
	out := make([]JobSchedule, 0, len(schedules))
	for _, js := range schedules {
		cp := *js
		if cronWorker != nil {
			cp.NextRun = cronWorker.Entry(js.entryID).Next
		}
		out = append(out, cp)
	}
	return out
}

func setScheduleStarted(name string) {
	schedulesMu.Lock()
	defer schedulesMu.Unlock()
	if js, ok := schedules[name]; ok {
		js.IsRunning = true
		js.LastRun = time.Now()
	}
}

func setScheduleEnded(name string) {
	schedulesMu.Lock()
	defer schedulesMu.Unlock()
	if js, ok := schedules[name]; ok {
		js.IsRunning = false
	}
}
