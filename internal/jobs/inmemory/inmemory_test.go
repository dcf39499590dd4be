package inmemory

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pedrolabre/personal-finance-manager/internal/jobs"
)

func waitForStatus(t *testing.T, store *Store, id string, want jobs.JobStatus) *jobs.ImportJob {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		job, err := store.GetJob(context.Background(), id)
		if err == nil && job.Status == want {
			return job
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("job %s never reached status %s", id, want)
	return nil
}

func TestStoreSaveGetList(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	if err := s.SaveJob(ctx, &jobs.ImportJob{}); err == nil {
		t.Error("expected error for missing job ID")
	}

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, src := range []jobs.ImportSource{jobs.SourceText, jobs.SourceGCS, jobs.SourceText} {
		job := &jobs.ImportJob{
			JobID:     string(rune('a' + i)),
			Source:    src,
			Status:    jobs.JobStatusPending,
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}
		if err := s.SaveJob(ctx, job); err != nil {
			t.Fatal(err)
		}
	}

	got, err := s.GetJob(ctx, "b")
	if err != nil || got.Source != jobs.SourceGCS {
		t.Fatalf("GetJob() = %+v, %v", got, err)
	}
	got.Status = jobs.JobStatusFailed
	if again, _ := s.GetJob(ctx, "b"); again.Status != jobs.JobStatusPending {
		t.Error("GetJob must return a copy")
	}

	if _, err := s.GetJob(ctx, "zz"); !errors.Is(err, jobs.ErrJobNotFound) {
		t.Errorf("err = %v, want ErrJobNotFound", err)
	}

	tests := []struct {
		name   string
		filter jobs.JobFilter
		want   []string
	}{
		{"all newest first", jobs.JobFilter{}, []string{"c", "b", "a"}},
		{"by source", jobs.JobFilter{Source: jobs.SourceText}, []string{"c", "a"}},
		{"limit", jobs.JobFilter{Limit: 1}, []string{"c"}},
		{"offset", jobs.JobFilter{Offset: 2}, []string{"a"}},
		{"offset past end", jobs.JobFilter{Offset: 5}, nil},
		{"by status", jobs.JobFilter{Status: jobs.JobStatusCompleted}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			list, err := s.ListJobs(ctx, tt.filter)
			if err != nil {
				t.Fatal(err)
			}
			if len(list) != len(tt.want) {
				t.Fatalf("got %d jobs, want %d", len(list), len(tt.want))
			}
			for i, id := range tt.want {
				if list[i].JobID != id {
					t.Errorf("list[%d] = %s, want %s", i, list[i].JobID, id)
				}
			}
		})
	}

	if err := s.UpdateJobStatus(ctx, "a", jobs.JobStatusFailed, "boom"); err != nil {
		t.Fatal(err)
	}
	if job, _ := s.GetJob(ctx, "a"); job.Status != jobs.JobStatusFailed || job.Error != "boom" {
		t.Errorf("job = %+v", job)
	}
	if err := s.UpdateJobStatus(ctx, "zz", jobs.JobStatusFailed, ""); !errors.Is(err, jobs.ErrJobNotFound) {
		t.Errorf("err = %v", err)
	}
}

func TestQueueProcessesJobs(t *testing.T) {
	store := NewStore()
	q := NewQueue(10, 2, store)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := q.Start(ctx, func(context.Context, jobs.Job) error { return nil }); err != nil {
		t.Fatal(err)
	}

	job := &jobs.ImportJob{Source: jobs.SourceText, Text: "a;1"}
	if err := q.PublishImport(ctx, job); err != nil {
		t.Fatal(err)
	}
	if job.JobID == "" || job.MaxRetries != jobs.DefaultMaxRetries || job.CreatedAt.IsZero() {
		t.Errorf("defaults not applied: %+v", job)
	}

	done := waitForStatus(t, store, job.JobID, jobs.JobStatusCompleted)
	if done.StartedAt == nil || done.CompletedAt == nil {
		t.Errorf("timestamps missing: %+v", done)
	}

	if err := q.Stop(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := q.PublishImport(ctx, &jobs.ImportJob{}); err == nil {
		t.Error("expected error publishing to a stopped queue")
	}
	if err := q.Start(ctx, nil); err == nil {
		t.Error("expected error starting a stopped queue")
	}
}

func TestQueuePermanentFailureIsNotRetried(t *testing.T) {
	store := NewStore()
	q := NewQueue(10, 1, store)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	defer q.Close()

	var calls atomic.Int32
	_ = q.Start(ctx, func(context.Context, jobs.Job) error {
		calls.Add(1)
		return jobs.Permanent(errors.New("bad input"))
	})

	job := &jobs.ImportJob{JobID: "perm"}
	if err := q.PublishImport(ctx, job); err != nil {
		t.Fatal(err)
	}
	failed := waitForStatus(t, store, "perm", jobs.JobStatusFailed)
	if failed.RetryCount != 0 || calls.Load() != 1 {
		t.Errorf("retries = %d, calls = %d", failed.RetryCount, calls.Load())
	}
}

func TestQueueRetriesTransientFailure(t *testing.T) {
	store := NewStore()
	q := NewQueue(10, 1, store)
	q.backoff = time.Millisecond
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	defer q.Close()

	var calls atomic.Int32
	_ = q.Start(ctx, func(context.Context, jobs.Job) error {
		if calls.Add(1) == 1 {
			return errors.New("temporary")
		}
		return nil
	})

	if err := q.PublishImport(ctx, &jobs.ImportJob{JobID: "retry"}); err != nil {
		t.Fatal(err)
	}
	done := waitForStatus(t, store, "retry", jobs.JobStatusCompleted)
	if done.RetryCount != 1 || done.Error != "" {
		t.Errorf("job = %+v", done)
	}
}

func TestQueueRecoversPanics(t *testing.T) {
	store := NewStore()
	q := NewQueue(10, 1, store)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	defer q.Close()

	_ = q.Start(ctx, func(context.Context, jobs.Job) error {
		panic("nil map")
	})
	if err := q.PublishImport(ctx, &jobs.ImportJob{JobID: "panic"}); err != nil {
		t.Fatal(err)
	}
	failed := waitForStatus(t, store, "panic", jobs.JobStatusFailed)
	if failed.Error == "" {
		t.Error("expected error message")
	}
}
