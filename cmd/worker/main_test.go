package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pedrolabre/personal-finance-manager/internal/service"
	"github.com/rs/zerolog"
)

type MockRefresher struct {
	RefreshStatusesFunc func(ctx context.Context) (service.RefreshReport, error)
}

var _ StatusRefresher = (*MockRefresher)(nil)

func (m *MockRefresher) RefreshStatuses(ctx context.Context) (service.RefreshReport, error) {
	return m.RefreshStatusesFunc(ctx)
}

type MockDispatcher struct {
	DispatchDueFunc func(ctx context.Context, now time.Time) (int, error)
	calls           int
}

var _ Dispatcher = (*MockDispatcher)(nil)

func (m *MockDispatcher) DispatchDue(ctx context.Context, now time.Time) (int, error) {
	m.calls++
	return m.DispatchDueFunc(ctx, now)
}

func TestRunOnce(t *testing.T) {
	now := time.Date(2024, 6, 15, 9, 0, 0, 0, time.UTC)
	errDB := errors.New("database is locked")

	tests := []struct {
		name       string
		refreshErr error
		sendErr    error
		wantErr    bool
	}{
		{name: "both succeed"},
		{name: "refresh failure still dispatches", refreshErr: errDB, wantErr: true},
		{name: "dispatch failure", sendErr: errDB, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			refresher := &MockRefresher{RefreshStatusesFunc: func(ctx context.Context) (service.RefreshReport, error) {
				return service.RefreshReport{InstallmentsMarked: 2, DebtsMarked: 1}, tt.refreshErr
			}}
			var gotNow time.Time
			dispatcher := &MockDispatcher{DispatchDueFunc: func(ctx context.Context, at time.Time) (int, error) {
				gotNow = at
				return 1, tt.sendErr
			}}

			err := runOnce(context.Background(), refresher, dispatcher, now, zerolog.Nop())
			if (err != nil) != tt.wantErr {
				t.Fatalf("runOnce() error = %v, wantErr %v", err, tt.wantErr)
			}
			if dispatcher.calls != 1 {
				t.Errorf("DispatchDue called %d times, want 1", dispatcher.calls)
			}
			if !gotNow.Equal(now) {
				t.Errorf("DispatchDue now = %v, want %v", gotNow, now)
			}
		})
	}
}
