package jobs

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/liquid-ledger/internal/application/ledger"
	"github.com/jhoicas/liquid-ledger/internal/domain"
)

type fakeClient struct {
	tasks []*asynq.Task
	err   error
}

func (f *fakeClient) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.tasks = append(f.tasks, task)
	return &asynq.TaskInfo{Type: task.Type()}, nil
}

type fakeReconciler struct {
	parts []string
	err   error
	all   []*ledger.ReconcileReport
}

func (f *fakeReconciler) Reconcile(_ context.Context, partID string) (*ledger.ReconcileReport, error) {
	f.parts = append(f.parts, partID)
	if f.err != nil {
		return nil, f.err
	}
	return &ledger.ReconcileReport{PartID: partID}, nil
}

func (f *fakeReconciler) ReconcileAll(context.Context) ([]*ledger.ReconcileReport, error) {
	return f.all, f.err
}

func TestEnqueuer_EnqueueReconcile(t *testing.T) {
	client := &fakeClient{}
	e := NewEnqueuer(client)

	require.NoError(t, e.EnqueueReconcile(context.Background(), "p-1"))
	require.Len(t, client.tasks, 1)
	assert.Equal(t, TaskReconcilePart, client.tasks[0].Type())
	assert.JSONEq(t, `{"part_id":"p-1"}`, string(client.tasks[0].Payload()))

	assert.Error(t, e.EnqueueReconcile(context.Background(), " "))
}

func TestEnqueuer_DuplicateIsNotAnError(t *testing.T) {
	e := NewEnqueuer(&fakeClient{err: asynq.ErrDuplicateTask})
	assert.NoError(t, e.EnqueueReconcile(context.Background(), "p-1"))

	e = NewEnqueuer(&fakeClient{err: errors.New("redis caído")})
	assert.Error(t, e.EnqueueReconcile(context.Background(), "p-1"))
}

func TestReconcileJob_HandlePart(t *testing.T) {
	rec := &fakeReconciler{}
	job := NewReconcileJob(rec, zerolog.Nop())

	task, err := NewReconcilePartTask("p-7")
	require.NoError(t, err)
	require.NoError(t, job.HandlePart(context.Background(), task))
	assert.Equal(t, []string{"p-7"}, rec.parts)
}

func TestReconcileJob_BadPayloadSkipsRetry(t *testing.T) {
	job := NewReconcileJob(&fakeReconciler{}, zerolog.Nop())

	err := job.HandlePart(context.Background(), asynq.NewTask(TaskReconcilePart, []byte("{no json")))
	assert.ErrorIs(t, err, asynq.SkipRetry)

	err = job.HandlePart(context.Background(), asynq.NewTask(TaskReconcilePart, []byte(`{}`)))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestReconcileJob_UnknownPartSkipsRetry(t *testing.T) {
	job := NewReconcileJob(&fakeReconciler{err: fmt.Errorf("%w: repuesto x", domain.ErrNotFound)}, zerolog.Nop())
	task, err := NewReconcilePartTask("x")
	require.NoError(t, err)
	assert.ErrorIs(t, job.HandlePart(context.Background(), task), asynq.SkipRetry)
}

func TestReconcileJob_TransientErrorIsRetried(t *testing.T) {
	job := NewReconcileJob(&fakeReconciler{err: errors.New("conexión perdida")}, zerolog.Nop())
	task, err := NewReconcilePartTask("x")
	require.NoError(t, err)
	err = job.HandlePart(context.Background(), task)
	require.Error(t, err)
	assert.NotErrorIs(t, err, asynq.SkipRetry)
}

func TestReconcileJob_HandleAll(t *testing.T) {
	rec := &fakeReconciler{all: []*ledger.ReconcileReport{
		{PartID: "a"},
		{PartID: "b", Drifted: 1, Locations: []ledger.LocationDrift{{Location: "store"}}},
	}}
	job := NewReconcileJob(rec, zerolog.Nop())
	assert.NoError(t, job.HandleAll(context.Background(), NewReconcileAllTask()))
}

func TestNewWorker_RequiresJob(t *testing.T) {
	_, err := NewWorker(WorkerConfig{})
	assert.Error(t, err)
}
