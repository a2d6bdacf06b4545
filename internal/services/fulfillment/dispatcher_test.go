package fulfillment

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/interview-coach/internal/lib/rabbitmq"
)

type PublisherMock struct{ mock.Mock }

func (m *PublisherMock) Publish(ctx context.Context, exchange, routingKey, messageID string, message any) error {
	return m.Called(ctx, exchange, routingKey, messageID, message).Error(0)
}

func withDeadline() any {
	return mock.MatchedBy(func(ctx context.Context) bool {
		_, ok := ctx.Deadline()
		return ok
	})
}

func jobFor(task Task) any {
	return mock.MatchedBy(func(j Job) bool {
		return j.SessionID == testSessionID && j.Task == task && !j.RequestedAt.IsZero()
	})
}

func TestAMQPDispatcher_Dispatch(t *testing.T) {
	tests := []struct {
		name       string
		setupMocks func(p *PublisherMock)
		wantErr    bool
	}{
		{
			name: "publishes both tasks",
			setupMocks: func(p *PublisherMock) {
				p.On("Publish", withDeadline(), rabbitmq.FulfillmentExchange, rabbitmq.FeedbackRoutingKey,
					testSessionID+":feedback", jobFor(TaskFeedback)).Return(nil).Once()
				p.On("Publish", withDeadline(), rabbitmq.FulfillmentExchange, rabbitmq.ReportRoutingKey,
					testSessionID+":report", jobFor(TaskReport)).Return(nil).Once()
			},
		},
		{
			name: "feedback publish failure still publishes report",
			setupMocks: func(p *PublisherMock) {
				p.On("Publish", mock.Anything, rabbitmq.FulfillmentExchange, rabbitmq.FeedbackRoutingKey, mock.Anything, mock.Anything).
					Return(errors.New("channel closed")).Once()
				p.On("Publish", withDeadline(), rabbitmq.FulfillmentExchange, rabbitmq.ReportRoutingKey,
					testSessionID+":report", jobFor(TaskReport)).Return(nil).Once()
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pub := new(PublisherMock)
			tt.setupMocks(pub)

			err := NewAMQPDispatcher(pub, newNoopLogger()).Dispatch(context.Background(), testSessionID)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			pub.AssertExpectations(t)
		})
	}
}

func TestAMQPDispatcher_DispatchTask(t *testing.T) {
	pub := new(PublisherMock)
	pub.On("Publish", withDeadline(), rabbitmq.FulfillmentExchange, rabbitmq.ReportRoutingKey,
		testSessionID+":report", jobFor(TaskReport)).Return(nil).Once()

	err := NewAMQPDispatcher(pub, newNoopLogger()).DispatchTask(context.Background(), testSessionID, TaskReport)
	require.NoError(t, err)
	pub.AssertExpectations(t)
}

type recordingRunner struct {
	mu      sync.Mutex
	calls   []Task
	ctxErrs []error
	release chan struct{}
	err     error
}

func (r *recordingRunner) Run(ctx context.Context, task Task, _ string) error {
	if r.release != nil {
		<-r.release
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, task)
	r.ctxErrs = append(r.ctxErrs, ctx.Err())
	return r.err
}

func TestLocalDispatcher_RunsTasksDetachedFromRequest(t *testing.T) {
	runner := &recordingRunner{release: make(chan struct{}), err: errors.New("gemini down")}
	d := NewLocalDispatcher(runner, time.Minute, newNoopLogger())

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, d.Dispatch(ctx, testSessionID))
	// запрос завершился раньше задач
	cancel()
	close(runner.release)

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer waitCancel()
	require.NoError(t, d.Wait(waitCtx))

	runner.mu.Lock()
	defer runner.mu.Unlock()
	assert.ElementsMatch(t, []Task{TaskFeedback, TaskReport}, runner.calls)
	for _, err := range runner.ctxErrs {
		assert.NoError(t, err)
	}
}

func TestLocalDispatcher_WaitHonoursContext(t *testing.T) {
	runner := &recordingRunner{release: make(chan struct{})}
	d := NewLocalDispatcher(runner, time.Minute, newNoopLogger())
	require.NoError(t, d.DispatchTask(context.Background(), testSessionID, TaskFeedback))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, d.Wait(ctx), context.DeadlineExceeded)

	close(runner.release)
	require.NoError(t, d.Wait(context.Background()))
}

func TestLocalDispatcher_TaskTimeout(t *testing.T) {
	var gotDeadline time.Time
	done := make(chan struct{})
	runner := runnerFunc(func(ctx context.Context, _ Task, _ string) error {
		gotDeadline, _ = ctx.Deadline()
		close(done)
		return nil
	})
	d := NewLocalDispatcher(runner, 30*time.Second, newNoopLogger())
	require.NoError(t, d.DispatchTask(context.Background(), testSessionID, TaskReport))
	<-done

	assert.WithinDuration(t, time.Now().Add(30*time.Second), gotDeadline, 2*time.Second)
}

type runnerFunc func(ctx context.Context, task Task, sessionID string) error

func (f runnerFunc) Run(ctx context.Context, task Task, sessionID string) error {
	return f(ctx, task, sessionID)
}
