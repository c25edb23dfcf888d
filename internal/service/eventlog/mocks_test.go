package eventlog

import (
	"context"
	"slices"
	"sync"

	"github.com/heartmarshall/chatbot-backend/internal/domain"
)

var _ appender = &appenderMock{}

type appenderMock struct {
	AppendBatchFunc func(ctx context.Context, events []domain.ChatEvent) error

	calls struct {
		AppendBatch []struct {
			Ctx    context.Context
			Events []domain.ChatEvent
		}
	}
	lockAppendBatch sync.RWMutex
}

func (mock *appenderMock) AppendBatch(ctx context.Context, events []domain.ChatEvent) error {
	if mock.AppendBatchFunc == nil {
		panic("appenderMock.AppendBatchFunc: method is nil but appender.AppendBatch was just called")
	}
	callInfo := struct {
		Ctx    context.Context
		Events []domain.ChatEvent
	}{Ctx: ctx, Events: slices.Clone(events)}
	mock.lockAppendBatch.Lock()
	mock.calls.AppendBatch = append(mock.calls.AppendBatch, callInfo)
	mock.lockAppendBatch.Unlock()
	return mock.AppendBatchFunc(ctx, events)
}

func (mock *appenderMock) AppendBatchCalls() []struct {
	Ctx    context.Context
	Events []domain.ChatEvent
} {
	mock.lockAppendBatch.RLock()
	calls := mock.calls.AppendBatch
	mock.lockAppendBatch.RUnlock()
	return calls
}
