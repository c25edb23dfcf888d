package catalog

import (
	"context"
	"sync"

	"github.com/heartmarshall/chatbot-backend/internal/domain"
)

var _ commandRepo = &commandRepoMock{}

type commandRepoMock struct {
	ListFunc  func(ctx context.Context, limit int, offset int) ([]domain.CommandSummary, error)
	CountFunc func(ctx context.Context) (int, error)

	calls struct {
		List []struct {
			Ctx    context.Context
			Limit  int
			Offset int
		}
		Count []struct {
			Ctx context.Context
		}
	}
	lockList  sync.RWMutex
	lockCount sync.RWMutex
}

func (mock *commandRepoMock) List(ctx context.Context, limit int, offset int) ([]domain.CommandSummary, error) {
	if mock.ListFunc == nil {
		panic("commandRepoMock.ListFunc: method is nil but commandRepo.List was just called")
	}
	callInfo := struct {
		Ctx    context.Context
		Limit  int
		Offset int
	}{Ctx: ctx, Limit: limit, Offset: offset}
	mock.lockList.Lock()
	mock.calls.List = append(mock.calls.List, callInfo)
	mock.lockList.Unlock()
	return mock.ListFunc(ctx, limit, offset)
}

func (mock *commandRepoMock) ListCalls() []struct {
	Ctx    context.Context
	Limit  int
	Offset int
} {
	mock.lockList.RLock()
	calls := mock.calls.List
	mock.lockList.RUnlock()
	return calls
}

func (mock *commandRepoMock) Count(ctx context.Context) (int, error) {
	if mock.CountFunc == nil {
		panic("commandRepoMock.CountFunc: method is nil but commandRepo.Count was just called")
	}
	callInfo := struct {
		Ctx context.Context
	}{Ctx: ctx}
	mock.lockCount.Lock()
	mock.calls.Count = append(mock.calls.Count, callInfo)
	mock.lockCount.Unlock()
	return mock.CountFunc(ctx)
}

func (mock *commandRepoMock) CountCalls() []struct {
	Ctx context.Context
} {
	mock.lockCount.RLock()
	calls := mock.calls.Count
	mock.lockCount.RUnlock()
	return calls
}
