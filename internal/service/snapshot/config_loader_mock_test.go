package snapshot

import (
	"context"
	"sync"

	"github.com/heartmarshall/chatbot-backend/internal/domain"
)

var _ configLoader = &configLoaderMock{}

type configLoaderMock struct {
	LoadFunc func(ctx context.Context) (domain.BotConfig, error)

	calls struct {
		Load []struct {
			Ctx context.Context
		}
	}
	lockLoad sync.RWMutex
}

func (mock *configLoaderMock) Load(ctx context.Context) (domain.BotConfig, error) {
	if mock.LoadFunc == nil {
		panic("configLoaderMock.LoadFunc: method is nil but configLoader.Load was just called")
	}
	callInfo := struct {
		Ctx context.Context
	}{Ctx: ctx}
	mock.lockLoad.Lock()
	mock.calls.Load = append(mock.calls.Load, callInfo)
	mock.lockLoad.Unlock()
	return mock.LoadFunc(ctx)
}

func (mock *configLoaderMock) LoadCalls() []struct {
	Ctx context.Context
} {
	mock.lockLoad.RLock()
	calls := mock.calls.Load
	mock.lockLoad.RUnlock()
	return calls
}
