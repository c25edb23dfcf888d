package directory

import (
	"context"
	"sync"

	"github.com/heartmarshall/chatbot-backend/internal/domain"
)

var _ channelRepo = &channelRepoMock{}

type channelRepoMock struct {
	GetByNameFunc       func(ctx context.Context, name string) (*domain.Channel, error)
	UpsertRoomStateFunc func(ctx context.Context, name string, roomID string) (*domain.Channel, error)

	calls struct {
		GetByName []struct {
			Ctx  context.Context
			Name string
		}
		UpsertRoomState []struct {
			Ctx    context.Context
			Name   string
			RoomID string
		}
	}
	lockGetByName       sync.RWMutex
	lockUpsertRoomState sync.RWMutex
}

func (mock *channelRepoMock) GetByName(ctx context.Context, name string) (*domain.Channel, error) {
	if mock.GetByNameFunc == nil {
		panic("channelRepoMock.GetByNameFunc: method is nil but channelRepo.GetByName was just called")
	}
	callInfo := struct {
		Ctx  context.Context
		Name string
	}{Ctx: ctx, Name: name}
	mock.lockGetByName.Lock()
	mock.calls.GetByName = append(mock.calls.GetByName, callInfo)
	mock.lockGetByName.Unlock()
	return mock.GetByNameFunc(ctx, name)
}

func (mock *channelRepoMock) GetByNameCalls() []struct {
	Ctx  context.Context
	Name string
} {
	mock.lockGetByName.RLock()
	calls := mock.calls.GetByName
	mock.lockGetByName.RUnlock()
	return calls
}

func (mock *channelRepoMock) UpsertRoomState(ctx context.Context, name string, roomID string) (*domain.Channel, error) {
	if mock.UpsertRoomStateFunc == nil {
		panic("channelRepoMock.UpsertRoomStateFunc: method is nil but channelRepo.UpsertRoomState was just called")
	}
	callInfo := struct {
		Ctx    context.Context
		Name   string
		RoomID string
	}{Ctx: ctx, Name: name, RoomID: roomID}
	mock.lockUpsertRoomState.Lock()
	mock.calls.UpsertRoomState = append(mock.calls.UpsertRoomState, callInfo)
	mock.lockUpsertRoomState.Unlock()
	return mock.UpsertRoomStateFunc(ctx, name, roomID)
}

func (mock *channelRepoMock) UpsertRoomStateCalls() []struct {
	Ctx    context.Context
	Name   string
	RoomID string
} {
	mock.lockUpsertRoomState.RLock()
	calls := mock.calls.UpsertRoomState
	mock.lockUpsertRoomState.RUnlock()
	return calls
}

var _ userRepo = &userRepoMock{}

type userRepoMock struct {
	UpsertFunc func(ctx context.Context, id domain.UserIdentity) (*domain.User, error)

	calls struct {
		Upsert []struct {
			Ctx context.Context
			ID  domain.UserIdentity
		}
	}
	lockUpsert sync.RWMutex
}

func (mock *userRepoMock) Upsert(ctx context.Context, id domain.UserIdentity) (*domain.User, error) {
	if mock.UpsertFunc == nil {
		panic("userRepoMock.UpsertFunc: method is nil but userRepo.Upsert was just called")
	}
	callInfo := struct {
		Ctx context.Context
		ID  domain.UserIdentity
	}{Ctx: ctx, ID: id}
	mock.lockUpsert.Lock()
	mock.calls.Upsert = append(mock.calls.Upsert, callInfo)
	mock.lockUpsert.Unlock()
	return mock.UpsertFunc(ctx, id)
}

func (mock *userRepoMock) UpsertCalls() []struct {
	Ctx context.Context
	ID  domain.UserIdentity
} {
	mock.lockUpsert.RLock()
	calls := mock.calls.Upsert
	mock.lockUpsert.RUnlock()
	return calls
}
