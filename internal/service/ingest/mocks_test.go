package ingest

import (
	"context"
	"sync"

	"github.com/heartmarshall/chatbot-backend/internal/domain"
)

var _ directory = &directoryMock{}

type directoryMock struct {
	ChannelFunc   func(ctx context.Context, name string) (*domain.Channel, error)
	RoomStateFunc func(ctx context.Context, name string, roomID string) (*domain.Channel, error)
	UserFunc      func(ctx context.Context, id domain.UserIdentity) (*domain.User, error)

	calls struct {
		Channel []struct {
			Ctx  context.Context
			Name string
		}
		RoomState []struct {
			Ctx    context.Context
			Name   string
			RoomID string
		}
		User []struct {
			Ctx context.Context
			ID  domain.UserIdentity
		}
	}
	lockChannel   sync.RWMutex
	lockRoomState sync.RWMutex
	lockUser      sync.RWMutex
}

func (mock *directoryMock) Channel(ctx context.Context, name string) (*domain.Channel, error) {
	if mock.ChannelFunc == nil {
		panic("directoryMock.ChannelFunc: method is nil but directory.Channel was just called")
	}
	callInfo := struct {
		Ctx  context.Context
		Name string
	}{Ctx: ctx, Name: name}
	mock.lockChannel.Lock()
	mock.calls.Channel = append(mock.calls.Channel, callInfo)
	mock.lockChannel.Unlock()
	return mock.ChannelFunc(ctx, name)
}

func (mock *directoryMock) ChannelCalls() []struct {
	Ctx  context.Context
	Name string
} {
	mock.lockChannel.RLock()
	calls := mock.calls.Channel
	mock.lockChannel.RUnlock()
	return calls
}

func (mock *directoryMock) RoomState(ctx context.Context, name string, roomID string) (*domain.Channel, error) {
	if mock.RoomStateFunc == nil {
		panic("directoryMock.RoomStateFunc: method is nil but directory.RoomState was just called")
	}
	callInfo := struct {
		Ctx    context.Context
		Name   string
		RoomID string
	}{Ctx: ctx, Name: name, RoomID: roomID}
	mock.lockRoomState.Lock()
	mock.calls.RoomState = append(mock.calls.RoomState, callInfo)
	mock.lockRoomState.Unlock()
	return mock.RoomStateFunc(ctx, name, roomID)
}

func (mock *directoryMock) RoomStateCalls() []struct {
	Ctx    context.Context
	Name   string
	RoomID string
} {
	mock.lockRoomState.RLock()
	calls := mock.calls.RoomState
	mock.lockRoomState.RUnlock()
	return calls
}

func (mock *directoryMock) User(ctx context.Context, id domain.UserIdentity) (*domain.User, error) {
	if mock.UserFunc == nil {
		panic("directoryMock.UserFunc: method is nil but directory.User was just called")
	}
	callInfo := struct {
		Ctx context.Context
		ID  domain.UserIdentity
	}{Ctx: ctx, ID: id}
	mock.lockUser.Lock()
	mock.calls.User = append(mock.calls.User, callInfo)
	mock.lockUser.Unlock()
	return mock.UserFunc(ctx, id)
}

func (mock *directoryMock) UserCalls() []struct {
	Ctx context.Context
	ID  domain.UserIdentity
} {
	mock.lockUser.RLock()
	calls := mock.calls.User
	mock.lockUser.RUnlock()
	return calls
}
