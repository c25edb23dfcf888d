package router

import (
	"context"
	"sync"
	"time"

	"github.com/heartmarshall/chatbot-backend/internal/service/snapshot"
)

var _ snapshotSource = &snapshotSourceMock{}

type snapshotSourceMock struct {
	CurrentFunc func(ctx context.Context) (*snapshot.Snapshot, error)

	calls struct {
		Current []struct {
			Ctx context.Context
		}
	}
	lockCurrent sync.RWMutex
}

func (mock *snapshotSourceMock) Current(ctx context.Context) (*snapshot.Snapshot, error) {
	if mock.CurrentFunc == nil {
		panic("snapshotSourceMock.CurrentFunc: method is nil but snapshotSource.Current was just called")
	}
	callInfo := struct {
		Ctx context.Context
	}{Ctx: ctx}
	mock.lockCurrent.Lock()
	mock.calls.Current = append(mock.calls.Current, callInfo)
	mock.lockCurrent.Unlock()
	return mock.CurrentFunc(ctx)
}

func (mock *snapshotSourceMock) CurrentCalls() []struct {
	Ctx context.Context
} {
	mock.lockCurrent.RLock()
	calls := mock.calls.Current
	mock.lockCurrent.RUnlock()
	return calls
}

var _ replier = &replierMock{}

type replierMock struct {
	ReplyFunc func(ctx context.Context, inv Invocation, text string) error

	calls struct {
		Reply []struct {
			Ctx  context.Context
			Inv  Invocation
			Text string
		}
	}
	lockReply sync.RWMutex
}

func (mock *replierMock) Reply(ctx context.Context, inv Invocation, text string) error {
	if mock.ReplyFunc == nil {
		panic("replierMock.ReplyFunc: method is nil but replier.Reply was just called")
	}
	callInfo := struct {
		Ctx  context.Context
		Inv  Invocation
		Text string
	}{Ctx: ctx, Inv: inv, Text: text}
	mock.lockReply.Lock()
	mock.calls.Reply = append(mock.calls.Reply, callInfo)
	mock.lockReply.Unlock()
	return mock.ReplyFunc(ctx, inv, text)
}

func (mock *replierMock) ReplyCalls() []struct {
	Ctx  context.Context
	Inv  Invocation
	Text string
} {
	mock.lockReply.RLock()
	calls := mock.calls.Reply
	mock.lockReply.RUnlock()
	return calls
}

var _ routeMetrics = &routeMetricsMock{}

type routeMetricsMock struct {
	RoutedEventFunc    func(status string, reason string)
	HandlerInvokedFunc func(handler string, result string, took time.Duration)

	calls struct {
		RoutedEvent []struct {
			Status string
			Reason string
		}
		HandlerInvoked []struct {
			Handler string
			Result  string
			Took    time.Duration
		}
	}
	lockRoutedEvent    sync.RWMutex
	lockHandlerInvoked sync.RWMutex
}

func (mock *routeMetricsMock) RoutedEvent(status string, reason string) {
	callInfo := struct {
		Status string
		Reason string
	}{Status: status, Reason: reason}
	mock.lockRoutedEvent.Lock()
	mock.calls.RoutedEvent = append(mock.calls.RoutedEvent, callInfo)
	mock.lockRoutedEvent.Unlock()
	if mock.RoutedEventFunc != nil {
		mock.RoutedEventFunc(status, reason)
	}
}

func (mock *routeMetricsMock) RoutedEventCalls() []struct {
	Status string
	Reason string
} {
	mock.lockRoutedEvent.RLock()
	calls := mock.calls.RoutedEvent
	mock.lockRoutedEvent.RUnlock()
	return calls
}

func (mock *routeMetricsMock) HandlerInvoked(handler string, result string, took time.Duration) {
	callInfo := struct {
		Handler string
		Result  string
		Took    time.Duration
	}{Handler: handler, Result: result, Took: took}
	mock.lockHandlerInvoked.Lock()
	mock.calls.HandlerInvoked = append(mock.calls.HandlerInvoked, callInfo)
	mock.lockHandlerInvoked.Unlock()
	if mock.HandlerInvokedFunc != nil {
		mock.HandlerInvokedFunc(handler, result, took)
	}
}

func (mock *routeMetricsMock) HandlerInvokedCalls() []struct {
	Handler string
	Result  string
	Took    time.Duration
} {
	mock.lockHandlerInvoked.RLock()
	calls := mock.calls.HandlerInvoked
	mock.lockHandlerInvoked.RUnlock()
	return calls
}
