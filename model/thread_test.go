package model_test

import (
	"context"
	"reflect"
	"testing"
	"time"

	"companion/gateway/gatewaytest"
	"companion/model"
)

var clock = time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC)

func newTestThread(gw model.Gateway) *model.ThreadController {
	return model.NewThreadController(gw,
		model.WithIDGenerator(func() string { return "x" }),
		model.WithClock(func() time.Time { return clock }),
	)
}

func contents(messages []model.Message) []string {
	out := make([]string, 0, len(messages))
	for _, m := range messages {
		out = append(out, m.Content)
	}
	return out
}

func TestThreadSelectConversation(t *testing.T) {
	gw := gatewaytest.NewMockGateway(gatewaytest.Conversations(1, 2)...)
	gw.SetMessages(1, gatewaytest.TestThread(1)...)
	gw.SetMessages(2, gatewaytest.AIMessage(10, 2, "other"))
	thread := newTestThread(gw)

	if got := thread.Snapshot().State; got != model.ThreadIdle {
		t.Fatalf("initial state = %v, want idle", got)
	}

	if err := thread.SelectConversation(context.Background(), 1); err != nil {
		t.Fatalf("SelectConversation(1) error = %v", err)
	}
	snap := thread.Snapshot()
	if snap.State != model.ThreadReady || snap.ConversationID != 1 {
		t.Fatalf("snapshot = %+v, want ready on 1", snap)
	}
	if !reflect.DeepEqual(snap.Messages, gatewaytest.TestThread(1)) {
		t.Errorf("messages = %+v", snap.Messages)
	}

	// Same conversation again does not refetch.
	if err := thread.SelectConversation(context.Background(), 1); err != nil {
		t.Fatalf("reselect error = %v", err)
	}
	if n := gw.CallCount("ListMessages"); n != 1 {
		t.Errorf("ListMessages called %d times, want 1", n)
	}

	if err := thread.SelectConversation(context.Background(), 2); err != nil {
		t.Fatalf("SelectConversation(2) error = %v", err)
	}
	if got := contents(thread.Snapshot().Messages); !reflect.DeepEqual(got, []string{"other"}) {
		t.Errorf("thread not replaced: %v", got)
	}

	if err := thread.SelectConversation(context.Background(), model.NoConversation); err != nil {
		t.Fatalf("SelectConversation(none) error = %v", err)
	}
	snap = thread.Snapshot()
	if snap.State != model.ThreadIdle || len(snap.Messages) != 0 {
		t.Errorf("snapshot = %+v, want idle and empty", snap)
	}
}

func TestThreadLoadFailure(t *testing.T) {
	gw := gatewaytest.NewMockGateway()
	gw.SetMessages(1, gatewaytest.TestThread(1)...)
	fail := true
	gw.ListMessagesFunc = func(ctx context.Context, id model.ConversationID) ([]model.Message, error) {
		if fail {
			return nil, gatewaytest.NetworkError("list messages")
		}
		return gatewaytest.TestThread(1), nil
	}
	thread := newTestThread(gw)

	err := thread.SelectConversation(context.Background(), 1)
	if model.KindOf(err) != model.ErrorKindTransport {
		t.Fatalf("SelectConversation() error = %v, want transport error", err)
	}
	snap := thread.Snapshot()
	if snap.State != model.ThreadReady || len(snap.Messages) != 0 {
		t.Fatalf("snapshot = %+v, want ready and empty", snap)
	}

	// Reselecting the same conversation retries after a failure.
	fail = false
	if err := thread.SelectConversation(context.Background(), 1); err != nil {
		t.Fatalf("retry error = %v", err)
	}
	if n := len(thread.Snapshot().Messages); n != 3 {
		t.Errorf("got %d messages after retry, want 3", n)
	}
}

func TestThreadReload(t *testing.T) {
	gw := gatewaytest.NewMockGateway()
	gw.SetMessages(1, gatewaytest.UserMessage(1, 1, "first"))
	thread := newTestThread(gw)

	if err := thread.Reload(context.Background()); err != nil {
		t.Fatalf("Reload() while idle error = %v", err)
	}
	if n := gw.CallCount("ListMessages"); n != 0 {
		t.Errorf("Reload while idle called gateway %d times", n)
	}

	if err := thread.SelectConversation(context.Background(), 1); err != nil {
		t.Fatalf("SelectConversation() error = %v", err)
	}
	gw.SetMessages(1, gatewaytest.UserMessage(1, 1, "first"), gatewaytest.AIMessage(2, 1, "second"))

	if err := thread.Reload(context.Background()); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	if got := contents(thread.Snapshot().Messages); !reflect.DeepEqual(got, []string{"first", "second"}) {
		t.Errorf("messages = %v", got)
	}
}

func TestThreadSendScenario(t *testing.T) {
	gw := gatewaytest.NewMockGateway(gatewaytest.Conversation(1, "Chat 1"))
	gate := gatewaytest.NewGate()
	reply := gatewaytest.AIMessage(9, 1, "hello!")
	gw.SendMessageFunc = func(ctx context.Context, id model.ConversationID, content string) (model.Message, error) {
		if err := gate.Wait(ctx); err != nil {
			return model.Message{}, err
		}
		return reply, nil
	}
	thread := newTestThread(gw)
	if err := thread.SelectConversation(context.Background(), 1); err != nil {
		t.Fatalf("SelectConversation() error = %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- thread.Send(context.Background(), "hi") }()
	gate.Entered(t)

	provisional := model.Message{
		ID:             "tmp-x",
		ConversationID: 1,
		Content:        "hi",
		IsAI:           false,
		CreatedAt:      clock,
		Provisional:    true,
	}
	snap := thread.Snapshot()
	if !snap.Sending() {
		t.Errorf("state = %v, want sending", snap.State)
	}
	if !reflect.DeepEqual(snap.Messages, []model.Message{provisional}) {
		t.Errorf("optimistic thread = %+v", snap.Messages)
	}

	gate.Release()
	if err := <-done; err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	confirmed := provisional
	confirmed.Provisional = false
	snap = thread.Snapshot()
	if snap.State != model.ThreadReady {
		t.Errorf("state = %v, want ready", snap.State)
	}
	if !reflect.DeepEqual(snap.Messages, []model.Message{confirmed, reply}) {
		t.Errorf("final thread = %+v", snap.Messages)
	}
}

func TestThreadSendFailureRollsBack(t *testing.T) {
	gw := gatewaytest.NewMockGateway()
	before := gatewaytest.TestThread(1)
	gw.SetMessages(1, before...)
	gw.SendMessageFunc = func(ctx context.Context, id model.ConversationID, content string) (model.Message, error) {
		return model.Message{}, gatewaytest.HTTPError("send message", 500, "upstream failed")
	}
	thread := newTestThread(gw)
	if err := thread.SelectConversation(context.Background(), 1); err != nil {
		t.Fatalf("SelectConversation() error = %v", err)
	}

	err := thread.Send(context.Background(), "hello")
	if model.KindOf(err) != model.ErrorKindTransport {
		t.Fatalf("Send() error = %v, want transport error", err)
	}

	snap := thread.Snapshot()
	if !reflect.DeepEqual(snap.Messages, before) {
		t.Errorf("thread after failed send = %+v, want %+v", snap.Messages, before)
	}
	if snap.State != model.ThreadReady {
		t.Errorf("state = %v, want ready", snap.State)
	}
}

func TestThreadSendOneInFlight(t *testing.T) {
	gw := gatewaytest.NewMockGateway()
	gate := gatewaytest.NewGate()
	gw.SendMessageFunc = func(ctx context.Context, id model.ConversationID, content string) (model.Message, error) {
		if err := gate.Wait(ctx); err != nil {
			return model.Message{}, err
		}
		return gatewaytest.AIMessage(5, 1, "reply to "+content), nil
	}
	thread := newTestThread(gw)
	if err := thread.SelectConversation(context.Background(), 1); err != nil {
		t.Fatalf("SelectConversation() error = %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- thread.Send(context.Background(), "a") }()
	gate.Entered(t)

	if err := thread.Send(context.Background(), "b"); err != nil {
		t.Errorf("second Send() error = %v, want nil", err)
	}

	gate.Release()
	if err := <-done; err != nil {
		t.Fatalf("first Send() error = %v", err)
	}

	var sent []string
	for _, c := range gw.Calls() {
		if c.Method == "SendMessage" {
			sent = append(sent, c.Arg)
		}
	}
	if !reflect.DeepEqual(sent, []string{"a"}) {
		t.Errorf("transmitted %v, want [a]", sent)
	}
	if got := contents(thread.Snapshot().Messages); !reflect.DeepEqual(got, []string{"a", "reply to a"}) {
		t.Errorf("thread = %v", got)
	}
}

func TestThreadSendValidation(t *testing.T) {
	tests := []struct {
		name    string
		conversation model.ConversationID
		content string
	}{
		{"empty content", 1, ""},
		{"whitespace content", 1, " \n\t "},
		{"no conversation", model.NoConversation, "hello"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := gatewaytest.NewMockGateway()
			thread := newTestThread(gw)
			if err := thread.SelectConversation(context.Background(), tt.conversation); err != nil {
				t.Fatalf("SelectConversation() error = %v", err)
			}
			before := thread.Snapshot()

			err := thread.Send(context.Background(), tt.content)
			if model.KindOf(err) != model.ErrorKindValidation {
				t.Fatalf("Send() error = %v, want validation error", err)
			}
			if n := gw.CallCount("SendMessage"); n != 0 {
				t.Errorf("SendMessage called %d times", n)
			}
			if !reflect.DeepEqual(thread.Snapshot(), before) {
				t.Errorf("state changed on rejected send")
			}
		})
	}
}

func TestThreadStaleLoadIsDiscarded(t *testing.T) {
	gw := gatewaytest.NewMockGateway()
	gw.SetMessages(2, gatewaytest.AIMessage(20, 2, "from B"))
	gateA := gatewaytest.NewGate()
	gw.ListMessagesFunc = func(ctx context.Context, id model.ConversationID) ([]model.Message, error) {
		if id == 1 {
			if err := gateA.Wait(ctx); err != nil {
				return nil, err
			}
			return []model.Message{gatewaytest.AIMessage(10, 1, "from A")}, nil
		}
		return []model.Message{gatewaytest.AIMessage(20, 2, "from B")}, nil
	}
	thread := newTestThread(gw)

	doneA := make(chan error, 1)
	go func() { doneA <- thread.SelectConversation(context.Background(), 1) }()
	gateA.Entered(t)

	if err := thread.SelectConversation(context.Background(), 2); err != nil {
		t.Fatalf("SelectConversation(2) error = %v", err)
	}

	gateA.Release()
	if err := <-doneA; err != nil {
		t.Fatalf("stale SelectConversation(1) error = %v, want nil", err)
	}

	snap := thread.Snapshot()
	if snap.ConversationID != 2 || snap.State != model.ThreadReady {
		t.Errorf("snapshot = %+v, want ready on 2", snap)
	}
	if got := contents(snap.Messages); !reflect.DeepEqual(got, []string{"from B"}) {
		t.Errorf("messages = %v, want B's", got)
	}
}

func TestThreadStaleSendIsDiscarded(t *testing.T) {
	gw := gatewaytest.NewMockGateway()
	gw.SetMessages(2, gatewaytest.AIMessage(20, 2, "from B"))
	gate := gatewaytest.NewGate()
	gw.SendMessageFunc = func(ctx context.Context, id model.ConversationID, content string) (model.Message, error) {
		if err := gate.Wait(ctx); err != nil {
			return model.Message{}, err
		}
		return gatewaytest.AIMessage(11, 1, "late reply"), nil
	}
	thread := newTestThread(gw)
	if err := thread.SelectConversation(context.Background(), 1); err != nil {
		t.Fatalf("SelectConversation(1) error = %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- thread.Send(context.Background(), "hi") }()
	gate.Entered(t)

	if err := thread.SelectConversation(context.Background(), 2); err != nil {
		t.Fatalf("SelectConversation(2) error = %v", err)
	}
	gate.Release()
	if err := <-done; err != nil {
		t.Fatalf("stale Send() error = %v, want nil", err)
	}

	if got := contents(thread.Snapshot().Messages); !reflect.DeepEqual(got, []string{"from B"}) {
		t.Errorf("messages = %v, want B's only", got)
	}
}

func TestThreadSubscribeSeesOptimisticState(t *testing.T) {
	gw := gatewaytest.NewMockGateway()
	thread := newTestThread(gw)
	if err := thread.SelectConversation(context.Background(), 1); err != nil {
		t.Fatalf("SelectConversation() error = %v", err)
	}

	var states []model.ThreadState
	thread.Subscribe(func(s model.ThreadSnapshot) {
		states = append(states, s.State)
	})

	if err := thread.Send(context.Background(), "hi"); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	want := []model.ThreadState{model.ThreadSending, model.ThreadReady}
	if !reflect.DeepEqual(states, want) {
		t.Errorf("states = %v, want %v", states, want)
	}
}
