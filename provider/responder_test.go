package provider

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

type fakeProvider struct {
	answer string
	err    error
	got    []Turn
}

func (f *fakeProvider) Complete(_ context.Context, turns []Turn) (string, error) {
	f.got = turns
	return f.answer, f.err
}

func (f *fakeProvider) Name() string { return "fake/test" }

func (f *fakeProvider) Ping(context.Context) error { return f.err }

func TestResponderTurns(t *testing.T) {
	history := []Turn{
		{Role: RoleUser, Content: "1"},
		{Role: RoleAssistant, Content: "2"},
		{Role: RoleUser, Content: "3"},
	}

	tests := []struct {
		name string
		opts []ResponderOption
		want []Turn
	}{
		{
			name: "default prompt and full history",
			want: []Turn{
				{Role: RoleSystem, Content: CompanionPrompt},
				{Role: RoleUser, Content: "1"},
				{Role: RoleAssistant, Content: "2"},
				{Role: RoleUser, Content: "3"},
				{Role: RoleUser, Content: "new"},
			},
		},
		{
			name: "history limited to most recent",
			opts: []ResponderOption{WithSystemPrompt(""), WithHistoryLimit(2)},
			want: []Turn{
				{Role: RoleAssistant, Content: "2"},
				{Role: RoleUser, Content: "3"},
				{Role: RoleUser, Content: "new"},
			},
		},
		{
			name: "no history",
			opts: []ResponderOption{WithSystemPrompt("short"), WithHistoryLimit(0)},
			want: []Turn{
				{Role: RoleSystem, Content: "short"},
				{Role: RoleUser, Content: "new"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResponder(&fakeProvider{}, tt.opts...)
			if got := r.Turns(history, "new"); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Turns() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestResponderReply(t *testing.T) {
	t.Run("trims the answer", func(t *testing.T) {
		fake := &fakeProvider{answer: "  I'm here for you.\n"}
		got, err := NewResponder(fake).Reply(context.Background(), nil, "hi")
		if err != nil {
			t.Fatalf("Reply() error = %v", err)
		}
		if got != "I'm here for you." {
			t.Errorf("Reply() = %q", got)
		}
		if last := fake.got[len(fake.got)-1]; last.Content != "hi" || last.Role != RoleUser {
			t.Errorf("last turn = %+v, want the user message", last)
		}
	})

	t.Run("empty answer", func(t *testing.T) {
		_, err := NewResponder(&fakeProvider{answer: " "}).Reply(context.Background(), nil, "hi")
		if err == nil {
			t.Fatal("expected error for blank answer")
		}
	})

	t.Run("provider error", func(t *testing.T) {
		boom := errors.New("rate limited")
		_, err := NewResponder(&fakeProvider{err: boom}).Reply(context.Background(), nil, "hi")
		if !errors.Is(err, boom) {
			t.Fatalf("Reply() error = %v, want %v", err, boom)
		}
	})
}
