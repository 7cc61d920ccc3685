package gateway

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"companion/model"
)

type staticToken string

func (s staticToken) Token() string { return string(s) }

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New(srv.URL+"/api", staticToken("tok"), opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		baseURL string
		wantErr bool
	}{
		{"default url", "", false},
		{"trailing slash trimmed", "http://localhost:8000/api/", false},
		{"missing scheme", "localhost:8000", true},
		{"garbage", "http://[::1", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(tt.baseURL, nil)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New(%q) error = %v, wantErr %v", tt.baseURL, err, tt.wantErr)
			}
			if err == nil && c.BaseURL()[len(c.BaseURL())-1] == '/' {
				t.Errorf("BaseURL() = %q has trailing slash", c.BaseURL())
			}
		})
	}
}

func TestClientAttachesBearerToken(t *testing.T) {
	tests := []struct {
		name  string
		token TokenSource
		want  string
	}{
		{"token present", staticToken("abc"), "Bearer abc"},
		{"empty token", staticToken(""), ""},
		{"no token source", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = r.Header.Get("Authorization")
				io.WriteString(w, `[]`)
			}))
			defer srv.Close()

			c, err := New(srv.URL, tt.token)
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			if _, err := c.ListConversations(context.Background()); err != nil {
				t.Fatalf("ListConversations() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Authorization = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestClientConversations(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method + " " + r.URL.Path {
		case "GET /api/chat/conversations":
			io.WriteString(w, `[
				{"id": 2, "user_id": 1, "name": "Work", "created_at": "2024-05-01T10:00:00.123456", "messages": []},
				{"id": 1, "user_id": 1, "name": null, "created_at": "2024-05-01T09:00:00Z"}
			]`)
		case "POST /api/chat/conversations":
			io.WriteString(w, `{"id": 3, "user_id": 1, "name": null, "created_at": "2024-05-01T11:00:00"}`)
		case "PATCH /api/chat/conversations/2/name":
			body, _ := io.ReadAll(r.Body)
			if string(body) != `{"name":"Renamed"}` {
				http.Error(w, string(body), http.StatusBadRequest)
				return
			}
			io.WriteString(w, `{"id": 2, "user_id": 1, "name": "Renamed", "created_at": "2024-05-01T10:00:00"}`)
		case "DELETE /api/chat/conversations/2":
			io.WriteString(w, `{"message": "Conversation deleted successfully"}`)
		default:
			http.NotFound(w, r)
		}
	})
	ctx := context.Background()

	conversations, err := c.ListConversations(ctx)
	if err != nil {
		t.Fatalf("ListConversations() error = %v", err)
	}
	if len(conversations) != 2 {
		t.Fatalf("got %d conversations, want 2", len(conversations))
	}
	if conversations[0].Name != "Work" || conversations[1].DisplayName() != "Chat 1" {
		t.Errorf("conversations = %+v", conversations)
	}
	wantTime := time.Date(2024, 5, 1, 10, 0, 0, 123456000, time.UTC)
	if !conversations[0].CreatedAt.Equal(wantTime) {
		t.Errorf("CreatedAt = %v, want %v", conversations[0].CreatedAt, wantTime)
	}

	created, err := c.CreateConversation(ctx)
	if err != nil || created.ID != 3 {
		t.Fatalf("CreateConversation() = %+v, %v", created, err)
	}

	renamed, err := c.RenameConversation(ctx, 2, "Renamed")
	if err != nil || renamed.Name != "Renamed" {
		t.Fatalf("RenameConversation() = %+v, %v", renamed, err)
	}

	if err := c.DeleteConversation(ctx, 2); err != nil {
		t.Fatalf("DeleteConversation() error = %v", err)
	}
}

func TestClientMessages(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method + " " + r.URL.Path {
		case "GET /api/chat/5/messages":
			io.WriteString(w, `[
				{"id": 1, "conversation_id": 5, "content": "hi", "is_ai": false, "created_at": "2024-05-01T10:00:00"},
				{"id": 2, "conversation_id": 5, "content": "hello!", "is_ai": true, "created_at": "2024-05-01T10:00:01"}
			]`)
		case "POST /api/chat/5/messages":
			io.WriteString(w, `{"id": 9, "conversation_id": 5, "content": "reply", "is_ai": true, "created_at": "2024-05-01T10:00:02"}`)
		default:
			http.NotFound(w, r)
		}
	})
	ctx := context.Background()

	messages, err := c.ListMessages(ctx, 5)
	if err != nil {
		t.Fatalf("ListMessages() error = %v", err)
	}
	if len(messages) != 2 || messages[0].ID != "1" || !messages[1].IsAI {
		t.Errorf("messages = %+v", messages)
	}

	reply, err := c.SendMessage(ctx, 5, "hi")
	if err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}
	if reply.ID != "9" || reply.Content != "reply" || !reply.IsAI {
		t.Errorf("reply = %+v", reply)
	}
}

func TestClientErrors(t *testing.T) {
	tests := []struct {
		name       string
		handler    http.HandlerFunc
		wantKind   model.TransportErrorKind
		wantStatus int
		wantDetail string
	}{
		{
			name: "http error with detail",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotFound)
				io.WriteString(w, `{"detail": "Conversation not found"}`)
			},
			wantKind:   model.KindHTTP,
			wantStatus: 404,
			wantDetail: "Conversation not found",
		},
		{
			name: "validation detail list",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnprocessableEntity)
				io.WriteString(w, `{"detail": [{"loc": ["body", "content"], "msg": "field required"}]}`)
			},
			wantKind:   model.KindHTTP,
			wantStatus: 422,
			wantDetail: "field required",
		},
		{
			name: "plain text body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
				io.WriteString(w, "bad gateway")
			},
			wantKind:   model.KindHTTP,
			wantStatus: 502,
			wantDetail: "bad gateway",
		},
		{
			name: "malformed json",
			handler: func(w http.ResponseWriter, r *http.Request) {
				io.WriteString(w, `{"id": `)
			},
			wantKind:   model.KindDecode,
			wantStatus: 200,
		},
		{
			name: "invalid record",
			handler: func(w http.ResponseWriter, r *http.Request) {
				io.WriteString(w, `{"id": 0, "conversation_id": 5, "content": "x", "is_ai": true, "created_at": "2024-05-01T10:00:00"}`)
			},
			wantKind: model.KindDecode,
		},
		{
			name: "reply for another conversation",
			handler: func(w http.ResponseWriter, r *http.Request) {
				io.WriteString(w, `{"id": 3, "conversation_id": 6, "content": "x", "is_ai": true, "created_at": "2024-05-01T10:00:00"}`)
			},
			wantKind: model.KindDecode,
		},
		{
			name: "user message as reply",
			handler: func(w http.ResponseWriter, r *http.Request) {
				io.WriteString(w, `{"id": 3, "conversation_id": 5, "content": "x", "is_ai": false, "created_at": "2024-05-01T10:00:00"}`)
			},
			wantKind: model.KindDecode,
		},
		{
			name: "missing timestamp",
			handler: func(w http.ResponseWriter, r *http.Request) {
				io.WriteString(w, `{"id": 3, "conversation_id": 5, "content": "x", "is_ai": true}`)
			},
			wantKind: model.KindDecode,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, tt.handler)

			_, err := c.SendMessage(context.Background(), 5, "x")
			var transportErr *model.TransportError
			if !errors.As(err, &transportErr) {
				t.Fatalf("SendMessage() error = %v, want *TransportError", err)
			}
			if transportErr.Kind != tt.wantKind {
				t.Errorf("Kind = %v, want %v", transportErr.Kind, tt.wantKind)
			}
			if tt.wantStatus != 0 && transportErr.Status != tt.wantStatus {
				t.Errorf("Status = %d, want %d", transportErr.Status, tt.wantStatus)
			}
			if tt.wantDetail != "" && transportErr.Detail() != tt.wantDetail {
				t.Errorf("Detail() = %q, want %q", transportErr.Detail(), tt.wantDetail)
			}
		})
	}
}

func TestClientNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := New(url, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	_, err = c.ListConversations(context.Background())
	var transportErr *model.TransportError
	if !errors.As(err, &transportErr) || transportErr.Kind != model.KindNetwork {
		t.Fatalf("error = %v, want network error", err)
	}
	if transportErr.Status != 0 {
		t.Errorf("Status = %d, want 0", transportErr.Status)
	}
}

func TestClientTimeout(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}, WithTimeout(50*time.Millisecond))

	_, err := c.ListConversations(context.Background())
	var transportErr *model.TransportError
	if !errors.As(err, &transportErr) || transportErr.Kind != model.KindTimeout {
		t.Fatalf("error = %v, want timeout error", err)
	}
}

func TestClientHTTPClientTimeout(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}, WithTimeout(0), WithHTTPClient(&http.Client{Timeout: 50 * time.Millisecond}))

	_, err := c.ListMessages(context.Background(), 5)
	var transportErr *model.TransportError
	if !errors.As(err, &transportErr) || transportErr.Kind != model.KindTimeout {
		t.Fatalf("error = %v, want timeout error", err)
	}
}

func TestClientLogin(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/auth/token" {
			http.NotFound(w, r)
			return
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/x-www-form-urlencoded" {
			http.Error(w, ct, http.StatusUnsupportedMediaType)
			return
		}
		r.ParseForm()
		if r.PostForm.Get("username") != "ada@example.com" || r.PostForm.Get("password") != "pw" {
			w.WriteHeader(http.StatusUnauthorized)
			io.WriteString(w, `{"detail": "Incorrect email or password"}`)
			return
		}
		io.WriteString(w, `{"access_token": "jwt", "token_type": "bearer"}`)
	})

	token, err := c.Login(context.Background(), "ada@example.com", "pw")
	if err != nil || token.AccessToken != "jwt" {
		t.Fatalf("Login() = %+v, %v", token, err)
	}

	_, err = c.Login(context.Background(), "ada@example.com", "wrong")
	var transportErr *model.TransportError
	if !errors.As(err, &transportErr) || transportErr.Status != 401 || transportErr.Detail() != "Incorrect email or password" {
		t.Fatalf("Login(wrong) error = %v", err)
	}
}
