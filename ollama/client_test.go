package ollama

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNewClient(t *testing.T) {
	tests := []struct {
		name      string
		baseURL   string
		model     string
		wantURL   string
		wantModel string
		wantErr   bool
	}{
		{"defaults", "", "", DefaultBaseURL, DefaultModel, false},
		{"custom", "http://gpu-box:11434", "qwen2.5", "http://gpu-box:11434", "qwen2.5", false},
		{"missing scheme", "gpu-box", "", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewClient(tt.baseURL, tt.model)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("NewClient() error = %v", err)
			}
			if c.BaseURL() != tt.wantURL || c.GetModel() != tt.wantModel {
				t.Errorf("got (%s, %s), want (%s, %s)", c.BaseURL(), c.GetModel(), tt.wantURL, tt.wantModel)
			}
		})
	}
}

func TestHasModel(t *testing.T) {
	names := []string{"llama3.1:latest", "qwen2.5:7b"}

	tests := []struct {
		model string
		want  bool
	}{
		{"llama3.1", true},
		{"llama3.1:latest", true},
		{"qwen2.5:7b", true},
		{"qwen2.5", false},
		{"mistral", false},
	}

	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			if got := HasModel(names, tt.model); got != tt.want {
				t.Errorf("HasModel(%q) = %v, want %v", tt.model, got, tt.want)
			}
		})
	}
}

func TestPing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"models":[{"name":"llama3.1:latest","model":"llama3.1:latest","size":1}]}`))
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, "llama3.1")
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	if err := c.Ping(context.Background()); err != nil {
		t.Errorf("Ping() error = %v", err)
	}

	missing, _ := NewClient(srv.URL, "mistral")
	err = missing.Ping(context.Background())
	if err == nil || !strings.Contains(err.Error(), "ollama pull mistral") {
		t.Errorf("Ping() error = %v, want a pull hint", err)
	}
}
