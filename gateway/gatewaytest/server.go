package gatewaytest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"companion/storage"
)

// Route names accepted by FailNext and Hold.
const (
	RouteRegister           = "register"
	RouteLogin              = "login"
	RouteProfile            = "profile"
	RouteListConversations  = "list_conversations"
	RouteCreateConversation = "create_conversation"
	RouteRenameConversation = "rename_conversation"
	RouteDeleteConversation = "delete_conversation"
	RouteListMessages       = "list_messages"
	RouteSendMessage        = "send_message"
	RouteFineTune           = "fine_tune"
	RouteHealth             = "health"
)

// ReplyFunc produces the assistant reply for a user message. history holds the
// conversation's earlier messages, oldest first. An error becomes a 500 whose
// detail is the error text; the user message stays stored.
type ReplyFunc func(ctx context.Context, history []storage.MessageRow, content string) (string, error)

// EchoReply answers every message with a fixed echo.
func EchoReply(_ context.Context, _ []storage.MessageRow, content string) (string, error) {
	return "You said: " + content, nil
}

type userContextKey struct{}

// Gateway is an in-process implementation of the chat gateway HTTP API backed
// by SQLite. Replies come from a ReplyFunc, EchoReply unless configured.
type Gateway struct {
	db     *storage.ChatDB
	reply  ReplyFunc
	router chi.Router

	mu       sync.Mutex
	failures map[string][]int
	holds    map[string]*hold
}

type hold struct {
	gate    chan struct{}
	arrived chan struct{}
}

type GatewayOption func(*Gateway)

func WithReply(fn ReplyFunc) GatewayOption {
	return func(g *Gateway) {
		g.reply = fn
	}
}

// WithRequestLog logs every request through chi's logger middleware.
func WithRequestLog(logger *log.Logger) GatewayOption {
	return func(g *Gateway) {
		g.router.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{Logger: logger, NoColor: true}))
	}
}

// NewGateway builds the router. All routes live under /api.
func NewGateway(db *storage.ChatDB, opts ...GatewayOption) *Gateway {
	g := &Gateway{
		db:       db,
		reply:    EchoReply,
		router:   chi.NewRouter(),
		failures: make(map[string][]int),
		holds:    make(map[string]*hold),
	}

	for _, opt := range opts {
		opt(g)
	}

	g.router.Use(middleware.Recoverer)
	g.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	g.router.Route("/api", func(r chi.Router) {
		r.Get("/health", g.handle(RouteHealth, g.health))
		r.Post("/auth/register", g.handle(RouteRegister, g.register))
		r.Post("/auth/token", g.handle(RouteLogin, g.login))

		r.Group(func(r chi.Router) {
			r.Use(g.authenticate)

			r.Get("/users/me", g.handle(RouteProfile, g.profile))
			r.Post("/fine-tune", g.handle(RouteFineTune, g.fineTune))

			r.Get("/chat/conversations", g.handle(RouteListConversations, g.listConversations))
			r.Post("/chat/conversations", g.handle(RouteCreateConversation, g.createConversation))
			r.Patch("/chat/conversations/{id}/name", g.handle(RouteRenameConversation, g.renameConversation))
			r.Delete("/chat/conversations/{id}", g.handle(RouteDeleteConversation, g.deleteConversation))
			r.Get("/chat/{id}/messages", g.handle(RouteListMessages, g.listMessages))
			r.Post("/chat/{id}/messages", g.handle(RouteSendMessage, g.sendMessage))
		})
	})

	return g
}

func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	g.router.ServeHTTP(w, r)
}

// FailNext makes the next request to route fail with status before touching
// the database. Calls queue up.
func (g *Gateway) FailNext(route string, status int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failures[route] = append(g.failures[route], status)
}

// Hold blocks the next request to route until release is called. started
// receives once that request has arrived.
func (g *Gateway) Hold(route string) (started <-chan struct{}, release func()) {
	h := &hold{
		gate:    make(chan struct{}),
		arrived: make(chan struct{}, 1),
	}

	g.mu.Lock()
	g.holds[route] = h
	g.mu.Unlock()

	var once sync.Once
	release = func() {
		once.Do(func() {
			g.mu.Lock()
			if g.holds[route] == h {
				delete(g.holds, route)
			}
			g.mu.Unlock()
			close(h.gate)
		})
	}

	return h.arrived, release
}

func (g *Gateway) handle(route string, fn http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		g.mu.Lock()
		h := g.holds[route]
		delete(g.holds, route)
		g.mu.Unlock()

		if h != nil {
			select {
			case h.arrived <- struct{}{}:
			default:
			}
			select {
			case <-h.gate:
			case <-r.Context().Done():
				return
			}
		}

		if status, ok := g.nextFailure(route); ok {
			writeDetail(w, status, "Injected failure")
			return
		}
		fn(w, r)
	}
}

func (g *Gateway) nextFailure(route string) (int, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	queued := g.failures[route]
	if len(queued) == 0 {
		return 0, false
	}
	g.failures[route] = queued[1:]
	return queued[0], true
}

func (g *Gateway) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			w.Header().Set("WWW-Authenticate", "Bearer")
			writeDetail(w, http.StatusUnauthorized, "Not authenticated")
			return
		}

		user, err := g.db.UserForToken(token)
		if err != nil {
			w.Header().Set("WWW-Authenticate", "Bearer")
			writeDetail(w, http.StatusUnauthorized, "Could not validate credentials")
			return
		}

		ctx := context.WithValue(r.Context(), userContextKey{}, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func currentUser(r *http.Request) *storage.UserRow {
	user, _ := r.Context().Value(userContextKey{}).(*storage.UserRow)
	return user
}

func (g *Gateway) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (g *Gateway) register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		FullName string `json:"full_name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "Invalid request body")
		return
	}
	if !strings.Contains(req.Email, "@") {
		writeDetail(w, http.StatusUnprocessableEntity, "value is not a valid email address")
		return
	}
	if req.Password == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "password must not be empty")
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.MinCost)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, err.Error())
		return
	}

	user, err := g.db.CreateUser(req.Email, string(hashed), req.FullName)
	if errors.Is(err, storage.ErrDuplicate) {
		writeDetail(w, http.StatusBadRequest, "Email already registered")
		return
	}
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, userResponse(user))
}

func (g *Gateway) login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "Invalid form")
		return
	}
	email := r.PostForm.Get("username")
	password := r.PostForm.Get("password")

	user, err := g.db.UserByEmail(email)
	if err != nil || bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(password)) != nil {
		w.Header().Set("WWW-Authenticate", "Bearer")
		writeDetail(w, http.StatusUnauthorized, "Incorrect email or password")
		return
	}

	token := uuid.NewString()
	if err := g.db.SaveToken(token, user.ID); err != nil {
		writeDetail(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"access_token": token, "token_type": "bearer"})
}

func (g *Gateway) profile(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, userResponse(currentUser(r)))
}

func (g *Gateway) fineTune(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Fine-tuning started"})
}

func (g *Gateway) listConversations(w http.ResponseWriter, r *http.Request) {
	rows, err := g.db.ListConversations(currentUser(r).ID)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, err.Error())
		return
	}

	out := make([]conversationJSON, 0, len(rows))
	for _, row := range rows {
		out = append(out, conversationResponse(row))
	}
	writeJSON(w, http.StatusOK, out)
}

func (g *Gateway) createConversation(w http.ResponseWriter, r *http.Request) {
	row, err := g.db.CreateConversation(currentUser(r).ID)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, conversationResponse(*row))
}

func (g *Gateway) renameConversation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req struct {
		Name *string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == nil {
		writeDetail(w, http.StatusUnprocessableEntity, "Field required: name")
		return
	}

	row, err := g.db.RenameConversation(currentUser(r).ID, id, *req.Name)
	if errors.Is(err, storage.ErrNotFound) {
		writeDetail(w, http.StatusNotFound, "Conversation not found")
		return
	}
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, conversationResponse(*row))
}

func (g *Gateway) deleteConversation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	err := g.db.DeleteConversation(currentUser(r).ID, id)
	if errors.Is(err, storage.ErrNotFound) {
		writeDetail(w, http.StatusNotFound, "Conversation not found")
		return
	}
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Conversation deleted successfully"})
}

func (g *Gateway) listMessages(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if _, err := g.db.Conversation(currentUser(r).ID, id); err != nil {
		writeDetail(w, http.StatusNotFound, "Conversation not found")
		return
	}

	rows, err := g.db.ListMessages(id)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, err.Error())
		return
	}

	out := make([]messageJSON, 0, len(rows))
	for _, row := range rows {
		out = append(out, messageResponse(row))
	}
	writeJSON(w, http.StatusOK, out)
}

// sendMessage stores the user message, then the reply, and returns only the
// reply.
func (g *Gateway) sendMessage(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if _, err := g.db.Conversation(currentUser(r).ID, id); err != nil {
		writeDetail(w, http.StatusNotFound, "Conversation not found")
		return
	}

	var req struct {
		Content *string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Content == nil {
		writeDetail(w, http.StatusUnprocessableEntity, "Field required: content")
		return
	}

	history, err := g.db.ListMessages(id)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, err.Error())
		return
	}
	if _, err := g.db.AddMessage(id, *req.Content, false); err != nil {
		writeDetail(w, http.StatusInternalServerError, err.Error())
		return
	}

	answer, err := g.reply(r.Context(), history, *req.Content)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, err.Error())
		return
	}
	reply, err := g.db.AddMessage(id, answer, true)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, messageResponse(*reply))
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "Invalid conversation id")
		return 0, false
	}
	return id, true
}

type userJSON struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	IsActive bool   `json:"is_active"`
}

type conversationJSON struct {
	ID        int64         `json:"id"`
	UserID    int64         `json:"user_id"`
	Name      *string       `json:"name"`
	CreatedAt string        `json:"created_at"`
	Messages  []messageJSON `json:"messages"`
}

type messageJSON struct {
	ID             int64  `json:"id"`
	ConversationID int64  `json:"conversation_id"`
	Content        string `json:"content"`
	IsAI           bool   `json:"is_ai"`
	CreatedAt      string `json:"created_at"`
}

// The gateway serializes naive UTC datetimes.
const wireTimeLayout = "2006-01-02T15:04:05.000000"

func userResponse(u *storage.UserRow) userJSON {
	return userJSON{ID: u.ID, Email: u.Email, FullName: u.FullName, IsActive: u.IsActive}
}

func conversationResponse(row storage.ConversationRow) conversationJSON {
	out := conversationJSON{
		ID:        row.ID,
		UserID:    row.UserID,
		CreatedAt: row.CreatedAt.UTC().Format(wireTimeLayout),
		Messages:  []messageJSON{},
	}
	if row.Name.Valid {
		name := row.Name.String
		out.Name = &name
	}
	return out
}

func messageResponse(row storage.MessageRow) messageJSON {
	return messageJSON{
		ID:             row.ID,
		ConversationID: row.ConversationID,
		Content:        row.Content,
		IsAI:           row.IsAI,
		CreatedAt:      row.CreatedAt.UTC().Format(wireTimeLayout),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

// Server is a Gateway running on an httptest server with its own in-memory
// database.
type Server struct {
	*Gateway
	HTTP *httptest.Server
	DB   *storage.ChatDB
}

// NewServer starts a dev gateway. Close it when done.
func NewServer(opts ...GatewayOption) (*Server, error) {
	db, err := storage.OpenMemoryChatDB()
	if err != nil {
		return nil, fmt.Errorf("failed to open dev gateway database: %w", err)
	}

	gw := NewGateway(db, opts...)
	return &Server{
		Gateway: gw,
		HTTP:    httptest.NewServer(gw),
		DB:      db,
	}, nil
}

// URL is the API base URL, including the /api prefix.
func (s *Server) URL() string {
	return s.HTTP.URL + "/api"
}

// Seed registers a user and returns a valid bearer token for it.
func (s *Server) Seed(email, password, fullName string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return "", err
	}
	user, err := s.DB.CreateUser(email, string(hashed), fullName)
	if err != nil {
		return "", err
	}
	token := uuid.NewString()
	if err := s.DB.SaveToken(token, user.ID); err != nil {
		return "", err
	}
	return token, nil
}

func (s *Server) Close() {
	s.HTTP.Close()
	s.DB.Close()
}
