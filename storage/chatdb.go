package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a row does not exist or belongs to another user.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when a unique column already holds the value.
var ErrDuplicate = errors.New("already exists")

type UserRow struct {
	ID             int64
	Email          string
	HashedPassword string
	FullName       string
	IsActive       bool
	CreatedAt      time.Time
}

type ConversationRow struct {
	ID        int64
	UserID    int64
	Name      sql.NullString
	CreatedAt time.Time
}

type MessageRow struct {
	ID             int64
	ConversationID int64
	Content        string
	IsAI           bool
	CreatedAt      time.Time
}

// ChatDB persists the development gateway's users, tokens, conversations and
// messages in SQLite.
type ChatDB struct {
	db *sql.DB
}

// OpenChatDB opens (or creates) chat.db in dataDir.
func OpenChatDB(dataDir string) (*ChatDB, error) {
	return openChatDB(filepath.Join(dataDir, "chat.db"))
}

// OpenMemoryChatDB opens a private in-memory database.
func OpenMemoryChatDB() (*ChatDB, error) {
	return openChatDB(":memory:")
}

func openChatDB(dsn string) (*ChatDB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Every connection to :memory: is a separate database, and SQLite allows a
	// single writer anyway.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	chatDB := &ChatDB{db: db}

	if err := chatDB.initialize(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return chatDB, nil
}

func (c *ChatDB) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		email TEXT NOT NULL UNIQUE,
		hashed_password TEXT NOT NULL,
		full_name TEXT NOT NULL,
		is_active INTEGER NOT NULL DEFAULT 1,
		created_at DATETIME NOT NULL
	);
	CREATE TABLE IF NOT EXISTS tokens (
		token TEXT PRIMARY KEY,
		user_id INTEGER NOT NULL,
		created_at DATETIME NOT NULL
	);
	CREATE TABLE IF NOT EXISTS conversations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		name TEXT,
		created_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_conversations_user ON conversations(user_id);
	CREATE TABLE IF NOT EXISTS messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		conversation_id INTEGER NOT NULL,
		content TEXT NOT NULL,
		is_ai INTEGER NOT NULL,
		created_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id);
	`

	_, err := c.db.Exec(schema)
	return err
}

func (c *ChatDB) CreateUser(email, hashedPassword, fullName string) (*UserRow, error) {
	if _, err := c.UserByEmail(email); err == nil {
		return nil, ErrDuplicate
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	user := &UserRow{
		Email:          email,
		HashedPassword: hashedPassword,
		FullName:       fullName,
		IsActive:       true,
		CreatedAt:      time.Now().UTC(),
	}

	result, err := c.db.Exec(`
	INSERT INTO users (email, hashed_password, full_name, is_active, created_at)
	VALUES (?, ?, ?, ?, ?)
	`, user.Email, user.HashedPassword, user.FullName, user.IsActive, user.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}

	user.ID, err = result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read user id: %w", err)
	}
	return user, nil
}

func (c *ChatDB) UserByEmail(email string) (*UserRow, error) {
	return c.scanUser(c.db.QueryRow(`
	SELECT id, email, hashed_password, full_name, is_active, created_at
	FROM users
	WHERE email = ?
	`, email))
}

func (c *ChatDB) UserByID(id int64) (*UserRow, error) {
	return c.scanUser(c.db.QueryRow(`
	SELECT id, email, hashed_password, full_name, is_active, created_at
	FROM users
	WHERE id = ?
	`, id))
}

func (c *ChatDB) scanUser(row *sql.Row) (*UserRow, error) {
	var user UserRow
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.HashedPassword,
		&user.FullName,
		&user.IsActive,
		&user.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *ChatDB) SaveToken(token string, userID int64) error {
	_, err := c.db.Exec(`INSERT INTO tokens (token, user_id, created_at) VALUES (?, ?, ?)`, token, userID, time.Now().UTC())
	return err
}

// UserForToken resolves a bearer token.
func (c *ChatDB) UserForToken(token string) (*UserRow, error) {
	var userID int64
	err := c.db.QueryRow(`SELECT user_id FROM tokens WHERE token = ?`, token).Scan(&userID)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return c.UserByID(userID)
}

func (c *ChatDB) CreateConversation(userID int64) (*ConversationRow, error) {
	conv := &ConversationRow{
		UserID:    userID,
		CreatedAt: time.Now().UTC(),
	}

	result, err := c.db.Exec(`INSERT INTO conversations (user_id, name, created_at) VALUES (?, NULL, ?)`, userID, conv.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert conversation: %w", err)
	}

	conv.ID, err = result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read conversation id: %w", err)
	}
	return conv, nil
}

// Conversation returns the conversation if it belongs to userID.
func (c *ChatDB) Conversation(userID, id int64) (*ConversationRow, error) {
	var conv ConversationRow
	err := c.db.QueryRow(`
	SELECT id, user_id, name, created_at
	FROM conversations
	WHERE id = ? AND user_id = ?
	`, id, userID).Scan(&conv.ID, &conv.UserID, &conv.Name, &conv.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// ListConversations returns the user's conversations, newest first.
func (c *ChatDB) ListConversations(userID int64) ([]ConversationRow, error) {
	rows, err := c.db.Query(`
	SELECT id, user_id, name, created_at
	FROM conversations
	WHERE user_id = ?
	ORDER BY created_at DESC, id DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	conversations := []ConversationRow{}
	for rows.Next() {
		var conv ConversationRow
		if err := rows.Scan(&conv.ID, &conv.UserID, &conv.Name, &conv.CreatedAt); err != nil {
			return nil, err
		}
		conversations = append(conversations, conv)
	}
	return conversations, rows.Err()
}

func (c *ChatDB) RenameConversation(userID, id int64, name string) (*ConversationRow, error) {
	result, err := c.db.Exec(`UPDATE conversations SET name = ? WHERE id = ? AND user_id = ?`, name, id, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to rename conversation: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to check affected rows: %w", err)
	}
	if rows == 0 {
		return nil, ErrNotFound
	}

	return c.Conversation(userID, id)
}

// DeleteConversation removes the conversation and its messages.
func (c *ChatDB) DeleteConversation(userID, id int64) error {
	if _, err := c.Conversation(userID, id); err != nil {
		return err
	}

	tx, err := c.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM messages WHERE conversation_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete messages: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM conversations WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}
	return tx.Commit()
}

func (c *ChatDB) AddMessage(conversationID int64, content string, isAI bool) (*MessageRow, error) {
	msg := &MessageRow{
		ConversationID: conversationID,
		Content:        content,
		IsAI:           isAI,
		CreatedAt:      time.Now().UTC(),
	}

	result, err := c.db.Exec(`
	INSERT INTO messages (conversation_id, content, is_ai, created_at)
	VALUES (?, ?, ?, ?)
	`, msg.ConversationID, msg.Content, msg.IsAI, msg.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert message: %w", err)
	}

	msg.ID, err = result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read message id: %w", err)
	}
	return msg, nil
}

// ListMessages returns the conversation's messages, oldest first.
func (c *ChatDB) ListMessages(conversationID int64) ([]MessageRow, error) {
	rows, err := c.db.Query(`
	SELECT id, conversation_id, content, is_ai, created_at
	FROM messages
	WHERE conversation_id = ?
	ORDER BY created_at ASC, id ASC
	`, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := []MessageRow{}
	for rows.Next() {
		var msg MessageRow
		if err := rows.Scan(&msg.ID, &msg.ConversationID, &msg.Content, &msg.IsAI, &msg.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

func (c *ChatDB) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}
