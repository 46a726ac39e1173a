package repository

import (
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/cinequery/cinequery/internal/domain"
)

// SessionRepository handles session and message persistence
type SessionRepository struct {
	db *DB
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(db *DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create creates a new session
func (r *SessionRepository) Create(session *domain.Session) error {
	if session.ID == "" {
		session.ID = uuid.New().String()
	}
	now := time.Now()
	session.CreatedAt = now
	session.UpdatedAt = now

	_, err := r.db.Exec(`
		INSERT INTO sessions (id, created_at, updated_at)
		VALUES (?, ?, ?)
	`, session.ID, session.CreatedAt, session.UpdatedAt)

	return err
}

// Get retrieves a session by ID
func (r *SessionRepository) Get(id string) (*domain.Session, error) {
	session := &domain.Session{}

	err := r.db.QueryRow(`
		SELECT id, created_at, updated_at
		FROM sessions WHERE id = ?
	`, id).Scan(&session.ID, &session.CreatedAt, &session.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return session, nil
}

// Touch updates a session's updated_at timestamp
func (r *SessionRepository) Touch(id string) error {
	_, err := r.db.Exec(`UPDATE sessions SET updated_at = ? WHERE id = ?`, time.Now(), id)
	return err
}

// CreateMessage creates a new message
func (r *SessionRepository) CreateMessage(message *domain.Message) error {
	if message.ID == "" {
		message.ID = uuid.New().String()
	}
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now()
	}

	_, err := r.db.Exec(`
		INSERT INTO messages (id, session_id, role, content, route, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, message.ID, message.SessionID, message.Role, message.Content,
		string(message.Route), message.CreatedAt)

	return err
}

// GetMessages retrieves all messages for a session, oldest first
func (r *SessionRepository) GetMessages(sessionID string) ([]*domain.Message, error) {
	rows, err := r.db.Query(`
		SELECT id, session_id, role, content, route, created_at
		FROM messages WHERE session_id = ?
		ORDER BY created_at ASC, id ASC
	`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanMessages(rows)
}

// RecentMessages retrieves the last limit messages for a session, oldest first
func (r *SessionRepository) RecentMessages(sessionID string, limit int) ([]*domain.Message, error) {
	rows, err := r.db.Query(`
		SELECT id, session_id, role, content, route, created_at FROM (
			SELECT id, session_id, role, content, route, created_at
			FROM messages WHERE session_id = ?
			ORDER BY created_at DESC, id DESC
			LIMIT ?
		) ORDER BY created_at ASC, id ASC
	`, sessionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanMessages(rows)
}

func scanMessages(rows *sql.Rows) ([]*domain.Message, error) {
	var messages []*domain.Message
	for rows.Next() {
		message := &domain.Message{}
		var route sql.NullString

		if err := rows.Scan(&message.ID, &message.SessionID, &message.Role,
			&message.Content, &route, &message.CreatedAt); err != nil {
			return nil, err
		}

		if route.Valid {
			message.Route = domain.Route(route.String)
		}
		messages = append(messages, message)
	}

	return messages, rows.Err()
}

// CountChats returns the total number of user messages (chats)
func (r *SessionRepository) CountChats() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM messages WHERE role = 'user'`).Scan(&count)
	return count, err
}

// CountSessions returns the total number of sessions
func (r *SessionRepository) CountSessions() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM sessions`).Scan(&count)
	return count, err
}
