package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"qurylysBack/internal/models"
)

type ChatRepository struct {
	DB *sql.DB
}

// FindChatBetween looks up the conversation between two users regardless of
// which side created it.
func (r *ChatRepository) FindChatBetween(ctx context.Context, userA, userB int) (models.Chat, error) {
	var chat models.Chat
	err := r.DB.QueryRowContext(ctx, `
               SELECT id, user1_id, user2_id, project_id, created_at
               FROM chats
               WHERE (user1_id = ? AND user2_id = ?) OR (user1_id = ? AND user2_id = ?)
               ORDER BY id LIMIT 1`,
		userA, userB, userB, userA).
		Scan(&chat.ID, &chat.User1ID, &chat.User2ID, &chat.ProjectID, &chat.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Chat{}, models.ErrChatNotFound
	}
	return chat, err
}

func (r *ChatRepository) CreateChat(ctx context.Context, chat models.Chat) (int, error) {
	result, err := r.DB.ExecContext(ctx,
		`INSERT INTO chats (user1_id, user2_id, project_id, created_at) VALUES (?, ?, ?, ?)`,
		chat.User1ID, chat.User2ID, chat.ProjectID, time.Now())
	if err != nil {
		return 0, err
	}
	chatID, err := result.LastInsertId()
	if err != nil {
		return 0, err
	}
	return int(chatID), nil
}

func (r *ChatRepository) GetChatByID(ctx context.Context, id int) (models.Chat, error) {
	var chat models.Chat
	err := r.DB.QueryRowContext(ctx,
		`SELECT id, user1_id, user2_id, project_id, created_at FROM chats WHERE id = ?`, id).
		Scan(&chat.ID, &chat.User1ID, &chat.User2ID, &chat.ProjectID, &chat.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Chat{}, models.ErrChatNotFound
	}
	return chat, err
}

func (r *ChatRepository) InsertMessage(ctx context.Context, m models.Message) (int, error) {
	result, err := r.DB.ExecContext(ctx,
		`INSERT INTO messages (chat_id, sender_id, text, is_system, created_at) VALUES (?, ?, ?, ?, ?)`,
		m.ChatID, m.SenderID, m.Text, m.IsSystem, time.Now())
	if err != nil {
		return 0, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, err
	}
	return int(id), nil
}
