package services

import (
	"context"
	"errors"

	"qurylysBack/internal/models"
	"qurylysBack/internal/repositories"
)

// ChatService is the narrow adapter over the conversation store. The quote
// workflow only ever needs find-or-create and system messages; the full chat
// transport lives elsewhere.
type ChatService struct {
	ChatRepo *repositories.ChatRepository
}

// FindOrCreateConversation returns the chat id between the two parties,
// creating the thread on first contact.
func (s *ChatService) FindOrCreateConversation(ctx context.Context, userA, userB int, projectID *int) (int, error) {
	chat, err := s.ChatRepo.FindChatBetween(ctx, userA, userB)
	if err == nil {
		return chat.ID, nil
	}
	if !errors.Is(err, models.ErrChatNotFound) {
		return 0, err
	}
	return s.ChatRepo.CreateChat(ctx, models.Chat{User1ID: userA, User2ID: userB, ProjectID: projectID})
}

func (s *ChatService) PostSystemMessage(ctx context.Context, chatID int, text string) error {
	if chatID == 0 {
		return models.ErrChatNotFound
	}
	_, err := s.ChatRepo.InsertMessage(ctx, models.Message{ChatID: chatID, Text: text, IsSystem: true})
	return err
}
