package services

import (
	"context"
	"database/sql"
	"log"

	"firebase.google.com/go/messaging"
)

// Notifier is the fire-and-forget notification sink. Implementations must
// never fail the caller: delivery problems are logged and swallowed so the
// workflow's correctness never depends on a push going out.
type Notifier interface {
	Notify(ctx context.Context, userID int, title, body string, data map[string]string)
}

type NotificationService struct {
	Client *messaging.Client
	DB     *sql.DB
}

func (s *NotificationService) Notify(ctx context.Context, userID int, title, body string, data map[string]string) {
	if s == nil || s.Client == nil {
		log.Printf("notification skipped (no FCM client): user=%d title=%q", userID, title)
		return
	}
	tokens, err := s.tokensForUser(ctx, userID)
	if err != nil {
		log.Printf("failed to fetch notify tokens for user %d: %v", userID, err)
		return
	}
	for _, token := range tokens {
		message := &messaging.Message{
			Token: token,
			Notification: &messaging.Notification{
				Title: title,
				Body:  body,
			},
			Data: data,
			Android: &messaging.AndroidConfig{
				Priority: "high",
				Notification: &messaging.AndroidNotification{
					ChannelID: "high_priority_channel",
				},
			},
			APNS: &messaging.APNSConfig{
				Headers: map[string]string{
					"apns-priority": "10",
				},
				Payload: &messaging.APNSPayload{
					Aps: &messaging.Aps{
						Alert: &messaging.ApsAlert{
							Title: title,
							Body:  body,
						},
						Sound: "default",
					},
				},
			},
		}
		if _, err := s.Client.Send(ctx, message); err != nil {
			log.Printf("error sending notification to token %s: %v", token, err)
		}
	}
}

func (s *NotificationService) tokensForUser(ctx context.Context, userID int) ([]string, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT token FROM notify_tokens WHERE user_id = ?`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tokens []string
	for rows.Next() {
		var token string
		if err := rows.Scan(&token); err != nil {
			return nil, err
		}
		tokens = append(tokens, token)
	}
	return tokens, rows.Err()
}

func (s *NotificationService) SaveToken(ctx context.Context, userID int, token string) error {
	_, err := s.DB.ExecContext(ctx, `INSERT INTO notify_tokens (user_id, token) VALUES (?, ?)`, userID, token)
	return err
}

func (s *NotificationService) DeleteToken(ctx context.Context, token string) error {
	_, err := s.DB.ExecContext(ctx, `DELETE FROM notify_tokens WHERE token = ?`, token)
	return err
}
