package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"sweatSquadAPI/internal/types/notification"

	"github.com/google/uuid"
)

// PushNotificationProvider delivers a push message to a set of device tokens.
// The real implementation lives in internal/notification (FCM) and is
// injected from main.go.
type PushNotificationProvider interface {
	SendPush(ctx context.Context, tokens []notification.DeviceToken, title, body string, data map[string]any) error
}

// NotificationService persists reward notifications and dispatches them
// asynchronously. Delivery failures are recorded on the notification row and
// never surface to the reward cascade that emitted them.
type NotificationService struct {
	db           DB
	pushProvider PushNotificationProvider
	jobQueue     chan *notification.Notification
	stopChan     chan struct{}
	wg           sync.WaitGroup
}

func NewNotificationService(db DB) *NotificationService {
	s := &NotificationService{
		db:       db,
		jobQueue: make(chan *notification.Notification, 100),
		stopChan: make(chan struct{}),
	}

	// 5 workers is plenty for now
	for i := 0; i < 5; i++ {
		s.wg.Add(1)
		go s.worker()
	}

	return s
}

func (s *NotificationService) SetPushProvider(provider PushNotificationProvider) {
	s.pushProvider = provider
}

// Notify persists a notification and queues it for delivery. The insert and
// the delivery are independent; a full queue only delays the push.
func (s *NotificationService) Notify(ctx context.Context, userID uuid.UUID, kind notification.Kind, title, body string, data map[string]any) error {
	notif := &notification.Notification{
		ID:        uuid.New(),
		UserID:    userID,
		Kind:      kind,
		Title:     title,
		Body:      body,
		Data:      data,
		Status:    notification.StatusPending,
		CreatedAt: time.Now(),
	}

	dataJSON, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to encode notification data: %w", err)
	}

	query := `
	INSERT INTO notifications (id, user_id, kind, title, body, data, status, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err = s.db.Exec(ctx, query, notif.ID, notif.UserID, notif.Kind, notif.Title, notif.Body, dataJSON, notif.Status, notif.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}

	select {
	case s.jobQueue <- notif:
	case <-time.After(5 * time.Second):
		log.Printf("Notify: queue full, notification %s stays pending", notif.ID)
	}

	return nil
}

func (s *NotificationService) NotifyBadgeUnlocked(ctx context.Context, userID uuid.UUID, badgeName string, xpAwarded int) error {
	return s.Notify(ctx, userID, notification.KindBadgeUnlocked,
		"Badge unlocked!",
		fmt.Sprintf("You earned the %q badge (+%d XP)", badgeName, xpAwarded),
		map[string]any{"badge_name": badgeName, "xp_awarded": xpAwarded})
}

func (s *NotificationService) NotifyLevelUp(ctx context.Context, userID uuid.UUID, newLevel int) error {
	return s.Notify(ctx, userID, notification.KindLevelUp,
		"Level up!",
		fmt.Sprintf("You reached level %d", newLevel),
		map[string]any{"level": newLevel})
}

func (s *NotificationService) NotifyChallengeCompleted(ctx context.Context, userID uuid.UUID, challengeName string, xpAwarded int) error {
	return s.Notify(ctx, userID, notification.KindChallengeCompleted,
		"Challenge complete!",
		fmt.Sprintf("You finished %q (+%d XP)", challengeName, xpAwarded),
		map[string]any{"challenge_name": challengeName, "xp_awarded": xpAwarded})
}

// GetNotifications returns a user's notifications, newest first.
func (s *NotificationService) GetNotifications(ctx context.Context, userID uuid.UUID, page, pageSize int) ([]*notification.Notification, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	query := `
	SELECT id, user_id, kind, title, body, data, status, created_at, sent_at, failed_at, failure_reason
	FROM notifications
	WHERE user_id = $1
	ORDER BY created_at DESC
	LIMIT $2 OFFSET $3
	`

	rows, err := s.db.Query(ctx, query, userID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch notifications: %w", err)
	}
	defer rows.Close()

	var notifs []*notification.Notification
	for rows.Next() {
		n := &notification.Notification{}
		var dataJSON []byte
		err := rows.Scan(&n.ID, &n.UserID, &n.Kind, &n.Title, &n.Body, &dataJSON, &n.Status, &n.CreatedAt, &n.SentAt, &n.FailedAt, &n.FailureReason)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		if len(dataJSON) > 0 {
			if err := json.Unmarshal(dataJSON, &n.Data); err != nil {
				log.Printf("GetNotifications: bad data payload on %s: %v", n.ID, err)
			}
		}
		notifs = append(notifs, n)
	}

	if notifs == nil {
		notifs = []*notification.Notification{}
	}
	return notifs, rows.Err()
}

// RegisterDevice stores a push token for the user.
func (s *NotificationService) RegisterDevice(ctx context.Context, userID uuid.UUID, token, platform string) error {
	query := `
	INSERT INTO device_tokens (user_id, token, platform, registered_at)
	VALUES ($1, $2, $3, NOW())
	ON CONFLICT (user_id, token) DO UPDATE SET platform = $3, registered_at = NOW()
	`

	_, err := s.db.Exec(ctx, query, userID, token, platform)
	if err != nil {
		return fmt.Errorf("failed to register device: %w", err)
	}
	return nil
}

func (s *NotificationService) worker() {
	defer s.wg.Done()
	for {
		select {
		case notif := <-s.jobQueue:
			s.processJob(notif)
		case <-s.stopChan:
			return
		}
	}
}

func (s *NotificationService) processJob(notif *notification.Notification) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	tokens, err := s.deviceTokens(ctx, notif.UserID)
	if err != nil {
		log.Printf("Dispatch: failed to load device tokens for %s: %v", notif.UserID, err)
		s.markFailed(ctx, notif.ID, err)
		return
	}

	if s.pushProvider != nil && len(tokens) > 0 {
		if err := s.pushProvider.SendPush(ctx, tokens, notif.Title, notif.Body, notif.Data); err != nil {
			log.Printf("Dispatch: push failed for user %s: %v", notif.UserID, err)
			s.markFailed(ctx, notif.ID, err)
			return
		}
	}

	s.markSent(ctx, notif.ID)
}

func (s *NotificationService) deviceTokens(ctx context.Context, userID uuid.UUID) ([]notification.DeviceToken, error) {
	rows, err := s.db.Query(ctx, `SELECT token, platform FROM device_tokens WHERE user_id = $1`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tokens []notification.DeviceToken
	for rows.Next() {
		var t notification.DeviceToken
		if err := rows.Scan(&t.Token, &t.Platform); err != nil {
			return nil, err
		}
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}

func (s *NotificationService) markSent(ctx context.Context, notificationID uuid.UUID) {
	_, err := s.db.Exec(ctx, `UPDATE notifications SET status = 'sent', sent_at = NOW() WHERE id = $1`, notificationID)
	if err != nil {
		log.Printf("Dispatch: failed to mark notification %s as sent: %v", notificationID, err)
	}
}

func (s *NotificationService) markFailed(ctx context.Context, notificationID uuid.UUID, cause error) {
	query := `
	UPDATE notifications
	SET status = 'failed', failed_at = NOW(), failure_reason = $2
	WHERE id = $1
	`
	_, err := s.db.Exec(ctx, query, notificationID, cause.Error())
	if err != nil {
		log.Printf("Dispatch: failed to mark notification %s as failed: %v", notificationID, err)
	}
}

// Stop drains the worker pool. Called on shutdown.
func (s *NotificationService) Stop() {
	close(s.stopChan)
	s.wg.Wait()
}

// MockPushProvider is used in tests and when FCM credentials are absent.
type MockPushProvider struct{}

func (m *MockPushProvider) SendPush(ctx context.Context, tokens []notification.DeviceToken, title, body string, data map[string]any) error {
	log.Printf("MOCK PUSH: Sending to %d devices: %s - %s", len(tokens), title, body)
	return nil
}
