package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"
)

type NotificationEvent string

const (
	EventTaskAssigned      NotificationEvent = "task_assigned"
	EventTaskStatusChanged NotificationEvent = "task_status_changed"
	EventCommentAdded      NotificationEvent = "comment_added"
)

// Notification is the one-way payload sent to the notification service.
type Notification struct {
	TargetUserID uint64            `json:"target_user_id"`
	EventType    NotificationEvent `json:"event_type"`
	Title        string            `json:"title"`
	Body         string            `json:"body"`
	Metadata     map[string]string `json:"metadata"`
}

// NotificationService is the client for the external notification service.
// Delivery is best-effort: dispatches never block the triggering request and
// failures are logged, not propagated.
type NotificationService struct {
	endpoint string
	client   *http.Client
}

// NewNotificationService creates a new NotificationService. An empty endpoint
// disables dispatching entirely.
func NewNotificationService(endpoint string) *NotificationService {
	return &NotificationService{
		endpoint: endpoint,
		client: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// Notify dispatches a notification on its own goroutine. The outcome is
// never reported back to the caller.
func (s *NotificationService) Notify(n Notification) {
	if s == nil || s.endpoint == "" {
		return
	}

	go func() {
		if err := s.send(n); err != nil {
			log.Printf("notification dispatch failed (event=%s target=%d): %v", n.EventType, n.TargetUserID, err)
		}
	}()
}

// NotifyAll dispatches one notification per target, skipping duplicates and
// the excluded user (typically the actor who triggered the event).
func (s *NotificationService) NotifyAll(targets []uint64, exclude uint64, build func(target uint64) Notification) {
	seen := make(map[uint64]struct{}, len(targets))
	for _, target := range targets {
		if target == exclude {
			continue
		}
		if _, dup := seen[target]; dup {
			continue
		}
		seen[target] = struct{}{}

		s.Notify(build(target))
	}
}

func (s *NotificationService) send(n Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}

	resp, err := s.client.Post(s.endpoint, "application/json", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to post notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("notification service returned status %d", resp.StatusCode)
	}

	return nil
}
