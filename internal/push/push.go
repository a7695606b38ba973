package push

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	webpush "github.com/SherClockHolmes/webpush-go"

	"github.com/mlisboa/lol-inhouse/internal/store"
)

type Service struct {
	store        store.Store
	vapidPublic  string
	vapidPrivate string
	vapidSubject string
}

type Config struct {
	VAPIDPublicKey  string
	VAPIDPrivateKey string
	VAPIDSubject    string // mailto:your-email@example.com
}

func NewService(st store.Store, cfg Config) *Service {
	return &Service{
		store:        st,
		vapidPublic:  cfg.VAPIDPublicKey,
		vapidPrivate: cfg.VAPIDPrivateKey,
		vapidSubject: cfg.VAPIDSubject,
	}
}

type NotificationPayload struct {
	Title string         `json:"title"`
	Body  string         `json:"body"`
	Icon  string         `json:"icon,omitempty"`
	Badge string         `json:"badge,omitempty"`
	Data  map[string]any `json:"data,omitempty"`
	Tag   string         `json:"tag,omitempty"`
}

// SendToPlayer sends a push notification to all subscriptions for one player.
func (s *Service) SendToPlayer(ctx context.Context, playerID string, payload NotificationPayload) error {
	subs, err := s.store.GetPushSubscriptions(ctx, playerID)
	if err != nil {
		return fmt.Errorf("failed to get subscriptions: %w", err)
	}

	if len(subs) == 0 {
		return nil
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	var lastErr error
	successCount := 0

	for _, sub := range subs {
		if err := s.send(ctx, sub, payloadBytes); err != nil {
			lastErr = err
			continue
		}
		successCount++
	}

	if successCount > 0 {
		return nil
	}
	if lastErr != nil {
		return lastErr
	}
	return fmt.Errorf("all push notifications failed")
}

// send delivers one payload to one subscription, pruning subscriptions
// the push service no longer knows.
func (s *Service) send(ctx context.Context, sub store.PushSubscription, payloadBytes []byte) error {
	subscription := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256dh,
			Auth:   sub.Auth,
		},
	}

	resp, err := webpush.SendNotification(payloadBytes, subscription, &webpush.Options{
		Subscriber:      s.vapidSubject,
		VAPIDPublicKey:  s.vapidPublic,
		VAPIDPrivateKey: s.vapidPrivate,
		TTL:             60,
	})
	if err != nil {
		log.Printf("Failed to send push to %s: %v", sub.Endpoint, err)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == 410 || resp.StatusCode == 404 {
		log.Printf("Subscription expired/invalid, removing: %s", sub.Endpoint)
		if err := s.store.DeletePushSubscription(ctx, sub.Endpoint); err != nil {
			log.Printf("Failed to delete subscription: %v", err)
		}
		return fmt.Errorf("subscription gone")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Printf("Push notification failed with status %d for %s", resp.StatusCode, sub.Endpoint)
		return fmt.Errorf("push failed with status %d", resp.StatusCode)
	}
	return nil
}

// SendToAll sends a push notification to every stored subscription.
func (s *Service) SendToAll(ctx context.Context, payload NotificationPayload) {
	subs, err := s.store.GetAllPushSubscriptions(ctx)
	if err != nil {
		log.Printf("Failed to get subscriptions for broadcast: %v", err)
		return
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		log.Printf("Failed to marshal broadcast payload: %v", err)
		return
	}

	for _, sub := range subs {
		go func(sub store.PushSubscription) {
			if err := s.send(ctx, sub, payloadBytes); err != nil {
				log.Printf("Broadcast push to %s failed: %v", sub.Endpoint, err)
			}
		}(sub)
	}
}

// SendToPlayers sends a push notification to several players without
// blocking the caller.
func (s *Service) SendToPlayers(ctx context.Context, playerIDs []string, payload NotificationPayload) {
	for _, playerID := range playerIDs {
		go func(id string) {
			if err := s.SendToPlayer(ctx, id, payload); err != nil {
				log.Printf("Failed to send push to player %s: %v", id, err)
			}
		}(playerID)
	}
}

// GetPublicKey returns the VAPID public key for frontend use.
func (s *Service) GetPublicKey() string {
	return s.vapidPublic
}
