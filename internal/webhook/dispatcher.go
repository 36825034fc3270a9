package webhook

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"livechat-backend/internal/model"
	"livechat-backend/internal/queue"
	inboxcfg "livechat-backend/internal/service/inbox"
)

const (
	EventConversationCreated = "conversation.created"
	EventConversationClosed  = "conversation.closed"
	EventMessageCreated      = "message.created"

	// SignatureHeader carries the hex HMAC-SHA256 of the body when the
	// inbox has a webhook secret configured.
	SignatureHeader = "X-Livechat-Signature"

	deliveryTimeout = 2 * time.Second
)

type conversationPayload struct {
	ConversationID string `json:"conversationId"`
	InboxID        string `json:"inboxId"`
	BranchID       string `json:"branchId"`
	ContactID      string `json:"contactId"`
	Status         string `json:"status"`
	AssigneeID     string `json:"assigneeId,omitempty"`
	CreatedAt      string `json:"createdAt"`
}

type messagePayload struct {
	MessageID string `json:"messageId"`
	Direction string `json:"direction"`
	Body      string `json:"body,omitempty"`
	CreatedAt string `json:"createdAt"`
}

type eventPayload struct {
	Event        string              `json:"event"`
	Conversation conversationPayload `json:"conversation"`
	Message      *messagePayload     `json:"message,omitempty"`
}

// Dispatcher delivers inbox webhook events without blocking the write that
// triggered them. Deliveries run on the shared worker pool; failures are
// logged and dropped, there is no retry queue.
type Dispatcher struct {
	queue  *queue.RequestQueueManager
	client *http.Client
}

func NewDispatcher(q *queue.RequestQueueManager) *Dispatcher {
	return &Dispatcher{
		queue:  q,
		client: &http.Client{Timeout: deliveryTimeout},
	}
}

// Dispatch enqueues one event for the inbox if its webhook configuration
// wants it. Internal notes never leave the system.
func (d *Dispatcher) Dispatch(cfg inboxcfg.WebhookSettings, event string, conv model.ConversationItem, msg *model.MessageItem) {
	if !cfg.Allows(event) {
		return
	}
	if msg != nil && msg.Direction == model.MessageDirectionInternal {
		return
	}

	payload := eventPayload{
		Event: event,
		Conversation: conversationPayload{
			ConversationID: conv.ConversationID,
			InboxID:        conv.InboxID,
			BranchID:       conv.BranchID,
			ContactID:      conv.ContactID,
			Status:         string(conv.Status),
			AssigneeID:     conv.AssigneeID,
			CreatedAt:      conv.CreatedAt,
		},
	}
	if msg != nil {
		payload.Message = &messagePayload{
			MessageID: msg.MessageID,
			Direction: string(msg.Direction),
			Body:      msg.Body,
			CreatedAt: msg.CreatedAt,
		}
	}

	d.queue.EnqueueJob(queue.Job{
		Fn: func() error {
			if err := d.deliver(cfg, payload); err != nil {
				log.Printf("webhook: delivery of %s to %s failed: %v", event, maskURL(cfg.URL), err)
				deliveryFailed.Inc()
				return nil
			}
			deliveryOK.Inc()
			return nil
		},
	})
}

func (d *Dispatcher) deliver(cfg inboxcfg.WebhookSettings, payload eventPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, cfg.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if cfg.Secret != "" {
		req.Header.Set(SignatureHeader, Sign(body, cfg.Secret))
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("endpoint answered %d", resp.StatusCode)
	}
	return nil
}

// Sign computes the signature an inbox webhook consumer should verify.
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// maskURL keeps only enough of the endpoint for log correlation.
func maskURL(url string) string {
	if len(url) <= 24 {
		return url
	}
	return url[:24] + "..."
}
