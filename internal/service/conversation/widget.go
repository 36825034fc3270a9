package conversation

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	inboxcfg "livechat-backend/internal/service/inbox"
	"livechat-backend/internal/model"
	"livechat-backend/internal/service/assignment"
	"livechat-backend/internal/service/routing"
	"livechat-backend/internal/session"
	"livechat-backend/internal/webhook"
)

type BootstrapParams struct {
	WidgetToken string
	IP          string

	// Optional identity hints supplied by the embedding page.
	ExternalID string
	Name       string
	Email      string
	Phone      string

	// Region overrides IP-based detection when set.
	Region string
}

type BootstrapResult struct {
	SessionToken string
	Conversation model.ConversationItem
	Messages     []model.MessageItem
	Reused       bool

	Offline        bool
	OfflineMessage string
	Widget         inboxcfg.WidgetSettings
	Rating         inboxcfg.RatingSettings
	SSEEnabled     bool
}

// Bootstrap is the widget's entry point: it resolves the inbox behind the
// public widget token, finds or creates the contact and its active
// conversation, and issues a fresh session token bound to the triple.
func (s *Service) Bootstrap(ctx context.Context, params BootstrapParams) (BootstrapResult, *Error) {
	inbox, err := s.repo.GetInboxByWidgetToken(ctx, params.WidgetToken)
	if err != nil {
		if isNotFound(err) {
			return BootstrapResult{}, newError(ErrorCodeNotFound, "unknown widget token", err)
		}
		return BootstrapResult{}, newError(ErrorCodeInternal, "failed to resolve widget token", err)
	}
	if !inbox.Active {
		return BootstrapResult{}, newError(ErrorCodeNotFound, "inbox is disabled", nil)
	}

	settings := inboxcfg.SettingsFromInbox(inbox)

	region := params.Region
	if region == "" && s.regions != nil && params.IP != "" {
		region = s.regions.Resolve(params.IP)
	}

	contact, cerr := s.resolveContact(ctx, inbox, params, region)
	if cerr != nil {
		return BootstrapResult{}, cerr
	}

	conv, reused, cerr := s.resolveConversation(ctx, inbox, settings, contact, region)
	if cerr != nil {
		return BootstrapResult{}, cerr
	}

	token, err := s.sessions.Issue(ctx, session.Binding{
		InboxID:        inbox.InboxID,
		ConversationID: conv.ConversationID,
		ContactID:      contact.ContactID,
	})
	if err != nil {
		return BootstrapResult{}, newError(ErrorCodeInternal, "failed to issue session", err)
	}

	tail, err := s.repo.TailMessages(ctx, conv.ConversationID, defaultTailLimit)
	if err != nil {
		return BootstrapResult{}, newError(ErrorCodeInternal, "failed to load messages", err)
	}

	within := settings.WorkingHours.Within(s.now())
	return BootstrapResult{
		SessionToken:   token,
		Conversation:   conv,
		Messages:       visitorVisible(tail),
		Reused:         reused,
		Offline:        !within,
		OfflineMessage: settings.Offline.Message,
		Widget:         settings.Widget,
		Rating:         settings.Rating,
		SSEEnabled:     settings.SSEEnabled,
	}, nil
}

func (s *Service) resolveContact(ctx context.Context, inbox model.InboxItem, params BootstrapParams, region string) (model.ContactItem, *Error) {
	nowStr := s.timestamp()

	if params.ExternalID != "" {
		existing, err := s.repo.GetContactByExternalID(ctx, inbox.InboxID, params.ExternalID)
		if err == nil {
			if params.Name != "" {
				existing.Name = params.Name
			}
			if params.Email != "" {
				existing.Email = params.Email
			}
			if params.Phone != "" {
				existing.Phone = params.Phone
			}
			if region != "" {
				existing.Region = region
			}
			existing.LastSeenAt = nowStr
			if err := s.repo.PutContact(ctx, existing); err != nil {
				return model.ContactItem{}, newError(ErrorCodeInternal, "failed to update contact", err)
			}
			return existing, nil
		}
		if !isNotFound(err) {
			return model.ContactItem{}, newError(ErrorCodeInternal, "failed to look up contact", err)
		}
	}

	contact := model.ContactItem{
		InboxID:    inbox.InboxID,
		ContactID:  uuid.NewString(),
		ExternalID: params.ExternalID,
		Name:       params.Name,
		Email:      params.Email,
		Phone:      params.Phone,
		Region:     region,
		CreatedAt:  nowStr,
		LastSeenAt: nowStr,
	}
	contact.PK = model.ContactPK(inbox.InboxID, contact.ContactID)

	if err := s.repo.PutContact(ctx, contact); err != nil {
		return model.ContactItem{}, newError(ErrorCodeInternal, "failed to create contact", err)
	}
	return contact, nil
}

// resolveConversation reuses the contact's active conversation in the
// inbox, or creates one: routing picks the branch, the round-robin picks
// an operator when the inbox is inside working hours.
func (s *Service) resolveConversation(ctx context.Context, inbox model.InboxItem, settings inboxcfg.Settings, contact model.ContactItem, region string) (model.ConversationItem, bool, *Error) {
	existing, err := s.repo.FindActiveConversation(ctx, inbox.InboxID, contact.ContactID)
	if err == nil {
		return existing, true, nil
	}
	if !isNotFound(err) {
		return model.ConversationItem{}, false, newError(ErrorCodeInternal, "failed to look up conversation", err)
	}

	target, err := s.router.Resolve(ctx, inbox, region)
	if err == routing.ErrNoRule {
		if s.defaultBranchID == "" {
			return model.ConversationItem{}, false, newError(ErrorCodeUnavailable, "no branch can take this conversation", err)
		}
		target = routing.Target{BranchID: s.defaultBranchID, InboxID: inbox.InboxID}
	} else if err != nil {
		return model.ConversationItem{}, false, newError(ErrorCodeInternal, "failed to route conversation", err)
	}

	nowStr := s.timestamp()
	conv := model.ConversationItem{
		ConversationID: uuid.NewString(),
		InboxID:        inbox.InboxID,
		BranchID:       target.BranchID,
		ContactID:      contact.ContactID,
		ContactName:    contact.Name,
		Status:         model.ConversationStatusOpen,
		Region:         region,
		CreatedAt:      nowStr,
		UpdatedAt:      nowStr,
		LastActivityAt: nowStr,
	}
	conv.PK = model.ConversationPK(conv.InboxID, conv.ConversationID)

	if err := validateConversationBinding(inbox, conv); err != nil {
		return model.ConversationItem{}, false, newError(ErrorCodeInternal, "conversation failed validation", err)
	}
	if err := s.repo.CreateConversation(ctx, conv); err != nil {
		return model.ConversationItem{}, false, newError(ErrorCodeInternal, "failed to create conversation", err)
	}

	if settings.WorkingHours.Within(s.now()) {
		agent, err := s.assigner.Assign(ctx, conv)
		if err == nil {
			conv.AssigneeID = agent.AgentID
			conv.AssignedAt = nowStr
		} else if err != assignment.ErrNoCandidates {
			return model.ConversationItem{}, false, newError(ErrorCodeInternal, "failed to assign conversation", err)
		}
	}

	s.notify(settings.Webhook, webhook.EventConversationCreated, conv, nil)
	return conv, false, nil
}

type SendParams struct {
	SessionToken string
	WidgetToken  string
	Body         string
	Attachments  []model.AttachmentItem
}

// SendVisitorMessage appends an inbound message to the session's
// conversation. The first message of a conversation can trigger the
// inbox's auto-reply.
func (s *Service) SendVisitorMessage(ctx context.Context, params SendParams) (model.MessageItem, *Error) {
	binding, serr := s.resolveBinding(ctx, params.SessionToken, params.WidgetToken)
	if serr != nil {
		return model.MessageItem{}, serr
	}

	body := strings.TrimSpace(params.Body)
	if body == "" && len(params.Attachments) == 0 {
		return model.MessageItem{}, newError(ErrorCodeValidation, "message body is empty", nil)
	}
	if utf8.RuneCountInString(body) > MaxMessageBody {
		return model.MessageItem{}, newError(ErrorCodeValidation, "message body is too long", nil)
	}

	settings, err := s.settingsFor(ctx, binding.InboxID)
	if err != nil {
		return model.MessageItem{}, newError(ErrorCodeInternal, "failed to load inbox", err)
	}

	conv, err := s.repo.GetConversation(ctx, binding.InboxID, binding.ConversationID)
	if err != nil {
		if isNotFound(err) {
			return model.MessageItem{}, newError(ErrorCodeNotFound, "conversation not found", err)
		}
		return model.MessageItem{}, newError(ErrorCodeInternal, "failed to load conversation", err)
	}
	if !conv.Status.Active() {
		return model.MessageItem{}, newError(ErrorCodeConflict, "conversation is no longer active", nil)
	}

	seq, err := s.nextSeq(ctx, conv.ConversationID)
	if err != nil {
		return model.MessageItem{}, newError(ErrorCodeInternal, "failed to sequence message", err)
	}

	nowStr := s.timestamp()
	msg := model.MessageItem{
		InboxID:        conv.InboxID,
		ConversationID: conv.ConversationID,
		MessageID:      uuid.NewString(),
		Direction:      model.MessageDirectionIn,
		ContactID:      binding.ContactID,
		Body:           body,
		Attachments:    params.Attachments,
		Seq:            seq,
		CreatedAt:      nowStr,
	}
	msg.PK = model.MessagePK(conv.ConversationID, msg.MessageID)

	if err := validateMessageSender(msg); err != nil {
		return model.MessageItem{}, newError(ErrorCodeInternal, "message failed validation", err)
	}
	if err := s.repo.CreateMessage(ctx, msg); err != nil {
		return model.MessageItem{}, newError(ErrorCodeInternal, "failed to store message", err)
	}
	if err := s.repo.UpdateConversationActivity(ctx, conv.InboxID, conv.ConversationID, nowStr, nowStr); err != nil {
		return model.MessageItem{}, newError(ErrorCodeInternal, "failed to touch conversation", err)
	}

	if seq == 1 && settings.AutoReply.Enabled && settings.AutoReply.Body != "" {
		s.scheduleAutoReply(conv, settings)
	}

	s.notify(settings.Webhook, webhook.EventMessageCreated, conv, &msg)
	return msg, nil
}

// scheduleAutoReply appends the configured greeting as a system message.
// It runs on the worker pool so the visitor's send does not wait on it.
func (s *Service) scheduleAutoReply(conv model.ConversationItem, settings inboxcfg.Settings) {
	s.enqueue(func() error {
		ctx := context.Background()

		seq, err := s.nextSeq(ctx, conv.ConversationID)
		if err != nil {
			return err
		}

		nowStr := s.timestamp()
		reply := model.MessageItem{
			InboxID:        conv.InboxID,
			ConversationID: conv.ConversationID,
			MessageID:      uuid.NewString(),
			Direction:      model.MessageDirectionOut,
			AgentID:        model.SystemAgentID,
			Body:           settings.AutoReply.Body,
			Seq:            seq,
			CreatedAt:      nowStr,
		}
		reply.PK = model.MessagePK(conv.ConversationID, reply.MessageID)

		if err := s.repo.CreateMessage(ctx, reply); err != nil {
			return err
		}
		s.notify(settings.Webhook, webhook.EventMessageCreated, conv, &reply)
		return nil
	})
}

type PollParams struct {
	SessionToken string
	WidgetToken  string
	After        int64
	Limit        int
}

type PollResult struct {
	Messages        []model.MessageItem
	Status          model.ConversationStatus
	Assigned        bool
	AgentTyping     bool
	RatingRequested bool
	RatingMaxScore  int
	SSEEnabled      bool
}

// PollVisitor returns the messages after the caller's cursor, or the tail
// of the conversation when the cursor is zero, plus the live flags the
// widget renders between polls.
func (s *Service) PollVisitor(ctx context.Context, params PollParams) (PollResult, *Error) {
	binding, serr := s.resolveBinding(ctx, params.SessionToken, params.WidgetToken)
	if serr != nil {
		return PollResult{}, serr
	}

	conv, err := s.repo.GetConversation(ctx, binding.InboxID, binding.ConversationID)
	if err != nil {
		if isNotFound(err) {
			return PollResult{}, newError(ErrorCodeNotFound, "conversation not found", err)
		}
		return PollResult{}, newError(ErrorCodeInternal, "failed to load conversation", err)
	}

	limit := clampLimit(params.Limit)
	var msgs []model.MessageItem
	if params.After > 0 {
		msgs, err = s.repo.ListMessagesAfter(ctx, conv.ConversationID, params.After, limit)
	} else {
		msgs, err = s.repo.TailMessages(ctx, conv.ConversationID, limit)
	}
	if err != nil {
		return PollResult{}, newError(ErrorCodeInternal, "failed to load messages", err)
	}

	agentTyping, err := s.typing.AgentTyping(ctx, conv.ConversationID)
	if err != nil {
		agentTyping = false
	}

	settings, err := s.settingsFor(ctx, binding.InboxID)
	if err != nil {
		return PollResult{}, newError(ErrorCodeInternal, "failed to load inbox", err)
	}

	return PollResult{
		Messages:        visitorVisible(msgs),
		Status:          conv.Status,
		Assigned:        conv.AssigneeID != "",
		AgentTyping:     agentTyping,
		RatingRequested: ratingRequested(settings, conv),
		RatingMaxScore:  settings.Rating.MaxScore,
		SSEEnabled:      settings.SSEEnabled,
	}, nil
}

func ratingRequested(settings inboxcfg.Settings, conv model.ConversationItem) bool {
	if !settings.Rating.Enabled || conv.RatedAt != "" {
		return false
	}
	return conv.Status == model.ConversationStatusResolved || conv.Status == model.ConversationStatusClosed
}

// MarkVisitorTyping refreshes the contact's short-lived typing flag.
func (s *Service) MarkVisitorTyping(ctx context.Context, sessionToken, widgetToken string) *Error {
	binding, serr := s.resolveBinding(ctx, sessionToken, widgetToken)
	if serr != nil {
		return serr
	}
	if err := s.typing.MarkContact(ctx, binding.ConversationID); err != nil {
		return newError(ErrorCodeInternal, "failed to record typing", err)
	}
	return nil
}

type RatingParams struct {
	SessionToken string
	WidgetToken  string
	Score        int
	Comment      string
}

// SubmitRating records the visitor's one-shot rating of a finished
// conversation.
func (s *Service) SubmitRating(ctx context.Context, params RatingParams) *Error {
	binding, serr := s.resolveBinding(ctx, params.SessionToken, params.WidgetToken)
	if serr != nil {
		return serr
	}

	settings, err := s.settingsFor(ctx, binding.InboxID)
	if err != nil {
		return newError(ErrorCodeInternal, "failed to load inbox", err)
	}
	if !settings.Rating.Enabled {
		return newError(ErrorCodeValidation, "rating is not enabled for this inbox", nil)
	}

	conv, err := s.repo.GetConversation(ctx, binding.InboxID, binding.ConversationID)
	if err != nil {
		if isNotFound(err) {
			return newError(ErrorCodeNotFound, "conversation not found", err)
		}
		return newError(ErrorCodeInternal, "failed to load conversation", err)
	}

	if conv.Status != model.ConversationStatusResolved && conv.Status != model.ConversationStatusClosed {
		return newError(ErrorCodeConflict, "conversation is not finished", nil)
	}
	if conv.RatedAt != "" {
		return newError(ErrorCodeConflict, "conversation is already rated", nil)
	}
	if params.Score < 1 || params.Score > settings.Rating.MaxScore {
		return newError(ErrorCodeValidation, "score is out of range", nil)
	}

	comment := strings.TrimSpace(params.Comment)
	if len(comment) > MaxRatingComment {
		return newError(ErrorCodeValidation, "comment is too long", nil)
	}

	if err := s.repo.RecordRating(ctx, binding.InboxID, conv.ConversationID, params.Score, comment, s.timestamp()); err != nil {
		return newError(ErrorCodeInternal, "failed to record rating", err)
	}
	return nil
}
