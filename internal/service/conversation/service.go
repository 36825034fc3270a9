package conversation

import (
	"context"
	"fmt"
	"time"

	"livechat-backend/internal/database"
	inboxcfg "livechat-backend/internal/service/inbox"
	"livechat-backend/internal/kv"
	"livechat-backend/internal/model"
	"livechat-backend/internal/presence"
	"livechat-backend/internal/queue"
	"livechat-backend/internal/service/assignment"
	"livechat-backend/internal/service/routing"
	"livechat-backend/internal/session"
	"livechat-backend/internal/webhook"
)

// MaxMessageBody is the longest accepted message body in characters.
const MaxMessageBody = 4000

// MaxRatingComment caps the free-text comment on a rating.
const MaxRatingComment = 1000

const defaultTailLimit = 50
const maxPageLimit = 100

// RegionResolver maps a caller IP to a coarse region code used by routing
// rules. Resolution is best-effort; an empty string means unknown.
type RegionResolver interface {
	Resolve(ip string) string
}

type Service struct {
	repo       Repository
	sessions   *session.Store
	typing     *presence.Typing
	router     *routing.Service
	assigner   *assignment.Service
	dispatcher *webhook.Dispatcher
	counters   kv.Store
	queue      *queue.RequestQueueManager
	regions    RegionResolver

	defaultBranchID string
	now             func() time.Time
}

// Deps carries the collaborators for NewWithDeps. Nil Dispatcher, Queue
// and Regions are allowed; the matching side effects are skipped or run
// inline.
type Deps struct {
	Repo            Repository
	Sessions        *session.Store
	Typing          *presence.Typing
	Router          *routing.Service
	Assigner        *assignment.Service
	Dispatcher      *webhook.Dispatcher
	Counters        kv.Store
	Queue           *queue.RequestQueueManager
	Regions         RegionResolver
	DefaultBranchID string
	Now             func() time.Time
}

func New(db *database.Database, store kv.Store, q *queue.RequestQueueManager, regions RegionResolver, defaultBranchID string) *Service {
	return NewWithDeps(Deps{
		Repo:            NewDynamoRepository(db),
		Sessions:        session.NewStore(store, session.DefaultTTL),
		Typing:          presence.NewTyping(store, presence.DefaultTypingTTL),
		Router:          routing.New(routing.NewDynamoRepository(db)),
		Assigner:        assignment.New(assignment.NewDynamoRepository(db), store),
		Dispatcher:      webhook.NewDispatcher(q),
		Counters:        store,
		Queue:           q,
		Regions:         regions,
		DefaultBranchID: defaultBranchID,
	})
}

func NewWithDeps(d Deps) *Service {
	now := d.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		repo:            d.Repo,
		sessions:        d.Sessions,
		typing:          d.Typing,
		router:          d.Router,
		assigner:        d.Assigner,
		dispatcher:      d.Dispatcher,
		counters:        d.Counters,
		queue:           d.Queue,
		regions:         d.Regions,
		defaultBranchID: d.DefaultBranchID,
		now:             now,
	}
}

func (s *Service) timestamp() string {
	return s.now().UTC().Format(time.RFC3339)
}

func seqKey(conversationID string) string {
	return "message_seq:" + conversationID
}

// nextSeq hands out the strictly increasing per-conversation sequence
// number that incremental polling cursors are built on.
func (s *Service) nextSeq(ctx context.Context, conversationID string) (int64, error) {
	seq, err := s.counters.Incr(ctx, seqKey(conversationID))
	if err != nil {
		return 0, fmt.Errorf("conversation: next seq: %w", err)
	}
	return seq, nil
}

func (s *Service) settingsFor(ctx context.Context, inboxID string) (inboxcfg.Settings, error) {
	item, err := s.repo.GetInbox(ctx, inboxID)
	if err != nil {
		return inboxcfg.Settings{}, err
	}
	return inboxcfg.SettingsFromInbox(item), nil
}

// notify fans an event out to the inbox webhook if one is configured.
func (s *Service) notify(cfg inboxcfg.WebhookSettings, event string, conv model.ConversationItem, msg *model.MessageItem) {
	if s.dispatcher == nil {
		return
	}
	s.dispatcher.Dispatch(cfg, event, conv, msg)
}

// enqueue runs fn on the shared worker pool, or inline when the service
// was built without one.
func (s *Service) enqueue(fn func() error) {
	if s.queue == nil {
		_ = fn()
		return
	}
	s.queue.EnqueueJob(queue.Job{Fn: fn})
}

// resolveBinding validates the widget session token, optionally checking
// it against the inbox the presented widget token belongs to.
func (s *Service) resolveBinding(ctx context.Context, sessionToken, widgetToken string) (session.Binding, *Error) {
	claimedInboxID := ""
	if widgetToken != "" {
		inbox, err := s.repo.GetInboxByWidgetToken(ctx, widgetToken)
		if err != nil {
			if isNotFound(err) {
				return session.Binding{}, newError(ErrorCodeUnauthorized, "invalid widget token", err)
			}
			return session.Binding{}, newError(ErrorCodeInternal, "failed to resolve widget token", err)
		}
		claimedInboxID = inbox.InboxID
	}

	binding, err := s.sessions.Validate(ctx, sessionToken, claimedInboxID)
	if err != nil {
		switch err {
		case session.ErrInboxMismatch:
			return session.Binding{}, newError(ErrorCodeForbidden, "session does not belong to this inbox", err)
		case session.ErrNotFound:
			return session.Binding{}, newError(ErrorCodeUnauthorized, "invalid or expired session", err)
		default:
			return session.Binding{}, newError(ErrorCodeInternal, "failed to validate session", err)
		}
	}
	return binding, nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultTailLimit
	}
	if limit > maxPageLimit {
		return maxPageLimit
	}
	return limit
}

func visitorVisible(msgs []model.MessageItem) []model.MessageItem {
	out := make([]model.MessageItem, 0, len(msgs))
	for _, m := range msgs {
		if m.VisitorVisible() {
			out = append(out, m)
		}
	}
	return out
}
