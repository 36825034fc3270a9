package assignment

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"livechat-backend/internal/kv"
	"livechat-backend/internal/model"
)

// DefaultEscalationThreshold is how long an assignee may leave a
// conversation unopened before the sweeper hands it to someone else.
const DefaultEscalationThreshold = 240 * time.Second

// cursorTTL keeps rotation state around between assignments without ever
// being critical; a lost cursor just restarts the rotation.
const cursorTTL = 30 * 24 * time.Hour

// ErrNoCandidates means nobody in the branch is online and assignable.
// Callers treat this as a normal outcome: the conversation stays
// unassigned and the widget reports offline/unstaffed mode.
var ErrNoCandidates = errors.New("assignment: no candidates")

type Service struct {
	repo Repository
	kv   kv.Store
	now  func() time.Time
}

func New(repo Repository, store kv.Store) *Service {
	return NewWithClock(repo, store, time.Now)
}

func NewWithClock(repo Repository, store kv.Store, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{repo: repo, kv: store, now: now}
}

type candidate struct {
	agent model.AgentItem
	load  int
}

// candidates returns the branch's assignable agents annotated with their
// current open/pending load, ordered by (load asc, agentId asc). The list
// is recomputed fresh on every call; only the cursor persists, so the
// operator a given cursor value lands on can shift when staffing changes.
func (s *Service) candidates(ctx context.Context, branchID, exclude string) ([]candidate, error) {
	agents, err := s.repo.ListAssignableAgents(ctx, branchID)
	if err != nil {
		return nil, fmt.Errorf("assignment: list agents: %w", err)
	}

	out := make([]candidate, 0, len(agents))
	for _, agent := range agents {
		if !agent.Assignable() || agent.AgentID == exclude {
			continue
		}
		load, err := s.repo.CountActiveAssigned(ctx, branchID, agent.AgentID)
		if err != nil {
			return nil, fmt.Errorf("assignment: count load for %s: %w", agent.AgentID, err)
		}
		out = append(out, candidate{agent: agent, load: load})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].load != out[j].load {
			return out[i].load < out[j].load
		}
		return out[i].agent.AgentID < out[j].agent.AgentID
	})
	return out, nil
}

func cursorKey(branchID, inboxID string) string {
	return fmt.Sprintf("assign_cursor:%s:%s", branchID, inboxID)
}

// next picks the rotation slot for (branch, inbox). The cursor is a shared
// counter advanced with an atomic increment so two concurrent assignments
// never land on the same slot.
func (s *Service) next(ctx context.Context, branchID, inboxID string, size int) (int, error) {
	key := cursorKey(branchID, inboxID)
	cursor, err := s.kv.Incr(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("assignment: advance cursor: %w", err)
	}
	if err := s.kv.Expire(ctx, key, cursorTTL); err != nil {
		return 0, fmt.Errorf("assignment: touch cursor: %w", err)
	}
	return int((cursor - 1) % int64(size)), nil
}

func (s *Service) pick(ctx context.Context, branchID, inboxID, exclude string) (model.AgentItem, error) {
	list, err := s.candidates(ctx, branchID, exclude)
	if err != nil {
		return model.AgentItem{}, err
	}
	if len(list) == 0 {
		return model.AgentItem{}, ErrNoCandidates
	}

	// Rotate only within the lowest-load tie group at the head of the
	// sorted list. An assignment raises the winner's load and drops them
	// out of the group, so consecutive assignments reach every operator
	// once before anyone gets a second conversation.
	group := 1
	for group < len(list) && list[group].load == list[0].load {
		group++
	}

	index, err := s.next(ctx, branchID, inboxID, group)
	if err != nil {
		return model.AgentItem{}, err
	}
	return list[index].agent, nil
}

// Assign selects the next operator for the conversation and persists the
// assignment. ErrNoCandidates leaves the conversation unassigned.
func (s *Service) Assign(ctx context.Context, conv model.ConversationItem) (model.AgentItem, error) {
	agent, err := s.pick(ctx, conv.BranchID, conv.InboxID, "")
	if err != nil {
		return model.AgentItem{}, err
	}

	nowStr := s.now().UTC().Format(time.RFC3339)
	if err := s.repo.UpdateAssignment(ctx, conv.InboxID, conv.ConversationID, agent.AgentID, nowStr, nowStr); err != nil {
		return model.AgentItem{}, fmt.Errorf("assignment: persist: %w", err)
	}
	return agent, nil
}

// Escalate reassigns the conversation away from the current assignee,
// using the same rotation with the assignee excluded.
func (s *Service) Escalate(ctx context.Context, conv model.ConversationItem) (model.AgentItem, error) {
	agent, err := s.pick(ctx, conv.BranchID, conv.InboxID, conv.AssigneeID)
	if err != nil {
		return model.AgentItem{}, err
	}

	nowStr := s.now().UTC().Format(time.RFC3339)
	if err := s.repo.UpdateAssignment(ctx, conv.InboxID, conv.ConversationID, agent.AgentID, nowStr, nowStr); err != nil {
		return model.AgentItem{}, fmt.Errorf("assignment: persist escalation: %w", err)
	}
	return agent, nil
}

// Sweep escalates every conversation whose assignee has not opened it
// within threshold. It is naturally idempotent: opening a conversation
// stamps assigneeOpenedAt, which removes it from eligibility, so repeated
// sweeps cause at most one reassignment each.
func (s *Service) Sweep(ctx context.Context, threshold time.Duration) (int, error) {
	if threshold <= 0 {
		threshold = DefaultEscalationThreshold
	}

	conversations, err := s.repo.ListUnopenedAssigned(ctx)
	if err != nil {
		return 0, fmt.Errorf("assignment: list sweep candidates: %w", err)
	}

	cutoff := s.now().UTC().Add(-threshold)
	escalated := 0
	for _, conv := range conversations {
		if !conv.Status.Active() || conv.AssigneeID == "" || conv.AssigneeOpenedAt != "" {
			continue
		}

		stamp := conv.AssignedAt
		if stamp == "" {
			stamp = conv.CreatedAt
		}
		assignedAt, err := time.Parse(time.RFC3339, stamp)
		if err != nil || assignedAt.After(cutoff) {
			continue
		}

		if _, err := s.Escalate(ctx, conv); err != nil {
			if errors.Is(err, ErrNoCandidates) {
				continue
			}
			log.Printf("escalation failed for conversation %s: %v", conv.ConversationID, err)
			continue
		}
		escalated++
	}
	return escalated, nil
}
