// Package relay coordinates one inbound-message exchange end to end:
// tenant resolution, conversation lifecycle, persistence on both sides of the
// NLU call, and the partial-failure policy between them.
package relay

import (
	"context"
	"errors"
	"fmt"

	"github.com/lalith-99/relaygate/internal/models"
	"github.com/lalith-99/relaygate/internal/nlu"
	"github.com/lalith-99/relaygate/internal/repository"
	"go.uber.org/zap"
)

// ErrUnknownTenant means the authenticated tenant has no registry row. The
// registry is loaded before traffic is accepted, so this is a defensive
// check; it still maps to a 400 rather than a 500 because the request, not
// the relay, is what can't be served.
var ErrUnknownTenant = errors.New("unknown tenant")

// ErrUpstream means the NLU backend was unreachable or answered non-success.
// The caller may retry; the relay never does, and never fabricates a bot
// reply in its place.
var ErrUpstream = errors.New("nlu upstream failed")

// NLUClient is the slice of the NLU backend the orchestrator needs.
type NLUClient interface {
	Send(ctx context.Context, sender, message, tenantID string) ([]nlu.Fragment, error)
}

// InboundMessage is one webhook payload after shape validation.
type InboundMessage struct {
	UserID         string
	Message        string
	ConversationID string
}

// Reply is what the caller gets back: the conversation the exchange landed
// in and the bot fragments, in the order the backend produced them.
type Reply struct {
	ConversationID string         `json:"conversation_id"`
	Responses      []nlu.Fragment `json:"responses"`
}

// Service is the relay orchestrator. It holds no mutable state of its own —
// every exchange runs on its own goroutine against the shared stores, and
// no storage connection is held across the NLU call.
type Service struct {
	tenants repository.TenantRepository
	convs   repository.ConversationRepository
	nlu     NLUClient
	logger  *zap.Logger
}

func NewService(
	tenants repository.TenantRepository,
	convs repository.ConversationRepository,
	nluClient NLUClient,
	logger *zap.Logger,
) *Service {
	return &Service{
		tenants: tenants,
		convs:   convs,
		nlu:     nluClient,
		logger:  logger,
	}
}

// HandleMessage runs one exchange. The ordering is the contract:
//
//  1. the inbound user message is committed before the NLU call, so an
//     upstream failure never loses what the user asked;
//  2. a storage failure before that commit aborts the exchange with no NLU
//     call made;
//  3. bot-message persistence after a successful NLU call is best effort —
//     the caller still gets the backend's answer even if storing it failed.
func (s *Service) HandleMessage(ctx context.Context, tenantID string, in InboundMessage) (*Reply, error) {
	tenant, err := s.tenants.GetByTenantID(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("resolve tenant: %w", err)
	}
	if tenant == nil {
		return nil, ErrUnknownTenant
	}

	user, err := s.convs.GetOrCreateUser(ctx, tenant, in.UserID)
	if err != nil {
		return nil, fmt.Errorf("get or create user: %w", err)
	}

	conv, err := s.convs.Resolve(ctx, tenant, user, in.ConversationID)
	if err != nil {
		if errors.Is(err, repository.ErrInvalidConversation) {
			return nil, err
		}
		return nil, fmt.Errorf("resolve conversation: %w", err)
	}

	if _, err := s.convs.AppendMessage(ctx, conv.ID, models.SenderUser, in.Message, nil, nil); err != nil {
		return nil, fmt.Errorf("persist user message: %w", err)
	}

	fragments, err := s.nlu.Send(ctx, in.UserID, in.Message, tenantID)
	if err != nil {
		// The user message stays committed: the operator can audit
		// what was asked even though no answer was produced.
		s.logger.Error("nlu call failed",
			zap.String("tenant_id", tenantID),
			zap.String("conversation_id", conv.ConversationID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	responses := make([]nlu.Fragment, 0, len(fragments))
	for _, frag := range fragments {
		// Fragments without text (image-only, custom payloads) are
		// neither stored nor returned.
		if frag.Text == "" {
			continue
		}
		if _, err := s.convs.AppendMessage(ctx, conv.ID, models.SenderBot, frag.Text, frag.Intent, frag.Confidence); err != nil {
			s.logger.Error("persist bot message failed",
				zap.String("conversation_id", conv.ConversationID),
				zap.Error(err),
			)
		}
		responses = append(responses, frag)
	}

	return &Reply{
		ConversationID: conv.ConversationID,
		Responses:      responses,
	}, nil
}

// ListConversations returns the tenant's conversations, most recently
// updated first.
func (s *Service) ListConversations(ctx context.Context, tenantID string) ([]repository.ConversationSummary, error) {
	tenant, err := s.tenants.GetByTenantID(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("resolve tenant: %w", err)
	}
	if tenant == nil {
		return nil, ErrUnknownTenant
	}
	return s.convs.ListByTenant(ctx, tenant.ID)
}

// History returns one conversation's messages, oldest first. A conversation
// that does not exist and one that belongs to another tenant fail the same
// way.
func (s *Service) History(ctx context.Context, tenantID, conversationID string) ([]models.Message, error) {
	tenant, err := s.tenants.GetByTenantID(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("resolve tenant: %w", err)
	}
	if tenant == nil {
		return nil, ErrUnknownTenant
	}

	conv, err := s.convs.GetByConversationID(ctx, tenant, conversationID)
	if err != nil {
		return nil, err
	}
	return s.convs.ListMessages(ctx, conv.ID)
}
