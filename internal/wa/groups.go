package wa

import (
	"context"
	"errors"
	"fmt"

	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/types"

	"github.com/felipe/zapgateway/internal/db/models"
	"github.com/felipe/zapgateway/internal/errs"
	"github.com/felipe/zapgateway/internal/events"
	"github.com/felipe/zapgateway/internal/logger"
)

func (s *Supervisor) connectedClient(sessionID string) (Client, error) {
	client, ok := s.registry.Get(sessionID)
	if !ok {
		return nil, fmt.Errorf("session %s: %w", sessionID, errs.ErrNotFound)
	}
	if !client.IsConnected() {
		return nil, errs.ErrNotConnected
	}
	return client, nil
}

// SyncGroups busca os grupos da sessão no WhatsApp, atualiza o banco e
// retorna a lista persistida
func (s *Supervisor) SyncGroups(ctx context.Context, sessionID string) ([]*models.Group, error) {
	client, err := s.connectedClient(sessionID)
	if err != nil {
		return nil, err
	}

	infos, err := client.JoinedGroups(ctx)
	if err != nil {
		return nil, errs.Transient(fmt.Errorf("failed to fetch groups: %w", err))
	}

	ownJID := client.JID()
	for _, info := range infos {
		group := groupFromInfo(sessionID, info, ownJID)
		if err := s.repos.Groups.Upsert(ctx, group); err != nil {
			logger.GetWithSession(sessionID).Error().Err(err).
				Str("group_jid", group.GroupJID).
				Msg("Failed to upsert group")
		}
	}

	return s.repos.Groups.ListBySession(ctx, sessionID)
}

// CreateGroup cria um grupo com os participantes informados
func (s *Supervisor) CreateGroup(ctx context.Context, sessionID, name string, participants []string) (*models.Group, error) {
	client, err := s.connectedClient(sessionID)
	if err != nil {
		return nil, err
	}

	if name == "" {
		return nil, errs.Validation("name", "group name is required")
	}

	jids, err := parseParticipants(participants)
	if err != nil {
		return nil, err
	}

	info, err := client.CreateGroup(ctx, name, jids)
	if err != nil {
		return nil, errs.Transient(fmt.Errorf("failed to create group: %w", err))
	}

	group := groupFromInfo(sessionID, info, client.JID())
	group.IsAdmin = true

	if err := s.repos.Groups.Upsert(ctx, group); err != nil {
		logger.GetWithSession(sessionID).Error().Err(err).Msg("Failed to store created group")
	}

	s.bus.Publish(events.Event{
		Topic:     events.TopicGroupUpdate,
		SessionID: sessionID,
		Payload:   GroupUpdatePayload{GroupJID: group.GroupJID, Name: group.Name, Action: "created"},
	})

	return group, nil
}

// AddParticipants adiciona números ao grupo
func (s *Supervisor) AddParticipants(ctx context.Context, sessionID, groupJID string, participants []string) error {
	return s.updateParticipants(ctx, sessionID, groupJID, participants, whatsmeow.ParticipantChangeAdd)
}

// RemoveParticipants remove números do grupo
func (s *Supervisor) RemoveParticipants(ctx context.Context, sessionID, groupJID string, participants []string) error {
	return s.updateParticipants(ctx, sessionID, groupJID, participants, whatsmeow.ParticipantChangeRemove)
}

func (s *Supervisor) updateParticipants(ctx context.Context, sessionID, groupJID string, participants []string, action whatsmeow.ParticipantChange) error {
	client, err := s.connectedClient(sessionID)
	if err != nil {
		return err
	}

	jid, err := ParseGroupJID(groupJID)
	if err != nil {
		return err
	}

	jids, err := parseParticipants(participants)
	if err != nil {
		return err
	}

	if err := client.UpdateParticipants(ctx, jid, jids, action); err != nil {
		return errs.Transient(fmt.Errorf("failed to update participants: %w", err))
	}

	s.refreshGroup(ctx, sessionID, client, jid)
	return nil
}

// PromoteParticipants dá admin aos números informados
func (s *Supervisor) PromoteParticipants(ctx context.Context, sessionID, groupJID string, participants []string) error {
	return s.updateParticipants(ctx, sessionID, groupJID, participants, whatsmeow.ParticipantChangePromote)
}

// DemoteParticipants revoga admin dos números informados
func (s *Supervisor) DemoteParticipants(ctx context.Context, sessionID, groupJID string, participants []string) error {
	return s.updateParticipants(ctx, sessionID, groupJID, participants, whatsmeow.ParticipantChangeDemote)
}

// GroupParticipant é a visão de um membro exposta pela API
type GroupParticipant struct {
	Phone        string `json:"phone"`
	JID          string `json:"jid"`
	IsAdmin      bool   `json:"is_admin"`
	IsSuperAdmin bool   `json:"is_super_admin"`
}

// ListParticipants retorna os membros atuais do grupo
func (s *Supervisor) ListParticipants(ctx context.Context, sessionID, groupJID string) ([]GroupParticipant, error) {
	client, err := s.connectedClient(sessionID)
	if err != nil {
		return nil, err
	}

	jid, err := ParseGroupJID(groupJID)
	if err != nil {
		return nil, err
	}

	info, err := client.GroupInfo(ctx, jid)
	if err != nil {
		return nil, errs.Transient(fmt.Errorf("failed to fetch group info: %w", err))
	}

	participants := make([]GroupParticipant, 0, len(info.Participants))
	for _, p := range info.Participants {
		participants = append(participants, GroupParticipant{
			Phone:        NumberFromJID(p.JID),
			JID:          p.JID.String(),
			IsAdmin:      p.IsAdmin,
			IsSuperAdmin: p.IsSuperAdmin,
		})
	}

	return participants, nil
}

// GroupSettings são as opções de grupo ajustáveis pela API
type GroupSettings struct {
	Announce *bool `json:"announce,omitempty"`
	Locked   *bool `json:"locked,omitempty"`
}

// UpdateGroupSettings ajusta as opções informadas; campos nil ficam
// como estão
func (s *Supervisor) UpdateGroupSettings(ctx context.Context, sessionID, groupJID string, settings GroupSettings) error {
	client, err := s.connectedClient(sessionID)
	if err != nil {
		return err
	}

	jid, err := ParseGroupJID(groupJID)
	if err != nil {
		return err
	}

	if settings.Announce == nil && settings.Locked == nil {
		return errs.Validation("settings", "nothing to update")
	}

	if settings.Announce != nil {
		if err := client.SetGroupAnnounce(ctx, jid, *settings.Announce); err != nil {
			return errs.Transient(fmt.Errorf("failed to set announce: %w", err))
		}
	}
	if settings.Locked != nil {
		if err := client.SetGroupLocked(ctx, jid, *settings.Locked); err != nil {
			return errs.Transient(fmt.Errorf("failed to set locked: %w", err))
		}
	}

	s.refreshGroup(ctx, sessionID, client, jid)
	return nil
}

// MemberNumbers retorna os números E.164 dos membros do grupo, sem o
// número da própria sessão. Usado pelo broadcast para membros.
func (s *Supervisor) MemberNumbers(ctx context.Context, sessionID, groupJID string) ([]string, error) {
	participants, err := s.ListParticipants(ctx, sessionID, groupJID)
	if err != nil {
		return nil, err
	}

	own := ""
	if meta, ok := s.getMeta(sessionID); ok {
		own = meta.phoneNumber
	}

	numbers := make([]string, 0, len(participants))
	for _, p := range participants {
		if p.Phone == "" || p.Phone == own {
			continue
		}
		numbers = append(numbers, p.Phone)
	}

	return numbers, nil
}

// LeaveGroup sai do grupo e remove o registro local
func (s *Supervisor) LeaveGroup(ctx context.Context, sessionID, groupJID string) error {
	client, err := s.connectedClient(sessionID)
	if err != nil {
		return err
	}

	jid, err := ParseGroupJID(groupJID)
	if err != nil {
		return err
	}

	if err := client.LeaveGroup(ctx, jid); err != nil {
		return errs.Transient(fmt.Errorf("failed to leave group: %w", err))
	}

	if err := s.repos.Groups.Delete(ctx, sessionID, jid.String()); err != nil && !errors.Is(err, errs.ErrNotFound) {
		logger.GetWithSession(sessionID).Error().Err(err).Msg("Failed to remove group record")
	}

	s.bus.Publish(events.Event{
		Topic:     events.TopicGroupUpdate,
		SessionID: sessionID,
		Payload:   GroupUpdatePayload{GroupJID: jid.String(), Action: "left"},
	})

	return nil
}

// GroupDetail busca os dados atuais do grupo no WhatsApp
func (s *Supervisor) GroupDetail(ctx context.Context, sessionID, groupJID string) (*models.Group, error) {
	client, err := s.connectedClient(sessionID)
	if err != nil {
		return nil, err
	}

	jid, err := ParseGroupJID(groupJID)
	if err != nil {
		return nil, err
	}

	info, err := client.GroupInfo(ctx, jid)
	if err != nil {
		return nil, errs.Transient(fmt.Errorf("failed to fetch group info: %w", err))
	}

	group := groupFromInfo(sessionID, info, client.JID())
	if err := s.repos.Groups.Upsert(ctx, group); err != nil {
		logger.GetWithSession(sessionID).Error().Err(err).Msg("Failed to refresh group record")
	}

	return group, nil
}

func (s *Supervisor) refreshGroup(ctx context.Context, sessionID string, client Client, jid types.JID) {
	info, err := client.GroupInfo(ctx, jid)
	if err != nil {
		return
	}

	group := groupFromInfo(sessionID, info, client.JID())
	if err := s.repos.Groups.Upsert(ctx, group); err != nil {
		logger.GetWithSession(sessionID).Error().Err(err).Msg("Failed to refresh group record")
	}
}

func parseParticipants(participants []string) ([]types.JID, error) {
	if len(participants) == 0 {
		return nil, errs.Validation("participants", "at least one participant is required")
	}

	jids := make([]types.JID, 0, len(participants))
	for _, phone := range participants {
		jid, err := ParseUserJID(phone)
		if err != nil {
			return nil, errs.Validation("participants", fmt.Sprintf("invalid phone %q", phone))
		}
		jids = append(jids, jid)
	}

	return jids, nil
}
