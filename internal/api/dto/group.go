package dto

import (
	"time"

	"github.com/felipe/zapgateway/internal/db/models"
)

// CreateGroupRequest é o corpo de POST /api/groups/:session_id/create
type CreateGroupRequest struct {
	Name         string   `json:"name" validate:"required,max=255"`
	Participants []string `json:"participants" validate:"required,min=1,max=256"`
}

// ParticipantsRequest é usado em add/remove/promote de participantes.
// As rotas de grupo são endereçadas pelo JID; a sessão vem no corpo.
type ParticipantsRequest struct {
	SessionID    string   `json:"session_id" validate:"required,max=100"`
	Participants []string `json:"participants" validate:"required,min=1,max=256"`
}

// GroupSettingsRequest ajusta as opções do grupo
type GroupSettingsRequest struct {
	SessionID string `json:"session_id" validate:"required,max=100"`
	Announce  *bool  `json:"announce,omitempty"`
	Locked    *bool  `json:"locked,omitempty"`
}

// BroadcastRequest envia uma mensagem individual a cada membro do grupo
type BroadcastRequest struct {
	SessionID string `json:"session_id" validate:"required,max=100"`
	Message   string `json:"message" validate:"required,max=65536"`
}

// BroadcastResponse informa quantos envios entraram na fila
type BroadcastResponse struct {
	Success bool `json:"success"`
	Queued  int  `json:"queued"`
	Skipped int  `json:"skipped"`
}

// GroupView é a visão de um grupo em listagens
type GroupView struct {
	GroupJID         string    `json:"group_jid"`
	Name             string    `json:"name"`
	Description      string    `json:"description,omitempty"`
	ParticipantCount int       `json:"participant_count"`
	IsAdmin          bool      `json:"is_admin"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// NewGroupView converte o modelo para a visão da API
func NewGroupView(group *models.Group) GroupView {
	view := GroupView{
		GroupJID:         group.GroupJID,
		Name:             group.Name,
		ParticipantCount: group.ParticipantCount,
		IsAdmin:          group.IsAdmin,
		UpdatedAt:        group.UpdatedAt,
	}
	if group.Description != nil {
		view.Description = *group.Description
	}
	return view
}
