package wa

import (
	"context"
	"fmt"
	"time"

	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store"
	"go.mau.fi/whatsmeow/types"
	"google.golang.org/protobuf/proto"

	"github.com/felipe/zapgateway/internal/db/models"
	"github.com/felipe/zapgateway/internal/errs"
	"github.com/felipe/zapgateway/internal/logger"
)

// SendResult é o resultado de um envio aceito pelo WhatsApp
type SendResult struct {
	MessageID string
	Timestamp time.Time
}

// EventHandler recebe os eventos brutos do whatsmeow de uma sessão
type EventHandler func(sessionID string, evt interface{})

// Client é a superfície do cliente WhatsApp usada pelo supervisor, fila
// e handlers. A implementação real embrulha o whatsmeow; testes usam um
// fake.
type Client interface {
	Connect() error
	Disconnect()
	Logout(ctx context.Context) error
	IsConnected() bool
	IsLoggedIn() bool
	JID() string
	PushName() string
	SendText(ctx context.Context, to types.JID, text string) (*SendResult, error)
	AuthSnapshot() (*models.AuthState, error)
	JoinedGroups(ctx context.Context) ([]*types.GroupInfo, error)
	CreateGroup(ctx context.Context, name string, participants []types.JID) (*types.GroupInfo, error)
	UpdateParticipants(ctx context.Context, group types.JID, participants []types.JID, action whatsmeow.ParticipantChange) error
	LeaveGroup(ctx context.Context, group types.JID) error
	GroupInfo(ctx context.Context, group types.JID) (*types.GroupInfo, error)
	SetGroupAnnounce(ctx context.Context, group types.JID, announce bool) error
	SetGroupLocked(ctx context.Context, group types.JID, locked bool) error
}

// ClientFactory cria clientes para um device do container
type ClientFactory interface {
	NewClient(sessionID string, device *store.Device, handler EventHandler) Client
}

type meowFactory struct{}

// NewFactory retorna a fábrica de clientes whatsmeow
func NewFactory() ClientFactory {
	return &meowFactory{}
}

func (f *meowFactory) NewClient(sessionID string, device *store.Device, handler EventHandler) Client {
	cli := whatsmeow.NewClient(device, logger.GetWhatsAppLogger("client"))
	cli.AddEventHandler(func(evt interface{}) {
		handler(sessionID, evt)
	})

	return &meowClient{
		sessionID: sessionID,
		wa:        cli,
		log:       logger.GetWithSession(sessionID),
	}
}

type meowClient struct {
	sessionID string
	wa        *whatsmeow.Client
	log       logger.Logger
}

func (c *meowClient) Connect() error {
	return c.wa.Connect()
}

func (c *meowClient) Disconnect() {
	c.wa.Disconnect()
}

func (c *meowClient) Logout(ctx context.Context) error {
	return c.wa.Logout(ctx)
}

func (c *meowClient) IsConnected() bool {
	return c.wa.IsConnected()
}

func (c *meowClient) IsLoggedIn() bool {
	return c.wa.IsLoggedIn()
}

func (c *meowClient) JID() string {
	if c.wa.Store.ID == nil {
		return ""
	}
	return c.wa.Store.ID.String()
}

func (c *meowClient) PushName() string {
	return c.wa.Store.PushName
}

func (c *meowClient) SendText(ctx context.Context, to types.JID, text string) (*SendResult, error) {
	if !c.wa.IsConnected() {
		return nil, errs.ErrNotConnected
	}

	message := &waE2E.Message{
		Conversation: proto.String(text),
	}

	resp, err := c.wa.SendMessage(ctx, to, message)
	if err != nil {
		return nil, errs.Transient(fmt.Errorf("failed to send message: %w", err))
	}

	return &SendResult{
		MessageID: string(resp.ID),
		Timestamp: resp.Timestamp,
	}, nil
}

// AuthSnapshot captura as credenciais do device pareado para o blob
// persistido na sessão
func (c *meowClient) AuthSnapshot() (*models.AuthState, error) {
	device := c.wa.Store
	if device.ID == nil {
		return nil, fmt.Errorf("device not paired yet")
	}

	state := &models.AuthState{
		JID:            device.ID.String(),
		Platform:       device.Platform,
		PushName:       device.PushName,
		RegistrationID: device.RegistrationID,
		AdvSecretKey:   models.TaggedBytes(device.AdvSecretKey),
	}

	if device.NoiseKey != nil {
		state.NoiseKey = models.TaggedBytes(device.NoiseKey.Priv[:])
	}
	if device.IdentityKey != nil {
		state.IdentityKey = models.TaggedBytes(device.IdentityKey.Priv[:])
	}
	if device.SignedPreKey != nil {
		state.SignedPreKey = models.TaggedBytes(device.SignedPreKey.Priv[:])
	}

	return state, nil
}

func (c *meowClient) JoinedGroups(ctx context.Context) ([]*types.GroupInfo, error) {
	return c.wa.GetJoinedGroups(ctx)
}

func (c *meowClient) CreateGroup(ctx context.Context, name string, participants []types.JID) (*types.GroupInfo, error) {
	return c.wa.CreateGroup(ctx, whatsmeow.ReqCreateGroup{
		Name:         name,
		Participants: participants,
	})
}

func (c *meowClient) UpdateParticipants(ctx context.Context, group types.JID, participants []types.JID, action whatsmeow.ParticipantChange) error {
	_, err := c.wa.UpdateGroupParticipants(ctx, group, participants, action)
	return err
}

func (c *meowClient) LeaveGroup(ctx context.Context, group types.JID) error {
	return c.wa.LeaveGroup(ctx, group)
}

func (c *meowClient) GroupInfo(ctx context.Context, group types.JID) (*types.GroupInfo, error) {
	return c.wa.GetGroupInfo(ctx, group)
}

func (c *meowClient) SetGroupAnnounce(ctx context.Context, group types.JID, announce bool) error {
	return c.wa.SetGroupAnnounce(ctx, group, announce)
}

func (c *meowClient) SetGroupLocked(ctx context.Context, group types.JID, locked bool) error {
	return c.wa.SetGroupLocked(ctx, group, locked)
}
