package wa

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/google/uuid"
	"github.com/mdp/qrterminal/v3"
	"github.com/skip2/go-qrcode"
	"github.com/vincent-petithory/dataurl"
	"go.mau.fi/whatsmeow/store"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	waEvents "go.mau.fi/whatsmeow/types/events"

	"github.com/felipe/zapgateway/internal/config"
	"github.com/felipe/zapgateway/internal/db/models"
	"github.com/felipe/zapgateway/internal/db/repositories"
	"github.com/felipe/zapgateway/internal/errs"
	"github.com/felipe/zapgateway/internal/events"
	"github.com/felipe/zapgateway/internal/logger"
	"github.com/felipe/zapgateway/internal/usage"
)

// QRPayload é publicado no tópico qr quando um novo código é emitido
type QRPayload struct {
	Code    string `json:"code"`
	DataURL string `json:"data_url"`
}

// StatusPayload é publicado no tópico connectionStatus
type StatusPayload struct {
	Status      models.SessionStatus `json:"status"`
	PhoneNumber string               `json:"phone_number,omitempty"`
	Reason      string               `json:"reason,omitempty"`
}

// GroupUpdatePayload é publicado no tópico groupUpdate
type GroupUpdatePayload struct {
	GroupJID string `json:"group_jid"`
	Name     string `json:"name,omitempty"`
	Action   string `json:"action"`
}

type sessionMeta struct {
	orgID       string
	phoneNumber string
	destroying  bool
}

// Supervisor é o dono do ciclo de vida das sessões WhatsApp: cria,
// conecta, restaura após restart, reage a quedas e encerra. Toda
// mutação de estado de sessão passa por ele.
type Supervisor struct {
	cfg       *config.Config
	repos     *repositories.Repositories
	bus       *events.Bus
	registry  *Registry
	container *sqlstore.Container
	factory   ClientFactory
	meter     *usage.Meter
	guard     *usage.Guard
	reconnect *Reconnector
	log       logger.Logger

	metaMu sync.RWMutex
	meta   map[string]*sessionMeta
}

func NewSupervisor(
	cfg *config.Config,
	repos *repositories.Repositories,
	bus *events.Bus,
	container *sqlstore.Container,
	factory ClientFactory,
	meter *usage.Meter,
	guard *usage.Guard,
) *Supervisor {
	s := &Supervisor{
		cfg:       cfg,
		repos:     repos,
		bus:       bus,
		registry:  NewRegistry(),
		container: container,
		factory:   factory,
		meter:     meter,
		guard:     guard,
		log:       logger.ForComponent("supervisor"),
		meta:      make(map[string]*sessionMeta),
	}

	s.reconnect = NewReconnector(&cfg.WhatsApp, repos.Sessions, s.attemptReconnect, s.giveUp)
	return s
}

// CreateSession registra uma nova sessão para a organização e inicia o
// pareamento por QR. Falha com LimitExceededError quando o plano não
// permite mais contas e com ErrDuplicate quando o session_id já existe.
func (s *Supervisor) CreateSession(ctx context.Context, org *models.Organization, sessionID string) (*models.Session, error) {
	if !models.ValidSessionID(sessionID) {
		return nil, errs.Validation("session_id", "must match [A-Za-z0-9_-], max 100 chars")
	}

	if err := s.guard.CheckSessionQuota(ctx, org); err != nil {
		return nil, err
	}

	session := &models.Session{
		SessionID:      sessionID,
		OrganizationID: org.ID,
		Status:         models.SessionStatusConnecting,
	}

	if err := s.repos.Sessions.Create(ctx, session); err != nil {
		return nil, err
	}

	device := s.container.NewDevice()
	if err := s.startClient(sessionID, org.ID.String(), "", device); err != nil {
		s.setStatus(ctx, sessionID, models.SessionStatusError, err.Error())
		return nil, err
	}

	s.log.Info().
		Str("session_id", sessionID).
		Str("organization_id", org.ID.String()).
		Msg("Session created, waiting for QR pairing")

	return session, nil
}

// Connect reinicia a conexão de uma sessão existente. Se a sessão tem
// credenciais salvas a conexão é direta; sem credenciais um novo ciclo
// de QR é iniciado.
func (s *Supervisor) Connect(ctx context.Context, sessionID string) error {
	if client, ok := s.registry.Get(sessionID); ok {
		if client.IsConnected() {
			return nil
		}
		return client.Connect()
	}

	session, err := s.repos.Sessions.GetBySessionID(ctx, sessionID)
	if err != nil {
		return err
	}

	if len(session.AuthState) > 0 {
		return s.restore(ctx, &models.RestorableSession{
			SessionID:      session.SessionID,
			OrganizationID: session.OrganizationID,
			PhoneNumber:    session.PhoneNumber,
			AuthState:      session.AuthState,
		})
	}

	device := s.container.NewDevice()
	return s.startClient(sessionID, session.OrganizationID.String(), "", device)
}

// RestoreAll reconecta todas as sessões com credenciais salvas. Chamado
// uma vez no boot do processo; falha de uma sessão não impede as demais.
func (s *Supervisor) RestoreAll(ctx context.Context) {
	restorable, err := s.repos.Sessions.ListRestorable(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to list restorable sessions")
		return
	}

	s.log.Info().Int("count", len(restorable)).Msg("Restoring sessions")

	for _, session := range restorable {
		if err := s.restore(ctx, session); err != nil {
			logger.GetWithSession(session.SessionID).Error().Err(err).Msg("Failed to restore session")
			s.setStatus(ctx, session.SessionID, models.SessionStatusError, err.Error())
		}
	}
}

func (s *Supervisor) restore(ctx context.Context, session *models.RestorableSession) error {
	state, err := models.DecodeAuthState(session.AuthState)
	if err != nil {
		return fmt.Errorf("corrupt auth state: %w", err)
	}

	jid, err := types.ParseJID(state.JID)
	if err != nil {
		return fmt.Errorf("corrupt auth state JID: %w", err)
	}

	device, err := s.container.GetDevice(ctx, jid)
	if err != nil {
		return fmt.Errorf("failed to load device: %w", err)
	}
	if device == nil {
		return fmt.Errorf("device %s not found in store", state.JID)
	}

	phone := ""
	if session.PhoneNumber != nil {
		phone = *session.PhoneNumber
	}

	s.setStatus(ctx, session.SessionID, models.SessionStatusConnecting, "")
	return s.startClient(session.SessionID, session.OrganizationID.String(), phone, device)
}

func (s *Supervisor) startClient(sessionID, orgID, phone string, device *store.Device) error {
	client := s.factory.NewClient(sessionID, device, s.handleEvent)

	if err := s.registry.Add(sessionID, orgID, client); err != nil {
		return err
	}

	s.metaMu.Lock()
	s.meta[sessionID] = &sessionMeta{orgID: orgID, phoneNumber: phone}
	s.metaMu.Unlock()

	if err := client.Connect(); err != nil {
		s.registry.Remove(sessionID, orgID)
		s.metaMu.Lock()
		delete(s.meta, sessionID)
		s.metaMu.Unlock()
		return fmt.Errorf("failed to connect: %w", err)
	}

	return nil
}

// Disconnect derruba a conexão da sessão sem apagar as credenciais
func (s *Supervisor) Disconnect(ctx context.Context, sessionID string) error {
	meta, ok := s.getMeta(sessionID)
	if !ok {
		return fmt.Errorf("session %s: %w", sessionID, errs.ErrNotFound)
	}

	s.markDestroying(sessionID, true)
	s.reconnect.Cancel(sessionID)

	if client, ok := s.registry.Remove(sessionID, meta.orgID); ok {
		client.Disconnect()
	}

	s.metaMu.Lock()
	delete(s.meta, sessionID)
	s.metaMu.Unlock()

	s.setStatus(ctx, sessionID, models.SessionStatusDisconnected, "")
	return nil
}

// Logout desvincula o device no WhatsApp e apaga as credenciais salvas.
// A sessão permanece registrada e pode ser pareada de novo via QR.
func (s *Supervisor) Logout(ctx context.Context, sessionID string) error {
	meta, ok := s.getMeta(sessionID)
	if !ok {
		return fmt.Errorf("session %s: %w", sessionID, errs.ErrNotFound)
	}

	s.markDestroying(sessionID, true)
	s.reconnect.Cancel(sessionID)

	if client, ok := s.registry.Remove(sessionID, meta.orgID); ok {
		if err := client.Logout(ctx); err != nil {
			logger.GetWithSession(sessionID).Warn().Err(err).Msg("Logout request failed, clearing local state anyway")
			client.Disconnect()
		}
	}

	s.metaMu.Lock()
	delete(s.meta, sessionID)
	s.metaMu.Unlock()

	if err := s.repos.Sessions.ClearAuthState(ctx, sessionID); err != nil {
		return err
	}

	s.setStatus(ctx, sessionID, models.SessionStatusDisconnected, "")
	return nil
}

// Delete remove a sessão por completo: conexão, credenciais e registro
// no banco (mensagens e grupos caem em cascata).
func (s *Supervisor) Delete(ctx context.Context, sessionID string) error {
	if _, ok := s.getMeta(sessionID); ok {
		if err := s.Logout(ctx, sessionID); err != nil && !errors.Is(err, errs.ErrNotFound) {
			logger.GetWithSession(sessionID).Warn().Err(err).Msg("Logout during delete failed")
		}
	}

	return s.repos.Sessions.Delete(ctx, sessionID)
}

// Deliver envia uma mensagem outbound já persistida e atualiza o status
// dela. Usado pelos workers da fila e pelo envio imediato da API.
func (s *Supervisor) Deliver(ctx context.Context, message *models.Message) error {
	client, ok := s.registry.Get(message.SessionID)
	if !ok || !client.IsConnected() {
		return errs.Transient(errs.ErrNotConnected)
	}

	to, err := ParseDestinationJID(message.ToNumber)
	if err != nil {
		return err
	}

	result, err := client.SendText(ctx, to, message.Text())
	if err != nil {
		return err
	}

	if err := s.repos.Messages.UpdateStatus(ctx, message.SessionID, message.MessageID, models.MessageStatusSent); err != nil {
		logger.GetWithSession(message.SessionID).Error().Err(err).Msg("Failed to mark message sent")
	}

	meta, _ := s.getMeta(message.SessionID)
	if meta != nil {
		s.meter.MessageSent(ctx, meta.orgID)
	}

	logger.GetWithSession(message.SessionID).Debug().
		Str("wa_message_id", result.MessageID).
		Msg("Message delivered")

	return nil
}

// IsConnected informa se a sessão tem conexão ativa no momento
func (s *Supervisor) IsConnected(sessionID string) bool {
	client, ok := s.registry.Get(sessionID)
	return ok && client.IsConnected()
}

// ActiveSessions retorna o total de sessões ativas no processo
func (s *Supervisor) ActiveSessions() int {
	return s.registry.Count()
}

// QRDataURL retorna o último QR emitido como data URL de PNG
func (s *Supervisor) QRDataURL(ctx context.Context, sessionID string) (string, error) {
	session, err := s.repos.Sessions.GetBySessionID(ctx, sessionID)
	if err != nil {
		return "", err
	}

	if session.Status == models.SessionStatusConnected {
		return "", errs.Validation("session", "already connected")
	}
	if session.LastQRCode == nil || *session.LastQRCode == "" {
		return "", fmt.Errorf("qr code: %w", errs.ErrNotFound)
	}

	return qrToDataURL(*session.LastQRCode)
}

// Shutdown derruba todas as conexões de forma ordenada. As credenciais
// ficam salvas; o próximo boot restaura as sessões.
func (s *Supervisor) Shutdown() {
	s.reconnect.Close()

	for _, sessionID := range s.registry.List() {
		s.markDestroying(sessionID, true)
		meta, _ := s.getMeta(sessionID)
		if meta == nil {
			continue
		}
		if client, ok := s.registry.Remove(sessionID, meta.orgID); ok {
			client.Disconnect()
		}
	}

	s.log.Info().Msg("All sessions disconnected")
}

// handleEvent é o funil de todos os eventos do whatsmeow. Roda na
// goroutine de eventos do cliente; trabalho pesado vai para o banco ou
// para o barramento, nunca bloqueia aqui por muito tempo.
func (s *Supervisor) handleEvent(sessionID string, evt interface{}) {
	ctx := context.Background()

	switch e := evt.(type) {
	case *waEvents.QR:
		s.handleQR(ctx, sessionID, e)

	case *waEvents.PairSuccess:
		s.handlePairSuccess(ctx, sessionID, e)

	case *waEvents.Connected:
		s.handleConnected(ctx, sessionID)

	case *waEvents.Message:
		s.handleInbound(ctx, sessionID, e)

	case *waEvents.GroupInfo:
		s.handleGroupInfo(ctx, sessionID, e)

	case *waEvents.JoinedGroup:
		s.handleJoinedGroup(ctx, sessionID, e)

	case *waEvents.Disconnected, *waEvents.LoggedOut, *waEvents.StreamError,
		*waEvents.ConnectFailure, *waEvents.TemporaryBan:
		s.handleClosed(ctx, sessionID, evt)
	}
}

func (s *Supervisor) handleQR(ctx context.Context, sessionID string, evt *waEvents.QR) {
	if len(evt.Codes) == 0 {
		return
	}
	code := evt.Codes[0]

	if err := s.repos.Sessions.SaveQRCode(ctx, sessionID, code); err != nil {
		logger.GetWithSession(sessionID).Error().Err(err).Msg("Failed to save QR code")
	}

	if s.cfg.WhatsApp.PrintQR {
		qrterminal.GenerateHalfBlock(code, qrterminal.L, os.Stdout)
	}

	dataURL, err := qrToDataURL(code)
	if err != nil {
		logger.GetWithSession(sessionID).Error().Err(err).Msg("Failed to render QR code")
		dataURL = ""
	}

	s.bus.Publish(events.Event{
		Topic:     events.TopicQR,
		SessionID: sessionID,
		Payload:   QRPayload{Code: code, DataURL: dataURL},
	})
}

func (s *Supervisor) handlePairSuccess(ctx context.Context, sessionID string, evt *waEvents.PairSuccess) {
	phone := NumberFromJID(evt.ID)

	s.metaMu.Lock()
	if meta, ok := s.meta[sessionID]; ok {
		meta.phoneNumber = phone
	}
	s.metaMu.Unlock()

	if err := s.repos.Sessions.UpdatePhoneNumber(ctx, sessionID, phone); err != nil {
		logger.GetWithSession(sessionID).Error().Err(err).Msg("Failed to save phone number")
	}

	logger.GetWithSession(sessionID).Info().Str("phone", phone).Msg("Device paired")
}

func (s *Supervisor) handleConnected(ctx context.Context, sessionID string) {
	log := logger.GetWithSession(sessionID)
	log.Info().Msg("Session connected")

	if err := s.repos.Sessions.ResetReconnectAttempts(ctx, sessionID); err != nil {
		log.Error().Err(err).Msg("Failed to reset reconnect attempts")
	}
	if err := s.repos.Sessions.TouchLastSeen(ctx, sessionID); err != nil {
		log.Error().Err(err).Msg("Failed to update last seen")
	}

	meta, _ := s.getMeta(sessionID)
	phone := ""
	if meta != nil {
		phone = meta.phoneNumber
	}

	if client, ok := s.registry.Get(sessionID); ok {
		if state, err := client.AuthSnapshot(); err == nil {
			if blob, err := state.Encode(); err == nil {
				if err := s.repos.Sessions.SaveAuthState(ctx, sessionID, blob); err != nil {
					log.Error().Err(err).Msg("Failed to persist auth state")
				}
			}
		}

		if phone == "" && client.JID() != "" {
			if jid, err := types.ParseJID(client.JID()); err == nil {
				phone = NumberFromJID(jid)
				s.metaMu.Lock()
				if m, ok := s.meta[sessionID]; ok {
					m.phoneNumber = phone
				}
				s.metaMu.Unlock()
				if err := s.repos.Sessions.UpdatePhoneNumber(ctx, sessionID, phone); err != nil {
					log.Error().Err(err).Msg("Failed to save phone number")
				}
			}
		}
	}

	s.setStatus(ctx, sessionID, models.SessionStatusConnected, "")

	if meta != nil {
		s.meter.ActiveSessions(ctx, meta.orgID, s.registry.CountByOrg(meta.orgID))
	}
}

func (s *Supervisor) handleClosed(ctx context.Context, sessionID string, evt interface{}) {
	meta, ok := s.getMeta(sessionID)
	if !ok || meta.destroying {
		return
	}

	reason := ClassifyClose(evt)
	log := logger.GetWithSession(sessionID)
	log.Warn().Str("reason", reason.String()).Msg("Session connection closed")

	s.setStatusWithReason(ctx, sessionID, models.SessionStatusDisconnected, "", reason.String())
	s.reconnect.Schedule(ctx, sessionID, reason)
}

func (s *Supervisor) handleInbound(ctx context.Context, sessionID string, evt *waEvents.Message) {
	if evt.Info.IsFromMe {
		return
	}

	meta, ok := s.getMeta(sessionID)
	if !ok {
		return
	}

	orgID, err := uuid.Parse(meta.orgID)
	if err != nil {
		return
	}

	text, messageType := extractContent(evt)

	message := &models.Message{
		SessionID:      sessionID,
		OrganizationID: orgID,
		MessageID:      string(evt.Info.ID),
		Direction:      models.DirectionInbound,
		FromNumber:     NumberFromJID(evt.Info.Sender),
		ToNumber:       meta.phoneNumber,
		MessageType:    messageType,
		Content:        models.JSONB{"text": text},
		Status:         models.MessageStatusDelivered,
		IsGroupMessage: evt.Info.IsGroup,
		Timestamp:      evt.Info.Timestamp,
	}

	if evt.Info.IsGroup {
		chat := evt.Info.Chat.String()
		message.GroupJID = &chat
	}

	if err := s.repos.Messages.Create(ctx, message); err != nil {
		if errors.Is(err, errs.ErrDuplicate) {
			return
		}
		logger.GetWithSession(sessionID).Error().Err(err).Msg("Failed to persist inbound message")
		return
	}

	s.meter.MessageReceived(ctx, meta.orgID)

	s.bus.Publish(events.Event{
		Topic:     events.TopicMessage,
		SessionID: sessionID,
		Payload:   message,
	})
}

func (s *Supervisor) handleGroupInfo(ctx context.Context, sessionID string, evt *waEvents.GroupInfo) {
	name := ""
	if evt.Name != nil {
		name = evt.Name.Name
	}

	if name != "" {
		group := &models.Group{
			SessionID: sessionID,
			GroupJID:  evt.JID.String(),
			Name:      name,
		}
		if existing, err := s.repos.Groups.GetByJID(ctx, sessionID, group.GroupJID); err == nil {
			group.Description = existing.Description
			group.ParticipantCount = existing.ParticipantCount
			group.IsAdmin = existing.IsAdmin
		}
		if err := s.repos.Groups.Upsert(ctx, group); err != nil {
			logger.GetWithSession(sessionID).Error().Err(err).Msg("Failed to update group")
		}
	}

	s.bus.Publish(events.Event{
		Topic:     events.TopicGroupUpdate,
		SessionID: sessionID,
		Payload:   GroupUpdatePayload{GroupJID: evt.JID.String(), Name: name, Action: "update"},
	})
}

func (s *Supervisor) handleJoinedGroup(ctx context.Context, sessionID string, evt *waEvents.JoinedGroup) {
	group := groupFromInfo(sessionID, &evt.GroupInfo, "")

	if err := s.repos.Groups.Upsert(ctx, group); err != nil {
		logger.GetWithSession(sessionID).Error().Err(err).Msg("Failed to store joined group")
	}

	s.bus.Publish(events.Event{
		Topic:     events.TopicGroupUpdate,
		SessionID: sessionID,
		Payload:   GroupUpdatePayload{GroupJID: group.GroupJID, Name: group.Name, Action: "joined"},
	})
}

// attemptReconnect é o callback do Reconnector
func (s *Supervisor) attemptReconnect(ctx context.Context, sessionID string) error {
	if client, ok := s.registry.Get(sessionID); ok {
		if client.IsConnected() {
			return nil
		}
		s.setStatus(ctx, sessionID, models.SessionStatusConnecting, "")
		return client.Connect()
	}

	session, err := s.repos.Sessions.GetBySessionID(ctx, sessionID)
	if err != nil {
		return err
	}
	if len(session.AuthState) == 0 {
		return fmt.Errorf("no saved credentials")
	}

	return s.restore(ctx, &models.RestorableSession{
		SessionID:      session.SessionID,
		OrganizationID: session.OrganizationID,
		PhoneNumber:    session.PhoneNumber,
		AuthState:      session.AuthState,
	})
}

// giveUp é chamado pelo Reconnector quando não há mais o que tentar
func (s *Supervisor) giveUp(ctx context.Context, sessionID string, reason CloseReason) {
	log := logger.GetWithSession(sessionID)
	s.reconnect.Cancel(sessionID)

	if reason == CloseLoggedOut {
		if err := s.repos.Sessions.ClearAuthState(ctx, sessionID); err != nil {
			log.Error().Err(err).Msg("Failed to clear auth state")
		}

		meta, _ := s.getMeta(sessionID)
		if meta != nil {
			s.registry.Remove(sessionID, meta.orgID)
			s.metaMu.Lock()
			delete(s.meta, sessionID)
			s.metaMu.Unlock()
		}

		s.setStatusWithReason(ctx, sessionID, models.SessionStatusDisconnected, "logged out remotely", reason.String())
		return
	}

	s.setStatusWithReason(ctx, sessionID, models.SessionStatusError, "reconnect attempts exhausted", reason.String())
}

func (s *Supervisor) setStatus(ctx context.Context, sessionID string, status models.SessionStatus, errorMessage string) {
	s.setStatusWithReason(ctx, sessionID, status, errorMessage, "")
}

func (s *Supervisor) setStatusWithReason(ctx context.Context, sessionID string, status models.SessionStatus, errorMessage, reason string) {
	var errMsg *string
	if errorMessage != "" {
		errMsg = &errorMessage
	}

	if err := s.repos.Sessions.UpdateStatus(ctx, sessionID, status, errMsg); err != nil {
		logger.GetWithSession(sessionID).Error().Err(err).Msg("Failed to update session status")
	}

	meta, _ := s.getMeta(sessionID)
	phone := ""
	if meta != nil {
		phone = meta.phoneNumber
	}

	s.bus.Publish(events.Event{
		Topic:     events.TopicConnectionStatus,
		SessionID: sessionID,
		Payload:   StatusPayload{Status: status, PhoneNumber: phone, Reason: reason},
	})
}

func (s *Supervisor) getMeta(sessionID string) (*sessionMeta, bool) {
	s.metaMu.RLock()
	defer s.metaMu.RUnlock()
	meta, ok := s.meta[sessionID]
	return meta, ok
}

func (s *Supervisor) markDestroying(sessionID string, destroying bool) {
	s.metaMu.Lock()
	if meta, ok := s.meta[sessionID]; ok {
		meta.destroying = destroying
	}
	s.metaMu.Unlock()
}

func qrToDataURL(code string) (string, error) {
	png, err := qrcode.Encode(code, qrcode.Medium, 256)
	if err != nil {
		return "", fmt.Errorf("failed to encode QR: %w", err)
	}
	return dataurl.New(png, "image/png").String(), nil
}

// extractContent tira o texto e o tipo de um evento de mensagem
func extractContent(evt *waEvents.Message) (string, models.MessageType) {
	msg := evt.Message
	if msg == nil {
		return "", models.MessageTypeText
	}

	switch {
	case msg.GetConversation() != "":
		return msg.GetConversation(), models.MessageTypeText
	case msg.GetExtendedTextMessage().GetText() != "":
		return msg.GetExtendedTextMessage().GetText(), models.MessageTypeText
	case msg.GetImageMessage() != nil:
		return msg.GetImageMessage().GetCaption(), models.MessageTypeImage
	case msg.GetAudioMessage() != nil:
		return "", models.MessageTypeAudio
	case msg.GetVideoMessage() != nil:
		return msg.GetVideoMessage().GetCaption(), models.MessageTypeVideo
	case msg.GetDocumentMessage() != nil:
		return msg.GetDocumentMessage().GetFileName(), models.MessageTypeDocument
	default:
		return "", models.MessageTypeText
	}
}

func groupFromInfo(sessionID string, info *types.GroupInfo, ownJID string) *models.Group {
	group := &models.Group{
		SessionID:        sessionID,
		GroupJID:         info.JID.String(),
		Name:             info.Name,
		ParticipantCount: len(info.Participants),
	}

	if info.Topic != "" {
		topic := info.Topic
		group.Description = &topic
	}

	for _, participant := range info.Participants {
		if ownJID != "" && participant.JID.String() == ownJID && (participant.IsAdmin || participant.IsSuperAdmin) {
			group.IsAdmin = true
		}
	}

	return group
}
