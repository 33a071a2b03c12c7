package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	cache "github.com/patrickmn/go-cache"
	"github.com/sony/gobreaker/v2"

	"github.com/felipe/zapgateway/internal/config"
	"github.com/felipe/zapgateway/internal/db/models"
	"github.com/felipe/zapgateway/internal/db/repositories"
	"github.com/felipe/zapgateway/internal/events"
	"github.com/felipe/zapgateway/internal/logger"
)

const dispatchWorkers = 4

// Dispatcher entrega mensagens inbound ao webhook de CRM da
// organização. Entregas em tempo real vêm do barramento de eventos; o
// que escapar (buffer cheio, CRM fora) é recuperado pelo Backfill.
type Dispatcher struct {
	cfg      *config.WebhookConfig
	orgs     repositories.OrganizationRepository
	messages repositories.MessageRepository
	logs     repositories.WebhookLogRepository
	client   *resty.Client
	orgCache *cache.Cache
	log      logger.Logger

	breakerMu sync.Mutex
	breakers  map[string]*gobreaker.CircuitBreaker[*resty.Response]

	wg sync.WaitGroup
}

func NewDispatcher(cfg *config.WebhookConfig, repos *repositories.Repositories) *Dispatcher {
	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("User-Agent", "zapgateway-webhook/1.0")

	return &Dispatcher{
		cfg:      cfg,
		orgs:     repos.Organizations,
		messages: repos.Messages,
		logs:     repos.WebhookLogs,
		client:   client,
		orgCache: cache.New(time.Minute, 2*time.Minute),
		log:      logger.ForComponent("webhook_dispatcher"),
		breakers: make(map[string]*gobreaker.CircuitBreaker[*resty.Response]),
	}
}

// Run consome o tópico de mensagens do barramento até o ctx encerrar.
// Deve rodar em goroutine própria. Cada sessão mapeia sempre para o
// mesmo worker: mensagens da mesma sessão saem na ordem em que chegaram.
func (d *Dispatcher) Run(ctx context.Context, bus *events.Bus) {
	sub := bus.Subscribe("", 256)
	defer sub.Close()

	shards := make([]chan *models.Message, dispatchWorkers)
	for i := range shards {
		shards[i] = make(chan *models.Message, 64)

		d.wg.Add(1)
		go func(work <-chan *models.Message) {
			defer d.wg.Done()
			for message := range work {
				if err := d.Dispatch(ctx, message); err != nil {
					d.log.Warn().Err(err).
						Str("message_id", message.MessageID).
						Msg("Webhook delivery failed, backfill will retry")
				}
			}
		}(shards[i])
	}

	for {
		select {
		case <-ctx.Done():
			for _, shard := range shards {
				close(shard)
			}
			d.wg.Wait()
			return
		case event := <-sub.C:
			if event.Topic != events.TopicMessage {
				continue
			}
			message, ok := event.Payload.(*models.Message)
			if !ok || message.Direction != models.DirectionInbound {
				continue
			}
			shards[sessionShard(message.SessionID, dispatchWorkers)] <- message
		}
	}
}

// sessionShard mapeia a sessão para um worker fixo
func sessionShard(sessionID string, workers int) int {
	h := fnv.New32a()
	h.Write([]byte(sessionID))
	return int(h.Sum32() % uint32(workers))
}

// Dispatch entrega uma mensagem ao CRM com retries exponenciais. Cada
// tentativa gera uma linha de auditoria; sucesso marca a mensagem como
// sincronizada. Organização sem webhook configurado é um no-op.
func (d *Dispatcher) Dispatch(ctx context.Context, message *models.Message) error {
	org, err := d.orgFor(ctx, message.OrganizationID.String())
	if err != nil {
		return err
	}
	if !org.HasWebhook() {
		return nil
	}

	envelope := BuildEnvelope(message)
	body, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to encode envelope: %w", err)
	}

	url := *org.WebhookURL
	var lastErr error

	for attempt := 0; attempt <= d.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := d.cfg.RetryBaseDelay * (1 << (attempt - 1))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		resp, err := d.post(ctx, org, url, body)

		entry := &models.WebhookLog{
			OrganizationID: message.OrganizationID,
			MessageID:      message.ID,
			URL:            url,
			Payload:        envelopeAsJSONB(envelope),
			RetryCount:     attempt,
		}

		switch {
		case err == nil && resp.IsSuccess():
			status := resp.StatusCode()
			respBody := truncate(resp.String(), 2000)
			entry.Status = models.WebhookLogSuccess
			entry.StatusCode = &status
			entry.ResponseBody = &respBody
			d.appendLog(ctx, entry)

			if err := d.messages.MarkSynced(ctx, message.ID.String(), crmMessageID(resp.Body())); err != nil {
				d.log.Error().Err(err).Str("message_id", message.MessageID).Msg("Failed to mark message synced")
			}
			return nil

		case err == nil:
			status := resp.StatusCode()
			respBody := truncate(resp.String(), 2000)
			lastErr = fmt.Errorf("webhook returned %d", status)
			entry.StatusCode = &status
			entry.ResponseBody = &respBody

		case errors.Is(err, gobreaker.ErrOpenState):
			// CRM já falhou demais; não insistir agora, o backfill volta
			errMsg := err.Error()
			entry.Status = models.WebhookLogFailed
			entry.ErrorMessage = &errMsg
			d.appendLog(ctx, entry)
			return fmt.Errorf("circuit breaker open for organization %s", org.ID)

		default:
			lastErr = err
			errMsg := truncate(err.Error(), 500)
			entry.ErrorMessage = &errMsg

			// 5xx chega aqui embrulhado em erro, mas a resposta existe e
			// a auditoria precisa do status e do corpo devolvidos
			if resp != nil && resp.StatusCode() != 0 {
				status := resp.StatusCode()
				respBody := truncate(resp.String(), 2000)
				entry.StatusCode = &status
				entry.ResponseBody = &respBody
			}
		}

		if attempt < d.cfg.MaxRetries {
			entry.Status = models.WebhookLogRetrying
		} else {
			entry.Status = models.WebhookLogFailed
		}
		d.appendLog(ctx, entry)
	}

	if err := d.messages.UpdateStatus(ctx, message.SessionID, message.MessageID, models.MessageStatusFailed); err != nil {
		d.log.Error().Err(err).Str("message_id", message.MessageID).Msg("Failed to mark message failed")
	}

	return fmt.Errorf("webhook delivery exhausted after %d attempts: %w", d.cfg.MaxRetries+1, lastErr)
}

func (d *Dispatcher) post(ctx context.Context, org *models.Organization, url string, body []byte) (*resty.Response, error) {
	breaker := d.breakerFor(org.ID.String())

	return breaker.Execute(func() (*resty.Response, error) {
		req := d.client.R().
			SetContext(ctx).
			SetBody(body)

		if d.cfg.Secret != "" {
			req.SetHeader("X-Signature", signPayload(d.cfg.Secret, body))
		}
		if org.CrmAPIKey != nil && *org.CrmAPIKey != "" {
			req.SetHeader("Authorization", "Bearer "+*org.CrmAPIKey)
		}
		if org.CrmLocationID != nil && *org.CrmLocationID != "" {
			req.SetHeader("X-Location-Id", *org.CrmLocationID)
		}

		resp, err := req.Post(url)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode() >= 500 {
			// 5xx conta para abrir o breaker; 4xx é problema do payload
			return resp, fmt.Errorf("webhook returned %d", resp.StatusCode())
		}
		return resp, nil
	})
}

func (d *Dispatcher) breakerFor(orgID string) *gobreaker.CircuitBreaker[*resty.Response] {
	d.breakerMu.Lock()
	defer d.breakerMu.Unlock()

	if breaker, ok := d.breakers[orgID]; ok {
		return breaker
	}

	failures := uint32(d.cfg.BreakerFailures)
	if failures == 0 {
		failures = 5
	}

	breaker := gobreaker.NewCircuitBreaker[*resty.Response](gobreaker.Settings{
		Name:        "webhook-" + orgID,
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			d.log.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Webhook circuit breaker state changed")
		},
	})

	d.breakers[orgID] = breaker
	return breaker
}

func (d *Dispatcher) orgFor(ctx context.Context, orgID string) (*models.Organization, error) {
	if cached, ok := d.orgCache.Get(orgID); ok {
		return cached.(*models.Organization), nil
	}

	org, err := d.orgs.GetByID(ctx, orgID)
	if err != nil {
		return nil, err
	}

	d.orgCache.Set(orgID, org, cache.DefaultExpiration)
	return org, nil
}

func (d *Dispatcher) appendLog(ctx context.Context, entry *models.WebhookLog) {
	if err := d.logs.Append(ctx, entry); err != nil {
		d.log.Error().Err(err).Msg("Failed to append webhook audit log")
	}
}

// crmMessageID extrai o id da mensagem criada no CRM, quando a
// resposta traz um
func crmMessageID(body []byte) *string {
	var parsed struct {
		ID        string `json:"id"`
		MessageID string `json:"messageId"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil
	}

	id := parsed.ID
	if id == "" {
		id = parsed.MessageID
	}
	if id == "" {
		return nil
	}
	return &id
}

// signPayload gera a assinatura HMAC-SHA256 do corpo
func signPayload(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func envelopeAsJSONB(envelope *Envelope) models.JSONB {
	data, err := json.Marshal(envelope)
	if err != nil {
		return models.JSONB{}
	}

	payload := models.JSONB{}
	if err := json.Unmarshal(data, &payload); err != nil {
		return models.JSONB{}
	}
	return payload
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
