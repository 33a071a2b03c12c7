package wa

import (
	"fmt"
	"sync"

	"github.com/felipe/zapgateway/internal/errs"
)

// Registry guarda os clientes ativos por session_id. Todo acesso ao
// mapa passa por aqui; o supervisor nunca segura o lock durante I/O.
type Registry struct {
	mu      sync.RWMutex
	clients map[string]Client
	byOrg   map[string]map[string]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		clients: make(map[string]Client),
		byOrg:   make(map[string]map[string]struct{}),
	}
}

// Add registra o cliente; falha com ErrDuplicate se o session_id já
// está ativo
func (r *Registry) Add(sessionID, orgID string, client Client) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.clients[sessionID]; exists {
		return fmt.Errorf("session %s: %w", sessionID, errs.ErrDuplicate)
	}

	r.clients[sessionID] = client

	if r.byOrg[orgID] == nil {
		r.byOrg[orgID] = make(map[string]struct{})
	}
	r.byOrg[orgID][sessionID] = struct{}{}

	return nil
}

// Get retorna o cliente ativo da sessão
func (r *Registry) Get(sessionID string) (Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	client, ok := r.clients[sessionID]
	return client, ok
}

// Remove tira a sessão do registro e retorna o cliente removido
func (r *Registry) Remove(sessionID, orgID string) (Client, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	client, ok := r.clients[sessionID]
	if !ok {
		return nil, false
	}

	delete(r.clients, sessionID)
	if sessions, exists := r.byOrg[orgID]; exists {
		delete(sessions, sessionID)
		if len(sessions) == 0 {
			delete(r.byOrg, orgID)
		}
	}

	return client, true
}

// List retorna os session_ids ativos
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.clients))
	for sessionID := range r.clients {
		ids = append(ids, sessionID)
	}
	return ids
}

// CountByOrg retorna quantas sessões da organização estão ativas
func (r *Registry) CountByOrg(orgID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byOrg[orgID])
}

// Count retorna o total de sessões ativas no processo
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}
