package wa

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/types"

	"github.com/felipe/zapgateway/internal/db/models"
	"github.com/felipe/zapgateway/internal/errs"
)

// fakeClient implementa Client para os testes do registro
type fakeClient struct {
	connected bool
}

func (f *fakeClient) Connect() error                   { f.connected = true; return nil }
func (f *fakeClient) Disconnect()                      { f.connected = false }
func (f *fakeClient) Logout(ctx context.Context) error { f.connected = false; return nil }
func (f *fakeClient) IsConnected() bool                { return f.connected }
func (f *fakeClient) IsLoggedIn() bool                 { return f.connected }
func (f *fakeClient) JID() string                      { return "" }
func (f *fakeClient) PushName() string                 { return "" }

func (f *fakeClient) SendText(ctx context.Context, to types.JID, text string) (*SendResult, error) {
	return &SendResult{MessageID: "fake"}, nil
}

func (f *fakeClient) AuthSnapshot() (*models.AuthState, error) {
	return &models.AuthState{JID: "fake@s.whatsapp.net"}, nil
}

func (f *fakeClient) JoinedGroups(ctx context.Context) ([]*types.GroupInfo, error) {
	return nil, nil
}

func (f *fakeClient) CreateGroup(ctx context.Context, name string, participants []types.JID) (*types.GroupInfo, error) {
	return &types.GroupInfo{}, nil
}

func (f *fakeClient) UpdateParticipants(ctx context.Context, group types.JID, participants []types.JID, action whatsmeow.ParticipantChange) error {
	return nil
}

func (f *fakeClient) LeaveGroup(ctx context.Context, group types.JID) error { return nil }

func (f *fakeClient) GroupInfo(ctx context.Context, group types.JID) (*types.GroupInfo, error) {
	return &types.GroupInfo{}, nil
}

func (f *fakeClient) SetGroupAnnounce(ctx context.Context, group types.JID, announce bool) error {
	return nil
}

func (f *fakeClient) SetGroupLocked(ctx context.Context, group types.JID, locked bool) error {
	return nil
}

func TestRegistryAddAndGet(t *testing.T) {
	registry := NewRegistry()
	client := &fakeClient{}

	require.NoError(t, registry.Add("s1", "org1", client))

	got, ok := registry.Get("s1")
	assert.True(t, ok)
	assert.Same(t, client, got.(*fakeClient))

	_, ok = registry.Get("missing")
	assert.False(t, ok)
}

func TestRegistryRejectsDuplicate(t *testing.T) {
	registry := NewRegistry()

	require.NoError(t, registry.Add("s1", "org1", &fakeClient{}))

	err := registry.Add("s1", "org1", &fakeClient{})
	assert.ErrorIs(t, err, errs.ErrDuplicate)
	assert.Equal(t, 1, registry.Count())
}

func TestRegistryRemove(t *testing.T) {
	registry := NewRegistry()
	client := &fakeClient{}

	require.NoError(t, registry.Add("s1", "org1", client))

	removed, ok := registry.Remove("s1", "org1")
	assert.True(t, ok)
	assert.Same(t, client, removed.(*fakeClient))
	assert.Equal(t, 0, registry.Count())
	assert.Equal(t, 0, registry.CountByOrg("org1"))

	_, ok = registry.Remove("s1", "org1")
	assert.False(t, ok)
}

func TestRegistryCountByOrg(t *testing.T) {
	registry := NewRegistry()

	require.NoError(t, registry.Add("s1", "org1", &fakeClient{}))
	require.NoError(t, registry.Add("s2", "org1", &fakeClient{}))
	require.NoError(t, registry.Add("s3", "org2", &fakeClient{}))

	assert.Equal(t, 2, registry.CountByOrg("org1"))
	assert.Equal(t, 1, registry.CountByOrg("org2"))
	assert.Equal(t, 0, registry.CountByOrg("org3"))
	assert.Equal(t, 3, registry.Count())
	assert.Len(t, registry.List(), 3)
}
