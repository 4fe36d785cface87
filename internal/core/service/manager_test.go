package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yndnr/pairhub-go/internal/broadcast"
	"github.com/yndnr/pairhub-go/internal/core/domain"
	"github.com/yndnr/pairhub-go/internal/core/pairing"
	"github.com/yndnr/pairhub-go/internal/core/session"
	"github.com/yndnr/pairhub-go/internal/credential"
	"github.com/yndnr/pairhub-go/internal/protocol/loopback"
	"github.com/yndnr/pairhub-go/internal/protocol/protocoltest"
	"github.com/yndnr/pairhub-go/internal/storage"
	"github.com/yndnr/pairhub-go/internal/telemetry/metric"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

type env struct {
	store   *credential.MemoryStore
	factory *protocoltest.Factory
	hub     *broadcast.Hub
	metrics *metric.Registry
	manager *SessionManager
}

func testManagerConfig() ManagerConfig {
	return ManagerConfig{
		Session: session.Config{
			ReadyTimeout:        time.Second,
			ReadyPollInterval:   tick,
			TeardownStepTimeout: 50 * time.Millisecond,
			StoreTimeout:        time.Second,
		},
		PairingWaitTimeout:  200 * time.Millisecond,
		PairingPollInterval: tick,
		CloseAllTimeout:     time.Second,
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newEnv(t *testing.T, cfg ManagerConfig) *env {
	t.Helper()
	e := &env{
		store:   credential.NewMemoryStore(),
		factory: protocoltest.NewFactory(),
		hub:     broadcast.NewHub(),
		metrics: metric.NewRegistry(),
	}
	e.factory.OnStart(protocoltest.ConnectWithCredential("CODE"))
	e.manager = NewSessionManager(cfg, session.Deps{
		Factory:  e.factory.New,
		Store:    e.store,
		Sink:     e.hub,
		Renderer: pairing.RawRenderer{},
		Metrics:  e.metrics,
		Logger:   discardLogger(),
	})
	t.Cleanup(func() {
		_ = e.manager.Shutdown(context.Background())
	})
	return e
}

func (e *env) saveCredential(t *testing.T, tenantID string) {
	t.Helper()
	require.NoError(t, e.store.Save(context.Background(), tenantID, []byte("cred-"+tenantID)))
}

func (e *env) eventually(t *testing.T, tenantID string, want domain.Status) {
	t.Helper()
	require.Eventually(t, func() bool {
		return e.manager.Status(tenantID) == want
	}, waitFor, tick, "status of %s = %s, want %s", tenantID, e.manager.Status(tenantID), want)
}

func (e *env) hasCredential(tenantID string) bool {
	ok, _ := e.store.Exists(context.Background(), tenantID)
	return ok
}

func (e *env) connect(t *testing.T, tenantID string) {
	t.Helper()
	e.saveCredential(t, tenantID)
	_, err := e.manager.Login(context.Background(), tenantID, LoginOptions{WaitForReady: true})
	require.NoError(t, err)
}

func TestStatus_UnknownTenant(t *testing.T) {
	e := newEnv(t, testManagerConfig())

	require.Equal(t, domain.StatusNotInitialized, e.manager.Status("never-seen"))
	_, ok := e.manager.PairingCode("never-seen")
	require.False(t, ok)
	_, err := e.manager.Info("never-seen")
	require.ErrorIs(t, err, domain.ErrTenantNotFound)
}

func TestLogin_InvalidTenantID(t *testing.T) {
	e := newEnv(t, testManagerConfig())

	_, err := e.manager.Login(context.Background(), "", LoginOptions{})
	require.ErrorIs(t, err, domain.ErrMissingArgument)
	_, err = e.manager.Login(context.Background(), "bad/id", LoginOptions{})
	require.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestLogin_WithCredentialConnects(t *testing.T) {
	e := newEnv(t, testManagerConfig())
	e.saveCredential(t, "shop-1")

	info, err := e.manager.Login(context.Background(), "shop-1", LoginOptions{WaitForReady: true})
	require.NoError(t, err)
	require.Equal(t, domain.StatusConnected, info.Status)
	require.Nil(t, info.PairingCode)

	_, ok := e.manager.PairingCode("shop-1")
	require.False(t, ok)
}

func TestLogin_Idempotent(t *testing.T) {
	e := newEnv(t, testManagerConfig())
	e.connect(t, "shop-1")
	first := e.factory.Last("shop-1")

	info, err := e.manager.Login(context.Background(), "shop-1", LoginOptions{WaitForReady: true})
	require.NoError(t, err)
	require.Equal(t, domain.StatusConnected, info.Status)
	require.Equal(t, 1, e.factory.Count("shop-1"), "connected login must reuse the handle")
	require.Same(t, first, e.factory.Last("shop-1"))
	require.False(t, first.Destroyed())
}

func TestLogin_ReplacesPendingSession(t *testing.T) {
	e := newEnv(t, testManagerConfig())

	_, err := e.manager.Login(context.Background(), "t1", LoginOptions{})
	require.NoError(t, err)
	e.eventually(t, "t1", domain.StatusAwaitingPairing)
	first := e.factory.Last("t1")

	_, err = e.manager.Login(context.Background(), "t1", LoginOptions{})
	require.NoError(t, err)
	require.Equal(t, 2, e.factory.Count("t1"))
	require.True(t, first.Destroyed(), "old handle is destroyed before the new one is created")
	e.eventually(t, "t1", domain.StatusAwaitingPairing)
}

func TestLogin_NewTenantPairing(t *testing.T) {
	e := newEnv(t, testManagerConfig())
	sub := e.hub.Subscribe("new-tenant", 32)

	info, err := e.manager.Login(context.Background(), "new-tenant", LoginOptions{})
	require.NoError(t, err)
	require.NotEqual(t, domain.StatusConnected, info.Status)

	code, status, err := e.manager.WaitPairingCode(context.Background(), "new-tenant", 0)
	require.NoError(t, err)
	require.Equal(t, domain.StatusAwaitingPairing, status)
	require.Equal(t, "CODE", code.Raw)

	c := e.factory.Last("new-tenant")
	c.Connecting()
	c.Rotate([]byte("paired"))
	c.Ready()
	e.eventually(t, "new-tenant", domain.StatusConnected)

	_, ok := e.manager.PairingCode("new-tenant")
	require.False(t, ok)
	rec, err := e.store.Load(context.Background(), "new-tenant")
	require.NoError(t, err)
	require.Equal(t, []byte("paired"), rec.Blob)

	var types []domain.EventType
	for len(sub.C()) > 0 {
		types = append(types, (<-sub.C()).Type)
	}
	require.Contains(t, types, domain.EventTypePairingCode)
}

func TestLogin_ReadinessTimeoutRemovesSession(t *testing.T) {
	e := newEnv(t, testManagerConfig())
	e.factory.OnStart(nil)

	start := time.Now()
	_, err := e.manager.Login(context.Background(), "stuck", LoginOptions{WaitForReady: true, Timeout: 50 * time.Millisecond})
	require.ErrorIs(t, err, domain.ErrTimeout)
	require.Less(t, time.Since(start), time.Second)

	require.Equal(t, domain.StatusNotInitialized, e.manager.Status("stuck"))
	require.True(t, e.factory.Last("stuck").Destroyed())

	// The tenant ID is immediately available again.
	e.factory.OnStart(protocoltest.ConnectWithCredential("CODE"))
	_, err = e.manager.Login(context.Background(), "stuck", LoginOptions{})
	require.NoError(t, err)
}

func TestLogin_CallerGivesUpKeepsSession(t *testing.T) {
	e := newEnv(t, testManagerConfig())
	e.factory.OnStart(nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := e.manager.Login(ctx, "slow", LoginOptions{WaitForReady: true})
	require.ErrorIs(t, err, domain.ErrNotReady)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	require.Equal(t, domain.StatusInitializing, e.manager.Status("slow"))
	c := e.factory.Last("slow")
	require.False(t, c.Destroyed())

	c.Ready()
	e.eventually(t, "slow", domain.StatusConnected)
}

func TestLogin_UnreadableCredentialPairsAgain(t *testing.T) {
	ctx := context.Background()
	engine, err := storage.NewBadgerEngine(storage.InMemoryKVConfig(), discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { engine.Close() })
	require.NoError(t, engine.Set(ctx, []byte(credential.KeyPrefix+"shop-1"), []byte{0xff, 0x00, 0x13}))
	store := credential.NewKVStore(engine)

	factory := protocoltest.NewFactory()
	factory.OnStart(protocoltest.ConnectWithCredential("CODE"))
	m := NewSessionManager(testManagerConfig(), session.Deps{
		Factory:  factory.New,
		Store:    store,
		Renderer: pairing.RawRenderer{},
		Logger:   discardLogger(),
	})
	t.Cleanup(func() { _ = m.Shutdown(ctx) })

	for i := 0; i < 2; i++ {
		_, err := m.Login(ctx, "shop-1", LoginOptions{})
		require.NoError(t, err)
		require.Eventually(t, func() bool {
			return m.Status("shop-1") == domain.StatusAwaitingPairing
		}, waitFor, tick)
		ok, err := store.Exists(ctx, "shop-1")
		require.NoError(t, err)
		require.False(t, ok)
	}
}

func TestLogin_FatalDisconnect(t *testing.T) {
	e := newEnv(t, testManagerConfig())
	e.saveCredential(t, "t1")
	e.factory.OnStart(func(c *protocoltest.Client) {
		c.Connecting()
		c.Disconnect(domain.ReasonBadSession)
	})

	_, err := e.manager.Login(context.Background(), "t1", LoginOptions{WaitForReady: true})
	require.ErrorIs(t, err, domain.ErrAuthFailed)
	require.Equal(t, domain.StatusAuthFailed, e.manager.Status("t1"))
	require.Eventually(t, func() bool { return !e.hasCredential("t1") }, waitFor, tick)
	require.Equal(t, 1, e.factory.Count("t1"))
}

func TestTransientDisconnect_SingleReconnect(t *testing.T) {
	e := newEnv(t, testManagerConfig())
	e.connect(t, "t1")

	e.factory.Last("t1").Disconnect(domain.ReasonConnectionClosed)
	require.Eventually(t, func() bool { return e.factory.Count("t1") == 2 }, waitFor, tick)
	e.eventually(t, "t1", domain.StatusConnected)

	// A second reconnect cycle is allowed once the first one succeeded, but
	// a failing reconnect ends in ERROR without a third handle.
	e.factory.OnStart(func(c *protocoltest.Client) { c.Disconnect(domain.ReasonConnectionLost) })
	e.factory.Last("t1").Disconnect(domain.ReasonConnectionClosed)
	e.eventually(t, "t1", domain.StatusError)
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, 3, e.factory.Count("t1"))
	require.True(t, e.hasCredential("t1"))
}

func TestSend(t *testing.T) {
	e := newEnv(t, testManagerConfig())
	ctx := context.Background()

	_, err := e.manager.SendText(ctx, "ghost", "15550100", "hi")
	require.ErrorIs(t, err, domain.ErrTenantNotFound)
	_, err = e.manager.IsRegistered(ctx, "ghost", "15550100")
	require.ErrorIs(t, err, domain.ErrTenantNotFound)

	_, err = e.manager.Login(ctx, "pending", LoginOptions{})
	require.NoError(t, err)
	e.eventually(t, "pending", domain.StatusAwaitingPairing)
	_, err = e.manager.SendText(ctx, "pending", "15550100", "hi")
	require.ErrorIs(t, err, domain.ErrNotReady)

	e.connect(t, "shop-1")
	receipt, err := e.manager.SendText(ctx, "shop-1", "+1 (555) 0100", "hi")
	require.NoError(t, err)
	require.Equal(t, "15550100@c.us", receipt.To)

	_, err = e.manager.SendText(ctx, "shop-1", "15550100", "   ")
	require.ErrorIs(t, err, domain.ErrMissingArgument)
	_, err = e.manager.SendText(ctx, "shop-1", "not a number", "hi")
	require.ErrorIs(t, err, domain.ErrInvalidArgument)

	_, err = e.manager.SendFile(ctx, "shop-1", "group@g.us", domain.File{Data: []byte("%PDF"), Filename: "invoice.pdf"})
	require.NoError(t, err)
	_, err = e.manager.SendFile(ctx, "shop-1", "group@g.us", domain.File{Filename: "empty.pdf"})
	require.ErrorIs(t, err, domain.ErrMissingArgument)

	ok, err := e.manager.IsRegistered(ctx, "shop-1", "15550100")
	require.NoError(t, err)
	require.True(t, ok)

	state, err := e.manager.RawState(ctx, "shop-1")
	require.NoError(t, err)
	require.Equal(t, "CONNECTED", state)
}

func TestLogout(t *testing.T) {
	e := newEnv(t, testManagerConfig())
	ctx := context.Background()
	e.connect(t, "t1")
	c := e.factory.Last("t1")

	require.NoError(t, e.manager.Logout(ctx, "t1"))
	require.Equal(t, domain.StatusNotInitialized, e.manager.Status("t1"))
	require.Equal(t, 1, c.LogoutCalls())
	require.False(t, e.hasCredential("t1"))

	require.ErrorIs(t, e.manager.Logout(ctx, "t1"), domain.ErrTenantNotFound)

	e.saveCredential(t, "dormant")
	require.NoError(t, e.manager.Logout(ctx, "dormant"))
	require.False(t, e.hasCredential("dormant"))
}

func TestClose(t *testing.T) {
	e := newEnv(t, testManagerConfig())
	ctx := context.Background()
	e.connect(t, "t1")

	require.NoError(t, e.manager.Close(ctx, "t1"))
	require.Equal(t, domain.StatusNotInitialized, e.manager.Status("t1"))
	require.Equal(t, 1, e.factory.Last("t1").LogoutCalls())
	require.True(t, e.factory.Last("t1").Destroyed())
	require.False(t, e.hasCredential("t1"), "logout revokes the credential")

	require.ErrorIs(t, e.manager.Close(ctx, "t1"), domain.ErrTenantNotFound)

	// A pending session has nothing to log out of and keeps its record.
	e.factory.OnStart(nil)
	e.saveCredential(t, "t2")
	_, err := e.manager.Login(ctx, "t2", LoginOptions{})
	require.NoError(t, err)
	require.NoError(t, e.manager.Close(ctx, "t2"))
	require.True(t, e.hasCredential("t2"))
}

func TestClose_ThenLoginPairsAgain(t *testing.T) {
	network := loopback.NewNetwork(loopback.Config{
		AutoPairAfter: 5 * time.Millisecond,
		ConnectDelay:  time.Millisecond,
		Logger:        discardLogger(),
	})
	store := credential.NewMemoryStore()
	m := NewSessionManager(testManagerConfig(), session.Deps{
		Factory:  network.Factory(),
		Store:    store,
		Renderer: pairing.RawRenderer{},
		Logger:   discardLogger(),
	})
	ctx := context.Background()
	t.Cleanup(func() { _ = m.Shutdown(ctx) })

	info, err := m.Login(ctx, "shop-1", LoginOptions{WaitForReady: true})
	require.NoError(t, err)
	require.Equal(t, domain.StatusConnected, info.Status)

	require.NoError(t, m.Close(ctx, "shop-1"))
	ok, err := store.Exists(ctx, "shop-1")
	require.NoError(t, err)
	require.False(t, ok)

	info, err = m.Login(ctx, "shop-1", LoginOptions{WaitForReady: true})
	require.NoError(t, err)
	require.Equal(t, domain.StatusConnected, info.Status)
}

func TestCloseAll_DropsRevokedCredentials(t *testing.T) {
	e := newEnv(t, testManagerConfig())
	ctx := context.Background()
	e.connect(t, "t1")
	e.connect(t, "t2")

	require.NoError(t, e.manager.CloseAll(ctx))
	require.False(t, e.hasCredential("t1"))
	require.False(t, e.hasCredential("t2"))
	require.Zero(t, e.manager.Restore(ctx), "nothing left to restore")
}

func TestCloseAll_OneTenantHangs(t *testing.T) {
	cfg := testManagerConfig()
	cfg.Session.TeardownStepTimeout = 10 * time.Second
	cfg.CloseAllTimeout = 100 * time.Millisecond
	e := newEnv(t, cfg)

	ids := []string{"a", "b", "c", "d", "hang"}
	for _, id := range ids {
		e.connect(t, id)
	}
	hung := e.factory.Last("hang")
	hung.HangLogout()
	hung.HangDestroy()
	t.Cleanup(hung.Release)

	start := time.Now()
	err := e.manager.CloseAll(context.Background())
	require.ErrorIs(t, err, domain.ErrTimeout)
	require.Contains(t, err.Error(), "hang")
	require.Less(t, time.Since(start), time.Second)

	require.Zero(t, e.manager.Count())
	for _, id := range ids[:4] {
		require.True(t, e.factory.Last(id).Destroyed(), "tenant %s should be torn down", id)
		require.Equal(t, domain.StatusNotInitialized, e.manager.Status(id))
	}

	// CloseAll does not disable the manager.
	_, err = e.manager.Login(context.Background(), "a", LoginOptions{})
	require.NoError(t, err)
}

func TestShutdown_KeepsCredentials(t *testing.T) {
	e := newEnv(t, testManagerConfig())
	ctx := context.Background()
	e.connect(t, "t1")
	e.connect(t, "t2")

	require.NoError(t, e.manager.Shutdown(ctx))
	require.Zero(t, e.manager.Count())
	for _, id := range []string{"t1", "t2"} {
		c := e.factory.Last(id)
		require.Zero(t, c.LogoutCalls())
		require.True(t, c.Destroyed())
		require.True(t, e.hasCredential(id))
	}

	_, err := e.manager.Login(ctx, "t3", LoginOptions{})
	require.ErrorIs(t, err, domain.ErrServiceUnavailable)
}

func TestRestore_Shop1(t *testing.T) {
	e := newEnv(t, testManagerConfig())
	e.saveCredential(t, "shop-1")
	sub := e.hub.Subscribe("shop-1", 64)

	require.Equal(t, 1, e.manager.Restore(context.Background()))
	e.manager.WaitRestored()
	require.Equal(t, domain.StatusConnected, e.manager.Status("shop-1"))

	for len(sub.C()) > 0 {
		ev := <-sub.C()
		require.NotEqual(t, domain.EventTypePairingCode, ev.Type)
		require.NotEqual(t, domain.StatusAwaitingPairing, ev.Status)
	}
}

func TestRestore_IsolatesFailures(t *testing.T) {
	e := newEnv(t, testManagerConfig())
	for i := 0; i < 3; i++ {
		e.saveCredential(t, fmt.Sprintf("ok-%d", i))
	}
	e.saveCredential(t, "revoked")
	e.factory.OnStart(func(c *protocoltest.Client) {
		if c.TenantID == "revoked" {
			c.Disconnect(domain.ReasonLoggedOut)
			return
		}
		c.Ready()
	})

	require.Equal(t, 4, e.manager.Restore(context.Background()))
	e.manager.WaitRestored()

	for i := 0; i < 3; i++ {
		require.Equal(t, domain.StatusConnected, e.manager.Status(fmt.Sprintf("ok-%d", i)))
	}
	require.Equal(t, domain.StatusAuthFailed, e.manager.Status("revoked"))
	require.Eventually(t, func() bool { return !e.hasCredential("revoked") }, waitFor, tick)
}

func TestRestore_StoreUnavailable(t *testing.T) {
	e := newEnv(t, testManagerConfig())
	e.saveCredential(t, "shop-1")
	e.store.SetUnavailable(errors.New("badger closed"))

	require.Zero(t, e.manager.Restore(context.Background()))
	require.Zero(t, e.manager.Count())
}

func TestWaitPairingCode(t *testing.T) {
	e := newEnv(t, testManagerConfig())
	ctx := context.Background()

	_, _, err := e.manager.WaitPairingCode(ctx, "ghost", 0)
	require.ErrorIs(t, err, domain.ErrTenantNotFound)

	e.connect(t, "t1")
	code, status, err := e.manager.WaitPairingCode(ctx, "t1", 0)
	require.NoError(t, err)
	require.Nil(t, code)
	require.Equal(t, domain.StatusConnected, status)

	e.factory.OnStart(nil)
	_, err = e.manager.Login(ctx, "slow", LoginOptions{})
	require.NoError(t, err)
	code, status, err = e.manager.WaitPairingCode(ctx, "slow", 30*time.Millisecond)
	require.NoError(t, err)
	require.Nil(t, code)
	require.Equal(t, domain.StatusInitializing, status)
}

func TestListAndCountByStatus(t *testing.T) {
	e := newEnv(t, testManagerConfig())
	e.connect(t, "b")
	e.connect(t, "a")
	_, err := e.manager.Login(context.Background(), "c", LoginOptions{})
	require.NoError(t, err)
	e.eventually(t, "c", domain.StatusAwaitingPairing)

	infos := e.manager.List()
	require.Len(t, infos, 3)
	require.Equal(t, "a", infos[0].TenantID)
	require.Equal(t, "c", infos[2].TenantID)

	counts := e.manager.CountByStatus()
	require.Equal(t, 2, counts[domain.StatusConnected])
	require.Equal(t, 1, counts[domain.StatusAwaitingPairing])

	require.NoError(t, e.metrics.RegisterCollector(e.manager))
}

func TestLoopback_EndToEnd(t *testing.T) {
	network := loopback.NewNetwork(loopback.Config{ConnectDelay: time.Millisecond, Logger: discardLogger()})
	store := credential.NewMemoryStore()
	deps := session.Deps{
		Factory:  network.Factory(),
		Store:    store,
		Renderer: pairing.NewQRRenderer(),
		Logger:   discardLogger(),
	}
	m := NewSessionManager(testManagerConfig(), deps)
	ctx := context.Background()

	_, err := m.Login(ctx, "new-tenant", LoginOptions{})
	require.NoError(t, err)
	code, _, err := m.WaitPairingCode(ctx, "new-tenant", time.Second)
	require.NoError(t, err)
	require.NotNil(t, code)
	require.Contains(t, code.Image, pairing.DataURLPrefix)

	require.NoError(t, network.Approve("new-tenant"))
	require.Eventually(t, func() bool {
		return m.Status("new-tenant") == domain.StatusConnected
	}, waitFor, tick)

	_, err = m.SendText(ctx, "new-tenant", "15550100", "hello")
	require.NoError(t, err)
	require.Len(t, network.Outbox(), 1)

	// Restart: a fresh manager restores from the stored credential.
	require.NoError(t, m.Shutdown(ctx))
	m2 := NewSessionManager(testManagerConfig(), deps)
	t.Cleanup(func() { _ = m2.Shutdown(ctx) })
	require.Equal(t, 1, m2.Restore(ctx))
	m2.WaitRestored()
	require.Equal(t, domain.StatusConnected, m2.Status("new-tenant"))

	// A fatal disconnect deletes the credential.
	require.NoError(t, network.Disconnect("new-tenant", domain.ReasonLoggedOut))
	require.Eventually(t, func() bool {
		ok, _ := store.Exists(ctx, "new-tenant")
		return !ok && m2.Status("new-tenant") == domain.StatusAuthFailed
	}, waitFor, tick)
}
