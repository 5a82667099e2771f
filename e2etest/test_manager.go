//go:build e2e

package e2etest

import (
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/require"
	"github.com/tedkimdev/nft-staking/e2etest/container"
	"github.com/tedkimdev/nft-staking/internal/api"
	"github.com/tedkimdev/nft-staking/internal/clients/apiclient"
	"github.com/tedkimdev/nft-staking/internal/config"
	"github.com/tedkimdev/nft-staking/internal/db"
	"github.com/tedkimdev/nft-staking/internal/db/model"
	"github.com/tedkimdev/nft-staking/internal/ledger"
	"github.com/tedkimdev/nft-staking/internal/program"
	"github.com/tedkimdev/nft-staking/internal/queue"
	"github.com/tedkimdev/nft-staking/internal/staking"
	"github.com/tedkimdev/nft-staking/pkg"
	"go.uber.org/zap/zaptest"
)

const (
	eventuallyWaitTimeOut = 20 * time.Second
	eventuallyPollTime    = 200 * time.Millisecond
	startTime             = int64(1_700_000_000)
)

// TestManager runs the whole server stack in process against real mongo and
// rabbitmq containers. The ledger clock is manual so tests control time.
type TestManager struct {
	Config    *config.Config
	Clock     *ledger.ManualClock
	DbClient  *db.Database
	Service   *staking.Service
	ApiClient *apiclient.Client

	manager   *container.Manager
	server    *httptest.Server
	publisher *queue.QueueManager
	consumer  *amqp.Connection
	events    <-chan amqp.Delivery
}

func StartManager(t *testing.T) *TestManager {
	ctx := t.Context()

	manager, err := container.NewManager()
	require.NoError(t, err)
	tm := &TestManager{manager: manager}
	t.Cleanup(func() { tm.Stop(t) })

	mongoAddress, err := manager.RunMongo()
	require.NoError(t, err)
	rabbitURL, err := manager.RunRabbitMQ()
	require.NoError(t, err)

	tm.Config = DefaultStakingConfig(mongoAddress, rabbitURL)

	require.NoError(t, model.Setup(ctx, &tm.Config.Db))
	tm.DbClient, err = db.New(ctx, tm.Config.Db)
	require.NoError(t, err)

	tm.publisher, err = queue.NewQueueManager(tm.Config.Queue, zaptest.NewLogger(t))
	require.NoError(t, err)

	programID, err := program.ResolveProgramID(tm.Config.Program.Cluster, tm.Config.Program.ProgramID)
	require.NoError(t, err)

	tm.Clock = ledger.NewManualClock(startTime)
	tm.Service, err = staking.NewService(db.NewDbWithMetrics(tm.DbClient), tm.Clock, programID, tm.publisher)
	require.NoError(t, err)

	server := api.New(&tm.Config.Server, api.NewHandler(tm.Service, tm.DbClient, true))
	tm.server = httptest.NewServer(server.Handler())

	clientCfg := &config.ClientConfig{URL: tm.server.URL}
	require.NoError(t, clientCfg.Validate())
	tm.ApiClient = apiclient.NewClient(clientCfg)

	tm.consumer, tm.events = consumeEvents(t, tm.Config.Queue)
	return tm
}

func (tm *TestManager) Stop(t *testing.T) {
	if tm.server != nil {
		tm.server.Close()
	}
	if tm.publisher != nil {
		tm.publisher.Shutdown()
	}
	if tm.consumer != nil {
		_ = tm.consumer.Close()
	}
	if tm.DbClient != nil {
		_ = tm.DbClient.Close(t.Context())
	}
	require.NoError(t, tm.manager.ClearResources())
}

// NewClient returns a program client signing with a fresh key
func (tm *TestManager) NewClient(t *testing.T) *program.Client {
	return program.NewClient(tm.ApiClient, tm.Service.ProgramID(), newKey(t), program.WithRetry(3, 50*time.Millisecond))
}

// NextEvent waits for the next published stake event
func (tm *TestManager) NextEvent(t *testing.T) queue.StakeEvent {
	select {
	case msg, ok := <-tm.events:
		require.True(t, ok, "event channel closed")
		var ev queue.StakeEvent
		require.NoError(t, json.Unmarshal(msg.Body, &ev))
		return ev
	case <-time.After(eventuallyWaitTimeOut):
		t.Fatal("timed out waiting for stake event")
	}
	return queue.StakeEvent{}
}

func DefaultStakingConfig(mongoAddress, rabbitURL string) *config.Config {
	cfg := &config.Config{
		Db: config.DbConfig{
			Backend: config.DbBackendMongo,
			DbName:  "nft-staking-e2e-" + pkg.ResourceSuffix(6),
			Address: mongoAddress,
		},
		Program: config.ProgramConfig{
			Cluster: program.ClusterLocalnet,
		},
		Server: config.ServerConfig{
			Host:         "127.0.0.1",
			WriteTimeout: 10 * time.Second,
			ReadTimeout:  10 * time.Second,
			IdleTimeout:  10 * time.Second,
		},
		Queue: &config.QueueConfig{
			QueueUser:     container.RabbitUser,
			QueuePassword: container.RabbitPassword,
			Url:           rabbitURL,
		},
	}
	// fills queue defaults, db credentials are intentionally absent
	_ = cfg.Queue.Validate()
	return cfg
}

func consumeEvents(t *testing.T, cfg *config.QueueConfig) (*amqp.Connection, <-chan amqp.Delivery) {
	conn, err := amqp.Dial(fmt.Sprintf("amqp://%s:%s@%s", cfg.QueueUser, cfg.QueuePassword, cfg.Url))
	require.NoError(t, err)

	ch, err := conn.Channel()
	require.NoError(t, err)

	// same declaration as the publisher so whichever side runs first creates it
	_, err = ch.QueueDeclare(cfg.QueueName, true, false, false, false, nil)
	require.NoError(t, err)

	deliveries, err := ch.Consume(cfg.QueueName, "e2e", true, false, false, false, nil)
	require.NoError(t, err)
	return conn, deliveries
}
