//go:build integration

package queue_test

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"testing"
	"time"

	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tedkimdev/nft-staking/internal/config"
	"github.com/tedkimdev/nft-staking/internal/queue"
	"github.com/tedkimdev/nft-staking/pkg"
	"go.uber.org/zap"
)

const (
	rabbitUser     = "user"
	rabbitPassword = "password"
	rabbitVersion  = "3.13-alpine"
)

var queueCfg *config.QueueConfig

func TestMain(m *testing.M) {
	pool, err := dockertest.NewPool("")
	if err != nil {
		log.Fatalf("failed to connect to docker: %v", err)
	}

	suffix := pkg.ResourceSuffix(3)
	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Name:       "rabbitmq-integration-tests-" + suffix,
		Repository: "rabbitmq",
		Tag:        rabbitVersion,
		Env: []string{
			"RABBITMQ_DEFAULT_USER=" + rabbitUser,
			"RABBITMQ_DEFAULT_PASS=" + rabbitPassword,
		},
	}, func(config *docker.HostConfig) {
		config.AutoRemove = true
		config.RestartPolicy = docker.RestartPolicy{
			Name: "no",
		}
	})
	if err != nil {
		log.Fatalf("failed to start rabbitmq: %v", err)
	}

	queueCfg = &config.QueueConfig{
		QueueUser:     rabbitUser,
		QueuePassword: rabbitPassword,
		Url:           fmt.Sprintf("localhost:%s", resource.GetPort("5672/tcp")),
	}
	if err := queueCfg.Validate(); err != nil {
		log.Fatalf("invalid queue config: %v", err)
	}

	err = pool.Retry(func() error {
		conn, err := amqp.Dial(fmt.Sprintf("amqp://%s:%s@%s", rabbitUser, rabbitPassword, queueCfg.Url))
		if err != nil {
			return err
		}
		return conn.Close()
	})
	if err != nil {
		_ = pool.Purge(resource)
		log.Fatalf("rabbitmq did not become ready: %v", err)
	}

	code := m.Run()
	if err := pool.Purge(resource); err != nil {
		log.Fatalf("failed to purge resource: %v", err)
	}
	os.Exit(code)
}

func TestQueueManager_PushStakeEvent(t *testing.T) {
	qm, err := queue.NewQueueManager(queueCfg, zap.NewNop())
	require.NoError(t, err)
	defer qm.Shutdown()

	ev := queue.NewUnstakedEvent("owner", "asset", 45, time.Now().Unix())
	require.NoError(t, qm.PushStakeEvent(context.Background(), &ev))

	conn, err := amqp.Dial(fmt.Sprintf("amqp://%s:%s@%s", rabbitUser, rabbitPassword, queueCfg.Url))
	require.NoError(t, err)
	defer conn.Close()
	ch, err := conn.Channel()
	require.NoError(t, err)

	msg, ok, err := ch.Get(queueCfg.QueueName, true)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, string(queue.UnstakedEventType), msg.Type)

	var received queue.StakeEvent
	require.NoError(t, json.Unmarshal(msg.Body, &received))
	assert.Equal(t, ev, received)
}
