package container

import (
	"context"
	"fmt"
	"time"

	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/tedkimdev/nft-staking/pkg"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	replicaSet     = "rs0"
	RabbitUser     = "user"
	RabbitPassword = "password"
)

// Manager is a wrapper around all docker instances, and the Docker API.
type Manager struct {
	cfg       ImageConfig
	pool      *dockertest.Pool
	resources map[string]*dockertest.Resource
}

// NewManager creates a new Manager instance and initializes
// all Docker specific utilities. Returns an error if initialization fails.
func NewManager() (*Manager, error) {
	pool, err := dockertest.NewPool("")
	if err != nil {
		return nil, err
	}
	return &Manager{
		cfg:       NewImageConfig(),
		pool:      pool,
		resources: make(map[string]*dockertest.Resource),
	}, nil
}

func (m *Manager) run(name string, opts *dockertest.RunOptions) (*dockertest.Resource, error) {
	// container names are unique, a leftover container must not collide
	opts.Name = fmt.Sprintf("%s-%s", name, pkg.ResourceSuffix(4))
	resource, err := m.pool.RunWithOptions(opts, func(config *docker.HostConfig) {
		config.AutoRemove = true
		config.RestartPolicy = docker.RestartPolicy{
			Name: "no",
		}
	})
	if err != nil {
		return nil, err
	}
	m.resources[name] = resource
	return resource, nil
}

// RunMongo starts a single node replica set and returns its address
func (m *Manager) RunMongo() (string, error) {
	resource, err := m.run("nft-staking-e2e-mongo", &dockertest.RunOptions{
		Repository: m.cfg.MongoRepository,
		Tag:        m.cfg.MongoVersion,
		Cmd:        []string{"--replSet", replicaSet, "--bind_ip_all"},
	})
	if err != nil {
		return "", err
	}

	address := fmt.Sprintf("mongodb://localhost:%s/?directConnection=true", resource.GetPort("27017/tcp"))
	if err := m.pool.Retry(func() error { return initiateReplicaSet(address) }); err != nil {
		return "", fmt.Errorf("mongo replica set did not become ready: %w", err)
	}
	return address, nil
}

// RunRabbitMQ starts a broker and returns its host:port
func (m *Manager) RunRabbitMQ() (string, error) {
	resource, err := m.run("nft-staking-e2e-rabbitmq", &dockertest.RunOptions{
		Repository: m.cfg.RabbitMQRepository,
		Tag:        m.cfg.RabbitMQVersion,
		Env: []string{
			"RABBITMQ_DEFAULT_USER=" + RabbitUser,
			"RABBITMQ_DEFAULT_PASS=" + RabbitPassword,
		},
	})
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("localhost:%s", resource.GetPort("5672/tcp"))
	err = m.pool.Retry(func() error {
		conn, err := amqp.Dial(fmt.Sprintf("amqp://%s:%s@%s", RabbitUser, RabbitPassword, url))
		if err != nil {
			return err
		}
		return conn.Close()
	})
	if err != nil {
		return "", fmt.Errorf("rabbitmq did not become ready: %w", err)
	}
	return url, nil
}

// ClearResources removes all outstanding Docker resources created by the Manager.
func (m *Manager) ClearResources() error {
	for name, resource := range m.resources {
		if err := m.pool.Purge(resource); err != nil {
			return fmt.Errorf("failed to purge %s: %w", name, err)
		}
	}
	return nil
}

func initiateReplicaSet(address string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(address))
	if err != nil {
		return err
	}
	defer client.Disconnect(ctx) //nolint:errcheck

	admin := client.Database("admin")
	var status bson.M
	if err := admin.RunCommand(ctx, bson.D{{Key: "replSetGetStatus", Value: 1}}).Decode(&status); err != nil {
		initiate := bson.D{{Key: "replSetInitiate", Value: bson.M{
			"_id":     replicaSet,
			"members": bson.A{bson.M{"_id": 0, "host": "localhost:27017"}},
		}}}
		if err := admin.RunCommand(ctx, initiate).Err(); err != nil {
			return err
		}
	}

	var hello struct {
		IsWritablePrimary bool `bson:"isWritablePrimary"`
	}
	if err := admin.RunCommand(ctx, bson.D{{Key: "hello", Value: 1}}).Decode(&hello); err != nil {
		return err
	}
	if !hello.IsWritablePrimary {
		return fmt.Errorf("replica set has no primary yet")
	}
	return nil
}
