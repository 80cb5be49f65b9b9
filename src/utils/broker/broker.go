package broker

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"

	"github.com/warp-contracts/claimer/src/utils/config"
	"github.com/warp-contracts/claimer/src/utils/logger"
	"github.com/warp-contracts/claimer/src/utils/task"

	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"
	"github.com/rs/xid"
	"github.com/sirupsen/logrus"
)

var (
	ErrConnection     = errors.New("error connecting to Redis")
	ErrInvalidPayload = errors.New("invalid stream entry payload")
)

// Ordered, append only event streams kept in Redis
type Broker struct {
	log    *logrus.Entry
	config *config.Config
	client *redis.Client
}

func NewBroker(ctx context.Context, config *config.Config) (self *Broker, err error) {
	self = new(Broker)
	self.log = logger.NewSublogger("broker")
	self.config = config

	opts, err := self.options()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnection, err)
	}
	self.client = redis.NewClient(opts)

	err = self.ping(ctx)
	if err != nil {
		self.Close()
		return nil, fmt.Errorf("%w: %w", ErrConnection, err)
	}

	return
}

func (self *Broker) options() (opts *redis.Options, err error) {
	opts = &redis.Options{
		ClientName:      fmt.Sprintf("claimer/%s", xid.New().String()),
		Addr:            fmt.Sprintf("%s:%d", self.config.Redis.Host, self.config.Redis.Port),
		Password:        self.config.Redis.Password,
		Username:        self.config.Redis.User,
		DB:              self.config.Redis.DB,
		MinIdleConns:    self.config.Redis.MinIdleConns,
		MaxIdleConns:    self.config.Redis.MaxIdleConns,
		ConnMaxIdleTime: self.config.Redis.ConnMaxIdleTime,
		PoolSize:        self.config.Redis.MaxOpenConns,
		ConnMaxLifetime: self.config.Redis.ConnMaxLifetime,
	}

	if self.config.Redis.ClientCert == "" || self.config.Redis.ClientKey == "" || self.config.Redis.CaCert == "" {
		return
	}

	cert, err := tls.X509KeyPair([]byte(self.config.Redis.ClientCert), []byte(self.config.Redis.ClientKey))
	if err != nil {
		self.log.WithError(err).Error("Failed to load client cert")
		return
	}

	caCertPool := x509.NewCertPool()
	if !caCertPool.AppendCertsFromPEM([]byte(self.config.Redis.CaCert)) {
		err = errors.New("failed to append CA cert to pool")
		return
	}

	opts.TLSConfig = &tls.Config{
		MinVersion:   tls.VersionTLS12,
		RootCAs:      caCertPool,
		Certificates: []tls.Certificate{cert},
	}
	return
}

func (self *Broker) ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, self.config.Broker.ConnectTimeout)
	defer cancel()

	return self.retry(ctx).
		WithMaxElapsedTime(self.config.Broker.ConnectTimeout).
		Run(func() error {
			return self.client.Ping(ctx).Err()
		})
}

// Retrying of failed Redis operations
func (self *Broker) retry(ctx context.Context) *task.Retry {
	return task.NewRetry().
		WithContext(ctx).
		WithInitialInterval(self.config.Broker.BackoffInitialInterval).
		WithMaxInterval(self.config.Broker.BackoffMaxInterval).
		WithMaxElapsedTime(self.config.Broker.BackoffMaxElapsedTime).
		WithOnError(func(err error) error {
			if ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			if errors.Is(err, ErrInvalidPayload) {
				return backoff.Permanent(err)
			}
			self.log.WithError(err).Warn("Redis operation failed, retrying")
			return err
		})
}

func (self *Broker) Close() {
	err := self.client.Close()
	if err != nil {
		self.log.WithError(err).Error("Failed to close connection")
	}
}
