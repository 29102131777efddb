// Package session provides AWS session management and DynamoDB client configuration
package session

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/theory-cloud/tablekit/pkg/interfaces"
)

// configLoadFunc is a variable to allow mocking config.LoadDefaultConfig in tests
var configLoadFunc = config.LoadDefaultConfig

const defaultHTTPTimeout = 30 * time.Second

// Config holds the AWS connection settings for tablekit
type Config struct {
	// CredentialsProvider takes precedence over static keys.
	CredentialsProvider aws.CredentialsProvider `json:"-" yaml:"-"`
	Region              string                  `json:"region" yaml:"region"`
	// Endpoint overrides the DynamoDB endpoint, e.g. DynamoDB Local.
	Endpoint        string `json:"endpoint" yaml:"endpoint"`
	AccessKeyID     string `json:"access_key_id" yaml:"access_key_id"`
	SecretAccessKey string `json:"-" yaml:"secret_access_key"`
	SessionToken    string `json:"-" yaml:"session_token"`
	// AWSConfigOptions are applied after the options derived from this config.
	AWSConfigOptions []func(*config.LoadOptions) error `json:"-" yaml:"-"`
	DynamoDBOptions  []func(*dynamodb.Options)         `json:"-" yaml:"-"`
	// MaxRetries is the SDK retryer's max attempts per request.
	MaxRetries  int           `json:"max_retries" yaml:"max_retries"`
	HTTPTimeout time.Duration `json:"http_timeout" yaml:"http_timeout"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Region:      "us-east-1",
		MaxRetries:  3,
		HTTPTimeout: defaultHTTPTimeout,
	}
}

// credentials returns the provider to install, or nil to use the default chain.
func (c *Config) credentials() aws.CredentialsProvider {
	if c.CredentialsProvider != nil {
		return c.CredentialsProvider
	}
	if c.AccessKeyID != "" {
		return credentials.NewStaticCredentialsProvider(c.AccessKeyID, c.SecretAccessKey, c.SessionToken)
	}
	return nil
}

// Session manages the AWS session and DynamoDB client
type Session struct {
	config    *Config
	client    *dynamodb.Client
	awsConfig aws.Config
}

// NewSession creates a new session with the given configuration
func NewSession(cfg *Config) (*Session, error) {
	return NewSessionWithContext(context.Background(), cfg)
}

// NewSessionWithContext creates a new session, loading the AWS config with ctx
func NewSessionWithContext(ctx context.Context, cfg *Config) (*Session, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	options := make([]func(*config.LoadOptions) error, 0, len(cfg.AWSConfigOptions)+5)

	if cfg.Region != "" {
		options = append(options, config.WithRegion(cfg.Region))
	}

	if provider := cfg.credentials(); provider != nil {
		options = append(options, config.WithCredentialsProvider(provider))
	}

	maxAttempts := cfg.MaxRetries
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	options = append(options, config.WithRetryMode(aws.RetryModeStandard))
	options = append(options, config.WithRetryMaxAttempts(maxAttempts))

	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	// config needs a buildable client to apply AWS_CA_BUNDLE
	httpClient := awshttp.NewBuildableClient().WithTimeout(timeout)
	options = append(options, config.WithHTTPClient(httpClient))

	options = append(options, cfg.AWSConfigOptions...)

	awsConfig, err := configLoadFunc(ctx, options...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	if awsConfig.Retryer == nil {
		awsConfig.Retryer = func() aws.Retryer {
			return retry.NewStandard(func(o *retry.StandardOptions) {
				o.MaxAttempts = maxAttempts
			})
		}
	}

	clientOptions := make([]func(*dynamodb.Options), 0, 1+len(cfg.DynamoDBOptions))
	clientOptions = append(clientOptions, func(o *dynamodb.Options) {
		o.Region = awsConfig.Region

		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}

		if o.Retryer == nil {
			o.Retryer = awsConfig.Retryer()
		}

		if o.HTTPClient == nil {
			o.HTTPClient = httpClient
		}
	})
	clientOptions = append(clientOptions, cfg.DynamoDBOptions...)

	return &Session{
		config:    cfg,
		awsConfig: awsConfig,
		client:    dynamodb.NewFromConfig(awsConfig, clientOptions...),
	}, nil
}

// Client returns the DynamoDB client
func (s *Session) Client() (*dynamodb.Client, error) {
	if s == nil {
		return nil, fmt.Errorf("session is nil")
	}
	if s.client == nil {
		return nil, fmt.Errorf("DynamoDB client is nil")
	}
	return s.client, nil
}

// DB returns the DynamoDB client behind the mockable interface
func (s *Session) DB() (interfaces.DynamoDBClientInterface, error) {
	client, err := s.Client()
	if err != nil {
		return nil, err
	}
	return interfaces.NewDynamoDBClientWrapper(client), nil
}

// Config returns the session configuration
func (s *Session) Config() *Config {
	return s.config
}

// AWSConfig returns the AWS configuration
func (s *Session) AWSConfig() aws.Config {
	return s.awsConfig
}
