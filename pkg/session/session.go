// Package session provides AWS session management and DynamoDB client configuration
package session

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/credentials/stscreds"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"gopkg.in/yaml.v3"

	"github.com/theory-cloud/tablerow/pkg/batch"
)

// configLoadFunc is a variable to allow mocking config.LoadDefaultConfig in tests
var configLoadFunc = config.LoadDefaultConfig

const defaultRoleSessionName = "tablerow"

// Config holds the configuration for tablerow
type Config struct {
	CredentialsProvider aws.CredentialsProvider `yaml:"-"`
	Region              string                  `yaml:"region"`
	Endpoint            string                  `yaml:"endpoint"`
	// AccessKeyID and SecretAccessKey set static credentials, typically for
	// a local endpoint. CredentialsProvider wins when both are given.
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	SessionToken    string `yaml:"session_token"`
	// AssumeRoleARN makes every request run under the given role.
	AssumeRoleARN    string                            `yaml:"assume_role_arn"`
	RoleSessionName  string                            `yaml:"role_session_name"`
	AWSConfigOptions []func(*config.LoadOptions) error `yaml:"-"`
	DynamoDBOptions  []func(*dynamodb.Options)         `yaml:"-"`
	Batch            BatchConfig                       `yaml:"batch"`
	MaxRetries       int                               `yaml:"max_retries"`
	HTTPTimeout      time.Duration                     `yaml:"http_timeout"`
}

// BatchConfig holds batch writer settings.
type BatchConfig struct {
	MaxRetry    int           `yaml:"max_retry"`
	Parallelism int           `yaml:"parallelism"`
	Backoff     time.Duration `yaml:"backoff"`
}

// Options converts the settings into batch writer options.
func (b BatchConfig) Options() []batch.Option {
	return []batch.Option{
		batch.WithMaxRetry(b.MaxRetry),
		batch.WithParallelism(b.Parallelism),
		batch.WithBackoff(b.Backoff),
	}
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Region:      "us-east-1",
		MaxRetries:  3,
		HTTPTimeout: 30 * time.Second,
		Batch: BatchConfig{
			MaxRetry:    3,
			Parallelism: 4,
			Backoff:     100 * time.Millisecond,
		},
	}
}

// ParseConfig reads a YAML configuration. Settings the document leaves out
// keep their DefaultConfig values.
func ParseConfig(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// LoadConfig reads a YAML configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return ParseConfig(data)
}

// Session manages the AWS session and DynamoDB client
type Session struct {
	config    *Config
	client    *dynamodb.Client
	awsConfig aws.Config
}

// NewSession creates a new session with the given configuration
func NewSession(cfg *Config) (*Session, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	options := make([]func(*config.LoadOptions) error, 0, len(cfg.AWSConfigOptions)+5)

	if cfg.Region != "" {
		options = append(options, config.WithRegion(cfg.Region))
	}

	switch {
	case cfg.CredentialsProvider != nil:
		options = append(options, config.WithCredentialsProvider(cfg.CredentialsProvider))
	case cfg.AccessKeyID != "":
		options = append(options, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken),
		))
	}

	maxAttempts := cfg.MaxRetries
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	options = append(options, config.WithRetryMode(aws.RetryModeStandard))
	options = append(options, config.WithRetryMaxAttempts(maxAttempts))

	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	// A buildable client lets the loader apply AWS_CA_BUNDLE.
	httpClient := awshttp.NewBuildableClient().WithTimeout(timeout)
	options = append(options, config.WithHTTPClient(httpClient))

	options = append(options, cfg.AWSConfigOptions...)

	awsConfig, err := configLoadFunc(context.Background(), options...)
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

	if cfg.AssumeRoleARN != "" {
		awsConfig.Credentials = assumeRole(awsConfig, cfg)
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

	client := dynamodb.NewFromConfig(awsConfig, clientOptions...)
	if client == nil {
		return nil, fmt.Errorf("failed to create DynamoDB client")
	}

	return &Session{
		config:    cfg,
		awsConfig: awsConfig,
		client:    client,
	}, nil
}

// assumeRole wraps the loaded credentials in a cached STS AssumeRole provider.
func assumeRole(awsConfig aws.Config, cfg *Config) aws.CredentialsProvider {
	sessionName := cfg.RoleSessionName
	if sessionName == "" {
		sessionName = defaultRoleSessionName
	}
	provider := stscreds.NewAssumeRoleProvider(sts.NewFromConfig(awsConfig), cfg.AssumeRoleARN, func(o *stscreds.AssumeRoleOptions) {
		o.RoleSessionName = sessionName
	})
	return aws.NewCredentialsCache(provider)
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

// Config returns the session configuration
func (s *Session) Config() *Config {
	return s.config
}

// AWSConfig returns the AWS configuration
func (s *Session) AWSConfig() aws.Config {
	return s.awsConfig
}
