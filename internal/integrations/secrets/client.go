// Package secrets retrieves API keys from AWS Secrets Manager, cached for
// the lifetime of the process.
package secrets

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// secretsAPI is the minimal Secrets Manager interface required by Client.
type secretsAPI interface {
	GetSecretValue(ctx context.Context, in *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// Getter is the read interface consumers depend on.
type Getter interface {
	GetSecret(ctx context.Context, id string) (string, error)
}

// Client fetches secret strings and caches them per secret id. The cache is
// populated on first access and held until Invalidate is called or the
// process restarts.
type Client struct {
	api secretsAPI

	mu     sync.RWMutex
	values map[string]string
}

// New creates a Client with the given Secrets Manager API implementation.
func New(api secretsAPI) (*Client, error) {
	if api == nil {
		return nil, errors.New("secrets: api must not be nil")
	}
	return &Client{api: api, values: make(map[string]string)}, nil
}

// GetSecret returns the secret string for id, hitting Secrets Manager only
// on the first call per id.
func (c *Client) GetSecret(ctx context.Context, id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", errors.New("secrets: secret id is required")
	}

	c.mu.RLock()
	value, ok := c.values[id]
	c.mu.RUnlock()
	if ok {
		return value, nil
	}

	out, err := c.api.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(id),
	})
	if err != nil {
		return "", fmt.Errorf("secrets: get secret %q: %w", id, err)
	}
	if out == nil || out.SecretString == nil {
		return "", fmt.Errorf("secrets: secret %q has no string value", id)
	}

	c.mu.Lock()
	c.values[id] = *out.SecretString
	c.mu.Unlock()
	return *out.SecretString, nil
}

// Invalidate drops every cached value, forcing refetch on next access. Meant
// for secret rotation; nothing calls it automatically.
func (c *Client) Invalidate() {
	c.mu.Lock()
	c.values = make(map[string]string)
	c.mu.Unlock()
}
