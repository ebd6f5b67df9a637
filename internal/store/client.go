// Package store persists all backend state in one DynamoDB table. Records
// carry a ttl attribute and expiry is left entirely to DynamoDB's TTL
// sweeper: reads do not filter on it, so a record may be visible for a short
// window after its expiry time. Callers must not treat the ttl attribute as a
// hard cutoff.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/1282saa/ringringv2/internal/domain"
)

// dynamodbAPI is the minimal DynamoDB interface required by Client.
// Defined here for testability.
type dynamodbAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	BatchWriteItem(ctx context.Context, in *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
}

// Client wraps the single DynamoDB table holding all conversation state.
type Client struct {
	api       dynamodbAPI
	tableName string
}

// New creates a new store Client.
func New(api dynamodbAPI, tableName string) (*Client, error) {
	if api == nil {
		return nil, errors.New("store: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("store: table name must not be empty")
	}
	return &Client{api: api, tableName: tableName}, nil
}

// Put unconditionally upserts a record by its primary key. Records with an
// existing key are overwritten in place.
func (c *Client) Put(ctx context.Context, record any) error {
	item, err := attributevalue.MarshalMap(record)
	if err != nil {
		return fmt.Errorf("store: Put marshal: %w", err)
	}
	_, err = c.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(c.tableName),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("store: Put: %w", err)
	}
	return nil
}

// get fetches one item by primary key into out. A missing item is not an
// error; callers receive found=false and must treat it as a valid empty state.
func (c *Client) get(ctx context.Context, pk, sk string, out any) (bool, error) {
	resp, err := c.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(c.tableName),
		Key:       primaryKey(pk, sk),
	})
	if err != nil {
		return false, fmt.Errorf("store: get %s/%s: %w", pk, sk, err)
	}
	if resp == nil || len(resp.Item) == 0 {
		return false, nil
	}
	if err := attributevalue.UnmarshalMap(resp.Item, out); err != nil {
		return false, fmt.Errorf("store: get unmarshal %s/%s: %w", pk, sk, err)
	}
	return true, nil
}

func (c *Client) delete(ctx context.Context, pk, sk string) error {
	_, err := c.api.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(c.tableName),
		Key:       primaryKey(pk, sk),
	})
	if err != nil {
		return fmt.Errorf("store: delete %s/%s: %w", pk, sk, err)
	}
	return nil
}

// GetSettings returns the device settings record, or nil when none exists.
func (c *Client) GetSettings(ctx context.Context, deviceID string) (*domain.SettingsRecord, error) {
	var rec domain.SettingsRecord
	found, err := c.get(ctx, devicePK(deviceID), skSettings, &rec)
	if err != nil || !found {
		return nil, err
	}
	return &rec, nil
}

// GetPet returns the device pet record, or nil when none exists.
func (c *Client) GetPet(ctx context.Context, deviceID string) (*domain.PetCharacter, error) {
	var rec domain.PetCharacter
	found, err := c.get(ctx, devicePK(deviceID), skPet, &rec)
	if err != nil || !found {
		return nil, err
	}
	return &rec, nil
}

// DeletePet removes the device pet record.
func (c *Client) DeletePet(ctx context.Context, deviceID string) error {
	return c.delete(ctx, devicePK(deviceID), skPet)
}

// GetCustomTutor returns the device custom tutor record, or nil when none exists.
func (c *Client) GetCustomTutor(ctx context.Context, deviceID string) (*domain.CustomTutor, error) {
	var rec domain.CustomTutor
	found, err := c.get(ctx, devicePK(deviceID), skCustomTutor, &rec)
	if err != nil || !found {
		return nil, err
	}
	return &rec, nil
}

// DeleteCustomTutor removes the device custom tutor record.
func (c *Client) DeleteCustomTutor(ctx context.Context, deviceID string) error {
	return c.delete(ctx, devicePK(deviceID), skCustomTutor)
}

// GetUserMemory returns the per-user memory record, or nil when none exists.
func (c *Client) GetUserMemory(ctx context.Context, userID string) (*domain.UserMemory, error) {
	var rec domain.UserMemory
	found, err := c.get(ctx, userPK(userID), skMemory, &rec)
	if err != nil || !found {
		return nil, err
	}
	return &rec, nil
}

// GetCustomVoice returns the per-user cloned voice record, or nil when none exists.
func (c *Client) GetCustomVoice(ctx context.Context, userID string) (*domain.CustomVoice, error) {
	var rec domain.CustomVoice
	found, err := c.get(ctx, userPK(userID), skCustomVoice, &rec)
	if err != nil || !found {
		return nil, err
	}
	return &rec, nil
}

func primaryKey(pk, sk string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: pk},
		"SK": &types.AttributeValueMemberS{Value: sk},
	}
}
