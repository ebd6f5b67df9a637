package store

import (
	"context"
	"fmt"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/1282saa/ringringv2/internal/domain"
)

// maxPageFetches caps the internal pagination loop in ListSessions. The
// type filter runs after paging on the server, so a partition dense with
// message records can require several pages to surface enough metadata
// items. Hitting the cap is not an error: the listing is best effort and may
// under-return when metadata is heavily interleaved with other record types.
const maxPageFetches = 10

// listSessionsPageSize is the raw item count requested per page, before the
// server-side type filter is applied.
const listSessionsPageSize = 100

// ItemKey is one primary key targeted by a batch delete.
type ItemKey struct {
	PK string
	SK string
}

// ListSessions returns up to limit session metadata records for a device,
// newest first, together with an opaque continuation cursor ("" when the
// scan is exhausted).
func (c *Client) ListSessions(ctx context.Context, deviceID string, limit int, cursor string) ([]domain.SessionMeta, string, error) {
	keyCond := expression.Key("PK").Equal(expression.Value(devicePK(deviceID))).
		And(expression.Key("SK").BeginsWith(skSessionPrefix))
	filter := expression.Name("type").Equal(expression.Value(domain.TypeSessionMeta))
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).WithFilter(filter).Build()
	if err != nil {
		return nil, "", fmt.Errorf("store: ListSessions build expression: %w", err)
	}

	startKey, err := decodeCursor(cursor)
	if err != nil {
		return nil, "", fmt.Errorf("store: ListSessions: %w", err)
	}

	sessions := make([]domain.SessionMeta, 0, limit)
	for i := 0; i < maxPageFetches; i++ {
		out, err := c.api.Query(ctx, &dynamodb.QueryInput{
			TableName:                 aws.String(c.tableName),
			KeyConditionExpression:    expr.KeyCondition(),
			FilterExpression:          expr.Filter(),
			ExpressionAttributeNames:  expr.Names(),
			ExpressionAttributeValues: expr.Values(),
			ExclusiveStartKey:         startKey,
			Limit:                     aws.Int32(listSessionsPageSize),
			ScanIndexForward:          aws.Bool(false),
		})
		if err != nil {
			return nil, "", fmt.Errorf("store: ListSessions query: %w", err)
		}

		for _, item := range out.Items {
			var meta domain.SessionMeta
			if err := attributevalue.UnmarshalMap(item, &meta); err != nil {
				return nil, "", fmt.Errorf("store: ListSessions unmarshal: %w", err)
			}
			sessions = append(sessions, meta)
		}

		startKey = out.LastEvaluatedKey
		if len(sessions) >= limit || startKey == nil {
			break
		}
	}

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].StartedAt > sessions[j].StartedAt
	})
	if len(sessions) > limit {
		sessions = sessions[:limit]
	}
	return sessions, encodeCursor(startKey), nil
}

// GetSessionByID resolves a session's metadata through GSI1 without knowing
// the owning device. Returns nil when the session does not exist.
func (c *Client) GetSessionByID(ctx context.Context, sessionID string) (*domain.SessionMeta, error) {
	keyCond := expression.Key("GSI1PK").Equal(expression.Value(sessionGSIPK(sessionID))).
		And(expression.Key("GSI1SK").Equal(expression.Value(gsi1MetaSK)))
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, fmt.Errorf("store: GetSessionByID build expression: %w", err)
	}

	out, err := c.api.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(c.tableName),
		IndexName:                 aws.String(gsi1Name),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		return nil, fmt.Errorf("store: GetSessionByID query: %w", err)
	}
	if len(out.Items) == 0 {
		return nil, nil
	}

	var meta domain.SessionMeta
	if err := attributevalue.UnmarshalMap(out.Items[0], &meta); err != nil {
		return nil, fmt.Errorf("store: GetSessionByID unmarshal: %w", err)
	}
	return &meta, nil
}

// GetSessionItems fetches everything recorded under one session through
// GSI1: the metadata record plus every message, ascending by GSI sort key so
// the transcript comes back in chronological order. A nil meta with no
// messages means the session does not exist.
func (c *Client) GetSessionItems(ctx context.Context, sessionID string) (*domain.SessionMeta, []domain.MessageRecord, error) {
	keyCond := expression.Key("GSI1PK").Equal(expression.Value(sessionGSIPK(sessionID)))
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, nil, fmt.Errorf("store: GetSessionItems build expression: %w", err)
	}

	out, err := c.api.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(c.tableName),
		IndexName:                 aws.String(gsi1Name),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ScanIndexForward:          aws.Bool(true),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("store: GetSessionItems query: %w", err)
	}

	var meta *domain.SessionMeta
	var messages []domain.MessageRecord
	for _, item := range out.Items {
		switch typeAttr(item) {
		case domain.TypeSessionMeta:
			var m domain.SessionMeta
			if err := attributevalue.UnmarshalMap(item, &m); err != nil {
				return nil, nil, fmt.Errorf("store: GetSessionItems unmarshal meta: %w", err)
			}
			meta = &m
		case domain.TypeMessage:
			var msg domain.MessageRecord
			if err := attributevalue.UnmarshalMap(item, &msg); err != nil {
				return nil, nil, fmt.Errorf("store: GetSessionItems unmarshal message: %w", err)
			}
			messages = append(messages, msg)
		}
	}
	return meta, messages, nil
}

// CompleteSession marks a session finished, updating only the end-of-session
// stats. Fields not named here (topic, settings, ...) stay untouched.
func (c *Client) CompleteSession(ctx context.Context, pk, sk, endedAt string, duration, turnCount, wordCount int) error {
	update := expression.
		Set(expression.Name("endedAt"), expression.Value(endedAt)).
		Set(expression.Name("duration"), expression.Value(duration)).
		Set(expression.Name("turnCount"), expression.Value(turnCount)).
		Set(expression.Name("wordCount"), expression.Value(wordCount)).
		Set(expression.Name("status"), expression.Value(domain.SessionCompleted))
	expr, err := expression.NewBuilder().WithUpdate(update).Build()
	if err != nil {
		return fmt.Errorf("store: CompleteSession build expression: %w", err)
	}

	_, err = c.api.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(c.tableName),
		Key:                       primaryKey(pk, sk),
		UpdateExpression:          expr.Update(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		return fmt.Errorf("store: CompleteSession: %w", err)
	}
	return nil
}

// batchDeleteChunk is DynamoDB's BatchWriteItem ceiling.
const batchDeleteChunk = 25

// BatchDelete removes the given primary keys in chunks. The operation is
// best effort: the returned count is how many deletes were accepted, and an
// error mid-way still reports the keys removed before it. The underlying
// store gives no all-or-nothing guarantee across chunks.
func (c *Client) BatchDelete(ctx context.Context, keys []ItemKey) (int, error) {
	deleted := 0
	for start := 0; start < len(keys); start += batchDeleteChunk {
		end := min(start+batchDeleteChunk, len(keys))
		chunk := keys[start:end]

		requests := make([]types.WriteRequest, 0, len(chunk))
		for _, key := range chunk {
			requests = append(requests, types.WriteRequest{
				DeleteRequest: &types.DeleteRequest{Key: primaryKey(key.PK, key.SK)},
			})
		}

		out, err := c.api.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
			RequestItems: map[string][]types.WriteRequest{c.tableName: requests},
		})
		if err != nil {
			return deleted, fmt.Errorf("store: BatchDelete: %w", err)
		}

		unprocessed := 0
		if out != nil {
			unprocessed = len(out.UnprocessedItems[c.tableName])
		}
		deleted += len(chunk) - unprocessed
	}
	return deleted, nil
}

func typeAttr(item map[string]types.AttributeValue) string {
	if v, ok := item["type"].(*types.AttributeValueMemberS); ok {
		return v.Value
	}
	return ""
}
