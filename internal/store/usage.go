package store

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/1282saa/ringringv2/internal/domain"
)

// Usage counter fields. Incrementing is restricted to this closed set.
const (
	UsageFieldChat    = "chatCount"
	UsageFieldTts     = "ttsCount"
	UsageFieldAnalyze = "analyzeCount"
)

// GetUsage returns the counter record for a device on the given KST day, or
// nil when nothing has been counted yet.
func (c *Client) GetUsage(ctx context.Context, deviceID, day string) (*domain.DailyUsage, error) {
	var rec domain.DailyUsage
	found, err := c.get(ctx, devicePK(deviceID), usageSK(day), &rec)
	if err != nil || !found {
		return nil, err
	}
	return &rec, nil
}

// IncrementUsage adds one to the named counter for today, creating the day's
// record on first use. The increment is DynamoDB's atomic
// if_not_exists(x, 0) + 1, so concurrent calls from the same device never
// lose updates; the store is never read before writing.
func (c *Client) IncrementUsage(ctx context.Context, deviceID, field string) (domain.DailyUsage, error) {
	if field != UsageFieldChat && field != UsageFieldTts && field != UsageFieldAnalyze {
		return domain.DailyUsage{}, fmt.Errorf("store: IncrementUsage: unknown counter field %q", field)
	}

	update := expression.
		Set(expression.Name(field), expression.Plus(
			expression.Name(field).IfNotExists(expression.Value(0)),
			expression.Value(1),
		)).
		Set(expression.Name("updatedAt"), expression.Value(domain.NowKST())).
		Set(expression.Name("ttl"), expression.Value(ttlValue()))
	expr, err := expression.NewBuilder().WithUpdate(update).Build()
	if err != nil {
		return domain.DailyUsage{}, fmt.Errorf("store: IncrementUsage build expression: %w", err)
	}

	out, err := c.api.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(c.tableName),
		Key:                       primaryKey(devicePK(deviceID), usageSK(domain.TodayKST())),
		UpdateExpression:          expr.Update(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ReturnValues:              types.ReturnValueAllNew,
	})
	if err != nil {
		return domain.DailyUsage{}, fmt.Errorf("store: IncrementUsage: %w", err)
	}

	var rec domain.DailyUsage
	if err := attributevalue.UnmarshalMap(out.Attributes, &rec); err != nil {
		return domain.DailyUsage{}, fmt.Errorf("store: IncrementUsage unmarshal: %w", err)
	}
	return rec, nil
}
