package store

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/require"

	"github.com/1282saa/ringringv2/internal/domain"
)

func TestIncrementUsage_RejectsUnknownField(t *testing.T) {
	c, err := New(&fakeAPI{}, "table")
	require.NoError(t, err)

	_, err = c.IncrementUsage(context.Background(), "dev-1", "adminCount")
	require.ErrorContains(t, err, "unknown counter field")
}

func TestIncrementUsage_AtomicUpdate(t *testing.T) {
	api := &fakeAPI{updateOut: &dynamodb.UpdateItemOutput{
		Attributes: mustMarshal(t, domain.DailyUsage{ChatCount: 5, TtsCount: 2}),
	}}
	c, err := New(api, "table")
	require.NoError(t, err)

	rec, err := c.IncrementUsage(context.Background(), "dev-1", UsageFieldChat)
	require.NoError(t, err)
	require.Equal(t, 5, rec.ChatCount)
	require.Equal(t, 2, rec.TtsCount)

	in := api.updateIn
	require.Equal(t, "DEVICE#dev-1", stringAttr(in.Key, "PK"))
	require.Contains(t, stringAttr(in.Key, "SK"), "USAGE#"+domain.TodayKST())
	require.Equal(t, types.ReturnValueAllNew, in.ReturnValues)
	// The increment reads nothing first: if_not_exists seeds the counter.
	require.Contains(t, *in.UpdateExpression, "if_not_exists")
}

func TestGetUsage_NotFoundIsNil(t *testing.T) {
	api := &fakeAPI{getOut: &dynamodb.GetItemOutput{}}
	c, err := New(api, "table")
	require.NoError(t, err)

	rec, err := c.GetUsage(context.Background(), "dev-1", "2025-06-01")
	require.NoError(t, err)
	require.Nil(t, rec)
	require.Equal(t, "USAGE#2025-06-01", stringAttr(api.getIn.Key, "SK"))
}

func TestGetUsage_RoundTrip(t *testing.T) {
	api := &fakeAPI{getOut: &dynamodb.GetItemOutput{
		Item: mustMarshal(t, domain.DailyUsage{ChatCount: 7, AnalyzeCount: 1, Plan: "free"}),
	}}
	c, err := New(api, "table")
	require.NoError(t, err)

	rec, err := c.GetUsage(context.Background(), "dev-1", "2025-06-01")
	require.NoError(t, err)
	require.NotNil(t, rec)
	require.Equal(t, 7, rec.ChatCount)
	require.Equal(t, 1, rec.AnalyzeCount)
}
