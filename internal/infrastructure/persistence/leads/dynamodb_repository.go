package leads

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	dynamodbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/AtRiskMedia/leadtrack-go/internal/domain/entities/lead"
	"github.com/AtRiskMedia/leadtrack-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/leadtrack-go/internal/infrastructure/persistence/database"
	"github.com/AtRiskMedia/leadtrack-go/internal/infrastructure/security"
)

// DynamoDBAPI is the subset of the DynamoDB client the repository uses.
type DynamoDBAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// DynamoDBLeadRepository stores snapshots as items keyed by id, tagged with
// their collection.
type DynamoDBLeadRepository struct {
	client    DynamoDBAPI
	tableName string
	logger    *logging.ChanneledLogger
}

// NewDynamoDBClient loads the default AWS credential chain for region.
func NewDynamoDBClient(ctx context.Context, region string) (*dynamodb.Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return dynamodb.NewFromConfig(cfg), nil
}

// NewDynamoDBLeadRepository creates a new DynamoDB lead repository
func NewDynamoDBLeadRepository(client DynamoDBAPI, tableName string, logger *logging.ChanneledLogger) *DynamoDBLeadRepository {
	return &DynamoDBLeadRepository{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

// InsertDocument stores a snapshot as a new item.
func (r *DynamoDBLeadRepository) InsertDocument(ctx context.Context, collection string, snapshot *lead.Snapshot) (string, error) {
	if r.client == nil {
		return "", fmt.Errorf("DynamoDB client not initialized")
	}
	if snapshot == nil {
		return "", fmt.Errorf("nil snapshot")
	}

	doc := *snapshot
	doc.ID = security.GenerateULID()

	item, err := attributevalue.MarshalMap(&doc)
	if err != nil {
		return "", fmt.Errorf("failed to marshal lead snapshot: %w", err)
	}
	item["collection"] = &dynamodbtypes.AttributeValueMemberS{Value: collection}

	start := time.Now()
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	if err != nil {
		r.logger.Database().Error("DynamoDB lead insert failed",
			"error", err.Error(),
			"table", r.tableName,
			"leadCode", doc.LeadCode)
		return "", fmt.Errorf("failed to save lead to DynamoDB: %w", err)
	}

	duration := time.Since(start)
	r.logger.Database().Info("DynamoDB lead insert completed",
		"id", doc.ID,
		"leadCode", doc.LeadCode,
		"table", r.tableName,
		"duration", duration)
	database.CheckAndLogSlowQuery(r.logger, "PUT_LEAD", duration, "dynamodb")
	return doc.ID, nil
}

// QueryDocuments scans the collection and returns snapshots newest first.
func (r *DynamoDBLeadRepository) QueryDocuments(ctx context.Context, collection string, q lead.Query) ([]*lead.Snapshot, error) {
	if r.client == nil {
		return nil, fmt.Errorf("DynamoDB client not initialized")
	}

	filter := "#collection = :collection"
	names := map[string]string{"#collection": "collection"}
	values := map[string]dynamodbtypes.AttributeValue{
		":collection": &dynamodbtypes.AttributeValueMemberS{Value: collection},
	}
	if q.LeadCode != "" {
		filter += " AND #leadCode = :leadCode"
		names["#leadCode"] = "leadCode"
		values[":leadCode"] = &dynamodbtypes.AttributeValueMemberS{Value: q.LeadCode}
	}

	start := time.Now()
	snapshots := []*lead.Snapshot{}
	var lastEvaluatedKey map[string]dynamodbtypes.AttributeValue

	for {
		input := &dynamodb.ScanInput{
			TableName:                 aws.String(r.tableName),
			FilterExpression:          aws.String(filter),
			ExpressionAttributeNames:  names,
			ExpressionAttributeValues: values,
		}
		if lastEvaluatedKey != nil {
			input.ExclusiveStartKey = lastEvaluatedKey
		}

		result, err := r.client.Scan(ctx, input)
		if err != nil {
			r.logger.Database().Error("DynamoDB lead scan failed", "error", err.Error(), "table", r.tableName)
			return nil, fmt.Errorf("failed to scan leads: %w", err)
		}

		for _, item := range result.Items {
			var snapshot lead.Snapshot
			if err := attributevalue.UnmarshalMap(item, &snapshot); err != nil {
				r.logger.Database().Warn("Skipping malformed lead item", "error", err.Error())
				continue
			}
			snapshots = append(snapshots, &snapshot)
		}

		if result.LastEvaluatedKey == nil {
			break
		}
		lastEvaluatedKey = result.LastEvaluatedKey
	}

	sort.SliceStable(snapshots, func(i, j int) bool {
		return snapshots[i].CreatedAt.After(snapshots[j].CreatedAt)
	})
	if limit := q.EffectiveLimit(); len(snapshots) > limit {
		snapshots = snapshots[:limit]
	}

	duration := time.Since(start)
	r.logger.Database().Info("DynamoDB lead scan completed",
		"table", r.tableName,
		"count", len(snapshots),
		"duration", duration)
	database.CheckAndLogSlowQuery(r.logger, "LIST_LEADS_SCAN", duration, "dynamodb")
	return snapshots, nil
}
