package seed

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/pkg/errors"
	"github.com/rzpsarthak13/joinstore/internal/core"
	"github.com/rzpsarthak13/joinstore/internal/logger"
	"github.com/rzpsarthak13/joinstore/internal/registry"
)

// DynamoDBSource scans every item of one DynamoDB table.
type DynamoDBSource struct {
	client    dynamodb.ScanAPIClient
	tableName string
	logger    logger.Logger
}

// NewDynamoDBSource loads the AWS config for cfg.Region. Static credentials
// and a custom endpoint (e.g. LocalStack) are used when set.
func NewDynamoDBSource(ctx context.Context, cfg registry.InternalDynamoDBConfig, l logger.Logger) (*DynamoDBSource, error) {
	if cfg.Region == "" {
		return nil, errors.Wrap(core.ErrInvalidConfig, "region is required")
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
	if err != nil {
		return nil, errors.Wrap(err, "failed to load AWS config")
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		awsCfg.Credentials = credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")
	}

	var opts []func(*dynamodb.Options)
	if cfg.Endpoint != "" {
		opts = append(opts, func(o *dynamodb.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		})
	}
	return NewDynamoDBSourceWithClient(dynamodb.NewFromConfig(awsCfg, opts...), cfg.TableName, l)
}

// NewDynamoDBSourceWithClient uses an existing client.
func NewDynamoDBSourceWithClient(client dynamodb.ScanAPIClient, tableName string, l logger.Logger) (*DynamoDBSource, error) {
	if tableName == "" {
		return nil, errors.Wrap(core.ErrInvalidConfig, "table name is required")
	}
	if l == nil {
		l = logger.NopLogger
	}
	return &DynamoDBSource{client: client, tableName: tableName, logger: l.WithPrefix("DYNAMODB")}, nil
}

// Fetch scans the table page by page.
func (d *DynamoDBSource) Fetch(ctx context.Context) ([]core.Record, error) {
	p := dynamodb.NewScanPaginator(d.client, &dynamodb.ScanInput{
		TableName: aws.String(d.tableName),
	})

	var recs []core.Record
	for pages := 0; p.HasMorePages(); pages++ {
		out, err := p.NextPage(ctx)
		if err != nil {
			d.logger.Errorf("scan of %s failed after %d page(s): %v", d.tableName, pages, err)
			return nil, errors.Wrapf(err, "failed to scan %s", d.tableName)
		}
		var page []map[string]interface{}
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, errors.Wrap(err, "failed to unmarshal items")
		}
		for _, item := range page {
			recs = append(recs, core.Record(item))
		}
	}
	d.logger.Infof("scanned %d item(s) from %s", len(recs), d.tableName)
	return recs, nil
}

func (d *DynamoDBSource) Close() error { return nil }
