package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/apigatewaymanagementapi"
	"github.com/aws/aws-sdk-go-v2/service/apigatewaymanagementapi/types"
)

const HeaderConnectionID = "X-Connection-Id"

// ErrGone is returned when the connection no longer exists on the gateway.
var ErrGone = errors.New("connection is gone")

type GatewayClient interface {
	PostToConnection(ctx context.Context, connID string, data any) error
	DeleteConnection(ctx context.Context, connID string) error
}

type ManagementAPI interface {
	PostToConnection(ctx context.Context, params *apigatewaymanagementapi.PostToConnectionInput, optFns ...func(*apigatewaymanagementapi.Options)) (*apigatewaymanagementapi.PostToConnectionOutput, error)
	DeleteConnection(ctx context.Context, params *apigatewaymanagementapi.DeleteConnectionInput, optFns ...func(*apigatewaymanagementapi.Options)) (*apigatewaymanagementapi.DeleteConnectionOutput, error)
}

type AWSGatewayClient struct {
	client ManagementAPI
}

func NewAWSGatewayClient(ctx context.Context, endpoint, region string) (*AWSGatewayClient, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := apigatewaymanagementapi.NewFromConfig(cfg, func(o *apigatewaymanagementapi.Options) {
		o.BaseEndpoint = aws.String(endpoint)
	})
	return NewAWSGatewayClientWithAPI(client), nil
}

func NewAWSGatewayClientWithAPI(api ManagementAPI) *AWSGatewayClient {
	return &AWSGatewayClient{client: api}
}

func (g *AWSGatewayClient) PostToConnection(ctx context.Context, connID string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}

	_, err = g.client.PostToConnection(ctx, &apigatewaymanagementapi.PostToConnectionInput{
		ConnectionId: aws.String(connID),
		Data:         payload,
	})
	return translate(err)
}

func (g *AWSGatewayClient) DeleteConnection(ctx context.Context, connID string) error {
	_, err := g.client.DeleteConnection(ctx, &apigatewaymanagementapi.DeleteConnectionInput{
		ConnectionId: aws.String(connID),
	})
	return translate(err)
}

func translate(err error) error {
	var gone *types.GoneException
	if errors.As(err, &gone) {
		return ErrGone
	}
	return err
}

// NoopGatewayClient drops every message. Used when realtime delivery is disabled.
type NoopGatewayClient struct{}

func (NoopGatewayClient) PostToConnection(context.Context, string, any) error { return nil }

func (NoopGatewayClient) DeleteConnection(context.Context, string) error { return nil }
