package cognito

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	cip "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
)

var ErrUserNotFound = errors.New("user not found in user pool")

// Profile holds the attributes the platform copies from the user pool.
type Profile struct {
	Username    string
	Subject     string
	Email       string
	DisplayName string
	Enabled     bool
}

type API interface {
	AdminGetUser(ctx context.Context, params *cip.AdminGetUserInput, optFns ...func(*cip.Options)) (*cip.AdminGetUserOutput, error)
}

// Directory reads users of one Cognito user pool.
type Directory struct {
	client API
	poolID string
}

func NewDirectory(ctx context.Context, region, poolID string) (*Directory, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return NewDirectoryWithClient(cip.NewFromConfig(cfg), poolID), nil
}

func NewDirectoryWithClient(client API, poolID string) *Directory {
	return &Directory{client: client, poolID: poolID}
}

func (d *Directory) Lookup(ctx context.Context, username string) (*Profile, error) {
	out, err := d.client.AdminGetUser(ctx, &cip.AdminGetUserInput{
		UserPoolId: aws.String(d.poolID),
		Username:   aws.String(username),
	})
	if err != nil {
		var notFound *types.UserNotFoundException
		if errors.As(err, &notFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("admin get user %s: %w", username, err)
	}

	attrs := make(map[string]string, len(out.UserAttributes))
	for _, a := range out.UserAttributes {
		attrs[aws.ToString(a.Name)] = aws.ToString(a.Value)
	}

	profile := &Profile{
		Username:    aws.ToString(out.Username),
		Subject:     attrs["sub"],
		Email:       attrs["email"],
		DisplayName: attrs["name"],
		Enabled:     out.Enabled,
	}

	if profile.DisplayName == "" {
		profile.DisplayName = attrs["preferred_username"]
	}
	if profile.DisplayName == "" {
		profile.DisplayName = profile.Username
	}
	return profile, nil
}
