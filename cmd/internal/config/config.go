package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"github.com/labstack/gommon/log"
)

const envVarsPrefix = "/circlenotes/prod/"

type Config struct {
	Env       string `env:"GO_ENV" env-default:"development"`
	Address   string `env:"HTTP_ADDRESS" env-default:":7070"`
	MachineID int64  `env:"MACHINE_ID" env-default:"1"`
	BodyLimit string `env:"HTTP_BODY_LIMIT" env-default:"2M"`

	Database Database
	Storage  Storage
	Search   Search
	Ranking  Ranking
	Identity Identity
	Realtime Realtime
	Jobs     Jobs
}

type Database struct {
	Type     string `env:"DATABASE_TYPE" env-default:"sqlite"`
	Path     string `env:"DATABASE_PATH" env-default:"database.db"`
	Host     string `env:"DATABASE_HOST" env-default:"localhost"`
	Port     uint16 `env:"DATABASE_PORT" env-default:"5432"`
	Name     string `env:"DATABASE_NAME" env-default:"circlenotes"`
	User     string `env:"DATABASE_USER" env-default:"circlenotes"`
	Password string `env:"DATABASE_PASSWORD" env-default:""`
	SSLMode  string `env:"DATABASE_SSLMODE" env-default:"disable"`
}

type Storage struct {
	Type            string `env:"STORAGE_TYPE" env-default:"memory"`
	Bucket          string `env:"AWS_S3_BUCKET" env-default:"circlenotes"`
	Region          string `env:"AWS_S3_REGION" env-default:"us-east-2"`
	Endpoint        string `env:"AWS_S3_ENDPOINT"`
	AccessKeyID     string `env:"AWS_ACCESS_KEY_ID"`
	SecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY"`
	PathStyle       bool   `env:"AWS_S3_PATH_STYLE" env-default:"false"`
}

type Search struct {
	Type      string `env:"SEARCH_TYPE" env-default:"memory"`
	Endpoint  string `env:"SURREALDB_URL" env-default:"ws://localhost:8000/rpc"`
	Namespace string `env:"SURREALDB_NAMESPACE" env-default:"circlenotes"`
	Database  string `env:"SURREALDB_DATABASE" env-default:"search"`
	User      string `env:"SURREALDB_USER" env-default:"root"`
	Password  string `env:"SURREALDB_PASSWORD" env-default:"root"`
}

type Ranking struct {
	Type     string `env:"RANKING_TYPE" env-default:"redis"`
	Addr     string `env:"REDIS_ADDR" env-default:"localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" env-default:"0"`
}

type Identity struct {
	Region     string `env:"COGNITO_REGION" env-default:"us-east-2"`
	UserPoolID string `env:"COGNITO_USER_POOL_ID"`
	ClientID   string `env:"COGNITO_CLIENT_ID"`
	JWKSURL    string `env:"JWKS_URL"`
	Issuer     string `env:"JWT_ISSUER"`
}

type Realtime struct {
	Enabled  bool   `env:"WEBSOCKET_ENABLED" env-default:"false"`
	Endpoint string `env:"WEBSOCKET_GATEWAY_ENDPOINT"`
	Region   string `env:"WEBSOCKET_GATEWAY_REGION" env-default:"us-east-2"`
}

type Jobs struct {
	TrendingEnabled bool `env:"TRENDING_JOB_ENABLED" env-default:"true"`
	CleanerEnabled  bool `env:"CONNECTION_CLEANER_ENABLED" env-default:"true"`
}

// Load reads the environment into a Config. Production reads its variables
// from the AWS SSM Parameter Store first, other environments from a .env file
// when one exists.
func Load(ctx context.Context) (*Config, error) {
	if os.Getenv("GO_ENV") == "production" {
		if err := loadProdEnv(ctx); err != nil {
			return nil, err
		}
	} else if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the backend selectors.
func (c *Config) Validate() error {
	checks := []struct {
		name    string
		value   string
		allowed []string
	}{
		{"DATABASE_TYPE", c.Database.Type, []string{"sqlite", "postgres"}},
		{"STORAGE_TYPE", c.Storage.Type, []string{"s3", "memory"}},
		{"SEARCH_TYPE", c.Search.Type, []string{"surreal", "memory"}},
		{"RANKING_TYPE", c.Ranking.Type, []string{"redis", "memory"}},
	}

	for _, chk := range checks {
		if !contains(chk.allowed, chk.value) {
			return fmt.Errorf("invalid %s %q, expected one of: %s", chk.name, chk.value, strings.Join(chk.allowed, ", "))
		}
	}
	return nil
}

// JWKS returns the signing keys location, derived from the user pool when unset.
func (i Identity) JWKS() string {
	if i.JWKSURL != "" || i.UserPoolID == "" {
		return i.JWKSURL
	}
	return fmt.Sprintf("https://cognito-idp.%s.amazonaws.com/%s/.well-known/jwks.json", i.Region, i.UserPoolID)
}

func (d Database) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:     d.Name,
		RawQuery: "sslmode=" + url.QueryEscape(d.SSLMode),
	}
	return u.String()
}

func loadProdEnv(ctx context.Context) error {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return fmt.Errorf("unable to load SDK config: %w", err)
	}

	client := ssm.NewFromConfig(cfg)
	paginator := ssm.NewGetParametersByPathPaginator(client, &ssm.GetParametersByPathInput{
		Path:           aws.String(envVarsPrefix),
		WithDecryption: aws.Bool(true),
		Recursive:      aws.Bool(true),
	})

	count := 0
	for paginator.HasMorePages() {
		out, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("unable to load prod environment: %w", err)
		}

		for _, param := range out.Parameters {
			key := strings.TrimPrefix(aws.ToString(param.Name), envVarsPrefix)
			if err := os.Setenv(key, aws.ToString(param.Value)); err != nil {
				return fmt.Errorf("unable to set environment variable %s: %w", key, err)
			}
			count++
		}
	}

	log.Debugf("loaded %d prod environment variables", count)
	return nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
