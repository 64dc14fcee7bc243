package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/truemediaorg/crosspublisher/config"
)

type SecretGetter interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

func getSecret(ctx context.Context, secrets SecretGetter, path string, out any) error {
	result, err := secrets.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{SecretId: aws.String(path)})
	if err != nil {
		return err
	}
	if result.SecretString == nil {
		return fmt.Errorf("secret %s has no string value", path)
	}
	return json.Unmarshal([]byte(*result.SecretString), out)
}

// GraphToken returns the long-lived Graph token from the environment, or from
// AWS Secrets Manager when none is set there.
func GraphToken(ctx context.Context, cfg config.Config, secrets SecretGetter) (string, error) {
	if cfg.Graph.AccessToken != "" {
		return cfg.Graph.AccessToken, nil
	}
	var graphSecrets config.GraphSecretData
	if err := getSecret(ctx, secrets, cfg.Graph.SecretPath, &graphSecrets); err != nil {
		return "", fmt.Errorf("graph secrets read error: %w", err)
	}
	if graphSecrets.AccessToken == "" {
		return "", errors.New("graph secret has no accessToken")
	}
	return graphSecrets.AccessToken, nil
}

// DatabaseURL works the same way for the Postgres connection string.
func DatabaseURL(ctx context.Context, cfg config.Config, secrets SecretGetter) (string, error) {
	if cfg.PostgresURL != "" {
		return cfg.PostgresURL, nil
	}
	var pgSecrets config.PostgresSecretData
	if err := getSecret(ctx, secrets, cfg.PostgresSecretPath, &pgSecrets); err != nil {
		return "", fmt.Errorf("postgres secrets read error: %w", err)
	}
	return pgSecrets.ConnectionString, nil
}
