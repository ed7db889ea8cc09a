package firebase

import (
	"context"
	"fmt"
	"log"
	"os"

	"cloud.google.com/go/firestore"
	fbapp "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"

	"carmarket/pkg/config"
)

// credentials picks the service account from the environment variable in
// production and from a file in local development. Without either, the
// application default credentials are used.
func credentials(cfg *config.Config) ([]option.ClientOption, error) {
	if cfg.FirebaseServiceAccountJSON != "" {
		log.Printf("Using Firebase service account from environment variable")
		return []option.ClientOption{option.WithCredentialsJSON([]byte(cfg.FirebaseServiceAccountJSON))}, nil
	}

	if cfg.FirebaseServiceAccountPath != "" {
		if _, err := os.Stat(cfg.FirebaseServiceAccountPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("service account file does not exist: %s", cfg.FirebaseServiceAccountPath)
		}
		log.Printf("Using Firebase service account from file: %s", cfg.FirebaseServiceAccountPath)
		return []option.ClientOption{option.WithCredentialsFile(cfg.FirebaseServiceAccountPath)}, nil
	}

	log.Printf("Using application default credentials for Firebase")
	return nil, nil
}

func NewFirestoreClient(ctx context.Context, cfg *config.Config) (*firestore.Client, error) {
	opts, err := credentials(cfg)
	if err != nil {
		return nil, err
	}
	return firestore.NewClient(ctx, cfg.FirebaseProject, opts...)
}

func NewAuthClient(ctx context.Context, cfg *config.Config) (*auth.Client, error) {
	opts, err := credentials(cfg)
	if err != nil {
		return nil, err
	}

	app, err := fbapp.NewApp(ctx, &fbapp.Config{ProjectID: cfg.FirebaseProject}, opts...)
	if err != nil {
		return nil, fmt.Errorf("initialize firebase: %w", err)
	}
	return app.Auth(ctx)
}
