package gcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/option"
)

// ErrNoProject is returned when the store backend is firestore but no project is set.
var ErrNoProject = errors.New("firestore store needs PROJECT_ID")

// FirestoreOptions select the database holding the portal collections.
type FirestoreOptions struct {
	ProjectID string
	// DatabaseID defaults to the project's "(default)" database.
	DatabaseID string
	// CredentialsFile overrides application default credentials.
	CredentialsFile string
}

// NewFirestoreClient opens the document database. FIRESTORE_EMULATOR_HOST is
// honoured by the client library itself.
func NewFirestoreClient(ctx context.Context, o FirestoreOptions) (*firestore.Client, error) {
	if o.ProjectID == "" {
		return nil, ErrNoProject
	}
	if o.DatabaseID == "" {
		o.DatabaseID = firestore.DefaultDatabaseID
	}
	var opts []option.ClientOption
	if o.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(o.CredentialsFile))
	}

	client, err := firestore.NewClientWithDatabase(ctx, o.ProjectID, o.DatabaseID, opts...)
	if err != nil {
		return nil, fmt.Errorf("open firestore database %s/%s: %w", o.ProjectID, o.DatabaseID, err)
	}
	slog.Info("document store connected", "backend", "firestore", "project", o.ProjectID,
		"database", o.DatabaseID, "emulator", os.Getenv("FIRESTORE_EMULATOR_HOST") != "")
	return client, nil
}
