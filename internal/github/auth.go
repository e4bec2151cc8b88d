package github

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/bradleyfalzon/ghinstallation/v2"
	"github.com/google/go-github/v73/github"
	"golang.org/x/oauth2"

	"github.com/revware/pr-sentinel/internal/config"
)

// ClientFactory builds an API client for a specific App installation.
// Tasks carry their installation id, so the factory is called once per
// task rather than once at startup.
type ClientFactory interface {
	ClientFor(ctx context.Context, installationID int64) (Client, error)
}

type installationClientFactory struct {
	cfg    *config.GitHubConfig
	logger *slog.Logger
}

// NewClientFactory returns a factory producing installation-scoped
// clients from the configured App credentials.
func NewClientFactory(cfg *config.GitHubConfig, logger *slog.Logger) ClientFactory {
	return &installationClientFactory{cfg: cfg, logger: logger}
}

// ClientFor creates a GitHub client authenticated as the given App
// installation. The ghinstallation transport handles token refresh.
func (f *installationClientFactory) ClientFor(_ context.Context, installationID int64) (Client, error) {
	privateKey, err := os.ReadFile(f.cfg.PrivateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key from %s: %w", f.cfg.PrivateKeyPath, err)
	}

	transport, err := ghinstallation.New(http.DefaultTransport, f.cfg.AppID, installationID, privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create installation transport: %w", err)
	}

	f.logger.Debug("created GitHub installation client", "installation_id", installationID)
	return NewClient(github.NewClient(&http.Client{Transport: transport}), f.logger), nil
}

// NewPATClient creates a client authenticated with a personal access
// token. Used by the CLI where no App installation is available.
func NewPATClient(ctx context.Context, token string, logger *slog.Logger) Client {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	tc := oauth2.NewClient(ctx, ts)
	return NewClient(github.NewClient(tc), logger)
}
