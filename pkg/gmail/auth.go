package gmail

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmailapi "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// Authenticate runs the two-phase construction: obtain credentials, then
// return a ready Client. There is no lazy identity resolution afterwards.
func Authenticate(ctx context.Context, logger *log.Logger, credentialsPath, tokenPath string) (*Client, error) {
	b, err := os.ReadFile(credentialsPath)
	if err != nil {
		return nil, errors.Wrap(err, "unable to read client secret file")
	}
	oauthConfig, err := google.ConfigFromJSON(b, gmailapi.GmailReadonlyScope, gmailapi.GmailSendScope)
	if err != nil {
		return nil, errors.Wrap(err, "unable to parse client secret file")
	}

	tok, err := tokenFromFile(tokenPath)
	if err != nil {
		tok, err = tokenFromWeb(ctx, oauthConfig)
		if err != nil {
			return nil, err
		}
		saveToken(logger, tokenPath, tok)
	}

	srv, err := gmailapi.NewService(ctx, option.WithHTTPClient(oauthConfig.Client(ctx, tok)))
	if err != nil {
		return nil, errors.Wrap(err, "unable to create gmail service")
	}
	return &Client{srv: srv, logger: logger}, nil
}

func tokenFromFile(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close() //nolint:errcheck
	tok := &oauth2.Token{}
	return tok, json.NewDecoder(f).Decode(tok)
}

// tokenFromWeb walks the user through the consent flow on the terminal.
func tokenFromWeb(ctx context.Context, config *oauth2.Config) (*oauth2.Token, error) {
	authURL := config.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
	fmt.Printf("Go to the following link in your browser then type the authorization code:\n%v\n", authURL)

	var authCode string
	if _, err := fmt.Scan(&authCode); err != nil {
		return nil, errors.Wrap(err, "unable to read authorization code")
	}

	tok, err := config.Exchange(ctx, authCode)
	if err != nil {
		return nil, errors.Wrap(err, "unable to exchange authorization code")
	}
	return tok, nil
}

func saveToken(logger *log.Logger, path string, token *oauth2.Token) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		logger.Warn("unable to cache oauth token", "path", path, "error", err)
		return
	}
	defer f.Close() //nolint:errcheck
	if err := json.NewEncoder(f).Encode(token); err != nil {
		logger.Warn("unable to write oauth token", "path", path, "error", err)
	}
	logger.Info("cached oauth token", "path", path)
}
