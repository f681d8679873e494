// Package auth runs the Google OAuth installed-app flow used by 'sync'.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/harrisonrobin/studyplan/pkg/config"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// LocalhostAuthPort is where the redirect listener waits for the
// authorization code. It must match the redirect URI registered in the
// Google Cloud console.
const LocalhostAuthPort = "6789"

const authTimeout = 5 * time.Minute

// Scopes requested for calendar sync.
var Scopes = []string{
	calendar.CalendarEventsScope,
	calendar.CalendarReadonlyScope,
}

// GetConfig creates an oauth2.Config from credentials.json in the config dir.
func GetConfig(scopes []string) (*oauth2.Config, error) {
	secretsPath, err := config.Path(config.ClientSecretsFile)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(secretsPath)
	if err != nil {
		return nil, fmt.Errorf("unable to read client secret file %s: %w", secretsPath, err)
	}

	cfg, err := google.ConfigFromJSON(b, scopes...)
	if err != nil {
		return nil, fmt.Errorf("unable to parse client secret file to config: %w", err)
	}
	cfg.RedirectURL = normalizeRedirect(cfg.RedirectURL)
	return cfg, nil
}

// normalizeRedirect pins localhost and out-of-band redirects to the port our
// listener uses.
func normalizeRedirect(redirect string) string {
	if redirect == "" || redirect == "urn:ietf:wg:oauth:2.0:oob" {
		return fmt.Sprintf("http://localhost:%s/oauth2callback", LocalhostAuthPort)
	}

	u, err := url.Parse(redirect)
	if err != nil {
		log.Printf("Warning: could not parse RedirectURL %q: %v. Using it as is.", redirect, err)
		return redirect
	}
	if u.Hostname() != "localhost" && u.Hostname() != "127.0.0.1" {
		log.Printf("Warning: RedirectURL %s is not a localhost callback; the local listener will not receive it.", redirect)
		return redirect
	}
	if u.Port() != LocalhostAuthPort {
		u.Host = net.JoinHostPort(u.Hostname(), LocalhostAuthPort)
	}
	return u.String()
}

// GetClient returns an HTTP client carrying a valid token. A cached token is
// used when present; otherwise the browser flow runs. Refreshed tokens are
// written back to the cache.
func GetClient(ctx context.Context, scopes []string) (*http.Client, error) {
	cfg, err := GetConfig(scopes)
	if err != nil {
		return nil, err
	}

	tokenPath, err := config.Path(config.TokenFile)
	if err != nil {
		return nil, err
	}

	tok, err := tokenFromFile(tokenPath)
	if err != nil {
		log.Printf("No usable token at %s. Starting web authorization flow...", tokenPath)
		tok, err = getTokenFromWeb(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to get token from web: %w", err)
		}
		if err := saveToken(tokenPath, tok); err != nil {
			return nil, err
		}
	}

	ts := &savingTokenSource{
		base: oauth2.ReuseTokenSource(tok, cfg.TokenSource(ctx, tok)),
		path: tokenPath,
		last: tok,
	}
	return oauth2.NewClient(ctx, ts), nil
}

// Reset removes the cached token so the next GetClient re-authorizes.
func Reset() error {
	tokenPath, err := config.Path(config.TokenFile)
	if err != nil {
		return err
	}
	if err := os.Remove(tokenPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("could not delete token file %s: %w", tokenPath, err)
	}
	return nil
}

// GetCalendarService creates an authenticated Google Calendar service.
func GetCalendarService(ctx context.Context) (*calendar.Service, error) {
	client, err := GetClient(ctx, Scopes)
	if err != nil {
		return nil, fmt.Errorf("failed to get authenticated client for Calendar API: %w", err)
	}

	srv, err := calendar.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("unable to create Google Calendar service: %w", err)
	}
	return srv, nil
}

// savingTokenSource persists a token whenever the underlying source hands out
// a different one.
type savingTokenSource struct {
	base oauth2.TokenSource
	path string

	mu   sync.Mutex
	last *oauth2.Token
}

func (s *savingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.base.Token()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil || tok.AccessToken != s.last.AccessToken || tok.RefreshToken != s.last.RefreshToken {
		if err := saveToken(s.path, tok); err != nil {
			log.Printf("Warning: could not save refreshed token: %v", err)
		}
		s.last = tok
	}
	return tok, nil
}

// getTokenFromWeb runs the authorization code flow through a local listener.
func getTokenFromWeb(ctx context.Context, cfg *oauth2.Config) (*oauth2.Token, error) {
	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)

	listener, err := net.Listen("tcp", net.JoinHostPort("localhost", LocalhostAuthPort))
	if err != nil {
		return nil, fmt.Errorf("failed to start listener on port %s: %w", LocalhostAuthPort, err)
	}

	server := &http.Server{
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			code := r.URL.Query().Get("code")
			if code == "" {
				http.Error(w, "Authorization code not found", http.StatusBadRequest)
				select {
				case errCh <- errors.New("authorization code not found in redirect URL"):
				default:
				}
				return
			}
			fmt.Fprintf(w, "Authentication successful! You can close this window.")
			select {
			case codeCh <- code:
			default:
			}
		}),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  15 * time.Second,
	}

	go func() {
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			select {
			case errCh <- fmt.Errorf("HTTP server error: %w", err):
			default:
			}
		}
	}()
	defer server.Close()

	authURL := cfg.AuthCodeURL("state-token", oauth2.AccessTypeOffline, oauth2.SetAuthURLParam("prompt", "consent"))
	fmt.Printf("Open the following URL in your browser to authorize studyplan:\n%s\n", authURL)
	log.Println("Waiting for authorization code...")

	select {
	case code := <-codeCh:
		exchangeCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		tok, err := cfg.Exchange(exchangeCtx, code)
		if err != nil {
			return nil, fmt.Errorf("unable to retrieve token from Google: %w", err)
		}
		return tok, nil
	case err := <-errCh:
		return nil, err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(authTimeout):
		return nil, errors.New("authorization timed out, please try again")
	}
}

func tokenFromFile(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tok := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(tok); err != nil {
		return nil, fmt.Errorf("failed to decode token from file %s: %w", path, err)
	}
	return tok, nil
}

func saveToken(path string, token *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("could not create token directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("unable to cache OAuth token to %s: %w", path, err)
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(token)
}
