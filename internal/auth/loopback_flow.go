package auth

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2"

	"github.com/2beens/gymtracker/pkg"
)

// DriveScope is the narrow, file-scoped Drive permission grant: only
// files this app created.
const DriveScope = "https://www.googleapis.com/auth/drive.file"

var googleEndpoint = oauth2.Endpoint{
	AuthURL:  "https://accounts.google.com/o/oauth2/auth",
	TokenURL: "https://oauth2.googleapis.com/token",
}

// LoopbackFlow runs the OAuth authorization-code flow with a loopback
// redirect, the usual consent flow for a desktop app. The user opens the
// printed URL in a browser; the local listener catches the redirect.
type LoopbackFlow struct {
	config oauth2.Config

	// OpenURL surfaces the consent URL to the user. Defaults to logging.
	OpenURL func(url string)
}

func NewLoopbackFlow(clientID, clientSecret string) *LoopbackFlow {
	return &LoopbackFlow{
		config: oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     googleEndpoint,
			Scopes:       []string{DriveScope},
		},
		OpenURL: func(url string) {
			log.Infof("open this URL to sign in: %s", url)
		},
	}
}

// Ready probes the authorization endpoint. Bounded by the caller's
// context, it fails closed when the endpoint is unreachable.
func (f *LoopbackFlow) Ready(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, f.config.Endpoint.AuthURL, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("auth endpoint unreachable: %w", err)
	}
	defer resp.Body.Close()
	return nil
}

type callbackResult struct {
	code string
	err  error
}

func (f *LoopbackFlow) RequestToken(ctx context.Context) (*oauth2.Token, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("loopback listener: %w", err)
	}
	defer listener.Close()

	state, err := pkg.GenerateRandomString(24)
	if err != nil {
		return nil, fmt.Errorf("generate state: %w", err)
	}

	cfg := f.config
	cfg.RedirectURL = fmt.Sprintf("http://%s/callback", listener.Addr().String())

	results := make(chan callbackResult, 1)
	server := &http.Server{
		ReadTimeout: time.Minute,
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/callback" {
				http.NotFound(w, r)
				return
			}
			if r.URL.Query().Get("state") != state {
				http.Error(w, "state mismatch", http.StatusBadRequest)
				results <- callbackResult{err: errors.New("state mismatch")}
				return
			}
			if errParam := r.URL.Query().Get("error"); errParam != "" {
				http.Error(w, "sign-in cancelled", http.StatusForbidden)
				results <- callbackResult{err: fmt.Errorf("consent error: %s", errParam)}
				return
			}
			fmt.Fprintln(w, "Signed in, you can close this tab.")
			results <- callbackResult{code: r.URL.Query().Get("code")}
		}),
	}

	go func() {
		if serveErr := server.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			log.Errorf("loopback server: %s", serveErr)
		}
	}()
	defer server.Close()

	f.OpenURL(cfg.AuthCodeURL(state, oauth2.AccessTypeOnline))

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case result := <-results:
		if result.err != nil {
			return nil, result.err
		}
		token, err := cfg.Exchange(ctx, result.code)
		if err != nil {
			return nil, fmt.Errorf("exchange code: %w", err)
		}
		return token, nil
	}
}
