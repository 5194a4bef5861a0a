package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"todobot/internal/backend/googlesheets"
	"todobot/internal/config"
	"todobot/internal/exitcode"
)

const (
	// OAuth callback timeout
	oauthCallbackTimeout = 5 * time.Minute

	// Token exchange timeout
	tokenExchangeTimeout = 30 * time.Second

	// Starting port for OAuth callback server
	oauthStartPort = 8085

	// Max port attempts
	oauthMaxPortAttempts = 5
)

func newLoginCmd(opts Options, flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Authorize spreadsheet access with a Google account",
		Long: `Authorize spreadsheet access with a Google account instead of a service
account. Requires oauth_client.json in the config directory; the token is
saved next to it as token.json.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := readConfig(opts, flags)
			if err != nil {
				return err
			}
			return runLogin(cmd.Context(), cfg, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
}

func newLogoutCmd(opts Options, flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored Google token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := readConfig(opts, flags)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if !cfg.HasToken() {
				if !cfg.Quiet {
					fmt.Fprintln(out, "not logged in")
				}
				return nil
			}
			if err := cfg.RemoveToken(); err != nil {
				return withCode(exitcode.ConfigError, fmt.Errorf("failed to remove token: %w", err))
			}
			if !cfg.Quiet {
				fmt.Fprintln(out, "ok")
			}
			return nil
		},
	}
}

func runLogin(ctx context.Context, cfg *config.Config, out, errOut io.Writer) error {
	if !cfg.HasOAuthClient() {
		printOAuthSetup(errOut, cfg.Dir)
		return withCode(exitcode.ConfigError, fmt.Errorf("oauth_client.json not found in %s", cfg.Dir))
	}

	if cfg.HasToken() && isTokenValid(ctx, cfg) {
		if !cfg.Quiet {
			fmt.Fprintln(out, "already logged in")
		}
		return nil
	}

	clientJSON, err := os.ReadFile(cfg.OAuthClientPath())
	if err != nil {
		return withCode(exitcode.ConfigError, fmt.Errorf("failed to read oauth_client.json: %w", err))
	}
	oauthConfig, err := google.ConfigFromJSON(clientJSON, googlesheets.Scope)
	if err != nil {
		return withCode(exitcode.ConfigError, fmt.Errorf("invalid oauth_client.json: %w", err))
	}

	port, listener, err := findAvailablePort()
	if err != nil {
		return withCode(exitcode.ConfigError, errors.New("could not bind to local port for OAuth callback"))
	}
	defer listener.Close()

	oauthConfig.RedirectURL = fmt.Sprintf("http://localhost:%d/callback", port)
	verifier := oauth2.GenerateVerifier()
	authURL := oauthConfig.AuthCodeURL("state",
		oauth2.AccessTypeOffline,
		oauth2.S256ChallengeOption(verifier),
	)

	fmt.Fprintln(errOut, "Open this URL in your browser:")
	fmt.Fprintln(errOut, authURL)

	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("code")
		if code == "" {
			http.Error(w, "No code in callback", http.StatusBadRequest)
			select {
			case errCh <- errors.New("no code in callback"):
			default:
			}
			return
		}
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, "<html><body><h1>Authentication successful</h1><p>You may close this window.</p></body></html>")
		select {
		case codeCh <- code:
		default:
		}
	})

	server := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	var code string
	select {
	case code = <-codeCh:
	case err := <-errCh:
		return withCode(exitcode.ConfigError, err)
	case <-time.After(oauthCallbackTimeout):
		return withCode(exitcode.ConfigError, errors.New("oauth callback timed out"))
	case <-ctx.Done():
		return withCode(exitcode.ConfigError, errors.New("cancelled"))
	}

	exchangeCtx, cancel := context.WithTimeout(ctx, tokenExchangeTimeout)
	defer cancel()

	token, err := oauthConfig.Exchange(exchangeCtx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return withCode(exitcode.ConfigError, fmt.Errorf("failed to exchange code for token: %w", err))
	}
	if err := cfg.EnsureDir(); err != nil {
		return withCode(exitcode.ConfigError, fmt.Errorf("failed to create config directory: %w", err))
	}
	if err := saveToken(cfg.TokenPath(), token); err != nil {
		return withCode(exitcode.ConfigError, fmt.Errorf("failed to save token: %w", err))
	}

	if !cfg.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return nil
}

func printOAuthSetup(w io.Writer, dir string) {
	fmt.Fprintln(w, "To use a Google account with the spreadsheet store, you need OAuth credentials:")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "1. Go to https://console.cloud.google.com/apis/credentials")
	fmt.Fprintln(w, "2. Create a project (or select an existing one)")
	fmt.Fprintln(w, "3. Enable the Google Sheets API:")
	fmt.Fprintln(w, "   https://console.cloud.google.com/apis/library/sheets.googleapis.com")
	fmt.Fprintln(w, "4. Create OAuth 2.0 credentials:")
	fmt.Fprintln(w, "   - Click 'Create Credentials' > 'OAuth client ID'")
	fmt.Fprintln(w, "   - Choose 'Desktop app' as application type")
	fmt.Fprintln(w, "   - Download the JSON file")
	fmt.Fprintln(w, "5. Save it as:")
	fmt.Fprintf(w, "   %s/oauth_client.json\n", dir)
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Then run 'todobot login' again.")
	fmt.Fprintln(w, "")
}

// findAvailablePort tries ports starting from oauthStartPort.
func findAvailablePort() (int, net.Listener, error) {
	for i := 0; i < oauthMaxPortAttempts; i++ {
		port := oauthStartPort + i
		listener, err := net.Listen("tcp", fmt.Sprintf("localhost:%d", port))
		if err == nil {
			return port, listener, nil
		}
	}
	return 0, nil, errors.New("no available port found")
}

// isTokenValid reports whether the saved token carries a refresh token
// that can still mint access tokens.
func isTokenValid(ctx context.Context, cfg *config.Config) bool {
	data, err := os.ReadFile(cfg.TokenPath())
	if err != nil {
		return false
	}
	var token oauth2.Token
	if err := json.Unmarshal(data, &token); err != nil {
		return false
	}
	if token.RefreshToken == "" {
		return false
	}

	clientJSON, err := os.ReadFile(cfg.OAuthClientPath())
	if err != nil {
		return false
	}
	oauthConfig, err := google.ConfigFromJSON(clientJSON, googlesheets.Scope)
	if err != nil {
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err = oauthConfig.TokenSource(ctx, &token).Token()
	return err == nil
}

// saveToken saves an OAuth token with mode 0600.
func saveToken(path string, token *oauth2.Token) error {
	data, err := json.MarshalIndent(token, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}
