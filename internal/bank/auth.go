package bank

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"golang.org/x/oauth2"

	"github.com/cleared-dev/farereceipts/internal/id"
)

// Default OAuth2 endpoints.
const (
	DefaultAuthURL  = "https://auth.monzo.com/"
	DefaultTokenURL = "https://api.monzo.com/oauth2/token"
)

// Authorizer obtains a bearer token interactively: either an existing token
// typed at the prompt, or the authorization-code flow run through the browser.
type Authorizer struct {
	Config *oauth2.Config
	In     io.Reader
	Out    io.Writer

	// NewState generates the OAuth2 state parameter. Defaults to id.NewState.
	NewState func() string
}

// TokenSource prompts for a token and returns a source for it.
func (a *Authorizer) TokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	r := bufio.NewReader(a.In)

	fmt.Fprintln(a.Out, "Starting OAuth2 flow...")
	fmt.Fprint(a.Out, "If you already have a token, enter it now, otherwise press enter to continue: ")
	token, err := readLine(r)
	if err != nil {
		return nil, fmt.Errorf("reading token: %w", err)
	}
	if token != "" {
		return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}), nil
	}

	if a.Config == nil || a.Config.ClientID == "" {
		return nil, errors.New("no token entered and no OAuth2 client configured")
	}

	newState := a.NewState
	if newState == nil {
		newState = id.NewState
	}
	state := newState()

	fmt.Fprintf(a.Out, "\nVisit the following URL in your browser to authorise access:\n\n  %s\n\n", a.Config.AuthCodeURL(state))
	fmt.Fprint(a.Out, "Paste the URL you were redirected to: ")
	line, err := readLine(r)
	if err != nil {
		return nil, fmt.Errorf("reading redirect URL: %w", err)
	}

	code, err := codeFromRedirect(line, state)
	if err != nil {
		return nil, err
	}

	tok, err := a.Config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchanging authorization code: %w", err)
	}
	fmt.Fprintln(a.Out, "OAuth2 flow completed.")
	return a.Config.TokenSource(ctx, tok), nil
}

// codeFromRedirect extracts the authorization code from the pasted redirect
// URL, checking its state. A bare code is accepted as is.
func codeFromRedirect(line, state string) (string, error) {
	if line == "" {
		return "", errors.New("no authorization code entered")
	}
	if !strings.Contains(line, "code=") {
		return line, nil
	}

	raw := line
	if i := strings.Index(raw, "?"); i >= 0 {
		raw = raw[i+1:]
	}
	values, err := url.ParseQuery(raw)
	if err != nil {
		return "", fmt.Errorf("parsing redirect URL: %w", err)
	}
	if got := values.Get("state"); got != state {
		return "", fmt.Errorf("state mismatch: got %q", got)
	}
	code := values.Get("code")
	if code == "" {
		return "", errors.New("redirect URL has no code")
	}
	return code, nil
}

func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
