package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// GoogleUser is the portion of Google's userinfo response we care about.
// Google returns a larger object — we only unmarshal the fields we need.
//
// Endpoint docs: https://developers.google.com/identity/protocols/oauth2
type GoogleUser struct {
	Sub     string `json:"id"`      // Google's subject id — stable, never changes
	Email   string `json:"email"`   // Verified primary email
	Name    string `json:"name"`    // Display name, e.g. "Ada Lovelace"
	Picture string `json:"picture"` // Profile picture URL (unused, kept for completeness)
}

// GoogleProvider wraps golang.org/x/oauth2 for the Google Authorization Code flow.
//
// OAUTH 2.0 AUTHORIZATION CODE FLOW:
//  1. Our server redirects the user to Google's authorization endpoint
//  2. The user approves (or denies) the request on Google's consent screen
//  3. Google redirects back to our CallbackURL with a short-lived "code"
//  4. Our server exchanges the code for an access token (server-to-server,
//     using the ClientSecret — the token never touches the browser)
//  5. Our server calls the userinfo API to learn who the user is
//
// The net result: a one-time code goes in, a verified
// {email, sub, name} identity comes out.
type GoogleProvider struct {
	config *oauth2.Config
}

// NewGoogleProvider creates a GoogleProvider with the given credentials.
//
// ClientID and ClientSecret come from a Google Cloud OAuth 2.0 client
// (console.cloud.google.com → APIs & Services → Credentials).
// callbackURL must exactly match an authorized redirect URI configured
// there, e.g. "http://localhost:8080/auth/google/callback".
//
// Scopes: "openid email profile" — identity only, no Google data access.
func NewGoogleProvider(clientID, clientSecret, callbackURL string) *GoogleProvider {
	return &GoogleProvider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  callbackURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint, // pre-defined Google OAuth endpoints
		},
	}
}

// AuthURL returns the URL to redirect the user to for authorization.
//
// The state is a random string we generate and store in a cookie before
// redirecting. When Google calls back, we verify the returned state matches
// our cookie — this blocks CSRF attacks where an attacker tricks a victim's
// browser into completing an OAuth flow for the attacker's account.
func (p *GoogleProvider) AuthURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Exchange completes the OAuth flow: trades the authorization code for a
// Google user profile. This is the core of the callback handler.
func (p *GoogleProvider) Exchange(ctx context.Context, code string) (*GoogleUser, error) {
	// Step 1: exchange authorization code → OAuth access token.
	// This is a POST to Google's token endpoint using our ClientSecret.
	oauthToken, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("auth: exchanging OAuth code: %w", err)
	}

	// Step 2: call the userinfo API with the token.
	// oauth2.Config.Client returns an *http.Client that adds the
	// "Authorization: Bearer <token>" header to every request.
	client := p.config.Client(ctx, oauthToken)

	resp, err := client.Get("https://www.googleapis.com/oauth2/v2/userinfo")
	if err != nil {
		return nil, fmt.Errorf("auth: calling Google userinfo API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("auth: Google userinfo API returned status %d", resp.StatusCode)
	}

	var gUser GoogleUser
	if err := json.NewDecoder(resp.Body).Decode(&gUser); err != nil {
		return nil, fmt.Errorf("auth: decoding Google userinfo response: %w", err)
	}

	if gUser.Sub == "" || gUser.Email == "" {
		return nil, fmt.Errorf("auth: Google returned an incomplete user profile")
	}

	return &gUser, nil
}
