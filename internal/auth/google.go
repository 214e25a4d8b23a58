package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	googleAuthIDTokenVerifier "github.com/futurenda/google-auth-id-token-verifier"
	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"
	stateSessionName  = "rb_oauth"
	stateKey          = "state"
)

var ErrInvalidState = errors.New("invalid or expired oauth state")

// GoogleProfile is the verified identity Google returns.
type GoogleProfile struct {
	Subject string
	Email   string
	Name    string
	Picture string
}

// GoogleVerifier checks a Google ID token issued to this application.
type GoogleVerifier interface {
	Verify(ctx context.Context, idToken string) (GoogleProfile, error)
}

// IDTokenVerifier validates ID tokens against Google's published keys.
type IDTokenVerifier struct {
	ClientID string
	verifier googleAuthIDTokenVerifier.Verifier
}

func NewIDTokenVerifier(clientID string) *IDTokenVerifier {
	return &IDTokenVerifier{ClientID: strings.TrimSpace(clientID)}
}

func (v *IDTokenVerifier) Verify(_ context.Context, idToken string) (GoogleProfile, error) {
	if v.ClientID == "" {
		return GoogleProfile{}, ErrGoogleNotConfigured
	}
	if err := v.verifier.VerifyIDToken(idToken, []string{v.ClientID}); err != nil {
		return GoogleProfile{}, fmt.Errorf("verify id token: %w", err)
	}
	claims, err := googleAuthIDTokenVerifier.Decode(idToken)
	if err != nil {
		return GoogleProfile{}, fmt.Errorf("decode id token: %w", err)
	}
	return GoogleProfile{Subject: claims.Sub, Email: claims.Email, Name: claims.Name}, nil
}

// OAuthFlow runs the browser redirect flow. The anti-forgery state lives in
// a signed cookie session so any API instance can finish the flow.
type OAuthFlow struct {
	config      *oauth2.Config
	store       sessions.Store
	userInfoURL string
}

func NewOAuthFlow(clientID, clientSecret, redirectURL, sessionSecret string, secureCookie bool) *OAuthFlow {
	store := sessions.NewCookieStore([]byte(sessionSecret))
	store.Options = &sessions.Options{
		Path:     "/api/auth/google",
		MaxAge:   300,
		HttpOnly: true,
		Secure:   secureCookie,
		SameSite: http.SameSiteLaxMode,
	}
	return &OAuthFlow{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes: []string{
				"https://www.googleapis.com/auth/userinfo.email",
				"https://www.googleapis.com/auth/userinfo.profile",
			},
			Endpoint: google.Endpoint,
		},
		store:       store,
		userInfoURL: googleUserInfoURL,
	}
}

func (f *OAuthFlow) Configured() bool {
	return f != nil && f.config.ClientID != "" && f.config.ClientSecret != "" && f.config.RedirectURL != ""
}

// Start stores a fresh state in the session cookie and returns the consent URL.
func (f *OAuthFlow) Start(w http.ResponseWriter, r *http.Request) (string, error) {
	session, _ := f.store.Get(r, stateSessionName)
	state := uuid.NewString()
	session.Values[stateKey] = state
	if err := session.Save(r, w); err != nil {
		return "", fmt.Errorf("save oauth state: %w", err)
	}
	return f.config.AuthCodeURL(state, oauth2.AccessTypeOnline), nil
}

// Finish checks state, exchanges the code and loads the Google profile.
func (f *OAuthFlow) Finish(w http.ResponseWriter, r *http.Request) (GoogleProfile, error) {
	session, err := f.store.Get(r, stateSessionName)
	if err != nil {
		return GoogleProfile{}, ErrInvalidState
	}
	expected, _ := session.Values[stateKey].(string)
	delete(session.Values, stateKey)
	session.Options.MaxAge = -1
	_ = session.Save(r, w)

	state := r.URL.Query().Get("state")
	code := r.URL.Query().Get("code")
	if expected == "" || state != expected || code == "" {
		return GoogleProfile{}, ErrInvalidState
	}

	token, err := f.config.Exchange(r.Context(), code)
	if err != nil {
		return GoogleProfile{}, fmt.Errorf("exchange code: %w", err)
	}
	return f.fetchUserInfo(r.Context(), token)
}

type googleUserInfo struct {
	Sub     string `json:"sub"`
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

func (f *OAuthFlow) fetchUserInfo(ctx context.Context, token *oauth2.Token) (GoogleProfile, error) {
	client := f.config.Client(ctx, token)
	resp, err := client.Get(f.userInfoURL)
	if err != nil {
		return GoogleProfile{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return GoogleProfile{}, fmt.Errorf("userinfo status %d", resp.StatusCode)
	}

	var info googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return GoogleProfile{}, err
	}
	// The v2 endpoint returns "id" rather than "sub".
	if info.Sub == "" {
		info.Sub = info.ID
	}
	if info.Sub == "" {
		return GoogleProfile{}, errors.New("invalid user profile")
	}
	return GoogleProfile{Subject: info.Sub, Email: info.Email, Name: info.Name, Picture: info.Picture}, nil
}

// CallbackURL appends the issued tokens to the UI redirect.
func CallbackURL(rawURL string, session Session) (string, error) {
	if rawURL == "" {
		return "", errors.New("redirect url required")
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("token", session.AccessToken)
	q.Set("refreshToken", session.RefreshToken)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
