package tripletex

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2"
)

// sessionTokenSource creates Tripletex session tokens from the long-lived
// consumer and employee tokens. It is wrapped in oauth2.ReuseTokenSource, so
// a new session is only created once the previous one has expired.
type sessionTokenSource struct {
	client        *Client
	consumerToken string
	employeeToken string
	lifetime      time.Duration
	now           func() time.Time
}

// Token implements oauth2.TokenSource.
func (s *sessionTokenSource) Token() (*oauth2.Token, error) {
	expires := s.now().Add(s.lifetime)
	expirationDate := expires.Format("2006-01-02")

	query := url.Values{}
	query.Set("consumerToken", s.consumerToken)
	query.Set("employeeToken", s.employeeToken)
	query.Set("expirationDate", expirationDate)

	ctx, cancel := context.WithTimeout(context.Background(), s.client.httpClient.Timeout)
	defer cancel()

	req := request{method: http.MethodPut, path: "/token/session/:create", query: query}
	httpReq, err := s.client.newRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	var resp ValueResponse[SessionToken]
	if err := s.client.send(httpReq, req, &resp); err != nil {
		return nil, err
	}
	if resp.Value.Token == "" {
		return nil, fmt.Errorf("session token missing in response")
	}

	// The session is valid through its expiration date; renew at the start of it.
	expiry, err := time.ParseInLocation("2006-01-02", resp.Value.ExpirationDate, time.Local)
	if err != nil {
		expiry, _ = time.ParseInLocation("2006-01-02", expirationDate, time.Local)
	}

	slog.Debug("created tripletex session", "expires", expiry.Format("2006-01-02"))

	return &oauth2.Token{
		AccessToken: resp.Value.Token,
		TokenType:   "Basic",
		Expiry:      expiry,
	}, nil
}
