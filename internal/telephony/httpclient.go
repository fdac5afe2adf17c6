package telephony

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// HTTPGateway drives a REST-style masked-call provider. The provider is
// expected to expose POST {base}/calls accepting the two real numbers and a
// status callback URL, answering with its call SID.
type HTTPGateway struct {
	Token       string
	BaseURL     string
	CallbackURL string
	HTTP        *http.Client
}

func (g *HTTPGateway) InitiateCall(ctx context.Context, callerPhone, targetPhone string) (string, error) {
	if g.HTTP == nil {
		g.HTTP = &http.Client{Timeout: 10 * time.Second}
	}
	if g.Token == "" {
		return "", fmt.Errorf("missing provider token")
	}

	body, err := json.Marshal(map[string]string{
		"from":            callerPhone,
		"to":              targetPhone,
		"status_callback": g.CallbackURL,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.BaseURL+"/calls", bytes.NewBuffer(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+g.Token)
	req.Header.Set("Content-Type", "application/json")

	res, err := g.HTTP.Do(req)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()

	if res.StatusCode >= 300 {
		return "", fmt.Errorf("provider responded with status %d", res.StatusCode)
	}

	var resp struct {
		CallSID string `json:"call_sid"`
		Error   string `json:"error,omitempty"`
	}
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		return "", err
	}
	if resp.CallSID == "" {
		if resp.Error == "" {
			resp.Error = "missing call_sid in provider response"
		}
		return "", fmt.Errorf("%s", resp.Error)
	}
	return resp.CallSID, nil
}
