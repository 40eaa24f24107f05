package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"time"

	"game-duel-system/models"
)

// API is the JSON client for the duel service. The cookie jar carries the
// anonymous player token the server issues on first contact.
type API struct {
	BaseURL string
	HTTP    *http.Client
}

func NewAPI(baseURL string) *API {
	jar, _ := cookiejar.New(nil)
	return &API{
		BaseURL: baseURL,
		HTTP: &http.Client{
			Timeout: 10 * time.Second,
			Jar:     jar,
		},
	}
}

// MatchResponse is the POST /match payload: the session the caller ended up
// in, plus the relay host when realtime is enabled.
type MatchResponse struct {
	Session   *models.GameSession `json:"session"`
	RelayHost string              `json:"relayHost"`
}

type apiError struct {
	Status  int
	Message string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("api: status %d: %s", e.Status, e.Message)
}

func (a *API) SetNickname(ctx context.Context, nickname string) (*models.Player, error) {
	var out struct {
		Player *models.Player `json:"player"`
	}
	if err := a.post(ctx, "/player", map[string]string{"nickname": nickname}, &out); err != nil {
		return nil, err
	}
	return out.Player, nil
}

func (a *API) RequestMatch(ctx context.Context, gameSlug string) (*MatchResponse, error) {
	var out MatchResponse
	if err := a.post(ctx, "/match", map[string]string{"gameSlug": gameSlug}, &out); err != nil {
		return nil, err
	}
	if out.Session == nil {
		return nil, fmt.Errorf("api: match response carried no session")
	}
	return &out, nil
}

// SubmitChoice returns the session from the server's point of view and a
// duplicate flag. A duplicate is not a failure: the server hands back the
// current row precisely so the caller can resynchronize.
func (a *API) SubmitChoice(ctx context.Context, sessionID, choice string) (*models.GameSession, bool, error) {
	body := map[string]string{"sessionId": sessionID, "choice": choice}

	var out struct {
		Session *models.GameSession `json:"session"`
		Error   string              `json:"error"`
	}
	err := a.post(ctx, "/choose", body, &out)
	if err == nil {
		return out.Session, false, nil
	}

	var ae *apiError
	if asAPIError(err, &ae) && ae.Status == http.StatusBadRequest && out.Session != nil {
		return out.Session, true, nil
	}
	return nil, false, err
}

func (a *API) GetSession(ctx context.Context, sessionID string) (*models.GameSession, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", a.BaseURL+"/session?sessionId="+sessionID, nil)
	if err != nil {
		return nil, err
	}

	var out struct {
		Session *models.GameSession `json:"session"`
	}
	if err := a.do(req, &out); err != nil {
		return nil, err
	}
	return out.Session, nil
}

func (a *API) Abandon(ctx context.Context, sessionID string) error {
	return a.post(ctx, "/session/abandon", map[string]string{"sessionId": sessionID}, nil)
}

// AbandonDetached fires an abandon that is not tied to any caller lifetime,
// the page-unload analog: best-effort, bounded, never waited on.
func (a *API) AbandonDetached(sessionID string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = a.Abandon(ctx, sessionID)
	}()
}

func (a *API) post(ctx context.Context, path string, body interface{}, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, "POST", a.BaseURL+path, bytes.NewBuffer(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return a.do(req, out)
}

func (a *API) do(req *http.Request, out interface{}) error {
	resp, err := a.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}

	// Error bodies can still carry payload (the duplicate-choice conflict
	// includes the current session), so decode before rejecting.
	if out != nil && len(data) > 0 {
		_ = json.Unmarshal(data, out)
	}

	if resp.StatusCode != http.StatusOK {
		var errBody struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(data, &errBody)
		return &apiError{Status: resp.StatusCode, Message: errBody.Error}
	}
	return nil
}

func asAPIError(err error, target **apiError) bool {
	ae, ok := err.(*apiError)
	if ok {
		*target = ae
	}
	return ok
}
