// Package remote talks to the photo and analysis service over JSON/HTTP.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"nunbody/internal/models"
)

const maxResponseBytes = 16 << 20

type Client struct {
	baseURL         string
	httpClient      *http.Client
	session         *Session
	timeout         time.Duration
	analysisTimeout time.Duration
	limiter         *rate.Limiter
	log             *zap.Logger
}

func NewClient(cfg models.RemoteConfig, session *Session, httpClient *http.Client, log *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	perMinute := cfg.AnalysisPerMinute
	if perMinute <= 0 {
		perMinute = 6
	}
	return &Client{
		baseURL:         strings.TrimRight(cfg.BaseURL, "/"),
		httpClient:      httpClient,
		session:         session,
		timeout:         cfg.Timeout,
		analysisTimeout: cfg.AnalysisTimeout,
		limiter:         rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 2),
		log:             log,
	}
}

func (c *Client) Session() *Session {
	return c.session
}

type request struct {
	method      string
	path        string
	body        io.Reader
	contentType string
	auth        bool
	timeout     time.Duration
	fallback    string
}

func (c *Client) jsonRequest(method, path string, in any, auth bool, fallback string) (request, error) {
	r := request{method: method, path: path, auth: auth, timeout: c.timeout, fallback: fallback}
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return r, err
		}
		r.body = bytes.NewReader(b)
		r.contentType = "application/json"
	}
	return r, nil
}

func (c *Client) do(ctx context.Context, r request, out any) error {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, r.method, c.baseURL+r.path, r.body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	req.Header.Set("Accept", "application/json")

	var token string
	if r.auth {
		token, err = c.session.bearer()
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%s %s: request timed out after %s: %w", r.method, r.path, r.timeout, err)
		}
		return fmt.Errorf("%s %s: %w", r.method, r.path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("%s %s: reading response: %w", r.method, r.path, err)
	}
	c.log.Debug("remote call",
		zap.String("method", r.method),
		zap.String("path", r.path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("took", time.Since(start)))

	if resp.StatusCode == http.StatusUnauthorized && r.auth {
		invalidated, err := c.session.Invalidate(token)
		if invalidated {
			c.log.Info("session invalidated by remote service", zap.String("path", r.path))
		}
		if err != nil {
			c.log.Error("failed to remove stored credentials", zap.Error(err))
		}
		return ErrUnauthorized
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{Status: resp.StatusCode, Message: ErrorMessage(body, r.fallback)}
	}

	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%s %s: decoding response: %w", r.method, r.path, err)
	}
	return nil
}

type authResponse struct {
	Token string      `json:"token"`
	User  wireProfile `json:"user"`
}

// Login exchanges credentials for a token and stores it in the session.
func (c *Client) Login(ctx context.Context, email, password string) (Profile, error) {
	const op = "remote.Login"

	r, err := c.jsonRequest(http.MethodPost, "/api/auth/login",
		map[string]string{"email": email, "password": password}, false, "Login failed")
	if err != nil {
		return Profile{}, fmt.Errorf("%s: %w", op, err)
	}
	var resp authResponse
	if err := c.do(ctx, r, &resp); err != nil {
		return Profile{}, fmt.Errorf("%s: %w", op, err)
	}
	if resp.Token == "" {
		return Profile{}, fmt.Errorf("%s: %w", op, &APIError{Status: http.StatusBadGateway, Message: "login response carried no token"})
	}
	user := resp.User.profile()
	if err := c.session.Set(resp.Token, user); err != nil {
		return Profile{}, fmt.Errorf("%s: %w", op, err)
	}
	return user, nil
}

type Registration struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Phone    string `json:"phone,omitempty"`
}

// Register creates an account. If the service answers with a token the
// session is signed in straight away.
func (c *Client) Register(ctx context.Context, reg Registration) (Profile, error) {
	const op = "remote.Register"

	r, err := c.jsonRequest(http.MethodPost, "/api/auth/register", reg, false, "Registration failed")
	if err != nil {
		return Profile{}, fmt.Errorf("%s: %w", op, err)
	}
	var resp authResponse
	if err := c.do(ctx, r, &resp); err != nil {
		return Profile{}, fmt.Errorf("%s: %w", op, err)
	}
	user := resp.User.profile()
	if resp.Token != "" {
		if err := c.session.Set(resp.Token, user); err != nil {
			return Profile{}, fmt.Errorf("%s: %w", op, err)
		}
	}
	return user, nil
}

// Logout forgets the local credentials; the service keeps no server-side session.
func (c *Client) Logout() error {
	return c.session.Clear()
}

func (c *Client) GetProfile(ctx context.Context) (Profile, error) {
	const op = "remote.GetProfile"

	r, _ := c.jsonRequest(http.MethodGet, "/api/auth/profile", nil, true, "Could not load profile")
	var resp struct {
		User wireProfile `json:"user"`
	}
	if err := c.do(ctx, r, &resp); err != nil {
		return Profile{}, fmt.Errorf("%s: %w", op, err)
	}
	user := resp.User.profile()
	if err := c.session.SetUser(user); err != nil && !errors.Is(err, ErrNotLoggedIn) {
		c.log.Warn("profile not cached", zap.Error(err))
	}
	return user, nil
}

type ProfileUpdate struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

func (c *Client) UpdateProfile(ctx context.Context, upd ProfileUpdate) (Profile, error) {
	const op = "remote.UpdateProfile"

	r, err := c.jsonRequest(http.MethodPut, "/api/auth/profile", upd, true, "Could not update profile")
	if err != nil {
		return Profile{}, fmt.Errorf("%s: %w", op, err)
	}
	if err := c.do(ctx, r, nil); err != nil {
		return Profile{}, fmt.Errorf("%s: %w", op, err)
	}
	user, _ := c.session.User()
	user.Name = upd.Name
	user.Phone = upd.Phone
	if err := c.session.SetUser(user); err != nil {
		return Profile{}, fmt.Errorf("%s: %w", op, err)
	}
	return user, nil
}

func (c *Client) ChangePassword(ctx context.Context, current, next string) error {
	const op = "remote.ChangePassword"

	r, err := c.jsonRequest(http.MethodPut, "/api/auth/password",
		map[string]string{"currentPassword": current, "newPassword": next}, true, "Could not change password")
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := c.do(ctx, r, nil); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// DeleteAccount removes the account on the service and signs out locally.
func (c *Client) DeleteAccount(ctx context.Context, password string) error {
	const op = "remote.DeleteAccount"

	r, err := c.jsonRequest(http.MethodDelete, "/api/auth/account",
		map[string]string{"password": password}, true, "Could not delete account")
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := c.do(ctx, r, nil); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := c.session.Clear(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (c *Client) ListPhotos(ctx context.Context) ([]models.RemotePhoto, error) {
	const op = "remote.ListPhotos"

	r, _ := c.jsonRequest(http.MethodGet, "/api/photos/my-photos", nil, true, "Could not load photos")
	var resp struct {
		Photos []wirePhoto `json:"photos"`
	}
	if err := c.do(ctx, r, &resp); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	out := make([]models.RemotePhoto, 0, len(resp.Photos))
	for _, p := range resp.Photos {
		out = append(out, p.model())
	}
	return out, nil
}

// Upload describes one photo sent to the service.
type Upload struct {
	FileName string
	MimeType string
	BodyPart models.BodyPart
	Data     []byte
}

func (c *Client) UploadPhoto(ctx context.Context, u Upload) (models.RemotePhoto, error) {
	const op = "remote.UploadPhoto"

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name="photo"; filename=%q`, u.FileName))
	hdr.Set("Content-Type", u.MimeType)
	part, err := mw.CreatePart(hdr)
	if err != nil {
		return models.RemotePhoto{}, fmt.Errorf("%s: %w", op, err)
	}
	if _, err := part.Write(u.Data); err != nil {
		return models.RemotePhoto{}, fmt.Errorf("%s: %w", op, err)
	}
	if err := mw.WriteField("body_part", string(u.BodyPart)); err != nil {
		return models.RemotePhoto{}, fmt.Errorf("%s: %w", op, err)
	}
	if err := mw.Close(); err != nil {
		return models.RemotePhoto{}, fmt.Errorf("%s: %w", op, err)
	}

	r := request{
		method:      http.MethodPost,
		path:        "/api/photos/upload",
		body:        &buf,
		contentType: mw.FormDataContentType(),
		auth:        true,
		timeout:     c.timeout,
		fallback:    "Upload failed",
	}
	var resp struct {
		Photo wirePhoto `json:"photo"`
	}
	if err := c.do(ctx, r, &resp); err != nil {
		return models.RemotePhoto{}, fmt.Errorf("%s: %w", op, err)
	}
	return resp.Photo.model(), nil
}

func (c *Client) DeletePhoto(ctx context.Context, id string) error {
	const op = "remote.DeletePhoto"

	r, _ := c.jsonRequest(http.MethodDelete, "/api/photos/"+url.PathEscape(id), nil, true, "Delete failed")
	if err := c.do(ctx, r, nil); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Analyze requests an AI analysis of one photo and returns the raw payload;
// its shape varies between service versions.
func (c *Client) Analyze(ctx context.Context, photoID string) (json.RawMessage, error) {
	const op = "remote.Analyze"

	var resp struct {
		Analysis json.RawMessage `json:"analysis"`
	}
	err := c.analysisCall(ctx, "/api/analysis/analyze", map[string]string{"photoId": photoID}, "Analysis failed", &resp)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return resp.Analysis, nil
}

// Compare requests a before/after analysis of two photos.
func (c *Client) Compare(ctx context.Context, beforeID, afterID string) (json.RawMessage, error) {
	const op = "remote.Compare"

	var resp struct {
		Comparison json.RawMessage `json:"comparison"`
	}
	body := map[string]string{"photoId1": beforeID, "photoId2": afterID}
	if err := c.analysisCall(ctx, "/api/analysis/compare", body, "Comparison failed", &resp); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return resp.Comparison, nil
}

func (c *Client) analysisCall(ctx context.Context, path string, in any, fallback string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	r, err := c.jsonRequest(http.MethodPost, path, in, true, fallback)
	if err != nil {
		return err
	}
	r.timeout = c.analysisTimeout
	return c.do(ctx, r, out)
}

type HistoryEntry struct {
	ID           string    `json:"id"`
	Kind         string    `json:"type"`
	PhotoIDs     []string  `json:"photo_ids,omitempty"`
	OverallScore *float64  `json:"overall_score,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

func (c *Client) ListHistory(ctx context.Context) ([]HistoryEntry, error) {
	const op = "remote.ListHistory"

	r, _ := c.jsonRequest(http.MethodGet, "/api/analysis/history", nil, true, "Could not load history")
	var resp struct {
		History  []wireHistory `json:"history"`
		Analyses []wireHistory `json:"analyses"`
	}
	if err := c.do(ctx, r, &resp); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	items := resp.History
	if len(items) == 0 {
		items = resp.Analyses
	}
	out := make([]HistoryEntry, 0, len(items))
	for _, h := range items {
		out = append(out, h.entry())
	}
	return out, nil
}

// GetHistory returns the raw stored payload of one past analysis.
func (c *Client) GetHistory(ctx context.Context, id string) (json.RawMessage, error) {
	const op = "remote.GetHistory"

	r, _ := c.jsonRequest(http.MethodGet, "/api/analysis/history/"+url.PathEscape(id), nil, true, "Could not load analysis")
	var resp struct {
		Analysis   json.RawMessage `json:"analysis"`
		Comparison json.RawMessage `json:"comparison"`
		Result     json.RawMessage `json:"result"`
	}
	if err := c.do(ctx, r, &resp); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	for _, raw := range []json.RawMessage{resp.Analysis, resp.Comparison, resp.Result} {
		if len(raw) > 0 && string(raw) != "null" {
			return raw, nil
		}
	}
	return json.RawMessage("{}"), nil
}
