// Package client は認証APIを利用するクライアントSDKを提供します。
// クッキーで運ばれるセッショントークンの保持、タイムアウト付きのHTTP呼び出し、
// 401応答を横断的に監視するインターセプターを含みます。
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"
	"time"
)

// ErrUnauthorized は認証されていない状態でのアクセスを表します。
var ErrUnauthorized = errors.New("unauthorized")

// defaultTimeout はHTTP呼び出しの既定タイムアウトです。
// トランスポート任せにせず、クライアント側で明示的に打ち切ります。
const defaultTimeout = 10 * time.Second

// SessionUser は認証チェックで返る本人性情報です。
type SessionUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// apiResponse はサーバーの共通レスポンス形です。
type apiResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	User    *SessionUser `json:"user"`
}

// Client は認証APIへのアクセスをまとめた構造体です。
type Client struct {
	baseURL *url.URL
	http    *http.Client

	mu             sync.Mutex
	onUnauthorized func()
}

// New はベースURLを指定してクライアントを作成します。
func New(baseURL string) (*Client, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	c := &Client{baseURL: parsed}
	c.http = &http.Client{
		Jar:     jar,
		Timeout: defaultTimeout,
		Transport: &unauthorizedInterceptor{
			next:   http.DefaultTransport,
			client: c,
		},
	}
	return c, nil
}

// OnUnauthorized は401応答を観測したときに呼ばれるフックを登録します。
// SPAでの「ログイン画面へ強制遷移」に相当します。
func (c *Client) OnUnauthorized(hook func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onUnauthorized = hook
}

// Register は新規ユーザーを登録します。
func (c *Client) Register(ctx context.Context, username, email, password string) error {
	body := map[string]string{
		"username": username,
		"email":    email,
		"password": password,
	}
	resp, status, err := c.doJSON(ctx, http.MethodPost, "/register", body)
	if err != nil {
		return err
	}
	if status != http.StatusCreated || !resp.Success {
		return fmt.Errorf("register failed: %s", resp.Message)
	}
	return nil
}

// Login はユーザー名またはメールアドレスとパスワードでログインします。
// 成功するとセッショントークンのクッキーがクライアント内に保持されます。
func (c *Client) Login(ctx context.Context, login, password string) error {
	body := map[string]string{
		"login":    login,
		"password": password,
	}
	resp, status, err := c.doJSON(ctx, http.MethodPost, "/login", body)
	if err != nil {
		return err
	}
	if status != http.StatusOK || !resp.Success {
		return fmt.Errorf("login failed: %s", resp.Message)
	}
	return nil
}

// Logout はセッションクッキーを破棄します。セッションがなくても成功します。
func (c *Client) Logout(ctx context.Context) error {
	resp, status, err := c.doJSON(ctx, http.MethodPost, "/logout", nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK || !resp.Success {
		return fmt.Errorf("logout failed: %s", resp.Message)
	}
	return nil
}

// AuthCheck は現在のセッションが有効かを確認します。
// 未認証の場合は ErrUnauthorized を返します。
func (c *Client) AuthCheck(ctx context.Context) (*SessionUser, error) {
	resp, status, err := c.doJSON(ctx, http.MethodGet, "/auth-check", nil)
	if err != nil {
		return nil, err
	}
	if status == http.StatusUnauthorized {
		return nil, ErrUnauthorized
	}
	if status != http.StatusOK || !resp.Success || resp.User == nil {
		return nil, fmt.Errorf("auth check failed: %s", resp.Message)
	}
	return resp.User, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, body any) (*apiResponse, int, error) {
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	endpoint := c.baseURL.JoinPath(path).String()
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("request failed: %w", err)
	}
	defer res.Body.Close()

	var decoded apiResponse
	if err := json.NewDecoder(res.Body).Decode(&decoded); err != nil {
		return nil, res.StatusCode, fmt.Errorf("failed to decode response: %w", err)
	}
	return &decoded, res.StatusCode, nil
}

// clearSession はローカルに保持しているセッション状態（クッキー）を破棄します。
func (c *Client) clearSession() {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return
	}
	c.mu.Lock()
	c.http.Jar = jar
	c.mu.Unlock()
}

func (c *Client) notifyUnauthorized() {
	c.mu.Lock()
	hook := c.onUnauthorized
	c.mu.Unlock()
	if hook != nil {
		hook()
	}
}
