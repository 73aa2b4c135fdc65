package client

import (
	"context"
	"sync"
)

// State は認証ゲートの状態です。
// 確認前（Unknown）・認証済み・未認証の三値で、無効な組み合わせは存在しません。
type State int

const (
	StateUnknown State = iota
	StateAuthenticated
	StateUnauthenticated
)

// Decision はゲートの最終判断です。
// Allow=false の場合は RedirectTo（ログインビュー）へ遷移し、
// ログイン成功後に From へ戻ることを想定しています。
type Decision struct {
	Allow      bool
	RedirectTo string
	From       string
	User       *SessionUser
}

// Handle は保護ビューへの1回のマウントに対応する所有権ハンドルです。
// Release 後に解決したセッション確認の結果は破棄されます。
type Handle struct {
	once sync.Once
	done chan struct{}
}

// NewHandle はマウント時に作成するハンドルを返します。
func NewHandle() *Handle {
	return &Handle{done: make(chan struct{})}
}

// Release はアンマウント時に呼びます。何度呼んでも安全です。
func (h *Handle) Release() {
	h.once.Do(func() {
		close(h.done)
	})
}

// Live はまだ結果を適用してよいかを返します。
func (h *Handle) Live() bool {
	select {
	case <-h.done:
		return false
	default:
		return true
	}
}

// Gate は保護ビューの描画可否を決めるクライアント側のゲートです。
// 状態はナビゲーションごとに再導出され、跨いでキャッシュされません。
type Gate struct {
	client    *Client
	loginPath string

	mu      sync.Mutex
	state   State
	loading bool
	user    *SessionUser
}

// NewGate はゲートを作成します。loginPath は未認証時の遷移先です。
func NewGate(c *Client, loginPath string) *Gate {
	return &Gate{
		client:    c,
		loginPath: loginPath,
	}
}

// State は現在の認証状態を返します。
func (g *Gate) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Loading はセッション確認が進行中かを返します。
func (g *Gate) Loading() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.loading
}

// Enter は保護ビューへの遷移ごとに呼び、セッション確認を開始します。
// 確認中は Loading=true / State=Unknown となり、結果は返り値のチャネルに
// 最大1件だけ届きます。ハンドルが先に Release された場合、結果は破棄され
// 状態は更新されず、チャネルは何も届けずに閉じられます。
// 進行中のHTTP呼び出し自体は中断されません（結果の適用だけが抑止されます）。
func (g *Gate) Enter(ctx context.Context, from string, h *Handle) <-chan Decision {
	g.mu.Lock()
	g.state = StateUnknown
	g.loading = true
	g.user = nil
	g.mu.Unlock()

	out := make(chan Decision, 1)
	go func() {
		defer close(out)

		sessionUser, err := g.client.AuthCheck(ctx)
		// ネットワークエラーも明示的な失敗と同じ「未認証」として扱う
		ok := err == nil && sessionUser != nil

		if !h.Live() {
			// アンマウント済みのゲートに対する状態更新は行わない
			return
		}

		g.mu.Lock()
		g.loading = false
		if ok {
			g.state = StateAuthenticated
			g.user = sessionUser
		} else {
			g.state = StateUnauthenticated
		}
		g.mu.Unlock()

		if ok {
			out <- Decision{Allow: true, From: from, User: sessionUser}
			return
		}
		out <- Decision{Allow: false, RedirectTo: g.loginPath, From: from}
	}()
	return out
}
