package client

import "net/http"

// unauthorizedInterceptor はすべての応答を横断的に観測し、
// 401を検出したらローカルのセッション状態を破棄してフックを呼びます。
// どの呼び出し経路の401かは区別しません。
type unauthorizedInterceptor struct {
	next   http.RoundTripper
	client *Client
}

func (i *unauthorizedInterceptor) RoundTrip(req *http.Request) (*http.Response, error) {
	res, err := i.next.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if res.StatusCode == http.StatusUnauthorized {
		i.client.clearSession()
		i.client.notifyUnauthorized()
	}
	return res, nil
}
