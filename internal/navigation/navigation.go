// Package navigation は画面遷移先の定義と遷移の記録を提供する。
package navigation

import "sync"

// Route は画面遷移先を表す。
type Route string

// 遷移先
const (
	RouteDashboard      Route = "dashboard"
	RouteOrders         Route = "pedidos"
	RouteForgotPassword Route = "esqueceu-senha"
	RouteLogin          Route = "login"
)

// Path はルートに対応するURLパスを返す。
func (r Route) Path() string {
	return "/" + string(r)
}

// Navigator は画面遷移を行う仕組みのインターフェース。
type Navigator interface {
	Navigate(route Route)
}

// Recorder は遷移要求を記録するNavigator。
// HTTPハンドラーは記録された遷移先をリダイレクト先として返す。
type Recorder struct {
	mu     sync.Mutex
	routes []Route
}

// NewRecorder はRecorderを生成する。
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Navigate は遷移先を記録する。
func (r *Recorder) Navigate(route Route) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes = append(r.routes, route)
}

// Last は最後に記録された遷移先を返す。遷移がない場合はfalseを返す。
func (r *Recorder) Last() (Route, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.routes) == 0 {
		return "", false
	}
	return r.routes[len(r.routes)-1], true
}

// Count は記録された遷移の回数を返す。
func (r *Recorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.routes)
}
