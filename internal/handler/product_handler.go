package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/comanda/painel/internal/apiclient"
	"github.com/comanda/painel/internal/middleware"
	"github.com/comanda/painel/internal/model"
	"github.com/comanda/painel/internal/notify"
	"github.com/comanda/painel/internal/product"
)

const maxProductBodySize = 64 << 10

// ProductHandler は商品管理のHTTPハンドラー。
// リクエストのセッションを注入したproduct.Serviceをリクエストごとに生成する。
type ProductHandler struct {
	client    *apiclient.Client
	sanitizer notify.MessageSanitizer
	logger    *slog.Logger
}

// NewProductHandler はProductHandlerを生成する。
func NewProductHandler(client *apiclient.Client, sanitizer notify.MessageSanitizer, logger *slog.Logger) *ProductHandler {
	return &ProductHandler{
		client:    client,
		sanitizer: sanitizer,
		logger:    logger,
	}
}

// noSession はセッションがない場合のTokenSource。常に未認証エラーを返す。
type noSession struct{}

func (noSession) Token() (string, error) {
	return "", model.NewUnauthorizedError()
}

// productStatusRequest は有効フラグ更新リクエストのボディ。
type productStatusRequest struct {
	Status *bool `json:"status"`
}

// newService はリクエスト単位のproduct.Serviceと通知の記録先を返す。
// NewRequireSessionMiddlewareの後でのみ呼び出す。
func (h *ProductHandler) newService(r *http.Request) (*product.Service, *notify.Recorder) {
	notes := notify.NewRecorder()
	var tokens apiclient.TokenSource = noSession{}
	if sess, ok := middleware.SessionFromContext(r.Context()); ok {
		tokens = sess
	}
	errHandler := notify.NewErrorHandler(notify.Multi{notes, notify.NewLogNotifier(h.logger)}, h.sanitizer)
	return product.NewService(h.client, tokens, errHandler, h.logger), notes
}

// List は商品一覧を返す。typeが指定された場合は有効な商品を種別で絞り込む。
// GET /api/products[?type=&size=]
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	svc, notes := h.newService(r)
	q := r.URL.Query()

	var (
		products []model.Product
		err      error
	)
	if q.Has("type") {
		products, err = svc.ReadPerType(r.Context(), q.Get("type"), q.Get("size"))
	} else {
		products, err = svc.Read(r.Context())
	}
	if err != nil {
		middleware.WriteErrorResponse(w, err, notes.Notifications())
		return
	}
	if products == nil {
		products = []model.Product{}
	}

	middleware.WriteData(w, http.StatusOK, products, notes.Notifications())
}

// Paged はページング付きの商品一覧を返す。type, page, limitはすべて必須。
// GET /api/products/paged?type=&page=&limit=
func (h *ProductHandler) Paged(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var fields []model.FieldError
	if !q.Has("type") {
		fields = append(fields, model.FieldError{Field: "type", Message: "required"})
	}
	page, ok := positiveInt(q.Get("page"))
	if !ok {
		fields = append(fields, model.FieldError{Field: "page", Message: "must be a positive integer"})
	}
	limit, ok := positiveInt(q.Get("limit"))
	if !ok {
		fields = append(fields, model.FieldError{Field: "limit", Message: "must be a positive integer"})
	}
	if fields != nil {
		writeInvalidRequest(w, fields)
		return
	}

	svc, notes := h.newService(r)
	paged, err := svc.ReadPaginated(r.Context(), page, limit, q.Get("type"))
	if err != nil {
		middleware.WriteErrorResponse(w, err, notes.Notifications())
		return
	}

	middleware.WriteData(w, http.StatusOK, paged, notes.Notifications())
}

// Create は商品を作成する。
// POST /api/products
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	var p model.Product
	if !decodeJSONBody(w, r, &p) {
		return
	}

	svc, notes := h.newService(r)
	created, err := svc.Create(r.Context(), p)
	if err != nil {
		middleware.WriteErrorResponse(w, err, notes.Notifications())
		return
	}

	middleware.WriteData(w, http.StatusCreated, created, notes.Notifications())
}

// Get は指定IDの商品を返す。
// GET /api/products/{id}
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(w, r)
	if !ok {
		return
	}

	svc, notes := h.newService(r)
	p, err := svc.ReadByID(r.Context(), id)
	if err != nil {
		middleware.WriteErrorResponse(w, err, notes.Notifications())
		return
	}

	middleware.WriteData(w, http.StatusOK, p, notes.Notifications())
}

// Update は指定IDの商品を全体置き換えする。
// PUT /api/products/{id}
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(w, r)
	if !ok {
		return
	}
	var p model.Product
	if !decodeJSONBody(w, r, &p) {
		return
	}

	svc, notes := h.newService(r)
	updated, err := svc.Update(r.Context(), p, id)
	if err != nil {
		middleware.WriteErrorResponse(w, err, notes.Notifications())
		return
	}

	middleware.WriteData(w, http.StatusOK, updated, notes.Notifications())
}

// UpdateStatus は商品の有効フラグのみを更新する。
// PUT /api/products/{id}/update-status
func (h *ProductHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(w, r)
	if !ok {
		return
	}
	var req productStatusRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if req.Status == nil {
		writeInvalidRequest(w, []model.FieldError{{Field: "status", Message: "required"}})
		return
	}

	svc, notes := h.newService(r)
	ack, err := svc.Patch(r.Context(), *req.Status, id)
	if err != nil {
		middleware.WriteErrorResponse(w, err, notes.Notifications())
		return
	}

	middleware.WriteData(w, http.StatusOK, ack, notes.Notifications())
}

// Delete は指定IDの商品を削除する。
// DELETE /api/products/{id}
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(w, r)
	if !ok {
		return
	}

	svc, notes := h.newService(r)
	deleted, err := svc.Delete(r.Context(), id)
	if err != nil {
		middleware.WriteErrorResponse(w, err, notes.Notifications())
		return
	}

	middleware.WriteData(w, http.StatusOK, deleted, notes.Notifications())
}

func productID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, ok := positiveInt(chi.URLParam(r, "id"))
	if !ok {
		writeInvalidRequest(w, []model.FieldError{{Field: "id", Message: "must be a positive integer"}})
	}
	return id, ok
}

func positiveInt(s string) (int, bool) {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// decodeJSONBody はJSONボディを読み取る。失敗時は400を書き込みfalseを返す。
func decodeJSONBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxProductBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeInvalidRequest(w, []model.FieldError{{Field: "body", Message: "invalid JSON"}})
		return false
	}
	return true
}

// writeInvalidRequest はリクエスト不正の400レスポンスを書き込む。
func writeInvalidRequest(w http.ResponseWriter, fields []model.FieldError) {
	err := &model.APIError{
		Kind:    model.KindValidation,
		Message: model.MsgInvalidRequest,
		Fields:  fields,
	}
	middleware.WriteErrorResponse(w, err, []notify.Notification{notify.Error(model.MsgInvalidRequest)})
}
