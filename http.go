package banklink

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

const (
	maxRequestBytes = 1 << 20
)

var (
	statusOK = []byte(`{"status":"OK"}`)
	validate = newValidator()
)

type accountJSONResp struct {
	ID      int64  `json:"id"`
	Balance string `json:"balance"`
}

type creditJSONReq struct {
	ToID     *int64           `json:"to_id" validate:"required"`
	Amount   *decimal.Decimal `json:"amount" validate:"required"`
	FromBank string           `json:"from_bank" validate:"required"`
	FromID   *int64           `json:"from_id" validate:"required"`
}

type creditJSONResp struct {
	Status     string `json:"status"`
	CreditedTo int64  `json:"credited_to"`
	Amount     string `json:"amount"`
}

type transferJSONReq struct {
	FromID *int64           `json:"from_id" validate:"required"`
	ToID   *int64           `json:"to_id" validate:"required"`
	Amount *decimal.Decimal `json:"amount" validate:"required"`
}

type transferJSONResp struct {
	Status      string `json:"status"`
	DebitedFrom int64  `json:"debited_from"`
	CreditedTo  int64  `json:"credited_to"`
	Amount      string `json:"amount"`
	TransferID  string `json:"transfer_id"`
}

type errorJSONResp struct {
	Error      string            `json:"error"`
	Details    string            `json:"details,omitempty"`
	Fields     map[string]string `json:"fields,omitempty"`
	DestStatus int               `json:"dest_status,omitempty"`
	DestBody   string            `json:"dest_body,omitempty"`
}

func NewHTTPHandler(svc Service, log *zerolog.Logger) http.Handler {
	hndlr := &httpHandler{
		Svc: svc,
		Log: log,
	}
	mux := chi.NewMux()
	mux.Use(middleware.RequestID, middleware.Recoverer)
	mux.NotFound(HTTPNotFound)
	mux.Get("/health", Health)
	mux.Route("/api", func(r chi.Router) {
		r.Route("/account/{acctID:[0-9]+}", func(rr chi.Router) {
			rr.Get("/", hndlr.Account)
			rr.Get("/statement", hndlr.Statement)
		})
		r.Post("/receive", hndlr.Receive)
		r.Post("/transfer", hndlr.Transfer)
	})
	mux.Post("/transfer", hndlr.TransferForm)

	return mux
}

type httpHandler struct {
	Svc Service
	Log *zerolog.Logger
}

func (h *httpHandler) Account(w http.ResponseWriter, r *http.Request) {
	acctID, err := parseAcctID(r)
	if err != nil {
		h.Log.Err(err).Str("method", "account").Msg("error parsing account ID")
		WriteHTTPError(w, err)
		return
	}
	acct, err := h.Svc.Account(r.Context(), acctID)
	if err != nil {
		WriteHTTPError(w, err)
		return
	}

	writeJSON(w, accountJSONResp{ID: acct.ID, Balance: acct.Balance.StringFixed(2)})
}

func (h *httpHandler) Statement(w http.ResponseWriter, r *http.Request) {
	acctID, err := parseAcctID(r)
	if err != nil {
		h.Log.Err(err).Str("method", "statement").Msg("error parsing account ID")
		WriteHTTPError(w, err)
		return
	}
	buf := new(bytes.Buffer)
	if err = h.Svc.Statement(r.Context(), buf, acctID); err != nil {
		WriteHTTPError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	if _, err = buf.WriteTo(w); err != nil {
		h.Log.Err(err).Str("method", "statement").Msg("error writing HTTP response")
	}
}

func (h *httpHandler) Receive(w http.ResponseWriter, r *http.Request) {
	var req creditJSONReq
	if err := h.decodeJSON(w, r, "receive", &req); err != nil {
		WriteHTTPError(w, err)
		return
	}
	creq := CreditReq{
		ToID:     *req.ToID,
		Amount:   *req.Amount,
		FromBank: req.FromBank,
		FromID:   *req.FromID,
	}
	if tid, err := snowflake.ParseString(r.Header.Get(transferIDHeader)); err == nil {
		creq.TransferID = tid
	}

	res, err := h.Svc.ReceiveCredit(r.Context(), creq)
	if err != nil {
		WriteHTTPError(w, err)
		return
	}

	writeJSON(w, creditJSONResp{
		Status:     "ok",
		CreditedTo: res.ToID,
		Amount:     res.Amount.StringFixed(2),
	})
}

func (h *httpHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	var req transferJSONReq
	if err := h.decodeJSON(w, r, "transfer", &req); err != nil {
		WriteHTTPError(w, err)
		return
	}
	treq := TransferReq{
		FromID: *req.FromID,
		ToID:   *req.ToID,
		Amount: *req.Amount,
	}

	res, err := h.Svc.Transfer(r.Context(), treq)
	if err != nil {
		WriteHTTPError(w, err)
		return
	}

	writeJSON(w, transferResp(res))
}

// TransferForm serves HTML form posts. Failures are plain text.
func (h *httpHandler) TransferForm(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)
	if err := r.ParseForm(); err != nil {
		h.Log.Err(err).Str("method", "transfer_form").Msg("error parsing form")
		http.Error(w, "invalid data", http.StatusBadRequest)
		return
	}
	fromID, ferr := strconv.ParseInt(r.PostForm.Get("from_id"), 10, 64)
	toID, terr := strconv.ParseInt(r.PostForm.Get("to_id"), 10, 64)
	amount, aerr := decimal.NewFromString(strings.TrimSpace(r.PostForm.Get("amount")))
	if err := errors.Join(ferr, terr, aerr); err != nil {
		h.Log.Err(err).Str("method", "transfer_form").Msg("invalid form fields")
		http.Error(w, "invalid data", http.StatusBadRequest)
		return
	}

	res, err := h.Svc.Transfer(r.Context(), TransferReq{FromID: fromID, ToID: toID, Amount: amount})
	if err != nil {
		http.Error(w, ErrorCategory(err)+": "+err.Error(), httpStatus(err))
		return
	}

	writeJSON(w, transferResp(res))
}

func (h *httpHandler) decodeJSON(w http.ResponseWriter, r *http.Request, method string, v any) error {
	buf, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	defer r.Body.Close()
	if err != nil {
		h.Log.Err(err).Str("method", method).Msg("error reading HTTP request")
		return ErrBadRequest{Fields: map[string]string{"request body": "unreadable"}}
	}
	if err = json.Unmarshal(buf, v); err != nil {
		h.Log.Err(err).Str("method", method).Msg("error unmarshalling JSON")
		return ErrBadRequest{Fields: map[string]string{"request body": "malformed JSON"}}
	}
	if err = validateReq(v); err != nil {
		h.Log.Err(err).Str("method", method).Msg("invalid payload")
		return err
	}
	return nil
}

func transferResp(res *TransferResult) transferJSONResp {
	return transferJSONResp{
		Status:      "ok",
		DebitedFrom: res.FromID,
		CreditedTo:  res.ToID,
		Amount:      res.Amount.StringFixed(2),
		TransferID:  res.TransferID.String(),
	}
}

func parseAcctID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "acctID"), 10, 64)
	if err != nil {
		return 0, ErrBadRequest{Fields: map[string]string{"acctID": "invalid format"}}
	}
	return id, nil
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func validateReq(req any) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return ErrBadRequest{Fields: map[string]string{"request body": err.Error()}}
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fe.Tag()
	}
	return ErrBadRequest{Fields: fields}
}

func httpStatus(err error) int {
	switch ErrorCategory(err) {
	case "InvalidPayload", "InvalidAmount", "InsufficientFunds":
		return http.StatusBadRequest
	case "NotFound":
		return http.StatusNotFound
	case "DestinationRejected", "NetworkError":
		return http.StatusBadGateway
	case "Overloaded":
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().
			Err(err).
			Msg("response encoding failed")
	}
}

func WriteHTTPError(w http.ResponseWriter, err error) {
	var ne error
	defer func() {
		if ne != nil {
			log.Error().
				Err(ne).
				Msg("error response encoding failed")
		}
	}()

	category := ErrorCategory(err)
	resp := errorJSONResp{Error: category}
	var (
		errbr ErrBadRequest
		errdr ErrDestinationRejected
	)
	switch {
	case errors.As(err, &errbr):
		resp.Fields = errbr.Fields
	case category == "CompensationFailed":
		resp.Details = err.Error()
	case errors.As(err, &errdr):
		resp.DestStatus = errdr.Status
		resp.DestBody = errdr.Body
	case category == "InternalError":
		resp.Details = "server error"
	default:
		resp.Details = err.Error()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus(err))
	ne = json.NewEncoder(w).Encode(resp)
}

func Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write(statusOK)
}

func HTTPNotFound(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	resp := map[string]string{
		"path": r.URL.Path,
	}
	json.NewEncoder(w).Encode(resp)
}
