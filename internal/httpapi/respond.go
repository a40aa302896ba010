package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"smartlotto.org/internal/apperr"
	"smartlotto.org/internal/audit"
	"smartlotto.org/internal/obs"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	payload := map[string]any{
		"error": msg,
	}
	if rid := audit.RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, code, payload)
}

// writeAppError maps the failure kind onto an HTTP status. Causes of 5xx
// responses are logged, never returned.
func writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	kind := apperr.KindOf(err)
	switch kind {
	case apperr.KindUnauthorized:
		w.Header().Set("WWW-Authenticate", `Bearer realm="smartlotto"`)
		writeError(w, r, http.StatusUnauthorized, publicMessage(err))
	case apperr.KindNotFound:
		writeError(w, r, http.StatusNotFound, publicMessage(err))
	case apperr.KindBadRequest:
		writeError(w, r, http.StatusBadRequest, publicMessage(err))
	case apperr.KindConflict:
		writeError(w, r, http.StatusConflict, publicMessage(err))
	default:
		obs.LoggerFrom(r.Context()).Error("request failed",
			zap.String("kind", string(kind)),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		msg := "internal error"
		if kind == apperr.KindAudit {
			msg = "change log write failed; nothing was changed"
		}
		writeError(w, r, http.StatusInternalServerError, msg)
	}
}

func publicMessage(err error) string {
	var e *apperr.Error
	if errors.As(err, &e) && e.Msg != "" {
		return e.Msg
	}
	return strings.ReplaceAll(string(apperr.KindOf(err)), "_", " ")
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	reader := http.MaxBytesReader(w, r.Body, 1<<20)
	defer reader.Close()
	dec := json.NewDecoder(reader)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}

func queryInt(r *http.Request, key string) (int64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < 0 {
		return 0, apperr.BadRequest("httpapi.query", key+" must be a non-negative integer")
	}
	return v, nil
}
