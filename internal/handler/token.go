package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Amr-9/VanityMint/internal/idempotency"
	"github.com/Amr-9/VanityMint/internal/logger"
	"github.com/Amr-9/VanityMint/internal/middleware"
	"github.com/Amr-9/VanityMint/internal/service"
	"github.com/Amr-9/VanityMint/pkg/generator"
	"github.com/Amr-9/VanityMint/pkg/mint"
	"github.com/Amr-9/VanityMint/pkg/pinning"
)

// IdempotencyHeader lets clients retry POST /api/tokens safely.
const IdempotencyHeader = "Idempotency-Key"

// TokenService is the flow the handlers drive.
type TokenService interface {
	CreateToken(ctx context.Context, sess service.Session, in service.Input) (*service.Receipt, error)
	SearchAddress(ctx context.Context, prefix string, maxAttempts uint64) (generator.Result, error)
}

// TokenHandlerConfig wires a TokenHandler.
type TokenHandlerConfig struct {
	Service        TokenService
	Session        func(r *http.Request) service.Session
	Idempotency    idempotency.Store // nil disables Idempotency-Key handling
	MaxUploadBytes int64
	RequestTimeout time.Duration
	Logger         *zap.Logger
}

// TokenHandler serves the vanity search and token creation endpoints.
type TokenHandler struct {
	cfg TokenHandlerConfig
}

// NewTokenHandler creates a TokenHandler.
func NewTokenHandler(cfg TokenHandlerConfig) *TokenHandler {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 5 << 20
	}
	if cfg.Session == nil {
		cfg.Session = func(*http.Request) service.Session { return service.Session{} }
	}
	return &TokenHandler{cfg: cfg}
}

// VanityResponse carries a freshly found keypair back to the caller.
// SecretKey is the 64-byte Solana secret key as a JSON byte array.
type VanityResponse struct {
	PublicKey string `json:"publicKey"`
	SecretKey []int  `json:"secretKey"`
	Attempts  uint64 `json:"attempts"`
	ElapsedMs int64  `json:"elapsedMs"`
}

// Vanity searches for a keypair whose address starts with prefix.
//
// GET /api/vanity?prefix=<p>&max_attempts=<n>
func (h *TokenHandler) Vanity(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")

	q := r.URL.Query()
	prefix := q.Get("prefix")
	if prefix == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "prefix is required", Code: "validation", Field: "prefix"})
		return
	}

	var maxAttempts uint64
	if raw := q.Get("max_attempts"); raw != "" {
		n, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "max_attempts must be a positive integer", Code: "validation", Field: "max_attempts"})
			return
		}
		maxAttempts = n
	}

	ctx, cancel := h.withTimeout(r.Context())
	defer cancel()

	res, err := h.cfg.Service.SearchAddress(ctx, prefix, maxAttempts)
	if err != nil {
		h.writeFlowError(w, r, err)
		return
	}
	defer res.Keypair.Wipe()

	secret := make([]int, len(res.Keypair.PrivateKey))
	for i, b := range res.Keypair.PrivateKey {
		secret[i] = int(b)
	}
	writeJSON(w, http.StatusOK, VanityResponse{
		PublicKey: res.Address,
		SecretKey: secret,
		Attempts:  res.Attempts,
		ElapsedMs: res.Elapsed.Milliseconds(),
	})
}

// CreateToken runs the full flow from a multipart token form.
//
// POST /api/tokens
func (h *TokenHandler) CreateToken(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(h.cfg.MaxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "too_large", "upload exceeds the size limit")
			return
		}
		writeError(w, http.StatusBadRequest, "validation", "expected a multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	in, fieldErr := parseTokenForm(r)
	if fieldErr != nil {
		writeJSON(w, http.StatusBadRequest, *fieldErr)
		return
	}
	if c, ok := in.Icon.Body.(io.Closer); ok {
		defer c.Close()
	}

	key := strings.TrimSpace(r.Header.Get(IdempotencyHeader))
	if key != "" && h.cfg.Idempotency != nil {
		existing, err := h.cfg.Idempotency.Reserve(r.Context(), key)
		if err != nil {
			h.cfg.Logger.Error("idempotency reserve failed", zap.Error(err))
			writeError(w, http.StatusServiceUnavailable, "unavailable", "try again later")
			return
		}
		if existing != nil {
			h.replay(w, existing)
			return
		}
	}

	ctx, cancel := h.withTimeout(r.Context())
	defer cancel()

	receipt, err := h.cfg.Service.CreateToken(ctx, h.cfg.Session(r), in)
	if err != nil {
		status, resp := h.flowError(r, err)
		if key != "" && h.cfg.Idempotency != nil {
			h.settleFailedKey(context.WithoutCancel(r.Context()), key, err, status, resp)
		}
		writeJSON(w, status, resp)
		return
	}

	body, err := json.Marshal(receipt)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}
	if key != "" && h.cfg.Idempotency != nil {
		if err := h.cfg.Idempotency.Complete(context.WithoutCancel(r.Context()), key, http.StatusCreated, body); err != nil {
			h.cfg.Logger.Error("idempotency complete failed", zap.Error(err))
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_, _ = w.Write(append(body, '\n'))
}

func (h *TokenHandler) replay(w http.ResponseWriter, rec *idempotency.Record) {
	if rec.State != idempotency.StateCompleted {
		writeError(w, http.StatusConflict, "in_progress", "a request with this Idempotency-Key is still running")
		return
	}
	status := rec.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Idempotent-Replayed", "true")
	w.WriteHeader(status)
	_, _ = w.Write(bytes.TrimRight(rec.Payload, "\n"))
}

func (h *TokenHandler) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if h.cfg.RequestTimeout > 0 {
		return context.WithTimeout(ctx, h.cfg.RequestTimeout)
	}
	return context.WithCancel(ctx)
}

// settleFailedKey releases the key so the client can retry, unless a mint
// transaction already reached the network. Then the failure is stored under
// the key, since a fresh attempt could mint a second token if the first one
// lands late.
func (h *TokenHandler) settleFailedKey(ctx context.Context, key string, err error, status int, resp ErrorResponse) {
	if _, sent := mint.SentSignature(err); !sent {
		if relErr := h.cfg.Idempotency.Release(ctx, key); relErr != nil {
			h.cfg.Logger.Warn("idempotency release failed", zap.Error(relErr))
		}
		return
	}

	body, mErr := json.Marshal(resp)
	if mErr != nil {
		h.cfg.Logger.Error("idempotency failure encode failed", zap.Error(mErr))
		return
	}
	if cErr := h.cfg.Idempotency.Complete(ctx, key, status, body); cErr != nil {
		h.cfg.Logger.Error("idempotency complete failed", zap.Error(cErr))
		return
	}
	h.cfg.Logger.Warn("idempotency key kept after unconfirmed mint",
		zap.String("signature", logger.MaskShort(resp.Signature)),
	)
}

func (h *TokenHandler) writeFlowError(w http.ResponseWriter, r *http.Request, err error) {
	status, resp := h.flowError(r, err)
	writeJSON(w, status, resp)
}

func (h *TokenHandler) flowError(r *http.Request, err error) (int, ErrorResponse) {
	kind := service.KindOf(err)
	resp := ErrorResponse{Error: service.UserMessage(err), Code: kind.String()}

	var ve *service.ValidationError
	if errors.As(err, &ve) {
		resp.Field = ve.Field
	}
	if sig, sent := mint.SentSignature(err); sent {
		resp.Signature = sig
	}

	status := statusFor(kind)
	if status >= 500 {
		h.cfg.Logger.Error("request failed",
			zap.String("request_id", middleware.GetRequestID(r.Context())),
			zap.String("kind", kind.String()),
			zap.Error(err),
		)
	}
	return status, resp
}

func statusFor(kind service.Kind) int {
	switch kind {
	case service.KindValidation:
		return http.StatusBadRequest
	case service.KindPrecondition:
		return http.StatusPreconditionFailed
	case service.KindExhausted:
		return http.StatusUnprocessableEntity
	case service.KindUpload, service.KindSubmission:
		return http.StatusBadGateway
	case service.KindCancelled:
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

func parseTokenForm(r *http.Request) (service.Input, *ErrorResponse) {
	bad := func(field, msg string) (service.Input, *ErrorResponse) {
		return service.Input{}, &ErrorResponse{Error: field + ": " + msg, Code: "validation", Field: field}
	}

	in := service.Input{
		Name:   r.FormValue("name"),
		Symbol: r.FormValue("symbol"),
		Supply: r.FormValue("supply"),
		Prefix: r.FormValue("prefix"),
		Owner:  strings.TrimSpace(r.FormValue("owner")),
	}

	raw := strings.TrimSpace(r.FormValue("decimals"))
	if raw == "" {
		return bad("decimals", "is required")
	}
	d, err := strconv.Atoi(raw)
	if err != nil {
		return bad("decimals", "must be an integer")
	}
	in.Decimals = d

	if raw = strings.TrimSpace(r.FormValue("max_attempts")); raw != "" {
		n, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return bad("max_attempts", "must be a positive integer")
		}
		in.MaxAttempts = n
	}

	file, hdr, err := r.FormFile("icon")
	if err != nil {
		return bad("icon", "is required")
	}
	in.Icon = pinning.Icon{
		Filename:    hdr.Filename,
		ContentType: hdr.Header.Get("Content-Type"),
		Body:        file,
	}
	return in, nil
}
