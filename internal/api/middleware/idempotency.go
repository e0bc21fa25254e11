package middleware

import (
	"bufio"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/rpg-librarium/liberation/internal/api/handler"
	"github.com/rpg-librarium/liberation/internal/api/metrics"
	"github.com/rpg-librarium/liberation/internal/core/ports"
)

const (
	HeaderIdempotencyKey = "Idempotency-Key"
	headerReplayed       = "Idempotent-Replayed"
	maxIdempotencyKeyLen = 255
)

// Idempotency replays the first successful response of a request that
// carries an Idempotency-Key. Keys are scoped per authenticated caller and
// bound to the method, path and body of the request that claimed them.
// While that request is running, repeats get 409; a different request under
// the same key gets 422. Store failures are logged and the request proceeds
// unprotected.
func Idempotency(store ports.IdempotencyStore, log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := c.Request().Header.Get(HeaderIdempotencyKey)
			if store == nil || key == "" {
				return next(c)
			}
			if len(key) > maxIdempotencyKeyLen {
				return echo.NewHTTPError(http.StatusBadRequest, "idempotency key too long")
			}

			fingerprint, err := requestFingerprint(c.Request())
			if err != nil {
				return err
			}

			scope := "anonymous"
			if id := handler.CurrentIdentity(c); id != nil {
				scope = id.Username
			}
			ctx := c.Request().Context()

			existing, err := store.Reserve(ctx, scope, key, fingerprint)
			if err != nil {
				log.Warn().Err(err).Msg("idempotency reserve failed")
				return next(c)
			}
			if existing != nil {
				return replay(c, existing, fingerprint)
			}

			body := new(bytes.Buffer)
			res := c.Response()
			res.Writer = &bodyCaptureWriter{Writer: io.MultiWriter(res.Writer, body), ResponseWriter: res.Writer}

			err = next(c)
			if err != nil || res.Status < 200 || res.Status >= 300 {
				if rerr := store.Release(context.WithoutCancel(ctx), scope, key); rerr != nil {
					log.Warn().Err(rerr).Msg("idempotency release failed")
				}
				return err
			}

			resp := ports.StoredResponse{
				Fingerprint: fingerprint,
				Status:      res.Status,
				ContentType: res.Header().Get(echo.HeaderContentType),
				Body:        body.Bytes(),
			}
			if err := store.Complete(context.WithoutCancel(ctx), scope, key, resp); err != nil {
				log.Warn().Err(err).Msg("idempotency save failed")
			}
			return nil
		}
	}
}

func replay(c echo.Context, stored *ports.StoredResponse, fingerprint string) error {
	if stored.Fingerprint != fingerprint {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "idempotency key reused with a different request")
	}
	if stored.Pending {
		return echo.NewHTTPError(http.StatusConflict, "request with this idempotency key is in progress")
	}

	metrics.IdempotentReplaysTotal.Inc()
	c.Response().Header().Set(headerReplayed, "true")
	contentType := stored.ContentType
	if contentType == "" {
		contentType = echo.MIMEApplicationJSON
	}
	return c.Blob(stored.Status, contentType, stored.Body)
}

// requestFingerprint hashes method, path and body. The body is restored for
// the handler.
func requestFingerprint(req *http.Request) (string, error) {
	var payload []byte
	if req.Body != nil {
		b, err := io.ReadAll(req.Body)
		if err != nil {
			return "", err
		}
		_ = req.Body.Close()
		req.Body = io.NopCloser(bytes.NewReader(b))
		payload = b
	}

	h := sha256.New()
	h.Write([]byte(req.Method))
	h.Write([]byte{0})
	h.Write([]byte(req.URL.Path))
	h.Write([]byte{0})
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// bodyCaptureWriter tees the response body, following echo's BodyDump.
type bodyCaptureWriter struct {
	io.Writer
	http.ResponseWriter
}

func (w *bodyCaptureWriter) WriteHeader(code int) {
	w.ResponseWriter.WriteHeader(code)
}

func (w *bodyCaptureWriter) Write(b []byte) (int, error) {
	return w.Writer.Write(b)
}

func (w *bodyCaptureWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (w *bodyCaptureWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := w.ResponseWriter.(http.Hijacker); ok {
		return h.Hijack()
	}
	return nil, nil, errors.New("response writer does not support hijacking")
}

func (w *bodyCaptureWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
