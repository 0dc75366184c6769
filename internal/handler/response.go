package handler

import (
	"fmt"
	"net/http"
	"unicode"
	"unicode/utf8"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/barista-pos/internal/domain/auth"
	"github.com/xenking/barista-pos/internal/domain/menu"
	"github.com/xenking/barista-pos/internal/domain/order"
	"github.com/xenking/barista-pos/internal/domain/sales"
	"github.com/xenking/barista-pos/internal/domain/user"
	"github.com/xenking/barista-pos/internal/wire"
)

// Client-facing messages for failures that carry no message of their own.
const (
	msgInternal      = "Something went very wrong!"
	msgNotLoggedIn   = "You are not logged in! Please log in to get access."
	msgInvalidToken  = "Invalid token. Please log in again!"
	msgExpiredToken  = "Your token has expired! Please log in again."
	msgInvalidJSON   = "Invalid JSON body"
	msgValidation    = "Validation failed"
	msgInvalidMenuID = "Invalid menu item ID"
)

// fieldMessage is one entry of the "errors" array of a failure envelope.
type fieldMessage struct {
	Field   string
	Message string
}

// apiError is a failure with its client-facing rendering decided.
type apiError struct {
	Status  int
	Message string
	Fields  []fieldMessage
}

func (e *apiError) Error() string { return e.Message }

func fail(status int, message string) error {
	return &apiError{Status: status, Message: message}
}

// writeOK writes a success envelope. data may be nil.
func writeOK(w http.ResponseWriter, status int, message string, data func(e *jx.Encoder)) {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)

	e.Obj(func(e *jx.Encoder) {
		e.Field("success", func(e *jx.Encoder) { e.Bool(true) })
		e.Field("message", func(e *jx.Encoder) { e.Str(message) })
		if data != nil {
			e.Field("data", data)
		}
	})
	writeBody(w, status, e.Bytes())
}

// Failure returns a handler answering every request with a failure envelope.
// It serves the responses of middleware such as the rate limiter.
func Failure(status int, message string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		e := jx.GetEncoder()
		defer jx.PutEncoder(e)
		e.Obj(func(e *jx.Encoder) {
			e.Field("success", func(e *jx.Encoder) { e.Bool(false) })
			e.Field("message", func(e *jx.Encoder) { e.Str(message) })
		})
		writeBody(w, status, e.Bytes())
	}
}

func writeBody(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// writeError renders err as a failure envelope. Errors outside the known
// taxonomy are logged and reported with a generic message.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	ae := classify(err)
	if ae.Status >= http.StatusInternalServerError {
		zctx.From(r.Context()).Error("Request failed", zap.Error(err))
	}

	e := jx.GetEncoder()
	defer jx.PutEncoder(e)

	e.Obj(func(e *jx.Encoder) {
		e.Field("success", func(e *jx.Encoder) { e.Bool(false) })
		e.Field("message", func(e *jx.Encoder) { e.Str(ae.Message) })
		if len(ae.Fields) > 0 {
			e.Field("errors", func(e *jx.Encoder) {
				e.Arr(func(e *jx.Encoder) {
					for _, f := range ae.Fields {
						e.Obj(func(e *jx.Encoder) {
							e.Field("field", func(e *jx.Encoder) { e.Str(f.Field) })
							e.Field("message", func(e *jx.Encoder) { e.Str(f.Message) })
						})
					}
				})
			})
		}
		if h.dev {
			e.Field("stack", func(e *jx.Encoder) { e.Str(fmt.Sprintf("%+v", err)) })
		}
	})
	writeBody(w, ae.Status, e.Bytes())
}

// classify maps domain errors to their HTTP rendering.
func classify(err error) *apiError {
	var (
		ae       *apiError
		wireErr  *wire.FieldError
		authErr  *auth.ValidationError
		queryErr *sales.QueryError
		tokenErr *auth.TokenError
		unknown  *order.UnknownItemError
		qty      *order.InvalidQuantityError
		integ    *order.IntegrityError
	)
	switch {
	case errors.As(err, &ae):
		return ae
	case errors.As(err, &wireErr):
		return &apiError{
			Status:  http.StatusBadRequest,
			Message: msgValidation,
			Fields:  []fieldMessage{{Field: wireErr.Field, Message: wireErr.Field + " " + wireErr.Message}},
		}
	case errors.As(err, &authErr):
		fields := make([]fieldMessage, len(authErr.Fields))
		for i, f := range authErr.Fields {
			fields[i] = fieldMessage{Field: f.Field, Message: f.Message}
		}
		return &apiError{Status: http.StatusBadRequest, Message: fields[0].Message, Fields: fields}
	case errors.As(err, &queryErr):
		return &apiError{
			Status:  http.StatusBadRequest,
			Message: sentence(queryErr.Message),
			Fields:  []fieldMessage{{Field: queryErr.Field, Message: queryErr.Message}},
		}
	case errors.As(err, &unknown):
		return badRequest(unknown)
	case errors.As(err, &qty):
		return badRequest(qty)
	case errors.As(err, &integ):
		return badRequest(integ)
	case errors.Is(err, order.ErrEmptyItems):
		return badRequest(order.ErrEmptyItems)
	case errors.Is(err, user.ErrEmailTaken):
		return badRequest(user.ErrEmailTaken)
	case errors.As(err, &tokenErr):
		return &apiError{Status: http.StatusUnauthorized, Message: tokenMessage(tokenErr)}
	case errors.Is(err, auth.ErrInvalidCredentials):
		return &apiError{Status: http.StatusUnauthorized, Message: sentence(auth.ErrInvalidCredentials.Error())}
	case errors.Is(err, auth.ErrUserGone):
		return &apiError{Status: http.StatusUnauthorized, Message: sentence(auth.ErrUserGone.Error()) + "."}
	case errors.Is(err, order.ErrNotFound):
		return &apiError{Status: http.StatusNotFound, Message: sentence(order.ErrNotFound.Error())}
	case errors.Is(err, menu.ErrNotFound):
		return &apiError{Status: http.StatusNotFound, Message: sentence(menu.ErrNotFound.Error())}
	default:
		return &apiError{Status: http.StatusInternalServerError, Message: msgInternal}
	}
}

func badRequest(err error) *apiError {
	return &apiError{Status: http.StatusBadRequest, Message: sentence(err.Error())}
}

func tokenMessage(err *auth.TokenError) string {
	switch {
	case errors.Is(err, auth.ErrNoToken):
		return msgNotLoggedIn
	case err.Expired():
		return msgExpiredToken
	default:
		return msgInvalidToken
	}
}

// sentence upper-cases the first letter of a domain error message.
func sentence(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
