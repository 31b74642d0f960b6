package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"slices"

	"github.com/sirupsen/logrus"

	"github.com/hedisam/assetd/server/internal/store"
)

const maxJSONBodySize = 1 << 20

var (
	pathParamRegex = regexp.MustCompile(`{([^}]+)}`)
)

// Err defines an error type that can be enriched with a http status code.
type Err struct {
	Message string
	Status  int
}

// Error implements the std error type.
func (e *Err) Error() string {
	return fmt.Sprintf("Error Code: %d Message: %s", e.Status, e.Message)
}

func NewErrf(status int, msg string, a ...any) *Err {
	return &Err{
		Message: fmt.Sprintf(msg, a...),
		Status:  status,
	}
}

// StatusFor maps a store error to the http status it is reported with.
func StatusFor(err error) int {
	var stErr *Err
	switch {
	case errors.As(err, &stErr):
		return stErr.Status
	case errors.Is(err, store.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, store.ErrValidation),
		errors.Is(err, store.ErrTooManyFiles),
		errors.Is(err, store.ErrInvalidURL):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrFetchFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Func defines a server Func that implements an restful api endpoint.
type Func[Req any, Resp any] func(ctx context.Context, req *Req) (*Resp, error)

type Mux interface {
	HandleFunc(pattern string, f func(w http.ResponseWriter, r *http.Request))
}

// Middleware wraps a handler registered through RegisterFunc.
type Middleware func(next http.HandlerFunc) http.HandlerFunc

func RegisterFunc[Req any, Resp any](logger *logrus.Logger, mux Mux, method, endpoint string, f Func[Req, Resp], mws ...Middleware) {
	var pathParamKeys []string
	matches := pathParamRegex.FindAllStringSubmatch(endpoint, -1)
	for match := range slices.Values(matches) {
		pathParamKeys = append(pathParamKeys, match[1])
	}
	pattern := fmt.Sprintf("%s %s", method, endpoint)

	handler := FuncAdapter(logger, f, pathParamKeys...)
	for mw := range slices.Values(mws) {
		handler = mw(handler)
	}
	mux.HandleFunc(pattern, handler)
}

// FuncAdapter accepts a server Func and returns a http.HandlerFunc that can be used for API endpoint registration.
// This saves us from explicitly writing http responses or errors each time we need to terminate or return from the
// function. It gives us the ability to simply return a response and error, just like gRPC server methods.
// It also makes unit testing easier as it eliminates the need for a mock http server in every test.
func FuncAdapter[Req any, Resp any](log *logrus.Logger, f Func[Req, Resp], pathParamKeys ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.WithContext(r.Context()).WithFields(logrus.Fields{
			"method":  r.Method,
			"path":    r.URL.Path,
			"pattern": r.Pattern,
			"query":   r.URL.Query(),
		})
		logger.Debug("Handling request in FuncAdapter")

		reqData := make(map[string]any)

		// populate the request body values first, if any.
		if r.Body != nil && r.Body != http.NoBody {
			err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBodySize)).Decode(&reqData)
			if err != nil && !errors.Is(err, io.EOF) {
				logger.WithError(err).Warn("Failed to unmarshal request body in FuncAdapter")
				http.Error(w, fmt.Sprintf("unmarshal request body: %q", err.Error()), http.StatusBadRequest)
				return
			}
		}

		// then populate query param values, replacing request body values if there's any conflict.
		for qParam, val := range r.URL.Query() {
			switch {
			case len(val) == 1:
				reqData[qParam] = val[0]
			case len(val) > 1:
				reqData[qParam] = val
			}
		}

		// final step, populate url path values which can replace existing values populated
		// from query params and req body values
		for param := range slices.Values(pathParamKeys) {
			if val := r.PathValue(param); val != "" {
				reqData[param] = val
			}
		}

		reqBody, err := json.Marshal(reqData)
		if err != nil {
			logger.WithError(err).Error("Failed to marshal merged request data in FuncAdapter")
			http.Error(w, fmt.Sprintf("marshal merged request data: %q", err.Error()), http.StatusInternalServerError)
			return
		}

		var req Req
		err = json.Unmarshal(reqBody, &req)
		if err != nil {
			logger.WithError(err).Warn("Failed to unmarshal merged request body in FuncAdapter")
			http.Error(w, fmt.Sprintf("unmarshal merged request body: %q", err.Error()), http.StatusBadRequest)
			return
		}

		ctx := r.Context()
		for k, v := range r.Header {
			ctx = context.WithValue(ctx, k, v)
		}

		resp, err := f(ctx, &req)
		if err != nil {
			var stErr *Err
			if !errors.As(err, &stErr) {
				stErr = &Err{
					Message: err.Error(),
					Status:  StatusFor(err),
				}
			}
			http.Error(w, stErr.Message, stErr.Status)
			return
		}

		writeJSON(logger, w, http.StatusOK, resp)
	}
}

func writeJSON(logger *logrus.Entry, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		logger.WithError(err).Error("Failed to write response body")
	}
}
