package http

import (
	"net/http"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/navgrid/cellgrid"
	"github.com/segmentio/encoding/json"
)

// HandleWithCORS allows the wrapped handler to be called from any origin.
func HandleWithCORS(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		h.ServeHTTP(w, r)
	})
}

func HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func HandleReadyCheck(readinessCheck func() bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !readinessCheck() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

func HandleVersion(version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(version))
	}
}

// GridState is the body returned by the grid state handler.
type GridState struct {
	cellgrid.DebugInfo

	// Set when invariants were checked and one does not hold.
	InvariantError string `json:"invariant_error,omitempty"`
}

// GridInspector gives a consistent view of a grid. Implementations must
// serialize the calls with grid mutations.
type GridInspector interface {
	DebugInfo() cellgrid.DebugInfo
	CheckInvariants() error
}

// HandleGridState writes the grid state as JSON. The invariants are checked
// when the check query parameter is set.
func HandleGridState(grid GridInspector) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		state := GridState{
			DebugInfo: grid.DebugInfo(),
		}
		if r.URL.Query().Has("check") {
			if err := grid.CheckInvariants(); err != nil {
				state.InvariantError = err.Error()
			}
		}

		body, err := json.Marshal(state)
		if err != nil {
			logs.Warn(errors.New("encoding grid state failed").Wrap(err))
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if state.InvariantError != "" {
			w.WriteHeader(http.StatusConflict)
		} else {
			w.WriteHeader(http.StatusOK)
		}
		w.Write(body)
	}
}
