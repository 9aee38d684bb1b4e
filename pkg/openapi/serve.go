package openapi

import (
	"encoding/json"
	"net/http"
	"sync"
)

// ServeSpec returns a handler serving the spec as JSON. The document is
// marshaled once on first request.
func ServeSpec(spec *Spec) http.HandlerFunc {
	var (
		once sync.Once
		body []byte
		err  error
	)

	return func(w http.ResponseWriter, r *http.Request) {
		once.Do(func() {
			body, err = json.Marshal(spec)
		})

		if err != nil {
			http.Error(w, "failed to render openapi spec", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write(body)
	}
}
