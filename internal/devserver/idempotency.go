package devserver

import (
	"bytes"
	"log"
	"net/http"

	"client_go/internal/api"
)

type recorder struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (r *recorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *recorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

// Idempotent replays the stored response when a caller repeats an
// Idempotency-Key. Only successful responses are stored, so a failed send
// can be retried with the same key. Requests without a key pass through.
func Idempotent(st *State) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(api.IdempotencyHeader)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}
			scoped := CurrentUser(r) + "|" + r.URL.Path + "|" + key

			if prev, ok := st.lookupReplay(scoped); ok {
				log.Printf("Idempotent: replaying %s for %s", r.URL.Path, CurrentUser(r))
				w.Header().Set("Content-Type", prev.contentType)
				w.Header().Set("Idempotent-Replayed", "true")
				w.WriteHeader(prev.status)
				_, _ = w.Write(prev.body)
				return
			}

			rec := &recorder{ResponseWriter: w}
			next.ServeHTTP(rec, r)
			if rec.status >= 200 && rec.status < 300 {
				st.storeReplay(scoped, replay{
					status:      rec.status,
					contentType: w.Header().Get("Content-Type"),
					body:        rec.body.Bytes(),
				})
			}
		})
	}
}
