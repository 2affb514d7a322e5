// Package api exposes the merged price table over HTTP, read-only.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"pricecompare/services"
	"pricecompare/utils"
)

// Searcher is the single operation the API depends on.
type Searcher interface {
	Aggregate(ctx context.Context, query string, useCache bool) (*services.Result, error)
}

type listingJSON struct {
	Item      string  `json:"item"`
	Price     float64 `json:"price"`
	URL       string  `json:"url"`
	Img       string  `json:"img"`
	Condition string  `json:"condition"`
}

type failureJSON struct {
	Source string `json:"source"`
	Error  string `json:"error"`
}

type searchResponse struct {
	Query    string        `json:"query"`
	Cached   bool          `json:"cached"`
	Count    int           `json:"count"`
	Failures []failureJSON `json:"failures,omitempty"`
	Rows     []listingJSON `json:"rows"`
}

type errorResponse struct {
	Error    string        `json:"error"`
	Failures []failureJSON `json:"failures,omitempty"`
}

func NewRouter(s Searcher) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", health).Methods(http.MethodGet)
	r.HandleFunc("/search", search(s)).Methods(http.MethodGet)
	return r
}

func health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func search(s Searcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := strings.TrimSpace(r.URL.Query().Get("q"))

		useCache := true
		if raw := r.URL.Query().Get("cache"); raw != "" {
			v, err := strconv.ParseBool(raw)
			if err != nil {
				writeJSON(w, http.StatusBadRequest, errorResponse{Error: "cache must be a boolean"})
				return
			}
			useCache = v
		}

		res, err := s.Aggregate(r.Context(), query, useCache)
		if err != nil {
			var ae *services.AggregateError
			if errors.As(err, &ae) {
				writeJSON(w, http.StatusBadGateway, errorResponse{Error: err.Error(), Failures: failures(ae.Failures)})
				return
			}
			utils.Error("search %q: %v", query, err)
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
			return
		}

		resp := searchResponse{
			Query:    res.Query,
			Cached:   res.Cached,
			Count:    res.Table.Len(),
			Failures: failures(res.Failures),
			Rows:     make([]listingJSON, 0, res.Table.Len()),
		}
		for _, l := range res.Table.Rows {
			resp.Rows = append(resp.Rows, listingJSON{
				Item:      l.Title,
				Price:     l.Price,
				URL:       l.URL,
				Img:       l.Image,
				Condition: l.Condition,
			})
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func failures(in []services.SourceFailure) []failureJSON {
	if len(in) == 0 {
		return nil
	}
	out := make([]failureJSON, 0, len(in))
	for _, f := range in {
		out = append(out, failureJSON{Source: f.Source, Error: f.Err.Error()})
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		utils.Error("encode response: %v", err)
	}
}
