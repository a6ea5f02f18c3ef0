//go:build e2e && unix

package main

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// fakeBackend serves a tiny mystery catalogue and records requests
type fakeBackend struct {
	*httptest.Server

	mu       sync.Mutex
	searches []string
	lists    []string
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()
	fb := &fakeBackend{}
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/search", func(w http.ResponseWriter, r *http.Request) {
		fb.mu.Lock()
		fb.searches = append(fb.searches, r.URL.Query().Get("q"))
		fb.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"query":"atl","total":3,"results":[
			{"id":"l-atlantic","type":"Location","text":"Atlantic Ocean","score":0.7},
			{"id":"m-atlantis","type":"Mystery","text":"Atlantis","score":1},
			{"id":"tp-bronze","type":"TimePeriod","text":"Bronze Age","score":0.2}]}`))
	})
	mux.HandleFunc("GET /api/mysteries/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.PathValue("id") {
		case "m-atlantis":
			_, _ = w.Write([]byte(`{"id":"m-atlantis","title":"Atlantis","status":"unresolved","first_reported_year":-360,
				"locations":[{"id":"l-atlantic","name":"Atlantic Ocean"}],"time_periods":[],"categories":[],"similar_mysteries":[]}`))
		case "m-bermuda":
			_, _ = w.Write([]byte(`{"id":"m-bermuda","title":"Bermuda Triangle","status":"debunked",
				"locations":[],"time_periods":[],"categories":[],"similar_mysteries":[]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"NotFoundError","message":"no such mystery","status_code":404}`))
		}
	})
	mux.HandleFunc("GET /api/mysteries", func(w http.ResponseWriter, r *http.Request) {
		fb.mu.Lock()
		fb.lists = append(fb.lists, r.URL.RawQuery)
		fb.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"mysteries":[
			{"id":"m-atlantis","title":"Atlantis","status":"unresolved"},
			{"id":"m-bermuda","title":"Bermuda Triangle","status":"debunked"}],"total":2,"limit":50,"offset":0}`))
	})
	mux.HandleFunc("POST /api/tts/warmup", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	mux.HandleFunc("POST /api/tts", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"audio_url":"/static/audio/ab12.wav","cached":false}`))
	})

	fb.Server = httptest.NewServer(mux)
	t.Cleanup(fb.Close)
	return fb
}

func (fb *fakeBackend) Searches() []string {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return append([]string(nil), fb.searches...)
}

func (fb *fakeBackend) Lists() []string {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return append([]string(nil), fb.lists...)
}
