package storage

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strings"
	"sync"
	"testing"
)

// fakeSupabase serves the subset of the Storage API used by Supabase.
type fakeSupabase struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	upserts []string
}

func (f *fakeSupabase) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Authorization") != "Bearer service-key" || r.Header.Get("apikey") != "service-key" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	p, _ := url.PathUnescape(r.URL.EscapedPath())
	const listPath = "/storage/v1/object/list/meeting"
	const objPath = "/storage/v1/object/meeting"

	switch {
	case r.Method == http.MethodPost && p == listPath:
		var req listRequest
		json.NewDecoder(r.Body).Decode(&req)
		var names []string
		for k := range f.objects {
			rest, ok := strings.CutPrefix(k, req.Prefix+"/")
			if ok && !strings.Contains(rest, "/") {
				names = append(names, rest)
			}
		}
		sort.Strings(names)
		out := []map[string]any{{"name": "folder", "id": nil}}
		for _, n := range names {
			out = append(out, map[string]any{"name": n, "id": "id-" + n, "metadata": map[string]any{"size": len(f.objects[req.Prefix+"/"+n])}})
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(out)

	case r.Method == http.MethodDelete && p == objPath:
		var req struct{ Prefixes []string }
		json.NewDecoder(r.Body).Decode(&req)
		for _, k := range req.Prefixes {
			delete(f.objects, k)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, "[]")

	case strings.HasPrefix(p, objPath+"/"):
		key := strings.TrimPrefix(p, objPath+"/")
		switch r.Method {
		case http.MethodPost:
			if r.Header.Get("x-upsert") != "true" {
				if _, ok := f.objects[key]; ok {
					w.WriteHeader(http.StatusBadRequest)
					io.WriteString(w, `{"statusCode":"409","error":"Duplicate","message":"The resource already exists"}`)
					return
				}
			}
			b, _ := io.ReadAll(r.Body)
			f.objects[key] = b
			f.types[key] = r.Header.Get("Content-Type")
			f.upserts = append(f.upserts, key)
			w.Header().Set("Content-Type", "application/json")
			io.WriteString(w, `{"Key":"meeting/`+key+`"}`)
		case http.MethodGet, http.MethodHead:
			b, ok := f.objects[key]
			if !ok {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusBadRequest)
				io.WriteString(w, `{"statusCode":"404","error":"not_found","message":"Object not found"}`)
				return
			}
			w.Write(b)
		}
	default:
		http.NotFound(w, r)
	}
}

func newTestSupabase(t *testing.T) (*Supabase, *fakeSupabase) {
	t.Helper()
	fake := &fakeSupabase{objects: map[string][]byte{}, types: map[string]string{}}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	s, err := NewSupabase(SupabaseConfig{URL: srv.URL + "/", Key: "service-key", Bucket: "meeting"})
	if err != nil {
		t.Fatal(err)
	}
	return s, fake
}

func TestSupabaseContentType(t *testing.T) {
	s, fake := newTestSupabase(t)
	if err := s.Put(context.Background(), "m/m_metadata.json", []byte("{}"), "application/json"); err != nil {
		t.Fatal(err)
	}
	if got := fake.types["m/m_metadata.json"]; got != "application/json" {
		t.Fatalf("content type = %q", got)
	}
}

func TestSupabaseRequiresConfig(t *testing.T) {
	if _, err := NewSupabase(SupabaseConfig{URL: "https://x.supabase.co"}); err == nil {
		t.Fatal("expected error without key and bucket")
	}
}
