package storage

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/go-resty/resty/v2"
)

// Supabase implements BlobStore on the Supabase Storage REST API.
type Supabase struct {
	client *resty.Client
	bucket string
}

var _ BlobStore = (*Supabase)(nil)

// SupabaseConfig describes a Supabase project bucket.
type SupabaseConfig struct {
	// URL is the project URL, e.g. https://xyz.supabase.co.
	URL string
	// Key is a service-role key.
	Key    string
	Bucket string
}

// NewSupabase returns a store for cfg.
func NewSupabase(cfg SupabaseConfig) (*Supabase, error) {
	if cfg.URL == "" || cfg.Key == "" || cfg.Bucket == "" {
		return nil, errors.New("storage: supabase url, key and bucket are required")
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.URL, "/")+"/storage/v1").
		SetAuthToken(cfg.Key).
		SetHeader("apikey", cfg.Key)
	return &Supabase{client: client, bucket: cfg.Bucket}, nil
}

func (s *Supabase) objectURL(p string) string {
	segs := strings.Split(strings.Trim(p, "/"), "/")
	for i, seg := range segs {
		segs[i] = url.PathEscape(seg)
	}
	return "/object/" + url.PathEscape(s.bucket) + "/" + strings.Join(segs, "/")
}

type supabaseError struct {
	StatusCode string `json:"statusCode"`
	Error      string `json:"error"`
	Message    string `json:"message"`
}

// respError converts a failed response. Supabase reports missing objects as
// 404 or as 400 with a "not_found" body.
func respError(resp *resty.Response) error {
	var e supabaseError
	if r, ok := resp.Error().(*supabaseError); ok && r != nil {
		e = *r
	}
	if resp.StatusCode() == http.StatusNotFound || e.StatusCode == "404" || e.Error == "not_found" {
		return errNotFound
	}
	msg := e.Message
	if msg == "" {
		msg = strings.TrimSpace(resp.String())
	}
	return fmt.Errorf("supabase: %s: %s", resp.Status(), msg)
}

var errNotFound = fmt.Errorf("supabase: object not found: %w", os.ErrNotExist)

func (s *Supabase) Put(ctx context.Context, path string, data []byte, contentType string) error {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", contentType).
		SetHeader("x-upsert", "true").
		SetBody(data).
		SetError(&supabaseError{}).
		Post(s.objectURL(path))
	if err != nil {
		return wrap("put", path, err)
	}
	if resp.IsError() {
		return wrap("put", path, respError(resp))
	}
	return nil
}

func (s *Supabase) Get(ctx context.Context, path string) ([]byte, error) {
	resp, err := s.client.R().
		SetContext(ctx).
		SetError(&supabaseError{}).
		Get(s.objectURL(path))
	if err != nil {
		return nil, wrap("get", path, err)
	}
	if resp.IsError() {
		return nil, wrap("get", path, respError(resp))
	}
	return resp.Body(), nil
}

type listRequest struct {
	Prefix string      `json:"prefix"`
	Limit  int         `json:"limit"`
	Offset int         `json:"offset"`
	SortBy listSorting `json:"sortBy"`
}

type listSorting struct {
	Column string `json:"column"`
	Order  string `json:"order"`
}

type listEntry struct {
	Name     string  `json:"name"`
	ID       *string `json:"id"`
	Metadata struct {
		Size int64 `json:"size"`
	} `json:"metadata"`
}

const supabaseListPage = 1000

// List returns the objects directly under prefix. Folder placeholders
// (entries without an id) are skipped.
func (s *Supabase) List(ctx context.Context, prefix string) ([]Object, error) {
	objs := []Object{}
	for offset := 0; ; offset += supabaseListPage {
		var page []listEntry
		resp, err := s.client.R().
			SetContext(ctx).
			SetBody(listRequest{
				Prefix: strings.TrimSuffix(dirPrefix(prefix), "/"),
				Limit:  supabaseListPage,
				Offset: offset,
				SortBy: listSorting{Column: "name", Order: "asc"},
			}).
			SetResult(&page).
			SetError(&supabaseError{}).
			Post("/object/list/" + url.PathEscape(s.bucket))
		if err != nil {
			return nil, wrap("list", prefix, err)
		}
		if resp.IsError() {
			return nil, wrap("list", prefix, respError(resp))
		}
		for _, e := range page {
			if e.ID == nil || e.Name == "" || e.Name == ".emptyFolderPlaceholder" {
				continue
			}
			objs = append(objs, Object{Name: e.Name, Size: e.Metadata.Size})
		}
		if len(page) < supabaseListPage {
			break
		}
	}
	return sortObjects(objs), nil
}

func (s *Supabase) Delete(ctx context.Context, path string) error {
	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(map[string][]string{"prefixes": {strings.Trim(path, "/")}}).
		SetError(&supabaseError{}).
		Delete("/object/" + url.PathEscape(s.bucket))
	if err != nil {
		return wrap("delete", path, err)
	}
	if resp.IsError() {
		if errors.Is(respError(resp), os.ErrNotExist) {
			return nil
		}
		return wrap("delete", path, respError(resp))
	}
	return nil
}

func (s *Supabase) Exists(ctx context.Context, path string) (bool, error) {
	resp, err := s.client.R().
		SetContext(ctx).
		Head(s.objectURL(path))
	if err != nil {
		return false, wrap("stat", path, err)
	}
	switch {
	case resp.IsSuccess():
		return true, nil
	case resp.StatusCode() == http.StatusNotFound || resp.StatusCode() == http.StatusBadRequest:
		return false, nil
	}
	return false, wrap("stat", path, fmt.Errorf("supabase: %s", resp.Status()))
}
