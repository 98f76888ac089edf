package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"cinehub/pkg/models"
)

func TestClientReportsAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			t.Errorf("authorization = %q", r.Header.Get("Authorization"))
		}
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"you have already reviewed this item"}`))
	}))
	defer srv.Close()

	c := &apiClient{HTTP: srv.Client(), BaseURL: srv.URL + "/api", Token: "tok"}
	err := c.do(context.Background(), http.MethodPost, "/reviews", nil, map[string]any{"rating": 5}, nil)

	var apiErr *apiError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v", err)
	}
	if apiErr.Status != http.StatusBadRequest || apiErr.Message != "you have already reviewed this item" {
		t.Fatalf("apiErr = %+v", apiErr)
	}
}

func TestFetchCatalogPages(t *testing.T) {
	const total = 7
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tvshows" {
			http.NotFound(w, r)
			return
		}
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		start := (page - 1) * limit
		var items []models.MediaItem
		for i := start; i < min(start+limit, total); i++ {
			items = append(items, models.MediaItem{ID: primitive.NewObjectID(), Title: "show " + strconv.Itoa(i)})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"tvshows":      items,
			"currentPage":  page,
			"totalPages":   (total + limit - 1) / limit,
			"totalTVShows": total,
		})
	}))
	defer srv.Close()

	c := &apiClient{HTTP: srv.Client(), BaseURL: srv.URL + "/api"}
	items, err := fetchCatalog(context.Background(), c, models.KindTVShow, 50)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != total {
		t.Fatalf("got %d items, want %d", len(items), total)
	}

	items, err = fetchCatalog(context.Background(), c, models.KindTVShow, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 3 {
		t.Fatalf("limited fetch: got %d items", len(items))
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	items := []models.MediaItem{{Title: "Heat", Genre: []string{"Crime", "Drama"}, Rating: 4, VoteCount: 2}}
	if err := writeCSV(&buf, models.KindMovie, items); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %q", lines)
	}
	if !strings.Contains(lines[0], "release_date") {
		t.Errorf("header = %q", lines[0])
	}
	if !strings.Contains(lines[1], "Crime|Drama") || !strings.Contains(lines[1], ",4.0,2,") {
		t.Errorf("row = %q", lines[1])
	}
}

func TestTokenRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "token.json")
	if err := saveToken(path, "abc"); err != nil {
		t.Fatal(err)
	}
	got, err := readToken(path)
	if err != nil || got != "abc" {
		t.Fatalf("readToken = %q, %v", got, err)
	}
	if err := clearToken(path); err != nil {
		t.Fatal(err)
	}
	if err := clearToken(path); err != nil {
		t.Fatalf("second clear: %v", err)
	}
	if err := saveToken(path, ""); err == nil {
		t.Fatal("empty token saved")
	}
}

func TestWebsocketURL(t *testing.T) {
	tests := map[string]string{
		"http://localhost:5000/api": "ws://localhost:5000/ws",
		"https://cine.example/api":  "wss://cine.example/ws",
	}
	for in, want := range tests {
		got, err := websocketURL(in, "/ws")
		if err != nil || got != want {
			t.Errorf("websocketURL(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
}

func TestPrintEvent(t *testing.T) {
	var buf bytes.Buffer
	printEvent(&buf, []byte(`{"type":"item.rating"}`), true)
	if !strings.Contains(buf.String(), "\n  \"type\": \"item.rating\"") {
		t.Fatalf("pretty = %q", buf.String())
	}

	buf.Reset()
	printEvent(&buf, []byte("not json"), true)
	if buf.String() != "not json\n" {
		t.Fatalf("raw = %q", buf.String())
	}
}
