package gotenberg

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gilmarTelles/xlsx-to-pdf/internal/convert"
	"github.com/gilmarTelles/xlsx-to-pdf/internal/domain"
)

func TestRender_Success(t *testing.T) {
	var gotLandscape, gotSingle string
	var gotFilename string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/forms/libreoffice/convert" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		gotLandscape = r.FormValue("landscape")
		gotSingle = r.FormValue("singlePageSheets")
		if files := r.MultipartForm.File["files"]; len(files) == 1 {
			gotFilename = files[0].Filename
		}
		w.Header().Set("Content-Type", "application/pdf")
		w.Write([]byte("%PDF-1.7 result"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, "")
	pdf, err := c.Render(context.Background(), []byte("doc-bytes"), convert.Options{Landscape: true, SinglePageSheets: false})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if string(pdf) != "%PDF-1.7 result" {
		t.Fatalf("unexpected pdf body: %q", pdf)
	}
	if gotLandscape != "true" || gotSingle != "false" {
		t.Fatalf("layout hints not forwarded: landscape=%q singlePageSheets=%q", gotLandscape, gotSingle)
	}
	if gotFilename != "document.xlsx" {
		t.Fatalf("expected xlsx filename for filter detection, got %q", gotFilename)
	}
}

func TestRender_ServerErrorCollapsesTo502(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal renderer detail that must not leak", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, "")
	_, err := c.Render(context.Background(), []byte("doc"), convert.Options{})

	ue, ok := domain.AsUpstream(err)
	if !ok {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
	if ue.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", ue.StatusCode)
	}
	if ue.Message != "PDF conversion failed" {
		t.Fatalf("expected generic message, got %q", ue.Message)
	}
}

func TestRender_OtherStatusPassesThrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, "")
	_, err := c.Render(context.Background(), []byte("doc"), convert.Options{})

	ue, ok := domain.AsUpstream(err)
	if !ok {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
	if ue.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 pass-through, got %d", ue.StatusCode)
	}
}

func TestRender_TimeoutAbortsInFlightCall(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	c := NewClient(srv.URL, 50*time.Millisecond, "")
	start := time.Now()
	_, err := c.Render(context.Background(), []byte("doc"), convert.Options{})
	if !errors.Is(err, domain.ErrRenderTimeout) {
		t.Fatalf("expected ErrRenderTimeout, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("call was not aborted promptly, took %v", elapsed)
	}
}

func TestRender_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // nothing listening anymore

	c := NewClient(srv.URL, time.Second, "")
	_, err := c.Render(context.Background(), []byte("doc"), convert.Options{})
	if !errors.Is(err, domain.ErrRenderTimeout) {
		t.Fatalf("expected ErrRenderTimeout for transport failure, got %v", err)
	}
}

func TestHealth(t *testing.T) {
	okSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer okSrv.Close()
	if got := NewClient(okSrv.URL, time.Second, "").Health(context.Background()); got != StatusReachable {
		t.Fatalf("expected reachable, got %q", got)
	}

	badSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer badSrv.Close()
	if got := NewClient(badSrv.URL, time.Second, "").Health(context.Background()); got != StatusUnhealthy {
		t.Fatalf("expected unhealthy, got %q", got)
	}

	downSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	downSrv.Close()
	if got := NewClient(downSrv.URL, time.Second, "").Health(context.Background()); got != StatusUnreachable {
		t.Fatalf("expected unreachable, got %q", got)
	}
}
