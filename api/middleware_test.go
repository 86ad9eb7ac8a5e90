package api

import (
	"bytes"
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func gzipped(t *testing.T, payload string) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write([]byte(payload)); err != nil {
		t.Fatalf("gzip write failed: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("gzip close failed: %v", err)
	}
	return &buf
}

func TestDecompressRequestsInflatesBody(t *testing.T) {
	e := echo.New()
	e.Use(DecompressRequests())
	e.POST("/echo", func(c echo.Context) error {
		body, err := io.ReadAll(c.Request().Body)
		if err != nil {
			return err
		}
		return c.String(http.StatusOK, string(body))
	})

	req := httptest.NewRequest(http.MethodPost, "/echo", gzipped(t, `{"title":"Task"}`))
	req.Header.Set(echo.HeaderContentEncoding, "gzip")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200 got %d", rec.Code)
	}
	if rec.Body.String() != `{"title":"Task"}` {
		t.Fatalf("unexpected body: %q", rec.Body.String())
	}
}

func TestDecompressRequestsRejectsBrokenGzip(t *testing.T) {
	e := echo.New()
	e.Use(DecompressRequests())
	e.POST("/echo", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader("definitely not gzip"))
	req.Header.Set(echo.HeaderContentEncoding, "gzip")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 got %d", rec.Code)
	}
}

func TestDecompressRequestsPassthrough(t *testing.T) {
	e := echo.New()
	e.Use(DecompressRequests())
	e.POST("/echo", func(c echo.Context) error {
		body, err := io.ReadAll(c.Request().Body)
		if err != nil {
			return err
		}
		return c.String(http.StatusOK, string(body))
	})

	req := httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader("plain"))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK || rec.Body.String() != "plain" {
		t.Fatalf("unexpected response: %d %q", rec.Code, rec.Body.String())
	}
}

func TestDeclaresGzip(t *testing.T) {
	cases := map[string]bool{
		"gzip":         true,
		"GZIP":         true,
		"br, gzip":     true,
		" gzip ":       true,
		"":             false,
		"br":           false,
		"gzip-sibling": false,
	}
	for header, want := range cases {
		if got := declaresGzip(header); got != want {
			t.Fatalf("declaresGzip(%q) = %v, want %v", header, got, want)
		}
	}
}
