package middleware

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/clearpath-backend/internal/platform/apierr"
	"github.com/yungbote/clearpath-backend/internal/platform/ctxutil"
	"github.com/yungbote/clearpath-backend/internal/platform/logger"
)

type fakeAuth struct {
	tokens map[string]uuid.UUID
}

func (f *fakeAuth) SetContextFromToken(ctx context.Context, token string) (context.Context, error) {
	id, ok := f.tokens[token]
	if !ok {
		return ctx, fmt.Errorf("bad token: %w", apierr.ErrUnauthorized)
	}
	return ctxutil.WithRequestData(ctx, &ctxutil.RequestData{UserID: id}), nil
}

func (f *fakeAuth) IssueToken(uuid.UUID, string, string, time.Duration) (string, error) {
	return "", nil
}

func TestRequireAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	userID := uuid.New()
	am := NewAuthMiddleware(logger.Nop(), &fakeAuth{tokens: map[string]uuid.UUID{"good": userID, "nil": uuid.Nil}})

	r := gin.New()
	r.GET("/api/me", am.RequireAuth(), func(c *gin.Context) {
		c.String(http.StatusOK, ctxutil.UserID(c.Request.Context()).String())
	})

	cases := []struct {
		name       string
		header     string
		query      string
		wantStatus int
	}{
		{name: "missing", wantStatus: http.StatusUnauthorized},
		{name: "bearer", header: "Bearer good", wantStatus: http.StatusOK},
		{name: "lowercase_scheme", header: "bearer good", wantStatus: http.StatusOK},
		{name: "query_token", query: "?token=good", wantStatus: http.StatusOK},
		{name: "rejected", header: "Bearer bad", wantStatus: http.StatusUnauthorized},
		{name: "nil_subject", header: "Bearer nil", wantStatus: http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/me"+tc.query, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			if rec.Code != tc.wantStatus {
				t.Fatalf("status=%d want %d body=%s", rec.Code, tc.wantStatus, rec.Body.String())
			}
			if tc.wantStatus == http.StatusOK && rec.Body.String() != userID.String() {
				t.Fatalf("body=%q want user id", rec.Body.String())
			}
		})
	}
}

func TestAttachTraceContext(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(AttachTraceContext())
	r.GET("/x", func(c *gin.Context) {
		td := ctxutil.GetTraceData(c.Request.Context())
		c.String(http.StatusOK, td.RequestID)
	})

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-Request-Id", "req-123")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Body.String() != "req-123" || rec.Header().Get("X-Request-Id") != "req-123" {
		t.Fatalf("request id not propagated: body=%q", rec.Body.String())
	}
	if rec.Header().Get("X-Trace-Id") == "" {
		t.Fatalf("trace id header missing")
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	if _, err := uuid.Parse(rec.Header().Get("X-Request-Id")); err != nil {
		t.Fatalf("generated request id %q: %v", rec.Header().Get("X-Request-Id"), err)
	}

	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-Request-Id", "bad\tid")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if _, err := uuid.Parse(rec.Body.String()); err != nil {
		t.Fatalf("unprintable request id should be replaced, got %q", rec.Body.String())
	}
}
