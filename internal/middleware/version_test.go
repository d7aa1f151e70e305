package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"survey-service/internal/models"
)

func versionRouter(minVersion int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(APIVersionGate(minVersion))
	r.GET("/ping", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func doVersioned(r *gin.Engine, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	if header != "" {
		req.Header.Set(APIVersionHeader, header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAPIVersionGateMissingHeaderDefaultsToOne(t *testing.T) {
	if w := doVersioned(versionRouter(1), ""); w.Code != http.StatusOK {
		t.Fatalf("expected 200 for missing header at min 1, got %d", w.Code)
	}
	if w := doVersioned(versionRouter(2), ""); w.Code != http.StatusUpgradeRequired {
		t.Fatalf("expected 426 for missing header at min 2, got %d", w.Code)
	}
}

func TestAPIVersionGateBelowMinimum(t *testing.T) {
	w := doVersioned(versionRouter(3), "2")
	if w.Code != http.StatusUpgradeRequired {
		t.Fatalf("expected 426, got %d", w.Code)
	}

	var body models.APIResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body.Error == nil || body.Error.Code != "UPGRADE_REQUIRED" {
		t.Fatalf("unexpected error payload %+v", body.Error)
	}
}

func TestAPIVersionGateAcceptsCurrent(t *testing.T) {
	if w := doVersioned(versionRouter(2), "2"); w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if w := doVersioned(versionRouter(2), "5"); w.Code != http.StatusOK {
		t.Fatalf("expected 200 for newer client, got %d", w.Code)
	}
}

func TestAPIVersionGateMalformedHeader(t *testing.T) {
	for _, raw := range []string{"abc", "0", "-1", "1.5"} {
		if w := doVersioned(versionRouter(1), raw); w.Code != http.StatusBadRequest {
			t.Fatalf("header %q: expected 400, got %d", raw, w.Code)
		}
	}
}
