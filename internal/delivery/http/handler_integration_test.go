package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/unicatalog/backend/config"
	"github.com/unicatalog/backend/internal/domain"
	"github.com/unicatalog/backend/internal/infrastructure/store"
	"github.com/unicatalog/backend/internal/usecase"
)

// TestMain sets up test environment before running tests
func TestMain(m *testing.M) {
	// Set Gin to test mode once for all tests
	gin.SetMode(gin.TestMode)

	// Run tests
	exitCode := m.Run()

	// Exit with the test result code
	os.Exit(exitCode)
}

// fakeSource serves fixed records
type fakeSource struct {
	main     []domain.RawMainRecord
	extended []domain.RawExtendedRecord
}

func (f *fakeSource) FetchMain(ctx context.Context) ([]domain.RawMainRecord, error) {
	return f.main, nil
}

func (f *fakeSource) FetchExtended(ctx context.Context) ([]domain.RawExtendedRecord, error) {
	return f.extended, nil
}

func testRecords() *fakeSource {
	return &fakeSource{
		main: []domain.RawMainRecord{
			{ID: 1, Code: "09.03.01", Title: "Информатика и вычислительная техника", Faculty: "Факультет информационных технологий", EducationLevel: "Бакалавриат", Duration: "4 года", BudgetPlaces: 50, Price: 180000},
			{ID: 2, Code: "38.03.01", Title: "Экономика", Faculty: "Факультет экономики", EducationLevel: "Бакалавриат", Duration: "4 года", BudgetPlaces: 10, Price: 150000},
			{ID: 3, Code: "08.04.01", Title: "Строительство", Faculty: "Строительный факультет", EducationLevel: "Магистратура", Duration: "2 года", BudgetPlaces: 25, Price: 200000},
			{ID: 4, Code: "13.03.02", Title: "Электроэнергетика", Faculty: "Факультет энергетики", EducationLevel: "Бакалавриат", Duration: "4 года"},
		},
		extended: []domain.RawExtendedRecord{
			{ID: 1, Code: "09.03.01", FullName: "09.03.01 Информатика и вычислительная техника Профиль «Программное обеспечение»", EducationLevel: "Бакалавриат", Faculty: "Факультет информационных технологий"},
		},
	}
}

// setupTestRouter creates a test router with a loaded catalog
func setupTestRouter() *gin.Engine {
	cfg := &config.Config{
		Server: config.ServerConfig{
			Port:           "8080",
			Environment:    "test",
			AllowedOrigins: []string{"http://localhost:*", "https://abiturient.example.ru"},
		},
		Store: config.StoreConfig{
			Type: "memory",
		},
		Compare: config.CompareConfig{
			Capacity: 3,
		},
	}

	state := store.NewMemoryStore()
	catalog := usecase.NewCatalogService(testRecords(), nil, state, usecase.CatalogServiceConfig{})
	if err := catalog.Init(context.Background()); err != nil {
		panic("setupTestRouter: catalog init failed: " + err.Error())
	}
	compare := usecase.NewCompareService(state, catalog, cfg.Compare.Capacity)

	handler := NewHandler(catalog, compare, 2)
	if handler == nil {
		panic("setupTestRouter: NewHandler returned nil")
	}

	router := SetupRouter(cfg, handler)
	if router == nil {
		panic("setupTestRouter: SetupRouter returned nil *gin.Engine")
	}

	return router
}

// do performs a request within a fixed session
func do(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req, _ = http.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req, _ = http.NewRequest(method, path, nil)
	}
	req.Header.Set(SessionHeader, "test-session")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var response map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	return response
}

// TestHealthCheckEndpoint tests the health check endpoint
func TestHealthCheckEndpoint(t *testing.T) {
	t.Run("returns healthy status", func(t *testing.T) {
		router := setupTestRouter()

		req, _ := http.NewRequest("GET", "/health", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusOK)
		}

		response := decode(t, w)
		if response["status"] != "healthy" {
			t.Errorf("status = %v, want healthy", response["status"])
		}
		if response["service"] != "unicatalog-backend" {
			t.Errorf("service = %v, want unicatalog-backend", response["service"])
		}
		version, ok := response["version"].(string)
		if !ok || strings.TrimSpace(version) == "" {
			t.Errorf("version = %v, want non-empty string", response["version"])
		}
	})

	t.Run("accepts GET requests only", func(t *testing.T) {
		router := setupTestRouter()

		methods := []string{"POST", "PUT", "DELETE", "PATCH"}

		for _, method := range methods {
			req, _ := http.NewRequest(method, "/health", nil)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			if w.Code != http.StatusNotFound {
				t.Errorf("Method %s: Status = %d, want %d", method, w.Code, http.StatusNotFound)
			}
		}
	})
}

func TestMetricsEndpoint(t *testing.T) {
	router := setupTestRouter()

	do(router, "GET", "/api/v1/programs", "")
	w := do(router, "GET", "/metrics", "")

	if w.Code != http.StatusOK {
		t.Fatalf("Status = %d, want %d", w.Code, http.StatusOK)
	}
	if !strings.Contains(w.Body.String(), "unicatalog_http_request_duration_seconds") {
		t.Errorf("metrics output missing request duration histogram")
	}
}

func TestProgramsEndpoint(t *testing.T) {
	t.Run("paginates with configured page size", func(t *testing.T) {
		router := setupTestRouter()

		w := do(router, "GET", "/api/v1/programs", "")
		if w.Code != http.StatusOK {
			t.Fatalf("Status = %d, want %d", w.Code, http.StatusOK)
		}

		response := decode(t, w)
		if response["totalItems"] != float64(4) {
			t.Errorf("totalItems = %v, want 4", response["totalItems"])
		}
		if response["totalPages"] != float64(2) {
			t.Errorf("totalPages = %v, want 2", response["totalPages"])
		}
		items := response["items"].([]interface{})
		if len(items) != 2 {
			t.Errorf("len(items) = %d, want 2", len(items))
		}
	})

	t.Run("filters and sorts", func(t *testing.T) {
		router := setupTestRouter()

		w := do(router, "GET", "/api/v1/programs?level=bachelor&sort=budget-desc&size=10", "")
		response := decode(t, w)

		items := response["items"].([]interface{})
		if len(items) != 3 {
			t.Fatalf("len(items) = %d, want 3", len(items))
		}
		first := items[0].(map[string]interface{})
		if first["code"] != "09.03.01" {
			t.Errorf("first code = %v, want 09.03.01", first["code"])
		}
		if first["source"] != string(domain.SourceMerged) {
			t.Errorf("first source = %v, want merged", first["source"])
		}
	})

	t.Run("clamps out of range page", func(t *testing.T) {
		router := setupTestRouter()

		response := decode(t, do(router, "GET", "/api/v1/programs?page=99", ""))
		if response["page"] != float64(2) {
			t.Errorf("page = %v, want 2", response["page"])
		}
	})

	t.Run("rejects non numeric page", func(t *testing.T) {
		router := setupTestRouter()

		w := do(router, "GET", "/api/v1/programs?page=abc", "")
		if w.Code != http.StatusBadRequest {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusBadRequest)
		}
	})

	t.Run("gets program by id", func(t *testing.T) {
		router := setupTestRouter()

		w := do(router, "GET", "/api/v1/programs/2", "")
		if w.Code != http.StatusOK {
			t.Fatalf("Status = %d, want %d", w.Code, http.StatusOK)
		}
		if decode(t, w)["title"] != "Экономика" {
			t.Errorf("unexpected program body: %s", w.Body.String())
		}

		w = do(router, "GET", "/api/v1/programs/999", "")
		if w.Code != http.StatusNotFound {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusNotFound)
		}
	})
}

func TestFacultiesEndpoint(t *testing.T) {
	router := setupTestRouter()

	response := decode(t, do(router, "GET", "/api/v1/faculties", ""))
	faculties := response["faculties"].([]interface{})
	if len(faculties) != 4 {
		t.Errorf("len(faculties) = %d, want 4", len(faculties))
	}
}

func TestReloadEndpoint(t *testing.T) {
	router := setupTestRouter()

	w := do(router, "POST", "/api/v1/catalog/reload", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Status = %d, want %d", w.Code, http.StatusOK)
	}
	if decode(t, w)["programs"] != float64(4) {
		t.Errorf("unexpected reload body: %s", w.Body.String())
	}
}

func TestCompareEndpoints(t *testing.T) {
	t.Run("add list remove", func(t *testing.T) {
		router := setupTestRouter()

		w := do(router, "POST", "/api/v1/compare", `{"id":1}`)
		if w.Code != http.StatusCreated {
			t.Fatalf("Status = %d, want %d: %s", w.Code, http.StatusCreated, w.Body.String())
		}

		w = do(router, "POST", "/api/v1/compare", `{"id":1}`)
		if w.Code != http.StatusConflict {
			t.Errorf("duplicate add: Status = %d, want %d", w.Code, http.StatusConflict)
		}

		response := decode(t, do(router, "GET", "/api/v1/compare", ""))
		if response["count"] != float64(1) || response["capacity"] != float64(3) {
			t.Errorf("count/capacity = %v/%v, want 1/3", response["count"], response["capacity"])
		}

		response = decode(t, do(router, "DELETE", "/api/v1/compare/1", ""))
		if response["removed"] != true || response["count"] != float64(0) {
			t.Errorf("unexpected remove body: %v", response)
		}

		response = decode(t, do(router, "DELETE", "/api/v1/compare/1", ""))
		if response["removed"] != false {
			t.Errorf("removing absent id: removed = %v, want false", response["removed"])
		}
	})

	t.Run("capacity exceeded", func(t *testing.T) {
		router := setupTestRouter()

		for _, id := range []string{"1", "2", "3"} {
			do(router, "POST", "/api/v1/compare", `{"id":`+id+`}`)
		}
		w := do(router, "POST", "/api/v1/compare", `{"id":4}`)
		if w.Code != http.StatusConflict {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusConflict)
		}
	})

	t.Run("unknown program", func(t *testing.T) {
		router := setupTestRouter()

		w := do(router, "POST", "/api/v1/compare", `{"id":42}`)
		if w.Code != http.StatusNotFound {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusNotFound)
		}
	})

	t.Run("invalid body", func(t *testing.T) {
		router := setupTestRouter()

		w := do(router, "POST", "/api/v1/compare", `{"id":"x"}`)
		if w.Code != http.StatusBadRequest {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusBadRequest)
		}
	})

	t.Run("toggle and clear", func(t *testing.T) {
		router := setupTestRouter()

		response := decode(t, do(router, "POST", "/api/v1/compare/toggle", `{"id":2}`))
		if response["result"] != string(usecase.ToggleAdded) {
			t.Errorf("result = %v, want added", response["result"])
		}
		response = decode(t, do(router, "POST", "/api/v1/compare/toggle", `{"id":2}`))
		if response["result"] != string(usecase.ToggleRemoved) {
			t.Errorf("result = %v, want removed", response["result"])
		}

		do(router, "POST", "/api/v1/compare", `{"id":3}`)
		response = decode(t, do(router, "DELETE", "/api/v1/compare", ""))
		if response["count"] != float64(0) {
			t.Errorf("count after clear = %v, want 0", response["count"])
		}
	})

	t.Run("sessions are isolated", func(t *testing.T) {
		router := setupTestRouter()

		do(router, "POST", "/api/v1/compare", `{"id":1}`)

		req, _ := http.NewRequest("GET", "/api/v1/compare", nil)
		req.Header.Set(SessionHeader, "other-session")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if decode(t, w)["count"] != float64(0) {
			t.Errorf("other session sees foreign selection: %s", w.Body.String())
		}
	})
}

func TestHandoffEndpoints(t *testing.T) {
	router := setupTestRouter()

	do(router, "POST", "/api/v1/compare", `{"id":1}`)
	do(router, "POST", "/api/v1/compare/queue", `{"id":1}`)
	do(router, "POST", "/api/v1/compare/queue", `{"id":2}`)

	response := decode(t, do(router, "GET", "/api/v1/compare/queue", ""))
	if response["count"] != float64(2) {
		t.Fatalf("queue count = %v, want 2", response["count"])
	}

	w := do(router, "POST", "/api/v1/compare/drain", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Status = %d, want %d", w.Code, http.StatusOK)
	}
	response = decode(t, w)
	if response["count"] != float64(2) {
		t.Errorf("selection count = %v, want 2", response["count"])
	}
	report := response["report"].(map[string]interface{})
	if added := report["added"].([]interface{}); len(added) != 1 {
		t.Errorf("added = %v, want one id", added)
	}
	if present := report["alreadyPresent"].([]interface{}); len(present) != 1 {
		t.Errorf("alreadyPresent = %v, want one id", present)
	}

	response = decode(t, do(router, "GET", "/api/v1/compare/queue", ""))
	if response["count"] != float64(0) {
		t.Errorf("queue count after drain = %v, want 0", response["count"])
	}
}

func TestRankingEndpoints(t *testing.T) {
	t.Run("insufficient selection", func(t *testing.T) {
		router := setupTestRouter()

		do(router, "POST", "/api/v1/compare", `{"id":1}`)
		for _, path := range []string{"/api/v1/compare/summary", "/api/v1/compare/table", "/api/v1/compare/rank?attribute=price"} {
			w := do(router, "GET", path, "")
			if w.Code != http.StatusUnprocessableEntity {
				t.Errorf("%s: Status = %d, want %d", path, w.Code, http.StatusUnprocessableEntity)
			}
		}
	})

	t.Run("rank summary table", func(t *testing.T) {
		router := setupTestRouter()

		for _, id := range []string{"1", "2", "3"} {
			do(router, "POST", "/api/v1/compare", `{"id":`+id+`}`)
		}

		response := decode(t, do(router, "GET", "/api/v1/compare/rank?attribute=budgetPlaces&direction=max", ""))
		if response["programId"] != float64(1) {
			t.Errorf("budget winner = %v, want 1", response["programId"])
		}

		response = decode(t, do(router, "GET", "/api/v1/compare/rank?attribute=price&direction=min", ""))
		if response["programId"] != float64(2) {
			t.Errorf("price winner = %v, want 2", response["programId"])
		}

		w := do(router, "GET", "/api/v1/compare/rank?attribute=color", "")
		if w.Code != http.StatusBadRequest {
			t.Errorf("unknown attribute: Status = %d, want %d", w.Code, http.StatusBadRequest)
		}

		response = decode(t, do(router, "GET", "/api/v1/compare/summary", ""))
		if winners := response["winners"].([]interface{}); len(winners) != 4 {
			t.Errorf("len(winners) = %d, want 4", len(winners))
		}

		response = decode(t, do(router, "GET", "/api/v1/compare/table", ""))
		if sections := response["sections"].([]interface{}); len(sections) != 2 {
			t.Errorf("len(sections) = %d, want 2", len(sections))
		}
	})
}

// TestCORSIntegration tests CORS headers work end-to-end with full router
func TestCORSIntegration(t *testing.T) {
	t.Run("health endpoint has CORS for localhost", func(t *testing.T) {
		router := setupTestRouter()

		req, _ := http.NewRequest("GET", "/health", nil)
		req.Header.Set("Origin", "http://localhost:5173")
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusOK)
		}

		gotOrigin := w.Header().Get("Access-Control-Allow-Origin")
		if gotOrigin != "http://localhost:5173" {
			t.Errorf("Access-Control-Allow-Origin = %q, want %q", gotOrigin, "http://localhost:5173")
		}

		gotCreds := w.Header().Get("Access-Control-Allow-Credentials")
		if gotCreds != "true" {
			t.Errorf("Access-Control-Allow-Credentials = %q, want %q", gotCreds, "true")
		}
	})

	t.Run("compare endpoint exposes session header", func(t *testing.T) {
		router := setupTestRouter()

		req, _ := http.NewRequest("GET", "/api/v1/compare", nil)
		req.Header.Set("Origin", "https://abiturient.example.ru")
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://abiturient.example.ru" {
			t.Errorf("Access-Control-Allow-Origin = %q", got)
		}
		if w.Header().Get(SessionHeader) == "" {
			t.Errorf("%s header not set", SessionHeader)
		}
	})
}

// TestRecoveryMiddleware tests panic recovery
func TestRecoveryMiddleware(t *testing.T) {
	t.Run("recovers from panic without crashing server", func(t *testing.T) {
		router := setupTestRouter()

		// Add a test route that panics
		router.GET("/panic", func(c *gin.Context) {
			panic("test panic")
		})

		req, _ := http.NewRequest("GET", "/panic", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		// Gin's default recovery returns 500
		if w.Code != http.StatusInternalServerError {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusInternalServerError)
		}
	})
}

// TestAPIVersioning tests that API v1 routes are correctly versioned
func TestAPIVersioning(t *testing.T) {
	router := setupTestRouter()

	req, _ := http.NewRequest("GET", "/api/programs", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

// TestJSONResponses tests that all responses are valid JSON
func TestJSONResponses(t *testing.T) {
	endpoints := []struct {
		method string
		path   string
	}{
		{"GET", "/health"},
		{"GET", "/api/v1/programs"},
		{"GET", "/api/v1/faculties"},
		{"GET", "/api/v1/compare"},
		{"GET", "/api/v1/compare/summary"},
	}

	for _, endpoint := range endpoints {
		t.Run(endpoint.method+" "+endpoint.path, func(t *testing.T) {
			router := setupTestRouter()

			w := do(router, endpoint.method, endpoint.path, "")

			gotContentType := w.Header().Get("Content-Type")
			wantContentType := "application/json; charset=utf-8"
			if gotContentType != wantContentType {
				t.Errorf("Content-Type = %q, want %q", gotContentType, wantContentType)
			}

			var response map[string]interface{}
			if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
				t.Errorf("Response should be valid JSON, got error: %v", err)
			}
		})
	}
}
