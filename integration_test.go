package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/giygas/drugdb/apiclient"
	"github.com/giygas/drugdb/apiclient/apitest"
	"github.com/giygas/drugdb/config"
	"github.com/giygas/drugdb/data"
	"github.com/giygas/drugdb/entities"
	"github.com/giygas/drugdb/handlers"
	"github.com/giygas/drugdb/health"
	"github.com/giygas/drugdb/logging"
	"github.com/giygas/drugdb/notify"
	"github.com/giygas/drugdb/query"
	"github.com/giygas/drugdb/scheduler"
	"github.com/giygas/drugdb/server"
	"github.com/giygas/drugdb/validation"
	"github.com/giygas/drugdb/view"
	"golang.org/x/text/language"
)

// errorBody is the JSON error answer of the browser
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// testStack is the server wired the way main wires it
type testStack struct {
	router http.Handler
}

// TestIntegrationBrowseAndEdit drives the full stack against an in-memory
// drug API: warm-up, listing, a create that invalidates the list, a delete
// and the notification feed
func TestIntegrationBrowseAndEdit(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	fmt.Println("Starting browse and edit integration test...")

	setupTestEnvironment(t)
	api := apitest.NewServer(t)
	stack := newTestStack(t, api.URL)

	// Health after the initial refresh
	var healthResp handlers.HealthResponse
	doJSON(t, stack.router, http.MethodGet, "/health", nil, http.StatusOK, &healthResp)
	if healthResp.Status != "healthy" {
		t.Errorf("Expected healthy status, got %s", healthResp.Status)
	}
	if drugs, _ := healthResp.Data["drugs"].(float64); drugs != 3 {
		t.Errorf("Expected 3 drugs in health data, got %v", healthResp.Data["drugs"])
	}

	// Filtered, sorted list
	var list handlers.DrugListResponse
	doJSON(t, stack.router, http.MethodGet, "/drugs?filters=nsaid&sort=name", nil, http.StatusOK, &list)
	if list.TotalItems != 2 || list.Data[0].Name != "Aspirin" || list.Data[1].Name != "Ibuprofen" {
		t.Errorf("Unexpected NSAID list: %+v", list)
	}

	// Detail
	var detail handlers.DataResponse[json.RawMessage]
	doJSON(t, stack.router, http.MethodGet, "/drugs/2", nil, http.StatusOK, &detail)
	if !strings.Contains(string(detail.Data), `"manufacturer":"Bayer"`) {
		t.Errorf("Expected Bayer as manufacturer, got %s", detail.Data)
	}

	// Create then list again: the list must be re-read
	listCalls := api.Requests("GET /drugs")
	var created entities.CreateResponse
	doJSON(t, stack.router, http.MethodPost, "/drugs",
		map[string]any{"Name": "Naproxen", "Class": "NSAID", "manufacturer_ids": []int{1}},
		http.StatusCreated, &created)
	if created.DrugID != 4 {
		t.Errorf("Expected drug id 4, got %d", created.DrugID)
	}
	if stored, _ := api.Drug(4); len(stored.Manufacturers) != 1 {
		t.Errorf("Expected manufacturer 1 attached, got %+v", stored.Manufacturers)
	}

	doJSON(t, stack.router, http.MethodGet, "/drugs?q=naproxen", nil, http.StatusOK, &list)
	if list.TotalItems != 1 {
		t.Errorf("Expected the new drug in the list, got %d items", list.TotalItems)
	}
	if api.Requests("GET /drugs") != listCalls+1 {
		t.Errorf("Expected exactly one list re-read after create")
	}

	// Delete, then the drug is gone upstream
	doJSON(t, stack.router, http.MethodDelete, "/drugs/4", nil, http.StatusOK, nil)
	doJSON(t, stack.router, http.MethodGet, "/drugs/4", nil, http.StatusNotFound, nil)

	// Failed mutation keeps the upstream status and message
	var errResp errorBody
	doJSON(t, stack.router, http.MethodDelete, "/drugs/4", nil, http.StatusNotFound, &errResp)
	if errResp.Message != "Drug not found" {
		t.Errorf("Expected upstream message, got %q", errResp.Message)
	}

	// Notifications, newest first
	var feed handlers.NotificationsResponse
	doJSON(t, stack.router, http.MethodGet, "/notifications?limit=4", nil, http.StatusOK, &feed)
	wantMessages := []string{
		"Failed to delete drug: Drug not found",
		"Failed to fetch drug details: Drug not found",
		"Drug deleted successfully",
		"Drug created successfully",
	}
	if len(feed.Data) != len(wantMessages) {
		t.Fatalf("Expected %d notifications, got %d", len(wantMessages), len(feed.Data))
	}
	for i, want := range wantMessages {
		if feed.Data[i].Message != want {
			t.Errorf("Notification %d: expected %q, got %q", i, want, feed.Data[i].Message)
		}
	}
	if feed.Data[0].Kind != notify.KindError {
		t.Errorf("Expected the failure to be an error notification, got %s", feed.Data[0].Kind)
	}

	fmt.Println("Browse and edit integration test completed successfully")
}

// TestIntegrationUnreachableAPI checks the demo data path end to end
func TestIntegrationUnreachableAPI(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	fmt.Println("Starting unreachable API integration test...")

	setupTestEnvironment(t)
	closed := httptest.NewServer(http.NotFoundHandler())
	url := closed.URL
	closed.Close()

	stack := newTestStack(t, url)

	var list handlers.DrugListResponse
	doJSON(t, stack.router, http.MethodGet, "/drugs", nil, http.StatusOK, &list)
	if !list.Degraded {
		t.Error("Expected degraded list")
	}
	if list.TotalItems != len(apiclient.FallbackDrugs()) {
		t.Errorf("Expected %d demo drugs, got %d", len(apiclient.FallbackDrugs()), list.TotalItems)
	}

	var healthResp handlers.HealthResponse
	doJSON(t, stack.router, http.MethodGet, "/health", nil, http.StatusOK, &healthResp)
	if healthResp.Status != "degraded" {
		t.Errorf("Expected degraded health, got %s", healthResp.Status)
	}

	// Mutations never fall back
	var errResp errorBody
	doJSON(t, stack.router, http.MethodPost, "/drugs", map[string]any{"Name": "Naproxen"}, http.StatusBadGateway, &errResp)
	if errResp.Message != "Drug API is unavailable" {
		t.Errorf("Unexpected error message %q", errResp.Message)
	}

	fmt.Println("Unreachable API integration test completed successfully")
}

// TestIntegrationConcurrentReads checks that concurrent list requests share
// the warmed cache instead of reaching the API
func TestIntegrationConcurrentReads(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	fmt.Println("Starting concurrent reads integration test...")

	setupTestEnvironment(t)
	api := apitest.NewServer(t)
	stack := newTestStack(t, api.URL)

	const workers = 20
	var wg sync.WaitGroup
	errs := make(chan string, workers)

	for i := range workers {
		wg.Add(1)
		go func(page int) {
			defer wg.Done()
			req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/drugs?page=%d", page%2+1), nil)
			w := httptest.NewRecorder()
			stack.router.ServeHTTP(w, req)
			if w.Code != http.StatusOK {
				errs <- fmt.Sprintf("status %d: %s", w.Code, w.Body.String())
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	for msg := range errs {
		t.Error(msg)
	}
	if n := api.Requests("GET /drugs"); n != 1 {
		t.Errorf("Expected only the warm-up to reach the API, got %d list requests", n)
	}

	fmt.Println("Concurrent reads integration test completed successfully")
}

// Helper functions

func setupTestEnvironment(t *testing.T) {
	t.Helper()
	logging.InitLoggerWithConfig(&config.Config{
		Env:               config.EnvTest,
		LogLevel:          "warn",
		LogDir:            t.TempDir(),
		LogRetentionWeeks: 1,
		MaxLogFileSize:    1024 * 1024,
	}, false)
	t.Cleanup(func() { logging.Close() })
}

func newTestStack(t *testing.T, apiURL string) *testStack {
	t.Helper()

	cfg := &config.Config{
		Port:            "0",
		Address:         "127.0.0.1",
		Env:             config.EnvTest,
		MaxRequestBody:  1048576,
		MaxHeaderSize:   1048576,
		APIURL:          apiURL,
		RequestTimeout:  2 * time.Second,
		CacheStaleTime:  time.Minute,
		CacheGCTime:     time.Hour,
		RefreshInterval: time.Hour,
		PageSize:        2,
	}

	refreshState := data.NewRefreshState()
	refreshState.SetServerStartTime(time.Now())

	api := apiclient.New(cfg.APIURL, apiclient.WithTimeout(cfg.RequestTimeout))
	feed := notify.NewFeed(0)
	queryClient := query.New(query.Options{
		StaleTime: cfg.CacheStaleTime,
		GCTime:    cfg.CacheGCTime,
		Retries:   0,
		Notifier:  feed,
	})
	queries := query.NewDrugQueries(queryClient, api)

	sched := scheduler.NewScheduler(refreshState, queries, cfg.RefreshInterval, cfg.CacheGCTime)
	if err := sched.Start(); err != nil {
		t.Fatalf("Failed to start scheduler: %v", err)
	}
	t.Cleanup(func() {
		sched.Stop()
		queryClient.Close()
	})

	handler := handlers.NewHTTPHandler(
		queries,
		validation.NewDataValidator(),
		health.NewHealthChecker(refreshState, cfg.RefreshInterval, cfg.APIURL),
		feed,
		view.NewSorter(language.English),
		cfg.PageSize,
	)

	return &testStack{router: server.NewServer(cfg, handler).Router()}
}

// doJSON sends body as JSON, checks the status and decodes into out when
// out is non-nil
func doJSON(t *testing.T, router http.Handler, method, path string, body any, wantStatus int, out any) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Failed to encode body: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != wantStatus {
		t.Fatalf("%s %s: expected status %d, got %d: %s", method, path, wantStatus, w.Code, w.Body.String())
	}
	if out != nil {
		if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
			t.Fatalf("%s %s: failed to decode response: %v", method, path, err)
		}
	}
}
