package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/custodia-labs/sercha-scan/internal/core/domain"
	"github.com/custodia-labs/sercha-scan/internal/core/ports/driven/mocks"
	"github.com/custodia-labs/sercha-scan/internal/core/ports/driving"
)

var errNotImplemented = errors.New("not implemented")

// Mock services for testing

type mockWorkspaceService struct {
	documentsFn     func() []driving.DocumentView
	documentFn      func(name string) (*driving.DocumentView, error)
	workingFn       func() (*driving.DocumentView, *driving.PageView)
	openFn          func(ctx context.Context, name string) (*driving.DocumentView, error)
	openPageFn      func(ctx context.Context, name string, order int, mode domain.Mode) (*driving.PageView, error)
	importFolderFn  func(ctx context.Context, dir string) (*driving.DocumentView, error)
	importFileFn    func(ctx context.Context, path string) (*driving.DocumentView, error)
	renameFn        func(ctx context.Context, name, newName string) (*driving.DocumentView, error)
	deleteFn        func(ctx context.Context, name string) error
	deletePageFn    func(ctx context.Context, name string, order int) error
	reorderFn       func(ctx context.Context, name string, order, newOrder int) (*driving.DocumentView, error)
	updatePageFn    func(ctx context.Context, name string, order int, update driving.PageUpdate) (*driving.PageView, error)
	searchFn        func(ctx context.Context, query string) (*driving.ResultsView, error)
	backFn          func() (*driving.EventView, bool)
	nextFn          func() (*driving.EventView, bool)
	historyFn       func() driving.HistoryView
	exportTextFn    func(ctx context.Context, name, outPath string) error
	exportImagesFn  func(ctx context.Context, name, outDir string) error
	requestOCRFn    func(ctx context.Context, name, page string) ([]*domain.Task, error)
	requestExportFn func(ctx context.Context, name, outPath string) (*domain.Task, error)
}

func (m *mockWorkspaceService) Startup(ctx context.Context) error  { return nil }
func (m *mockWorkspaceService) Shutdown(ctx context.Context) error { return nil }

func (m *mockWorkspaceService) Documents() []driving.DocumentView {
	if m.documentsFn != nil {
		return m.documentsFn()
	}
	return nil
}

func (m *mockWorkspaceService) Document(name string) (*driving.DocumentView, error) {
	if m.documentFn != nil {
		return m.documentFn(name)
	}
	return nil, errNotImplemented
}

func (m *mockWorkspaceService) Working() (*driving.DocumentView, *driving.PageView) {
	if m.workingFn != nil {
		return m.workingFn()
	}
	return nil, nil
}

func (m *mockWorkspaceService) Open(ctx context.Context, name string) (*driving.DocumentView, error) {
	if m.openFn != nil {
		return m.openFn(ctx, name)
	}
	return nil, errNotImplemented
}

func (m *mockWorkspaceService) OpenPage(ctx context.Context, name string, order int, mode domain.Mode) (*driving.PageView, error) {
	if m.openPageFn != nil {
		return m.openPageFn(ctx, name, order, mode)
	}
	return nil, errNotImplemented
}

func (m *mockWorkspaceService) ImportFolder(ctx context.Context, dir string) (*driving.DocumentView, error) {
	if m.importFolderFn != nil {
		return m.importFolderFn(ctx, dir)
	}
	return nil, errNotImplemented
}

func (m *mockWorkspaceService) ImportFile(ctx context.Context, path string) (*driving.DocumentView, error) {
	if m.importFileFn != nil {
		return m.importFileFn(ctx, path)
	}
	return nil, errNotImplemented
}

func (m *mockWorkspaceService) RenameDocument(ctx context.Context, name, newName string) (*driving.DocumentView, error) {
	if m.renameFn != nil {
		return m.renameFn(ctx, name, newName)
	}
	return nil, errNotImplemented
}

func (m *mockWorkspaceService) DeleteDocument(ctx context.Context, name string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, name)
	}
	return errNotImplemented
}

func (m *mockWorkspaceService) DeletePage(ctx context.Context, name string, order int) error {
	if m.deletePageFn != nil {
		return m.deletePageFn(ctx, name, order)
	}
	return errNotImplemented
}

func (m *mockWorkspaceService) ReorderPage(ctx context.Context, name string, order, newOrder int) (*driving.DocumentView, error) {
	if m.reorderFn != nil {
		return m.reorderFn(ctx, name, order, newOrder)
	}
	return nil, errNotImplemented
}

func (m *mockWorkspaceService) UpdatePage(ctx context.Context, name string, order int, update driving.PageUpdate) (*driving.PageView, error) {
	if m.updatePageFn != nil {
		return m.updatePageFn(ctx, name, order, update)
	}
	return nil, errNotImplemented
}

func (m *mockWorkspaceService) SerializeDocument(ctx context.Context, name string) error {
	return errNotImplemented
}

func (m *mockWorkspaceService) Search(ctx context.Context, query string) (*driving.ResultsView, error) {
	if m.searchFn != nil {
		return m.searchFn(ctx, query)
	}
	return nil, errNotImplemented
}

func (m *mockWorkspaceService) Back() (*driving.EventView, bool) {
	if m.backFn != nil {
		return m.backFn()
	}
	return nil, false
}

func (m *mockWorkspaceService) Next() (*driving.EventView, bool) {
	if m.nextFn != nil {
		return m.nextFn()
	}
	return nil, false
}

func (m *mockWorkspaceService) History() driving.HistoryView {
	if m.historyFn != nil {
		return m.historyFn()
	}
	return driving.HistoryView{}
}

func (m *mockWorkspaceService) PageImage(name, page string) (string, error) {
	return "", errNotImplemented
}

func (m *mockWorkspaceService) PendingOCR(name string) ([]string, error) {
	return nil, errNotImplemented
}

func (m *mockWorkspaceService) ApplyOCR(ctx context.Context, name, page string, text *domain.PageText) error {
	return errNotImplemented
}

func (m *mockWorkspaceService) ExportText(ctx context.Context, name, outPath string) error {
	if m.exportTextFn != nil {
		return m.exportTextFn(ctx, name, outPath)
	}
	return errNotImplemented
}

func (m *mockWorkspaceService) ExportImages(ctx context.Context, name, outDir string) error {
	if m.exportImagesFn != nil {
		return m.exportImagesFn(ctx, name, outDir)
	}
	return errNotImplemented
}

func (m *mockWorkspaceService) RequestOCR(ctx context.Context, name, page string) ([]*domain.Task, error) {
	if m.requestOCRFn != nil {
		return m.requestOCRFn(ctx, name, page)
	}
	return nil, errNotImplemented
}

func (m *mockWorkspaceService) RequestExport(ctx context.Context, name, outPath string) (*domain.Task, error) {
	if m.requestExportFn != nil {
		return m.requestExportFn(ctx, name, outPath)
	}
	return nil, errNotImplemented
}

func (m *mockWorkspaceService) State() *domain.WorkspaceState { return &domain.WorkspaceState{} }

func (m *mockWorkspaceService) SetOCREnginePath(ctx context.Context, path string) error { return nil }

type mockSettingsService struct {
	getOCRFn    func(ctx context.Context) (*driving.OCRStatus, error)
	updateOCRFn func(ctx context.Context, path string) (*driving.OCRStatus, error)
}

func (m *mockSettingsService) GetOCR(ctx context.Context) (*driving.OCRStatus, error) {
	if m.getOCRFn != nil {
		return m.getOCRFn(ctx)
	}
	return nil, errNotImplemented
}

func (m *mockSettingsService) UpdateOCR(ctx context.Context, path string) (*driving.OCRStatus, error) {
	if m.updateOCRFn != nil {
		return m.updateOCRFn(ctx, path)
	}
	return nil, errNotImplemented
}

type failingPinger struct{}

func (failingPinger) Ping(ctx context.Context) error { return errors.New("connection refused") }

// Test helpers

func newTestServer(ws *mockWorkspaceService, settings *mockSettingsService, queue *mocks.MockTaskQueue) *Server {
	if ws == nil {
		ws = &mockWorkspaceService{}
	}
	if settings == nil {
		settings = &mockSettingsService{}
	}
	if queue == nil {
		return NewServer(DefaultConfig(), ws, settings, nil, nil)
	}
	return NewServer(DefaultConfig(), ws, settings, queue, nil)
}

func doRequest(s *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else {
			_ = json.NewEncoder(&buf).Encode(body)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	s.ServeHTTP(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var resp ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	return resp.Error
}

func lettersView() *driving.DocumentView {
	return &driving.DocumentView{
		Name: "letters",
		Path: "/ws/docs/letters/doc.xml",
		Pages: []driving.PageView{
			{Order: 0, Name: "scan_001"},
			{Order: 1, Name: "scan_002"},
		},
	}
}

// Health endpoints

func TestHealthHandler(t *testing.T) {
	rr := doRequest(newTestServer(nil, nil, nil), "GET", "/health", nil)

	if rr.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rr.Code)
	}
	var resp map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["status"] != "ok" {
		t.Errorf("expected status ok, got %s", resp["status"])
	}
}

func TestReadyHandler(t *testing.T) {
	rr := doRequest(newTestServer(nil, nil, mocks.NewMockTaskQueue()), "GET", "/ready", nil)
	if rr.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rr.Code)
	}
}

func TestReadyHandler_LockDown(t *testing.T) {
	s := NewServer(DefaultConfig(), &mockWorkspaceService{}, &mockSettingsService{}, mocks.NewMockTaskQueue(), failingPinger{})
	rr := doRequest(s, "GET", "/ready", nil)

	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, got %d", rr.Code)
	}
	if msg := decodeError(t, rr); msg != "lock: connection refused" {
		t.Errorf("unexpected error %q", msg)
	}
}

func TestVersionHandler(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Version = "1.2.3"
	s := NewServer(cfg, &mockWorkspaceService{}, &mockSettingsService{}, nil, nil)
	rr := doRequest(s, "GET", "/version", nil)

	var resp VersionResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Version != "1.2.3" {
		t.Errorf("expected version 1.2.3, got %s", resp.Version)
	}
}

func TestWriteJSON(t *testing.T) {
	rr := httptest.NewRecorder()
	writeJSON(rr, http.StatusCreated, map[string]string{"key": "value"})

	if rr.Code != http.StatusCreated {
		t.Errorf("expected status 201, got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected Content-Type application/json, got %s", ct)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{domain.ErrNotFound, http.StatusNotFound},
		{fmt.Errorf("%w: letters", domain.ErrNotFound), http.StatusNotFound},
		{domain.ErrInvalidInput, http.StatusBadRequest},
		{domain.ErrOutOfRange, http.StatusBadRequest},
		{domain.ErrAlreadyExists, http.StatusConflict},
		{fmt.Errorf("%w: doc.xml: %w", domain.ErrParse, errors.New("EOF")), http.StatusUnprocessableEntity},
		{domain.ErrServiceUnavailable, http.StatusServiceUnavailable},
		{domain.ErrCancelled, http.StatusGatewayTimeout},
		{domain.ErrIO, http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			if got := statusFor(tt.err); got != tt.want {
				t.Errorf("expected %d, got %d", tt.want, got)
			}
		})
	}
}

// Document endpoints

func TestHandleListDocuments_Empty(t *testing.T) {
	rr := doRequest(newTestServer(nil, nil, nil), "GET", "/api/v1/documents", nil)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if body := rr.Body.String(); body != "[]\n" {
		t.Errorf("expected empty array, got %q", body)
	}
}

func TestHandleGetDocument(t *testing.T) {
	ws := &mockWorkspaceService{
		documentFn: func(name string) (*driving.DocumentView, error) {
			if name == "letters" {
				return lettersView(), nil
			}
			return nil, fmt.Errorf("%w: document %s", domain.ErrNotFound, name)
		},
	}
	s := newTestServer(ws, nil, nil)

	rr := doRequest(s, "GET", "/api/v1/documents/letters", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	var doc driving.DocumentView
	if err := json.NewDecoder(rr.Body).Decode(&doc); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if doc.Name != "letters" || len(doc.Pages) != 2 {
		t.Errorf("unexpected document %+v", doc)
	}

	rr = doRequest(s, "GET", "/api/v1/documents/bills", nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", rr.Code)
	}
	if msg := decodeError(t, rr); msg != "not found: document bills" {
		t.Errorf("unexpected error %q", msg)
	}
}

func TestHandleImport(t *testing.T) {
	var folderCalls, fileCalls []string
	ws := &mockWorkspaceService{
		importFolderFn: func(ctx context.Context, dir string) (*driving.DocumentView, error) {
			folderCalls = append(folderCalls, dir)
			return lettersView(), nil
		},
		importFileFn: func(ctx context.Context, path string) (*driving.DocumentView, error) {
			fileCalls = append(fileCalls, path)
			return nil, fmt.Errorf("%w: document scan", domain.ErrAlreadyExists)
		},
	}
	s := newTestServer(ws, nil, nil)

	rr := doRequest(s, "POST", "/api/v1/documents/import", ImportRequest{Path: "/scans/letters", Folder: true})
	if rr.Code != http.StatusCreated {
		t.Errorf("expected status 201, got %d", rr.Code)
	}

	rr = doRequest(s, "POST", "/api/v1/documents/import", ImportRequest{Path: "/scans/scan.png"})
	if rr.Code != http.StatusConflict {
		t.Errorf("expected status 409, got %d", rr.Code)
	}

	if len(folderCalls) != 1 || folderCalls[0] != "/scans/letters" {
		t.Errorf("unexpected folder imports %v", folderCalls)
	}
	if len(fileCalls) != 1 || fileCalls[0] != "/scans/scan.png" {
		t.Errorf("unexpected file imports %v", fileCalls)
	}
}

func TestHandleImport_BadRequest(t *testing.T) {
	s := newTestServer(nil, nil, nil)

	rr := doRequest(s, "POST", "/api/v1/documents/import", "{not json")
	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected status 400 for invalid JSON, got %d", rr.Code)
	}

	rr = doRequest(s, "POST", "/api/v1/documents/import", ImportRequest{Path: "  "})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected status 400 for empty path, got %d", rr.Code)
	}
}

func TestHandleRenameDocument(t *testing.T) {
	ws := &mockWorkspaceService{
		renameFn: func(ctx context.Context, name, newName string) (*driving.DocumentView, error) {
			if name != "letters" {
				t.Errorf("unexpected name %s", name)
			}
			doc := lettersView()
			doc.Name = newName
			return doc, nil
		},
	}
	s := newTestServer(ws, nil, nil)

	rr := doRequest(s, "PUT", "/api/v1/documents/letters", RenameRequest{Name: "letters-2024"})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	var doc driving.DocumentView
	_ = json.NewDecoder(rr.Body).Decode(&doc)
	if doc.Name != "letters-2024" {
		t.Errorf("expected renamed document, got %s", doc.Name)
	}

	rr = doRequest(s, "PUT", "/api/v1/documents/letters", RenameRequest{})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rr.Code)
	}
}

func TestHandleDeleteDocument(t *testing.T) {
	ws := &mockWorkspaceService{
		deleteFn: func(ctx context.Context, name string) error {
			if name == "letters" {
				return nil
			}
			return fmt.Errorf("%w: remove docs/%s: %w", domain.ErrIO, name, errors.New("permission denied"))
		},
	}
	s := newTestServer(ws, nil, nil)

	if rr := doRequest(s, "DELETE", "/api/v1/documents/letters", nil); rr.Code != http.StatusNoContent {
		t.Errorf("expected status 204, got %d", rr.Code)
	}
	if rr := doRequest(s, "DELETE", "/api/v1/documents/locked", nil); rr.Code != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", rr.Code)
	}
}

func TestHandleOpenDocumentAndWorking(t *testing.T) {
	var working *driving.DocumentView
	ws := &mockWorkspaceService{
		openFn: func(ctx context.Context, name string) (*driving.DocumentView, error) {
			working = lettersView()
			working.Working = true
			return working, nil
		},
		workingFn: func() (*driving.DocumentView, *driving.PageView) {
			if working == nil {
				return nil, nil
			}
			return working, &working.Pages[0]
		},
	}
	s := newTestServer(ws, nil, nil)

	rr := doRequest(s, "GET", "/api/v1/working", nil)
	if body := rr.Body.String(); body != "{}\n" {
		t.Errorf("expected empty working response, got %q", body)
	}

	if rr := doRequest(s, "POST", "/api/v1/documents/letters/open", nil); rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	rr = doRequest(s, "GET", "/api/v1/working", nil)
	var resp WorkingResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Document == nil || !resp.Document.Working || resp.Page == nil || resp.Page.Name != "scan_001" {
		t.Errorf("unexpected working response %+v", resp)
	}
}

func TestHandleRequestOCR(t *testing.T) {
	ws := &mockWorkspaceService{
		requestOCRFn: func(ctx context.Context, name, page string) ([]*domain.Task, error) {
			if page == "" {
				return []*domain.Task{
					domain.NewOCRPageTask(name, "scan_001"),
					domain.NewOCRPageTask(name, "scan_002"),
				}, nil
			}
			return []*domain.Task{domain.NewOCRPageTask(name, page)}, nil
		},
	}
	s := newTestServer(ws, nil, nil)

	tests := []struct {
		name  string
		body  interface{}
		tasks int
	}{
		{name: "every page", body: nil, tasks: 2},
		{name: "one page", body: OCRRequest{Page: "scan_002"}, tasks: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doRequest(s, "POST", "/api/v1/documents/letters/ocr", tt.body)
			if rr.Code != http.StatusAccepted {
				t.Fatalf("expected status 202, got %d", rr.Code)
			}
			var resp TasksResponse
			_ = json.NewDecoder(rr.Body).Decode(&resp)
			if len(resp.Tasks) != tt.tasks {
				t.Errorf("expected %d tasks, got %d", tt.tasks, len(resp.Tasks))
			}
		})
	}
}

func TestHandleRequestOCR_NoQueue(t *testing.T) {
	ws := &mockWorkspaceService{
		requestOCRFn: func(ctx context.Context, name, page string) ([]*domain.Task, error) {
			return nil, fmt.Errorf("%w: no task queue", domain.ErrServiceUnavailable)
		},
	}
	rr := doRequest(newTestServer(ws, nil, nil), "POST", "/api/v1/documents/letters/ocr", nil)
	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, got %d", rr.Code)
	}
}

func TestHandleExport(t *testing.T) {
	var textOut, imagesOut string
	ws := &mockWorkspaceService{
		requestExportFn: func(ctx context.Context, name, outPath string) (*domain.Task, error) {
			return domain.NewExportTask(name, outPath), nil
		},
		exportTextFn: func(ctx context.Context, name, outPath string) error {
			textOut = outPath
			return nil
		},
		exportImagesFn: func(ctx context.Context, name, outDir string) error {
			imagesOut = outDir
			return fmt.Errorf("%w: %s", domain.ErrAlreadyExists, outDir)
		},
	}
	s := newTestServer(ws, nil, nil)

	tests := []struct {
		name   string
		req    ExportRequest
		status int
	}{
		{name: "pdf default", req: ExportRequest{Output: "/out/letters.pdf"}, status: http.StatusAccepted},
		{name: "pdf", req: ExportRequest{Output: "/out/letters.pdf", Format: ExportFormatPDF}, status: http.StatusAccepted},
		{name: "text", req: ExportRequest{Output: "/out/letters.txt", Format: ExportFormatText}, status: http.StatusOK},
		{name: "images exist", req: ExportRequest{Output: "/out/letters", Format: ExportFormatImages}, status: http.StatusConflict},
		{name: "unknown format", req: ExportRequest{Output: "/out/letters.docx", Format: "docx"}, status: http.StatusBadRequest},
		{name: "missing output", req: ExportRequest{Format: ExportFormatText}, status: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doRequest(s, "POST", "/api/v1/documents/letters/export", tt.req)
			if rr.Code != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, rr.Code)
			}
		})
	}

	if textOut != "/out/letters.txt" {
		t.Errorf("unexpected text output %q", textOut)
	}
	if imagesOut != "/out/letters" {
		t.Errorf("unexpected images output %q", imagesOut)
	}
}

// Page endpoints

func TestHandleUpdatePage(t *testing.T) {
	ws := &mockWorkspaceService{
		updatePageFn: func(ctx context.Context, name string, order int, update driving.PageUpdate) (*driving.PageView, error) {
			if update.Corners != nil {
				t.Error("expected corners to be left alone")
			}
			if update.Config == nil || !update.Config.FlipHorizontal {
				t.Errorf("unexpected config %+v", update.Config)
			}
			return &driving.PageView{Order: order, Name: "scan_002", Config: *update.Config}, nil
		},
	}
	s := newTestServer(ws, nil, nil)

	body := `{"config": {"flip_horizontal": true, "rotation": 90}}`
	rr := doRequest(s, "PUT", "/api/v1/documents/letters/pages/1", body)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	rr = doRequest(s, "PUT", "/api/v1/documents/letters/pages/one", body)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected status 400 for bad order, got %d", rr.Code)
	}
}

func TestHandleDeletePage(t *testing.T) {
	ws := &mockWorkspaceService{
		deletePageFn: func(ctx context.Context, name string, order int) error {
			if order > 1 {
				return fmt.Errorf("%w: %d", domain.ErrOutOfRange, order)
			}
			return nil
		},
	}
	s := newTestServer(ws, nil, nil)

	if rr := doRequest(s, "DELETE", "/api/v1/documents/letters/pages/0", nil); rr.Code != http.StatusNoContent {
		t.Errorf("expected status 204, got %d", rr.Code)
	}
	if rr := doRequest(s, "DELETE", "/api/v1/documents/letters/pages/7", nil); rr.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rr.Code)
	}
}

func TestHandleOpenPage(t *testing.T) {
	var modes []domain.Mode
	ws := &mockWorkspaceService{
		openPageFn: func(ctx context.Context, name string, order int, mode domain.Mode) (*driving.PageView, error) {
			modes = append(modes, mode)
			return &driving.PageView{Order: order}, nil
		},
	}
	s := newTestServer(ws, nil, nil)

	doRequest(s, "POST", "/api/v1/documents/letters/pages/0/open", nil)
	doRequest(s, "POST", "/api/v1/documents/letters/pages/1/open", OpenPageRequest{Mode: domain.ModeEdit})

	if len(modes) != 2 || modes[0] != domain.ModeView || modes[1] != domain.ModeEdit {
		t.Errorf("unexpected modes %v", modes)
	}
}

func TestHandleReorderPage(t *testing.T) {
	ws := &mockWorkspaceService{
		reorderFn: func(ctx context.Context, name string, order, newOrder int) (*driving.DocumentView, error) {
			if order != 1 || newOrder != 0 {
				t.Errorf("unexpected move %d -> %d", order, newOrder)
			}
			doc := lettersView()
			doc.Pages[0].Name, doc.Pages[1].Name = doc.Pages[1].Name, doc.Pages[0].Name
			return doc, nil
		},
	}
	rr := doRequest(newTestServer(ws, nil, nil), "POST", "/api/v1/documents/letters/pages/1/move", MoveRequest{Order: 0})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	var doc driving.DocumentView
	_ = json.NewDecoder(rr.Body).Decode(&doc)
	if doc.Pages[0].Name != "scan_002" {
		t.Errorf("expected scan_002 first, got %s", doc.Pages[0].Name)
	}
}

// Search and navigation

func TestHandleSearch(t *testing.T) {
	ws := &mockWorkspaceService{
		searchFn: func(ctx context.Context, query string) (*driving.ResultsView, error) {
			return &driving.ResultsView{
				Query:        query,
				InWorkingDoc: []driving.HitView{{Document: "letters", Page: "scan_001", Score: 2}},
				Elsewhere:    []driving.HitView{},
			}, nil
		},
	}
	s := newTestServer(ws, nil, nil)

	rr := doRequest(s, "GET", "/api/v1/search?q=invoice+2024", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	var results driving.ResultsView
	_ = json.NewDecoder(rr.Body).Decode(&results)
	if results.Query != "invoice 2024" || len(results.InWorkingDoc) != 1 {
		t.Errorf("unexpected results %+v", results)
	}

	if rr := doRequest(s, "GET", "/api/v1/search?q=", nil); rr.Code != http.StatusBadRequest {
		t.Errorf("expected status 400 for empty query, got %d", rr.Code)
	}
}

func TestHandleHistory(t *testing.T) {
	events := []driving.EventView{
		{Mode: domain.ModeView, Document: "letters", Page: "scan_001"},
		{Mode: domain.ModeSearchResults, Results: &driving.ResultsView{Query: "invoice"}},
	}
	current := 1
	ws := &mockWorkspaceService{
		historyFn: func() driving.HistoryView {
			return driving.HistoryView{Entries: events, Current: current}
		},
		backFn: func() (*driving.EventView, bool) {
			if current == 0 {
				return nil, false
			}
			current--
			return &events[current], true
		},
		nextFn: func() (*driving.EventView, bool) {
			if current == len(events)-1 {
				return nil, false
			}
			current++
			return &events[current], true
		},
	}
	s := newTestServer(ws, nil, nil)

	if rr := doRequest(s, "POST", "/api/v1/history/next", nil); rr.Code != http.StatusNotFound {
		t.Errorf("expected status 404 at the newest event, got %d", rr.Code)
	}

	rr := doRequest(s, "POST", "/api/v1/history/back", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	var event driving.EventView
	_ = json.NewDecoder(rr.Body).Decode(&event)
	if event.Document != "letters" || event.Mode != domain.ModeView {
		t.Errorf("unexpected event %+v", event)
	}

	if rr := doRequest(s, "POST", "/api/v1/history/back", nil); rr.Code != http.StatusNotFound {
		t.Errorf("expected status 404 at the oldest event, got %d", rr.Code)
	}

	rr = doRequest(s, "GET", "/api/v1/history", nil)
	var history driving.HistoryView
	_ = json.NewDecoder(rr.Body).Decode(&history)
	if len(history.Entries) != 2 || history.Current != 0 {
		t.Errorf("unexpected history %+v", history)
	}
}

// Task endpoints

func TestHandleTasks(t *testing.T) {
	queue := mocks.NewMockTaskQueue()
	ocr := domain.NewOCRPageTask("letters", "scan_001")
	export := domain.NewExportTask("letters", "/out/letters.pdf")
	_ = queue.EnqueueBatch(context.Background(), []*domain.Task{ocr, export})
	s := newTestServer(nil, nil, queue)

	rr := doRequest(s, "GET", "/api/v1/tasks/"+ocr.ID, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	var task domain.Task
	_ = json.NewDecoder(rr.Body).Decode(&task)
	if task.ID != ocr.ID || task.PageName() != "scan_001" {
		t.Errorf("unexpected task %+v", task)
	}

	if rr := doRequest(s, "GET", "/api/v1/tasks/missing", nil); rr.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", rr.Code)
	}

	rr = doRequest(s, "GET", "/api/v1/tasks?type=export_pdf", nil)
	var list TasksResponse
	_ = json.NewDecoder(rr.Body).Decode(&list)
	if len(list.Tasks) != 1 || list.Tasks[0].ID != export.ID {
		t.Errorf("unexpected task list %+v", list.Tasks)
	}

	for _, query := range []string{"limit=x", "limit=-1", "offset=-1", "offset=1.5"} {
		if rr := doRequest(s, "GET", "/api/v1/tasks?"+query, nil); rr.Code != http.StatusBadRequest {
			t.Errorf("%s: expected status 400, got %d", query, rr.Code)
		}
	}

	if rr := doRequest(s, "DELETE", "/api/v1/tasks/"+export.ID, nil); rr.Code != http.StatusNoContent {
		t.Errorf("expected status 204, got %d", rr.Code)
	}

	rr = doRequest(s, "GET", "/api/v1/tasks/stats", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	var stats struct {
		PendingCount int64 `json:"pending_count"`
	}
	_ = json.NewDecoder(rr.Body).Decode(&stats)
	if stats.PendingCount != 1 {
		t.Errorf("expected 1 pending task, got %d", stats.PendingCount)
	}
}

func TestHandleTasks_NoQueue(t *testing.T) {
	s := newTestServer(nil, nil, nil)
	for _, path := range []string{"/api/v1/tasks", "/api/v1/tasks/stats", "/api/v1/tasks/abc"} {
		if rr := doRequest(s, "GET", path, nil); rr.Code != http.StatusServiceUnavailable {
			t.Errorf("%s: expected status 503, got %d", path, rr.Code)
		}
	}
}

// Settings endpoints

func TestHandleOCRSettings(t *testing.T) {
	status := &driving.OCRStatus{Path: "/usr/bin/tesseract", Available: true, Exporter: "pdf"}
	settings := &mockSettingsService{
		getOCRFn: func(ctx context.Context) (*driving.OCRStatus, error) { return status, nil },
		updateOCRFn: func(ctx context.Context, path string) (*driving.OCRStatus, error) {
			if path == "/opt/missing" {
				return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, path)
			}
			status = &driving.OCRStatus{Path: path, Available: path != ""}
			return status, nil
		},
	}
	s := newTestServer(nil, settings, nil)

	rr := doRequest(s, "GET", "/api/v1/settings/ocr", nil)
	var got driving.OCRStatus
	_ = json.NewDecoder(rr.Body).Decode(&got)
	if got.Path != "/usr/bin/tesseract" || !got.Available {
		t.Errorf("unexpected status %+v", got)
	}

	rr = doRequest(s, "PUT", "/api/v1/settings/ocr", OCRSettingsRequest{Path: ""})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	_ = json.NewDecoder(rr.Body).Decode(&got)
	if got.Available {
		t.Error("expected OCR to be disabled")
	}

	if rr := doRequest(s, "PUT", "/api/v1/settings/ocr", OCRSettingsRequest{Path: "/opt/missing"}); rr.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", rr.Code)
	}
}
