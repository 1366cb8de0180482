package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/custodia-labs/sercha-scan/internal/core/domain"
	"github.com/custodia-labs/sercha-scan/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-scan/internal/core/ports/driving"
)

// ErrorResponse represents an API error response
// @Description API error response
type ErrorResponse struct {
	Error string `json:"error" example:"invalid request body"`
}

// StatusResponse represents a simple status response
// @Description Simple status response
type StatusResponse struct {
	Status string `json:"status" example:"ok"`
}

// VersionResponse represents the API version response
// @Description API version response
type VersionResponse struct {
	Version string `json:"version" example:"1.0.0"`
}

// ImportRequest imports a folder of images or a single image file
// @Description Import request
type ImportRequest struct {
	Path   string `json:"path" example:"/home/me/scans/letters"`
	Folder bool   `json:"folder"`
}

// RenameRequest renames a document
// @Description Rename request
type RenameRequest struct {
	Name string `json:"name" example:"letters-2024"`
}

// MoveRequest moves a page to a new order
// @Description Page move request
type MoveRequest struct {
	Order int `json:"order" example:"0"`
}

// OpenPageRequest selects the navigation mode for an opened page
// @Description Open page request
type OpenPageRequest struct {
	Mode domain.Mode `json:"mode" example:"view"`
}

// OCRRequest requests recognition of one page or of every page
// @Description OCR request
type OCRRequest struct {
	Page string `json:"page,omitempty" example:"scan_001"`
}

// Export formats
const (
	ExportFormatPDF    = "pdf"
	ExportFormatText   = "text"
	ExportFormatImages = "images"
)

// ExportRequest exports a document
// @Description Export request
type ExportRequest struct {
	Output string `json:"output" example:"/home/me/letters.pdf"`
	Format string `json:"format" example:"pdf"`
}

// TasksResponse carries queued background tasks
// @Description Task list response
type TasksResponse struct {
	Tasks []*domain.Task `json:"tasks"`
}

// OCRSettingsRequest updates the OCR engine path
// @Description OCR settings request
type OCRSettingsRequest struct {
	Path string `json:"path" example:"/usr/bin/tesseract"`
}

// WorkingResponse is the working document and page
// @Description Working document response
type WorkingResponse struct {
	Document *driving.DocumentView `json:"document,omitempty"`
	Page     *driving.PageView     `json:"page,omitempty"`
}

// Health endpoints

// handleHealth godoc
// @Summary      Health check
// @Description  Returns the health status of the API
// @Tags         Health
// @Produce      json
// @Success      200  {object}  StatusResponse
// @Router       /health [get]
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReady godoc
// @Summary      Readiness check
// @Description  Returns the readiness status of the API (checks task queue and lock connections)
// @Tags         Health
// @Produce      json
// @Success      200  {object}  StatusResponse
// @Failure      503  {object}  ErrorResponse  "Queue or lock unreachable"
// @Router       /ready [get]
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.taskQueue != nil {
		if err := s.taskQueue.Ping(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "task queue: "+err.Error())
			return
		}
	}
	if s.lock != nil {
		if err := s.lock.Ping(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "lock: "+err.Error())
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// handleVersion godoc
// @Summary      Get API version
// @Description  Returns the current API version
// @Tags         Health
// @Produce      json
// @Success      200  {object}  VersionResponse
// @Router       /version [get]
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": s.version})
}

// Document endpoints

// handleListDocuments godoc
// @Summary      List documents
// @Description  List every known document with its pages
// @Tags         Documents
// @Produce      json
// @Success      200  {array}   driving.DocumentView
// @Router       /documents [get]
func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	docs := s.workspace.Documents()
	if docs == nil {
		docs = []driving.DocumentView{}
	}
	writeJSON(w, http.StatusOK, docs)
}

// handleGetDocument godoc
// @Summary      Get document
// @Description  Get a document and its pages by name
// @Tags         Documents
// @Produce      json
// @Param        name  path      string  true  "Document name"
// @Success      200   {object}  driving.DocumentView
// @Failure      404   {object}  ErrorResponse  "Document not found"
// @Router       /documents/{name} [get]
func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.workspace.Document(r.PathValue("name"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// handleImport godoc
// @Summary      Import images
// @Description  Create a document from a folder of images or from a single image file
// @Tags         Documents
// @Accept       json
// @Produce      json
// @Param        request  body      ImportRequest  true  "Import source"
// @Success      201      {object}  driving.DocumentView
// @Failure      400      {object}  ErrorResponse  "Invalid request body"
// @Failure      404      {object}  ErrorResponse  "Source not found"
// @Failure      409      {object}  ErrorResponse  "Document already exists"
// @Router       /documents/import [post]
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	var req ImportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Path) == "" {
		writeError(w, http.StatusBadRequest, "path is required")
		return
	}

	var (
		doc *driving.DocumentView
		err error
	)
	if req.Folder {
		doc, err = s.workspace.ImportFolder(r.Context(), req.Path)
	} else {
		doc, err = s.workspace.ImportFile(r.Context(), req.Path)
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}

// handleRenameDocument godoc
// @Summary      Rename document
// @Description  Rename a document and move its directory
// @Tags         Documents
// @Accept       json
// @Produce      json
// @Param        name     path      string         true  "Document name"
// @Param        request  body      RenameRequest  true  "New name"
// @Success      200      {object}  driving.DocumentView
// @Failure      400      {object}  ErrorResponse  "Invalid request body"
// @Failure      404      {object}  ErrorResponse  "Document not found"
// @Failure      409      {object}  ErrorResponse  "Name already taken"
// @Router       /documents/{name} [put]
func (s *Server) handleRenameDocument(w http.ResponseWriter, r *http.Request) {
	var req RenameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	doc, err := s.workspace.RenameDocument(r.Context(), r.PathValue("name"), req.Name)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// handleDeleteDocument godoc
// @Summary      Delete document
// @Description  Delete a document, its pages and their files
// @Tags         Documents
// @Param        name  path  string  true  "Document name"
// @Success      204   "No Content"
// @Failure      404   {object}  ErrorResponse  "Document not found"
// @Failure      500   {object}  ErrorResponse  "Files could not be removed"
// @Router       /documents/{name} [delete]
func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	if err := s.workspace.DeleteDocument(r.Context(), r.PathValue("name")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleOpenDocument godoc
// @Summary      Open document
// @Description  Make a document the working document
// @Tags         Documents
// @Produce      json
// @Param        name  path      string  true  "Document name"
// @Success      200   {object}  driving.DocumentView
// @Failure      404   {object}  ErrorResponse  "Document not found"
// @Router       /documents/{name}/open [post]
func (s *Server) handleOpenDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.workspace.Open(r.Context(), r.PathValue("name"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// handleWorking godoc
// @Summary      Working document
// @Description  Get the working document and page
// @Tags         Documents
// @Produce      json
// @Success      200  {object}  WorkingResponse
// @Router       /working [get]
func (s *Server) handleWorking(w http.ResponseWriter, r *http.Request) {
	doc, page := s.workspace.Working()
	writeJSON(w, http.StatusOK, WorkingResponse{Document: doc, Page: page})
}

// handleRequestOCR godoc
// @Summary      Request OCR
// @Description  Queue recognition of one page, or of every page when no page is given
// @Tags         Documents
// @Accept       json
// @Produce      json
// @Param        name     path      string      true   "Document name"
// @Param        request  body      OCRRequest  false  "Page to recognise"
// @Success      202      {object}  TasksResponse
// @Failure      404      {object}  ErrorResponse  "Document or page not found"
// @Failure      503      {object}  ErrorResponse  "No task queue"
// @Router       /documents/{name}/ocr [post]
func (s *Server) handleRequestOCR(w http.ResponseWriter, r *http.Request) {
	var req OCRRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	tasks, err := s.workspace.RequestOCR(r.Context(), r.PathValue("name"), req.Page)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if tasks == nil {
		tasks = []*domain.Task{}
	}
	writeJSON(w, http.StatusAccepted, TasksResponse{Tasks: tasks})
}

// handleExport godoc
// @Summary      Export document
// @Description  Export a document. PDF exports are queued; text and image exports run synchronously.
// @Tags         Documents
// @Accept       json
// @Produce      json
// @Param        name     path      string         true  "Document name"
// @Param        request  body      ExportRequest  true  "Export target"
// @Success      200      {object}  StatusResponse  "Text or images exported"
// @Success      202      {object}  domain.Task     "PDF export queued"
// @Failure      400      {object}  ErrorResponse   "Invalid request body"
// @Failure      404      {object}  ErrorResponse   "Document not found"
// @Failure      409      {object}  ErrorResponse   "Output already exists"
// @Failure      503      {object}  ErrorResponse   "No task queue"
// @Router       /documents/{name}/export [post]
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	var req ExportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Output) == "" {
		writeError(w, http.StatusBadRequest, "output is required")
		return
	}

	name := r.PathValue("name")
	switch req.Format {
	case "", ExportFormatPDF:
		task, err := s.workspace.RequestExport(r.Context(), name, req.Output)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusAccepted, task)
	case ExportFormatText:
		if err := s.workspace.ExportText(r.Context(), name, req.Output); err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "exported"})
	case ExportFormatImages:
		if err := s.workspace.ExportImages(r.Context(), name, req.Output); err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "exported"})
	default:
		writeError(w, http.StatusBadRequest, "unknown export format: "+req.Format)
	}
}

// Page endpoints

// handleUpdatePage godoc
// @Summary      Update page
// @Description  Replace the adjustment config and corners of a page
// @Tags         Pages
// @Accept       json
// @Produce      json
// @Param        name     path      string              true  "Document name"
// @Param        order    path      int                 true  "Page order"
// @Param        request  body      driving.PageUpdate  true  "Page changes"
// @Success      200      {object}  driving.PageView
// @Failure      400      {object}  ErrorResponse  "Invalid request"
// @Failure      404      {object}  ErrorResponse  "Document not found"
// @Router       /documents/{name}/pages/{order} [put]
func (s *Server) handleUpdatePage(w http.ResponseWriter, r *http.Request) {
	order, ok := pathOrder(w, r)
	if !ok {
		return
	}
	var req driving.PageUpdate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	page, err := s.workspace.UpdatePage(r.Context(), r.PathValue("name"), order, req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// handleDeletePage godoc
// @Summary      Delete page
// @Description  Delete a page and renumber the remaining pages
// @Tags         Pages
// @Param        name   path  string  true  "Document name"
// @Param        order  path  int     true  "Page order"
// @Success      204    "No Content"
// @Failure      400    {object}  ErrorResponse  "Order out of range"
// @Failure      404    {object}  ErrorResponse  "Document not found"
// @Router       /documents/{name}/pages/{order} [delete]
func (s *Server) handleDeletePage(w http.ResponseWriter, r *http.Request) {
	order, ok := pathOrder(w, r)
	if !ok {
		return
	}
	if err := s.workspace.DeletePage(r.Context(), r.PathValue("name"), order); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleOpenPage godoc
// @Summary      Open page
// @Description  Make a page current and record a navigation event
// @Tags         Pages
// @Accept       json
// @Produce      json
// @Param        name     path      string           true   "Document name"
// @Param        order    path      int              true   "Page order"
// @Param        request  body      OpenPageRequest  false  "Navigation mode (default view)"
// @Success      200      {object}  driving.PageView
// @Failure      400      {object}  ErrorResponse  "Invalid mode or order"
// @Failure      404      {object}  ErrorResponse  "Document not found"
// @Router       /documents/{name}/pages/{order}/open [post]
func (s *Server) handleOpenPage(w http.ResponseWriter, r *http.Request) {
	order, ok := pathOrder(w, r)
	if !ok {
		return
	}
	req := OpenPageRequest{Mode: domain.ModeView}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	page, err := s.workspace.OpenPage(r.Context(), r.PathValue("name"), order, req.Mode)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// handleReorderPage godoc
// @Summary      Move page
// @Description  Move a page to a new order, shifting the pages in between
// @Tags         Pages
// @Accept       json
// @Produce      json
// @Param        name     path      string       true  "Document name"
// @Param        order    path      int          true  "Current page order"
// @Param        request  body      MoveRequest  true  "New order"
// @Success      200      {object}  driving.DocumentView
// @Failure      400      {object}  ErrorResponse  "Order out of range"
// @Failure      404      {object}  ErrorResponse  "Document not found"
// @Router       /documents/{name}/pages/{order}/move [post]
func (s *Server) handleReorderPage(w http.ResponseWriter, r *http.Request) {
	order, ok := pathOrder(w, r)
	if !ok {
		return
	}
	var req MoveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	doc, err := s.workspace.ReorderPage(r.Context(), r.PathValue("name"), order, req.Order)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// Search and navigation

// handleSearch godoc
// @Summary      Search
// @Description  Search the working document and every other document
// @Tags         Search
// @Produce      json
// @Param        q    query     string  true  "Query"
// @Success      200  {object}  driving.ResultsView
// @Failure      400  {object}  ErrorResponse  "Missing query"
// @Router       /search [get]
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if strings.TrimSpace(query) == "" {
		writeError(w, http.StatusBadRequest, "query parameter q is required")
		return
	}

	results, err := s.workspace.Search(r.Context(), query)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

// handleHistory godoc
// @Summary      Navigation history
// @Description  Get the navigation log and the current position
// @Tags         History
// @Produce      json
// @Success      200  {object}  driving.HistoryView
// @Router       /history [get]
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.workspace.History())
}

// handleBack godoc
// @Summary      Step back
// @Description  Step back in the navigation history
// @Tags         History
// @Produce      json
// @Success      200  {object}  driving.EventView
// @Failure      404  {object}  ErrorResponse  "Already at the oldest event"
// @Router       /history/back [post]
func (s *Server) handleBack(w http.ResponseWriter, r *http.Request) {
	event, ok := s.workspace.Back()
	if !ok {
		writeError(w, http.StatusNotFound, "no earlier event")
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// handleNext godoc
// @Summary      Step forward
// @Description  Step forward in the navigation history
// @Tags         History
// @Produce      json
// @Success      200  {object}  driving.EventView
// @Failure      404  {object}  ErrorResponse  "Already at the newest event"
// @Router       /history/next [post]
func (s *Server) handleNext(w http.ResponseWriter, r *http.Request) {
	event, ok := s.workspace.Next()
	if !ok {
		writeError(w, http.StatusNotFound, "no later event")
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// Task endpoints

// handleListTasks godoc
// @Summary      List tasks
// @Description  List background tasks, optionally filtered
// @Tags         Tasks
// @Produce      json
// @Param        status  query     string  false  "Task status"
// @Param        type    query     string  false  "Task type"
// @Param        limit   query     int     false  "Max results"
// @Param        offset  query     int     false  "Results to skip"
// @Success      200     {object}  TasksResponse
// @Failure      503     {object}  ErrorResponse  "No task queue"
// @Router       /tasks [get]
func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	if s.taskQueue == nil {
		writeError(w, http.StatusServiceUnavailable, "task queue not configured")
		return
	}

	q := r.URL.Query()
	filter := driven.TaskFilter{
		Status: domain.TaskStatus(q.Get("status")),
		Type:   domain.TaskType(q.Get("type")),
	}
	var err error
	if filter.Limit, err = queryInt(q.Get("limit")); err != nil {
		writeError(w, http.StatusBadRequest, "invalid limit")
		return
	}
	if filter.Offset, err = queryInt(q.Get("offset")); err != nil {
		writeError(w, http.StatusBadRequest, "invalid offset")
		return
	}

	tasks, err := s.taskQueue.ListTasks(r.Context(), filter)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if tasks == nil {
		tasks = []*domain.Task{}
	}
	writeJSON(w, http.StatusOK, TasksResponse{Tasks: tasks})
}

// handleTaskStats godoc
// @Summary      Queue statistics
// @Description  Get task counts by status
// @Tags         Tasks
// @Produce      json
// @Success      200  {object}  driven.QueueStats
// @Failure      503  {object}  ErrorResponse  "No task queue"
// @Router       /tasks/stats [get]
func (s *Server) handleTaskStats(w http.ResponseWriter, r *http.Request) {
	if s.taskQueue == nil {
		writeError(w, http.StatusServiceUnavailable, "task queue not configured")
		return
	}
	stats, err := s.taskQueue.Stats(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// handleGetTask godoc
// @Summary      Get task
// @Description  Get a background task by ID
// @Tags         Tasks
// @Produce      json
// @Param        id   path      string  true  "Task ID"
// @Success      200  {object}  domain.Task
// @Failure      404  {object}  ErrorResponse  "Task not found"
// @Failure      503  {object}  ErrorResponse  "No task queue"
// @Router       /tasks/{id} [get]
func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	if s.taskQueue == nil {
		writeError(w, http.StatusServiceUnavailable, "task queue not configured")
		return
	}
	task, err := s.taskQueue.GetTask(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// handleCancelTask godoc
// @Summary      Cancel task
// @Description  Cancel a pending background task
// @Tags         Tasks
// @Param        id   path  string  true  "Task ID"
// @Success      204  "No Content"
// @Failure      400  {object}  ErrorResponse  "Task is not pending"
// @Failure      404  {object}  ErrorResponse  "Task not found"
// @Router       /tasks/{id} [delete]
func (s *Server) handleCancelTask(w http.ResponseWriter, r *http.Request) {
	if s.taskQueue == nil {
		writeError(w, http.StatusServiceUnavailable, "task queue not configured")
		return
	}
	if err := s.taskQueue.CancelTask(r.Context(), r.PathValue("id")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Settings endpoints

// handleGetOCRSettings godoc
// @Summary      Get OCR settings
// @Description  Get the configured OCR engine and its availability
// @Tags         Settings
// @Produce      json
// @Success      200  {object}  driving.OCRStatus
// @Router       /settings/ocr [get]
func (s *Server) handleGetOCRSettings(w http.ResponseWriter, r *http.Request) {
	status, err := s.settings.GetOCR(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// handleUpdateOCRSettings godoc
// @Summary      Update OCR settings
// @Description  Switch to another tesseract executable. An empty path disables OCR.
// @Tags         Settings
// @Accept       json
// @Produce      json
// @Param        request  body      OCRSettingsRequest  true  "Engine path"
// @Success      200      {object}  driving.OCRStatus
// @Failure      400      {object}  ErrorResponse  "Invalid request body"
// @Failure      404      {object}  ErrorResponse  "Executable not found"
// @Failure      503      {object}  ErrorResponse  "Engine failed its health check"
// @Router       /settings/ocr [put]
func (s *Server) handleUpdateOCRSettings(w http.ResponseWriter, r *http.Request) {
	var req OCRSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	status, err := s.settings.UpdateOCR(r.Context(), req.Path)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// Helper functions

func pathOrder(w http.ResponseWriter, r *http.Request) (int, bool) {
	order, err := strconv.Atoi(r.PathValue("order"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid page order")
		return 0, false
	}
	return order, true
}

// queryInt parses a non-negative integer query parameter; empty means 0
func queryInt(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("negative value %d", n)
	}
	return n, nil
}

// statusFor maps a domain error to an HTTP status code
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrOutOfRange):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, domain.ErrParse):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrServiceUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrCancelled):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeDomainError(w http.ResponseWriter, err error) {
	writeError(w, statusFor(err), err.Error())
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
