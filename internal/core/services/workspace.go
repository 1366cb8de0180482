package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/custodia-labs/sercha-scan/internal/core/domain"
	"github.com/custodia-labs/sercha-scan/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-scan/internal/core/ports/driving"
)

// Ensure workspaceService implements WorkspaceService
var _ driving.WorkspaceService = (*workspaceService)(nil)

// workspaceService is the single writer over every document in the workspace
type workspaceService struct {
	mu sync.Mutex

	root      string
	documents driving.DocumentService
	search    driving.SearchService
	codec     driven.MetadataCodec
	files     driven.FileSystem
	state     driven.WorkspaceStateStore
	vision    driven.VisionEstimator
	queue     driven.TaskQueue
	opts      domain.SearchOptions
	ocrImport bool
	logger    *slog.Logger

	docs        []*domain.Document
	working     *domain.Document
	workingPage *domain.Page
	history     *domain.History
	ocrPath     string
}

// WorkspaceServiceConfig holds dependencies for the workspace service.
type WorkspaceServiceConfig struct {
	// Root is the workspace directory holding raw/, processed/ and docs/
	Root      string
	Documents driving.DocumentService
	Search    driving.SearchService
	Codec     driven.MetadataCodec
	Files     driven.FileSystem
	State     driven.WorkspaceStateStore
	// Vision is optional; imported pages keep default corners without it
	Vision driven.VisionEstimator
	// Queue is optional; background requests fail with ErrServiceUnavailable without it
	Queue         driven.TaskQueue
	SearchOptions domain.SearchOptions
	// OCROnImport enqueues recognition of every imported page
	OCROnImport bool
	Logger      *slog.Logger
}

// NewWorkspaceService creates a new WorkspaceService
func NewWorkspaceService(cfg WorkspaceServiceConfig) driving.WorkspaceService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &workspaceService{
		root:      cfg.Root,
		documents: cfg.Documents,
		search:    cfg.Search,
		codec:     cfg.Codec,
		files:     cfg.Files,
		state:     cfg.State,
		vision:    cfg.Vision,
		queue:     cfg.Queue,
		opts:      cfg.SearchOptions,
		ocrImport: cfg.OCROnImport,
		logger:    logger,
		history:   domain.NewHistory(),
	}
}

// Startup loads the persisted state and every known document
func (s *workspaceService) Startup(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.state.Load(ctx)
	if err != nil {
		return fmt.Errorf("load workspace state: %w", err)
	}
	s.ocrPath = state.OCREnginePath

	var missing []string
	var problems []error
	for _, path := range state.Documents {
		doc, err := s.documents.Load(ctx, path)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			missing = append(missing, path)
			continue
		case err != nil:
			s.logger.Warn("skipping unreadable document", "path", path, "error", err)
			problems = append(problems, err)
			continue
		}
		s.docs = append(s.docs, doc)
	}

	s.restoreWorking(state)

	s.logger.Info("workspace loaded",
		"root", s.root,
		"documents", len(s.docs),
		"missing", len(missing))

	if len(missing) > 0 {
		problems = append([]error{fmt.Errorf("%w: some documents could not be located: %s",
			domain.ErrNotFound, strings.Join(missing, ", "))}, problems...)
	}
	return errors.Join(problems...)
}

// restoreWorking matches the saved working document by path, falling back to name
func (s *workspaceService) restoreWorking(state *domain.WorkspaceState) {
	if state.WorkingDocument == "" {
		return
	}
	for _, doc := range s.docs {
		if doc.Path == state.WorkingDocument || doc.Name == state.WorkingDocument {
			s.working = doc
			break
		}
	}
	if s.working == nil {
		return
	}

	s.workingPage = nil
	for _, page := range s.working.Pages() {
		if page.MetadataPath == state.WorkingPage {
			s.workingPage = page
			break
		}
	}
	if s.workingPage == nil {
		s.workingPage, _ = s.working.Page(0)
	}
}

// Shutdown serializes the working document and saves the state
func (s *workspaceService) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var firstErr error
	if s.working != nil {
		if err := s.documents.Serialize(ctx, s.working); err != nil {
			s.logger.Error("failed to serialize working document", "document", s.working.Name, "error", err)
			firstErr = err
		}
	}
	if err := s.saveStateLocked(ctx); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// Documents returns every known document
func (s *workspaceService) Documents() []driving.DocumentView {
	s.mu.Lock()
	defer s.mu.Unlock()

	views := make([]driving.DocumentView, 0, len(s.docs))
	for _, doc := range s.docs {
		views = append(views, *s.documentView(doc))
	}
	return views
}

// Document returns a document by name
func (s *workspaceService) Document(name string) (*driving.DocumentView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.findLocked(name)
	if err != nil {
		return nil, err
	}
	return s.documentView(doc), nil
}

// Working returns the working document and page
func (s *workspaceService) Working() (*driving.DocumentView, *driving.PageView) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.working == nil {
		return nil, nil
	}
	var page *driving.PageView
	if s.workingPage != nil {
		page = pageView(s.workingPage)
	}
	return s.documentView(s.working), page
}

// Open makes a document the working document
func (s *workspaceService) Open(ctx context.Context, name string) (*driving.DocumentView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.findLocked(name)
	if err != nil {
		return nil, err
	}
	page, _ := doc.Page(0)
	if err := s.switchLocked(ctx, doc, page); err != nil {
		return nil, err
	}
	s.history.Add(domain.NewEvent(domain.ModeView, doc, page, nil))
	return s.documentView(doc), nil
}

// OpenPage makes a page current and records an event in the given mode
func (s *workspaceService) OpenPage(ctx context.Context, name string, order int, mode domain.Mode) (*driving.PageView, error) {
	if !mode.Valid() {
		return nil, fmt.Errorf("%w: mode %q", domain.ErrInvalidInput, mode)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.findLocked(name)
	if err != nil {
		return nil, err
	}
	page, err := doc.Page(order)
	if err != nil {
		return nil, err
	}
	if err := s.switchLocked(ctx, doc, page); err != nil {
		return nil, err
	}
	s.history.Add(domain.NewEvent(mode, doc, page, nil))
	return pageView(page), nil
}

// switchLocked closes the previous working document by serializing it
func (s *workspaceService) switchLocked(ctx context.Context, doc *domain.Document, page *domain.Page) error {
	if s.working != nil && s.working != doc {
		if err := s.documents.Serialize(ctx, s.working); err != nil {
			return fmt.Errorf("close %s: %w", s.working.Name, err)
		}
	}
	s.working = doc
	s.workingPage = page
	return nil
}

// RenameDocument renames a document and rewrites the state
func (s *workspaceService) RenameDocument(ctx context.Context, name, newName string) (*driving.DocumentView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.findLocked(name)
	if err != nil {
		return nil, err
	}
	if name == newName {
		return s.documentView(doc), nil
	}
	if _, err := s.findLocked(newName); err == nil {
		return nil, fmt.Errorf("%w: document %q", domain.ErrAlreadyExists, newName)
	}

	if err := s.documents.Rename(ctx, doc, newName); err != nil {
		return nil, err
	}
	if err := s.saveStateLocked(ctx); err != nil {
		return nil, err
	}
	return s.documentView(doc), nil
}

// DeleteDocument deletes a document's files and forgets it. A document whose
// files could not all be removed stays known so the delete can be retried.
func (s *workspaceService) DeleteDocument(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.findLocked(name)
	if err != nil {
		return err
	}
	if err := s.documents.Delete(ctx, doc); err != nil {
		return err
	}

	for i, d := range s.docs {
		if d == doc {
			s.docs = append(s.docs[:i], s.docs[i+1:]...)
			break
		}
	}
	if s.working == doc {
		s.working = nil
		s.workingPage = nil
	}
	s.history.Prune(func(e domain.Event) bool { return !e.References(doc) })

	s.logger.Info("document deleted", "document", name)
	return s.saveStateLocked(ctx)
}

// DeletePage deletes the page at order
func (s *workspaceService) DeletePage(ctx context.Context, name string, order int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.findLocked(name)
	if err != nil {
		return err
	}
	page, err := doc.Page(order)
	if err != nil {
		return err
	}

	err = s.documents.DeletePage(ctx, doc, page)
	if !doc.Contains(page) {
		s.history.Prune(func(e domain.Event) bool { return !e.ReferencesPage(page) })
		if s.workingPage == page {
			s.workingPage = nil
			if doc.Len() > 0 {
				s.workingPage, _ = doc.Page(min(order, doc.Len()-1))
			}
		}
	}
	return err
}

// ReorderPage moves the page at order to newOrder
func (s *workspaceService) ReorderPage(ctx context.Context, name string, order, newOrder int) (*driving.DocumentView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.findLocked(name)
	if err != nil {
		return nil, err
	}
	page, err := doc.Page(order)
	if err != nil {
		return nil, err
	}
	if err := s.documents.ReorderPage(ctx, doc, page, newOrder); err != nil {
		return nil, err
	}
	return s.documentView(doc), nil
}

// UpdatePage replaces the config and corners of a page and persists it
func (s *workspaceService) UpdatePage(ctx context.Context, name string, order int, update driving.PageUpdate) (*driving.PageView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.findLocked(name)
	if err != nil {
		return nil, err
	}
	page, err := doc.Page(order)
	if err != nil {
		return nil, err
	}

	if update.Config != nil {
		page.Config = *update.Config
	}
	if update.Corners != nil {
		page.Corners = *update.Corners
	}
	if err := s.codec.WritePage(ctx, page); err != nil {
		return nil, err
	}
	return pageView(page), nil
}

// SerializeDocument persists a document
func (s *workspaceService) SerializeDocument(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.findLocked(name)
	if err != nil {
		return err
	}
	return s.documents.Serialize(ctx, doc)
}

// Search runs the query, caps each tier and records the results
func (s *workspaceService) Search(ctx context.Context, query string) (*driving.ResultsView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	results, err := s.search.Query(ctx, query, s.working, s.docs)
	if err != nil {
		return nil, err
	}
	results.Truncate(s.opts)

	s.history.Add(domain.NewEvent(domain.ModeSearchResults, s.working, s.workingPage, results))
	return resultsView(results), nil
}

// Back steps back through the history
func (s *workspaceService) Back() (*driving.EventView, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.history.Back()
	if !ok {
		return nil, false
	}
	s.followLocked(e)
	return eventView(e), true
}

// Next steps forward through the history
func (s *workspaceService) Next() (*driving.EventView, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.history.Next()
	if !ok {
		return nil, false
	}
	s.followLocked(e)
	return eventView(e), true
}

// followLocked makes the event's document and page current without
// recording a new event
func (s *workspaceService) followLocked(e domain.Event) {
	if doc := e.Document(); doc != nil {
		s.working = doc
		s.workingPage = e.Page()
	}
}

// History returns the navigation log
func (s *workspaceService) History() driving.HistoryView {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.history.Entries()
	view := driving.HistoryView{
		Entries: make([]driving.EventView, 0, len(entries)),
		Current: s.history.Index(),
	}
	for _, e := range entries {
		view.Entries = append(view.Entries, *eventView(e))
	}
	return view
}

// PageImage returns the raw image path of a page
func (s *workspaceService) PageImage(name, pageName string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	page, err := s.pageLocked(name, pageName)
	if err != nil {
		return "", err
	}
	return page.RawImagePath, nil
}

// PendingOCR returns the pages of a document that have no text yet
func (s *workspaceService) PendingOCR(name string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.findLocked(name)
	if err != nil {
		return nil, err
	}
	var pending []string
	for _, page := range doc.Pages() {
		if !page.HasText() {
			pending = append(pending, page.Name)
		}
	}
	return pending, nil
}

// ApplyOCR replaces the page text in one atomic store and persists the page
func (s *workspaceService) ApplyOCR(ctx context.Context, name, pageName string, text *domain.PageText) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	page, err := s.pageLocked(name, pageName)
	if err != nil {
		return err
	}
	page.SetText(text)
	return s.codec.WritePage(ctx, page)
}

// ExportText writes "PAGE n" sections with the text of every page
func (s *workspaceService) ExportText(ctx context.Context, name, outPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.findLocked(name)
	if err != nil {
		return err
	}

	var b strings.Builder
	for i, page := range doc.Pages() {
		fmt.Fprintf(&b, "PAGE %d\n==\n%s\n\n", i+1, page.FullText())
	}
	if err := s.files.WriteFile(outPath, []byte(b.String())); err != nil {
		return fmt.Errorf("%w: write %s: %w", domain.ErrIO, outPath, err)
	}
	return nil
}

// ExportImages copies every processed image into a new directory
func (s *workspaceService) ExportImages(ctx context.Context, name, outDir string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.findLocked(name)
	if err != nil {
		return err
	}
	if s.files.Exists(outDir) {
		return fmt.Errorf("%w: %s", domain.ErrAlreadyExists, outDir)
	}
	if err := s.files.MkdirAll(outDir); err != nil {
		return fmt.Errorf("%w: create %s: %w", domain.ErrIO, outDir, err)
	}

	var firstErr error
	for _, page := range doc.Pages() {
		src := page.ProcessedImagePath
		if src == "" || !s.files.Exists(src) {
			src = page.RawImagePath
		}
		dst := filepath.Join(outDir, filepath.Base(src))
		if err := s.files.CopyFile(ctx, src, dst); err != nil {
			err = fmt.Errorf("%w: copy %s: %w", domain.ErrIO, src, err)
			if firstErr == nil {
				firstErr = err
				continue
			}
			s.logger.Error("failed to export image", "document", name, "page", page.Name, "error", err)
		}
	}
	return firstErr
}

// RequestOCR enqueues recognition of one page or the whole document
func (s *workspaceService) RequestOCR(ctx context.Context, name, pageName string) ([]*domain.Task, error) {
	if s.queue == nil {
		return nil, fmt.Errorf("%w: no task queue", domain.ErrServiceUnavailable)
	}

	s.mu.Lock()
	doc, err := s.findLocked(name)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	var tasks []*domain.Task
	for _, page := range doc.Pages() {
		if pageName == "" || page.Name == pageName {
			tasks = append(tasks, domain.NewOCRPageTask(doc.Name, page.Name))
		}
	}
	s.mu.Unlock()

	if pageName != "" && len(tasks) == 0 {
		return nil, fmt.Errorf("%w: page %q in %q", domain.ErrNotFound, pageName, name)
	}
	if err := s.queue.EnqueueBatch(ctx, tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// RequestExport enqueues an export of the document
func (s *workspaceService) RequestExport(ctx context.Context, name, outPath string) (*domain.Task, error) {
	if s.queue == nil {
		return nil, fmt.Errorf("%w: no task queue", domain.ErrServiceUnavailable)
	}
	if outPath == "" {
		return nil, fmt.Errorf("%w: output path is required", domain.ErrInvalidInput)
	}
	if _, err := s.Document(name); err != nil {
		return nil, err
	}

	task := domain.NewExportTask(name, outPath)
	if err := s.queue.Enqueue(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

// State returns the state that Shutdown would persist
func (s *workspaceService) State() *domain.WorkspaceState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

// SetOCREnginePath records the engine path and saves the state
func (s *workspaceService) SetOCREnginePath(ctx context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ocrPath = path
	return s.saveStateLocked(ctx)
}

func (s *workspaceService) stateLocked() *domain.WorkspaceState {
	state := &domain.WorkspaceState{
		Documents:     make([]string, 0, len(s.docs)),
		OCREnginePath: s.ocrPath,
	}
	for _, doc := range s.docs {
		state.Documents = append(state.Documents, doc.Path)
	}
	if s.working != nil {
		state.WorkingDocument = s.working.Path
		if s.workingPage != nil {
			state.WorkingPage = s.workingPage.MetadataPath
		}
	}
	return state
}

func (s *workspaceService) saveStateLocked(ctx context.Context) error {
	if err := s.state.Save(ctx, s.stateLocked()); err != nil {
		return fmt.Errorf("save workspace state: %w", err)
	}
	return nil
}

func (s *workspaceService) findLocked(name string) (*domain.Document, error) {
	for _, doc := range s.docs {
		if doc.Name == name {
			return doc, nil
		}
	}
	return nil, fmt.Errorf("%w: document %q", domain.ErrNotFound, name)
}

func (s *workspaceService) pageLocked(name, pageName string) (*domain.Page, error) {
	doc, err := s.findLocked(name)
	if err != nil {
		return nil, err
	}
	page, ok := doc.PageByName(pageName)
	if !ok {
		return nil, fmt.Errorf("%w: page %q in %q", domain.ErrNotFound, pageName, name)
	}
	return page, nil
}

func (s *workspaceService) documentView(doc *domain.Document) *driving.DocumentView {
	pages := doc.Pages()
	view := &driving.DocumentView{
		Name:    doc.Name,
		Path:    doc.Path,
		Working: doc == s.working,
		Pages:   make([]driving.PageView, 0, len(pages)),
	}
	for _, page := range pages {
		view.Pages = append(view.Pages, *pageView(page))
	}
	return view
}

func pageView(page *domain.Page) *driving.PageView {
	text := page.Text()
	return &driving.PageView{
		Order:              page.Order,
		Name:               page.Name,
		RawImagePath:       page.RawImagePath,
		ProcessedImagePath: page.ProcessedImagePath,
		MetadataPath:       page.MetadataPath,
		Corners:            page.Corners,
		Config:             page.Config,
		FullText:           text.FullText(),
		WordCount:          text.WordCount(),
	}
}

func hitViews(hits []domain.SearchHit) []driving.HitView {
	views := make([]driving.HitView, 0, len(hits))
	for _, hit := range hits {
		views = append(views, driving.HitView{
			Document: hit.Document.Name,
			Page:     hit.Page.Name,
			Order:    hit.Page.Order,
			Snippet:  hit.Snippet,
			Score:    hit.Score,
		})
	}
	return views
}

func resultsView(r *domain.SearchResults) *driving.ResultsView {
	return &driving.ResultsView{
		Query:        r.Query,
		InWorkingDoc: hitViews(r.InWorkingDoc),
		Elsewhere:    hitViews(r.Elsewhere),
	}
}

func eventView(e domain.Event) *driving.EventView {
	view := &driving.EventView{Mode: e.Mode()}
	if doc := e.Document(); doc != nil {
		view.Document = doc.Name
	}
	if page := e.Page(); page != nil {
		view.Page = page.Name
		view.Order = page.Order
	}
	if r := e.Results(); r != nil {
		view.Results = resultsView(r)
	}
	return view
}
