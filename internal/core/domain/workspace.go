package domain

// Workspace directory layout below the workspace root
const (
	RawDir       = "raw"
	ProcessedDir = "processed"
	DocsDir      = "docs"
)

// ImageExtensions are the file extensions accepted on import
var ImageExtensions = []string{".png", ".jpg", ".jpeg", ".tif", ".tiff"}

// WorkspaceState is the state persisted between runs
type WorkspaceState struct {
	// WorkingDocument is the index path of the document open at shutdown
	WorkingDocument string `json:"working_document,omitempty"`
	// WorkingPage is the metadata path of the page open at shutdown
	WorkingPage string `json:"working_page,omitempty"`
	// Documents are the index paths of every known document
	Documents []string `json:"documents"`
	// OCREnginePath is the tesseract executable chosen by the user
	OCREnginePath string `json:"ocr_engine_path,omitempty"`
}

// HasDocument reports whether path is a known document
func (s *WorkspaceState) HasDocument(path string) bool {
	for _, p := range s.Documents {
		if p == path {
			return true
		}
	}
	return false
}

