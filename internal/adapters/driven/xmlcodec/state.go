package xmlcodec

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"

	"github.com/custodia-labs/sercha-scan/internal/core/domain"
	"github.com/custodia-labs/sercha-scan/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.WorkspaceStateStore = (*StateStore)(nil)

// StateStore persists the workspace state in a single startup file
type StateStore struct {
	path  string
	codec *Codec
}

// NewStateStore creates a state store backed by the file at path
func NewStateStore(path string, codec *Codec) *StateStore {
	return &StateStore{path: path, codec: codec}
}

// Load returns the saved state, or an empty state if the file does not exist yet
func (s *StateStore) Load(ctx context.Context) (*domain.WorkspaceState, error) {
	var startup startupXML
	err := s.codec.readXML(s.path, &startup)
	if errors.Is(err, domain.ErrNotFound) {
		return &domain.WorkspaceState{}, nil
	}
	if err != nil {
		return nil, err
	}

	state := &domain.WorkspaceState{
		Documents: make([]string, 0, len(startup.Documents)),
	}
	if startup.Tesseract != nil {
		state.OCREnginePath = startup.Tesseract.Path
	}
	if startup.WorkingDoc != nil {
		state.WorkingDocument = startup.WorkingDoc.Value
	}
	if startup.WorkingPage != nil {
		state.WorkingPage = startup.WorkingPage.Value
	}
	for _, doc := range startup.Documents {
		if doc.Value != "" {
			state.Documents = append(state.Documents, doc.Value)
		}
	}
	return state, nil
}

// Save replaces the startup file
func (s *StateStore) Save(ctx context.Context, state *domain.WorkspaceState) error {
	if state == nil {
		return fmt.Errorf("%w: nil state", domain.ErrInvalidInput)
	}
	if err := requireXMLSafe(state.OCREnginePath, state.WorkingDocument, state.WorkingPage); err != nil {
		return err
	}
	if err := requireXMLSafe(state.Documents...); err != nil {
		return err
	}
	startup := startupXML{
		XMLName:   xml.Name{Local: "STARTUP"},
		Tesseract: &pathXML{Path: state.OCREnginePath},
	}
	if state.WorkingDocument != "" {
		startup.WorkingDoc = &valueXML{Value: state.WorkingDocument}
	}
	if state.WorkingPage != "" {
		startup.WorkingPage = &valueXML{Value: state.WorkingPage}
	}
	for _, doc := range state.Documents {
		startup.Documents = append(startup.Documents, valueXML{Value: doc})
	}
	return s.codec.writeXML(s.path, startup)
}
