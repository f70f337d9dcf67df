package models

// UploadResult is returned by POST /api/upload
type UploadResult struct {
	FileID    string `json:"file_id" yaml:"file_id"`
	PageCount int    `json:"page_count" yaml:"page_count"`
	Filename  string `json:"filename" yaml:"filename"`
}

// DocumentInfo is returned by GET /api/pdf/{file_id}/info
type DocumentInfo struct {
	PageCount int    `json:"page_count" yaml:"page_count"`
	Filename  string `json:"filename" yaml:"filename"`
}

// AddRangeRequest is the body of POST /api/pdf/{file_id}/pages/add-range.
// Pages are zero-based indices into the source document.
type AddRangeRequest struct {
	SourceFileID   string `json:"source_file_id"`
	Pages          []int  `json:"pages"`
	InsertPosition int    `json:"insert_position"`
}

// ReorderRequest is the body of POST /api/pdf/{file_id}/pages/reorder
type ReorderRequest struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// PageCountResult is returned by the mutating page endpoints
type PageCountResult struct {
	Status    string `json:"status,omitempty"`
	PageCount int    `json:"page_count"`
}

// UndoStatus is returned by GET /api/pdf/{file_id}/undo/status
type UndoStatus struct {
	CanUndo   bool `json:"can_undo" yaml:"can_undo"`
	UndoCount int  `json:"undo_count" yaml:"undo_count"`
}

// ErrorBody is the error payload the service sends with non-2xx responses
type ErrorBody struct {
	Detail string `json:"detail"`
}
