package models

import "io"

// FileUpload is a document supplied by the applicant. The core never looks at
// Body beyond handing it to the blob store.
type FileUpload struct {
	DocumentType DocumentType
	FileName     string
	ContentType  string
	Body         io.Reader
	Size         int64
}
