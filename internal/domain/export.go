package domain

// ExportFile is a CSV export payload as received from the backend, together
// with the filename the backend suggested for it.
type ExportFile struct {
	Filename string
	Data     []byte
}
