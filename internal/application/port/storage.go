package port

import "context"

// ReportStore keeps generated workbooks on durable storage
type ReportStore interface {
	// Save writes content under the folder of eventID and returns its full path
	Save(ctx context.Context, eventID, fileName string, content []byte) (string, error)
	Read(ctx context.Context, eventID, fileName string) ([]byte, error)
	Exists(ctx context.Context, eventID, fileName string) bool
	Delete(ctx context.Context, eventID, fileName string) error
}
