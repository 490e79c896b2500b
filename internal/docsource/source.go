package docsource

import "context"

// Attachment is one document attached to a mailbox message.
type Attachment struct {
	Name      string
	Size      int64
	MimeType  string
	ID        string
	MessageID string
}

// Message is one message in a thread.
type Message struct {
	ID          string
	Attachments []Attachment
}

// Thread is an ordered conversation; replies may re-attach the same
// document, which the pipeline dedupes by name+size.
type Thread struct {
	ID       string
	Subject  string
	Messages []Message
}

// Source is the mailbox the pipeline pulls report documents from. Marking
// a thread with the completion label is what makes runs resumable: labeled
// threads fall out of the query on the next invocation.
type Source interface {
	QueryThreads(ctx context.Context, query string, max int) ([]Thread, error)
	FetchAttachment(ctx context.Context, att Attachment) ([]byte, error)
	AddLabel(ctx context.Context, threadID, label string) error
}
