package docsource

import (
	"context"
	"encoding/base64"
	"fmt"

	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

const gmailUser = "me"

// GmailSource implements Source against the Gmail API.
type GmailSource struct {
	svc      *gmail.Service
	labelIDs map[string]string
}

// NewGmailSource builds a source from a credentials file with modify scope
// (labels are how completed threads are marked).
func NewGmailSource(ctx context.Context, credentialsFile string) (*GmailSource, error) {
	svc, err := gmail.NewService(ctx,
		option.WithCredentialsFile(credentialsFile),
		option.WithScopes(gmail.GmailModifyScope))
	if err != nil {
		return nil, fmt.Errorf("gmail service: %w", err)
	}
	return &GmailSource{svc: svc, labelIDs: map[string]string{}}, nil
}

func (g *GmailSource) QueryThreads(ctx context.Context, query string, max int) ([]Thread, error) {
	listed, err := g.svc.Users.Threads.List(gmailUser).
		Q(query).MaxResults(int64(max)).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("list threads: %w", err)
	}

	threads := make([]Thread, 0, len(listed.Threads))
	for _, stub := range listed.Threads {
		full, err := g.svc.Users.Threads.Get(gmailUser, stub.Id).Format("full").Context(ctx).Do()
		if err != nil {
			return nil, fmt.Errorf("get thread %s: %w", stub.Id, err)
		}
		threads = append(threads, decodeThread(full))
	}
	return threads, nil
}

func decodeThread(t *gmail.Thread) Thread {
	out := Thread{ID: t.Id}
	for i, msg := range t.Messages {
		if i == 0 {
			out.Subject = headerValue(msg, "Subject")
		}
		m := Message{ID: msg.Id}
		collectAttachments(msg.Id, msg.Payload, &m.Attachments)
		out.Messages = append(out.Messages, m)
	}
	return out
}

func headerValue(msg *gmail.Message, name string) string {
	if msg.Payload == nil {
		return ""
	}
	for _, h := range msg.Payload.Headers {
		if h.Name == name {
			return h.Value
		}
	}
	return ""
}

// collectAttachments walks the MIME part tree.
func collectAttachments(messageID string, part *gmail.MessagePart, out *[]Attachment) {
	if part == nil {
		return
	}
	if part.Filename != "" && part.Body != nil && part.Body.AttachmentId != "" {
		*out = append(*out, Attachment{
			Name:      part.Filename,
			Size:      part.Body.Size,
			MimeType:  part.MimeType,
			ID:        part.Body.AttachmentId,
			MessageID: messageID,
		})
	}
	for _, child := range part.Parts {
		collectAttachments(messageID, child, out)
	}
}

func (g *GmailSource) FetchAttachment(ctx context.Context, att Attachment) ([]byte, error) {
	body, err := g.svc.Users.Messages.Attachments.Get(gmailUser, att.MessageID, att.ID).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("fetch attachment %s: %w", att.Name, err)
	}
	data, err := base64.URLEncoding.DecodeString(body.Data)
	if err != nil {
		return nil, fmt.Errorf("decode attachment %s: %w", att.Name, err)
	}
	return data, nil
}

func (g *GmailSource) AddLabel(ctx context.Context, threadID, label string) error {
	id, err := g.labelID(ctx, label)
	if err != nil {
		return err
	}
	_, err = g.svc.Users.Threads.Modify(gmailUser, threadID, &gmail.ModifyThreadRequest{
		AddLabelIds: []string{id},
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("label thread %s: %w", threadID, err)
	}
	return nil
}

// labelID resolves a label name, creating the label on first use.
func (g *GmailSource) labelID(ctx context.Context, name string) (string, error) {
	if id, ok := g.labelIDs[name]; ok {
		return id, nil
	}
	listed, err := g.svc.Users.Labels.List(gmailUser).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("list labels: %w", err)
	}
	for _, l := range listed.Labels {
		if l.Name == name {
			g.labelIDs[name] = l.Id
			return l.Id, nil
		}
	}
	created, err := g.svc.Users.Labels.Create(gmailUser, &gmail.Label{Name: name}).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("create label %s: %w", name, err)
	}
	g.labelIDs[name] = created.Id
	return created.Id, nil
}
