package registry

import (
	"context"
	"fmt"
	"strings"
)

// Patient is one admitted patient as registered in the document store.
// The set of patients is treated as immutable for the duration of one
// pipeline run; identity is the ID.
type Patient struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Ward   string `json:"ward"`
	Serial string `json:"serial"`
}

// Lister is the slice of the document store the registry needs.
type Lister interface {
	List(ctx context.Context, prefix string, each func(path string, raw []byte) error) error
}

// Decoder decodes one stored document into v.
type Decoder func(raw []byte, v any) error

// Load reads every patient document under patients/ from the store.
func Load(ctx context.Context, store Lister, decode Decoder) ([]Patient, error) {
	var patients []Patient
	err := store.List(ctx, "patients/", func(path string, raw []byte) error {
		var p Patient
		if err := decode(raw, &p); err != nil {
			return fmt.Errorf("decode %s: %w", path, err)
		}
		if p.ID == "" {
			p.ID = strings.TrimPrefix(path, "patients/")
		}
		patients = append(patients, p)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list patients: %w", err)
	}
	return patients, nil
}
