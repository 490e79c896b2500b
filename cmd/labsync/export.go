package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nicudesk/labsync/internal/chart"
	"github.com/nicudesk/labsync/internal/chartexport"
	"github.com/nicudesk/labsync/internal/logging"
	"github.com/nicudesk/labsync/internal/registry"
	"github.com/nicudesk/labsync/internal/store"
)

var (
	exportFormat string
	exportOut    string
)

var exportCmd = &cobra.Command{
	Use:   "export <patient-id>",
	Short: "Export a patient's chart as markdown, HTML, or PDF",
	Args:  cobra.ExactArgs(1),
	RunE:  runExport,
}

func init() {
	f := exportCmd.Flags()
	f.StringVar(&exportFormat, "format", "md", "Output format: md, html, or pdf")
	f.StringVar(&exportOut, "out", "", "Output file (default stdout; required for pdf)")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	log := logging.Setup(cfg.LogFormat)
	ctx := context.Background()
	patientID := args[0]

	if exportFormat == "pdf" && exportOut == "" {
		return fmt.Errorf("--out is required for pdf export")
	}

	st, err := store.Open(cfg.StorePath)
	if err != nil {
		log.Error().Err(err).Msg("open document store failed")
		os.Exit(1)
	}
	defer st.Close()

	var p registry.Patient
	if err := st.Get(ctx, "patients/"+patientID, &p); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("unknown patient %q", patientID)
		}
		return err
	}

	doc := chart.NewDocument()
	if err := st.Get(ctx, "charts/"+patientID, doc); err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return err
		}
		// No reports merged yet; export the empty default chart.
		doc = chart.NewDocument()
	}

	renderer := chartexport.NewChromiumPDFRenderer(cfg.ExportWebDir)

	var out []byte
	switch exportFormat {
	case "md":
		out = []byte(chartexport.RenderMarkdown(p, doc))
	case "html":
		s, err := renderer.RenderHTML(p, doc)
		if err != nil {
			return err
		}
		out = []byte(s)
	case "pdf":
		out, err = renderer.RenderPDF(ctx, p, doc)
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown format %q", exportFormat)
	}

	if exportOut == "" {
		_, err = os.Stdout.Write(out)
		return err
	}
	if err := os.WriteFile(exportOut, out, 0644); err != nil {
		return err
	}
	log.Info().Str("patient", patientID).Str("file", exportOut).Msg("chart exported")
	return nil
}
