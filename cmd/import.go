package main

import (
	"encoding/json"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/councilsense/minutes-cli/internal/ocr"
	"github.com/councilsense/minutes-cli/internal/source"
	"github.com/councilsense/minutes-cli/internal/store"
)

var (
	importTextPath  string
	importPDFPath   string
	importMeetingID string
	importTitle     string
	importStoreDir  string
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Copy a meeting packet into the local store",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("import"); err != nil {
			return err
		}
		if importTextPath == "" && importPDFPath == "" {
			return eris.New("import: --text or --pdf is required")
		}

		var extractor ocr.Extractor
		if importPDFPath != "" {
			var err error
			if extractor, err = ocr.NewExtractor(cfg.OCR); err != nil {
				return err
			}
		}
		sources, err := source.Load(ctx, importTextPath, importPDFPath, extractor)
		if err != nil {
			return eris.Wrap(err, "import: load sources")
		}

		st, err := initStore(ctx, importStoreDir)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		m, err := store.ImportMeeting(ctx, st, store.ImportRequest{
			MeetingID: importMeetingID,
			Title:     importTitle,
			TextPath:  importTextPath,
			PDFPath:   importPDFPath,
		}, sources)
		if err != nil {
			return eris.Wrap(err, "import")
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(m)
	},
}

func init() {
	importCmd.Flags().StringVar(&importTextPath, "text", "", "path to the packet text file")
	importCmd.Flags().StringVar(&importPDFPath, "pdf", "", "path to the packet PDF")
	importCmd.Flags().StringVar(&importMeetingID, "meeting-id", "", "meeting id (default: content hash of the inputs)")
	importCmd.Flags().StringVar(&importTitle, "title", "", "human-readable meeting title")
	importCmd.Flags().StringVar(&importStoreDir, "store-dir", "", "meeting store directory (default from config)")
	rootCmd.AddCommand(importCmd)
}
