package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/godm-io/godm"
	"github.com/godm-io/godm/codec"
)

var validateCmd = &cobra.Command{
	Use:   "validate [data.json]",
	Short: "Build the manifest's schemas and optionally validate documents",
	Long: `Builds every schema in the manifest, failing on definition errors.
With a data file, each document in it is cleaned through the schema named
by --schema; the file may hold one JSON document or an array of them.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		bindFlags(cmd)
		setupLogger()

		m, err := loadManifest()
		if err != nil {
			return err
		}
		schemas := m.Schemas()
		fmt.Printf("manifest ok: %d schema(s)\n", len(schemas))
		if len(args) == 0 {
			for _, s := range schemas {
				fmt.Printf("  %s -> collection %q\n", s.Name(), s.CollectionName())
			}
			return nil
		}

		name := viper.GetString("schema")
		if name == "" {
			return fmt.Errorf("--schema is required when validating a data file")
		}
		s, ok := m.Schema(name)
		if !ok {
			return fmt.Errorf("schema %q not in manifest", name)
		}

		raw, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		docs, err := decodeDocs(raw)
		if err != nil {
			return fmt.Errorf("%s: %w", args[0], err)
		}

		failed := 0
		for i, doc := range docs {
			data, err := s.Clean(doc)
			if err != nil {
				failed++
				fmt.Printf("document %d: invalid\n", i)
				var issues godm.Issues
				if errors.As(err, &issues) {
					for _, issue := range issues {
						fmt.Printf("  %s: %s (%s)\n", issue.Path, issue.Message, issue.Code)
					}
				} else {
					fmt.Printf("  %v\n", err)
				}
				continue
			}
			canonical, err := codec.JSON.Marshal(data)
			if err != nil {
				return err
			}
			fmt.Printf("document %d: %s\n", i, canonical)
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d document(s) failed validation", failed, len(docs))
		}
		fmt.Printf("validated %d document(s) against %s\n", len(docs), name)
		return nil
	},
}

func init() {
	validateCmd.Flags().String("schema", "", "schema to validate the data file against")
}

func decodeDocs(raw []byte) ([]map[string]any, error) {
	var payload any
	if err := codec.JSON.Unmarshal(raw, &payload); err != nil {
		return nil, err
	}
	switch t := payload.(type) {
	case map[string]any:
		return []map[string]any{t}, nil
	case []any:
		docs := make([]map[string]any, 0, len(t))
		for i, item := range t {
			m, ok := item.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("entry %d is not a document", i)
			}
			docs = append(docs, m)
		}
		return docs, nil
	default:
		return nil, fmt.Errorf("expected a document or an array of documents")
	}
}
