package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/godm-io/godm"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect [schema]",
	Short: "Show the fields and indexes a schema declares",
	Long: `Prints every schema in the manifest with its collection, field
descriptors and declared indexes. With an argument, only that schema.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		bindFlags(cmd)
		setupLogger()

		m, err := loadManifest()
		if err != nil {
			return err
		}
		schemas := m.Schemas()
		if len(args) == 1 {
			s, ok := m.Schema(args[0])
			if !ok {
				return fmt.Errorf("schema %q not in manifest", args[0])
			}
			schemas = []*godm.Schema{s}
		}
		for i, s := range schemas {
			if i > 0 {
				fmt.Println()
			}
			printSchema(s)
		}
		return nil
	},
}

func printSchema(s *godm.Schema) {
	fmt.Printf("%s (collection %q)\n", s.Name(), s.CollectionName())
	for _, f := range s.Fields() {
		fmt.Printf("  %s\n", describeField(f))
	}
	for _, idx := range s.Indexes() {
		fmt.Printf("  index %s%s\n", idx.Name(), describeOptions(idx.Options))
	}
}

// describeField renders one line per field: name, store key when aliased,
// kind and whatever constraints the descriptor carries.
func describeField(f *godm.Field) string {
	var b strings.Builder
	b.WriteString(f.Name())
	if f.Key() != f.Name() {
		fmt.Fprintf(&b, " (stored as %q)", f.Key())
	}
	b.WriteString(": ")
	b.WriteString(kindLabel(f))
	if f.Required() {
		b.WriteString(", required")
	}
	if f.HasDefault() {
		b.WriteString(", has default")
	}
	if v := f.MinLen(); v != nil {
		fmt.Fprintf(&b, ", min_length=%d", *v)
	}
	if v := f.MaxLen(); v != nil {
		fmt.Fprintf(&b, ", max_length=%d", *v)
	}
	if v := f.Min(); v != nil {
		fmt.Fprintf(&b, ", min_value=%v", *v)
	}
	if v := f.Max(); v != nil {
		fmt.Fprintf(&b, ", max_value=%v", *v)
	}
	return b.String()
}

// kindLabel spells out composite kinds, so an array of embedded Comment
// documents reads "array of embedded Comment" rather than just "array".
func kindLabel(f *godm.Field) string {
	switch f.Kind() {
	case godm.KindArray:
		return "array of " + kindLabel(f.Elem())
	case godm.KindEmbedded:
		return "embedded " + f.Schema().Name()
	default:
		return f.Kind().String()
	}
}
