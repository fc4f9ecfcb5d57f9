package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/godm-io/godm"
)

var indexesCmd = &cobra.Command{
	Use:   "indexes",
	Short: "Reconcile collection indexes with the manifest",
}

var indexesPlanCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show the index changes apply would make",
	RunE: func(cmd *cobra.Command, args []string) error {
		bindFlags(cmd)
		setupLogger()
		return forEachCollection(cmd, func(col *godm.Collection) error {
			plan, err := col.IndexPlan(cmd.Context())
			if err != nil {
				return err
			}
			printPlan(col.Name(), plan)
			return nil
		})
	},
}

var indexesApplyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Apply the planned index changes",
	RunE: func(cmd *cobra.Command, args []string) error {
		bindFlags(cmd)
		setupLogger()
		return forEachCollection(cmd, func(col *godm.Collection) error {
			plan, err := col.IndexPlan(cmd.Context())
			if err != nil {
				return err
			}
			printPlan(col.Name(), plan)
			if plan.Empty() {
				return nil
			}
			return col.ApplyIndexPlan(cmd.Context(), plan)
		})
	},
}

func init() {
	indexesCmd.AddCommand(indexesPlanCmd)
	indexesCmd.AddCommand(indexesApplyCmd)
}

func forEachCollection(cmd *cobra.Command, fn func(*godm.Collection) error) error {
	m, err := loadManifest()
	if err != nil {
		return err
	}
	store, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close(cmd.Context()) }()

	db := godm.Open(store)
	for _, s := range m.Schemas() {
		if err := fn(db.Collection(s)); err != nil {
			return fmt.Errorf("%s: %w", s.CollectionName(), err)
		}
	}
	return nil
}

func printPlan(collection string, plan godm.IndexPlan) {
	if plan.Empty() {
		fmt.Printf("%s: up to date\n", collection)
		return
	}
	for _, ix := range plan.Create {
		fmt.Printf("%s: create %s%s\n", collection, ix.Name(), describeOptions(ix.Options))
	}
	for _, name := range plan.Drop {
		fmt.Printf("%s: drop %s\n", collection, name)
	}
	for _, m := range plan.Modify {
		fmt.Printf("%s: modify %s%s\n", collection, m.Name, describeOptions(m.Option))
	}
	for _, r := range plan.Recreate {
		fmt.Printf("%s: recreate %s as %s%s\n",
			collection, r.DropName, r.Create.Name(), describeOptions(r.Create.Options))
	}
}

func describeOptions(opts map[string]any) string {
	if len(opts) == 0 {
		return ""
	}
	parts := make([]string, 0, len(opts))
	for _, k := range sortedOptionKeys(opts) {
		if k == "name" {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s=%v", k, opts[k]))
	}
	if len(parts) == 0 {
		return ""
	}
	return " (" + strings.Join(parts, ", ") + ")"
}

func sortedOptionKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
