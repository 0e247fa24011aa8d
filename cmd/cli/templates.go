package cli

import (
	"fmt"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/cyberrange/rangescan/internal/templates"
)

var templatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "Manage scan templates",
}

var templatesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List available scan templates",
	RunE:  runTemplatesList,
}

var templatesAddCmd = &cobra.Command{
	Use:   "add <name> <flag>...",
	Short: "Add or replace a scan template",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runTemplatesAdd,
}

var templatesDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a scan template",
	Args:  cobra.ExactArgs(1),
	RunE:  runTemplatesDelete,
}

func init() {
	templatesCmd.AddCommand(templatesListCmd)
	templatesCmd.AddCommand(templatesAddCmd)
	templatesCmd.AddCommand(templatesDeleteCmd)
	rootCmd.AddCommand(templatesCmd)
}

func runTemplatesList(cmd *cobra.Command, _ []string) error {
	set, err := templates.NewStore(cfg.Scanner.TemplatesFile).Load()
	if err != nil {
		return err
	}

	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.Header("Name", "Flags")
	for _, name := range set.Names() {
		_ = table.Append([]string{name, strings.Join(set[name], " ")})
	}
	_ = table.Render()
	return nil
}

func runTemplatesAdd(cmd *cobra.Command, args []string) error {
	store := templates.NewStore(cfg.Scanner.TemplatesFile)
	set, err := store.Load()
	if err != nil {
		return err
	}

	name := args[0]
	set[name] = args[1:]
	if err := store.Save(set); err != nil {
		return err
	}

	cmd.Printf("Saved template %q: %s\n", name, strings.Join(args[1:], " "))
	return nil
}

func runTemplatesDelete(cmd *cobra.Command, args []string) error {
	store := templates.NewStore(cfg.Scanner.TemplatesFile)
	set, err := store.Load()
	if err != nil {
		return err
	}

	name := args[0]
	if _, ok := set[name]; !ok {
		return fmt.Errorf("template %q does not exist", name)
	}
	delete(set, name)
	if err := store.Save(set); err != nil {
		return err
	}

	cmd.Printf("Deleted template %q\n", name)
	return nil
}
